package mensa

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locations.yaml
var locationsYAML []byte

type Location struct {
	Name string `yaml:"name"`
	ID   int    `yaml:"id"`
}

type locationTable struct {
	Default   string     `yaml:"default"`
	Locations []Location `yaml:"locations"`
}

func loadLocations() (locationTable, error) {
	var table locationTable
	if err := yaml.Unmarshal(locationsYAML, &table); err != nil {
		return locationTable{}, fmt.Errorf("decode locations: %w", err)
	}
	return table, nil
}

// Locations lists the known canteens in file order.
func Locations() ([]Location, error) {
	table, err := loadLocations()
	if err != nil {
		return nil, err
	}
	return table.Locations, nil
}

// LookupLocation resolves a canteen by name (case-insensitive) or numeric id.
// An empty key selects the default canteen. Unknown numeric ids are accepted
// as is.
func LookupLocation(key string) (Location, error) {
	table, err := loadLocations()
	if err != nil {
		return Location{}, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = table.Default
	}
	if id, err := strconv.Atoi(key); err == nil {
		if id <= 0 {
			return Location{}, fmt.Errorf("invalid location id %d", id)
		}
		for _, loc := range table.Locations {
			if loc.ID == id {
				return loc, nil
			}
		}
		return Location{Name: key, ID: id}, nil
	}
	for _, loc := range table.Locations {
		if strings.EqualFold(loc.Name, key) {
			return loc, nil
		}
	}
	return Location{}, fmt.Errorf("unknown location %q", key)
}
