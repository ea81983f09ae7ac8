// Package mensa fetches and renders the Studentenwerk Leipzig canteen plan.
package mensa

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoPlanAvailable means the page served a different day than the one
	// requested, which is how the site signals that no plan is published.
	ErrNoPlanAvailable = errors.New("no menu published for this day")
	ErrFetch           = errors.New("fetching menu page failed")
)

// DateLayout is how the site and the rendered header print dates.
const DateLayout = "02.01.2006"

type Meal struct {
	Category    string
	Name        string
	Ingredients []string
	Price       string
}

// Menu is one parsed plan page. Date is the page's own label for the day it
// shows, e.g. "Montag, 01.01.2024".
type Menu struct {
	Date  string
	Meals []Meal
}

// Group is one category heading with its meals in page order.
type Group struct {
	Category string
	Meals    []Meal
}

// Groups returns meals grouped by category, categories in order of first
// appearance.
func (m *Menu) Groups() []Group {
	var groups []Group
	index := make(map[string]int)
	for _, meal := range m.Meals {
		i, ok := index[meal.Category]
		if !ok {
			i = len(groups)
			index[meal.Category] = i
			groups = append(groups, Group{Category: meal.Category})
		}
		groups[i].Meals = append(groups[i].Meals, meal)
	}
	return groups
}

// Validate checks that the page is for date. The day part after the comma in
// Date must equal date as dd.mm.yyyy, and there must be at least one meal.
func (m *Menu) Validate(date time.Time) error {
	if len(m.Meals) == 0 {
		return fmt.Errorf("%w: page for %s lists no meals", ErrNoPlanAvailable, date.Format(DateLayout))
	}
	_, day, ok := strings.Cut(m.Date, ",")
	if !ok || strings.TrimSpace(day) != date.Format(DateLayout) {
		return fmt.Errorf("%w: requested %s, page shows %q", ErrNoPlanAvailable, date.Format(DateLayout), m.Date)
	}
	return nil
}
