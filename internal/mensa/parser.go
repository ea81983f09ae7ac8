package mensa

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	dateSelector     = `select#edit-date > option[selected]`
	categorySelector = `h3.title-prim`
	categoryStop     = `.title-prim`
	blockSelector    = `.accordion.u-block`
)

// Parse extracts the page date and the meals from a plan page. Meals keep
// page order. A page without meals is not an error.
func Parse(r io.Reader) (*Menu, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse menu page: %w", err)
	}

	menu := &Menu{
		Date: strings.TrimSpace(doc.Find(dateSelector).First().Text()),
	}
	doc.Find(categorySelector).Each(func(_ int, heading *goquery.Selection) {
		category := collapseSpace(heading.Text())
		heading.NextUntil(categoryStop).Each(func(_ int, sib *goquery.Selection) {
			if !sib.Is(blockSelector) {
				return
			}
			sib.ChildrenFiltered("section").Each(func(_ int, section *goquery.Selection) {
				menu.Meals = append(menu.Meals, parseMeal(category, section))
			})
		})
	})
	return menu, nil
}

func parseMeal(category string, section *goquery.Selection) Meal {
	meal := Meal{
		Category: category,
		Name:     collapseSpace(section.Find("header h4").First().Text()),
		Price:    parsePrice(section.Find("header p").First()),
	}
	section.Find("details ul li").Each(func(_ int, li *goquery.Selection) {
		if text := collapseSpace(li.Text()); text != "" {
			meal.Ingredients = append(meal.Ingredients, text)
		}
	})
	return meal
}

// parsePrice takes the second text node of the price paragraph, the one
// after the label element. Without it the whole paragraph text is used.
func parsePrice(p *goquery.Selection) string {
	texts := p.Contents().FilterFunction(func(_ int, s *goquery.Selection) bool {
		return goquery.NodeName(s) == "#text"
	})
	if texts.Length() >= 2 {
		if price := collapseSpace(texts.Eq(1).Text()); price != "" {
			return price
		}
	}
	return collapseSpace(p.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
