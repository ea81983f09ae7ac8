package mensa

import (
	"strings"
	"time"
)

// View is everything Render needs for one message.
type View struct {
	// Date is the effective (weekday) date the plan is for.
	Date time.Time
	// Shift is the number of days EffectiveDate added.
	Shift int
	// FutureQuery is set when the user explicitly asked for a later day, in
	// which case a weekend shift is not annotated.
	FutureQuery bool
	// Menu is nil when no plan is available.
	Menu *Menu
}

const noPlanLine = "No plan has been published for this day yet.\n"

var markdownV2Escaper = strings.NewReplacer(
	".", `\.`,
	"!", `\!`,
	"+", `\+`,
	"-", `\-`,
	"<", `\<`,
	">", `\>`,
	"(", `\(`,
	")", `\)`,
	"=", `\=`,
)

// EscapeMarkdownV2 prefixes each reserved character with a backslash. It is
// not idempotent: apply it exactly once to the final message.
func EscapeMarkdownV2(s string) string {
	return markdownV2Escaper.Replace(s)
}

// Render builds the MarkdownV2 message for v, already escaped. Each category
// heading is written once, followed by its meals.
func Render(v View) string {
	var b strings.Builder

	b.WriteString("_")
	b.WriteString(v.Date.Weekday().String())
	b.WriteString(v.Date.Format(", " + DateLayout))
	if !v.FutureQuery {
		switch v.Shift {
		case 2:
			b.WriteString(" (day after tomorrow)")
		case 1:
			b.WriteString(" (tomorrow)")
		}
	}
	b.WriteString("_\n")

	if v.Menu == nil || len(v.Menu.Meals) == 0 {
		b.WriteString(noPlanLine)
	} else {
		for _, group := range v.Menu.Groups() {
			b.WriteString("\n*" + group.Category + ":*\n")
			for _, meal := range group.Meals {
				b.WriteString(" •__" + meal.Name + "__\n")
				for _, ingredient := range meal.Ingredients {
					b.WriteString("     + _" + ingredient + "_\n")
				}
				if meal.Price != "" {
					b.WriteString("   " + meal.Price + "\n")
				}
			}
		}
	}

	b.WriteString("\n/today  /tomorrow\n/overmorrow")
	return EscapeMarkdownV2(b.String())
}
