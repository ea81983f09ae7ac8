package mensa

import "time"

// EffectiveDate moves weekend dates to the following Monday. shift is the
// number of days added: 2 for Saturday, 1 for Sunday, 0 otherwise.
func EffectiveDate(requested time.Time) (effective time.Time, shift int) {
	switch requested.Weekday() {
	case time.Saturday:
		shift = 2
	case time.Sunday:
		shift = 1
	}
	return requested.AddDate(0, 0, shift), shift
}
