package service

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var clockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

// ParseClock parses user input like "6:00" or "18:45".
func ParseClock(s string) (hour, minute int, err error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute, nil
}

// ToUTC converts the wall-clock time hour:minute on now's calendar day, in
// now's location, to a UTC time of day.
//
// The offset used is the one in effect on that day. A job armed with the
// result keeps that offset: after a DST change it fires one hour early or late
// (local time) until it is armed again.
func ToUTC(now time.Time, hour, minute int) (utcHour, utcMinute int, err error) {
	utcHour, utcMinute, _, err = ToUTCDay(now, hour, minute)
	return utcHour, utcMinute, err
}

// ToUTCDay is ToUTC that also reports on which UTC calendar day the time
// falls: -1 for the day before the local day, +1 for the day after, else 0.
func ToUTCDay(now time.Time, hour, minute int) (utcHour, utcMinute, dayShift int, err error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, 0, fmt.Errorf("%w: %d:%d", ErrInvalidTime, hour, minute)
	}
	y, m, d := now.Date()
	local := time.Date(y, m, d, hour, minute, 0, 0, now.Location())
	utc := local.UTC()

	uy, um, ud := utc.Date()
	dayShift = int(time.Date(uy, um, ud, 0, 0, 0, 0, time.UTC).Sub(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) / (24 * time.Hour))
	return utc.Hour(), utc.Minute(), dayShift, nil
}

// FormatClock renders hour:minute as HH:MM.
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
