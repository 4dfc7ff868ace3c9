package models

import (
	"strings"
	"time"
)

// Weekdays lists the canonical lowercase day names, Sunday first to line up
// with time.Weekday.
var Weekdays = []string{
	"sunday",
	"monday",
	"tuesday",
	"wednesday",
	"thursday",
	"friday",
	"saturday",
}

func DayName(w time.Weekday) string {
	return Weekdays[int(w)]
}

// ParseWeekday normalizes raw input to a canonical day name.
func ParseWeekday(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, d := range Weekdays {
		if s == d {
			return d, true
		}
	}
	return "", false
}
