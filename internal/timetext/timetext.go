// Package timetext turns loosely formatted human time input into canonical
// 24-hour HH:MM strings.
package timetext

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalidTime = errors.New("invalid time")

// token matches the first digit run shaped like H, HH, H:MM, or HH:MM,
// bounded by non-digits so longer runs ("330", "2024") never match.
var token = regexp.MustCompile(`(?:^|[^0-9])([0-9]{1,2})(?::([0-9]{2}))?(?:[^0-9]|$)`)

// Normalize parses raw time text into zero-padded 24-hour HH:MM. The
// presence of "am" or "pm" anywhere in the input selects a 12-hour
// reading; otherwise the digits are read as 24-hour. Anything malformed or
// out of range is ErrInvalidTime; nothing is guessed.
func Normalize(raw string) (string, error) {
	lower := strings.ToLower(raw)

	m := token.FindStringSubmatchIndex(lower)
	if m == nil {
		return "", ErrInvalidTime
	}

	hour, err := strconv.Atoi(lower[m[2]:m[3]])
	if err != nil {
		return "", ErrInvalidTime
	}

	minute := 0
	if m[4] >= 0 {
		minute, err = strconv.Atoi(lower[m[4]:m[5]])
		if err != nil {
			return "", ErrInvalidTime
		}
	} else if m[3] < len(lower) && lower[m[3]] == ':' {
		// An hour followed by a colon but no valid MM ("12:345", "7:5")
		// is malformed, not a bare hour.
		return "", ErrInvalidTime
	}

	if minute > 59 {
		return "", ErrInvalidTime
	}

	meridiem := ""
	switch {
	case strings.Contains(lower, "am"):
		meridiem = "am"
	case strings.Contains(lower, "pm"):
		meridiem = "pm"
	}

	if meridiem != "" {
		if hour < 1 || hour > 12 {
			return "", ErrInvalidTime
		}
		hour %= 12
		if meridiem == "pm" {
			hour += 12
		}
	} else if hour > 23 {
		return "", ErrInvalidTime
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}
