package utils

import (
	"fmt"
	"strings"

	"github.com/glotchimo/chime/internal/models"
)

func FormatUserMention(id string) string {
	return fmt.Sprintf("<@%s>", id)
}

// FormatDayList renders a weekday set for humans: "Mondays and Wednesdays",
// "every day" when empty.
func FormatDayList(days []string) string {
	if len(days) == 0 {
		return "every day"
	}

	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = titleCase(d) + "s"
	}

	switch len(parts) {
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
	}
}

// FormatScheduleSummary is the builder's confirmation line and the
// /schedules list entry.
func FormatScheduleSummary(s models.Schedule) string {
	var cadence string
	switch {
	case s.Repeat && len(s.Days) == 0:
		cadence = "daily"
	case s.Repeat:
		cadence = "weekly on " + FormatDayList(s.Days)
	case len(s.Days) == 0:
		cadence = "once"
	default:
		cadence = "once each on " + FormatDayList(s.Days)
	}

	return fmt.Sprintf("%q at %s, %s", s.Message, s.Time, cadence)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
