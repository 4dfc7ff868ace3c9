package utils

import (
	"testing"

	"github.com/glotchimo/chime/internal/models"
)

func TestFormatDayList(t *testing.T) {
	t.Parallel()
	tests := []struct {
		days []string
		want string
	}{
		{nil, "every day"},
		{[]string{"monday"}, "Mondays"},
		{[]string{"monday", "wednesday"}, "Mondays and Wednesdays"},
		{[]string{"monday", "wednesday", "friday"}, "Mondays, Wednesdays, and Fridays"},
	}
	for _, tt := range tests {
		if got := FormatDayList(tt.days); got != tt.want {
			t.Fatalf("FormatDayList(%v) = %q, want %q", tt.days, got, tt.want)
		}
	}
}

func TestFormatScheduleSummary(t *testing.T) {
	t.Parallel()
	tests := []struct {
		sched models.Schedule
		want  string
	}{
		{models.Schedule{Message: "hi", Time: "09:00", Repeat: true}, `"hi" at 09:00, daily`},
		{models.Schedule{Message: "hi", Time: "09:00"}, `"hi" at 09:00, once`},
		{models.Schedule{Message: "hi", Days: []string{"monday"}, Time: "21:30", Repeat: true}, `"hi" at 21:30, weekly on Mondays`},
		{models.Schedule{Message: "hi", Days: []string{"monday"}, Time: "21:30"}, `"hi" at 21:30, once each on Mondays`},
	}
	for _, tt := range tests {
		if got := FormatScheduleSummary(tt.sched); got != tt.want {
			t.Fatalf("FormatScheduleSummary(%+v) = %q, want %q", tt.sched, got, tt.want)
		}
	}
}
