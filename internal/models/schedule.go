package models

import (
	"slices"
	"time"
)

// Schedule is one posting rule. An empty Days set means every day. Time is
// always canonical zero-padded HH:MM in the guild's local timezone.
type Schedule struct {
	Message string   `json:"message"`
	Days    []string `json:"days"`
	Time    string   `json:"time"`
	Repeat  bool     `json:"repeat"`
}

func (s Schedule) HasDay(day string) bool {
	return slices.Contains(s.Days, day)
}

// MatchesAt reports whether the schedule should fire at the given
// guild-local time.
func (s Schedule) MatchesAt(local time.Time) bool {
	if len(s.Days) > 0 && !s.HasDay(DayName(local.Weekday())) {
		return false
	}
	return s.Time == local.Format("15:04")
}

// RemoveDay drops day from the weekday set and reports whether the schedule
// is now exhausted: a one-shot with no days left (or none to begin with)
// has nothing further to fire.
func (s *Schedule) RemoveDay(day string) (exhausted bool) {
	s.Days = slices.DeleteFunc(s.Days, func(d string) bool { return d == day })
	return len(s.Days) == 0
}

func (s Schedule) Equal(o Schedule) bool {
	return s.Message == o.Message &&
		s.Time == o.Time &&
		s.Repeat == o.Repeat &&
		slices.Equal(s.Days, o.Days)
}

func (s Schedule) Clone() Schedule {
	s.Days = slices.Clone(s.Days)
	return s
}
