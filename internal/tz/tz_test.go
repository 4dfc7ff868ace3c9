package tz

import (
	"testing"
	"time"
)

func TestMatchExact(t *testing.T) {
	t.Parallel()
	tests := []string{"UTC", "Europe/Moscow", "America/New_York", "europe/paris", "America/New York"}
	for _, q := range tests {
		q := q
		t.Run(q, func(t *testing.T) {
			t.Parallel()
			name, exact, ok := Match(q)
			if !ok || !exact {
				t.Fatalf("Match(%q) = %q exact=%v ok=%v; want exact match", q, name, exact, ok)
			}
			if _, err := time.LoadLocation(name); err != nil {
				t.Fatalf("Match(%q) returned unloadable zone %q: %v", q, name, err)
			}
		})
	}
}

func TestMatchFuzzy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		query string
		want  string
	}{
		{"new york", "America/New_York"},
		{"tokyo", "Asia/Tokyo"},
		{"berlin", "Europe/Berlin"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()
			name, exact, ok := Match(tt.query)
			if !ok {
				t.Fatalf("Match(%q) found nothing", tt.query)
			}
			if exact {
				t.Fatalf("Match(%q) claimed exact for partial input", tt.query)
			}
			if name != tt.want {
				t.Fatalf("Match(%q) = %q, want %q", tt.query, name, tt.want)
			}
		})
	}
}

func TestMatchNothing(t *testing.T) {
	t.Parallel()
	for _, q := range []string{"", "   ", "zzzzzz"} {
		if name, _, ok := Match(q); ok {
			t.Fatalf("Match(%q) = %q, want no match", q, name)
		}
	}
}
