// Package tz resolves user-entered timezone names against the IANA zone
// list, with fuzzy matching for partial input like "new york".
package tz

import (
	"strings"
	"time"
)

// Match resolves a query to an IANA zone name. exact is true when the
// query named a zone outright (case and space insensitive); otherwise the
// best fuzzy candidate is returned for the caller to confirm. ok is false
// when nothing plausible matched.
func Match(query string) (name string, exact, ok bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", false, false
	}

	if _, err := time.LoadLocation(q); err == nil {
		return q, true, true
	}

	normalized := strings.ToLower(strings.ReplaceAll(q, " ", "_"))
	for _, z := range zones {
		if strings.ToLower(z) == normalized {
			return z, true, true
		}
	}

	// Fuzzy: substring match against full names and their last path
	// segment, preferring the shortest hit so "paris" lands on
	// Europe/Paris rather than some longer coincidence.
	best := ""
	for _, z := range zones {
		lz := strings.ToLower(z)
		segment := lz
		if i := strings.LastIndex(lz, "/"); i >= 0 {
			segment = lz[i+1:]
		}
		if !strings.Contains(lz, normalized) && !strings.Contains(segment, normalized) {
			continue
		}
		if best == "" || len(z) < len(best) {
			best = z
		}
	}
	if best == "" {
		return "", false, false
	}
	return best, false, true
}
