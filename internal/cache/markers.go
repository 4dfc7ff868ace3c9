package cache

import (
	"sync"
	"time"
)

// markerSet is the in-memory fire-marker fallback: presence with expiry,
// bounded by evicting the entry closest to expiring.
type markerSet struct {
	mu      sync.Mutex
	entries map[string]time.Time
	maxSize int
	done    chan struct{}
}

func newMarkerSet(maxSize int) *markerSet {
	m := &markerSet{
		entries: make(map[string]time.Time),
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go m.cleanup()
	return m
}

// mark records key and reports whether it was fresh.
func (m *markerSet) mark(key string, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, ok := m.entries[key]; ok && time.Now().Before(expiry) {
		return false
	}

	if len(m.entries) >= m.maxSize {
		m.evictOldest()
	}
	m.entries[key] = time.Now().Add(ttl)
	return true
}

func (m *markerSet) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, expiry := range m.entries {
		if oldestKey == "" || expiry.Before(oldest) {
			oldestKey = key
			oldest = expiry
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}

func (m *markerSet) stop() {
	close(m.done)
}

func (m *markerSet) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			now := time.Now()
			for key, expiry := range m.entries {
				if now.After(expiry) {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		}
	}
}
