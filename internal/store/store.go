// Package store keeps every guild's scheduling configuration in memory and
// mirrors it to a single JSON document on disk. All reads and writes go
// through one lock; every mutation persists before returning so the file
// always holds a complete snapshot.
package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/glotchimo/chime/internal/models"
	"github.com/graxinc/errutil"
)

var (
	ErrGuildNotReady  = errors.New("guild channel and timezone must be set first")
	ErrNoSuchSchedule = errors.New("no schedule at that position")
)

type Store struct {
	mu     sync.Mutex
	path   string
	l      *slog.Logger
	guilds map[string]models.GuildConfig

	// dirty marks guilds whose latest mutation failed to reach disk, so a
	// reload never reverts them and the next write retries the save.
	dirty map[string]bool
}

func New(path string, l *slog.Logger) *Store {
	return &Store{
		path:   path,
		l:      l,
		guilds: make(map[string]models.GuildConfig),
		dirty:  make(map[string]bool),
	}
}

// Load reads the data file into memory. A missing file initializes an
// empty store and persists it.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	guilds, err := s.read()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return errutil.With(err)
		}

		s.guilds = make(map[string]models.GuildConfig)
		if err := s.save(); err != nil {
			return errutil.With(err)
		}

		s.l.Info("initialized empty schedule store", "path", s.path)
		return nil
	}

	s.guilds = guilds
	s.l.Info("schedule store loaded", "path", s.path, "guilds", len(guilds))
	return nil
}

// Reload folds external edits to the data file back into memory. Guilds
// with unpersisted in-memory mutations are kept as-is and their save is
// retried; everything else is replaced by the on-disk copy.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.read()
	if err != nil {
		return errutil.With(err)
	}

	for id := range s.guilds {
		if !s.dirty[id] {
			delete(s.guilds, id)
		}
	}
	for id, g := range loaded {
		if !s.dirty[id] {
			s.guilds[id] = g
		}
	}

	if len(s.dirty) > 0 {
		if err := s.save(); err != nil {
			return errutil.With(err)
		}
		s.l.Info("flushed unpersisted guilds during reload")
	}

	return nil
}

// Guild returns a deep copy of one guild's configuration.
func (s *Store) Guild(id string) (models.GuildConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guilds[id]
	return g.Clone(), ok
}

// Snapshot returns a deep copy of the whole store for iteration outside
// the lock.
func (s *Store) Snapshot() map[string]models.GuildConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]models.GuildConfig, len(s.guilds))
	for id, g := range s.guilds {
		out[id] = g.Clone()
	}
	return out
}

// Stats counts guilds and schedules for the presence status loop.
func (s *Store) Stats() (guilds, schedules int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.guilds {
		guilds++
		schedules += len(g.Schedules)
	}
	return guilds, schedules
}

func (s *Store) SetChannel(guildID, channelID string) error {
	return s.mutate(guildID, func(g *models.GuildConfig) error {
		g.ChannelID = channelID
		return nil
	})
}

func (s *Store) SetTimezone(guildID, timezone string) error {
	return s.mutate(guildID, func(g *models.GuildConfig) error {
		g.Timezone = timezone
		return nil
	})
}

// AppendSchedule adds a fully validated schedule to the end of the guild's
// list. The guild must be ready; the builder blocks creation before then.
func (s *Store) AppendSchedule(guildID string, sched models.Schedule) error {
	return s.mutate(guildID, func(g *models.GuildConfig) error {
		if !g.Ready() {
			return ErrGuildNotReady
		}
		g.Schedules = append(g.Schedules, sched.Clone())
		return nil
	})
}

// DeleteSchedule removes the schedule at a zero-based position in the
// guild's display order, returning the removed entry. The lookup and the
// removal happen under one lock acquisition so the caller always gets the
// entry that was actually deleted.
func (s *Store) DeleteSchedule(guildID string, index int) (models.Schedule, error) {
	var removed models.Schedule
	err := s.mutate(guildID, func(g *models.GuildConfig) error {
		if index < 0 || index >= len(g.Schedules) {
			return ErrNoSuchSchedule
		}
		removed = g.Schedules[index].Clone()
		g.Schedules = append(g.Schedules[:index], g.Schedules[index+1:]...)
		return nil
	})
	return removed, err
}

// CompleteFiring records that a one-shot schedule fired on the given day:
// the day leaves its weekday set, and an exhausted schedule (no days left,
// or daily-once) is deleted outright. The schedule is located by value so
// concurrent list edits cannot misdirect the removal.
func (s *Store) CompleteFiring(guildID string, fired models.Schedule, day string) error {
	return s.mutate(guildID, func(g *models.GuildConfig) error {
		for i := range g.Schedules {
			if !g.Schedules[i].Equal(fired) {
				continue
			}
			if g.Schedules[i].RemoveDay(day) {
				g.Schedules = append(g.Schedules[:i], g.Schedules[i+1:]...)
			}
			return nil
		}
		return nil
	})
}

// mutate applies fn to the guild (creating it if absent) and writes
// through to disk before returning. A failed save leaves the guild dirty.
func (s *Store) mutate(guildID string, fn func(*models.GuildConfig) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.guilds[guildID]
	if err := fn(&g); err != nil {
		return err
	}
	s.guilds[guildID] = g
	s.dirty[guildID] = true

	if err := s.save(); err != nil {
		return errutil.With(err)
	}
	return nil
}

func (s *Store) read() (map[string]models.GuildConfig, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	guilds := make(map[string]models.GuildConfig)
	if err := json.Unmarshal(b, &guilds); err != nil {
		return nil, err
	}
	return guilds, nil
}

// save persists the full snapshot atomically: temp file in the same
// directory, then rename, so a crash can never leave a torn file. Caller
// must hold the lock.
func (s *Store) save() error {
	b, err := json.MarshalIndent(s.guilds, "", "  ")
	if err != nil {
		return errutil.With(err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errutil.With(err)
	}

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errutil.With(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errutil.With(err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return errutil.With(err)
	}

	clear(s.dirty)
	return nil
}
