// Package engine evaluates every guild's schedules once per minute against
// guild-local wall-clock time, delivers matches, and retires one-shot
// entries.
package engine

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/glotchimo/chime/internal/cache"
	"github.com/glotchimo/chime/internal/models"
	"github.com/glotchimo/chime/internal/store"
	"github.com/glotchimo/chime/internal/utils"
)

// markerTTL keeps dedup markers alive long enough to cover a restart
// landing back inside the same minute.
const markerTTL = 2 * time.Minute

// Deliverer posts a message to a channel. Delivery is fire-and-forget from
// the engine's perspective.
type Deliverer interface {
	Deliver(channelID, message string) error
}

type Engine struct {
	ctx context.Context
	st  *store.Store
	c   *cache.Cache
	d   Deliverer
	l   *slog.Logger
}

func New(ctx context.Context, st *store.Store, c *cache.Cache, d Deliverer, l *slog.Logger) *Engine {
	return &Engine{ctx: ctx, st: st, c: c, d: d, l: l}
}

// Tick runs one evaluation pass over every guild. The caller arms it on a
// minute-aligned timer so now always sits at second zero of a minute.
// Guilds are isolated from each other: one guild's bad timezone or failed
// delivery never stops the rest of the pass.
func (e *Engine) Tick(now time.Time) {
	tick := utils.GenerateID()

	for guildID, g := range e.st.Snapshot() {
		e.evaluate(tick, guildID, g, now)
	}
}

func (e *Engine) evaluate(tick, guildID string, g models.GuildConfig, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			e.l.Error("panic recovered during guild evaluation", "tick", tick, "guild", guildID, "recovered", r)
		}
	}()

	if !g.Ready() {
		return
	}

	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		e.l.Error("invalid guild timezone", "tick", tick, "guild", guildID, "timezone", g.Timezone, "error", err)
		return
	}

	local := now.In(loc)
	day := models.DayName(local.Weekday())

	for i, sched := range g.Schedules {
		if !sched.MatchesAt(local) {
			continue
		}

		if !e.c.MarkFired(e.ctx, fireKey(guildID, i, sched, local), markerTTL) {
			e.l.Debug("schedule already fired this minute", "tick", tick, "guild", guildID)
			continue
		}

		if err := e.d.Deliver(g.ChannelID, sched.Message); err != nil {
			e.l.Error("delivery failed", "tick", tick, "guild", guildID, "channel", g.ChannelID, "error", err)
		} else {
			e.l.Info("schedule fired", "tick", tick, "guild", guildID, "time", sched.Time, "repeat", sched.Repeat)
		}

		if !sched.Repeat {
			if err := e.st.CompleteFiring(guildID, sched, day); err != nil {
				e.l.Error("error retiring one-shot schedule", "tick", tick, "guild", guildID, "error", err)
			}
		}
	}
}

// fireKey identifies one (guild, schedule, local minute) firing. The
// schedule has no stable ID of its own, so it is hashed by value and keyed
// by list position too: identical entries must still fire independently.
func fireKey(guildID string, position int, sched models.Schedule, local time.Time) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%v|%t", sched.Message, sched.Time, sched.Days, sched.Repeat))
	return fmt.Sprintf("fired:%s:%d:%x:%s", guildID, position, h[:8], local.Format("2006-01-02T15:04"))
}
