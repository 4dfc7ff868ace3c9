package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glotchimo/chime/internal/cache"
	"github.com/glotchimo/chime/internal/models"
	"github.com/glotchimo/chime/internal/store"
)

type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []delivery
	fail      bool
}

type delivery struct {
	channelID string
	message   string
}

func (d *fakeDeliverer) Deliver(channelID, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("gateway down")
	}
	d.delivered = append(d.delivered, delivery{channelID, message})
	return nil
}

func (d *fakeDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.delivered)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine(t *testing.T) (*Engine, *store.Store, *fakeDeliverer) {
	t.Helper()

	st := store.New(filepath.Join(t.TempDir(), "data.json"), discardLogger())
	if err := st.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	c, err := cache.New("", discardLogger())
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	d := &fakeDeliverer{}
	return New(context.Background(), st, c, d, discardLogger()), st, d
}

func setupGuild(t *testing.T, st *store.Store, id, channel, timezone string) {
	t.Helper()
	if err := st.SetChannel(id, channel); err != nil {
		t.Fatalf("SetChannel: %v", err)
	}
	if err := st.SetTimezone(id, timezone); err != nil {
		t.Fatalf("SetTimezone: %v", err)
	}
}

// 2024-01-01 is a Monday.
func utcTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func TestDailyOneShotFiresOnceThenGone(t *testing.T) {
	t.Parallel()
	e, st, d := newTestEngine(t)
	setupGuild(t, st, "g1", "42", "UTC")
	if err := st.AppendSchedule("g1", models.Schedule{Message: "hi", Time: "09:00"}); err != nil {
		t.Fatalf("AppendSchedule: %v", err)
	}

	e.Tick(utcTime(t, "2024-01-01T09:00:00Z"))

	if d.count() != 1 || d.delivered[0] != (delivery{"42", "hi"}) {
		t.Fatalf("unexpected deliveries: %+v", d.delivered)
	}
	g, _ := st.Guild("g1")
	if len(g.Schedules) != 0 {
		t.Fatalf("daily one-shot should be removed, got %+v", g.Schedules)
	}

	// The next day, nothing remains to fire.
	e.Tick(utcTime(t, "2024-01-02T09:00:00Z"))
	if d.count() != 1 {
		t.Fatalf("schedule fired again after deletion: %+v", d.delivered)
	}
}

func TestWeekdayOneShotExhaustsPerDay(t *testing.T) {
	t.Parallel()
	e, st, d := newTestEngine(t)
	setupGuild(t, st, "g1", "42", "UTC")
	sched := models.Schedule{Message: "standup", Days: []string{"monday", "wednesday"}, Time: "09:00"}
	if err := st.AppendSchedule("g1", sched); err != nil {
		t.Fatalf("AppendSchedule: %v", err)
	}

	// Tuesday: day mismatch, nothing happens.
	e.Tick(utcTime(t, "2024-01-02T09:00:00Z"))
	if d.count() != 0 {
		t.Fatalf("fired on a non-matching day: %+v", d.delivered)
	}

	// Monday fires and strips monday, keeping wednesday.
	e.Tick(utcTime(t, "2024-01-01T09:00:00Z"))
	if d.count() != 1 {
		t.Fatalf("expected one delivery, got %+v", d.delivered)
	}
	g, _ := st.Guild("g1")
	if len(g.Schedules) != 1 || g.Schedules[0].HasDay("monday") || !g.Schedules[0].HasDay("wednesday") {
		t.Fatalf("unexpected schedule state after monday: %+v", g.Schedules)
	}

	// Wednesday fires and exhausts the schedule.
	e.Tick(utcTime(t, "2024-01-03T09:00:00Z"))
	if d.count() != 2 {
		t.Fatalf("expected two deliveries, got %+v", d.delivered)
	}
	g, _ = st.Guild("g1")
	if len(g.Schedules) != 0 {
		t.Fatalf("schedule should be deleted after both days fired: %+v", g.Schedules)
	}
}

func TestRepeatingScheduleSurvivesFiring(t *testing.T) {
	t.Parallel()
	e, st, d := newTestEngine(t)
	setupGuild(t, st, "g1", "42", "UTC")
	if err := st.AppendSchedule("g1", models.Schedule{Message: "hi", Days: []string{"monday"}, Time: "09:00", Repeat: true}); err != nil {
		t.Fatalf("AppendSchedule: %v", err)
	}

	e.Tick(utcTime(t, "2024-01-01T09:00:00Z"))
	e.Tick(utcTime(t, "2024-01-08T09:00:00Z"))

	if d.count() != 2 {
		t.Fatalf("expected two deliveries across two mondays, got %+v", d.delivered)
	}
	g, _ := st.Guild("g1")
	if len(g.Schedules) != 1 {
		t.Fatalf("repeating schedule must survive firing: %+v", g.Schedules)
	}
}

func TestTimeMismatchDoesNotFire(t *testing.T) {
	t.Parallel()
	e, st, d := newTestEngine(t)
	setupGuild(t, st, "g1", "42", "UTC")
	if err := st.AppendSchedule("g1", models.Schedule{Message: "hi", Time: "09:00", Repeat: true}); err != nil {
		t.Fatalf("AppendSchedule: %v", err)
	}

	e.Tick(utcTime(t, "2024-01-01T09:01:00Z"))
	e.Tick(utcTime(t, "2024-01-01T08:59:00Z"))

	if d.count() != 0 {
		t.Fatalf("fired off-minute: %+v", d.delivered)
	}
}

func TestGuildLocalTime(t *testing.T) {
	t.Parallel()
	e, st, d := newTestEngine(t)
	setupGuild(t, st, "g1", "42", "Asia/Tokyo")
	if err := st.AppendSchedule("g1", models.Schedule{Message: "gm", Time: "09:00", Repeat: true}); err != nil {
		t.Fatalf("AppendSchedule: %v", err)
	}

	// 00:00 UTC is 09:00 in Tokyo.
	e.Tick(utcTime(t, "2024-01-01T00:00:00Z"))
	if d.count() != 1 {
		t.Fatalf("expected fire at guild-local 09:00, got %+v", d.delivered)
	}
	e.Tick(utcTime(t, "2024-01-01T09:00:00Z"))
	if d.count() != 1 {
		t.Fatalf("fired at UTC hour instead of guild-local: %+v", d.delivered)
	}
}

func TestBadTimezoneIsolatedPerGuild(t *testing.T) {
	t.Parallel()
	e, st, d := newTestEngine(t)

	// Corrupt timezone, as an external file edit could produce.
	setupGuild(t, st, "bad", "41", "Not/AZone")
	setupGuild(t, st, "good", "42", "UTC")
	for _, id := range []string{"bad", "good"} {
		if err := st.AppendSchedule(id, models.Schedule{Message: "hi", Time: "09:00", Repeat: true}); err != nil {
			t.Fatalf("AppendSchedule: %v", err)
		}
	}

	e.Tick(utcTime(t, "2024-01-01T09:00:00Z"))

	if d.count() != 1 || d.delivered[0].channelID != "42" {
		t.Fatalf("healthy guild should still fire: %+v", d.delivered)
	}
}

func TestDeliveryFailureStillRetiresOneShot(t *testing.T) {
	t.Parallel()
	e, st, d := newTestEngine(t)
	d.fail = true
	setupGuild(t, st, "g1", "42", "UTC")
	if err := st.AppendSchedule("g1", models.Schedule{Message: "hi", Time: "09:00"}); err != nil {
		t.Fatalf("AppendSchedule: %v", err)
	}

	e.Tick(utcTime(t, "2024-01-01T09:00:00Z"))

	g, _ := st.Guild("g1")
	if len(g.Schedules) != 0 {
		t.Fatalf("one-shot should retire even when delivery fails: %+v", g.Schedules)
	}
}

func TestSameMinuteTickDeduplicated(t *testing.T) {
	t.Parallel()
	e, st, d := newTestEngine(t)
	setupGuild(t, st, "g1", "42", "UTC")
	if err := st.AppendSchedule("g1", models.Schedule{Message: "hi", Time: "09:00", Repeat: true}); err != nil {
		t.Fatalf("AppendSchedule: %v", err)
	}

	now := utcTime(t, "2024-01-01T09:00:00Z")
	e.Tick(now)
	e.Tick(now.Add(10 * time.Second))

	if d.count() != 1 {
		t.Fatalf("same minute fired twice: %+v", d.delivered)
	}
}

func TestIdenticalSchedulesFireIndependently(t *testing.T) {
	t.Parallel()
	e, st, d := newTestEngine(t)
	setupGuild(t, st, "g1", "42", "UTC")
	for i := 0; i < 2; i++ {
		if err := st.AppendSchedule("g1", models.Schedule{Message: "hi", Time: "09:00", Repeat: true}); err != nil {
			t.Fatalf("AppendSchedule: %v", err)
		}
	}

	e.Tick(utcTime(t, "2024-01-01T09:00:00Z"))

	if d.count() != 2 {
		t.Fatalf("expected both identical schedules to deliver, got %+v", d.delivered)
	}
}

func TestIdenticalOneShotsBothRetire(t *testing.T) {
	t.Parallel()
	e, st, d := newTestEngine(t)
	setupGuild(t, st, "g1", "42", "UTC")
	for i := 0; i < 2; i++ {
		if err := st.AppendSchedule("g1", models.Schedule{Message: "hi", Time: "09:00"}); err != nil {
			t.Fatalf("AppendSchedule: %v", err)
		}
	}

	e.Tick(utcTime(t, "2024-01-01T09:00:00Z"))

	if d.count() != 2 {
		t.Fatalf("expected both identical one-shots to deliver, got %+v", d.delivered)
	}
	g, _ := st.Guild("g1")
	if len(g.Schedules) != 0 {
		t.Fatalf("both one-shots should be gone, got %+v", g.Schedules)
	}
}

func TestMultipleSchedulesSameMinuteAllFire(t *testing.T) {
	t.Parallel()
	e, st, d := newTestEngine(t)
	setupGuild(t, st, "g1", "42", "UTC")
	for _, msg := range []string{"first", "second"} {
		if err := st.AppendSchedule("g1", models.Schedule{Message: msg, Time: "09:00", Repeat: true}); err != nil {
			t.Fatalf("AppendSchedule: %v", err)
		}
	}

	e.Tick(utcTime(t, "2024-01-01T09:00:00Z"))

	if d.count() != 2 {
		t.Fatalf("expected both schedules to fire independently, got %+v", d.delivered)
	}
	if d.delivered[0].message != "first" || d.delivered[1].message != "second" {
		t.Fatalf("schedules must fire in stored order: %+v", d.delivered)
	}
}
