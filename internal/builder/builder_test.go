package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/glotchimo/chime/internal/models"
	"github.com/glotchimo/chime/internal/store"
)

// fakeConversation scripts the chat boundary: reaction membership is fixed
// up front, awaits pop scripted outcomes in order.
type fakeConversation struct {
	sent      []string
	reacted   []string
	deleted   []string
	nextMsgID int

	// confirmReaction is the scripted outcome of AwaitReaction.
	confirmReaction error

	// messages are popped by AwaitMessage; ErrTimeout when exhausted.
	messages []string

	// toggles maps emoji to the user IDs shown as having reacted.
	toggles map[string][]string
}

func (f *fakeConversation) Send(channelID, content string) (string, error) {
	f.sent = append(f.sent, content)
	f.nextMsgID++
	return fmt.Sprintf("m%d", f.nextMsgID), nil
}

func (f *fakeConversation) React(channelID, messageID, emoji string) error {
	f.reacted = append(f.reacted, emoji)
	return nil
}

func (f *fakeConversation) ReactionUsers(channelID, messageID, emoji string) ([]string, error) {
	return f.toggles[emoji], nil
}

func (f *fakeConversation) Delete(channelID, messageID string) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeConversation) AwaitReaction(ctx context.Context, timeout time.Duration, match func(channelID, messageID, userID, emoji string) bool) (string, error) {
	if f.confirmReaction != nil {
		return "", f.confirmReaction
	}
	return ConfirmEmoji, nil
}

func (f *fakeConversation) AwaitMessage(ctx context.Context, timeout time.Duration, match func(channelID, userID string) bool) (string, error) {
	if len(f.messages) == 0 {
		return "", ErrTimeout
	}
	content := f.messages[0]
	f.messages = f.messages[1:]
	return content, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "data.json"), discardLogger())
	if err := st.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := st.SetChannel("g1", "42"); err != nil {
		t.Fatalf("SetChannel: %v", err)
	}
	if err := st.SetTimezone("g1", "UTC"); err != nil {
		t.Fatalf("SetTimezone: %v", err)
	}
	return st
}

func TestFullFlow(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	conv := &fakeConversation{
		messages: []string{"9:30pm"},
		toggles: map[string][]string{
			DayEmojis[1]: {"u1"},        // monday
			DayEmojis[3]: {"u1", "u2"},  // wednesday
			DayEmojis[5]: {"someone"},   // friday, toggled by another user
			RepeatEmoji:  {"u1"},
		},
	}

	sched, state, err := New(conv, st, discardLogger()).Run(context.Background(), "g1", "c1", "u1", "standup time")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state != StateConfirmed {
		t.Fatalf("state = %v, want confirmed", state)
	}

	want := models.Schedule{Message: "standup time", Days: []string{"monday", "wednesday"}, Time: "21:30", Repeat: true}
	if !sched.Equal(want) {
		t.Fatalf("schedule = %+v, want %+v", *sched, want)
	}

	g, _ := st.Guild("g1")
	if len(g.Schedules) != 1 || !g.Schedules[0].Equal(want) {
		t.Fatalf("persisted schedules = %+v", g.Schedules)
	}

	// All nine toggles were attached to the day prompt, which is cleaned
	// up once read.
	if len(conv.reacted) != len(DayEmojis)+2 {
		t.Fatalf("reacted with %d emoji, want %d", len(conv.reacted), len(DayEmojis)+2)
	}
	if len(conv.deleted) != 1 {
		t.Fatalf("day prompt not deleted: %+v", conv.deleted)
	}
}

func TestDaySelectionTimeoutIsImplicitConfirm(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	conv := &fakeConversation{
		confirmReaction: ErrTimeout,
		messages:        []string{"09:00"},
	}

	sched, state, err := New(conv, st, discardLogger()).Run(context.Background(), "g1", "c1", "u1", "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state != StateConfirmed {
		t.Fatalf("state = %v, want confirmed", state)
	}
	if len(sched.Days) != 0 || sched.Repeat {
		t.Fatalf("untouched toggles must yield daily non-repeating: %+v", *sched)
	}
	if sched.Time != "09:00" {
		t.Fatalf("time = %q, want 09:00", sched.Time)
	}
}

func TestTimeTimeoutAbandonsWithoutPersisting(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	conv := &fakeConversation{} // no messages scripted: the time wait times out

	sched, state, err := New(conv, st, discardLogger()).Run(context.Background(), "g1", "c1", "u1", "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state != StateAbandoned || sched != nil {
		t.Fatalf("state = %v sched = %v, want abandoned with nothing", state, sched)
	}

	g, _ := st.Guild("g1")
	if len(g.Schedules) != 0 {
		t.Fatalf("abandoned flow persisted a schedule: %+v", g.Schedules)
	}
}

func TestInvalidTimeReprompts(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	conv := &fakeConversation{messages: []string{"nonsense", "330", "3pm"}}

	sched, state, err := New(conv, st, discardLogger()).Run(context.Background(), "g1", "c1", "u1", "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state != StateConfirmed || sched.Time != "15:00" {
		t.Fatalf("state = %v time = %q, want confirmed 15:00", state, sched.Time)
	}

	reprompts := 0
	for _, s := range conv.sent {
		if s == "Couldn't read that as a time, try again." {
			reprompts++
		}
	}
	if reprompts != 2 {
		t.Fatalf("expected two re-prompts, got %d (sent: %v)", reprompts, conv.sent)
	}
}

func TestPreconditionRejectsUnconfiguredGuild(t *testing.T) {
	t.Parallel()
	st := store.New(filepath.Join(t.TempDir(), "data.json"), discardLogger())
	if err := st.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := st.SetChannel("g1", "42"); err != nil {
		t.Fatalf("SetChannel: %v", err)
	}

	conv := &fakeConversation{}
	_, state, err := New(conv, st, discardLogger()).Run(context.Background(), "g1", "c1", "u1", "hello")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
	if state != StateAbandoned {
		t.Fatalf("state = %v, want abandoned", state)
	}
	if len(conv.sent) != 0 {
		t.Fatalf("nothing should be sent before the precondition check: %v", conv.sent)
	}
}

func TestDaysOrderFollowsWeek(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	conv := &fakeConversation{
		messages: []string{"12:00"},
		toggles: map[string][]string{
			DayEmojis[6]: {"u1"}, // saturday
			DayEmojis[0]: {"u1"}, // sunday
		},
	}

	sched, _, err := New(conv, st, discardLogger()).Run(context.Background(), "g1", "c1", "u1", "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(sched.Days, []string{"sunday", "saturday"}) {
		t.Fatalf("days = %v, want week order", sched.Days)
	}
}
