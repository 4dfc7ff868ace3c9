// Package builder runs the interactive schedule creation flow: one message
// with weekday/repeat/confirm reaction toggles, one free-text time prompt,
// and a summary. It is an explicit state machine; every wait is bounded by
// a timeout and an abandoned flow persists nothing.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/glotchimo/chime/internal/models"
	"github.com/glotchimo/chime/internal/store"
	"github.com/glotchimo/chime/internal/timetext"
	"github.com/glotchimo/chime/internal/utils"
	"github.com/graxinc/errutil"
)

type State int

const (
	StateAwaitingDaySelection State = iota
	StateAwaitingTime
	StateConfirmed
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateAwaitingDaySelection:
		return "awaiting_day_selection"
	case StateAwaitingTime:
		return "awaiting_time"
	case StateConfirmed:
		return "confirmed"
	case StateAbandoned:
		return "abandoned"
	}
	return "unknown"
}

var (
	// ErrTimeout is what Conversation waits return when nothing matched
	// within the deadline.
	ErrTimeout = errors.New("wait timed out")

	ErrNotConfigured = errors.New("guild channel and timezone are not set up")
)

// Conversation is the chat-platform boundary the builder drives: send,
// toggle, re-read toggle membership, and bounded waits for the next
// matching reaction or message.
type Conversation interface {
	Send(channelID, content string) (messageID string, err error)
	React(channelID, messageID, emoji string) error
	ReactionUsers(channelID, messageID, emoji string) ([]string, error)
	Delete(channelID, messageID string) error
	AwaitReaction(ctx context.Context, timeout time.Duration, match func(channelID, messageID, userID, emoji string) bool) (emoji string, err error)
	AwaitMessage(ctx context.Context, timeout time.Duration, match func(channelID, userID string) bool) (content string, err error)
}

const (
	RepeatEmoji  = "🔁"
	ConfirmEmoji = "✅"
	RejectEmoji  = "❌"
)

// DayEmojis are the weekday toggles, Sunday first to line up with
// models.Weekdays.
var DayEmojis = []string{
	"1️⃣",
	"2️⃣",
	"3️⃣",
	"4️⃣",
	"5️⃣",
	"6️⃣",
	"7️⃣",
}

type Builder struct {
	conv Conversation
	st   *store.Store
	l    *slog.Logger

	// waitTimeout bounds each suspension point; tests shrink it.
	waitTimeout time.Duration
}

func New(conv Conversation, st *store.Store, l *slog.Logger) *Builder {
	return &Builder{conv: conv, st: st, l: l, waitTimeout: 60 * time.Second}
}

// Run walks one user through building a schedule for message in the guild,
// conversing in channelID. It returns the persisted schedule and the
// terminal state. Nothing is persisted unless the state is StateConfirmed.
func (b *Builder) Run(ctx context.Context, guildID, channelID, userID, message string) (*models.Schedule, State, error) {
	if message == "" {
		return nil, StateAbandoned, utils.Failure{Type: utils.ErrBadInput, Message: "Schedule message cannot be empty"}
	}

	g, ok := b.st.Guild(guildID)
	if !ok || !g.Ready() {
		return nil, StateAbandoned, ErrNotConfigured
	}

	flow := utils.GenerateID()
	l := b.l.With("flow", flow, "guild", guildID, "user", userID)

	l.Debug("builder state", "state", StateAwaitingDaySelection)
	days, repeat, promptID, err := b.collectDays(ctx, channelID, userID)
	if err != nil {
		return nil, StateAbandoned, err
	}
	l.Info("day selection confirmed", "days", days, "repeat", repeat)

	// The toggle message has served its purpose.
	if err := b.conv.Delete(channelID, promptID); err != nil {
		l.Warn("error deleting day prompt", "error", err)
	}

	l.Debug("builder state", "state", StateAwaitingTime)
	hhmm, err := b.collectTime(ctx, channelID, userID)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			l.Info("time prompt timed out, abandoning")
			return nil, StateAbandoned, nil
		}
		return nil, StateAbandoned, err
	}
	l.Info("time accepted", "time", hhmm)

	sched := models.Schedule{Message: message, Days: days, Time: hhmm, Repeat: repeat}
	if err := b.st.AppendSchedule(guildID, sched); err != nil {
		return nil, StateAbandoned, errutil.With(err)
	}

	if _, err := b.conv.Send(channelID, "Scheduled: "+utils.FormatScheduleSummary(sched)); err != nil {
		l.Warn("error sending summary", "error", err)
	}

	return &sched, StateConfirmed, nil
}

// collectDays posts the toggle message and waits for the user's confirm
// reaction. A timeout counts as confirmation of whatever is toggled; the
// toggle membership is re-read afterwards either way, since it may have
// changed between posting and resuming.
func (b *Builder) collectDays(ctx context.Context, channelID, userID string) (days []string, repeat bool, messageID string, err error) {
	prompt := fmt.Sprintf(
		"Pick days (1️⃣ Sunday … 7️⃣ Saturday, none for every day), %s to repeat, then %s to confirm.",
		RepeatEmoji, ConfirmEmoji,
	)
	messageID, err = b.conv.Send(channelID, prompt)
	if err != nil {
		return nil, false, "", errutil.With(err)
	}

	for _, emoji := range append(slices.Clone(DayEmojis), RepeatEmoji, ConfirmEmoji) {
		if err := b.conv.React(channelID, messageID, emoji); err != nil {
			return nil, false, messageID, errutil.With(err)
		}
	}

	_, err = b.conv.AwaitReaction(ctx, b.waitTimeout, func(ch, mid, uid, emoji string) bool {
		return mid == messageID && uid == userID && emoji == ConfirmEmoji
	})
	if err != nil && !errors.Is(err, ErrTimeout) {
		return nil, false, messageID, err
	}

	days = []string{}
	for i, emoji := range DayEmojis {
		on, err := b.toggledBy(channelID, messageID, emoji, userID)
		if err != nil {
			return nil, false, messageID, err
		}
		if on {
			days = append(days, models.Weekdays[i])
		}
	}

	repeat, err = b.toggledBy(channelID, messageID, RepeatEmoji, userID)
	if err != nil {
		return nil, false, messageID, err
	}

	return days, repeat, messageID, nil
}

// collectTime prompts for free text and loops on unparseable input. Only a
// timeout ends the loop without a valid time.
func (b *Builder) collectTime(ctx context.Context, channelID, userID string) (string, error) {
	if _, err := b.conv.Send(channelID, "What time? Try something like `9:30pm` or `21:30`."); err != nil {
		return "", errutil.With(err)
	}

	for {
		content, err := b.conv.AwaitMessage(ctx, b.waitTimeout, func(ch, uid string) bool {
			return ch == channelID && uid == userID
		})
		if err != nil {
			return "", err
		}

		hhmm, err := timetext.Normalize(content)
		if err != nil {
			if _, err := b.conv.Send(channelID, "Couldn't read that as a time, try again."); err != nil {
				return "", errutil.With(err)
			}
			continue
		}
		return hhmm, nil
	}
}

func (b *Builder) toggledBy(channelID, messageID, emoji, userID string) (bool, error) {
	users, err := b.conv.ReactionUsers(channelID, messageID, emoji)
	if err != nil {
		return false, errutil.With(err)
	}
	return slices.Contains(users, userID), nil
}
