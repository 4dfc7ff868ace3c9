package bot

import (
	"context"
	"time"

	dg "github.com/bwmarrin/discordgo"
	"github.com/glotchimo/chime/internal/builder"
	"github.com/graxinc/errutil"
)

// The methods below implement builder.Conversation over the gateway
// session: plain channel messages, reaction toggles, and one-shot waits
// bounded by a timeout.

func (b *Bot) Send(channelID, content string) (string, error) {
	m, err := b.s.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", errutil.With(err)
	}
	return m.ID, nil
}

func (b *Bot) React(channelID, messageID, emoji string) error {
	return b.s.MessageReactionAdd(channelID, messageID, emoji)
}

func (b *Bot) ReactionUsers(channelID, messageID, emoji string) ([]string, error) {
	users, err := b.s.MessageReactions(channelID, messageID, emoji, 100, "", "")
	if err != nil {
		return nil, errutil.With(err)
	}

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids, nil
}

func (b *Bot) Delete(channelID, messageID string) error {
	return b.s.ChannelMessageDelete(channelID, messageID)
}

// AwaitReaction blocks until a reaction matching the predicate arrives,
// returning its emoji, or builder.ErrTimeout after the deadline. The
// temporary handler is detached on the way out.
func (b *Bot) AwaitReaction(ctx context.Context, timeout time.Duration, match func(channelID, messageID, userID, emoji string) bool) (string, error) {
	found := make(chan string, 1)
	remove := b.s.AddHandler(func(s *dg.Session, r *dg.MessageReactionAdd) {
		if match(r.ChannelID, r.MessageID, r.UserID, r.Emoji.Name) {
			select {
			case found <- r.Emoji.Name:
			default:
			}
		}
	})
	defer remove()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case emoji := <-found:
		return emoji, nil
	case <-timer.C:
		return "", builder.ErrTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// AwaitMessage blocks until a message matching the predicate arrives,
// returning its content, or builder.ErrTimeout after the deadline. The
// bot's own messages never match.
func (b *Bot) AwaitMessage(ctx context.Context, timeout time.Duration, match func(channelID, userID string) bool) (string, error) {
	found := make(chan string, 1)
	remove := b.s.AddHandler(func(s *dg.Session, m *dg.MessageCreate) {
		if m.Author == nil || m.Author.ID == s.State.User.ID {
			return
		}
		if match(m.ChannelID, m.Author.ID) {
			select {
			case found <- m.Content:
			default:
			}
		}
	})
	defer remove()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case content := <-found:
		return content, nil
	case <-timer.C:
		return "", builder.ErrTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
