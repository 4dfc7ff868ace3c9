package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	dg "github.com/bwmarrin/discordgo"
	bd "github.com/glotchimo/chime/internal/builder"
	"github.com/glotchimo/chime/internal/handlers"
	rp "github.com/glotchimo/chime/internal/response"
	"github.com/glotchimo/chime/internal/tz"
	"github.com/glotchimo/chime/internal/utils"
	"github.com/graxinc/errutil"
)

const confirmTimeout = 60 * time.Second

type Timezone struct{}

func (t *Timezone) Metadata() dg.ApplicationCommand {
	return dg.ApplicationCommand{
		Name:        "timezone",
		Description: "Set this guild's timezone for schedules",
		Options: []*dg.ApplicationCommandOption{
			{
				Type:        dg.ApplicationCommandOptionString,
				Name:        "name",
				Description: "IANA timezone name or a close guess (e.g. new york)",
				Required:    true,
			},
		},
	}
}

func (t *Timezone) Handle(ctx context.Context, dep handlers.Dependencies) error {
	if err := dep.Responder.Defer(dep.Interaction, false); err != nil {
		return errutil.With(err)
	}

	i := dep.Interaction
	raw := (*dep.Options)["name"].StringValue()

	name, exact, ok := tz.Match(raw)
	if !ok {
		return dep.Responder.Fail(i, utils.Failure{
			Type:    utils.ErrNotFound,
			Message: fmt.Sprintf("No timezone matches %q.", raw),
		})
	}

	// An inexact match needs the user to accept or reject it: one binary
	// choice with a timeout, no retry loop.
	if !exact {
		accepted, err := t.confirm(ctx, dep, name)
		if err != nil {
			return errutil.With(err)
		}
		if !accepted {
			return dep.Responder.Send(i, rp.MessageOptions{Content: "Timezone unchanged.", Ephemeral: true})
		}
	}

	if err := dep.Store.SetTimezone(i.GuildID, name); err != nil {
		return dep.Responder.Fail(i, utils.Failure{
			Type:    utils.ErrInternal,
			Message: "Failed to save the timezone",
			Data:    map[string]any{"error": err.Error()},
		})
	}

	dep.Logger.Info("guild timezone set", "guild", i.GuildID, "timezone", name)

	loc, err := time.LoadLocation(name)
	if err != nil {
		return errutil.With(err)
	}
	return dep.Responder.Send(i, rp.MessageOptions{
		Content: fmt.Sprintf("Timezone set to **%s** (local time %s).", name, time.Now().In(loc).Format("15:04")),
	})
}

func (t *Timezone) confirm(ctx context.Context, dep handlers.Dependencies, name string) (bool, error) {
	i := dep.Interaction
	conv := dep.Conversation

	msgID, err := conv.Send(i.ChannelID, fmt.Sprintf("Closest match is **%s** — %s to accept, %s to cancel.", name, bd.ConfirmEmoji, bd.RejectEmoji))
	if err != nil {
		return false, errutil.With(err)
	}
	defer func() {
		if err := conv.Delete(i.ChannelID, msgID); err != nil {
			dep.Logger.Warn("error deleting confirm prompt", "error", err)
		}
	}()

	for _, emoji := range []string{bd.ConfirmEmoji, bd.RejectEmoji} {
		if err := conv.React(i.ChannelID, msgID, emoji); err != nil {
			return false, errutil.With(err)
		}
	}

	userID := i.Member.User.ID
	emoji, err := conv.AwaitReaction(ctx, confirmTimeout, func(ch, mid, uid, em string) bool {
		return mid == msgID && uid == userID && (em == bd.ConfirmEmoji || em == bd.RejectEmoji)
	})
	if err != nil {
		if errors.Is(err, bd.ErrTimeout) {
			return false, nil
		}
		return false, err
	}

	return emoji == bd.ConfirmEmoji, nil
}
