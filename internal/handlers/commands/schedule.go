package commands

import (
	"context"
	"errors"

	dg "github.com/bwmarrin/discordgo"
	bd "github.com/glotchimo/chime/internal/builder"
	"github.com/glotchimo/chime/internal/handlers"
	rp "github.com/glotchimo/chime/internal/response"
	"github.com/glotchimo/chime/internal/utils"
	"github.com/graxinc/errutil"
)

type Schedule struct{}

func (s *Schedule) Metadata() dg.ApplicationCommand {
	return dg.ApplicationCommand{
		Name:        "schedule",
		Description: "Build a scheduled message interactively",
		Options: []*dg.ApplicationCommandOption{
			{
				Type:        dg.ApplicationCommandOptionString,
				Name:        "message",
				Description: "The message to post",
				Required:    true,
			},
		},
	}
}

func (s *Schedule) Handle(ctx context.Context, dep handlers.Dependencies) error {
	if err := dep.Responder.Defer(dep.Interaction, true); err != nil {
		return errutil.With(err)
	}

	i := dep.Interaction
	message := (*dep.Options)["message"].StringValue()

	if g, ok := dep.Store.Guild(i.GuildID); !ok || !g.Ready() {
		return dep.Responder.Fail(i, utils.Failure{
			Type:    utils.ErrBadInput,
			Message: "Set up scheduling first: run `/here` in the target channel and `/timezone`.",
		})
	}

	if err := dep.Responder.Send(i, rp.MessageOptions{Content: "Let's build it — check the prompts below.", Ephemeral: true}); err != nil {
		return errutil.With(err)
	}

	b := bd.New(dep.Conversation, dep.Store, dep.Logger)
	sched, state, err := b.Run(ctx, i.GuildID, i.ChannelID, i.Member.User.ID, message)
	if err != nil {
		if errors.Is(err, bd.ErrNotConfigured) {
			return dep.Responder.Fail(i, utils.Failure{
				Type:    utils.ErrBadInput,
				Message: "Set up scheduling first: run `/here` in the target channel and `/timezone`.",
			})
		}
		return errutil.With(err)
	}

	// A timed-out flow is dropped quietly; the user walked away.
	if state != bd.StateConfirmed {
		dep.Logger.Info("schedule builder abandoned", "guild", i.GuildID, "user", i.Member.User.ID)
		return nil
	}

	dep.Logger.Info("schedule created", "guild", i.GuildID, "time", sched.Time, "days", sched.Days, "repeat", sched.Repeat)
	return nil
}
