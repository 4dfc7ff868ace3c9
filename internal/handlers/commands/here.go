package commands

import (
	"context"

	dg "github.com/bwmarrin/discordgo"
	"github.com/glotchimo/chime/internal/handlers"
	rp "github.com/glotchimo/chime/internal/response"
	"github.com/glotchimo/chime/internal/utils"
	"github.com/graxinc/errutil"
)

type Here struct{}

func (h *Here) Metadata() dg.ApplicationCommand {
	return dg.ApplicationCommand{
		Name:        "here",
		Description: "Post scheduled messages to this channel",
	}
}

func (h *Here) Handle(ctx context.Context, dep handlers.Dependencies) error {
	if err := dep.Responder.Defer(dep.Interaction, false); err != nil {
		return errutil.With(err)
	}

	i := dep.Interaction
	if err := dep.Store.SetChannel(i.GuildID, i.ChannelID); err != nil {
		return dep.Responder.Fail(i, utils.Failure{
			Type:    utils.ErrInternal,
			Message: "Failed to save the schedule channel",
			Data:    map[string]any{"error": err.Error()},
		})
	}

	dep.Logger.Info("schedule channel set", "guild", i.GuildID, "channel", i.ChannelID)

	return dep.Responder.Send(i, rp.MessageOptions{Content: "Scheduled messages will go here now."})
}
