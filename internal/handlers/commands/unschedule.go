package commands

import (
	"context"
	"errors"
	"fmt"

	dg "github.com/bwmarrin/discordgo"
	"github.com/glotchimo/chime/internal/handlers"
	rp "github.com/glotchimo/chime/internal/response"
	st "github.com/glotchimo/chime/internal/store"
	"github.com/glotchimo/chime/internal/utils"
	"github.com/graxinc/errutil"
)

type Unschedule struct{}

func (u *Unschedule) Metadata() dg.ApplicationCommand {
	minPosition := float64(1)
	return dg.ApplicationCommand{
		Name:        "unschedule",
		Description: "Delete a scheduled message by its /schedules position",
		Options: []*dg.ApplicationCommandOption{
			{
				Type:        dg.ApplicationCommandOptionInteger,
				Name:        "position",
				Description: "Position in the /schedules list",
				Required:    true,
				MinValue:    &minPosition,
			},
		},
	}
}

func (u *Unschedule) Handle(ctx context.Context, dep handlers.Dependencies) error {
	if err := dep.Responder.Defer(dep.Interaction, true); err != nil {
		return errutil.With(err)
	}

	i := dep.Interaction
	position := int((*dep.Options)["position"].IntValue())

	removed, err := dep.Store.DeleteSchedule(i.GuildID, position-1)
	if err != nil {
		if errors.Is(err, st.ErrNoSuchSchedule) {
			return dep.Responder.Fail(i, utils.Failure{
				Type:    utils.ErrNotFound,
				Message: fmt.Sprintf("No schedule at position %d.", position),
			})
		}
		return dep.Responder.Fail(i, utils.Failure{
			Type:    utils.ErrInternal,
			Message: "Failed to delete the schedule",
			Data:    map[string]any{"error": err.Error()},
		})
	}

	dep.Logger.Info("schedule deleted", "guild", i.GuildID, "position", position)
	return dep.Responder.Send(i, rp.MessageOptions{
		Content:   "Deleted: " + utils.FormatScheduleSummary(removed),
		Ephemeral: true,
	})
}
