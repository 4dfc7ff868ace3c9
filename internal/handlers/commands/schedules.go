package commands

import (
	"context"
	"fmt"
	"strings"

	dg "github.com/bwmarrin/discordgo"
	"github.com/glotchimo/chime/internal/handlers"
	rp "github.com/glotchimo/chime/internal/response"
	"github.com/glotchimo/chime/internal/utils"
	"github.com/graxinc/errutil"
)

type Schedules struct{}

func (s *Schedules) Metadata() dg.ApplicationCommand {
	return dg.ApplicationCommand{
		Name:        "schedules",
		Description: "List this guild's scheduled messages",
	}
}

func (s *Schedules) Handle(ctx context.Context, dep handlers.Dependencies) error {
	if err := dep.Responder.Defer(dep.Interaction, true); err != nil {
		return errutil.With(err)
	}

	i := dep.Interaction
	g, ok := dep.Store.Guild(i.GuildID)
	if !ok || len(g.Schedules) == 0 {
		return dep.Responder.Send(i, rp.MessageOptions{Content: "No schedules yet.", Ephemeral: true})
	}

	var b strings.Builder
	for n, sched := range g.Schedules {
		fmt.Fprintf(&b, "%d. %s\n", n+1, utils.FormatScheduleSummary(sched))
	}

	embed := dg.MessageEmbed{
		Title:       "Schedules",
		Description: b.String(),
	}
	return dep.Responder.Send(i, rp.MessageOptions{Embeds: []*dg.MessageEmbed{&embed}, Ephemeral: true})
}
