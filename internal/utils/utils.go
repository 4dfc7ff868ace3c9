package utils

import (
	dg "github.com/bwmarrin/discordgo"
	"github.com/rs/xid"
)

// GenerateID produces correlation IDs for builder flows and engine ticks.
func GenerateID() string {
	return xid.New().String()
}

func MapOptions(i *dg.InteractionCreate) map[string]*dg.ApplicationCommandInteractionDataOption {
	os := i.ApplicationCommandData().Options
	om := make(map[string]*dg.ApplicationCommandInteractionDataOption, len(os))
	for _, opt := range os {
		om[opt.Name] = opt
	}
	return om
}
