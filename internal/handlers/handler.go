package handlers

import (
	"context"
	"log/slog"

	dg "github.com/bwmarrin/discordgo"
	bd "github.com/glotchimo/chime/internal/builder"
	ch "github.com/glotchimo/chime/internal/cache"
	rp "github.com/glotchimo/chime/internal/response"
	st "github.com/glotchimo/chime/internal/store"
)

type Dependencies struct {
	Session      *dg.Session
	Store        *st.Store
	Cache        *ch.Cache
	Responder    *rp.Responder
	Conversation bd.Conversation
	Logger       *slog.Logger
	Interaction  *dg.InteractionCreate
	Options      *map[string]*dg.ApplicationCommandInteractionDataOption
}

type Handler interface {
	Metadata() dg.ApplicationCommand
	Handle(context.Context, Dependencies) error
}
