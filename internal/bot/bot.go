package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	dg "github.com/bwmarrin/discordgo"
	"github.com/glotchimo/chime/internal/cache"
	"github.com/glotchimo/chime/internal/engine"
	"github.com/glotchimo/chime/internal/handlers"
	"github.com/glotchimo/chime/internal/handlers/commands"
	"github.com/glotchimo/chime/internal/response"
	"github.com/glotchimo/chime/internal/store"
	"github.com/glotchimo/chime/internal/utils"
	"github.com/graxinc/errutil"
	"github.com/robfig/cron/v3"
)

var lookup map[string]handlers.Handler = map[string]handlers.Handler{
	"ping":       &commands.Ping{},
	"here":       &commands.Here{},
	"timezone":   &commands.Timezone{},
	"schedule":   &commands.Schedule{},
	"schedules":  &commands.Schedules{},
	"unschedule": &commands.Unschedule{},
}

type EventType int

const (
	EventTypeInteraction EventType = iota
)

type GuildEvent struct {
	Type EventType

	Interaction *dg.InteractionCreate
}

type GuildContext struct {
	Context context.Context
	Cancel  context.CancelFunc
	Events  chan GuildEvent
}

type Bot struct {
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc

	s  *dg.Session
	st *store.Store
	c  *cache.Cache
	l  *slog.Logger
	r  *response.Responder
	e  *engine.Engine

	cron     *cron.Cron
	contexts map[string]*GuildContext
}

func NewBot(debug bool, dataFile, cacheURL, token string, shardID, shardCount, intents int) (*Bot, error) {
	b := Bot{
		contexts: make(map[string]*GuildContext),
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.ctx = ctx
	b.cancel = cancel

	if debug {
		b.l = slog.Default()
	} else {
		b.l = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}

	b.st = store.New(dataFile, b.l)
	if err := b.st.Load(); err != nil {
		return nil, errutil.With(err)
	}

	c, err := cache.New(cacheURL, b.l)
	if err != nil {
		return nil, errutil.With(err)
	}
	b.c = c

	session, err := dg.New("Bot " + token)
	if err != nil {
		return nil, errutil.With(err)
	}
	b.s = session

	b.s.Identify.Intents = dg.Intent(intents)

	b.s.ShardID = shardID
	b.s.ShardCount = shardCount
	b.l.Info("sharding enabled", "shard_id", shardID, "shard_count", shardCount)

	b.r = response.NewSessionResponder(b.s, b.l)
	b.e = engine.New(b.ctx, b.st, b.c, &b, b.l)

	b.s.AddHandler(func(s *dg.Session, r *dg.Ready) {
		b.l.Info("bot connected to gateway",
			"bot", fmt.Sprintf("%s#%s", r.User.Username, r.User.Discriminator),
			"guilds", len(s.State.Guilds),
			"shard_id", shardID,
			"shard_count", shardCount,
		)
	})

	if err := b.s.Open(); err != nil {
		return nil, errutil.With(err)
	}

	b.s.AddHandler(func(s *dg.Session, g *dg.GuildCreate) { b.register(g.Guild) })
	b.s.AddHandler(func(s *dg.Session, g *dg.GuildDelete) { b.remove(g.Guild) })

	b.s.AddHandler(func(s *dg.Session, i *dg.InteractionCreate) {
		b.enqueue(i.GuildID, GuildEvent{Type: EventTypeInteraction, Interaction: i})
	})

	// The evaluation tick is minute-aligned so there is no drift and no
	// need to window-check seconds; the store reload runs on its own
	// fixed interval to pick up external edits to the data file.
	b.cron = cron.New()
	if _, err := b.cron.AddFunc("* * * * *", func() { b.e.Tick(time.Now()) }); err != nil {
		return nil, errutil.With(err)
	}
	if _, err := b.cron.AddFunc("@every 60s", func() {
		if err := b.st.Reload(); err != nil {
			b.l.Error("error reloading schedule store", "error", err)
		}
	}); err != nil {
		return nil, errutil.With(err)
	}
	b.cron.Start()

	go b.status()

	return &b, nil
}

func (b *Bot) Close() {
	defer b.s.Close()
	defer b.c.Close()

	b.cron.Stop()
	b.cancel()
}

// Deliver implements engine.Deliverer over the gateway session.
func (b *Bot) Deliver(channelID, message string) error {
	_, err := b.s.ChannelMessageSend(channelID, message)
	return err
}

func (b *Bot) status() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	s := 0
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			guilds, schedules := b.st.Stats()

			var msg string
			switch s {
			case 0:
				msg = fmt.Sprintf("Serving %d servers", guilds)
			case 1:
				msg = fmt.Sprintf("Tracking %d schedules", schedules)
			default:
				s = -1
				continue
			}

			if err := b.s.UpdateStatusComplex(dg.UpdateStatusData{
				Status: string(dg.StatusOnline),
				Activities: []*dg.Activity{
					{
						Name:  b.s.State.User.Username,
						Type:  dg.ActivityTypeCustom,
						State: msg,
					},
				},
			}); err != nil {
				b.l.Error("error setting bot status", "error", err)
			}

			s++
		}
	}
}

func (b *Bot) ensure(guildID string) *GuildContext {
	b.mu.RLock()
	if guildCtx, exists := b.contexts[guildID]; exists {
		b.mu.RUnlock()
		return guildCtx
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	if guildCtx, exists := b.contexts[guildID]; exists {
		return guildCtx
	}

	ctx, cancel := context.WithCancel(b.ctx)
	guildCtx := &GuildContext{
		Context: ctx,
		Cancel:  cancel,
		Events:  make(chan GuildEvent, 1000),
	}

	b.contexts[guildID] = guildCtx
	return guildCtx
}

func (b *Bot) dispatch(guildID string) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			stack = stack[:runtime.Stack(stack, false)]
			b.l.Error("panic recovered", "guild", guildID, "recovered", r, "stack", stack)
			go b.dispatch(guildID)
		}
	}()

	ctx := b.ensure(guildID)

	for {
		select {
		case <-ctx.Context.Done():
			return
		case e := <-ctx.Events:
			switch e.Type {
			case EventTypeInteraction:
				i := e.Interaction
				if i == nil {
					b.l.Warn("received nil interaction in dispatch")
					continue
				}

				switch i.Type {
				case dg.InteractionApplicationCommand:
					data := i.ApplicationCommandData()
					opts := utils.MapOptions(i)

					h, ok := lookup[data.Name]
					if !ok {
						b.r.Fail(i, utils.Failure{
							Type:    utils.ErrNotFound,
							Message: "No registered command",
						})
						continue
					}

					b.l.Info("command issued", "user", i.Member.User.Username, "command", data.Name, "guild", guildID)

					go func() {
						defer func() {
							if r := recover(); r != nil {
								stack := make([]byte, 4096)
								stack = stack[:runtime.Stack(stack, false)]
								b.l.Error("panic recovered", "command", data.Name, "guild", guildID, "recovered", r, "stack", stack)
							}
						}()

						if err := h.Handle(ctx.Context, handlers.Dependencies{
							Session:      b.s,
							Store:        b.st,
							Cache:        b.c,
							Responder:    b.r,
							Conversation: b,
							Logger:       b.l,
							Interaction:  i,
							Options:      &opts,
						}); err != nil {
							b.l.Error("error handling command", "error", err, "command", data.Name, "guild", guildID)
							b.r.Fail(i, utils.Failure{
								Type:    utils.ErrInternal,
								Message: "Failed to handle command",
								Data:    map[string]any{"error": err},
							})
						}
					}()
				}
			}
		}
	}
}

func (b *Bot) load(guildID string) {
	start := time.Now()

	var cmds []*dg.ApplicationCommand
	for _, h := range lookup {
		cmd := h.Metadata()
		cmds = append(cmds, &cmd)
	}

	if _, err := b.s.ApplicationCommandBulkOverwrite(b.s.State.User.ID, guildID, cmds); err != nil {
		b.l.Error("error loading guild commands", "error", err, "guild", guildID)
		return
	}

	b.l.Info("command set loaded", "guild", guildID, "loaded", len(cmds), "duration", time.Since(start))
}

func (b *Bot) enqueue(guildID string, event GuildEvent) {
	b.mu.RLock()
	ctx, ok := b.contexts[guildID]
	b.mu.RUnlock()

	if !ok {
		b.l.Warn("attempted to enqueue event for unknown guild", "guild", guildID)
		return
	}

	select {
	case ctx.Events <- event:
	case <-ctx.Context.Done():
		b.l.Debug("dropped event for cancelled guild context", "guild", guildID)
	default:
		b.l.Warn("event channel full, dropping event", "guild", guildID)
	}
}

func (b *Bot) register(g *dg.Guild) {
	b.mu.Lock()

	if existing, ok := b.contexts[g.ID]; ok {
		existing.Cancel()
	}

	ctx, cancel := context.WithCancel(b.ctx)
	guildCtx := &GuildContext{
		Context: ctx,
		Cancel:  cancel,
		Events:  make(chan GuildEvent, 1000),
	}
	b.contexts[g.ID] = guildCtx

	b.mu.Unlock()

	b.l.Info("registered guild", "id", g.ID, "name", g.Name)

	go b.load(g.ID)
	go b.dispatch(g.ID)
	go b.monitor(g.ID, guildCtx)
}

func (b *Bot) remove(g *dg.Guild) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if guildCtx, ok := b.contexts[g.ID]; ok {
		guildCtx.Cancel()
		delete(b.contexts, g.ID)
	}

	b.l.Info("removed guild", "id", g.ID)
}

func (b *Bot) monitor(guildID string, ctx *GuildContext) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	var lastWarningTime time.Time
	var consecutiveWarnings int

	for {
		select {
		case <-ctx.Context.Done():
			return
		case <-ticker.C:
			currentLen := len(ctx.Events)
			capacity := cap(ctx.Events)
			fillPercentage := float64(currentLen) / float64(capacity) * 100

			if fillPercentage > 60 {
				now := time.Now()
				if now.Sub(lastWarningTime) > 5*time.Minute {
					consecutiveWarnings = 0
					lastWarningTime = now
				}

				consecutiveWarnings++

				b.l.Warn("event channel filling up",
					"guild", guildID,
					"size", currentLen,
					"capacity", capacity,
					"percentage", fmt.Sprintf("%.1f%%", fillPercentage),
					"consecutive_warnings", consecutiveWarnings)

				if consecutiveWarnings >= 3 {
					b.l.Error("potential stuck handler detected; event channel consistently full",
						"guild", guildID,
						"size", currentLen,
						"capacity", capacity,
						"warnings", consecutiveWarnings)
				}
			}
		}
	}
}
