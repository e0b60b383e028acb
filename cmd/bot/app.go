package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/config"
	"github.com/Jacobbrewer1/supportbot/pkg/dataaccess"
	"github.com/Jacobbrewer1/supportbot/pkg/discord"
	"github.com/Jacobbrewer1/supportbot/pkg/logging"
	"github.com/Jacobbrewer1/supportbot/pkg/panels"
	"github.com/Jacobbrewer1/supportbot/pkg/request"
	"github.com/Jacobbrewer1/supportbot/pkg/tickets"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// PathMetrics is the path for metrics.
	PathMetrics = "/metrics"

	// PathHealth is the path for the health check.
	PathHealth = "/health"
)

// IApp is the interface for the application.
type IApp interface {
	// Log returns the logger.
	Log() *slog.Logger

	// Session returns the discord session.
	Session() *discordgo.Session
}

type App struct {
	// l is the logger.
	l *slog.Logger

	// c is the process configuration.
	c *AppConfig

	// ctx is cancelled when the application shuts down.
	ctx context.Context

	// r is the router for the application.
	r *mux.Router

	// svr is the server for the application.
	svr *http.Server

	// s is the discord session.
	s *discordgo.Session

	// bot is the active bot configuration.
	bot *config.Holder

	// store persists the tickets and panels documents.
	store *dataaccess.StateStore

	// engine runs the ticket lifecycle.
	engine *tickets.Engine

	// panels keeps the panel messages in place.
	panels *panels.Syncer

	// router dispatches interactions.
	router *router

	// commands are the slash commands created per guild.
	commands map[string][]*discordgo.ApplicationCommand

	// eventNotifier is the channel for notifying of events.
	eventNotifier chan any
}

// NewApp creates a new instance of App.
func NewApp(l *slog.Logger, r *mux.Router, c *AppConfig) *App {
	return &App{
		l:        l,
		c:        c,
		ctx:      context.Background(),
		r:        r,
		commands: make(map[string][]*discordgo.ApplicationCommand),
	}
}

func (a *App) Log() *slog.Logger {
	return a.l
}

func (a *App) Session() *discordgo.Session {
	return a.s
}

// Run starts the bot and blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.ctx = ctx

	bot, err := config.LoadFile(a.c.ConfigPath)
	if err != nil {
		return fmt.Errorf("error loading bot configuration: %w", err)
	}
	a.bot = config.NewHolder(bot)

	if err := a.openStore(); err != nil {
		return fmt.Errorf("error opening state store: %w", err)
	}

	// Register bot.
	if err := a.RegisterBot(); err != nil {
		return fmt.Errorf("error registering bot: %w", err)
	}

	dc := discord.NewSessionClient(a.s)
	a.engine = tickets.NewEngine(a.l, dataaccess.NewTicketDal(a.store), dc, a.bot)
	a.panels = panels.NewSyncer(a.l, dataaccess.NewPanelDal(a.store), dc, a.bot, nil)
	a.router = newRouter(a.l, a.bot, a.engine)

	a.RegisterDiscordHandlers()

	// Start event listener.
	go a.eventListener()

	// Open websocket.
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	// Register slash commands.
	if err := a.registerSlashCommands(); err != nil {
		return fmt.Errorf("error registering slash commands: %w", err)
	}

	a.Log().Info("Bot is now running.")

	a.generateServer()
	a.setupRoutes()
	a.runServer()

	go a.watchConfig()

	<-ctx.Done()
	a.Log().Info("Received shutdown signal")
	return a.ShutdownHook()
}

func (a *App) ShutdownHook() error {
	// Reset the total number of guilds to 0.
	JoinedGuilds.Set(0)

	a.unregisterSlashCommands()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.svr.Shutdown(shutdownCtx); err != nil {
		a.Log().Warn("Error stopping monitoring server", slog.String(logging.KeyError, err.Error()))
	}

	// Close the connection to Discord.
	if err := a.s.Close(); err != nil {
		return fmt.Errorf("error closing connection to Discord: %w", err)
	}

	if err := a.store.Close(); err != nil {
		return fmt.Errorf("error closing state store: %w", err)
	}
	return nil
}

func (a *App) RegisterBot() error {
	// Default the number of guilds to 0.
	JoinedGuilds.Set(0)

	dg, err := discordgo.New("Bot " + a.c.BotToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsAll)

	if a.eventNotifier == nil {
		// Create event notifier. This is used to count events. It is buffered to prevent blocking.
		a.eventNotifier = make(chan any, 100)
	}

	dg.SetEventNotifier(a.eventNotifier)

	a.s = dg
	return nil
}

// openStore builds the state store from the configured DSN. Files are always available as the
// fallback.
func (a *App) openStore() error {
	primary, err := dataaccess.BuildBackend(a.c.StoreDSN)
	if err != nil {
		return err
	}

	file := dataaccess.NewFileBackend(a.c.DataDir)
	a.store = dataaccess.NewStateStore(a.l, primary, file)
	a.Log().Info("State store ready",
		slog.String(logging.KeyBackend, a.store.Primary().Name()),
		slog.String("data_dir", a.c.DataDir),
	)
	return nil
}

func (a *App) runServer() {
	go func() {
		a.Log().Info("Starting monitoring server", slog.String("addr", a.svr.Addr))
		if err := a.svr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log().Error("Error starting monitoring server", slog.String(logging.KeyError, err.Error()))
			a.Log().Warn("Monitoring server will not be available")
		}
	}()
}

func (a *App) setupRoutes() {
	a.r.HandleFunc(PathMetrics, promhttp.Handler().ServeHTTP).Methods(http.MethodGet)
	a.r.HandleFunc(PathHealth, middlewareHttp(a.healthCheck(), authOptionNone, a)).Methods(http.MethodGet)

	// NotFoundHandler is the handler for 404.
	a.r.NotFoundHandler = request.NotFoundHandler(a.l)

	// MethodNotAllowedHandler is the handler for 405.
	a.r.MethodNotAllowedHandler = request.MethodNotAllowedHandler(a.l)
}

func (a *App) generateServer() {
	a.svr = &http.Server{
		Addr:              ":" + a.c.MonitoringPort,
		Handler:           a.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (a *App) GetJoinedGuilds() ([]*discordgo.UserGuild, error) {
	guilds, err := a.s.UserGuilds(0, "", "")
	if err != nil {
		return nil, fmt.Errorf("error getting guilds: %w", err)
	}
	return guilds, nil
}

func (a *App) RegisterDiscordHandlers() {
	a.s.AddHandler(a.readyHandler())

	// Bot joined guild.
	a.s.AddHandler(guildJoinedHandler(a))

	// Bot left guild.
	a.s.AddHandler(guildLeaveHandler(a))

	// Member joined a guild.
	a.s.AddHandler(memberJoinedHandler(a, a.engine))

	// Interaction create handler.
	a.s.AddHandler(interactionHandler(a, a.router))
}

// readyHandler reconciles the panels and open tickets every time the session becomes ready.
func (a *App) readyHandler() func(s *discordgo.Session, r *discordgo.Ready) {
	return func(_ *discordgo.Session, r *discordgo.Ready) {
		a.Log().Info(fmt.Sprintf("Logged in as %s#%s", r.User.Username, r.User.Discriminator))

		go func() {
			if err := a.panels.Sync(a.ctx); err != nil {
				a.Log().Error("Error syncing panels", slog.String(logging.KeyError, err.Error()))
			}
			if err := a.engine.SyncOpenTickets(a.ctx); err != nil {
				a.Log().Error("Error syncing open tickets", slog.String(logging.KeyError, err.Error()))
			}
		}()
	}
}

// watchConfig swaps in every valid change of the configuration file and re-renders the panels.
func (a *App) watchConfig() {
	err := config.Watch(a.ctx, a.l, a.c.ConfigPath, func(b *config.Bot) {
		a.bot.Store(b)
		if err := a.panels.Sync(a.ctx); err != nil {
			a.Log().Error("Error syncing panels after reload", slog.String(logging.KeyError, err.Error()))
		}
	})
	if err != nil {
		a.Log().Warn("Configuration hot reload disabled", slog.String(logging.KeyError, err.Error()))
	}
}

func (a *App) eventListener() {
	for e := range a.eventNotifier {
		switch t := e.(type) {
		case *discordgo.Event:
			if t.Type != "" {
				GatewayEventsTotal.WithLabelValues(t.Type).Inc()
			} else {
				// If there is no type, then use the operation name.
				GatewayEventsTotal.WithLabelValues(strings.ToUpper(t.Operation.String())).Inc()
			}
		default:
			a.Log().Error("Unknown event type", slog.String("type", fmt.Sprintf("%T", e)))
			GatewayEventsTotal.WithLabelValues("UNKNOWN").Inc()
		}
	}
}
