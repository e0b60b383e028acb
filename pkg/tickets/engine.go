// Package tickets is the ticket lifecycle: creating, staffing, closing and reopening tickets and
// keeping their join-log entries in sync.
package tickets

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/config"
	"github.com/Jacobbrewer1/supportbot/pkg/dataaccess"
	"github.com/Jacobbrewer1/supportbot/pkg/discord"
	"github.com/Jacobbrewer1/supportbot/pkg/entities"
	"github.com/Jacobbrewer1/supportbot/pkg/logging"
	"github.com/Jacobbrewer1/supportbot/pkg/messages"
	"golang.org/x/time/rate"
)

// Engine runs the ticket state machine. Every mutation goes through the ticket DAL, which
// serialises updates of the tickets document. Calls to the platform are best effort unless noted.
type Engine struct {
	// l is the logger.
	l *slog.Logger

	// dal persists the tickets document.
	dal dataaccess.TicketDal

	// dc is the chat platform.
	dc discord.Client

	// cfg is the active configuration.
	cfg *config.Holder

	// now returns the current time.
	now func() time.Time

	// after runs f once d has elapsed.
	after func(d time.Duration, f func())

	// pace limits reconciliation passes.
	pace *rate.Limiter

	// busy holds the keys of operations in flight.
	busy *inflight
}

// Option configures an engine.
type Option func(*Engine)

// WithClock sets the clock of the engine.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithScheduler sets how approved close requests are deferred.
func WithScheduler(after func(d time.Duration, f func())) Option {
	return func(e *Engine) {
		e.after = after
	}
}

// WithLimiter sets the limiter pacing SyncOpenTickets.
func WithLimiter(l *rate.Limiter) Option {
	return func(e *Engine) {
		e.pace = l
	}
}

// NewEngine creates a new engine.
func NewEngine(l *slog.Logger, dal dataaccess.TicketDal, dc discord.Client, cfg *config.Holder, opts ...Option) *Engine {
	e := &Engine{
		l:   l.With(slog.String(logging.KeyDal, "tickets")),
		dal: dal,
		dc:  dc,
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		pace: discord.NewReconcileLimiter(),
		busy: newInflight(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ticket returns the open ticket of a channel.
func (e *Engine) Ticket(ctx context.Context, channelID string) (*entities.Ticket, bool) {
	return e.dal.Load(ctx).OpenTicket(channelID)
}

// update applies fn to the open ticket of a channel and returns a copy of the result. It rejects
// with ErrNotTicket when the channel has no open ticket.
func (e *Engine) update(ctx context.Context, channelID string, fn func(t *entities.Ticket) error) (*entities.Ticket, error) {
	var updated *entities.Ticket
	_, err := e.dal.Update(ctx, func(s *entities.TicketStore) error {
		t, ok := s.OpenTicket(channelID)
		if !ok {
			return reject(ErrNotTicket, messages.ErrNotTicketChannel)
		}
		if err := fn(t); err != nil {
			return err
		}
		updated = t.Clone()
		return nil
	})
	if errors.Is(err, errNoChange) {
		t, _ := e.Ticket(ctx, channelID)
		return t, nil
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// grant gives a member or role access to a channel.
func (e *Engine) grant(channelID, targetID string, targetType discordgo.PermissionOverwriteType) {
	discord.BestEffort(e.l, discord.EffectSetPermission, func() error {
		return e.dc.SetPermission(channelID, targetID, targetType, discord.AccessPermissions, 0)
	})
}

// revoke removes the overwrite of a member or role.
func (e *Engine) revoke(channelID, targetID string) {
	discord.BestEffort(e.l, discord.EffectDeletePermission, func() error {
		return e.dc.DeletePermission(channelID, targetID)
	})
}

// channelExists reports whether the platform still has the channel.
func (e *Engine) channelExists(channelID string) (*discordgo.Channel, bool) {
	return discord.BestEffortValue(e.l, discord.EffectFetchChannel, func() (*discordgo.Channel, error) {
		return e.dc.Channel(channelID)
	})
}

// ticketOverwrites are the overwrites of a new ticket channel: hidden from everyone except the
// opener and the given roles.
func ticketOverwrites(guildID, openerID string, roles ...string) []*discordgo.PermissionOverwrite {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    openerID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discord.AccessPermissions,
		},
	}
	seen := make(map[string]bool)
	for _, r := range roles {
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    r,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discord.AccessPermissions,
		})
	}
	return overwrites
}

// inflight tracks keyed operations that must not run twice at once.
type inflight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{keys: make(map[string]struct{})}
}

// acquire claims key. It returns false when the key is already held.
func (f *inflight) acquire(key string) (release func(), ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.keys[key]; held {
		return nil, false
	}
	f.keys[key] = struct{}{}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.keys, key)
	}, true
}
