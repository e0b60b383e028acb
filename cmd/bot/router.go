package main

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/config"
	"github.com/Jacobbrewer1/supportbot/pkg/customid"
	"github.com/Jacobbrewer1/supportbot/pkg/entities"
	"github.com/Jacobbrewer1/supportbot/pkg/logging"
	"github.com/Jacobbrewer1/supportbot/pkg/messages"
	"github.com/Jacobbrewer1/supportbot/pkg/tickets"
)

// scope is where an interaction may be used.
type scope int

const (
	// scopeAnywhere allows the interaction in any channel.
	scopeAnywhere scope = iota

	// scopeTicket requires a channel with an open ticket.
	scopeTicket

	// scopeOutsideTicket requires a channel without an open ticket.
	scopeOutsideTicket
)

// interactionRequest is an interaction reduced to what the handlers need.
type interactionRequest struct {
	guildID   string
	channelID string
	member    tickets.Member
	username  string

	// name is the command name, or the kind of the button.
	name string

	// options are the command options. Integers are int64, everything else is a string.
	options map[string]any

	// button is the decoded custom ID of a pressed button.
	button customid.ID

	// messageID is the message that carries the pressed button.
	messageID string

	isButton bool
}

func (r *interactionRequest) str(name string) string {
	v, _ := r.options[name].(string)
	return v
}

func (r *interactionRequest) integer(name string) (int, bool) {
	v, ok := r.options[name].(int64)
	return int(v), ok
}

// reply is the private response to an interaction.
type reply struct {
	content    string
	components []discordgo.MessageComponent

	// then runs once the reply has been sent.
	then func(ctx context.Context)
}

func text(format string, args ...any) *reply {
	return &reply{content: fmt.Sprintf(format, args...)}
}

// authorizer checks the actor of an interaction. t is nil outside tickets.
type authorizer func(cfg *config.Bot, m tickets.Member, t *entities.Ticket) error

type handler func(ctx context.Context, req *interactionRequest, t *entities.Ticket) (*reply, error)

type route struct {
	scope     scope
	authorize authorizer
	handle    handler
}

func anyone(*config.Bot, tickets.Member, *entities.Ticket) error { return nil }

func staff(cfg *config.Bot, m tickets.Member, _ *entities.Ticket) error {
	return tickets.RequireStaff(cfg, m)
}

func manager(cfg *config.Bot, m tickets.Member, _ *entities.Ticket) error {
	return tickets.RequireManager(cfg, m)
}

func announcer(cfg *config.Bot, m tickets.Member, _ *entities.Ticket) error {
	return tickets.RequireAnnouncer(cfg, m)
}

func admin(_ *config.Bot, m tickets.Member, _ *entities.Ticket) error {
	return tickets.RequireAdmin(m)
}

// router authorises interactions and runs them against the ticket engine.
type router struct {
	l      *slog.Logger
	cfg    *config.Holder
	engine *tickets.Engine

	commands map[string]route
	buttons  map[customid.Kind]route
}

func newRouter(l *slog.Logger, cfg *config.Holder, engine *tickets.Engine) *router {
	rt := &router{
		l:      l.With(slog.String(logging.KeyApp, "router")),
		cfg:    cfg,
		engine: engine,
	}

	rt.commands = map[string]route{
		cmdAddSupportRole:   {scope: scopeTicket, authorize: manager, handle: rt.addSupportRole},
		cmdAddUser:          {scope: scopeTicket, authorize: staff, handle: rt.addUser},
		cmdRemoveUser:       {scope: scopeTicket, authorize: staff, handle: rt.removeUser},
		cmdRename:           {scope: scopeTicket, authorize: staff, handle: rt.rename},
		cmdClaim:            {scope: scopeTicket, authorize: staff, handle: rt.claim},
		cmdUnclaim:          {scope: scopeTicket, authorize: staff, handle: rt.unclaim},
		cmdTransfer:         {scope: scopeTicket, authorize: staff, handle: rt.transfer},
		cmdClose:            {scope: scopeTicket, authorize: tickets.RequireCloser, handle: rt.closeCommand},
		cmdRequestClose:     {scope: scopeTicket, authorize: staff, handle: rt.requestClose},
		cmdJumpToTop:        {scope: scopeTicket, authorize: anyone, handle: rt.jumpToTop},
		cmdSwitchPanel:      {scope: scopeTicket, authorize: staff, handle: rt.switchPanel},
		cmdReopen:           {scope: scopeOutsideTicket, authorize: staff, handle: rt.reopen},
		cmdPostAnnouncement: {scope: scopeAnywhere, authorize: announcer, handle: rt.postAnnouncement},
		cmdPostOverview:     {scope: scopeAnywhere, authorize: admin, handle: rt.postOverview},
	}

	rt.buttons = map[customid.Kind]route{
		customid.KindCreate:       {scope: scopeAnywhere, authorize: anyone, handle: rt.createButton},
		customid.KindJoin:         {scope: scopeAnywhere, authorize: staff, handle: rt.joinButton},
		customid.KindClose:        {scope: scopeTicket, authorize: anyone, handle: rt.closeButton},
		customid.KindConfirmClose: {scope: scopeTicket, authorize: anyone, handle: rt.confirmCloseButton},
		customid.KindCancelClose:  {scope: scopeTicket, authorize: anyone, handle: rt.cancelCloseButton},
		customid.KindApproveClose: {scope: scopeTicket, authorize: anyone, handle: rt.decideCloseButton},
		customid.KindDenyClose:    {scope: scopeTicket, authorize: anyone, handle: rt.decideCloseButton},
	}
	return rt
}

// newRequest reduces a guild interaction to an interactionRequest. Interactions outside guilds are ignored.
func newRequest(i *discordgo.InteractionCreate) (*interactionRequest, bool) {
	if i.Member == nil || i.Member.User == nil || i.GuildID == "" {
		return nil, false
	}

	req := &interactionRequest{
		guildID:   i.GuildID,
		channelID: i.ChannelID,
		member: tickets.Member{
			UserID:        i.Member.User.ID,
			Roles:         i.Member.Roles,
			Administrator: i.Member.Permissions&discordgo.PermissionAdministrator != 0,
		},
		username: i.Member.User.Username,
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		req.name = data.Name
		req.options = make(map[string]any, len(data.Options))
		for _, o := range data.Options {
			switch v := o.Value.(type) {
			case float64:
				req.options[o.Name] = int64(v)
			default:
				req.options[o.Name] = v
			}
		}
		return req, true
	case discordgo.InteractionMessageComponent:
		req.isButton = true
		if i.Message != nil {
			req.messageID = i.Message.ID
		}
		id, err := customid.Parse(i.MessageComponentData().CustomID)
		if err != nil {
			req.name = "unknown_button"
			return req, true
		}
		req.button = id
		req.name = string(id.Kind)
		return req, true
	default:
		return nil, false
	}
}

// dispatch runs a request and returns the reply to show. It never fails: rejections become their
// message and unexpected errors the generic error message.
func (rt *router) dispatch(ctx context.Context, req *interactionRequest) (rep *reply) {
	start := time.Now()
	outcome := outcomeOK
	defer func() {
		InteractionDuration.WithLabelValues(req.name).Observe(time.Since(start).Seconds())
		InteractionsTotal.WithLabelValues(req.name, outcome).Inc()
	}()

	// Recover from any panics that occur in the handler.
	defer func() {
		if rec := recover(); rec != nil {
			rt.l.Error("Panic in interaction handler",
				slog.String(logging.KeyCommand, req.name),
				slog.String(logging.KeyError, fmt.Sprint(rec)),
				slog.String("stack", string(debug.Stack())),
			)
			outcome = outcomeError
			rep = &reply{content: messages.ErrUserErrorProcessing}
		}
	}()

	r, ok := rt.lookup(req)
	if !ok {
		outcome = outcomeUnknown
		if req.isButton {
			return &reply{content: messages.ErrStaleButton}
		}
		rt.l.Error("No controller found for command", slog.String(logging.KeyCommand, req.name))
		return &reply{content: messages.ErrUserErrorProcessing}
	}

	rep, err := rt.run(ctx, r, req)
	if err != nil {
		outcome = outcomeError
		if _, ok := tickets.AsRejection(err); ok {
			outcome = outcomeRejected
		}
		return rt.failure(req, err)
	}
	return rep
}

func (rt *router) lookup(req *interactionRequest) (route, bool) {
	if req.isButton {
		r, ok := rt.buttons[req.button.Kind]
		return r, ok
	}
	r, ok := rt.commands[req.name]
	return r, ok
}

func (rt *router) run(ctx context.Context, r route, req *interactionRequest) (*reply, error) {
	t, inTicket := rt.engine.Ticket(ctx, req.channelID)
	switch r.scope {
	case scopeTicket:
		if !inTicket {
			return nil, tickets.Reject(tickets.ErrNotTicket, messages.ErrNotTicketChannel)
		}
	case scopeOutsideTicket:
		if inTicket {
			return nil, tickets.Reject(tickets.ErrInvalidInput, messages.ErrNotInTicket)
		}
		t = nil
	}

	if err := r.authorize(rt.cfg.Current(), req.member, t); err != nil {
		return nil, err
	}
	return r.handle(ctx, req, t)
}

func (rt *router) failure(req *interactionRequest, err error) *reply {
	if r, ok := tickets.AsRejection(err); ok {
		rt.l.Debug("Interaction rejected",
			slog.String(logging.KeyCommand, req.name),
			slog.String(logging.KeyUser, req.member.UserID),
			slog.String(logging.KeyError, err.Error()),
		)
		return &reply{content: r.Message}
	}

	rt.l.Error("Error processing interaction",
		slog.String(logging.KeyCommand, req.name),
		slog.String(logging.KeyChannel, req.channelID),
		slog.String(logging.KeyError, err.Error()),
	)
	return &reply{content: messages.ErrUserErrorProcessing}
}

// closeLater closes the ticket after the reply is sent, since closing deletes the channel.
func (rt *router) closeLater(channelID, closedBy, reason string) func(ctx context.Context) {
	return func(ctx context.Context) {
		if _, err := rt.engine.Close(ctx, channelID, closedBy, reason); err != nil {
			rt.failure(&interactionRequest{name: cmdClose, channelID: channelID, member: tickets.Member{UserID: closedBy}}, err)
		}
	}
}

func required(values ...string) error {
	for _, v := range values {
		if v == "" {
			return tickets.Reject(tickets.ErrInvalidInput, messages.ErrMissingOption)
		}
	}
	return nil
}

// sameChannel rejects buttons pressed outside the channel they were made for.
func sameChannel(req *interactionRequest) error {
	if req.button.ChannelID != req.channelID {
		return tickets.Reject(tickets.ErrInvalidInput, messages.ErrWrongChannel)
	}
	return nil
}
