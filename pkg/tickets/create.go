package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/custom"
	"github.com/Jacobbrewer1/supportbot/pkg/customid"
	"github.com/Jacobbrewer1/supportbot/pkg/discord"
	"github.com/Jacobbrewer1/supportbot/pkg/entities"
	"github.com/Jacobbrewer1/supportbot/pkg/logging"
	"github.com/Jacobbrewer1/supportbot/pkg/messages"
)

// CreateRequest asks for a new ticket.
type CreateRequest struct {
	// GuildID is the guild the ticket is created in.
	GuildID string

	// UserID is the user opening the ticket.
	UserID string

	// Username is used in the channel name.
	Username string

	// Button is the create button that was pressed.
	Button customid.ID
}

// Create opens a ticket. A user may have one open ticket per ticket type.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*entities.Ticket, error) {
	if req.Button.Kind != customid.KindCreate || req.Button.TicketType == "" {
		return nil, reject(ErrInvalidInput, messages.ErrStaleButton)
	}
	ticketType := req.Button.TicketType

	release, ok := e.busy.acquire("create:" + req.UserID + ":" + ticketType)
	if !ok {
		return nil, reject(ErrDuplicateTicket, messages.ErrCreateInProgress)
	}
	defer release()

	cfg := e.cfg.Current()
	panelKey := cfg.PanelKeyForButton(req.Button.String(), ticketType)
	staffRole := cfg.StaffRoleFor(ticketType)

	var ticketID int
	_, err := e.dal.Update(ctx, func(s *entities.TicketStore) error {
		if dup, ok := s.FindOpenByOpener(req.UserID, ticketType); ok {
			return reject(ErrDuplicateTicket, fmt.Sprintf(messages.ErrDuplicateTicket, discord.ChannelMention(dup.ChannelID)))
		}
		ticketID = s.AllocateTicketID()
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The channel is required, so this is the one platform call that is not best effort.
	ch, err := e.dc.CreateChannel(req.GuildID, discordgo.GuildChannelCreateData{
		Name:                 ChannelName(ticketType, req.Username, ticketID),
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             cfg.TicketCategory,
		PermissionOverwrites: ticketOverwrites(req.GuildID, req.UserID, staffRole),
	})
	if err != nil {
		return nil, fmt.Errorf("error creating ticket channel: %w", err)
	}

	t := &entities.Ticket{
		TicketID:      ticketID,
		ChannelID:     ch.ID,
		OpenedBy:      req.UserID,
		OpenedAt:      custom.NewDatetime(e.now()),
		TicketType:    ticketType,
		PanelKey:      panelKey,
		PanelName:     cfg.PanelName(panelKey),
		StaffRoleID:   staffRole,
		StaffInTicket: []string{},
		ExtraRoles:    []string{},
	}

	first, ok := discord.BestEffortValue(e.l, discord.EffectSendMessage, func() (*discordgo.Message, error) {
		return e.dc.SendMessage(ch.ID, &discordgo.MessageSend{
			Content:    fmt.Sprintf(messages.TicketWelcome, discord.UserMention(req.UserID), ticketID, ticketType),
			Components: closeControls(),
		})
	})
	if ok {
		t.FirstMessageID = first.ID
	}

	if _, err := e.dal.Update(ctx, func(s *entities.TicketStore) error {
		s.AddOpen(t.Clone())
		return nil
	}); err != nil {
		return nil, fmt.Errorf("error saving ticket: %w", err)
	}

	TicketsOpened.WithLabelValues(ticketType).Inc()
	e.l.Info("Ticket created",
		slog.Int(logging.KeyTicket, ticketID),
		slog.String(logging.KeyChannel, ch.ID),
		slog.String(logging.KeyUser, req.UserID),
	)

	e.refreshJoinLog(ctx, ch.ID)

	if cur, ok := e.Ticket(ctx, ch.ID); ok {
		return cur, nil
	}
	return t, nil
}

// Join gives a staff member access to a ticket from its join-log button.
func (e *Engine) Join(ctx context.Context, channelID, userID string) (*entities.Ticket, error) {
	if _, ok := e.Ticket(ctx, channelID); !ok {
		return nil, reject(ErrStale, messages.ErrStaleButton)
	}
	if _, ok := e.channelExists(channelID); !ok {
		return nil, reject(ErrNotFound, messages.ErrTicketChannelGone)
	}

	e.grant(channelID, userID, discordgo.PermissionOverwriteTypeMember)

	t, err := e.update(ctx, channelID, func(t *entities.Ticket) error {
		if !t.AddStaff(userID) {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.refreshJoinLog(ctx, channelID)
	return t, nil
}

// ChannelName derives the channel name of a new ticket.
func ChannelName(ticketType, username string, ticketID int) string {
	return fmt.Sprintf("%s-%s-%d", ticketType, safeName(username), ticketID)
}

// safeName reduces a username to lowercase letters, digits and dashes, at most 16 long.
func safeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
		if b.Len() == 16 {
			break
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}
