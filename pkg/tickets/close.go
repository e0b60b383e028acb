package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/custom"
	"github.com/Jacobbrewer1/supportbot/pkg/customid"
	"github.com/Jacobbrewer1/supportbot/pkg/discord"
	"github.com/Jacobbrewer1/supportbot/pkg/entities"
	"github.com/Jacobbrewer1/supportbot/pkg/logging"
	"github.com/Jacobbrewer1/supportbot/pkg/messages"
)

// RequestClose asks the opener to approve closing the ticket. The delay is clamped to
// [0, customid.MaxCloseDelay] seconds.
func (e *Engine) RequestClose(ctx context.Context, channelID, requesterID string, delay int, reason string) (*entities.CloseRequest, error) {
	delay = customid.ClampDelay(delay)
	if strings.TrimSpace(reason) == "" {
		reason = messages.NoReason
	}

	var opener string
	t, err := e.update(ctx, channelID, func(t *entities.Ticket) error {
		t.CloseRequest = &entities.CloseRequest{
			RequestedBy: requesterID,
			Reason:      reason,
			Delay:       delay,
			CreatedAt:   custom.NewDatetime(e.now()),
			Status:      entities.CloseRequestPending,
		}
		opener = t.OpenedBy
		return nil
	})
	if err != nil {
		return nil, err
	}

	discord.BestEffortValue(e.l, discord.EffectSendMessage, func() (*discordgo.Message, error) {
		return e.dc.SendMessage(channelID, &discordgo.MessageSend{
			Content:    fmt.Sprintf(messages.CloseRequestPrompt, discord.UserMention(opener), reason),
			Components: closeRequestControls(channelID, requesterID, delay),
		})
	})

	return t.CloseRequest, nil
}

// DecideCloseRequest records the opener's decision on a close request. The button must match the
// pending request. An approval schedules the close after the requested delay.
func (e *Engine) DecideCloseRequest(ctx context.Context, id customid.ID, userID string) (*entities.CloseRequest, error) {
	approve := id.Kind == customid.KindApproveClose
	if !approve && id.Kind != customid.KindDenyClose {
		return nil, reject(ErrInvalidInput, messages.ErrStaleButton)
	}

	var decided *entities.CloseRequest
	_, err := e.dal.Update(ctx, func(s *entities.TicketStore) error {
		t, ok := s.OpenTicket(id.ChannelID)
		if !ok {
			return reject(ErrNotFound, messages.ErrTicketNotFound)
		}
		if userID != t.OpenedBy {
			return reject(ErrForbidden, messages.ErrOpenerOnly)
		}

		cr := t.CloseRequest
		if cr == nil || cr.Status != entities.CloseRequestPending || cr.RequestedBy != id.RequesterID {
			return reject(ErrStale, messages.ErrStaleRequest)
		}
		if approve && cr.Delay != id.Delay {
			return reject(ErrStale, messages.ErrStaleRequest)
		}

		cr.Status = entities.CloseRequestDenied
		if approve {
			cr.Status = entities.CloseRequestApproved
		}
		cr.DecidedAt = custom.DatetimePtr(e.now())
		cr.DecidedBy = userID

		c := *cr
		decided = &c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if approve {
		reason := decided.Reason
		e.after(time.Duration(id.Delay)*time.Second, func() {
			e.scheduledClose(id.ChannelID, id.RequesterID, reason)
		})
	}
	return decided, nil
}

// RetireCloseRequestPrompt removes the approve and deny buttons from a decided close request prompt.
func (e *Engine) RetireCloseRequestPrompt(channelID, messageID string) bool {
	if messageID == "" {
		return false
	}
	return discord.BestEffort(e.l, discord.EffectEditMessage, func() error {
		_, err := e.dc.EditMessage(&discordgo.MessageEdit{
			Channel:    channelID,
			ID:         messageID,
			Components: []discordgo.MessageComponent{},
		})
		return err
	})
}

// scheduledClose runs an approved close. It does nothing when the channel is already gone.
func (e *Engine) scheduledClose(channelID, requesterID, reason string) {
	ctx := context.Background()
	if _, ok := e.channelExists(channelID); !ok {
		e.l.Debug("Scheduled close skipped, channel is gone", slog.String(logging.KeyChannel, channelID))
		return
	}

	if _, err := e.Close(ctx, channelID, requesterID, reason); err != nil {
		if _, ok := AsRejection(err); ok {
			e.l.Debug("Scheduled close skipped",
				slog.String(logging.KeyChannel, channelID),
				slog.String(logging.KeyError, err.Error()),
			)
			return
		}
		e.l.Error("Error running scheduled close",
			slog.String(logging.KeyChannel, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

// Close archives the ticket of a channel. The transcript is delivered to the opener and to the log
// channel, a close summary is logged, the ticket moves to the closed tickets and the channel is
// deleted. Only the move is required to succeed.
func (e *Engine) Close(ctx context.Context, channelID, closedBy, reason string) (*entities.Ticket, error) {
	release, ok := e.busy.acquire("close:" + channelID)
	if !ok {
		return nil, reject(ErrStale, messages.ErrCloseInProgress)
	}
	defer release()

	t, ok := e.Ticket(ctx, channelID)
	if !ok {
		return nil, reject(ErrNotTicket, messages.ErrNotTicketChannel)
	}
	if strings.TrimSpace(reason) == "" {
		reason = messages.NoReason
	}

	cfg := e.cfg.Current()
	transcript := e.BuildTranscript(channelID, cfg.TranscriptLimit, cfg.Location())
	filename := fmt.Sprintf("transcript-%d.txt", t.TicketID)

	discord.BestEffortValue(e.l, discord.EffectDirectMessage, func() (*discordgo.Message, error) {
		return e.dc.SendDirectMessage(t.OpenedBy, &discordgo.MessageSend{
			Content: fmt.Sprintf(messages.TranscriptDM, t.TicketID),
			Files:   []*discordgo.File{transcriptFile(filename, transcript)},
		})
	})

	closedAt := e.now()
	if cfg.TranscriptLogChannel != "" {
		discord.BestEffortValue(e.l, discord.EffectSendMessage, func() (*discordgo.Message, error) {
			return e.dc.SendMessage(cfg.TranscriptLogChannel, &discordgo.MessageSend{
				Content: fmt.Sprintf(messages.TranscriptLog, t.TicketID),
				Files:   []*discordgo.File{transcriptFile(filename, transcript)},
			})
		})
		discord.BestEffortValue(e.l, discord.EffectSendMessage, func() (*discordgo.Message, error) {
			return e.dc.SendMessage(cfg.TranscriptLogChannel, &discordgo.MessageSend{
				Embeds: []*discordgo.MessageEmbed{closeLogEmbed(t, closedBy, reason, closedAt, cfg.Location())},
			})
		})
	}

	var closed *entities.Ticket
	if _, err := e.dal.Update(ctx, func(s *entities.TicketStore) error {
		c, ok := s.MoveToClosed(channelID, closedBy, reason, CapTranscript(transcript), closedAt)
		if !ok {
			return reject(ErrNotTicket, messages.ErrNotTicketChannel)
		}
		closed = c.Clone()
		return nil
	}); err != nil {
		return nil, err
	}

	TicketsClosed.Inc()
	e.l.Info("Ticket closed",
		slog.Int(logging.KeyTicket, closed.TicketID),
		slog.String(logging.KeyChannel, channelID),
		slog.String(logging.KeyUser, closedBy),
	)

	discord.BestEffort(e.l, discord.EffectDeleteChannel, func() error {
		return e.dc.DeleteChannel(channelID)
	})
	return closed, nil
}

// Reopen restores a closed ticket in a new channel. The ticket keeps its ID and the access of the
// closed record is rebuilt from its staff role and extra roles.
func (e *Engine) Reopen(ctx context.Context, guildID string, ticketID int) (*entities.Ticket, error) {
	release, ok := e.busy.acquire(fmt.Sprintf("reopen:%d", ticketID))
	if !ok {
		return nil, reject(ErrStale, messages.ErrReopenInProgress)
	}
	defer release()

	closed, ok := e.dal.Load(ctx).ClosedTicket(ticketID)
	if !ok {
		return nil, reject(ErrNotFound, messages.ErrClosedNotFound)
	}

	roles := append([]string{closed.StaffRoleID}, closed.ExtraRoles...)
	ch, err := e.dc.CreateChannel(guildID, discordgo.GuildChannelCreateData{
		Name:                 fmt.Sprintf("reopen-%d", ticketID),
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             e.cfg.Current().TicketCategory,
		PermissionOverwrites: ticketOverwrites(guildID, closed.OpenedBy, roles...),
	})
	if err != nil {
		return nil, fmt.Errorf("error creating ticket channel: %w", err)
	}

	notice, sent := discord.BestEffortValue(e.l, discord.EffectSendMessage, func() (*discordgo.Message, error) {
		return e.dc.SendMessage(ch.ID, &discordgo.MessageSend{
			Content:    fmt.Sprintf(messages.TicketReopenNotice, ticketID, orDefault(closed.CloseReason, messages.UnknownReason)),
			Components: closeControls(),
		})
	})

	var reopened *entities.Ticket
	_, err = e.dal.Update(ctx, func(s *entities.TicketStore) error {
		t, ok := s.Reopen(ticketID, ch.ID, e.now())
		if !ok {
			return reject(ErrStale, messages.ErrClosedNotFound)
		}
		if sent {
			t.FirstMessageID = notice.ID
		}
		reopened = t.Clone()
		return nil
	})
	if err != nil {
		discord.BestEffort(e.l, discord.EffectDeleteChannel, func() error {
			return e.dc.DeleteChannel(ch.ID)
		})
		return nil, err
	}

	TicketsReopened.Inc()
	e.l.Info("Ticket reopened",
		slog.Int(logging.KeyTicket, ticketID),
		slog.String(logging.KeyChannel, ch.ID),
	)

	e.refreshJoinLog(ctx, ch.ID)
	if cur, ok := e.Ticket(ctx, ch.ID); ok {
		return cur, nil
	}
	return reopened, nil
}

func transcriptFile(name, transcript string) *discordgo.File {
	return &discordgo.File{
		Name:        name,
		ContentType: "text/plain",
		Reader:      strings.NewReader(transcript),
	}
}
