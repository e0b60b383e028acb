package tickets

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/discord"
	"github.com/Jacobbrewer1/supportbot/pkg/entities"
	"github.com/Jacobbrewer1/supportbot/pkg/logging"
)

// UpsertJoinLog edits the join-log message of a ticket, or sends a new one when it is gone. It
// returns the ID of the message now representing the ticket, or "" when nothing could be sent.
func (e *Engine) UpsertJoinLog(t *entities.Ticket) string {
	logChannel := e.cfg.Current().JoinLogChannel
	if logChannel == "" {
		return ""
	}

	embeds := []*discordgo.MessageEmbed{joinEmbed(t)}
	components := joinControls(t.ChannelID)

	if t.JoinLogMessageID != "" {
		_, found := discord.BestEffortValue(e.l, discord.EffectFetchMessage, func() (*discordgo.Message, error) {
			return e.dc.Message(logChannel, t.JoinLogMessageID)
		})
		if found {
			discord.BestEffort(e.l, discord.EffectEditMessage, func() error {
				_, err := e.dc.EditMessage(&discordgo.MessageEdit{
					Channel:    logChannel,
					ID:         t.JoinLogMessageID,
					Embeds:     embeds,
					Components: components,
				})
				return err
			})
			return t.JoinLogMessageID
		}
	}

	sent, ok := discord.BestEffortValue(e.l, discord.EffectSendMessage, func() (*discordgo.Message, error) {
		return e.dc.SendMessage(logChannel, &discordgo.MessageSend{
			Embeds:     embeds,
			Components: components,
		})
	})
	if !ok {
		return ""
	}
	return sent.ID
}

// refreshJoinLog brings the join-log message of an open ticket up to date and records its ID.
func (e *Engine) refreshJoinLog(ctx context.Context, channelID string) {
	t, ok := e.Ticket(ctx, channelID)
	if !ok {
		return
	}

	id := e.UpsertJoinLog(t)
	if id == "" || id == t.JoinLogMessageID {
		return
	}

	if _, err := e.update(ctx, channelID, func(cur *entities.Ticket) error {
		cur.JoinLogMessageID = id
		return nil
	}); err != nil {
		e.l.Error("Error saving join log message",
			slog.String(logging.KeyChannel, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

// SyncOpenTickets reconciles every open ticket after a restart: the close button is put back on the
// first message and the join-log message is edited or recreated. Tickets whose channel no longer
// exists are skipped and kept.
func (e *Engine) SyncOpenTickets(ctx context.Context) error {
	store := e.dal.Load(ctx)

	changed := make(map[string]string)
	for _, t := range store.OpenSorted() {
		if err := e.pace.Wait(ctx); err != nil {
			return fmt.Errorf("error waiting for rate limiter: %w", err)
		}

		if _, ok := e.channelExists(t.ChannelID); !ok {
			e.l.Debug("Skipping ticket without channel",
				slog.Int(logging.KeyTicket, t.TicketID),
				slog.String(logging.KeyChannel, t.ChannelID),
			)
			continue
		}

		if t.FirstMessageID != "" {
			_, found := discord.BestEffortValue(e.l, discord.EffectFetchMessage, func() (*discordgo.Message, error) {
				return e.dc.Message(t.ChannelID, t.FirstMessageID)
			})
			if found {
				discord.BestEffort(e.l, discord.EffectEditMessage, func() error {
					_, err := e.dc.EditMessage(&discordgo.MessageEdit{
						Channel:    t.ChannelID,
						ID:         t.FirstMessageID,
						Components: closeControls(),
					})
					return err
				})
			}
		}

		if id := e.UpsertJoinLog(t); id != "" && id != t.JoinLogMessageID {
			changed[t.ChannelID] = id
		}
	}

	if len(changed) == 0 {
		return nil
	}

	_, err := e.dal.Update(ctx, func(s *entities.TicketStore) error {
		for channelID, id := range changed {
			if t, ok := s.OpenTicket(channelID); ok {
				t.JoinLogMessageID = id
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error saving join log messages: %w", err)
	}
	return nil
}
