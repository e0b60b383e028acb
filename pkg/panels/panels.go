// Package panels keeps the panel messages and the permanent waiting room message in place. Every
// run edits the recorded message, adopts a matching bot message, or posts a new one, so running
// it repeatedly never duplicates messages.
package panels

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/config"
	"github.com/Jacobbrewer1/supportbot/pkg/dataaccess"
	"github.com/Jacobbrewer1/supportbot/pkg/discord"
	"github.com/Jacobbrewer1/supportbot/pkg/entities"
	"github.com/Jacobbrewer1/supportbot/pkg/logging"
	"github.com/Jacobbrewer1/supportbot/pkg/messages"
	"golang.org/x/time/rate"
)

const (
	// WaitingRoomKey is the registry key of the permanent waiting room message.
	WaitingRoomKey = "supportWaitingRoom"

	// LegacyWaitingRoomKey is the key older registries stored the waiting room message under.
	LegacyWaitingRoomKey = "supportWachtkamer"

	// adoptWindow is how many recent messages are searched for a message to adopt.
	adoptWindow = 30

	// maxButtons is the number of buttons that fit on one row.
	maxButtons = 5

	colorYellow = 0xFEE75C

	defaultEmoji = "\U0001F3AB"
)

var buttonEmojis = map[string]string{
	"support":        "\U0001F6E0️",
	"scenario":       "\U0001F3AD",
	"unban":          "\U0001F513",
	"politie":        "\U0001F693",
	"anwb":           "\U0001F6FB",
	"ambulance":      "\U0001F691",
	"taxi":           "\U0001F695",
	"donaties":       "\U0001F49B",
	"staff":          "\U0001F9D1‍\U0001F4BC",
	"gang":           "\U0001F576️",
	"contentcreator": "\U0001F3A5",
	"makelaar":       "\U0001F3E1",
	"vergoedingen":   "\U0001F4B6",
}

// Syncer reconciles the configured panels with the messages on the platform.
type Syncer struct {
	// l is the logger.
	l *slog.Logger

	// dal persists the panel registry.
	dal dataaccess.PanelDal

	// dc is the chat platform.
	dc discord.Client

	// cfg is the active configuration.
	cfg *config.Holder

	// pace limits calls while walking the panels.
	pace *rate.Limiter
}

// NewSyncer creates a new syncer. A nil limiter uses the default reconciliation pace.
func NewSyncer(l *slog.Logger, dal dataaccess.PanelDal, dc discord.Client, cfg *config.Holder, pace *rate.Limiter) *Syncer {
	if pace == nil {
		pace = discord.NewReconcileLimiter()
	}
	return &Syncer{
		l:    l.With(slog.String(logging.KeyDal, "panels")),
		dal:  dal,
		dc:   dc,
		cfg:  cfg,
		pace: pace,
	}
}

// Sync reconciles the panels and the permanent message.
func (s *Syncer) Sync(ctx context.Context) error {
	if err := s.UpsertPanels(ctx); err != nil {
		return err
	}
	return s.UpsertPermanentMessage(ctx)
}

// UpsertPanels renders every configured panel. Panels whose channel cannot be fetched are skipped.
func (s *Syncer) UpsertPanels(ctx context.Context) error {
	cfg := s.cfg.Current()
	registry := s.dal.Load(ctx)

	keys := make([]string, 0, len(cfg.Panels))
	for k := range cfg.Panels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	changed := make(map[string]*entities.MessageRef)
	for _, key := range keys {
		p := cfg.Panels[key]
		if p == nil || p.ChannelID == "" {
			continue
		}
		if err := s.pace.Wait(ctx); err != nil {
			return fmt.Errorf("error waiting for rate limiter: %w", err)
		}

		embed := panelEmbed(key, p)
		components := panelComponents(p)
		wantIDs := discord.CustomIDs(components)

		ref := s.reconcile(registry.Panels[key], p.ChannelID, messagePayload{
			embeds:     []*discordgo.MessageEmbed{embed},
			components: components,
		}, func(m *discordgo.Message) bool {
			return discord.FirstEmbedTitle(m) == embed.Title && sameButtons(m, wantIDs)
		})
		if ref == nil {
			continue
		}
		if cur := registry.Panels[key]; cur == nil || *cur != *ref {
			changed[key] = ref
		}
	}

	if len(changed) == 0 {
		return nil
	}
	_, err := s.dal.Update(ctx, func(r *entities.PanelRegistry) error {
		for key, ref := range changed {
			r.Panels[key] = ref
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error saving panels: %w", err)
	}
	return nil
}

// UpsertPermanentMessage renders the permanent waiting room message, if one is configured.
func (s *Syncer) UpsertPermanentMessage(ctx context.Context) error {
	pm := s.cfg.Current().PermanentSupportMessage
	if pm == nil || pm.ChannelID == "" {
		return nil
	}
	if err := s.pace.Wait(ctx); err != nil {
		return fmt.Errorf("error waiting for rate limiter: %w", err)
	}

	embed := permanentEmbed(pm)
	registry := s.dal.Load(ctx)
	saved := registry.PermanentMessages[WaitingRoomKey]
	_, legacy := registry.PermanentMessages[LegacyWaitingRoomKey]
	if saved == nil && legacy {
		saved = registry.PermanentMessages[LegacyWaitingRoomKey]
	}

	ref := s.reconcile(saved, pm.ChannelID, messagePayload{
		content: pm.Content,
		embeds:  []*discordgo.MessageEmbed{embed},
	}, func(m *discordgo.Message) bool {
		title := discord.FirstEmbedTitle(m)
		return title == embed.Title || title == messages.LegacyWaitingRoomTitle
	})
	if ref == nil || (!legacy && saved != nil && *saved == *ref) {
		return nil
	}

	_, err := s.dal.Update(ctx, func(r *entities.PanelRegistry) error {
		r.PermanentMessages[WaitingRoomKey] = ref
		delete(r.PermanentMessages, LegacyWaitingRoomKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error saving permanent message: %w", err)
	}
	return nil
}

type messagePayload struct {
	content    string
	embeds     []*discordgo.MessageEmbed
	components []discordgo.MessageComponent
}

// reconcile brings one message up to date. It returns the reference of the message now rendering
// the payload, or nil when the channel is unavailable or nothing could be sent.
func (s *Syncer) reconcile(saved *entities.MessageRef, channelID string, payload messagePayload, match func(*discordgo.Message) bool) *entities.MessageRef {
	if _, ok := discord.BestEffortValue(s.l, discord.EffectFetchChannel, func() (*discordgo.Channel, error) {
		return s.dc.Channel(channelID)
	}); !ok {
		s.l.Debug("Skipping message in unavailable channel", slog.String(logging.KeyChannel, channelID))
		return nil
	}

	if saved.Matches(channelID) {
		if _, found := discord.BestEffortValue(s.l, discord.EffectFetchMessage, func() (*discordgo.Message, error) {
			return s.dc.Message(channelID, saved.MessageID)
		}); found {
			s.edit(channelID, saved.MessageID, payload)
			return saved
		}
	}

	recent, _ := discord.BestEffortValue(s.l, discord.EffectFetchHistory, func() ([]*discordgo.Message, error) {
		return s.dc.Messages(channelID, adoptWindow, "")
	})
	botID := s.dc.BotUserID()
	for _, m := range recent {
		if discord.AuthoredBy(m, botID) && match(m) {
			s.edit(channelID, m.ID, payload)
			s.l.Info("Adopted existing message",
				slog.String(logging.KeyChannel, channelID),
				slog.String("message_id", m.ID),
			)
			return &entities.MessageRef{ChannelID: channelID, MessageID: m.ID}
		}
	}

	sent, ok := discord.BestEffortValue(s.l, discord.EffectSendMessage, func() (*discordgo.Message, error) {
		return s.dc.SendMessage(channelID, &discordgo.MessageSend{
			Content:    payload.content,
			Embeds:     payload.embeds,
			Components: payload.components,
		})
	})
	if !ok {
		return nil
	}
	return &entities.MessageRef{ChannelID: channelID, MessageID: sent.ID}
}

func (s *Syncer) edit(channelID, messageID string, payload messagePayload) {
	discord.BestEffort(s.l, discord.EffectEditMessage, func() error {
		_, err := s.dc.EditMessage(&discordgo.MessageEdit{
			Channel:    channelID,
			ID:         messageID,
			Content:    &payload.content,
			Embeds:     payload.embeds,
			Components: payload.components,
		})
		return err
	})
}

func panelEmbed(key string, p *config.Panel) *discordgo.MessageEmbed {
	title := p.Title
	if title == "" {
		title = key
	}
	description := p.Description
	if description == "" {
		description = messages.DefaultPanelDescription
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       colorYellow,
	}
}

func panelComponents(p *config.Panel) []discordgo.MessageComponent {
	buttons := make([]discordgo.Button, 0, min(len(p.Buttons), maxButtons))
	for _, b := range p.Buttons[:min(len(p.Buttons), maxButtons)] {
		buttons = append(buttons, discordgo.Button{
			Label:    b.Label,
			Style:    discord.ButtonStyle(b.Style),
			Emoji:    discordgo.ComponentEmoji{Name: EmojiFor(b)},
			CustomID: b.CustomID,
		})
	}
	return discord.Components(discord.Row(buttons...))
}

// EmojiFor returns the emoji of a panel button: the configured one, else the one of its ticket type.
func EmojiFor(b config.Button) string {
	if b.Emoji != "" {
		return b.Emoji
	}
	_, ticketType, _ := strings.Cut(b.CustomID, ":")
	if e, ok := buttonEmojis[ticketType]; ok {
		return e
	}
	return defaultEmoji
}

func permanentEmbed(pm *config.PermanentMessage) *discordgo.MessageEmbed {
	if len(pm.Embeds) > 0 {
		e := pm.Embeds[0]
		embed := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       colorYellow,
		}
		if embed.Title == "" {
			embed.Title = messages.WaitingRoomTitle
		}
		for _, f := range e.Fields {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		return embed
	}

	description := pm.Content
	for _, title := range []string{messages.WaitingRoomTitle, messages.LegacyWaitingRoomTitle} {
		description = strings.TrimPrefix(description, title)
	}
	description = strings.TrimSpace(description)
	return &discordgo.MessageEmbed{
		Title:       messages.WaitingRoomTitle,
		Description: description,
		Color:       colorYellow,
	}
}

// sameButtons reports whether the message carries exactly the wanted buttons, in order.
func sameButtons(m *discordgo.Message, want []string) bool {
	return len(want) > 0 && slices.Equal(discord.CustomIDs(m.Components), want)
}
