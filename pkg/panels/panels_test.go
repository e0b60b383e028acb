package panels

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/config"
	"github.com/Jacobbrewer1/supportbot/pkg/dataaccess"
	"github.com/Jacobbrewer1/supportbot/pkg/discord"
	"github.com/Jacobbrewer1/supportbot/pkg/discord/discordtest"
	"github.com/Jacobbrewer1/supportbot/pkg/entities"
	"github.com/Jacobbrewer1/supportbot/pkg/logging"
	"github.com/Jacobbrewer1/supportbot/pkg/messages"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fixture struct {
	ctx     context.Context
	p       *discordtest.Platform
	dal     dataaccess.PanelDal
	cfg     *config.Holder
	s       *Syncer
	support string
	unban   string
	waiting string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{ctx: context.Background(), p: discordtest.New()}
	f.support = f.p.AddChannel("support")
	f.unban = f.p.AddChannel("unban")
	f.waiting = f.p.AddChannel("waiting-room")

	cfg, err := config.ParseJSON([]byte(fmt.Sprintf(`{
		"ticketCategory": "100",
		"joinLogChannel": "101",
		"transcriptLogChannel": "102",
		"panels": {
			"support": {
				"channelId": %q,
				"title": "Support",
				"description": "Need help?",
				"buttons": [
					{"customId": "create:support", "label": "Support"},
					{"customId": "create:scenario", "label": "Scenario", "style": "secondary"},
				],
			},
			"unban": {"channelId": %q, "buttons": [{"customId": "create:unban", "label": "Unban", "emoji": "✅"}]},
		},
		"permanentSupportMessage": {
			"channelId": %q,
			"content": "Support Waiting Room\nPlease wait here until a staff member helps you.",
		},
	}`, f.support, f.unban, f.waiting)))
	require.NoError(t, err)
	f.cfg = config.NewHolder(cfg)

	store := dataaccess.NewStateStore(logging.Discard(), nil, dataaccess.NewFileBackend(t.TempDir()))
	f.dal = dataaccess.NewPanelDal(store)
	f.s = NewSyncer(logging.Discard(), f.dal, f.p, f.cfg, rate.NewLimiter(rate.Inf, 0))
	return f
}

func TestSync_PostsThenEdits(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.s.Sync(f.ctx))
	require.Equal(t, 3, f.p.Calls(discordtest.OpSendMessage))

	support := f.p.History(f.support)
	require.Len(t, support, 1)
	require.Equal(t, "Support", discord.FirstEmbedTitle(support[0]))
	require.Equal(t, "Need help?", support[0].Embeds[0].Description)
	require.Equal(t, []string{"create:support", "create:scenario"}, discord.CustomIDs(support[0].Components))

	unban := f.p.History(f.unban)
	require.Len(t, unban, 1)
	require.Equal(t, "unban", discord.FirstEmbedTitle(unban[0]))

	waiting := f.p.History(f.waiting)
	require.Len(t, waiting, 1)
	require.Equal(t, "Support Waiting Room", discord.FirstEmbedTitle(waiting[0]))
	require.Equal(t, "Please wait here until a staff member helps you.", waiting[0].Embeds[0].Description)

	registry := f.dal.Load(f.ctx)
	require.Equal(t, support[0].ID, registry.Panels["support"].MessageID)
	require.Equal(t, unban[0].ID, registry.Panels["unban"].MessageID)
	require.Equal(t, waiting[0].ID, registry.PermanentMessages[WaitingRoomKey].MessageID)

	// A second run only edits.
	require.NoError(t, f.s.Sync(f.ctx))
	require.Equal(t, 3, f.p.Calls(discordtest.OpSendMessage))
	require.Equal(t, 3, f.p.Calls(discordtest.OpEditMessage))
	require.Equal(t, registry, f.dal.Load(f.ctx))
}

func TestUpsertPanels_AdoptsExistingMessage(t *testing.T) {
	f := newFixture(t)

	// A panel posted by an earlier run whose registry was lost.
	existing, err := f.p.SendMessage(f.support, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{{Title: "Support"}},
		Components: panelComponents(f.cfg.Current().Panels["support"]),
	})
	require.NoError(t, err)
	f.p.Post(f.support, &discordgo.User{ID: "500", Username: "alice"}, "hello", time.Now())

	require.NoError(t, f.s.UpsertPanels(f.ctx))

	require.Len(t, f.p.History(f.support), 2)
	require.Equal(t, existing.ID, f.dal.Load(f.ctx).Panels["support"].MessageID)

	adopted, err := f.p.Message(f.support, existing.ID)
	require.NoError(t, err)
	require.Equal(t, "Need help?", adopted.Embeds[0].Description)
}

func TestUpsertPanels_IgnoresForeignAndMismatchedMessages(t *testing.T) {
	f := newFixture(t)

	f.p.Post(f.support, &discordgo.User{ID: "500", Username: "alice"}, "Support", time.Now())
	_, err := f.p.SendMessage(f.support, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{Title: "Support"}},
		Components: discord.Components(discord.Row(discordgo.Button{
			Label:    "Old",
			CustomID: "create:old",
		})),
	})
	require.NoError(t, err)

	require.NoError(t, f.s.UpsertPanels(f.ctx))
	require.Len(t, f.p.History(f.support), 3)
}

func TestUpsertPanels_RecreatesDeletedMessage(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.s.UpsertPanels(f.ctx))

	old := f.dal.Load(f.ctx).Panels["support"].MessageID
	f.p.RemoveMessage(f.support, old)

	require.NoError(t, f.s.UpsertPanels(f.ctx))

	history := f.p.History(f.support)
	require.Len(t, history, 1)
	got := f.dal.Load(f.ctx).Panels["support"].MessageID
	require.NotEqual(t, old, got)
	require.Equal(t, history[0].ID, got)
}

func TestUpsertPanels_MovedChannel(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.s.UpsertPanels(f.ctx))

	moved := f.p.AddChannel("support-2")
	cfg := *f.cfg.Current()
	cfg.Panels = map[string]*config.Panel{"support": {ChannelID: moved, Title: "Support", Buttons: cfg.Panels["support"].Buttons}}
	f.cfg.Store(&cfg)

	require.NoError(t, f.s.UpsertPanels(f.ctx))

	ref := f.dal.Load(f.ctx).Panels["support"]
	require.Equal(t, moved, ref.ChannelID)
	require.Len(t, f.p.History(moved), 1)
}

func TestUpsertPanels_ChannelUnavailable(t *testing.T) {
	f := newFixture(t)
	f.p.RemoveChannel(f.unban)

	require.NoError(t, f.s.UpsertPanels(f.ctx))

	registry := f.dal.Load(f.ctx)
	require.Contains(t, registry.Panels, "support")
	require.NotContains(t, registry.Panels, "unban")
}

func TestUpsertPanels_SendFailure(t *testing.T) {
	f := newFixture(t)
	f.p.Fail(discordtest.OpSendMessage, errors.New("boom"))

	require.NoError(t, f.s.UpsertPanels(f.ctx))
	require.Empty(t, f.dal.Load(f.ctx).Panels)
}

func TestUpsertPermanentMessage_AdoptsAndRecreates(t *testing.T) {
	f := newFixture(t)

	existing, err := f.p.SendMessage(f.waiting, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{Title: "Support Waiting Room"}},
	})
	require.NoError(t, err)

	require.NoError(t, f.s.UpsertPermanentMessage(f.ctx))
	require.Equal(t, existing.ID, f.dal.Load(f.ctx).PermanentMessages[WaitingRoomKey].MessageID)
	require.Len(t, f.p.History(f.waiting), 1)

	f.p.RemoveMessage(f.waiting, existing.ID)
	require.NoError(t, f.s.UpsertPermanentMessage(f.ctx))

	history := f.p.History(f.waiting)
	require.Len(t, history, 1)
	require.Equal(t, history[0].ID, f.dal.Load(f.ctx).PermanentMessages[WaitingRoomKey].MessageID)
}

func TestUpsertPermanentMessage_LegacyRegistryKey(t *testing.T) {
	f := newFixture(t)

	existing, err := f.p.SendMessage(f.waiting, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{Title: messages.LegacyWaitingRoomTitle}},
	})
	require.NoError(t, err)
	_, err = f.dal.Update(f.ctx, func(r *entities.PanelRegistry) error {
		r.PermanentMessages[LegacyWaitingRoomKey] = &entities.MessageRef{ChannelID: f.waiting, MessageID: existing.ID}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, f.s.UpsertPermanentMessage(f.ctx))

	require.Equal(t, 1, f.p.Calls(discordtest.OpSendMessage))
	registry := f.dal.Load(f.ctx)
	require.Equal(t, existing.ID, registry.PermanentMessages[WaitingRoomKey].MessageID)
	require.NotContains(t, registry.PermanentMessages, LegacyWaitingRoomKey)

	updated, err := f.p.Message(f.waiting, existing.ID)
	require.NoError(t, err)
	require.Equal(t, messages.WaitingRoomTitle, discord.FirstEmbedTitle(updated))
}

func TestUpsertPermanentMessage_AdoptsLegacyTitle(t *testing.T) {
	f := newFixture(t)

	existing, err := f.p.SendMessage(f.waiting, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{Title: messages.LegacyWaitingRoomTitle}},
	})
	require.NoError(t, err)

	require.NoError(t, f.s.UpsertPermanentMessage(f.ctx))
	require.Len(t, f.p.History(f.waiting), 1)
	require.Equal(t, existing.ID, f.dal.Load(f.ctx).PermanentMessages[WaitingRoomKey].MessageID)
}

func TestUpsertPermanentMessage_NotConfigured(t *testing.T) {
	f := newFixture(t)
	cfg := *f.cfg.Current()
	cfg.PermanentSupportMessage = nil
	f.cfg.Store(&cfg)

	require.NoError(t, f.s.UpsertPermanentMessage(f.ctx))
	require.Zero(t, f.p.Calls(discordtest.OpSendMessage))
}

func TestPermanentEmbed_ConfiguredEmbed(t *testing.T) {
	got := permanentEmbed(&config.PermanentMessage{
		Embeds: []config.Embed{{
			Description: "Wait here",
			Fields:      []config.EmbedField{{Name: "Hours", Value: "10-22", Inline: true}},
		}},
	})
	require.Equal(t, "Support Waiting Room", got.Title)
	require.Equal(t, "Wait here", got.Description)
	require.Len(t, got.Fields, 1)
	require.True(t, got.Fields[0].Inline)
}

func TestPermanentEmbed_StripsLegacyTitle(t *testing.T) {
	got := permanentEmbed(&config.PermanentMessage{Content: "Support Wachtkamer\nWait here"})
	require.Equal(t, messages.WaitingRoomTitle, got.Title)
	require.Equal(t, "Wait here", got.Description)
}

func TestEmojiFor(t *testing.T) {
	tests := []struct {
		name   string
		button config.Button
		want   string
	}{
		{name: "configured", button: config.Button{CustomID: "create:support", Emoji: "✅"}, want: "✅"},
		{name: "by type", button: config.Button{CustomID: "create:taxi"}, want: "\U0001F695"},
		{name: "unknown type", button: config.Button{CustomID: "create:other"}, want: defaultEmoji},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, EmojiFor(tt.button))
		})
	}
}

func TestPanelComponents_CapsButtons(t *testing.T) {
	p := &config.Panel{}
	for i := 0; i < 7; i++ {
		p.Buttons = append(p.Buttons, config.Button{CustomID: fmt.Sprintf("create:t%d", i), Label: "x"})
	}
	require.Len(t, discord.CustomIDs(panelComponents(p)), maxButtons)
}
