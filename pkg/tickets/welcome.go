package tickets

import (
	"fmt"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/discord"
	"github.com/Jacobbrewer1/supportbot/pkg/messages"
)

const colorGold = 0xFFD700

// Guild describes the guild a member joined.
type Guild struct {
	Name    string
	IconURL string
}

// Welcome greets a new member in the welcome channel. Nothing is sent when no welcome channel is
// configured or it is not text based.
func (e *Engine) Welcome(g Guild, userID string) bool {
	cfg := e.cfg.Current()
	if _, ok := e.textChannel(cfg.WelcomeChannelID); !ok {
		return false
	}

	lines := []string{fmt.Sprintf(messages.Welcome, discord.UserMention(userID), discord.UserMention(userID), g.Name)}
	if cfg.RulesChannelID != "" {
		lines = append(lines, fmt.Sprintf(messages.WelcomeRules, discord.ChannelMention(cfg.RulesChannelID)))
	}

	embed := &discordgo.MessageEmbed{
		Title:       g.Name,
		Description: strings.Join(lines, "\n"),
		Color:       colorGold,
	}
	if g.IconURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: g.IconURL}
	}

	return discord.BestEffort(e.l, discord.EffectSendMessage, func() error {
		_, err := e.dc.SendMessage(cfg.WelcomeChannelID, &discordgo.MessageSend{
			Content: discord.UserMention(userID),
			Embeds:  []*discordgo.MessageEmbed{embed},
		})
		return err
	})
}
