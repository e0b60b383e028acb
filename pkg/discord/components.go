package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"golang.org/x/time/rate"
)

// AccessPermissions are the permissions granted to everyone allowed into a ticket.
const AccessPermissions = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory

// Row wraps buttons in an action row.
func Row(buttons ...discordgo.Button) discordgo.ActionsRow {
	components := make([]discordgo.MessageComponent, 0, len(buttons))
	for _, b := range buttons {
		components = append(components, b)
	}
	return discordgo.ActionsRow{Components: components}
}

// Components returns the action rows as message components.
func Components(rows ...discordgo.ActionsRow) []discordgo.MessageComponent {
	components := make([]discordgo.MessageComponent, 0, len(rows))
	for _, r := range rows {
		components = append(components, r)
	}
	return components
}

// CustomIDs returns the custom IDs of every button in the components, in order. Components built
// locally are values while components decoded from the API are pointers, so both are handled.
func CustomIDs(components []discordgo.MessageComponent) []string {
	ids := make([]string, 0)
	for _, c := range components {
		switch v := c.(type) {
		case discordgo.ActionsRow:
			ids = append(ids, CustomIDs(v.Components)...)
		case *discordgo.ActionsRow:
			if v != nil {
				ids = append(ids, CustomIDs(v.Components)...)
			}
		case discordgo.Button:
			if v.CustomID != "" {
				ids = append(ids, v.CustomID)
			}
		case *discordgo.Button:
			if v != nil && v.CustomID != "" {
				ids = append(ids, v.CustomID)
			}
		}
	}
	return ids
}

// FirstEmbedTitle returns the title of the first embed of a message.
func FirstEmbedTitle(m *discordgo.Message) string {
	if m == nil || len(m.Embeds) == 0 || m.Embeds[0] == nil {
		return ""
	}
	return m.Embeds[0].Title
}

// AuthoredBy reports whether the message was sent by the given user.
func AuthoredBy(m *discordgo.Message, userID string) bool {
	return m != nil && m.Author != nil && userID != "" && m.Author.ID == userID
}

// UserTag renders a user the way transcripts show authors.
func UserTag(u *discordgo.User) string {
	if u == nil {
		return "unknown"
	}
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// UserMention renders a user mention.
func UserMention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

// RoleMention renders a role mention.
func RoleMention(roleID string) string {
	return fmt.Sprintf("<@&%s>", roleID)
}

// ChannelMention renders a channel mention.
func ChannelMention(channelID string) string {
	return fmt.Sprintf("<#%s>", channelID)
}

// RelativeTimestamp renders a timestamp the client shows relative to now.
func RelativeTimestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

// JumpURL returns the link to a channel, or to a message when messageID is set.
func JumpURL(guildID, channelID, messageID string) string {
	parts := []string{"https://discord.com/channels", guildID, channelID}
	if messageID != "" {
		parts = append(parts, messageID)
	}
	return strings.Join(parts, "/")
}

// ButtonStyle converts a configured style name into a button style. Unknown names are primary.
func ButtonStyle(name string) discordgo.ButtonStyle {
	switch strings.ToLower(name) {
	case "secondary":
		return discordgo.SecondaryButton
	case "success":
		return discordgo.SuccessButton
	case "danger":
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

// NewReconcileLimiter returns the limiter that paces reconciliation passes over many channels.
func NewReconcileLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(250*time.Millisecond), 5)
}
