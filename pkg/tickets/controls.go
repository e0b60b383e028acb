package tickets

import (
	"fmt"
	"strings"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/customid"
	"github.com/Jacobbrewer1/supportbot/pkg/discord"
	"github.com/Jacobbrewer1/supportbot/pkg/entities"
)

const (
	// lockEmoji is shown on the close button. (Padlock)
	lockEmoji = "\U0001F512"

	// eyesEmoji is shown on the join button.
	eyesEmoji = "\U0001F440"

	// confirmEmoji is shown on the confirm close button. (Check mark)
	confirmEmoji = "✅"

	// cancelEmoji is shown on the cancel close button. (Return arrow)
	cancelEmoji = "↩️"

	// colorYellow is the color of informational embeds.
	colorYellow = 0xFEE75C

	// colorRed is the color of the close log embed.
	colorRed = 0xED4245
)

// closeControls is the row with the close button placed on the first message of every ticket.
func closeControls() []discordgo.MessageComponent {
	return discord.Components(discord.Row(discordgo.Button{
		Label:    "Close Ticket",
		Style:    discordgo.DangerButton,
		Emoji:    discordgo.ComponentEmoji{Name: lockEmoji},
		CustomID: customid.Close().String(),
	}))
}

// CloseConfirmControls are the buttons asking to confirm closing a ticket.
func CloseConfirmControls(channelID string) []discordgo.MessageComponent {
	return discord.Components(discord.Row(
		discordgo.Button{
			Label:    "Yes, close ticket",
			Style:    discordgo.DangerButton,
			Emoji:    discordgo.ComponentEmoji{Name: confirmEmoji},
			CustomID: customid.ConfirmClose(channelID).String(),
		},
		discordgo.Button{
			Label:    "Cancel",
			Style:    discordgo.SecondaryButton,
			Emoji:    discordgo.ComponentEmoji{Name: cancelEmoji},
			CustomID: customid.CancelClose(channelID).String(),
		},
	))
}

// JumpControls is a link button to a message.
func JumpControls(url string) []discordgo.MessageComponent {
	return discord.Components(discord.Row(discordgo.Button{
		Label: "Go to top",
		Style: discordgo.LinkButton,
		URL:   url,
	}))
}

func joinControls(channelID string) []discordgo.MessageComponent {
	return discord.Components(discord.Row(discordgo.Button{
		Label:    "Join Ticket",
		Style:    discordgo.SuccessButton,
		Emoji:    discordgo.ComponentEmoji{Name: eyesEmoji},
		CustomID: customid.Join(channelID).String(),
	}))
}

func closeRequestControls(channelID, requesterID string, delay int) []discordgo.MessageComponent {
	return discord.Components(discord.Row(
		discordgo.Button{
			Label:    "Approve",
			Style:    discordgo.SuccessButton,
			CustomID: customid.ApproveClose(channelID, requesterID, delay).String(),
		},
		discordgo.Button{
			Label:    "Deny",
			Style:    discordgo.DangerButton,
			CustomID: customid.DenyClose(channelID, requesterID).String(),
		},
	))
}

func joinEmbed(t *entities.Ticket) *discordgo.MessageEmbed {
	staff := "None"
	if len(t.StaffInTicket) > 0 {
		mentions := make([]string, 0, len(t.StaffInTicket))
		for _, id := range t.StaffInTicket {
			mentions = append(mentions, discord.UserMention(id))
		}
		staff = strings.Join(mentions, " ")
	}

	return &discordgo.MessageEmbed{
		Title:       "Join Ticket",
		Description: "A ticket has been opened. Use the button below to join it.",
		Color:       colorYellow,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Opened By", Value: discord.UserMention(t.OpenedBy), Inline: true},
			{Name: "Panel", Value: orDefault(t.PanelName, t.PanelKey), Inline: true},
			{Name: "Staff In Ticket", Value: fmt.Sprintf("%d", len(t.StaffInTicket)), Inline: true},
			{Name: "Staff Members", Value: staff},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Ticket ID: %d", t.TicketID)},
	}
}

func closeLogEmbed(t *entities.Ticket, closedBy, reason string, closedAt time.Time, loc *time.Location) *discordgo.MessageEmbed {
	claimed := "Not claimed"
	if t.ClaimedBy != "" {
		claimed = discord.UserMention(t.ClaimedBy)
	}

	return &discordgo.MessageEmbed{
		Title: "Ticket Closed",
		Color: colorRed,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ticket ID", Value: fmt.Sprintf("%d", t.TicketID), Inline: true},
			{Name: "Opened By", Value: discord.UserMention(t.OpenedBy), Inline: true},
			{Name: "Closed By", Value: discord.UserMention(closedBy), Inline: true},
			{Name: "Open Time", Value: longTime(t.OpenedAt.Time(), loc), Inline: true},
			{Name: "Claimed By", Value: claimed, Inline: true},
			{Name: "Reason", Value: reason},
			{Name: "Closed At", Value: longTime(closedAt, loc), Inline: true},
		},
	}
}

func longTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("January 2, 2006 15:04 MST")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
