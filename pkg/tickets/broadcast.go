package tickets

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/discord"
	"github.com/Jacobbrewer1/supportbot/pkg/entities"
	"github.com/Jacobbrewer1/supportbot/pkg/messages"
)

// MaxMessageLength is the longest message content the platform accepts.
const MaxMessageLength = 2000

const (
	overviewHeader = "\U0001F4CB **Open tickets (%d)**"
	overviewEmpty  = "\U0001F4CB **Open tickets**\nThere are currently no open tickets."

	announcementTitle = "\U0001F4E2 Announcement"
)

// FormatOverview renders the open tickets one line each, in the order given.
func FormatOverview(tickets []*entities.Ticket, guildID string) string {
	if len(tickets) == 0 {
		return overviewEmpty
	}

	lines := make([]string, 0, len(tickets)+2)
	lines = append(lines, fmt.Sprintf(overviewHeader, len(tickets)), "")
	for i, t := range tickets {
		claimed := "Not claimed"
		if t.ClaimedBy != "" {
			claimed = discord.UserMention(t.ClaimedBy)
		}
		panel := orDefault(t.PanelName, orDefault(t.TicketType, messages.UnknownReason))

		lines = append(lines, fmt.Sprintf("%d. [#%s](%s) • ID: **%d** • Panel: **%s** • Opened by: %s • Claimed: %s • Opened: %s",
			i+1,
			t.ChannelID,
			discord.JumpURL(guildID, t.ChannelID, ""),
			t.TicketID,
			panel,
			discord.UserMention(t.OpenedBy),
			claimed,
			discord.RelativeTimestamp(t.OpenedAt.Time()),
		))
	}
	return strings.Join(lines, "\n")
}

// SplitMessage splits text into chunks of at most limit characters, breaking between lines where
// possible.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	chunks := make([]string, 0)
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		for utf8.RuneCountInString(line) > limit {
			flush()
			head, rest := splitRunes(line, limit)
			chunks = append(chunks, head)
			line = rest
		}

		n := utf8.RuneCountInString(line)
		sep := 0
		if curLen > 0 {
			sep = 1
		}
		if curLen+sep+n > limit {
			flush()
			sep = 0
		}
		if sep == 1 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
		curLen += sep + n
	}
	flush()
	return chunks
}

func splitRunes(s string, n int) (string, string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}

// PostOverview posts the open tickets to the overview channel. It returns the channel posted to.
func (e *Engine) PostOverview(ctx context.Context, guildID string) (string, error) {
	target := e.cfg.Current().OverviewChannelID
	ch, ok := e.textChannel(target)
	if !ok {
		return "", reject(ErrNotFound, messages.ErrOverviewTarget)
	}

	text := FormatOverview(e.dal.Load(ctx).OpenSorted(), guildID)
	for _, chunk := range SplitMessage(text, MaxMessageLength) {
		discord.BestEffortValue(e.l, discord.EffectSendMessage, func() (*discordgo.Message, error) {
			return e.dc.SendMessage(ch.ID, &discordgo.MessageSend{Content: chunk})
		})
	}
	return ch.ID, nil
}

// PostAnnouncement posts text as an announcement embed mentioning everyone. It returns the channel
// posted to.
func (e *Engine) PostAnnouncement(_ context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", reject(ErrInvalidInput, messages.ErrAnnouncementEmpty)
	}

	target := e.cfg.Current().AnnouncementChannelID
	ch, ok := e.textChannel(target)
	if !ok {
		return "", reject(ErrNotFound, messages.ErrAnnouncementTarget)
	}

	discord.BestEffortValue(e.l, discord.EffectSendMessage, func() (*discordgo.Message, error) {
		return e.dc.SendMessage(ch.ID, &discordgo.MessageSend{
			Content: "@everyone",
			Embeds: []*discordgo.MessageEmbed{{
				Title:       announcementTitle,
				Description: text,
				Color:       colorYellow,
				Timestamp:   e.now().Format(time.RFC3339),
			}},
			AllowedMentions: &discordgo.MessageAllowedMentions{
				Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone},
			},
		})
	})
	return ch.ID, nil
}

// textChannel fetches a configured channel that messages can be posted in.
func (e *Engine) textChannel(channelID string) (*discordgo.Channel, bool) {
	if channelID == "" {
		return nil, false
	}
	ch, ok := e.channelExists(channelID)
	if !ok {
		return nil, false
	}
	switch ch.Type {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildNewsThread:
		return ch, true
	default:
		return nil, false
	}
}
