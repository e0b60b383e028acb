package tickets

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/config"
	"github.com/Jacobbrewer1/supportbot/pkg/discord"
	"github.com/Jacobbrewer1/supportbot/pkg/messages"
)

const (
	// TranscriptCap is the largest transcript kept on a closed ticket, in characters.
	TranscriptCap = 150000

	// historyPageSize is the most messages the platform returns per history request.
	historyPageSize = 100

	transcriptTimeLayout = "2006-01-02 15:04:05"
)

// ClampTranscriptLimit bounds the number of messages read for a transcript.
func ClampTranscriptLimit(limit int) int {
	if limit <= 0 {
		return config.DefaultTranscriptLimit
	}
	return min(limit, config.MaxTranscriptLimit)
}

// BuildTranscript reads up to limit messages of a channel and renders them oldest first. A failed
// page ends the read; what was collected so far is still rendered.
func (e *Engine) BuildTranscript(channelID string, limit int, loc *time.Location) string {
	limit = ClampTranscriptLimit(limit)

	collected := make([]*discordgo.Message, 0, limit)
	before := ""
	failed := false
	for len(collected) < limit {
		batch := min(historyPageSize, limit-len(collected))
		page, ok := discord.BestEffortValue(e.l, discord.EffectFetchHistory, func() ([]*discordgo.Message, error) {
			return e.dc.Messages(channelID, batch, before)
		})
		if !ok {
			failed = true
			break
		}
		if len(page) == 0 {
			break
		}

		collected = append(collected, page...)
		before = page[len(page)-1].ID
		if len(page) < batch {
			break
		}
	}

	if len(collected) == 0 {
		if failed {
			return messages.NoTranscriptFetchError
		}
		return messages.NoTranscript
	}
	return RenderTranscript(collected, loc)
}

// RenderTranscript renders messages oldest first, one line per message.
func RenderTranscript(msgs []*discordgo.Message, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	sorted := make([]*discordgo.Message, 0, len(msgs))
	for _, m := range msgs {
		if m != nil {
			sorted = append(sorted, m)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	lines := make([]string, 0, len(sorted))
	for _, m := range sorted {
		line := fmt.Sprintf("[%s] %s: %s", m.Timestamp.In(loc).Format(transcriptTimeLayout), discord.UserTag(m.Author), m.Content)
		if len(m.Attachments) > 0 {
			urls := make([]string, 0, len(m.Attachments))
			for _, a := range m.Attachments {
				if a != nil {
					urls = append(urls, a.URL)
				}
			}
			line += fmt.Sprintf(" [attachments: %s]", strings.Join(urls, ", "))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// CapTranscript truncates a transcript to TranscriptCap characters.
func CapTranscript(s string) string {
	if utf8.RuneCountInString(s) <= TranscriptCap {
		return s
	}
	n := 0
	for i := range s {
		if n == TranscriptCap {
			return s[:i]
		}
		n++
	}
	return s
}
