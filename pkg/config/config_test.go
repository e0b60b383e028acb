package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Jacobbrewer1/supportbot/pkg/logging"
	"github.com/stretchr/testify/require"
)

const minimalJSON = `{"ticketCategory":"1","joinLogChannel":"2","transcriptLogChannel":"3"}`

func TestLoadFile_JSONC(t *testing.T) {
	b, err := LoadFile(filepath.Join("testdata", "valid.jsonc"))
	require.NoError(t, err)

	require.Equal(t, "100", b.TicketCategory)
	require.Equal(t, DefaultTranscriptLimit, b.TranscriptLimit)
	require.Equal(t, "Europe/Amsterdam", b.Location().String())
	require.Len(t, b.Panels["support"].Buttons, 2)
	require.Equal(t, "secondary", b.Panels["support"].Buttons[1].Style)
}

func TestLoadFile_YAML(t *testing.T) {
	b, err := LoadFile(filepath.Join("testdata", "valid.yaml"))
	require.NoError(t, err)

	require.Equal(t, 500, b.TranscriptLimit)
	require.Equal(t, time.UTC, b.Location())
	require.NotNil(t, b.PermanentSupportMessage)
	require.Equal(t, "400", b.PermanentSupportMessage.ChannelID)
}

func TestParseJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "missing required", in: `{"ticketCategory":"1"}`},
		{name: "channel not a snowflake", in: `{"ticketCategory":"x","joinLogChannel":"2","transcriptLogChannel":"3"}`},
		{name: "limit above max", in: `{"ticketCategory":"1","joinLogChannel":"2","transcriptLogChannel":"3","transcriptLimit":5000}`},
		{name: "bad button id", in: `{"ticketCategory":"1","joinLogChannel":"2","transcriptLogChannel":"3",
			"panels":{"support":{"channelId":"4","buttons":[{"customId":"close_ticket","label":"x"}]}}}`},
		{name: "too many buttons", in: `{"ticketCategory":"1","joinLogChannel":"2","transcriptLogChannel":"3",
			"panels":{"support":{"channelId":"4","buttons":[
				{"customId":"create:a","label":"a"},{"customId":"create:b","label":"b"},{"customId":"create:c","label":"c"},
				{"customId":"create:d","label":"d"},{"customId":"create:e","label":"e"},{"customId":"create:f","label":"f"}]}}}`},
		{name: "unknown timezone", in: `{"ticketCategory":"1","joinLogChannel":"2","transcriptLogChannel":"3","transcriptTimezone":"Mars/Olympus"}`},
		{name: "alias to unknown panel", in: `{"ticketCategory":"1","joinLogChannel":"2","transcriptLogChannel":"3","typeAliases":{"scenario":"nope"}}`},
		{name: "button on two panels", in: `{"ticketCategory":"1","joinLogChannel":"2","transcriptLogChannel":"3","panels":{
			"a":{"channelId":"4","buttons":[{"customId":"create:x","label":"x"}]},
			"b":{"channelId":"5","buttons":[{"customId":"create:x","label":"x"}]}}}`},
		{name: "not json", in: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.in))
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestBot_Lookups(t *testing.T) {
	b, err := LoadFile(filepath.Join("testdata", "valid.jsonc"))
	require.NoError(t, err)

	require.Equal(t, "support", b.PanelKeyFor("scenario"))
	require.Equal(t, "unban", b.PanelKeyFor("unban"))
	require.Equal(t, "200", b.StaffRoleFor("scenario"))
	require.Equal(t, "201", b.StaffRoleFor("unban"))
	require.Empty(t, b.StaffRoleFor("gang"))

	require.Equal(t, "support", b.PanelKeyForButton("create:scenario", "scenario"))
	require.Equal(t, "gang", b.PanelKeyForButton("create:gang", "gang"))

	require.Equal(t, "Support", b.PanelName("support"))
	require.Equal(t, "unban", b.PanelName("unban"))

	require.True(t, b.KnownTicketType("unban"))
	require.True(t, b.KnownTicketType("scenario"))
	require.False(t, b.KnownTicketType("gang"))

	require.True(t, b.IsStaff([]string{"999", "201"}))
	require.True(t, b.IsStaff([]string{"202"}))
	require.False(t, b.IsStaff([]string{"203"}))
	require.True(t, b.IsManager([]string{"203"}))
	require.True(t, b.CanAnnounce([]string{"205"}))
	require.False(t, b.CanAnnounce(nil))
	require.True(t, b.IsAddRoleChoice("204"))
	require.False(t, b.IsAddRoleChoice("200"))
}

func TestHolder(t *testing.T) {
	first, err := ParseJSON([]byte(minimalJSON))
	require.NoError(t, err)

	h := NewHolder(first)
	require.Same(t, first, h.Current())

	h.Store(nil)
	require.Same(t, first, h.Current())

	second, err := ParseJSON([]byte(minimalJSON))
	require.NoError(t, err)
	h.Store(second)
	require.Same(t, second, h.Current())
}

func TestWatch_ReloadsValidChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(minimalJSON), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got atomic.Pointer[Bot]
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, logging.Discard(), path, func(b *Bot) { got.Store(b) })
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`{"ticketCategory":"1",`), 0o600))
	time.Sleep(2 * reloadDebounce)
	require.Nil(t, got.Load())

	updated := `{"ticketCategory":"9","joinLogChannel":"2","transcriptLogChannel":"3"}`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	require.Eventually(t, func() bool {
		b := got.Load()
		return b != nil && b.TicketCategory == "9"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
