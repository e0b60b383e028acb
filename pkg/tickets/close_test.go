package tickets

import (
	"errors"
	"testing"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/customid"
	"github.com/Jacobbrewer1/supportbot/pkg/discord"
	"github.com/Jacobbrewer1/supportbot/pkg/discord/discordtest"
	"github.com/Jacobbrewer1/supportbot/pkg/entities"
	"github.com/Jacobbrewer1/supportbot/pkg/messages"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRequestClose_ClampsDelay(t *testing.T) {
	tests := []struct {
		name  string
		delay int
		want  int
	}{
		{name: "negative", delay: -5, want: 0},
		{name: "zero", delay: 0, want: 0},
		{name: "in range", delay: 30, want: 30},
		{name: "max", delay: 3600, want: 3600},
		{name: "too long", delay: 7200, want: 3600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tk := h.create("500", "alice", "support")

			cr, err := h.e.RequestClose(h.ctx, tk.ChannelID, "700", tt.delay, "")
			require.NoError(t, err)
			require.Equal(t, tt.want, cr.Delay)
			require.Equal(t, messages.NoReason, cr.Reason)
			require.Equal(t, entities.CloseRequestPending, cr.Status)

			history := h.p.History(tk.ChannelID)
			prompt := history[len(history)-1]
			require.Contains(t, prompt.Content, "<@500>")
			require.Equal(t, []string{
				customid.ApproveClose(tk.ChannelID, "700", tt.want).String(),
				customid.DenyClose(tk.ChannelID, "700").String(),
			}, discord.CustomIDs(prompt.Components))
		})
	}
}

func TestRequestClose_NotTicket(t *testing.T) {
	h := newHarness(t)

	_, err := h.e.RequestClose(h.ctx, "999", "700", 10, "done")
	requireRejected(t, err, ErrNotTicket)
}

func TestDecideCloseRequest_OpenerOnly(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")
	_, err := h.e.RequestClose(h.ctx, tk.ChannelID, "700", 10, "done")
	require.NoError(t, err)

	_, err = h.e.DecideCloseRequest(h.ctx, customid.ApproveClose(tk.ChannelID, "700", 10), "700")
	requireRejected(t, err, ErrForbidden)

	stored, _ := h.store().OpenTicket(tk.ChannelID)
	require.Equal(t, entities.CloseRequestPending, stored.CloseRequest.Status)
	require.Empty(t, h.runScheduled())
}

func TestDecideCloseRequest_Deny(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")
	_, err := h.e.RequestClose(h.ctx, tk.ChannelID, "700", 10, "done")
	require.NoError(t, err)

	cr, err := h.e.DecideCloseRequest(h.ctx, customid.DenyClose(tk.ChannelID, "700"), "500")
	require.NoError(t, err)
	require.Equal(t, entities.CloseRequestDenied, cr.Status)
	require.Equal(t, "500", cr.DecidedBy)
	require.NotNil(t, cr.DecidedAt)
	require.Empty(t, h.runScheduled())

	_, ok := h.store().OpenTicket(tk.ChannelID)
	require.True(t, ok)

	// The request has been decided, so its buttons are stale.
	_, err = h.e.DecideCloseRequest(h.ctx, customid.ApproveClose(tk.ChannelID, "700", 10), "500")
	requireRejected(t, err, ErrStale)
}

func TestDecideCloseRequest_Approve(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")
	_, err := h.e.RequestClose(h.ctx, tk.ChannelID, "700", 10, "resolved")
	require.NoError(t, err)

	cr, err := h.e.DecideCloseRequest(h.ctx, customid.ApproveClose(tk.ChannelID, "700", 10), "500")
	require.NoError(t, err)
	require.Equal(t, entities.CloseRequestApproved, cr.Status)

	_, ok := h.store().OpenTicket(tk.ChannelID)
	require.True(t, ok)

	require.Equal(t, []time.Duration{10 * time.Second}, h.runScheduled())

	closed, ok := h.store().ClosedTicket(tk.TicketID)
	require.True(t, ok)
	require.Equal(t, "700", closed.ClosedBy)
	require.Equal(t, "resolved", closed.CloseReason)
	require.False(t, h.p.HasChannel(tk.ChannelID))
}

func TestDecideCloseRequest_Stale(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")

	_, err := h.e.DecideCloseRequest(h.ctx, customid.DenyClose(tk.ChannelID, "700"), "500")
	requireRejected(t, err, ErrStale)

	_, err = h.e.RequestClose(h.ctx, tk.ChannelID, "700", 10, "done")
	require.NoError(t, err)

	_, err = h.e.DecideCloseRequest(h.ctx, customid.ApproveClose(tk.ChannelID, "700", 20), "500")
	requireRejected(t, err, ErrStale)

	_, err = h.e.DecideCloseRequest(h.ctx, customid.DenyClose(tk.ChannelID, "701"), "500")
	requireRejected(t, err, ErrStale)

	_, err = h.e.DecideCloseRequest(h.ctx, customid.DenyClose("999", "700"), "500")
	requireRejected(t, err, ErrNotFound)

	_, err = h.e.DecideCloseRequest(h.ctx, customid.Close(), "500")
	requireRejected(t, err, ErrInvalidInput)
}

func TestScheduledClose_ChannelGone(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")
	_, err := h.e.RequestClose(h.ctx, tk.ChannelID, "700", 60, "done")
	require.NoError(t, err)
	_, err = h.e.DecideCloseRequest(h.ctx, customid.ApproveClose(tk.ChannelID, "700", 60), "500")
	require.NoError(t, err)

	h.p.RemoveChannel(tk.ChannelID)
	sends := h.p.Calls(discordtest.OpSendMessage)
	h.runScheduled()

	_, ok := h.store().OpenTicket(tk.ChannelID)
	require.True(t, ok)
	require.Equal(t, sends, h.p.Calls(discordtest.OpSendMessage))
	require.Empty(t, h.p.DirectMessages("500"))
}

func TestClose(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")
	_, err := h.e.Claim(h.ctx, tk.ChannelID, "700")
	require.NoError(t, err)

	alice := &discordgo.User{ID: "500", Username: "alice"}
	h.p.Post(tk.ChannelID, alice, "my game crashes", time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC))
	h.advance(time.Hour)

	closedBefore := testutil.ToFloat64(TicketsClosed)
	closed, err := h.e.Close(h.ctx, tk.ChannelID, "700", "fixed")
	require.NoError(t, err)
	require.Equal(t, closedBefore+1, testutil.ToFloat64(TicketsClosed))

	require.Equal(t, tk.TicketID, closed.TicketID)
	require.Equal(t, "700", closed.ClosedBy)
	require.Equal(t, "fixed", closed.CloseReason)
	require.Equal(t, h.clock().UnixMilli(), closed.ClosedAt.Millis())
	require.Contains(t, closed.Transcript, "[2024-01-01 13:00:00] alice: my game crashes")

	store := h.store()
	_, ok := store.OpenTicket(tk.ChannelID)
	require.False(t, ok)
	stored, ok := store.ClosedTicket(tk.TicketID)
	require.True(t, ok)
	require.Equal(t, closed.Transcript, stored.Transcript)

	require.False(t, h.p.HasChannel(tk.ChannelID))

	dms := h.p.DirectMessages("500")
	require.Len(t, dms, 1)
	require.Equal(t, []string{"transcript-1001.txt"}, dms[0].Files)

	var targets []string
	for _, f := range h.p.Files() {
		require.Equal(t, "transcript-1001.txt", f.Name)
		require.Contains(t, string(f.Data), "my game crashes")
		targets = append(targets, f.Target)
	}
	require.ElementsMatch(t, []string{"dm:500", h.transcriptLog}, targets)

	logged := h.p.History(h.transcriptLog)
	require.Len(t, logged, 2)
	require.Equal(t, "Ticket Closed", discord.FirstEmbedTitle(logged[1]))
	require.Equal(t, "<@700>", logged[1].Embeds[0].Fields[4].Value)
}

func TestClose_PlatformFailuresAreAbsorbed(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")

	boom := errors.New("boom")
	h.p.Fail(discordtest.OpMessages, boom)
	h.p.Fail(discordtest.OpDirectMessage, boom)
	h.p.Fail(discordtest.OpSendMessage, boom)
	h.p.Fail(discordtest.OpDeleteChannel, boom)

	closed, err := h.e.Close(h.ctx, tk.ChannelID, "500", "")
	require.NoError(t, err)
	require.Equal(t, messages.NoReason, closed.CloseReason)
	require.Equal(t, messages.NoTranscriptFetchError, closed.Transcript)

	_, ok := h.store().ClosedTicket(tk.TicketID)
	require.True(t, ok)
	require.True(t, h.p.HasChannel(tk.ChannelID))
}

func TestClose_NotTicket(t *testing.T) {
	h := newHarness(t)
	ch := h.p.AddChannel("general")

	_, err := h.e.Close(h.ctx, ch, "700", "done")
	requireRejected(t, err, ErrNotTicket)
	require.True(t, h.p.HasChannel(ch))
	require.Empty(t, h.p.Files())
}

func TestClose_InProgress(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")

	release, ok := h.e.busy.acquire("close:" + tk.ChannelID)
	require.True(t, ok)
	defer release()

	_, err := h.e.Close(h.ctx, tk.ChannelID, "700", "done")
	requireRejected(t, err, ErrStale)
}

func TestReopen(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")
	_, err := h.e.AddSupportRole(h.ctx, tk.ChannelID, extraRole)
	require.NoError(t, err)
	_, err = h.e.RequestClose(h.ctx, tk.ChannelID, "700", 0, "done")
	require.NoError(t, err)
	_, err = h.e.Close(h.ctx, tk.ChannelID, "700", "done")
	require.NoError(t, err)

	reopened, err := h.e.Reopen(h.ctx, testGuild, tk.TicketID)
	require.NoError(t, err)
	require.Equal(t, tk.TicketID, reopened.TicketID)
	require.NotEqual(t, tk.ChannelID, reopened.ChannelID)
	require.NotNil(t, reopened.ReopenedAt)
	require.Nil(t, reopened.ClosedAt)
	require.Nil(t, reopened.CloseRequest)
	require.Empty(t, reopened.Transcript)
	require.NotEmpty(t, reopened.FirstMessageID)
	require.NotEmpty(t, reopened.JoinLogMessageID)

	ch, ok := h.p.ChannelInfo(reopened.ChannelID)
	require.True(t, ok)
	require.Equal(t, "reopen-1001", ch.Name)
	for _, target := range []string{"500", supportRole, extraRole} {
		_, ok := h.p.Overwrite(reopened.ChannelID, target)
		require.True(t, ok, "missing overwrite for %s", target)
	}

	notice := h.p.History(reopened.ChannelID)
	require.Len(t, notice, 1)
	require.Contains(t, notice[0].Content, "**done**")
	require.Equal(t, []string{customid.Close().String()}, discord.CustomIDs(notice[0].Components))

	store := h.store()
	_, ok = store.ClosedTicket(tk.TicketID)
	require.False(t, ok)
	_, ok = store.OpenTicket(reopened.ChannelID)
	require.True(t, ok)

	_, err = h.e.Reopen(h.ctx, testGuild, tk.TicketID)
	requireRejected(t, err, ErrNotFound)

	// New tickets continue after the reopened one.
	next := h.create("501", "bob", "support")
	require.Equal(t, 1002, next.TicketID)
}

func TestReopen_ChannelFailure(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")
	_, err := h.e.Close(h.ctx, tk.ChannelID, "700", "done")
	require.NoError(t, err)

	h.p.Fail(discordtest.OpCreateChannel, errors.New("boom"))
	_, err = h.e.Reopen(h.ctx, testGuild, tk.TicketID)
	require.Error(t, err)

	_, ok := h.store().ClosedTicket(tk.TicketID)
	require.True(t, ok)
}

// TestLifecycle walks a ticket from creation to an approved close request.
func TestLifecycle(t *testing.T) {
	h := newHarness(t)

	tk := h.create("500", "alice", "support")
	require.Equal(t, 1001, tk.TicketID)

	_, err := h.e.Join(h.ctx, tk.ChannelID, "700")
	require.NoError(t, err)
	_, err = h.e.Claim(h.ctx, tk.ChannelID, "700")
	require.NoError(t, err)

	_, err = h.e.RequestClose(h.ctx, tk.ChannelID, "700", 5, "answered")
	require.NoError(t, err)
	_, err = h.e.DecideCloseRequest(h.ctx, customid.ApproveClose(tk.ChannelID, "700", 5), "500")
	require.NoError(t, err)
	require.Equal(t, []time.Duration{5 * time.Second}, h.runScheduled())

	closed, ok := h.store().ClosedTicket(1001)
	require.True(t, ok)
	require.Equal(t, "700", closed.ClaimedBy)
	require.Equal(t, []string{"700"}, closed.StaffInTicket)
	require.Equal(t, entities.CloseRequestApproved, closed.CloseRequest.Status)
	require.Len(t, h.p.DirectMessages("500"), 1)
}
