package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/config"
	"github.com/Jacobbrewer1/supportbot/pkg/customid"
	"github.com/Jacobbrewer1/supportbot/pkg/dataaccess"
	"github.com/Jacobbrewer1/supportbot/pkg/discord"
	"github.com/Jacobbrewer1/supportbot/pkg/discord/discordtest"
	"github.com/Jacobbrewer1/supportbot/pkg/entities"
	"github.com/Jacobbrewer1/supportbot/pkg/logging"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const (
	testGuild     = "900"
	supportRole   = "200"
	unbanRole     = "201"
	globalStaff   = "202"
	managerRole   = "203"
	extraRole     = "204"
	announcerRole = "205"
)

type scheduledCall struct {
	delay time.Duration
	fn    func()
}

type harness struct {
	t   *testing.T
	ctx context.Context
	p   *discordtest.Platform
	dal dataaccess.TicketDal
	cfg *config.Holder
	e   *Engine

	joinLog       string
	transcriptLog string
	announcements string
	overview      string

	mu        sync.Mutex
	now       time.Time
	scheduled []scheduledCall
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		t:   t,
		ctx: context.Background(),
		p:   discordtest.New(),
		now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	h.joinLog = h.p.AddChannel("join-log")
	h.transcriptLog = h.p.AddChannel("transcripts")
	h.announcements = h.p.AddChannel("announcements")
	h.overview = h.p.AddChannel("overview")

	cfg, err := config.ParseJSON([]byte(fmt.Sprintf(`{
		"ticketCategory": "100",
		"joinLogChannel": %q,
		"transcriptLogChannel": %q,
		"staffRolesByPanel": {"support": %q, "unban": %q},
		"typeAliases": {"scenario": "support"},
		"staffRoleIds": [%q],
		"managerRoleForAdd": %q,
		"addRoleChoices": [{"name": "Police", "value": %q}],
		"announcementChannelId": %q,
		"announcementAllowedRoleIds": [%q],
		"overviewChannelId": %q,
		"panels": {
			"support": {
				"channelId": "300",
				"title": "Support",
				"buttons": [
					{"customId": "create:support", "label": "Support"},
					{"customId": "create:scenario", "label": "Scenario"},
				],
			},
			"unban": {"channelId": "301", "title": "Unban", "buttons": [{"customId": "create:unban", "label": "Unban"}]},
		},
		"transcriptTimezone": "UTC",
	}`, h.joinLog, h.transcriptLog, supportRole, unbanRole, globalStaff, managerRole, extraRole,
		h.announcements, announcerRole, h.overview)))
	require.NoError(t, err)
	h.cfg = config.NewHolder(cfg)

	store := dataaccess.NewStateStore(logging.Discard(), nil, dataaccess.NewFileBackend(t.TempDir()))
	h.dal = dataaccess.NewTicketDal(store)

	h.e = NewEngine(logging.Discard(), h.dal, h.p, h.cfg,
		WithClock(h.clock),
		WithScheduler(h.schedule),
		WithLimiter(rate.NewLimiter(rate.Inf, 0)),
	)
	return h
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(d)
}

func (h *harness) schedule(d time.Duration, f func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scheduled = append(h.scheduled, scheduledCall{delay: d, fn: f})
}

// runScheduled runs every scheduled call and returns their delays.
func (h *harness) runScheduled() []time.Duration {
	h.mu.Lock()
	calls := h.scheduled
	h.scheduled = nil
	h.mu.Unlock()

	delays := make([]time.Duration, 0, len(calls))
	for _, c := range calls {
		delays = append(delays, c.delay)
		c.fn()
	}
	return delays
}

func (h *harness) create(userID, username, ticketType string) *entities.Ticket {
	h.t.Helper()
	tk, err := h.e.Create(h.ctx, CreateRequest{
		GuildID:  testGuild,
		UserID:   userID,
		Username: username,
		Button:   customid.Create(ticketType),
	})
	require.NoError(h.t, err)
	return tk
}

func (h *harness) store() *entities.TicketStore {
	return h.dal.Load(h.ctx)
}

func requireRejected(t *testing.T, err error, kind error) *Rejection {
	t.Helper()
	require.ErrorIs(t, err, kind)
	r, ok := AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	return r
}

func TestCreate(t *testing.T) {
	h := newHarness(t)

	tk := h.create("500", "Alice!", "support")
	require.Equal(t, 1001, tk.TicketID)
	require.Equal(t, "500", tk.OpenedBy)
	require.Equal(t, "support", tk.TicketType)
	require.Equal(t, "support", tk.PanelKey)
	require.Equal(t, "Support", tk.PanelName)
	require.Equal(t, supportRole, tk.StaffRoleID)
	require.NotEmpty(t, tk.FirstMessageID)
	require.NotEmpty(t, tk.JoinLogMessageID)

	ch, ok := h.p.ChannelInfo(tk.ChannelID)
	require.True(t, ok)
	require.Equal(t, "support-alice-1001", ch.Name)
	require.Equal(t, "100", ch.ParentID)

	everyone, ok := h.p.Overwrite(tk.ChannelID, testGuild)
	require.True(t, ok)
	require.Equal(t, int64(discordgo.PermissionViewChannel), everyone.Deny)

	opener, ok := h.p.Overwrite(tk.ChannelID, "500")
	require.True(t, ok)
	require.Equal(t, int64(discord.AccessPermissions), opener.Allow)

	_, ok = h.p.Overwrite(tk.ChannelID, supportRole)
	require.True(t, ok)

	welcome := h.p.History(tk.ChannelID)
	require.Len(t, welcome, 1)
	require.Contains(t, welcome[0].Content, "<@500>")
	require.Equal(t, []string{customid.Close().String()}, discord.CustomIDs(welcome[0].Components))

	joinLog := h.p.History(h.joinLog)
	require.Len(t, joinLog, 1)
	require.Equal(t, tk.JoinLogMessageID, joinLog[0].ID)
	require.Equal(t, "Join Ticket", discord.FirstEmbedTitle(joinLog[0]))
	require.Equal(t, []string{customid.Join(tk.ChannelID).String()}, discord.CustomIDs(joinLog[0].Components))

	stored, ok := h.store().OpenTicket(tk.ChannelID)
	require.True(t, ok)
	require.Equal(t, tk, stored)
}

func TestCreate_IncreasingIDs(t *testing.T) {
	h := newHarness(t)

	first := h.create("500", "alice", "support")
	second := h.create("501", "bob", "support")
	third := h.create("500", "alice", "unban")

	require.Equal(t, 1001, first.TicketID)
	require.Equal(t, 1002, second.TicketID)
	require.Equal(t, 1003, third.TicketID)
	require.Equal(t, 1003, h.store().NextTicketID)
}

func TestCreate_ConcurrentIDsAreUnique(t *testing.T) {
	h := newHarness(t)

	const n = 20
	ids := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tk, err := h.e.Create(h.ctx, CreateRequest{
				GuildID:  testGuild,
				UserID:   fmt.Sprintf("%d", 600+i),
				Username: fmt.Sprintf("user%d", i),
				Button:   customid.Create("support"),
			})
			if err == nil {
				ids <- tk.TicketID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]bool)
	for id := range ids {
		require.False(t, seen[id], "duplicate ticket id %d", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
	for id := 1001; id <= 1000+n; id++ {
		require.True(t, seen[id], "missing ticket id %d", id)
	}
	require.Len(t, h.store().OpenTickets, n)
}

func TestCreate_Duplicate(t *testing.T) {
	h := newHarness(t)

	tk := h.create("500", "alice", "support")

	_, err := h.e.Create(h.ctx, CreateRequest{GuildID: testGuild, UserID: "500", Username: "alice", Button: customid.Create("support")})
	r := requireRejected(t, err, ErrDuplicateTicket)
	require.Contains(t, r.Message, discord.ChannelMention(tk.ChannelID))
	require.Len(t, h.store().OpenTickets, 1)

	// Another type is allowed.
	other := h.create("500", "alice", "scenario")
	require.Equal(t, "support", other.PanelKey)
	require.Equal(t, supportRole, other.StaffRoleID)
	require.Len(t, h.store().OpenTickets, 2)
}

func TestCreate_StaleButton(t *testing.T) {
	h := newHarness(t)

	_, err := h.e.Create(h.ctx, CreateRequest{GuildID: testGuild, UserID: "500", Button: customid.Join("123")})
	requireRejected(t, err, ErrInvalidInput)
}

func TestCreate_ChannelFailure(t *testing.T) {
	h := newHarness(t)
	h.p.Fail(discordtest.OpCreateChannel, errors.New("boom"))

	_, err := h.e.Create(h.ctx, CreateRequest{GuildID: testGuild, UserID: "500", Username: "alice", Button: customid.Create("support")})
	require.Error(t, err)
	_, ok := AsRejection(err)
	require.False(t, ok)
	require.Empty(t, h.store().OpenTickets)
}

func TestCreate_MessagesAreBestEffort(t *testing.T) {
	h := newHarness(t)
	h.p.Fail(discordtest.OpSendMessage, errors.New("boom"))

	tk := h.create("500", "alice", "support")
	require.Empty(t, tk.FirstMessageID)
	require.Empty(t, tk.JoinLogMessageID)

	_, ok := h.store().OpenTicket(tk.ChannelID)
	require.True(t, ok)
}

func TestJoin(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")

	got, err := h.e.Join(h.ctx, tk.ChannelID, "700")
	require.NoError(t, err)
	require.Equal(t, []string{"700"}, got.StaffInTicket)

	_, ok := h.p.Overwrite(tk.ChannelID, "700")
	require.True(t, ok)

	// Joining twice does not duplicate the staff member.
	got, err = h.e.Join(h.ctx, tk.ChannelID, "700")
	require.NoError(t, err)
	require.Equal(t, []string{"700"}, got.StaffInTicket)

	joinLog := h.p.History(h.joinLog)
	require.Len(t, joinLog, 1)
	require.Contains(t, joinLog[0].Embeds[0].Fields[3].Value, "<@700>")
}

func TestJoin_Rejections(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")

	_, err := h.e.Join(h.ctx, "999", "700")
	requireRejected(t, err, ErrStale)

	h.p.RemoveChannel(tk.ChannelID)
	_, err = h.e.Join(h.ctx, tk.ChannelID, "700")
	requireRejected(t, err, ErrNotFound)

	stored, _ := h.store().OpenTicket(tk.ChannelID)
	require.Empty(t, stored.StaffInTicket)
}

func TestClaimTransferUnclaim(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")

	got, err := h.e.Claim(h.ctx, tk.ChannelID, "700")
	require.NoError(t, err)
	require.Equal(t, "700", got.ClaimedBy)
	require.Equal(t, []string{"700"}, got.StaffInTicket)

	got, err = h.e.Transfer(h.ctx, tk.ChannelID, "701")
	require.NoError(t, err)
	require.Equal(t, "701", got.ClaimedBy)
	require.Equal(t, []string{"700", "701"}, got.StaffInTicket)
	_, ok := h.p.Overwrite(tk.ChannelID, "701")
	require.True(t, ok)

	got, err = h.e.Unclaim(h.ctx, tk.ChannelID)
	require.NoError(t, err)
	require.Empty(t, got.ClaimedBy)
	require.Equal(t, []string{"700", "701"}, got.StaffInTicket)

	_, err = h.e.Claim(h.ctx, "999", "700")
	requireRejected(t, err, ErrNotTicket)
}

func TestAddSupportRole(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")

	got, err := h.e.AddSupportRole(h.ctx, tk.ChannelID, extraRole)
	require.NoError(t, err)
	require.Equal(t, []string{extraRole}, got.ExtraRoles)
	_, ok := h.p.Overwrite(tk.ChannelID, extraRole)
	require.True(t, ok)

	got, err = h.e.AddSupportRole(h.ctx, tk.ChannelID, extraRole)
	require.NoError(t, err)
	require.Equal(t, []string{extraRole}, got.ExtraRoles)

	_, err = h.e.AddSupportRole(h.ctx, tk.ChannelID, "999")
	requireRejected(t, err, ErrInvalidInput)
}

func TestAddRemoveUser(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")

	require.NoError(t, h.e.AddUser(h.ctx, tk.ChannelID, "800"))
	_, ok := h.p.Overwrite(tk.ChannelID, "800")
	require.True(t, ok)

	require.NoError(t, h.e.RemoveUser(h.ctx, tk.ChannelID, "800"))
	_, ok = h.p.Overwrite(tk.ChannelID, "800")
	require.False(t, ok)

	requireRejected(t, h.e.AddUser(h.ctx, "999", "800"), ErrNotTicket)
}

func TestRename(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")

	require.NoError(t, h.e.Rename(h.ctx, tk.ChannelID, "  urgent  "))
	ch, _ := h.p.ChannelInfo(tk.ChannelID)
	require.Equal(t, "urgent", ch.Name)

	requireRejected(t, h.e.Rename(h.ctx, tk.ChannelID, " "), ErrInvalidInput)
	requireRejected(t, h.e.Rename(h.ctx, tk.ChannelID, strings.Repeat("a", 101)), ErrInvalidInput)

	h.p.Fail(discordtest.OpRenameChannel, errors.New("boom"))
	require.NoError(t, h.e.Rename(h.ctx, tk.ChannelID, "ignored"))
}

func TestSwitchPanel(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")

	got, err := h.e.SwitchPanel(h.ctx, tk.ChannelID, "unban")
	require.NoError(t, err)
	require.Equal(t, "unban", got.TicketType)
	require.Equal(t, "unban", got.PanelKey)
	require.Equal(t, "Unban", got.PanelName)
	require.Equal(t, unbanRole, got.StaffRoleID)
	require.Equal(t, 1001, got.TicketID)

	_, ok := h.p.Overwrite(tk.ChannelID, supportRole)
	require.False(t, ok)
	_, ok = h.p.Overwrite(tk.ChannelID, unbanRole)
	require.True(t, ok)

	ch, _ := h.p.ChannelInfo(tk.ChannelID)
	require.Equal(t, "unban-1001", ch.Name)

	_, err = h.e.SwitchPanel(h.ctx, tk.ChannelID, "nope")
	r := requireRejected(t, err, ErrInvalidInput)
	require.Contains(t, r.Message, "scenario, support, unban")
}

func TestSwitchPanel_AliasKeepsRole(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")
	setPermissions := h.p.Calls(discordtest.OpSetPermission)

	got, err := h.e.SwitchPanel(h.ctx, tk.ChannelID, "scenario")
	require.NoError(t, err)
	require.Equal(t, "scenario", got.TicketType)
	require.Equal(t, "support", got.PanelKey)
	require.Equal(t, supportRole, got.StaffRoleID)
	require.Equal(t, setPermissions, h.p.Calls(discordtest.OpSetPermission))
}

func TestSwitchedName(t *testing.T) {
	tests := []struct {
		name    string
		current string
		want    string
	}{
		{name: "keeps id suffix", current: "support-alice-1001", want: "unban-1001"},
		{name: "no suffix", current: "urgent", want: "unban-1700000000000"},
		{name: "trailing dash", current: "urgent-", want: "unban-1700000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, switchedName(tt.current, "unban", 1700000000000))
		})
	}
}

func TestJumpURL(t *testing.T) {
	h := newHarness(t)
	tk := h.create("500", "alice", "support")

	url, err := h.e.JumpURL(h.ctx, testGuild, tk.ChannelID)
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("https://discord.com/channels/%s/%s/%s", testGuild, tk.ChannelID, tk.FirstMessageID), url)

	_, err = h.e.JumpURL(h.ctx, testGuild, "999")
	requireRejected(t, err, ErrNotTicket)
}

func TestSyncOpenTickets(t *testing.T) {
	h := newHarness(t)
	kept := h.create("500", "alice", "support")
	gone := h.create("501", "bob", "support")

	h.p.RemoveMessage(h.joinLog, kept.JoinLogMessageID)
	h.p.RemoveChannel(gone.ChannelID)

	require.NoError(t, h.e.SyncOpenTickets(h.ctx))

	store := h.store()
	require.Len(t, store.OpenTickets, 2)

	synced, ok := store.OpenTicket(kept.ChannelID)
	require.True(t, ok)
	require.NotEmpty(t, synced.JoinLogMessageID)
	require.NotEqual(t, kept.JoinLogMessageID, synced.JoinLogMessageID)

	skipped, ok := store.OpenTicket(gone.ChannelID)
	require.True(t, ok)
	require.Equal(t, gone.JoinLogMessageID, skipped.JoinLogMessageID)

	// A second pass edits in place.
	sends := h.p.Calls(discordtest.OpSendMessage)
	require.NoError(t, h.e.SyncOpenTickets(h.ctx))
	require.Equal(t, sends, h.p.Calls(discordtest.OpSendMessage))
}

func TestInflight(t *testing.T) {
	f := newInflight()

	release, ok := f.acquire("a")
	require.True(t, ok)

	_, ok = f.acquire("a")
	require.False(t, ok)

	_, ok = f.acquire("b")
	require.True(t, ok)

	release()
	_, ok = f.acquire("a")
	require.True(t, ok)
}
