package tickets

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/discord"
	"github.com/Jacobbrewer1/supportbot/pkg/entities"
	"github.com/Jacobbrewer1/supportbot/pkg/messages"
)

// maxChannelName is the longest channel name the platform accepts.
const maxChannelName = 100

var idSuffix = regexp.MustCompile(`-(\d+)$`)

// Claim assigns the ticket to userID. Claims are not exclusive: a later claim replaces the earlier.
func (e *Engine) Claim(ctx context.Context, channelID, userID string) (*entities.Ticket, error) {
	return e.assign(ctx, channelID, userID)
}

// Transfer assigns the ticket to another staff member.
func (e *Engine) Transfer(ctx context.Context, channelID, targetUserID string) (*entities.Ticket, error) {
	return e.assign(ctx, channelID, targetUserID)
}

func (e *Engine) assign(ctx context.Context, channelID, userID string) (*entities.Ticket, error) {
	t, err := e.update(ctx, channelID, func(t *entities.Ticket) error {
		t.ClaimedBy = userID
		t.AddStaff(userID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.grant(channelID, userID, discordgo.PermissionOverwriteTypeMember)
	e.refreshJoinLog(ctx, channelID)
	return t, nil
}

// Unclaim clears the claim. Access and the staff list are left as they are.
func (e *Engine) Unclaim(ctx context.Context, channelID string) (*entities.Ticket, error) {
	return e.update(ctx, channelID, func(t *entities.Ticket) error {
		t.ClaimedBy = ""
		return nil
	})
}

// AddSupportRole gives one of the configured extra roles access to the ticket.
func (e *Engine) AddSupportRole(ctx context.Context, channelID, roleID string) (*entities.Ticket, error) {
	if !e.cfg.Current().IsAddRoleChoice(roleID) {
		return nil, reject(ErrInvalidInput, messages.ErrRoleNotAllowed)
	}

	t, err := e.update(ctx, channelID, func(t *entities.Ticket) error {
		if !t.AddExtraRole(roleID) {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.grant(channelID, roleID, discordgo.PermissionOverwriteTypeRole)
	return t, nil
}

// AddUser gives a member access to the ticket.
func (e *Engine) AddUser(ctx context.Context, channelID, userID string) error {
	if _, ok := e.Ticket(ctx, channelID); !ok {
		return reject(ErrNotTicket, messages.ErrNotTicketChannel)
	}
	e.grant(channelID, userID, discordgo.PermissionOverwriteTypeMember)
	return nil
}

// RemoveUser removes the overwrite of a member from the ticket.
func (e *Engine) RemoveUser(ctx context.Context, channelID, userID string) error {
	if _, ok := e.Ticket(ctx, channelID); !ok {
		return reject(ErrNotTicket, messages.ErrNotTicketChannel)
	}
	e.revoke(channelID, userID)
	return nil
}

// Rename sets the channel name of the ticket.
func (e *Engine) Rename(ctx context.Context, channelID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxChannelName {
		return reject(ErrInvalidInput, messages.ErrInvalidName)
	}
	if _, ok := e.Ticket(ctx, channelID); !ok {
		return reject(ErrNotTicket, messages.ErrNotTicketChannel)
	}

	discord.BestEffort(e.l, discord.EffectRenameChannel, func() error {
		return e.dc.RenameChannel(channelID, name)
	})
	return nil
}

// SwitchPanel reclassifies the ticket. The staff role overwrite is swapped only when the new
// classification has a different staff role, and the channel is renamed after the new type.
func (e *Engine) SwitchPanel(ctx context.Context, channelID, target string) (*entities.Ticket, error) {
	cfg := e.cfg.Current()
	if !cfg.KnownTicketType(target) {
		return nil, reject(ErrInvalidInput, fmt.Sprintf(messages.ErrUnknownPanel, strings.Join(knownTypes(cfg.Panels, cfg.TypeAliases), ", ")))
	}

	newRole := cfg.StaffRoleFor(target)
	var oldRole string
	var swapped bool

	t, err := e.update(ctx, channelID, func(t *entities.Ticket) error {
		t.TicketType = target
		t.PanelKey = cfg.PanelKeyFor(target)
		t.PanelName = cfg.PanelName(t.PanelKey)
		if newRole != "" && newRole != t.StaffRoleID {
			oldRole = t.StaffRoleID
			t.StaffRoleID = newRole
			swapped = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if swapped {
		if oldRole != "" {
			e.revoke(channelID, oldRole)
		}
		e.grant(channelID, newRole, discordgo.PermissionOverwriteTypeRole)
	}

	if ch, ok := e.channelExists(channelID); ok {
		name := switchedName(ch.Name, target, e.now().UnixMilli())
		discord.BestEffort(e.l, discord.EffectRenameChannel, func() error {
			return e.dc.RenameChannel(channelID, name)
		})
	}

	e.refreshJoinLog(ctx, channelID)
	return t, nil
}

// JumpURL returns the link to the first message of the ticket.
func (e *Engine) JumpURL(ctx context.Context, guildID, channelID string) (string, error) {
	t, ok := e.Ticket(ctx, channelID)
	if !ok {
		return "", reject(ErrNotTicket, messages.ErrNotTicketChannel)
	}
	if t.FirstMessageID == "" {
		return "", reject(ErrNotFound, messages.ErrNoFirstMessage)
	}
	return discord.JumpURL(guildID, channelID, t.FirstMessageID), nil
}

// switchedName renames a channel to the new type, keeping a trailing number when there is one.
func switchedName(current, ticketType string, nowMillis int64) string {
	if m := idSuffix.FindStringSubmatch(current); m != nil {
		return fmt.Sprintf("%s-%s", ticketType, m[1])
	}
	return fmt.Sprintf("%s-%d", ticketType, nowMillis)
}

func knownTypes[P any](panels map[string]P, aliases map[string]string) []string {
	keys := make([]string, 0, len(panels)+len(aliases))
	for k := range panels {
		keys = append(keys, k)
	}
	for k := range aliases {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}
