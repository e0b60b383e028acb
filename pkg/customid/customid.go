// Package customid encodes the parameters of a button into its custom ID so the action can be
// resumed statelessly, including after a restart.
package customid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// separator joins the fields of an encoded ID.
const separator = ":"

// MaxCloseDelay is the longest close delay that can be requested, in seconds.
const MaxCloseDelay = 3600

// ErrMalformed is returned when a custom ID cannot be decoded.
var ErrMalformed = errors.New("malformed custom id")

// Kind is the action a button performs.
type Kind string

const (
	// KindCreate opens a ticket of a type. Format: create:<ticketType>.
	KindCreate Kind = "create"

	// KindJoin gives staff access to a ticket. Format: join_ticket:<channelID>.
	KindJoin Kind = "join_ticket"

	// KindClose asks for confirmation to close the ticket. Format: close_ticket.
	KindClose Kind = "close_ticket"

	// KindConfirmClose closes the ticket. Format: confirm_close:<channelID>.
	KindConfirmClose Kind = "confirm_close"

	// KindCancelClose dismisses the confirmation. Format: cancel_close:<channelID>.
	KindCancelClose Kind = "cancel_close"

	// KindApproveClose approves a close request. Format: cr_yes:<channelID>:<requesterID>:<delay>.
	KindApproveClose Kind = "cr_yes"

	// KindDenyClose denies a close request. Format: cr_no:<channelID>:<requesterID>.
	KindDenyClose Kind = "cr_no"
)

// ID is a decoded button custom ID.
type ID struct {
	// Kind is the action.
	Kind Kind

	// TicketType is set for KindCreate.
	TicketType string

	// ChannelID is the ticket channel the action targets.
	ChannelID string

	// RequesterID is the staff member that requested the close.
	RequesterID string

	// Delay is the close delay in seconds for KindApproveClose.
	Delay int
}

// Create returns the ID of a create-ticket button.
func Create(ticketType string) ID {
	return ID{Kind: KindCreate, TicketType: ticketType}
}

// Join returns the ID of a join-ticket button.
func Join(channelID string) ID {
	return ID{Kind: KindJoin, ChannelID: channelID}
}

// Close returns the ID of the close button placed in each ticket.
func Close() ID {
	return ID{Kind: KindClose}
}

// ConfirmClose returns the ID of the confirm button of the close confirmation.
func ConfirmClose(channelID string) ID {
	return ID{Kind: KindConfirmClose, ChannelID: channelID}
}

// CancelClose returns the ID of the cancel button of the close confirmation.
func CancelClose(channelID string) ID {
	return ID{Kind: KindCancelClose, ChannelID: channelID}
}

// ApproveClose returns the ID of the approve button of a close request.
func ApproveClose(channelID, requesterID string, delay int) ID {
	return ID{Kind: KindApproveClose, ChannelID: channelID, RequesterID: requesterID, Delay: ClampDelay(delay)}
}

// DenyClose returns the ID of the deny button of a close request.
func DenyClose(channelID, requesterID string) ID {
	return ID{Kind: KindDenyClose, ChannelID: channelID, RequesterID: requesterID}
}

// ClampDelay clamps a close delay into [0, MaxCloseDelay].
func ClampDelay(delay int) int {
	return max(0, min(MaxCloseDelay, delay))
}

// String encodes the ID.
func (id ID) String() string {
	switch id.Kind {
	case KindCreate:
		return join(string(id.Kind), id.TicketType)
	case KindJoin, KindConfirmClose, KindCancelClose:
		return join(string(id.Kind), id.ChannelID)
	case KindClose:
		return string(id.Kind)
	case KindApproveClose:
		return join(string(id.Kind), id.ChannelID, id.RequesterID, strconv.Itoa(id.Delay))
	case KindDenyClose:
		return join(string(id.Kind), id.ChannelID, id.RequesterID)
	default:
		return string(id.Kind)
	}
}

// Parse decodes and validates a custom ID.
func Parse(s string) (ID, error) {
	parts := strings.Split(s, separator)
	kind := Kind(parts[0])
	args := parts[1:]

	var id ID
	switch kind {
	case KindCreate:
		if len(args) != 1 || !validType(args[0]) {
			return ID{}, malformed(s)
		}
		id = ID{Kind: kind, TicketType: args[0]}
	case KindJoin, KindConfirmClose, KindCancelClose:
		if len(args) != 1 || !validSnowflake(args[0]) {
			return ID{}, malformed(s)
		}
		id = ID{Kind: kind, ChannelID: args[0]}
	case KindClose:
		if len(args) != 0 {
			return ID{}, malformed(s)
		}
		id = ID{Kind: kind}
	case KindApproveClose:
		if len(args) != 3 || !validSnowflake(args[0]) || !validSnowflake(args[1]) {
			return ID{}, malformed(s)
		}
		delay, err := strconv.Atoi(args[2])
		if err != nil || delay != ClampDelay(delay) {
			return ID{}, malformed(s)
		}
		id = ID{Kind: kind, ChannelID: args[0], RequesterID: args[1], Delay: delay}
	case KindDenyClose:
		if len(args) != 2 || !validSnowflake(args[0]) || !validSnowflake(args[1]) {
			return ID{}, malformed(s)
		}
		id = ID{Kind: kind, ChannelID: args[0], RequesterID: args[1]}
	default:
		return ID{}, malformed(s)
	}
	return id, nil
}

func join(parts ...string) string {
	return strings.Join(parts, separator)
}

func malformed(s string) error {
	return fmt.Errorf("%w: %q", ErrMalformed, s)
}

// validSnowflake reports whether s looks like a platform ID.
func validSnowflake(s string) bool {
	if s == "" || len(s) > 20 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validType(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
