package entities

import (
	"fmt"
	"slices"

	"github.com/Jacobbrewer1/supportbot/pkg/custom"
)

// CloseRequestStatus is the state of a close request.
type CloseRequestStatus string

const (
	// CloseRequestPending is a close request waiting on the opener.
	CloseRequestPending CloseRequestStatus = "pending"

	// CloseRequestApproved is a close request the opener accepted.
	CloseRequestApproved CloseRequestStatus = "approved"

	// CloseRequestDenied is a close request the opener refused.
	CloseRequestDenied CloseRequestStatus = "denied"
)

// CloseRequest is a request from staff for the opener to approve closing the ticket.
type CloseRequest struct {
	// RequestedBy is the ID of the staff member that asked for the close.
	RequestedBy string `json:"requestedBy"`

	// Reason is the reason given for closing.
	Reason string `json:"reason"`

	// Delay is the number of seconds to wait after approval before closing.
	Delay int `json:"delay"`

	// CreatedAt is when the request was made.
	CreatedAt custom.Datetime `json:"createdAt"`

	// Status is the current decision state.
	Status CloseRequestStatus `json:"status"`

	// DecidedAt is when the opener made a decision.
	DecidedAt *custom.Datetime `json:"decidedAt,omitempty"`

	// DecidedBy is who made the decision.
	DecidedBy string `json:"decidedBy,omitempty"`
}

// Ticket is a ticket.
type Ticket struct {
	// TicketID is the number of the ticket. It is allocated once and kept across reopens.
	TicketID int `json:"ticketId"`

	// ChannelID is the ID of the channel that the ticket lives in while open.
	ChannelID string `json:"channelId,omitempty"`

	// OpenedBy is the ID of the user that created the ticket.
	OpenedBy string `json:"openedBy"`

	// OpenedAt is the time that the ticket was created.
	OpenedAt custom.Datetime `json:"openedAt"`

	// TicketType is the classification of the ticket, e.g. "support".
	TicketType string `json:"ticketType"`

	// PanelKey is the configured panel the ticket belongs to.
	PanelKey string `json:"panelKey"`

	// PanelName is the display name of the panel.
	PanelName string `json:"panelName"`

	// StaffRoleID is the role granted access for the current classification.
	StaffRoleID string `json:"staffRoleId,omitempty"`

	// StaffInTicket are the staff members that joined or claimed the ticket.
	StaffInTicket []string `json:"staffInTicket"`

	// ClaimedBy is the ID of the staff member that claimed the ticket.
	ClaimedBy string `json:"claimedBy,omitempty"`

	// FirstMessageID is the ID of the welcome message carrying the close button.
	FirstMessageID string `json:"firstMessageId,omitempty"`

	// JoinLogMessageID is the ID of the join-log message for this ticket.
	JoinLogMessageID string `json:"joinLogMessageId,omitempty"`

	// ExtraRoles are additional roles granted access.
	ExtraRoles []string `json:"extraRoles"`

	// CloseRequest is the latest close request, if any.
	CloseRequest *CloseRequest `json:"closeRequest,omitempty"`

	// ClosedAt is when the ticket was closed.
	ClosedAt *custom.Datetime `json:"closedAt,omitempty"`

	// ClosedBy is who closed the ticket.
	ClosedBy string `json:"closedBy,omitempty"`

	// CloseReason is why the ticket was closed.
	CloseReason string `json:"closeReason,omitempty"`

	// Transcript is the capped transcript stored with a closed ticket.
	Transcript string `json:"transcript,omitempty"`

	// ReopenedAt is when the ticket was last reopened.
	ReopenedAt *custom.Datetime `json:"reopenedAt,omitempty"`
}

// Key returns the closed-ticket key of the ticket.
func (t *Ticket) Key() string {
	return TicketKey(t.TicketID)
}

// TicketKey returns the closed-ticket key for a ticket ID.
func TicketKey(id int) string {
	return fmt.Sprintf("%d", id)
}

// AddStaff adds a user to the staff in the ticket. It reports whether the user was added.
func (t *Ticket) AddStaff(userID string) bool {
	var added bool
	t.StaffInTicket, added = addUnique(t.StaffInTicket, userID)
	return added
}

// AddExtraRole records an additionally granted role. It reports whether the role was added.
func (t *Ticket) AddExtraRole(roleID string) bool {
	var added bool
	t.ExtraRoles, added = addUnique(t.ExtraRoles, roleID)
	return added
}

// Clone returns a deep copy of the ticket.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	c.StaffInTicket = slices.Clone(t.StaffInTicket)
	c.ExtraRoles = slices.Clone(t.ExtraRoles)
	if t.CloseRequest != nil {
		cr := *t.CloseRequest
		c.CloseRequest = &cr
	}
	return &c
}

// normalize ensures the slices are never nil so the documents serialise as empty arrays.
func (t *Ticket) normalize() {
	if t.StaffInTicket == nil {
		t.StaffInTicket = []string{}
	}
	if t.ExtraRoles == nil {
		t.ExtraRoles = []string{}
	}
}

func addUnique(list []string, id string) ([]string, bool) {
	if id == "" || slices.Contains(list, id) {
		return list, false
	}
	return append(list, id), true
}
