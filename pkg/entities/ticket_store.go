package entities

import (
	"sort"
	"time"

	"github.com/Jacobbrewer1/supportbot/pkg/custom"
)

// DefaultNextTicketID is the counter value of a fresh store. The first ticket allocated is one above it.
const DefaultNextTicketID = 1000

// TicketStore is the persisted tickets document.
type TicketStore struct {
	// NextTicketID is the last allocated ticket ID.
	NextTicketID int `json:"nextTicketId"`

	// OpenTickets are the open tickets keyed by channel ID.
	OpenTickets map[string]*Ticket `json:"openTickets"`

	// ClosedTickets are the closed tickets keyed by ticket ID.
	ClosedTickets map[string]*Ticket `json:"closedTickets"`
}

// NewTicketStore returns the default tickets document.
func NewTicketStore() *TicketStore {
	return &TicketStore{
		NextTicketID:  DefaultNextTicketID,
		OpenTickets:   make(map[string]*Ticket),
		ClosedTickets: make(map[string]*Ticket),
	}
}

// Normalize fills in anything a partially written document is missing.
func (s *TicketStore) Normalize() {
	if s.NextTicketID <= 0 {
		s.NextTicketID = DefaultNextTicketID
	}
	if s.OpenTickets == nil {
		s.OpenTickets = make(map[string]*Ticket)
	}
	if s.ClosedTickets == nil {
		s.ClosedTickets = make(map[string]*Ticket)
	}
	for k, t := range s.OpenTickets {
		if t == nil {
			delete(s.OpenTickets, k)
			continue
		}
		t.normalize()
	}
	for k, t := range s.ClosedTickets {
		if t == nil {
			delete(s.ClosedTickets, k)
			continue
		}
		t.normalize()
	}
}

// AllocateTicketID advances the counter and returns the new ID.
func (s *TicketStore) AllocateTicketID() int {
	if s.NextTicketID <= 0 {
		s.NextTicketID = DefaultNextTicketID
	}
	s.NextTicketID++
	return s.NextTicketID
}

// OpenTicket returns the open ticket for a channel.
func (s *TicketStore) OpenTicket(channelID string) (*Ticket, bool) {
	t, ok := s.OpenTickets[channelID]
	return t, ok && t != nil
}

// ClosedTicket returns the closed ticket with the given ID.
func (s *TicketStore) ClosedTicket(id int) (*Ticket, bool) {
	t, ok := s.ClosedTickets[TicketKey(id)]
	return t, ok && t != nil
}

// FindOpenByOpener returns the open ticket of the given type opened by the user.
func (s *TicketStore) FindOpenByOpener(userID, ticketType string) (*Ticket, bool) {
	for _, t := range s.OpenTickets {
		if t != nil && t.OpenedBy == userID && t.TicketType == ticketType {
			return t, true
		}
	}
	return nil, false
}

// AddOpen records an open ticket under its channel.
func (s *TicketStore) AddOpen(t *Ticket) {
	t.normalize()
	s.OpenTickets[t.ChannelID] = t
}

// MoveToClosed moves the open ticket of a channel into the closed tickets. The channel ID is kept on
// the closed record for reference.
func (s *TicketStore) MoveToClosed(channelID string, closedBy, reason, transcript string, at time.Time) (*Ticket, bool) {
	t, ok := s.OpenTicket(channelID)
	if !ok {
		return nil, false
	}

	t.ClosedAt = custom.DatetimePtr(at)
	t.ClosedBy = closedBy
	t.CloseReason = reason
	t.Transcript = transcript

	delete(s.OpenTickets, channelID)
	s.ClosedTickets[t.Key()] = t
	return t, true
}

// Reopen moves a closed ticket back into the open tickets under a new channel. The ticket keeps its ID.
func (s *TicketStore) Reopen(id int, channelID string, at time.Time) (*Ticket, bool) {
	t, ok := s.ClosedTicket(id)
	if !ok {
		return nil, false
	}

	delete(s.ClosedTickets, t.Key())

	t.ChannelID = channelID
	t.ReopenedAt = custom.DatetimePtr(at)
	t.ClosedAt = nil
	t.ClosedBy = ""
	t.CloseReason = ""
	t.Transcript = ""
	t.CloseRequest = nil
	s.AddOpen(t)
	return t, true
}

// OpenSorted returns the open tickets ordered by when they were opened.
func (s *TicketStore) OpenSorted() []*Ticket {
	list := make([]*Ticket, 0, len(s.OpenTickets))
	for _, t := range s.OpenTickets {
		if t != nil {
			list = append(list, t)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].OpenedAt.Millis() == list[j].OpenedAt.Millis() {
			return list[i].TicketID < list[j].TicketID
		}
		return list[i].OpenedAt.Millis() < list[j].OpenedAt.Millis()
	})
	return list
}
