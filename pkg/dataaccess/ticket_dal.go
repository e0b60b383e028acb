package dataaccess

import (
	"context"
	"fmt"

	"github.com/Jacobbrewer1/supportbot/pkg/entities"
)

type TicketDal interface {
	// Load returns the tickets document. A missing or corrupt document yields the default.
	Load(ctx context.Context) *entities.TicketStore

	// Save replaces the tickets document.
	Save(ctx context.Context, store *entities.TicketStore) error

	// Update reloads the document, applies fn and saves the result while holding the tickets lock.
	// Nothing is saved when fn returns an error.
	Update(ctx context.Context, fn func(store *entities.TicketStore) error) (*entities.TicketStore, error)
}

type ticketDal struct {
	// s is the state store.
	s *StateStore
}

// NewTicketDal creates a new ticket data access layer.
func NewTicketDal(s *StateStore) TicketDal {
	return &ticketDal{s: s}
}

func (d *ticketDal) Load(ctx context.Context) *entities.TicketStore {
	store := loadDocument(ctx, d.s, DomainTickets, entities.NewTicketStore)
	store.Normalize()
	return store
}

func (d *ticketDal) Save(ctx context.Context, store *entities.TicketStore) error {
	unlock := d.s.lock(DomainTickets)
	defer unlock()
	return d.save(ctx, store)
}

func (d *ticketDal) Update(ctx context.Context, fn func(store *entities.TicketStore) error) (*entities.TicketStore, error) {
	unlock := d.s.lock(DomainTickets)
	defer unlock()

	store := d.Load(ctx)
	if err := fn(store); err != nil {
		return nil, err
	}

	if err := d.save(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

func (d *ticketDal) save(ctx context.Context, store *entities.TicketStore) error {
	if store == nil {
		return fmt.Errorf("tickets document is nil")
	}
	store.Normalize()
	return saveDocument(ctx, d.s, DomainTickets, store)
}
