package dataaccess

import (
	"context"
	"fmt"

	"github.com/Jacobbrewer1/supportbot/pkg/entities"
)

type PanelDal interface {
	// Load returns the panel registry. A missing or corrupt document yields the default.
	Load(ctx context.Context) *entities.PanelRegistry

	// Save replaces the panel registry.
	Save(ctx context.Context, registry *entities.PanelRegistry) error

	// Update reloads the registry, applies fn and saves the result while holding the panels lock.
	Update(ctx context.Context, fn func(registry *entities.PanelRegistry) error) (*entities.PanelRegistry, error)
}

type panelDal struct {
	// s is the state store.
	s *StateStore
}

// NewPanelDal creates a new panel data access layer.
func NewPanelDal(s *StateStore) PanelDal {
	return &panelDal{s: s}
}

func (d *panelDal) Load(ctx context.Context) *entities.PanelRegistry {
	registry := loadDocument(ctx, d.s, DomainPanels, entities.NewPanelRegistry)
	registry.Normalize()
	return registry
}

func (d *panelDal) Save(ctx context.Context, registry *entities.PanelRegistry) error {
	unlock := d.s.lock(DomainPanels)
	defer unlock()
	return d.save(ctx, registry)
}

func (d *panelDal) Update(ctx context.Context, fn func(registry *entities.PanelRegistry) error) (*entities.PanelRegistry, error) {
	unlock := d.s.lock(DomainPanels)
	defer unlock()

	registry := d.Load(ctx)
	if err := fn(registry); err != nil {
		return nil, err
	}

	if err := d.save(ctx, registry); err != nil {
		return nil, err
	}
	return registry, nil
}

func (d *panelDal) save(ctx context.Context, registry *entities.PanelRegistry) error {
	if registry == nil {
		return fmt.Errorf("panels document is nil")
	}
	registry.Normalize()
	return saveDocument(ctx, d.s, DomainPanels, registry)
}
