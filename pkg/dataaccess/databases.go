package dataaccess

import (
	"context"
	"errors"
)

// Domain is the logical key of a persisted document.
type Domain string

const (
	// DomainTickets is the tickets document.
	DomainTickets Domain = "tickets"

	// DomainPanels is the panel registry document.
	DomainPanels Domain = "panels"
)

// String implements the fmt.Stringer interface.
func (d Domain) String() string {
	return string(d)
}

// ErrBackendUnavailable is returned when a backend cannot be reached.
var ErrBackendUnavailable = errors.New("backend unavailable")

// Backend persists opaque documents by key.
type Backend interface {
	// Name is the short name of the backend used in logs and metrics.
	Name() string

	// Load returns the stored value for key. found is false when nothing has been stored yet.
	Load(ctx context.Context, key string) (value []byte, found bool, err error)

	// Save stores value under key, replacing any previous value.
	Save(ctx context.Context, key string, value []byte) error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error
}
