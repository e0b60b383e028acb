package dataaccess

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Jacobbrewer1/supportbot/pkg/dataaccess/monitoring"
	"github.com/Jacobbrewer1/supportbot/pkg/logging"
)

// StateStore persists whole documents by domain. Documents live in the primary backend when one is
// configured and reachable, and in files otherwise. The file copy mirrors every save so it is never
// older than the primary row. The first time the primary backend is reached and has no row for a
// domain, the file copy is imported once.
type StateStore struct {
	// l is the logger.
	l *slog.Logger

	// primary is the preferred backend. It is nil when only files are used.
	primary Backend

	// file is the fallback backend.
	file Backend

	// migMu guards migrated and fileAhead.
	migMu sync.Mutex

	// migrated records the domains whose migration check has run.
	migrated map[Domain]bool

	// fileAhead records the domains whose last save only reached the file backend.
	fileAhead map[Domain]bool

	// locks serialise mutations per domain.
	locks map[Domain]*sync.Mutex
}

// NewStateStore creates a state store. primary may be nil.
func NewStateStore(l *slog.Logger, primary Backend, file Backend) *StateStore {
	if l == nil {
		l = slog.Default()
	}
	return &StateStore{
		l:        l.With(slog.String(logging.KeyDal, "state_store")),
		primary:  primary,
		file:     file,
		migrated:  make(map[Domain]bool),
		fileAhead: make(map[Domain]bool),
		locks: map[Domain]*sync.Mutex{
			DomainTickets: new(sync.Mutex),
			DomainPanels:  new(sync.Mutex),
		},
	}
}

// Primary returns the primary backend, or the file backend when there is none.
func (s *StateStore) Primary() Backend {
	if s.primary != nil {
		return s.primary
	}
	return s.file
}

// Ping checks the active backend.
func (s *StateStore) Ping(ctx context.Context) error {
	return s.Primary().Ping(ctx)
}

// Close closes both backends.
func (s *StateStore) Close() error {
	if s.primary != nil {
		if err := s.primary.Close(); err != nil {
			return fmt.Errorf("error closing %s backend: %w", s.primary.Name(), err)
		}
	}
	return s.file.Close()
}

// lock acquires the mutation lock of a domain and returns the unlock function.
func (s *StateStore) lock(d Domain) func() {
	m, ok := s.locks[d]
	if !ok {
		panic(fmt.Sprintf("unknown domain %q", d))
	}
	m.Lock()
	return m.Unlock
}

// Load returns the raw document of a domain. found is false when no backend holds the document or
// it could not be read.
func (s *StateStore) Load(ctx context.Context, d Domain) (value []byte, found bool) {
	l := s.l.With(slog.String(logging.KeyDomain, d.String()))

	if s.primary != nil && s.isFileAhead(d) {
		if data, ok := s.resync(ctx, d); ok {
			return data, true
		}
	}

	if s.primary != nil {
		data, ok, err := s.primary.Load(ctx, d.String())
		if err == nil {
			if ok {
				s.markMigrated(d)
				return data, true
			}
			if imported, ok := s.migrate(ctx, d); ok {
				return imported, true
			}
			return nil, false
		}

		monitoring.StoreFallbacks.WithLabelValues("load", d.String()).Inc()
		l.Warn("Primary backend unavailable, falling back to file",
			slog.String(logging.KeyBackend, s.primary.Name()),
			slog.String(logging.KeyError, err.Error()),
		)
	}

	data, ok, err := s.file.Load(ctx, d.String())
	if err != nil {
		l.Error("Error reading document from file", slog.String(logging.KeyError, err.Error()))
		return nil, false
	}
	return data, ok
}

// Save stores the raw document of a domain.
func (s *StateStore) Save(ctx context.Context, d Domain, value []byte) error {
	if s.primary != nil {
		err := s.primary.Save(ctx, d.String(), value)
		if err == nil {
			s.setFileAhead(d, false)
			if err := s.file.Save(ctx, d.String(), value); err != nil {
				s.l.Warn("Error mirroring document to file",
					slog.String(logging.KeyDomain, d.String()),
					slog.String(logging.KeyError, err.Error()),
				)
			}
			return nil
		}

		monitoring.StoreFallbacks.WithLabelValues("save", d.String()).Inc()
		s.l.Warn("Primary backend unavailable, saving to file",
			slog.String(logging.KeyDomain, d.String()),
			slog.String(logging.KeyBackend, s.primary.Name()),
			slog.String(logging.KeyError, err.Error()),
		)
	}

	if err := s.file.Save(ctx, d.String(), value); err != nil {
		return fmt.Errorf("error saving %s: %w", d, err)
	}
	if s.primary != nil {
		s.setFileAhead(d, true)
	}
	return nil
}

func (s *StateStore) isFileAhead(d Domain) bool {
	s.migMu.Lock()
	defer s.migMu.Unlock()
	return s.fileAhead[d]
}

func (s *StateStore) setFileAhead(d Domain, ahead bool) {
	s.migMu.Lock()
	defer s.migMu.Unlock()
	s.fileAhead[d] = ahead
}

// resync returns the file copy of a domain whose last save missed the primary backend and pushes
// it to the primary. The file copy is returned even when the push fails.
func (s *StateStore) resync(ctx context.Context, d Domain) ([]byte, bool) {
	l := s.l.With(slog.String(logging.KeyDomain, d.String()))

	data, ok, err := s.file.Load(ctx, d.String())
	if err != nil || !ok {
		if err != nil {
			l.Warn("Error reading file copy for resync", slog.String(logging.KeyError, err.Error()))
		}
		return nil, false
	}

	if err := s.primary.Save(ctx, d.String(), data); err != nil {
		l.Warn("Primary backend still unavailable, using file copy",
			slog.String(logging.KeyBackend, s.primary.Name()),
			slog.String(logging.KeyError, err.Error()),
		)
		return data, true
	}

	s.setFileAhead(d, false)
	s.markMigrated(d)
	l.Info("Resynced file copy into primary backend", slog.String(logging.KeyBackend, s.primary.Name()))
	return data, true
}

func (s *StateStore) markMigrated(d Domain) {
	s.migMu.Lock()
	defer s.migMu.Unlock()
	s.migrated[d] = true
}

// migrate imports the file copy of a domain into the primary backend. It runs at most once per
// domain for the lifetime of the store.
func (s *StateStore) migrate(ctx context.Context, d Domain) ([]byte, bool) {
	s.migMu.Lock()
	defer s.migMu.Unlock()

	if s.migrated[d] {
		return nil, false
	}
	s.migrated[d] = true

	l := s.l.With(
		slog.String(logging.KeyDomain, d.String()),
		slog.String(logging.KeyBackend, s.primary.Name()),
	)

	data, ok, err := s.file.Load(ctx, d.String())
	if err != nil {
		l.Warn("Error reading file copy for migration", slog.String(logging.KeyError, err.Error()))
		return nil, false
	} else if !ok {
		return nil, false
	}

	if err := s.primary.Save(ctx, d.String(), data); err != nil {
		// Let the next call try again.
		s.migrated[d] = false
		l.Warn("Error migrating file copy", slog.String(logging.KeyError, err.Error()))
		return data, true
	}

	monitoring.StoreMigrations.WithLabelValues(d.String()).Inc()
	l.Info("Migrated file copy into primary backend")
	return data, true
}

// loadDocument decodes the document of a domain, returning the default when it is absent or corrupt.
func loadDocument[T any](ctx context.Context, s *StateStore, d Domain, def func() *T) *T {
	data, ok := s.Load(ctx, d)
	if !ok || len(data) == 0 {
		return def()
	}

	doc := new(T)
	if err := json.Unmarshal(data, doc); err != nil {
		s.l.Warn("Stored document is corrupt, using default",
			slog.String(logging.KeyDomain, d.String()),
			slog.String(logging.KeyError, err.Error()),
		)
		return def()
	}
	return doc
}

func saveDocument[T any](ctx context.Context, s *StateStore, d Domain, doc *T) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", d, err)
	}
	return s.Save(ctx, d, data)
}
