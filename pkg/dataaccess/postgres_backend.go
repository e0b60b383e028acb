package dataaccess

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Jacobbrewer1/supportbot/pkg/dataaccess/connection"
	"github.com/Jacobbrewer1/supportbot/pkg/dataaccess/monitoring"
)

const (
	postgresBackendName      = "postgres"
	postgresStateTableName   = "bot_state"
	postgresOperationTimeout = 5 * time.Second

	// defaultReconnectInterval is how long a failed connection attempt is remembered before the
	// next call tries again.
	defaultReconnectInterval = 15 * time.Second
)

type sqlOpenFunc func(ctx context.Context, dsn string) (*sql.DB, error)

// PostgresBackend stores documents as rows of (key, value, updated_at). The connection pool is
// created on first use.
type PostgresBackend struct {
	dsn       string
	tableName string
	openDB    sqlOpenFunc
	now       func() time.Time
	retry     time.Duration

	mu          sync.Mutex
	db          *sql.DB
	lastErr     error
	lastAttempt time.Time
}

// NewPostgresBackend creates a postgres backend for dsn. No connection is made until first use.
func NewPostgresBackend(dsn string) (*PostgresBackend, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	return &PostgresBackend{
		dsn:       dsn,
		tableName: postgresStateTableName,
		openDB: func(ctx context.Context, dsn string) (*sql.DB, error) {
			conn := &connection.Postgres{
				ConnectionString: dsn,
				MaxOpenConns:     5,
				ConnMaxLifetime:  5 * time.Minute,
			}
			return conn.Connect(ctx)
		},
		now:   time.Now,
		retry: defaultReconnectInterval,
	}, nil
}

// Name implements Backend.
func (b *PostgresBackend) Name() string {
	return postgresBackendName
}

// Load implements Backend.
func (b *PostgresBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	defer monitoring.Observe(postgresBackendName, "load", postgresBackendName, key)()

	db, err := b.ensureReady(ctx)
	if err != nil {
		return nil, false, err
	}

	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", postgresQuoteIdentifier(b.tableName))
	var value string
	err = db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("error loading %s: %w", key, err)
	}
	return []byte(value), true, nil
}

// Save implements Backend.
func (b *PostgresBackend) Save(ctx context.Context, key string, value []byte) error {
	defer monitoring.Observe(postgresBackendName, "save", postgresBackendName, key)()

	db, err := b.ensureReady(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, postgresQuoteIdentifier(b.tableName))
	if _, err := db.ExecContext(ctx, query, key, string(value)); err != nil {
		return fmt.Errorf("error saving %s: %w", key, err)
	}
	return nil
}

// Ping implements Backend.
func (b *PostgresBackend) Ping(ctx context.Context) error {
	db, err := b.ensureReady(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close implements Backend.
func (b *PostgresBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// ensureReady returns the pool, connecting and creating the table on first use. A failed attempt
// is not retried until the reconnect interval has passed.
func (b *PostgresBackend) ensureReady(ctx context.Context) (*sql.DB, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db != nil {
		return b.db, nil
	}

	now := b.now()
	if b.lastErr != nil && now.Sub(b.lastAttempt) < b.retry {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, b.lastErr)
	}
	b.lastAttempt = now

	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	db, err := b.openDB(ctx, b.dsn)
	if err != nil {
		b.lastErr = err
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, postgresQuoteIdentifier(b.tableName))
	if _, err := db.ExecContext(ctx, query); err != nil {
		_ = db.Close()
		b.lastErr = err
		return nil, fmt.Errorf("%w: error creating table: %w", ErrBackendUnavailable, err)
	}

	b.db = db
	b.lastErr = nil
	return db, nil
}

func postgresQuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
