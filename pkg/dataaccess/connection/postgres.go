package connection

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbMonitoring "github.com/Jacobbrewer1/supportbot/pkg/dataaccess/monitoring"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresDriver is the database/sql driver name registered by pgx.
const PostgresDriver = "pgx"

// Postgres describes a postgres connection.
type Postgres struct {
	ConnectionString string

	// MaxOpenConns caps the pool size. Zero keeps the driver default.
	MaxOpenConns int

	// ConnMaxLifetime recycles connections after the given duration. Zero keeps them forever.
	ConnMaxLifetime time.Duration
}

// Connect opens a pool and pings it. The pool is closed again if the ping fails.
func (p *Postgres) Connect(ctx context.Context) (*sql.DB, error) {
	if p.ConnectionString == "" {
		return nil, fmt.Errorf("postgres: %w", ErrNoConnectionString)
	}

	db, err := sql.Open(PostgresDriver, p.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("error opening postgres: %w", err)
	}

	if p.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.MaxOpenConns)
	}
	if p.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(p.ConnMaxLifetime)
	}

	done := dbMonitoring.Observe("connection", "ping", "postgres", "-")
	err = db.PingContext(ctx)
	done()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error pinging postgres: %w", err)
	}
	return db, nil
}
