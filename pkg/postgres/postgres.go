// Package postgres opens the bun database handle used by the durable store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Config carries connection settings, loaded with the POSTGRES_ prefix.
type Config struct {
	DSN          string        `envconfig:"DSN" required:"true"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" default:"10"`
	PingTimeout  time.Duration `envconfig:"PING_TIMEOUT" default:"5s"`
}

// Open dials Postgres and verifies the connection before returning the
// handle. Callers own closing the returned DB.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	conn := pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithDialTimeout(cfg.DialTimeout),
		pgdriver.WithReadTimeout(cfg.ReadTimeout),
		pgdriver.WithWriteTimeout(cfg.WriteTimeout),
	)
	sqldb := sql.OpenDB(conn)
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)

	db := bun.NewDB(sqldb, pgdialect.New())

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}
