// Package postgres implements the Durable Store (§2) against PostgreSQL
// via pgx, adapting the teacher's connection-pool and unique-violation
// helpers to the settlement gateway's schema.
package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/deltran/settlement-gateway/internal/config"
	"github.com/deltran/settlement-gateway/internal/core/ports"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a connection pool and the logger every repository shares.
type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect builds a pool from cfg and verifies connectivity with a ping.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	pgxCfg, err := cfg.PgxConfig(ctx)
	if err != nil {
		logger.Error("failed to build pgx config", "error", err)
		return nil, err
	}

	logger.Info("connecting to database", "host", cfg.Host, "port", cfg.Port, "database", cfg.Name)

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		logger.Error("failed to create connection pool", "error", err)
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		pool.Close()
		return nil, err
	}

	logger.Info("successfully connected to database", "max_conns", pgxCfg.MaxConns, "min_conns", pgxCfg.MinConns)

	return &DB{Pool: pool, logger: logger}, nil
}

func (db *DB) Close() {
	db.logger.Info("closing database connection pool")
	db.Pool.Close()
}

// Ping reports the pool's health for the /health handler (§6.1).
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Name identifies this checker in the /health aggregate.
func (db *DB) Name() string { return "postgres" }

// Check implements handler.HealthChecker.
func (db *DB) Check(ctx context.Context) error { return db.Ping(ctx) }

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505) — used to translate a duplicate idempotency
// key into a domain conflict error instead of a raw driver error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// NewTxRunner adapts db's pool into a service.TxRunner: it begins a
// transaction, hands it to fn as the ports.Executor the repositories' Tx
// methods take, and commits if fn succeeds; the deferred Rollback undoes
// the transaction when fn returns an error or panics. Kept as a free function
// (not a method on any one repository) so a single transaction can span
// the payment and settlement repositories together, which
// SettlementService.CloseBatch requires.
func NewTxRunner(db *DB) func(ctx context.Context, fn func(tx ports.Executor) error) error {
	return func(ctx context.Context, fn func(tx ports.Executor) error) error {
		tx, err := db.Pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}
}
