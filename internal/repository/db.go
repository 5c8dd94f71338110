package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured run-log database and makes sure its
// tables exist.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*RunRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(cfg.Driver) {
	case DriverPostgres:
		return OpenPostgres(ctx, cfg, logger)
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.DSN, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown database driver %q", cfg.Driver), common.ErrInvalidInput)
	}
}

// OpenPostgres creates a pgx pool and wraps it as *sql.DB.
func OpenPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*RunRepository, error) {
	logger.Info("connecting to database", "driver", DriverPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database url", "error", err)
		return nil, common.NewAppError("CONFIG_ERROR", "invalid database url", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "invoice-extractor"

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("%w: connect: %w", common.ErrDatabase, err)
	}

	repo := newRunRepository(stdlib.OpenDBFromPool(pool), postgresDialect, logger)
	repo.closers = append(repo.closers, func() error { pool.Close(); return nil })
	if err := repo.migrate(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}
	logger.Info("successfully connected to database", "driver", DriverPostgres)
	return repo, nil
}

// OpenSQLite opens a modernc SQLite database. ":memory:" keeps the log in
// process memory.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*RunRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dsn == "" {
		dsn = "invoices.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", common.ErrDatabase, err)
	}
	// One writer; an in-memory database also lives on a single connection.
	db.SetMaxOpenConns(1)

	repo := newRunRepository(db, sqliteDialect, logger)
	if err := repo.migrate(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}
	logger.Info("successfully opened database", "driver", DriverSQLite, "dsn", dsn)
	return repo, nil
}

// Close closes the database connections gracefully.
func (r *RunRepository) Close() error {
	r.logger.Info("closing database connections")
	err := r.db.Close()
	for _, c := range r.closers {
		if cerr := c(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		r.logger.Error("failed to close database", "error", err)
	}
	return err
}

// HealthCheck pings the database.
func (r *RunRepository) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := r.db.PingContext(ctx); err != nil {
		r.logger.Error("database ping failed", "error", err)
		return fmt.Errorf("%w: ping: %w", common.ErrDatabase, err)
	}
	r.logger.Debug("database ping successful")
	return nil
}
