package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/campusworks/timesheet-approval/internal/application/port"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const txKey contextKey = "tx"

// Config holds database configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB wraps sql.DB and implements TransactionManager
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// Open creates the database connection with WAL mode enabled and the
// connection pool configured
func Open(cfg Config, logger *zap.Logger) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", cfg.Path)

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established", zap.String("path", cfg.Path))
	return &DB{DB: sqlDB, logger: logger}, nil
}

// WithTransaction implements port.TransactionManager
// Executes the provided function within a database transaction
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Reuse an existing transaction if one is already in flight
	if tx := extractTx(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			db.logger.Error("Transaction panicked, rolled back", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		db.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	db.logger.Info("Closing database connection")
	return db.DB.Close()
}

// extractTx retrieves transaction from context if present
func extractTx(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return nil
}

// TxFromContext returns the transaction carried by ctx, if any.
// Repositories use this to route queries through an in-flight transaction.
func TxFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx := extractTx(ctx)
	return tx, tx != nil
}

// Verify interface compliance
var _ port.TransactionManager = (*DB)(nil)
