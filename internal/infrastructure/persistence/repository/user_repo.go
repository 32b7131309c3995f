package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusworks/timesheet-approval/internal/application/port"
	"github.com/campusworks/timesheet-approval/internal/domain/entity"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
	"github.com/campusworks/timesheet-approval/internal/infrastructure/persistence/sqlite"
)

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (email, name, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		user.Email,
		user.Name,
		string(user.Role),
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = id
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `
		SELECT id, email, name, role, is_active, created_at, updated_at
		FROM users
		WHERE id = ?
	`
	return r.getOne(ctx, query, id)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `
		SELECT id, email, name, role, is_active, created_at, updated_at
		FROM users
		WHERE email = ?
	`
	return r.getOne(ctx, query, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (*entity.User, error) {
	var user entity.User
	var role string

	err := r.getExecutor(ctx).QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Role = workflow.Role(role)
	return &user, nil
}

// getExecutor returns appropriate executor based on context
func (r *UserRepository) getExecutor(ctx context.Context) executor {
	if tx, ok := sqlite.TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
