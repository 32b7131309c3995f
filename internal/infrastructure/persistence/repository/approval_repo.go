package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusworks/timesheet-approval/internal/application/port"
	"github.com/campusworks/timesheet-approval/internal/domain/entity"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
	"github.com/campusworks/timesheet-approval/internal/infrastructure/persistence/sqlite"
)

// ApprovalRepository implements port.ApprovalRepository. The table is
// append-only; there are no update or delete operations.
type ApprovalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval record repository
func NewApprovalRepository(db *sql.DB, logger *zap.Logger) port.ApprovalRepository {
	return &ApprovalRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends an approval record
func (r *ApprovalRepository) Create(ctx context.Context, record *entity.ApprovalRecord) error {
	query := `
		INSERT INTO approval_records (
			timesheet_id, actor_id, action,
			previous_status, new_status, comment, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		record.TimesheetID,
		record.ActorID,
		string(record.Action),
		string(record.PreviousStatus),
		string(record.NewStatus),
		record.Comment,
		record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create approval record", zap.Error(err))
		return fmt.Errorf("failed to create approval record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// ListByTimesheet returns a timesheet's audit trail in chronological order
func (r *ApprovalRepository) ListByTimesheet(ctx context.Context, timesheetID int64) ([]*entity.ApprovalRecord, error) {
	query := `
		SELECT id, timesheet_id, actor_id, action,
			previous_status, new_status, comment, created_at
		FROM approval_records
		WHERE timesheet_id = ?
		ORDER BY created_at, id
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, timesheetID)
	if err != nil {
		r.logger.Error("Failed to list approval records",
			zap.Int64("timesheet_id", timesheetID), zap.Error(err))
		return nil, fmt.Errorf("failed to list approval records: %w", err)
	}
	defer rows.Close()

	var records []*entity.ApprovalRecord
	for rows.Next() {
		var record entity.ApprovalRecord
		var action, prevStatus, newStatus string

		err := rows.Scan(
			&record.ID,
			&record.TimesheetID,
			&record.ActorID,
			&action,
			&prevStatus,
			&newStatus,
			&record.Comment,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval record: %w", err)
		}

		record.Action = workflow.Action(action)
		record.PreviousStatus = workflow.Status(prevStatus)
		record.NewStatus = workflow.Status(newStatus)
		records = append(records, &record)
	}
	return records, rows.Err()
}

// CountByTimesheet returns the number of records in a timesheet's trail
func (r *ApprovalRepository) CountByTimesheet(ctx context.Context, timesheetID int64) (int, error) {
	var count int
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM approval_records WHERE timesheet_id = ?", timesheetID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count approval records: %w", err)
	}
	return count, nil
}

// getExecutor returns appropriate executor based on context
func (r *ApprovalRepository) getExecutor(ctx context.Context) executor {
	if tx, ok := sqlite.TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.ApprovalRepository = (*ApprovalRepository)(nil)
