package orchestration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Execution statuses mirror the plan_executions.status column.
const (
	StatusDispatched = "dispatched"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Execution is one row of dispatch history.
type Execution struct {
	ID               string     `json:"id"`
	PlanID           string     `json:"plan_id"`
	UserID           string     `json:"user_id"`
	RecommendationID string     `json:"recommendation_id"`
	Status           string     `json:"status"`
	DispatchedAt     time.Time  `json:"dispatched_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Error            string     `json:"error,omitempty"`
}

// Repository defines storage for plan execution history.
type Repository interface {
	InsertExecution(ctx context.Context, exec *Execution) error
	CompleteExecution(ctx context.Context, planID string, success bool, errMsg string, at time.Time) error
	GetExecutionByPlan(ctx context.Context, planID string) (*Execution, error)
	ListExecutions(ctx context.Context, userID string, limit int) ([]Execution, error)
}

// SQLiteRepository implements Repository against SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository using the provided database handle.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// InsertExecution records a freshly dispatched plan.
func (r *SQLiteRepository) InsertExecution(ctx context.Context, exec *Execution) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO plan_executions
			(id, plan_id, user_id, recommendation_id, status, dispatched_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		exec.ID, exec.PlanID, exec.UserID, exec.RecommendationID,
		exec.Status, exec.DispatchedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting execution %s: %w", exec.ID, err)
	}
	return nil
}

// CompleteExecution marks a dispatched plan as completed or failed.
func (r *SQLiteRepository) CompleteExecution(ctx context.Context, planID string, success bool, errMsg string, at time.Time) error {
	status := StatusCompleted
	if !success {
		status = StatusFailed
	}

	var errCol any
	if errMsg != "" {
		errCol = errMsg
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE plan_executions
		SET status = ?, completed_at = ?, error = ?
		WHERE plan_id = ? AND status = ?`,
		status, at.UTC().Format(time.RFC3339), errCol, planID, StatusDispatched,
	)
	if err != nil {
		return fmt.Errorf("completing execution for plan %s: %w", planID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrExecutionNotFound
	}
	return nil
}

// GetExecutionByPlan returns the execution record for a plan id.
func (r *SQLiteRepository) GetExecutionByPlan(ctx context.Context, planID string) (*Execution, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, plan_id, user_id, recommendation_id, status, dispatched_at, completed_at, error
		FROM plan_executions
		WHERE plan_id = ?`,
		planID,
	)
	exec, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrExecutionNotFound
	}
	return exec, err
}

// ListExecutions returns a user's executions, most recent first.
func (r *SQLiteRepository) ListExecutions(ctx context.Context, userID string, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, plan_id, user_id, recommendation_id, status, dispatched_at, completed_at, error
		FROM plan_executions
		WHERE user_id = ?
		ORDER BY dispatched_at DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing executions for %s: %w", userID, err)
	}
	defer rows.Close()

	var execs []Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *exec)
	}
	return execs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row rowScanner) (*Execution, error) {
	var (
		exec         Execution
		dispatchedAt string
		completedAt  sql.NullString
		errMsg       sql.NullString
	)
	if err := row.Scan(
		&exec.ID, &exec.PlanID, &exec.UserID, &exec.RecommendationID,
		&exec.Status, &dispatchedAt, &completedAt, &errMsg,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning execution row: %w", err)
	}

	if t, err := time.Parse(time.RFC3339, dispatchedAt); err == nil {
		exec.DispatchedAt = t
	}
	if completedAt.Valid {
		if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
			exec.CompletedAt = &t
		}
	}
	exec.Error = errMsg.String
	return &exec, nil
}
