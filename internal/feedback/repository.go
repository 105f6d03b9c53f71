package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hearthline/hearth-core/internal/capability"
)

// Repository defines storage for user overlays and feedback records.
type Repository interface {
	GetOverlay(ctx context.Context, userID string) (*capability.UserOverlay, error)
	SaveOverlay(ctx context.Context, overlay *capability.UserOverlay) error
	ListOverlayUserIDs(ctx context.Context) ([]string, error)

	InsertFeedback(ctx context.Context, record *capability.FeedbackRecord) error
	ListFeedback(ctx context.Context, userID string, limit int) ([]capability.FeedbackRecord, error)
	PurgeFeedbackBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SQLiteRepository implements Repository against SQLite. Overlays are
// stored as one JSON document per user; the document layout matches the
// UserOverlay wire form.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository using the provided database handle.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetOverlay loads a user's overlay document.
//
// Returns:
//   - *capability.UserOverlay: the decoded overlay
//   - error: ErrOverlayNotFound when the user has no overlay yet
func (r *SQLiteRepository) GetOverlay(ctx context.Context, userID string) (*capability.UserOverlay, error) {
	var doc string
	err := r.db.QueryRowContext(ctx,
		`SELECT overlay FROM user_overlays WHERE user_id = ?`, userID,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOverlayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying overlay for %s: %w", userID, err)
	}

	var overlay capability.UserOverlay
	if err := json.Unmarshal([]byte(doc), &overlay); err != nil {
		return nil, fmt.Errorf("decoding overlay for %s: %w", userID, err)
	}
	return &overlay, nil
}

// SaveOverlay upserts a user's overlay document.
func (r *SQLiteRepository) SaveOverlay(ctx context.Context, overlay *capability.UserOverlay) error {
	doc, err := json.Marshal(overlay)
	if err != nil {
		return fmt.Errorf("encoding overlay for %s: %w", overlay.UserID, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO user_overlays (user_id, overlay, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			overlay    = excluded.overlay,
			updated_at = excluded.updated_at`,
		overlay.UserID, string(doc), now, now,
	)
	if err != nil {
		return fmt.Errorf("saving overlay for %s: %w", overlay.UserID, err)
	}
	return nil
}

// ListOverlayUserIDs returns the ids of all users holding an overlay.
func (r *SQLiteRepository) ListOverlayUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM user_overlays ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("listing overlay users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning overlay user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertFeedback appends one immutable feedback record.
func (r *SQLiteRepository) InsertFeedback(ctx context.Context, record *capability.FeedbackRecord) error {
	var data, snapshot any
	if record.Data != nil {
		b, err := json.Marshal(record.Data)
		if err != nil {
			return fmt.Errorf("encoding feedback data: %w", err)
		}
		data = string(b)
	}
	if record.Context != nil {
		b, err := json.Marshal(record.Context)
		if err != nil {
			return fmt.Errorf("encoding feedback context: %w", err)
		}
		snapshot = string(b)
	}

	var success any
	if record.Success != nil {
		if *record.Success {
			success = 1
		} else {
			success = 0
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feedback_records
			(id, user_id, recommendation_id, feedback_type, feedback_data, context, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.UserID, record.RecommendationID, string(record.Type),
		data, snapshot, success, record.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting feedback %s: %w", record.ID, err)
	}
	return nil
}

// ListFeedback returns a user's feedback records, most recent first.
func (r *SQLiteRepository) ListFeedback(ctx context.Context, userID string, limit int) ([]capability.FeedbackRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, recommendation_id, feedback_type, feedback_data, context, success, created_at
		FROM feedback_records
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing feedback for %s: %w", userID, err)
	}
	defer rows.Close()

	var records []capability.FeedbackRecord
	for rows.Next() {
		record, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// PurgeFeedbackBefore deletes feedback records created before cutoff and
// returns how many were removed.
func (r *SQLiteRepository) PurgeFeedbackBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM feedback_records WHERE created_at < ?`,
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("purging feedback before %s: %w", cutoff, err)
	}
	return result.RowsAffected()
}

func scanFeedback(rows *sql.Rows) (*capability.FeedbackRecord, error) {
	var (
		record        capability.FeedbackRecord
		feedbackType  string
		data, snap    sql.NullString
		success       sql.NullInt64
		createdAt     string
	)
	if err := rows.Scan(
		&record.ID, &record.UserID, &record.RecommendationID, &feedbackType,
		&data, &snap, &success, &createdAt,
	); err != nil {
		return nil, fmt.Errorf("scanning feedback row: %w", err)
	}

	record.Type = capability.FeedbackType(feedbackType)
	if data.Valid && data.String != "" {
		if err := json.Unmarshal([]byte(data.String), &record.Data); err != nil {
			return nil, fmt.Errorf("decoding feedback data for %s: %w", record.ID, err)
		}
	}
	if snap.Valid && snap.String != "" {
		record.Context = &capability.ContextSnapshot{}
		if err := json.Unmarshal([]byte(snap.String), record.Context); err != nil {
			return nil, fmt.Errorf("decoding feedback context for %s: %w", record.ID, err)
		}
	}
	if success.Valid {
		v := success.Int64 == 1
		record.Success = &v
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		record.CreatedAt = t
	}
	return &record, nil
}
