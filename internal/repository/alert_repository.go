package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"NetSentryAPI/internal/models"
)

var (
	// ErrNotFound is returned when an alert does not exist or is not owned
	// by the requesting user. Callers must treat both cases identically.
	ErrNotFound = errors.New("alert not found")

	// ErrStatusConflict is returned when a guarded update matched no row
	// because the alert's status changed underneath the caller. The status
	// predicate lives in the UPDATE itself so concurrent mutations cannot
	// interleave between a read and a write.
	ErrStatusConflict = errors.New("alert status changed concurrently")
)

const alertColumns = `id, user_id, alert_key, type, severity, source_type, source_id, source_name,
		       title, description, status, occurrence_count, first_occurrence, last_occurrence,
		       acknowledged, acknowledged_by, acknowledged_at, ack_comment, resolved_by, resolved_at`

// IAlertRepository defines the persistence operations for alerts.
type IAlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByIDForUser(ctx context.Context, id int64, userID string) (*models.Alert, error)
	FindActiveByKey(ctx context.Context, userID, alertKey string) (*models.Alert, error)
	RecordOccurrence(ctx context.Context, id int64, lastOccurrence time.Time, description string) error
	Acknowledge(ctx context.Context, id int64, userID, comment string, at time.Time) error
	Resolve(ctx context.Context, id int64, userID string, at time.Time) error
	Clear(ctx context.Context, id int64, userID string) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Alert, error)
	ListByStatus(ctx context.Context, userID, status string) ([]models.Alert, error)
	ListBySeverity(ctx context.Context, userID, severity string) ([]models.Alert, error)
	ListUnacknowledged(ctx context.Context, userID string) ([]models.Alert, error)
	ListSince(ctx context.Context, userID string, since time.Time) ([]models.Alert, error)
	ListBySource(ctx context.Context, userID, sourceType, sourceID string) ([]models.Alert, error)
	Statistics(ctx context.Context, userID string) (*models.AlertStatistics, error)
}

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new alert record and fills in the generated ID.
func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (
			user_id, alert_key, type, severity, source_type, source_id, source_name,
			title, description, status, occurrence_count, first_occurrence, last_occurrence,
			acknowledged
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx, query,
		alert.UserID,
		alert.AlertKey,
		alert.Type,
		alert.Severity,
		alert.SourceType,
		alert.SourceID,
		alert.SourceName,
		alert.Title,
		alert.Description,
		alert.Status,
		alert.OccurrenceCount,
		alert.FirstOccurrence,
		alert.LastOccurrence,
		alert.Acknowledged,
	).Scan(&alert.ID)

	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// GetByIDForUser retrieves one alert scoped to its owner. A missing row
// and a foreign row both yield (nil, nil).
func (r *AlertRepository) GetByIDForUser(ctx context.Context, id int64, userID string) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1 AND user_id = $2`

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert by id: %w", err)
	}
	return alert, nil
}

// FindActiveByKey looks up the single ACTIVE alert for a (user, key) pair,
// or (nil, nil) when no such row exists.
func (r *AlertRepository) FindActiveByKey(ctx context.Context, userID, alertKey string) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE user_id = $1 AND alert_key = $2 AND status = $3`

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, userID, alertKey, models.StatusActive))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active alert by key: %w", err)
	}
	return alert, nil
}

// RecordOccurrence bumps the occurrence bookkeeping after the suppression
// window has elapsed. The latest description wins. Only an ACTIVE row may
// be bumped; a row closed since the caller's lookup yields
// ErrStatusConflict.
func (r *AlertRepository) RecordOccurrence(ctx context.Context, id int64, lastOccurrence time.Time, description string) error {
	query := `
		UPDATE alerts
		SET occurrence_count = occurrence_count + 1, last_occurrence = $1, description = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, lastOccurrence, description, id, models.StatusActive)
	if err != nil {
		return fmt.Errorf("failed to record occurrence: %w", err)
	}
	return requireTransition(result)
}

// Acknowledge marks an owner's alert as acknowledged. The ACTIVE predicate
// sits in the UPDATE so the transition cannot race a concurrent mutation.
func (r *AlertRepository) Acknowledge(ctx context.Context, id int64, userID, comment string, at time.Time) error {
	query := `
		UPDATE alerts
		SET status = $1, acknowledged = TRUE, acknowledged_by = $2, acknowledged_at = $3, ack_comment = $4
		WHERE id = $5 AND user_id = $6 AND status = $7
	`
	result, err := r.db.ExecContext(ctx, query, models.StatusAcknowledged, userID, at, comment, id, userID, models.StatusActive)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	return requireTransition(result)
}

// Resolve marks an owner's alert as resolved, from ACTIVE or ACKNOWLEDGED
// only. A row a concurrent clear already made CLEARED stays CLEARED.
func (r *AlertRepository) Resolve(ctx context.Context, id int64, userID string, at time.Time) error {
	query := `
		UPDATE alerts
		SET status = $1, resolved_by = $2, resolved_at = $3
		WHERE id = $4 AND user_id = $5 AND status IN ($6, $7)
	`
	result, err := r.db.ExecContext(ctx, query, models.StatusResolved, userID, at, id, userID, models.StatusActive, models.StatusAcknowledged)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	return requireTransition(result)
}

// Clear soft-deletes an owner's alert. The row stays for history. Clear is
// valid from any state and writing CLEARED over CLEARED changes nothing,
// so no status predicate is needed.
func (r *AlertRepository) Clear(ctx context.Context, id int64, userID string) error {
	query := `UPDATE alerts SET status = $1 WHERE id = $2 AND user_id = $3`
	result, err := r.db.ExecContext(ctx, query, models.StatusCleared, id, userID)
	if err != nil {
		return fmt.Errorf("failed to clear alert: %w", err)
	}
	return requireRow(result)
}

func (r *AlertRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE user_id = $1 ORDER BY last_occurrence DESC LIMIT $2 OFFSET $3`
	return r.queryAlerts(ctx, query, userID, limit, offset)
}

func (r *AlertRepository) ListByStatus(ctx context.Context, userID, status string) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE user_id = $1 AND status = $2 ORDER BY last_occurrence DESC`
	return r.queryAlerts(ctx, query, userID, status)
}

func (r *AlertRepository) ListBySeverity(ctx context.Context, userID, severity string) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE user_id = $1 AND severity = $2 ORDER BY last_occurrence DESC`
	return r.queryAlerts(ctx, query, userID, severity)
}

func (r *AlertRepository) ListUnacknowledged(ctx context.Context, userID string) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE user_id = $1 AND acknowledged = FALSE AND status = $2 ORDER BY last_occurrence DESC`
	return r.queryAlerts(ctx, query, userID, models.StatusActive)
}

func (r *AlertRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE user_id = $1 AND last_occurrence >= $2 ORDER BY last_occurrence DESC`
	return r.queryAlerts(ctx, query, userID, since)
}

func (r *AlertRepository) ListBySource(ctx context.Context, userID, sourceType, sourceID string) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE user_id = $1 AND source_type = $2 AND source_id = $3 ORDER BY last_occurrence DESC`
	return r.queryAlerts(ctx, query, userID, sourceType, sourceID)
}

// Statistics computes the per-user summary pushed on the statistics channel.
func (r *AlertRepository) Statistics(ctx context.Context, userID string) (*models.AlertStatistics, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'ACTIVE'),
			COUNT(*) FILTER (WHERE status = 'ACTIVE' AND severity = 'CRITICAL'),
			COUNT(*) FILTER (WHERE status = 'ACTIVE' AND acknowledged = FALSE)
		FROM alerts
		WHERE user_id = $1
	`

	stats := &models.AlertStatistics{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.ActiveCount,
		&stats.CriticalCount,
		&stats.UnacknowledgedCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute alert statistics: %w", err)
	}
	return stats, nil
}

func (r *AlertRepository) queryAlerts(ctx context.Context, query string, args ...interface{}) ([]models.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var a models.Alert
	var ackBy, ackComment, resolvedBy sql.NullString
	var ackAt, resolvedAt sql.NullTime

	err := row.Scan(
		&a.ID, &a.UserID, &a.AlertKey, &a.Type, &a.Severity, &a.SourceType, &a.SourceID, &a.SourceName,
		&a.Title, &a.Description, &a.Status, &a.OccurrenceCount, &a.FirstOccurrence, &a.LastOccurrence,
		&a.Acknowledged, &ackBy, &ackAt, &ackComment, &resolvedBy, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	a.AcknowledgedBy = ackBy.String
	a.AckComment = ackComment.String
	a.ResolvedBy = resolvedBy.String
	if ackAt.Valid {
		t := ackAt.Time
		a.AcknowledgedAt = &t
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	return &a, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// requireTransition is requireRow for status-guarded updates: the caller
// has already verified the row exists and is owned, so zero matched rows
// means the status predicate lost a race.
func requireTransition(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStatusConflict
	}
	return nil
}
