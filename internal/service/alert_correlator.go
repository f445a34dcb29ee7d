package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"NetSentryAPI/internal/models"
	"NetSentryAPI/internal/repository"
)

// DefaultSuppressionWindow is how long repeat signals for the same active
// alert key update nothing but a returned snapshot.
const DefaultSuppressionWindow = 5 * time.Minute

var (
	// ErrNotFound covers both a missing alert id and one owned by a
	// different user; callers cannot distinguish the two.
	ErrNotFound = repository.ErrNotFound

	// ErrInvalidTransition is returned when a lifecycle mutation is not
	// permitted from the alert's current status.
	ErrInvalidTransition = errors.New("invalid alert state transition")
)

// EventSink receives domain events after a store mutation has committed.
type EventSink interface {
	Publish(event models.AlertEvent)
}

// IAlertCorrelator is the single entry point monitoring collaborators and
// the API layer call into.
type IAlertCorrelator interface {
	CreateOrUpdate(ctx context.Context, signal models.MonitorSignal) (*models.Alert, error)
	Acknowledge(ctx context.Context, id int64, comment, userID string) (*models.Alert, error)
	Resolve(ctx context.Context, id int64, userID string) (*models.Alert, error)
	Clear(ctx context.Context, id int64, userID string) error
	GetAlerts(ctx context.Context, userID string, limit, offset int) ([]models.Alert, error)
	GetAlertsByStatus(ctx context.Context, userID, status string) ([]models.Alert, error)
	GetAlertsBySeverity(ctx context.Context, userID, severity string) ([]models.Alert, error)
	GetUnacknowledged(ctx context.Context, userID string) ([]models.Alert, error)
	GetAlertsSince(ctx context.Context, userID string, since time.Time) ([]models.Alert, error)
	GetAlertsBySource(ctx context.Context, userID, sourceType, sourceID string) ([]models.Alert, error)
	GetStatistics(ctx context.Context, userID string) (*models.AlertStatistics, error)
}

// AlertCorrelator owns alert records: it deduplicates raw monitoring
// signals into lifecycle-managed rows and emits events for the fanout.
type AlertCorrelator struct {
	repo      repository.IAlertRepository
	publisher EventSink
	log       *zap.Logger
	window    time.Duration
	locks     *keyLock

	now func() time.Time
}

func NewAlertCorrelator(repo repository.IAlertRepository, publisher EventSink, window time.Duration, log *zap.Logger) *AlertCorrelator {
	if window <= 0 {
		window = DefaultSuppressionWindow
	}
	return &AlertCorrelator{
		repo:      repo,
		publisher: publisher,
		log:       log,
		window:    window,
		locks:     newKeyLock(),
		now:       time.Now,
	}
}

// CreateOrUpdate turns a raw monitoring signal into a deduplicated alert.
//
// INFO signals are noise at this layer: nothing is persisted or published
// and (nil, nil) is returned. A signal for a key with no ACTIVE row
// creates a fresh alert; this includes keys whose prior row has left
// ACTIVE, which are reopened as a new row so the old one stays for
// history. A recurrence inside the suppression window only returns the
// unchanged existing snapshot.
func (c *AlertCorrelator) CreateOrUpdate(ctx context.Context, signal models.MonitorSignal) (*models.Alert, error) {
	if signal.Severity == models.SeverityInfo {
		return nil, nil
	}
	if !models.ValidSeverity(signal.Severity) {
		return nil, fmt.Errorf("unknown severity %q", signal.Severity)
	}

	key := models.AlertKey(signal.Type, signal.SourceType, signal.SourceID, signal.Severity)

	// The read-check-write below must be serialized per (user, key) or two
	// pollers observing the same fault could both insert an ACTIVE row.
	unlock := c.locks.Lock(signal.UserID + "\x00" + key)
	defer unlock()

	existing, err := c.repo.FindActiveByKey(ctx, signal.UserID, key)
	if err != nil {
		return nil, err
	}

	now := c.now()

	if existing == nil {
		return c.createAlert(ctx, signal, key, now)
	}

	if now.Sub(existing.LastOccurrence) >= c.window {
		if err := c.repo.RecordOccurrence(ctx, existing.ID, now, signal.Description); err != nil {
			// The row left ACTIVE between the lookup and the guarded
			// update. The fault is still live, so reopen it as a fresh
			// row and leave the closed one for history.
			if errors.Is(err, repository.ErrStatusConflict) {
				return c.createAlert(ctx, signal, key, now)
			}
			return nil, err
		}
		existing.OccurrenceCount++
		existing.LastOccurrence = now
		existing.Description = signal.Description

		c.log.Info("alert recurrence recorded",
			zap.Int64("alert_id", existing.ID),
			zap.String("alert_key", key),
			zap.Int("occurrence_count", existing.OccurrenceCount))

		c.publishAlert(models.EventUpdatedAlert, existing)
		return existing, nil
	}

	// Inside the suppression window: no mutation, no event.
	return existing, nil
}

func (c *AlertCorrelator) createAlert(ctx context.Context, signal models.MonitorSignal, key string, now time.Time) (*models.Alert, error) {
	alert := &models.Alert{
		UserID:          signal.UserID,
		AlertKey:        key,
		Type:            signal.Type,
		Severity:        signal.Severity,
		SourceType:      signal.SourceType,
		SourceID:        signal.SourceID,
		SourceName:      signal.SourceName,
		Title:           signal.Title,
		Description:     signal.Description,
		Status:          models.StatusActive,
		OccurrenceCount: 1,
		FirstOccurrence: now,
		LastOccurrence:  now,
	}
	if err := c.repo.Create(ctx, alert); err != nil {
		return nil, err
	}

	c.log.Info("alert created",
		zap.Int64("alert_id", alert.ID),
		zap.String("user_id", alert.UserID),
		zap.String("alert_key", key),
		zap.String("severity", alert.Severity))

	c.publishAlert(models.EventNewAlert, alert)
	return alert, nil
}

// Acknowledge marks an ACTIVE alert as seen by its owner. The pre-read
// only picks the error; the repository UPDATE re-checks the status, so a
// concurrent mutation cannot slip between the check and the write.
func (c *AlertCorrelator) Acknowledge(ctx context.Context, id int64, comment, userID string) (*models.Alert, error) {
	alert, err := c.getOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if alert.Status != models.StatusActive {
		return nil, ErrInvalidTransition
	}

	at := c.now()
	if err := c.repo.Acknowledge(ctx, id, userID, comment, at); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	alert.Status = models.StatusAcknowledged
	alert.Acknowledged = true
	alert.AcknowledgedBy = userID
	alert.AcknowledgedAt = &at
	alert.AckComment = comment

	c.publishAlert(models.EventUpdatedAlert, alert)
	return alert, nil
}

// Resolve closes out the underlying condition. Valid from ACTIVE or
// ACKNOWLEDGED.
func (c *AlertCorrelator) Resolve(ctx context.Context, id int64, userID string) (*models.Alert, error) {
	alert, err := c.getOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if alert.Status != models.StatusActive && alert.Status != models.StatusAcknowledged {
		return nil, ErrInvalidTransition
	}

	at := c.now()
	if err := c.repo.Resolve(ctx, id, userID, at); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	alert.Status = models.StatusResolved
	alert.ResolvedBy = userID
	alert.ResolvedAt = &at

	c.publishAlert(models.EventUpdatedAlert, alert)
	return alert, nil
}

// Clear moves an alert to its terminal soft-deleted state. Unlike every
// other mutation it deliberately publishes no event.
func (c *AlertCorrelator) Clear(ctx context.Context, id int64, userID string) error {
	if _, err := c.getOwned(ctx, id, userID); err != nil {
		return err
	}
	return c.repo.Clear(ctx, id, userID)
}

func (c *AlertCorrelator) GetAlerts(ctx context.Context, userID string, limit, offset int) ([]models.Alert, error) {
	return c.repo.ListByUser(ctx, userID, limit, offset)
}

func (c *AlertCorrelator) GetAlertsByStatus(ctx context.Context, userID, status string) ([]models.Alert, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	return c.repo.ListByStatus(ctx, userID, status)
}

func (c *AlertCorrelator) GetAlertsBySeverity(ctx context.Context, userID, severity string) ([]models.Alert, error) {
	if !models.ValidSeverity(severity) {
		return nil, fmt.Errorf("unknown severity %q", severity)
	}
	return c.repo.ListBySeverity(ctx, userID, severity)
}

func (c *AlertCorrelator) GetUnacknowledged(ctx context.Context, userID string) ([]models.Alert, error) {
	return c.repo.ListUnacknowledged(ctx, userID)
}

func (c *AlertCorrelator) GetAlertsSince(ctx context.Context, userID string, since time.Time) ([]models.Alert, error) {
	return c.repo.ListSince(ctx, userID, since)
}

func (c *AlertCorrelator) GetAlertsBySource(ctx context.Context, userID, sourceType, sourceID string) ([]models.Alert, error) {
	return c.repo.ListBySource(ctx, userID, sourceType, sourceID)
}

func (c *AlertCorrelator) GetStatistics(ctx context.Context, userID string) (*models.AlertStatistics, error) {
	return c.repo.Statistics(ctx, userID)
}

func (c *AlertCorrelator) getOwned(ctx context.Context, id int64, userID string) (*models.Alert, error) {
	alert, err := c.repo.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, ErrNotFound
	}
	return alert, nil
}

// publishAlert hands a full snapshot to the async boundary, then asks the
// fanout to refresh the owner's statistics. Both sends happen only after
// the mutation committed.
func (c *AlertCorrelator) publishAlert(kind string, alert *models.Alert) {
	snapshot := *alert
	c.publisher.Publish(models.AlertEvent{Kind: kind, UserID: alert.UserID, Alert: &snapshot})
	c.publisher.Publish(models.AlertEvent{Kind: models.EventStatisticsUpdate, UserID: alert.UserID})
}
