package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"NetSentryAPI/internal/models"
	"NetSentryAPI/internal/repository"
)

// Realtime channel names, one private stream per owning user.
const (
	ChannelNewAlert     = "alerts/new"
	ChannelUpdatedAlert = "alerts/update"
	ChannelStatistics   = "alerts/statistics"
	ChannelDeviceStatus = "device/status"
)

// Pusher delivers a payload to one user's live sessions. The boolean
// reports best-effort delivery, not client receipt.
type Pusher interface {
	SendToUser(userID, channel string, payload interface{}) bool
}

// TaskRunner is the async boundary fanout work runs on.
type TaskRunner interface {
	Submit(task func()) bool
}

// NotificationFanout consumes alert events and pushes snapshots to the
// owning user's channels. Delivery is at-most-once: every failure is
// logged and dropped, never retried, and never reaches the correlator.
type NotificationFanout struct {
	events <-chan models.AlertEvent
	pool   TaskRunner
	pusher Pusher
	repo   repository.IAlertRepository
	log    *zap.Logger
}

func NewNotificationFanout(events <-chan models.AlertEvent, pool TaskRunner, pusher Pusher, repo repository.IAlertRepository, log *zap.Logger) *NotificationFanout {
	return &NotificationFanout{
		events: events,
		pool:   pool,
		pusher: pusher,
		repo:   repo,
		log:    log,
	}
}

// Run drains the event stream until the publisher closes it. Each event
// is dispatched on a pool worker, never on the consuming goroutine's
// producer side.
func (f *NotificationFanout) Run() {
	f.log.Info("notification fanout started")
	for event := range f.events {
		event := event
		if !f.pool.Submit(func() { f.Dispatch(event) }) {
			f.log.Warn("notification dropped: pool saturated",
				zap.String("kind", event.Kind),
				zap.String("user_id", event.UserID))
		}
	}
	f.log.Info("notification fanout stopped")
}

// Dispatch delivers one event to the owning user.
func (f *NotificationFanout) Dispatch(event models.AlertEvent) {
	switch event.Kind {
	case models.EventNewAlert:
		f.push(event.UserID, ChannelNewAlert, event.Alert)
	case models.EventUpdatedAlert:
		f.push(event.UserID, ChannelUpdatedAlert, event.Alert)
	case models.EventStatisticsUpdate:
		f.pushStatistics(event.UserID)
	default:
		f.log.Warn("unknown event kind", zap.String("kind", event.Kind))
	}
}

// SendDeviceStatusUpdate is the low-level push monitoring collaborators
// invoke directly, outside the alert event pipeline.
func (f *NotificationFanout) SendDeviceStatusUpdate(deviceID, status, userID string) {
	f.push(userID, ChannelDeviceStatus, models.DeviceStatusUpdate{
		DeviceID:  deviceID,
		Status:    status,
		Timestamp: time.Now(),
	})
}

func (f *NotificationFanout) pushStatistics(userID string) {
	stats, err := f.repo.Statistics(context.Background(), userID)
	if err != nil {
		f.log.Error("failed to compute statistics for push",
			zap.String("user_id", userID), zap.Error(err))
		return
	}
	f.push(userID, ChannelStatistics, stats)
}

func (f *NotificationFanout) push(userID, channel string, payload interface{}) {
	if !f.pusher.SendToUser(userID, channel, payload) {
		f.log.Debug("push not delivered, user offline",
			zap.String("user_id", userID),
			zap.String("channel", channel))
	}
}
