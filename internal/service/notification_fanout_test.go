package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"NetSentryAPI/internal/models"
)

type recordedPush struct {
	UserID  string
	Channel string
	Payload interface{}
}

// recordingPusher captures pushes; offline simulates a user with no sessions.
type recordingPusher struct {
	mu      sync.Mutex
	pushes  []recordedPush
	offline bool
}

func (p *recordingPusher) SendToUser(userID, channel string, payload interface{}) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.offline {
		return false
	}
	p.pushes = append(p.pushes, recordedPush{UserID: userID, Channel: channel, Payload: payload})
	return true
}

func (p *recordingPusher) all() []recordedPush {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedPush(nil), p.pushes...)
}

// inlineRunner executes tasks synchronously, keeping tests deterministic.
type inlineRunner struct{ reject bool }

func (r *inlineRunner) Submit(task func()) bool {
	if r.reject {
		return false
	}
	task()
	return true
}

func newTestFanout(events <-chan models.AlertEvent, runner TaskRunner, pusher Pusher, repo *fakeAlertRepo) *NotificationFanout {
	return NewNotificationFanout(events, runner, pusher, repo, zap.NewNop())
}

func TestFanout_NewAlertPushedToOwnerChannel(t *testing.T) {
	pusher := &recordingPusher{}
	fanout := newTestFanout(nil, &inlineRunner{}, pusher, newFakeAlertRepo())

	alert := &models.Alert{ID: 1, UserID: "u1", Title: "R1 down"}
	fanout.Dispatch(models.AlertEvent{Kind: models.EventNewAlert, UserID: "u1", Alert: alert})

	pushes := pusher.all()
	require.Len(t, pushes, 1)
	assert.Equal(t, "u1", pushes[0].UserID)
	assert.Equal(t, ChannelNewAlert, pushes[0].Channel)
	assert.Equal(t, alert, pushes[0].Payload)
}

func TestFanout_UpdatedAlertUsesUpdateChannel(t *testing.T) {
	pusher := &recordingPusher{}
	fanout := newTestFanout(nil, &inlineRunner{}, pusher, newFakeAlertRepo())

	fanout.Dispatch(models.AlertEvent{
		Kind:   models.EventUpdatedAlert,
		UserID: "u1",
		Alert:  &models.Alert{ID: 2, UserID: "u1"},
	})

	pushes := pusher.all()
	require.Len(t, pushes, 1)
	assert.Equal(t, ChannelUpdatedAlert, pushes[0].Channel)
}

func TestFanout_StatisticsRecomputedFromStore(t *testing.T) {
	repo := newFakeAlertRepo()
	require.NoError(t, repo.Create(context.Background(), &models.Alert{
		UserID:   "u1",
		Status:   models.StatusActive,
		Severity: models.SeverityCritical,
	}))

	pusher := &recordingPusher{}
	fanout := newTestFanout(nil, &inlineRunner{}, pusher, repo)

	fanout.Dispatch(models.AlertEvent{Kind: models.EventStatisticsUpdate, UserID: "u1"})

	pushes := pusher.all()
	require.Len(t, pushes, 1)
	assert.Equal(t, ChannelStatistics, pushes[0].Channel)
	stats, ok := pushes[0].Payload.(*models.AlertStatistics)
	require.True(t, ok)
	assert.Equal(t, 1, stats.ActiveCount)
	assert.Equal(t, 1, stats.CriticalCount)
	assert.Equal(t, 1, stats.UnacknowledgedCount)
}

func TestFanout_OfflineUserIsDroppedSilently(t *testing.T) {
	pusher := &recordingPusher{offline: true}
	fanout := newTestFanout(nil, &inlineRunner{}, pusher, newFakeAlertRepo())

	// Must not panic or error; failure stays inside the fanout.
	fanout.Dispatch(models.AlertEvent{
		Kind:   models.EventNewAlert,
		UserID: "u1",
		Alert:  &models.Alert{ID: 1, UserID: "u1"},
	})
	assert.Empty(t, pusher.all())
}

func TestFanout_RunConsumesUntilStreamCloses(t *testing.T) {
	events := make(chan models.AlertEvent, 4)
	pusher := &recordingPusher{}
	fanout := newTestFanout(events, &inlineRunner{}, pusher, newFakeAlertRepo())

	events <- models.AlertEvent{Kind: models.EventNewAlert, UserID: "u1", Alert: &models.Alert{ID: 1, UserID: "u1"}}
	events <- models.AlertEvent{Kind: models.EventUpdatedAlert, UserID: "u1", Alert: &models.Alert{ID: 1, UserID: "u1"}}
	close(events)

	done := make(chan struct{})
	go func() {
		fanout.Run()
		close(done)
	}()
	<-done

	assert.Len(t, pusher.all(), 2)
}

func TestFanout_PoolSaturationDropsEvent(t *testing.T) {
	events := make(chan models.AlertEvent, 1)
	pusher := &recordingPusher{}
	fanout := newTestFanout(events, &inlineRunner{reject: true}, pusher, newFakeAlertRepo())

	events <- models.AlertEvent{Kind: models.EventNewAlert, UserID: "u1", Alert: &models.Alert{ID: 1, UserID: "u1"}}
	close(events)

	done := make(chan struct{})
	go func() {
		fanout.Run()
		close(done)
	}()
	<-done

	assert.Empty(t, pusher.all(), "rejected task means the notification is lost, not retried")
}

func TestFanout_SendDeviceStatusUpdate(t *testing.T) {
	pusher := &recordingPusher{}
	fanout := newTestFanout(nil, &inlineRunner{}, pusher, newFakeAlertRepo())

	fanout.SendDeviceStatusUpdate("42", "OFFLINE", "u1")

	pushes := pusher.all()
	require.Len(t, pushes, 1)
	assert.Equal(t, ChannelDeviceStatus, pushes[0].Channel)
	update, ok := pushes[0].Payload.(models.DeviceStatusUpdate)
	require.True(t, ok)
	assert.Equal(t, "42", update.DeviceID)
	assert.Equal(t, "OFFLINE", update.Status)
	assert.False(t, update.Timestamp.IsZero())
}
