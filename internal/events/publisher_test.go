package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"NetSentryAPI/internal/models"
)

func TestPublisher_DeliversInOrder(t *testing.T) {
	p := NewPublisher(4, zap.NewNop())

	p.Publish(models.AlertEvent{Kind: models.EventNewAlert, UserID: "u1"})
	p.Publish(models.AlertEvent{Kind: models.EventUpdatedAlert, UserID: "u1"})

	first := <-p.Events()
	second := <-p.Events()
	assert.Equal(t, models.EventNewAlert, first.Kind)
	assert.Equal(t, models.EventUpdatedAlert, second.Kind)
}

func TestPublisher_DropsWhenBufferFull(t *testing.T) {
	p := NewPublisher(1, zap.NewNop())

	p.Publish(models.AlertEvent{Kind: models.EventNewAlert, UserID: "u1"})
	p.Publish(models.AlertEvent{Kind: models.EventUpdatedAlert, UserID: "u1"})

	got := <-p.Events()
	assert.Equal(t, models.EventNewAlert, got.Kind)

	select {
	case evt, ok := <-p.Events():
		require.False(t, ok, "unexpected buffered event %v", evt)
	default:
		// second event was dropped, buffer is empty
	}
}

func TestPublisher_CloseStopsStream(t *testing.T) {
	p := NewPublisher(1, zap.NewNop())
	p.Close()

	_, ok := <-p.Events()
	assert.False(t, ok)

	// Publishing after close must not panic.
	p.Publish(models.AlertEvent{Kind: models.EventNewAlert, UserID: "u1"})
	p.Close()
}
