package events

import (
	"sync"

	"go.uber.org/zap"

	"NetSentryAPI/internal/models"
)

// Publisher decouples the correlator's transactional write path from
// asynchronous notification delivery. Publish never blocks the producer:
// when the buffer is full the event is dropped and logged, which is
// acceptable because delivery is best-effort by contract.
type Publisher struct {
	ch  chan models.AlertEvent
	log *zap.Logger

	mu     sync.Mutex
	closed bool
}

func NewPublisher(bufferSize int, log *zap.Logger) *Publisher {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Publisher{
		ch:  make(chan models.AlertEvent, bufferSize),
		log: log,
	}
}

// Publish hands an event to the consumer side. Callers must only invoke
// this after the underlying store mutation has committed.
func (p *Publisher) Publish(event models.AlertEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.log.Warn("event dropped: publisher closed",
			zap.String("kind", event.Kind),
			zap.String("user_id", event.UserID))
		return
	}

	select {
	case p.ch <- event:
	default:
		p.log.Warn("event dropped: buffer full",
			zap.String("kind", event.Kind),
			zap.String("user_id", event.UserID))
	}
}

// Events exposes the consumer end of the stream. The channel is closed
// by Close, which signals consumers to stop.
func (p *Publisher) Events() <-chan models.AlertEvent {
	return p.ch
}

// Close stops the stream. Publish calls after Close are dropped.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.ch)
}
