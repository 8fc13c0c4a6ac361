// Package audit records immutable events describing admission decisions and
// operation outcomes. Writes happen off the request path through a bounded
// queue; when the queue is full or the sink fails, events land in the
// process log instead of being dropped.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docmark/docmark/internal/store"
	"github.com/docmark/docmark/pkg/models"
)

// Recorder is the audit write interface handed to middleware and handlers.
// Record never blocks the caller and never returns an error.
type Recorder interface {
	Record(event models.AuditEvent)
}

// StoreRecorder persists events to the store through a single consumer
// goroutine, so events enqueued in order from one request are written in
// that order.
type StoreRecorder struct {
	store store.Store
	queue chan models.AuditEvent

	done      chan struct{}
	closeOnce sync.Once
}

const insertTimeout = 10 * time.Second

// NewStoreRecorder creates a StoreRecorder with a bounded queue of the given
// size and starts its writer goroutine.
func NewStoreRecorder(s store.Store, queueSize int) *StoreRecorder {
	r := &StoreRecorder{
		store: s,
		queue: make(chan models.AuditEvent, queueSize),
		done:  make(chan struct{}),
	}
	go r.consume()
	return r
}

// Record enqueues the event. A full queue falls back to the process log so
// the event is never silently lost and the request path never stalls.
func (r *StoreRecorder) Record(event models.AuditEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case r.queue <- event:
	default:
		r.fallback(event, "audit queue full")
	}
}

// Close stops accepting events and drains the queue. Blocks until the
// writer finishes or ctx expires.
func (r *StoreRecorder) Close(ctx context.Context) error {
	r.closeOnce.Do(func() { close(r.queue) })
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *StoreRecorder) consume() {
	defer close(r.done)
	for event := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		err := r.store.InsertAuditEvent(ctx, &event)
		cancel()
		if err != nil {
			r.fallback(event, err.Error())
		}
	}
}

// fallback writes the event to the process log when durable storage is
// unavailable.
func (r *StoreRecorder) fallback(event models.AuditEvent, reason string) {
	slog.Warn("audit fallback",
		"reason", reason,
		"event_id", event.ID,
		"action", event.Action,
		"actor", event.Actor,
		"status", event.Status,
		"ts", event.Timestamp,
		"metadata", event.Metadata,
	)
}
