package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

const defaultQueueSize = 256

// Dispatcher hands audit events to a single background writer. Record never
// blocks the caller: when the queue is full the event is dropped and logged.
type Dispatcher struct {
	repo    ports.AuditRepository
	logger  *slog.Logger
	events  chan domain.AuditEvent
	done    chan struct{}
	dropped atomic.Int64

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

var _ ports.AuditSink = (*Dispatcher)(nil)

func NewDispatcher(repo ports.AuditRepository, queueSize int, logger *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		repo:   repo,
		logger: logger,
		events: make(chan domain.AuditEvent, queueSize),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) Record(_ context.Context, event domain.AuditEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher closed")
		return
	}

	select {
	case d.events <- event:
	default:
		d.drop(event, "queue full")
	}
}

// Dropped returns how many events never reached the repository.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

func (d *Dispatcher) drop(event domain.AuditEvent, reason string) {
	d.dropped.Add(1)
	d.logger.Warn("audit event dropped",
		"reason", reason,
		"action", event.Action,
		"user_id", event.VoterID,
	)
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for event := range d.events {
		// Writes outlive the request that produced the event.
		if err := d.repo.Append(context.Background(), event); err != nil {
			d.dropped.Add(1)
			d.logger.Error("failed to persist audit event",
				"action", event.Action,
				"user_id", event.VoterID,
				"error", err,
			)
		}
	}
}

// Close stops accepting events and waits for queued ones to be written or for
// ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.events)
		d.mu.Unlock()
	})

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
