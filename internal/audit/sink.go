package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/opsconductor/toolengine/internal/types"
)

// Health describes the audit subsystem's inspectable state.
type Health struct {
	Status           types.HealthState `json:"status"`
	QueueInitialized bool              `json:"queue_initialized"`
	WorkerRunning    bool              `json:"worker_running"`
	QueueSize        int               `json:"queue_size"`
}

// Sink is an asynchronous, non-blocking recorder of selection and
// execution events. A bounded queue feeds a single background worker that
// writes to the configured destination. Enqueue never waits on the
// downstream write: when the queue is full or the sink is stopped the
// record is dropped, counted, and the caller's operation proceeds.
type Sink struct {
	destination Destination
	logger      *slog.Logger

	queue   chan types.AuditRecord
	done    chan struct{}
	wg      sync.WaitGroup
	started atomic.Bool
	stopped atomic.Bool
	running atomic.Bool

	dropped atomic.Int64
	written atomic.Int64
}

// NewSink creates a Sink with the given queue capacity. Start must be
// called before records are processed.
func NewSink(destination Destination, queueSize int, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		destination: destination,
		logger:      logger,
		queue:       make(chan types.AuditRecord, queueSize),
		done:        make(chan struct{}),
	}
}

// Start launches the background worker. Safe to call once.
func (s *Sink) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}

	s.running.Store(true)
	s.wg.Add(1)
	go s.work(ctx)

	s.logger.Info("audit sink started",
		"destination", s.destination.Name(),
		"queue_capacity", cap(s.queue))
}

// work drains the queue until Stop is called, then flushes what remains.
func (s *Sink) work(ctx context.Context) {
	defer s.wg.Done()
	defer s.running.Store(false)

	for {
		select {
		case record := <-s.queue:
			s.write(ctx, record)
		case <-s.done:
			for {
				select {
				case record := <-s.queue:
					s.write(ctx, record)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) write(ctx context.Context, record types.AuditRecord) {
	if err := s.destination.Write(ctx, record); err != nil {
		s.logger.Error("audit write failed",
			"destination", s.destination.Name(),
			"record_id", record.ID,
			"error", err)
		return
	}
	s.written.Add(1)
}

// Enqueue offers a record to the queue without blocking. Returns false
// when the record was dropped (queue full or sink stopped); the caller
// must still treat its own operation as successful.
func (s *Sink) Enqueue(record types.AuditRecord) bool {
	if s.stopped.Load() || !s.started.Load() {
		s.dropped.Add(1)
		return false
	}

	select {
	case s.queue <- record:
		return true
	default:
		s.dropped.Add(1)
		s.logger.Warn("audit queue full, dropping record",
			"record_id", record.ID,
			"event_type", string(record.EventType))
		return false
	}
}

// Stop shuts down the worker after flushing queued records. Safe to call
// more than once. Enqueue returns false after Stop.
func (s *Sink) Stop() {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}
	if s.started.Load() {
		close(s.done)
		s.wg.Wait()
	}
	s.logger.Info("audit sink stopped",
		"written", s.written.Load(),
		"dropped", s.dropped.Load())
}

// Health reports queue and worker state.
func (s *Sink) Health() Health {
	h := Health{
		QueueInitialized: s.queue != nil,
		WorkerRunning:    s.running.Load(),
		QueueSize:        len(s.queue),
	}

	switch {
	case h.QueueInitialized && h.WorkerRunning:
		h.Status = types.HealthStateHealthy
	case h.QueueInitialized:
		h.Status = types.HealthStateDegraded
	default:
		h.Status = types.HealthStateUnhealthy
	}
	return h
}

// Dropped returns how many records have been dropped since start.
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

// Written returns how many records the worker has persisted.
func (s *Sink) Written() int64 {
	return s.written.Load()
}
