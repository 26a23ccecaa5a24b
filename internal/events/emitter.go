// Package events publishes S3 event notification records to a single
// external hook, mirroring the Records envelope S3 itself sends to SNS,
// SQS and Lambda. Delivery is best-effort and asynchronous: a hook
// failure is logged and never propagates back to the request that
// triggered the event.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Hook delivers a single S3 event record to an external collaborator.
type Hook interface {
	Publish(ctx context.Context, event *S3Event) error
	Close() error
}

const (
	defaultQueueSize   = 1024
	publishTimeout     = 10 * time.Second
)

// Emitter queues events and hands them to a hook on a single background
// worker, so that a slow or unreachable hook never blocks the request
// goroutine that emitted the event.
type Emitter struct {
	hook  Hook
	queue chan *S3Event

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

// NewEmitter creates an emitter that delivers to hook. A nil hook is
// valid and makes Emit a no-op, matching an emulator run with event
// notifications disabled.
func NewEmitter(hook Hook) *Emitter {
	return &Emitter{
		hook:  hook,
		queue: make(chan *S3Event, defaultQueueSize),
	}
}

// Start launches the delivery worker. Safe to call on a nil-hook emitter.
func (e *Emitter) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.hook == nil {
		return
	}
	e.started = true

	e.wg.Add(1)
	go e.worker()
}

// Stop drains the queue and closes the hook.
func (e *Emitter) Stop() {
	e.mu.Lock()
	started := e.started
	e.started = false
	e.mu.Unlock()

	if !started {
		return
	}

	close(e.queue)
	e.wg.Wait()

	if e.hook != nil {
		if err := e.hook.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing event hook")
		}
	}
}

func (e *Emitter) worker() {
	defer e.wg.Done()

	for event := range e.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := e.hook.Publish(ctx, event); err != nil {
			log.Warn().Err(err).Str("event", event.Records[0].EventName).Msg("event hook delivery failed")
		}
		cancel()
	}
}

// Emit builds and enqueues an event record for delivery. It never blocks:
// if the queue is full the event is dropped and logged.
func (e *Emitter) Emit(eventType EventType, bucket, key string, size int64, etag, principalID string) {
	if e == nil || e.hook == nil {
		return
	}

	event := NewS3Event(eventType, bucket, key, size, etag, principalID)

	select {
	case e.queue <- event:
	default:
		log.Warn().Str("bucket", bucket).Str("key", key).Msg("event queue full, dropping event")
	}
}
