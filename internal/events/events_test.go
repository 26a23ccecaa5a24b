package events_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/piwi3910/nebulaio/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHook records every event it receives. It can be made to fail on
// demand to exercise the emitter's best-effort delivery guarantee.
type fakeHook struct {
	mu        sync.Mutex
	received  []*events.S3Event
	failCount int32
	closed    bool
}

func (h *fakeHook) Publish(_ context.Context, event *events.S3Event) error {
	if atomic.LoadInt32(&h.failCount) > 0 {
		atomic.AddInt32(&h.failCount, -1)
		return assertError
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, event)
	return nil
}

func (h *fakeHook) Close() error {
	h.closed = true
	return nil
}

func (h *fakeHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

var assertError = errors.New("simulated hook failure")

func TestEmitterDeliversToHook(t *testing.T) {
	hook := &fakeHook{}
	emitter := events.NewEmitter(hook)
	emitter.Start()
	defer emitter.Stop()

	emitter.Emit(events.EventObjectCreatedPut, "test-bucket", "test-key", 42, "etag123", "principal")

	require.Eventually(t, func() bool { return hook.count() == 1 }, time.Second, 5*time.Millisecond)

	hook.mu.Lock()
	record := hook.received[0].Records[0]
	hook.mu.Unlock()

	assert.Equal(t, "s3:ObjectCreated:Put", record.EventName)
	assert.Equal(t, "test-bucket", record.S3.Bucket.Name)
	assert.Equal(t, "test-key", record.S3.Object.Key)
	assert.Equal(t, int64(42), record.S3.Object.Size)
}

func TestEmitterSurvivesHookFailure(t *testing.T) {
	hook := &fakeHook{failCount: 1}
	emitter := events.NewEmitter(hook)
	emitter.Start()
	defer emitter.Stop()

	emitter.Emit(events.EventObjectRemovedDelete, "test-bucket", "test-key", 0, "", "principal")
	emitter.Emit(events.EventObjectRemovedDelete, "test-bucket", "other-key", 0, "", "principal")

	require.Eventually(t, func() bool { return hook.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestEmitterWithNilHookIsNoOp(t *testing.T) {
	emitter := events.NewEmitter(nil)
	emitter.Start()
	defer emitter.Stop()

	// Must not panic and must not block.
	emitter.Emit(events.EventObjectCreatedPut, "test-bucket", "test-key", 1, "etag", "principal")
}

func TestEmitterStopClosesHook(t *testing.T) {
	hook := &fakeHook{}
	emitter := events.NewEmitter(hook)
	emitter.Start()
	emitter.Stop()

	assert.True(t, hook.closed)
}

func TestNewS3EventShape(t *testing.T) {
	event := events.NewS3Event(events.EventObjectCreatedCopy, "bucket", "key", 10, "etag", "AKIAEXAMPLE")
	require.Len(t, event.Records, 1)

	record := event.Records[0]
	assert.Equal(t, "aws:s3", record.EventSource)
	assert.Equal(t, "2.0", record.EventVersion)
	assert.Equal(t, "arn:aws:s3:::bucket", record.S3.Bucket.ARN)
	assert.NotEmpty(t, record.S3.Object.Sequencer)
	assert.NotEmpty(t, record.ResponseElements["x-amz-request-id"])
}

func TestS3EventToJSON(t *testing.T) {
	event := events.NewS3Event(events.EventObjectCreatedPut, "bucket", "key", 1, "etag", "principal")
	data, err := event.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"eventName":"s3:ObjectCreated:Put"`)
}
