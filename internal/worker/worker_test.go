package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/worker/queue"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_RunsAndRecovers(t *testing.T) {
	pool := NewWorkerPool(3, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))

	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		i := i
		require.True(t, pool.Submit(func() {
			if i == 5 {
				panic("boom")
			}
			ran.Add(1)
		}))
	}

	require.NoError(t, pool.Stop())
	assert.Equal(t, int32(19), ran.Load())
	assert.Equal(t, 0, pool.BusyWorkers())
	assert.False(t, pool.Submit(func() {}))
	assert.NoError(t, pool.Stop())
}

type recordingHandler struct {
	mu     sync.Mutex
	bodies []string
	err    error
}

func (h *recordingHandler) ProcessMessage(ctx context.Context, body []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bodies = append(h.bodies, string(body))
	return h.err
}

func (h *recordingHandler) HandleNotificationCreated(ctx context.Context, event models.NotificationCreatedEvent) error {
	return nil
}

func (h *recordingHandler) HandleOTPEmail(ctx context.Context, event models.OTPEmailEvent) error {
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.bodies)
}

func TestLocalPublisher(t *testing.T) {
	pool := NewWorkerPool(1, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))
	handler := &recordingHandler{}
	pub := NewLocalPublisher(pool, handler, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, pub.Publish(ctx, models.EventNotificationCreated, models.NotificationCreatedEvent{
		Type: models.EventNotificationCreated, NotificationID: "n1",
	}))
	cancel()

	require.NoError(t, pub.Close())
	require.Equal(t, 1, handler.count())
	assert.Contains(t, handler.bodies[0], `"notification_id":"n1"`)

	assert.ErrorIs(t, pub.Publish(context.Background(), models.EventOTPEmail, struct{}{}), ErrPoolUnavailable)
}

type ackRecord struct {
	acked   bool
	nacked  bool
	requeue bool
}

type fakeConsumer struct {
	msgs   chan queue.Message
	closed atomic.Bool
}

func (c *fakeConsumer) Consume(ctx context.Context) (<-chan queue.Message, error) {
	return c.msgs, nil
}

func (c *fakeConsumer) QueueLength() (int, error) { return len(c.msgs), nil }

func (c *fakeConsumer) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		close(c.msgs)
	}
	return nil
}

func message(body string, rec *ackRecord, done chan<- struct{}) queue.Message {
	return queue.Message{
		Body: []byte(body),
		Ack: func(bool) error {
			rec.acked = true
			done <- struct{}{}
			return nil
		},
		Nack: func(_ bool, requeue bool) error {
			rec.nacked, rec.requeue = true, requeue
			done <- struct{}{}
			return nil
		},
	}
}

func TestMailWorker_AckNack(t *testing.T) {
	consumer := &fakeConsumer{msgs: make(chan queue.Message, 3)}
	handler := &scriptedHandler{results: map[string]error{
		"ok":        nil,
		"transient": errors.New("smtp down"),
		"bad":       queue.Permanent(errors.New("bad json")),
	}}
	w := NewMailWorker(NewWorkerPool(1, zerolog.Nop()), consumer, handler, zerolog.Nop())
	require.NoError(t, w.Start(context.Background()))

	done := make(chan struct{}, 3)
	var ok, transient, bad ackRecord
	consumer.msgs <- message("ok", &ok, done)
	consumer.msgs <- message("transient", &transient, done)
	consumer.msgs <- message("bad", &bad, done)

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("message was not settled")
		}
	}
	require.NoError(t, w.Stop())

	assert.True(t, ok.acked)
	assert.True(t, transient.nacked)
	assert.True(t, transient.requeue)
	assert.True(t, bad.nacked)
	assert.False(t, bad.requeue)

	stats := w.Stats()
	assert.Equal(t, 1, stats.TotalProcessed)
	assert.Equal(t, 2, stats.FailedJobs)
}

type scriptedHandler struct {
	recordingHandler
	results map[string]error
}

func (h *scriptedHandler) ProcessMessage(ctx context.Context, body []byte) error {
	return h.results[string(body)]
}
