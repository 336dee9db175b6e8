package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ilham-education/ilham-backend/internal/worker/queue"
	"github.com/rs/zerolog"
)

type Stats struct {
	BusyWorkers    int `json:"busy_workers"`
	TotalProcessed int `json:"total_processed"`
	FailedJobs     int `json:"failed_jobs"`
	QueueLength    int `json:"queue_length"`
}

// MailWorker consumes notification and OTP events from RabbitMQ and hands
// them to the message handler on the worker pool.
type MailWorker interface {
	Start(ctx context.Context) error
	Stop() error
	Stats() Stats
}

type mailWorker struct {
	pool       *WorkerPool
	consumer   queue.Consumer
	handler    queue.MessageHandler
	logger     zerolog.Logger
	stats      Stats
	statsMutex sync.Mutex
	done       chan struct{}
	startTime  time.Time
}

func NewMailWorker(pool *WorkerPool, consumer queue.Consumer, handler queue.MessageHandler, logger zerolog.Logger) MailWorker {
	return &mailWorker{
		pool:     pool,
		consumer: consumer,
		handler:  handler,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

func (w *mailWorker) Start(ctx context.Context) error {
	w.startTime = time.Now()

	if err := w.pool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	msgs, err := w.consumer.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consuming messages: %w", err)
	}

	go w.processMessages(ctx, msgs)

	w.logger.Info().Msg("Mail worker started")
	return nil
}

// Stop cancels the consumer, waits for the dispatch loop to finish and then
// drains the pool.
func (w *mailWorker) Stop() error {
	if err := w.consumer.Close(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to close queue consumer")
	}

	select {
	case <-w.done:
	case <-time.After(5 * time.Second):
		w.logger.Warn().Msg("Timed out waiting for message loop")
	}

	if err := w.pool.Stop(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to stop worker pool")
	}

	stats := w.Stats()
	w.logger.Info().
		Int("total_processed", stats.TotalProcessed).
		Int("failed_jobs", stats.FailedJobs).
		Dur("uptime", time.Since(w.startTime)).
		Msg("Mail worker stopped")
	return nil
}

func (w *mailWorker) processMessages(ctx context.Context, msgs <-chan queue.Message) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Stopping message processing")
			return
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Warn().Msg("Message channel closed")
				return
			}

			if !w.pool.Submit(func() { w.handle(ctx, msg) }) {
				if err := msg.Nack(false, true); err != nil {
					w.logger.Error().Err(err).Msg("Failed to nack message")
				}
			}
		}
	}
}

func (w *mailWorker) handle(ctx context.Context, msg queue.Message) {
	err := w.handler.ProcessMessage(ctx, msg.Body)
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			w.logger.Error().Err(ackErr).Msg("Failed to ack message")
		}
		w.statsMutex.Lock()
		w.stats.TotalProcessed++
		w.statsMutex.Unlock()
		return
	}

	w.logger.Error().Err(err).Str("routing_key", msg.RoutingKey).Msg("Failed to process message")
	w.statsMutex.Lock()
	w.stats.FailedJobs++
	w.statsMutex.Unlock()

	// permanent failures are dropped; anything else goes back on the queue
	requeue := !queue.IsPermanent(err)
	if nackErr := msg.Nack(false, requeue); nackErr != nil {
		w.logger.Error().Err(nackErr).Msg("Failed to nack message")
	}
}

func (w *mailWorker) Stats() Stats {
	w.statsMutex.Lock()
	stats := w.stats
	w.statsMutex.Unlock()

	if n, err := w.consumer.QueueLength(); err != nil {
		w.logger.Debug().Err(err).Msg("Failed to get queue length")
	} else {
		stats.QueueLength = n
	}
	stats.BusyWorkers = w.pool.BusyWorkers()
	return stats
}
