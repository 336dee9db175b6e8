package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ilham-education/ilham-backend/internal/service/integration"
	"github.com/ilham-education/ilham-backend/internal/worker/queue"
	"github.com/rs/zerolog"
)

var ErrPoolUnavailable = errors.New("worker pool did not accept the event")

type localPublisher struct {
	pool    *WorkerPool
	handler queue.MessageHandler
	logger  zerolog.Logger
}

// NewLocalPublisher delivers events to handler on pool without a broker.
// It stands in for RabbitMQ when the broker is unreachable.
func NewLocalPublisher(pool *WorkerPool, handler queue.MessageHandler, logger zerolog.Logger) integration.EventPublisher {
	return &localPublisher{
		pool:    pool,
		handler: handler,
		logger:  logger,
	}
}

func (p *localPublisher) Publish(ctx context.Context, routingKey string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// the request context is gone by the time the task runs
	taskCtx := context.WithoutCancel(ctx)
	ok := p.pool.Submit(func() {
		if err := p.handler.ProcessMessage(taskCtx, body); err != nil {
			p.logger.Error().Err(err).Str("routing_key", routingKey).Msg("Failed to handle local event")
		}
	})
	if !ok {
		return ErrPoolUnavailable
	}

	p.logger.Debug().Str("routing_key", routingKey).Msg("Event dispatched locally")
	return nil
}

func (p *localPublisher) Close() error {
	return p.pool.Stop()
}
