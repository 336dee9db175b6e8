package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ilham-education/ilham-backend/internal/config"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/service/integration"
	"github.com/ilham-education/ilham-backend/internal/worker"
	"github.com/ilham-education/ilham-backend/internal/worker/queue"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

var routingKeys = []string{models.EventNotificationCreated, models.EventOTPEmail}

// mailWorkerRuntime owns the broker connection the mail worker consumes from.
type mailWorkerRuntime struct {
	worker.MailWorker
	conn   *amqp.Connection
	logger zerolog.Logger
}

func newMailWorkerRuntime(cfg *config.Config, handler queue.MessageHandler, log zerolog.Logger) (*mailWorkerRuntime, error) {
	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := integration.DeclareTopology(channel, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.QueueName, routingKeys); err != nil {
		conn.Close()
		return nil, err
	}

	consumer := queue.NewRabbitMQConsumer(channel, cfg.RabbitMQ.QueueName, cfg.RabbitMQ.ConsumerTag, log)
	pool := worker.NewWorkerPool(cfg.Worker.PoolSize, log)

	return &mailWorkerRuntime{
		MailWorker: worker.NewMailWorker(pool, consumer, handler, log),
		conn:       conn,
		logger:     log,
	}, nil
}

func (r *mailWorkerRuntime) Stop() error {
	if err := r.MailWorker.Stop(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to stop mail worker")
	}
	if err := r.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		r.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
	}
	return nil
}

// RunWorker consumes mail events without serving HTTP until ctx is done.
func RunWorker(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mailer := integration.NewSMTPMailer(smtpConfig(cfg.SMTP), log)
	runtime, err := newMailWorkerRuntime(cfg, queue.NewMessageHandler(mailer, log), log)
	if err != nil {
		return err
	}

	if err := runtime.Start(ctx); err != nil {
		runtime.Stop()
		return err
	}

	log.Info().
		Str("queue", cfg.RabbitMQ.QueueName).
		Int("pool_size", cfg.Worker.PoolSize).
		Msg("Standalone mail worker running")

	<-ctx.Done()
	return runtime.Stop()
}
