package push

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rabbitmq/amqp091-go"
)

// AMQPSource consumes push payloads from a RabbitMQ queue, for deployments
// that fan offers out over the broker instead of a direct socket.
type AMQPSource struct {
	url    string
	queue  string
	logger *slog.Logger
}

// NewAMQPSource creates a source consuming from queue at url.
func NewAMQPSource(url, queue string, logger *slog.Logger) *AMQPSource {
	return &AMQPSource{url: url, queue: queue, logger: logger}
}

// Run consumes the queue until ctx is cancelled or the broker connection
// fails.
func (s *AMQPSource) Run(ctx context.Context, handle func([]byte)) error {
	conn, err := amqp091.Dial(s.url)
	if err != nil {
		return fmt.Errorf("connecting to rabbitmq: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("opening channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(s.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue %s: %w", s.queue, err)
	}

	msgs, err := ch.ConsumeWithContext(ctx, s.queue, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming queue %s: %w", s.queue, err)
	}
	s.logger.Info("push consumer connected", "queue", s.queue)

	for msg := range msgs {
		handle(msg.Body)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("push consumer channel closed")
}
