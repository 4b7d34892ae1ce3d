package ports

import (
	"context"

	"github.com/rabbitmq/amqp091-go"

	"media-portfolio-api/internal/infrastructure/mq"
)

type RabbitMQ interface {
	EventPublisher
	Connect(ctx context.Context, dsn string) error
	Init() error
	PublisherWorker(ctx context.Context)
	GetInputChan() chan mq.Event
	GetConn() *amqp091.Connection
}

// EventPublisher enqueues without blocking; false means the event was dropped.
type EventPublisher interface {
	Publish(e mq.Event) bool
}
