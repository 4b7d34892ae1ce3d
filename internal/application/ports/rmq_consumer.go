package ports

import "context"

// RMQConsumer drains the orphaned blob queue until ctx is done.
type RMQConsumer interface {
	Connect(dsn string) error
	Init() error
	DeliveryWorker(ctx context.Context)
}
