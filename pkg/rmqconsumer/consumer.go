package rmqconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"media-portfolio-api/config"
	"media-portfolio-api/internal/application/ports"
	"media-portfolio-api/internal/domain/media"
	"media-portfolio-api/internal/infrastructure/mq"
)

// can scale depends on a parallel worker count
const preFetchCount = 1

const deleteTimeout = 30 * time.Second

// Consumer reconciles orphaned blobs: objects whose metadata row is gone or
// was never written. It deletes every URL of a media.blob_orphaned event
// that no row references any more.
type Consumer struct {
	cfg        config.MQ
	log        *zap.Logger
	blobs      ports.BlobStore
	refs       ports.BlobReferences
	mCounter   *prometheus.CounterVec
	conn       *amqp091.Connection
	chConsume  *amqp091.Channel
	chDelivery <-chan amqp091.Delivery
}

func New(
	cfg config.MQ,
	logger *zap.Logger,
	blobs ports.BlobStore,
	refs ports.BlobReferences,
	mCounter *prometheus.CounterVec,
) *Consumer {
	return &Consumer{
		cfg:      cfg,
		log:      logger,
		blobs:    blobs,
		refs:     refs,
		mCounter: mCounter,
	}
}

func (c *Consumer) Connect(dsn string) error {
	conn, err := amqp091.Dial(dsn)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}
	c.conn, c.chConsume = conn, ch

	c.log.Info("rabbitmq consumer connected successfully")

	return nil
}

func (c *Consumer) Init() error {
	if err := c.chConsume.ExchangeDeclare(
		c.cfg.Exchange,
		c.cfg.ExchangeType,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := c.chConsume.QueueDeclare(
		c.cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := c.chConsume.QueueBind(
		c.cfg.QueueName,
		mq.RoutingBlobOrphaned,
		c.cfg.Exchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("queue bind %s: %w", mq.RoutingBlobOrphaned, err)
	}

	if err := c.chConsume.Qos(preFetchCount, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}

	deliveries, err := c.chConsume.Consume(
		c.cfg.QueueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	c.chDelivery = deliveries

	return nil
}

func (c *Consumer) DeliveryWorker(ctx context.Context) {
	c.log.Info("starting delivery worker")

	defer func() {
		c.log.Info("delivery worker gracefully stopped")
	}()

	for {
		select {
		case msg, ok := <-c.chDelivery:
			if !ok {
				return
			}
			c.handle(ctx, msg)
		case <-ctx.Done():
			if c.chConsume != nil {
				_ = c.chConsume.Close()
			}
			if c.conn != nil {
				_ = c.conn.Close()
			}
			return
		}
	}
}

// handle acks processed messages. Store outages are requeued once; anything
// else is dropped after logging since a retry cannot succeed.
func (c *Consumer) handle(ctx context.Context, msg amqp091.Delivery) {
	err := c.delivery(ctx, msg.Body)
	if err == nil {
		if aerr := msg.Ack(false); aerr != nil {
			c.log.Error("mq ack error", zap.Error(aerr))
		}
		return
	}

	requeue := errors.Is(err, media.ErrUnavailable) && !msg.Redelivered
	c.log.Error("mq delivery error",
		zap.Error(err),
		zap.String("routing_key", msg.RoutingKey),
		zap.Bool("requeue", requeue),
	)
	c.incCounter("orphan_reconcile_failed")

	if nerr := msg.Nack(false, requeue); nerr != nil {
		c.log.Error("mq nack error", zap.Error(nerr))
	}
}

func (c *Consumer) delivery(ctx context.Context, body []byte) error {
	var e mq.Event
	if err := json.Unmarshal(body, &e); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if e.Action != mq.RoutingBlobOrphaned {
		c.log.Debug("mq event skipped", zap.String("action", e.Action))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()

	var (
		errs    []error
		removed int
	)
	for _, url := range e.BlobURLs {
		// an insert reported as failed may still have committed
		referenced, err := c.refs.BlobReferenced(ctx, url)
		if err != nil {
			errs = append(errs, fmt.Errorf("lookup %s: %w", url, err))
			continue
		}
		if referenced {
			c.log.Warn("orphan candidate still referenced, kept",
				zap.String("url", url),
				zap.String("media_id", e.MediaID),
				zap.String("reason", e.Reason),
			)
			c.incCounter("orphan_blob_referenced")
			continue
		}

		if err = c.blobs.Delete(ctx, url); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", url, err))
			continue
		}
		removed++
		c.incCounter("orphan_blob_deleted")
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.log.Info("orphaned blobs removed",
		zap.String("media_id", e.MediaID),
		zap.String("reason", e.Reason),
		zap.Int("count", removed),
	)

	return nil
}

func (c *Consumer) incCounter(label string) {
	if c.mCounter != nil {
		c.mCounter.WithLabelValues(label).Inc()
	}
}
