package mq

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"media-portfolio-api/config"
	mediadto "media-portfolio-api/internal/interface/api/rest/dto/media"
)

// "Rely on metrics, not guesses."
const bufferSize = 128

const drainTimeout = 5 * time.Second

const (
	RoutingMediaUploaded = "media.uploaded"
	RoutingMediaUpdated  = "media.updated"
	RoutingMediaDeleted  = "media.deleted"
	RoutingBlobOrphaned  = "media.blob_orphaned"
)

type (
	InputCh  = chan Event
	RabbitMQ struct {
		cfg   config.MQ
		log   *zap.Logger
		conn  *amqp091.Connection
		pubCh *amqp091.Channel
		in    InputCh
	}
	Event struct {
		Id       uuid.UUID       `json:"event_id"`
		TS       time.Time       `json:"time_stamp"`
		Action   string          `json:"event_action"`
		OwnerID  string          `json:"owner_id"`
		MediaID  string          `json:"media_id,omitempty"`
		BlobURLs []string        `json:"blob_urls,omitempty"`
		Reason   string          `json:"reason,omitempty"`
		Payload  *mediadto.Media `json:"media_payload,omitempty"`
	}
)

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(action, ownerID, mediaID string) Event {
	return Event{
		Id:      uuid.New(),
		TS:      time.Now().UTC(),
		Action:  action,
		OwnerID: ownerID,
		MediaID: mediaID,
	}
}

func New(cfg config.MQ, logger *zap.Logger) *RabbitMQ {
	return &RabbitMQ{
		cfg: cfg,
		log: logger,
		in:  make(chan Event, bufferSize),
	}
}

func (r *RabbitMQ) Connect(ctx context.Context, dsn string) error {
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	amqpCfg := amqp091.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Properties: amqp091.Table{
			"connection_name": "mediaportfolio",
		},
		Dial: func(network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
		TLSClientConfig: nil,
	}

	var err error
	r.conn, err = amqp091.DialConfig(dsn, amqpCfg)
	if err != nil {
		return err
	}
	r.pubCh, err = r.conn.Channel()
	if err != nil {
		_ = r.conn.Close()
		return err
	}

	r.log.Info("rabbitmq connected successfully")

	return err
}

func (r *RabbitMQ) Init() error {
	if err := r.pubCh.ExchangeDeclare(
		r.cfg.Exchange,
		r.cfg.ExchangeType,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = r.pubCh.Close()
		return err
	}

	// the reconciliation queue is declared by the consumer, publishers only
	// need the exchange
	return nil
}

// Publish hands the event to PublisherWorker. Callers sit on request paths,
// so a full buffer drops the event instead of stalling them.
func (r *RabbitMQ) Publish(e Event) bool {
	select {
	case r.in <- e:
		return true
	default:
		r.log.Warn("mq buffer full, event dropped",
			zap.String("action", e.Action),
			zap.String("media_id", e.MediaID),
		)
		return false
	}
}

func (r *RabbitMQ) PublisherWorker(ctx context.Context) {
	r.log.Info("starting publisher worker ")

	defer func() {
		r.log.Info("publisher worker gracefully stopped")
	}()

	for {
		select {
		case e := <-r.in:
			if err := r.publish(ctx, e); err != nil {
				// alert
				r.log.Error("mq publish error", zap.Error(err), zap.String("action", e.Action))
			}
		case <-ctx.Done():
			r.drain()
			r.pubCh.Close()
			return
		}
	}
}

// drain flushes what is still buffered, bounded by drainTimeout. The worker
// is stopped after the http server has shut down, so the buffer already
// holds the events of every finished request.
func (r *RabbitMQ) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	flushed := 0
	for {
		if ctx.Err() != nil {
			r.log.Warn("mq drain timed out", zap.Int("left", len(r.in)))
			return
		}

		select {
		case e := <-r.in:
			if err := r.publish(ctx, e); err != nil {
				r.log.Error("mq publish on shutdown error", zap.Error(err), zap.String("action", e.Action))
				continue
			}
			flushed++
		default:
			if flushed > 0 {
				r.log.Info("mq buffer drained", zap.Int("events", flushed))
			}
			return
		}
	}
}

func (r *RabbitMQ) publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		// alert
		return err
	}

	pub := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    e.Id.String(),
		Timestamp:    e.TS,
		Type:         e.Action,
		Body:         b,
	}

	return r.pubCh.PublishWithContext(
		ctx,
		r.cfg.Exchange,
		e.Action,
		false,
		false,
		pub,
	)
}

func (r *RabbitMQ) GetInputChan() chan Event     { return r.in }
func (r *RabbitMQ) GetConn() *amqp091.Connection { return r.conn }
