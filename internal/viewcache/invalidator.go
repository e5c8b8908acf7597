package viewcache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sushihentaime/blogdesk/internal/common"
)

const publishTimeout = 2 * time.Second

var ErrDeliveriesClosed = errors.New("view invalidation deliveries closed")

// Invalidator drops cached pages locally and tells other instances to do
// the same.
type Invalidator struct {
	cache    *Cache
	producer common.MessageProducer
	logger   *slog.Logger
}

// NewInvalidator returns an Invalidator. A nil producer keeps invalidation
// local to this process.
func NewInvalidator(cache *Cache, producer common.MessageProducer, logger *slog.Logger) *Invalidator {
	return &Invalidator{cache: cache, producer: producer, logger: logger}
}

// Invalidate never fails. Broadcast errors are logged and the local drop
// stands.
func (i *Invalidator) Invalidate(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	i.cache.Drop(ctx, path)

	if i.producer == nil {
		return
	}

	err := i.producer.Publish(ctx, []byte(path), common.ViewInvalidatedKey, common.ViewExchange)
	if err != nil {
		i.logger.Error("could not broadcast view invalidation", slog.String("path", path), slog.Any("error", err))
	}
}

// Listener applies invalidations broadcast by other instances.
type Listener struct {
	cache    *Cache
	consumer common.MessageConsumer
	queue    common.Queue
	logger   *slog.Logger
}

func NewListener(cache *Cache, consumer common.MessageConsumer, queue common.Queue, logger *slog.Logger) *Listener {
	return &Listener{cache: cache, consumer: consumer, queue: queue, logger: logger}
}

// Run blocks until ctx is done or the broker closes the delivery channel.
func (l *Listener) Run(ctx context.Context) error {
	msgs, err := l.consumer.Consume(common.ViewInvalidatedKey, common.ViewExchange, l.queue)
	if err != nil {
		return err
	}

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}

			path := string(msg.Body)
			if path != "" {
				l.cache.Drop(ctx, path)
			}
			if msg.Acknowledger != nil {
				if err := msg.Ack(false); err != nil {
					l.logger.Error("could not ack view invalidation", slog.String("path", path), slog.Any("error", err))
				}
			}

		case <-ctx.Done():
			l.logger.Info("stopping view invalidation listener")
			return nil
		}
	}
}
