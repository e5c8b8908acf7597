package viewcache

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/blogdesk/internal/common"
)

type MockMessageProducer struct {
	mock.Mock
}

func (m *MockMessageProducer) Publish(ctx context.Context, msg []byte, key common.BindingKey, exchange common.Exchange) error {
	args := m.Called(msg, key, exchange)
	return args.Error(0)
}

type MockMessageConsumer struct {
	mock.Mock
	msgs chan amqp.Delivery
}

func (m *MockMessageConsumer) Consume(key common.BindingKey, exchange common.Exchange, queue common.Queue) (<-chan amqp.Delivery, error) {
	args := m.Called(key, exchange, queue)
	return m.msgs, args.Error(0)
}

func TestInvalidate(t *testing.T) {
	testCases := []struct {
		name       string
		publishErr error
	}{
		{name: "broadcast"},
		{name: "broadcast fails", publishErr: errors.New("connection closed")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := setupTestCache(t)
			ctx := context.Background()
			c.Commit(ctx, c.Begin(AdminPath), []byte("admin"))

			producer := new(MockMessageProducer)
			producer.On("Publish", []byte(AdminPath), common.ViewInvalidatedKey, common.ViewExchange).Return(tc.publishErr)

			NewInvalidator(c, producer, testLogger()).Invalidate(AdminPath)

			_, ok := c.Lookup(ctx, AdminPath)
			assert.False(t, ok)
			producer.AssertExpectations(t)
		})
	}
}

func TestInvalidateLocalOnly(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()
	c.Commit(ctx, c.Begin(HomePath), []byte("home"))

	NewInvalidator(c, nil, testLogger()).Invalidate(HomePath)

	_, ok := c.Lookup(ctx, HomePath)
	assert.False(t, ok)
}

func TestListenerRun(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()
	c.Commit(ctx, c.Begin(PostPath(3)), []byte("post"))

	consumer := &MockMessageConsumer{msgs: make(chan amqp.Delivery, 1)}
	consumer.On("Consume", common.ViewInvalidatedKey, common.ViewExchange, common.Queue("q")).Return(nil)

	l := NewListener(c, consumer, "q", testLogger())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	consumer.msgs <- amqp.Delivery{Body: []byte(PostPath(3))}
	close(consumer.msgs)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDeliveriesClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}

	_, ok := c.Lookup(ctx, PostPath(3))
	assert.False(t, ok)
	consumer.AssertExpectations(t)
}

func TestListenerStopsOnCancel(t *testing.T) {
	c := setupTestCache(t)

	consumer := &MockMessageConsumer{msgs: make(chan amqp.Delivery)}
	consumer.On("Consume", common.ViewInvalidatedKey, common.ViewExchange, common.Queue("q")).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewListener(c, consumer, "q", testLogger()).Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestListenerConsumeError(t *testing.T) {
	consumer := &MockMessageConsumer{}
	consumer.On("Consume", common.ViewInvalidatedKey, common.ViewExchange, common.Queue("q")).Return(errors.New("channel closed"))

	err := NewListener(setupTestCache(t), consumer, "q", testLogger()).Run(context.Background())
	require.Error(t, err)
}

// TestBroadcastAcrossInstances wires two caches to a real broker and checks
// that an invalidation on one drops the page on the other.
func TestBroadcastAcrossInstances(t *testing.T) {
	url := common.TestRabbitMQ(t)

	newInstance := func() (*Cache, *common.MessageBroker, common.Queue) {
		mb, err := common.NewMessageBroker(url)
		require.NoError(t, err)
		t.Cleanup(func() { mb.Close() })

		q, err := common.SetupViewExchange(mb)
		require.NoError(t, err)

		return setupTestCache(t), mb, q
	}

	cacheA, mbA, _ := newInstance()
	cacheB, mbB, queueB := newInstance()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go NewListener(cacheB, mbB, queueB, testLogger()).Run(ctx)

	cacheB.Commit(ctx, cacheB.Begin(HomePath), []byte("home"))

	NewInvalidator(cacheA, mbA, testLogger()).Invalidate(HomePath)

	assert.Eventually(t, func() bool {
		_, ok := cacheB.Lookup(ctx, HomePath)
		return !ok
	}, 10*time.Second, 50*time.Millisecond)
}
