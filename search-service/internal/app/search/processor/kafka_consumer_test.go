package processor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"facetsearch/search-service/internal/app/search/entity"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAttributionMaintainer мок для service.AttributionMaintainer
type MockAttributionMaintainer struct {
	mock.Mock
}

func (m *MockAttributionMaintainer) PurgeProduct(ctx context.Context, productID int64) (int64, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAttributionMaintainer) SweepOrphans(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// fakeReader отдает заранее заданные сообщения, затем блокируется до отмены контекста
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func productMessage(t *testing.T, offset int64, eventType string, productID int64) kafka.Message {
	t.Helper()
	value, err := json.Marshal(entity.ProductEvent{
		EventType:  eventType,
		ProductID:  productID,
		CategoryID: 10,
		Timestamp:  time.Now(),
	})
	require.NoError(t, err)
	return kafka.Message{Topic: "product_events", Offset: offset, Value: value}
}

// ===================== NewProductEventConsumer Tests =====================

func TestNewProductEventConsumer(t *testing.T) {
	// Arrange
	maintainer := new(MockAttributionMaintainer)

	// Act
	consumer := NewProductEventConsumer([]string{"localhost:9092"}, "product_events", "search-service", maintainer)

	// Assert
	assert.NotNil(t, consumer.reader)
	assert.Equal(t, "product_events", consumer.topic)
	assert.NotNil(t, consumer.stopChan)
	assert.NotNil(t, consumer.doneChan)

	// Cleanup
	_ = consumer.reader.Close()
}

// ===================== processMessage Tests =====================

func TestProductEventConsumer_ProcessMessage_Deleted(t *testing.T) {
	// Arrange
	ctx := context.Background()
	maintainer := new(MockAttributionMaintainer)
	consumer := newProductEventConsumer(&fakeReader{}, "product_events", "search-service", maintainer)

	maintainer.On("PurgeProduct", ctx, int64(42)).Return(int64(3), nil)

	// Act
	err := consumer.processMessage(ctx, productMessage(t, 1, entity.ProductEventDeleted, 42))

	// Assert
	assert.NoError(t, err)
	maintainer.AssertExpectations(t)
}

func TestProductEventConsumer_ProcessMessage_Deactivated(t *testing.T) {
	// Arrange
	ctx := context.Background()
	maintainer := new(MockAttributionMaintainer)
	consumer := newProductEventConsumer(&fakeReader{}, "product_events", "search-service", maintainer)

	maintainer.On("PurgeProduct", ctx, int64(42)).Return(int64(0), nil)

	// Act
	err := consumer.processMessage(ctx, productMessage(t, 1, entity.ProductEventDeactivated, 42))

	// Assert
	assert.NoError(t, err)
	maintainer.AssertExpectations(t)
}

func TestProductEventConsumer_ProcessMessage_IgnoresOtherEvents(t *testing.T) {
	// Arrange
	ctx := context.Background()
	maintainer := new(MockAttributionMaintainer)
	consumer := newProductEventConsumer(&fakeReader{}, "product_events", "search-service", maintainer)

	// Act
	err := consumer.processMessage(ctx, productMessage(t, 1, "PRODUCT_UPDATED", 42))

	// Assert
	assert.NoError(t, err)
	maintainer.AssertNotCalled(t, "PurgeProduct", mock.Anything, mock.Anything)
}

func TestProductEventConsumer_ProcessMessage_Malformed(t *testing.T) {
	consumer := newProductEventConsumer(&fakeReader{}, "product_events", "search-service", new(MockAttributionMaintainer))

	cases := []struct {
		name  string
		value string
	}{
		{name: "invalid json", value: "{not json"},
		{name: "missing product", value: `{"event_type": "PRODUCT_DELETED"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := consumer.processMessage(context.Background(), kafka.Message{Value: []byte(tc.value)})

			assert.ErrorIs(t, err, errMalformedEvent)
		})
	}
}

func TestProductEventConsumer_ProcessMessage_StoreError(t *testing.T) {
	// Arrange
	ctx := context.Background()
	maintainer := new(MockAttributionMaintainer)
	consumer := newProductEventConsumer(&fakeReader{}, "product_events", "search-service", maintainer)

	storeErr := errors.New("connection refused")
	maintainer.On("PurgeProduct", ctx, int64(42)).Return(int64(0), storeErr)

	// Act
	err := consumer.processMessage(ctx, productMessage(t, 1, entity.ProductEventDeleted, 42))

	// Assert
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, errMalformedEvent)
}

// ===================== consume loop Tests =====================

func TestProductEventConsumer_Consume_CommitsProcessedAndMalformed(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{messages: []kafka.Message{
		productMessage(t, 1, entity.ProductEventDeleted, 42),
		{Offset: 2, Value: []byte("{broken")},
		productMessage(t, 3, "PRODUCT_CREATED", 43),
	}}

	maintainer := new(MockAttributionMaintainer)
	maintainer.On("PurgeProduct", mock.Anything, int64(42)).Return(int64(2), nil)

	consumer := newProductEventConsumer(reader, "product_events", "search-service", maintainer)

	// Act
	consumer.Start(ctx)

	// Assert
	assert.Eventually(t, func() bool {
		return len(reader.committedOffsets()) == 3
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []int64{1, 2, 3}, reader.committedOffsets())

	cancel()
	consumer.Stop()
	assert.True(t, reader.closed)
	maintainer.AssertExpectations(t)
}

func TestProductEventConsumer_Consume_StoreErrorRetriedBeforeNextMessage(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{messages: []kafka.Message{
		productMessage(t, 1, entity.ProductEventDeleted, 42),
		productMessage(t, 2, entity.ProductEventDeleted, 43),
	}}

	var (
		mu    sync.Mutex
		calls []int64
	)
	record := func(args mock.Arguments) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, args.Get(1).(int64))
	}

	maintainer := new(MockAttributionMaintainer)
	maintainer.On("PurgeProduct", mock.Anything, int64(42)).
		Run(record).Return(int64(0), errors.New("connection refused")).Once()
	maintainer.On("PurgeProduct", mock.Anything, int64(42)).
		Run(record).Return(int64(1), nil).Once()
	maintainer.On("PurgeProduct", mock.Anything, int64(43)).
		Run(record).Return(int64(1), nil).Once()

	consumer := newProductEventConsumer(reader, "product_events", "search-service", maintainer)
	consumer.retryDelay = 10 * time.Millisecond

	// Act
	consumer.Start(ctx)

	// Assert
	assert.Eventually(t, func() bool {
		return len(reader.committedOffsets()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []int64{1, 2}, reader.committedOffsets())

	cancel()
	consumer.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{42, 42, 43}, calls)
	maintainer.AssertExpectations(t)
}

func TestProductEventConsumer_Consume_StoreErrorNotCommittedOnStop(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{messages: []kafka.Message{
		productMessage(t, 1, entity.ProductEventDeleted, 42),
		productMessage(t, 2, entity.ProductEventDeleted, 43),
	}}

	processed := make(chan struct{})
	var once sync.Once
	maintainer := new(MockAttributionMaintainer)
	maintainer.On("PurgeProduct", mock.Anything, int64(42)).
		Run(func(mock.Arguments) { once.Do(func() { close(processed) }) }).
		Return(int64(0), errors.New("connection refused"))

	consumer := newProductEventConsumer(reader, "product_events", "search-service", maintainer)

	// Act
	consumer.Start(ctx)
	<-processed
	consumer.Stop()

	// Assert
	assert.Empty(t, reader.committedOffsets())
	maintainer.AssertNotCalled(t, "PurgeProduct", mock.Anything, int64(43))
}
