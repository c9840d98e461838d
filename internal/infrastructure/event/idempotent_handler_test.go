package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotentHandler_SkipsDuplicates(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	inner := newTestHandler("ShipmentArrived")
	h := NewIdempotentHandler("kafka", inner, store, zap.NewNop())
	event := newTestEvent("ShipmentArrived")

	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	assert.Equal(t, 1, inner.count())
	assert.Equal(t, IdempotencyStats{EventsProcessed: 1, EventsDuplicate: 1}, h.Stats())
	assert.Equal(t, []string{"ShipmentArrived"}, h.EventTypes())
}

func TestIdempotentHandler_KeysAreScopedPerConsumer(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	first := newTestHandler()
	second := newTestHandler()
	event := newTestEvent("ProductAssembled")

	require.NoError(t, NewIdempotentHandler("kafka", first, store, nil).Handle(context.Background(), event))
	require.NoError(t, NewIdempotentHandler("archiver", second, store, nil).Handle(context.Background(), event))

	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
}

func TestIdempotentHandler_FailureReleasesKey(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	inner := newTestHandler()
	inner.setError(errors.New("broker down"))
	h := NewIdempotentHandler("kafka", inner, store, nil)
	event := newTestEvent("ShipmentArrived")

	require.Error(t, h.Handle(context.Background(), event))

	inner.setError(nil)
	require.NoError(t, h.Handle(context.Background(), event))
	assert.Equal(t, 2, inner.count())
	assert.Equal(t, int64(1), h.Stats().EventsFailed)
}

func TestIdempotentHandler_StoreErrorStillProcesses(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := newTestHandler()
	event := newTestEvent("ShipmentArrived")
	key := "kafka:" + event.EventID().String()

	store.On("MarkProcessed", mock.Anything, key, 24*time.Hour).Return(false, errors.New("redis timeout"))

	h := NewIdempotentHandler("kafka", inner, store, nil)
	require.NoError(t, h.Handle(context.Background(), event))

	assert.Equal(t, 1, inner.count())
	store.AssertExpectations(t)
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := newTestHandler()
	h := NewIdempotentHandler("kafka", inner, store, nil,
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}),
	)

	event := newTestEvent("ShipmentArrived")
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	assert.Equal(t, 2, inner.count())
	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}
