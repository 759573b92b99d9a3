package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"tienda-be/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateOrderTx(ctx context.Context, o Order, items []LineItem) (int64, error) {
	args := m.Called(ctx, o, items)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) ListOrders(ctx context.Context) ([]Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Order), args.Error(1)
}

func (m *MockRepository) ListItems(ctx context.Context, orderID int64) ([]LineItem, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]LineItem), args.Error(1)
}

// --- Helpers ---

func ptr[T any](v T) *T { return &v }

func newTestService(repo Repository, now time.Time) Service {
	return &service{repo: repo, now: func() time.Time { return now }}
}

// --- Tests ---

func TestService_PlaceOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 30, 0, 250*int(time.Millisecond), time.FixedZone("CEST", 2*3600))

	input := PlaceOrderInput{
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
		Address:       "Calle 1",
		Total:         decimal.NewFromInt(99),
		Items: []ItemInput{
			{ProductID: ptr(int64(1)), Quantity: ptr(2), UnitPrice: ptr(decimal.NewFromInt(10))},
			{ProductID: ptr(int64(3)), Quantity: ptr(0), UnitPrice: ptr(decimal.Zero)},
		},
	}

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := newTestService(mockRepo, now)

		expectedOrder := Order{
			CustomerName:  "Ana",
			CustomerEmail: "ana@example.com",
			Address:       "Calle 1",
			Total:         decimal.NewFromInt(99),
			CreatedAt:     "2024-05-01T10:30:00.250Z",
		}
		expectedItems := []LineItem{
			{ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(10)},
			{ProductID: 3, Quantity: 0, UnitPrice: decimal.Zero},
		}
		mockRepo.On("CreateOrderTx", ctx, expectedOrder, expectedItems).Return(int64(7), nil)

		id, err := svc.PlaceOrder(ctx, input)
		assert.NoError(t, err)
		assert.Equal(t, int64(7), id)
		mockRepo.AssertExpectations(t)
	})

	t.Run("EmptyItems", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := newTestService(mockRepo, now)

		_, err := svc.PlaceOrder(ctx, PlaceOrderInput{CustomerName: "Ana"})
		assert.Equal(t, ErrEmptyOrder, err)
		assert.True(t, errors.Is(err, apperr.ErrValidation))
		mockRepo.AssertNotCalled(t, "CreateOrderTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ItemMissingField", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := newTestService(mockRepo, now)

		bad := input
		bad.Items = []ItemInput{
			{ProductID: ptr(int64(1)), Quantity: ptr(2), UnitPrice: ptr(decimal.NewFromInt(10))},
			{ProductID: ptr(int64(2)), UnitPrice: ptr(decimal.NewFromInt(10))},
		}

		_, err := svc.PlaceOrder(ctx, bad)
		assert.Equal(t, ErrInvalidItem, err)
		mockRepo.AssertNotCalled(t, "CreateOrderTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RepoError", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := newTestService(mockRepo, now)
		mockRepo.On("CreateOrderTx", ctx, mock.Anything, mock.Anything).
			Return(int64(0), apperr.Storage(errors.New("disk full")))

		_, err := svc.PlaceOrder(ctx, input)
		assert.True(t, errors.Is(err, apperr.ErrStorage))
	})
}

func TestService_ListOrders(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRepository)
	svc := NewService(mockRepo)
	expected := []Order{{ID: 2}, {ID: 1}}
	mockRepo.On("ListOrders", ctx).Return(expected, nil)

	orders, err := svc.ListOrders(ctx)
	assert.NoError(t, err)
	assert.Equal(t, expected, orders)
}

func TestService_ListItems(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo)
		expected := []LineItem{{ID: 1, OrderID: 5}}
		mockRepo.On("ListItems", ctx, int64(5)).Return(expected, nil)

		items, err := svc.ListItems(ctx, 5)
		assert.NoError(t, err)
		assert.Equal(t, expected, items)
	})

	t.Run("NonPositiveID", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo)

		_, err := svc.ListItems(ctx, -1)
		assert.Equal(t, ErrOrderNotFound, err)
	})
}

func TestTimestamp(t *testing.T) {
	ts := Timestamp(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	assert.Equal(t, "2024-01-02T03:04:05.000Z", ts)
}
