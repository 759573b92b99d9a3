package order

import (
	"context"
	"time"

	"tienda-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (int64, error)
	ListOrders(ctx context.Context) ([]Order, error)
	ListItems(ctx context.Context, orderID int64) ([]LineItem, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

// PlaceOrder validates every item before writing anything, then stores the
// order and its items as one unit.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "PlaceOrder"),
		zap.Int("item_count", len(input.Items)),
	)

	items, err := toLineItems(input.Items)
	if err != nil {
		log.Debug("rejected order", zap.Error(err))
		return 0, err
	}

	o := Order{
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		Address:       input.Address,
		Total:         input.Total,
		CreatedAt:     Timestamp(s.now()),
	}

	start := time.Now()
	id, err := s.repo.CreateOrderTx(ctx, o, items)
	if err != nil {
		log.Error("failed to place order", zap.Error(err))
		return 0, err
	}

	log.Info("order placed",
		zap.Int64("order_id", id),
		zap.String("total", input.Total.String()),
		zap.Duration("duration", time.Since(start)),
	)
	return id, nil
}

func (s *service) ListOrders(ctx context.Context) ([]Order, error) {
	return s.repo.ListOrders(ctx)
}

func (s *service) ListItems(ctx context.Context, orderID int64) ([]LineItem, error) {
	if orderID <= 0 {
		return nil, ErrOrderNotFound
	}
	return s.repo.ListItems(ctx, orderID)
}

func toLineItems(in []ItemInput) ([]LineItem, error) {
	if len(in) == 0 {
		return nil, ErrEmptyOrder
	}

	items := make([]LineItem, 0, len(in))
	for _, it := range in {
		if it.ProductID == nil || it.Quantity == nil || it.UnitPrice == nil {
			return nil, ErrInvalidItem
		}
		items = append(items, LineItem{
			ProductID: *it.ProductID,
			Quantity:  *it.Quantity,
			UnitPrice: *it.UnitPrice,
		})
	}
	return items, nil
}
