package usecase

import (
	"context"

	"github.com/aq2208/gcommerce-api/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// OrderQueries reads orders back for their owner. Lookups are scoped to
// the requesting user so one user cannot read another's orders.
type OrderQueries struct {
	orders OrderStore
	cache  StatusCache // optional
}

func NewOrderQueries(orders OrderStore, cache StatusCache) *OrderQueries {
	return &OrderQueries{orders: orders, cache: cache}
}

func (q *OrderQueries) Get(ctx context.Context, orderID, userID int64) (*domain.Order, error) {
	return q.orders.GetByIDAndUser(ctx, orderID, userID)
}

// Status prefers the cached value and falls back to the stored order.
func (q *OrderQueries) Status(ctx context.Context, orderID, userID int64) (domain.OrderStatus, error) {
	if q.cache != nil {
		if s, ok, err := q.cache.GetStatus(ctx, orderID); err == nil && ok {
			return domain.OrderStatus(s), nil
		}
	}
	o, err := q.orders.GetByIDAndUser(ctx, orderID, userID)
	if err != nil {
		return "", err
	}
	return o.Status(), nil
}

func (q *OrderQueries) List(ctx context.Context, userID int64, offset, limit int) ([]*domain.Order, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return q.orders.ListByUser(ctx, userID, offset, limit)
}

func (q *OrderQueries) Count(ctx context.Context, userID int64) (int64, error) {
	return q.orders.CountByUser(ctx, userID)
}
