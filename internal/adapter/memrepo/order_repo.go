package memrepo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aq2208/gcommerce-api/internal/domain"
	"github.com/aq2208/gcommerce-api/internal/usecase"
)

type OrderRepo struct {
	s *Store
}

func NewOrderRepo(s *Store) *OrderRepo { return &OrderRepo{s: s} }

// Save assigns order and item ids and stages the insert; it only becomes
// readable once the transaction commits. Ids burned by a rolled-back
// transaction are not reused, matching sequence semantics.
func (r *OrderRepo) Save(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	t := txFrom(ctx)
	if t == nil {
		return nil, errNoTx
	}

	r.s.mu.Lock()
	r.s.nextOrderID++
	orderID := r.s.nextOrderID
	items := o.Items()
	withIDs := make([]*domain.OrderItem, len(items))
	for i, it := range items {
		r.s.nextItemID++
		withIDs[i] = domain.ReconstituteOrderItem(
			r.s.nextItemID, it.ProductID(), it.ProductName(), it.Quantity(), it.PriceSnapshot(),
		)
	}
	r.s.mu.Unlock()

	saved := domain.ReconstituteOrder(orderID, o.UserID(), withIDs, o.TotalPrice(), o.Status(), o.CreatedAt())
	t.orders = append(t.orders, saved)
	return saved, nil
}

func (r *OrderRepo) GetByIDAndUser(ctx context.Context, id, userID int64) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.UserID() != userID {
		return nil, fmt.Errorf("order %d: %w", id, domain.ErrOrderNotFound)
	}
	return cloneOrder(o), nil
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]*domain.Order, error) {
	r.s.mu.Lock()
	all := make([]*domain.Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		if o.UserID() == userID {
			all = append(all, o)
		}
	}
	r.s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt().After(all[j].CreatedAt()) })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	out := make([]*domain.Order, len(all))
	for i, o := range all {
		out[i] = cloneOrder(o)
	}
	return out, nil
}

func (r *OrderRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, o := range r.s.orders {
		if o.UserID() == userID {
			n++
		}
	}
	return n, nil
}

func (r *OrderRepo) UpdateStatusIf(ctx context.Context, id int64, from, to domain.OrderStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.Status() != from {
		return false, nil
	}
	r.s.orders[id] = domain.ReconstituteOrder(o.ID(), o.UserID(), o.Items(), o.TotalPrice(), to, o.CreatedAt())
	return true, nil
}

var _ usecase.OrderStore = (*OrderRepo)(nil)
