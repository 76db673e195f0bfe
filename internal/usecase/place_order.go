package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/aq2208/gcommerce-api/internal/domain"
	"github.com/aq2208/gcommerce-api/internal/logging"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ErrDuplicateRequest = errors.New("duplicate order request")

var (
	ordersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of successfully placed orders",
	})
	placeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_place_duration_ms",
		Help:    "Duration of order placement in ms",
		Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
	})
	stockRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_stock_rejections_total",
		Help: "Order placements rejected for insufficient stock",
	})
)

// OrderLine is one requested line of a placement: which product, how many.
type OrderLine struct {
	ProductID int64
	Quantity  int
}

type PlaceOrderInput struct {
	UserID         int64
	IdempotencyKey string // optional, empty disables idempotency handling
	Lines          []OrderLine
}

// PlaceOrder converts a cart of (product, quantity) lines into a persisted
// order without ever overselling a product. All stock decrements, the order
// row and its items, and the outbox event commit as one transaction.
type PlaceOrder struct {
	tx       TxManager
	products ProductStore
	orders   OrderStore
	outbox   OutboxStore      // optional
	idem     IdempotencyStore // optional
	log      *slog.Logger
}

func NewPlaceOrder(tx TxManager, products ProductStore, orders OrderStore,
	outbox OutboxStore, idem IdempotencyStore) *PlaceOrder {
	return &PlaceOrder{
		tx:       tx,
		products: products,
		orders:   orders,
		outbox:   outbox,
		idem:     idem,
		log:      logging.New("place-order"),
	}
}

func (uc *PlaceOrder) Execute(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	if len(in.Lines) == 0 {
		return nil, domain.ErrEmptyOrder
	}
	for _, ln := range in.Lines {
		if ln.Quantity < 1 {
			return nil, fmt.Errorf("product %d: %w", ln.ProductID, domain.ErrInvalidQuantity)
		}
	}

	scope := strconv.FormatInt(in.UserID, 10)
	if uc.idem != nil && in.IdempotencyKey != "" {
		// Fast path: this exact request was already placed.
		if v, ok, err := uc.idem.Recall(ctx, scope, in.IdempotencyKey); err == nil && ok {
			id, perr := strconv.ParseInt(v, 10, 64)
			if perr == nil {
				return uc.orders.GetByIDAndUser(ctx, id, in.UserID)
			}
		}
		ok, err := uc.idem.TryLock(ctx, scope, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
	}

	start := time.Now()
	var placed *domain.Order
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		// Lock the distinct products in ascending id order, regardless of
		// the order the caller listed them in. Two concurrent orders that
		// share products then always contend in the same direction and
		// cannot deadlock.
		locked := make(map[int64]*domain.Product, len(in.Lines))
		for _, id := range distinctSortedIDs(in.Lines) {
			p, err := uc.products.FindForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if p.IsDeleted() {
				return fmt.Errorf("product %d: %w", id, domain.ErrProductDeleted)
			}
			locked[id] = p
		}

		// Decrement and snapshot in the caller's original line order, so
		// Order.items comes out in request order.
		items := make([]*domain.OrderItem, 0, len(in.Lines))
		for _, ln := range in.Lines {
			p := locked[ln.ProductID]
			if err := p.DecreaseStock(ln.Quantity); err != nil {
				return err
			}
			if _, err := uc.products.Save(ctx, p); err != nil {
				return err
			}
			item, err := domain.NewOrderItem(p.ID(), p.Name(), ln.Quantity, p.Price())
			if err != nil {
				return err
			}
			items = append(items, item)
		}

		order, err := domain.NewOrder(in.UserID, items)
		if err != nil {
			return err
		}
		saved, err := uc.orders.Save(ctx, order)
		if err != nil {
			return err
		}

		if uc.outbox != nil {
			payload, err := json.Marshal(OrderPlacedMsg{
				EventID:    uuid.NewString(),
				OrderID:    saved.ID(),
				UserID:     saved.UserID(),
				TotalPrice: saved.TotalPrice().Amount(),
				PlacedAt:   saved.CreatedAt(),
			})
			if err != nil {
				return err
			}
			if err := uc.outbox.InsertOrderPlaced(ctx, payload); err != nil {
				return err
			}
		}

		placed = saved
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			stockRejections.Inc()
		}
		return nil, err
	}

	if uc.idem != nil && in.IdempotencyKey != "" {
		_ = uc.idem.Remember(ctx, scope, in.IdempotencyKey, strconv.FormatInt(placed.ID(), 10))
	}

	ordersPlaced.Inc()
	placeDuration.Observe(float64(time.Since(start).Milliseconds()))
	uc.log.Info("order placed",
		"order_id", placed.ID(),
		"user_id", placed.UserID(),
		"items", len(placed.Items()),
		"total", placed.TotalPrice().Amount(),
	)
	return placed, nil
}

func distinctSortedIDs(lines []OrderLine) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, ln := range lines {
		if _, ok := seen[ln.ProductID]; ok {
			continue
		}
		seen[ln.ProductID] = struct{}{}
		ids = append(ids, ln.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
