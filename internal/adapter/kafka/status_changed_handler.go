package kafka

import (
	"context"
	"log/slog"

	"github.com/aq2208/gcommerce-api/internal/domain"
	"github.com/aq2208/gcommerce-api/internal/logging"
	"github.com/aq2208/gcommerce-api/internal/usecase"
)

// StatusChangedHandler applies payment-gateway outcomes to created orders.
// The transition is guarded: only CREATED orders move, so replays and
// out-of-order deliveries cannot regress a status.
type StatusChangedHandler struct {
	orders usecase.OrderStore
	cache  usecase.StatusCache // optional
	log    *slog.Logger
}

func NewStatusChangedHandler(orders usecase.OrderStore, cache usecase.StatusCache) *StatusChangedHandler {
	return &StatusChangedHandler{
		orders: orders,
		cache:  cache,
		log:    logging.New("status-changed"),
	}
}

func (h *StatusChangedHandler) Handle(ctx context.Context, ev usecase.OrderStatusChangedMsg) error {
	var next domain.OrderStatus
	switch ev.Status {
	case "SUCCESS":
		next = domain.OrderPaid
	default:
		next = domain.OrderCancelled
	}

	moved, err := h.orders.UpdateStatusIf(ctx, ev.OrderID, domain.OrderCreated, next)
	if err != nil {
		return err
	}
	if !moved {
		h.log.Info("transition skipped", "order_id", ev.OrderID, "to", string(next))
		return nil
	}

	if h.cache != nil {
		// best effort
		_ = h.cache.SetStatus(ctx, ev.OrderID, string(next))
	}
	return nil
}
