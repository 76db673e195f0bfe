package usecase

import (
	"context"

	"github.com/aq2208/gcommerce-api/internal/domain"
)

// ProductStore is the catalog collaborator. FindForUpdate must take an
// exclusive lock on the product row and hold it until the surrounding
// transaction commits or rolls back; concurrent decrements on the same
// product serialize behind it.
type ProductStore interface {
	// FindForUpdate returns the product even when soft-deleted, so the
	// caller can tell "not found" from "deleted". Absent rows map to
	// domain.ErrProductNotFound.
	FindForUpdate(ctx context.Context, productID int64) (*domain.Product, error)
	Save(ctx context.Context, p *domain.Product) (*domain.Product, error)
}

type OrderStore interface {
	// Save persists the order with its items and assigns identifiers.
	Save(ctx context.Context, o *domain.Order) (*domain.Order, error)
	GetByIDAndUser(ctx context.Context, id, userID int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64, offset, limit int) ([]*domain.Order, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	// UpdateStatusIf transitions id from one status to another; reports
	// false when the order is missing or no longer in the from status.
	UpdateStatusIf(ctx context.Context, id int64, from, to domain.OrderStatus) (bool, error)
}

// TxManager runs fn inside a single transaction. Store calls made with the
// context passed to fn join that transaction; returning an error rolls
// every write back, including stock already decremented.
type TxManager interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OutboxEvent is a pending integration event row.
type OutboxEvent struct {
	ID      int64
	Payload []byte
}

type OutboxStore interface {
	InsertOrderPlaced(ctx context.Context, payload []byte) error
	FetchPending(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkPublished(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

// StatusCache mirrors the latest known order status for cheap reads.
// Best-effort: failures are logged, never propagated.
type StatusCache interface {
	SetStatus(ctx context.Context, orderID int64, status string) error
	GetStatus(ctx context.Context, orderID int64) (string, bool, error)
}
