// Package memrepo is an in-memory implementation of the usecase store
// ports with the same locking discipline the MySQL adapter gets from
// InnoDB: FindForUpdate takes an exclusive per-product lock held until
// the surrounding transaction ends, and every write is journaled and
// applied only on commit. Used by tests and the storeless dev profile.
package memrepo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aq2208/gcommerce-api/internal/domain"
)

const defaultLockWait = 3 * time.Second

var errNoTx = errors.New("memrepo: operation requires a transaction")

// Store holds the shared state. Repos (ProductRepo, OrderRepo, OutboxRepo)
// are thin facades over it, the way the MySQL repos share one *sql.DB.
type Store struct {
	mu       sync.Mutex
	products map[int64]*domain.Product
	orders   map[int64]*domain.Order
	outbox   []outboxRow
	locks    map[int64]chan struct{}

	nextProductID int64
	nextOrderID   int64
	nextItemID    int64
	nextEventID   int64

	lockWait time.Duration
}

type outboxRow struct {
	id      int64
	payload []byte
	pending bool
	retries int
}

type Option func(*Store)

// WithLockWait bounds how long FindForUpdate blocks on a contended
// product before failing with domain.ErrLockWaitTimeout.
func WithLockWait(d time.Duration) Option {
	return func(s *Store) { s.lockWait = d }
}

func New(opts ...Option) *Store {
	s := &Store{
		products: make(map[int64]*domain.Product),
		orders:   make(map[int64]*domain.Order),
		locks:    make(map[int64]chan struct{}),
		lockWait: defaultLockWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- transactions ---

type txKey struct{}

type tx struct {
	store  *Store
	locked []int64                   // acquisition order, released in reverse
	reads  map[int64]*domain.Product // working copies, private to this tx
	dirty  map[int64]*domain.Product // staged product writes
	orders []*domain.Order           // staged order inserts
	events [][]byte                  // staged outbox inserts
}

func txFrom(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

// InTx implements usecase.TxManager. fn's writes are buffered in the
// transaction and applied atomically on success; any error (or panic)
// discards them, so stock decremented earlier in the same call is never
// observable after a failure.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t := &tx{
		store: s,
		reads: make(map[int64]*domain.Product),
		dirty: make(map[int64]*domain.Product),
	}
	defer t.release()

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	t.commit()
	return nil
}

func (t *tx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range t.dirty {
		s.products[id] = p
	}
	for _, o := range t.orders {
		s.orders[o.ID()] = o
	}
	for _, payload := range t.events {
		s.nextEventID++
		s.outbox = append(s.outbox, outboxRow{id: s.nextEventID, payload: payload, pending: true})
	}
}

func (t *tx) release() {
	s := t.store
	for i := len(t.locked) - 1; i >= 0; i-- {
		s.mu.Lock()
		l := s.locks[t.locked[i]]
		s.mu.Unlock()
		<-l
	}
	t.locked = nil
}

// acquire blocks until the product's row lock is free, the context is
// done, or the wait window elapses.
func (s *Store) acquire(ctx context.Context, t *tx, id int64) error {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[id] = l
	}
	s.mu.Unlock()

	select {
	case l <- struct{}{}:
		t.locked = append(t.locked, id)
		return nil
	default:
	}

	timer := time.NewTimer(s.lockWait)
	defer timer.Stop()
	select {
	case l <- struct{}{}:
		t.locked = append(t.locked, id)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("product %d: %w", id, domain.ErrLockWaitTimeout)
	}
}

// --- aggregate copying ---
// Stores never hand out their own aggregate pointers; callers mutate
// private copies that only become visible on commit.

func cloneProduct(p *domain.Product) *domain.Product {
	return domain.ReconstituteProduct(
		p.ID(), p.BrandID(), p.Name(), p.Price(), p.Stock(),
		p.CreatedAt(), p.UpdatedAt(), p.DeletedAt(),
	)
}

func cloneOrder(o *domain.Order) *domain.Order {
	return domain.ReconstituteOrder(
		o.ID(), o.UserID(), o.Items(), o.TotalPrice(), o.Status(), o.CreatedAt(),
	)
}
