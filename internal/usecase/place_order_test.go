package usecase_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aq2208/gcommerce-api/internal/adapter/memrepo"
	"github.com/aq2208/gcommerce-api/internal/domain"
	"github.com/aq2208/gcommerce-api/internal/usecase"
)

type fixture struct {
	store    *memrepo.Store
	products *memrepo.ProductRepo
	orders   *memrepo.OrderRepo
	outbox   *memrepo.OutboxRepo
	place    *usecase.PlaceOrder
}

func newFixture(t *testing.T, opts ...memrepo.Option) *fixture {
	t.Helper()
	s := memrepo.New(opts...)
	f := &fixture{
		store:    s,
		products: memrepo.NewProductRepo(s),
		orders:   memrepo.NewOrderRepo(s),
		outbox:   memrepo.NewOutboxRepo(s),
	}
	f.place = usecase.NewPlaceOrder(s, f.products, f.orders, f.outbox, nil)
	return f
}

// seed stores a product and returns its assigned id.
func (f *fixture) seed(t *testing.T, name string, price int64, stock int) int64 {
	t.Helper()
	m, err := domain.NewMoney(price)
	require.NoError(t, err)
	st, err := domain.NewStock(stock)
	require.NoError(t, err)
	p, err := f.products.Save(context.Background(), domain.NewProduct(1, name, m, st))
	require.NoError(t, err)
	return p.ID()
}

func (f *fixture) stockOf(t *testing.T, id int64) int {
	t.Helper()
	p, err := f.products.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock().Quantity()
}

func TestPlaceOrderHappyPath(t *testing.T) {
	f := newFixture(t)
	keyboard := f.seed(t, "Keyboard", 10000, 100)
	monitor := f.seed(t, "Monitor", 20000, 50)

	order, err := f.place.Execute(context.Background(), usecase.PlaceOrderInput{
		UserID: 7,
		Lines: []usecase.OrderLine{
			{ProductID: keyboard, Quantity: 2},
			{ProductID: monitor, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.NotZero(t, order.ID())
	assert.Equal(t, int64(7), order.UserID())
	assert.Equal(t, domain.OrderCreated, order.Status())
	assert.Equal(t, int64(40000), order.TotalPrice().Amount())

	items := order.Items()
	require.Len(t, items, 2)
	assert.Equal(t, keyboard, items[0].ProductID())
	assert.Equal(t, "Keyboard", items[0].ProductName())
	assert.Equal(t, 2, items[0].Quantity())
	assert.Equal(t, int64(10000), items[0].PriceSnapshot().Amount())
	assert.Equal(t, monitor, items[1].ProductID())
	assert.Equal(t, int64(20000), items[1].PriceSnapshot().Amount())

	assert.Equal(t, 98, f.stockOf(t, keyboard))
	assert.Equal(t, 49, f.stockOf(t, monitor))

	got, err := f.orders.GetByIDAndUser(context.Background(), order.ID(), 7)
	require.NoError(t, err)
	assert.Equal(t, order.ID(), got.ID())
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.place.Execute(context.Background(), usecase.PlaceOrderInput{UserID: 7})
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)
}

func TestPlaceOrderInvalidQuantity(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Keyboard", 10000, 100)

	for _, qty := range []int{0, -1} {
		_, err := f.place.Execute(context.Background(), usecase.PlaceOrderInput{
			UserID: 7,
			Lines:  []usecase.OrderLine{{ProductID: id, Quantity: qty}},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	}
	assert.Equal(t, 100, f.stockOf(t, id))
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.place.Execute(context.Background(), usecase.PlaceOrderInput{
		UserID: 7,
		Lines:  []usecase.OrderLine{{ProductID: 999, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestPlaceOrderDeletedProduct(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Keyboard", 10000, 100)

	p, err := f.products.Get(context.Background(), id)
	require.NoError(t, err)
	p.Delete()
	_, err = f.products.Save(context.Background(), p)
	require.NoError(t, err)

	_, err = f.place.Execute(context.Background(), usecase.PlaceOrderInput{
		UserID: 7,
		Lines:  []usecase.OrderLine{{ProductID: id, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrProductDeleted)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Keyboard", 10000, 5)

	_, err := f.place.Execute(context.Background(), usecase.PlaceOrderInput{
		UserID: 7,
		Lines:  []usecase.OrderLine{{ProductID: id, Quantity: 10}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	var ins *domain.InsufficientStockError
	require.ErrorAs(t, err, &ins)
	assert.Equal(t, id, ins.ProductID)
	assert.Equal(t, 10, ins.Requested)
	assert.Equal(t, 5, ins.Available)

	// the failed placement left no trace
	assert.Equal(t, 5, f.stockOf(t, id))
	n, err := f.orders.CountByUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPlaceOrderRollsBackEarlierDecrements(t *testing.T) {
	f := newFixture(t)
	plenty := f.seed(t, "Keyboard", 10000, 100)
	scarce := f.seed(t, "Monitor", 20000, 1)

	_, err := f.place.Execute(context.Background(), usecase.PlaceOrderInput{
		UserID: 7,
		Lines: []usecase.OrderLine{
			{ProductID: plenty, Quantity: 3},
			{ProductID: scarce, Quantity: 2},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// the first line's decrement must not survive the failed second line
	assert.Equal(t, 100, f.stockOf(t, plenty))
	assert.Equal(t, 1, f.stockOf(t, scarce))
}

func TestPlaceOrderSnapshotImmuneToLaterPriceChange(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Keyboard", 10000, 100)

	order, err := f.place.Execute(context.Background(), usecase.PlaceOrderInput{
		UserID: 7,
		Lines:  []usecase.OrderLine{{ProductID: id, Quantity: 2}},
	})
	require.NoError(t, err)

	// reprice and rename the product after the order was placed
	newPrice, _ := domain.NewMoney(99999)
	p, err := f.products.Get(context.Background(), id)
	require.NoError(t, err)
	repriced := domain.ReconstituteProduct(p.ID(), p.BrandID(), "Keyboard v2", newPrice,
		p.Stock(), p.CreatedAt(), p.UpdatedAt(), p.DeletedAt())
	_, err = f.products.Save(context.Background(), repriced)
	require.NoError(t, err)

	got, err := f.orders.GetByIDAndUser(context.Background(), order.ID(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.Items()[0].PriceSnapshot().Amount())
	assert.Equal(t, "Keyboard", got.Items()[0].ProductName())
	assert.Equal(t, int64(20000), got.TotalPrice().Amount())
}

func TestPlaceOrderLastUnitExactlyOnce(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Keyboard", 10000, 1)

	const racers = 2
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.place.Execute(context.Background(), usecase.PlaceOrderInput{
				UserID: int64(100 + i),
				Lines:  []usecase.OrderLine{{ProductID: id, Quantity: 1}},
			})
		}(i)
	}
	wg.Wait()

	var wins, rejections int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			rejections++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, rejections)
	assert.Equal(t, 0, f.stockOf(t, id))
}

func TestPlaceOrderNeverOversells(t *testing.T) {
	f := newFixture(t)
	const initial = 40
	id := f.seed(t, "Keyboard", 10000, initial)

	const racers = 25
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sold int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			qty := 1 + rand.Intn(4)
			_, err := f.place.Execute(context.Background(), usecase.PlaceOrderInput{
				UserID: int64(100 + i),
				Lines:  []usecase.OrderLine{{ProductID: id, Quantity: qty}},
			})
			if err == nil {
				mu.Lock()
				sold += qty
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			}
		}(i)
	}
	wg.Wait()

	remaining := f.stockOf(t, id)
	assert.GreaterOrEqual(t, remaining, 0)
	assert.Equal(t, initial, remaining+sold)
}

// Two placements listing the same products in opposite order must not
// deadlock; locks are taken in ascending product id order either way.
func TestPlaceOrderOppositeLineOrderNoDeadlock(t *testing.T) {
	f := newFixture(t, memrepo.WithLockWait(5*time.Second))
	a := f.seed(t, "Keyboard", 10000, 1000)
	b := f.seed(t, "Monitor", 20000, 1000)

	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := f.place.Execute(context.Background(), usecase.PlaceOrderInput{
				UserID: 1,
				Lines: []usecase.OrderLine{
					{ProductID: a, Quantity: 1},
					{ProductID: b, Quantity: 1},
				},
			})
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := f.place.Execute(context.Background(), usecase.PlaceOrderInput{
				UserID: 2,
				Lines: []usecase.OrderLine{
					{ProductID: b, Quantity: 1},
					{ProductID: a, Quantity: 1},
				},
			})
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	assert.Equal(t, 1000-2*rounds, f.stockOf(t, a))
	assert.Equal(t, 1000-2*rounds, f.stockOf(t, b))
}

func TestPlaceOrderDuplicateLinesForSameProduct(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Keyboard", 10000, 10)

	order, err := f.place.Execute(context.Background(), usecase.PlaceOrderInput{
		UserID: 7,
		Lines: []usecase.OrderLine{
			{ProductID: id, Quantity: 2},
			{ProductID: id, Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.Len(t, order.Items(), 2)
	assert.Equal(t, int64(50000), order.TotalPrice().Amount())
	assert.Equal(t, 5, f.stockOf(t, id))
}

func TestPlaceOrderWritesOutboxEvent(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Keyboard", 10000, 100)

	_, err := f.place.Execute(context.Background(), usecase.PlaceOrderInput{
		UserID: 7,
		Lines:  []usecase.OrderLine{{ProductID: id, Quantity: 1}},
	})
	require.NoError(t, err)

	pending, err := f.outbox.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Contains(t, string(pending[0].Payload), `"orderId"`)
}

func TestPlaceOrderNoOutboxEventOnFailure(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Keyboard", 10000, 1)

	_, err := f.place.Execute(context.Background(), usecase.PlaceOrderInput{
		UserID: 7,
		Lines:  []usecase.OrderLine{{ProductID: id, Quantity: 5}},
	})
	require.Error(t, err)

	pending, err := f.outbox.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// fakeIdem is an in-test IdempotencyStore.
type fakeIdem struct {
	mu     sync.Mutex
	locks  map[string]bool
	values map[string]string
}

func newFakeIdem() *fakeIdem {
	return &fakeIdem{locks: make(map[string]bool), values: make(map[string]string)}
}

func (f *fakeIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := scope + ":" + key
	if f.locks[k] {
		return false, nil
	}
	f.locks[k] = true
	return true, nil
}

func (f *fakeIdem) Remember(_ context.Context, scope, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[scope+":"+key] = value
	return nil
}

func (f *fakeIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[scope+":"+key]
	return v, ok, nil
}

func TestPlaceOrderIdempotentReplay(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Keyboard", 10000, 100)
	idem := newFakeIdem()
	place := usecase.NewPlaceOrder(f.store, f.products, f.orders, f.outbox, idem)

	in := usecase.PlaceOrderInput{
		UserID:         7,
		IdempotencyKey: "req-123",
		Lines:          []usecase.OrderLine{{ProductID: id, Quantity: 2}},
	}

	first, err := place.Execute(context.Background(), in)
	require.NoError(t, err)

	second, err := place.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())

	// only the first request touched stock
	assert.Equal(t, 98, f.stockOf(t, id))
	n, err := f.orders.CountByUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPlaceOrderDuplicateInFlight(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Keyboard", 10000, 100)
	idem := newFakeIdem()
	place := usecase.NewPlaceOrder(f.store, f.products, f.orders, f.outbox, idem)

	// simulate a request that took the lock but has not finished
	ok, err := idem.TryLock(context.Background(), "7", "req-9")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = place.Execute(context.Background(), usecase.PlaceOrderInput{
		UserID:         7,
		IdempotencyKey: "req-9",
		Lines:          []usecase.OrderLine{{ProductID: id, Quantity: 1}},
	})
	assert.ErrorIs(t, err, usecase.ErrDuplicateRequest)
	assert.Equal(t, 100, f.stockOf(t, id))
}
