package domain

import "time"

type OrderStatus string

const (
	OrderCreated   OrderStatus = "CREATED"
	OrderPaid      OrderStatus = "PAID"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// OrderItem is one order line: a snapshot of the product's identity, name
// and unit price at the moment the order was placed. It never re-reads the
// live product, so later catalog changes cannot alter a placed order.
type OrderItem struct {
	id            int64
	productID     int64
	productName   string
	quantity      int
	priceSnapshot Money
}

func NewOrderItem(productID int64, productName string, quantity int, unitPrice Money) (*OrderItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return &OrderItem{
		productID:     productID,
		productName:   productName,
		quantity:      quantity,
		priceSnapshot: unitPrice,
	}, nil
}

// ReconstituteOrderItem rebuilds an item from persisted state.
func ReconstituteOrderItem(id, productID int64, productName string, quantity int, priceSnapshot Money) *OrderItem {
	return &OrderItem{
		id:            id,
		productID:     productID,
		productName:   productName,
		quantity:      quantity,
		priceSnapshot: priceSnapshot,
	}
}

// Subtotal is the snapshot unit price times the quantity.
func (i *OrderItem) Subtotal() Money {
	// quantity was validated at construction, Multiply cannot fail here
	m, _ := i.priceSnapshot.Multiply(i.quantity)
	return m
}

func (i *OrderItem) ID() int64            { return i.id }
func (i *OrderItem) ProductID() int64     { return i.productID }
func (i *OrderItem) ProductName() string  { return i.productName }
func (i *OrderItem) Quantity() int        { return i.quantity }
func (i *OrderItem) PriceSnapshot() Money { return i.priceSnapshot }

// Order is the aggregate root: an immutable-after-creation list of items
// plus the total computed once, at creation.
type Order struct {
	id         int64
	userID     int64
	items      []*OrderItem
	totalPrice Money
	status     OrderStatus
	createdAt  time.Time
}

// NewOrder creates an order from at least one item. The total is the
// left-to-right fold of the item subtotals and is never recomputed.
func NewOrder(userID int64, items []*OrderItem) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	total := MoneyZero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	own := make([]*OrderItem, len(items))
	copy(own, items)
	return &Order{
		userID:     userID,
		items:      own,
		totalPrice: total,
		status:     OrderCreated,
		createdAt:  time.Now(),
	}, nil
}

// ReconstituteOrder rebuilds an order from persisted state, ids included.
func ReconstituteOrder(id, userID int64, items []*OrderItem, totalPrice Money,
	status OrderStatus, createdAt time.Time) *Order {
	own := make([]*OrderItem, len(items))
	copy(own, items)
	return &Order{
		id:         id,
		userID:     userID,
		items:      own,
		totalPrice: totalPrice,
		status:     status,
		createdAt:  createdAt,
	}
}

// Items returns a copy of the item list; callers cannot reorder or
// replace the order's own lines.
func (o *Order) Items() []*OrderItem {
	out := make([]*OrderItem, len(o.items))
	copy(out, o.items)
	return out
}

func (o *Order) ID() int64           { return o.id }
func (o *Order) UserID() int64       { return o.userID }
func (o *Order) TotalPrice() Money   { return o.totalPrice }
func (o *Order) Status() OrderStatus { return o.status }
func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}
