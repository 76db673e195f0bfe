package domain

import (
	"errors"
	"time"
)

// Product is the catalog aggregate as the ordering workflow consumes it:
// a price, a stock, and a soft-delete flag. Fields are unexported so the
// only ways to obtain one are NewProduct (validated creation) and
// ReconstituteProduct (rehydration from storage).
type Product struct {
	id        int64
	brandID   int64
	name      string
	price     Money
	stock     Stock
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewProduct creates a product without an id; the store assigns one on save.
func NewProduct(brandID int64, name string, price Money, stock Stock) *Product {
	now := time.Now()
	return &Product{
		brandID:   brandID,
		name:      name,
		price:     price,
		stock:     stock,
		createdAt: now,
		updatedAt: now,
	}
}

// ReconstituteProduct rebuilds a product from persisted state. Business
// rules are not re-checked; stored data is assumed already valid.
func ReconstituteProduct(id, brandID int64, name string, price Money, stock Stock,
	createdAt, updatedAt time.Time, deletedAt *time.Time) *Product {
	return &Product{
		id:        id,
		brandID:   brandID,
		name:      name,
		price:     price,
		stock:     stock,
		createdAt: createdAt,
		updatedAt: updatedAt,
		deletedAt: deletedAt,
	}
}

// DecreaseStock removes quantity units from stock. Soft-deleted products
// refuse any mutation.
func (p *Product) DecreaseStock(quantity int) error {
	if p.IsDeleted() {
		return ErrProductDeleted
	}
	next, err := p.stock.Decrease(quantity)
	if err != nil {
		var ins *InsufficientStockError
		if errors.As(err, &ins) {
			ins.ProductID = p.id
		}
		return err
	}
	p.stock = next
	p.updatedAt = time.Now()
	return nil
}

// IncreaseStock restocks quantity units, e.g. when an order is cancelled.
func (p *Product) IncreaseStock(quantity int) error {
	if p.IsDeleted() {
		return ErrProductDeleted
	}
	next, err := p.stock.Increase(quantity)
	if err != nil {
		return err
	}
	p.stock = next
	p.updatedAt = time.Now()
	return nil
}

// Delete marks the product deleted. Idempotent: the first deletion
// timestamp is kept.
func (p *Product) Delete() {
	if p.deletedAt == nil {
		now := time.Now()
		p.deletedAt = &now
	}
}

func (p *Product) IsDeleted() bool { return p.deletedAt != nil }

func (p *Product) ID() int64            { return p.id }
func (p *Product) BrandID() int64       { return p.brandID }
func (p *Product) Name() string         { return p.name }
func (p *Product) Price() Money         { return p.price }
func (p *Product) Stock() Stock         { return p.stock }
func (p *Product) CreatedAt() time.Time { return p.createdAt }
func (p *Product) UpdatedAt() time.Time { return p.updatedAt }
func (p *Product) DeletedAt() *time.Time {
	if p.deletedAt == nil {
		return nil
	}
	t := *p.deletedAt
	return &t
}
