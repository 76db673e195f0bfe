package memrepo

import (
	"context"
	"fmt"

	"github.com/aq2208/gcommerce-api/internal/domain"
	"github.com/aq2208/gcommerce-api/internal/usecase"
)

type ProductRepo struct {
	s *Store
}

func NewProductRepo(s *Store) *ProductRepo { return &ProductRepo{s: s} }

// FindForUpdate locks the product row for the rest of the transaction and
// returns a private working copy. Soft-deleted products are returned so
// the workflow can distinguish deleted from absent.
func (r *ProductRepo) FindForUpdate(ctx context.Context, productID int64) (*domain.Product, error) {
	t := txFrom(ctx)
	if t == nil {
		return nil, errNoTx
	}
	if p, ok := t.reads[productID]; ok {
		return p, nil
	}
	if err := r.s.acquire(ctx, t, productID); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	src, ok := r.s.products[productID]
	r.s.mu.Unlock()
	if !ok {
		// lock stays held until tx end, same as an InnoDB gap lock would
		return nil, fmt.Errorf("product %d: %w", productID, domain.ErrProductNotFound)
	}

	cp := cloneProduct(src)
	t.reads[productID] = cp
	return cp, nil
}

// Save stages the product inside a transaction, or applies it directly
// when called outside one (seeding, catalog writes). Products without an
// id get one assigned.
func (r *ProductRepo) Save(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	r.s.mu.Lock()
	if p.ID() == 0 {
		r.s.nextProductID++
		p = domain.ReconstituteProduct(
			r.s.nextProductID, p.BrandID(), p.Name(), p.Price(), p.Stock(),
			p.CreatedAt(), p.UpdatedAt(), p.DeletedAt(),
		)
	}
	r.s.mu.Unlock()

	if t := txFrom(ctx); t != nil {
		t.dirty[p.ID()] = p
		return p, nil
	}

	r.s.mu.Lock()
	r.s.products[p.ID()] = cloneProduct(p)
	r.s.mu.Unlock()
	return p, nil
}

// Get reads committed state without locking; tests use it to observe
// stock after a workflow run.
func (r *ProductRepo) Get(ctx context.Context, productID int64) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", productID, domain.ErrProductNotFound)
	}
	return cloneProduct(p), nil
}

var _ usecase.ProductStore = (*ProductRepo)(nil)
