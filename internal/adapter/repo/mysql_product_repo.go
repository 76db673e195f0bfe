package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aq2208/gcommerce-api/internal/domain"
	"github.com/aq2208/gcommerce-api/internal/usecase"
)

type MySQLProductRepo struct {
	db *sql.DB
}

func NewMySQLProductRepo(db *sql.DB) *MySQLProductRepo { return &MySQLProductRepo{db: db} }

// FindForUpdate reads the row with SELECT ... FOR UPDATE, so the exclusive
// row lock is held until the surrounding transaction ends. Soft-deleted
// rows are returned, not filtered: the workflow needs to distinguish
// deleted from absent.
func (r *MySQLProductRepo) FindForUpdate(ctx context.Context, productID int64) (*domain.Product, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `
SELECT id, brand_id, name, price, stock_quantity, created_at, updated_at, deleted_at
FROM products WHERE id = ? FOR UPDATE`, productID)
	return scanProduct(row, productID)
}

func (r *MySQLProductRepo) Save(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	q := conn(ctx, r.db)
	var deletedAt sql.NullTime
	if t := p.DeletedAt(); t != nil {
		deletedAt = sql.NullTime{Time: *t, Valid: true}
	}

	if p.ID() == 0 {
		res, err := q.ExecContext(ctx, `
INSERT INTO products (brand_id, name, price, stock_quantity, created_at, updated_at, deleted_at)
VALUES (?,?,?,?,?,?,?)`,
			p.BrandID(), p.Name(), p.Price().Amount(), p.Stock().Quantity(),
			p.CreatedAt(), p.UpdatedAt(), deletedAt)
		if err != nil {
			return nil, classify(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		return domain.ReconstituteProduct(id, p.BrandID(), p.Name(), p.Price(), p.Stock(),
			p.CreatedAt(), p.UpdatedAt(), p.DeletedAt()), nil
	}

	_, err := q.ExecContext(ctx, `
UPDATE products SET name=?, price=?, stock_quantity=?, updated_at=?, deleted_at=?
WHERE id=?`,
		p.Name(), p.Price().Amount(), p.Stock().Quantity(), p.UpdatedAt(), deletedAt, p.ID())
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

func scanProduct(row *sql.Row, productID int64) (*domain.Product, error) {
	var (
		id, brandID          int64
		name                 string
		priceAmount          int64
		stockQty             int
		createdAt, updatedAt time.Time
		deletedAt            sql.NullTime
	)
	if err := row.Scan(&id, &brandID, &name, &priceAmount, &stockQty, &createdAt, &updatedAt, &deletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, domain.ErrProductNotFound)
		}
		return nil, classify(err)
	}

	price, err := domain.NewMoney(priceAmount)
	if err != nil {
		return nil, fmt.Errorf("product %d: corrupt price %d: %w", id, priceAmount, err)
	}
	stock, err := domain.NewStock(stockQty)
	if err != nil {
		return nil, fmt.Errorf("product %d: corrupt stock %d: %w", id, stockQty, err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}
	return domain.ReconstituteProduct(id, brandID, name, price, stock, createdAt, updatedAt, deleted), nil
}

var _ usecase.ProductStore = (*MySQLProductRepo)(nil)
