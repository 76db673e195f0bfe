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

type MySQLOrderRepo struct {
	db *sql.DB
}

func NewMySQLOrderRepo(db *sql.DB) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

// Save inserts the order and its items in request order and returns the
// aggregate rebuilt with the assigned ids.
func (r *MySQLOrderRepo) Save(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	q := conn(ctx, r.db)

	res, err := q.ExecContext(ctx, `
INSERT INTO orders (user_id, total_price, status, created_at)
VALUES (?,?,?,?)`,
		o.UserID(), o.TotalPrice().Amount(), string(o.Status()), o.CreatedAt())
	if err != nil {
		return nil, classify(err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	items := o.Items()
	withIDs := make([]*domain.OrderItem, len(items))
	for i, it := range items {
		res, err := q.ExecContext(ctx, `
INSERT INTO order_items (order_id, product_id, product_name, quantity, price_snapshot)
VALUES (?,?,?,?,?)`,
			orderID, it.ProductID(), it.ProductName(), it.Quantity(), it.PriceSnapshot().Amount())
		if err != nil {
			return nil, classify(err)
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		withIDs[i] = domain.ReconstituteOrderItem(itemID, it.ProductID(), it.ProductName(),
			it.Quantity(), it.PriceSnapshot())
	}

	return domain.ReconstituteOrder(orderID, o.UserID(), withIDs, o.TotalPrice(), o.Status(), o.CreatedAt()), nil
}

func (r *MySQLOrderRepo) GetByIDAndUser(ctx context.Context, id, userID int64) (*domain.Order, error) {
	q := conn(ctx, r.db)
	row := q.QueryRowContext(ctx, `
SELECT id, user_id, total_price, status, created_at
FROM orders WHERE id=? AND user_id=?`, id, userID)

	o, err := scanOrderHead(row, id)
	if err != nil {
		return nil, err
	}
	items, err := r.loadItems(ctx, o.id)
	if err != nil {
		return nil, err
	}
	return o.build(items), nil
}

func (r *MySQLOrderRepo) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]*domain.Order, error) {
	q := conn(ctx, r.db)
	rows, err := q.QueryContext(ctx, `
SELECT id, user_id, total_price, status, created_at
FROM orders WHERE user_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var heads []orderHead
	for rows.Next() {
		var h orderHead
		if err := rows.Scan(&h.id, &h.userID, &h.totalPrice, &h.status, &h.createdAt); err != nil {
			return nil, err
		}
		heads = append(heads, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*domain.Order, 0, len(heads))
	for _, h := range heads {
		items, err := r.loadItems(ctx, h.id)
		if err != nil {
			return nil, err
		}
		out = append(out, h.build(items))
	}
	return out, nil
}

func (r *MySQLOrderRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id=?`, userID).Scan(&n)
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// UpdateStatusIf performs a guarded transition; zero rows affected means
// the order is gone or already moved past the expected status.
func (r *MySQLOrderRepo) UpdateStatusIf(ctx context.Context, id int64, from, to domain.OrderStatus) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
UPDATE orders SET status=? WHERE id=? AND status=?`,
		string(to), id, string(from))
	if err != nil {
		return false, classify(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *MySQLOrderRepo) loadItems(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
SELECT id, product_id, product_name, quantity, price_snapshot
FROM order_items WHERE order_id=? ORDER BY id`, orderID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var items []*domain.OrderItem
	for rows.Next() {
		var (
			id, productID int64
			name          string
			qty           int
			priceAmount   int64
		)
		if err := rows.Scan(&id, &productID, &name, &qty, &priceAmount); err != nil {
			return nil, err
		}
		price, err := domain.NewMoney(priceAmount)
		if err != nil {
			return nil, fmt.Errorf("order item %d: corrupt price %d: %w", id, priceAmount, err)
		}
		items = append(items, domain.ReconstituteOrderItem(id, productID, name, qty, price))
	}
	return items, rows.Err()
}

type orderHead struct {
	id, userID, totalPrice int64
	status                 string
	createdAt              time.Time
}

func scanOrderHead(row *sql.Row, id int64) (orderHead, error) {
	var h orderHead
	if err := row.Scan(&h.id, &h.userID, &h.totalPrice, &h.status, &h.createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return h, fmt.Errorf("order %d: %w", id, domain.ErrOrderNotFound)
		}
		return h, classify(err)
	}
	return h, nil
}

func (h orderHead) build(items []*domain.OrderItem) *domain.Order {
	// stored totals are assumed valid
	total, _ := domain.NewMoney(h.totalPrice)
	return domain.ReconstituteOrder(h.id, h.userID, items, total, domain.OrderStatus(h.status), h.createdAt)
}

var _ usecase.OrderStore = (*MySQLOrderRepo)(nil)
