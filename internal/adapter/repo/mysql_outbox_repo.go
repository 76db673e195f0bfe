package repo

import (
	"context"
	"database/sql"

	"github.com/aq2208/gcommerce-api/internal/usecase"
)

type MySQLOutboxRepo struct {
	db *sql.DB
}

func NewMySQLOutboxRepo(db *sql.DB) *MySQLOutboxRepo { return &MySQLOutboxRepo{db: db} }

// InsertOrderPlaced joins the caller's transaction, so the event row
// commits together with the order it announces.
func (r *MySQLOutboxRepo) InsertOrderPlaced(ctx context.Context, payload []byte) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
INSERT INTO outbox (channel, payload, status, retry_count, next_attempt_at, created_at)
VALUES ('order.placed', ?, 'PENDING', 0, NOW(), NOW())`, payload)
	return classify(err)
}

func (r *MySQLOutboxRepo) FetchPending(ctx context.Context, limit int) ([]usecase.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, payload FROM outbox
WHERE status='PENDING' AND next_attempt_at <= NOW()
ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []usecase.OutboxEvent
	for rows.Next() {
		var ev usecase.OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.Payload); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *MySQLOutboxRepo) MarkPublished(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET status='SENT' WHERE id=?`, id)
	return classify(err)
}

// MarkFailed bumps the retry counter and backs the row off for a minute.
func (r *MySQLOutboxRepo) MarkFailed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE outbox SET retry_count = retry_count + 1,
       next_attempt_at = DATE_ADD(NOW(), INTERVAL 1 MINUTE)
WHERE id=?`, id)
	return classify(err)
}

var _ usecase.OutboxStore = (*MySQLOutboxRepo)(nil)
