package memrepo

import (
	"context"

	"github.com/aq2208/gcommerce-api/internal/usecase"
)

type OutboxRepo struct {
	s *Store
}

func NewOutboxRepo(s *Store) *OutboxRepo { return &OutboxRepo{s: s} }

// InsertOrderPlaced stages the event with the transaction, so the event
// row commits or rolls back together with the order it announces.
func (r *OutboxRepo) InsertOrderPlaced(ctx context.Context, payload []byte) error {
	t := txFrom(ctx)
	if t == nil {
		return errNoTx
	}
	t.events = append(t.events, payload)
	return nil
}

func (r *OutboxRepo) FetchPending(ctx context.Context, limit int) ([]usecase.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []usecase.OutboxEvent
	for _, row := range r.s.outbox {
		if !row.pending {
			continue
		}
		out = append(out, usecase.OutboxEvent{ID: row.id, Payload: row.payload})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepo) MarkPublished(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.outbox {
		if r.s.outbox[i].id == id {
			r.s.outbox[i].pending = false
			break
		}
	}
	return nil
}

func (r *OutboxRepo) MarkFailed(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.outbox {
		if r.s.outbox[i].id == id {
			r.s.outbox[i].retries++
			break
		}
	}
	return nil
}

var _ usecase.OutboxStore = (*OutboxRepo)(nil)
