package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/aq2208/gcommerce-api/internal/logging"
	"github.com/aq2208/gcommerce-api/internal/usecase"
)

// Publisher sends one event payload to the broker.
type Publisher interface {
	PublishPlaced(ctx context.Context, body []byte) error
}

// OutboxDrainer polls the outbox table and forwards pending rows to the
// broker. Publishing is at-least-once: a row is marked SENT only after a
// successful publish, so consumers must tolerate duplicates.
type OutboxDrainer struct {
	outbox usecase.OutboxStore
	pub    Publisher
	every  time.Duration
	batch  int
	log    *slog.Logger
}

func NewOutboxDrainer(outbox usecase.OutboxStore, pub Publisher, every time.Duration, batch int) *OutboxDrainer {
	if every <= 0 {
		every = time.Second
	}
	if batch <= 0 {
		batch = 50
	}
	return &OutboxDrainer{
		outbox: outbox,
		pub:    pub,
		every:  every,
		batch:  batch,
		log:    logging.New("outbox-drainer"),
	}
}

// Start blocks until ctx is done. Run it in its own goroutine.
func (d *OutboxDrainer) Start(ctx context.Context) {
	ticker := time.NewTicker(d.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

func (d *OutboxDrainer) drain(ctx context.Context) {
	events, err := d.outbox.FetchPending(ctx, d.batch)
	if err != nil {
		d.log.Error("fetch pending", "err", err)
		return
	}
	for _, ev := range events {
		if err := d.pub.PublishPlaced(ctx, ev.Payload); err != nil {
			d.log.Error("publish", "event_id", ev.ID, "err", err)
			if err := d.outbox.MarkFailed(ctx, ev.ID); err != nil {
				d.log.Error("mark failed", "event_id", ev.ID, "err", err)
			}
			continue
		}
		if err := d.outbox.MarkPublished(ctx, ev.ID); err != nil {
			d.log.Error("mark published", "event_id", ev.ID, "err", err)
		}
	}
}
