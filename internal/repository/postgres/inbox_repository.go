package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orderflow/platform/internal/domain/inbox"
)

// InboxRepository implements inbox.Repository using PostgreSQL, relying on
// a unique index on message_id to detect redelivery.
type InboxRepository struct {
	pool *pgxpool.Pool
}

func NewInboxRepository(pool *pgxpool.Pool) *InboxRepository {
	return &InboxRepository{pool: pool}
}

func (r *InboxRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func (r *InboxRepository) Insert(ctx context.Context, m *inbox.Message) (bool, error) {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO inbox_messages (message_id, event_type, payload, processed, created_at)
		 VALUES ($1, $2, $3, false, $4)
		 ON CONFLICT (message_id) DO NOTHING
		 RETURNING id`,
		m.MessageID, m.EventType, m.Payload, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert inbox message: %w", err)
	}
	return true, nil
}

func (r *InboxRepository) MarkProcessed(ctx context.Context, id int64) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE inbox_messages SET processed = true, processed_at = now() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("mark inbox message processed: %w", err)
	}
	return nil
}
