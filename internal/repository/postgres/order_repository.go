package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	domainErrors "github.com/orderflow/platform/internal/domain/errors"
	"github.com/orderflow/platform/internal/domain/order"
)

// OrderRepository implements order.Repository using PostgreSQL. Create
// only assigns the order's id; the caller appends the announcing outbox
// row separately (via outbox.Repository.Insert) inside the same
// TxManager transaction, since the outbox payload needs the id Create
// returns.
type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	o := &order.Order{}
	var status string
	err := row.Scan(&o.ID, &o.UserID, &o.Amount, &o.Description, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.Status = order.Status(status)
	return o, nil
}

// Create inserts the order row and assigns o.ID. Call inside a TxManager
// transaction so the caller can append the order_created outbox row in
// the same unit of work (see internal/service.OrderService.CreateOrder).
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO orders (user_id, amount, description, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		o.UserID, o.Amount, o.Description, string(o.Status), o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	return scanOrder(r.db(ctx).QueryRow(ctx,
		`SELECT id, user_id, amount, description, status, created_at, updated_at
		 FROM orders WHERE id = $1`, id))
}

func (r *OrderRepository) GetByIDForUser(ctx context.Context, id, userID int64) (*order.Order, error) {
	o, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domainErrors.ErrOrderNotOwned
	}
	return o, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]*order.Order, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, user_id, amount, description, status, created_at, updated_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		o := &order.Order{}
		var status string
		if err := rows.Scan(&o.ID, &o.UserID, &o.Amount, &o.Description, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = order.Status(status)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateStatus moves an order to newStatus. ok=false means the order was
// already terminal (no row matched the NEW-status guard) and the caller
// should treat this as a no-op, not an error.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, newStatus order.Status) (bool, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
		string(newStatus), id, string(order.StatusNew),
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
