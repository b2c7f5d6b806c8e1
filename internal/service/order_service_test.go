package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/orderflow/platform/internal/domain/errors"
	"github.com/orderflow/platform/internal/domain/order"
	"github.com/orderflow/platform/internal/domain/outbox"
	"github.com/orderflow/platform/internal/events"
)

type fakeOrderRepo struct {
	byID   map[int64]*order.Order
	nextID int64
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{byID: make(map[int64]*order.Order)}
}

func (r *fakeOrderRepo) Create(ctx context.Context, o *order.Order) error {
	r.nextID++
	o.ID = r.nextID
	r.byID[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	o, ok := r.byID[id]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) GetByIDForUser(ctx context.Context, id, userID int64) (*order.Order, error) {
	o, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domainErrors.ErrOrderNotOwned
	}
	return o, nil
}

func (r *fakeOrderRepo) ListByUser(ctx context.Context, userID int64) ([]*order.Order, error) {
	var out []*order.Order
	for _, o := range r.byID {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, id int64, newStatus order.Status) (bool, error) {
	o, ok := r.byID[id]
	if !ok || o.IsTerminal() {
		return false, nil
	}
	o.Status = newStatus
	return true, nil
}

type fakeOutboxRepo struct {
	inserted []*outbox.Message
}

func (r *fakeOutboxRepo) Insert(ctx context.Context, m *outbox.Message) error {
	r.inserted = append(r.inserted, m)
	return nil
}

func (r *fakeOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	return r.inserted, nil
}

func (r *fakeOutboxRepo) MarkProcessed(ctx context.Context, id int64) error { return nil }

func TestCreateOrder_InsertsOrderAndOutboxRowWithCorrectID(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	outboxRepo := &fakeOutboxRepo{}
	svc := NewOrderService(orderRepo, outboxRepo, fakeTxManager{}, nil, zerolog.Nop())

	o, err := svc.CreateOrder(context.Background(), 42, 99.5, "widget")
	require.NoError(t, err)
	assert.Equal(t, order.StatusNew, o.Status)
	require.Len(t, outboxRepo.inserted, 1)

	var payload events.OrderCreated
	require.NoError(t, json.Unmarshal(outboxRepo.inserted[0].Payload, &payload))
	assert.Equal(t, o.ID, payload.OrderID, "outbox payload must carry the order id assigned by Create")
	assert.Equal(t, int64(42), payload.UserID)
}

func TestCreateOrder_InvalidAmount(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	outboxRepo := &fakeOutboxRepo{}
	svc := NewOrderService(orderRepo, outboxRepo, fakeTxManager{}, nil, zerolog.Nop())

	_, err := svc.CreateOrder(context.Background(), 42, -1, "widget")
	assert.ErrorIs(t, err, domainErrors.ErrInvalidAmount)
	assert.Empty(t, outboxRepo.inserted)
}
