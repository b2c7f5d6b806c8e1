package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orderflow/platform/internal/domain/order"
	"github.com/orderflow/platform/internal/domain/outbox"
	"github.com/orderflow/platform/internal/events"
	"github.com/orderflow/platform/internal/realtime"
	"github.com/rs/zerolog"
)

// OrderService handles order-related business logic for Orders.
type OrderService struct {
	orderRepo  order.Repository
	outboxRepo outbox.Repository
	txManager  TransactionManager
	bus        *realtime.Bus
	logger     zerolog.Logger
}

func NewOrderService(orderRepo order.Repository, outboxRepo outbox.Repository, txManager TransactionManager, bus *realtime.Bus, logger zerolog.Logger) *OrderService {
	return &OrderService{orderRepo: orderRepo, outboxRepo: outboxRepo, txManager: txManager, bus: bus, logger: logger}
}

// CreateOrder validates and persists a new order, atomically appending the
// order_created outbox row C2 will relay onto orders.to_pay.
func (s *OrderService) CreateOrder(ctx context.Context, userID int64, amount float64, description string) (*order.Order, error) {
	o, err := order.New(userID, amount, description)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.Create(txCtx, o); err != nil {
			return err
		}

		payload, err := json.Marshal(events.OrderCreated{
			OrderID:   o.ID,
			UserID:    o.UserID,
			Amount:    o.Amount,
			Timestamp: time.Now().UnixNano(),
		})
		if err != nil {
			return fmt.Errorf("marshal order_created: %w", err)
		}

		return s.outboxRepo.Insert(txCtx, outbox.New("order_created", "orders.to_pay", payload))
	})
	if err != nil {
		return nil, err
	}

	if s.bus != nil {
		update := realtime.OrderUpdate{
			Type:      realtime.TypeOrderUpdate,
			OrderID:   o.ID,
			UserID:    o.UserID,
			Status:    string(o.Status),
			Amount:    &o.Amount,
			Timestamp: realtime.MonotonicSeconds(),
			Message:   fmt.Sprintf("order #%d created", o.ID),
		}
		if err := s.bus.Publish(ctx, update); err != nil {
			s.logger.Error().Err(err).Int64("order_id", o.ID).Msg("publish realtime order_update failed")
		}
	}

	return o, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id, userID int64) (*order.Order, error) {
	return s.orderRepo.GetByIDForUser(ctx, id, userID)
}

func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]*order.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}
