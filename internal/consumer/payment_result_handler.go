package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orderflow/platform/internal/domain/order"
	"github.com/orderflow/platform/internal/events"
	"github.com/orderflow/platform/internal/realtime"
	"github.com/rs/zerolog"
)

// PaymentResultHandler is Orders' C3 handler for the payment.results queue:
// it applies the terminal transition the payment outcome implies and
// announces it on the Realtime Bus. The transaction_id is already
// deterministic per processing attempt, so it doubles as this handler's
// inbox dedup key.
type PaymentResultHandler struct {
	orders order.Repository
	bus    *realtime.Bus
	logger zerolog.Logger
}

func NewPaymentResultHandler(orders order.Repository, bus *realtime.Bus, logger zerolog.Logger) *PaymentResultHandler {
	return &PaymentResultHandler{orders: orders, bus: bus, logger: logger}
}

func (h *PaymentResultHandler) EventType() string { return "payment_result" }

func (h *PaymentResultHandler) DeriveMessageID(payload []byte) (string, error) {
	var result events.PaymentResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return "", fmt.Errorf("decode payment_result: %w", err)
	}
	return result.TransactionID, nil
}

func (h *PaymentResultHandler) Handle(ctx context.Context, payload []byte) error {
	var result events.PaymentResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return fmt.Errorf("decode payment_result: %w", err)
	}

	newStatus := order.StatusCancelled
	if result.Success {
		newStatus = order.StatusFinished
	}

	updated, err := h.orders.UpdateStatus(ctx, result.OrderID, newStatus)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if !updated {
		h.logger.Info().Int64("order_id", result.OrderID).Msg("payment_result for unknown or already-terminal order, dropping")
		return nil
	}

	message := fmt.Sprintf("order #%d status changed to: %s", result.OrderID, newStatus)
	if result.Message != "" {
		message = result.Message
	}

	update := realtime.OrderUpdate{
		Type:      realtime.TypeOrderUpdate,
		OrderID:   result.OrderID,
		UserID:    result.UserID,
		Status:    string(newStatus),
		Amount:    result.RemainingBalance,
		Timestamp: realtime.MonotonicSeconds(),
		Message:   message,
	}
	if err := h.bus.Publish(ctx, update); err != nil {
		return fmt.Errorf("publish realtime update: %w", err)
	}

	return nil
}
