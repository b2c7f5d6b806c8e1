package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orderflow/platform/internal/events"
	"github.com/orderflow/platform/internal/idgen"
	"github.com/orderflow/platform/internal/statemachine"
)

// OrderCreatedHandler is Payments' C3 handler for the orders.to_pay queue:
// it runs the payment state machine against the decoded order_created
// event.
type OrderCreatedHandler struct {
	machine *statemachine.Machine
}

func NewOrderCreatedHandler(machine *statemachine.Machine) *OrderCreatedHandler {
	return &OrderCreatedHandler{machine: machine}
}

func (h *OrderCreatedHandler) EventType() string { return "order_created" }

func (h *OrderCreatedHandler) DeriveMessageID(payload []byte) (string, error) {
	var ev events.OrderCreated
	if err := json.Unmarshal(payload, &ev); err != nil {
		return "", fmt.Errorf("decode order_created: %w", err)
	}
	return idgen.MessageID(ev.OrderID, ev.Timestamp), nil
}

func (h *OrderCreatedHandler) Handle(ctx context.Context, payload []byte) error {
	var ev events.OrderCreated
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode order_created: %w", err)
	}

	messageID, err := h.DeriveMessageID(payload)
	if err != nil {
		return err
	}

	_, err = h.machine.Execute(ctx, statemachine.Event{
		OrderID:   ev.OrderID,
		UserID:    ev.UserID,
		Amount:    ev.Amount,
		MessageID: messageID,
	})
	return err
}
