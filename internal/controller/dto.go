package controller

import (
	"time"

	"github.com/orderflow/platform/internal/domain/account"
	"github.com/orderflow/platform/internal/domain/order"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description" validate:"omitempty,max=500"`
}

// OrderResponse is the JSON representation of an Order.
type OrderResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func FromOrder(o *order.Order) *OrderResponse {
	return &OrderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		Amount:      o.Amount,
		Description: o.Description,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func FromOrders(orders []*order.Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, FromOrder(o))
	}
	return out
}

// TopUpRequest is the body of POST /accounts/topup.
type TopUpRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// AccountResponse is the JSON representation of an Account.
type AccountResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Balance   float64   `json:"balance"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func FromAccount(a *account.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		UserID:    a.UserID,
		Balance:   a.Balance,
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// BalanceResponse is the JSON representation of GET /accounts/balance.
type BalanceResponse struct {
	Balance float64 `json:"balance"`
}
