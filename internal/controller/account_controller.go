package controller

import (
	"net/http"

	"github.com/orderflow/platform/internal/service"
)

// AccountController handles account-related HTTP requests for Payments.
type AccountController struct {
	accountService *service.AccountService
}

// NewAccountController creates a new AccountController.
func NewAccountController(accountService *service.AccountService) *AccountController {
	return &AccountController{accountService: accountService}
}

// Create handles POST /accounts
func (h *AccountController) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromHeader(r)
	if err != nil {
		writeError(w, err)
		return
	}

	acct, err := h.accountService.CreateAccount(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromAccount(acct))
}

// TopUp handles POST /accounts/topup
func (h *AccountController) TopUp(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromHeader(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req TopUpRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	acct, err := h.accountService.TopUp(r.Context(), userID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromAccount(acct))
}

// Get handles GET /accounts
func (h *AccountController) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromHeader(r)
	if err != nil {
		writeError(w, err)
		return
	}

	acct, err := h.accountService.GetAccount(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromAccount(acct))
}

// GetBalance handles GET /accounts/balance
func (h *AccountController) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromHeader(r)
	if err != nil {
		writeError(w, err)
		return
	}

	acct, err := h.accountService.GetAccount(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{Balance: acct.Balance})
}
