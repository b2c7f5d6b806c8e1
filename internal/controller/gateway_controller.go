package controller

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orderflow/platform/internal/gateway"
)

// GatewayController exposes the Gateway's request-proxy surface: the
// backend selection, circuit breaking and header rewriting live in
// gateway.Proxy, this just wires chi's route params to it and applies the
// same error-mapping/writeError pattern as the Orders and Payments
// controllers.
type GatewayController struct {
	proxy *gateway.Proxy
}

func NewGatewayController(proxy *gateway.Proxy) *GatewayController {
	return &GatewayController{proxy: proxy}
}

func (h *GatewayController) Proxy(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromHeader(r)
	if err != nil {
		writeError(w, err)
		return
	}

	service := chi.URLParam(r, "service")
	path := "/" + chi.URLParam(r, "*")

	status, body, err := h.proxy.Forward(r.Context(), service, userID, r, path)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if json.Valid(body) {
		w.Write(body)
	} else {
		w.Write([]byte("{}"))
	}
}

func (h *GatewayController) HealthAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.proxy.Statuses(r.Context()))
}
