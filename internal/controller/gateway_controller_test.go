package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/platform/internal/gateway"
)

func withRouteParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestGatewayController_Proxy_Success(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer backend.Close()

	registry := gateway.NewRegistry([]string{backend.URL}, nil)
	proxy := gateway.NewProxy(registry, time.Second, time.Second, zerolog.Nop())
	h := NewGatewayController(proxy)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/orders", nil)
	req.Header.Set("X-User-ID", "3")
	req = withRouteParams(req, map[string]string{"service": "orders", "*": "orders"})
	w := httptest.NewRecorder()

	h.Proxy(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGatewayController_Proxy_MissingUserID(t *testing.T) {
	registry := gateway.NewRegistry([]string{"http://unused"}, nil)
	proxy := gateway.NewProxy(registry, time.Second, time.Second, zerolog.Nop())
	h := NewGatewayController(proxy)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/orders", nil)
	req = withRouteParams(req, map[string]string{"service": "orders", "*": "orders"})
	w := httptest.NewRecorder()

	h.Proxy(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGatewayController_Proxy_UnknownService(t *testing.T) {
	registry := gateway.NewRegistry([]string{"http://unused"}, nil)
	proxy := gateway.NewProxy(registry, time.Second, time.Second, zerolog.Nop())
	h := NewGatewayController(proxy)

	req := httptest.NewRequest(http.MethodGet, "/api/shipping/track", nil)
	req.Header.Set("X-User-ID", "3")
	req = withRouteParams(req, map[string]string{"service": "shipping", "*": "track"})
	w := httptest.NewRecorder()

	h.Proxy(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGatewayController_Proxy_NonJSONBackendResponse(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("not json"))
	}))
	defer backend.Close()

	registry := gateway.NewRegistry([]string{backend.URL}, nil)
	proxy := gateway.NewProxy(registry, time.Second, time.Second, zerolog.Nop())
	h := NewGatewayController(proxy)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/orders", nil)
	req.Header.Set("X-User-ID", "3")
	req = withRouteParams(req, map[string]string{"service": "orders", "*": "orders"})
	w := httptest.NewRecorder()

	h.Proxy(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestGatewayController_HealthAll(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	registry := gateway.NewRegistry([]string{backend.URL}, nil)
	proxy := gateway.NewProxy(registry, time.Second, time.Second, zerolog.Nop())
	h := NewGatewayController(proxy)

	req := httptest.NewRequest(http.MethodGet, "/health/all", nil)
	w := httptest.NewRecorder()

	h.HealthAll(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
