package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/orderflow/platform/internal/config"
	"github.com/orderflow/platform/internal/gateway"
	customMW "github.com/orderflow/platform/internal/middleware"
	"github.com/orderflow/platform/internal/observability"
	"github.com/orderflow/platform/internal/repository/postgres"
	"github.com/orderflow/platform/internal/service"
)

func attachCommonMiddleware(r *chi.Mux, cors_ config.CORSConfig, metrics *observability.Metrics, requestsPerMinute int) {
	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cors_.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: cors_.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(metrics))
	if requestsPerMinute > 0 {
		r.Use(customMW.RateLimit(requestsPerMinute))
	}
}

func attachHealthAndMetrics(r *chi.Mux, pool *pgxpool.Pool, redisClient *redis.Client) {
	healthH := NewHealthController(pool, redisClient)
	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)
	r.Handle("/metrics", promhttp.Handler())
}

// OrdersRouterDeps wires the dependencies of the Orders HTTP surface.
type OrdersRouterDeps struct {
	Pool              *pgxpool.Pool
	RedisClient       *redis.Client
	OrderService      *service.OrderService
	IdempotencyRepo   *postgres.IdempotencyRepository
	IdempotencyTTL    time.Duration
	Metrics           *observability.Metrics
	CORSConfig        config.CORSConfig
	RequestsPerMinute int
}

// NewOrdersRouter builds the router for the Orders HTTP surface: order
// placement and lookup, keyed by the X-User-ID header.
func NewOrdersRouter(deps OrdersRouterDeps) *chi.Mux {
	r := chi.NewRouter()
	attachCommonMiddleware(r, deps.CORSConfig, deps.Metrics, deps.RequestsPerMinute)
	attachHealthAndMetrics(r, deps.Pool, deps.RedisClient)

	orderH := NewOrderController(deps.OrderService)
	idempotencyMW := customMW.Idempotency(deps.IdempotencyRepo, deps.IdempotencyTTL)

	r.With(idempotencyMW).Post("/orders", orderH.Create)
	r.Get("/orders", orderH.List)
	r.Get("/orders/{id}", orderH.Get)

	return r
}

// PaymentsRouterDeps wires the dependencies of the Payments HTTP surface.
type PaymentsRouterDeps struct {
	Pool              *pgxpool.Pool
	RedisClient       *redis.Client
	AccountService    *service.AccountService
	IdempotencyRepo   *postgres.IdempotencyRepository
	IdempotencyTTL    time.Duration
	Metrics           *observability.Metrics
	CORSConfig        config.CORSConfig
	RequestsPerMinute int
}

// NewPaymentsRouter builds the router for the Payments HTTP surface: account
// creation, top-up and balance lookup, keyed by the X-User-ID header.
func NewPaymentsRouter(deps PaymentsRouterDeps) *chi.Mux {
	r := chi.NewRouter()
	attachCommonMiddleware(r, deps.CORSConfig, deps.Metrics, deps.RequestsPerMinute)
	attachHealthAndMetrics(r, deps.Pool, deps.RedisClient)

	accountH := NewAccountController(deps.AccountService)
	idempotencyMW := customMW.Idempotency(deps.IdempotencyRepo, deps.IdempotencyTTL)

	r.With(idempotencyMW).Post("/accounts", accountH.Create)
	r.With(idempotencyMW).Post("/accounts/topup", accountH.TopUp)
	r.Get("/accounts", accountH.Get)
	r.Get("/accounts/balance", accountH.GetBalance)

	return r
}

// GatewayRouterDeps wires the dependencies of the Gateway HTTP surface.
type GatewayRouterDeps struct {
	Pool              *pgxpool.Pool
	RedisClient       *redis.Client
	Proxy             *gateway.Proxy
	WebSocketHandler  *gateway.WebSocketHandler
	Metrics           *observability.Metrics
	CORSConfig        config.CORSConfig
	RequestsPerMinute int
}

// NewGatewayRouter builds the router for the Gateway: the backend proxy at
// /api/{service}/*, aggregate health, and the WebSocket endpoint that
// terminates client sockets directly at the gateway.
func NewGatewayRouter(deps GatewayRouterDeps) *chi.Mux {
	r := chi.NewRouter()
	attachCommonMiddleware(r, deps.CORSConfig, deps.Metrics, deps.RequestsPerMinute)
	attachHealthAndMetrics(r, deps.Pool, deps.RedisClient)

	gatewayH := NewGatewayController(deps.Proxy)
	r.Get("/health/all", gatewayH.HealthAll)
	r.Get("/ws/{user_id}", deps.WebSocketHandler.Serve)

	r.HandleFunc("/api/{service}", gatewayH.Proxy)
	r.HandleFunc("/api/{service}/*", gatewayH.Proxy)

	return r
}
