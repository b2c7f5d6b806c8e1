package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/orderflow/platform/internal/bootstrap"
	"github.com/orderflow/platform/internal/controller"
	"github.com/orderflow/platform/internal/gateway"
	"github.com/orderflow/platform/internal/realtime"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "GATEWAY", "gateway", "gateway")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	registry := gateway.NewRegistry(app.Config.Gateway.OrdersInstances, app.Config.Gateway.PaymentsInstances)
	proxy := gateway.NewProxy(registry, app.Config.Gateway.ProxyTimeout, app.Config.Gateway.CircuitBreakerTimeout, app.Logger)

	// --- Realtime bus: the gateway terminates client sockets directly and
	// participates in the bus itself; no downstream WebSocket to Orders or
	// Payments. ---
	hub := realtime.NewHub(app.Logger)
	bus := realtime.NewBus(hub, app.Redis, app.Logger)
	wsHandler := gateway.NewWebSocketHandler(hub, app.Logger)

	router := controller.NewGatewayRouter(controller.GatewayRouterDeps{
		Pool:              app.Pool,
		RedisClient:       app.Redis,
		Proxy:             proxy,
		WebSocketHandler:  wsHandler,
		Metrics:           app.Metrics,
		CORSConfig:        app.Config.Server.CORS,
		RequestsPerMinute: app.Config.RateLimit.RequestsPerMinute,
	})

	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gCtx.Done())
		return nil
	})

	g.Go(func() error {
		bus.Subscribe(gCtx)
		return nil
	})

	g.Go(func() error {
		app.Logger.Info().Str("addr", addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("shutting down gateway")
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("gateway error")
	}
	app.Logger.Info().Msg("gateway exited")
}
