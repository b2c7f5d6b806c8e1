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
	"github.com/orderflow/platform/internal/broker"
	"github.com/orderflow/platform/internal/consumer"
	"github.com/orderflow/platform/internal/controller"
	"github.com/orderflow/platform/internal/distlock"
	"github.com/orderflow/platform/internal/outboxrelay"
	"github.com/orderflow/platform/internal/realtime"
	"github.com/orderflow/platform/internal/repository/postgres"
	"github.com/orderflow/platform/internal/service"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "ORDERS", "orders", "orders")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	orderRepo := postgres.NewOrderRepository(app.Pool)
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	inboxRepo := postgres.NewInboxRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Realtime bus: Orders publishes order_update events, it never
	// holds sockets itself (those terminate at the gateway). ---
	hub := realtime.NewHub(app.Logger)
	bus := realtime.NewBus(hub, app.Redis, app.Logger)

	// --- Services ---
	orderService := service.NewOrderService(orderRepo, outboxRepo, txManager, bus, app.Logger)

	// --- Broker ---
	b, err := broker.Connect(broker.Config{
		URL:               app.Config.Broker.URL,
		Exchange:          app.Config.Broker.Exchange,
		ReconnectMaxDelay: app.Config.Broker.ReconnectMaxDelay,
	}, app.Logger)
	if err != nil {
		app.Logger.Fatal().Err(err).Msg("failed to connect to broker")
	}
	defer b.Close()

	if err := b.DeclareQueue(app.Config.Broker.OrdersQueue); err != nil {
		app.Logger.Fatal().Err(err).Msg("failed to declare orders queue")
	}
	if err := b.DeclareQueue(app.Config.Broker.PaymentsQueue); err != nil {
		app.Logger.Fatal().Err(err).Msg("failed to declare payments queue")
	}

	deliveries, err := b.Consume(app.Config.Broker.PaymentsQueue, "orders-payment-results")
	if err != nil {
		app.Logger.Fatal().Err(err).Msg("failed to consume payment.results")
	}

	paymentResultHandler := consumer.NewPaymentResultHandler(orderRepo, bus, app.Logger)
	inboxConsumer := consumer.New(deliveries, inboxRepo, txManager, paymentResultHandler, app.Logger)

	relayLock := distlock.New(app.Redis, "orders-outbox-relay", app.Config.Outbox.LockTTL)
	relay := outboxrelay.New(outboxRepo, b, relayLock, outboxrelay.Config{
		BatchSize:     app.Config.Outbox.BatchSize,
		EmptyInterval: app.Config.Outbox.EmptyInterval,
		PollInterval:  app.Config.Outbox.PollInterval,
		LockTTL:       app.Config.Outbox.LockTTL,
	}, app.Logger)

	// --- HTTP server ---
	router := controller.NewOrdersRouter(controller.OrdersRouterDeps{
		Pool:              app.Pool,
		RedisClient:       app.Redis,
		OrderService:      orderService,
		IdempotencyRepo:   idempotencyRepo,
		IdempotencyTTL:    app.Config.Idempotency.KeyTTL,
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
		app.Logger.Info().Str("addr", addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return relay.Run(gCtx)
	})

	g.Go(func() error {
		return inboxConsumer.Run(gCtx)
	})

	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("shutting down orders service")
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("orders service error")
	}
	app.Logger.Info().Msg("orders service exited")
}
