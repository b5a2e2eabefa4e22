package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/joao-fontenele/shopflow/internal/auth"
	"github.com/joao-fontenele/shopflow/internal/config"
	"github.com/joao-fontenele/shopflow/internal/messaging"
	"github.com/joao-fontenele/shopflow/internal/orders"
	"github.com/joao-fontenele/shopflow/internal/products"
	"github.com/joao-fontenele/shopflow/internal/readiness"
	"github.com/joao-fontenele/shopflow/internal/telemetry"
)

const (
	serviceName    = "products"
	serviceVersion = "0.1.0"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadProducts(config.Env)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry.OTLPEndpoint, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(context.Background()) }()

	db, err := telemetry.OpenDB("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	checks := []readiness.Check{{Name: "postgres", Probe: readiness.PingProbe(db)}}

	var publisher orders.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, cfg.OrdersTopic)
		defer func() { _ = producer.Close() }()
		publisher = producer
		checks = append(checks, readiness.Check{Name: "broker", Probe: messaging.DialProbe(cfg.KafkaBrokers)})
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events will not be published")
	}

	gate := readiness.NewGate(cfg.Readiness.Config, logger)
	if err := gate.Run(ctx, checks, cfg.Readiness.LoopForever); err != nil {
		logger.Error("dependencies not ready", "error", err)
		os.Exit(1)
	}

	productRepo := products.NewProductRepository(db)
	orderRepo := orders.NewOrderRepository(db)

	orderService, err := orders.NewService(productRepo, orderRepo, publisher, logger)
	if err != nil {
		logger.Error("failed to create order service", "error", err)
		os.Exit(1)
	}

	productHandler := products.NewHandler(productRepo, logger)
	orderHandler := orders.NewHandler(orderService, logger)

	protected := func(h http.HandlerFunc) http.Handler {
		return auth.RequireToken(telemetry.WithHTTPRoute(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /metrics", metricsHandler)
	mux.Handle("POST /products", protected(productHandler.HandleCreate))
	mux.Handle("GET /products", protected(productHandler.HandleList))
	mux.Handle("GET /products/{id}", protected(productHandler.HandleGet))
	mux.Handle("POST /products/buy", protected(orderHandler.HandleCreate))
	mux.Handle("GET /products/order", protected(orderHandler.HandleGet))
	mux.Handle("GET /products/order/{id}", protected(orderHandler.HandleGet))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      telemetry.WrapHandler(mux, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting products service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
