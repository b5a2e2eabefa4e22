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

	"github.com/joao-fontenele/shopflow/internal/config"
	"github.com/joao-fontenele/shopflow/internal/gateway"
	"github.com/joao-fontenele/shopflow/internal/messaging"
	"github.com/joao-fontenele/shopflow/internal/readiness"
	"github.com/joao-fontenele/shopflow/internal/telemetry"
)

const (
	serviceName    = "gateway"
	serviceVersion = "0.1.0"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadGateway(config.Env)
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

	httpClient := telemetry.NewHTTPClient(cfg.HTTPTimeout)

	var upstreams []gateway.Upstream
	if cfg.AuthServiceURL != "" {
		upstreams = append(upstreams, gateway.Upstream{Name: "auth", Proxy: gateway.NewServiceProxy(cfg.AuthServiceURL, httpClient)})
	}
	upstreams = append(upstreams, gateway.Upstream{Name: "products", Proxy: gateway.NewServiceProxy(cfg.ProductsServiceURL, httpClient)})
	if cfg.OrdersServiceURL != "" {
		upstreams = append(upstreams, gateway.Upstream{Name: "orders", Proxy: gateway.NewServiceProxy(cfg.OrdersServiceURL, httpClient)})
	}

	var brokerProbe readiness.Probe
	if len(cfg.KafkaBrokers) > 0 {
		brokerProbe = messaging.DialProbe(cfg.KafkaBrokers)
	}

	gate := readiness.NewGate(cfg.Readiness.Config, logger)
	checks := gateway.ReadinessChecks(brokerProbe, upstreams, httpClient)
	if err := gate.Run(ctx, checks, cfg.Readiness.LoopForever); err != nil {
		logger.Error("dependencies not ready, refusing to serve", "error", err)
		os.Exit(1)
	}

	byName := make(map[string]*gateway.ServiceProxy, len(upstreams))
	for _, u := range upstreams {
		byName[u.Name] = u.Proxy
	}
	handler := gateway.NewHandler(byName, logger)

	mux := gateway.NewRouter(handler, upstreams, metricsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      telemetry.WrapHandler(mux, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting gateway service", "port", cfg.Port)
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
