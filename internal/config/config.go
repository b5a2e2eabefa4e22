package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joao-fontenele/shopflow/internal/readiness"
)

const (
	defaultOrdersTopic     = "orders"
	defaultShutdownTimeout = 10 * time.Second
	defaultHTTPTimeout     = 10 * time.Second
	defaultMigrationsPath  = "file://migrations"
)

// Lookup mirrors os.LookupEnv so tests can supply their own environment.
type Lookup func(string) (string, bool)

// Env reads from the process environment.
var Env Lookup = os.LookupEnv

type Telemetry struct {
	OTLPEndpoint string
}

type Readiness struct {
	Config      readiness.Config
	LoopForever bool
}

type Gateway struct {
	Port               string
	AuthServiceURL     string
	ProductsServiceURL string
	OrdersServiceURL   string
	KafkaBrokers       []string
	HTTPTimeout        time.Duration
	ShutdownTimeout    time.Duration
	Readiness          Readiness
	Telemetry          Telemetry
}

type Products struct {
	Port            string
	PostgresURL     string
	KafkaBrokers    []string
	OrdersTopic     string
	ShutdownTimeout time.Duration
	Readiness       Readiness
	Telemetry       Telemetry
}

type Worker struct {
	KafkaBrokers    []string
	OrdersTopic     string
	GroupID         string
	EmailServiceURL string
	HTTPTimeout     time.Duration
	Telemetry       Telemetry
}

type Migrate struct {
	PostgresURL    string
	MigrationsPath string
}

func LoadGateway(lookup Lookup) (*Gateway, error) {
	r := &reader{lookup: lookup}
	cfg := &Gateway{
		Port:               r.getString("PORT", "3003"),
		AuthServiceURL:     r.getString("AUTH_SERVICE_URL", ""),
		ProductsServiceURL: r.getString("PRODUCTS_SERVICE_URL", ""),
		OrdersServiceURL:   r.getString("ORDERS_SERVICE_URL", ""),
		KafkaBrokers:       r.getList("KAFKA_BROKERS"),
		HTTPTimeout:        r.getDuration("HTTP_TIMEOUT", defaultHTTPTimeout),
		ShutdownTimeout:    r.getDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		Readiness:          r.loadReadiness(),
		Telemetry:          r.loadTelemetry(),
	}

	if cfg.ProductsServiceURL == "" {
		r.fail("PRODUCTS_SERVICE_URL is required")
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadProducts(lookup Lookup) (*Products, error) {
	r := &reader{lookup: lookup}
	cfg := &Products{
		Port:            r.getString("PORT", "3001"),
		PostgresURL:     r.getString("POSTGRES_URL", ""),
		KafkaBrokers:    r.getList("KAFKA_BROKERS"),
		OrdersTopic:     r.getString("ORDERS_TOPIC", defaultOrdersTopic),
		ShutdownTimeout: r.getDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		Readiness:       r.loadReadiness(),
		Telemetry:       r.loadTelemetry(),
	}

	if cfg.PostgresURL == "" {
		r.fail("POSTGRES_URL is required")
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadWorker(lookup Lookup) (*Worker, error) {
	r := &reader{lookup: lookup}
	cfg := &Worker{
		KafkaBrokers:    r.getList("KAFKA_BROKERS"),
		OrdersTopic:     r.getString("ORDERS_TOPIC", defaultOrdersTopic),
		GroupID:         r.getString("CONSUMER_GROUP", "order-notifier"),
		EmailServiceURL: r.getString("EMAIL_SERVICE_URL", ""),
		HTTPTimeout:     r.getDuration("HTTP_TIMEOUT", defaultHTTPTimeout),
		Telemetry:       r.loadTelemetry(),
	}

	if len(cfg.KafkaBrokers) == 0 {
		r.fail("KAFKA_BROKERS is required")
	}
	if cfg.EmailServiceURL == "" {
		r.fail("EMAIL_SERVICE_URL is required")
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadMigrate(lookup Lookup) (*Migrate, error) {
	r := &reader{lookup: lookup}
	cfg := &Migrate{
		PostgresURL:    r.getString("POSTGRES_URL", ""),
		MigrationsPath: r.getString("MIGRATIONS_PATH", defaultMigrationsPath),
	}

	if cfg.PostgresURL == "" {
		r.fail("POSTGRES_URL is required")
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// reader resolves variables through lookup and collects every malformed or
// missing value so a bad environment is reported in one go.
type reader struct {
	lookup Lookup
	errs   []error
}

func (r *reader) fail(format string, args ...any) {
	r.errs = append(r.errs, fmt.Errorf(format, args...))
}

func (r *reader) err() error {
	return errors.Join(r.errs...)
}

func (r *reader) loadReadiness() Readiness {
	def := readiness.DefaultConfig()
	return Readiness{
		Config: readiness.Config{
			MaxAttempts:  r.getPositiveInt("READINESS_MAX_ATTEMPTS", def.MaxAttempts),
			Interval:     r.getDuration("READINESS_INTERVAL", def.Interval),
			ProbeTimeout: r.getDuration("READINESS_PROBE_TIMEOUT", 0),
		},
		LoopForever: r.getBool("READINESS_LOOP_FOREVER", false),
	}
}

func (r *reader) loadTelemetry() Telemetry {
	return Telemetry{
		OTLPEndpoint: r.getString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func (r *reader) value(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *reader) getString(key, def string) string {
	if v, ok := r.value(key); ok {
		return v
	}
	return def
}

func (r *reader) getPositiveInt(key string, def int) int {
	v, ok := r.value(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		r.fail("invalid %s %q: must be a positive integer", key, v)
		return def
	}
	return n
}

// getDuration requires a unit, so a bare "5" is rejected rather than read as 5ns.
func (r *reader) getDuration(key string, def time.Duration) time.Duration {
	v, ok := r.value(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		r.fail("invalid %s %q: must be a non-negative duration such as 500ms or 2s", key, v)
		return def
	}
	return d
}

func (r *reader) getBool(key string, def bool) bool {
	v, ok := r.value(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail("invalid %s %q: must be a boolean", key, v)
		return def
	}
	return b
}

func (r *reader) getList(key string) []string {
	v, ok := r.lookup(key)
	if !ok {
		return nil
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
