package config

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/joao-fontenele/shopflow/internal/readiness"
)

func env(m map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoadGateway(t *testing.T) {
	t.Run("requires products service", func(t *testing.T) {
		if _, err := LoadGateway(env(nil)); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("applies defaults", func(t *testing.T) {
		cfg, err := LoadGateway(env(map[string]string{"PRODUCTS_SERVICE_URL": "http://products:3001"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Port != "3003" {
			t.Errorf("expected port 3003, got %s", cfg.Port)
		}
		if cfg.Readiness.Config != readiness.DefaultConfig() {
			t.Errorf("expected default readiness, got %+v", cfg.Readiness.Config)
		}
		if cfg.Readiness.LoopForever {
			t.Error("expected loop forever off by default")
		}
		if cfg.KafkaBrokers != nil {
			t.Errorf("expected no brokers, got %v", cfg.KafkaBrokers)
		}
	})

	t.Run("reads overrides", func(t *testing.T) {
		cfg, err := LoadGateway(env(map[string]string{
			"PRODUCTS_SERVICE_URL":   "http://products:3001",
			"AUTH_SERVICE_URL":       "http://auth:3000",
			"KAFKA_BROKERS":          "kafka-1:9092, kafka-2:9092,",
			"READINESS_MAX_ATTEMPTS": "3",
			"READINESS_INTERVAL":     "250ms",
			"READINESS_LOOP_FOREVER": "true",
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.AuthServiceURL != "http://auth:3000" {
			t.Errorf("unexpected auth url %s", cfg.AuthServiceURL)
		}
		if want := []string{"kafka-1:9092", "kafka-2:9092"}; !reflect.DeepEqual(cfg.KafkaBrokers, want) {
			t.Errorf("expected %v, got %v", want, cfg.KafkaBrokers)
		}
		if cfg.Readiness.Config.MaxAttempts != 3 || cfg.Readiness.Config.Interval != 250*time.Millisecond {
			t.Errorf("unexpected readiness %+v", cfg.Readiness.Config)
		}
		if !cfg.Readiness.LoopForever {
			t.Error("expected loop forever")
		}
	})

	t.Run("rejects malformed values", func(t *testing.T) {
		tests := []struct {
			key   string
			value string
		}{
			{"READINESS_MAX_ATTEMPTS", "abc"},
			{"READINESS_MAX_ATTEMPTS", "-1"},
			{"READINESS_MAX_ATTEMPTS", "0"},
			{"READINESS_INTERVAL", "5"},
			{"READINESS_INTERVAL", "soon"},
			{"READINESS_INTERVAL", "-1s"},
			{"READINESS_PROBE_TIMEOUT", "2"},
			{"READINESS_LOOP_FOREVER", "sometimes"},
			{"HTTP_TIMEOUT", "30"},
			{"SHUTDOWN_TIMEOUT", "ten"},
		}
		for _, tt := range tests {
			_, err := LoadGateway(env(map[string]string{
				"PRODUCTS_SERVICE_URL": "http://products:3001",
				tt.key:                 tt.value,
			}))
			if err == nil {
				t.Errorf("%s=%q: expected error", tt.key, tt.value)
				continue
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("%s=%q: error does not name the variable: %v", tt.key, tt.value, err)
			}
		}
	})

	t.Run("reports every problem at once", func(t *testing.T) {
		_, err := LoadGateway(env(map[string]string{
			"READINESS_MAX_ATTEMPTS": "abc",
			"READINESS_INTERVAL":     "5",
		}))
		if err == nil {
			t.Fatal("expected error")
		}
		for _, key := range []string{"PRODUCTS_SERVICE_URL", "READINESS_MAX_ATTEMPTS", "READINESS_INTERVAL"} {
			if !strings.Contains(err.Error(), key) {
				t.Errorf("expected %s in %v", key, err)
			}
		}
	})

	t.Run("treats empty values as unset", func(t *testing.T) {
		cfg, err := LoadGateway(env(map[string]string{
			"PRODUCTS_SERVICE_URL":    "http://products:3001",
			"READINESS_MAX_ATTEMPTS":  "",
			"READINESS_INTERVAL":      "",
			"READINESS_PROBE_TIMEOUT": "0",
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Readiness.Config.MaxAttempts != readiness.DefaultMaxAttempts {
			t.Errorf("expected default attempts, got %d", cfg.Readiness.Config.MaxAttempts)
		}
		if cfg.Readiness.Config.Interval != readiness.DefaultInterval {
			t.Errorf("expected default interval, got %s", cfg.Readiness.Config.Interval)
		}
	})
}

func TestLoadProducts(t *testing.T) {
	if _, err := LoadProducts(env(nil)); err == nil {
		t.Fatal("expected error without POSTGRES_URL")
	}

	cfg, err := LoadProducts(env(map[string]string{"POSTGRES_URL": "postgres://localhost/shop"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "3001" || cfg.OrdersTopic != "orders" {
		t.Errorf("unexpected defaults %+v", cfg)
	}

	if _, err := LoadProducts(env(map[string]string{
		"POSTGRES_URL":     "postgres://localhost/shop",
		"SHUTDOWN_TIMEOUT": "15",
	})); err == nil {
		t.Error("expected error for SHUTDOWN_TIMEOUT without a unit")
	}
}

func TestLoadWorker(t *testing.T) {
	if _, err := LoadWorker(env(map[string]string{"EMAIL_SERVICE_URL": "http://email"})); err == nil {
		t.Error("expected error without KAFKA_BROKERS")
	}
	if _, err := LoadWorker(env(map[string]string{"KAFKA_BROKERS": "kafka:9092"})); err == nil {
		t.Error("expected error without EMAIL_SERVICE_URL")
	}

	cfg, err := LoadWorker(env(map[string]string{"KAFKA_BROKERS": "kafka:9092", "EMAIL_SERVICE_URL": "http://email"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GroupID != "order-notifier" {
		t.Errorf("unexpected group %s", cfg.GroupID)
	}

	if _, err := LoadWorker(env(map[string]string{
		"KAFKA_BROKERS":     "kafka:9092",
		"EMAIL_SERVICE_URL": "http://email",
		"HTTP_TIMEOUT":      "abc",
	})); err == nil {
		t.Error("expected error for malformed HTTP_TIMEOUT")
	}
}

func TestLoadMigrate(t *testing.T) {
	cfg, err := LoadMigrate(env(map[string]string{"POSTGRES_URL": "postgres://localhost/shop"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MigrationsPath != "file://migrations" {
		t.Errorf("unexpected path %s", cfg.MigrationsPath)
	}
}
