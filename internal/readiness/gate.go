// Package readiness blocks process startup until declared dependencies
// answer their probes.
//
// Dependencies are checked one at a time in declaration order with a fixed
// interval between failed attempts. The first dependency to exhaust its
// attempts stops the gate; the ones after it are never probed.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultMaxAttempts = 10
	DefaultInterval    = 5 * time.Second
)

var ErrNotReady = errors.New("dependency not ready")

var meter = otel.Meter("readiness")

// Probe reports whether a dependency is usable. The gate does not look at
// anything but the returned error.
type Probe func(ctx context.Context) error

type Check struct {
	Name  string
	Probe Probe
}

type Config struct {
	MaxAttempts int
	Interval    time.Duration
	// ProbeTimeout bounds a single probe call. Zero means Interval.
	ProbeTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: DefaultMaxAttempts,
		Interval:    DefaultInterval,
	}
}

// Result describes how one dependency fared.
type Result struct {
	Name     string
	Attempts int
	Elapsed  time.Duration
	Err      error
}

func (r Result) Ready() bool { return r.Err == nil }

type Gate struct {
	cfg    Config
	logger *slog.Logger

	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	attempts metric.Int64Counter
}

func NewGate(cfg Config, logger *slog.Logger) *Gate {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Interval < 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = cfg.Interval
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultInterval
	}

	attempts, err := meter.Int64Counter("readiness.probe.attempts",
		metric.WithDescription("Readiness probe attempts per dependency"))
	if err != nil {
		logger.Warn("failed to create readiness counter", "error", err)
	}

	return &Gate{
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
		attempts: attempts,
	}
}

// AwaitReady probes each check in order and returns once all are ready or the
// first one fails for good. Results cover every dependency that was probed.
func (g *Gate) AwaitReady(ctx context.Context, checks []Check) ([]Result, error) {
	results := make([]Result, 0, len(checks))

	for _, check := range checks {
		g.logger.Info("waiting for dependency", "dependency", check.Name)

		res := g.await(ctx, check)
		results = append(results, res)

		if res.Err != nil {
			g.logger.Error("dependency not ready",
				"dependency", check.Name,
				"attempts", res.Attempts,
				"elapsed", res.Elapsed,
				"error", res.Err,
			)
			return results, fmt.Errorf("%w: %s after %d attempts: %w", ErrNotReady, check.Name, res.Attempts, res.Err)
		}

		g.logger.Info("dependency ready",
			"dependency", check.Name,
			"attempts", res.Attempts,
			"elapsed", res.Elapsed,
		)
	}

	return results, nil
}

// Run calls AwaitReady once, or, with loopForever, keeps restarting it from
// the first dependency until it succeeds or ctx ends.
func (g *Gate) Run(ctx context.Context, checks []Check, loopForever bool) error {
	for {
		_, err := g.AwaitReady(ctx, checks)
		if err == nil || !loopForever || ctx.Err() != nil {
			return err
		}

		g.logger.Warn("readiness gate failed, starting over", "error", err)
		if err := g.sleep(ctx, g.cfg.Interval); err != nil {
			return err
		}
	}
}

func (g *Gate) await(ctx context.Context, check Check) Result {
	res := Result{Name: check.Name}
	start := g.now()

	for res.Attempts < g.cfg.MaxAttempts {
		res.Attempts++
		err := g.probe(ctx, check)
		g.record(ctx, check.Name, err)
		if err == nil {
			res.Err = nil
			res.Elapsed = g.now().Sub(start)
			return res
		}
		res.Err = err

		if res.Attempts == g.cfg.MaxAttempts {
			break
		}

		g.logger.Info("dependency not ready, retrying",
			"dependency", check.Name,
			"attempt", res.Attempts,
			"retry_in", g.cfg.Interval,
			"error", err,
		)
		if sleepErr := g.sleep(ctx, g.cfg.Interval); sleepErr != nil {
			res.Err = sleepErr
			break
		}
	}

	res.Elapsed = g.now().Sub(start)
	return res
}

func (g *Gate) probe(ctx context.Context, check Check) error {
	probeCtx, cancel := context.WithTimeout(ctx, g.cfg.ProbeTimeout)
	defer cancel()
	return check.Probe(probeCtx)
}

func (g *Gate) record(ctx context.Context, name string, err error) {
	if g.attempts == nil {
		return
	}
	g.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dependency", name),
		attribute.Bool("success", err == nil),
	))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
