package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"weibo-harvest/internal/telemetry"
)

// ThrottleConfig tunes the adaptive per-host request pacing.
type ThrottleConfig struct {
	MinDelay          time.Duration
	StartDelay        time.Duration
	MaxDelay          time.Duration
	TargetConcurrency float64
}

func (c *ThrottleConfig) applyDefaults() {
	if c.MinDelay <= 0 {
		c.MinDelay = 3 * time.Second
	}
	if c.StartDelay <= 0 {
		c.StartDelay = 5 * time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 60 * time.Second
	}
	if c.TargetConcurrency <= 0 {
		c.TargetConcurrency = 1.0
	}
	if c.StartDelay < c.MinDelay {
		c.StartDelay = c.MinDelay
	}
}

// Throttle paces requests per host: a token-bucket limiter enforces the
// current delay, and observed latency/errors steer the delay between the
// configured floor and ceiling. Slow or failing hosts widen the gap;
// fast successes narrow it toward ~TargetConcurrency sustained requests.
type Throttle struct {
	mu       sync.Mutex
	cfg      ThrottleConfig
	delays   map[string]time.Duration
	limiters map[string]*rate.Limiter
	logger   *zap.Logger
}

// NewThrottle builds a Throttle with the given bounds.
func NewThrottle(cfg ThrottleConfig, logger *zap.Logger) *Throttle {
	cfg.applyDefaults()
	return &Throttle{
		cfg:      cfg,
		delays:   make(map[string]time.Duration),
		limiters: make(map[string]*rate.Limiter),
		logger:   logger,
	}
}

// Wait blocks until the host's next request slot opens, respecting the
// context.
func (t *Throttle) Wait(ctx context.Context, rawURL string) error {
	host := hostOf(rawURL)
	t.mu.Lock()
	lim, ok := t.limiters[host]
	if !ok {
		lim = rate.NewLimiter(delayToLimit(t.cfg.StartDelay), 1)
		t.limiters[host] = lim
		t.delays[host] = t.cfg.StartDelay
	}
	t.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return fmt.Errorf("throttle wait: %w", err)
	}
	return nil
}

// Observe feeds one request outcome back into the host's delay. The
// adjustment averages the current delay with latency/target; a failure
// counts as a ceiling-latency response, so sustained errors widen the
// delay toward MaxDelay regardless of how fast they came back.
func (t *Throttle) Observe(rawURL string, latency time.Duration, failed bool) {
	host := hostOf(rawURL)

	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.delays[host]
	if !ok {
		current = t.cfg.StartDelay
	}

	target := time.Duration(float64(latency) / t.cfg.TargetConcurrency)
	if failed {
		target = t.cfg.MaxDelay
	}
	next := (current + target) / 2
	if next < t.cfg.MinDelay {
		next = t.cfg.MinDelay
	}
	if next > t.cfg.MaxDelay {
		next = t.cfg.MaxDelay
	}

	t.delays[host] = next
	if lim, ok := t.limiters[host]; ok {
		lim.SetLimit(delayToLimit(next))
	}
	telemetry.SetThrottleDelay(host, next)
	if next != current {
		t.logger.Debug("throttle delay adjusted",
			zap.String("host", host),
			zap.Duration("from", current),
			zap.Duration("to", next),
		)
	}
}

// Delay reports the current delay chosen for a host.
func (t *Throttle) Delay(rawURL string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d, ok := t.delays[hostOf(rawURL)]; ok {
		return d
	}
	return t.cfg.StartDelay
}

func delayToLimit(d time.Duration) rate.Limit {
	if d <= 0 {
		return rate.Inf
	}
	return rate.Limit(1 / d.Seconds())
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
