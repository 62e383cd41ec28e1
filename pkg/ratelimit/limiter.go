package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/logger"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

const (
	// DefaultBuffer is how many requests are always left unused so interactive
	// clients of the same token are not starved.
	DefaultBuffer = 10
	// DefaultMaxAttempts bounds retries of a single destination write.
	DefaultMaxAttempts = 3
	// DefaultInitialDelay is the first backoff interval for transient errors.
	DefaultInitialDelay = 2 * time.Second
	// DefaultMaxDelay caps a single backoff interval.
	DefaultMaxDelay = 60 * time.Second
	// DefaultContentInterval paces content-generating requests.
	// https://docs.github.com/en/rest/using-the-rest-api/rate-limits-for-the-rest-api?apiVersion=2022-11-28#calculating-points-for-the-secondary-rate-limit
	DefaultContentInterval = 1 * time.Second

	// fallback wait when the platform announced no reset time
	defaultResetWait = 1 * time.Minute
)

// Config tunes a Limiter. Zero values fall back to the defaults above.
type Config struct {
	Buffer          int
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	ContentInterval time.Duration
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Buffer:          DefaultBuffer,
		MaxAttempts:     DefaultMaxAttempts,
		InitialDelay:    DefaultInitialDelay,
		MaxDelay:        DefaultMaxDelay,
		ContentInterval: DefaultContentInterval,
	}
}

// Limiter spaces destination API calls so a transfer slows down instead of
// failing when the quota runs low. It learns the quota from response headers
// via Update and gates every call through Acquire.
type Limiter struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	known     bool

	buffer       int
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration

	pacer *rate.Limiter

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Limiter from cfg.
func New(cfg Config) *Limiter {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultBuffer
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultInitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.ContentInterval <= 0 {
		cfg.ContentInterval = DefaultContentInterval
	}
	return &Limiter{
		buffer:       cfg.Buffer,
		maxAttempts:  cfg.MaxAttempts,
		initialDelay: cfg.InitialDelay,
		maxDelay:     cfg.MaxDelay,
		pacer:        rate.NewLimiter(rate.Every(cfg.ContentInterval), 1),
		now:          time.Now,
		sleep:        sleepContext,
	}
}

// Update records the quota numbers from the latest API response.
func (l *Limiter) Update(remaining int, reset time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remaining = remaining
	l.reset = reset
	l.known = true
}

// Remaining returns the last known request quota, or -1 before any update.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.known {
		return -1
	}
	return l.remaining
}

// Acquire blocks until the quota leaves room for cost requests on top of the
// safety buffer, or until the announced reset has passed. An unknown quota
// passes through; the first response teaches the limiter the real numbers.
func (l *Limiter) Acquire(ctx context.Context, cost int) error {
	for {
		l.mu.Lock()
		if !l.known || l.remaining-l.buffer >= cost {
			l.mu.Unlock()
			return nil
		}
		remaining := l.remaining
		reset := l.reset
		l.mu.Unlock()

		wait := reset.Sub(l.now())
		if wait <= 0 {
			// リセット時刻を過ぎているため通過させる。実際の残量は次のレスポンスで更新される
			l.mu.Lock()
			l.known = false
			l.mu.Unlock()
			return nil
		}

		logger.Info("API quota low, waiting for reset",
			"remaining", remaining,
			"buffer", l.buffer,
			"wait", wait.Round(time.Second).String(),
			"reset", reset.Format(time.RFC3339))
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// AcquireContent additionally paces content-generating requests (issue and
// comment creation), which GitHub limits separately from the main quota.
func (l *Limiter) AcquireContent(ctx context.Context) error {
	return l.pacer.Wait(ctx)
}

// Do runs op under the quota gate and retries it on failures that can heal.
// Transient errors back off exponentially; rate limit errors push the reset
// clock forward so the next attempt waits it out. Anything else stops the
// loop immediately and is returned as is.
func (l *Limiter) Do(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.initialDelay
	bo.MaxInterval = l.maxDelay
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0 // attempts are bounded by WithMaxRetries instead

	attempt := 0
	run := func() error {
		if err := l.Acquire(ctx, 1); err != nil {
			return backoff.Permanent(err)
		}

		err := op()
		if err == nil {
			return nil
		}
		attempt++

		switch {
		case metadata.IsRateLimitError(err):
			var rateErr *metadata.RateLimitError
			errors.As(err, &rateErr)
			reset := rateErr.ResetAt
			if reset.IsZero() {
				reset = l.now().Add(defaultResetWait)
			}
			// 残量ゼロとして記録し、次のAcquireでリセットまで待たせる
			l.Update(0, reset)
			logger.Warn("Destination rate limited",
				"reset", reset.Format(time.RFC3339),
				"attempt", attempt,
				"maxAttempts", l.maxAttempts)
			return err
		case metadata.IsTransientError(err):
			logger.Info("Retryable error on destination call",
				"error", err,
				"attempt", attempt,
				"maxAttempts", l.maxAttempts)
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	err := backoff.Retry(run, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(l.maxAttempts-1)), ctx))
	if err != nil && (metadata.IsRateLimitError(err) || metadata.IsTransientError(err)) {
		return fmt.Errorf("operation failed after %d attempts: %w", l.maxAttempts, err)
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
