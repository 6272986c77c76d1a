// Package fetcher runs paced, retrying batch fetches against the cost API.
package fetcher

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
	"github.com/j-veylop/cost-dashboard-tui/internal/logger"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
)

// BatchAPI is the subset of the cost API used by the fetcher.
type BatchAPI interface {
	FetchBatchCosts(ctx context.Context, ids []string, params filters.Params) ([]models.SubscriptionCostResult, error)
}

// Kind classifies a fetch error.
type Kind int

const (
	// KindTerminal errors are returned without retrying.
	KindTerminal Kind = iota
	// KindRateLimit errors are retried after the server's Retry-After or a
	// backoff delay.
	KindRateLimit
	// KindNetwork errors are retried after a backoff delay.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindRateLimit:
		return "rate-limit"
	case KindNetwork:
		return "network"
	default:
		return "terminal"
	}
}

var retryAfterRe = regexp.MustCompile(`Retry-After: (\d+)`)

// Classify inspects the error text and reports its kind plus any
// Retry-After hint.
func Classify(err error) (Kind, time.Duration) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindTerminal, 0
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests"):
		if m := retryAfterRe.FindStringSubmatch(msg); m != nil {
			if secs, convErr := strconv.Atoi(m[1]); convErr == nil {
				return KindRateLimit, time.Duration(secs) * time.Second
			}
		}
		return KindRateLimit, 0
	case strings.Contains(msg, "Network Error") || strings.Contains(msg, "ERR_INSUFFICIENT_RESOURCES"):
		return KindNetwork, 0
	default:
		return KindTerminal, 0
	}
}

// Config holds configuration for the fetcher.
type Config struct {
	Attempts   int
	BaseDelay  time.Duration
	Pacing     time.Duration
	RateJitter time.Duration
	NetJitter  time.Duration
	BatchSize  int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Attempts:   3,
		BaseDelay:  5 * time.Second,
		Pacing:     5 * time.Second,
		RateJitter: 100 * time.Millisecond,
		NetJitter:  500 * time.Millisecond,
		BatchSize:  1,
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fetcher retries and paces batch requests.
type Fetcher struct {
	api    BatchAPI
	sleep  SleepFunc
	jitter func(max time.Duration) time.Duration
	config Config
}

// New creates a fetcher. Zero config fields take their defaults.
func New(api BatchAPI, config Config) *Fetcher {
	def := DefaultConfig()
	if config.Attempts <= 0 {
		config.Attempts = def.Attempts
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = def.BaseDelay
	}
	if config.Pacing < 0 {
		config.Pacing = 0
	}
	if config.RateJitter <= 0 {
		config.RateJitter = def.RateJitter
	}
	if config.NetJitter <= 0 {
		config.NetJitter = def.NetJitter
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	return &Fetcher{
		api:    api,
		sleep:  Sleep,
		jitter: randomJitter,
		config: config,
	}
}

// SetSleep replaces the sleep function.
func (f *Fetcher) SetSleep(fn SleepFunc) {
	f.sleep = fn
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}

// delay returns the wait before retrying after a failed attempt (0-based).
func (f *Fetcher) delay(kind Kind, retryAfter time.Duration, attempt int) time.Duration {
	backoff := f.config.BaseDelay << attempt
	switch kind {
	case KindRateLimit:
		if retryAfter > 0 {
			backoff = retryAfter
		}
		return backoff + f.jitter(f.config.RateJitter)
	case KindNetwork:
		return backoff + f.jitter(f.config.NetJitter)
	default:
		return 0
	}
}

// FetchBatch fetches ids in one request, retrying rate-limit and network
// failures. There is no wait after the final attempt.
func (f *Fetcher) FetchBatch(ctx context.Context, ids []string, params filters.Params) ([]models.SubscriptionCostResult, error) {
	var lastErr error
	for attempt := range f.config.Attempts {
		results, err := f.api.FetchBatchCosts(ctx, ids, params)
		if err == nil {
			return results, nil
		}
		lastErr = err

		kind, retryAfter := Classify(err)
		if kind == KindTerminal {
			return nil, err
		}
		if attempt == f.config.Attempts-1 {
			break
		}

		wait := f.delay(kind, retryAfter, attempt)
		logger.Warn("batch fetch failed, retrying",
			"subscriptions", ids, "kind", kind.String(), "attempt", attempt+1, "wait", wait, "error", err)
		if err := f.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// Batch is the outcome of one batch passed to the FetchAll callback.
type Batch struct {
	Err     error
	IDs     []string
	Results []models.SubscriptionCostResult
}

// FetchAll fetches ids in sequential batches, calling onBatch after each. A
// failed batch is reported and the loop moves on. Successful batches are
// followed by the pacing delay. Only ctx cancellation stops the loop early.
func (f *Fetcher) FetchAll(ctx context.Context, ids []string, params filters.Params, onBatch func(Batch)) error {
	for start := 0; start < len(ids); start += f.config.BatchSize {
		end := min(start+f.config.BatchSize, len(ids))
		batch := ids[start:end]

		results, err := f.FetchBatch(ctx, batch, params)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		onBatch(Batch{IDs: batch, Results: results, Err: err})
		if err != nil {
			logger.Error("batch fetch failed", "subscriptions", batch, "error", err)
			continue
		}

		if err := f.sleep(ctx, f.config.Pacing); err != nil {
			return err
		}
	}
	return nil
}
