package fetcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/costapi"
)

type mockAPI struct {
	responses map[string][]error
	calls     []string
	mu        sync.Mutex
}

func (m *mockAPI) FetchBatchCosts(_ context.Context, ids []string, _ filters.Params) ([]models.SubscriptionCostResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := ids[0]
	m.calls = append(m.calls, id)
	if errs := m.responses[id]; len(errs) > 0 {
		err := errs[0]
		m.responses[id] = errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return []models.SubscriptionCostResult{{SubscriptionID: id, TotalCost: 1}}, nil
}

type recordingSleeper struct {
	delays []time.Duration
	mu     sync.Mutex
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestFetcher(api BatchAPI) (*Fetcher, *recordingSleeper) {
	f := New(api, DefaultConfig())
	s := &recordingSleeper{}
	f.SetSleep(s.Sleep)
	f.jitter = func(time.Duration) time.Duration { return 0 }
	return f, s
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err        error
		name       string
		kind       Kind
		retryAfter time.Duration
	}{
		{name: "status text", err: errors.New("request failed with status 429"), kind: KindRateLimit},
		{name: "too many requests", err: errors.New("Too Many Requests"), kind: KindRateLimit},
		{name: "retry after", err: errors.New("429 (Retry-After: 7)"), kind: KindRateLimit, retryAfter: 7 * time.Second},
		{name: "api error", err: &costapi.APIError{StatusCode: 429, RetryAfter: 3}, kind: KindRateLimit, retryAfter: 3 * time.Second},
		{name: "network", err: &costapi.NetworkError{Err: errors.New("dial tcp: refused")}, kind: KindNetwork},
		{name: "insufficient resources", err: errors.New("net::ERR_INSUFFICIENT_RESOURCES"), kind: KindNetwork},
		{name: "server error", err: &costapi.APIError{StatusCode: 500, Detail: "boom"}, kind: KindTerminal},
		{name: "canceled", err: context.Canceled, kind: KindTerminal},
		{name: "nil", err: nil, kind: KindTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ra := Classify(tt.err)
			if kind != tt.kind {
				t.Errorf("kind = %v, want %v", kind, tt.kind)
			}
			if ra != tt.retryAfter {
				t.Errorf("retryAfter = %v, want %v", ra, tt.retryAfter)
			}
		})
	}
}

func TestFetchBatchRetriesRateLimit(t *testing.T) {
	rateLimited := &costapi.APIError{StatusCode: 429}
	api := &mockAPI{responses: map[string][]error{"a": {rateLimited, rateLimited}}}
	f, sleeper := newTestFetcher(api)

	results, err := f.FetchBatch(context.Background(), []string{"a"}, filters.DefaultParams())
	if err != nil {
		t.Fatalf("FetchBatch failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
	if len(api.calls) != 3 {
		t.Errorf("made %d calls, want 3", len(api.calls))
	}
	want := []time.Duration{5 * time.Second, 10 * time.Second}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", sleeper.delays, want)
	}
	for i := range want {
		if sleeper.delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, sleeper.delays[i], want[i])
		}
	}
}

func TestFetchBatchHonoursRetryAfter(t *testing.T) {
	api := &mockAPI{responses: map[string][]error{"a": {&costapi.APIError{StatusCode: 429, RetryAfter: 2}}}}
	f, sleeper := newTestFetcher(api)
	f.jitter = func(max time.Duration) time.Duration { return max }

	if _, err := f.FetchBatch(context.Background(), []string{"a"}, filters.DefaultParams()); err != nil {
		t.Fatalf("FetchBatch failed: %v", err)
	}
	if len(sleeper.delays) != 1 || sleeper.delays[0] != 2*time.Second+100*time.Millisecond {
		t.Errorf("delays = %v, want [2.1s]", sleeper.delays)
	}
}

func TestFetchBatchNetworkJitter(t *testing.T) {
	netErr := &costapi.NetworkError{Err: errors.New("reset")}
	api := &mockAPI{responses: map[string][]error{"a": {netErr}}}
	f, sleeper := newTestFetcher(api)
	f.jitter = func(max time.Duration) time.Duration { return max }

	if _, err := f.FetchBatch(context.Background(), []string{"a"}, filters.DefaultParams()); err != nil {
		t.Fatalf("FetchBatch failed: %v", err)
	}
	if len(sleeper.delays) != 1 || sleeper.delays[0] != 5*time.Second+500*time.Millisecond {
		t.Errorf("delays = %v, want [5.5s]", sleeper.delays)
	}
}

func TestFetchBatchExhaustsAttempts(t *testing.T) {
	rateLimited := &costapi.APIError{StatusCode: 429}
	api := &mockAPI{responses: map[string][]error{"a": {rateLimited, rateLimited, rateLimited, nil}}}
	f, sleeper := newTestFetcher(api)

	_, err := f.FetchBatch(context.Background(), []string{"a"}, filters.DefaultParams())
	if !errors.Is(err, rateLimited) {
		t.Fatalf("err = %v, want the last rate-limit error", err)
	}
	if len(api.calls) != 3 {
		t.Errorf("made %d calls, want 3", len(api.calls))
	}
	if len(sleeper.delays) != 2 {
		t.Errorf("slept %d times, want 2 (no wait after the final attempt)", len(sleeper.delays))
	}
}

func TestFetchBatchTerminalError(t *testing.T) {
	terminal := &costapi.APIError{StatusCode: 403, Detail: "forbidden"}
	api := &mockAPI{responses: map[string][]error{"a": {terminal}}}
	f, sleeper := newTestFetcher(api)

	_, err := f.FetchBatch(context.Background(), []string{"a"}, filters.DefaultParams())
	if !errors.Is(err, terminal) {
		t.Fatalf("err = %v, want terminal error", err)
	}
	if len(api.calls) != 1 || len(sleeper.delays) != 0 {
		t.Errorf("calls = %d, delays = %v; want 1 call and no delay", len(api.calls), sleeper.delays)
	}
}

func TestFetchAllContinuesPastFailures(t *testing.T) {
	terminal := errors.New("bad request")
	api := &mockAPI{responses: map[string][]error{"b": {terminal}}}
	f, sleeper := newTestFetcher(api)

	var batches []Batch
	err := f.FetchAll(context.Background(), []string{"a", "b", "c"}, filters.DefaultParams(), func(b Batch) {
		batches = append(batches, b)
	})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	if batches[1].Err == nil || batches[1].IDs[0] != "b" {
		t.Errorf("batch b = %+v, want error", batches[1])
	}
	if batches[0].Err != nil || batches[2].Err != nil {
		t.Errorf("batches a/c should succeed: %+v %+v", batches[0], batches[2])
	}
	// Pacing follows the two successful batches only.
	if len(sleeper.delays) != 2 {
		t.Errorf("delays = %v, want 2 pacing delays", sleeper.delays)
	}
	for _, d := range sleeper.delays {
		if d != 5*time.Second {
			t.Errorf("pacing delay = %v, want 5s", d)
		}
	}
}

func TestFetchAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	api := &mockAPI{responses: map[string][]error{}}
	f := New(api, DefaultConfig())
	f.SetSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})

	calls := 0
	err := f.FetchAll(ctx, []string{"a", "b"}, filters.DefaultParams(), func(Batch) { calls++ })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("onBatch called %d times, want 1", calls)
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Sleep returned %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep on canceled context = %v", err)
	}
}
