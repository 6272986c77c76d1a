package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/j-veylop/cost-dashboard-tui/internal/amqp"
	"github.com/j-veylop/cost-dashboard-tui/internal/cache"
	"github.com/j-veylop/cost-dashboard-tui/internal/config"
	"github.com/j-veylop/cost-dashboard-tui/internal/export"
	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/overview"
)

// costServer fakes the batch-costs endpoint. Subscription "bad" fails.
type costServer struct {
	release chan struct{}
	mu      sync.Mutex
	batches int
}

func (s *costServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/cost/subscriptions":
		_ = json.NewEncoder(w).Encode([]models.Subscription{
			{SubscriptionID: "a", DisplayName: "acme-prod"},
			{SubscriptionID: "bad", DisplayName: "acme-dev"},
		})
	case "/cost/subscriptions/batch-costs":
		s.mu.Lock()
		s.batches++
		first := s.batches == 1
		s.mu.Unlock()
		if first && s.release != nil {
			<-s.release
		}

		var body struct {
			SubscriptionIDs []string `json:"subscription_ids"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.SubscriptionIDs) == 1 && body.SubscriptionIDs[0] == "bad" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail":"boom"}`))
			return
		}
		results := make([]models.SubscriptionCostResult, 0, len(body.SubscriptionIDs))
		for _, id := range body.SubscriptionIDs {
			results = append(results, models.SubscriptionCostResult{
				SubscriptionID:       id,
				TotalCost:            10,
				Currency:             "EUR",
				CostsByResourceGroup: map[string]float64{"rg": 10},
			})
		}
		_ = json.NewEncoder(w).Encode(results)
	default:
		http.NotFound(w, r)
	}
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.RefreshMessage
}

func (p *fakePublisher) PublishRefresh(_ context.Context, msg *amqp.RefreshMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func newTestManager(t *testing.T, handler http.Handler) (*Manager, *[]string) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tmpDir := t.TempDir()
	cfg := &config.Config{
		APIURL:           server.URL,
		RequestTimeout:   5 * time.Second,
		DatabasePath:     filepath.Join(tmpDir, "test.db"),
		SettingsPath:     filepath.Join(tmpDir, "settings.toml"),
		CacheTTL:         time.Hour,
		CacheEviction:    config.EvictSubscription,
		FetchAttempts:    1,
		FetchBaseDelay:   time.Millisecond,
		FetchPacingDelay: time.Millisecond,
		SettleDelay:      time.Millisecond,
	}

	mgr, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })

	var notes []string
	var mu sync.Mutex
	mgr.notify = func(title, _ string) error {
		mu.Lock()
		notes = append(notes, title)
		mu.Unlock()
		return nil
	}
	return mgr, &notes
}

func TestNewManager(t *testing.T) {
	mgr, _ := newTestManager(t, &costServer{})

	if mgr.Settings() == nil {
		t.Error("Settings service should be initialized")
	}
	if mgr.Cache() == nil {
		t.Error("Cache should be initialized")
	}
	if mgr.API() == nil {
		t.Error("API client should be initialized")
	}
	if mgr.Database() == nil {
		t.Error("Database should be initialized")
	}
}

func TestManager_Subscription(t *testing.T) {
	mgr, _ := newTestManager(t, &costServer{})

	ch, cmd := mgr.Subscribe()
	if ch == nil {
		t.Error("Subscribe returned nil channel")
	}
	if cmd == nil {
		t.Error("Subscribe returned nil command")
	}

	mgr.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Channel should be closed")
		}
	default:
		t.Error("Channel should be closed")
	}
}

func TestManager_Broadcast(t *testing.T) {
	mgr, _ := newTestManager(t, &costServer{})

	ch, _ := mgr.Subscribe()
	defer mgr.Unsubscribe(ch)

	event := SettingsChangedEvent{Settings: config.Settings{Budget: 1}}
	mgr.broadcast(event)

	for {
		select {
		case e := <-ch:
			if e == event {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("Timeout waiting for broadcast")
		}
	}
}

func TestManager_Refresh(t *testing.T) {
	mgr, _ := newTestManager(t, &costServer{})
	pub := &fakePublisher{}
	mgr.publisher = pub

	subs, err := mgr.LoadSubscriptions(context.Background())
	if err != nil {
		t.Fatalf("LoadSubscriptions() failed: %v", err)
	}
	req := overview.Request{Subscriptions: models.SubscriptionIDs(subs), Filters: filters.Defaults()}

	snap, err := mgr.Refresh(context.Background(), req)
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	if got := snap.Filtered["a"]; got.Data == nil || got.Data.TotalCost != 10 {
		t.Errorf("slot a = %+v, want data", got)
	}
	if got := snap.Filtered["bad"]; got.Err == "" {
		t.Error("slot bad should carry the batch error")
	}
	if got := snap.Unfiltered["a"]; got.TriggeredBy != cache.DefaultUnfiltered {
		t.Errorf("unfiltered slot should mirror filtered, got %+v", got)
	}

	if !mgr.Cache().IsValid("a", cache.Filtered(filters.Normalize(req.Filters))) {
		t.Error("successful result should be cached")
	}

	runs, err := mgr.RefreshHistory(10)
	if err != nil {
		t.Fatalf("RefreshHistory() failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Failed != 1 {
		t.Errorf("runs = %+v, want one run with one failure", runs)
	}

	if len(pub.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.msgs))
	}
	if msg := pub.msgs[0]; msg.Loaded != 1 || msg.Failed != 1 || msg.Subscriptions != 2 {
		t.Errorf("message = %+v", msg)
	}
}

func TestManager_RequestRefreshQueuesLatest(t *testing.T) {
	server := &costServer{release: make(chan struct{})}
	mgr, _ := newTestManager(t, server)

	ch, _ := mgr.Subscribe()

	first := overview.Request{Subscriptions: []string{"a"}, Filters: filters.Defaults()}
	second := overview.Request{Subscriptions: []string{"a", "x"}, Filters: filters.Defaults()}
	latest := overview.Request{Subscriptions: []string{"a", "y"}, Filters: filters.Defaults()}

	mgr.RequestRefresh(first)
	mgr.RequestRefresh(second)
	mgr.RequestRefresh(latest)
	close(server.release)

	var completed []RefreshCompletedEvent
	timeout := time.After(5 * time.Second)
	for len(completed) < 2 {
		select {
		case e := <-ch:
			if done, ok := e.(RefreshCompletedEvent); ok {
				completed = append(completed, done)
			}
		case <-timeout:
			t.Fatalf("timeout, got %d completed refreshes", len(completed))
		}
	}

	if len(completed[0].Request.Subscriptions) != 1 {
		t.Errorf("first completed request = %v", completed[0].Request.Subscriptions)
	}
	if got := completed[1].Request.Subscriptions; got[1] != "y" {
		t.Errorf("queued request = %v, want the latest", got)
	}
}

func TestManager_CheckBudget(t *testing.T) {
	mgr, notes := newTestManager(t, &costServer{})

	under := overview.Summary{Period: models.PeriodYTD, ProjectedCost: 1000}
	over := overview.Summary{Period: models.PeriodYTD, ProjectedCost: 30000}

	mgr.checkBudget(under, 20000)
	mgr.checkBudget(over, 20000)
	mgr.checkBudget(over, 20000)

	if len(*notes) != 1 {
		t.Errorf("notifications = %v, want exactly one on the crossing", *notes)
	}

	mgr.checkBudget(over, 0)
	mgr.checkBudget(over, 20000)
	if len(*notes) != 2 {
		t.Errorf("notifications = %v, want a second alert after re-crossing", *notes)
	}
}

func TestManager_Export(t *testing.T) {
	mgr, _ := newTestManager(t, &costServer{})

	dir := t.TempDir()
	if err := mgr.Settings().SetReportDir(dir); err != nil {
		t.Fatal(err)
	}

	result := &models.SubscriptionCostResult{SubscriptionID: "a", TotalCost: 5}
	paths, err := mgr.Export(result, []export.Format{export.FormatCSV, export.FormatJSON})
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %v, want 2", paths)
	}
	for _, p := range paths {
		if filepath.Dir(p) != dir {
			t.Errorf("export %s written outside %s", p, dir)
		}
	}
}

func TestManager_CloseTwice(t *testing.T) {
	mgr, _ := newTestManager(t, &costServer{})
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}
