package tags

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/j-veylop/cost-dashboard-tui/internal/models"
)

type mockAPI struct {
	tags  map[string][]models.TagDetails
	calls int
	mu    sync.Mutex
}

func (m *mockAPI) FetchAvailableTags(_ context.Context, id string) []models.TagDetails {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.tags[id]
}

func TestDiscover(t *testing.T) {
	api := &mockAPI{tags: map[string][]models.TagDetails{
		"a": {{TagName: "Env", Values: []string{"prod", "dev"}}, {TagName: "Team", Values: []string{"ops"}}},
		"b": {{TagName: "Env", Values: []string{"dev", "test"}}},
		"c": {},
	}}

	got := Discover(context.Background(), api, []string{"a", "b", "c"}, 2)
	if api.calls != 3 {
		t.Errorf("made %d calls, want 3", api.calls)
	}
	if strings.Join(Names(got), ",") != "Env,Team" {
		t.Errorf("names = %v", Names(got))
	}
	if strings.Join(got[0].Values, ",") != "dev,prod,test" {
		t.Errorf("Env values = %v", got[0].Values)
	}
}

func TestMergeSkipsUnnamed(t *testing.T) {
	got := Merge([]models.TagDetails{{TagName: "", Values: []string{"x"}}})
	if len(got) != 0 {
		t.Errorf("Merge = %+v, want empty", got)
	}
}
