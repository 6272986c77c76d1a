package app

import (
	"errors"
	"testing"
	"time"

	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/comparison"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/overview"
)

func testSubscriptions() []models.Subscription {
	return []models.Subscription{
		{SubscriptionID: "s1", DisplayName: "corp-prod-web"},
		{SubscriptionID: "s2", DisplayName: "corp-dev-web"},
		{SubscriptionID: "s3", DisplayName: "corp-prod-data"},
	}
}

func TestNewState(t *testing.T) {
	s := NewState()
	if s == nil {
		t.Fatal("NewState returned nil")
	}
	if s.ActiveTab() != TabOverview {
		t.Errorf("ActiveTab() = %v, want Overview", s.ActiveTab())
	}
	if !s.Loading.Initial {
		t.Error("Initial loading should be true")
	}
	fs := s.Filters()
	if len(fs) != 2 || !filters.IsDefault(fs) {
		t.Errorf("Filters() = %v, want defaults", fs)
	}
	if s.Group() != models.AllGroups {
		t.Errorf("Group() = %q, want %q", s.Group(), models.AllGroups)
	}
}

func TestState_SetLoading(t *testing.T) {
	s := NewState()

	s.SetLoading(LoadDetail, true)
	if !s.IsLoading(LoadDetail) {
		t.Error("Detail loading should be true")
	}

	s.SetLoading(LoadDetail, false)
	if !s.AnyLoading() {
		t.Error("AnyLoading should be true (Initial is true)")
	}

	s.SetLoading(LoadInitial, false)
	if s.AnyLoading() {
		t.Error("AnyLoading should be false")
	}

	s.SetLoading(LoadComparison, true)
	if !s.Loading.Comparison {
		t.Error("Comparison loading should be true")
	}
	if s.IsLoading("unknown") {
		t.Error("IsLoading(unknown) should be false")
	}
}

func TestState_Filters(t *testing.T) {
	s := NewState()

	tag := filters.Filter{Type: filters.TypeTag, Key: "Env", Operator: filters.OpEqual, Value: "prod"}
	if err := s.AddFilter(tag); err != nil {
		t.Fatalf("AddFilter() error = %v", err)
	}
	fs := s.Filters()
	if len(fs) != 3 {
		t.Fatalf("len(Filters()) = %d, want 3", len(fs))
	}
	added := fs[2]
	if added.ID == "" {
		t.Error("added filter should get an ID")
	}

	if err := s.AddFilter(filters.Filter{Type: filters.TypeTag, Operator: "~", Key: "x", Value: "y"}); !errors.Is(err, filters.ErrInvalidFilter) {
		t.Errorf("AddFilter(bad) error = %v, want ErrInvalidFilter", err)
	}

	ytd := filters.Filter{Type: filters.TypeTimeframe, Operator: filters.OpEqual, Value: filters.YearToDate}
	if err := s.AddFilter(ytd); err != nil {
		t.Fatalf("AddFilter(timeframe) error = %v", err)
	}
	timeframes := 0
	for _, f := range s.Filters() {
		if f.Type == filters.TypeTimeframe {
			timeframes++
			if f.Value != filters.YearToDate {
				t.Errorf("timeframe = %q, want %q", f.Value, filters.YearToDate)
			}
		}
	}
	if timeframes != 1 {
		t.Errorf("timeframe filters = %d, want 1", timeframes)
	}

	s.RemoveFilter(added.ID)
	for _, f := range s.Filters() {
		if f.ID == added.ID {
			t.Error("tag filter should be removed")
		}
	}
}

func TestState_RemoveFilter_ReinsertsDefault(t *testing.T) {
	s := NewState()
	s.RemoveFilter(filters.DefaultTimeframeID)

	fs := s.Filters()
	if len(fs) != 2 {
		t.Fatalf("len(Filters()) = %d, want 2", len(fs))
	}
	if !filters.IsDefault(fs) {
		t.Errorf("Filters() = %v, want defaults", fs)
	}
}

func TestState_FiltersReturnsCopy(t *testing.T) {
	s := NewState()
	fs := s.Filters()
	fs[0].Value = filters.TheLastYear

	if s.Filters()[0].Value == filters.TheLastYear {
		t.Error("Filters() should return a copy")
	}
}

func TestState_Groups(t *testing.T) {
	s := NewState()
	s.SetSubscriptions(testSubscriptions())

	groups := s.Groups()
	want := []string{models.AllGroups, "dev", "prod"}
	if len(groups) != len(want) {
		t.Fatalf("Groups() = %v, want %v", groups, want)
	}
	for i := range want {
		if groups[i] != want[i] {
			t.Errorf("Groups()[%d] = %q, want %q", i, groups[i], want[i])
		}
	}

	if got := len(s.FilteredIDs()); got != 3 {
		t.Errorf("len(FilteredIDs()) = %d, want 3", got)
	}

	tests := []struct {
		current string
		next    string
		ids     int
	}{
		{current: models.AllGroups, next: "dev", ids: 1},
		{current: "dev", next: "prod", ids: 2},
		{current: "prod", next: models.AllGroups, ids: 3},
	}
	for _, tt := range tests {
		t.Run(tt.current, func(t *testing.T) {
			st := s.Settings()
			st.SubscriptionGroup = tt.current
			s.SetSettings(st)

			next := s.NextGroup()
			if next != tt.next {
				t.Errorf("NextGroup() = %q, want %q", next, tt.next)
			}
			st.SubscriptionGroup = next
			s.SetSettings(st)
			if got := len(s.FilteredIDs()); got != tt.ids {
				t.Errorf("len(FilteredIDs()) = %d, want %d", got, tt.ids)
			}
		})
	}
}

func TestState_SubscriptionName(t *testing.T) {
	s := NewState()
	s.SetSubscriptions(testSubscriptions())

	if got := s.SubscriptionName("s1"); got != "corp-prod-web" {
		t.Errorf("SubscriptionName(s1) = %q, want corp-prod-web", got)
	}
	if got := s.SubscriptionName("missing"); got != "missing" {
		t.Errorf("SubscriptionName(missing) = %q, want missing", got)
	}
}

func TestState_Period(t *testing.T) {
	s := NewState()
	if s.Period() != models.PeriodYTD {
		t.Errorf("Period() = %v, want YTD", s.Period())
	}

	st := s.Settings()
	st.AggregatePeriod = "MTD"
	s.SetSettings(st)
	if s.Period() != models.PeriodMTD {
		t.Errorf("Period() = %v, want MTD", s.Period())
	}
}

func TestState_Detail(t *testing.T) {
	s := NewState()
	s.SelectSubscription("s1")

	if s.SetDetail("s2", &models.SubscriptionCostResult{SubscriptionID: "s2"}) {
		t.Error("SetDetail for an unselected subscription should be dropped")
	}
	if s.Detail() != nil {
		t.Error("Detail() should be nil")
	}

	if !s.SetDetail("s1", &models.SubscriptionCostResult{SubscriptionID: "s1", TotalCost: 10}) {
		t.Fatal("SetDetail(s1) should be stored")
	}
	if got := s.Detail().TotalCost; got != 10 {
		t.Errorf("Detail().TotalCost = %v, want 10", got)
	}

	s.SelectSubscription("s2")
	if s.Detail() != nil {
		t.Error("selecting another subscription should drop the detail")
	}
}

func TestState_ResourceGroup(t *testing.T) {
	s := NewState()
	s.SelectSubscription("s1")
	s.SetDetail("s1", &models.SubscriptionCostResult{
		SubscriptionID: "s1",
		DetailedEntries: []models.CostEntry{
			{Amount: 5, Currency: "EUR", ResourceID: "/subscriptions/s1/resourceGroups/RG-Web/providers/Microsoft.Web/sites/app"},
			{Amount: 7, Currency: "EUR", ResourceID: "/subscriptions/s1/resourceGroups/RG-Web/providers/Microsoft.Sql/servers/db"},
			{Amount: 9, Currency: "EUR", ResourceID: "/subscriptions/s1/resourceGroups/RG-Other/providers/Microsoft.Sql/servers/x"},
		},
	})

	if !s.SelectResourceGroup("RG-Web") {
		t.Fatal("SelectResourceGroup should select")
	}
	providers := s.Providers()
	if len(providers) != 2 {
		t.Fatalf("len(Providers()) = %d, want 2", len(providers))
	}
	if providers[0].Provider != "microsoft.sql" {
		t.Errorf("Providers()[0] = %q, want microsoft.sql", providers[0].Provider)
	}

	if s.SetResourceGroupDetails("s1", "RG-Other", &models.ResourceGroupCostDetails{}) {
		t.Error("details for another resource group should be dropped")
	}
	if !s.SetResourceGroupDetails("s1", "RG-Web", &models.ResourceGroupCostDetails{TotalCost: 12}) {
		t.Error("details for the selected resource group should be stored")
	}
	if s.ResourceGroupDetails() == nil {
		t.Error("ResourceGroupDetails() should be set")
	}

	if s.SelectResourceGroup("RG-Web") {
		t.Error("selecting the same resource group again should deselect it")
	}
	if s.ResourceGroup() != "" || s.Providers() != nil || s.ResourceGroupDetails() != nil {
		t.Error("deselecting should clear the drill-down")
	}
}

func TestState_ResourceGroup_ProvidersFromDetails(t *testing.T) {
	s := NewState()
	s.SelectSubscription("s1")
	s.SelectResourceGroup("rg")

	details := &models.ResourceGroupCostDetails{
		DetailedEntries: []models.CostEntry{
			{Amount: 3, ResourceID: "/subscriptions/s1/resourceGroups/rg/providers/Microsoft.Storage/storageAccounts/st"},
		},
	}
	s.SetResourceGroupDetails("s1", "rg", details)

	if got := len(s.Providers()); got != 1 {
		t.Errorf("len(Providers()) = %d, want 1", got)
	}
}

func TestState_Navigate(t *testing.T) {
	tests := []struct {
		name         string
		to           TabID
		wantSelected string
		wantDetail   bool
	}{
		{name: "Overview", to: TabOverview, wantSelected: "", wantDetail: false},
		{name: "Comparison", to: TabComparison, wantSelected: "s1", wantDetail: true},
		{name: "Info", to: TabInfo, wantSelected: "s1", wantDetail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			s.Navigate(TabDetail)
			s.SelectSubscription("s1")
			s.SetDetail("s1", &models.SubscriptionCostResult{SubscriptionID: "s1"})
			s.SelectResourceGroup("rg")

			s.Navigate(tt.to)

			if s.ActiveTab() != tt.to {
				t.Errorf("ActiveTab() = %v, want %v", s.ActiveTab(), tt.to)
			}
			if s.SelectedSubscription() != tt.wantSelected {
				t.Errorf("SelectedSubscription() = %q, want %q", s.SelectedSubscription(), tt.wantSelected)
			}
			if (s.Detail() != nil) != tt.wantDetail {
				t.Errorf("Detail() set = %v, want %v", s.Detail() != nil, tt.wantDetail)
			}
			if s.ResourceGroup() != "" {
				t.Errorf("ResourceGroup() = %q, want empty", s.ResourceGroup())
			}
		})
	}
}

func TestState_Comparison(t *testing.T) {
	s := NewState()

	if s.SetComparisonSlot(comparison.Slots, "s1") {
		t.Error("out-of-range slot should be rejected")
	}
	if !s.SetComparisonSlot(0, "s1") || !s.SetComparisonSlot(2, "s3") {
		t.Fatal("SetComparisonSlot should accept slots 0 and 2")
	}
	ids := s.ComparisonIDs()
	if ids != [comparison.Slots]string{"s1", "", "s3"} {
		t.Errorf("ComparisonIDs() = %v", ids)
	}

	key := s.FilterKey()
	stale := comparison.Result{Key: key, Columns: [comparison.Slots]comparison.Column{{SubscriptionID: "s2"}}}
	if s.SetComparison(stale) {
		t.Error("a result for other slots should be dropped")
	}

	fresh := comparison.Result{Key: key, Columns: [comparison.Slots]comparison.Column{
		{SubscriptionID: "s1"}, {}, {SubscriptionID: "s3"},
	}}
	if !s.SetComparison(fresh) {
		t.Fatal("a matching result should be stored")
	}
	if s.Comparison() == nil {
		t.Error("Comparison() should be set")
	}
}

func TestState_ComparisonAfterFilterChange(t *testing.T) {
	s := NewState()
	s.SetComparisonSlot(0, "s1")
	before := s.FilterKey()

	if err := s.AddFilter(filters.Filter{Type: filters.TypeTimeframe, Value: filters.YearToDate}); err != nil {
		t.Fatalf("AddFilter() error = %v", err)
	}
	if s.FilterKey() == before {
		t.Fatal("FilterKey() should change with the timeframe")
	}

	late := comparison.Result{Key: before, Columns: [comparison.Slots]comparison.Column{{SubscriptionID: "s1"}}}
	if s.SetComparison(late) {
		t.Error("a result computed under the previous filters should be dropped")
	}
	if s.Comparison() != nil {
		t.Error("Comparison() should stay unset")
	}

	current := comparison.Result{Key: s.FilterKey(), Columns: [comparison.Slots]comparison.Column{{SubscriptionID: "s1"}}}
	if !s.SetComparison(current) {
		t.Error("a result for the active filters should be stored")
	}
}

func TestState_Summary(t *testing.T) {
	s := NewState()
	s.SetSubscriptions(testSubscriptions())

	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	snap := overview.Snapshot{
		UpdatedAt: now,
		Unfiltered: overview.Slots{
			"s1": {Data: &models.SubscriptionCostResult{
				YearlyMonthlyBreakdown: []models.MonthlyBreakdownItem{
					{Month: "Jan", Year: 2024, Actual: models.Float(100)},
					{Month: "Feb", Year: 2024, Actual: models.Float(50)},
				},
			}},
		},
	}
	s.SetSnapshot(snap)

	if !s.LastUpdated.Equal(now) {
		t.Errorf("LastUpdated = %v, want %v", s.LastUpdated, now)
	}

	summary := s.Summary(now)
	if summary.ActualCost != 150 {
		t.Errorf("Summary().ActualCost = %v, want 150", summary.ActualCost)
	}
	if summary.LoadedSubs != 1 {
		t.Errorf("Summary().LoadedSubs = %d, want 1", summary.LoadedSubs)
	}
}

func TestState_ErrorBanner(t *testing.T) {
	s := NewState()

	first := s.SetError("first")
	second := s.SetError("second")

	if s.ClearError(first) {
		t.Error("a stale token should not clear the banner")
	}
	if s.Error() != "second" {
		t.Errorf("Error() = %q, want second", s.Error())
	}
	if !s.ClearError(second) {
		t.Error("the latest token should clear the banner")
	}
	if s.Error() != "" {
		t.Errorf("Error() = %q, want empty", s.Error())
	}
}

func TestState_NotificationIDsUnique(t *testing.T) {
	s := NewState()
	seen := make(map[string]bool)
	for i := range 60 {
		id := s.AddNotification(NotificationInfo, "n", time.Minute)
		if seen[id] {
			t.Fatalf("notification %d reused ID %q", i, id)
		}
		seen[id] = true
	}

	s = NewState()
	keep := s.AddNotification(NotificationInfo, "keep", time.Minute)
	s.notificationSeq += 25
	drop := s.AddNotification(NotificationInfo, "drop", time.Minute)
	if keep == drop {
		t.Fatalf("IDs 26 apart collide: %q", keep)
	}
	s.RemoveNotification(drop)
	notifs := s.GetNotifications()
	if len(notifs) != 1 || notifs[0].ID != keep {
		t.Errorf("GetNotifications() after removal = %v, want only %q", notifs, keep)
	}
}

func TestState_Notifications(t *testing.T) {
	s := NewState()

	id := s.AddNotification(NotificationInfo, "Test", time.Minute)
	notifs := s.GetNotifications()
	if len(notifs) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].ID != id {
		t.Error("Notification ID mismatch")
	}

	s.RemoveNotification(id)
	if len(s.GetNotifications()) != 0 {
		t.Error("Notification should be removed")
	}

	for i := range maxNotifications + 5 {
		s.AddNotification(NotificationInfo, string(rune('a'+i)), time.Minute)
	}
	if got := len(s.GetNotifications()); got != maxNotifications {
		t.Errorf("len(GetNotifications()) = %d, want %d", got, maxNotifications)
	}
}

func TestState_ClearExpiredNotifications(t *testing.T) {
	s := NewState()
	s.AddNotification(NotificationInfo, "expired", time.Nanosecond)
	s.AddNotification(NotificationInfo, "sticky", 0)

	time.Sleep(time.Millisecond)
	s.ClearExpiredNotifications()

	notifs := s.GetNotifications()
	if len(notifs) != 1 || notifs[0].Message != "sticky" {
		t.Errorf("GetNotifications() = %v, want only sticky", notifs)
	}
}

func TestState_LoadingNotification(t *testing.T) {
	s := NewState()

	s.SetLoadingNotification("Loading...")
	s.SetLoadingNotification("Still loading...")

	notifs := s.GetNotifications()
	if len(notifs) != 1 {
		t.Fatalf("Expected 1 loading notification, got %d", len(notifs))
	}
	if notifs[0].Message != "Still loading..." {
		t.Errorf("Message = %q, want Still loading...", notifs[0].Message)
	}

	s.ClearLoadingNotification()
	if len(s.GetNotifications()) != 0 {
		t.Error("Loading notification should be cleared")
	}
}

func TestNotificationType_String(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotificationSuccess, "success"},
		{NotificationError, "error"},
		{NotificationWarning, "warning"},
		{NotificationInfo, "info"},
		{NotificationLoading, "loading"},
		{NotificationType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("NotificationType(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
