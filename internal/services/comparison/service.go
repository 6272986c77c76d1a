// Package comparison fetches up to three subscriptions side by side.
package comparison

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/cost-dashboard-tui/internal/cache"
	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
	"github.com/j-veylop/cost-dashboard-tui/internal/logger"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
)

// Slots is the number of comparison columns.
const Slots = 3

// API is the subset of the cost API used for comparisons.
type API interface {
	FetchSubscriptionCosts(ctx context.Context, id string, params filters.Params, fs []filters.Filter) (*models.SubscriptionCostResult, error)
}

// Cache is the result cache shared with the overview.
type Cache interface {
	IsValid(subID string, b cache.Bucket) bool
	Get(subID string, b cache.Bucket) (*models.SubscriptionCostResult, bool)
	Set(subID string, b cache.Bucket, result *models.SubscriptionCostResult) error
	FindAnyValid(subID string) (cache.Bucket, *models.SubscriptionCostResult, bool)
}

// Column is one comparison slot.
type Column struct {
	Data           *models.SubscriptionCostResult
	SubscriptionID string
	Err            string
	Fallback       bool
}

// Empty reports whether no subscription is selected in the column.
func (c Column) Empty() bool {
	return c.SubscriptionID == ""
}

// Result holds the columns of one comparison.
type Result struct {
	Key     filters.Key
	Columns [Slots]Column
}

// Diff is a percentage change between two adjacent columns.
type Diff struct {
	Base    *float64
	Current *float64
	Label   string
}

// String formats the change as "+12.5%" or "N/A".
func (d Diff) String() string {
	return models.FormatPercentDiff(d.Base, d.Current)
}

// Diffs compares column i with column i-1. It returns nil for the first
// column or when either side has no data.
func (r Result) Diffs(i int) []Diff {
	if i <= 0 || i >= Slots {
		return nil
	}
	prev, cur := r.Columns[i-1].Data, r.Columns[i].Data
	if prev == nil || cur == nil {
		return nil
	}
	return []Diff{
		{Label: "Actual Cost", Base: models.Float(prev.TotalCost), Current: models.Float(cur.TotalCost)},
		{Label: "Forecasted Cost", Base: prev.ProjectedCostCurrentMonth, Current: cur.ProjectedCostCurrentMonth},
		{
			Label:   "Resource Groups",
			Base:    models.Float(float64(prev.ResourceGroupCount())),
			Current: models.Float(float64(cur.ResourceGroupCount())),
		},
	}
}

// Service runs comparisons.
type Service struct {
	api   API
	cache Cache
	limit int
}

// New creates a comparison service. limit caps concurrent fetches.
func New(api API, c Cache, limit int) *Service {
	if limit <= 0 {
		limit = Slots
	}
	return &Service{api: api, cache: c, limit: limit}
}

// Compare loads each selected subscription under fs. Cached entries are
// preferred, then any valid entry for the subscription, then the API. A
// failing column does not affect the others.
func (s *Service) Compare(ctx context.Context, ids [Slots]string, fs []filters.Filter) Result {
	key := filters.Normalize(fs)
	bucket := cache.Filtered(key)
	params := filters.ParamsFrom(fs)

	res := Result{Key: key}
	var g errgroup.Group
	g.SetLimit(s.limit)
	for i, id := range ids {
		if id == "" {
			continue
		}
		g.Go(func() error {
			res.Columns[i] = s.load(ctx, id, bucket, params, fs)
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func (s *Service) load(ctx context.Context, id string, b cache.Bucket, params filters.Params, fs []filters.Filter) Column {
	col := Column{SubscriptionID: id}
	if s.cache.IsValid(id, b) {
		if data, ok := s.cache.Get(id, b); ok {
			col.Data = data
			return col
		}
	}
	if _, data, ok := s.cache.FindAnyValid(id); ok {
		col.Data = data
		col.Fallback = true
		return col
	}

	data, err := s.api.FetchSubscriptionCosts(ctx, id, params, fs)
	if err != nil {
		logger.Warn("comparison fetch failed", "subscription", id, "error", err)
		col.Err = err.Error()
		return col
	}
	if err := s.cache.Set(id, b, data); err != nil {
		logger.Warn("failed to cache comparison result", "subscription", id, "error", err)
	}
	col.Data = data
	return col
}

// Label returns the heading of column i.
func Label(i int) string {
	return "Subscription " + strconv.Itoa(i+1)
}
