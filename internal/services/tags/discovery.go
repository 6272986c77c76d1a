// Package tags discovers the tag keys and values offered by the filter bar.
package tags

import (
	"context"
	"slices"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/cost-dashboard-tui/internal/models"
)

// DefaultLimit caps concurrent tag requests.
const DefaultLimit = 4

// API is the subset of the cost API used for tag discovery.
type API interface {
	FetchAvailableTags(ctx context.Context, id string) []models.TagDetails
}

// Discover fetches the available tags of every subscription and merges them
// into one list sorted by tag name, with sorted distinct values.
func Discover(ctx context.Context, api API, ids []string, limit int) []models.TagDetails {
	if limit <= 0 {
		limit = DefaultLimit
	}

	perSub := make([][]models.TagDetails, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			perSub[i] = api.FetchAvailableTags(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return Merge(perSub...)
}

// Merge combines tag lists, deduplicating names and values.
func Merge(lists ...[]models.TagDetails) []models.TagDetails {
	byName := make(map[string]map[string]struct{})
	for _, list := range lists {
		for _, t := range list {
			if t.TagName == "" {
				continue
			}
			vals, ok := byName[t.TagName]
			if !ok {
				vals = make(map[string]struct{})
				byName[t.TagName] = vals
			}
			for _, v := range t.Values {
				vals[v] = struct{}{}
			}
		}
	}

	out := make([]models.TagDetails, 0, len(byName))
	for name, vals := range byName {
		values := make([]string, 0, len(vals))
		for v := range vals {
			values = append(values, v)
		}
		sort.Strings(values)
		out = append(out, models.TagDetails{TagName: name, Values: values})
	}
	slices.SortFunc(out, func(a, b models.TagDetails) int {
		switch {
		case a.TagName < b.TagName:
			return -1
		case a.TagName > b.TagName:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Names returns the tag names of tags in order.
func Names(tags []models.TagDetails) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.TagName)
	}
	return names
}
