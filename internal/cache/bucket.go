package cache

import (
	"strings"

	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
)

type bucketKind uint8

const (
	kindFiltered bucketKind = iota + 1
	kindDefaultUnfiltered
)

const (
	filteredTag  = "f:"
	defaultLabel = "u:default"
)

// Bucket identifies which result set an entry belongs to. A bucket is either
// Filtered by a normalized filter key or the DefaultUnfiltered bucket used by
// the aggregate charts. The two kinds never compare equal, even when the
// filtered key describes the default filters.
type Bucket struct {
	key  filters.Key
	kind bucketKind
}

// Filtered returns the bucket for results fetched with the filters behind key.
func Filtered(key filters.Key) Bucket {
	return Bucket{kind: kindFiltered, key: key}
}

// DefaultUnfiltered is the MonthToDate/None bucket used for aggregate rollups.
var DefaultUnfiltered = Bucket{kind: kindDefaultUnfiltered}

// IsDefaultUnfiltered reports whether b is the DefaultUnfiltered bucket.
func (b Bucket) IsDefaultUnfiltered() bool {
	return b.kind == kindDefaultUnfiltered
}

// IsZero reports whether b was never assigned.
func (b Bucket) IsZero() bool {
	return b.kind == 0
}

// Key returns the filter key of a Filtered bucket and "" otherwise.
func (b Bucket) Key() filters.Key {
	return b.key
}

// String returns the storage suffix of b.
func (b Bucket) String() string {
	switch b.kind {
	case kindFiltered:
		return filteredTag + string(b.key)
	case kindDefaultUnfiltered:
		return defaultLabel
	default:
		return ""
	}
}

func parseBucket(s string) (Bucket, bool) {
	switch {
	case strings.HasPrefix(s, filteredTag):
		return Filtered(filters.Key(strings.TrimPrefix(s, filteredTag))), true
	case s == defaultLabel:
		return DefaultUnfiltered, true
	default:
		return Bucket{}, false
	}
}
