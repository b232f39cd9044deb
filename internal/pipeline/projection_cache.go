package pipeline

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/theirongolddev/subburn/internal/billing"
	"github.com/theirongolddev/subburn/internal/model"
)

// DefaultProjectionTTL is how long a cached projection stays fresh.
const DefaultProjectionTTL = 10 * time.Minute

// ProjectionCache memoizes ProjectMonths results keyed by a content hash of
// the subscription set. Entries expire after a TTL. There is no push
// invalidation: a changed subscription set hashes to a different key.
// Concurrent misses each compute independently.
type ProjectionCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[uint64]projectionEntry
	hits    int64
	misses  int64
}

type projectionEntry struct {
	months  []model.MonthProjection
	expires time.Time
}

// projectionKey is the hashed identity of one projection request.
type projectionKey struct {
	Month   string
	Horizon int
	Subs    []subscriptionKey // sorted; duplicates are kept
}

type subscriptionKey struct {
	ID          string
	Price       string
	Cycle       string
	NextBilling string
	Status      string
}

// NewProjectionCache returns a cache with the given TTL. now defaults to time.Now.
func NewProjectionCache(ttl time.Duration, now func() time.Time) *ProjectionCache {
	if ttl <= 0 {
		ttl = DefaultProjectionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &ProjectionCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[uint64]projectionEntry),
	}
}

// Project returns the cached projection for subs, computing it on a miss or
// when the cached entry is stale.
func (c *ProjectionCache) Project(subs []model.Subscription, today time.Time, horizon int) ([]model.MonthProjection, error) {
	if horizon <= 0 {
		horizon = DefaultHorizonMonths
	}
	key, err := ProjectionKey(subs, today, horizon)
	if err != nil {
		return nil, err
	}

	now := c.now()
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && now.Before(e.expires) {
		c.hits++
		c.mu.Unlock()
		return cloneMonths(e.months), nil
	}
	c.misses++
	c.mu.Unlock()

	months := ProjectMonths(subs, today, horizon)

	c.mu.Lock()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = projectionEntry{months: cloneMonths(months), expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return months, nil
}

// Stats returns hit and miss counters plus the live entry count.
func (c *ProjectionCache) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.entries)
}

// ProjectionKey hashes the inputs that determine a projection. Subscription
// order does not affect the key.
func ProjectionKey(subs []model.Subscription, today time.Time, horizon int) (uint64, error) {
	key := projectionKey{
		Month:   billing.Today(today).Format("2006-01"),
		Horizon: horizon,
		Subs:    make([]subscriptionKey, 0, len(subs)),
	}
	for _, s := range subs {
		next := ""
		if !s.NextBillingDate.IsZero() {
			next = billing.FormatDate(s.NextBillingDate.UTC())
		}
		key.Subs = append(key.Subs, subscriptionKey{
			ID:          s.ID,
			Price:       s.Price.String(),
			Cycle:       string(s.BillingCycle.Normalize()),
			NextBilling: next,
			Status:      string(s.Status),
		})
	}

	sort.Slice(key.Subs, func(i, j int) bool {
		a, b := key.Subs[i], key.Subs[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if a.NextBilling != b.NextBilling {
			return a.NextBilling < b.NextBilling
		}
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		if a.Cycle != b.Cycle {
			return a.Cycle < b.Cycle
		}
		return a.Status < b.Status
	})

	h, err := hashstructure.Hash(key, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, fmt.Errorf("hashing projection key: %w", err)
	}
	return h, nil
}

func cloneMonths(in []model.MonthProjection) []model.MonthProjection {
	out := make([]model.MonthProjection, len(in))
	copy(out, in)
	return out
}
