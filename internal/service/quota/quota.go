// Package quota enforces the daily external API budget. The counter is
// checked and charged before any network call is issued, so a rejected
// reservation never costs quota or bandwidth.
package quota

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fieldshow/bandcatalog/internal/metrics"
)

// ErrQuotaExceeded is returned when a reservation would push usage past the
// daily limit. Callers should retry after the daily reset, not sooner.
var ErrQuotaExceeded = errors.New("daily API quota exceeded")

// Counter is a process-wide daily quota counter, safe for concurrent use.
// Usage resets at the fixed daily boundary (midnight in the counter's
// location, matching the upstream quota window).
type Counter struct {
	mu       sync.Mutex
	limit    int
	used     int
	window   time.Time // start of the current daily window
	now      func() time.Time
	location *time.Location
}

// NewCounter creates a quota counter with the given daily limit. The
// upstream platform resets quota at midnight Pacific time; fall back to UTC
// if the zone database is unavailable.
func NewCounter(dailyLimit int) *Counter {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		loc = time.UTC
	}
	return newCounter(dailyLimit, loc, time.Now)
}

func newCounter(dailyLimit int, loc *time.Location, now func() time.Time) *Counter {
	if dailyLimit <= 0 {
		dailyLimit = 10000
	}
	c := &Counter{
		limit:    dailyLimit,
		now:      now,
		location: loc,
	}
	c.window = c.windowStart(now())
	metrics.QuotaLimit.Set(float64(dailyLimit))
	metrics.QuotaUsed.Set(0)
	return c
}

// Reserve charges cost units against today's budget. It fails with
// ErrQuotaExceeded when the projected total would exceed the limit, leaving
// usage unchanged.
func (c *Counter) Reserve(cost int) error {
	if cost < 0 {
		return fmt.Errorf("negative quota cost %d", cost)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollover()

	if c.used+cost > c.limit {
		metrics.QuotaRejections.Inc()
		return fmt.Errorf("%w: used %d + cost %d > limit %d", ErrQuotaExceeded, c.used, cost, c.limit)
	}

	c.used += cost
	metrics.QuotaUsed.Set(float64(c.used))
	return nil
}

// Snapshot reports current usage for the admin API.
func (c *Counter) Snapshot() (used, limit int, resetsAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollover()
	return c.used, c.limit, c.window.AddDate(0, 0, 1)
}

// rollover resets usage when the daily boundary has passed. Callers hold mu.
func (c *Counter) rollover() {
	start := c.windowStart(c.now())
	if start.After(c.window) {
		c.window = start
		c.used = 0
		metrics.QuotaUsed.Set(0)
	}
}

func (c *Counter) windowStart(t time.Time) time.Time {
	t = t.In(c.location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.location)
}
