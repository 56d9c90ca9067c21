// Package monitoring keeps daily intake counters in Redis. Counter writes
// are best effort and never fail the caller.
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"brokerage_intake/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Counter names.
const (
	MetricAdmitted     = "admitted"
	MetricFlagged      = "flagged"
	MetricBlocked      = "blocked"
	MetricRateLimited  = "rate_limited"
	MetricRejected     = "rejected"
	MetricAssigned     = "assigned"
	MetricUnassigned   = "unassigned"
	MetricReassigned   = "reassigned"
	MetricTransitioned = "transitioned"
)

// Metrics lists every counter in report order.
var Metrics = []string{
	MetricAdmitted,
	MetricFlagged,
	MetricBlocked,
	MetricRateLimited,
	MetricRejected,
	MetricAssigned,
	MetricUnassigned,
	MetricReassigned,
	MetricTransitioned,
}

const (
	keyPrefix = "intake:metrics"
	dayLayout = "2006-01-02"
	retention = 8 * 24 * time.Hour
)

// Counters increments and reads per-day counters. A nil *Counters is a
// valid no-op recorder.
type Counters struct {
	rdb *redis.Client
	log *logger.Logger
	now func() time.Time
}

func NewCounters(rdb *redis.Client, log *logger.Logger) *Counters {
	if log == nil {
		log = logger.Discard()
	}
	return &Counters{rdb: rdb, log: log, now: time.Now}
}

// Key returns the Redis key of metric for the UTC day containing at.
func Key(metric string, at time.Time) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, metric, at.UTC().Format(dayLayout))
}

// Incr bumps metric for today and refreshes its expiry.
func (c *Counters) Incr(ctx context.Context, metric string) {
	if c == nil || c.rdb == nil {
		return
	}
	key := Key(metric, c.now())
	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, retention)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("monitoring counter update failed", "metric", metric, "error", err)
	}
}

// DailySnapshot is the set of counters for one day.
type DailySnapshot struct {
	Date     string           `json:"date"`
	Counters map[string]int64 `json:"counters"`
}

// Snapshot reads every counter for the UTC day containing day. Missing
// counters read as zero.
func (c *Counters) Snapshot(ctx context.Context, day time.Time) (DailySnapshot, error) {
	snap := DailySnapshot{Date: day.UTC().Format(dayLayout), Counters: make(map[string]int64, len(Metrics))}
	for _, m := range Metrics {
		snap.Counters[m] = 0
	}
	if c == nil || c.rdb == nil {
		return snap, nil
	}

	keys := make([]string, len(Metrics))
	for i, m := range Metrics {
		keys[i] = Key(m, day)
	}

	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return DailySnapshot{}, err
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			snap.Counters[Metrics[i]] = n
		}
	}
	return snap, nil
}
