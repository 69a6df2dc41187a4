package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agora_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// EngagementActions counts vote and like outcomes by target kind.
	EngagementActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_engagement_actions_total",
		Help: "Total vote and like outcomes by target type and action",
	}, []string{"target", "action"})

	// ModerationActions counts admin moderation decisions.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_moderation_actions_total",
		Help: "Total moderation actions by content type and action",
	}, []string{"content_type", "action"})

	// EventsPublished counts domain events handed to Redis, by outcome.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_events_published_total",
		Help: "Total domain events published by type and result",
	}, []string{"event_type", "result"})

	// AuthAttempts counts register, login and refresh outcomes.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_auth_attempts_total",
		Help: "Total authentication attempts by kind and result",
	}, []string{"kind", "result"})
)

// ResultLabel maps an error to the "ok"/"error" label used by the counters above.
func ResultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

const queryStartKey = "agora:query_start"

// RegisterQueryMetrics hooks GORM callbacks so every statement feeds
// DatabaseQueryLatency.
func RegisterQueryMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "raw"
			}
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	hooks := []struct {
		op  string
		err func() error
	}{
		{"create", func() error {
			if err := cb.Create().Before("gorm:create").Register("agora:metrics_before_create", before); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register("agora:metrics_after_create", after("create"))
		}},
		{"query", func() error {
			if err := cb.Query().Before("gorm:query").Register("agora:metrics_before_query", before); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register("agora:metrics_after_query", after("query"))
		}},
		{"update", func() error {
			if err := cb.Update().Before("gorm:update").Register("agora:metrics_before_update", before); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register("agora:metrics_after_update", after("update"))
		}},
		{"delete", func() error {
			if err := cb.Delete().Before("gorm:delete").Register("agora:metrics_before_delete", before); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register("agora:metrics_after_delete", after("delete"))
		}},
		{"row", func() error {
			if err := cb.Row().Before("gorm:row").Register("agora:metrics_before_row", before); err != nil {
				return err
			}
			return cb.Row().After("gorm:row").Register("agora:metrics_after_row", after("row"))
		}},
		{"raw", func() error {
			if err := cb.Raw().Before("gorm:raw").Register("agora:metrics_before_raw", before); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register("agora:metrics_after_raw", after("raw"))
		}},
	}
	for _, h := range hooks {
		if err := h.err(); err != nil {
			return err
		}
	}
	return nil
}
