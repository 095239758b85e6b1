// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method string, statusCode int, duration time.Duration)
	RecordStatsComputation(duration time.Duration)
	RecordMutation(entity, action string)
	RecordEventPublished(eventType string)
	RecordEventFailed(eventType string)
	RecordOrphansDeleted(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
	statsComputed  prometheus.Counter
	statsLatency   prometheus.Histogram
	mutations      *prometheus.CounterVec
	eventsSent     *prometheus.CounterVec
	eventsFailed   *prometheus.CounterVec
	orphansDeleted prometheus.Counter
}

var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timesheet_http_requests_total",
			Help: "HTTPメソッドとステータスコード別のリクエスト数",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timesheet_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		statsComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timesheet_stats_computations_total",
			Help: "統計集計の実行回数",
		}),
		statsLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timesheet_stats_duration_seconds",
			Help:    "統計集計の処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timesheet_entity_mutations_total",
			Help: "エンティティ種別と操作別の更新数",
		}, []string{"entity", "action"}),
		eventsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timesheet_events_published_total",
			Help: "発行に成功したドメインイベント数",
		}, []string{"type"}),
		eventsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timesheet_events_failed_total",
			Help: "発行に失敗したドメインイベント数",
		}, []string{"type"}),
		orphansDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timesheet_orphan_entries_deleted_total",
			Help: "クリーンアップで削除された孤立工数記録の合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.statsComputed,
		c.statsLatency,
		c.mutations,
		c.eventsSent,
		c.eventsFailed,
		c.orphansDeleted,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
func (c *Collector) RecordHTTPRequest(method string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordStatsComputation は統計集計の実行を記録する。
func (c *Collector) RecordStatsComputation(duration time.Duration) {
	c.statsComputed.Inc()
	c.statsLatency.Observe(duration.Seconds())
}

// RecordMutation はエンティティの作成・更新・削除を記録する。
func (c *Collector) RecordMutation(entity, action string) {
	c.mutations.WithLabelValues(entity, action).Inc()
}

// RecordEventPublished はイベント発行成功を記録する。
func (c *Collector) RecordEventPublished(eventType string) {
	c.eventsSent.WithLabelValues(eventType).Inc()
}

// RecordEventFailed はイベント発行失敗を記録する。
func (c *Collector) RecordEventFailed(eventType string) {
	c.eventsFailed.WithLabelValues(eventType).Inc()
}

// RecordOrphansDeleted は削除された孤立工数記録の件数を加算する。
func (c *Collector) RecordOrphansDeleted(count int64) {
	c.orphansDeleted.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
