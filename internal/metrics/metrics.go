// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AdeChrysler/szen-bi/internal/event"
)

// 実行結果のラベル値。
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやHTTP層から利用する。
type MetricsCollector interface {
	RecordRun(outcome string, duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
// event.Sinkとして調整イベントも集計する。
type Collector struct {
	events      *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	lastSuccess prometheus.Gauge
	httpStatus  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "szenbi_reconcile_events_total",
			Help: "対象と種別ごとの調整イベント数",
		}, []string{"entity", "kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "szenbi_reconcile_runs_total",
			Help: "結果ごとの調整処理の実行回数",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "szenbi_reconcile_duration_seconds",
			Help:    "調整処理1回の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "szenbi_reconcile_last_success_timestamp_seconds",
			Help: "最後に調整処理が成功した時刻（UNIX秒）",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "szenbi_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.events,
		c.runs,
		c.runDuration,
		c.lastSuccess,
		c.httpStatus,
	)

	return c
}

// Emit は調整イベントを集計する。ステップ開始イベントは数えない。
func (c *Collector) Emit(_ context.Context, e event.Event) {
	if e.Kind == event.KindStepStarted {
		return
	}
	entity := string(e.Entity)
	if entity == "" {
		entity = "none"
	}
	c.events.WithLabelValues(entity, string(e.Kind)).Inc()
}

// RecordRun は調整処理1回の結果と所要時間を記録する。
func (c *Collector) RecordRun(outcome string, duration time.Duration) {
	c.runs.WithLabelValues(outcome).Inc()
	c.runDuration.Observe(duration.Seconds())
	if outcome == OutcomeSuccess {
		c.lastSuccess.SetToCurrentTime()
	}
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// WriteTextfile はメトリクスをnode_exporterのtextfileコレクタ形式でpathに書き出す。
// 単発実行のようにスクレイプされないプロセスから結果を公開するために使う。
func WriteTextfile(path string, gatherer prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ event.Sink       = (*Collector)(nil)
)
