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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordAuthResult(operation string, success bool)
	RecordUpload(kind string, success bool)
	RecordEmailSent(success bool)
	RecordStoriesCleaned(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	authResults    *prometheus.CounterVec
	uploads        *prometheus.CounterVec
	emailsSent     *prometheus.CounterVec
	storiesCleaned prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feastverse_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feastverse_request_latency_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		authResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feastverse_auth_results_total",
			Help: "認証操作の結果数（操作・成否別）",
		}, []string{"operation", "result"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feastverse_uploads_total",
			Help: "メディアアップロードの結果数（種別・成否別）",
		}, []string{"kind", "result"}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feastverse_emails_sent_total",
			Help: "通知メール送信の結果数（成否別）",
		}, []string{"result"}),
		storiesCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feastverse_stories_cleaned_total",
			Help: "クリーンアップジョブが削除した失効ストーリーの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.authResults,
		c.uploads,
		c.emailsSent,
		c.storiesCleaned,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はAPIリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordAuthResult は認証操作（signup / login / verify）の結果を記録する。
func (c *Collector) RecordAuthResult(operation string, success bool) {
	c.authResults.WithLabelValues(operation, resultLabel(success)).Inc()
}

// RecordUpload はメディアアップロード（avatar / reel / story）の結果を記録する。
func (c *Collector) RecordUpload(kind string, success bool) {
	c.uploads.WithLabelValues(kind, resultLabel(success)).Inc()
}

// RecordEmailSent は通知メール送信の結果を記録する。
func (c *Collector) RecordEmailSent(success bool) {
	c.emailsSent.WithLabelValues(resultLabel(success)).Inc()
}

// RecordStoriesCleaned は削除された失効ストーリー数を記録する。
func (c *Collector) RecordStoriesCleaned(count int) {
	c.storiesCleaned.Add(float64(count))
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
