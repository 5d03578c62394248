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
// バス、同期、ウィンドウ制御、永続化、取り込み、HTTP層から利用する。
type MetricsCollector interface {
	RecordBusDelivery(channel string)
	RecordBusDrop(channel, reason string)
	RecordSyncBroadcast(reason string)
	RecordDisplayOpen(result string)
	RecordPersist(result string, duration time.Duration)
	RecordAnnouncementFetch(result string, duration time.Duration)
	RecordRemoteCommand(command, result string)
	RecordHTTPStatus(statusCode int)
	RecordConnectionOpened(role string)
	RecordConnectionClosed(role string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	busDeliveries   *prometheus.CounterVec
	busDrops        *prometheus.CounterVec
	syncBroadcasts  *prometheus.CounterVec
	displayOpens    *prometheus.CounterVec
	persistTotal    *prometheus.CounterVec
	persistLatency  prometheus.Histogram
	feedFetches     *prometheus.CounterVec
	feedLatency     prometheus.Histogram
	remoteCommands  *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	openConnections *prometheus.GaugeVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		busDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stagecast_bus_deliveries_total",
			Help: "バスで配送されたメッセージ数",
		}, []string{"channel"}),
		busDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stagecast_bus_drops_total",
			Help: "バスで破棄されたメッセージ数（理由別）",
		}, []string{"channel", "reason"}),
		syncBroadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stagecast_sync_broadcasts_total",
			Help: "コンソールが配信したスナップショット数（契機別）",
		}, []string{"reason"}),
		displayOpens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stagecast_display_open_total",
			Help: "プロジェクターウィンドウを開く操作の結果別件数",
		}, []string{"result"}),
		persistTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stagecast_persist_total",
			Help: "リモート保存の結果別件数",
		}, []string{"result"}),
		persistLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stagecast_persist_latency_seconds",
			Help:    "リモート保存のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		feedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stagecast_announcement_fetch_total",
			Help: "お知らせフィード取得の結果別件数",
		}, []string{"result"}),
		feedLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stagecast_announcement_fetch_latency_seconds",
			Help:    "お知らせフィード取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		remoteCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stagecast_remote_commands_total",
			Help: "リモコンから受けたコマンド数",
		}, []string{"command", "result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stagecast_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		openConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stagecast_ws_connections",
			Help: "接続中のWebSocketクライアント数（役割別）",
		}, []string{"role"}),
	}

	reg.MustRegister(
		c.busDeliveries,
		c.busDrops,
		c.syncBroadcasts,
		c.displayOpens,
		c.persistTotal,
		c.persistLatency,
		c.feedFetches,
		c.feedLatency,
		c.remoteCommands,
		c.httpStatus,
		c.openConnections,
	)

	return c
}

// RecordBusDelivery はバスでの配送1件を記録する。
func (c *Collector) RecordBusDelivery(channel string) {
	c.busDeliveries.WithLabelValues(channel).Inc()
}

// RecordBusDrop はバスでの破棄1件を記録する。
func (c *Collector) RecordBusDrop(channel, reason string) {
	c.busDrops.WithLabelValues(channel, reason).Inc()
}

// RecordSyncBroadcast はスナップショット配信を記録する。
func (c *Collector) RecordSyncBroadcast(reason string) {
	c.syncBroadcasts.WithLabelValues(reason).Inc()
}

// RecordDisplayOpen はプロジェクターウィンドウを開く操作の結果を記録する。
func (c *Collector) RecordDisplayOpen(result string) {
	c.displayOpens.WithLabelValues(result).Inc()
}

// RecordPersist はリモート保存の結果とレイテンシを記録する。
func (c *Collector) RecordPersist(result string, duration time.Duration) {
	c.persistTotal.WithLabelValues(result).Inc()
	c.persistLatency.Observe(duration.Seconds())
}

// RecordAnnouncementFetch はお知らせフィード取得の結果とレイテンシを記録する。
func (c *Collector) RecordAnnouncementFetch(result string, duration time.Duration) {
	c.feedFetches.WithLabelValues(result).Inc()
	c.feedLatency.Observe(duration.Seconds())
}

// RecordRemoteCommand はリモコンのコマンドを記録する。
func (c *Collector) RecordRemoteCommand(command, result string) {
	c.remoteCommands.WithLabelValues(command, result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordConnectionOpened はWebSocket接続の開始を記録する。
func (c *Collector) RecordConnectionOpened(role string) {
	c.openConnections.WithLabelValues(role).Inc()
}

// RecordConnectionClosed はWebSocket接続の終了を記録する。
func (c *Collector) RecordConnectionClosed(role string) {
	c.openConnections.WithLabelValues(role).Dec()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
