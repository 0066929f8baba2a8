package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 进程级计数器/仪表
// 连接数等全局状态只在连接/断开事件里增减，其余地方只读
var (
	// ReadingsIngested 已接收读数总数（按来源区分）
	ReadingsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radwatch_readings_ingested_total",
		Help: "Total number of readings ingested, by origin.",
	}, []string{"origin"})

	// AlertsTriggered 已触发报警总数（按类型和级别区分）
	AlertsTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radwatch_alerts_triggered_total",
		Help: "Total number of alerts recorded, by type and severity.",
	}, []string{"type", "severity"})

	// NotificationsSent 已发送通知总数（按通道区分）
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radwatch_notifications_sent_total",
		Help: "Total number of notifications sent successfully, by channel.",
	}, []string{"channel"})

	// NotificationFailures 通知发送失败总数（按通道区分）
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radwatch_notification_failures_total",
		Help: "Total number of notification send failures, by channel.",
	}, []string{"channel"})

	// LiveObservers 当前连接的实时观察端数量（按房间区分）
	LiveObservers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "radwatch_live_observers",
		Help: "Number of currently connected live observers, by room.",
	}, []string{"room"})
)
