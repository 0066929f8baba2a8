package models

import "time"

// 报警类型
const (
	AlertTypeThreshold = "THRESHOLD_EXCEEDED"
	AlertTypeManual    = "MANUAL"
)

// Alert 报警记录（对应 alerts 表）
// 创建后不可变，唯一允许的变更是确认（acknowledged: false → true，只发生一次）
type Alert struct {
	AlertID        string     `json:"alert_id" db:"alert_id"`
	AlertType      string     `json:"alert_type" db:"alert_type"`
	Severity       string     `json:"severity" db:"severity"`
	Block          string     `json:"block" db:"block"`
	Plant          string     `json:"plant" db:"plant"`
	Area           string     `json:"area" db:"area"`
	SubmitterID    string     `json:"submitter_id" db:"submitter_id"`
	NearValue      float64    `json:"near_value" db:"near_value"`
	FarValue       float64    `json:"far_value" db:"far_value"`
	NearLimit      float64    `json:"near_limit" db:"near_limit"`
	FarLimit       float64    `json:"far_limit" db:"far_limit"`
	Message        string     `json:"message" db:"message"`
	Acknowledged   bool       `json:"acknowledged" db:"acknowledged"`
	AcknowledgedBy *string    `json:"acknowledged_by,omitempty" db:"acknowledged_by"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// AlertEvent 推送给实时观察端的事件（websocket 消息体）
type AlertEvent struct {
	EventKind string    `json:"event_kind"` // "threshold_exceeded" 或 "manual_alert"
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Block     string    `json:"block"`
	Plant     string    `json:"plant"`
	Area      string    `json:"area"`
	Timestamp time.Time `json:"timestamp"`
}
