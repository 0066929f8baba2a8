package models

import "time"

// WildcardArea 通配区域值，表示该配置适用于电站下的所有区域
const WildcardArea = "ALL"

// 报警级别（与 thresholds 表的 severity 字段一致）
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// ValidSeverity 检查报警级别是否合法
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ThresholdConfig 阈值配置（对应 threshold_configs 表）
// 以 (block, plant, area) 三元组为唯一标识，area 可以是 WildcardArea
type ThresholdConfig struct {
	Block     string    `json:"block" db:"block"`
	Plant     string    `json:"plant" db:"plant"`
	Area      string    `json:"area" db:"area"`
	NearLimit float64   `json:"near_limit" db:"near_limit"`
	FarLimit  float64   `json:"far_limit" db:"far_limit"`
	Severity  string    `json:"severity" db:"severity"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LimitSum 近位/远位限值之和，用于电站级兜底查找时选择最严格的配置
func (c *ThresholdConfig) LimitSum() float64 {
	return c.NearLimit + c.FarLimit
}

// IsWildcard 是否为通配区域配置
func (c *ThresholdConfig) IsWildcard() bool {
	return c.Area == WildcardArea
}
