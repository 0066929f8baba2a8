package models

import (
	"math"
	"time"
)

// 读数来源
const (
	OriginManual = "manual" // 人工录入
	OriginSensor = "sensor" // 自动传感器上报（MQTT / 轮询）
)

// Reading 辐射读数（对应 readings 表）
// 位置三元组 (block, plant, area) 必填，AreaSpec 为自由文本的细分位置
type Reading struct {
	ReadingID   string    `json:"reading_id" db:"reading_id"`
	SubmitterID string    `json:"submitter_id" db:"submitter_id"`
	Block       string    `json:"block" db:"block"`
	Plant       string    `json:"plant" db:"plant"`
	Area        string    `json:"area" db:"area"`
	AreaSpec    string    `json:"area_spec,omitempty" db:"area_spec"`
	NearValue   float64   `json:"near_value" db:"near_value"`
	FarValue    float64   `json:"far_value" db:"far_value"`
	MeasuredAt  time.Time `json:"measured_at" db:"measured_at"`
	Origin      string    `json:"origin" db:"origin"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Normalize 读数入库前的规范化
// 非有限值（NaN/Inf）和负值一律归零，保证评估阶段不会因脏数据出错
func (r *Reading) Normalize() {
	r.NearValue = normalizeChannel(r.NearValue)
	r.FarValue = normalizeChannel(r.FarValue)
	if r.Origin == "" {
		r.Origin = OriginManual
	}
}

func normalizeChannel(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Verdict 违规判定结果（每次评估即时计算，不落库）
type Verdict struct {
	IsViolation  bool             `json:"is_violation"`
	Severity     string           `json:"severity"`
	NearExceeded bool             `json:"near_exceeded"`
	FarExceeded  bool             `json:"far_exceeded"`
	Reasons      []string         `json:"reasons"`
	Matched      *ThresholdConfig `json:"matched,omitempty"`
}
