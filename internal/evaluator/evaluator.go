package evaluator

import (
	"fmt"
	"math"
	"strconv"

	"radwatch/internal/models"
)

// Evaluate 用已解析的阈值配置判定一条读数是否违规
// 比较语义为严格大于：读数恰好等于限值视为合规
// 非有限的通道值在比较前归零，脏数据永远不会让评估报错
func Evaluate(reading *models.Reading, cfg *models.ThresholdConfig) models.Verdict {
	near := coerce(reading.NearValue)
	far := coerce(reading.FarValue)

	verdict := models.Verdict{
		Severity: models.SeverityLow,
		Matched:  cfg,
	}

	verdict.NearExceeded = near > cfg.NearLimit
	verdict.FarExceeded = far > cfg.FarLimit
	verdict.IsViolation = verdict.NearExceeded || verdict.FarExceeded

	if verdict.NearExceeded {
		verdict.Reasons = append(verdict.Reasons,
			fmt.Sprintf("near reading %s exceeds limit %s", formatValue(near), formatValue(cfg.NearLimit)))
	}
	if verdict.FarExceeded {
		verdict.Reasons = append(verdict.Reasons,
			fmt.Sprintf("far reading %s exceeds limit %s", formatValue(far), formatValue(cfg.FarLimit)))
	}

	if verdict.IsViolation {
		verdict.Severity = cfg.Severity
	}

	return verdict
}

func coerce(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
