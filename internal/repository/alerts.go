package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"radwatch/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertRepository 报警记录仓库
// 记录只追加；唯一的变更是确认操作，通过 CAS 保证只发生一次
type AlertRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertRepository 创建报警记录仓库
func NewAlertRepository(db *sql.DB, logger *zap.Logger) *AlertRepository {
	return &AlertRepository{
		db:     db,
		logger: logger,
	}
}

// AlertFilters 报警查询过滤条件
type AlertFilters struct {
	Severity  *string // 报警级别
	AlertType *string // 报警类型（THRESHOLD_EXCEEDED / MANUAL）
}

const alertColumns = `
	alert_id,
	alert_type,
	severity,
	block,
	plant,
	area,
	submitter_id,
	near_value,
	far_value,
	near_limit,
	far_limit,
	message,
	acknowledged,
	acknowledged_by,
	acknowledged_at,
	created_at
`

// CreateAlert 写入一条报警记录（初始状态始终为未确认）
func (r *AlertRepository) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	if alert.AlertType == "" {
		return fmt.Errorf("alert_type is required")
	}
	if !models.ValidSeverity(alert.Severity) {
		return fmt.Errorf("invalid severity: %s", alert.Severity)
	}

	if alert.AlertID == "" {
		alert.AlertID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}
	alert.Acknowledged = false
	alert.AcknowledgedBy = nil
	alert.AcknowledgedAt = nil

	query := `
		INSERT INTO alerts (
			alert_id,
			alert_type,
			severity,
			block,
			plant,
			area,
			submitter_id,
			near_value,
			far_value,
			near_limit,
			far_limit,
			message,
			acknowledged,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, FALSE, $13
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		alert.AlertID,
		alert.AlertType,
		alert.Severity,
		alert.Block,
		alert.Plant,
		alert.Area,
		alert.SubmitterID,
		alert.NearValue,
		alert.FarValue,
		alert.NearLimit,
		alert.FarLimit,
		alert.Message,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// GetAlert 按 alert_id 获取单条报警记录
func (r *AlertRepository) GetAlert(ctx context.Context, alertID string) (*models.Alert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM alerts
		WHERE alert_id = $1
	`, alertColumns)

	alert, err := r.scanAlert(r.db.QueryRowContext(ctx, query, alertID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	return alert, nil
}

// Acknowledge 确认报警（CAS：只允许未确认 → 已确认一次）
// 返回 ErrNotFound 表示记录不存在，ErrAlreadyAcknowledged 表示已被确认过
func (r *AlertRepository) Acknowledge(ctx context.Context, alertID, acknowledgerID string) error {
	if alertID == "" {
		return fmt.Errorf("alert_id is required")
	}
	if acknowledgerID == "" {
		return fmt.Errorf("acknowledger_id is required")
	}

	query := `
		UPDATE alerts
		SET acknowledged = TRUE,
		    acknowledged_by = $2,
		    acknowledged_at = CURRENT_TIMESTAMP
		WHERE alert_id = $1
		  AND acknowledged = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, alertID, acknowledgerID)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// CAS 未命中：再查一次区分“不存在”和“已确认”
	var acknowledged bool
	err = r.db.QueryRowContext(ctx,
		`SELECT acknowledged FROM alerts WHERE alert_id = $1`,
		alertID,
	).Scan(&acknowledged)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
		}
		return fmt.Errorf("failed to check alert state: %w", err)
	}
	if acknowledged {
		return fmt.Errorf("alert %s: %w", alertID, ErrAlreadyAcknowledged)
	}

	return fmt.Errorf("failed to acknowledge alert %s", alertID)
}

// ListAlerts 按过滤条件查询报警记录，按创建时间倒序，limit 限制返回条数
func (r *AlertRepository) ListAlerts(ctx context.Context, filters AlertFilters, limit int) ([]*models.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	where := []string{"1=1"}
	args := []interface{}{}
	argN := 1

	if filters.Severity != nil {
		where = append(where, fmt.Sprintf("severity = $%d", argN))
		args = append(args, *filters.Severity)
		argN++
	}
	if filters.AlertType != nil {
		where = append(where, fmt.Sprintf("alert_type = $%d", argN))
		args = append(args, *filters.AlertType)
		argN++
	}

	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT %s
		FROM alerts
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d
	`, alertColumns, strings.Join(where, " AND "), argN)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := r.scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}

func (r *AlertRepository) scanAlert(row rowScanner) (*models.Alert, error) {
	var alert models.Alert
	var acknowledgedBy sql.NullString
	var acknowledgedAt sql.NullTime

	err := row.Scan(
		&alert.AlertID,
		&alert.AlertType,
		&alert.Severity,
		&alert.Block,
		&alert.Plant,
		&alert.Area,
		&alert.SubmitterID,
		&alert.NearValue,
		&alert.FarValue,
		&alert.NearLimit,
		&alert.FarLimit,
		&alert.Message,
		&alert.Acknowledged,
		&acknowledgedBy,
		&acknowledgedAt,
		&alert.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if acknowledgedBy.Valid {
		alert.AcknowledgedBy = &acknowledgedBy.String
	}
	if acknowledgedAt.Valid {
		alert.AcknowledgedAt = &acknowledgedAt.Time
	}

	return &alert, nil
}
