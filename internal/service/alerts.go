package service

import (
	"context"
	"fmt"

	"radwatch/internal/metrics"
	"radwatch/internal/models"
	"radwatch/internal/repository"

	"go.uber.org/zap"
)

// AlertReader 报警记录读取/确认接口
type AlertReader interface {
	AlertStore
	GetAlert(ctx context.Context, alertID string) (*models.Alert, error)
	Acknowledge(ctx context.Context, alertID, acknowledgerID string) error
	ListAlerts(ctx context.Context, filters repository.AlertFilters, limit int) ([]*models.Alert, error)
}

// AlertService 报警服务接口
type AlertService interface {
	CreateManualAlert(ctx context.Context, req ManualAlertRequest) (*models.Alert, error)
	Acknowledge(ctx context.Context, alertID, acknowledgerID string) error
	ListAlerts(ctx context.Context, req ListAlertsRequest) ([]*models.Alert, error)
}

// ManualAlertRequest 人工报警请求
type ManualAlertRequest struct {
	Severity    string
	Block       string
	Plant       string
	Area        string
	Message     string
	SubmitterID string
}

// ListAlertsRequest 报警历史查询请求
type ListAlertsRequest struct {
	Severity  string // 可选
	AlertType string // 可选
	Limit     int    // 调用方指定的返回上限
}

// alertService 实现
type alertService struct {
	alerts AlertReader
	fanout *fanout
	logger *zap.Logger
}

// NewAlertService 创建报警服务
func NewAlertService(
	alerts AlertReader,
	recipients RecipientResolver,
	dispatcher Dispatcher,
	hub Broadcaster,
	logger *zap.Logger,
) AlertService {
	return &alertService{
		alerts: alerts,
		fanout: newFanout(recipients, dispatcher, hub, logger),
		logger: logger,
	}
}

// CreateManualAlert 人工发布报警
// 不经过评估器，读数和阈值数值字段全部为零；分发集合按"覆盖所有人"模式计算
func (s *alertService) CreateManualAlert(ctx context.Context, req ManualAlertRequest) (*models.Alert, error) {
	if !models.ValidSeverity(req.Severity) {
		return nil, fmt.Errorf("%w: invalid severity %q", ErrValidation, req.Severity)
	}
	if req.Block == "" || req.Plant == "" || req.Area == "" {
		return nil, fmt.Errorf("%w: block, plant and area are required", ErrValidation)
	}
	if req.Message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}
	if req.SubmitterID == "" {
		return nil, fmt.Errorf("%w: submitter_id is required", ErrValidation)
	}

	alert := &models.Alert{
		AlertType:   models.AlertTypeManual,
		Severity:    req.Severity,
		Block:       req.Block,
		Plant:       req.Plant,
		Area:        req.Area,
		SubmitterID: req.SubmitterID,
		Message:     req.Message,
	}

	if err := s.alerts.CreateAlert(ctx, alert); err != nil {
		// 落库失败也要把报警送出去：通知和实时广播不依赖持久化结果
		s.logger.Error("Failed to create manual alert",
			zap.String("severity", req.Severity),
			zap.Error(err),
		)
		s.fanout.run(ctx, alert, true)
		return nil, fmt.Errorf("failed to create manual alert: %w", err)
	}
	metrics.AlertsTriggered.WithLabelValues(alert.AlertType, alert.Severity).Inc()

	s.logger.Info("Manual alert created",
		zap.String("alert_id", alert.AlertID),
		zap.String("severity", alert.Severity),
		zap.String("block", alert.Block),
		zap.String("plant", alert.Plant),
		zap.String("area", alert.Area),
	)

	s.fanout.run(ctx, alert, true)

	return alert, nil
}

// Acknowledge 确认报警
// 重复确认返回 repository.ErrAlreadyAcknowledged，首次确认的记录不被覆盖
func (s *alertService) Acknowledge(ctx context.Context, alertID, acknowledgerID string) error {
	if alertID == "" {
		return fmt.Errorf("%w: alert_id is required", ErrValidation)
	}
	if acknowledgerID == "" {
		return fmt.Errorf("%w: acknowledger_id is required", ErrValidation)
	}

	if err := s.alerts.Acknowledge(ctx, alertID, acknowledgerID); err != nil {
		return err
	}

	s.logger.Info("Alert acknowledged",
		zap.String("alert_id", alertID),
		zap.String("acknowledged_by", acknowledgerID),
	)
	return nil
}

// ListAlerts 查询报警历史（按创建时间倒序）
func (s *alertService) ListAlerts(ctx context.Context, req ListAlertsRequest) ([]*models.Alert, error) {
	filters := repository.AlertFilters{}
	if req.Severity != "" {
		if !models.ValidSeverity(req.Severity) {
			return nil, fmt.Errorf("%w: invalid severity %q", ErrValidation, req.Severity)
		}
		filters.Severity = &req.Severity
	}
	if req.AlertType != "" {
		if req.AlertType != models.AlertTypeThreshold && req.AlertType != models.AlertTypeManual {
			return nil, fmt.Errorf("%w: invalid alert type %q", ErrValidation, req.AlertType)
		}
		filters.AlertType = &req.AlertType
	}

	alerts, err := s.alerts.ListAlerts(ctx, filters, req.Limit)
	if err != nil {
		s.logger.Error("Failed to list alerts", zap.Error(err))
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	return alerts, nil
}
