package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"radwatch/internal/evaluator"
	"radwatch/internal/metrics"
	"radwatch/internal/models"
	"radwatch/internal/notifier"

	"go.uber.org/zap"
)

// ErrValidation 输入校验失败，管道未进入
var ErrValidation = errors.New("validation failed")

// ReadingStore 读数写入接口
type ReadingStore interface {
	CreateReading(ctx context.Context, reading *models.Reading) error
}

// AlertStore 报警记录写入接口
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
}

// ThresholdResolver 阈值解析接口
type ThresholdResolver interface {
	Resolve(ctx context.Context, block, plant, area, areaSpec string) (*models.ThresholdConfig, error)
}

// RecipientResolver 分发目标解析接口
type RecipientResolver interface {
	ResolveRecipients(ctx context.Context, severity string, overrideAll bool) ([]models.Recipient, error)
}

// Dispatcher 通知分发接口
type Dispatcher interface {
	Dispatch(ctx context.Context, recipients []models.Recipient, severity, message, location string) notifier.DispatchReport
}

// Broadcaster 实时事件广播接口
type Broadcaster interface {
	Broadcast(room string, event models.AlertEvent)
}

// ReadingService 读数接入服务接口
type ReadingService interface {
	IngestReading(ctx context.Context, req IngestReadingRequest) (*IngestReadingResponse, error)
}

// IngestReadingRequest 读数接入请求
type IngestReadingRequest struct {
	SubmitterID string
	Block       string
	Plant       string
	Area        string
	AreaSpec    string
	NearValue   float64
	FarValue    float64
	MeasuredAt  time.Time
	Origin      string
}

// IngestReadingResponse 读数接入响应
// Accepted 表示原始读数写入是否成功；Violation 表示是否检测到违规
type IngestReadingResponse struct {
	ReadingID string `json:"reading_id"`
	Accepted  bool   `json:"accepted"`
	Violation bool   `json:"violation"`
	Severity  string `json:"severity,omitempty"`
}

// readingService 实现
type readingService struct {
	readings ReadingStore
	alerts   AlertStore
	resolver ThresholdResolver
	fanout   *fanout
	logger   *zap.Logger
}

// NewReadingService 创建读数接入服务
func NewReadingService(
	readings ReadingStore,
	alerts AlertStore,
	resolver ThresholdResolver,
	recipients RecipientResolver,
	dispatcher Dispatcher,
	hub Broadcaster,
	logger *zap.Logger,
) ReadingService {
	return &readingService{
		readings: readings,
		alerts:   alerts,
		resolver: resolver,
		fanout:   newFanout(recipients, dispatcher, hub, logger),
		logger:   logger,
	}
}

// IngestReading 接入一条读数并同步走完评估管道
//
// 管道内顺序：写入读数 → 解析阈值 → 评估 → 记录报警 → 解析分发集合，
// 之后通知分发和实时广播并发执行
//
// 阈值四级查找落空只记日志，读数照常接收；报警记录写入失败会随响应
// 一起返回错误，但已写入的读数不回滚
func (s *readingService) IngestReading(ctx context.Context, req IngestReadingRequest) (*IngestReadingResponse, error) {
	if err := validateReading(req); err != nil {
		return nil, err
	}

	reading := &models.Reading{
		SubmitterID: req.SubmitterID,
		Block:       req.Block,
		Plant:       req.Plant,
		Area:        req.Area,
		AreaSpec:    req.AreaSpec,
		NearValue:   req.NearValue,
		FarValue:    req.FarValue,
		MeasuredAt:  req.MeasuredAt,
		Origin:      req.Origin,
	}

	if err := s.readings.CreateReading(ctx, reading); err != nil {
		return nil, fmt.Errorf("failed to store reading: %w", err)
	}
	metrics.ReadingsIngested.WithLabelValues(reading.Origin).Inc()

	resp := &IngestReadingResponse{
		ReadingID: reading.ReadingID,
		Accepted:  true,
	}

	cfg, err := s.resolver.Resolve(ctx, req.Block, req.Plant, req.Area, req.AreaSpec)
	if err != nil {
		if errors.Is(err, evaluator.ErrNoConfig) {
			// 无可用阈值配置不算失败：无法评估，读数照常接收
			s.logger.Info("No threshold config for location, evaluation skipped",
				zap.String("block", req.Block),
				zap.String("plant", req.Plant),
				zap.String("area", req.Area),
			)
			return resp, nil
		}
		s.logger.Error("Threshold resolution failed, evaluation skipped",
			zap.String("block", req.Block),
			zap.String("plant", req.Plant),
			zap.Error(err),
		)
		return resp, nil
	}

	verdict := evaluator.Evaluate(reading, cfg)
	if !verdict.IsViolation {
		return resp, nil
	}

	resp.Violation = true
	resp.Severity = verdict.Severity

	alert := &models.Alert{
		AlertType:   models.AlertTypeThreshold,
		Severity:    verdict.Severity,
		Block:       reading.Block,
		Plant:       reading.Plant,
		Area:        reading.Area,
		SubmitterID: reading.SubmitterID,
		NearValue:   reading.NearValue,
		FarValue:    reading.FarValue,
		NearLimit:   cfg.NearLimit,
		FarLimit:    cfg.FarLimit,
		Message:     strings.Join(verdict.Reasons, "; "),
	}

	if err := s.alerts.CreateAlert(ctx, alert); err != nil {
		// 违规未被记录属于异常，但读数写入不回滚；
		// 通知和实时广播不依赖报警落库，照常执行
		s.logger.Error("Failed to record violation alert",
			zap.String("reading_id", reading.ReadingID),
			zap.String("severity", verdict.Severity),
			zap.Error(err),
		)
		s.fanout.run(ctx, alert, false)
		return resp, fmt.Errorf("failed to record alert: %w", err)
	}
	metrics.AlertsTriggered.WithLabelValues(alert.AlertType, alert.Severity).Inc()

	s.logger.Info("Threshold violation recorded",
		zap.String("alert_id", alert.AlertID),
		zap.String("severity", alert.Severity),
		zap.String("block", alert.Block),
		zap.String("plant", alert.Plant),
		zap.String("area", alert.Area),
		zap.Strings("reasons", verdict.Reasons),
	)

	s.fanout.run(ctx, alert, false)

	return resp, nil
}

func validateReading(req IngestReadingRequest) error {
	if req.Block == "" || req.Plant == "" || req.Area == "" {
		return fmt.Errorf("%w: block, plant and area are required", ErrValidation)
	}
	if req.SubmitterID == "" {
		return fmt.Errorf("%w: submitter_id is required", ErrValidation)
	}
	return nil
}
