package service

import (
	"context"
	"fmt"

	"radwatch/internal/models"

	"go.uber.org/zap"
)

// ThresholdAdminStore 阈值配置管理接口
type ThresholdAdminStore interface {
	UpsertConfig(ctx context.Context, cfg *models.ThresholdConfig) error
	ListAll(ctx context.Context) ([]*models.ThresholdConfig, error)
}

// CacheInvalidator 阈值缓存失效接口（未接缓存时可为 nil）
type CacheInvalidator interface {
	Invalidate(ctx context.Context, block, plant string) error
}

// ThresholdService 阈值配置管理服务接口
type ThresholdService interface {
	UpsertConfig(ctx context.Context, req UpsertThresholdRequest) error
	ListConfigs(ctx context.Context) ([]*models.ThresholdConfig, error)
}

// UpsertThresholdRequest 阈值配置写入请求
type UpsertThresholdRequest struct {
	Block     string
	Plant     string
	Area      string
	NearLimit float64
	FarLimit  float64
	Severity  string
	IsActive  bool
}

// thresholdService 实现
type thresholdService struct {
	store  ThresholdAdminStore
	cache  CacheInvalidator
	logger *zap.Logger
}

// NewThresholdService 创建阈值配置管理服务
func NewThresholdService(store ThresholdAdminStore, cache CacheInvalidator, logger *zap.Logger) ThresholdService {
	return &thresholdService{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// UpsertConfig 按标识写入阈值配置，成功后使对应电站的缓存失效
// 配置不支持删除，停用走 is_active 开关
func (s *thresholdService) UpsertConfig(ctx context.Context, req UpsertThresholdRequest) error {
	if req.Block == "" || req.Plant == "" || req.Area == "" {
		return fmt.Errorf("%w: block, plant and area are required", ErrValidation)
	}
	if !models.ValidSeverity(req.Severity) {
		return fmt.Errorf("%w: invalid severity %q", ErrValidation, req.Severity)
	}
	if req.NearLimit < 0 || req.FarLimit < 0 {
		return fmt.Errorf("%w: limits must be non-negative", ErrValidation)
	}

	cfg := &models.ThresholdConfig{
		Block:     req.Block,
		Plant:     req.Plant,
		Area:      req.Area,
		NearLimit: req.NearLimit,
		FarLimit:  req.FarLimit,
		Severity:  req.Severity,
		IsActive:  req.IsActive,
	}

	if err := s.store.UpsertConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to upsert threshold config: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, req.Block, req.Plant); err != nil {
			// 缓存失效失败只影响 TTL 窗口内的读取，不算写入失败
			s.logger.Warn("Failed to invalidate threshold cache",
				zap.String("block", req.Block),
				zap.String("plant", req.Plant),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Threshold config upserted",
		zap.String("block", req.Block),
		zap.String("plant", req.Plant),
		zap.String("area", req.Area),
		zap.String("severity", req.Severity),
		zap.Bool("is_active", req.IsActive),
	)

	return nil
}

// ListConfigs 查询全部阈值配置（含停用的）
func (s *thresholdService) ListConfigs(ctx context.Context) ([]*models.ThresholdConfig, error) {
	configs, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list threshold configs: %w", err)
	}
	return configs, nil
}
