package evaluator

import (
	"context"
	"errors"
	"fmt"

	"radwatch/internal/models"
	"radwatch/internal/repository"

	"go.uber.org/zap"
)

// ErrNoConfig 四级查找全部落空，该位置没有可用的阈值配置
var ErrNoConfig = errors.New("no active threshold config")

// ThresholdFinder 阈值查找接口
// 由 repository.ThresholdRepository 实现，也可以用带 Redis 缓存的包装实现
type ThresholdFinder interface {
	FindActive(ctx context.Context, block, plant, area string) (*models.ThresholdConfig, error)
	ListActive(ctx context.Context, block, plant string) ([]*models.ThresholdConfig, error)
}

// Resolver 阈值解析器
// 对给定位置执行四级回退查找，产出唯一一条适用配置：
//  1. (block, plant, area) 精确匹配
//  2. areaSpec 非空时，按 (block, plant, areaSpec) 匹配
//  3. (block, plant, ALL) 通配匹配
//  4. 电站级兜底：该 (block, plant) 下限值之和最小（最严格）的启用配置
type Resolver struct {
	finder ThresholdFinder
	logger *zap.Logger
}

// NewResolver 创建阈值解析器
func NewResolver(finder ThresholdFinder, logger *zap.Logger) *Resolver {
	return &Resolver{
		finder: finder,
		logger: logger,
	}
}

// Resolve 解析适用的阈值配置，第一个命中的层级胜出
// 四级全部落空返回 ErrNoConfig，调用方应视为"无法评估"而不是失败
func (r *Resolver) Resolve(ctx context.Context, block, plant, area, areaSpec string) (*models.ThresholdConfig, error) {
	if block == "" || plant == "" {
		return nil, fmt.Errorf("block and plant are required")
	}

	// 第1级：区域精确匹配
	if area != "" {
		cfg, err := r.finder.FindActive(ctx, block, plant, area)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("tier 1 lookup failed: %w", err)
		}
	}

	// 第2级：细分位置作为区域匹配
	if areaSpec != "" {
		cfg, err := r.finder.FindActive(ctx, block, plant, areaSpec)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("tier 2 lookup failed: %w", err)
		}
	}

	// 第3级：通配区域匹配
	cfg, err := r.finder.FindActive(ctx, block, plant, models.WildcardArea)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("tier 3 lookup failed: %w", err)
	}

	// 第4级：电站级兜底，取限值之和最小的配置
	// ListActive 按标识升序返回，同分并列时第一条胜出，保证确定性
	configs, err := r.finder.ListActive(ctx, block, plant)
	if err != nil {
		return nil, fmt.Errorf("tier 4 lookup failed: %w", err)
	}
	var strictest *models.ThresholdConfig
	for _, c := range configs {
		if strictest == nil || c.LimitSum() < strictest.LimitSum() {
			strictest = c
		}
	}
	if strictest != nil {
		r.logger.Debug("Threshold resolved via plant-level fallback",
			zap.String("block", block),
			zap.String("plant", plant),
			zap.String("matched_area", strictest.Area),
		)
		return strictest, nil
	}

	return nil, fmt.Errorf("threshold for (%s, %s, %s): %w", block, plant, area, ErrNoConfig)
}
