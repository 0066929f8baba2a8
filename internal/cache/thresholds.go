package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"radwatch/internal/config"
	"radwatch/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Source 缓存未命中时的底层查找源（通常是 repository.ThresholdRepository）
type Source interface {
	FindActive(ctx context.Context, block, plant, area string) (*models.ThresholdConfig, error)
	ListActive(ctx context.Context, block, plant string) ([]*models.ThresholdConfig, error)
}

// ThresholdCache 阈值配置 Redis 缓存
// 只缓存命中结果（带 TTL）；未命中和错误直接透传给底层仓库
// 管理端更新配置后调用 Invalidate 清除对应电站的全部缓存键
type ThresholdCache struct {
	config      *config.Config
	redisClient *redis.Client
	source      Source
	logger      *zap.Logger
}

// NewThresholdCache 创建阈值缓存
func NewThresholdCache(
	cfg *config.Config,
	redisClient *redis.Client,
	source Source,
	logger *zap.Logger,
) *ThresholdCache {
	return &ThresholdCache{
		config:      cfg,
		redisClient: redisClient,
		source:      source,
		logger:      logger,
	}
}

// FindActive 精确查找（经缓存）
func (c *ThresholdCache) FindActive(ctx context.Context, block, plant, area string) (*models.ThresholdConfig, error) {
	key := c.configKey(block, plant, area)

	val, err := c.redisClient.Get(ctx, key).Result()
	if err == nil {
		var cfg models.ThresholdConfig
		if err := json.Unmarshal([]byte(val), &cfg); err == nil {
			return &cfg, nil
		}
		// 缓存内容损坏，当作未命中处理
		c.logger.Warn("Corrupt threshold cache entry, falling through",
			zap.String("key", key),
		)
	} else if err != redis.Nil {
		// Redis 故障不阻断查找
		c.logger.Warn("Threshold cache read failed, falling through",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	cfg, err := c.source.FindActive(ctx, block, plant, area)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, cfg)
	return cfg, nil
}

// ListActive 电站级列表查找（经缓存）
func (c *ThresholdCache) ListActive(ctx context.Context, block, plant string) ([]*models.ThresholdConfig, error) {
	key := c.listKey(block, plant)

	val, err := c.redisClient.Get(ctx, key).Result()
	if err == nil {
		var configs []*models.ThresholdConfig
		if err := json.Unmarshal([]byte(val), &configs); err == nil {
			return configs, nil
		}
		c.logger.Warn("Corrupt threshold cache entry, falling through",
			zap.String("key", key),
		)
	} else if err != redis.Nil {
		c.logger.Warn("Threshold cache read failed, falling through",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	configs, err := c.source.ListActive(ctx, block, plant)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, configs)
	return configs, nil
}

// Invalidate 清除 (block, plant) 下的全部缓存键
func (c *ThresholdCache) Invalidate(ctx context.Context, block, plant string) error {
	pattern := fmt.Sprintf("%s%s:%s:*", c.config.Cache.ThresholdKeyPrefix, block, plant)

	var keys []string
	iter := c.redisClient.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	if len(keys) > 0 {
		if err := c.redisClient.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
		c.logger.Debug("Invalidated threshold cache",
			zap.String("block", block),
			zap.String("plant", plant),
			zap.Int("keys", len(keys)),
		)
	}

	return nil
}

func (c *ThresholdCache) store(ctx context.Context, key string, v interface{}) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redisClient.Set(ctx, key, jsonData, c.config.Cache.ThresholdTTL).Err(); err != nil {
		c.logger.Warn("Threshold cache write failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func (c *ThresholdCache) configKey(block, plant, area string) string {
	return fmt.Sprintf("%s%s:%s:%s", c.config.Cache.ThresholdKeyPrefix, block, plant, area)
}

func (c *ThresholdCache) listKey(block, plant string) string {
	return fmt.Sprintf("%s%s:%s:_all", c.config.Cache.ThresholdKeyPrefix, block, plant)
}
