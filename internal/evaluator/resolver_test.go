package evaluator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"radwatch/internal/models"
	"radwatch/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeFinder 内存版阈值查找，按 (block, plant, area) 精确命中
type fakeFinder struct {
	configs  []*models.ThresholdConfig
	failWith error
}

func (f *fakeFinder) FindActive(ctx context.Context, block, plant, area string) (*models.ThresholdConfig, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, c := range f.configs {
		if c.Block == block && c.Plant == plant && c.Area == area && c.IsActive {
			return c, nil
		}
	}
	return nil, fmt.Errorf("threshold config: %w", repository.ErrNotFound)
}

func (f *fakeFinder) ListActive(ctx context.Context, block, plant string) ([]*models.ThresholdConfig, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []*models.ThresholdConfig
	for _, c := range f.configs {
		if c.Block == block && c.Plant == plant && c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func cfg(block, plant, area string, near, far float64, severity string) *models.ThresholdConfig {
	return &models.ThresholdConfig{
		Block:     block,
		Plant:     plant,
		Area:      area,
		NearLimit: near,
		FarLimit:  far,
		Severity:  severity,
		IsActive:  true,
	}
}

func newTestResolver(finder ThresholdFinder) *Resolver {
	return NewResolver(finder, zap.NewNop())
}

func TestResolve_ExactAreaMatch(t *testing.T) {
	finder := &fakeFinder{configs: []*models.ThresholdConfig{
		cfg("B1", "P1", models.WildcardArea, 100, 100, models.SeverityLow),
		cfg("B1", "P1", "A1", 20, 30, models.SeverityHigh),
	}}
	resolver := newTestResolver(finder)

	got, err := resolver.Resolve(context.Background(), "B1", "P1", "A1", "")
	require.NoError(t, err)

	// 精确匹配优先于通配
	assert.Equal(t, "A1", got.Area)
	assert.Equal(t, models.SeverityHigh, got.Severity)
}

func TestResolve_AreaSpecFallback(t *testing.T) {
	finder := &fakeFinder{configs: []*models.ThresholdConfig{
		cfg("B1", "P1", "TURBINE-HALL", 15, 25, models.SeverityMedium),
	}}
	resolver := newTestResolver(finder)

	// 区域无配置，细分位置作为区域命中第2级
	got, err := resolver.Resolve(context.Background(), "B1", "P1", "A9", "TURBINE-HALL")
	require.NoError(t, err)
	assert.Equal(t, "TURBINE-HALL", got.Area)
}

func TestResolve_WildcardFallback(t *testing.T) {
	finder := &fakeFinder{configs: []*models.ThresholdConfig{
		cfg("B1", "P1", models.WildcardArea, 50, 60, models.SeverityMedium),
	}}
	resolver := newTestResolver(finder)

	got, err := resolver.Resolve(context.Background(), "B1", "P1", "A1", "SPEC-1")
	require.NoError(t, err)
	assert.True(t, got.IsWildcard())
}

func TestResolve_PlantLevelStrictest(t *testing.T) {
	// 无精确/通配命中，兜底取限值之和最小的配置
	finder := &fakeFinder{configs: []*models.ThresholdConfig{
		cfg("B1", "P1", "A1", 10, 15, models.SeverityMedium), // sum 25
		cfg("B1", "P1", "A2", 4, 6, models.SeverityCritical), // sum 10，最严格
		cfg("B1", "P1", "A3", 30, 40, models.SeverityLow),    // sum 70
	}}
	resolver := newTestResolver(finder)

	got, err := resolver.Resolve(context.Background(), "B1", "P1", "A8", "")
	require.NoError(t, err)
	assert.Equal(t, "A2", got.Area)
	assert.Equal(t, float64(10), got.LimitSum())
}

func TestResolve_PlantLevelTieBreak(t *testing.T) {
	// 限值之和并列时，升序排列的第一条胜出
	finder := &fakeFinder{configs: []*models.ThresholdConfig{
		cfg("B1", "P1", "A1", 5, 5, models.SeverityHigh),
		cfg("B1", "P1", "A2", 4, 6, models.SeverityHigh),
	}}
	resolver := newTestResolver(finder)

	got, err := resolver.Resolve(context.Background(), "B1", "P1", "A8", "")
	require.NoError(t, err)
	assert.Equal(t, "A1", got.Area)
}

func TestResolve_NoConfig(t *testing.T) {
	resolver := newTestResolver(&fakeFinder{})

	got, err := resolver.Resolve(context.Background(), "B1", "P1", "A1", "")
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrNoConfig))
}

func TestResolve_EmptyAreaSkipsTierOne(t *testing.T) {
	finder := &fakeFinder{configs: []*models.ThresholdConfig{
		cfg("B1", "P1", models.WildcardArea, 50, 60, models.SeverityMedium),
	}}
	resolver := newTestResolver(finder)

	got, err := resolver.Resolve(context.Background(), "B1", "P1", "", "")
	require.NoError(t, err)
	assert.True(t, got.IsWildcard())
}

func TestResolve_MissingBlockOrPlant(t *testing.T) {
	resolver := newTestResolver(&fakeFinder{})

	_, err := resolver.Resolve(context.Background(), "", "P1", "A1", "")
	assert.Error(t, err)

	_, err = resolver.Resolve(context.Background(), "B1", "", "A1", "")
	assert.Error(t, err)
}

func TestResolve_LookupFailurePropagates(t *testing.T) {
	// 非 ErrNotFound 的查找错误不触发回退，直接上抛
	finder := &fakeFinder{failWith: errors.New("connection refused")}
	resolver := newTestResolver(finder)

	_, err := resolver.Resolve(context.Background(), "B1", "P1", "A1", "")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoConfig))
	assert.Contains(t, err.Error(), "tier 1 lookup failed")
}
