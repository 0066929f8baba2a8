package service

import (
	"context"
	"errors"
	"testing"

	"radwatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeThresholdStore struct {
	upserted []*models.ThresholdConfig
	all      []*models.ThresholdConfig
	failWith error
}

func (f *fakeThresholdStore) UpsertConfig(ctx context.Context, cfg *models.ThresholdConfig) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.upserted = append(f.upserted, cfg)
	return nil
}

func (f *fakeThresholdStore) ListAll(ctx context.Context) ([]*models.ThresholdConfig, error) {
	return f.all, nil
}

type fakeInvalidator struct {
	calls [][2]string
	err   error
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, block, plant string) error {
	f.calls = append(f.calls, [2]string{block, plant})
	return f.err
}

func upsertRequest() UpsertThresholdRequest {
	return UpsertThresholdRequest{
		Block:     "B1",
		Plant:     "P1",
		Area:      "A1",
		NearLimit: 20,
		FarLimit:  30,
		Severity:  models.SeverityHigh,
		IsActive:  true,
	}
}

func TestUpsertConfig_InvalidatesCache(t *testing.T) {
	store := &fakeThresholdStore{}
	inv := &fakeInvalidator{}
	svc := NewThresholdService(store, inv, zap.NewNop())

	err := svc.UpsertConfig(context.Background(), upsertRequest())
	require.NoError(t, err)

	require.Len(t, store.upserted, 1)
	require.Len(t, inv.calls, 1)
	assert.Equal(t, [2]string{"B1", "P1"}, inv.calls[0])
}

func TestUpsertConfig_CacheFailureNotFatal(t *testing.T) {
	store := &fakeThresholdStore{}
	inv := &fakeInvalidator{err: errors.New("redis down")}
	svc := NewThresholdService(store, inv, zap.NewNop())

	// 缓存失效失败不影响写入结果
	err := svc.UpsertConfig(context.Background(), upsertRequest())
	assert.NoError(t, err)
	assert.Len(t, store.upserted, 1)
}

func TestUpsertConfig_NilCache(t *testing.T) {
	store := &fakeThresholdStore{}
	svc := NewThresholdService(store, nil, zap.NewNop())

	err := svc.UpsertConfig(context.Background(), upsertRequest())
	assert.NoError(t, err)
}

func TestUpsertConfig_Validation(t *testing.T) {
	svc := NewThresholdService(&fakeThresholdStore{}, nil, zap.NewNop())

	req := upsertRequest()
	req.Area = ""
	assert.True(t, errors.Is(svc.UpsertConfig(context.Background(), req), ErrValidation))

	req = upsertRequest()
	req.Severity = "PANIC"
	assert.True(t, errors.Is(svc.UpsertConfig(context.Background(), req), ErrValidation))

	req = upsertRequest()
	req.NearLimit = -1
	assert.True(t, errors.Is(svc.UpsertConfig(context.Background(), req), ErrValidation))
}

func TestListConfigs(t *testing.T) {
	store := &fakeThresholdStore{all: []*models.ThresholdConfig{
		{Block: "B1", Plant: "P1", Area: "A1"},
		{Block: "B1", Plant: "P1", Area: models.WildcardArea, IsActive: false},
	}}
	svc := NewThresholdService(store, nil, zap.NewNop())

	configs, err := svc.ListConfigs(context.Background())
	require.NoError(t, err)
	assert.Len(t, configs, 2)
}
