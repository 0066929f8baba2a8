package service

import (
	"context"
	"fmt"

	"radwatch/internal/models"

	"go.uber.org/zap"
)

// PreferenceStore 通知偏好读写接口
type PreferenceStore interface {
	GetPreference(ctx context.Context, subscriberID string) (*models.Preference, error)
	UpsertPreference(ctx context.Context, pref *models.Preference) error
}

// SubscriberService 订阅者偏好服务接口
// 偏好由订阅者本人或管理员修改；订阅者注册信息本身只读
type SubscriberService interface {
	GetPreference(ctx context.Context, subscriberID string) (*models.Preference, error)
	UpsertPreference(ctx context.Context, req UpsertPreferenceRequest) error
}

// UpsertPreferenceRequest 通知偏好写入请求
type UpsertPreferenceRequest struct {
	SubscriberID string
	EmailEnabled bool
	SMSEnabled   bool
	Severities   []string
}

// subscriberService 实现
type subscriberService struct {
	store  PreferenceStore
	logger *zap.Logger
}

// NewSubscriberService 创建订阅者偏好服务
func NewSubscriberService(store PreferenceStore, logger *zap.Logger) SubscriberService {
	return &subscriberService{
		store:  store,
		logger: logger,
	}
}

// GetPreference 查询订阅者通知偏好
func (s *subscriberService) GetPreference(ctx context.Context, subscriberID string) (*models.Preference, error) {
	if subscriberID == "" {
		return nil, fmt.Errorf("%w: subscriber_id is required", ErrValidation)
	}
	return s.store.GetPreference(ctx, subscriberID)
}

// UpsertPreference 写入订阅者通知偏好
func (s *subscriberService) UpsertPreference(ctx context.Context, req UpsertPreferenceRequest) error {
	if req.SubscriberID == "" {
		return fmt.Errorf("%w: subscriber_id is required", ErrValidation)
	}
	for _, severity := range req.Severities {
		if !models.ValidSeverity(severity) {
			return fmt.Errorf("%w: invalid severity %q", ErrValidation, severity)
		}
	}

	pref := &models.Preference{
		SubscriberID: req.SubscriberID,
		EmailEnabled: req.EmailEnabled,
		SMSEnabled:   req.SMSEnabled,
		Severities:   req.Severities,
	}

	if err := s.store.UpsertPreference(ctx, pref); err != nil {
		return fmt.Errorf("failed to upsert preference: %w", err)
	}

	s.logger.Info("Notification preference updated",
		zap.String("subscriber_id", req.SubscriberID),
		zap.Bool("email_enabled", req.EmailEnabled),
		zap.Bool("sms_enabled", req.SMSEnabled),
		zap.Strings("severities", req.Severities),
	)
	return nil
}
