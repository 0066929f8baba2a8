package notifier

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"radwatch/internal/models"
	"radwatch/internal/repository"

	"go.uber.org/zap"
)

// SubscriberSource 订阅者注册表读取接口（由 repository.SubscriberRepository 实现）
type SubscriberSource interface {
	ListActiveSubscribers(ctx context.Context) ([]*models.Subscriber, error)
	ListAdmins(ctx context.Context) ([]*models.Subscriber, error)
	GetPreference(ctx context.Context, subscriberID string) (*models.Preference, error)
}

// RecipientResolver 通知分发目标解析器
// 根据订阅者注册信息和各自的偏好计算一次报警的分发集合
type RecipientResolver struct {
	source SubscriberSource
	logger *zap.Logger
}

// NewRecipientResolver 创建分发目标解析器
func NewRecipientResolver(source SubscriberSource, logger *zap.Logger) *RecipientResolver {
	return &RecipientResolver{
		source: source,
		logger: logger,
	}
}

// ResolveRecipients 计算分发集合，按 subscriber_id 升序返回
//
// overrideAll=true（人工报警）：所有邮箱非空的启用订阅者都收邮件，
// 不看级别订阅；短信仍按各自的偏好决定
//
// overrideAll=false：订阅者入选条件为 管理员 或 偏好订阅了该级别；
// 管理员不受存储偏好限制，两种通道始终视为开启
//
// 管理员订阅者额外做一次兜底检查：即使不在启用订阅者集合里也保证邮件
// 通道入选，防止 is_active 漂移导致报警静默丢失
func (r *RecipientResolver) ResolveRecipients(ctx context.Context, severity string, overrideAll bool) ([]models.Recipient, error) {
	subscribers, err := r.source.ListActiveSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscribers: %w", err)
	}

	recipients := make(map[string]models.Recipient)

	for _, sub := range subscribers {
		rec, ok := r.resolveOne(ctx, sub, severity, overrideAll)
		if ok {
			recipients[sub.SubscriberID] = rec
		}
	}

	// 管理员兜底：不依赖启用订阅者集合
	admins, err := r.source.ListAdmins(ctx)
	if err != nil {
		r.logger.Warn("Failed to load admins for fan-out re-check", zap.Error(err))
	} else {
		for _, admin := range admins {
			if admin.Email == "" {
				continue
			}
			if existing, ok := recipients[admin.SubscriberID]; ok {
				existing.WantsEmail = true
				recipients[admin.SubscriberID] = existing
				continue
			}
			recipients[admin.SubscriberID] = models.Recipient{
				SubscriberID: admin.SubscriberID,
				Email:        admin.Email,
				Phone:        admin.Phone,
				WantsEmail:   true,
				WantsSMS:     admin.Phone != "",
			}
		}
	}

	result := make([]models.Recipient, 0, len(recipients))
	for _, rec := range recipients {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SubscriberID < result[j].SubscriberID
	})

	return result, nil
}

// resolveOne 计算单个订阅者是否入选及其通道
func (r *RecipientResolver) resolveOne(ctx context.Context, sub *models.Subscriber, severity string, overrideAll bool) (models.Recipient, bool) {
	rec := models.Recipient{
		SubscriberID: sub.SubscriberID,
		Email:        sub.Email,
		Phone:        sub.Phone,
	}

	pref, err := r.source.GetPreference(ctx, sub.SubscriberID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		// 偏好读不出来时 pref 为 nil：覆盖模式下邮件不受影响（入选只看邮箱），
		// 非覆盖模式下无法判断级别订阅，非管理员只能跳过
		r.logger.Warn("Failed to load preference",
			zap.String("subscriber_id", sub.SubscriberID),
			zap.Error(err),
		)
		pref = nil
		if !overrideAll && !sub.IsAdmin {
			return rec, false
		}
	}

	if overrideAll {
		// 覆盖模式只作用于邮件通道，且只有邮箱非空的订阅者入选；短信仍按偏好
		if sub.Email == "" {
			return rec, false
		}
		rec.WantsEmail = true
		rec.WantsSMS = sub.Phone != "" && (sub.IsAdmin || (pref != nil && pref.SMSEnabled))
		return rec, true
	}

	subscribed := sub.IsAdmin || (pref != nil && pref.WantsSeverity(severity))
	if !subscribed {
		return rec, false
	}

	rec.WantsEmail = sub.Email != "" && (sub.IsAdmin || (pref != nil && pref.EmailEnabled))
	rec.WantsSMS = sub.Phone != "" && (sub.IsAdmin || (pref != nil && pref.SMSEnabled))

	return rec, rec.WantsEmail || rec.WantsSMS
}
