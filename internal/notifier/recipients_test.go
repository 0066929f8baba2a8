package notifier

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

// fakeSubscriberSource 内存版订阅者注册表
type fakeSubscriberSource struct {
	subscribers []*models.Subscriber
	admins      []*models.Subscriber
	preferences map[string]*models.Preference
	prefErr     error
}

func (f *fakeSubscriberSource) ListActiveSubscribers(ctx context.Context) ([]*models.Subscriber, error) {
	return f.subscribers, nil
}

func (f *fakeSubscriberSource) ListAdmins(ctx context.Context) ([]*models.Subscriber, error) {
	return f.admins, nil
}

func (f *fakeSubscriberSource) GetPreference(ctx context.Context, subscriberID string) (*models.Preference, error) {
	if f.prefErr != nil {
		return nil, f.prefErr
	}
	if p, ok := f.preferences[subscriberID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("preference for subscriber %s: %w", subscriberID, repository.ErrNotFound)
}

func subscriber(id, email, phone string, isAdmin bool) *models.Subscriber {
	return &models.Subscriber{
		SubscriberID: id,
		Name:         id,
		Email:        email,
		Phone:        phone,
		IsAdmin:      isAdmin,
		IsActive:     true,
	}
}

func pref(id string, email, sms bool, severities ...string) *models.Preference {
	return &models.Preference{
		SubscriberID: id,
		EmailEnabled: email,
		SMSEnabled:   sms,
		Severities:   severities,
	}
}

func TestResolveRecipients_SeveritySubscription(t *testing.T) {
	source := &fakeSubscriberSource{
		subscribers: []*models.Subscriber{
			subscriber("sub-1", "one@example.com", "", false),
			subscriber("sub-2", "two@example.com", "", false),
		},
		preferences: map[string]*models.Preference{
			"sub-1": pref("sub-1", true, false, models.SeverityHigh, models.SeverityCritical),
			"sub-2": pref("sub-2", true, false, models.SeverityCritical),
		},
	}
	resolver := NewRecipientResolver(source, zap.NewNop())

	// 只有订阅了 HIGH 的 sub-1 入选
	recipients, err := resolver.ResolveRecipients(context.Background(), models.SeverityHigh, false)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "sub-1", recipients[0].SubscriberID)
	assert.True(t, recipients[0].WantsEmail)
	assert.False(t, recipients[0].WantsSMS)
}

func TestResolveRecipients_AdminIgnoresPreference(t *testing.T) {
	admin := subscriber("admin-1", "admin@example.com", "+8613800000001", true)
	source := &fakeSubscriberSource{
		subscribers: []*models.Subscriber{admin},
		admins:      []*models.Subscriber{admin},
		preferences: map[string]*models.Preference{
			// 偏好全关，管理员仍然两种通道都入选
			"admin-1": pref("admin-1", false, false),
		},
	}
	resolver := NewRecipientResolver(source, zap.NewNop())

	recipients, err := resolver.ResolveRecipients(context.Background(), models.SeverityLow, false)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.True(t, recipients[0].WantsEmail)
	assert.True(t, recipients[0].WantsSMS)
}

func TestResolveRecipients_AdminFallbackOutsideActiveSet(t *testing.T) {
	// 管理员被停用后不在启用集合里，兜底检查仍保证邮件入选
	admin := subscriber("admin-1", "admin@example.com", "", true)
	admin.IsActive = false
	source := &fakeSubscriberSource{
		subscribers: []*models.Subscriber{},
		admins:      []*models.Subscriber{admin},
	}
	resolver := NewRecipientResolver(source, zap.NewNop())

	recipients, err := resolver.ResolveRecipients(context.Background(), models.SeverityHigh, false)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "admin-1", recipients[0].SubscriberID)
	assert.True(t, recipients[0].WantsEmail)
}

func TestResolveRecipients_OverrideAllOnlyNonEmptyEmail(t *testing.T) {
	source := &fakeSubscriberSource{
		subscribers: []*models.Subscriber{
			subscriber("sub-1", "one@example.com", "", false),
			subscriber("sub-2", "", "+8613800000002", false), // 无邮箱，覆盖模式下不入选
			subscriber("sub-3", "three@example.com", "+8613800000003", false),
		},
		preferences: map[string]*models.Preference{
			// sub-1 什么级别都没订阅，覆盖模式照样收邮件
			"sub-1": pref("sub-1", false, false),
			"sub-3": pref("sub-3", true, true, models.SeverityLow),
		},
	}
	resolver := NewRecipientResolver(source, zap.NewNop())

	recipients, err := resolver.ResolveRecipients(context.Background(), models.SeverityMedium, true)
	require.NoError(t, err)
	require.Len(t, recipients, 2)

	assert.Equal(t, "sub-1", recipients[0].SubscriberID)
	assert.True(t, recipients[0].WantsEmail)
	assert.False(t, recipients[0].WantsSMS)

	// 短信仍按偏好
	assert.Equal(t, "sub-3", recipients[1].SubscriberID)
	assert.True(t, recipients[1].WantsEmail)
	assert.True(t, recipients[1].WantsSMS)
}

func TestResolveRecipients_SortedBySubscriberID(t *testing.T) {
	source := &fakeSubscriberSource{
		subscribers: []*models.Subscriber{
			subscriber("sub-9", "nine@example.com", "", false),
			subscriber("sub-1", "one@example.com", "", false),
		},
		preferences: map[string]*models.Preference{
			"sub-9": pref("sub-9", true, false, models.SeverityHigh),
			"sub-1": pref("sub-1", true, false, models.SeverityHigh),
		},
	}
	resolver := NewRecipientResolver(source, zap.NewNop())

	recipients, err := resolver.ResolveRecipients(context.Background(), models.SeverityHigh, false)
	require.NoError(t, err)
	require.Len(t, recipients, 2)
	assert.Equal(t, "sub-1", recipients[0].SubscriberID)
	assert.Equal(t, "sub-9", recipients[1].SubscriberID)
}

func TestResolveRecipients_OverrideAllSurvivesPreferenceFailure(t *testing.T) {
	// 偏好存储故障时覆盖模式照样发邮件（入选只看邮箱），只跳过短信通道
	source := &fakeSubscriberSource{
		subscribers: []*models.Subscriber{
			subscriber("sub-1", "one@example.com", "+8613800000001", false),
		},
		prefErr: errors.New("connection refused"),
	}
	resolver := NewRecipientResolver(source, zap.NewNop())

	recipients, err := resolver.ResolveRecipients(context.Background(), models.SeverityCritical, true)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "sub-1", recipients[0].SubscriberID)
	assert.True(t, recipients[0].WantsEmail)
	assert.False(t, recipients[0].WantsSMS)
}

func TestResolveRecipients_PreferenceFailureSkipsNonAdmin(t *testing.T) {
	// 非覆盖模式下偏好不可用无法判断级别订阅，非管理员跳过
	source := &fakeSubscriberSource{
		subscribers: []*models.Subscriber{
			subscriber("sub-1", "one@example.com", "", false),
		},
		prefErr: errors.New("connection refused"),
	}
	resolver := NewRecipientResolver(source, zap.NewNop())

	recipients, err := resolver.ResolveRecipients(context.Background(), models.SeverityHigh, false)
	require.NoError(t, err)
	assert.Empty(t, recipients)
}

func TestResolveRecipients_NoPreferenceNotSubscribed(t *testing.T) {
	source := &fakeSubscriberSource{
		subscribers: []*models.Subscriber{
			subscriber("sub-1", "one@example.com", "", false),
		},
	}
	resolver := NewRecipientResolver(source, zap.NewNop())

	recipients, err := resolver.ResolveRecipients(context.Background(), models.SeverityHigh, false)
	require.NoError(t, err)
	assert.Empty(t, recipients)
}
