package repository

import (
	"context"
	"database/sql"
	"fmt"

	"radwatch/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// SubscriberRepository 订阅者注册表和通知偏好仓库
// 订阅者注册信息只读；偏好允许订阅者或管理员修改
type SubscriberRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSubscriberRepository 创建订阅者仓库
func NewSubscriberRepository(db *sql.DB, logger *zap.Logger) *SubscriberRepository {
	return &SubscriberRepository{
		db:     db,
		logger: logger,
	}
}

// ListActiveSubscribers 查询所有启用中的订阅者（按 subscriber_id 升序）
func (r *SubscriberRepository) ListActiveSubscribers(ctx context.Context) ([]*models.Subscriber, error) {
	query := `
		SELECT subscriber_id, name, email, phone, is_admin, is_active
		FROM subscribers
		WHERE is_active = TRUE
		ORDER BY subscriber_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []*models.Subscriber
	for rows.Next() {
		var s models.Subscriber
		if err := rows.Scan(&s.SubscriberID, &s.Name, &s.Email, &s.Phone, &s.IsAdmin, &s.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		subscribers = append(subscribers, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscribers: %w", err)
	}

	return subscribers, nil
}

// ListAdmins 查询管理员订阅者（不限 is_active）
// 管理员即使被误停用也必须收到邮件通知，防止报警静默丢失
func (r *SubscriberRepository) ListAdmins(ctx context.Context) ([]*models.Subscriber, error) {
	query := `
		SELECT subscriber_id, name, email, phone, is_admin, is_active
		FROM subscribers
		WHERE is_admin = TRUE
		ORDER BY subscriber_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer rows.Close()

	var admins []*models.Subscriber
	for rows.Next() {
		var s models.Subscriber
		if err := rows.Scan(&s.SubscriberID, &s.Name, &s.Email, &s.Phone, &s.IsAdmin, &s.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		admins = append(admins, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate admins: %w", err)
	}

	return admins, nil
}

// GetPreference 获取订阅者通知偏好
func (r *SubscriberRepository) GetPreference(ctx context.Context, subscriberID string) (*models.Preference, error) {
	if subscriberID == "" {
		return nil, fmt.Errorf("subscriber_id is required")
	}

	query := `
		SELECT subscriber_id, email_enabled, sms_enabled, severities
		FROM notification_preferences
		WHERE subscriber_id = $1
	`

	var p models.Preference
	err := r.db.QueryRowContext(ctx, query, subscriberID).Scan(
		&p.SubscriberID,
		&p.EmailEnabled,
		&p.SMSEnabled,
		pq.Array(&p.Severities),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("preference for subscriber %s: %w", subscriberID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get preference: %w", err)
	}

	return &p, nil
}

// UpsertPreference 写入订阅者通知偏好
func (r *SubscriberRepository) UpsertPreference(ctx context.Context, pref *models.Preference) error {
	if pref == nil {
		return fmt.Errorf("preference is required")
	}
	if pref.SubscriberID == "" {
		return fmt.Errorf("subscriber_id is required")
	}
	for _, s := range pref.Severities {
		if !models.ValidSeverity(s) {
			return fmt.Errorf("invalid severity: %s", s)
		}
	}

	query := `
		INSERT INTO notification_preferences (
			subscriber_id, email_enabled, sms_enabled, severities
		) VALUES (
			$1, $2, $3, $4
		)
		ON CONFLICT (subscriber_id)
		DO UPDATE SET email_enabled = EXCLUDED.email_enabled,
		              sms_enabled = EXCLUDED.sms_enabled,
		              severities = EXCLUDED.severities
	`

	_, err := r.db.ExecContext(ctx, query,
		pref.SubscriberID,
		pref.EmailEnabled,
		pref.SMSEnabled,
		pq.Array(pref.Severities),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert preference: %w", err)
	}

	return nil
}
