package models

// Subscriber 订阅者注册信息（对应 subscribers 表，只读）
type Subscriber struct {
	SubscriberID string `json:"subscriber_id" db:"subscriber_id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	Phone        string `json:"phone" db:"phone"`
	IsAdmin      bool   `json:"is_admin" db:"is_admin"`
	IsActive     bool   `json:"is_active" db:"is_active"`
}

// Preference 订阅者通知偏好（对应 notification_preferences 表）
// 管理员订阅者不受偏好限制：所有级别、两种通道始终视为开启
type Preference struct {
	SubscriberID string   `json:"subscriber_id" db:"subscriber_id"`
	EmailEnabled bool     `json:"email_enabled" db:"email_enabled"`
	SMSEnabled   bool     `json:"sms_enabled" db:"sms_enabled"`
	Severities   []string `json:"severities" db:"severities"`
}

// WantsSeverity 偏好中是否订阅了指定级别
func (p *Preference) WantsSeverity(severity string) bool {
	for _, s := range p.Severities {
		if s == severity {
			return true
		}
	}
	return false
}

// Recipient 通知分发目标（由订阅者注册信息和偏好计算得出）
type Recipient struct {
	SubscriberID string `json:"subscriber_id"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	WantsEmail   bool   `json:"wants_email"`
	WantsSMS     bool   `json:"wants_sms"`
}
