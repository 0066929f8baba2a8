package notifier

import (
	"context"
	"fmt"
	"time"

	"radwatch/internal/metrics"
	"radwatch/internal/models"

	"go.uber.org/zap"
)

// 通知通道名
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// EmailSender 邮件发送接口（由 SMTPSender 实现）
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender 短信发送接口（由 GatewaySMSSender 实现）
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// DispatchFailure 单个收件人单通道的发送失败
type DispatchFailure struct {
	RecipientID string `json:"recipient_id"`
	Channel     string `json:"channel"`
	Reason      string `json:"reason"`
}

// DispatchReport 一次分发的结果汇总
type DispatchReport struct {
	Sent   int               `json:"sent"`
	Failed []DispatchFailure `json:"failed"`
}

// Dispatcher 通知分发器
// 逐收件人、逐通道独立发送：单个失败只记录，不影响其他发送，也不向上抛
// 每次发送带超时，慢收件人不会无限拖住整体分发
type Dispatcher struct {
	email       EmailSender
	sms         SMSSender // 可为 nil（短信通道未启用）
	sendTimeout time.Duration
	logger      *zap.Logger
}

// NewDispatcher 创建通知分发器
func NewDispatcher(email EmailSender, sms SMSSender, sendTimeout time.Duration, logger *zap.Logger) *Dispatcher {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		email:       email,
		sms:         sms,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Dispatch 向分发集合发送通知，返回结果汇总
// 零个收件人收到邮件视为配置异常，记 Warn 日志，但不算分发失败
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []models.Recipient, severity, message, location string) DispatchReport {
	report := DispatchReport{}
	emailsSent := 0

	subject := fmt.Sprintf("[%s] Radiation alert: %s", severity, location)
	body := fmt.Sprintf("Severity: %s\nLocation: %s\n\n%s", severity, location, message)

	for _, rec := range recipients {
		if rec.WantsEmail && rec.Email != "" {
			if err := d.sendWithTimeout(ctx, func(sendCtx context.Context) error {
				return d.email.SendEmail(sendCtx, rec.Email, subject, body)
			}); err != nil {
				d.recordFailure(&report, rec.SubscriberID, ChannelEmail, err)
			} else {
				report.Sent++
				emailsSent++
				metrics.NotificationsSent.WithLabelValues(ChannelEmail).Inc()
			}
		}

		if rec.WantsSMS && rec.Phone != "" && d.sms != nil {
			smsText := fmt.Sprintf("[%s] %s: %s", severity, location, message)
			if err := d.sendWithTimeout(ctx, func(sendCtx context.Context) error {
				return d.sms.SendSMS(sendCtx, rec.Phone, smsText)
			}); err != nil {
				d.recordFailure(&report, rec.SubscriberID, ChannelSMS, err)
			} else {
				report.Sent++
				metrics.NotificationsSent.WithLabelValues(ChannelSMS).Inc()
			}
		}
	}

	if emailsSent == 0 {
		d.logger.Warn("No email notifications delivered for alert, check subscriber configuration",
			zap.String("severity", severity),
			zap.String("location", location),
			zap.Int("recipients", len(recipients)),
		)
	}

	return report
}

func (d *Dispatcher) sendWithTimeout(ctx context.Context, send func(context.Context) error) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- send(sendCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-sendCtx.Done():
		return fmt.Errorf("send timed out after %s", d.sendTimeout)
	}
}

func (d *Dispatcher) recordFailure(report *DispatchReport, recipientID, channel string, err error) {
	report.Failed = append(report.Failed, DispatchFailure{
		RecipientID: recipientID,
		Channel:     channel,
		Reason:      err.Error(),
	})
	metrics.NotificationFailures.WithLabelValues(channel).Inc()
	d.logger.Error("Notification send failed",
		zap.String("recipient_id", recipientID),
		zap.String("channel", channel),
		zap.Error(err),
	)
}
