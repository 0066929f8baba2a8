package notifier

import (
	"context"
	"fmt"

	"radwatch/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// GatewaySMSSender 短信网关客户端
// 网关是一个简单的 HTTP API：POST {to, message}，2xx 即视为受理成功
// 投递本身是尽力而为，网关侧的最终结果不回传
type GatewaySMSSender struct {
	client *resty.Client
	logger *zap.Logger
}

// NewGatewaySMSSender 创建短信网关客户端
func NewGatewaySMSSender(cfg *config.Config, logger *zap.Logger) *GatewaySMSSender {
	client := resty.New().
		SetBaseURL(cfg.SMS.GatewayURL).
		SetHeader("Content-Type", "application/json")
	if cfg.SMS.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.SMS.APIKey)
	}

	return &GatewaySMSSender{
		client: client,
		logger: logger,
	}
}

type smsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendSMS 发送一条短信
func (s *GatewaySMSSender) SendSMS(ctx context.Context, phone, message string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(smsRequest{To: phone, Message: message}).
		Post("/messages")
	if err != nil {
		return fmt.Errorf("failed to call SMS gateway: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("SMS gateway returned %d: %s", resp.StatusCode(), resp.String())
	}

	return nil
}
