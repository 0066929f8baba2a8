package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"radwatch/internal/models"

	"go.uber.org/zap"
)

// alertRoom 报警事件广播房间名
const alertRoom = "alerts"

// fanout 报警分发阶段（阈值违规和人工报警共用）
// 先解析分发集合，然后通知分发和实时广播并发执行
// 所有失败都就地消化，不向管道调用方传播
type fanout struct {
	recipients RecipientResolver
	dispatcher Dispatcher
	hub        Broadcaster
	logger     *zap.Logger
}

func newFanout(recipients RecipientResolver, dispatcher Dispatcher, hub Broadcaster, logger *zap.Logger) *fanout {
	return &fanout{
		recipients: recipients,
		dispatcher: dispatcher,
		hub:        hub,
		logger:     logger,
	}
}

func (f *fanout) run(ctx context.Context, alert *models.Alert, overrideAll bool) {
	recipients, err := f.recipients.ResolveRecipients(ctx, alert.Severity, overrideAll)
	if err != nil {
		f.logger.Error("Failed to resolve notification recipients",
			zap.String("alert_id", alert.AlertID),
			zap.Error(err),
		)
		recipients = nil
	}

	timestamp := alert.CreatedAt
	if timestamp.IsZero() {
		// 落库失败的报警没有入库时间，事件用当前时间
		timestamp = time.Now()
	}

	location := fmt.Sprintf("%s/%s/%s", alert.Block, alert.Plant, alert.Area)
	event := models.AlertEvent{
		EventKind: eventKind(alert.AlertType),
		Severity:  alert.Severity,
		Message:   alert.Message,
		Block:     alert.Block,
		Plant:     alert.Plant,
		Area:      alert.Area,
		Timestamp: timestamp,
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		report := f.dispatcher.Dispatch(ctx, recipients, alert.Severity, alert.Message, location)
		f.logger.Info("Alert notifications dispatched",
			zap.String("alert_id", alert.AlertID),
			zap.Int("sent", report.Sent),
			zap.Int("failed", len(report.Failed)),
		)
	}()

	go func() {
		defer wg.Done()
		f.hub.Broadcast(alertRoom, event)
	}()

	wg.Wait()
}

func eventKind(alertType string) string {
	if alertType == models.AlertTypeManual {
		return "manual_alert"
	}
	return "threshold_exceeded"
}
