package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"radwatch/internal/config"
	"radwatch/internal/models"
	"radwatch/internal/mqtt"
	"radwatch/internal/service"

	"github.com/go-resty/resty/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Poller 外部读数源定时轮询器
// 按 cron 表达式拉取外部 API 的读数批次，逐条送进接入管道
// 轮询失败只记日志等下一轮，不影响其他接入路径
type Poller struct {
	config         *config.Config
	client         *resty.Client
	cron           *cron.Cron
	readingService service.ReadingService
	logger         *zap.Logger
}

// NewPoller 创建轮询器
func NewPoller(cfg *config.Config, readingService service.ReadingService, logger *zap.Logger) *Poller {
	client := resty.New().
		SetBaseURL(cfg.Feed.URL).
		SetTimeout(30 * time.Second)

	return &Poller{
		config:         cfg,
		client:         client,
		cron:           cron.New(),
		readingService: readingService,
		logger:         logger,
	}
}

// Start 注册定时任务并启动调度
func (p *Poller) Start() error {
	_, err := p.cron.AddFunc(p.config.Feed.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := p.poll(ctx); err != nil {
			p.logger.Error("Feed poll failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid feed schedule %q: %w", p.config.Feed.Schedule, err)
	}

	p.cron.Start()
	p.logger.Info("Feed poller started",
		zap.String("url", p.config.Feed.URL),
		zap.String("schedule", p.config.Feed.Schedule),
	)
	return nil
}

// Stop 停止调度并等待进行中的任务结束
func (p *Poller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
}

func (p *Poller) poll(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get("")
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("feed returned %d", resp.StatusCode())
	}

	var batch []json.RawMessage
	if err := json.Unmarshal(resp.Body(), &batch); err != nil {
		return fmt.Errorf("failed to unmarshal feed batch: %w", err)
	}

	accepted, violations := 0, 0
	for _, item := range batch {
		reading, err := mqtt.ParseFeedReading(item)
		if err != nil {
			p.logger.Warn("Skipping malformed feed item", zap.Error(err))
			continue
		}

		result, err := p.readingService.IngestReading(ctx, service.IngestReadingRequest{
			SubmitterID: p.config.Feed.SubmitterID,
			Block:       reading.Block,
			Plant:       reading.Plant,
			Area:        reading.Area,
			AreaSpec:    reading.AreaSpec,
			NearValue:   reading.NearValue,
			FarValue:    reading.FarValue,
			MeasuredAt:  reading.MeasuredAt,
			Origin:      models.OriginSensor,
		})
		if err != nil && (result == nil || !result.Accepted) {
			p.logger.Error("Failed to ingest feed reading", zap.Error(err))
			continue
		}
		accepted++
		if result != nil && result.Violation {
			violations++
		}
	}

	p.logger.Info("Feed poll finished",
		zap.Int("items", len(batch)),
		zap.Int("accepted", accepted),
		zap.Int("violations", violations),
	)
	return nil
}
