package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"radwatch/internal/config"
	"radwatch/internal/models"
	"radwatch/internal/service"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Consumer 传感器读数 MQTT 消费者
// 订阅读数主题，把消息送进和人工提交相同的接入管道，核心不做任何特殊处理
type Consumer struct {
	client         pahomqtt.Client
	config         *config.Config
	readingService service.ReadingService
	logger         *zap.Logger
}

// NewConsumer 创建 MQTT 消费者并连接 broker
func NewConsumer(cfg *config.Config, readingService service.ReadingService, logger *zap.Logger) (*Consumer, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.Broker)
	opts.SetClientID(cfg.MQTT.ClientID)
	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
	}
	if cfg.MQTT.Password != "" {
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := pahomqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Consumer{
		client:         client,
		config:         cfg,
		readingService: readingService,
		logger:         logger,
	}, nil
}

// Start 订阅读数主题
func (c *Consumer) Start() error {
	token := c.client.Subscribe(c.config.MQTT.Topic, c.config.MQTT.QoS, func(client pahomqtt.Client, msg pahomqtt.Message) {
		if err := c.handleMessage(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Error("Failed to handle sensor reading message",
				zap.String("topic", msg.Topic()),
				zap.Error(err),
			)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", c.config.MQTT.Topic, token.Error())
	}

	c.logger.Info("MQTT sensor feed subscribed",
		zap.String("broker", c.config.MQTT.Broker),
		zap.String("topic", c.config.MQTT.Topic),
	)
	return nil
}

// Stop 断开 MQTT 连接
func (c *Consumer) Stop() {
	c.client.Disconnect(250)
}

func (c *Consumer) handleMessage(topic string, payload []byte) error {
	reading, err := ParseFeedReading(payload)
	if err != nil {
		return fmt.Errorf("invalid sensor payload: %w", err)
	}
	if reading.SubmitterID == "" {
		reading.SubmitterID = c.config.Feed.SubmitterID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := c.readingService.IngestReading(ctx, service.IngestReadingRequest{
		SubmitterID: reading.SubmitterID,
		Block:       reading.Block,
		Plant:       reading.Plant,
		Area:        reading.Area,
		AreaSpec:    reading.AreaSpec,
		NearValue:   reading.NearValue,
		FarValue:    reading.FarValue,
		MeasuredAt:  reading.MeasuredAt,
		Origin:      models.OriginSensor,
	})
	if err != nil {
		// 报警记录失败时读数本身可能已写入，只记日志
		if resp != nil && resp.Accepted {
			c.logger.Warn("Sensor reading accepted but alert recording failed", zap.Error(err))
			return nil
		}
		return err
	}

	if resp.Violation {
		c.logger.Info("Sensor reading triggered violation",
			zap.String("reading_id", resp.ReadingID),
			zap.String("severity", resp.Severity),
		)
	}
	return nil
}

// FeedReading 归一化后的外部读数
type FeedReading struct {
	SubmitterID string
	Block       string
	Plant       string
	Area        string
	AreaSpec    string
	NearValue   float64
	FarValue    float64
	MeasuredAt  time.Time
}

// ParseFeedReading 解析外部读数载荷并归一化字段名
// 不同传感器固件对同一个逻辑值用不同的键名，这里全部折叠成一种形态，
// 核心管道看不到任何键名差异
func ParseFeedReading(payload []byte) (*FeedReading, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	r := &FeedReading{
		SubmitterID: pickString(raw, "submitter_id", "submitterId", "sensor_id"),
		Block:       pickString(raw, "block", "facility_block", "blockName"),
		Plant:       pickString(raw, "plant", "plant_name", "plantName"),
		Area:        pickString(raw, "area", "area_name", "areaName"),
		AreaSpec:    pickString(raw, "area_spec", "areaSpec", "sub_location"),
		NearValue:   pickFloat(raw, "near_value", "nearValue", "near"),
		FarValue:    pickFloat(raw, "far_value", "farValue", "far"),
	}

	if ts := pickString(raw, "measured_at", "measuredAt", "timestamp"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			r.MeasuredAt = t
		} else if t, err := time.Parse("2006-01-02", ts); err == nil {
			r.MeasuredAt = t
		}
	}

	if r.Block == "" || r.Plant == "" || r.Area == "" {
		return nil, fmt.Errorf("location fields are required")
	}

	return r, nil
}

func pickString(raw map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key]; ok {
			var s string
			if err := json.Unmarshal(v, &s); err == nil && s != "" {
				return s
			}
		}
	}
	return ""
}

func pickFloat(raw map[string]json.RawMessage, keys ...string) float64 {
	for _, key := range keys {
		if v, ok := raw[key]; ok {
			var f float64
			if err := json.Unmarshal(v, &f); err == nil {
				return f
			}
			// 有些固件把数值编码成字符串
			var s string
			if err := json.Unmarshal(v, &s); err == nil {
				var parsed float64
				if _, err := fmt.Sscanf(s, "%g", &parsed); err == nil {
					return parsed
				}
			}
		}
	}
	return 0
}
