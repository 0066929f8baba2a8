package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 辐射监测报警服务配置
type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Database string
		SSLMode  string
		MaxConns int
		MaxIdle  int
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// 阈值配置缓存
	Cache struct {
		ThresholdKeyPrefix string        // 缓存键前缀，如 "radwatch:threshold:"
		ThresholdTTL       time.Duration // 缓存 TTL，默认 60秒
	}

	HTTP struct {
		Addr string
	}

	// MQTT 传感器上报通道
	MQTT struct {
		Enabled  bool
		Broker   string
		ClientID string
		Username string
		Password string
		Topic    string
		QoS      byte
	}

	// 外部读数源轮询
	Feed struct {
		Enabled     bool
		URL         string
		Schedule    string // cron 表达式，默认每 5 分钟
		SubmitterID string // 自动上报记录的提交者标识
	}

	SMTP struct {
		Host string
		Port int
		User string
		Password string
		From string
	}

	SMS struct {
		Enabled    bool
		GatewayURL string
		APIKey     string
	}

	Notify struct {
		SendTimeout time.Duration // 单个收件人单通道的发送超时
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置（带默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "radwatch")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Cache.ThresholdKeyPrefix = getEnv("CACHE_THRESHOLD_PREFIX", "radwatch:threshold:")
	cfg.Cache.ThresholdTTL = time.Duration(getEnvInt("CACHE_THRESHOLD_TTL", 60)) * time.Second

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.MQTT.Enabled = getEnvBool("MQTT_ENABLED", false)
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "radwatch-ingest")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "radwatch/readings/#")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))

	cfg.Feed.Enabled = getEnvBool("FEED_ENABLED", false)
	cfg.Feed.URL = getEnv("FEED_URL", "")
	cfg.Feed.Schedule = getEnv("FEED_SCHEDULE", "*/5 * * * *")
	cfg.Feed.SubmitterID = getEnv("FEED_SUBMITTER_ID", "sensor-feed")

	cfg.SMTP.Host = getEnv("SMTP_HOST", "localhost")
	cfg.SMTP.Port = getEnvInt("SMTP_PORT", 587)
	cfg.SMTP.User = getEnv("SMTP_USER", "")
	cfg.SMTP.Password = getEnv("SMTP_PASSWORD", "")
	cfg.SMTP.From = getEnv("SMTP_FROM", "radwatch-alerts@localhost")

	cfg.SMS.Enabled = getEnvBool("SMS_ENABLED", false)
	cfg.SMS.GatewayURL = getEnv("SMS_GATEWAY_URL", "")
	cfg.SMS.APIKey = getEnv("SMS_API_KEY", "")

	cfg.Notify.SendTimeout = time.Duration(getEnvInt("NOTIFY_SEND_TIMEOUT", 10)) * time.Second

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if cfg.Feed.Enabled && cfg.Feed.URL == "" {
		return nil, fmt.Errorf("FEED_URL is required when FEED_ENABLED=true")
	}
	if cfg.SMS.Enabled && cfg.SMS.GatewayURL == "" {
		return nil, fmt.Errorf("SMS_GATEWAY_URL is required when SMS_ENABLED=true")
	}

	return cfg, nil
}

// GetDSN 获取数据库连接字符串
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Database, c.Database.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
