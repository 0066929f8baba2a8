package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"radwatch/internal/cache"
	"radwatch/internal/config"
	"radwatch/internal/evaluator"
	"radwatch/internal/httpapi"
	"radwatch/internal/mqtt"
	"radwatch/internal/notifier"
	"radwatch/internal/poller"
	"radwatch/internal/repository"
	"radwatch/internal/service"
	"radwatch/internal/ws"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// .env 存在时优先加载（本地开发用）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	// 1. 连接数据库
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdle)
	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	defer db.Close()

	// 2. 连接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to ping redis", zap.Error(err))
	}
	defer redisClient.Close()

	// 3. Repository 层
	thresholdRepo := repository.NewThresholdRepository(db, logger)
	readingRepo := repository.NewReadingRepository(db, logger)
	alertRepo := repository.NewAlertRepository(db, logger)
	subscriberRepo := repository.NewSubscriberRepository(db, logger)

	// 4. 阈值缓存 + 解析器
	thresholdCache := cache.NewThresholdCache(cfg, redisClient, thresholdRepo, logger)
	resolver := evaluator.NewResolver(thresholdCache, logger)

	// 5. 通知层
	emailSender := notifier.NewSMTPSender(cfg, logger)
	var smsSender notifier.SMSSender
	if cfg.SMS.Enabled {
		smsSender = notifier.NewGatewaySMSSender(cfg, logger)
	}
	dispatcher := notifier.NewDispatcher(emailSender, smsSender, cfg.Notify.SendTimeout, logger)
	recipients := notifier.NewRecipientResolver(subscriberRepo, logger)

	// 6. 实时广播
	hub := ws.NewHub(logger)
	defer hub.CloseAll()

	// 7. Service 层
	readingService := service.NewReadingService(readingRepo, alertRepo, resolver, recipients, dispatcher, hub, logger)
	alertService := service.NewAlertService(alertRepo, recipients, dispatcher, hub, logger)
	thresholdService := service.NewThresholdService(thresholdRepo, thresholdCache, logger)
	subscriberService := service.NewSubscriberService(subscriberRepo, logger)

	// 8. HTTP 路由
	router := httpapi.NewRouter(logger)
	router.RegisterRoutes(
		httpapi.NewReadingHandler(readingService, logger),
		httpapi.NewThresholdHandler(thresholdService, logger),
		httpapi.NewAlertHandler(alertService, logger),
		httpapi.NewSubscriberHandler(subscriberService, logger),
		hub,
	)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 9. 可选接入路径：MQTT 传感器上报
	if cfg.MQTT.Enabled {
		consumer, err := mqtt.NewConsumer(cfg, readingService, logger)
		if err != nil {
			logger.Fatal("Failed to create MQTT consumer", zap.Error(err))
		}
		if err := consumer.Start(); err != nil {
			logger.Fatal("Failed to start MQTT consumer", zap.Error(err))
		}
		defer consumer.Stop()
	}

	// 10. 可选接入路径：外部读数源轮询
	if cfg.Feed.Enabled {
		feedPoller := poller.NewPoller(cfg, readingService, logger)
		if err := feedPoller.Start(); err != nil {
			logger.Fatal("Failed to start feed poller", zap.Error(err))
		}
		defer feedPoller.Stop()
	}

	// 11. 启动 HTTP 服务
	serverErrChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	// 12. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErrChan:
		logger.Fatal("HTTP server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	logger.Info("radwatch stopped")
}

// initLogger 初始化日志
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch cfg.Log.Level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var zapConfig zap.Config
	if cfg.Log.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.TimeKey = "timestamp"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service_name", "radwatch")), nil
}
