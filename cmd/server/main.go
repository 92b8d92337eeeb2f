package main

import (
	"context"
	"os/signal"
	"syscall"

	"whatsapp-core/internal/api"
	"whatsapp-core/internal/config"
	"whatsapp-core/internal/conversation"
	"whatsapp-core/internal/database"
	"whatsapp-core/internal/dispatch"
	"whatsapp-core/internal/logging"
	"whatsapp-core/internal/metrics"
	"whatsapp-core/internal/pipeline"
	"whatsapp-core/internal/ratelimit"
	"whatsapp-core/internal/template"
	"whatsapp-core/internal/webhook"
	"whatsapp-core/internal/whatsapp"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.LoadConfig()
	logger := logging.Setup(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Init(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("database init failed")
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	limiter := ratelimit.NewLimiter(redisClient, cfg.RateLimitPerMinute)

	collector := metrics.NewCollector()
	metrics.MustRegister()

	store := conversation.NewStore(db, cfg.WindowMinutes)
	registry := template.NewRegistry(db)
	client := whatsapp.NewClient(cfg)

	sender := &pipeline.Sender{
		Limiter:   limiter,
		Transport: client,
		Store:     store,
		Metrics:   collector,
		Logger:    logger.With().Str("component", "pipeline").Logger(),
	}

	dispatcher, consumer, err := dispatch.New(ctx, cfg, sender, collector, logger.With().Str("component", "dispatch").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("dispatcher init failed")
	}
	if consumer != nil {
		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("queue consumer stopped")
			}
		}()
	}

	reporter := &metrics.Reporter{
		Collector: collector,
		Interval:  cfg.MetricsInterval,
		Logger:    logger.With().Str("component", "metrics").Logger(),
	}
	go reporter.Run(ctx)

	webhookHandler := webhook.NewHandler(cfg, store, collector, logger.With().Str("component", "webhook").Logger())
	messageHandler := api.NewMessageHandler(dispatcher, store)
	templateHandler := api.NewTemplateHandler(registry)
	healthHandler := api.NewHealthHandler(store, limiter, collector)

	r := gin.Default()

	// Webhook Routes
	r.GET("/webhook", webhookHandler.Verify)
	r.POST("/webhook", webhookHandler.Receive)

	// API Routes
	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/send", messageHandler.Send)
		apiGroup.GET("/messages", messageHandler.List)

		apiGroup.POST("/templates", templateHandler.Create)
		apiGroup.GET("/templates", templateHandler.List)
		apiGroup.GET("/templates/:name", templateHandler.GetByName)
		apiGroup.POST("/templates/:id/approve", templateHandler.Approve)
		apiGroup.POST("/templates/:id/reject", templateHandler.Reject)
	}

	// Health & Metrics
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)
	r.GET("/metrics", healthHandler.Snapshot)
	r.GET("/metrics/prom", gin.WrapH(promhttp.Handler()))

	logger.Info().Str("port", cfg.Port).Str("dispatch_mode", cfg.DispatchMode).Msg("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("failed to run server")
	}
}
