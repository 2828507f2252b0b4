package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"super_clicker/internal/bot"
	"super_clicker/internal/cache"
	"super_clicker/internal/config"
	"super_clicker/internal/db"
	httpServer "super_clicker/internal/http"
	"super_clicker/internal/http/handlers"
	"super_clicker/internal/http/middleware"
	"super_clicker/internal/logger"
	"super_clicker/internal/moderation"
	"super_clicker/internal/repository"
	"super_clicker/internal/service"
	"super_clicker/internal/store"
	"super_clicker/internal/ws"

	"github.com/gin-gonic/gin"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	redisClient := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if redisClient != nil {
		defer redisClient.Close()
	}
	middleware.UseRedis(redisClient)

	players := repository.NewPlayerRepository(dbPool)
	records := cache.NewRecordStore(players, redisClient, cfg.RecordCacheTTL)
	auditSvc := service.NewAuditService(repository.NewAuditRepository(dbPool))

	engine := moderation.NewEngine(cfg.Tunables.Moderation())
	detector := moderation.NewDetector(cfg.Tunables.Thresholds())

	hub := ws.NewHub()
	locks := store.NewLocks()
	publishers := service.Publishers{hub}

	var adminBot *bot.AdminBot
	if cfg.AdminBotEnabled {
		b, err := bot.NewAdminBot(cfg.BotToken, cfg.AdminTelegramIDs)
		if err != nil {
			logger.Error("admin bot disabled", "error", err)
		} else {
			adminBot = b
			publishers = append(publishers, b)
		}
	}

	playerSvc := service.NewPlayerService(records, locks, engine, detector, auditSvc, publishers)
	moderationSvc := service.NewModerationService(records, locks, engine, auditSvc, publishers)
	adminSvc := service.NewAdminService(players, auditSvc, service.CleanupPolicy{
		InactiveAfter: cfg.InactiveCleanupAfter,
		MaxLevel:      cfg.CleanupMaxLevel,
	})

	if adminBot != nil {
		go adminBot.Start(bot.NewCommands(moderationSvc, adminSvc))
		defer adminBot.Stop()
	}

	h := handlers.NewHandler(handlers.HandlerConfig{
		BotToken: cfg.BotToken,
		DevMode:  cfg.DevMode,
		IsAdmin:  cfg.IsAdmin,
	}, playerSvc, moderationSvc, adminSvc, auditSvc)

	checks := map[string]handlers.Check{"database": dbPool.Ping}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	health := handlers.NewHealthHandler(version, checks)

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	httpServer.RegisterRoutes(r, h, health, hub, httpServer.Limits{
		API:        cfg.APIRateLimit,
		APIWindow:  cfg.APIRateWindow,
		Auth:       cfg.AuthRateLimit,
		AuthWindow: cfg.AuthRateWindow,
		Save:       cfg.SaveRateLimit,
		SaveWindow: cfg.SaveRateWindow,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
