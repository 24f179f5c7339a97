package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourorg/learning-platform/internal/config"
	"github.com/yourorg/learning-platform/internal/handler"
	"github.com/yourorg/learning-platform/internal/kafka"
	"github.com/yourorg/learning-platform/internal/middleware"
	"github.com/yourorg/learning-platform/internal/model"
	"github.com/yourorg/learning-platform/internal/repository"
	"github.com/yourorg/learning-platform/internal/service"
	"github.com/yourorg/learning-platform/internal/ws"

	"github.com/cenkalti/backoff/v4"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Connect to database
	db, err := connectToDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis client (if enabled)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logger.Warn("Failed to connect to Redis, running without cache", zap.Error(err))
			redisClient = nil
		} else {
			logger.Info("Connected to Redis", zap.String("address", cfg.Redis.URL))
		}
	}

	// Initialize Kafka producer (if enabled)
	var producer *kafka.Producer
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		logger.Info("Initialized Kafka producer",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}

	// Create repositories
	userRepo := repository.NewUserRepository(db, logger)
	directoryRepo := repository.NewDirectoryRepository(db, logger)
	notificationRepo := repository.NewNotificationRepository(db, logger)

	// Live push hub
	hub := ws.NewHub(cfg.WS, logger)

	// Create services
	authService := service.NewAuthService(userRepo, cfg, logger)
	audienceService := service.NewAudienceService(directoryRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, logger)

	var publisher service.EventPublisher
	if producer != nil {
		publisher = producer
	}
	broadcastService := service.NewBroadcastService(
		notificationRepo,
		directoryRepo,
		audienceService,
		hub,
		publisher,
		logger,
	)

	registerValidations(logger)

	// Expiry sweep runs until shutdown
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go notificationService.StartExpirySweep(sweepCtx, cfg.Sweep.Interval)

	// Create HTTP server
	router := setupRouter(authService, notificationService, broadcastService, hub, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if producer != nil {
		producer.Close()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func createLogger(level string) (*zap.Logger, error) {
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

func connectToDB(dbConfig config.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.DBName,
		dbConfig.SSLMode,
	)

	var db *sqlx.DB
	connect := func() error {
		var err error
		db, err = sqlx.Connect("pgx", dsn)
		if err != nil {
			logger.Warn("Database not ready, retrying", zap.Error(err))
		}
		return err
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(connect, policy); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(dbConfig.MaxOpenConns)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	return db, nil
}

// registerValidations wires domain enumerations into gin's binding validator
func registerValidations(logger *zap.Logger) {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		logger.Warn("unexpected binding validator engine, skipping custom validations")
		return
	}
	v.RegisterValidation("notificationkind", func(fl validator.FieldLevel) bool {
		return model.IsValidKind(fl.Field().String())
	})
}

func setupRouter(
	authService *service.AuthService,
	notificationService *service.NotificationService,
	broadcastService *service.BroadcastService,
	hub *ws.Hub,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		// ==================== AUTH ROUTES ====================
		auth := v1.Group("/auth")
		{
			authHandler := handler.NewAuthHandler(authService, logger)

			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh-token", authHandler.RefreshToken)
		}

		// ==================== NOTIFICATION ROUTES ====================
		notifications := v1.Group("/notifications")
		{
			notifications.Use(middleware.AuthMiddleware(authService, logger))

			notifHandler := handler.NewNotificationHandler(notificationService, logger)

			notifications.GET("", notifHandler.GetNotifications)
			notifications.GET("/count", notifHandler.GetUnreadCount)
			notifications.PATCH("/:id/read", notifHandler.MarkNotificationAsRead)
			notifications.PATCH("/read-all", notifHandler.MarkAllAsRead)
			notifications.DELETE("/:id", notifHandler.DeleteNotification)
		}

		// ==================== ADMIN ROUTES ====================
		admin := v1.Group("/admin")
		{
			admin.Use(middleware.AuthMiddleware(authService, logger))
			admin.Use(middleware.RequireAdmin())

			broadcastHandler := handler.NewBroadcastHandler(broadcastService, logger)

			admin.POST("/notifications/send", broadcastHandler.Send)
		}

		// ==================== LIVE CHANNEL ====================
		// The websocket handler authenticates the token itself: browser
		// WebSocket clients cannot set an Authorization header, so the
		// token may arrive as a query parameter instead.
		wsHandler := ws.NewHandler(hub, authService, logger)
		v1.GET("/ws", wsHandler.Serve)
	}

	return router
}
