package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventhub/api/routes"
	"eventhub/internal/bookings"
	"eventhub/internal/notifications"
	"eventhub/internal/shared/config"
	"eventhub/internal/shared/database"
	"eventhub/internal/store"
	"eventhub/pkg/logger"
	"eventhub/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// rebuild once the gin mode picks the handler format
	appLogger = logger.NewWithWriter(os.Stdout, cfg.LogLevel)
	logger.SetDefault(appLogger)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := database.InitDB(rootCtx, cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	bookingStore, err := store.Open(rootCtx, cfg, db)
	if err != nil {
		appLogger.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}

	dispatcher := notifications.NewDispatcher(newNotificationSink(cfg, appLogger), appLogger, cfg.Booking.NotificationTimeout)
	defer func() {
		appLogger.Info("Flushing notifications...")
		if err := dispatcher.Close(); err != nil {
			appLogger.Error("Error closing notification sink", slog.Any("error", err))
		}
	}()

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && db.Redis != nil {
		rateLimiter = ratelimit.NewRateLimiter(db.Redis, &ratelimit.Config{
			Enabled:                 cfg.RateLimit.Enabled,
			WindowDuration:          cfg.RateLimit.WindowDuration,
			DefaultRequests:         cfg.RateLimit.DefaultRequests,
			PublicRequests:          cfg.RateLimit.PublicRequests,
			BookingRequests:         cfg.RateLimit.BookingRequests,
			BookingCriticalRequests: cfg.RateLimit.BookingCriticalRequests,
			OrganizerRequests:       cfg.RateLimit.OrganizerRequests,
			UserRequests:            cfg.RateLimit.UserRequests,
			HealthRequests:          cfg.RateLimit.HealthRequests,
			WhitelistedIPs:          cfg.RateLimit.WhitelistedIPs,
		})
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	appRouter := routes.NewRouter(cfg, db, bookingStore, dispatcher, appLogger)
	engine := setupRouter(appRouter, rateLimiter, appLogger)

	var jobs *bookings.JobProcessor
	if cfg.Reconcile.Enabled {
		jobs = bookings.NewJobProcessor(appRouter.BookingService(), cfg.Reconcile.Interval, appLogger)
		jobs.Start(rootCtx)
	}

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("store_driver", cfg.StoreDriver),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("built", BuildTime),
			slog.Bool("redis_cache", db.Redis != nil),
			slog.Bool("rate_limiting", rateLimiter != nil),
			slog.Bool("kafka_notifications", cfg.Kafka.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	if jobs != nil {
		jobs.Stop()
	}
	stop()

	appLogger.Info("Server exited gracefully")
}

// newNotificationSink publishes to Kafka when enabled and falls back to the log
func newNotificationSink(cfg *config.Config, l *logger.Logger) notifications.Sink {
	if !cfg.Kafka.Enabled {
		return notifications.NewLogSink(l)
	}

	sinkConfig := notifications.DefaultKafkaSinkConfig()
	sinkConfig.Brokers = cfg.Kafka.Brokers
	sinkConfig.NotificationTopic = cfg.Kafka.NotificationTopic
	sinkConfig.RetryMax = cfg.Kafka.RetryMax
	sinkConfig.Timeout = cfg.Kafka.Timeout

	sink, err := notifications.NewKafkaSink(sinkConfig, l)
	if err != nil {
		l.Error("Kafka unavailable, notifications go to the log", slog.Any("error", err))
		return notifications.NewLogSink(l)
	}
	return sink
}

func setupRouter(appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter, l *logger.Logger) *gin.Engine {
	engine := gin.New()

	engine.Use(RequestLoggerMiddleware(l), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter, l))
	}

	appRouter.SetupRoutes(engine)
	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		l.LogHTTPRequest(c, duration)
		if len(c.Errors) > 0 && c.Writer.Status() >= http.StatusInternalServerError {
			l.LogHTTPError(c, c.Errors.Last(), c.Writer.Status())
		}
	}
}
