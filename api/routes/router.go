// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"eventhub/internal/bookings"
	"eventhub/internal/events"
	"eventhub/internal/shared/config"
	"eventhub/internal/shared/database"
	"eventhub/pkg/cache"
	"eventhub/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config   *config.Config
	db       *database.DB
	store    bookings.Store
	notifier bookings.Notifier
	logger   *logger.Logger

	eventService   events.Service
	bookingService bookings.Service
}

// NewRouter wires the event and booking services over store
func NewRouter(cfg *config.Config, db *database.DB, store bookings.Store, notifier bookings.Notifier, l *logger.Logger) *Router {
	r := &Router{
		config:   cfg,
		db:       db,
		store:    store,
		notifier: notifier,
		logger:   l,
	}

	r.eventService = events.NewService(store.View().Events(), l)
	if db.Redis != nil {
		r.eventService.SetCacheService(cache.NewService(db.Redis, l), cfg.Redis.AvailabilityTTL)
	}

	r.bookingService = bookings.NewService(store, notifier, l, bookings.Config{
		TxTimeout:          cfg.Booking.TxTimeout,
		MaxSeatsPerBooking: cfg.Booking.MaxSeatsPerBooking,
		UndatedAsEnded:     cfg.Reconcile.UndatedAsEnded,
		ReconcileBatchSize: cfg.Reconcile.BatchSize,
	}, bookings.WithAvailabilityCache(r.eventService))

	return r
}

// BookingService exposes the coordinator for background jobs
func (r *Router) BookingService() bookings.Service {
	return r.bookingService
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupEventRoutes(api)
		r.setupBookingRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "eventhub",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "eventhub",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "operational",
			"api_version":  r.config.APIVersion,
			"store_driver": r.config.StoreDriver,
			"redis_cache":  r.db.Redis != nil,
			"timestamp":    time.Now(),
		})
	})
}

// setupEventRoutes configures event catalog routes
func (r *Router) setupEventRoutes(rg *gin.RouterGroup) {
	events.SetupEventRoutes(rg, events.NewController(r.eventService), r.config.JWT.Secret)
}

// setupBookingRoutes configures booking and projection routes
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	bookings.SetupBookingRoutes(rg, bookings.NewController(r.bookingService), r.config.JWT.Secret)
}
