// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"boleto/internal/auth"
	"boleto/internal/events"
	"boleto/internal/sales"
	"boleto/internal/seats"
	"boleto/internal/sessions"
	"boleto/internal/shared/config"
	"boleto/internal/shared/database"
	"boleto/pkg/cache"
	"boleto/pkg/clock"
	"boleto/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config *config.Config
	db     *database.DB
	clock  clock.Clock
	logger *logger.Logger

	saleProducer sales.Producer

	// Shared between route groups
	lockTable      *seats.LockTable
	soldRepo       seats.Repository
	eventService   events.Service
	sessionService sessions.Service
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, clk clock.Clock, log *logger.Logger, saleProducer sales.Producer) *Router {
	return &Router{
		config:       cfg,
		db:           db,
		clock:        clk,
		logger:       log,
		saleProducer: saleProducer,
	}
}

// SessionService exposes the session service after SetupRoutes ran, so the
// server can hand it to the expiry sweeper.
func (r *Router) SessionService() sessions.Service {
	return r.sessionService
}

// LockTable exposes the seat lock table so the server can preload its
// Lua scripts at startup.
func (r *Router) LockTable() *seats.LockTable {
	return r.lockTable
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupAuthRoutes(api)
		r.setupEventRoutes(api)
		r.setupSeatRoutes(api)
		r.setupSessionRoutes(api)
		r.setupSaleRoutes(api)
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
				"service":   "boleto-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "boleto-backend",
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
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

// setupAuthRoutes configures authentication routes
func (r *Router) setupAuthRoutes(rg *gin.RouterGroup) {
	authRepo := auth.NewRepository(r.db.GetPostgreSQL())
	authService := auth.NewService(authRepo, r.config)
	authController := auth.NewController(authService)
	authRouter := auth.NewRouter(authController, r.config)

	authRouter.SetupRoutes(rg)
}

// setupEventRoutes configures the event catalog routes
func (r *Router) setupEventRoutes(rg *gin.RouterGroup) {
	eventRepo := events.NewRepository(r.db.GetPostgreSQL())
	eventService := events.NewService(eventRepo)
	eventService.SetCacheService(cache.NewService(r.db.GetRedisClient()))
	r.eventService = eventService

	eventController := events.NewController(eventService)
	events.SetupEventRoutes(rg, eventController)
}

// setupSeatRoutes configures the seat matrix routes
func (r *Router) setupSeatRoutes(rg *gin.RouterGroup) {
	r.lockTable = seats.NewLockTable(r.db.GetRedisClient())
	r.soldRepo = seats.NewRepository(r.db.GetPostgreSQL())

	eventRepo := events.NewRepository(r.db.GetPostgreSQL())
	seatService := seats.NewService(r.soldRepo, r.lockTable, eventRepo, r.clock)
	seatService.SetCacheService(cache.NewService(r.db.GetRedisClient()))

	seatController := seats.NewController(seatService)
	seats.SetupSeatRoutes(rg, seatController)
}

// setupSessionRoutes configures the purchase session routes
func (r *Router) setupSessionRoutes(rg *gin.RouterGroup) {
	sessionRepo := sessions.NewRepository(r.db.GetPostgreSQL())
	sessionService := sessions.NewService(
		sessionRepo,
		r.lockTable,
		r.soldRepo,
		r.eventService,
		r.config,
		r.clock,
		r.logger,
	)
	r.sessionService = sessionService

	sessionController := sessions.NewController(sessionService)
	sessions.SetupSessionRoutes(rg, sessionController)
}

// setupSaleRoutes configures the purchase finalization routes
func (r *Router) setupSaleRoutes(rg *gin.RouterGroup) {
	saleRepo := sales.NewRepository(r.db.GetPostgreSQL())
	saleService := sales.NewService(saleRepo, r.sessionService, r.saleProducer, r.logger)

	saleController := sales.NewController(saleService)
	sales.SetupSaleRoutes(rg, saleController)
}
