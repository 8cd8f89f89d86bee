package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/skytrip/travel-booking-backend/internal/cache"
	"github.com/skytrip/travel-booking-backend/internal/config"
	"github.com/skytrip/travel-booking-backend/internal/database"
	"github.com/skytrip/travel-booking-backend/internal/events"
	"github.com/skytrip/travel-booking-backend/internal/handlers"
	"github.com/skytrip/travel-booking-backend/internal/middleware"
	"github.com/skytrip/travel-booking-backend/internal/services"
	"github.com/skytrip/travel-booking-backend/internal/store"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SkyTrip Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize the row store
	logger.Info("Connecting to row store...")
	db, err := store.Connect(
		cfg.Database.URL,
		cfg.Database.MaxConnections,
		cfg.Database.MaxIdleConnections,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		logger.Fatalf("Failed to connect to row store: %v", err)
	}
	defer db.Close()
	rowStore := store.NewPostgresStore(db, cfg.Database.StatementTimeout)
	logger.Info("Row store connection established")

	// Optional Redis catalog cache
	var catalogCache *cache.Cache
	if cfg.Redis.Addr != "" {
		catalogCache, err = cache.New(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, continuing without catalog cache")
			catalogCache = nil
		} else {
			defer catalogCache.Close()
			logger.Info("Catalog cache connected")
		}
	}

	// Optional Kafka booking event stream
	var producer *events.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		logger.WithField("topic", cfg.Kafka.Topic).Info("Booking event producer initialized")
	}

	// Initialize repositories
	allocator := database.NewIDAllocator(rowStore)
	userRepo := database.NewUserRepository(rowStore, allocator)
	sessionRepo := database.NewSessionRepository(rowStore, allocator)
	catalogRepo := database.NewCatalogRepository(rowStore)
	bookingRepo := database.NewBookingRepository(rowStore, allocator)

	// Initialize services
	logger.Info("Initializing services...")
	availabilityService := services.NewAvailabilityService(catalogRepo, bookingRepo, logger)
	authService := services.NewAuthService(userRepo, sessionRepo, cfg.Security.BcryptCost, cfg.Session.TTL, logger)
	searchService := services.NewSearchService(catalogRepo, availabilityService, catalogCache, logger)

	var publisher services.EventPublisher
	if producer != nil {
		publisher = producer
	}
	orchestrator := services.NewBookingOrchestratorService(bookingRepo, catalogRepo, availabilityService, publisher, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, logger)
	searchHandler := handlers.NewSearchHandler(searchService, logger)
	bookingHandler := handlers.NewBookingHandler(orchestrator, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Authentication routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Catalog and search routes (public)
		v1.GET("/cities", searchHandler.ListCities)
		v1.GET("/airports", searchHandler.ListAirports)
		search := v1.Group("/search")
		{
			search.GET("/flights", searchHandler.SearchFlights)
			search.GET("/hotels", searchHandler.SearchRooms)
			search.GET("/cars", searchHandler.SearchCars)
		}

		// Booking routes (authenticated)
		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware(authService, logger))
		{
			authed.POST("/bookings", bookingHandler.CreateBooking)
			authed.GET("/bookings", bookingHandler.ListBookings)
			authed.GET("/bookings/:id", bookingHandler.GetBooking)
			authed.POST("/bookings/:id/payment", bookingHandler.ProcessPayment)
			authed.DELETE("/bookings/:id", bookingHandler.CancelBooking)
			authed.PUT("/passengers/:id", bookingHandler.UpdatePassenger)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.WithFields(fields).Error("Request completed")
		} else {
			logger.WithFields(fields).Info("Request completed")
		}
	}
}

// healthCheckHandler reports process and store health
func healthCheckHandler(db interface{ Ping() error }) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		storeStatus := "up"
		code := http.StatusOK

		if err := db.Ping(); err != nil {
			status = "degraded"
			storeStatus = "down"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":  status,
			"store":   storeStatus,
			"version": version,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	}
}
