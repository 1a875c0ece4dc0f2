package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/strategiz/alert-monitor/config"
	"github.com/strategiz/alert-monitor/models"
	"github.com/strategiz/alert-monitor/routes"
	"github.com/strategiz/alert-monitor/scheduler"
	"github.com/strategiz/alert-monitor/services/alerts"
	"github.com/strategiz/alert-monitor/services/execution"
	"github.com/strategiz/alert-monitor/services/marketdata"
	"github.com/strategiz/alert-monitor/services/notify"
)

// Background initialization state. The /ready endpoint and the shutdown
// path read these while initialization runs in its own goroutine, so every
// access goes through initMutex.
var initMutex sync.RWMutex
var dbInitialized bool

func main() {
	log.Println("==============================================")
	log.Println("  Alert Monitor Service - Starting...")
	log.Println("==============================================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Config load issue: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	// Health check endpoints first so the platform can detect the service
	// is up while the database initializes in background
	setupHealthEndpoints(router)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Println("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Initialize storage, collaborators and the scheduler in background
	var jobScheduler *scheduler.Scheduler
	var streamHub *notify.StreamHub
	var eventPublisher *notify.SignalPublisher
	go func() {
		db, err := config.InitDB()
		if err != nil {
			log.Printf("ERROR: Database connection failed: %v", err)
			log.Println("Service will continue in limited mode (health check only)")
			return
		}

		log.Println("Running database migrations...")
		if err := models.MigrateAlertModels(db); err != nil {
			log.Printf("ERROR: Migration failed: %v", err)
		} else {
			log.Println("Database migrations completed successfully")
		}

		// Market price source: redis cache plus optional live fallback
		quoteCache := marketdata.NewRedisQuoteCache(config.NewRedisClient())
		var fallback marketdata.QuoteProvider
		if cfg.QuoteProviderURL != "" {
			fallback = marketdata.NewHTTPQuoteProvider(cfg.QuoteProviderURL)
		}
		priceSource := marketdata.NewPriceSource(quoteCache, fallback,
			time.Duration(cfg.QuoteFreshnessMinutes)*time.Minute)

		// Notification channels
		var emailSender *notify.EmailSender
		if cfg.SendGridAPIKey != "" {
			emailSender = notify.NewEmailSender(cfg.SendGridAPIKey, cfg.FromEmail, cfg.FromName, cfg.FrontendURL)
		} else {
			log.Println("SendGrid API key not configured, email notifications disabled")
		}

		var inappStore *notify.InAppStore
		if cfg.MongoURI != "" {
			inappStore, err = notify.NewInAppStore(cfg.MongoURI)
			if err != nil {
				log.Printf("MongoDB not available, in-app notifications disabled: %v", err)
			}
		} else {
			log.Println("MONGODB_URI not set, in-app notifications disabled")
		}

		var publisher *notify.SignalPublisher
		if len(cfg.KafkaBrokers) > 0 {
			publisher, err = notify.NewSignalPublisher(cfg.KafkaBrokers, cfg.KafkaSignalTopic)
			if err != nil {
				log.Printf("Kafka not available, signal events disabled: %v", err)
				publisher = nil
			}
		} else {
			log.Println("KAFKA_BROKERS not set, signal events disabled")
		}

		hub := notify.NewStreamHub()
		dispatcher := notify.NewService(emailSender, inappStore, hub, publisher)

		executor := execution.NewHTTPExecutor(cfg.ExecutionServiceURL)
		store := alerts.NewGormStore(db)

		monitor, err := alerts.NewMonitor(store, priceSource, executor, dispatcher)
		if err != nil {
			log.Printf("ERROR: Failed to create monitor: %v", err)
			initMutex.Lock()
			streamHub = hub
			eventPublisher = publisher
			initMutex.Unlock()
			return
		}

		routes.SetupRoutes(router, db, monitor, dispatcher, hub)

		sched := scheduler.NewScheduler(monitor)
		sched.Start()

		// Publish the handles to the shutdown path in one step
		initMutex.Lock()
		dbInitialized = true
		jobScheduler = sched
		streamHub = hub
		eventPublisher = publisher
		initMutex.Unlock()

		log.Println("Application fully initialized with database")
	}()

	gracefulShutdown(server, &jobScheduler, &streamHub, &eventPublisher)
}

// setupHealthEndpoints sets up liveness and readiness probes
func setupHealthEndpoints(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Alert Monitor Service",
			"version": "1.0.0",
		})
	})

	// Liveness probe - always returns OK if server is running
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Readiness probe - checks if service is ready to receive traffic
	router.GET("/ready", func(c *gin.Context) {
		initMutex.RLock()
		isDBReady := dbInitialized
		initMutex.RUnlock()

		if !isDBReady {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database not connected",
			})
			return
		}

		sqlDB, err := config.DB.DB()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database connection error",
			})
			return
		}

		if err := sqlDB.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database ping failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	})
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks to reduce noise
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		// Only log errors or slow requests
		if c.Writer.Status() >= 400 || duration > 1*time.Second {
			log.Printf("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}

// gracefulShutdown handles graceful shutdown of the server
func gracefulShutdown(server *http.Server, jobScheduler **scheduler.Scheduler, streamHub **notify.StreamHub, eventPublisher **notify.SignalPublisher) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal %v, shutting down gracefully...", sig)

	initMutex.RLock()
	sched := *jobScheduler
	hub := *streamHub
	publisher := *eventPublisher
	initMutex.RUnlock()

	// Stop the scheduler first: the current pass finishes, no new ones start
	if sched != nil {
		sched.Stop()
	}
	if hub != nil {
		hub.Shutdown()
	}
	if publisher != nil {
		publisher.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if config.DB != nil {
		sqlDB, err := config.DB.DB()
		if err == nil {
			sqlDB.Close()
			log.Println("Database connection closed")
		}
	}

	log.Println("Server shutdown completed")
}
