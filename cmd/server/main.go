package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sreekanthrajagopalan/uclfantasybot/internal/api/handlers"
	"github.com/sreekanthrajagopalan/uclfantasybot/internal/cache"
	"github.com/sreekanthrajagopalan/uclfantasybot/internal/config"
	"github.com/sreekanthrajagopalan/uclfantasybot/internal/solver"
	"github.com/sreekanthrajagopalan/uclfantasybot/pkg/logger"
)

// requestLogger tags every request with an id and logs its outcome.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Writer.Header().Set("X-Request-ID", requestID)
		start := time.Now()

		c.Next()

		logger.WithRequestContext(requestID, c.Request.URL.Path).WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Request handled")
	}
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logger with service context
	structuredLogger := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	logger.WithService("squad-optimizer").WithFields(logrus.Fields{
		"environment": cfg.Env,
		"port":        cfg.Port,
	}).Info("Starting Squad Optimizer Service")

	// Fail fast on a misconfigured rule set rather than at first request
	if _, err := cfg.Rules(); err != nil {
		logger.WithService("squad-optimizer").Fatalf("Invalid rule configuration: %v", err)
	}

	// Setup Gin mode
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to Redis for the solution cache. The optimizer works
	// without it, so a missing Redis only disables caching.
	var redisClient *redis.Client
	var cacheService *cache.SolutionCacheService
	if opt, err := redis.ParseURL(cfg.RedisURL); err != nil {
		logger.WithService("squad-optimizer").WithError(err).Warn("Invalid Redis URL, caching disabled")
	} else {
		redisClient = redis.NewClient(opt)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithService("squad-optimizer").WithError(err).Warn("Redis unreachable, caching disabled")
			redisClient.Close()
			redisClient = nil
		} else {
			cacheService = cache.NewSolutionCacheService(redisClient, structuredLogger)
			defer redisClient.Close()
		}
		cancel()
	}

	// The MIP solver behind the optimization endpoints
	mipSolver := solver.NewBranchBound(logger.WithService("squad-optimizer"))

	// Initialize router
	router := gin.New()
	router.Use(requestLogger(), gin.Recovery())

	// Initialize handlers
	optimizationHandler := handlers.NewOptimizationHandler(
		mipSolver,
		cacheService,
		cfg,
		structuredLogger,
	)
	healthHandler := handlers.NewHealthHandler(redisClient, structuredLogger)

	// Setup API routes
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/optimize", optimizationHandler.OptimizeSquad)
		apiV1.POST("/optimize/validate", optimizationHandler.ValidateRequest)
	}

	// Health check endpoints
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.WithService("squad-optimizer").WithField("port", cfg.Port).Info("Squad optimizer service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithService("squad-optimizer").Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.WithService("squad-optimizer").Info("Shutting down squad optimizer service...")

	// The server has 5 seconds to finish the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithService("squad-optimizer").Fatalf("Squad optimizer service forced to shutdown: %v", err)
	}

	logger.WithService("squad-optimizer").Info("Squad optimizer service exited")
}
