package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"habitloop/internal/config"
	"habitloop/internal/database"
	"habitloop/internal/handlers"
	"habitloop/internal/metrics"
	"habitloop/internal/middleware/ratelimit"
	"habitloop/internal/services"
)

func main() {

	// Load configuration
	cfg := config.Load()

	// Initialize database
	log.Printf("Connecting to database with DSN: %s", cfg.DSN)
	db, err := database.NewConnection(cfg.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.InitSchema(db); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	if err := database.SeedAchievements(db); err != nil {
		log.Fatalf("Failed to seed achievements: %v", err)
	}

	// Initialize Redis
	redisClient, err := database.NewRedisConnection(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize services
	habitService := services.NewHabitService(db)
	completionService := services.NewCompletionService(db)
	statsService := services.NewStatsService(db)
	counts := services.NewCounts(db)
	achievementService := services.NewAchievementService(db, counts, statsService)
	feedService := services.NewFeedService(db)
	rateLimiter := ratelimit.NewRateLimiter(cfg.RateLimitPerMin)

	// Initialize metrics
	registry := prometheus.NewRegistry()
	metrics.MustRegister(registry)

	// Initialize Echo
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize handlers
	h := handlers.NewHandler(habitService, completionService, statsService,
		achievementService, achievementService, feedService, rateLimiter, redisClient)

	// Routes
	e.GET("/health", h.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	e.POST("/habits", h.CreateHabit, h.UserScope)
	e.GET("/habits", h.GetHabits, h.UserScope)
	e.GET("/habits/:id", h.GetHabit, h.UserScope)
	e.PUT("/habits/:id", h.UpdateHabit, h.UserScope)
	e.POST("/habits/:id/archive", h.ArchiveHabit, h.UserScope)
	e.DELETE("/habits/:id", h.DeleteHabit, h.UserScope)
	e.POST("/habits/:id/toggle", h.ToggleHabit, h.UserScope)

	e.GET("/analytics", h.GetAnalytics, h.UserScope)
	e.GET("/user/stats", h.GetUserStats, h.UserScope)

	e.GET("/achievements", h.GetEarnedAchievements, h.UserScope)
	e.GET("/achievements/available", h.GetAvailableAchievements, h.UserScope)
	e.GET("/achievements/:id/progress", h.GetAchievementProgress, h.UserScope)
	e.POST("/achievements/check", h.CheckAchievements, h.UserScope)

	e.GET("/friends", h.GetFriends, h.UserScope)
	e.POST("/friends", h.AddFriend, h.UserScope)
	e.GET("/feed", h.GetFeed, h.UserScope)

	// Start server
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
