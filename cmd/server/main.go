// Package main is the entry point for the Stillwater API server.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stillwater-labs/stillwater/internal/config"
	"github.com/stillwater-labs/stillwater/internal/database"
	"github.com/stillwater-labs/stillwater/internal/handler"
	"github.com/stillwater-labs/stillwater/internal/middleware"
	"github.com/stillwater-labs/stillwater/internal/realtime"
	"github.com/stillwater-labs/stillwater/internal/pkg/response"
	"github.com/stillwater-labs/stillwater/internal/repository"
	"github.com/stillwater-labs/stillwater/internal/service"
	"github.com/stillwater-labs/stillwater/internal/worker"
)

func main() {
	// Setup structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Starting Stillwater API",
		slog.String("environment", cfg.Server.Environment),
		slog.Int("port", cfg.Server.Port),
	)

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	if err := db.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database migrations completed")

	// Connect to Redis
	redis, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	// Repositories
	userRepo := repository.NewUserRepository(db.Pool())
	meditationRepo := repository.NewMeditationRepository(db.Pool())
	sessionRepo := repository.NewSessionRepository(db.Pool())
	analyticsRepo := repository.NewAnalyticsRepository(db.Pool())
	achievementRepo := repository.NewAchievementRepository(db.Pool())
	groupRepo := repository.NewGroupSessionRepository(db.Pool())
	chatRepo := repository.NewChatRepository(db.Pool())
	friendRepo := repository.NewFriendRepository(db.Pool())

	// Realtime event fanout
	publisher := realtime.NewRedisPublisher(redis)
	hub := realtime.NewHub(redis, publisher, logger)

	// Background task queue
	taskClient := worker.NewClient(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	defer taskClient.Close()

	// Services
	achievementService := service.NewAchievementService(achievementRepo, sessionRepo, logger)
	authService := service.NewAuthService(userRepo, achievementService, redis, cfg.Auth)
	meditationService := service.NewMeditationService(meditationRepo)
	sessionService := service.NewSessionService(sessionRepo, meditationRepo, taskClient, logger)
	analyticsService := service.NewAnalyticsService(analyticsRepo)
	groupService := service.NewGroupSessionService(groupRepo, meditationRepo, userRepo, chatRepo, publisher, logger)
	chatService := service.NewChatService(chatRepo, groupRepo, publisher, logger)
	friendService := service.NewFriendService(friendRepo, userRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	meditationHandler := handler.NewMeditationHandler(meditationService)
	sessionHandler := handler.NewSessionHandler(sessionService, analyticsService)
	achievementHandler := handler.NewAchievementHandler(achievementService)
	groupHandler := handler.NewGroupSessionHandler(groupService, chatService)
	friendHandler := handler.NewFriendHandler(friendService)
	exportHandler := handler.NewExportHandler(analyticsService)
	wsHandler := handler.NewWSHandler(hub)

	authMW := middleware.Auth(authService.ValidateToken)

	// Background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)

	processor := worker.NewProcessor(achievementService, sessionRepo, cfg.Redis, cfg.Worker, logger)
	if err := processor.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	// Setup router
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())
	r.Use(chimiddleware.Timeout(30 * time.Second))

	// Health check endpoints (no auth required)
	r.Get("/health", healthHandler())
	r.Get("/ready", readyHandler(db, redis))
	r.Handle("/metrics", promhttp.Handler())

	// Websocket endpoint. Browser clients pass the token as a query
	// parameter since they cannot set headers on the upgrade request.
	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Get("/ws", wsHandler.Serve)
	})

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(redis, middleware.DefaultRateLimitConfig()))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			response.OK(w, map[string]string{
				"name":    "Stillwater API",
				"version": "1.0.0",
			})
		})

		r.Mount("/auth", authHandler.Routes(authMW))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMW)

			r.Mount("/meditations", meditationHandler.Routes())
			r.Mount("/sessions", sessionHandler.Routes())
			r.Mount("/achievements", achievementHandler.Routes())
			r.Mount("/group-sessions", groupHandler.Routes())
			r.Mount("/friends", friendHandler.Routes())
			r.Mount("/export", exportHandler.Routes())
		})
	})

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down server", slog.String("signal", sig.String()))

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	cancel()
	processor.Stop()

	logger.Info("Server stopped gracefully")
}

// healthHandler returns a simple health check that always succeeds if the server is running.
func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}

// readyHandler returns a readiness check that verifies database and Redis connections.
func readyHandler(db *database.Postgres, redis *database.Redis) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","component":"database"}`))
			return
		}

		if err := redis.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","component":"redis"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","database":"connected","redis":"connected"}`))
	}
}
