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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/priyansh-dev/privacy-lens/server/cache"
	"github.com/priyansh-dev/privacy-lens/server/classify"
	"github.com/priyansh-dev/privacy-lens/server/config"
	"github.com/priyansh-dev/privacy-lens/server/detect"
	"github.com/priyansh-dev/privacy-lens/server/exif"
	"github.com/priyansh-dev/privacy-lens/server/frames"
	"github.com/priyansh-dev/privacy-lens/server/handlers"
	"github.com/priyansh-dev/privacy-lens/server/media"
	"github.com/priyansh-dev/privacy-lens/server/middleware"
	"github.com/priyansh-dev/privacy-lens/server/processor"
	"github.com/priyansh-dev/privacy-lens/server/risk"
)

type Server struct {
	router      *gin.Engine
	logger      *zap.Logger
	pipeline    *processor.Pipeline
	store       *media.Store
	cache       cache.Cache
	rateLimiter *middleware.RateLimiter
	config      *config.Config
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.LoadConfig()

	var logger *zap.Logger
	var err error

	if cfg.Logging.Format == "json" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	if err := cfg.ValidateConfig(logger); err != nil {
		logger.Fatal("Configuration validation failed", zap.Error(err))
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment))

		var err error
		if cfg.Security.EnableHTTPS {
			err = srv.ListenAndServeTLS(cfg.Security.CertFile, cfg.Security.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if server.rateLimiter != nil {
		server.rateLimiter.Shutdown()
	}

	if server.cache != nil {
		if err := server.cache.Close(); err != nil {
			logger.Error("Failed to close cache", zap.Error(err))
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Try Redis first, fall back to the in-process cache.
	var cacheInstance cache.Cache
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL, cfg.Redis.TTL, logger)
		if err != nil {
			logger.Warn("Failed to connect to Redis, using memory cache", zap.Error(err))
			cacheInstance = cache.NewMemoryCache(1000, cfg.Redis.TTL, logger)
		} else {
			cacheInstance = redisCache
		}
	} else {
		cacheInstance = cache.NewMemoryCache(1000, cfg.Redis.TTL, logger)
	}

	store, err := media.NewStore(cfg.Upload.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload store: %w", err)
	}

	registry := detect.NewRegistry(cfg.Detectors, logger)
	classifier := classify.New(cfg.Analysis.Classifier)
	orchestrator := detect.NewOrchestrator(registry, classifier, cfg.Analysis.Detection, logger)

	pipeline := processor.NewPipeline(
		exif.NewExtractor(logger),
		frames.NewSampler(cfg.Analysis.Video.MaxFrames, logger),
		orchestrator,
		risk.NewScorer(cfg.Analysis.Risk, cfg.Analysis.Detection.LocationLabels),
		risk.NewRecommender(),
		cacheInstance,
		cfg.Analysis.Video,
		logger,
	)

	rateLimiter := middleware.NewRateLimiter(
		cfg.Security.RateLimitRPS,
		cfg.Security.RateLimitBurst,
		logger,
	)

	router := gin.New()

	router.Use(middleware.RequestLogger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Security.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.RequestSizeLimit(cfg.Upload.MaxSize))
	router.Use(middleware.TimeoutHandler(cfg.Security.RequestTimeout))

	analyzeHandler := handlers.NewAnalyzeHandler(pipeline, store, cfg, logger)
	wsHandler := handlers.NewWebSocketHandler(pipeline, logger)

	setupRoutes(router, analyzeHandler, wsHandler, registry, rateLimiter)

	return &Server{
		router:      router,
		logger:      logger,
		pipeline:    pipeline,
		store:       store,
		cache:       cacheInstance,
		rateLimiter: rateLimiter,
		config:      cfg,
	}, nil
}

func setupRoutes(router *gin.Engine, analyze *handlers.AnalyzeHandler, ws *handlers.WebSocketHandler, registry *detect.Registry, rateLimiter *middleware.RateLimiter) {
	router.GET("/health", analyze.Health)

	router.GET("/ws", rateLimiter.RateLimit(), ws.HandleWebSocket)

	api := router.Group("/api")
	api.Use(rateLimiter.RateLimit())
	{
		api.POST("/analyze-image", analyze.AnalyzeImage)
		api.POST("/analyze-video", analyze.AnalyzeVideo)
		api.POST("/strip-metadata", analyze.StripMetadata)
		api.POST("/remove-exif", analyze.RemoveEXIF)

		api.GET("/stats", analyze.Stats)
		api.GET("/detectors", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"detectors": registry.Status()})
		})
	}
}
