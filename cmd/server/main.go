package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modelfactory/portal/internal/config"
	"github.com/modelfactory/portal/internal/domain"
	"github.com/modelfactory/portal/internal/handler"
	"github.com/modelfactory/portal/internal/middleware"
	"github.com/modelfactory/portal/internal/repository"
	"github.com/modelfactory/portal/internal/service"
	"github.com/modelfactory/portal/internal/storage"
	"github.com/modelfactory/portal/internal/ws"
	"github.com/modelfactory/portal/pkg/database"
	"github.com/modelfactory/portal/pkg/jwt"
	"github.com/modelfactory/portal/pkg/logger"
	"github.com/modelfactory/portal/pkg/ratelimit"
	"github.com/modelfactory/portal/pkg/redis"
	"github.com/modelfactory/portal/pkg/response"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Log.ToLoggerConfig()); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting model portal",
		zap.Int("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode))

	db, err := database.New(cfg.Database.ToDatabaseConfig())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := domain.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to auto migrate", zap.Error(err))
	}

	ctx := context.Background()

	blobs, err := storage.NewMinioStore(ctx, cfg.Storage.ToStorageConfig())
	if err != nil {
		logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	jwtManager := jwt.NewManager(cfg.JWT.ToJWTConfig())

	hub := ws.NewHub()
	defer hub.Close()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	factoryRepo := repository.NewFactoryRepository(db)
	algorithmRepo := repository.NewAlgorithmRepository(db)
	modelRepo := repository.NewModelRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	fileRepo := repository.NewFileRepository(db)

	// Services
	authService := service.NewAuthService(userRepo, jwtManager)
	factoryService := service.NewFactoryService(factoryRepo, algorithmRepo, modelRepo, hub)
	lifecycleService := service.NewLifecycleService(db, algorithmRepo, modelRepo, versionRepo, fileRepo, blobs, hub)
	fileService := service.NewFileService(modelRepo, fileRepo, blobs, hub, cfg.Storage.PresignedExpiry)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	factoryHandler := handler.NewFactoryHandler(factoryService)
	modelHandler := handler.NewModelHandler(lifecycleService)
	fileHandler := handler.NewFileHandler(fileService, cfg.Upload.MaxSize)
	wsHandler := handler.NewWSHandler(hub)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS())

	if cfg.RateLimit.Enabled {
		rdb, err := redis.New(cfg.Redis.ToRedisConfig())
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		limiter := ratelimit.NewTokenBucket(rdb, cfg.RateLimit.ToRateLimitConfig(), "portal:")
		router.Use(middleware.RateLimit(limiter))
	}

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{
			"status":    "healthy",
			"service":   "model-portal",
			"timestamp": time.Now().Unix(),
		})
	})
	router.GET("/ready", func(c *gin.Context) {
		if err := database.HealthCheck(db); err != nil {
			response.Error(c, http.StatusServiceUnavailable, "database not ready")
			return
		}
		response.Success(c, gin.H{"status": "ready", "service": "model-portal"})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
		}

		authenticated := v1.Group("")
		authenticated.Use(middleware.JWTAuth(jwtManager))
		{
			authenticated.GET("/auth/me", authHandler.Me)
			authenticated.GET("/dashboard/stats", factoryHandler.DashboardStats)

			factories := authenticated.Group("/factories")
			{
				factories.POST("", factoryHandler.Create)
				factories.GET("", factoryHandler.List)
				factories.GET("/:id", factoryHandler.Get)
				factories.DELETE("/:id", factoryHandler.Delete)
				factories.POST("/:id/algorithms", factoryHandler.CreateAlgorithm)
				factories.GET("/:id/algorithms", factoryHandler.ListAlgorithms)
			}

			algorithms := authenticated.Group("/algorithms")
			{
				algorithms.GET("/:id", factoryHandler.GetAlgorithm)
				algorithms.DELETE("/:id", factoryHandler.DeleteAlgorithm)
				algorithms.POST("/:id/models", modelHandler.Create)
				algorithms.GET("/:id/models", modelHandler.List)
			}

			models := authenticated.Group("/models")
			{
				models.GET("/:id", modelHandler.Get)
				models.DELETE("/:id", modelHandler.Delete)
				models.GET("/:id/versions", modelHandler.ListVersions)
				models.POST("/:id/promote", modelHandler.Promote)
				models.POST("/:id/rollback", modelHandler.Rollback)
				models.POST("/:id/archive", modelHandler.Archive)
				models.POST("/:id/files", fileHandler.Upload)
				models.GET("/:id/files", fileHandler.List)
			}

			files := authenticated.Group("/files")
			{
				files.GET("/:id/download", fileHandler.Download)
				files.DELETE("/:id", fileHandler.Delete)
			}
		}

		wsGroup := v1.Group("/ws")
		wsGroup.Use(middleware.JWTAuthWebSocket(jwtManager))
		{
			wsGroup.GET("/notifications", wsHandler.Notifications)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
