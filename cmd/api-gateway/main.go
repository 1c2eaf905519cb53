package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/edusphere/course-api/api/swagger"
	"github.com/edusphere/course-api/internal/handler"
	"github.com/edusphere/course-api/internal/middleware"
	"github.com/edusphere/course-api/internal/repository"
	"github.com/edusphere/course-api/internal/service"
	"github.com/edusphere/course-api/pkg/cache"
	"github.com/edusphere/course-api/pkg/config"
	"github.com/edusphere/course-api/pkg/database"
	"github.com/edusphere/course-api/pkg/jobs"
	"github.com/edusphere/course-api/pkg/logger"
	"github.com/edusphere/course-api/pkg/middleware/cors"
	"github.com/edusphere/course-api/pkg/middleware/requestid"
	"github.com/edusphere/course-api/pkg/storage"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}

	local, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		return fmt.Errorf("init local storage: %w", err)
	}

	var blobs storage.BlobStore
	if cfg.Env == config.EnvProduction && cfg.Cloudinary.URL != "" {
		store, err := storage.NewCloudinaryStore(cfg.Cloudinary.URL)
		if err != nil {
			return fmt.Errorf("init cloudinary: %w", err)
		}
		blobs = store
		log.Info("uploads go to cloudinary", zap.String("folder", cfg.Cloudinary.Folder))
	} else {
		log.Info("uploads go to local disk", zap.String("dir", cfg.Uploads.StorageDir))
	}

	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	// Repositories.
	moduleRepo := repository.NewModuleRepository(db)
	userRepo := repository.NewUserRepository(db)
	var cacheRepo service.CacheStore
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, log)
	}

	// Services.
	metrics := service.NewMetricsService()
	uploads := service.NewUploadService(cfg.Uploads, local, blobs, cfg.Cloudinary.Folder, metrics, log)

	deleteQueue := jobs.NewQueue("file-delete", func(ctx context.Context, job jobs.Job) error {
		return uploads.Remove(ctx, job.Locator)
	}, jobs.QueueConfig{Workers: 2, Logger: log})

	moduleSvc := service.NewModuleService(moduleRepo, cacheRepo, cfg.Cache, deleteQueue, log)
	attachmentSvc := service.NewAttachmentService(moduleRepo, uploads, cacheRepo, deleteQueue, log)
	cleanupSvc := service.NewCleanupService(moduleRepo, deleteQueue, cfg.Sweeper, metrics, log)
	authSvc := service.NewAuthService(userRepo, cfg.JWT, log)

	// Background workers.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	deleteQueue.Start(ctx)
	defer deleteQueue.Stop()
	cleanupSvc.Start(ctx)

	// HTTP surface.
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.Middleware())
	router.Use(cors.New(cfg.CORS.AllowedOrigins))
	router.Use(logger.GinMiddleware(log))
	router.Use(metrics.Middleware())
	router.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes

	healthHandler := handler.NewHealthHandler(db, redisClient, version)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", metrics.Handler())
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes := handler.Routes{
		Auth:    handler.NewAuthHandler(authSvc, log),
		Modules: handler.NewModuleHandler(moduleSvc, attachmentSvc, cfg.Uploads.MaxFilesPerBatch, log),
		Files:   handler.NewFileHandler(signer, local, cfg.Uploads.PublicBasePath, log),
		AuthMW:  middleware.Authentication(authSvc),
	}
	routes.Register(router.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
