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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/ficha-clinica-api/internal/handler"
	internalmw "github.com/noah-isme/ficha-clinica-api/internal/middleware"
	"github.com/noah-isme/ficha-clinica-api/internal/repository"
	"github.com/noah-isme/ficha-clinica-api/internal/service"
	"github.com/noah-isme/ficha-clinica-api/pkg/cache"
	"github.com/noah-isme/ficha-clinica-api/pkg/config"
	"github.com/noah-isme/ficha-clinica-api/pkg/database"
	"github.com/noah-isme/ficha-clinica-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ficha-clinica-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ficha-clinica-api/pkg/middleware/requestid"
	"github.com/noah-isme/ficha-clinica-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, aggregate cache disabled", "error", err)
			redisClient = nil
		}
	}

	attachmentStore, err := storage.NewLocalStorage(cfg.Attachments.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init attachment storage", "error", err)
	}
	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}

	notifier := repository.NewNotifier()
	patientRepo := repository.NewPatientRepository(db, notifier)
	sessionRepo := repository.NewSessionRepository(db, notifier, nil, nil)
	cacheRepo := repository.NewCacheRepository(redisClient, logr, cfg.Redis.CacheTTL)

	attachmentSigner := storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)
	exportSigner := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	patientSvc := service.NewPatientService(patientRepo, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, cacheRepo, attachmentStore, attachmentSigner, logr)
	ingestSvc := service.NewAttachmentService(attachmentStore, cfg.Attachments.MaxFileSizeBytes, logr)
	exportSvc := service.NewExportService(sessionRepo, cacheRepo, exportStore, exportSigner, service.ExportServiceConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
		Workers:         cfg.Exports.WorkerConcurrency,
	}, logr)

	formManager := service.NewFormManager(service.FormServiceConfig{
		Patients:      patientRepo,
		Sessions:      sessionRepo,
		Ingestor:      ingestSvc,
		Cache:         cacheRepo,
		Metrics:       metricsSvc,
		Logger:        logr,
		BootstrapPick: cfg.Sessions.BootstrapPick,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	exportSvc.Start(ctx)
	defer exportSvc.Stop()
	defer formManager.CloseAll()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmw.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Patients: handler.NewPatientHandler(patientSvc),
		Forms:    handler.NewFormHandler(formManager),
		Sessions: handler.NewSessionHandler(sessionSvc, cfg.APIPrefix),
		Exports:  handler.NewExportHandler(exportSvc),
		Metrics:  metricsSvc.Handler(),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
