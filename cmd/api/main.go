package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/otpas-api/api/swagger"
	"github.com/noah-isme/otpas-api/internal/handler"
	internalmiddleware "github.com/noah-isme/otpas-api/internal/middleware"
	"github.com/noah-isme/otpas-api/internal/models"
	"github.com/noah-isme/otpas-api/internal/policy"
	"github.com/noah-isme/otpas-api/internal/repository"
	"github.com/noah-isme/otpas-api/internal/service"
	"github.com/noah-isme/otpas-api/pkg/cache"
	"github.com/noah-isme/otpas-api/pkg/config"
	"github.com/noah-isme/otpas-api/pkg/database"
	"github.com/noah-isme/otpas-api/pkg/jobs"
	"github.com/noah-isme/otpas-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/otpas-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/otpas-api/pkg/middleware/requestid"
	"github.com/noah-isme/otpas-api/pkg/storage"
)

// @title OTPAS-HU API
// @version 1.0.0
// @description Online thesis and project approval system.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	files, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare upload storage", zap.Error(err))
	}

	permissions, err := policy.DefaultPermissions()
	if err != nil {
		logr.Fatal("failed to load permission table", zap.Error(err))
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	tutorialRepo := repository.NewTutorialRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	resolver := policy.NewStoreResolver(assignmentRepo, projectRepo, tutorialRepo, userRepo)
	engine := policy.NewEngine(policy.Env{Resolver: resolver, Permissions: permissions}, logr, metrics)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, service.CacheConfig{
		Enabled:    redisClient != nil,
		DefaultTTL: cfg.Reports.CacheTTL,
		Namespace:  "otpas",
	}, logr)
	authSvc := service.NewAuthService(userRepo, permissions, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	departmentSvc := service.NewDepartmentService(projectRepo, userRepo, cacheSvc, service.DepartmentConfig{
		ReportsEnabled: cfg.Reports.Enabled,
		CacheTTL:       cfg.Reports.CacheTTL,
	}, logr, nil, nil)

	worker := service.NewNotificationWorker(messageRepo, metrics, logr)
	notifications := jobs.NewQueue("notifications", worker.Handle, jobs.QueueConfig{
		Workers:      cfg.Notifications.Workers,
		MaxRetries:   cfg.Notifications.Retries,
		RetryDelay:   cfg.Notifications.RetryDelay,
		OnDeadLetter: worker.DeadLetter,
		Logger:       logr,
	})
	notifications.Start(ctx)
	notifier := service.NewNotificationService(notifications, metrics, logr)

	uploads := service.UploadConfig{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
	}
	projectSvc := service.NewProjectService(service.ProjectServiceDeps{
		Projects:    projectRepo,
		Evaluations: evaluationRepo,
		Audit:       userRepo,
		Storage:     files,
		Engine:      engine,
		Notifier:    notifier,
		Reports:     departmentSvc,
		Validator:   validate,
		Logger:      logr,
		Uploads:     uploads,
	})
	tutorialSvc := service.NewTutorialService(tutorialRepo, files, userRepo, uploads, logr)
	messageSvc := service.NewMessageService(messageRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, logr)

	dependencies := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		dependencies["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return cache.Ping(ctx, redisClient)
		})
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	router := &handler.Router{
		Auth:         handler.NewAuthHandler(authSvc),
		Users:        handler.NewUserHandler(userSvc),
		Projects:     handler.NewProjectHandler(projectSvc),
		Departments:  handler.NewDepartmentHandler(departmentSvc),
		Tutorials:    handler.NewTutorialHandler(tutorialSvc),
		Messages:     handler.NewMessageHandler(messageSvc),
		Metrics:      handler.NewMetricsHandler(metrics.Handler(), dependencies),
		Authenticate: internalmiddleware.JWT(authSvc),
		Engine:       engine,
		MessageAudit: internalmiddleware.Audit(userRepo, logr, models.AuditActionMessageSend, "message"),
	}
	router.Register(r, cfg.APIPrefix)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	notifications.Stop()
}
