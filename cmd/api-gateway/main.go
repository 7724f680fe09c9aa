package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/college-staff-api/api/swagger"
	"github.com/noah-isme/college-staff-api/internal/handler"
	"github.com/noah-isme/college-staff-api/internal/messenger"
	"github.com/noah-isme/college-staff-api/internal/middleware"
	"github.com/noah-isme/college-staff-api/internal/repository"
	"github.com/noah-isme/college-staff-api/internal/service"
	"github.com/noah-isme/college-staff-api/pkg/cache"
	"github.com/noah-isme/college-staff-api/pkg/config"
	"github.com/noah-isme/college-staff-api/pkg/database"
	"github.com/noah-isme/college-staff-api/pkg/jobs"
	"github.com/noah-isme/college-staff-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/college-staff-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/college-staff-api/pkg/middleware/requestid"
	"github.com/noah-isme/college-staff-api/pkg/storage"
)

// @title College Staff API
// @version 1.0.0
// @description Staff scheduling, leave approval and attendance for college departments
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const reportCleanupInterval = 30 * time.Minute

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	validate := service.NewValidator()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			redisRepo := repository.NewCacheRepository(client)
			defer redisRepo.Close()
			cacheRepo = redisRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	var sender messenger.Sender = messenger.NewLogSender(logr)
	if cfg.Messenger.Enabled {
		maxSender, err := messenger.NewMaxSender(cfg.Messenger.Token)
		if err != nil {
			return fmt.Errorf("init messenger: %w", err)
		}
		sender = maxSender
	}
	deliveries := jobs.NewQueue("messenger", service.NewMessengerJobHandler(sender, metrics, 10*time.Second), jobs.QueueConfig{
		Workers:    cfg.Messenger.Workers,
		MaxRetries: cfg.Messenger.MaxRetries,
		RetryDelay: cfg.Messenger.RetryDelay,
		Logger:     logr,
	})
	deliveries.Start(ctx)
	defer deliveries.Stop()

	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return fmt.Errorf("init report storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	location := cfg.Attendance.Location()
	cutoffHour, cutoffMinute := cfg.Attendance.CutoffClock()

	availability := service.NewAvailabilityChecker(leaveRepo, assignmentRepo)
	notifier := service.NewNotifier(notificationRepo, deliveries, metrics, logr)

	authSvc := service.NewAuthService(userRepo, staffRepo, activityRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		TOTPIssuer:        cfg.Auth.TOTPIssuer,
	})
	leaveSvc := service.NewLeaveService(
		db,
		leaveRepo,
		staffRepo,
		service.NewSlotResolver(timetableRepo),
		service.NewAssignmentMaterializer(assignmentRepo, availability),
		service.NewAttendanceSynchronizer(attendanceRepo),
		notifier,
		activityRepo,
		cacheSvc,
		metrics,
		validate,
		logr,
	)
	attendanceSvc := service.NewAttendanceService(db, attendanceRepo, leaveRepo, activityRepo, metrics, service.AttendancePolicy{
		Location:     location,
		CutoffHour:   cutoffHour,
		CutoffMinute: cutoffMinute,
	}, validate, logr)
	activitySvc := service.NewActivityService(activityRepo, userRepo, logr)
	reportSvc := service.NewReportService(attendanceRepo, files, signer, validate, logr, service.ReportServiceConfig{
		DownloadBaseURL: cfg.APIPrefix + "/reports/download",
		ResultTTL:       cfg.Reports.SignedURLTTL,
	})

	handlers := handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Staff:         handler.NewStaffHandler(service.NewStaffService(db, staffRepo, userRepo, activityRepo, cacheSvc, validate, logr)),
		Timetables:    handler.NewTimetableHandler(service.NewTimetableService(timetableRepo, staffRepo, validate, logr)),
		Leaves:        handler.NewLeaveHandler(leaveSvc),
		Attendance:    handler.NewAttendanceHandler(attendanceSvc),
		Assignments:   handler.NewAssignmentHandler(service.NewAssignmentService(db, assignmentRepo, staffRepo, availability, notifier, activityRepo, cacheSvc, location, validate, logr)),
		Notifications: handler.NewNotificationHandler(service.NewNotificationService(notificationRepo, logr)),
		Audit:         handler.NewAuditHandler(activitySvc),
		Stats:         handler.NewStatsHandler(service.NewStatsService(staffRepo, userRepo, leaveRepo, cacheSvc, metrics, logr)),
		Reports:       handler.NewReportHandler(reportSvc),
	}
	ops := handler.NewMetricsHandler(metrics, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handlers, authSvc, activitySvc)

	go cleanupReports(ctx, reportSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func cleanupReports(ctx context.Context, reports *service.ReportService) {
	ticker := time.NewTicker(reportCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reports.Cleanup(ctx)
		}
	}
}
