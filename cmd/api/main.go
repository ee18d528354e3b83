package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edumarket/edumarket-api/api/swagger"
	"github.com/edumarket/edumarket-api/internal/handler"
	"github.com/edumarket/edumarket-api/internal/middleware"
	"github.com/edumarket/edumarket-api/internal/models"
	"github.com/edumarket/edumarket-api/internal/repository"
	"github.com/edumarket/edumarket-api/internal/seed"
	"github.com/edumarket/edumarket-api/internal/service"
	"github.com/edumarket/edumarket-api/pkg/cache"
	"github.com/edumarket/edumarket-api/pkg/config"
	"github.com/edumarket/edumarket-api/pkg/database"
	"github.com/edumarket/edumarket-api/pkg/logger"
	corsmiddleware "github.com/edumarket/edumarket-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edumarket/edumarket-api/pkg/middleware/requestid"
)

// @title EduMarket API
// @version 1.0.0
// @description Tutoring marketplace portal API
// @BasePath /api/v1
// @schemes http

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, roster caching disabled", "error", err)
		redisClient = nil
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	teacherRequestRepo := repository.NewTeacherRequestRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	seeder := seed.New(subjectRepo, teacherRepo, userRepo, cfg, logr)
	if err := seeder.Run(context.Background()); err != nil {
		logr.Sugar().Fatalw("seeding failed", "error", err)
	}

	// Services.
	validate := validator.New()
	metricsService := service.NewMetricsService()

	notificationService := service.NewNotificationService(cfg.Notification, settingsRepo, metricsService, logr)
	notificationService.Start(context.Background())
	defer notificationService.Stop()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	applicationService := service.NewApplicationService(applicationRepo, teacherRepo, subjectRepo, userRepo, notificationService, validate, logr, cfg.Lessons.RoomPrefix)
	teacherRequestService := service.NewTeacherRequestService(teacherRequestRepo, teacherRepo, notificationService, validate, logr, service.RosterDefaults{
		BaselinePricePerHour: cfg.Roster.BaselinePricePerHour,
		AvatarURLTemplate:    cfg.Roster.AvatarURLTemplate,
	})
	rosterService := service.NewRosterService(teacherRepo, cacheRepo, cfg.Roster.EligibleCacheTTL, validate, logr)
	subjectService := service.NewSubjectService(subjectRepo)
	settingsService := service.NewSettingsService(settingsRepo, cfg.Notification, validate, logr)
	reportService := service.NewReportService(applicationRepo, subjectRepo, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	applicationHandler := handler.NewApplicationHandler(applicationService, metricsService)
	teacherRequestHandler := handler.NewTeacherRequestHandler(teacherRequestService, rosterService, metricsService)
	teacherHandler := handler.NewTeacherHandler(rosterService)
	subjectHandler := handler.NewSubjectHandler(subjectService)
	settingsHandler := handler.NewSettingsHandler(settingsService)
	reportHandler := handler.NewReportHandler(reportService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "reason": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
	}

	subjects := api.Group("/subjects")
	{
		subjects.GET("", subjectHandler.List)
		subjects.GET("/:id", subjectHandler.Get)
	}

	teachers := api.Group("/teachers")
	{
		teachers.GET("", teacherHandler.List)
		teachers.GET("/eligible", teacherHandler.Eligible)
		teachers.GET("/:id", teacherHandler.Get)
		teachers.PUT("/:id", middleware.JWT(authService), middleware.RBAC(string(models.RoleAdmin), "SELF"), teacherHandler.Update)
		teachers.DELETE("/:id", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin), teacherHandler.Deactivate)
	}

	applications := api.Group("/applications")
	{
		applications.POST("", middleware.OptionalJWT(authService), applicationHandler.Submit)
		applications.GET("", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin), applicationHandler.List)
		applications.GET("/my", middleware.JWT(authService), applicationHandler.My)
		applications.GET("/open", middleware.JWT(authService), middleware.RequireRoles(models.RoleTeacher), applicationHandler.Open)
		applications.GET("/export", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin), reportHandler.ExportApplications)
		applications.POST("/:id/assign", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), applicationHandler.Assign)
		applications.POST("/:id/complete", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), applicationHandler.Complete)
	}

	teacherRequests := api.Group("/teacher-requests")
	{
		teacherRequests.POST("", teacherRequestHandler.Submit)
		teacherRequests.GET("", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin), teacherRequestHandler.List)
		teacherRequests.POST("/:id/approve", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin), teacherRequestHandler.Approve)
		teacherRequests.POST("/:id/reject", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin), teacherRequestHandler.Reject)
	}

	settings := api.Group("/settings", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	{
		settings.GET("", settingsHandler.Get)
		settings.PUT("", settingsHandler.Update)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
