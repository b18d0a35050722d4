// Package app wires configuration, storage, services and HTTP routing into a runnable
// attendance API. Both the server and the admin CLI build on it.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-api/api/swagger"
	"github.com/noah-isme/attendance-api/internal/handler"
	"github.com/noah-isme/attendance-api/internal/middleware"
	"github.com/noah-isme/attendance-api/internal/repository"
	"github.com/noah-isme/attendance-api/internal/service"
	"github.com/noah-isme/attendance-api/pkg/cache"
	"github.com/noah-isme/attendance-api/pkg/config"
	"github.com/noah-isme/attendance-api/pkg/database"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
	"github.com/noah-isme/attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/attendance-api/pkg/middleware/requestid"
	"github.com/noah-isme/attendance-api/pkg/response"
)

// Services exposes the domain services built by the container.
type Services struct {
	Auth        *service.AuthService
	Students    *service.StudentService
	Subjects    *service.SubjectService
	Courses     *service.CourseService
	Enrollments *service.EnrollmentService
	Readiness   *service.ReadinessService
	Attendance  *service.AttendanceService
	Roster      *service.RosterService
	Export      *service.ExportService
	Cache       *service.CacheService
	Metrics     *service.MetricsService
}

// App owns the process-wide resources.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *sqlx.DB
	Redis    *redis.Client
	Services Services

	cacheRepo *repository.CacheRepository
}

// New connects to PostgreSQL and, when enabled, Redis, then builds every service.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("database migrated")
	}

	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if rdb == nil {
		log.Info("redis disabled, caching and idempotency run without a store")
	}

	a := &App{Config: cfg, Logger: log, DB: db, Redis: rdb}
	a.build()
	return a, nil
}

// NewWithDB builds the services on an existing database handle without Redis.
func NewWithDB(cfg *config.Config, log *zap.Logger, db *sqlx.DB) *App {
	a := &App{Config: cfg, Logger: log, DB: db}
	a.build()
	return a
}

func (a *App) build() {
	cfg := a.Config
	validate := validator.New()

	teachers := repository.NewTeacherRepository(a.DB)
	students := repository.NewStudentRepository(a.DB)
	subjects := repository.NewSubjectRepository(a.DB)
	courses := repository.NewCourseRepository(a.DB)
	enrollments := repository.NewEnrollmentRepository(a.DB)
	checkIns := repository.NewCheckInRepository(a.DB)
	a.cacheRepo = repository.NewCacheRepository(a.Redis, a.Logger.Named("cache"))

	metrics := service.NewMetricsService()
	var cacheSvc *service.CacheService
	if a.Redis != nil {
		cacheSvc = service.NewCacheService(a.cacheRepo, metrics, cfg.Cache.TTL, a.Logger.Named("cache"), cfg.Cache.Enabled)
	}

	readiness := service.NewReadinessService(students, subjects, courses, cacheSvc, a.Logger.Named("readiness"))
	attendance := service.NewAttendanceService(checkIns, students, subjects, enrollments, readiness, cacheSvc, metrics,
		cfg.Attendance.Location(), validate, a.Logger.Named("attendance"))

	a.Services = Services{
		Auth: service.NewAuthService(teachers, validate, a.Logger.Named("auth"), service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
		}),
		Students:    service.NewStudentService(students, subjects, courses, cacheSvc, validate, a.Logger.Named("students")),
		Subjects:    service.NewSubjectService(subjects, cacheSvc, validate, a.Logger.Named("subjects")),
		Courses:     service.NewCourseService(courses, subjects, cacheSvc, validate, a.Logger.Named("courses")),
		Enrollments: service.NewEnrollmentService(enrollments, students, subjects, cacheSvc, validate, a.Logger.Named("enrollments")),
		Readiness:   readiness,
		Attendance:  attendance,
		Roster:      service.NewRosterService(students, subjects, courses, enrollments, cacheSvc, metrics, validate, a.Logger.Named("roster")),
		Export:      service.NewExportService(attendance, nil, nil, a.Logger.Named("export")),
		Cache:       cacheSvc,
		Metrics:     metrics,
	}
}

// Router assembles the Gin engine with ambient middleware and every API route.
func (a *App) Router() *gin.Engine {
	cfg := a.Config
	svc := a.Services

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.Logger, func(c *gin.Context) []zap.Field {
		if teacherID := middleware.TeacherID(c); teacherID != "" {
			return []zap.Field{zap.String("teacher_id", teacherID)}
		}
		return nil
	}, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svc.Metrics))
	r.Use(middleware.WithResponseMeta())

	ops := handler.NewMetricsHandler(svc.Metrics, a.DB, a.cacheRepo)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		swagger.SwaggerInfo.BasePath = cfg.APIPrefix
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	idem := middleware.IdempotencyOptions{
		TTL:     cfg.Idempotency.TTL,
		Metrics: svc.Metrics,
		Logger:  a.Logger.Named("idempotency"),
	}
	if cfg.Idempotency.Enabled && a.Redis != nil {
		idem.Store = a.cacheRepo
	}
	audit := a.Logger.Named("audit")

	handler.Register(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:        handler.NewAuthHandler(svc.Auth),
		Students:    handler.NewStudentHandler(svc.Students),
		Subjects:    handler.NewSubjectHandler(svc.Subjects),
		Courses:     handler.NewCourseHandler(svc.Courses),
		Enrollments: handler.NewEnrollmentHandler(svc.Enrollments),
		Attendance:  handler.NewAttendanceHandler(svc.Attendance, svc.Readiness, svc.Export),
		Roster:      handler.NewRosterHandler(svc.Roster),
	}, handler.RouteMiddleware{
		Auth:        middleware.JWT(svc.Auth),
		Idempotency: middleware.Idempotency(idem),
		Audit: func(action string) gin.HandlerFunc {
			return middleware.Audit(audit, action)
		},
	})

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})
	return r
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var firstErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			firstErr = fmt.Errorf("close redis: %w", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close postgres: %w", err)
		}
	}
	return firstErr
}
