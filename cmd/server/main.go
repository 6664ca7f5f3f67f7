package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appreport "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/report"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/bootstrap"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/config"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/logger"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/handler"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/middleware"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			Zone Reporting API
//	@version		1.0
//	@description	Church zone administration: hierarchy, access control, registry, cells, finance, imports and reporting.
//	@BasePath		/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting zone reporting API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", bootstrap.Version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize dependencies", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Close(closeCtx); err != nil {
			log.Error("Error releasing resources", zap.Error(err))
		}
	}()

	engine, err := router.New(routerConfig(ctx, cfg, c, log), handlers(c, log))
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-errCh:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Server exited gracefully")
}

func handlers(c *bootstrap.Container, log *zap.Logger) router.Handlers {
	s := c.Services
	sqlDB, _ := c.DB.DB.DB()
	return router.Handlers{
		Auth: handler.NewAuthHandler(s.Auth, log),
		IAM: handler.NewIAMHandler(handler.IAMServices{
			OrgUnits:    s.OrgUnits,
			Roles:       s.Roles,
			Permissions: s.Permissions,
			Assignments: s.Assignments,
			Audit:       s.Audit,
			Users:       s.Users,
		}, log),
		Finance:  handler.NewFinanceHandler(s.Lookups, s.Batches, s.Entries, s.Partnerships, log),
		Registry: handler.NewRegistryHandler(s.People, s.FirstTimers, s.Attendance, s.Departments, log),
		Cells:    handler.NewCellHandler(s.Cells, s.CellReports, log),
		Imports:  handler.NewImportHandler(s.Imports, c.Config.Imports.MaxFileSize, log),
		Reports: handler.NewReportHandler(s.Queries, s.Exports, s.Templates, s.Schedules,
			appreport.WatchOptions{Interval: time.Second, Timeout: 10 * time.Minute}, log),
		System: handler.NewSystemHandler(bootstrap.Version, map[string]handler.HealthCheck{
			"database": sqlDB.PingContext,
			"redis":    func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() },
		}, log),
	}
}

func routerConfig(ctx context.Context, cfg *config.Config, c *bootstrap.Container, log *zap.Logger) router.Config {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	rc := router.Config{
		Authenticator:  c.Services.Auth,
		CORS:           cors,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		TracingEnabled: c.Tracer.IsEnabled(),
		ServiceName:    cfg.Telemetry.ServiceName,
		Logger:         log,
	}
	if cfg.Telemetry.MetricsEnabled {
		rc.Metrics = c.Metrics
	}
	if cfg.HTTP.RateLimitEnabled {
		rl := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		go rl.RunCleanup(ctx)
		rc.RateLimiter = rl
	}
	return rc
}
