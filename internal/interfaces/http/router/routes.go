package router

import (
	"net/http"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/logger"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/dto"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/handler"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by New
type Handlers struct {
	Auth     *handler.AuthHandler
	IAM      *handler.IAMHandler
	Finance  *handler.FinanceHandler
	Registry *handler.RegistryHandler
	Cells    *handler.CellHandler
	Imports  *handler.ImportHandler
	Reports  *handler.ReportHandler
	System   *handler.SystemHandler
}

// MetricsExporter observes requests and serves the scrape endpoint
type MetricsExporter interface {
	middleware.HTTPObserver
	Handler() http.Handler
}

// Config assembles the engine. A nil RateLimiter disables rate limiting and a
// nil Metrics disables both the metrics middleware and GET /metrics.
type Config struct {
	Authenticator  middleware.Authenticator
	RateLimiter    *middleware.RateLimiter
	Metrics        MetricsExporter
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	TrustedProxies []string
	TracingEnabled bool
	ServiceName    string
	Logger         *zap.Logger
}

// New builds the gin engine with the global middleware chain and every route
func New(cfg Config, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestID())
	if cfg.TracingEnabled {
		engine.Use(middleware.Tracing(cfg.ServiceName), middleware.TraceRequest())
	}
	engine.Use(
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORS(cfg.CORS),
	)
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	if cfg.Metrics != nil {
		engine.Use(middleware.Metrics(cfg.Metrics))
		engine.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	engine.GET("/health", h.System.Health)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(
			dto.ErrCodeRouteNotFound, "No route for "+c.Request.Method+" "+c.Request.URL.Path, middleware.GetRequestID(c)))
	})

	protected := []gin.HandlerFunc{middleware.Auth(cfg.Authenticator, log)}
	if cfg.TracingEnabled {
		protected = append(protected, middleware.TraceActor())
	}
	if cfg.RateLimiter != nil {
		protected = append(protected, middleware.RateLimit(cfg.RateLimiter))
	}

	r := NewRouter(engine)
	r.Register(publicAuthRoutes(h.Auth))
	for _, group := range domainGroups(h) {
		r.Register(group.Use(protected...))
	}
	api := r.Setup()
	api.GET("/health", h.System.Health)

	return engine, nil
}

func publicAuthRoutes(h *handler.AuthHandler) *DomainGroup {
	return NewDomainGroup("auth", "/auth").
		POST("/login", h.Login).
		POST("/refresh", h.Refresh)
}

// domainGroups declares every authenticated route
func domainGroups(h Handlers) []*DomainGroup {
	session := NewDomainGroup("session", "/auth").
		POST("/logout", h.Auth.Logout).
		GET("/me", h.Auth.Me)

	return []*DomainGroup{
		session,
		iamRoutes(h.IAM),
		financeRoutes(h.Finance),
		registryRoutes(h.Registry),
		cellRoutes(h.Cells),
		importRoutes(h.Imports),
		reportRoutes(h.Reports),
	}
}

func iamRoutes(h *handler.IAMHandler) *DomainGroup {
	g := NewDomainGroup("iam", "/iam")

	g.Group("org-units", "/org-units").
		GET("", h.ListOrgUnits).
		POST("", h.CreateOrgUnit).
		GET("/:id", h.GetOrgUnit).
		PATCH("/:id", h.UpdateOrgUnit).
		DELETE("/:id", h.DeleteOrgUnit).
		GET("/:id/children", h.OrgUnitChildren).
		GET("/:id/subtree", h.OrgUnitSubtree).
		GET("/:id/ancestors", h.OrgUnitAncestors)

	g.Group("roles", "/roles").
		GET("", h.ListRoles).
		POST("", h.CreateRole).
		GET("/:id", h.GetRole).
		PUT("/:id", h.UpdateRole).
		DELETE("/:id", h.DeleteRole).
		GET("/:id/permissions", h.RolePermissions).
		POST("/:id/permissions", h.AssignRolePermissions).
		PUT("/:id/permissions", h.ReplaceRolePermissions).
		DELETE("/:id/permissions/:permissionId", h.RemoveRolePermission)

	g.GET("/permissions", h.ListPermissions)

	g.Group("assignments", "/assignments").
		GET("", h.ListAssignments).
		POST("", h.CreateAssignment).
		POST("/bulk", h.CreateAssignmentsBulk).
		GET("/:id", h.GetAssignment).
		PATCH("/:id", h.UpdateAssignment).
		DELETE("/:id", h.DeleteAssignment).
		POST("/:id/units", h.AddAssignmentUnit).
		DELETE("/:id/units/:orgUnitId", h.RemoveAssignmentUnit)

	g.Group("audit", "/audit-logs").
		GET("", h.ListAuditLogs).
		GET("/:id", h.GetAuditLog)

	g.Group("users", "/users").
		GET("", h.ListUsers).
		POST("/invite", h.InviteUser).
		GET("/:id", h.GetUser).
		POST("/:id/deactivate", h.DeactivateUser)

	return g
}

func financeRoutes(h *handler.FinanceHandler) *DomainGroup {
	g := NewDomainGroup("finance", "/finance")

	g.Group("funds", "/funds").
		GET("", h.ListFunds).
		POST("", h.CreateFund).
		GET("/:id", h.GetFund).
		PATCH("/:id", h.UpdateFund).
		DELETE("/:id", h.DeleteFund)

	g.Group("arms", "/partnership-arms").
		GET("", h.ListArms).
		POST("", h.CreateArm).
		GET("/:id", h.GetArm).
		PATCH("/:id", h.UpdateArm).
		DELETE("/:id", h.DeleteArm)

	g.Group("batches", "/batches").
		GET("", h.ListBatches).
		POST("", h.CreateBatch).
		GET("/:id", h.GetBatch).
		PATCH("/:id", h.UpdateBatch).
		DELETE("/:id", h.DeleteBatch).
		POST("/:id/verify", h.VerifyBatch).
		POST("/:id/lock", h.LockBatch).
		POST("/:id/unlock", h.UnlockBatch)

	g.Group("entries", "/entries").
		GET("", h.ListEntries).
		POST("", h.CreateEntry).
		GET("/:id", h.GetEntry).
		PATCH("/:id", h.UpdateEntry).
		DELETE("/:id", h.DeleteEntry).
		POST("/:id/verify", h.VerifyEntry).
		POST("/:id/reconcile", h.ReconcileEntry)

	g.Group("partnerships", "/partnerships").
		GET("", h.ListPartnerships).
		POST("", h.CreatePartnership).
		GET("/:id", h.GetPartnership).
		PATCH("/:id", h.UpdatePartnership).
		DELETE("/:id", h.DeletePartnership).
		GET("/:id/fulfilment", h.PartnershipFulfilment)

	return g
}

func registryRoutes(h *handler.RegistryHandler) *DomainGroup {
	g := NewDomainGroup("registry", "/registry")

	g.Group("people", "/people").
		GET("", h.ListPeople).
		POST("", h.CreatePerson).
		POST("/merge", h.MergePeople).
		GET("/:id", h.GetPerson).
		PATCH("/:id", h.UpdatePerson).
		DELETE("/:id", h.DeletePerson).
		PUT("/:id/membership", h.UpdateMembership)

	g.Group("first-timers", "/first-timers").
		GET("", h.ListFirstTimers).
		POST("", h.CreateFirstTimer).
		GET("/:id", h.GetFirstTimer).
		PATCH("/:id/status", h.UpdateFirstTimerStatus).
		POST("/:id/convert", h.ConvertFirstTimer)

	g.Group("services", "/services").
		GET("", h.ListServices).
		POST("", h.CreateService).
		GET("/:id", h.GetService).
		POST("/:id/attendance", h.RecordAttendance)

	g.Group("attendance", "/attendance").
		GET("", h.ListAttendance).
		GET("/:id", h.GetAttendance).
		PUT("/:id", h.UpdateAttendance)

	g.Group("departments", "/departments").
		GET("", h.ListDepartments).
		POST("", h.CreateDepartment).
		GET("/:id", h.GetDepartment).
		PATCH("/:id", h.UpdateDepartment).
		DELETE("/:id", h.DeleteDepartment).
		GET("/:id/members", h.DepartmentMembers).
		POST("/:id/members", h.AssignDepartmentMember).
		DELETE("/:id/members/:personId", h.RemoveDepartmentMember)

	return g
}

func cellRoutes(h *handler.CellHandler) *DomainGroup {
	g := NewDomainGroup("cells", "/cells").
		GET("", h.ListCells).
		POST("", h.CreateCell).
		GET("/:id", h.GetCell).
		PUT("/:id", h.UpdateCell).
		DELETE("/:id", h.DeleteCell).
		POST("/:id/reports", h.CreateReport)

	g.Group("reports", "/reports").
		GET("", h.ListReports).
		GET("/:id", h.GetReport).
		PUT("/:id", h.UpdateReport).
		DELETE("/:id", h.DeleteReport).
		POST("/:id/approve", h.ApproveReport)

	return g
}

func importRoutes(h *handler.ImportHandler) *DomainGroup {
	return NewDomainGroup("imports", "/imports").
		GET("", h.ListJobs).
		POST("/upload", h.Upload).
		GET("/:id", h.Status).
		GET("/:id/preview", h.Preview).
		PUT("/:id/mapping", h.UpdateMapping).
		POST("/:id/validate", h.Validate).
		POST("/:id/start", h.Start).
		GET("/:id/errors", h.Errors).
		GET("/:id/error-report", h.ErrorReport)
}

func reportRoutes(h *handler.ReportHandler) *DomainGroup {
	g := NewDomainGroup("reports", "/reports").
		POST("/query", h.Query).
		GET("/dashboards/:type", h.Dashboard)

	g.Group("exports", "/exports").
		POST("", h.CreateExport).
		GET("/:id", h.GetExport).
		GET("/:id/stream", h.StreamExport)

	g.Group("templates", "/templates").
		GET("", h.ListTemplates).
		POST("", h.CreateTemplate).
		GET("/:id", h.GetTemplate).
		PUT("/:id", h.UpdateTemplate).
		DELETE("/:id", h.DeleteTemplate)

	g.Group("schedules", "/schedules").
		GET("", h.ListSchedules).
		POST("", h.CreateSchedule).
		DELETE("/:id", h.DeleteSchedule)

	return g
}
