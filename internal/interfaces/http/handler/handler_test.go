package handler

import (
	"net/http"
	"testing"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appfinance "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/finance"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/persistence"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/middleware"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testUserHeader = "X-Test-User"

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

// server wires real services over an in-memory database. Requests act as the
// tenant admin unless testUserHeader names another user.
type server struct {
	db     *gorm.DB
	tenant *testutil.Tenant
	engine *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := testutil.NewTestDB(t)
	tenant := testutil.SeedTenant(t, db)

	scope := persistence.NewGormTransactionScope(db)
	authz := appiam.NewAuthorizer(nil, zap.NewNop())
	log := zap.NewNop()

	iamHandler := NewIAMHandler(IAMServices{
		OrgUnits:    appiam.NewOrgUnitService(scope, authz, log),
		Roles:       appiam.NewRoleService(scope, authz, log),
		Permissions: appiam.NewPermissionService(scope),
		Assignments: appiam.NewAssignmentService(scope, authz, log),
		Audit:       appiam.NewAuditService(scope, authz),
	}, log)
	financeHandler := NewFinanceHandler(
		appfinance.NewLookupService(scope, authz, log),
		appfinance.NewBatchService(scope, authz, core.NopMetrics{}, log),
		appfinance.NewEntryService(scope, authz, log),
		appfinance.NewPartnershipService(scope, authz, log),
		log,
	)

	engine := gin.New()
	engine.Use(middleware.RequestID(), func(c *gin.Context) {
		userID := tenant.AdminID
		if v := c.GetHeader(testUserHeader); v != "" {
			userID = uuid.MustParse(v)
		}
		c.Set(middleware.ActorKey, core.NewActor(tenant.ID, userID))
		c.Next()
	})

	api := engine.Group("/api/v1")
	api.GET("/iam/org-units", iamHandler.ListOrgUnits)
	api.POST("/iam/org-units", iamHandler.CreateOrgUnit)
	api.GET("/iam/org-units/:id", iamHandler.GetOrgUnit)
	api.GET("/iam/org-units/:id/children", iamHandler.OrgUnitChildren)
	api.DELETE("/iam/org-units/:id", iamHandler.DeleteOrgUnit)

	api.GET("/finance/funds", financeHandler.ListFunds)
	api.POST("/finance/funds", financeHandler.CreateFund)
	api.POST("/finance/batches", financeHandler.CreateBatch)
	api.GET("/finance/batches/:id", financeHandler.GetBatch)
	api.POST("/finance/batches/:id/verify", financeHandler.VerifyBatch)
	api.POST("/finance/batches/:id/lock", financeHandler.LockBatch)
	api.POST("/finance/batches/:id/unlock", financeHandler.UnlockBatch)
	api.POST("/finance/entries", financeHandler.CreateEntry)
	api.GET("/finance/entries", financeHandler.ListEntries)

	return &server{db: db, tenant: tenant, engine: engine}
}

// user creates a user holding codes over the whole tree and returns the
// headers that make a request act as them
func (s *server) user(t *testing.T, email string, codes ...string) map[string]string {
	t.Helper()
	u := testutil.CreateUser(t, s.db, s.tenant.ID, email)
	testutil.Grant(t, s.db, s.tenant.ID, u.ID, s.tenant.Root.ID, iam.ScopeSubtree, codes...)
	return map[string]string{testUserHeader: u.ID.String()}
}

func (s *server) church(t *testing.T, name string) uuid.UUID {
	t.Helper()
	w := testutil.PerformRequest(t, s.engine, http.MethodPost, "/api/v1/iam/org-units", map[string]any{
		"name": name, "type": "church", "parent_id": s.tenant.Root.ID,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return testutil.DecodeData[appiam.OrgUnitDTO](t, w).ID
}
