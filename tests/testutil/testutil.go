// Package testutil provides common test utilities for the zone reporting backend.
// It contains helpers for opening throwaway databases, seeding tenants with
// permissions and building gin test contexts.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/cells"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/identity"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/imports"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/notification"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/report"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Models lists every table of the schema in dependency order
func Models() []any {
	return []any{
		&iam.OrgUnit{},
		&iam.Role{},
		&iam.Permission{},
		&iam.RolePermission{},
		&iam.OrgAssignment{},
		&iam.OrgAssignmentUnit{},
		&iam.AuditLog{},
		&identity.User{},
		&registry.Person{},
		&registry.Membership{},
		&registry.Service{},
		&registry.Attendance{},
		&registry.FirstTimer{},
		&registry.Department{},
		&registry.DepartmentRole{},
		&cells.Cell{},
		&cells.CellReport{},
		&finance.Fund{},
		&finance.PartnershipArm{},
		&finance.Batch{},
		&finance.FinanceEntry{},
		&finance.Partnership{},
		&imports.Job{},
		&imports.RowError{},
		&report.ExportJob{},
		&report.Template{},
		&report.Schedule{},
		&notification.OutboxNotification{},
	}
}

// NewTestDB opens a private in-memory sqlite database with the full schema.
// A single connection is used so that every transaction sees the same database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=off", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err, "Failed to open sqlite database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(Models()...), "Failed to migrate test schema")
	for _, stmt := range tenantUniqueKeys {
		require.NoError(t, db.Exec(stmt).Error, "Failed to create unique key")
	}
	return db
}

// tenantUniqueKeys mirror the tenant-scoped unique constraints of the SQL
// migrations. Struct tags cannot express them because tenant_id lives in
// the embedded shared.TenantEntity.
var tenantUniqueKeys = []string{
	"CREATE UNIQUE INDEX idx_roles_tenant_name ON roles (tenant_id, name)",
	"CREATE UNIQUE INDEX idx_funds_tenant_name ON funds (tenant_id, name)",
	"CREATE UNIQUE INDEX idx_partnership_arms_tenant_name ON partnership_arms (tenant_id, name)",
	"CREATE UNIQUE INDEX uq_batches_tenant_org_service ON batches (tenant_id, org_unit_id, service_id)",
	"CREATE UNIQUE INDEX uq_people_tenant_member_code ON people (tenant_id, member_code)",
}

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a postgres-dialect GORM connection backed by sqlmock.
// The caller is responsible for calling Close() when done.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open GORM connection")

	return &MockDB{
		DB:    gormDB,
		Mock:  mock,
		SqlDB: mockDB,
	}
}

// Close closes the mock database connection.
func (m *MockDB) Close() error {
	return m.SqlDB.Close()
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	err := m.Mock.ExpectationsWereMet()
	require.NoError(t, err, "Unmet database expectations")
}

// Tenant is a seeded tenant with a root org unit and an all-powerful admin
type Tenant struct {
	ID      uuid.UUID
	AdminID uuid.UUID
	Root    *iam.OrgUnit
	RoleID  uuid.UUID
}

// SeedTenant creates a region root unit and an admin user holding every known
// permission over the whole tree
func SeedTenant(t *testing.T, db *gorm.DB) *Tenant {
	t.Helper()

	tenantID := uuid.New()
	admin := CreateUser(t, db, tenantID, "admin-"+tenantID.String()[:8]+"@example.org")
	root := CreateOrgUnit(t, db, tenantID, "Ireland", iam.OrgUnitTypeRegion, nil)
	roleID := GrantAll(t, db, tenantID, admin.ID, root.ID)

	return &Tenant{ID: tenantID, AdminID: admin.ID, Root: root, RoleID: roleID}
}

// CreateUser inserts an active user
func CreateUser(t *testing.T, db *gorm.DB, tenantID uuid.UUID, email string) *identity.User {
	t.Helper()

	u, err := identity.NewUser(tenantID, uuid.Nil, email, "")
	require.NoError(t, err)
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateOrgUnit inserts an org unit below parent
func CreateOrgUnit(t *testing.T, db *gorm.DB, tenantID uuid.UUID, name string, unitType iam.OrgUnitType, parent *iam.OrgUnit) *iam.OrgUnit {
	t.Helper()

	u, err := iam.NewOrgUnit(tenantID, uuid.Nil, name, unitType, parent)
	require.NoError(t, err)
	require.NoError(t, db.Create(u).Error)
	return u
}

// GrantAll gives userID a role holding every known permission with subtree scope
// at orgUnitID and returns the role id
func GrantAll(t *testing.T, db *gorm.DB, tenantID, userID, orgUnitID uuid.UUID) uuid.UUID {
	t.Helper()

	codes := make([]string, 0, len(iam.KnownPermissions))
	for code := range iam.KnownPermissions {
		codes = append(codes, code)
	}
	return Grant(t, db, tenantID, userID, orgUnitID, iam.ScopeSubtree, codes...)
}

// Grant gives userID a fresh role holding codes, assigned at orgUnitID with scope
func Grant(t *testing.T, db *gorm.DB, tenantID, userID, orgUnitID uuid.UUID, scope iam.ScopeType, codes ...string) uuid.UUID {
	t.Helper()

	role, err := iam.NewRole(tenantID, uuid.Nil, "role-"+uuid.NewString()[:8])
	require.NoError(t, err)
	require.NoError(t, db.Create(role).Error)

	for _, code := range codes {
		perm := ensurePermission(t, db, code)
		link := iam.NewRolePermission(role.ID, perm.ID)
		require.NoError(t, db.Create(&link).Error)
	}

	a, err := iam.NewOrgAssignment(tenantID, uuid.Nil, userID, orgUnitID, role.ID, scope, nil)
	require.NoError(t, err)
	require.NoError(t, db.Create(a).Error)
	return role.ID
}

func ensurePermission(t *testing.T, db *gorm.DB, code string) *iam.Permission {
	t.Helper()

	var existing iam.Permission
	err := db.Where("code = ?", code).First(&existing).Error
	if err == nil {
		return &existing
	}
	perm, err := iam.NewPermission(code, iam.KnownPermissions[code])
	require.NoError(t, err)
	require.NoError(t, db.Create(perm).Error)
	return perm
}

// TestContext wraps a Gin test context with HTTP recorder.
type TestContext struct {
	Context  *gin.Context
	Recorder *httptest.ResponseRecorder
	Engine   *gin.Engine
}

// NewTestContext creates a new Gin test context.
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()

	w := httptest.NewRecorder()
	c, engine := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	return &TestContext{
		Context:  c,
		Recorder: w,
		Engine:   engine,
	}
}

// ResponseBody returns the response body as bytes.
func (tc *TestContext) ResponseBody() []byte {
	return tc.Recorder.Body.Bytes()
}

// ResponseCode returns the HTTP status code.
func (tc *TestContext) ResponseCode() int {
	return tc.Recorder.Code
}

// NewTestUUID generates a deterministic UUID for testing.
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// ContextWithTimeout creates a context with a timeout for tests.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// RequireEventually retries condition until it passes or the timeout elapses.
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...interface{}) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}

	require.Fail(t, "Condition not met within timeout", msgAndArgs...)
}
