package cells

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appfinance "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/finance"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/persistence"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type harness struct {
	db      *gorm.DB
	tenant  *testutil.Tenant
	church  *iam.OrgUnit
	admin   core.Actor
	cells   *CellService
	reports *ReportService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewTestDB(t)
	tenant := testutil.SeedTenant(t, db)
	church := testutil.CreateOrgUnit(t, db, tenant.ID, "Dublin Central", iam.OrgUnitTypeChurch, tenant.Root)

	scope := persistence.NewGormTransactionScope(db)
	authz := appiam.NewAuthorizer(nil, zap.NewNop())
	entries := appfinance.NewEntryService(scope, authz, zap.NewNop())
	return &harness{
		db:      db,
		tenant:  tenant,
		church:  church,
		admin:   core.NewActor(tenant.ID, tenant.AdminID),
		cells:   NewCellService(scope, authz, zap.NewNop()),
		reports: NewReportService(scope, authz, entries, zap.NewNop()),
	}
}

func (h *harness) actorAt(t *testing.T, email string, unit *iam.OrgUnit, codes ...string) core.Actor {
	t.Helper()
	u := testutil.CreateUser(t, h.db, h.tenant.ID, email)
	testutil.Grant(t, h.db, h.tenant.ID, u.ID, unit.ID, iam.ScopeSubtree, codes...)
	return core.NewActor(h.tenant.ID, u.ID)
}

func (h *harness) person(t *testing.T, first string) *registry.Person {
	t.Helper()
	p, err := registry.NewPerson(h.tenant.ID, uuid.Nil, h.church.ID, registry.PersonDetails{
		FirstName: first, LastName: "Okafor", Gender: registry.GenderFemale,
	})
	require.NoError(t, err)
	require.NoError(t, h.db.Create(p).Error)
	return p
}

func (h *harness) cell(t *testing.T, name string) *CellDTO {
	t.Helper()
	c, err := h.cells.Create(context.Background(), h.admin, CellInput{OrgUnitID: h.church.ID, Name: name})
	require.NoError(t, err)
	return c
}

func (h *harness) report(t *testing.T, cellID uuid.UUID, date time.Time, offerings string) *ReportDTO {
	t.Helper()
	r, err := h.reports.Create(context.Background(), h.admin, cellID, ReportInput{
		ReportDate: date, Attendance: 12, MeetingType: "bible_study",
		OfferingsTotal: decimal.RequireFromString(offerings),
	})
	require.NoError(t, err)
	return r
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

func TestCellService_CRUD(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	leader := h.person(t, "Chioma")
	assistant := h.person(t, "Ngozi")

	c, err := h.cells.Create(ctx, h.admin, CellInput{
		OrgUnitID: h.church.ID, Name: "Rathmines", LeaderID: &leader.ID, AssistantLeaderID: &assistant.ID,
		MeetingDay: ptr("wednesday"), MeetingTime: ptr("19:30"),
	})
	require.NoError(t, err)
	assert.Equal(t, "active", c.Status)
	require.NotNil(t, c.MeetingDay)
	assert.Equal(t, "Wednesday", *c.MeetingDay)

	tests := []struct {
		name  string
		input CellInput
		want  error
	}{
		{"duplicate name in unit", CellInput{OrgUnitID: h.church.ID, Name: "Rathmines"}, shared.ErrAlreadyExists},
		{"unknown leader", CellInput{OrgUnitID: h.church.ID, Name: "Ranelagh", LeaderID: ptr(uuid.New())}, shared.ErrNotFound},
		{"same leader twice", CellInput{OrgUnitID: h.church.ID, Name: "Ranelagh", LeaderID: &leader.ID, AssistantLeaderID: &leader.ID}, shared.ErrInvalidInput},
		{"bad meeting day", CellInput{OrgUnitID: h.church.ID, Name: "Ranelagh", MeetingDay: ptr("Someday")}, shared.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.cells.Create(ctx, h.admin, tt.input)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	t.Run("update", func(t *testing.T) {
		u, err := h.cells.Update(ctx, h.admin, c.ID, CellInput{Name: "Rathmines East", LeaderID: &assistant.ID, Status: "inactive"})
		require.NoError(t, err)
		assert.Equal(t, "Rathmines East", u.Name)
		assert.Equal(t, "inactive", u.Status)
		assert.Equal(t, h.church.ID, u.OrgUnitID)
		assert.Nil(t, u.AssistantLeaderID)
	})

	t.Run("list by leader", func(t *testing.T) {
		h.cell(t, "Drumcondra")
		page, err := h.cells.List(ctx, h.admin, CellListFilter{LeaderID: &assistant.ID})
		require.NoError(t, err)
		require.Equal(t, int64(1), page.Total)
		assert.Equal(t, c.ID, page.Items[0].ID)

		page, err = h.cells.List(ctx, h.admin, CellListFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("manage permission and scope", func(t *testing.T) {
		cork := testutil.CreateOrgUnit(t, h.db, h.tenant.ID, "Cork", iam.OrgUnitTypeChurch, h.tenant.Root)
		outsider := h.actorAt(t, "cork@example.org", cork, iam.PermCellsManage)
		_, err := h.cells.Update(ctx, outsider, c.ID, CellInput{Name: "Hijacked"})
		assert.True(t, errors.Is(err, shared.ErrForbidden))

		reporter := h.actorAt(t, "reporter@example.org", h.church, iam.PermCellReportsCreate)
		_, err = h.cells.Create(ctx, reporter, CellInput{OrgUnitID: h.church.ID, Name: "Phibsboro"})
		assert.True(t, errors.Is(err, shared.ErrForbidden))
	})
}

func TestCellService_Delete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.cell(t, "Tallaght")
	member := h.person(t, "Ada")
	m, err := registry.NewMembership(member.ID, registry.MembershipMember, nil, false, nil, &c.ID)
	require.NoError(t, err)
	require.NoError(t, h.db.Create(m).Error)

	r := h.report(t, c.ID, day(2024, 5, 1), "0")
	err = h.cells.Delete(ctx, h.admin, c.ID)
	assert.True(t, errors.Is(err, shared.ErrHasDependents))

	require.NoError(t, h.reports.Delete(ctx, h.admin, r.ID))
	require.NoError(t, h.cells.Delete(ctx, h.admin, c.ID))

	_, err = h.cells.Get(ctx, h.admin, c.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	var got registry.Membership
	require.NoError(t, h.db.First(&got, "person_id = ?", member.ID).Error)
	assert.Nil(t, got.CellID)
}
