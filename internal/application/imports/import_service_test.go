package importapp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	appcells "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/cells"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appfinance "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/finance"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	appregistry "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/cells"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/imports"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/persistence"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/storage"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(ctx context.Context, queue, name string, payload map[string]string) error {
	args := m.Called(ctx, queue, name, payload)
	return args.Error(0)
}

func (m *mockQueue) EnqueueIn(ctx context.Context, queue, name string, payload map[string]string, delay time.Duration) error {
	args := m.Called(ctx, queue, name, payload, delay)
	return args.Error(0)
}

type harness struct {
	db      *gorm.DB
	tenant  *testutil.Tenant
	church  *iam.OrgUnit
	admin   core.Actor
	store   *storage.MemoryObjectStorage
	queue   *mockQueue
	targets Targets
	svc     *ImportService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewTestDB(t)
	tenant := testutil.SeedTenant(t, db)
	church := testutil.CreateOrgUnit(t, db, tenant.ID, "Dublin Central", iam.OrgUnitTypeChurch, tenant.Root)

	scope := persistence.NewGormTransactionScope(db)
	authz := appiam.NewAuthorizer(nil, zap.NewNop())
	entries := appfinance.NewEntryService(scope, authz, zap.NewNop())
	targets := Targets{
		People:      appregistry.NewPersonService(scope, authz, zap.NewNop()),
		FirstTimers: appregistry.NewFirstTimerService(scope, authz, zap.NewNop()),
		Attendance:  appregistry.NewAttendanceService(scope, authz, zap.NewNop()),
		Cells:       appcells.NewCellService(scope, authz, zap.NewNop()),
		Reports:     appcells.NewReportService(scope, authz, entries, zap.NewNop()),
		Entries:     entries,
	}
	store := storage.NewMemoryObjectStorage()
	queue := new(mockQueue)
	return &harness{
		db:      db,
		tenant:  tenant,
		church:  church,
		admin:   core.NewActor(tenant.ID, tenant.AdminID),
		store:   store,
		queue:   queue,
		targets: targets,
		svc:     NewImportService(scope, authz, store, queue, targets, nil, Config{MaxFileSize: 4096}, zap.NewNop()),
	}
}

func (h *harness) upload(t *testing.T, entity imports.EntityType, content string, mode imports.Mode, dryRun bool) *JobDTO {
	t.Helper()
	job, err := h.svc.Upload(context.Background(), h.admin, UploadInput{
		FileName:         string(entity) + ".csv",
		Data:             []byte(content),
		EntityType:       string(entity),
		Mode:             string(mode),
		DefaultOrgUnitID: &h.church.ID,
		DryRun:           dryRun,
	})
	require.NoError(t, err)
	return job
}

// run previews, starts and processes a job with the suggested mapping
func (h *harness) run(t *testing.T, jobID uuid.UUID) *JobDTO {
	t.Helper()
	ctx := context.Background()
	_, err := h.svc.Preview(ctx, h.admin, jobID)
	require.NoError(t, err)

	h.queue.On("Enqueue", mock.Anything, core.QueueImports, core.JobProcessImport, mock.Anything).Return(nil).Once()
	_, err = h.svc.Start(ctx, h.admin, jobID)
	require.NoError(t, err)
	require.NoError(t, h.svc.HandleJob(ctx, map[string]string{
		"tenant_id": h.tenant.ID.String(),
		"job_id":    jobID.String(),
	}))

	job, err := h.svc.Status(ctx, h.admin, jobID)
	require.NoError(t, err)
	return job
}

func (h *harness) actorAt(t *testing.T, email string, codes ...string) core.Actor {
	t.Helper()
	u := testutil.CreateUser(t, h.db, h.tenant.ID, email)
	testutil.Grant(t, h.db, h.tenant.ID, u.ID, h.church.ID, iam.ScopeSubtree, codes...)
	return core.NewActor(h.tenant.ID, u.ID)
}

const peopleCSV = "First Name,Surname,Sex,Email,Mobile,Date of Birth\n" +
	"Ada,Obi,F,ada@example.org,087 123 4567,15/03/1990\n" +
	"Ben,Eze,male,not-an-email,,\n"

func TestImportService_PeopleLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job := h.upload(t, imports.EntityPeople, peopleCSV, imports.ModeCreateOnly, false)
	assert.Equal(t, "pending", job.Status)
	assert.Equal(t, "csv", job.FileFormat)
	require.Len(t, h.store.Keys(), 1)
	assert.True(t, strings.HasPrefix(h.store.Keys()[0], "imports/"+h.tenant.ID.String()+"/"))

	preview, err := h.svc.Preview(ctx, h.admin, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "previewed", preview.Job.Status)
	assert.Equal(t, 2, preview.Job.TotalRows)
	assert.Len(t, preview.Rows, 2)
	assert.Equal(t, map[string]string{
		"First Name":    "first_name",
		"Surname":       "last_name",
		"Sex":           "gender",
		"Email":         "email",
		"Mobile":        "phone",
		"Date of Birth": "dob",
	}, preview.Mapping)

	validation, err := h.svc.Validate(ctx, h.admin, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, validation.ValidRows)
	assert.Equal(t, 1, validation.InvalidRows)
	assert.Equal(t, 1, validation.ErrorsByType["coercion"])
	require.Len(t, validation.Errors, 1)
	assert.Equal(t, 3, validation.Errors[0].Row)
	assert.Equal(t, "Email", *validation.Errors[0].Column)

	done := h.run(t, job.ID)
	assert.Equal(t, "completed", done.Status)
	assert.Equal(t, 2, done.ProcessedRows)
	assert.Equal(t, 1, done.ImportedCount)
	assert.Equal(t, 1, done.ErrorCount)
	assert.Equal(t, 100, done.Progress)
	assert.True(t, done.HasErrorReport)

	var people []registry.Person
	require.NoError(t, h.db.Where("tenant_id = ?", h.tenant.ID).Find(&people).Error)
	require.Len(t, people, 1)
	assert.Equal(t, "Obi", people[0].LastName)
	assert.Equal(t, registry.GenderFemale, people[0].Gender)
	assert.Equal(t, "+353871234567", *people[0].Phone)
	assert.Equal(t, "1990-03-15", people[0].DOB.Format("2006-01-02"))
	assert.Equal(t, h.church.ID, people[0].OrgUnitID)
	assert.NotNil(t, people[0].MemberCode)

	report, err := h.svc.ErrorReport(ctx, h.admin, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ErrorCount)
	assert.True(t, strings.HasPrefix(report.DownloadURL, "http://localhost:8080/files/imports/"))
	var reportKey string
	for _, k := range h.store.Keys() {
		if strings.HasSuffix(k, "_errors.csv") {
			reportKey = k
		}
	}
	require.NotEmpty(t, reportKey)
	data, err := h.store.Download(ctx, reportKey)
	require.NoError(t, err)
	assert.Contains(t, string(data), "3,Email,coercion")

	t.Run("redelivered job is ignored", func(t *testing.T) {
		require.NoError(t, h.svc.Process(ctx, h.tenant.ID, job.ID))
		again, err := h.svc.Status(ctx, h.admin, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, again.ImportedCount)
	})

	t.Run("completed job cannot be remapped", func(t *testing.T) {
		_, err := h.svc.UpdateMapping(ctx, h.admin, job.ID, preview.Mapping)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})
}

func TestImportService_ExistingPeople(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	email := "ada@example.org"
	phone := "+353861112222"
	_, err := h.targets.People.Create(ctx, h.admin, appregistry.PersonInput{
		OrgUnitID: h.church.ID, FirstName: "Ada", LastName: "Obi", Gender: "female", Email: &email, Phone: &phone,
	})
	require.NoError(t, err)

	csv := "First Name,Last Name,Gender,Email\nAda,Nwosu,female,ADA@example.org\n"

	t.Run("create only skips duplicates", func(t *testing.T) {
		job := h.run(t, h.upload(t, imports.EntityPeople, csv, imports.ModeCreateOnly, false).ID)
		assert.Equal(t, 1, job.SkippedCount)
		assert.Equal(t, 0, job.ImportedCount)

		errs, err := h.svc.Errors(ctx, h.admin, job.ID, 10)
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Equal(t, "duplicate", errs[0].ErrorType)
	})

	t.Run("update existing keeps columns missing from the file", func(t *testing.T) {
		job := h.run(t, h.upload(t, imports.EntityPeople, csv, imports.ModeUpdateExisting, false).ID)
		assert.Equal(t, 1, job.ImportedCount)

		var p registry.Person
		require.NoError(t, h.db.Where("tenant_id = ? AND email = ?", h.tenant.ID, email).First(&p).Error)
		assert.Equal(t, "Nwosu", p.LastName)
		assert.Equal(t, phone, *p.Phone)
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		dry := "First Name,Last Name,Gender,Email\nCara,Lee,female,cara@example.org\n"
		job := h.run(t, h.upload(t, imports.EntityPeople, dry, imports.ModeCreateOnly, true).ID)
		assert.Equal(t, "completed", job.Status)
		assert.Equal(t, 1, job.ImportedCount)

		var count int64
		require.NoError(t, h.db.Model(&registry.Person{}).Where("email = ?", "cara@example.org").Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestImportService_FinanceEntries(t *testing.T) {
	h := newHarness(t)
	fund, err := finance.NewFund(h.tenant.ID, uuid.Nil, "Tithe", false)
	require.NoError(t, err)
	require.NoError(t, h.db.Create(fund).Error)

	csv := "Fund,Amount,Date,Payment Method,Giver Name\n" +
		"tithe,\"€1,250.00\",01/02/2024,Bank Transfer,Walk-in Donor\n" +
		"Building,10,01/02/2024,cash,Walk-in Donor\n"
	job := h.run(t, h.upload(t, imports.EntityFinanceEntries, csv, imports.ModeCreateOnly, false).ID)
	assert.Equal(t, 1, job.ImportedCount)
	assert.Equal(t, 1, job.ErrorCount)

	var entries []finance.FinanceEntry
	require.NoError(t, h.db.Where("source_type = ?", finance.SourceImport).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Amount.Equal(decimal.RequireFromString("1250")))
	assert.Equal(t, finance.MethodBankTransfer, entries[0].Method)
	assert.Equal(t, "2024-02-01", entries[0].TransactionDate.Format("2006-01-02"))
	assert.Equal(t, job.ID, *entries[0].SourceID)
	assert.Equal(t, fund.ID, entries[0].FundID)
	require.NotNil(t, entries[0].ExternalGiverName)
	assert.Equal(t, "Walk-in Donor", *entries[0].ExternalGiverName)

	errs, err := h.svc.Errors(context.Background(), h.admin, job.ID, 10)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "reference", errs[0].ErrorType)
	assert.Equal(t, "Fund", *errs[0].Column)
	assert.Equal(t, 3, errs[0].Row)
}

func TestImportService_CellReports(t *testing.T) {
	h := newHarness(t)
	_, err := h.targets.Cells.Create(context.Background(), h.admin, appcells.CellInput{OrgUnitID: h.church.ID, Name: "Rathmines"})
	require.NoError(t, err)

	csv := "Cell,Date,Type,Attendance\n" +
		"rathmines,2024-05-01,Bible Study,14\n" +
		"Nowhere,2024-05-01,outreach,3\n"
	job := h.run(t, h.upload(t, imports.EntityCellReports, csv, imports.ModeCreateOnly, false).ID)
	assert.Equal(t, 1, job.ImportedCount)
	assert.Equal(t, 1, job.ErrorCount)

	var reports []cells.CellReport
	require.NoError(t, h.db.Find(&reports).Error)
	require.Len(t, reports, 1)
	assert.Equal(t, 14, reports[0].Attendance)
	assert.Equal(t, cells.MeetingBibleStudy, reports[0].MeetingType)
}

func TestImportService_Upload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input UploadInput
	}{
		{"unknown entity", UploadInput{FileName: "a.csv", Data: []byte("a\n1"), EntityType: "widgets"}},
		{"empty file", UploadInput{FileName: "a.csv", EntityType: "people"}},
		{"too large", UploadInput{FileName: "a.csv", Data: make([]byte, 5000), EntityType: "people"}},
		{"legacy excel", UploadInput{FileName: "a.xls", Data: []byte("x"), EntityType: "people"}},
		{"bad mode", UploadInput{FileName: "a.csv", Data: []byte("a\n1"), EntityType: "people", Mode: "replace"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Upload(ctx, h.admin, tt.input)
			assert.True(t, errors.Is(err, shared.ErrInvalidInput), "got %v", err)
		})
	}

	t.Run("requires permission", func(t *testing.T) {
		reader := h.actorAt(t, "reader@example.org", iam.PermPeopleCreate)
		_, err := h.svc.Upload(ctx, reader, UploadInput{FileName: "a.csv", Data: []byte("a\n1"), EntityType: "people"})
		assert.True(t, errors.Is(err, shared.ErrForbidden))
	})
}

func TestImportService_Visibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.upload(t, imports.EntityPeople, peopleCSV, imports.ModeCreateOnly, false)

	other := h.actorAt(t, "other@example.org", iam.PermImportsCreate)
	_, err := h.svc.Status(ctx, other, job.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	page, err := h.svc.List(ctx, other, JobListFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	viewer := h.actorAt(t, "viewer@example.org", iam.PermImportsCreate, iam.PermImportsRead)
	_, err = h.svc.Status(ctx, viewer, job.ID)
	require.NoError(t, err)
	_, err = h.svc.UpdateMapping(ctx, viewer, job.ID, map[string]string{"First Name": "first_name"})
	assert.True(t, errors.Is(err, shared.ErrForbidden))

	page, err = h.svc.List(ctx, viewer, JobListFilter{EntityType: "people"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestImportService_UpdateMapping(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.upload(t, imports.EntityPeople, peopleCSV, imports.ModeCreateOnly, false)

	_, err := h.svc.UpdateMapping(ctx, h.admin, job.ID, map[string]string{"First Name": "first_name"})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	_, err = h.svc.UpdateMapping(ctx, h.admin, job.ID, map[string]string{"First Name": "shoe_size"})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	updated, err := h.svc.UpdateMapping(ctx, h.admin, job.ID, map[string]string{
		"First Name": "first_name", "Surname": "last_name", "Sex": "gender", "Email": "",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"First Name": "first_name", "Surname": "last_name", "Sex": "gender"}, updated.Mapping)

	t.Run("start without a mapping fails", func(t *testing.T) {
		fresh := h.upload(t, imports.EntityPeople, peopleCSV, imports.ModeCreateOnly, false)
		_, err := h.svc.Start(ctx, h.admin, fresh.ID)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestImportService_StartQueueFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.upload(t, imports.EntityPeople, peopleCSV, imports.ModeCreateOnly, false)
	_, err := h.svc.Preview(ctx, h.admin, job.ID)
	require.NoError(t, err)

	h.queue.On("Enqueue", mock.Anything, core.QueueImports, core.JobProcessImport, mock.Anything).
		Return(errors.New("redis down")).Once()
	_, err = h.svc.Start(ctx, h.admin, job.ID)
	require.Error(t, err)

	failed, err := h.svc.Status(ctx, h.admin, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "failed", failed.Status)
	assert.Contains(t, *failed.FailureReason, "redis down")
	h.queue.AssertExpectations(t)
}

func TestImportService_ProcessIgnoresPendingJobs(t *testing.T) {
	h := newHarness(t)
	job := h.upload(t, imports.EntityPeople, peopleCSV, imports.ModeCreateOnly, false)
	require.NoError(t, h.svc.Process(context.Background(), h.tenant.ID, job.ID))

	status, err := h.svc.Status(context.Background(), h.admin, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", status.Status)
	assert.Zero(t, status.ProcessedRows)
}
