package importapp

import (
	"context"
	"time"

	appcells "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/cells"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appfinance "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/finance"
	appregistry "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/cells"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/imports"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
)

// Targets are the module services that imported rows are written through,
// so every row gets the same validation, permission checks and audit trail
// as a record entered by hand
type Targets struct {
	People      *appregistry.PersonService
	FirstTimers *appregistry.FirstTimerService
	Attendance  *appregistry.AttendanceService
	Cells       *appcells.CellService
	Reports     *appcells.ReportService
	Entries     *appfinance.EntryService
}

// rowPlan is the resolved work for one row. A plan without apply skips the
// row, recording duplicate when it is set.
type rowPlan struct {
	duplicate *rowFailure
	apply     func(ctx context.Context, actor core.Actor) error
}

func skipDuplicate(f *rowFailure) *rowPlan {
	return &rowPlan{duplicate: f}
}

// planner resolves the references of a validated row inside a read transaction
type planner func(ctx context.Context, r resolver, job *imports.Job, f fields) (*rowPlan, error)

func (t Targets) planner(entity imports.EntityType) planner {
	switch entity {
	case imports.EntityPeople:
		return t.planPerson
	case imports.EntityMemberships:
		return t.planMembership
	case imports.EntityFirstTimers:
		return t.planFirstTimer
	case imports.EntityServices:
		return t.planService
	case imports.EntityAttendance:
		return t.planAttendance
	case imports.EntityCells:
		return t.planCell
	case imports.EntityCellReports:
		return t.planCellReport
	case imports.EntityFinanceEntries:
		return t.planEntry
	}
	return nil
}

func (t Targets) planPerson(ctx context.Context, r resolver, job *imports.Job, f fields) (*rowPlan, error) {
	existing, err := r.existingPerson(ctx, f)
	if err != nil {
		return nil, err
	}
	input := appregistry.PersonInput{
		Title:         f.optional("title"),
		FirstName:     f.text("first_name"),
		LastName:      f.text("last_name"),
		Alias:         f.optional("alias"),
		DOB:           f.date("dob"),
		Gender:        f.choice("gender"),
		Email:         f.email("email"),
		Phone:         f.phone("phone"),
		AddressLine1:  f.optional("address_line1"),
		AddressLine2:  f.optional("address_line2"),
		Town:          f.optional("town"),
		County:        f.optional("county"),
		Eircode:       f.optional("eircode"),
		MaritalStatus: optionalChoice(f, "marital_status"),
	}

	if existing != nil {
		if job.ImportMode != imports.ModeUpdateExisting {
			return skipDuplicate(duplicateFailure("email", f.text("email"),
				"person %s %s already exists", existing.FirstName, existing.LastName)), nil
		}
		if f.id("org_unit_id") != nil {
			if input.OrgUnitID, err = r.orgUnit(ctx, job, f); err != nil {
				return nil, err
			}
		}
		keepPersonValues(&input, existing)
		id := existing.ID
		return &rowPlan{apply: func(ctx context.Context, actor core.Actor) error {
			_, err := t.People.Update(ctx, actor, id, input)
			return err
		}}, nil
	}

	if input.OrgUnitID, err = r.orgUnit(ctx, job, f); err != nil {
		return nil, err
	}
	return &rowPlan{apply: func(ctx context.Context, actor core.Actor) error {
		_, err := t.People.Create(ctx, actor, input)
		return err
	}}, nil
}

// keepPersonValues fills columns missing from the file with the stored values
func keepPersonValues(in *appregistry.PersonInput, p *registry.Person) {
	keep := func(dst **string, src *string) {
		if *dst == nil {
			*dst = src
		}
	}
	keep(&in.Title, p.Title)
	keep(&in.Alias, p.Alias)
	keep(&in.Email, p.Email)
	keep(&in.Phone, p.Phone)
	keep(&in.AddressLine1, p.AddressLine1)
	keep(&in.AddressLine2, p.AddressLine2)
	keep(&in.Town, p.Town)
	keep(&in.County, p.County)
	keep(&in.Eircode, p.Eircode)
	if in.DOB == nil {
		in.DOB = p.DOB
	}
	if in.MaritalStatus == nil && p.MaritalStatus != nil {
		ms := string(*p.MaritalStatus)
		in.MaritalStatus = &ms
	}
	contact, storage := p.ConsentContact, p.ConsentDataStorage
	in.ConsentContact, in.ConsentDataStorage = &contact, &storage
}

func optionalChoice(f fields, name string) *string {
	if v := f.choice(name); v != "" {
		return &v
	}
	return nil
}

func (t Targets) planMembership(ctx context.Context, r resolver, job *imports.Job, f fields) (*rowPlan, error) {
	if f.text("email") == "" && f.text("member_code") == "" {
		return nil, &rowFailure{Field: "email", Type: imports.ErrorRequired, Message: "email or member_code is required to find the person"}
	}
	person, err := r.existingPerson(ctx, f)
	if err != nil {
		return nil, err
	}
	if person == nil {
		ref := f.text("email")
		if ref == "" {
			ref = f.text("member_code")
		}
		return nil, referenceFailure("email", ref, "no person matches %q", ref)
	}

	current, err := r.repos.PersonRepo().FindMembership(ctx, person.ID)
	if err != nil && !notFound(err) {
		return nil, err
	}
	if current != nil && job.ImportMode != imports.ModeUpdateExisting {
		return skipDuplicate(duplicateFailure("status", f.text("status"),
			"%s %s already has a membership", person.FirstName, person.LastName)), nil
	}

	input := appregistry.MembershipInput{
		Status:              f.choice("status"),
		JoinDate:            f.date("join_date"),
		FoundationCompleted: f.flag("foundation_completed"),
		BaptismDate:         f.date("baptism_date"),
	}
	if ref := f.text("cell"); ref != "" {
		cell, err := r.cell(ctx, "cell", ref, &person.OrgUnitID)
		if err != nil {
			return nil, err
		}
		input.CellID = &cell.ID
	}
	id := person.ID
	return &rowPlan{apply: func(ctx context.Context, actor core.Actor) error {
		_, err := t.People.UpdateMembership(ctx, actor, id, input)
		return err
	}}, nil
}

func (t Targets) planFirstTimer(ctx context.Context, r resolver, job *imports.Job, f fields) (*rowPlan, error) {
	svc, err := r.service(ctx, f)
	if err != nil {
		return nil, err
	}
	input := appregistry.CreateFirstTimerInput{
		ServiceID: svc.ID,
		Source:    f.optional("source"),
		Notes:     f.optional("notes"),
	}
	if f.text("email") != "" || f.text("member_code") != "" {
		person, err := r.existingPerson(ctx, f)
		if err != nil {
			return nil, err
		}
		if person == nil {
			return nil, referenceFailure("email", f.text("email"), "no person matches the row's email or member code")
		}
		input.PersonID = &person.ID
	}
	status := f.choice("status")
	return &rowPlan{apply: func(ctx context.Context, actor core.Actor) error {
		ft, err := t.FirstTimers.Create(ctx, actor, input)
		if err != nil {
			return err
		}
		if status == "" || status == string(registry.FirstTimerNew) {
			return nil
		}
		_, err = t.FirstTimers.UpdateStatus(ctx, actor, ft.ID, status, nil)
		return err
	}}, nil
}

func (t Targets) planService(ctx context.Context, r resolver, job *imports.Job, f fields) (*rowPlan, error) {
	unitID, err := r.orgUnit(ctx, job, f)
	if err != nil {
		return nil, err
	}
	input := appregistry.CreateServiceInput{
		OrgUnitID:   unitID,
		Name:        f.text("name"),
		ServiceDate: *f.date("service_date"),
		ServiceTime: f.timeOfDay("service_time"),
	}
	_, err = r.repos.ServiceRepo().FindByNaturalKey(ctx, r.tenantID, unitID, input.Name, input.ServiceDate)
	switch {
	case err == nil:
		if job.ImportMode == imports.ModeUpdateExisting {
			return &rowPlan{}, nil
		}
		return skipDuplicate(duplicateFailure("name", input.Name,
			"service %q on %s already exists", input.Name, input.ServiceDate.Format(time.DateOnly))), nil
	case !notFound(err):
		return nil, err
	}
	return &rowPlan{apply: func(ctx context.Context, actor core.Actor) error {
		_, err := t.Attendance.CreateService(ctx, actor, input)
		return err
	}}, nil
}

func (t Targets) planAttendance(ctx context.Context, r resolver, job *imports.Job, f fields) (*rowPlan, error) {
	svc, err := r.service(ctx, f)
	if err != nil {
		return nil, err
	}
	input := appregistry.AttendanceInput{
		Men:         f.integer("men"),
		Women:       f.integer("women"),
		Teens:       f.integer("teens"),
		Kids:        f.integer("kids"),
		FirstTimers: f.integer("first_timers"),
		NewConverts: f.integer("new_converts"),
		Notes:       f.optional("notes"),
	}
	existing, err := r.repos.ServiceRepo().FindAttendanceByService(ctx, r.tenantID, svc.ID)
	if err != nil && !notFound(err) {
		return nil, err
	}
	if existing != nil {
		if job.ImportMode != imports.ModeUpdateExisting {
			return skipDuplicate(duplicateFailure("service_id", svc.ID.String(),
				"attendance for service %q is already recorded", svc.Name)), nil
		}
		id := existing.ID
		return &rowPlan{apply: func(ctx context.Context, actor core.Actor) error {
			_, err := t.Attendance.UpdateAttendance(ctx, actor, id, input)
			return err
		}}, nil
	}
	serviceID := svc.ID
	return &rowPlan{apply: func(ctx context.Context, actor core.Actor) error {
		_, err := t.Attendance.RecordAttendance(ctx, actor, serviceID, input)
		return err
	}}, nil
}

func (t Targets) planCell(ctx context.Context, r resolver, job *imports.Job, f fields) (*rowPlan, error) {
	unitID, err := r.orgUnit(ctx, job, f)
	if err != nil {
		return nil, err
	}
	input := appcells.CellInput{
		OrgUnitID:   unitID,
		Name:        f.text("name"),
		Venue:       f.optional("venue"),
		MeetingDay:  optionalChoice(f, "meeting_day"),
		MeetingTime: f.timeOfDay("meeting_time"),
		Status:      f.choice("status"),
	}
	if input.LeaderID, err = r.optionalPerson(ctx, f, "leader"); err != nil {
		return nil, err
	}
	if input.AssistantLeaderID, err = r.optionalPerson(ctx, f, "assistant_leader"); err != nil {
		return nil, err
	}

	matches, err := r.cellsNamed(ctx, input.Name, &unitID)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		if job.ImportMode != imports.ModeUpdateExisting {
			return skipDuplicate(duplicateFailure("name", input.Name, "cell %q already exists", input.Name)), nil
		}
		existing := matches[0]
		if input.Venue == nil {
			input.Venue = existing.Venue
		}
		if input.MeetingDay == nil {
			input.MeetingDay = existing.MeetingDay
		}
		if input.MeetingTime == nil {
			input.MeetingTime = existing.MeetingTime
		}
		if input.LeaderID == nil {
			input.LeaderID = existing.LeaderID
		}
		if input.AssistantLeaderID == nil {
			input.AssistantLeaderID = existing.AssistantLeaderID
		}
		id := existing.ID
		return &rowPlan{apply: func(ctx context.Context, actor core.Actor) error {
			_, err := t.Cells.Update(ctx, actor, id, input)
			return err
		}}, nil
	}
	if input.Status == "" {
		input.Status = cells.CellActive
	}
	return &rowPlan{apply: func(ctx context.Context, actor core.Actor) error {
		_, err := t.Cells.Create(ctx, actor, input)
		return err
	}}, nil
}

func (t Targets) planCellReport(ctx context.Context, r resolver, job *imports.Job, f fields) (*rowPlan, error) {
	cell, err := r.cell(ctx, "cell", f.text("cell"), job.DefaultOrgUnitID)
	if err != nil {
		return nil, err
	}
	input := appcells.ReportInput{
		ReportDate:     *f.date("report_date"),
		ReportTime:     f.timeOfDay("report_time"),
		Attendance:     f.integer("attendance"),
		FirstTimers:    f.integer("first_timers"),
		NewConverts:    f.integer("new_converts"),
		Testimonies:    f.optional("testimonies"),
		OfferingsTotal: f.amount("offerings_total"),
		MeetingType:    f.choice("meeting_type"),
		Notes:          f.optional("notes"),
	}
	date := input.ReportDate
	existing, _, err := r.repos.CellReportRepo().FindAll(ctx, r.tenantID, cells.ReportFilter{
		CellID: &cell.ID, From: &date, To: &date, Page: 1, PageSize: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		if job.ImportMode != imports.ModeUpdateExisting {
			return skipDuplicate(duplicateFailure("report_date", f.text("report_date"),
				"cell %q already has a report for %s", cell.Name, date.Format(time.DateOnly))), nil
		}
		id := existing[0].ID
		return &rowPlan{apply: func(ctx context.Context, actor core.Actor) error {
			_, err := t.Reports.Update(ctx, actor, id, input)
			return err
		}}, nil
	}
	cellID := cell.ID
	return &rowPlan{apply: func(ctx context.Context, actor core.Actor) error {
		_, err := t.Reports.Create(ctx, actor, cellID, input)
		return err
	}}, nil
}

func (t Targets) planEntry(ctx context.Context, r resolver, job *imports.Job, f fields) (*rowPlan, error) {
	unitID, err := r.orgUnit(ctx, job, f)
	if err != nil {
		return nil, err
	}
	fund, err := r.fund(ctx, f)
	if err != nil {
		return nil, err
	}
	jobID := job.ID
	input := appfinance.CreateEntryInput{
		OrgUnitID:         unitID,
		BatchID:           f.id("batch_id"),
		ServiceID:         f.id("service_id"),
		FundID:            fund.ID,
		Amount:            f.amount("amount"),
		Currency:          f.text("currency"),
		Method:            f.choice("method"),
		ExternalGiverName: f.optional("external_giver_name"),
		Reference:         f.optional("reference"),
		Comment:           f.optional("comment"),
		TransactionDate:   *f.date("transaction_date"),
		SourceType:        string(finance.SourceImport),
		SourceID:          &jobID,
	}
	if input.Method == "" {
		input.Method = string(finance.MethodCash)
	}
	if input.PartnershipArmID, err = r.arm(ctx, f); err != nil {
		return nil, err
	}
	if input.PersonID, err = r.optionalPerson(ctx, f, "person"); err != nil {
		return nil, err
	}
	if ref := f.text("cell"); ref != "" {
		cell, err := r.cell(ctx, "cell", ref, &unitID)
		if err != nil {
			return nil, err
		}
		input.CellID = &cell.ID
	}
	return &rowPlan{apply: func(ctx context.Context, actor core.Actor) error {
		_, err := t.Entries.Create(ctx, actor, input)
		return err
	}}, nil
}
