package importapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/cells"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/imports"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	fileimport "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/import"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// rowFailure is a problem with one row. It is recorded against the job and
// never aborts the import.
type rowFailure struct {
	Field   string
	Type    imports.ErrorType
	Message string
	Value   string
}

func (f *rowFailure) Error() string {
	return f.Message
}

func referenceFailure(field, value, format string, args ...any) *rowFailure {
	return &rowFailure{Field: field, Type: imports.ErrorReference, Message: fmt.Sprintf(format, args...), Value: value}
}

func duplicateFailure(field, value, format string, args ...any) *rowFailure {
	return &rowFailure{Field: field, Type: imports.ErrorDuplicate, Message: fmt.Sprintf(format, args...), Value: value}
}

// classify turns an error from a row into its recorded form
func classify(err error) rowFailure {
	var rf *rowFailure
	if errors.As(err, &rf) {
		return *rf
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		switch de.Code {
		case shared.CodeNotFound:
			return rowFailure{Type: imports.ErrorReference, Message: de.Message}
		case shared.CodeAlreadyExists:
			return rowFailure{Type: imports.ErrorDuplicate, Message: de.Message}
		default:
			return rowFailure{Type: imports.ErrorValidation, Message: de.Message}
		}
	}
	return rowFailure{Type: imports.ErrorValidation, Message: err.Error()}
}

// fields reads typed values out of a mapped row that already passed
// Schema.ValidateRow, so coercion errors cannot occur here
type fields struct {
	schema fileimport.Schema
	raw    map[string]string
}

func (f fields) text(name string) string {
	return strings.TrimSpace(f.raw[name])
}

func (f fields) optional(name string) *string {
	if v := f.text(name); v != "" {
		return &v
	}
	return nil
}

func (f fields) date(name string) *time.Time {
	t, err := fileimport.ParseDate(f.text(name))
	if err != nil {
		return nil
	}
	return &t
}

func (f fields) timeOfDay(name string) *string {
	v, err := fileimport.ParseTimeOfDay(f.text(name))
	if err != nil {
		return nil
	}
	return &v
}

func (f fields) integer(name string) int {
	n, _ := fileimport.ParseInt(f.text(name))
	return n
}

func (f fields) amount(name string) decimal.Decimal {
	d, _ := fileimport.ParseDecimal(f.text(name))
	return d
}

func (f fields) flag(name string) bool {
	b, _ := fileimport.ParseBool(f.text(name))
	return b
}

func (f fields) email(name string) *string {
	v, err := fileimport.ParseEmail(f.text(name))
	if err != nil {
		return nil
	}
	return &v
}

func (f fields) phone(name string) *string {
	v, err := fileimport.ParsePhone(f.text(name))
	if err != nil {
		return nil
	}
	return &v
}

// choice returns the canonical enum value, or "" when the field is empty
func (f fields) choice(name string) string {
	rule, ok := f.schema.Rule(name)
	if !ok {
		return ""
	}
	v, err := fileimport.ParseEnum(f.text(name), rule.Enum, rule.EnumAliases)
	if err != nil {
		return ""
	}
	return v
}

func (f fields) id(name string) *uuid.UUID {
	id, err := uuid.Parse(f.text(name))
	if err != nil {
		return nil
	}
	return &id
}

// resolver looks up the records a row refers to by id, email, member code or name
type resolver struct {
	repos    core.TransactionalRepositories
	tenantID uuid.UUID
}

func notFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}

// orgUnit picks the row's org unit, falling back to the job default
func (r resolver) orgUnit(ctx context.Context, job *imports.Job, f fields) (uuid.UUID, error) {
	id := f.id("org_unit_id")
	if id == nil {
		id = job.DefaultOrgUnitID
	}
	if id == nil {
		return uuid.Nil, &rowFailure{
			Field: "org_unit_id", Type: imports.ErrorRequired,
			Message: "org_unit_id is required when the import has no default org unit",
		}
	}
	if _, err := r.repos.OrgUnitRepo().FindByID(ctx, r.tenantID, *id); err != nil {
		if notFound(err) {
			return uuid.Nil, referenceFailure("org_unit_id", id.String(), "org unit %s not found", id)
		}
		return uuid.Nil, err
	}
	return *id, nil
}

// person matches a reference by id, email or member code
func (r resolver) person(ctx context.Context, field, ref string) (*registry.Person, error) {
	ref = strings.TrimSpace(ref)
	var (
		p   *registry.Person
		err error
	)
	switch {
	case isUUID(ref):
		p, err = r.repos.PersonRepo().FindByID(ctx, r.tenantID, uuid.MustParse(ref))
	case strings.Contains(ref, "@"):
		p, err = r.repos.PersonRepo().FindByEmail(ctx, r.tenantID, ref)
	default:
		p, err = r.repos.PersonRepo().FindByMemberCode(ctx, r.tenantID, ref)
	}
	if notFound(err) {
		return nil, referenceFailure(field, ref, "no person matches %q", ref)
	}
	return p, err
}

// existingPerson finds a person by the row's email, then its member code.
// A nil person means no match.
func (r resolver) existingPerson(ctx context.Context, f fields) (*registry.Person, error) {
	if email := f.email("email"); email != nil {
		p, err := r.repos.PersonRepo().FindByEmail(ctx, r.tenantID, *email)
		if err == nil || !notFound(err) {
			return p, err
		}
	}
	if code := f.text("member_code"); code != "" {
		p, err := r.repos.PersonRepo().FindByMemberCode(ctx, r.tenantID, code)
		if err == nil || !notFound(err) {
			return p, err
		}
	}
	return nil, nil
}

// optionalPerson resolves field when present
func (r resolver) optionalPerson(ctx context.Context, f fields, field string) (*uuid.UUID, error) {
	ref := f.text(field)
	if ref == "" {
		return nil, nil
	}
	p, err := r.person(ctx, field, ref)
	if err != nil {
		return nil, err
	}
	return &p.ID, nil
}

func (r resolver) service(ctx context.Context, f fields) (*registry.Service, error) {
	ref := f.text("service_id")
	svc, err := r.repos.ServiceRepo().FindByID(ctx, r.tenantID, uuid.MustParse(ref))
	if notFound(err) {
		return nil, referenceFailure("service_id", ref, "service %s not found", ref)
	}
	return svc, err
}

// cell matches a cell by id or by case-insensitive name, preferring orgUnit
// when the name exists in more than one unit
func (r resolver) cell(ctx context.Context, field, ref string, orgUnit *uuid.UUID) (*cells.Cell, error) {
	ref = strings.TrimSpace(ref)
	if isUUID(ref) {
		c, err := r.repos.CellRepo().FindByID(ctx, r.tenantID, uuid.MustParse(ref))
		if notFound(err) {
			return nil, referenceFailure(field, ref, "cell %s not found", ref)
		}
		return c, err
	}
	matches, err := r.cellsNamed(ctx, ref, orgUnit)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, referenceFailure(field, ref, "no cell named %q", ref)
	case 1:
		return &matches[0], nil
	default:
		return nil, referenceFailure(field, ref, "cell name %q is ambiguous, use the cell id", ref)
	}
}

func (r resolver) cellsNamed(ctx context.Context, name string, orgUnit *uuid.UUID) ([]cells.Cell, error) {
	filter := shared.Filter{Page: 1, PageSize: 100, Search: name}.Normalize()
	if orgUnit != nil {
		filter = filter.With("org_unit_id", *orgUnit)
	}
	found, err := r.repos.CellRepo().FindAll(ctx, r.tenantID, filter)
	if err != nil {
		return nil, err
	}
	var matches []cells.Cell
	for _, c := range found {
		if strings.EqualFold(c.Name, name) {
			matches = append(matches, c)
		}
	}
	return matches, nil
}

func (r resolver) fund(ctx context.Context, f fields) (*finance.Fund, error) {
	ref := f.text("fund")
	var (
		fund *finance.Fund
		err  error
	)
	if isUUID(ref) {
		fund, err = r.repos.FundRepo().FindByID(ctx, r.tenantID, uuid.MustParse(ref))
	} else {
		fund, err = r.repos.FundRepo().FindActiveByName(ctx, r.tenantID, ref)
	}
	if notFound(err) {
		return nil, referenceFailure("fund", ref, "no active fund matches %q", ref)
	}
	return fund, err
}

func (r resolver) arm(ctx context.Context, f fields) (*uuid.UUID, error) {
	ref := f.text("partnership_arm")
	if ref == "" {
		return nil, nil
	}
	if isUUID(ref) {
		arm, err := r.repos.PartnershipArmRepo().FindByID(ctx, r.tenantID, uuid.MustParse(ref))
		if notFound(err) {
			return nil, referenceFailure("partnership_arm", ref, "partnership arm %s not found", ref)
		}
		if err != nil {
			return nil, err
		}
		return &arm.ID, nil
	}
	arms, err := r.repos.PartnershipArmRepo().FindAll(ctx, r.tenantID, true)
	if err != nil {
		return nil, err
	}
	for _, a := range arms {
		if strings.EqualFold(a.Name, ref) {
			return &a.ID, nil
		}
	}
	return nil, referenceFailure("partnership_arm", ref, "no active partnership arm matches %q", ref)
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
