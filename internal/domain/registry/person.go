package registry

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// MemberCodePrefix prefixes every generated member code
const MemberCodePrefix = "MEM"

// Gender of a person
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// IsValid reports whether g is a known gender
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// MaritalStatus of a person
type MaritalStatus string

const (
	MaritalSingle    MaritalStatus = "single"
	MaritalMarried   MaritalStatus = "married"
	MaritalDivorced  MaritalStatus = "divorced"
	MaritalWidowed   MaritalStatus = "widowed"
	MaritalSeparated MaritalStatus = "separated"
)

// IsValid reports whether m is a known marital status
func (m MaritalStatus) IsValid() bool {
	switch m {
	case MaritalSingle, MaritalMarried, MaritalDivorced, MaritalWidowed, MaritalSeparated:
		return true
	}
	return false
}

// Person is a member, visitor or partner known to an org unit
type Person struct {
	shared.TenantEntity
	OrgUnitID          uuid.UUID      `gorm:"type:uuid;not null;index"`
	MemberCode         *string        `gorm:"type:varchar(50);index"`
	Title              *string        `gorm:"type:varchar(20)"`
	FirstName          string         `gorm:"type:varchar(100);not null"`
	LastName           string         `gorm:"type:varchar(100);not null"`
	Alias              *string        `gorm:"type:varchar(100)"`
	DOB                *time.Time     `gorm:"column:dob;type:date"`
	Gender             Gender         `gorm:"type:varchar(10);not null"`
	Email              *string        `gorm:"type:varchar(320);index"`
	Phone              *string        `gorm:"type:varchar(32)"`
	AddressLine1       *string        `gorm:"type:varchar(200)"`
	AddressLine2       *string        `gorm:"type:varchar(200)"`
	Town               *string        `gorm:"type:varchar(100)"`
	County             *string        `gorm:"type:varchar(100)"`
	Eircode            *string        `gorm:"type:varchar(10)"`
	MaritalStatus      *MaritalStatus `gorm:"type:varchar(20)"`
	ConsentContact     bool           `gorm:"not null;default:true"`
	ConsentDataStorage bool           `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Person) TableName() string {
	return "people"
}

// PersonDetails holds the editable attributes of a person
type PersonDetails struct {
	Title              *string
	FirstName          string
	LastName           string
	Alias              *string
	DOB                *time.Time
	Gender             Gender
	Email              *string
	Phone              *string
	AddressLine1       *string
	AddressLine2       *string
	Town               *string
	County             *string
	Eircode            *string
	MaritalStatus      *MaritalStatus
	ConsentContact     *bool
	ConsentDataStorage *bool
}

// NewPerson creates a person. The member code is assigned by the caller.
func NewPerson(tenantID, createdBy, orgUnitID uuid.UUID, d PersonDetails) (*Person, error) {
	if orgUnitID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "org unit is required")
	}
	p := &Person{
		TenantEntity:       shared.NewTenantEntity(tenantID, createdBy),
		OrgUnitID:          orgUnitID,
		ConsentContact:     true,
		ConsentDataStorage: true,
	}
	if err := p.Apply(d); err != nil {
		return nil, err
	}
	return p, nil
}

// Apply validates d and overwrites the person's attributes with it
func (p *Person) Apply(d PersonDetails) error {
	first := strings.TrimSpace(d.FirstName)
	last := strings.TrimSpace(d.LastName)
	if first == "" || last == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "first and last name are required")
	}
	if !d.Gender.IsValid() {
		return shared.Errorf(shared.CodeInvalidInput, "invalid gender %q", d.Gender)
	}
	if d.MaritalStatus != nil && !d.MaritalStatus.IsValid() {
		return shared.Errorf(shared.CodeInvalidInput, "invalid marital status %q", *d.MaritalStatus)
	}
	email := cleanOptional(d.Email)
	if email != nil {
		addr, err := mail.ParseAddress(*email)
		if err != nil || addr.Address != *email {
			return shared.Errorf(shared.CodeInvalidInput, "invalid email %q", *email)
		}
		lower := strings.ToLower(*email)
		email = &lower
	}
	if d.DOB != nil && d.DOB.After(time.Now()) {
		return shared.NewDomainError(shared.CodeInvalidInput, "date of birth cannot be in the future")
	}

	p.Title = cleanOptional(d.Title)
	p.FirstName = first
	p.LastName = last
	p.Alias = cleanOptional(d.Alias)
	p.DOB = d.DOB
	p.Gender = d.Gender
	p.Email = email
	p.Phone = cleanOptional(d.Phone)
	p.AddressLine1 = cleanOptional(d.AddressLine1)
	p.AddressLine2 = cleanOptional(d.AddressLine2)
	p.Town = cleanOptional(d.Town)
	p.County = cleanOptional(d.County)
	p.Eircode = cleanOptional(d.Eircode)
	p.MaritalStatus = d.MaritalStatus
	if d.ConsentContact != nil {
		p.ConsentContact = *d.ConsentContact
	}
	if d.ConsentDataStorage != nil {
		p.ConsentDataStorage = *d.ConsentDataStorage
	}
	p.Touch()
	return nil
}

// FullName joins first and last name
func (p *Person) FullName() string {
	return p.FirstName + " " + p.LastName
}

// NextMemberCode returns the code following the highest existing one.
// Codes that do not end in a number after "-" restart the sequence at 1.
func NextMemberCode(highest string) string {
	next := 1
	if highest != "" {
		if idx := strings.LastIndex(highest, "-"); idx >= 0 {
			if n, err := strconv.Atoi(highest[idx+1:]); err == nil {
				next = n + 1
			}
		}
	}
	return fmt.Sprintf("%s-%04d", MemberCodePrefix, next)
}

func cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// MembershipStatus is a person's standing in the church
type MembershipStatus string

const (
	MembershipVisitor MembershipStatus = "visitor"
	MembershipRegular MembershipStatus = "regular"
	MembershipMember  MembershipStatus = "member"
	MembershipPartner MembershipStatus = "partner"
)

// IsValid reports whether s is a known membership status
func (s MembershipStatus) IsValid() bool {
	switch s {
	case MembershipVisitor, MembershipRegular, MembershipMember, MembershipPartner:
		return true
	}
	return false
}

// Membership holds one person's membership details
type Membership struct {
	PersonID            uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Status              MembershipStatus `gorm:"type:varchar(20);not null;default:'visitor'"`
	JoinDate            *time.Time       `gorm:"type:date"`
	FoundationCompleted bool             `gorm:"not null;default:false"`
	BaptismDate         *time.Time       `gorm:"type:date"`
	CellID              *uuid.UUID       `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (Membership) TableName() string {
	return "memberships"
}

// NewMembership validates and builds a membership for personID
func NewMembership(personID uuid.UUID, status MembershipStatus, joinDate *time.Time, foundation bool, baptism *time.Time, cellID *uuid.UUID) (*Membership, error) {
	if status == "" {
		status = MembershipVisitor
	}
	if !status.IsValid() {
		return nil, shared.Errorf(shared.CodeInvalidInput, "invalid membership status %q", status)
	}
	return &Membership{
		PersonID:            personID,
		Status:              status,
		JoinDate:            joinDate,
		FoundationCompleted: foundation,
		BaptismDate:         baptism,
		CellID:              cellID,
	}, nil
}
