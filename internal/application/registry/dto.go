package registry

import (
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/google/uuid"
)

// MembershipDTO represents a person's membership
type MembershipDTO struct {
	Status              string     `json:"status"`
	JoinDate            *time.Time `json:"join_date,omitempty"`
	FoundationCompleted bool       `json:"foundation_completed"`
	BaptismDate         *time.Time `json:"baptism_date,omitempty"`
	CellID              *uuid.UUID `json:"cell_id,omitempty"`
}

// PersonDTO represents a person with their membership, if any
type PersonDTO struct {
	ID                 uuid.UUID      `json:"id"`
	OrgUnitID          uuid.UUID      `json:"org_unit_id"`
	MemberCode         *string        `json:"member_code,omitempty"`
	Title              *string        `json:"title,omitempty"`
	FirstName          string         `json:"first_name"`
	LastName           string         `json:"last_name"`
	Alias              *string        `json:"alias,omitempty"`
	DOB                *time.Time     `json:"dob,omitempty"`
	Gender             string         `json:"gender"`
	Email              *string        `json:"email,omitempty"`
	Phone              *string        `json:"phone,omitempty"`
	AddressLine1       *string        `json:"address_line1,omitempty"`
	AddressLine2       *string        `json:"address_line2,omitempty"`
	Town               *string        `json:"town,omitempty"`
	County             *string        `json:"county,omitempty"`
	Eircode            *string        `json:"eircode,omitempty"`
	MaritalStatus      *string        `json:"marital_status,omitempty"`
	ConsentContact     bool           `json:"consent_contact"`
	ConsentDataStorage bool           `json:"consent_data_storage"`
	Membership         *MembershipDTO `json:"membership,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// ToPersonDTO converts a domain person and an optional membership
func ToPersonDTO(p *registry.Person, m *registry.Membership) PersonDTO {
	dto := PersonDTO{
		ID:                 p.ID,
		OrgUnitID:          p.OrgUnitID,
		MemberCode:         p.MemberCode,
		Title:              p.Title,
		FirstName:          p.FirstName,
		LastName:           p.LastName,
		Alias:              p.Alias,
		DOB:                p.DOB,
		Gender:             string(p.Gender),
		Email:              p.Email,
		Phone:              p.Phone,
		AddressLine1:       p.AddressLine1,
		AddressLine2:       p.AddressLine2,
		Town:               p.Town,
		County:             p.County,
		Eircode:            p.Eircode,
		ConsentContact:     p.ConsentContact,
		ConsentDataStorage: p.ConsentDataStorage,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.MaritalStatus != nil {
		s := string(*p.MaritalStatus)
		dto.MaritalStatus = &s
	}
	if m != nil {
		dto.Membership = &MembershipDTO{
			Status:              string(m.Status),
			JoinDate:            m.JoinDate,
			FoundationCompleted: m.FoundationCompleted,
			BaptismDate:         m.BaptismDate,
			CellID:              m.CellID,
		}
	}
	return dto
}

// MembershipInput upserts a person's membership
type MembershipInput struct {
	Status              string
	JoinDate            *time.Time
	FoundationCompleted bool
	BaptismDate         *time.Time
	CellID              *uuid.UUID
}

// PersonInput carries the attributes of a person on create and update
type PersonInput struct {
	OrgUnitID          uuid.UUID
	Title              *string
	FirstName          string
	LastName           string
	Alias              *string
	DOB                *time.Time
	Gender             string
	Email              *string
	Phone              *string
	AddressLine1       *string
	AddressLine2       *string
	Town               *string
	County             *string
	Eircode            *string
	MaritalStatus      *string
	ConsentContact     *bool
	ConsentDataStorage *bool

	// Membership is upserted when set
	Membership *MembershipInput
}

func (in PersonInput) details() registry.PersonDetails {
	d := registry.PersonDetails{
		Title:              in.Title,
		FirstName:          in.FirstName,
		LastName:           in.LastName,
		Alias:              in.Alias,
		DOB:                in.DOB,
		Gender:             registry.Gender(in.Gender),
		Email:              in.Email,
		Phone:              in.Phone,
		AddressLine1:       in.AddressLine1,
		AddressLine2:       in.AddressLine2,
		Town:               in.Town,
		County:             in.County,
		Eircode:            in.Eircode,
		ConsentContact:     in.ConsentContact,
		ConsentDataStorage: in.ConsentDataStorage,
	}
	if in.MaritalStatus != nil && *in.MaritalStatus != "" {
		ms := registry.MaritalStatus(*in.MaritalStatus)
		d.MaritalStatus = &ms
	}
	return d
}

// PersonListFilter narrows people listings
type PersonListFilter struct {
	OrgUnitID *uuid.UUID
	Search    string
	Page      int
	PageSize  int
}

// FirstTimerDTO represents a first-timer
type FirstTimerDTO struct {
	ID        uuid.UUID  `json:"id"`
	PersonID  *uuid.UUID `json:"person_id,omitempty"`
	ServiceID uuid.UUID  `json:"service_id"`
	Source    *string    `json:"source,omitempty"`
	Status    string     `json:"status"`
	Notes     *string    `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ToFirstTimerDTO converts a domain first-timer
func ToFirstTimerDTO(f *registry.FirstTimer) FirstTimerDTO {
	return FirstTimerDTO{
		ID:        f.ID,
		PersonID:  f.PersonID,
		ServiceID: f.ServiceID,
		Source:    f.Source,
		Status:    string(f.Status),
		Notes:     f.Notes,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// CreateFirstTimerInput contains input for recording a first-timer
type CreateFirstTimerInput struct {
	ServiceID uuid.UUID
	PersonID  *uuid.UUID
	Source    *string
	Notes     *string
}

// FirstTimerListFilter narrows first-timer listings
type FirstTimerListFilter struct {
	ServiceID *uuid.UUID
	Status    string
	Page      int
	PageSize  int
}

// ServiceDTO represents a service event
type ServiceDTO struct {
	ID          uuid.UUID `json:"id"`
	OrgUnitID   uuid.UUID `json:"org_unit_id"`
	Name        string    `json:"name"`
	ServiceDate time.Time `json:"service_date"`
	ServiceTime *string   `json:"service_time,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToServiceDTO converts a domain service
func ToServiceDTO(s *registry.Service) ServiceDTO {
	return ServiceDTO{
		ID:          s.ID,
		OrgUnitID:   s.OrgUnitID,
		Name:        s.Name,
		ServiceDate: s.ServiceDate,
		ServiceTime: s.ServiceTime,
		CreatedAt:   s.CreatedAt,
	}
}

// CreateServiceInput contains input for creating a service
type CreateServiceInput struct {
	OrgUnitID   uuid.UUID
	Name        string
	ServiceDate time.Time
	ServiceTime *string
}

// ServiceListFilter narrows service and attendance listings
type ServiceListFilter struct {
	OrgUnitID *uuid.UUID
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// AttendanceDTO represents the attendance of a service
type AttendanceDTO struct {
	ID               uuid.UUID `json:"id"`
	ServiceID        uuid.UUID `json:"service_id"`
	MenCount         int       `json:"men_count"`
	WomenCount       int       `json:"women_count"`
	TeensCount       int       `json:"teens_count"`
	KidsCount        int       `json:"kids_count"`
	FirstTimersCount int       `json:"first_timers_count"`
	NewConvertsCount int       `json:"new_converts_count"`
	TotalAttendance  int       `json:"total_attendance"`
	Notes            *string   `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ToAttendanceDTO converts a domain attendance record
func ToAttendanceDTO(a *registry.Attendance) AttendanceDTO {
	return AttendanceDTO{
		ID:               a.ID,
		ServiceID:        a.ServiceID,
		MenCount:         a.MenCount,
		WomenCount:       a.WomenCount,
		TeensCount:       a.TeensCount,
		KidsCount:        a.KidsCount,
		FirstTimersCount: a.FirstTimersCount,
		NewConvertsCount: a.NewConvertsCount,
		TotalAttendance:  a.TotalAttendance,
		Notes:            a.Notes,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// AttendanceInput carries the head counts of a service
type AttendanceInput struct {
	Men         int
	Women       int
	Teens       int
	Kids        int
	FirstTimers int
	NewConverts int
	Notes       *string
}

func (in AttendanceInput) counts() registry.AttendanceCounts {
	return registry.AttendanceCounts{
		Men:         in.Men,
		Women:       in.Women,
		Teens:       in.Teens,
		Kids:        in.Kids,
		FirstTimers: in.FirstTimers,
		NewConverts: in.NewConverts,
	}
}

// DepartmentDTO represents a department
type DepartmentDTO struct {
	ID        uuid.UUID `json:"id"`
	OrgUnitID uuid.UUID `json:"org_unit_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToDepartmentDTO converts a domain department
func ToDepartmentDTO(d *registry.Department) DepartmentDTO {
	return DepartmentDTO{
		ID:        d.ID,
		OrgUnitID: d.OrgUnitID,
		Name:      d.Name,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// DepartmentMemberDTO represents a person's role in a department
type DepartmentMemberDTO struct {
	ID        uuid.UUID  `json:"id"`
	DeptID    uuid.UUID  `json:"dept_id"`
	PersonID  uuid.UUID  `json:"person_id"`
	Role      string     `json:"role"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// ToDepartmentMemberDTO converts a domain department role
func ToDepartmentMemberDTO(r *registry.DepartmentRole) DepartmentMemberDTO {
	return DepartmentMemberDTO{
		ID:        r.ID,
		DeptID:    r.DeptID,
		PersonID:  r.PersonID,
		Role:      string(r.Role),
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
	}
}

// AssignMemberInput assigns a person to a department
type AssignMemberInput struct {
	PersonID  uuid.UUID
	Role      string
	StartDate *time.Time
	EndDate   *time.Time
}

// DepartmentListFilter narrows department listings
type DepartmentListFilter struct {
	OrgUnitID *uuid.UUID
	Status    string
	Page      int
	PageSize  int
}
