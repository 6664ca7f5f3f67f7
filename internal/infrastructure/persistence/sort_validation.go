package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted, otherwise defaultField
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// orderClause builds a safe ORDER BY expression from client input
func orderClause(field, dir string, allowed map[string]bool, defaultField string) string {
	return ValidateSortField(field, allowed, defaultField) + " " + ValidateSortOrder(dir)
}

// OrgUnitSortFields contains allowed sort fields for org units
var OrgUnitSortFields = map[string]bool{
	"name":       true,
	"type":       true,
	"created_at": true,
	"updated_at": true,
}

// RoleSortFields contains allowed sort fields for roles
var RoleSortFields = map[string]bool{
	"name":       true,
	"created_at": true,
}

// PersonSortFields contains allowed sort fields for people
var PersonSortFields = map[string]bool{
	"first_name":  true,
	"last_name":   true,
	"member_code": true,
	"email":       true,
	"created_at":  true,
	"updated_at":  true,
}

// BatchSortFields contains allowed sort fields for batches
var BatchSortFields = map[string]bool{
	"status":     true,
	"locked_at":  true,
	"created_at": true,
	"updated_at": true,
}

// CellSortFields contains allowed sort fields for cells
var CellSortFields = map[string]bool{
	"name":       true,
	"status":     true,
	"created_at": true,
}

// DepartmentSortFields contains allowed sort fields for departments
var DepartmentSortFields = map[string]bool{
	"name":       true,
	"status":     true,
	"created_at": true,
}

// PartnershipSortFields contains allowed sort fields for partnerships
var PartnershipSortFields = map[string]bool{
	"start_date": true,
	"status":     true,
	"cadence":    true,
	"created_at": true,
}

// FirstTimerSortFields contains allowed sort fields for first-timers
var FirstTimerSortFields = map[string]bool{
	"status":     true,
	"created_at": true,
}

// ImportJobSortFields contains allowed sort fields for import jobs
var ImportJobSortFields = map[string]bool{
	"status":     true,
	"created_at": true,
	"file_name":  true,
}

// UserSortFields contains allowed sort fields for users
var UserSortFields = map[string]bool{
	"email":      true,
	"created_at": true,
}
