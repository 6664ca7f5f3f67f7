package iam

// Permission codes checked by the application services
const (
	PermOrgUnitsCreate = "system.org_units.create"
	PermOrgUnitsUpdate = "system.org_units.update"
	PermOrgUnitsDelete = "system.org_units.delete"
	PermOrgUnitsRead   = "system.org_units.read"

	PermRolesCreate = "system.roles.create"
	PermRolesUpdate = "system.roles.update"
	PermRolesDelete = "system.roles.delete"
	PermRolesRead   = "system.roles.read"
	PermRolesAssign = "system.roles.assign"

	PermPermissionsRead = "system.permissions.read"

	PermUsersRead   = "system.users.read"
	PermUsersCreate = "system.users.create"
	PermUsersUpdate = "system.users.update"
	PermUsersAssign = "system.users.assign"

	PermAuditView = "system.audit.view"

	PermFinanceLookupsManage = "finance.lookups.manage"
	PermBatchesCreate        = "finance.batches.create"
	PermBatchesUpdate        = "finance.batches.update"
	PermBatchesDelete        = "finance.batches.delete"
	PermBatchesLock          = "finance.batches.lock"
	PermBatchesUnlock        = "finance.batches.unlock"
	PermFinanceVerify        = "finance.verify"
	PermEntriesCreate        = "finance.entries.create"
	PermEntriesUpdate        = "finance.entries.update"
	PermEntriesDelete        = "finance.entries.delete"

	PermPeopleCreate      = "registry.people.create"
	PermPeopleUpdate      = "registry.people.update"
	PermPeopleMerge       = "registry.people.merge"
	PermFirstTimersCreate = "registry.firsttimers.create"
	PermFirstTimersUpdate = "registry.firsttimers.update"
	PermAttendanceCreate  = "registry.attendance.create"
	PermAttendanceUpdate  = "registry.attendance.update"
	PermDepartmentsCreate = "registry.departments.create"
	PermDepartmentsUpdate = "registry.departments.update"
	PermDepartmentsDelete = "registry.departments.delete"

	PermCellsManage        = "cells.manage"
	PermCellReportsCreate  = "cells.reports.create"
	PermCellReportsUpdate  = "cells.reports.update"
	PermCellReportsDelete  = "cells.reports.delete"
	PermCellReportsApprove = "cells.reports.approve"

	PermReportsQuery      = "reports.query.execute"
	PermReportsExport     = "reports.exports.create"
	PermReportsTemplates  = "reports.templates.create"
	PermReportsSchedules  = "reports.schedules.create"
	PermReportsDashboards = "reports.dashboards.read"

	PermImportsCreate = "imports.jobs.create"
	PermImportsRead   = "imports.jobs.read"
)

// KnownPermissions describes every permission code the application checks
var KnownPermissions = map[string]string{
	PermOrgUnitsCreate: "Create org units",
	PermOrgUnitsUpdate: "Update and move org units",
	PermOrgUnitsDelete: "Delete org units",
	PermOrgUnitsRead:   "View org units",

	PermRolesCreate: "Create roles",
	PermRolesUpdate: "Rename roles",
	PermRolesDelete: "Delete roles",
	PermRolesRead:   "View roles",
	PermRolesAssign: "Grant and revoke role permissions",

	PermPermissionsRead: "View the permission catalogue",

	PermUsersRead:   "View users",
	PermUsersCreate: "Invite users",
	PermUsersUpdate: "Deactivate users",
	PermUsersAssign: "Manage org assignments",

	PermAuditView: "View audit logs",

	PermFinanceLookupsManage: "Manage funds and partnership arms",
	PermBatchesCreate:        "Create batches",
	PermBatchesUpdate:        "Update draft batches",
	PermBatchesDelete:        "Delete draft batches",
	PermBatchesLock:          "Lock verified batches",
	PermBatchesUnlock:        "Unlock locked batches",
	PermFinanceVerify:        "Verify batches and entries",
	PermEntriesCreate:        "Record finance entries",
	PermEntriesUpdate:        "Update finance entries",
	PermEntriesDelete:        "Delete finance entries",

	PermPeopleCreate:      "Register people",
	PermPeopleUpdate:      "Update and delete people",
	PermPeopleMerge:       "Merge duplicate people",
	PermFirstTimersCreate: "Record first-timers",
	PermFirstTimersUpdate: "Follow up first-timers",
	PermAttendanceCreate:  "Record services and attendance",
	PermAttendanceUpdate:  "Update attendance",
	PermDepartmentsCreate: "Create departments",
	PermDepartmentsUpdate: "Update departments and members",
	PermDepartmentsDelete: "Delete departments",

	PermCellsManage:        "Manage cells",
	PermCellReportsCreate:  "Submit cell reports",
	PermCellReportsUpdate:  "Update cell reports",
	PermCellReportsDelete:  "Delete cell reports",
	PermCellReportsApprove: "Review and approve cell reports",

	PermReportsQuery:      "Run report queries",
	PermReportsExport:     "Export report results",
	PermReportsTemplates:  "Manage report templates",
	PermReportsSchedules:  "Manage report schedules",
	PermReportsDashboards: "View dashboards",

	PermImportsCreate: "Upload and run imports",
	PermImportsRead:   "View import jobs",
}
