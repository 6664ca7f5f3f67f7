package importapp

import (
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/cells"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/imports"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	fileimport "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/import"
	"github.com/shopspring/decimal"
)

var (
	genders = []string{
		string(registry.GenderMale), string(registry.GenderFemale), string(registry.GenderOther),
	}
	genderAliases = map[string]string{"m": "male", "f": "female", "man": "male", "woman": "female"}

	maritalStatuses = []string{
		string(registry.MaritalSingle), string(registry.MaritalMarried), string(registry.MaritalDivorced),
		string(registry.MaritalWidowed), string(registry.MaritalSeparated),
	}

	membershipStatuses = []string{
		string(registry.MembershipVisitor), string(registry.MembershipRegular),
		string(registry.MembershipMember), string(registry.MembershipPartner),
	}

	firstTimerStatuses = []string{
		string(registry.FirstTimerNew), string(registry.FirstTimerContacted),
		string(registry.FirstTimerReturned), string(registry.FirstTimerMember),
	}

	cellStatuses = []string{cells.CellActive, cells.CellInactive}

	meetingTypes = []string{
		string(cells.MeetingPrayerPlanning), string(cells.MeetingBibleStudy), string(cells.MeetingOutreach),
	}
	meetingTypeAliases = map[string]string{
		"prayer":          "prayer_planning",
		"prayer planning": "prayer_planning",
		"bible study":     "bible_study",
		"bible":           "bible_study",
	}

	paymentMethods = []string{
		string(finance.MethodCash), string(finance.MethodKingsPay), string(finance.MethodBankTransfer),
		string(finance.MethodPOS), string(finance.MethodCheque), string(finance.MethodOther),
	}
	paymentMethodAliases = map[string]string{
		"bank transfer": "bank_transfer",
		"transfer":      "bank_transfer",
		"card":          "pos",
		"check":         "cheque",
		"kings pay":     "kingspay",
	}

	dayAliases = map[string]string{
		"mon": "Monday", "tue": "Tuesday", "wed": "Wednesday", "thu": "Thursday",
		"fri": "Friday", "sat": "Saturday", "sun": "Sunday",
	}
)

var schemas = map[imports.EntityType]fileimport.Schema{
	imports.EntityPeople: {
		fileimport.Field("first_name").Required().MaxLength(100).Aliases("first name", "firstname", "forename", "given name").Build(),
		fileimport.Field("last_name").Required().MaxLength(100).Aliases("last name", "lastname", "surname", "family name").Build(),
		fileimport.Field("gender").Required().Enum(genders, genderAliases).Aliases("sex").Build(),
		fileimport.Field("email").Email().MaxLength(255).Aliases("email address", "e-mail").Build(),
		fileimport.Field("phone").Phone().Aliases("phone number", "mobile", "telephone", "cell phone").Build(),
		fileimport.Field("dob").Date().Aliases("date of birth", "birthday", "birth date").Build(),
		fileimport.Field("member_code").MaxLength(20).Aliases("member id", "membership number").Build(),
		fileimport.Field("title").MaxLength(20).Aliases("salutation").Build(),
		fileimport.Field("alias").MaxLength(100).Aliases("nickname", "known as").Build(),
		fileimport.Field("address_line1").MaxLength(200).Aliases("address", "address 1", "street").Build(),
		fileimport.Field("address_line2").MaxLength(200).Aliases("address 2").Build(),
		fileimport.Field("town").MaxLength(100).Aliases("city").Build(),
		fileimport.Field("county").MaxLength(100).Build(),
		fileimport.Field("eircode").MaxLength(10).Aliases("postcode", "postal code", "zip").Build(),
		fileimport.Field("marital_status").Enum(maritalStatuses, nil).Aliases("marital").Build(),
		fileimport.Field("org_unit_id").UUID().Aliases("church", "org unit").Build(),
	},
	imports.EntityMemberships: {
		fileimport.Field("email").Email().Aliases("email address").Build(),
		fileimport.Field("member_code").MaxLength(20).Aliases("member id").Build(),
		fileimport.Field("status").Required().Enum(membershipStatuses, nil).Aliases("membership status").Build(),
		fileimport.Field("join_date").Date().Aliases("joined", "date joined").Build(),
		fileimport.Field("foundation_completed").Bool().Aliases("foundation school", "foundation").Build(),
		fileimport.Field("baptism_date").Date().Aliases("baptised", "baptized").Build(),
		fileimport.Field("cell").Aliases("cell name", "cell id").Build(),
	},
	imports.EntityFirstTimers: {
		fileimport.Field("service_id").Required().UUID().Aliases("service").Build(),
		fileimport.Field("email").Email().Aliases("email address").Build(),
		fileimport.Field("member_code").MaxLength(20).Build(),
		fileimport.Field("source").MaxLength(100).Aliases("how did you hear", "invited by").Build(),
		fileimport.Field("status").Enum(firstTimerStatuses, nil).Aliases("follow up status").Build(),
		fileimport.Field("notes").MaxLength(2000).Aliases("comments").Build(),
	},
	imports.EntityServices: {
		fileimport.Field("name").Required().MaxLength(200).Aliases("service name", "service").Build(),
		fileimport.Field("service_date").Required().Date().Aliases("date", "service date").Build(),
		fileimport.Field("service_time").Time().Aliases("time", "start time").Build(),
		fileimport.Field("org_unit_id").UUID().Aliases("church", "org unit").Build(),
	},
	imports.EntityAttendance: {
		fileimport.Field("service_id").Required().UUID().Aliases("service").Build(),
		fileimport.Field("men").Int().MinValue(decimal.Zero).Aliases("men count").Build(),
		fileimport.Field("women").Int().MinValue(decimal.Zero).Aliases("women count").Build(),
		fileimport.Field("teens").Int().MinValue(decimal.Zero).Aliases("teenagers").Build(),
		fileimport.Field("kids").Int().MinValue(decimal.Zero).Aliases("children").Build(),
		fileimport.Field("first_timers").Int().MinValue(decimal.Zero).Aliases("first timers", "visitors").Build(),
		fileimport.Field("new_converts").Int().MinValue(decimal.Zero).Aliases("new converts", "converts").Build(),
		fileimport.Field("notes").MaxLength(2000).Build(),
	},
	imports.EntityCells: {
		fileimport.Field("name").Required().MaxLength(200).Aliases("cell name", "cell").Build(),
		fileimport.Field("leader").Aliases("leader email", "cell leader").Build(),
		fileimport.Field("assistant_leader").Aliases("assistant", "assistant leader email").Build(),
		fileimport.Field("venue").MaxLength(200).Aliases("location", "address").Build(),
		fileimport.Field("meeting_day").Enum(cells.MeetingDays(), dayAliases).Aliases("day").Build(),
		fileimport.Field("meeting_time").Time().Aliases("time").Build(),
		fileimport.Field("status").Enum(cellStatuses, nil).Build(),
		fileimport.Field("org_unit_id").UUID().Aliases("church", "org unit").Build(),
	},
	imports.EntityCellReports: {
		fileimport.Field("cell").Required().Aliases("cell name", "cell id").Build(),
		fileimport.Field("report_date").Required().Date().Aliases("date", "meeting date").Build(),
		fileimport.Field("report_time").Time().Aliases("time").Build(),
		fileimport.Field("attendance").Int().MinValue(decimal.Zero).Aliases("attendance count", "present").Build(),
		fileimport.Field("first_timers").Int().MinValue(decimal.Zero).Aliases("first timers", "visitors").Build(),
		fileimport.Field("new_converts").Int().MinValue(decimal.Zero).Aliases("new converts").Build(),
		fileimport.Field("testimonies").MaxLength(4000).Build(),
		fileimport.Field("offerings_total").Decimal().MinValue(decimal.Zero).Aliases("offering", "offerings").Build(),
		fileimport.Field("meeting_type").Required().Enum(meetingTypes, meetingTypeAliases).Aliases("type").Build(),
		fileimport.Field("notes").MaxLength(2000).Build(),
	},
	imports.EntityFinanceEntries: {
		fileimport.Field("fund").Required().Aliases("fund name", "category").Build(),
		fileimport.Field("amount").Required().Decimal().Aliases("value", "total").Build(),
		fileimport.Field("transaction_date").Required().Date().Aliases("date", "giving date").Build(),
		fileimport.Field("org_unit_id").UUID().Aliases("church", "org unit").Build(),
		fileimport.Field("batch_id").UUID().Aliases("batch").Build(),
		fileimport.Field("service_id").UUID().Aliases("service").Build(),
		fileimport.Field("partnership_arm").Aliases("arm", "partnership").Build(),
		fileimport.Field("currency").MaxLength(3).Build(),
		fileimport.Field("method").Enum(paymentMethods, paymentMethodAliases).Aliases("payment method").Build(),
		fileimport.Field("person").Aliases("giver", "member", "giver email").Build(),
		fileimport.Field("cell").Aliases("cell name").Build(),
		fileimport.Field("external_giver_name").MaxLength(200).Aliases("giver name", "donor").Build(),
		fileimport.Field("reference").MaxLength(100).Aliases("ref", "receipt").Build(),
		fileimport.Field("comment").MaxLength(1000).Aliases("comments", "note").Build(),
	},
}

// SchemaFor returns the target fields of an importable entity type
func SchemaFor(entity imports.EntityType) (fileimport.Schema, bool) {
	s, ok := schemas[entity]
	return s, ok
}
