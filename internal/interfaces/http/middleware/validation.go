package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator makes validation errors name fields by their JSON or form
// tag and registers the domain validators:
//
//	orgunittype  region, zone, group, church or outreach
//	scopetype    self, subtree or custom_set
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator is not go-playground/validator")
	}
	return RegisterValidators(v)
}

// RegisterValidators installs the custom tags on v
func RegisterValidators(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form", "uri"} {
			name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	if err := v.RegisterValidation("orgunittype", func(fl validator.FieldLevel) bool {
		return iam.OrgUnitType(fl.Field().String()).IsValid()
	}); err != nil {
		return err
	}
	return v.RegisterValidation("scopetype", func(fl validator.FieldLevel) bool {
		return iam.ScopeType(fl.Field().String()).IsValid()
	})
}

// ValidationDetails turns binding errors into per-field details. Errors that
// are not validation failures, such as malformed JSON, yield nil.
func ValidationDetails(err error) []dto.ErrorDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make([]dto.ErrorDetail, 0, len(verrs))
	for _, e := range verrs {
		details = append(details, dto.ErrorDetail{Field: e.Field(), Message: validationMessage(e)})
	}
	return details
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "uuid", "uuid4":
		return "Invalid UUID format"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "datetime":
		return "Must be a date in the format " + e.Param()
	case "orgunittype":
		return "Must be one of: region zone group church outreach"
	case "scopetype":
		return "Must be one of: self subtree custom_set"
	default:
		return "Invalid value"
	}
}
