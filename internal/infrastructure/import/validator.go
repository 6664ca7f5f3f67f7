package fileimport

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/imports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FieldType is the expected type of a target field
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInt     FieldType = "int"
	TypeDecimal FieldType = "decimal"
	TypeDate    FieldType = "date"
	TypeTime    FieldType = "time"
	TypeEmail   FieldType = "email"
	TypePhone   FieldType = "phone"
	TypeBool    FieldType = "bool"
	TypeEnum    FieldType = "enum"
	TypeUUID    FieldType = "uuid"
)

// FieldRule describes one target field of an importable entity
type FieldRule struct {
	Name        string
	Type        FieldType
	Required    bool
	MaxLength   int
	MinValue    *decimal.Decimal
	Enum        []string
	EnumAliases map[string]string
	// Aliases are alternative column headings used for auto-mapping
	Aliases []string
}

// FieldRuleBuilder builds field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field starts a string field rule
func Field(name string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Name: name, Type: TypeString}}
}

func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

func (b *FieldRuleBuilder) Int() *FieldRuleBuilder {
	b.rule.Type = TypeInt
	return b
}

func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

func (b *FieldRuleBuilder) Date() *FieldRuleBuilder {
	b.rule.Type = TypeDate
	return b
}

func (b *FieldRuleBuilder) Time() *FieldRuleBuilder {
	b.rule.Type = TypeTime
	return b
}

func (b *FieldRuleBuilder) Email() *FieldRuleBuilder {
	b.rule.Type = TypeEmail
	return b
}

func (b *FieldRuleBuilder) Phone() *FieldRuleBuilder {
	b.rule.Type = TypePhone
	return b
}

func (b *FieldRuleBuilder) Bool() *FieldRuleBuilder {
	b.rule.Type = TypeBool
	return b
}

func (b *FieldRuleBuilder) UUID() *FieldRuleBuilder {
	b.rule.Type = TypeUUID
	return b
}

// Enum restricts the field to values, with optional lower-case aliases
func (b *FieldRuleBuilder) Enum(values []string, aliases map[string]string) *FieldRuleBuilder {
	b.rule.Type = TypeEnum
	b.rule.Enum = values
	b.rule.EnumAliases = aliases
	return b
}

func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

func (b *FieldRuleBuilder) MinValue(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &v
	return b
}

// Aliases adds alternative column headings
func (b *FieldRuleBuilder) Aliases(names ...string) *FieldRuleBuilder {
	b.rule.Aliases = append(b.rule.Aliases, names...)
	return b
}

// Build returns the rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldError is a problem with one field of a row
type FieldError struct {
	Field   string
	Type    imports.ErrorType
	Message string
	Value   string
}

// Schema is the set of target fields of an entity type
type Schema []FieldRule

// Rule looks up a field by name
func (s Schema) Rule(name string) (FieldRule, bool) {
	for _, r := range s {
		if r.Name == name {
			return r, true
		}
	}
	return FieldRule{}, false
}

// Names lists the field names in declaration order
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, r := range s {
		names[i] = r.Name
	}
	return names
}

// Required lists the required field names
func (s Schema) Required() []string {
	var names []string
	for _, r := range s {
		if r.Required {
			names = append(names, r.Name)
		}
	}
	return names
}

// CheckMapping verifies that every mapped target exists, no target is mapped
// twice and every required field is mapped
func (s Schema) CheckMapping(mapping map[string]string) error {
	used := make(map[string]string, len(mapping))
	for column, field := range mapping {
		if field == "" {
			continue
		}
		if _, ok := s.Rule(field); !ok {
			return fmt.Errorf("column %q maps to unknown field %q", column, field)
		}
		if other, dup := used[field]; dup {
			return fmt.Errorf("columns %q and %q both map to %q", other, column, field)
		}
		used[field] = column
	}
	var missing []string
	for _, name := range s.Required() {
		if _, ok := used[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required fields are not mapped: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateRow checks presence, type and length of every field of a mapped row
func (s Schema) ValidateRow(values map[string]string) []FieldError {
	var errs []FieldError
	for _, rule := range s {
		value := strings.TrimSpace(values[rule.Name])
		if value == "" {
			if rule.Required {
				errs = append(errs, FieldError{Field: rule.Name, Type: imports.ErrorRequired, Message: rule.Name + " is required"})
			}
			continue
		}
		if err := rule.check(value); err != nil {
			errs = append(errs, FieldError{Field: rule.Name, Type: imports.ErrorCoercion, Message: err.Error(), Value: value})
			continue
		}
		if rule.MaxLength > 0 && utf8.RuneCountInString(value) > rule.MaxLength {
			errs = append(errs, FieldError{
				Field: rule.Name, Type: imports.ErrorValidation, Value: value,
				Message: fmt.Sprintf("%s must be at most %d characters", rule.Name, rule.MaxLength),
			})
		}
	}
	return errs
}

func (r FieldRule) check(value string) error {
	switch r.Type {
	case TypeInt:
		n, err := ParseInt(value)
		if err == nil && r.MinValue != nil && decimal.NewFromInt(int64(n)).LessThan(*r.MinValue) {
			return fmt.Errorf("%s must be at least %s", r.Name, r.MinValue)
		}
		return err
	case TypeDecimal:
		d, err := ParseDecimal(value)
		if err == nil && r.MinValue != nil && d.LessThan(*r.MinValue) {
			return fmt.Errorf("%s must be at least %s", r.Name, r.MinValue)
		}
		return err
	case TypeDate:
		_, err := ParseDate(value)
		return err
	case TypeTime:
		_, err := ParseTimeOfDay(value)
		return err
	case TypeEmail:
		_, err := ParseEmail(value)
		return err
	case TypePhone:
		_, err := ParsePhone(value)
		return err
	case TypeBool:
		_, err := ParseBool(value)
		return err
	case TypeEnum:
		_, err := ParseEnum(value, r.Enum, r.EnumAliases)
		return err
	case TypeUUID:
		if _, err := uuid.Parse(value); err != nil {
			return coercionError("id", value, "expected a UUID")
		}
	}
	return nil
}
