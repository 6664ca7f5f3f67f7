package fileimport

import (
	"testing"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/imports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldRuleBuilder(t *testing.T) {
	rule := Field("gender").Required().Enum([]string{"male", "female"}, map[string]string{"m": "male"}).Aliases("sex").Build()
	assert.Equal(t, "gender", rule.Name)
	assert.True(t, rule.Required)
	assert.Equal(t, TypeEnum, rule.Type)
	assert.Equal(t, []string{"sex"}, rule.Aliases)

	amount := Field("amount").Decimal().MinValue(decimal.NewFromInt(0)).Build()
	require.NotNil(t, amount.MinValue)
	assert.Equal(t, TypeDecimal, amount.Type)
}

func TestSchema_CheckMapping(t *testing.T) {
	s := peopleSchema()

	assert.NoError(t, s.CheckMapping(map[string]string{"a": "first_name", "b": "last_name", "c": ""}))
	assert.ErrorContains(t, s.CheckMapping(map[string]string{"a": "first_name"}), "last_name")
	assert.ErrorContains(t, s.CheckMapping(map[string]string{"a": "first_name", "b": "last_name", "c": "shoe_size"}), "unknown field")
	assert.ErrorContains(t, s.CheckMapping(map[string]string{"a": "first_name", "b": "last_name", "c": "email", "d": "email"}), "both map to")
}

func TestSchema_ValidateRow(t *testing.T) {
	s := append(peopleSchema(),
		Field("gender").Required().Enum([]string{"male", "female"}, map[string]string{"m": "male"}).Build(),
		Field("alias").MaxLength(5).Build(),
		Field("attendance").Int().MinValue(decimal.Zero).Build(),
		Field("service_id").UUID().Build(),
	)

	t.Run("valid row", func(t *testing.T) {
		errs := s.ValidateRow(map[string]string{
			"first_name": "Ada", "last_name": "Obi", "gender": "M",
			"email": "ada@example.ie", "dob": "01/02/1990", "attendance": "12",
		})
		assert.Empty(t, errs)
	})

	t.Run("every problem is reported", func(t *testing.T) {
		errs := s.ValidateRow(map[string]string{
			"first_name": " ", "last_name": "Obi", "gender": "x",
			"email": "nope", "alias": "Adaeze", "attendance": "-3", "service_id": "42",
		})
		byField := map[string]FieldError{}
		for _, e := range errs {
			byField[e.Field] = e
		}
		require.Len(t, byField, 6)
		assert.Equal(t, imports.ErrorRequired, byField["first_name"].Type)
		assert.Equal(t, imports.ErrorCoercion, byField["gender"].Type)
		assert.Equal(t, imports.ErrorCoercion, byField["email"].Type)
		assert.Equal(t, "nope", byField["email"].Value)
		assert.Equal(t, imports.ErrorValidation, byField["alias"].Type)
		assert.Equal(t, imports.ErrorCoercion, byField["attendance"].Type)
		assert.Equal(t, imports.ErrorCoercion, byField["service_id"].Type)
	})
}

func TestWriteErrorReport(t *testing.T) {
	jobID := uuid.New()
	out, err := WriteErrorReport([]imports.RowError{
		imports.NewRowError(jobID, 3, "email", imports.ErrorCoercion, "invalid email format", "nope"),
		imports.NewRowError(jobID, 5, "", imports.ErrorReference, "service \"x\" not found, check the id", ""),
	})
	require.NoError(t, err)
	assert.Equal(t,
		"row,column,error_type,message,original_value\n"+
			"3,email,coercion,invalid email format,nope\n"+
			"5,,reference,\"service \"\"x\"\" not found, check the id\",\n",
		string(out))
}
