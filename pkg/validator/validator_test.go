package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type grantPayload struct {
	Resource   string `json:"resource" validate:"notblank"`
	Principal  string `json:"principal" validate:"required"`
	Permission int    `json:"permission" validate:"gte=0,lte=255"`
}

func TestValidateStructSuccess(t *testing.T) {
	err := ValidateStruct(grantPayload{Resource: "db1", Principal: "alice", Permission: 64})
	require.NoError(t, err)
}

func TestValidateStructFailuresUseJSONNames(t *testing.T) {
	err := ValidateStruct(grantPayload{Resource: "", Principal: "", Permission: 300})
	require.Error(t, err)

	vErrs, ok := err.(ValidationErrors)
	require.True(t, ok, "expected ValidationErrors, got %T", err)
	require.Equal(t, []string{"resource", "principal", "permission"}, vErrs.Fields())
	require.Equal(t, "lte", vErrs[2].Tag)
	require.Equal(t, "255", vErrs[2].Param)
	require.Equal(t, []string{"resource is required", "principal is required", "permission must be at most 255"}, vErrs.Messages())
	require.Equal(t, "resource is required; principal is required; permission must be at most 255", vErrs.Error())
}

func TestNotBlankRejectsWhitespace(t *testing.T) {
	err := ValidateStruct(grantPayload{Resource: "   ", Principal: "alice"})
	require.Error(t, err)

	vErrs := err.(ValidationErrors)
	require.Len(t, vErrs, 1)
	require.Equal(t, "resource", vErrs[0].Field)
	require.Equal(t, "notblank", vErrs[0].Tag)
}

func TestRegisterValidation(t *testing.T) {
	require.NoError(t, RegisterValidation("is_schema", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "SCHEMA"
	}))

	type scoped struct {
		ResourceType string `json:"resource_type" validate:"is_schema"`
	}

	require.NoError(t, ValidateStruct(scoped{ResourceType: "SCHEMA"}))
	require.Error(t, ValidateStruct(scoped{ResourceType: "TABLE"}))
}

func TestEmptyValidationErrorsMessage(t *testing.T) {
	require.Equal(t, "validation failed", ValidationErrors{}.Error())
}

func TestMessageFallsBackToTagAndParam(t *testing.T) {
	require.Equal(t, "resource type failed on oneof=SCHEMA TABLE",
		ValidationError{Field: "resource_type", Tag: "oneof", Param: "SCHEMA TABLE"}.Message())
	require.Equal(t, "id failed on uuid", ValidationError{Field: "id", Tag: "uuid"}.Message())
}
