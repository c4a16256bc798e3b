package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type bulkAssignmentPayload struct {
	RoleID  string   `json:"role_id" validate:"required"`
	UserIDs []string `json:"user_ids" validate:"required,min=1"`
	Action  string   `json:"action" validate:"required,oneof=assign remove"`
}

func TestValidateStruct(t *testing.T) {
	err := ValidateStruct(bulkAssignmentPayload{
		RoleID:  "role-7",
		UserIDs: []string{"u1"},
		Action:  "assign",
	})
	require.NoError(t, err)
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(bulkAssignmentPayload{Action: "promote"})
	require.Error(t, err)

	ve, ok := err.(ValidationErrors)
	require.True(t, ok)

	fields := make([]string, 0, len(ve))
	for _, failure := range ve {
		fields = append(fields, failure.Field)
	}
	require.Contains(t, fields, "role_id")
	require.Contains(t, fields, "user_ids")
	require.Contains(t, fields, "action")
}
