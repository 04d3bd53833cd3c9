package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_CollectsAllFields(t *testing.T) {
	verr := &ValidationError{}
	assert.False(t, verr.HasErrors())

	verr.Add("Name", "can't be blank")
	verr.Add("Email", "is invalid")
	verr.Add("Email", "has already been taken")

	require.True(t, verr.HasErrors())
	assert.Equal(t, []string{"Name can't be blank", "Email is invalid", "Email has already been taken"}, verr.FullMessages())
	assert.Equal(t, []string{"is invalid", "has already been taken"}, verr.On("Email"))
	assert.Equal(t, "The form contains 3 errors.", verr.Summary())
	assert.Contains(t, verr.Error(), "error")
	assert.Contains(t, verr.Error(), "Name can't be blank")
	assert.Equal(t, http.StatusUnprocessableEntity, verr.HTTPStatus())
}

func TestValidationError_SingleSummary(t *testing.T) {
	verr := NewValidationError("Password", "can't be blank")
	assert.Equal(t, "The form contains 1 error.", verr.Summary())
}

func TestNilValidationError_HasNoErrors(t *testing.T) {
	var verr *ValidationError
	assert.False(t, verr.HasErrors())
}

func TestErrorsAs_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("delete user: %w", NewPermissionDeniedError("admins cannot delete themselves"))

	var denied *PermissionDeniedError
	require.True(t, stderrors.As(wrapped, &denied))
	assert.Equal(t, "admins cannot delete themselves", denied.Error())

	var statuser HTTPStatuser
	require.True(t, stderrors.As(wrapped, &statuser))
	assert.Equal(t, http.StatusForbidden, statuser.HTTPStatus())
}

func TestHTTPStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    HTTPStatuser
		status int
	}{
		{"not found", NewNotFoundError("user", ""), http.StatusNotFound},
		{"already exists", NewAlreadyExistsError("user", ""), http.StatusConflict},
		{"unauthorized", NewUnauthorizedError(""), http.StatusUnauthorized},
		{"permission denied", NewPermissionDeniedError(""), http.StatusForbidden},
		{"internal", NewInternalError("boom", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
		})
	}
}

func TestDefaultMessages(t *testing.T) {
	assert.Equal(t, "user not found", NewNotFoundError("user", "").Error())
	assert.Equal(t, "user already exists", NewAlreadyExistsError("user", "").Error())
	assert.Equal(t, "unauthorized", NewUnauthorizedError("").Error())
	assert.Equal(t, "permission denied", NewPermissionDeniedError("").Error())
}

func TestInternalError_Unwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewInternalError("failed to list users", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to list users: connection reset", err.Error())
}
