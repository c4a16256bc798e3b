package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appErrors "github.com/modlocker/modlocker/pkg/errors"
)

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	return c, rec
}

func TestSuccessEnvelope(t *testing.T) {
	c, rec := newTestContext(t)
	Success(c, http.StatusOK, gin.H{"ok": true})

	require.Equal(t, http.StatusOK, rec.Code)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Nil(t, body.Error)
}

func TestErrorEnvelopeCarriesDetails(t *testing.T) {
	c, rec := newTestContext(t)
	Error(c, appErrors.ErrForbidden.WithDetails(map[string]any{"permission": "roles.delete"}))

	require.Equal(t, http.StatusForbidden, rec.Code)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Equal(t, "FORBIDDEN", body.Error.Code)
	require.Equal(t, "roles.delete", body.Error.Details["permission"])
}

func TestErrorDefaultsToInternal(t *testing.T) {
	c, rec := newTestContext(t)
	Error(c, nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
