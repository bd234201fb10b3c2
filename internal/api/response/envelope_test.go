package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princesspalace/palace/internal/api/response"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestNewMeta_GeneratesUUID(t *testing.T) {
	meta := response.NewMeta("")

	_, err := uuid.Parse(meta.RequestID)
	assert.NoError(t, err, "requestId should be a valid UUID")
}

func TestNewMeta_UsesProvidedRequestID(t *testing.T) {
	meta := response.NewMeta("my-custom-request-id")

	assert.Equal(t, "my-custom-request-id", meta.RequestID)
}

func TestNewMeta_TimestampIsRFC3339(t *testing.T) {
	before := time.Now().UTC().Add(-1 * time.Second)

	meta := response.NewMeta("")

	parsed, err := time.Parse(time.RFC3339, meta.Timestamp)
	require.NoError(t, err, "timestamp should be valid RFC3339")
	assert.False(t, parsed.Before(before), "timestamp should be recent")
	assert.True(t, parsed.Before(time.Now().UTC().Add(1*time.Second)), "timestamp should not be in the future")
}

func TestSuccess_WritesCorrectEnvelope(t *testing.T) {
	w := httptest.NewRecorder()

	response.Success(w, http.StatusOK, map[string]string{"key": "value"}, "test-req-id")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	env := decode(t, w)
	assert.Equal(t, "value", env["data"].(map[string]interface{})["key"])
	assert.Nil(t, env["error"])
	meta := env["meta"].(map[string]interface{})
	assert.Equal(t, "test-req-id", meta["requestId"])
	assert.NotEmpty(t, meta["timestamp"])
}

func TestSuccessList_IncludesTotal(t *testing.T) {
	w := httptest.NewRecorder()

	response.SuccessList(w, http.StatusOK, []string{"a", "b"}, 2, "list-req")

	assert.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.Len(t, env["data"], 2)
	meta := env["meta"].(map[string]interface{})
	assert.Equal(t, float64(2), meta["total"])
	assert.Equal(t, "list-req", meta["requestId"])
}

func TestErr_WritesErrorEnvelope(t *testing.T) {
	w := httptest.NewRecorder()

	response.Err(w, http.StatusConflict, "INVALID_TRANSITION", "not allowed", "err-req-id")

	assert.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	assert.Nil(t, env["data"])
	apiErr := env["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_TRANSITION", apiErr["code"])
	assert.Equal(t, "not allowed", apiErr["message"])
	assert.NotContains(t, apiErr, "details")
}

func TestValidationErr_IncludesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	details := []map[string]string{{"field": "email", "message": "Invalid email address."}}

	response.ValidationErr(w, details, "val-req")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	apiErr := decode(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", apiErr["code"])
	assert.Equal(t, "Input validation failed", apiErr["message"])
	det := apiErr["details"].([]interface{})
	require.Len(t, det, 1)
	assert.Equal(t, "email", det[0].(map[string]interface{})["field"])
}

func TestSuccess_OmitsTotal(t *testing.T) {
	w := httptest.NewRecorder()

	response.Success(w, http.StatusOK, "ok", "req")

	meta := decode(t, w)["meta"].(map[string]interface{})
	assert.NotContains(t, meta, "total")
}

func TestUnavailable_SetsRetryAfter(t *testing.T) {
	tests := []struct {
		retry time.Duration
		want  string
	}{
		{5 * time.Second, "5"},
		{1500 * time.Millisecond, "2"},
		{100 * time.Millisecond, "1"},
		{0, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.retry.String(), func(t *testing.T) {
			w := httptest.NewRecorder()

			response.Unavailable(w, "SESSION_UNAVAILABLE", "try again", tt.retry, "req")

			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			assert.Equal(t, tt.want, w.Header().Get("Retry-After"))
			apiErr := decode(t, w)["error"].(map[string]interface{})
			assert.Equal(t, "SESSION_UNAVAILABLE", apiErr["code"])
		})
	}
}
