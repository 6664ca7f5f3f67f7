package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// PerformRequest sends a JSON request through engine and returns the recorder.
// body may be nil, a string (sent verbatim) or any value encodable as JSON.
func PerformRequest(t *testing.T, engine *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		reader = ToJSONReader(t, b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// DecodeJSON parses the recorder body into a generic map.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result), "Failed to parse JSON response: %s", w.Body.String())
	return result
}

// DecodeData parses the "data" member of a success envelope into T.
func DecodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), "Failed to parse JSON response")
	require.True(t, envelope.Success, "Expected success response, got %s", w.Body.String())

	var out T
	require.NoError(t, json.Unmarshal(envelope.Data, &out))
	return out
}

// AssertErrorCode asserts the response is an error envelope with the given status and code.
func AssertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	assert.Equal(t, status, w.Code, "Unexpected status code: %s", w.Body.String())
	resp := DecodeJSON(t, w)
	assert.Equal(t, false, resp["success"], "Expected success to be false")

	errMap, ok := resp["error"].(map[string]interface{})
	require.True(t, ok, "Expected error object in response")
	assert.Equal(t, code, errMap["code"], "Unexpected error code")
}

// ToJSONReader converts a value to a JSON io.Reader.
func ToJSONReader(t *testing.T, v interface{}) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err, "Failed to marshal to JSON")
	return bytes.NewReader(data)
}

// BearerHeader returns an Authorization header map for token.
func BearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
