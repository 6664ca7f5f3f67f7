package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/auth"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuthenticator struct {
	token string
	actor core.Actor
}

func (f fakeAuthenticator) Authenticate(_ context.Context, token string) (core.Actor, *auth.Claims, error) {
	if token != f.token {
		return core.Actor{}, nil, shared.NewDomainError(shared.CodeUnauthorized, "token has expired")
	}
	return f.actor, &auth.Claims{UserID: f.actor.UserID.String()}, nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAuth(t *testing.T) {
	actor := core.NewActor(uuid.New(), uuid.New())
	r := gin.New()
	r.Use(RequestID(), Auth(fakeAuthenticator{token: "good", actor: actor}, zap.NewNop()))
	r.GET("/me", func(c *gin.Context) {
		got, ok := GetActor(c)
		require.True(t, ok)
		assert.Equal(t, actor.UserID, got.UserID)
		assert.Equal(t, "ua-test", got.UserAgent)
		assert.NotNil(t, GetClaims(c))
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"valid token", "Bearer good", http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "Authentication required"},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, "Authentication required"},
		{"rejected token", "Bearer stale", http.StatusUnauthorized, "token has expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("User-Agent", "ua-test")
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.message != "" {
				resp := decode(t, w)
				assert.False(t, resp.Success)
				assert.Equal(t, shared.CodeUnauthorized, resp.Error.Code)
				assert.Equal(t, tt.message, resp.Error.Message)
				assert.NotEmpty(t, resp.Error.RequestID)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://zone.example.ie"}
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/x", nil)
		req.Header.Set("Origin", "https://zone.example.ie")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://zone.example.ie", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("unknown origin gets no headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(10))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("this body is far too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, dto.ErrCodeRequestTooLarge, decode(t, w).Error.Code)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	ok, left := rl.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, 1, left)
	ok, _ = rl.Allow("a")
	assert.True(t, ok)
	ok, _ = rl.Allow("a")
	assert.False(t, ok)

	ok, _ = rl.Allow("b")
	assert.True(t, ok, "keys are limited independently")

	now = now.Add(time.Minute)
	ok, _ = rl.Allow("a")
	assert.True(t, ok, "a new window starts after the period")
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RateLimit(NewRateLimiter(1, time.Hour)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, dto.ErrCodeRateLimited, decode(t, w).Error.Code)
}

type observation struct {
	method, route string
	status int
}

type recordingObserver struct{ seen []observation }

func (r *recordingObserver) ObserveHTTP(method, route string, status int, _ time.Time) {
	r.seen = append(r.seen, observation{method, route, status})
}

func TestMetrics(t *testing.T) {
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/batches/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/batches/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, []observation{
		{http.MethodGet, "/batches/:id", http.StatusAccepted},
		{http.MethodGet, "unmatched", http.StatusNotFound},
	}, obs.seen)
}

func TestValidators(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterValidators(v))

	type input struct {
		Type  string `json:"type" binding:"required" validate:"orgunittype"`
		Scope string `json:"scope_type" validate:"scopetype"`
	}

	assert.NoError(t, v.Struct(input{Type: "church", Scope: "subtree"}))

	err := v.Struct(input{Type: "parish", Scope: "everything"})
	require.Error(t, err)
	details := ValidationDetails(err)
	require.Len(t, details, 2)
	assert.Equal(t, "type", details[0].Field)
	assert.Contains(t, details[0].Message, "outreach")
	assert.Equal(t, "scope_type", details[1].Field)

	assert.Nil(t, ValidationDetails(assert.AnError))
}
