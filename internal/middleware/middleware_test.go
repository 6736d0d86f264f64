package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/quote-assistant/pkg/logger"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(scopes ...string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "whatsapp-bridge",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Channel: "whatsapp",
		Scopes:  scopes,
	}
}

func TestAuth(t *testing.T) {
	var gotClient, gotChannel string
	h := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClient = GetClientID(r.Context())
		gotChannel = GetChannel(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + signToken(t, "other", validClaims()), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, expired), http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, testSecret, validClaims()), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, "whatsapp-bridge", gotClient)
	assert.Equal(t, "whatsapp", gotChannel)
}

func TestRequireScope(t *testing.T) {
	h := Auth(testSecret)(RequireScope(ScopeMessages)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	for scopes, want := range map[string]int{
		ScopeMessages: http.StatusOK,
		ScopeCatalog:  http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims(scopes)))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, scopes)
	}
}

func TestLoggingSetsCorrelationID(t *testing.T) {
	var seen string
	h := Logging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-ID", "corr-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "corr-1", seen)
	assert.Equal(t, "corr-1", rec.Header().Get("X-Correlation-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Correlation-ID"))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestValidateMessageText(t *testing.T) {
	assert.NoError(t, ValidateMessageText("5k pouches please"))
	assert.Error(t, ValidateMessageText("   "))
	assert.Error(t, ValidateMessageText(strings.Repeat("a", MaxMessageLength+1)))
	assert.Error(t, ValidateMessageText("\xff\xfe"))
}

func TestValidateUserKey(t *testing.T) {
	assert.NoError(t, ValidateUserKey("whatsapp:+15550109999"))
	assert.Error(t, ValidateUserKey(""))
	assert.Error(t, ValidateUserKey("has space"))
	assert.Error(t, ValidateUserKey("tab\tkey"))
	assert.Error(t, ValidateUserKey(strings.Repeat("k", MaxUserKeyLength+1)))
}

func testLogger() *logger.Logger {
	return logger.NewNop()
}
