package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkly/internal/entities"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestParseToken(t *testing.T) {
	tokenStr := signToken(t, testSecret, jwt.MapClaims{
		"user_id": float64(9),
		"role":    entities.RoleOwner,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	p, err := ParseToken(tokenStr, testSecret)
	require.NoError(t, err)
	assert.Equal(t, 9, p.ID)
	assert.Equal(t, entities.RoleOwner, p.Role)
}

func TestParseTokenRejectsBadSignature(t *testing.T) {
	tokenStr := signToken(t, "other-secret", jwt.MapClaims{"user_id": float64(9), "role": entities.RoleClient})
	_, err := ParseToken(tokenStr, testSecret)
	assert.Error(t, err)
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	tokenStr := signToken(t, testSecret, jwt.MapClaims{"user_id": float64(9), "role": "superuser"})
	_, err := ParseToken(tokenStr, testSecret)
	assert.Error(t, err)
}

func TestParseTokenRejectsMissingUserID(t *testing.T) {
	tokenStr := signToken(t, testSecret, jwt.MapClaims{"role": entities.RoleClient})
	_, err := ParseToken(tokenStr, testSecret)
	assert.Error(t, err)
}

func TestMiddlewareAttachesPrincipal(t *testing.T) {
	var got entities.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		require.True(t, ok)
		got = p
	})

	tokenStr := signToken(t, testSecret, jwt.MapClaims{"user_id": float64(7), "role": entities.RoleOwner})
	req := httptest.NewRequest("GET", "/api/balance", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()

	Middleware(testSecret)(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, got.ID)
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})
	req := httptest.NewRequest("GET", "/api/balance", nil)
	rec := httptest.NewRecorder()

	Middleware(testSecret)(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoles(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	chain := Middleware(testSecret)(RequireRoles(entities.RoleAdmin)(next))

	ownerToken := signToken(t, testSecret, jwt.MapClaims{"user_id": float64(7), "role": entities.RoleOwner})
	req := httptest.NewRequest("GET", "/api/admin/withdrawals", nil)
	req.Header.Set("Authorization", "Bearer "+ownerToken)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminToken := signToken(t, testSecret, jwt.MapClaims{"user_id": float64(1), "role": entities.RoleAdmin})
	req = httptest.NewRequest("GET", "/api/admin/withdrawals", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
