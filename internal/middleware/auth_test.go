package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"goldhub/internal/contextutils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func protectedHandler(t *testing.T, wantUserID int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantUserID, contextutils.GetUserID(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthAcceptsValidToken(t *testing.T) {
	token, err := IssueToken(testSecret, 42, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	handler := Auth(testSecret, zap.NewNop())(protectedHandler(t, 42))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rewards", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	handler := Auth(testSecret, zap.NewNop())(protectedHandler(t, 0))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rewards", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	token, err := IssueToken("other-secret", 42, nil)
	require.NoError(t, err)

	handler := Auth(testSecret, zap.NewNop())(protectedHandler(t, 0))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rewards", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	token, err := IssueToken(testSecret, 42, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	require.NoError(t, err)

	handler := Auth(testSecret, zap.NewNop())(protectedHandler(t, 0))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rewards", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsNonNumericSubject(t *testing.T) {
	claims := jwt.MapClaims{"sub": "not-a-number"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	handler := Auth(testSecret, zap.NewNop())(protectedHandler(t, 0))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rewards", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
