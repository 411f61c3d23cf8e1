package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaulttrove/labels-backend/pkg/auth"
	"github.com/vaulttrove/labels-backend/pkg/config"
	"github.com/vaulttrove/labels-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID string, role enums.Role) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{UserID: userID, Role: role})
	require.NoError(t, err)
	return token
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWTConfig(), nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWTConfig(), nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsTokenFromOtherIssuer(t *testing.T) {
	other := testJWTConfig()
	other.Issuer = "someone-else"
	token := mintTestToken(t, other, "user-1", enums.RoleUser)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	Auth(testJWTConfig(), nil)(okHandler()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthSeedsContext(t *testing.T) {
	cfg := testJWTConfig()
	token := mintTestToken(t, cfg, "user-42", enums.RoleAdmin)

	var user, role string
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = UserIDFromContext(r.Context())
		role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "user-42", user)
	assert.Equal(t, string(enums.RoleAdmin), role)
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(enums.RoleAdmin, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/stats", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req.WithContext(WithRole(req.Context(), string(enums.RoleUser))))
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req.WithContext(WithRole(req.Context(), string(enums.RoleAdmin))))
	assert.Equal(t, http.StatusOK, resp.Code)
}
