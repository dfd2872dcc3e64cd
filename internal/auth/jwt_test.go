package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/example/driverhub/internal/auth"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, role string, expiry time.Duration) string {
	t.Helper()
	claims := auth.Claims{
		Role:     role,
		DriverID: "d1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newProtectedServer(t *testing.T, roles ...string) *httptest.Server {
	t.Helper()
	h := auth.Middleware(testSecret, roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "d1", claims.DriverID)
		w.WriteHeader(http.StatusOK)
	}))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func doAuth(t *testing.T, url, header string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	srv := newProtectedServer(t)
	token := signToken(t, testSecret, "driver", time.Hour)
	resp := doAuth(t, srv.URL, "Bearer "+token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMiddlewareRejectsMissingOrMalformedHeader(t *testing.T) {
	srv := newProtectedServer(t)

	require.Equal(t, http.StatusUnauthorized, doAuth(t, srv.URL, "").StatusCode)
	require.Equal(t, http.StatusUnauthorized, doAuth(t, srv.URL, "Basic abc").StatusCode)
	require.Equal(t, http.StatusUnauthorized, doAuth(t, srv.URL, "Bearer").StatusCode)
}

func TestMiddlewareRejectsBadSignatureAndExpiry(t *testing.T) {
	srv := newProtectedServer(t)

	forged := signToken(t, "wrong-secret", "driver", time.Hour)
	require.Equal(t, http.StatusUnauthorized, doAuth(t, srv.URL, "Bearer "+forged).StatusCode)

	expired := signToken(t, testSecret, "driver", -time.Hour)
	require.Equal(t, http.StatusUnauthorized, doAuth(t, srv.URL, "Bearer "+expired).StatusCode)
}

func TestMiddlewareEnforcesRoles(t *testing.T) {
	srv := newProtectedServer(t, "admin")

	driverToken := signToken(t, testSecret, "driver", time.Hour)
	require.Equal(t, http.StatusForbidden, doAuth(t, srv.URL, "Bearer "+driverToken).StatusCode)

	adminToken := signToken(t, testSecret, "admin", time.Hour)
	require.Equal(t, http.StatusOK, doAuth(t, srv.URL, "Bearer "+adminToken).StatusCode)
}
