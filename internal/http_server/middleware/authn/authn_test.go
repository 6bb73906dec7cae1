package authn

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"easybuk/internal/lib/cookies"
	"easybuk/internal/lib/jwt"
	"easybuk/internal/models"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeBlacklist struct {
	revoked map[string]bool
}

func (f *fakeBlacklist) IsTokenBlacklisted(_ context.Context, rawToken string) (bool, error) {
	return f.revoked[rawToken], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func issueAccessToken(t *testing.T, user models.User) string {
	t.Helper()

	access, _, err := jwt.NewTokenPair(user, testSecret, time.Hour, time.Hour)
	require.NoError(t, err)
	return access
}

func runMiddleware(t *testing.T, blacklist *fakeBlacklist, prepare func(r *http.Request)) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()

	var captured *Identity
	handler := New(discardLogger(), testSecret, blacklist)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = FromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	prepare(req)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, captured
}

func TestNew(t *testing.T) {
	t.Parallel()

	noRevoked := &fakeBlacklist{revoked: map[string]bool{}}
	user := models.User{ID: 7, Roles: []string{models.RoleClient}}

	t.Run("missing token is 401", func(t *testing.T) {
		rec, identity := runMiddleware(t, noRevoked, func(*http.Request) {})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Nil(t, identity)
	})

	t.Run("malformed token is 401, never 500", func(t *testing.T) {
		rec, _ := runMiddleware(t, noRevoked, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer not-a-token")
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token is 401", func(t *testing.T) {
		expired, _, err := jwt.NewTokenPair(user, testSecret, -time.Minute, time.Hour)
		require.NoError(t, err)

		rec, _ := runMiddleware(t, noRevoked, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+expired)
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("cookie token passes and fills identity", func(t *testing.T) {
		access := issueAccessToken(t, user)

		rec, identity := runMiddleware(t, noRevoked, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: cookies.AccessCookieName, Value: access})
		})
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, identity)
		require.Equal(t, int64(7), identity.UserID)
		require.Equal(t, []string{models.RoleClient}, identity.Roles)
		require.Equal(t, access, identity.Token)
	})

	t.Run("bearer header works without cookie", func(t *testing.T) {
		access := issueAccessToken(t, user)

		rec, identity := runMiddleware(t, noRevoked, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+access)
		})
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, identity)
	})

	t.Run("blacklisted token is 401", func(t *testing.T) {
		access := issueAccessToken(t, user)
		blacklist := &fakeBlacklist{revoked: map[string]bool{access: true}}

		rec, _ := runMiddleware(t, blacklist, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+access)
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestExtractToken(t *testing.T) {
	t.Parallel()

	t.Run("cookie wins over header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: cookies.AccessCookieName, Value: "cookie-token"})
		req.Header.Set("Authorization", "Bearer header-token")

		require.Equal(t, "cookie-token", ExtractToken(req))
	})

	t.Run("falls back to bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer header-token")

		require.Equal(t, "header-token", ExtractToken(req))
	})

	t.Run("non-bearer header is ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

		require.Empty(t, ExtractToken(req))
	})
}

func TestRequireProvider(t *testing.T) {
	t.Parallel()

	call := func(identity *Identity) *httptest.ResponseRecorder {
		handler := RequireProvider()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/provider/services", nil)
		if identity != nil {
			req = req.WithContext(context.WithValue(req.Context(), identityContextKey, identity))
		}

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("provider role passes", func(t *testing.T) {
		rec := call(&Identity{UserID: 1, Roles: []string{models.RoleProvider}})
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("client role is forbidden", func(t *testing.T) {
		rec := call(&Identity{UserID: 1, Roles: []string{models.RoleClient}})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing identity is unauthorized", func(t *testing.T) {
		rec := call(nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
