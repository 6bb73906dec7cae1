package login

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"easybuk/internal/auth"
	"easybuk/internal/lib/cookies"
	"easybuk/internal/models"
	"easybuk/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsers struct {
	users map[string]models.User
}

func (f *fakeUsers) SaveUser(context.Context, string, string, []byte, []string) (int64, error) {
	panic("not used")
}

func (f *fakeUsers) User(_ context.Context, email string) (models.User, error) {
	u, ok := f.users[email]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) UserByID(_ context.Context, id int64) (models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, storage.ErrUserNotFound
}

type noopBlacklist struct{}

func (noopBlacklist) BlacklistToken(context.Context, string, time.Duration) error { return nil }
func (noopBlacklist) IsTokenBlacklisted(context.Context, string) (bool, error)    { return false, nil }

const (
	accessTTL  = 7 * 24 * time.Hour
	refreshTTL = 30 * 24 * time.Hour
)

func newHandler(t *testing.T) http.HandlerFunc {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("passw0rd!"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &fakeUsers{users: map[string]models.User{
		"alice@example.com": {
			ID:       1,
			Email:    "alice@example.com",
			Username: "alice",
			PassHash: hash,
			Roles:    []string{models.RoleClient},
		},
	}}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	authService := auth.New(log, users, users, noopBlacklist{}, "test-secret", accessTTL, refreshTTL)

	return New(log, validator.New(), authService, accessTTL, refreshTTL, false)
}

func post(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestLoginHandler(t *testing.T) {
	t.Parallel()

	t.Run("success sets both session cookies with documented max-ages", func(t *testing.T) {
		handler := newHandler(t)

		rec := post(handler, `{"email":"alice@example.com","password":"passw0rd!"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		access := cookieByName(t, rec, cookies.AccessCookieName)
		require.True(t, access.HttpOnly)
		require.Equal(t, "/", access.Path)
		require.Equal(t, int(accessTTL.Seconds()), access.MaxAge)
		require.Equal(t, http.SameSiteLaxMode, access.SameSite)

		refresh := cookieByName(t, rec, cookies.RefreshCookieName)
		require.True(t, refresh.HttpOnly)
		require.Equal(t, int(refreshTTL.Seconds()), refresh.MaxAge)
	})

	t.Run("response body has no password hash", func(t *testing.T) {
		handler := newHandler(t)

		rec := post(handler, `{"email":"alice@example.com","password":"passw0rd!"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotContains(t, rec.Body.String(), "hash")
		require.NotContains(t, rec.Body.String(), "password")
		require.Contains(t, rec.Body.String(), `"email":"alice@example.com"`)
	})

	t.Run("unknown email and wrong password answer identically", func(t *testing.T) {
		handler := newHandler(t)

		unknownRec := post(handler, `{"email":"ghost@example.com","password":"passw0rd!"}`)
		wrongRec := post(handler, `{"email":"alice@example.com","password":"nope"}`)

		require.Equal(t, http.StatusUnauthorized, unknownRec.Code)
		require.Equal(t, http.StatusUnauthorized, wrongRec.Code)
		require.JSONEq(t, unknownRec.Body.String(), wrongRec.Body.String())
	})

	t.Run("missing fields are a validation error", func(t *testing.T) {
		handler := newHandler(t)

		rec := post(handler, `{"email":"alice@example.com"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("failed login sets no cookies", func(t *testing.T) {
		handler := newHandler(t)

		rec := post(handler, `{"email":"alice@example.com","password":"nope"}`)
		require.Empty(t, rec.Result().Cookies())
	})
}
