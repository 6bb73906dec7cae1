package jwt

import (
	"testing"
	"time"

	"easybuk/internal/models"

	"github.com/stretchr/testify/require"
)

func testUser() models.User {
	return models.User{
		ID:    42,
		Email: "alice@example.com",
		Roles: []string{models.RoleClient, models.RoleProvider},
	}
}

func TestNewTokenPair(t *testing.T) {
	t.Parallel()

	const secret = "test-secret"

	t.Run("round trip preserves identity", func(t *testing.T) {
		access, refresh, err := NewTokenPair(testUser(), secret, time.Hour, 2*time.Hour)
		require.NoError(t, err)
		require.NotEmpty(t, access)
		require.NotEmpty(t, refresh)
		require.NotEqual(t, access, refresh)

		claims, err := Verify(access, secret, PurposeAccess)
		require.NoError(t, err)
		require.Equal(t, int64(42), claims.UserID)
		require.Equal(t, []string{models.RoleClient, models.RoleProvider}, claims.Roles)
		require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)

		refreshClaims, err := Verify(refresh, secret, PurposeRefresh)
		require.NoError(t, err)
		require.Equal(t, int64(42), refreshClaims.UserID)
	})

	t.Run("empty secret fails", func(t *testing.T) {
		_, _, err := NewTokenPair(testUser(), "", time.Hour, time.Hour)
		require.ErrorIs(t, err, ErrEmptySecret)
	})
}

func TestVerify(t *testing.T) {
	t.Parallel()

	const secret = "test-secret"

	t.Run("rejects wrong purpose", func(t *testing.T) {
		access, refresh, err := NewTokenPair(testUser(), secret, time.Hour, time.Hour)
		require.NoError(t, err)

		_, err = Verify(access, secret, PurposeRefresh)
		require.ErrorIs(t, err, ErrInvalidToken)

		_, err = Verify(refresh, secret, PurposeAccess)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		access, _, err := NewTokenPair(testUser(), secret, time.Hour, time.Hour)
		require.NoError(t, err)

		_, err = Verify(access, "other-secret", PurposeAccess)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		access, _, err := NewTokenPair(testUser(), secret, -time.Minute, time.Hour)
		require.NoError(t, err)

		_, err = Verify(access, secret, PurposeAccess)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := Verify("not-a-token", secret, PurposeAccess)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewVerificationToken(t *testing.T) {
	t.Parallel()

	t1, err := NewVerificationToken()
	require.NoError(t, err)
	require.Len(t, t1, 64)

	t2, err := NewVerificationToken()
	require.NoError(t, err)
	require.NotEqual(t, t1, t2)
}
