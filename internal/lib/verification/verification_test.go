package verification

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"easybuk/internal/models"
	"easybuk/internal/storage"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	users  map[string]models.User
	tokens map[string]models.VerificationToken
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[string]models.User),
		tokens: make(map[string]models.VerificationToken),
	}
}

func (s *fakeStore) User(_ context.Context, email string) (models.User, error) {
	u, ok := s.users[email]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeStore) SaveVerificationToken(_ context.Context, token string, userID int64, expiresAt time.Time) error {
	s.tokens[token] = models.VerificationToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (s *fakeStore) VerificationToken(_ context.Context, token string) (models.VerificationToken, error) {
	t, ok := s.tokens[token]
	if !ok {
		return models.VerificationToken{}, storage.ErrTokenNotFound
	}
	return t, nil
}

func (s *fakeStore) DeleteVerificationToken(_ context.Context, token string) error {
	delete(s.tokens, token)
	return nil
}

func (s *fakeStore) ConsumeVerificationToken(_ context.Context, token string) error {
	t, ok := s.tokens[token]
	if !ok || t.Used {
		return storage.ErrTokenNotFound
	}

	t.Used = true
	s.tokens[token] = t

	for email, u := range s.users {
		if u.ID == t.UserID && u.VerifiedAt == nil {
			now := time.Now()
			u.VerifiedAt = &now
			s.users[email] = u
		}
	}
	return nil
}

type fakePublisher struct {
	sent []models.Message
	err  error
}

func (p *fakePublisher) SendMessage(_ context.Context, msg models.Message) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, msg)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequest(t *testing.T) {
	t.Parallel()

	t.Run("unknown email succeeds without issuing", func(t *testing.T) {
		store := newFakeStore()
		pub := &fakePublisher{}
		flow := New(discardLogger(), store, pub, 24*time.Hour, "http://localhost:3000")

		err := flow.Request(context.Background(), "ghost@example.com")
		require.NoError(t, err)
		require.Empty(t, store.tokens)
		require.Empty(t, pub.sent)
	})

	t.Run("verified user succeeds without issuing", func(t *testing.T) {
		store := newFakeStore()
		now := time.Now()
		store.users["alice@example.com"] = models.User{ID: 1, Email: "alice@example.com", VerifiedAt: &now}
		pub := &fakePublisher{}
		flow := New(discardLogger(), store, pub, 24*time.Hour, "http://localhost:3000")

		err := flow.Request(context.Background(), "alice@example.com")
		require.NoError(t, err)
		require.Empty(t, store.tokens)
		require.Empty(t, pub.sent)
	})

	t.Run("unverified user gets token and email", func(t *testing.T) {
		store := newFakeStore()
		store.users["alice@example.com"] = models.User{ID: 1, Email: "alice@example.com"}
		pub := &fakePublisher{}
		flow := New(discardLogger(), store, pub, 24*time.Hour, "http://localhost:3000")

		err := flow.Request(context.Background(), "alice@example.com")
		require.NoError(t, err)
		require.Len(t, store.tokens, 1)
		require.Len(t, pub.sent, 1)

		msg := pub.sent[0]
		require.Equal(t, "alice@example.com", msg.Email)
		require.Equal(t, "email_verification", msg.Purpose)
		require.True(t, strings.HasPrefix(msg.Link, "http://localhost:3000/verify-email?token="))

		for token := range store.tokens {
			require.Contains(t, msg.Link, token)
		}
	})

	t.Run("publish failure is not surfaced", func(t *testing.T) {
		store := newFakeStore()
		store.users["alice@example.com"] = models.User{ID: 1, Email: "alice@example.com"}
		pub := &fakePublisher{err: io.ErrClosedPipe}
		flow := New(discardLogger(), store, pub, 24*time.Hour, "http://localhost:3000")

		err := flow.Request(context.Background(), "alice@example.com")
		require.NoError(t, err)
		require.Len(t, store.tokens, 1)
	})
}

func TestConsume(t *testing.T) {
	t.Parallel()

	issue := func(t *testing.T, store *fakeStore, flow *Flow) string {
		t.Helper()

		require.NoError(t, flow.Request(context.Background(), "alice@example.com"))
		require.Len(t, store.tokens, 1)

		for token := range store.tokens {
			return token
		}
		return ""
	}

	newFlow := func(store *fakeStore) *Flow {
		return New(discardLogger(), store, &fakePublisher{}, 24*time.Hour, "http://localhost:3000")
	}

	t.Run("unknown token is invalid", func(t *testing.T) {
		flow := newFlow(newFakeStore())

		err := flow.Consume(context.Background(), "no-such-token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("consume succeeds exactly once", func(t *testing.T) {
		store := newFakeStore()
		store.users["alice@example.com"] = models.User{ID: 1, Email: "alice@example.com"}
		flow := newFlow(store)
		token := issue(t, store, flow)

		require.NoError(t, flow.Consume(context.Background(), token))
		require.NotNil(t, store.users["alice@example.com"].VerifiedAt)

		err := flow.Consume(context.Background(), token)
		require.ErrorIs(t, err, ErrTokenAlreadyUsed)
	})

	t.Run("expired token is deleted", func(t *testing.T) {
		store := newFakeStore()
		store.users["alice@example.com"] = models.User{ID: 1, Email: "alice@example.com"}
		flow := New(discardLogger(), store, &fakePublisher{}, -time.Minute, "http://localhost:3000")
		token := issue(t, store, flow)

		err := flow.Consume(context.Background(), token)
		require.ErrorIs(t, err, ErrTokenExpired)
		require.Empty(t, store.tokens)

		// The token no longer satisfies future lookups.
		err = flow.Consume(context.Background(), token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token never verifies the user", func(t *testing.T) {
		store := newFakeStore()
		store.users["alice@example.com"] = models.User{ID: 1, Email: "alice@example.com"}
		flow := New(discardLogger(), store, &fakePublisher{}, -time.Minute, "http://localhost:3000")
		token := issue(t, store, flow)

		_ = flow.Consume(context.Background(), token)
		require.Nil(t, store.users["alice@example.com"].VerifiedAt)
	})
}
