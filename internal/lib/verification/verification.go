package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"easybuk/internal/lib/jwt"
	sl "easybuk/internal/lib/logger"
	"easybuk/internal/models"
	"easybuk/internal/storage"
)

var (
	ErrInvalidToken     = errors.New("invalid verification token")
	ErrTokenExpired     = errors.New("verification token expired")
	ErrTokenAlreadyUsed = errors.New("verification token already used")
)

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

type TokenStore interface {
	User(ctx context.Context, email string) (models.User, error)
	SaveVerificationToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	VerificationToken(ctx context.Context, token string) (models.VerificationToken, error)
	DeleteVerificationToken(ctx context.Context, token string) error
	ConsumeVerificationToken(ctx context.Context, token string) error
}

// Flow drives the verification token lifecycle:
// issued -> verified | expired | already used.
type Flow struct {
	log      *slog.Logger
	store    TokenStore
	pub      Publisher
	tokenTTL time.Duration
	baseURL  string
}

func New(
	log *slog.Logger,
	store TokenStore,
	pub Publisher,
	tokenTTL time.Duration,
	baseURL string,
) *Flow {
	return &Flow{
		log:      log,
		store:    store,
		pub:      pub,
		tokenTTL: tokenTTL,
		baseURL:  baseURL,
	}
}

// Request issues a fresh verification token for the address and queues the
// email. It reports success for unknown and already-verified addresses too,
// so the endpoint cannot be used to probe which emails are registered.
func (f *Flow) Request(ctx context.Context, email string) error {
	const op = "verification.Request"

	log := f.log.With(slog.String("op", op))

	user, err := f.store.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("verification requested for unknown email")
			return nil
		}

		log.Error("failed to look up user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if user.IsVerified() {
		log.Info("verification requested for verified user", slog.Int64("uid", user.ID))
		return nil
	}

	return f.issue(ctx, user)
}

// RequestForUser issues a token for a freshly registered user without the
// extra email lookup.
func (f *Flow) RequestForUser(ctx context.Context, user models.User) error {
	return f.issue(ctx, user)
}

func (f *Flow) issue(ctx context.Context, user models.User) error {
	const op = "verification.issue"

	log := f.log.With(slog.String("op", op))

	token, err := jwt.NewVerificationToken()
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := f.store.SaveVerificationToken(ctx, token, user.ID, time.Now().Add(f.tokenTTL)); err != nil {
		log.Error("failed to save token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := models.Message{
		Email:   user.Email,
		Link:    fmt.Sprintf("%s/verify-email?token=%s", f.baseURL, token),
		Purpose: "email_verification",
	}

	// Fire and forget: a broker hiccup must not fail the request, the user
	// can always ask for a resend.
	if err := f.pub.SendMessage(ctx, msg); err != nil {
		log.Error("failed to queue verification email", sl.Err(err))
	}

	log.Info("verification token issued", slog.Int64("uid", user.ID))

	return nil
}

// Consume validates the presented token and, in one transaction, marks it
// used and stamps the owning user verified. Re-submitting a consumed token
// fails with ErrTokenAlreadyUsed.
func (f *Flow) Consume(ctx context.Context, token string) error {
	const op = "verification.Consume"

	log := f.log.With(slog.String("op", op))

	t, err := f.store.VerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return ErrInvalidToken
		}

		log.Error("failed to look up token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if t.IsExpired() {
		if err := f.store.DeleteVerificationToken(ctx, token); err != nil {
			log.Error("failed to delete expired token", sl.Err(err))
		}

		return ErrTokenExpired
	}

	if t.Used {
		return ErrTokenAlreadyUsed
	}

	if err := f.store.ConsumeVerificationToken(ctx, token); err != nil {
		// Lost a race with a concurrent consume of the same token.
		if errors.Is(err, storage.ErrTokenNotFound) {
			return ErrTokenAlreadyUsed
		}

		log.Error("failed to consume token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email verified", slog.Int64("uid", t.UserID))

	return nil
}
