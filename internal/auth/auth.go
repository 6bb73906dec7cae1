package auth

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

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserExists         = errors.New("user already exists")
)

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	blacklist   TokenBlacklist
	secret      string
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

type UserSaver interface {
	SaveUser(ctx context.Context, email, username string, passHash []byte, roles []string) (uid int64, err error)
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
}

type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, rawToken string, ttl time.Duration) error
	IsTokenBlacklisted(ctx context.Context, rawToken string) (bool, error)
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	blacklist TokenBlacklist,
	secret string,
	accessTTL, refreshTTL time.Duration,
) *Auth {
	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		blacklist:   blacklist,
		secret:      secret,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
	}
}

// Login checks the credentials and issues a session token pair. A missing
// user and a wrong password both return ErrInvalidCredentials so the error
// shape never reveals which factor failed.
func (a *Auth) Login(
	ctx context.Context,
	email, password string,
) (models.User, string, string, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return models.User{}, "", "", ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return models.User{}, "", "", err
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))
		return models.User{}, "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := jwt.NewTokenPair(user, a.secret, a.accessTTL, a.refreshTTL)
	if err != nil {
		log.Error("failed to issue session tokens", sl.Err(err))
		return models.User{}, "", "", err
	}

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return user, accessToken, refreshToken, nil
}

// Register creates the user with the CLIENT role and returns its id.
func (a *Auth) Register(
	ctx context.Context,
	email, username, password string,
) (int64, error) {
	const op = "auth.Register"

	log := a.log.With(slog.String("op", op))

	log.Info("registering new user")

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.usrSaver.SaveUser(ctx, email, username, passHash, []string{models.RoleClient})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")

			return 0, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("failed to save user", sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The user record
// is re-read so revoked roles do not outlive the old access token.
func (a *Auth) Refresh(
	ctx context.Context,
	refreshToken string,
) (string, string, error) {
	const op = "auth.Refresh"

	log := a.log.With(slog.String("op", op))

	claims, err := jwt.Verify(refreshToken, a.secret, jwt.PurposeRefresh)
	if err != nil {
		log.Warn("invalid refresh token", sl.Err(err))
		return "", "", ErrInvalidCredentials
	}

	user, err := a.usrProvider.UserByID(ctx, claims.UserID)
	if err != nil {
		log.Warn("failed to load user for refresh", sl.Err(err))
		return "", "", ErrInvalidCredentials
	}

	accessToken, newRefresh, err := jwt.NewTokenPair(user, a.secret, a.accessTTL, a.refreshTTL)
	if err != nil {
		log.Error("failed to issue session tokens", sl.Err(err))
		return "", "", err
	}

	log.Info("refresh successful", slog.Int64("uid", user.ID))

	return accessToken, newRefresh, nil
}

// Logout revokes the presented access token. Self-contained tokens stay
// formally valid until expiry, so revocation goes through the blacklist.
func (a *Auth) Logout(
	ctx context.Context,
	accessToken string,
) error {
	const op = "auth.Logout"

	log := a.log.With(slog.String("op", op))

	claims, err := jwt.Verify(accessToken, a.secret, jwt.PurposeAccess)
	if err != nil {
		log.Warn("invalid access token on logout", sl.Err(err))
		return ErrInvalidToken
	}

	if err := a.blacklist.BlacklistToken(ctx, accessToken, time.Until(claims.ExpiresAt)); err != nil {
		log.Error("failed to blacklist token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("logout successful", slog.Int64("uid", claims.UserID))

	return nil
}

// UserSession re-hydrates the full profile for a verified token. Callers
// must treat storage.ErrUserNotFound as "user gone" (404), not as an
// authentication failure.
func (a *Auth) UserSession(ctx context.Context, userID int64) (models.User, error) {
	const op = "auth.UserSession"

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, storage.ErrUserNotFound
		}

		a.log.With(slog.String("op", op)).Error("failed to load user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
