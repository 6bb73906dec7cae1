package jwt

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"easybuk/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	PurposeAccess  = "access"
	PurposeRefresh = "refresh"
)

var (
	// ErrEmptySecret means the server was started without a signing secret.
	ErrEmptySecret  = errors.New("jwt signing secret is not configured")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the decoded identity carried by a session token.
type Claims struct {
	UserID    int64
	Roles     []string
	ExpiresAt time.Time
}

// NewTokenPair issues a signed access and refresh token for the user.
// Both tokens are self-contained: verification needs no database access.
func NewTokenPair(
	user models.User,
	secret string,
	accessTTL, refreshTTL time.Duration,
) (accessToken string, refreshToken string, err error) {
	accessToken, err = newToken(user, secret, PurposeAccess, accessTTL)
	if err != nil {
		return "", "", err
	}

	refreshToken, err = newToken(user, secret, PurposeRefresh, refreshTTL)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func newToken(user models.User, secret, purpose string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	now := time.Now()

	claims := jwt.MapClaims{
		"sub":     user.ID,
		"roles":   user.Roles,
		"purpose": purpose,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}

// Verify checks the signature, expiry and purpose of a session token.
func Verify(tokenStr, secret, purpose string) (Claims, error) {
	const op = "jwt.Verify"

	if secret == "" {
		return Claims{}, ErrEmptySecret
	}

	claims := jwt.MapClaims{}

	parsedToken, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%s: unexpected signing method", op)
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if !parsedToken.Valid {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if p, ok := claims["purpose"].(string); !ok || p != purpose {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	expFloat, ok := claims["exp"].(float64)
	if !ok {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	expiresAt := time.Unix(int64(expFloat), 0)
	if time.Now().After(expiresAt) {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	subFloat, ok := claims["sub"].(float64)
	if !ok {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	var roles []string
	if raw, ok := claims["roles"].([]interface{}); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
	}

	return Claims{
		UserID:    int64(subFloat),
		Roles:     roles,
		ExpiresAt: expiresAt,
	}, nil
}

// NewVerificationToken generates an opaque single-use token. It is stored
// server-side rather than signed, so consuming it can flip its used flag.
func NewVerificationToken() (string, error) {
	const op = "jwt.NewVerificationToken"

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return hex.EncodeToString(buf), nil
}
