package authn

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	resp "easybuk/internal/lib/api/response"
	"easybuk/internal/lib/cookies"
	"easybuk/internal/lib/jwt"
	sl "easybuk/internal/lib/logger"
	"easybuk/internal/models"

	"github.com/go-chi/render"
)

type ctxKey string

const identityContextKey ctxKey = "identity"

// Identity is the decoded session placed into the request context.
type Identity struct {
	UserID int64
	Roles  []string
	Token  string
}

func (i *Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Blacklist interface {
	IsTokenBlacklisted(ctx context.Context, rawToken string) (bool, error)
}

// New authenticates requests. Verification failures of any kind answer 401,
// never 500: an unreadable token is an unauthenticated caller, not a server
// fault.
func New(log *slog.Logger, secret string, blacklist Blacklist) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authn"

			token := ExtractToken(r)
			if token == "" {
				unauthorized(w, r)
				return
			}

			claims, err := jwt.Verify(token, secret, jwt.PurposeAccess)
			if err != nil {
				unauthorized(w, r)
				return
			}

			revoked, err := blacklist.IsTokenBlacklisted(r.Context(), token)
			if err != nil {
				// Blacklist being down must not grant revoked tokens a pass.
				log.Error("blacklist check failed", slog.String("op", op), sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
				return
			}
			if revoked {
				unauthorized(w, r)
				return
			}

			identity := &Identity{
				UserID: claims.UserID,
				Roles:  claims.Roles,
				Token:  token,
			}

			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole guards a route group behind a role carried by the session.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := FromContext(r.Context())
			if identity == nil {
				unauthorized(w, r)
				return
			}

			if !identity.HasRole(role) {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("forbidden"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireProvider is the guard for the provider service surface.
func RequireProvider() func(http.Handler) http.Handler {
	return RequireRole(models.RoleProvider)
}

// ExtractToken checks the auth cookie first, then the Authorization header.
// First match wins.
func ExtractToken(r *http.Request) string {
	if cookie, err := r.Cookie(cookies.AccessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return token
	}

	return ""
}

func FromContext(ctx context.Context) *Identity {
	if identity, ok := ctx.Value(identityContextKey).(*Identity); ok {
		return identity
	}
	return nil
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp.Error("unauthorized"))
}
