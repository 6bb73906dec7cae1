package refresh

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"easybuk/internal/auth"
	resp "easybuk/internal/lib/api/response"
	"easybuk/internal/lib/cookies"
	sl "easybuk/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Request struct {
	RefreshToken string `json:"refresh_token"`
}

type Response struct {
	resp.Response
}

func New(
	log *slog.Logger,
	authService *auth.Auth,
	accessTTL, refreshTTL time.Duration,
	secureCookies bool,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := extractRefreshToken(r)
		if token == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("missing refresh token"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		accessToken, newRefreshToken, err := authService.Refresh(ctx, token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("invalid credentials"))

				return
			}

			log.Error("failed to refresh tokens", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		cookies.SetSession(w, accessToken, newRefreshToken, accessTTL, refreshTTL, secureCookies)

		log.Info("Tokens refreshed successfully")

		render.JSON(w, r, Response{
			Response: resp.OK(),
		})
	}
}

// extractRefreshToken prefers the cookie, falling back to a JSON body for
// non-browser clients.
func extractRefreshToken(r *http.Request) string {
	if cookie, err := r.Cookie(cookies.RefreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err == nil {
		return req.RefreshToken
	}

	return ""
}
