package notifications

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"easybuk/internal/http_server/middleware/authn"
	resp "easybuk/internal/lib/api/response"
	"easybuk/internal/lib/guard"
	sl "easybuk/internal/lib/logger"
	"easybuk/internal/models"
	"easybuk/internal/notifications"
	"easybuk/internal/storage"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type ListResponse struct {
	resp.Response
	Notifications []models.Notification `json:"notifications"`
}

type MarkReadResponse struct {
	resp.Response
	Notification models.Notification `json:"notification"`
}

type MarkAllReadResponse struct {
	resp.Response
	UpdatedCount int64 `json:"updated_count"`
}

func List(log *slog.Logger, svc *notifications.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notifications.List"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity := authn.FromContext(r.Context())
		if identity == nil {
			unauthorized(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := svc.List(ctx, identity.UserID)
		if err != nil {
			log.Error("failed to list notifications", sl.Err(err))

			internalError(w, r)
			return
		}

		render.JSON(w, r, ListResponse{
			Response:      resp.OK(),
			Notifications: list,
		})
	}
}

func MarkRead(log *slog.Logger, svc *notifications.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notifications.MarkRead"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity := authn.FromContext(r.Context())
		if identity == nil {
			unauthorized(w, r)
			return
		}

		id, ok := notificationID(w, r)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		updated, err := svc.MarkRead(ctx, identity.UserID, id)
		if err != nil {
			respondMutationError(w, r, log, err)
			return
		}

		render.JSON(w, r, MarkReadResponse{
			Response:     resp.OK(),
			Notification: updated,
		})
	}
}

func MarkAllRead(log *slog.Logger, svc *notifications.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notifications.MarkAllRead"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity := authn.FromContext(r.Context())
		if identity == nil {
			unauthorized(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		count, err := svc.MarkAllRead(ctx, identity.UserID)
		if err != nil {
			log.Error("failed to mark all notifications read", sl.Err(err))

			internalError(w, r)
			return
		}

		render.JSON(w, r, MarkAllReadResponse{
			Response:     resp.OK(),
			UpdatedCount: count,
		})
	}
}

func Delete(log *slog.Logger, svc *notifications.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notifications.Delete"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity := authn.FromContext(r.Context())
		if identity == nil {
			unauthorized(w, r)
			return
		}

		id, ok := notificationID(w, r)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := svc.Delete(ctx, identity.UserID, id); err != nil {
			respondMutationError(w, r, log, err)
			return
		}

		render.JSON(w, r, resp.OK())
	}
}

func notificationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("invalid notification id"))

		return 0, false
	}

	return id, true
}

func respondMutationError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, storage.ErrNotificationNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, resp.Error("notification not found"))
	case errors.Is(err, guard.ErrForbidden):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, resp.Error("forbidden"))
	default:
		log.Error("notification mutation failed", sl.Err(err))

		internalError(w, r)
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp.Error("unauthorized"))
}

func internalError(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, resp.Error("Internal error"))
}
