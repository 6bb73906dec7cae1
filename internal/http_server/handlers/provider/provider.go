package provider

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
	"easybuk/internal/provider"
	"easybuk/internal/storage"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE"`
}

type StatusResponse struct {
	resp.Response
	Service models.ProviderService `json:"service"`
}

type ListResponse struct {
	resp.Response
	Services []models.ProviderService `json:"services"`
}

func ListServices(log *slog.Logger, svc *provider.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.provider.ListServices"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity := authn.FromContext(r.Context())
		if identity == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("unauthorized"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		services, err := svc.List(ctx, identity.UserID)
		if err != nil {
			log.Error("failed to list services", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, ListResponse{
			Response: resp.OK(),
			Services: services,
		})
	}
}

func SetStatus(
	log *slog.Logger,
	validate *validator.Validate,
	svc *provider.Service,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.provider.SetStatus"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity := authn.FromContext(r.Context())
		if identity == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("unauthorized"))

			return
		}

		serviceID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("invalid service id"))

			return
		}

		var req StatusRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		updated, err := svc.SetStatus(ctx, identity.UserID, serviceID, req.Status)
		if err != nil {
			switch {
			case errors.Is(err, provider.ErrInvalidStatus):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("invalid status"))
			// A service owned by someone else answers 404 so the route does
			// not confirm that the id exists.
			case errors.Is(err, storage.ErrServiceNotFound), errors.Is(err, guard.ErrForbidden):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("service not found"))
			default:
				log.Error("failed to update service status", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("service status updated", slog.Int64("service_id", serviceID))

		render.JSON(w, r, StatusResponse{
			Response: resp.OK(),
			Service:  updated,
		})
	}
}
