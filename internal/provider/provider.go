package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"easybuk/internal/lib/guard"
	sl "easybuk/internal/lib/logger"
	"easybuk/internal/models"
	"easybuk/internal/storage"
)

// ErrInvalidStatus means the requested status is not ACTIVE or INACTIVE.
var ErrInvalidStatus = errors.New("invalid service status")

type Store interface {
	ProviderService(ctx context.Context, id int64) (models.ProviderService, error)
	UpdateServiceStatus(ctx context.Context, id int64, status string) (models.ProviderService, error)
	ServicesByProvider(ctx context.Context, providerID int64) ([]models.ProviderService, error)
}

// Service manages a provider's listed marketplace services.
type Service struct {
	log   *slog.Logger
	store Store
}

func New(log *slog.Logger, store Store) *Service {
	return &Service{
		log:   log,
		store: store,
	}
}

func (s *Service) List(ctx context.Context, providerID int64) ([]models.ProviderService, error) {
	const op = "provider.List"

	list, err := s.store.ServicesByProvider(ctx, providerID)
	if err != nil {
		s.log.With(slog.String("op", op)).Error("failed to list services", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

func (s *Service) SetStatus(ctx context.Context, providerID, serviceID int64, status string) (models.ProviderService, error) {
	const op = "provider.SetStatus"

	log := s.log.With(slog.String("op", op))

	if status != models.ServiceStatusActive && status != models.ServiceStatusInactive {
		return models.ProviderService{}, ErrInvalidStatus
	}

	svc, err := s.store.ProviderService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, storage.ErrServiceNotFound) {
			return models.ProviderService{}, storage.ErrServiceNotFound
		}

		log.Error("failed to load service", sl.Err(err))
		return models.ProviderService{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := guard.Owner(svc.ProviderID, providerID); err != nil {
		log.Warn("ownership check failed",
			slog.Int64("owner", svc.ProviderID),
			slog.Int64("actor", providerID),
		)
		return models.ProviderService{}, err
	}

	updated, err := s.store.UpdateServiceStatus(ctx, serviceID, status)
	if err != nil {
		log.Error("failed to update service status", sl.Err(err))
		return models.ProviderService{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("service status updated",
		slog.Int64("service_id", serviceID),
		slog.String("status", status),
	)

	return updated, nil
}
