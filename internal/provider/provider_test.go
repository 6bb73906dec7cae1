package provider

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"easybuk/internal/lib/guard"
	"easybuk/internal/models"
	"easybuk/internal/storage"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	services map[int64]models.ProviderService
}

func newFakeStore(services ...models.ProviderService) *fakeStore {
	s := &fakeStore{services: make(map[int64]models.ProviderService)}
	for _, svc := range services {
		s.services[svc.ID] = svc
	}
	return s
}

func (s *fakeStore) ProviderService(_ context.Context, id int64) (models.ProviderService, error) {
	svc, ok := s.services[id]
	if !ok {
		return models.ProviderService{}, storage.ErrServiceNotFound
	}
	return svc, nil
}

func (s *fakeStore) UpdateServiceStatus(_ context.Context, id int64, status string) (models.ProviderService, error) {
	svc, ok := s.services[id]
	if !ok {
		return models.ProviderService{}, storage.ErrServiceNotFound
	}
	svc.Status = status
	s.services[id] = svc
	return svc, nil
}

func (s *fakeStore) ServicesByProvider(_ context.Context, providerID int64) ([]models.ProviderService, error) {
	var list []models.ProviderService
	for _, svc := range s.services {
		if svc.ProviderID == providerID {
			list = append(list, svc)
		}
	}
	return list, nil
}

func newTestService(store Store) *Service {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), store)
}

func TestSetStatus(t *testing.T) {
	t.Parallel()

	cleaning := models.ProviderService{
		ID:         1,
		ProviderID: 10,
		Title:      "Home cleaning",
		Status:     models.ServiceStatusInactive,
	}

	t.Run("owner activates service", func(t *testing.T) {
		store := newFakeStore(cleaning)
		svc := newTestService(store)

		updated, err := svc.SetStatus(context.Background(), 10, 1, models.ServiceStatusActive)
		require.NoError(t, err)
		require.Equal(t, models.ServiceStatusActive, updated.Status)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		store := newFakeStore(cleaning)
		svc := newTestService(store)

		_, err := svc.SetStatus(context.Background(), 10, 1, "PAUSED")
		require.ErrorIs(t, err, ErrInvalidStatus)
		require.Equal(t, models.ServiceStatusInactive, store.services[1].Status)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		store := newFakeStore(cleaning)
		svc := newTestService(store)

		_, err := svc.SetStatus(context.Background(), 20, 1, models.ServiceStatusActive)
		require.ErrorIs(t, err, guard.ErrForbidden)
		require.Equal(t, models.ServiceStatusInactive, store.services[1].Status)
	})

	t.Run("missing service is not found", func(t *testing.T) {
		svc := newTestService(newFakeStore())

		_, err := svc.SetStatus(context.Background(), 10, 404, models.ServiceStatusActive)
		require.ErrorIs(t, err, storage.ErrServiceNotFound)
	})
}

func TestList(t *testing.T) {
	t.Parallel()

	store := newFakeStore(
		models.ProviderService{ID: 1, ProviderID: 10},
		models.ProviderService{ID: 2, ProviderID: 20},
	)
	svc := newTestService(store)

	list, err := svc.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(1), list[0].ID)
}
