package notifications

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

type Store interface {
	Notification(ctx context.Context, id int64) (models.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) (models.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error)
	DeleteNotification(ctx context.Context, id int64) error
	NotificationsByUser(ctx context.Context, userID int64) ([]models.Notification, error)
}

// Service mutates per-user notifications. Every single-record mutation runs
// the ownership guard first.
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

func (s *Service) List(ctx context.Context, userID int64) ([]models.Notification, error) {
	const op = "notifications.List"

	list, err := s.store.NotificationsByUser(ctx, userID)
	if err != nil {
		s.log.With(slog.String("op", op)).Error("failed to list notifications", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) (models.Notification, error) {
	const op = "notifications.MarkRead"

	log := s.log.With(slog.String("op", op))

	n, err := s.store.Notification(ctx, notificationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotificationNotFound) {
			return models.Notification{}, storage.ErrNotificationNotFound
		}

		log.Error("failed to load notification", sl.Err(err))
		return models.Notification{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := guard.Owner(n.UserID, userID); err != nil {
		log.Warn("ownership check failed",
			slog.Int64("owner", n.UserID),
			slog.Int64("actor", userID),
		)
		return models.Notification{}, err
	}

	updated, err := s.store.MarkNotificationRead(ctx, notificationID)
	if err != nil {
		log.Error("failed to mark notification read", sl.Err(err))
		return models.Notification{}, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

// MarkAllRead flips every unread notification of the user and returns the
// count affected. Zero is a success, and a second call in a row yields zero.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	const op = "notifications.MarkAllRead"

	count, err := s.store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		s.log.With(slog.String("op", op)).Error("failed to mark all read", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

func (s *Service) Delete(ctx context.Context, userID, notificationID int64) error {
	const op = "notifications.Delete"

	log := s.log.With(slog.String("op", op))

	n, err := s.store.Notification(ctx, notificationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotificationNotFound) {
			return storage.ErrNotificationNotFound
		}

		log.Error("failed to load notification", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := guard.Owner(n.UserID, userID); err != nil {
		log.Warn("ownership check failed",
			slog.Int64("owner", n.UserID),
			slog.Int64("actor", userID),
		)
		return err
	}

	if err := s.store.DeleteNotification(ctx, notificationID); err != nil {
		log.Error("failed to delete notification", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
