package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/scholarbridge/request-service/internal/domain"
	"github.com/scholarbridge/request-service/internal/store"
)

const DefaultNotificationRetention = 30 * 24 * time.Hour

func (s *Service) ListNotifications(ctx context.Context, recipient domain.UserRef, opts domain.NotificationListOptions) ([]domain.Notification, error) {
	return s.repo.ListNotifications(ctx, recipient, opts)
}

func (s *Service) UnreadNotificationCount(ctx context.Context, recipient domain.UserRef) (int64, error) {
	return s.repo.CountUnreadNotifications(ctx, recipient)
}

func (s *Service) MarkNotificationRead(ctx context.Context, recipient domain.UserRef, notificationID uuid.UUID) error {
	updated, err := s.repo.MarkNotificationRead(ctx, recipient, notificationID)
	if err != nil {
		return err
	}
	if !updated {
		return store.ErrNotificationNotFound
	}
	return nil
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, recipient domain.UserRef) (int64, error) {
	return s.repo.MarkAllNotificationsRead(ctx, recipient)
}

func (s *Service) DeleteNotification(ctx context.Context, recipient domain.UserRef, notificationID uuid.UUID) error {
	deleted, err := s.repo.SoftDeleteNotification(ctx, recipient, notificationID)
	if err != nil {
		return err
	}
	if !deleted {
		return store.ErrNotificationNotFound
	}
	return nil
}

// CleanupReadNotifications hard-deletes read notifications older than retention.
func (s *Service) CleanupReadNotifications(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultNotificationRetention
	}
	deleted, err := s.repo.DeleteReadNotificationsBefore(ctx, s.now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Printf("level=info component=service flow=notification_cleanup msg=\"read notifications removed\" count=%d", deleted)
	}
	return deleted, nil
}
