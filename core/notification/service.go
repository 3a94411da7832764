package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// errors
	ErrNotFound = errors.New("notification not found")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		QueryNotificationsByUserID(ctx context.Context, userID string) ([]Notification, error)
		GetNotificationByID(ctx context.Context, id string) (Notification, error)
		MarkNotificationRead(ctx context.Context, id string) error
		MarkAllNotificationsRead(ctx context.Context, userID string) error
		CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Notify inserts a single notification row for the given recipient.
func (svc *Service) Notify(ctx context.Context, userID, typ, title, message, link string) (Notification, error) {
	n := Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Link:      link,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateNotification(ctx, n)
}

// Broadcast inserts one notification row per recipient.
// A failure partway through leaves earlier inserts in place; the primary
// mutation that triggered the fan-out is never rolled back for it.
func (svc *Service) Broadcast(ctx context.Context, userIDs []string, typ, title, message, link string) error {
	for _, id := range userIDs {
		if _, err := svc.Notify(ctx, id, typ, title, message, link); err != nil {
			return err
		}
	}
	return nil
}

func (svc *Service) QueryByUser(ctx context.Context, userID string) ([]Notification, error) {
	return svc.repo.QueryNotificationsByUserID(ctx, userID)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Notification, error) {
	return svc.repo.GetNotificationByID(ctx, id)
}

func (svc *Service) MarkRead(ctx context.Context, id string) error {
	return svc.repo.MarkNotificationRead(ctx, id)
}

func (svc *Service) MarkAllRead(ctx context.Context, userID string) error {
	return svc.repo.MarkAllNotificationsRead(ctx, userID)
}

func (svc *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountUnreadNotifications(ctx, userID)
}
