package repository

import (
	"context"
	"errors"

	"github.com/dirsoacha/resilience-api/internal/models"
)

var ErrNotFound = errors.New("not found")

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// SubscriptionStore keeps push subscriptions keyed by endpoint.
// Save reports whether the endpoint was new.
type SubscriptionStore interface {
	Save(ctx context.Context, sub models.PushSubscription) (bool, error)
	Delete(ctx context.Context, endpoint string) error
	List(ctx context.Context) ([]models.PushSubscription, error)
	Count(ctx context.Context) (int, error)
}

type NotificationLog interface {
	AddNotification(ctx context.Context, n *models.NotificationRecord) error
	ListNotifications(ctx context.Context, limit int) ([]models.NotificationRecord, error)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
