package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dirsoacha/resilience-api/internal/models"
)

func prepareRecord(n *models.NotificationRecord) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
}

func (s *SQLiteDB) AddNotification(ctx context.Context, n *models.NotificationRecord) error {
	prepareRecord(n)

	query := `
		INSERT INTO notification_log (id, title, body, severity, source, session_id, sent, failed, total, created_at)
		VALUES (:id, :title, :body, :severity, :source, :session_id, :sent, :failed, :total, :created_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("error adding notification: %w", err)
	}
	return nil
}

// ListNotifications returns the newest records first.
func (s *SQLiteDB) ListNotifications(ctx context.Context, limit int) ([]models.NotificationRecord, error) {
	records := []models.NotificationRecord{}
	query := `
		SELECT id, title, body, severity, source, session_id, sent, failed, total, created_at
		FROM notification_log
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`
	if err := s.db.SelectContext(ctx, &records, query, clampLimit(limit)); err != nil {
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}
	return records, nil
}
