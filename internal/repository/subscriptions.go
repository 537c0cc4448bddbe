package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dirsoacha/resilience-api/internal/models"
)

type subscriptionRow struct {
	Endpoint       string        `db:"endpoint"`
	P256dh         string        `db:"p256dh"`
	Auth           string        `db:"auth"`
	ExpirationTime sql.NullInt64 `db:"expiration_time"`
	CreatedAt      time.Time     `db:"created_at"`
}

func (r subscriptionRow) toModel() models.PushSubscription {
	sub := models.PushSubscription{
		Endpoint:  r.Endpoint,
		Keys:      models.SubscriptionKeys{P256dh: r.P256dh, Auth: r.Auth},
		CreatedAt: r.CreatedAt,
	}
	if r.ExpirationTime.Valid {
		exp := r.ExpirationTime.Int64
		sub.ExpirationTime = &exp
	}
	return sub
}

func (s *SQLiteDB) Save(ctx context.Context, sub models.PushSubscription) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.GetContext(ctx, &exists,
		`SELECT COUNT(1) FROM push_subscriptions WHERE endpoint = ?`, sub.Endpoint); err != nil {
		return false, fmt.Errorf("error checking subscription: %w", err)
	}

	createdAt := sub.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var exp sql.NullInt64
	if sub.ExpirationTime != nil {
		exp = sql.NullInt64{Int64: *sub.ExpirationTime, Valid: true}
	}

	query := `
		INSERT INTO push_subscriptions (endpoint, p256dh, auth, expiration_time, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET
			p256dh = excluded.p256dh,
			auth = excluded.auth,
			expiration_time = excluded.expiration_time
	`
	if _, err := tx.ExecContext(ctx, query,
		sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth, exp, createdAt); err != nil {
		return false, fmt.Errorf("error saving subscription: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("error committing subscription: %w", err)
	}
	return exists == 0, nil
}

func (s *SQLiteDB) Delete(ctx context.Context, endpoint string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("error deleting subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteDB) List(ctx context.Context) ([]models.PushSubscription, error) {
	var rows []subscriptionRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT endpoint, p256dh, auth, expiration_time, created_at
		 FROM push_subscriptions ORDER BY created_at`); err != nil {
		return nil, fmt.Errorf("error listing subscriptions: %w", err)
	}

	subs := make([]models.PushSubscription, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.toModel())
	}
	return subs, nil
}

func (s *SQLiteDB) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(1) FROM push_subscriptions`); err != nil {
		return 0, fmt.Errorf("error counting subscriptions: %w", err)
	}
	return n, nil
}
