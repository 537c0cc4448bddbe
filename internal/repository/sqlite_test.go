package repository

import (
	"context"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) *SQLiteDB {
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteDB_Subscriptions(t *testing.T) {
	runSubscriptionStoreTests(t, setupTestDB(t))
}

func TestSQLiteDB_NotificationLog(t *testing.T) {
	runNotificationLogTests(t, setupTestDB(t))
}

func TestSQLiteDB_ExpirationTime(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	exp := int64(1767225600000)
	sub := newSub("https://push.example/exp", "k")
	sub.ExpirationTime = &exp
	if _, err := db.Save(ctx, sub); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := db.Save(ctx, newSub("https://push.example/none", "k")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	subs, err := db.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for _, s := range subs {
		switch s.Endpoint {
		case "https://push.example/exp":
			if s.ExpirationTime == nil || *s.ExpirationTime != exp {
				t.Errorf("expected expiration %d, got %v", exp, s.ExpirationTime)
			}
		case "https://push.example/none":
			if s.ExpirationTime != nil {
				t.Errorf("expected nil expiration, got %d", *s.ExpirationTime)
			}
		}
	}
}

func TestSQLiteDB_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resilience.db")
	ctx := context.Background()

	db, err := NewSQLiteDB(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := db.Save(ctx, newSub("https://push.example/keep", "k")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	db.Close()

	db, err = NewSQLiteDB(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	n, err := db.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected subscription to survive reopen, got %d", n)
	}
}
