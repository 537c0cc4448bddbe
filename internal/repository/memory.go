package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dirsoacha/resilience-api/internal/models"
)

const memoryHistoryCap = MaxHistoryLimit

// MemoryStore is the default process-local store. Contents are lost on restart.
type MemoryStore struct {
	mu            sync.RWMutex
	subscriptions map[string]models.PushSubscription
	notifications []models.NotificationRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscriptions: make(map[string]models.PushSubscription),
	}
}

func (m *MemoryStore) Save(_ context.Context, sub models.PushSubscription) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.subscriptions[sub.Endpoint]
	switch {
	case exists:
		sub.CreatedAt = existing.CreatedAt
	case sub.CreatedAt.IsZero():
		sub.CreatedAt = time.Now().UTC()
	}
	m.subscriptions[sub.Endpoint] = sub
	return !exists, nil
}

func (m *MemoryStore) Delete(_ context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subscriptions[endpoint]; !ok {
		return ErrNotFound
	}
	delete(m.subscriptions, endpoint)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]models.PushSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subs := make([]models.PushSubscription, 0, len(m.subscriptions))
	for _, s := range m.subscriptions {
		subs = append(subs, s)
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].Endpoint < subs[j].Endpoint
		}
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
	return subs, nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions), nil
}

func (m *MemoryStore) AddNotification(_ context.Context, n *models.NotificationRecord) error {
	prepareRecord(n)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, *n)
	if len(m.notifications) > memoryHistoryCap {
		m.notifications = m.notifications[len(m.notifications)-memoryHistoryCap:]
	}
	return nil
}

func (m *MemoryStore) ListNotifications(_ context.Context, limit int) ([]models.NotificationRecord, error) {
	limit = clampLimit(limit)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.NotificationRecord, 0, min(limit, len(m.notifications)))
	for i := len(m.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.notifications[i])
	}
	return out, nil
}
