package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dirsoacha/resilience-api/internal/models"
)

var (
	ErrNotConfigured       = errors.New("push notifications are not configured")
	ErrInvalidSubscription = errors.New("invalid subscription")
)

// Store is the subscription set, keyed by endpoint.
type Store interface {
	Save(ctx context.Context, sub models.PushSubscription) (bool, error)
	Delete(ctx context.Context, endpoint string) error
	List(ctx context.Context) ([]models.PushSubscription, error)
	Count(ctx context.Context) (int, error)
}

const DefaultConcurrency = 8

// Relay fans a message out to every stored subscription. Failed deliveries
// are logged and reported but the subscription is kept.
type Relay struct {
	store       Store
	sender      Sender
	vapid       VAPID
	concurrency int
	now         func() time.Time
}

func NewRelay(store Store, sender Sender, vapid VAPID, concurrency int) *Relay {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Relay{
		store:       store,
		sender:      sender,
		vapid:       vapid,
		concurrency: concurrency,
		now:         time.Now,
	}
}

func (r *Relay) Configured() bool {
	return r.vapid.Configured()
}

func (r *Relay) PublicKey() string {
	return r.vapid.PublicKey
}

func (r *Relay) Subscribe(ctx context.Context, sub models.PushSubscription) (bool, error) {
	if sub.Endpoint == "" {
		return false, fmt.Errorf("%w: endpoint is required", ErrInvalidSubscription)
	}
	created, err := r.store.Save(ctx, sub)
	if err != nil {
		return false, err
	}
	if created {
		slog.Info("push subscription added", "endpoint", truncate(sub.Endpoint))
	}
	return created, nil
}

func (r *Relay) Unsubscribe(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidSubscription)
	}
	return r.store.Delete(ctx, endpoint)
}

func (r *Relay) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx)
}

// Send delivers msg to every subscriber. Individual failures never fail the
// call; only configuration and store errors do.
func (r *Relay) Send(ctx context.Context, msg models.PushMessage) (models.SendSummary, error) {
	if !r.Configured() {
		return models.SendSummary{}, ErrNotConfigured
	}

	msg = msg.WithDefaults(r.now())
	payload, err := json.Marshal(msg)
	if err != nil {
		return models.SendSummary{}, fmt.Errorf("error encoding push payload: %w", err)
	}

	subs, err := r.store.List(ctx)
	if err != nil {
		return models.SendSummary{}, fmt.Errorf("error listing subscriptions: %w", err)
	}

	results := make([]models.DeliveryResult, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, sub := range subs {
		i, sub := i, sub
		g.Go(func() error {
			res := models.DeliveryResult{Endpoint: sub.Endpoint}
			status, err := r.sender.Send(gctx, sub, payload, msg.Severity)
			res.StatusCode = status
			if err != nil {
				slog.Warn("push delivery failed",
					"endpoint", truncate(sub.Endpoint), "status", status, "error", err)
				res.Error = err.Error()
			} else {
				res.Success = true
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()

	summary := models.SendSummary{Total: len(subs), Results: results}
	for _, res := range results {
		if res.Success {
			summary.Sent++
		} else {
			summary.Failed++
		}
	}

	slog.Info("push notifications sent",
		"title", msg.Title, "severity", msg.Severity,
		"sent", summary.Sent, "failed", summary.Failed, "total", summary.Total)
	return summary, nil
}

// truncate keeps endpoints readable in logs; they carry per-device tokens.
func truncate(endpoint string) string {
	const max = 48
	if len(endpoint) <= max {
		return endpoint
	}
	return endpoint[:max] + "..."
}
