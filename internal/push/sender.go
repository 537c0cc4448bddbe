package push

import (
	"context"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/dirsoacha/resilience-api/internal/models"
)

// Sender delivers one encrypted payload to one subscription and returns the
// push service status code.
type Sender interface {
	Send(ctx context.Context, sub models.PushSubscription, payload []byte, sev models.Severity) (int, error)
}

type WebPushSender struct {
	vapid  VAPID
	ttl    int
	client webpush.HTTPClient
}

// NewWebPushSender uses http.DefaultClient when client is nil.
func NewWebPushSender(vapid VAPID, ttlSeconds int, client webpush.HTTPClient) *WebPushSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebPushSender{vapid: vapid, ttl: ttlSeconds, client: client}
}

func (s *WebPushSender) Send(ctx context.Context, sub models.PushSubscription, payload []byte, sev models.Severity) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Keys.Auth,
			P256dh: sub.Keys.P256dh,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.vapid.subscriber(),
		VAPIDPublicKey:  s.vapid.PublicKey,
		VAPIDPrivateKey: s.vapid.PrivateKey,
		TTL:             s.ttl,
		Urgency:         urgencyFor(sev),
	})
	if err != nil {
		return 0, fmt.Errorf("error sending push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("push service returned %d: %s", resp.StatusCode, body)
	}
	return resp.StatusCode, nil
}

func urgencyFor(sev models.Severity) webpush.Urgency {
	switch sev {
	case models.SeverityHigh:
		return webpush.UrgencyHigh
	case models.SeverityLow:
		return webpush.UrgencyLow
	default:
		return webpush.UrgencyNormal
	}
}
