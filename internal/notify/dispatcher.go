package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dirsoacha/resilience-api/internal/alerting"
	"github.com/dirsoacha/resilience-api/internal/config"
	"github.com/dirsoacha/resilience-api/internal/events"
	"github.com/dirsoacha/resilience-api/internal/models"
	"github.com/dirsoacha/resilience-api/internal/push"
	"github.com/dirsoacha/resilience-api/internal/stream"
	"github.com/dirsoacha/resilience-api/internal/worker"
)

type Relay interface {
	Send(ctx context.Context, msg models.PushMessage) (models.SendSummary, error)
}

type Recorder interface {
	AddNotification(ctx context.Context, n *models.NotificationRecord) error
}

type Messenger interface {
	Notify(ctx context.Context, text string) error
}

type Broadcaster interface {
	Broadcast(e stream.Event)
}

// Deps are the delivery channels. Publisher, Messenger and Live may be nil.
type Deps struct {
	Relay     Relay
	Log       Recorder
	Publisher events.Publisher
	Messenger Messenger
	Live      Broadcaster
}

// Dispatcher turns threshold crossings and manual sends into push
// notifications, log records, bus events and chat messages.
type Dispatcher struct {
	cfg         config.PushConfig
	deps        Deps
	pool        *worker.Pool[alerting.Crossing]
	enqueueWait time.Duration
}

const defaultEnqueueWait = 2 * time.Second

func NewDispatcher(cfg config.PushConfig, deps Deps) *Dispatcher {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	return &Dispatcher{
		cfg:         cfg,
		deps:        deps,
		enqueueWait: defaultEnqueueWait,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.pool = worker.NewPool("notify", d.cfg.Workers, d.cfg.QueueSize, d.process)
	d.pool.Start(ctx)
	slog.Info("notification dispatcher started", "workers", d.cfg.Workers, "queue", d.cfg.QueueSize)
}

// Notify queues a threshold crossing. When the queue is full it waits up to
// enqueueWait for room; a crossing that still does not fit is logged with
// everything needed to resend it by hand, since its session will not fire
// that bucket again.
func (d *Dispatcher) Notify(ctx context.Context, c alerting.Crossing) {
	d.broadcast(stream.NewEvent(stream.EventThresholdReached, c.SessionID, c))

	if d.pool == nil {
		logDropped(c, errors.New("dispatcher not started"))
		return
	}
	err := d.pool.TrySubmit(c)
	if errors.Is(err, worker.ErrQueueFull) && d.enqueueWait > 0 {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.enqueueWait)
		err = d.pool.Submit(wctx, c)
		cancel()
	}
	if err != nil {
		logDropped(c, err)
	}
}

func logDropped(c alerting.Crossing, err error) {
	slog.Error("threshold notification dropped, resend it with POST /api/notifications/send",
		"session", c.SessionID,
		"bucket", c.Bucket,
		"severity", c.Severity,
		"count", c.Count,
		"threshold", c.Threshold,
		"report", c.Report.ID,
		"error", err)
}

// SendNow delivers a manual notification synchronously.
func (d *Dispatcher) SendNow(ctx context.Context, msg models.PushMessage) (models.SendSummary, error) {
	summary, err := d.deps.Relay.Send(ctx, msg)
	if err != nil {
		return models.SendSummary{}, err
	}
	d.after(ctx, msg, summary, models.NotificationSourceManual, nil)
	return summary, nil
}

func (d *Dispatcher) process(ctx context.Context, c alerting.Crossing) error {
	msg := MessageFor(c.Severity)
	msg.Data = map[string]any{
		"url":       models.DefaultNotificationURL,
		"alertId":   c.Report.ID,
		"sessionId": c.SessionID,
		"bucket":    string(c.Bucket),
		"count":     c.Count,
	}

	summary, err := d.deps.Relay.Send(ctx, msg)
	switch {
	case errors.Is(err, push.ErrNotConfigured):
		slog.Warn("push not configured, threshold notification only logged",
			"session", c.SessionID, "bucket", c.Bucket)
	case err != nil:
		return fmt.Errorf("error relaying threshold notification: %w", err)
	}

	d.after(ctx, msg, summary, models.NotificationSourceThreshold, &c)
	return nil
}

// after records the delivery and fans it out to the secondary channels.
// Failures here are logged only.
func (d *Dispatcher) after(ctx context.Context, msg models.PushMessage, summary models.SendSummary, source models.NotificationSource, c *alerting.Crossing) {
	sev := msg.Severity
	if !sev.Valid() {
		sev = models.SeverityMedium
	}

	rec := &models.NotificationRecord{
		Title:    msg.Title,
		Body:     msg.Body,
		Severity: sev,
		Source:   source,
		Sent:     summary.Sent,
		Failed:   summary.Failed,
		Total:    summary.Total,
	}
	if c != nil {
		rec.SessionID = c.SessionID
	}
	if err := d.deps.Log.AddNotification(ctx, rec); err != nil {
		slog.Error("error recording notification", "title", msg.Title, "error", err)
	}

	ev := events.AlertEvent{
		ID:        rec.ID,
		Kind:      string(source),
		SessionID: rec.SessionID,
		Severity:  string(sev),
		Title:     msg.Title,
		Message:   msg.Body,
		Sent:      summary.Sent,
		Failed:    summary.Failed,
		CreatedAt: rec.CreatedAt,
	}
	if c != nil {
		ev.Count = c.Count
		ev.Threshold = c.Threshold
	}
	if err := d.deps.Publisher.Publish(ctx, ev); err != nil {
		slog.Error("error publishing alert event", "id", rec.ID, "error", err)
	}

	if d.deps.Messenger != nil {
		text := fmt.Sprintf("%s\n%s\n\nEntregadas: %d/%d", msg.Title, msg.Body, summary.Sent, summary.Total)
		if c != nil {
			text += fmt.Sprintf("\nReportes: %d (umbral %d)", c.Count, c.Threshold)
		}
		if err := d.deps.Messenger.Notify(ctx, text); err != nil {
			slog.Error("error forwarding alert to telegram", "id", rec.ID, "error", err)
		}
	}

	d.broadcast(stream.NewEvent(stream.EventNotificationSent, rec.SessionID, rec))

	slog.Info("notification dispatched",
		"id", rec.ID, "source", source, "severity", sev,
		"sent", summary.Sent, "failed", summary.Failed)
}

func (d *Dispatcher) broadcast(e stream.Event) {
	if d.deps.Live != nil {
		d.deps.Live.Broadcast(e)
	}
}

func (d *Dispatcher) Stop() {
	if d.pool != nil {
		d.pool.Stop()
	}
	slog.Info("notification dispatcher stopped")
}
