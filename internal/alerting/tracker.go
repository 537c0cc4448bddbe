package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dirsoacha/resilience-api/internal/models"
)

var ErrTooManySessions = errors.New("too many active report sessions")

const (
	DefaultMaxSessions       = 10000
	DefaultMaxSessionReports = 500
)

// Limits bound the tracker's memory. MaxReports caps the reports listed per
// session; counts and thresholds still cover every report. Non-positive
// values fall back to the defaults.
type Limits struct {
	MaxSessions int
	MaxReports  int
}

func (l Limits) normalized() Limits {
	if l.MaxSessions <= 0 {
		l.MaxSessions = DefaultMaxSessions
	}
	if l.MaxReports <= 0 {
		l.MaxReports = DefaultMaxSessionReports
	}
	return l
}

// NotifyFunc receives every threshold crossing. It is called without the
// tracker lock held and must not block for long.
type NotifyFunc func(ctx context.Context, c Crossing)

type AddResult struct {
	SessionID string        `json:"sessionId"`
	Report    models.Report `json:"report"`
	Counts    models.Counts `json:"counts"`
	Fired     []Crossing    `json:"notified"`
}

type Snapshot struct {
	SessionID  string          `json:"sessionId"`
	Reports    []models.Report `json:"reports"`
	Counts     models.Counts   `json:"counts"`
	Thresholds Thresholds      `json:"thresholds"`
	Fired      []Bucket        `json:"notified"`
}

// Tracker holds the per-session report lists and threshold guards.
type Tracker struct {
	thresholds Thresholds
	limits     Limits
	ttl        time.Duration
	notify     NotifyFunc
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewTracker(th Thresholds, ttl time.Duration, notify NotifyFunc) *Tracker {
	return &Tracker{
		thresholds: th.normalized(),
		limits:     Limits{}.normalized(),
		ttl:        ttl,
		notify:     notify,
		now:        time.Now,
		sessions:   make(map[string]*session),
	}
}

// SetLimits replaces the default limits. Call it before serving requests.
func (t *Tracker) SetLimits(l Limits) {
	t.mu.Lock()
	t.limits = l.normalized()
	t.mu.Unlock()
}

func (t *Tracker) Thresholds() Thresholds {
	return t.thresholds
}

// NewSessionID returns a fresh identifier for clients that did not send one.
func NewSessionID() string {
	return uuid.NewString()
}

// AddReport records a report for the session and fires the notifier for every
// bucket whose threshold was met for the first time.
func (t *Tracker) AddReport(ctx context.Context, sessionID string, sev models.Severity) (AddResult, error) {
	if !sev.Valid() {
		return AddResult{}, fmt.Errorf("%w %q", models.ErrInvalidSeverity, sev)
	}

	now := t.now()
	report := models.Report{
		ID:        newReportID(),
		Title:     reportTitle,
		Severity:  sev,
		Status:    models.ReportStatusActive,
		Timestamp: now,
	}

	t.mu.Lock()
	s, err := t.sessionLocked(sessionID, now)
	if err != nil {
		t.mu.Unlock()
		return AddResult{}, err
	}
	counts, crossed := s.add(report)
	t.mu.Unlock()

	for _, c := range crossed {
		slog.Info("alert threshold reached",
			"session", sessionID, "bucket", c.Bucket, "count", c.Count, "threshold", c.Threshold)
		if t.notify != nil {
			t.notify(ctx, c)
		}
	}

	if crossed == nil {
		crossed = []Crossing{}
	}
	return AddResult{
		SessionID: sessionID,
		Report:    report,
		Counts:    counts,
		Fired:     crossed,
	}, nil
}

func (t *Tracker) Snapshot(sessionID string) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		SessionID:  sessionID,
		Reports:    []models.Report{},
		Thresholds: t.thresholds,
		Fired:      []Bucket{},
	}
	s, ok := t.sessions[sessionID]
	if !ok {
		return snap
	}
	s.lastSeen = t.now()

	snap.Reports = s.newest()
	snap.Counts = s.counts
	if fired := s.firedBuckets(); fired != nil {
		snap.Fired = fired
	}
	return snap
}

func (t *Tracker) Resolve(sessionID, reportID string) (models.Report, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[sessionID]
	if !ok {
		return models.Report{}, ErrReportNotFound
	}
	s.lastSeen = t.now()
	return s.resolve(reportID)
}

// Reset drops the session, re-arming every threshold for it.
func (t *Tracker) Reset(sessionID string) {
	t.mu.Lock()
	delete(t.sessions, sessionID)
	t.mu.Unlock()
}

func (t *Tracker) SessionCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many.
func (t *Tracker) Sweep() int {
	if t.ttl <= 0 {
		return 0
	}
	cutoff := t.now().Add(-t.ttl)

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sweepLocked(cutoff)
}

func (t *Tracker) sweepLocked(cutoff time.Time) int {
	removed := 0
	for id, s := range t.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(t.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				slog.Debug("swept idle report sessions", "count", n)
			}
		}
	}
}

// sessionLocked returns the session, creating it if there is room. Existing
// sessions are never evicted to make room, so their fired guards hold.
func (t *Tracker) sessionLocked(id string, now time.Time) (*session, error) {
	s, ok := t.sessions[id]
	if !ok {
		if len(t.sessions) >= t.limits.MaxSessions && t.ttl > 0 {
			t.sweepLocked(now.Add(-t.ttl))
		}
		if len(t.sessions) >= t.limits.MaxSessions {
			return nil, ErrTooManySessions
		}
		s = newSession(id, t.thresholds, t.limits.MaxReports, now)
		t.sessions[id] = s
	}
	s.lastSeen = now
	return s, nil
}

func newReportID() string {
	return "A-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
