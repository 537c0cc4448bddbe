package alerting

import (
	"errors"
	"time"

	"github.com/dirsoacha/resilience-api/internal/models"
)

var ErrReportNotFound = errors.New("report not found")

const reportTitle = "Inundación reportada"

// Bucket identifies a fire-once threshold guard inside a session.
type Bucket string

const (
	BucketHigh     Bucket = "high"
	BucketMedium   Bucket = "medium"
	BucketLow      Bucket = "low"
	BucketCombined Bucket = "combined" // high + medium together
)

// Severity is the notification severity delivered when the bucket fires.
func (b Bucket) Severity() models.Severity {
	switch b {
	case BucketHigh:
		return models.SeverityHigh
	case BucketLow:
		return models.SeverityLow
	default:
		return models.SeverityMedium
	}
}

const (
	DefaultHighThreshold   = 5
	DefaultMediumThreshold = 5
	DefaultLowThreshold    = 10
)

type Thresholds struct {
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Combined int `json:"combined,omitempty"`
}

// normalized replaces non-positive per-severity thresholds with the defaults.
// A non-positive Combined threshold disables that bucket.
func (t Thresholds) normalized() Thresholds {
	if t.High <= 0 {
		t.High = DefaultHighThreshold
	}
	if t.Medium <= 0 {
		t.Medium = DefaultMediumThreshold
	}
	if t.Low <= 0 {
		t.Low = DefaultLowThreshold
	}
	if t.Combined < 0 {
		t.Combined = 0
	}
	return t
}

// Crossing is emitted once per bucket, on the report that first meets the threshold.
type Crossing struct {
	SessionID string          `json:"sessionId"`
	Bucket    Bucket          `json:"bucket"`
	Severity  models.Severity `json:"severity"`
	Count     int             `json:"count"`
	Threshold int             `json:"threshold"`
	Report    models.Report   `json:"report"`
}

type session struct {
	id         string
	thresholds Thresholds
	maxReports int
	reports    []models.Report // oldest first; only the last maxReports are visible
	counts     models.Counts   // every report ever added, including trimmed ones
	fired      map[Bucket]bool
	lastSeen   time.Time
}

func newSession(id string, th Thresholds, maxReports int, now time.Time) *session {
	return &session{
		id:         id,
		thresholds: th,
		maxReports: maxReports,
		fired:      make(map[Bucket]bool),
		lastSeen:   now,
	}
}

func (s *session) add(r models.Report) (models.Counts, []Crossing) {
	s.reports = append(s.reports, r)
	// Trim in batches so the copy is amortized over maxReports adds.
	if s.maxReports > 0 && len(s.reports) >= 2*s.maxReports {
		n := copy(s.reports, s.reports[len(s.reports)-s.maxReports:])
		clear(s.reports[n:])
		s.reports = s.reports[:n]
	}
	s.counts.Add(r.Severity)
	counts := s.counts

	type guard struct {
		bucket    Bucket
		count     int
		threshold int
	}
	guards := []guard{
		{BucketHigh, counts.High, s.thresholds.High},
		{BucketMedium, counts.Medium, s.thresholds.Medium},
		{BucketCombined, counts.Combined(), s.thresholds.Combined},
		{BucketLow, counts.Low, s.thresholds.Low},
	}

	var crossed []Crossing
	for _, g := range guards {
		if g.threshold <= 0 || s.fired[g.bucket] || g.count < g.threshold {
			continue
		}
		s.fired[g.bucket] = true
		crossed = append(crossed, Crossing{
			SessionID: s.id,
			Bucket:    g.bucket,
			Severity:  g.bucket.Severity(),
			Count:     g.count,
			Threshold: g.threshold,
			Report:    r,
		})
	}
	return counts, crossed
}

// newest returns up to maxReports reports, newest first.
func (s *session) newest() []models.Report {
	src := s.reports
	if s.maxReports > 0 && len(src) > s.maxReports {
		src = src[len(src)-s.maxReports:]
	}
	out := make([]models.Report, len(src))
	for i, r := range src {
		out[len(src)-1-i] = r
	}
	return out
}

func (s *session) resolve(reportID string) (models.Report, error) {
	oldest := 0
	if s.maxReports > 0 {
		oldest = max(0, len(s.reports)-s.maxReports)
	}
	for i := len(s.reports) - 1; i >= oldest; i-- {
		if s.reports[i].ID == reportID {
			s.reports[i].Status = models.ReportStatusResolved
			return s.reports[i], nil
		}
	}
	return models.Report{}, ErrReportNotFound
}

func (s *session) firedBuckets() []Bucket {
	var out []Bucket
	for _, b := range []Bucket{BucketHigh, BucketMedium, BucketCombined, BucketLow} {
		if s.fired[b] {
			out = append(out, b)
		}
	}
	return out
}
