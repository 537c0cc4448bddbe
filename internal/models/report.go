package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidSeverity = errors.New("invalid severity")

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Severities lists every severity in escalation order.
var Severities = []Severity{SeverityHigh, SeverityMedium, SeverityLow}

func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.Valid() {
		return "", fmt.Errorf("%w %q: must be one of high, medium, low", ErrInvalidSeverity, s)
	}
	return sev, nil
}

type ReportStatus string

const (
	ReportStatusActive   ReportStatus = "active"
	ReportStatusResolved ReportStatus = "resolved"
)

// Report is a citizen flood report. Reports live only in session memory.
type Report struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Severity  Severity     `json:"severity"`
	Status    ReportStatus `json:"status"`
	Timestamp time.Time    `json:"date"`
}

type Counts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

func (c Counts) Of(s Severity) int {
	switch s {
	case SeverityHigh:
		return c.High
	case SeverityMedium:
		return c.Medium
	case SeverityLow:
		return c.Low
	}
	return 0
}

// Combined is the number of high and medium reports together.
func (c Counts) Combined() int {
	return c.High + c.Medium
}

// Add counts one more report of severity s.
func (c *Counts) Add(s Severity) {
	switch s {
	case SeverityHigh:
		c.High++
	case SeverityMedium:
		c.Medium++
	case SeverityLow:
		c.Low++
	}
}

