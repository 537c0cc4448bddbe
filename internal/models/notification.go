package models

import "time"

const (
	DefaultNotificationIcon  = "/icons/CR-ES-Vertical-RGB.png"
	DefaultNotificationBadge = "/icons/CR-ES-Horizontal-RGB.png"
	DefaultNotificationURL   = "/alerts"
)

// PushMessage is the payload delivered to the service worker.
type PushMessage struct {
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Icon     string         `json:"icon"`
	Badge    string         `json:"badge"`
	Severity Severity       `json:"severity"`
	Data     map[string]any `json:"data"`
}

// WithDefaults fills icon, badge, severity and data.url/data.timestamp.
// Caller-provided data keys win over the defaults.
func (m PushMessage) WithDefaults(now time.Time) PushMessage {
	if m.Icon == "" {
		m.Icon = DefaultNotificationIcon
	}
	if m.Badge == "" {
		m.Badge = DefaultNotificationBadge
	}
	if !m.Severity.Valid() {
		m.Severity = SeverityMedium
	}

	data := map[string]any{
		"url":       DefaultNotificationURL,
		"timestamp": now.UTC().Format(time.RFC3339),
	}
	for k, v := range m.Data {
		if k == "url" && v == "" {
			continue
		}
		data[k] = v
	}
	m.Data = data
	return m
}

type DeliveryResult struct {
	Endpoint   string `json:"endpoint"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

type SendSummary struct {
	Sent    int              `json:"sent"`
	Failed  int              `json:"failed"`
	Total   int              `json:"total"`
	Results []DeliveryResult `json:"-"`
}

type NotificationSource string

const (
	NotificationSourceManual    NotificationSource = "manual"
	NotificationSourceThreshold NotificationSource = "threshold"
)

// NotificationRecord is one entry in the durable notification log.
type NotificationRecord struct {
	ID        string             `json:"id" db:"id"`
	Title     string             `json:"title" db:"title"`
	Body      string             `json:"body" db:"body"`
	Severity  Severity           `json:"severity" db:"severity"`
	Source    NotificationSource `json:"source" db:"source"`
	SessionID string             `json:"sessionId,omitempty" db:"session_id"`
	Sent      int                `json:"sent" db:"sent"`
	Failed    int                `json:"failed" db:"failed"`
	Total     int                `json:"total" db:"total"`
	CreatedAt time.Time          `json:"createdAt" db:"created_at"`
}
