package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// AlertType classifies a community alert.
type AlertType string

const (
	AlertFlood         AlertType = "flood"
	AlertMissingPerson AlertType = "missing_person"
	AlertWantedNotice  AlertType = "wanted_notice"
	AlertFire          AlertType = "fire"
	AlertAccident      AlertType = "accident"
	AlertOther         AlertType = "other"
)

// AlertTypes lists every alert type in display order.
var AlertTypes = []AlertType{
	AlertAccident, AlertFire, AlertFlood,
	AlertMissingPerson, AlertWantedNotice, AlertOther,
}

// Label returns the French display label for the type.
func (t AlertType) Label() string {
	switch t {
	case AlertFlood:
		return "Inondation"
	case AlertMissingPerson:
		return "Disparition"
	case AlertWantedNotice:
		return "Avis de recherche"
	case AlertFire:
		return "Incendie"
	case AlertAccident:
		return "Accident"
	default:
		return "Autre"
	}
}

// MaxAlertImages caps the number of photos attached to a new alert.
const MaxAlertImages = 3

// DefaultAlertWindow is how long an alert stays visible in the feed.
const DefaultAlertWindow = 24 * time.Hour

// Alert is a user- or system-generated incident report.
type Alert struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        AlertType `json:"type"`
	City        string    `json:"city,omitempty"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`

	// Images holds data URIs (data:<mime>;base64,<payload>).
	Images []string `json:"images_base64,omitempty"`

	Read bool `json:"read"`
}

// NewAlert is the body of POST /alerts.
type NewAlert struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        AlertType `json:"type"`
	City        string    `json:"city,omitempty"`
	Images      []string  `json:"images_base64"`
	PostedBy    string    `json:"posted_by,omitempty"`
}

// Validate checks the required fields of a new alert.
func (a NewAlert) Validate() error {
	if strings.TrimSpace(a.Title) == "" || strings.TrimSpace(a.Description) == "" {
		return fmt.Errorf("title and description are required")
	}
	if len(a.Images) > MaxAlertImages {
		return fmt.Errorf("at most %d images per alert", MaxAlertImages)
	}
	return nil
}

// FilterRecent returns the alerts created within window of now, newest
// first. Alerts without a creation time are dropped.
func FilterRecent(alerts []Alert, now time.Time, window time.Duration) []Alert {
	cutoff := now.Add(-window)
	recent := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.CreatedAt.IsZero() || a.CreatedAt.Before(cutoff) {
			continue
		}
		recent = append(recent, a)
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt.Time)
	})
	return recent
}

// Timestamp decodes the backend's datetimes, which may be RFC 3339 or
// naive ISO 8601 in UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decoding timestamp: %w", err)
	}
	if s == nil || *s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, *s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", *s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
