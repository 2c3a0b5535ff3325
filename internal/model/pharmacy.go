package model

import "time"

// GeoPoint is a GeoJSON point; Coordinates are [lng, lat].
type GeoPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Lat returns the latitude, or 0 when the point is malformed.
func (p GeoPoint) Lat() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Lng returns the longitude, or 0 when the point is malformed.
func (p GeoPoint) Lng() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

// Pharmacy is one entry of the pharmacies directory.
type Pharmacy struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Address  string   `json:"address,omitempty"`
	City     string   `json:"city,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Location GeoPoint `json:"location"`

	// DutyDays lists on-duty weekdays, 0=Monday ... 6=Sunday.
	DutyDays []int `json:"duty_days,omitempty"`
}

// OnDuty reports whether the pharmacy is on duty on the weekday of t.
func (p Pharmacy) OnDuty(t time.Time) bool {
	// time.Weekday is Sunday=0; duty days are Monday=0.
	dow := (int(t.Weekday()) + 6) % 7
	for _, d := range p.DutyDays {
		if d == dow {
			return true
		}
	}
	return false
}

// NearbyQuery selects pharmacies around a point.
type NearbyQuery struct {
	Lat      float64
	Lng      float64
	MaxKM    float64
	DutyOnly bool
}

// LatLng is a plain coordinate pair.
type LatLng struct {
	Lat float64
	Lng float64
}

// DirectoryQuery filters the full pharmacies directory. When Near is set
// the city is ignored and only on-duty pharmacies within MaxKM are listed.
type DirectoryQuery struct {
	City   string
	OnDuty bool
	Near   *LatLng
	MaxKM  float64
}
