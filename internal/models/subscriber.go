package models

import (
	"regexp"
	"strings"
	"time"
)

// Alert type names used across preferences, the reminder ledger and metrics labels.
const (
	AlertSnow      = "snow"
	AlertGarbage   = "garbage"
	AlertRecycling = "recycling"
)

type Subscriber struct {
	ID              int64
	Email           string
	PostalCode      string
	Lat             float64
	Lon             float64
	Active          bool
	SnowAlerts      bool
	GarbageAlerts   bool
	RecyclingAlerts bool
	WasteZoneID     *int64
	CreatedAt       time.Time
}

// HasAnyAlert reports whether at least one alert type is enabled. A subscriber
// with all flags off must be rejected before it ever reaches storage.
func (s Subscriber) HasAnyAlert() bool {
	return s.SnowAlerts || s.GarbageAlerts || s.RecyclingAlerts
}

// PreferencesUpdate is a partial update: nil fields keep the existing value.
type PreferencesUpdate struct {
	SnowAlerts      *bool    `json:"snow_alerts"`
	GarbageAlerts   *bool    `json:"garbage_alerts"`
	RecyclingAlerts *bool    `json:"recycling_alerts"`
	PostalCode      *string  `json:"postal_code"`
	Lat             *float64 `json:"-"`
	Lon             *float64 `json:"-"`
	WasteZoneID     *int64   `json:"-"`
}

// Apply merges the set fields into sub.
func (u PreferencesUpdate) Apply(sub *Subscriber) {
	if u.SnowAlerts != nil {
		sub.SnowAlerts = *u.SnowAlerts
	}
	if u.GarbageAlerts != nil {
		sub.GarbageAlerts = *u.GarbageAlerts
	}
	if u.RecyclingAlerts != nil {
		sub.RecyclingAlerts = *u.RecyclingAlerts
	}
	if u.PostalCode != nil {
		sub.PostalCode = NormalizePostalCode(*u.PostalCode)
	}
	if u.Lat != nil {
		sub.Lat = *u.Lat
	}
	if u.Lon != nil {
		sub.Lon = *u.Lon
	}
	if u.WasteZoneID != nil {
		sub.WasteZoneID = u.WasteZoneID
	}
}

// WantsWasteAlerts reports whether the update, applied to sub, leaves a waste
// alert enabled.
func (u PreferencesUpdate) WantsWasteAlerts(sub Subscriber) bool {
	merged := sub
	u.Apply(&merged)
	return merged.GarbageAlerts || merged.RecyclingAlerts
}

// NormalizeEmail lowercases and trims an email address; email is the unique key
// for subscribers.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePostalCode uppercases and strips whitespace, e.g. "g1r 2k8" -> "G1R2K8".
func NormalizePostalCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), " ", ""))
}

var postalCodeRe = regexp.MustCompile(`^[A-Z]\d[A-Z]\d[A-Z]\d$`)

// ValidPostalCode reports whether code is a Canadian postal code, with or
// without the middle space.
func ValidPostalCode(code string) bool {
	return postalCodeRe.MatchString(NormalizePostalCode(code))
}
