package models

// SubscriptionRequest is the payload for POST /subscribe. A nil Preferences
// block means the caller did not choose, which defaults to snow alerts only.
type SubscriptionRequest struct {
	Email       string       `json:"email" form:"email" binding:"required,email"`
	PostalCode  string       `json:"postal_code" form:"postal_code" binding:"required"`
	Preferences *Preferences `json:"preferences"`
}

// Prefs returns the chosen preferences, or the defaults when none were sent.
func (r SubscriptionRequest) Prefs() Preferences {
	if r.Preferences == nil {
		return DefaultPreferences()
	}
	return *r.Preferences
}

// Preferences carries the three independent alert flags. Defaults mirror a
// fresh subscription: snow on, waste off.
type Preferences struct {
	SnowAlerts      bool `json:"snow_alerts"`
	GarbageAlerts   bool `json:"garbage_alerts"`
	RecyclingAlerts bool `json:"recycling_alerts"`
}

func DefaultPreferences() Preferences {
	return Preferences{SnowAlerts: true}
}

func (p Preferences) Any() bool {
	return p.SnowAlerts || p.GarbageAlerts || p.RecyclingAlerts
}

// Location is a geocoded postal code.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
