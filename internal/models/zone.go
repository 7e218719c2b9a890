package models

import "time"

// Recycling week parity values. ParityUnknown marks a zone whose parity the
// schedule source could not resolve; predicates treat it as "never".
const (
	ParityOdd     = "odd"
	ParityEven    = "even"
	ParityUnknown = "unknown"
)

// WasteZone is a geographic collection area sharing one garbage weekday and one
// recycling parity. Many subscribers may reference the same zone; the zone is
// independently lived and survives its subscribers.
type WasteZone struct {
	ID            int64
	ZoneCode      string
	GarbageDay    string
	RecyclingWeek string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RawSchedule is what the external schedule source yields for a postal code
// before it is persisted as a zone.
type RawSchedule struct {
	GarbageDay    string `json:"garbage_day"`
	RecyclingWeek string `json:"recycling_week"`
}
