// Package waste answers collection-day questions for a zone: whether a given
// date is a garbage or recycling day and when the next pickups fall. An
// unresolved garbage day or recycling parity never errors, it simply means
// "not a collection day" / "no next date" so partially populated zones stay
// safe to query.
package waste

import (
	"time"

	"github.com/quebec-alerts/alerts-api/internal/calendar"
	"github.com/quebec-alerts/alerts-api/internal/models"
)

// maxParitySteps bounds the week-by-week advance when hunting for a matching
// recycling parity. One step suffices in ordinary years; a second covers the
// double-odd seam of 53-week ISO years.
const maxParitySteps = 3

// CollectionDates holds the next pickup per type; nil when the zone field
// needed to compute it is unresolved.
type CollectionDates struct {
	Garbage   *time.Time `json:"garbage"`
	Recycling *time.Time `json:"recycling"`
}

// TomorrowCollection reports which pickups happen the day after the reference
// date.
type TomorrowCollection struct {
	Garbage   bool `json:"garbage"`
	Recycling bool `json:"recycling"`
}

// IsGarbageDay reports whether d falls on the zone's garbage weekday.
func IsGarbageDay(zone models.WasteZone, d time.Time) bool {
	target, ok := calendar.ParseDay(zone.GarbageDay)
	if !ok {
		return false
	}
	return d.Weekday() == target
}

// IsRecyclingDay reports whether d is a recycling pickup: recycling rides the
// garbage weekday but only on weeks matching the zone's parity.
func IsRecyclingDay(zone models.WasteZone, d time.Time) bool {
	if !validParity(zone.RecyclingWeek) {
		return false
	}
	if !IsGarbageDay(zone, d) {
		return false
	}
	return calendar.WeekParity(d) == zone.RecyclingWeek
}

// NextCollectionDates computes the next garbage and recycling dates strictly
// after from. The recycling date starts at the next garbage date and advances
// whole weeks until its ISO week parity matches the zone's.
func NextCollectionDates(zone models.WasteZone, from time.Time) CollectionDates {
	var dates CollectionDates

	target, ok := calendar.ParseDay(zone.GarbageDay)
	if !ok {
		return dates
	}

	nextGarbage := calendar.NextWeekday(from, target)
	dates.Garbage = &nextGarbage

	if !validParity(zone.RecyclingWeek) {
		return dates
	}

	nextRecycling := nextGarbage
	for step := 0; step < maxParitySteps; step++ {
		if calendar.WeekParity(nextRecycling) == zone.RecyclingWeek {
			dates.Recycling = &nextRecycling
			break
		}
		nextRecycling = nextRecycling.AddDate(0, 0, 7)
	}

	return dates
}

// IsCollectionTomorrow evaluates both predicates against from + 1 day.
func IsCollectionTomorrow(zone models.WasteZone, from time.Time) TomorrowCollection {
	tomorrow := from.AddDate(0, 0, 1)
	return TomorrowCollection{
		Garbage:   IsGarbageDay(zone, tomorrow),
		Recycling: IsRecyclingDay(zone, tomorrow),
	}
}

func validParity(parity string) bool {
	return parity == models.ParityOdd || parity == models.ParityEven
}
