// Package calendar holds the pure date arithmetic behind collection schedules:
// ISO week parity and next-weekday lookup. No state, no errors.
package calendar

import (
	"time"

	"github.com/quebec-alerts/alerts-api/internal/models"
)

const daysPerWeek = 7

var dayToWeekday = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// ParseDay maps a lowercase English day name to its time.Weekday. The second
// return is false for anything unresolved ("", "unknown", garbage input).
func ParseDay(name string) (time.Weekday, bool) {
	wd, ok := dayToWeekday[name]
	return wd, ok
}

// WeekParity returns models.ParityOdd or models.ParityEven based on the
// ISO-8601 week number of d. Note that years with 53 ISO weeks break strict
// week-to-week alternation at the year boundary (week 53 and the following
// week 1 are both odd).
func WeekParity(d time.Time) string {
	_, week := d.ISOWeek()
	if week%2 == 1 {
		return models.ParityOdd
	}
	return models.ParityEven
}

// NextWeekday returns the next occurrence of target strictly after from: the
// result is always 1-7 days ahead, and lands on the following week when from
// itself is the target weekday.
func NextWeekday(from time.Time, target time.Weekday) time.Time {
	daysAhead := int(target) - int(from.Weekday())
	if daysAhead <= 0 {
		daysAhead += daysPerWeek
	}
	return from.AddDate(0, 0, daysAhead)
}
