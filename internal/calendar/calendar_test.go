package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quebec-alerts/alerts-api/internal/calendar"
	"github.com/quebec-alerts/alerts-api/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeekParity(t *testing.T) {
	cases := []struct {
		name string
		d    time.Time
		want string
	}{
		{"week 1 is odd", date(2025, time.January, 1), models.ParityOdd},
		{"week 2 is even", date(2025, time.January, 6), models.ParityEven},
		{"week 3 is odd", date(2025, time.January, 13), models.ParityOdd},
		{"week 53 is odd", date(2020, time.December, 28), models.ParityOdd},
		{"late December can fall in week 1", date(2024, time.December, 30), models.ParityOdd},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, calendar.WeekParity(tc.d))
		})
	}
}

func TestWeekParity_AlternatesWeekly(t *testing.T) {
	d := date(2025, time.January, 6)
	for i := 0; i < 52; i++ {
		next := d.AddDate(0, 0, 7)
		assert.NotEqual(t, calendar.WeekParity(d), calendar.WeekParity(next),
			"parity must flip between %s and %s", d, next)
		d = next
	}
}

// Years with 53 ISO weeks break strict alternation at the year boundary:
// week 53 and the following week 1 are both odd. The resolver compensates,
// so this test pins the raw behaviour down.
func TestWeekParity_Week53Boundary(t *testing.T) {
	week53 := date(2020, time.December, 28)
	week1 := date(2021, time.January, 4)

	assert.Equal(t, models.ParityOdd, calendar.WeekParity(week53))
	assert.Equal(t, models.ParityOdd, calendar.WeekParity(week1))
}

func TestNextWeekday(t *testing.T) {
	monday := date(2025, time.January, 6)

	cases := []struct {
		name   string
		from   time.Time
		target time.Weekday
		want   time.Time
	}{
		{"next day", monday, time.Tuesday, date(2025, time.January, 7)},
		{"end of week", monday, time.Sunday, date(2025, time.January, 12)},
		{"same weekday lands a week later", monday, time.Monday, date(2025, time.January, 13)},
		{"across month boundary", date(2025, time.January, 31), time.Monday, date(2025, time.February, 3)},
		{"across year boundary", date(2024, time.December, 31), time.Wednesday, date(2025, time.January, 1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, calendar.NextWeekday(tc.from, tc.target))
		})
	}
}

func TestNextWeekday_AlwaysWithinOneWeek(t *testing.T) {
	from := date(2025, time.March, 1)
	for day := 0; day < 14; day++ {
		d := from.AddDate(0, 0, day)
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			got := calendar.NextWeekday(d, wd)
			diff := int(got.Sub(d).Hours() / 24)

			assert.Equal(t, wd, got.Weekday())
			assert.GreaterOrEqual(t, diff, 1)
			assert.LessOrEqual(t, diff, 7)
		}
	}
}

func TestParseDay(t *testing.T) {
	wd, ok := calendar.ParseDay("wednesday")
	assert.True(t, ok)
	assert.Equal(t, time.Wednesday, wd)

	for _, bad := range []string{"", "unknown", "Lundi", "MONDAY"} {
		_, ok := calendar.ParseDay(bad)
		assert.False(t, ok, "%q must not parse", bad)
	}
}
