package scope

import (
	"time"

	"github.com/whx4/wxc/internal/dateutil"
)

// Context is what a named resolver sees: the anchor time (already in the
// effective location) plus the resolver settings and call parameters.
type Context struct {
	Now         time.Time
	Location    *time.Location
	StartOfWeek int // 0 = Sunday, 1 = Monday
	Year        int // parameterized scopes; 0 = unset
	Month       int
}

// Func resolves a named scope into raw start/end times.
// A zero time leaves that side open.
type Func func(ctx Context) (start, end time.Time)

// defaultFuncs seeds the registry. The season boundary runs Sep 1 - May 31.
func defaultFuncs() map[string]Func {
	dayRange := func(ref time.Time) (time.Time, time.Time) {
		return dateutil.StartOfDay(ref), dateutil.EndOfDay(ref)
	}

	weekRange := func(ref time.Time, startOfWeek int) (time.Time, time.Time) {
		var back int
		if startOfWeek == 0 { // Sunday start
			back = int(ref.Weekday())
		} else { // Monday start (default if not 0)
			back = (int(ref.Weekday()) + 6) % 7
		}
		start := dateutil.StartOfDay(ref.AddDate(0, 0, -back))
		return start, dateutil.EndOfDay(start.AddDate(0, 0, 6))
	}

	monthRange := func(y int, m time.Month, loc *time.Location) (time.Time, time.Time) {
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, dateutil.EndOfDay(start.AddDate(0, 1, -1))
	}

	yearRange := func(y int, loc *time.Location) (time.Time, time.Time) {
		return time.Date(y, 1, 1, 0, 0, 0, 0, loc),
			time.Date(y, 12, 31, 23, 59, 59, 0, loc)
	}

	seasonRange := func(y int, m time.Month, loc *time.Location) (time.Time, time.Time) {
		if m >= time.September {
			return time.Date(y, 9, 1, 0, 0, 0, 0, loc),
				time.Date(y+1, 5, 31, 23, 59, 59, 0, loc)
		}
		return time.Date(y-1, 9, 1, 0, 0, 0, 0, loc),
			time.Date(y, 5, 31, 23, 59, 59, 0, loc)
	}

	return map[string]Func{
		// Days
		"today": func(ctx Context) (time.Time, time.Time) {
			return dayRange(ctx.Now)
		},
		"yesterday": func(ctx Context) (time.Time, time.Time) {
			return dayRange(ctx.Now.AddDate(0, 0, -1))
		},
		"tomorrow": func(ctx Context) (time.Time, time.Time) {
			return dayRange(ctx.Now.AddDate(0, 0, 1))
		},

		// Weeks
		"this_week": func(ctx Context) (time.Time, time.Time) {
			return weekRange(ctx.Now, ctx.StartOfWeek)
		},
		"last_week": func(ctx Context) (time.Time, time.Time) {
			return weekRange(ctx.Now.AddDate(0, 0, -7), ctx.StartOfWeek)
		},
		"next_week": func(ctx Context) (time.Time, time.Time) {
			return weekRange(ctx.Now.AddDate(0, 0, 7), ctx.StartOfWeek)
		},

		// Months
		"this_month": func(ctx Context) (time.Time, time.Time) {
			return monthRange(ctx.Now.Year(), ctx.Now.Month(), ctx.Location)
		},
		"last_month": func(ctx Context) (time.Time, time.Time) {
			y, m := ctx.Now.Year(), ctx.Now.Month()
			if m == time.January {
				return monthRange(y-1, time.December, ctx.Location)
			}
			return monthRange(y, m-1, ctx.Location)
		},
		"next_month": func(ctx Context) (time.Time, time.Time) {
			y, m := ctx.Now.Year(), ctx.Now.Month()
			if m == time.December {
				return monthRange(y+1, time.January, ctx.Location)
			}
			return monthRange(y, m+1, ctx.Location)
		},
		// Parameterized via Options.Year / Options.Month.
		"month": func(ctx Context) (time.Time, time.Time) {
			y := ctx.Now.Year()
			if ctx.Year != 0 {
				y = ctx.Year
			}
			m := ctx.Now.Month()
			if ctx.Month != 0 {
				m = time.Month(clampMonth(ctx.Month))
			}
			return monthRange(y, m, ctx.Location)
		},

		// Years
		"this_year": func(ctx Context) (time.Time, time.Time) {
			return yearRange(ctx.Now.Year(), ctx.Location)
		},
		"last_year": func(ctx Context) (time.Time, time.Time) {
			return yearRange(ctx.Now.Year()-1, ctx.Location)
		},
		"next_year": func(ctx Context) (time.Time, time.Time) {
			return yearRange(ctx.Now.Year()+1, ctx.Location)
		},

		// Seasons
		"this_season": func(ctx Context) (time.Time, time.Time) {
			return seasonRange(ctx.Now.Year(), ctx.Now.Month(), ctx.Location)
		},
		"next_season": func(ctx Context) (time.Time, time.Time) {
			y := ctx.Now.Year()
			if ctx.Now.Month() >= time.September {
				y++
			}
			return seasonRange(y, time.September, ctx.Location)
		},

		// Other
		"ytd": func(ctx Context) (time.Time, time.Time) {
			return time.Date(ctx.Now.Year(), 1, 1, 0, 0, 0, 0, ctx.Location),
				dateutil.EndOfDay(ctx.Now)
		},
		"until_today": func(ctx Context) (time.Time, time.Time) {
			return time.Time{}, dateutil.EndOfDay(ctx.Now)
		},
	}
}

func clampMonth(m int) int {
	if m < 1 {
		return 1
	}
	if m > 12 {
		return 12
	}
	return m
}
