package scope

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/whx4/wxc/internal/dateutil"
	"github.com/whx4/wxc/internal/text"
)

// DateInput is a loose date specification, typically collected from request
// parameters. Precedence: Scope, then Date, then Month/Year.
type DateInput struct {
	Scope string // named scope token, e.g. "this_month"
	Date  string // single date or "start,end" range
	Year  int
	Month string // 1-12 or a month name/abbreviation
}

// NormalizeDateInput resolves a loose date input to canonical Y-m-d bounds.
// A single date yields equal start and end. The failsafe is today's date,
// never an error.
func (r *Resolver) NormalizeDateInput(in DateInput, opts Options) Bounds {
	loc := opts.Location
	if loc == nil {
		loc = r.location
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(loc)

	// 1) Scope wins.
	if strings.TrimSpace(in.Scope) != "" {
		scopeOpts := opts
		scopeOpts.Mode = ModeDate
		if in.Year != 0 {
			scopeOpts.Year = in.Year
		}
		if m := monthNumber(in.Month); m != 0 {
			scopeOpts.Month = m
		}
		if b := r.Resolve(Named(in.Scope), scopeOpts); !b.IsZero() {
			return Bounds{Start: dateutil.ToDate(b.Start), End: dateutil.ToDate(b.End)}
		}
	}

	// 2) Explicit date or "start,end" range.
	if in.Date != "" {
		if strings.Contains(in.Date, ",") {
			parts := strings.SplitN(in.Date, ",", 2)
			start := parseOrNow(strings.TrimSpace(parts[0]), now, loc)
			end := parseOrNow(strings.TrimSpace(parts[1]), now, loc)
			return Bounds{
				Start: start.Format(dateutil.LayoutDate),
				End:   end.Format(dateutil.LayoutDate),
			}
		}
		d := parseOrNow(in.Date, now, loc).Format(dateutil.LayoutDate)
		return Bounds{Start: d, End: d}
	}

	// 3) Month/year helper.
	if m := monthNumber(in.Month); m != 0 {
		y := in.Year
		if y == 0 {
			y = now.Year()
		}
		start := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, loc)
		end := start.AddDate(0, 1, -1)
		return Bounds{
			Start: start.Format(dateutil.LayoutDate),
			End:   end.Format(dateutil.LayoutDate),
		}
	}

	// 4) Failsafe: today.
	d := now.Format(dateutil.LayoutDate)
	return Bounds{Start: d, End: d}
}

// ExtractYears lists the years a scope covers, sorted ascending.
// Named scopes without a literal year component fall back to the anchor year.
// Useful for year-based column headers in views.
func ExtractYears(s Scope, now time.Time) []int {
	switch sc := s.(type) {
	case YearSet:
		years := make([]int, 0, len(sc))
		for _, y := range sc {
			if y != 0 {
				years = append(years, y)
			}
		}
		sort.Ints(years)
		return years
	case Named:
		// Raw token: snake normalization would fold the range separator.
		token := strings.TrimSpace(string(sc))
		if m := yearTokenRe.FindStringSubmatch(token); m != nil {
			y, _ := strconv.Atoi(m[1])
			return []int{y}
		}
		if m := yearRangeTokenRe.FindStringSubmatch(token); m != nil {
			a, _ := strconv.Atoi(m[1])
			b, _ := strconv.Atoi(m[2])
			if a > b {
				a, b = b, a
			}
			years := make([]int, 0, b-a+1)
			for y := a; y <= b; y++ {
				years = append(years, y)
			}
			return years
		}
	}
	if now.IsZero() {
		now = time.Now()
	}
	return []int{now.Year()}
}

func parseOrNow(raw string, now time.Time, loc *time.Location) time.Time {
	if t, ok := dateutil.ParseFlexible(raw, loc); ok {
		return t
	}
	return now
}

// monthNumber accepts a numeric string or a month name.
func monthNumber(month string) int {
	month = strings.TrimSpace(month)
	if month == "" {
		return 0
	}
	if n, err := strconv.Atoi(month); err == nil {
		if n >= 1 && n <= 12 {
			return n
		}
		return 0
	}
	return text.MonthNumber(month)
}
