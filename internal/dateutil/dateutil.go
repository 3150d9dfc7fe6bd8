// Package dateutil provides date parsing, formatting, and window helpers for
// the query subsystem.
//
// Three storage formats appear throughout:
//   - compact "20060102" (numeric-cast fields)
//   - date "2006-01-02"
//   - datetime "2006-01-02 15:04:05"
//
// All functions are pure; anything anchored to "now" takes it as a parameter.
package dateutil

import (
	"fmt"
	"regexp"
	"time"
)

const (
	// LayoutYmd is the compact numeric date layout (YYYYMMDD).
	LayoutYmd = "20060102"
	// LayoutDate is the canonical date layout.
	LayoutDate = "2006-01-02"
	// LayoutDateTime is the canonical datetime layout.
	LayoutDateTime = "2006-01-02 15:04:05"
)

var (
	ymdRe      = regexp.MustCompile(`^\d{8}$`)
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}$`)
	yearRe     = regexp.MustCompile(`^\s*(\d{4})\b`)
)

// flexibleLayouts are tried in order by ParseFlexible.
var flexibleLayouts = []string{
	LayoutDateTime,
	"2006-01-02T15:04:05",
	LayoutDate,
	"2006-01-02 15:04",
	LayoutYmd,
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006",
}

// ParseFlexible parses a loosely formatted date string in loc.
// Returns false when no known layout matches; callers decide the fallback
// (typically the current instant).
func ParseFlexible(input string, loc *time.Location) (time.Time, bool) {
	if input == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range flexibleLayouts {
		if t, err := time.ParseInLocation(layout, input, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsYmd reports whether s is a compact YYYYMMDD string.
func IsYmd(s string) bool { return ymdRe.MatchString(s) }

// IsDate reports whether s is a YYYY-MM-DD string.
func IsDate(s string) bool { return dateRe.MatchString(s) }

// IsDateTime reports whether s is a YYYY-MM-DD HH:MM:SS string (space or T).
func IsDateTime(s string) bool { return dateTimeRe.MatchString(s) }

// IsDateLike reports whether s matches any recognized date shape.
func IsDateLike(s string) bool {
	if s == "" {
		return false
	}
	if IsYmd(s) || IsDate(s) || IsDateTime(s) {
		return true
	}
	_, ok := ParseFlexible(s, time.UTC)
	return ok
}

// ToYmd converts a date-shaped string to compact YYYYMMDD.
// Unparseable input is returned unchanged.
func ToYmd(v string) string {
	switch {
	case IsYmd(v):
		return v
	case IsDate(v), IsDateTime(v):
		d := v[:10]
		return d[:4] + d[5:7] + d[8:10]
	}
	if t, ok := ParseFlexible(v, time.UTC); ok {
		return t.Format(LayoutYmd)
	}
	return v
}

// ToDate converts a date-shaped string to YYYY-MM-DD.
// Unparseable input is returned unchanged.
func ToDate(v string) string {
	switch {
	case IsDate(v):
		return v
	case IsYmd(v):
		return v[:4] + "-" + v[4:6] + "-" + v[6:8]
	case IsDateTime(v):
		return v[:10]
	}
	if t, ok := ParseFlexible(v, time.UTC); ok {
		return t.Format(LayoutDate)
	}
	return v
}

// ToDateTime converts a date-shaped string to YYYY-MM-DD HH:MM:SS.
// Date-only inputs get a midnight time component.
// Unparseable input is returned unchanged.
func ToDateTime(v string) string {
	switch {
	case IsDateTime(v):
		return v[:10] + " " + v[11:]
	case IsDate(v):
		return v + " 00:00:00"
	case IsYmd(v):
		return ToDate(v) + " 00:00:00"
	}
	if t, ok := ParseFlexible(v, time.UTC); ok {
		return t.Format(LayoutDateTime)
	}
	return v
}

// FormatTime renders t in the target layout.
func FormatTime(t time.Time, layout string) string { return t.Format(layout) }

// ExtractYear pulls a leading 4-digit year from a date/datetime string.
func ExtractYear(value string) (int, bool) {
	m := yearRe.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	var y int
	fmt.Sscanf(m[1], "%d", &y)
	return y, true
}

// Window is an inclusive span of years derived from date bounds.
type Window struct {
	Min   int
	Max   int
	Years []int
}

// Empty reports whether the window contains no years.
func (w Window) Empty() bool { return len(w.Years) == 0 }

// YearsWindow converts resolved bound strings into a year window.
// A missing side inherits the other; both missing yields an empty window.
func YearsWindow(start, end string) Window {
	startY, okS := ExtractYear(start)
	endY, okE := ExtractYear(end)

	if !okS && !okE {
		return Window{}
	}
	if !okS {
		startY = endY
	}
	if !okE {
		endY = startY
	}

	min, max := startY, endY
	if min > max {
		min, max = max, min
	}
	years := make([]int, 0, max-min+1)
	for y := min; y <= max; y++ {
		years = append(years, y)
	}
	return Window{Min: min, Max: max, Years: years}
}

// Timezone resolves a timezone name with a UTC fallback.
// Empty or unknown names resolve to UTC.
func Timezone(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CombineDateAndTime joins a date string and an optional time string.
func CombineDateAndTime(date, clock string, loc *time.Location) (time.Time, bool) {
	if date == "" {
		return time.Time{}, false
	}
	input := date
	if clock != "" {
		input = date + " " + clock
	}
	if loc == nil {
		loc = time.UTC
	}
	layouts := []string{LayoutDateTime, "2006-01-02 15:04", LayoutDate}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, input, loc); err == nil {
			return t, true
		}
	}
	return ParseFlexible(input, loc)
}

// MonthPeriods lists the YYYY-MM periods between start and end, inclusive.
func MonthPeriods(start, end time.Time) []string {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return nil
	}
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location())
	var periods []string
	for !cur.After(last) {
		periods = append(periods, cur.Format("2006-01"))
		cur = cur.AddDate(0, 1, 0)
	}
	return periods
}

// YearPeriods lists the years between start and end, inclusive.
func YearPeriods(start, end time.Time) []int {
	if start.IsZero() || end.IsZero() || end.Year() < start.Year() {
		return nil
	}
	var years []int
	for y := start.Year(); y <= end.Year(); y++ {
		years = append(years, y)
	}
	return years
}

// StartOfDay snaps t to 00:00:00 in its location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay snaps t to 23:59:59 in its location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// LastDayOfMonth returns the final day of t's month, preserving time of day.
func LastDayOfMonth(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
	return first.AddDate(0, 1, -1)
}
