// Package scope resolves named and explicit date scopes into concrete
// inclusive [start, end] bounds.
//
// A scope is one of:
//   - Named: a token like "today", "this_week", "2022-2025", "easter_2025"
//   - Explicit: literal start/end values (with date/range shorthands)
//   - YearSet: a set of years collapsed to min..max
//
// Resolution never fails: unparseable input degrades to the current instant
// and unknown named tokens fall back to the "today" resolver.
package scope

import "time"

// Mode controls output precision and end-of-day snapping.
type Mode string

const (
	// ModeDate snaps bounds to day edges and formats as YYYY-MM-DD.
	ModeDate Mode = "DATE"
	// ModeDateTime leaves time components untouched and formats as
	// YYYY-MM-DD HH:MM:SS.
	ModeDateTime Mode = "DATETIME"
)

// NormalizeMode maps loose mode tokens onto the closed enum.
// Anything unrecognized (including empty) becomes ModeDate.
func NormalizeMode(mode string) Mode {
	switch Mode(normalizeToken(mode)) {
	case ModeDateTime:
		return ModeDateTime
	default:
		return ModeDate
	}
}

// Scope is the tagged variant of supported scope specifications.
//
// This is a sealed interface - only types in this package implement it,
// which keeps type switches in the resolver exhaustive.
type Scope interface {
	scopeNode()
}

// Named is a scope token resolved through the named-resolver registry
// (or the year / year-range / easter special forms).
type Named string

func (Named) scopeNode() {}

// Explicit carries literal start/end values. Date is a start shorthand
// used when Start is empty; Range is a "start,end" shorthand. Empty
// fields are open-ended.
type Explicit struct {
	Start string
	End   string
	Date  string
	Range string
}

func (Explicit) scopeNode() {}

// YearSet collapses to [min(years)-01-01, max(years)-12-31].
type YearSet []int

func (YearSet) scopeNode() {}

// Bounds is the resolved inclusive window. Fields are formatted per Mode;
// an empty string means that side is open.
type Bounds struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// IsZero reports whether no date filtering was requested.
func (b Bounds) IsZero() bool { return b.Start == "" && b.End == "" }

// Options tunes a single Resolve call.
//
// The zero value means: DATE mode, "now" anchored to the wall clock in the
// resolver's location, inclusive end-of-day snapping, caching enabled.
type Options struct {
	Mode Mode

	// Now anchors relative scopes; zero means the current wall-clock time.
	Now time.Time

	// Location overrides the resolver's location.
	Location *time.Location

	// ExclusiveEnd disables the end-of-day 23:59:59 snap in DATE mode.
	ExclusiveEnd bool

	// NoCache bypasses memoization entirely.
	NoCache bool

	// Year and Month parameterize the "month" scope. Month is clamped 1..12.
	Year  int
	Month int

	// CacheKey is an extra caller-supplied cache key segment.
	CacheKey string
}
