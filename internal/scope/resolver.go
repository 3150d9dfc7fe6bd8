package scope

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/whx4/wxc/internal/dateutil"
	"github.com/whx4/wxc/internal/text"
)

func normalizeToken(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

var (
	yearTokenRe      = regexp.MustCompile(`^(\d{4})$`)
	yearRangeTokenRe = regexp.MustCompile(`^(\d{4})\s*[-,]\s*(\d{4})$`)
	easterTokenRe    = regexp.MustCompile(`^easter_(\d{4})$`)
)

// Resolver resolves scopes against a registry of named resolver funcs.
//
// The memoization cache lives on the resolver instance, so callers control
// its lifetime: construct one per request for request-scoped caching, or
// share one across requests (the cache is mutex-guarded and cache keys for
// "now"-anchored scopes include a coarse anchor that rotates naturally).
type Resolver struct {
	location    *time.Location
	startOfWeek int

	mu    sync.Mutex
	funcs map[string]Func
	cache map[string]Bounds
}

// NewResolver creates a Resolver with the default named scopes.
// A nil location means UTC. startOfWeek is 0 (Sunday) or 1 (Monday);
// anything else is treated as Monday.
func NewResolver(loc *time.Location, startOfWeek int) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	if startOfWeek != 0 {
		startOfWeek = 1
	}
	return &Resolver{
		location:    loc,
		startOfWeek: startOfWeek,
		funcs:       defaultFuncs(),
		cache:       make(map[string]Bounds),
	}
}

// Register adds or overrides a single named resolver. The name is
// snake-normalized. A nil fn is ignored; overriding "today" with nil is not
// possible, so a working "today" entry always survives.
func (r *Resolver) Register(name string, fn Func) {
	if fn == nil {
		return
	}
	key := text.Snake(name)
	if key == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[key] = fn
}

// Replace swaps the whole registry for the given set. Nil entries are
// dropped; an empty or all-nil set is rejected by restoring the defaults.
// A "today" entry is guaranteed present afterwards.
func (r *Resolver) Replace(funcs map[string]Func) {
	cleaned := make(map[string]Func, len(funcs))
	for name, fn := range funcs {
		if fn == nil {
			continue
		}
		if key := text.Snake(name); key != "" {
			cleaned[key] = fn
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(cleaned) == 0 {
		r.funcs = defaultFuncs()
		return
	}
	if _, ok := cleaned["today"]; !ok {
		cleaned["today"] = defaultFuncs()["today"]
	}
	r.funcs = cleaned
}

// Names lists the registered scope tokens, sorted.
func (r *Resolver) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve turns a scope into concrete bounds formatted per opts.Mode.
// It never fails: parse errors degrade to the current instant and unknown
// named tokens fall back to "today".
func (r *Resolver) Resolve(s Scope, opts Options) Bounds {
	mode := opts.Mode
	if mode != ModeDateTime {
		mode = ModeDate
	}

	loc := opts.Location
	if loc == nil {
		loc = r.location
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(loc)

	var start, end time.Time

	switch sc := s.(type) {
	case nil:
		return Bounds{}
	case Explicit:
		start, end = r.resolveExplicit(sc, now, loc)
	case YearSet:
		start, end = resolveYearSet(sc, loc)
		if start.IsZero() && end.IsZero() {
			return Bounds{}
		}
	case Named:
		raw := strings.TrimSpace(string(sc))
		if raw == "" {
			return Bounds{}
		}

		key := r.cacheKey(raw, mode, loc, now, opts)
		if !opts.NoCache {
			r.mu.Lock()
			cached, ok := r.cache[key]
			r.mu.Unlock()
			if ok {
				return cached
			}
		}

		start, end = r.resolveNamed(raw, now, loc, opts)
		bounds := formatBounds(start, end, mode, !opts.ExclusiveEnd)

		if !opts.NoCache {
			r.mu.Lock()
			r.cache[key] = bounds
			r.mu.Unlock()
		}
		return bounds
	}

	return formatBounds(start, end, mode, !opts.ExclusiveEnd)
}

// resolveExplicit handles literal start/end scopes and their shorthands.
// Parse failures yield the current instant rather than an error.
func (r *Resolver) resolveExplicit(sc Explicit, now time.Time, loc *time.Location) (time.Time, time.Time) {
	parse := func(raw string) time.Time {
		t, ok := dateutil.ParseFlexible(raw, loc)
		if !ok {
			return now
		}
		return t
	}

	var start, end time.Time
	if sc.Start != "" {
		start = parse(sc.Start)
	} else if sc.Date != "" {
		start = parse(sc.Date)
	}
	if sc.End != "" {
		end = parse(sc.End)
	} else if strings.Contains(sc.Range, ",") {
		parts := strings.SplitN(sc.Range, ",", 2)
		start = parse(strings.TrimSpace(parts[0]))
		end = parse(strings.TrimSpace(parts[1]))
	}
	return start, end
}

func resolveYearSet(years YearSet, loc *time.Location) (time.Time, time.Time) {
	var min, max int
	for _, y := range years {
		if y == 0 {
			continue
		}
		if min == 0 || y < min {
			min = y
		}
		if y > max {
			max = y
		}
	}
	if min == 0 {
		return time.Time{}, time.Time{}
	}
	return time.Date(min, 1, 1, 0, 0, 0, 0, loc),
		time.Date(max, 12, 31, 0, 0, 0, 0, loc)
}

// resolveNamed dispatches a token: year and year-range literals match
// against the raw trimmed string (snake normalization would fold the
// "-"/"," separators), then the easter_<year> special form and the
// registry dispatch on the snake-normalized form, with a "today"
// fallback.
func (r *Resolver) resolveNamed(raw string, now time.Time, loc *time.Location, opts Options) (time.Time, time.Time) {
	if m := yearTokenRe.FindStringSubmatch(raw); m != nil {
		y, _ := strconv.Atoi(m[1])
		return time.Date(y, 1, 1, 0, 0, 0, 0, loc), time.Date(y, 12, 31, 0, 0, 0, 0, loc)
	}
	if m := yearRangeTokenRe.FindStringSubmatch(raw); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		if a > b {
			a, b = b, a
		}
		return time.Date(a, 1, 1, 0, 0, 0, 0, loc), time.Date(b, 12, 31, 0, 0, 0, 0, loc)
	}

	token := text.Snake(raw)
	if m := easterTokenRe.FindStringSubmatch(token); m != nil {
		y, _ := strconv.Atoi(m[1])
		e := dateutil.Easter(y, loc)
		return e, dateutil.EndOfDay(e)
	}

	r.mu.Lock()
	fn, ok := r.funcs[token]
	if !ok {
		fn = r.funcs["today"]
	}
	r.mu.Unlock()
	if fn == nil {
		return time.Time{}, time.Time{}
	}

	return fn(Context{
		Now:         now,
		Location:    loc,
		StartOfWeek: r.startOfWeek,
		Year:        opts.Year,
		Month:       opts.Month,
	})
}

// formatBounds applies mode snapping and renders the final strings.
func formatBounds(start, end time.Time, mode Mode, inclusiveEnd bool) Bounds {
	if mode == ModeDate {
		if !start.IsZero() {
			start = dateutil.StartOfDay(start)
		}
		if !end.IsZero() && inclusiveEnd {
			end = dateutil.EndOfDay(end)
		}
	}

	layout := dateutil.LayoutDate
	if mode == ModeDateTime {
		layout = dateutil.LayoutDateTime
	}

	var b Bounds
	if !start.IsZero() {
		b.Start = start.Format(layout)
	}
	if !end.IsZero() {
		b.End = end.Format(layout)
	}
	return b
}

// cacheKey builds the memoization key:
//
//	token|mode|inclusiveEnd|tz|startOfWeek|[anchor]|[year=YYYY]|[month=MM]|[extra]
//
// Time-independent scopes (parameterized month, easter_<year>) omit the
// anchor so their entries never rotate.
func (r *Resolver) cacheKey(token string, mode Mode, loc *time.Location, now time.Time, opts Options) string {
	inclusive := 1
	if opts.ExclusiveEnd {
		inclusive = 0
	}

	segments := []string{
		token,
		string(mode),
		strconv.Itoa(inclusive),
		loc.String(),
		strconv.Itoa(r.startOfWeek),
	}

	usesNow := true
	if token == "month" && opts.Year != 0 && opts.Month != 0 {
		usesNow = false
	}
	if easterTokenRe.MatchString(token) {
		usesNow = false
	}
	if usesNow {
		anchor := now.Format(dateutil.LayoutDate)
		if mode == ModeDateTime {
			anchor = now.Format("2006-01-02 15:04")
		}
		segments = append(segments, anchor)
	}

	if opts.Year != 0 {
		segments = append(segments, fmt.Sprintf("year=%d", opts.Year))
	}
	if opts.Month != 0 {
		segments = append(segments, fmt.Sprintf("month=%02d", clampMonth(opts.Month)))
	}
	if opts.CacheKey != "" {
		segments = append(segments, opts.CacheKey)
	}

	return strings.Join(segments, "|")
}
