// Package query is the orchestrator: it normalizes raw filters, resolves
// the date scope, compiles field and tag clauses, assembles the final
// storage-ready descriptor, and hands it to the executor collaborator.
// Compilation never fails; only the executor call can return an error.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/whx4/wxc/internal/contract"
	"github.com/whx4/wxc/internal/dateutil"
	"github.com/whx4/wxc/internal/metaquery"
	"github.com/whx4/wxc/internal/registry"
	"github.com/whx4/wxc/internal/scope"
	"github.com/whx4/wxc/internal/taxquery"
)

// OrderByField is the orderBy token for sorting on a derived field
// value. The concrete field key is carried in Descriptor.SortField.
const OrderByField = "field"

// Item is one content item as returned by the executor.
type Item struct {
	ID             string              `json:"id"`
	CollectionType string              `json:"collectionType"`
	Title          string              `json:"title"`
	Slug           string              `json:"slug"`
	Status         string              `json:"status"`
	PublishedAt    string              `json:"publishedAt,omitempty"`
	Fields         map[string]any      `json:"fields,omitempty"`
	Terms          map[string][]string `json:"terms,omitempty"`
}

// Descriptor is the fully compiled, storage-ready query handed to the
// executor.
type Descriptor struct {
	CollectionType string          `json:"collectionType"`
	Status         string          `json:"status"`
	Page           int             `json:"page"`
	PageSize       int             `json:"pageSize"`
	Order          string          `json:"order"`
	OrderBy        string          `json:"orderBy"`
	SortField      string          `json:"sortField,omitempty"`
	SortNumeric    bool            `json:"sortNumeric,omitempty"`
	FieldClauses   metaquery.Group `json:"fieldClauses"`
	TagClauses     taxquery.Tree   `json:"tagClauses"`
}

// ExecResult is the raw executor outcome.
type ExecResult struct {
	Items      []Item
	TotalFound int
	TotalPages int
}

// Executor runs a compiled descriptor against content storage. It is an
// opaque collaborator: this package performs no storage I/O itself, and
// executor errors pass through Find unretried.
type Executor interface {
	Execute(ctx context.Context, d Descriptor) (ExecResult, error)
}

// Trace echoes resolution details back for debugging.
type Trace struct {
	ID     string       `json:"id"`
	Mode   scope.Mode   `json:"mode"`
	Bounds scope.Bounds `json:"bounds"`
}

// Result is the uniform envelope returned by Find. It is constructed
// once per call and never mutated afterwards.
type Result struct {
	Items      []Item     `json:"items"`
	TotalFound int        `json:"totalFound"`
	TotalPages int        `json:"totalPages"`
	Descriptor Descriptor `json:"descriptor"`
	Trace      Trace      `json:"trace"`
}

// Option configures a Queries instance.
type Option func(*Queries)

// WithLogger sets the debug logger.
func WithLogger(log *zap.Logger) Option {
	return func(q *Queries) {
		if log != nil {
			q.log = log
		}
	}
}

// WithResolver replaces the scope resolver, e.g. to change timezone or
// start-of-week, or to register extra named scopes.
func WithResolver(r *scope.Resolver) Option {
	return func(q *Queries) {
		if r != nil {
			q.resolver = r
		}
	}
}

// WithClock fixes the time source. Tests use this to anchor relative
// scopes.
func WithClock(now func() time.Time) Option {
	return func(q *Queries) {
		if now != nil {
			q.now = now
		}
	}
}

// Queries compiles and runs content queries. Safe for concurrent use:
// every Find call builds its contract, bounds and descriptor from
// scratch, and the resolver's cache is internally synchronized.
type Queries struct {
	reg      *registry.Registry
	exec     Executor
	resolver *scope.Resolver
	log      *zap.Logger
	now      func() time.Time
}

// New builds a Queries over a collection registry and an executor.
func New(reg *registry.Registry, exec Executor, opts ...Option) *Queries {
	q := &Queries{
		reg:      reg,
		exec:     exec,
		resolver: scope.NewResolver(time.UTC, 1),
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Resolver exposes the scope resolver, mainly so hosts can register
// additional named scopes.
func (q *Queries) Resolver() *scope.Resolver { return q.resolver }

// Compile normalizes filters and builds the descriptor without running
// it. The returned trace carries the resolved date bounds.
func (q *Queries) Compile(f contract.Filters) (Descriptor, Trace) {
	c := contract.Normalize(f, q.reg)
	col := q.reg.Resolve(c.CollectionType)

	mode := scope.ModeDateTime
	cast := metaquery.NormalizeCast(c.DateField.Cast)
	if cast == metaquery.CastDate || cast == metaquery.CastNumeric {
		mode = scope.ModeDate
	}

	var bounds scope.Bounds
	if c.Scope != nil {
		bounds = q.resolver.Resolve(c.Scope, scope.Options{Mode: mode, Now: q.now()})
	}

	merged := metaquery.MergeSpecs([]metaquery.Spec{
		dateSpec(bounds, c.DateField),
		c.FieldClauses,
	}, metaquery.RelationAnd)

	d := Descriptor{
		CollectionType: c.CollectionType,
		Status:         c.Status,
		Page:           c.Page,
		PageSize:       c.PageSize,
		Order:          c.Order,
		FieldClauses:   metaquery.Build(merged),
		TagClauses:     taxquery.Build(taxquery.FromMap(c.TagFilters)),
	}
	d.OrderBy, d.SortField, d.SortNumeric = sortPlan(c, col)

	trace := Trace{ID: uuid.NewString(), Mode: mode, Bounds: bounds}
	q.log.Debug("compiled query",
		zap.String("trace", trace.ID),
		zap.String("collection", d.CollectionType),
		zap.String("scopeStart", bounds.Start),
		zap.String("scopeEnd", bounds.End),
		zap.Int("fieldClauses", len(d.FieldClauses.Nodes)),
		zap.Int("tagClauses", len(d.TagClauses.Clauses)))
	return d, trace
}

// Find compiles the filters and runs them through the executor. A
// malformed filter never surfaces as an error; it degrades to the
// broadest reasonable result set. Executor failures propagate as-is.
func (q *Queries) Find(ctx context.Context, f contract.Filters) (Result, error) {
	d, trace := q.Compile(f)

	res, err := q.exec.Execute(ctx, d)
	if err != nil {
		return Result{}, fmt.Errorf("executing query %s: %w", trace.ID, err)
	}

	return Result{
		Items:      res.Items,
		TotalFound: res.TotalFound,
		TotalPages: res.TotalPages,
		Descriptor: d,
		Trace:      trace,
	}, nil
}

// dateSpec turns resolved bounds plus the collection's date storage
// description into a field-clause spec: year-window expansion for
// NUMERIC bare-year storage, an overlap group for start/end spans, and
// a range (or single inequality for open-ended bounds) for one key.
func dateSpec(b scope.Bounds, df registry.DateFieldSpec) metaquery.Spec {
	if b.IsZero() || df.Empty() {
		return metaquery.Spec{}
	}

	if df.NumericYears {
		win := dateutil.YearsWindow(b.Start, b.End)
		return metaquery.FromYearsWindow(df.Key, metaquery.NormalizeShape(df.Shape), win)
	}

	if df.Span() {
		switch {
		case b.Start == "":
			// Open start: anything beginning before the window end.
			return oneClause(metaquery.Lte{Key: df.StartKey, Value: b.End, Cast: df.Cast})
		case b.End == "":
			// Open end: anything still running at the window start.
			return oneClause(metaquery.Gte{Key: df.EndKey, Value: b.Start, Cast: df.Cast})
		default:
			return oneClause(metaquery.OverlapRange{
				StartKey:    df.StartKey,
				EndKey:      df.EndKey,
				Start:       b.Start,
				End:         b.End,
				Cast:        df.Cast,
				EndOptional: df.EndOptional,
			})
		}
	}

	switch {
	case b.Start == "":
		return oneClause(metaquery.Lte{Key: df.Key, Value: b.End, Cast: df.Cast})
	case b.End == "":
		return oneClause(metaquery.Gte{Key: df.Key, Value: b.Start, Cast: df.Cast})
	default:
		return oneClause(metaquery.Range{Key: df.Key, Min: b.Start, Max: b.End, Cast: df.Cast})
	}
}

func oneClause(c metaquery.Clause) metaquery.Spec {
	return metaquery.Spec{Relation: metaquery.RelationAnd, Clauses: []metaquery.Clause{c}}
}

// sortPlan resolves the effective sort. Non-derived orderBy tokens pass
// through. For derived ordering the hint is checked against the
// collection's allow list, then its date storage key; with no concrete
// key resolvable the plan falls back to the collection's date field or
// plain date ordering. A NUMERIC resolved cast switches to the
// numeric-aware sort variant.
func sortPlan(c contract.Contract, col registry.Collection) (orderBy, sortField string, numeric bool) {
	if c.OrderBy != OrderByField {
		return c.OrderBy, "", false
	}

	if f, ok := col.SortField(c.SortFieldHint); ok {
		return OrderByField, f.Key, metaquery.NormalizeCast(f.Cast) == metaquery.CastNumeric
	}
	if c.SortFieldHint != "" && c.SortFieldHint == col.DateField.Key {
		return OrderByField, col.DateField.Key, metaquery.NormalizeCast(col.DateField.Cast) == metaquery.CastNumeric
	}
	if col.DateField.Key != "" {
		return OrderByField, col.DateField.Key, metaquery.NormalizeCast(col.DateField.Cast) == metaquery.CastNumeric
	}
	return "date", "", false
}
