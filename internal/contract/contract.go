// Package contract normalizes raw, loosely-shaped filter input into the
// canonical query contract consumed by the clause compilers and the
// orchestrator. This is the only validation boundary: downstream code
// may assume the contract's fields hold normalized values, and anything
// unusable in the input has already been defaulted or dropped here.
package contract

import (
	"strings"

	"github.com/whx4/wxc/internal/metaquery"
	"github.com/whx4/wxc/internal/registry"
	"github.com/whx4/wxc/internal/scope"
)

// Unlimited is the page-size sentinel that disables pagination.
const Unlimited = -1

// Filters is the raw filter input. Fields deliberately accept loose
// shapes: Scope may be a string token, a {start,end} map, or a
// scope.Scope value; Meta may be a full {relation,clauses} spec, a
// shorthand single-clause map, or a list of clause maps; Tags values
// may be a single term or a list. Limit, PageSize and PerPage are
// aliases, preferred in that order.
type Filters struct {
	CollectionType string                 `json:"collectionType,omitempty" yaml:"collectionType"`
	Status         string                 `json:"status,omitempty" yaml:"status"`
	Page           int                    `json:"page,omitempty" yaml:"page"`
	Limit          *int                   `json:"limit,omitempty" yaml:"limit"`
	PageSize       *int                   `json:"pageSize,omitempty" yaml:"pageSize"`
	PerPage        *int                   `json:"perPage,omitempty" yaml:"perPage"`
	NoPaging       bool                   `json:"noPaging,omitempty" yaml:"noPaging"`
	Order          string                 `json:"order,omitempty" yaml:"order"`
	OrderBy        string                 `json:"orderBy,omitempty" yaml:"orderBy"`
	SortFieldHint  string                 `json:"sortFieldHint,omitempty" yaml:"sortFieldHint"`
	Scope          any                    `json:"scope,omitempty" yaml:"scope"`
	DateField      registry.DateFieldSpec `json:"dateField,omitempty" yaml:"dateField"`
	Meta           any                    `json:"meta,omitempty" yaml:"meta"`
	Tags           map[string]any         `json:"tags,omitempty" yaml:"tags"`
}

// Contract is the normalized query contract. Page is 0 and PageSize is
// Unlimited when pagination is disabled; otherwise Page >= 1 and
// PageSize >= 1.
type Contract struct {
	CollectionType string
	Status         string
	Page           int
	PageSize       int
	NoPaging       bool
	Order          string
	OrderBy        string
	SortFieldHint  string
	Scope          scope.Scope
	DateField      registry.DateFieldSpec
	FieldClauses   metaquery.Spec
	TagFilters     map[string][]string
}

// Normalize validates and defaults raw filters against the registry.
// It never fails: unknown collection types fall back to the registry
// default, unusable scope or clause shapes degrade to empty, and
// pagination and ordering snap to safe values.
func Normalize(f Filters, reg *registry.Registry) Contract {
	col := reg.Resolve(f.CollectionType)

	c := Contract{
		CollectionType: col.Type,
		Status:         defaultString(f.Status, defaultString(col.Status, "publish")),
		Order:          normalizeOrder(f.Order, normalizeOrder(col.Order, "DESC")),
		OrderBy:        defaultString(f.OrderBy, defaultString(col.OrderBy, "date")),
		SortFieldHint:  strings.TrimSpace(f.SortFieldHint),
		Scope:          scopeFromAny(f.Scope),
		FieldClauses:   specFromAny(f.Meta),
		TagFilters:     tagsFromAny(f.Tags),
	}

	c.DateField = f.DateField
	if c.DateField.Empty() {
		c.DateField = col.DateField
	}

	c.Page = f.Page
	if c.Page < 1 {
		c.Page = 1
	}
	c.PageSize = pageSize(f, col, reg)
	if f.NoPaging || c.PageSize == Unlimited {
		c.NoPaging = true
		c.PageSize = Unlimited
		c.Page = 0
	} else if c.PageSize < 1 {
		c.PageSize = 1
	}

	return c
}

// AsFilters renders the contract back as raw input. Normalizing the
// result yields the same contract, which keeps normalization
// idempotent.
func (c Contract) AsFilters() Filters {
	limit := c.PageSize
	f := Filters{
		CollectionType: c.CollectionType,
		Status:         c.Status,
		Page:           c.Page,
		Limit:          &limit,
		NoPaging:       c.NoPaging,
		Order:          c.Order,
		OrderBy:        c.OrderBy,
		SortFieldHint:  c.SortFieldHint,
		DateField:      c.DateField,
	}
	if c.Scope != nil {
		f.Scope = c.Scope
	}
	if !c.FieldClauses.Empty() {
		f.Meta = c.FieldClauses
	}
	if len(c.TagFilters) > 0 {
		f.Tags = make(map[string]any, len(c.TagFilters))
		for taxonomy, terms := range c.TagFilters {
			f.Tags[taxonomy] = terms
		}
	}
	return f
}

// pageSize picks the first set alias, then the collection default,
// then the site default.
func pageSize(f Filters, col registry.Collection, reg *registry.Registry) int {
	for _, alias := range []*int{f.Limit, f.PageSize, f.PerPage} {
		if alias != nil {
			return *alias
		}
	}
	if col.PageSize > 0 {
		return col.PageSize
	}
	return reg.PageSize()
}

func normalizeOrder(order, fallback string) string {
	switch strings.ToUpper(strings.TrimSpace(order)) {
	case "ASC":
		return "ASC"
	case "DESC":
		return "DESC"
	default:
		return fallback
	}
}

func defaultString(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}
