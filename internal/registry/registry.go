// Package registry holds the active-collection registry: the set of
// enabled collection types and, per type, the query defaults the
// compiler consults (ordering, allowed sort fields, date storage,
// taxonomies, page size). Definitions are authored in CUE and loaded
// with Load, or built in code with New.
package registry

import (
	"sort"
	"strings"
)

// DefaultPageSize applies when neither the caller nor the collection
// sets one.
const DefaultPageSize = 10

// DateFieldSpec describes how a collection stores its date value:
// either one field key, or a start/end span. Cast selects the
// comparison semantics; Shape only matters for NUMERIC bare-year
// storage.
type DateFieldSpec struct {
	Key          string `json:"key,omitempty" yaml:"key"`
	StartKey     string `json:"startKey,omitempty" yaml:"startKey"`
	EndKey       string `json:"endKey,omitempty" yaml:"endKey"`
	Cast         string `json:"cast,omitempty" yaml:"cast"`
	Shape        string `json:"shape,omitempty" yaml:"shape"`
	NumericYears bool   `json:"numericYears,omitempty" yaml:"numericYears"`
	EndOptional  bool   `json:"endOptional,omitempty" yaml:"endOptional"`
}

// Empty reports whether the spec names no storage field at all.
func (s DateFieldSpec) Empty() bool {
	return s.Key == "" && !s.Span()
}

// Span reports whether the spec describes a start/end field pair.
func (s DateFieldSpec) Span() bool {
	return s.StartKey != "" && s.EndKey != ""
}

// SortField is one allowed derived sort target for a collection.
type SortField struct {
	Key  string `json:"key"`
	Cast string `json:"cast,omitempty"`
}

// Collection is one enabled collection type and its query defaults.
type Collection struct {
	Type       string               `json:"type"`
	Status     string               `json:"status,omitempty"`
	Order      string               `json:"order,omitempty"`
	OrderBy    string               `json:"orderBy,omitempty"`
	SortFields map[string]SortField `json:"sortFields,omitempty"`
	DateField  DateFieldSpec        `json:"dateField,omitempty"`
	Taxonomies []string             `json:"taxonomies,omitempty"`
	PageSize   int                  `json:"pageSize,omitempty"`
}

// SortField looks up an allowed sort field by name.
func (c Collection) SortField(name string) (SortField, bool) {
	f, ok := c.SortFields[strings.TrimSpace(name)]
	return f, ok
}

// HasTaxonomy reports whether the taxonomy applies to the collection.
// A collection with no declared taxonomies accepts any.
func (c Collection) HasTaxonomy(name string) bool {
	if len(c.Taxonomies) == 0 {
		return true
	}
	for _, t := range c.Taxonomies {
		if t == name {
			return true
		}
	}
	return false
}

// Registry is the active-collection set. The zero value is unusable;
// construct with New or Load.
type Registry struct {
	defaultType string
	pageSize    int
	collections map[string]Collection
}

// New builds a registry from collections. defaultType names the
// fallback collection for unknown types; if it is not among the given
// collections the first collection (by declaration order) is used.
func New(defaultType string, collections ...Collection) *Registry {
	r := &Registry{
		defaultType: defaultType,
		pageSize:    DefaultPageSize,
		collections: make(map[string]Collection, len(collections)),
	}
	for _, c := range collections {
		if c.Type == "" {
			continue
		}
		r.collections[c.Type] = c
		if r.defaultType == "" {
			r.defaultType = c.Type
		}
	}
	if _, ok := r.collections[r.defaultType]; !ok && len(collections) > 0 {
		r.defaultType = collections[0].Type
	}
	return r
}

// SetPageSize overrides the site-level default page size. Non-positive
// values are ignored.
func (r *Registry) SetPageSize(n int) {
	if n > 0 {
		r.pageSize = n
	}
}

// PageSize is the site-level default page size.
func (r *Registry) PageSize() int { return r.pageSize }

// DefaultType is the fallback collection type.
func (r *Registry) DefaultType() string { return r.defaultType }

// Has reports whether a collection type is enabled.
func (r *Registry) Has(typ string) bool {
	_, ok := r.collections[typ]
	return ok
}

// Resolve returns the collection for typ, or the default collection
// when typ is unknown or disabled.
func (r *Registry) Resolve(typ string) Collection {
	if c, ok := r.collections[typ]; ok {
		return c
	}
	return r.collections[r.defaultType]
}

// Types returns the enabled collection types in sorted order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.collections))
	for typ := range r.collections {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}
