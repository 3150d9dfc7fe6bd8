// Package taxquery compiles categorical-tag filters into storage-ready
// clause trees. Filters name a taxonomy, a list of terms, a match field
// and a set operator; the compiler normalizes the enums, slug-normalizes
// terms matched by slug, drops filters whose term list is empty after
// trimming, and expands the "-term" exclusion shorthand into a separate
// NOT IN clause.
package taxquery

import (
	"sort"
	"strings"

	"github.com/whx4/wxc/internal/text"
)

// Relation joins the clauses of a compiled tree.
type Relation string

const (
	RelationAnd Relation = "AND"
	RelationOr  Relation = "OR"
)

// NormalizeRelation maps free-form input onto AND/OR, defaulting to AND.
func NormalizeRelation(s string) Relation {
	if strings.ToUpper(strings.TrimSpace(s)) == string(RelationOr) {
		return RelationOr
	}
	return RelationAnd
}

// MatchField selects which term attribute the filter terms refer to.
type MatchField string

const (
	MatchTermID         MatchField = "term_id"
	MatchSlug           MatchField = "slug"
	MatchName           MatchField = "name"
	MatchTermTaxonomyID MatchField = "term_taxonomy_id"
)

// NormalizeMatchField maps free-form input onto the match-field enum.
// Unrecognized input falls back to slug.
func NormalizeMatchField(s string) MatchField {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TERM_ID", "ID":
		return MatchTermID
	case "NAME":
		return MatchName
	case "TERM_TAXONOMY_ID":
		return MatchTermTaxonomyID
	default:
		return MatchSlug
	}
}

// Operator is the set operation applied to a filter's terms.
type Operator string

const (
	OpIn        Operator = "IN"
	OpNotIn     Operator = "NOT IN"
	OpAnd       Operator = "AND"
	OpExists    Operator = "EXISTS"
	OpNotExists Operator = "NOT EXISTS"
)

// NormalizeOperator maps free-form input onto the operator enum,
// defaulting to IN.
func NormalizeOperator(s string) Operator {
	switch op := Operator(strings.ToUpper(strings.TrimSpace(s))); op {
	case OpIn, OpNotIn, OpAnd, OpExists, OpNotExists:
		return op
	default:
		return OpIn
	}
}

// Filter is one user-supplied tag filter. The zero value of
// ExcludeDescendants means descendant terms are matched too, which is
// the common case for hierarchical taxonomies.
type Filter struct {
	Taxonomy           string
	Terms              []string
	MatchField         string
	Operator           string
	ExcludeDescendants bool
}

// Spec is the input to Build.
type Spec struct {
	Relation string
	Filters  []Filter
}

// Clause is one compiled tag clause.
type Clause struct {
	Taxonomy           string     `json:"taxonomy"`
	MatchField         MatchField `json:"field"`
	Terms              []string   `json:"terms"`
	Operator           Operator   `json:"operator"`
	IncludeDescendants bool       `json:"include_children"`
}

// Tree is the compiled tag-clause tree handed to the executor.
type Tree struct {
	Relation Relation `json:"relation,omitempty"`
	Clauses  []Clause `json:"clauses,omitempty"`
}

// Empty reports whether the tree carries no clauses.
func (t Tree) Empty() bool { return len(t.Clauses) == 0 }

// Build compiles a spec into a tree. Filters whose term list is empty
// after trimming are dropped; enum fields are normalized with their
// documented fallbacks.
func Build(spec Spec) Tree {
	tree := Tree{Relation: NormalizeRelation(spec.Relation)}
	for _, f := range spec.Filters {
		c, ok := makeClause(f)
		if !ok {
			continue
		}
		tree.Clauses = append(tree.Clauses, c)
	}
	if tree.Empty() {
		return Tree{}
	}
	return tree
}

func makeClause(f Filter) (Clause, bool) {
	taxonomy := strings.TrimSpace(f.Taxonomy)
	terms := trimTerms(f.Terms)
	if taxonomy == "" || len(terms) == 0 {
		return Clause{}, false
	}
	field := NormalizeMatchField(f.MatchField)
	if field == MatchSlug {
		for i, t := range terms {
			terms[i] = text.Slug(t)
		}
	}
	return Clause{
		Taxonomy:           taxonomy,
		MatchField:         field,
		Terms:              terms,
		Operator:           NormalizeOperator(f.Operator),
		IncludeDescendants: !f.ExcludeDescendants,
	}, true
}

// FromMap converts a simple taxonomy→terms map into a spec. Terms
// prefixed with "-" are exclusions: they are split off into a NOT IN
// clause on the same taxonomy, so {"category": ["news", "-press"]}
// selects items in news but not in press or its descendants. Taxonomies
// are emitted in sorted order so the resulting spec is deterministic.
func FromMap(filters map[string][]string) Spec {
	taxonomies := make([]string, 0, len(filters))
	for taxonomy := range filters {
		taxonomies = append(taxonomies, taxonomy)
	}
	sort.Strings(taxonomies)

	var spec Spec
	for _, taxonomy := range taxonomies {
		var include, exclude []string
		for _, term := range trimTerms(filters[taxonomy]) {
			if rest := strings.TrimPrefix(term, "-"); rest != term {
				if rest = strings.TrimSpace(rest); rest != "" {
					exclude = append(exclude, rest)
				}
				continue
			}
			include = append(include, term)
		}
		if len(include) > 0 {
			spec.Filters = append(spec.Filters, Filter{Taxonomy: taxonomy, Terms: include})
		}
		if len(exclude) > 0 {
			spec.Filters = append(spec.Filters, Filter{
				Taxonomy: taxonomy,
				Terms:    exclude,
				Operator: string(OpNotIn),
			})
		}
	}
	return spec
}

func trimTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
