package contract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/whx4/wxc/internal/metaquery"
	"github.com/whx4/wxc/internal/scope"
)

var bareYearRe = regexp.MustCompile(`^\d{4}$`)

// scopeFromAny maps the accepted scope shapes onto the scope union:
// a string token, a {start,end} (or {date}/{range}/{years}) map, a
// year list, or an already-built scope.Scope. Anything else is nil.
func scopeFromAny(v any) scope.Scope {
	switch s := v.(type) {
	case nil:
		return nil
	case scope.Scope:
		return s
	case string:
		return scopeFromString(s)
	case []int:
		if len(s) == 0 {
			return nil
		}
		return scope.YearSet(s)
	case []any:
		return yearSetFromList(s)
	case map[string]any:
		return scopeFromMap(s)
	default:
		return nil
	}
}

func scopeFromString(s string) scope.Scope {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// A comma separates either two bare years (a named year-range
	// token) or two explicit dates.
	if left, right, ok := strings.Cut(s, ","); ok {
		if !bareYearRe.MatchString(strings.TrimSpace(left)) || !bareYearRe.MatchString(strings.TrimSpace(right)) {
			return scope.Explicit{Range: s}
		}
	}
	return scope.Named(s)
}

func scopeFromMap(m map[string]any) scope.Scope {
	if years, ok := m["years"]; ok {
		switch list := years.(type) {
		case []int:
			if len(list) > 0 {
				return scope.YearSet(list)
			}
		case []any:
			return yearSetFromList(list)
		}
		return nil
	}

	ex := scope.Explicit{
		Start: stringField(m, "start"),
		End:   stringField(m, "end"),
		Date:  stringField(m, "date"),
		Range: stringField(m, "range"),
	}
	if ex == (scope.Explicit{}) {
		return nil
	}
	return ex
}

func yearSetFromList(list []any) scope.Scope {
	years := make(scope.YearSet, 0, len(list))
	for _, v := range list {
		switch n := v.(type) {
		case int:
			years = append(years, n)
		case int64:
			years = append(years, int(n))
		case float64:
			years = append(years, int(n))
		default:
			return nil
		}
	}
	if len(years) == 0 {
		return nil
	}
	return years
}

// specFromAny maps the accepted field-clause shapes onto a clause spec:
// a metaquery.Spec, a full {relation,clauses} map, a shorthand
// single-clause map, or a list of clause maps. Clause maps with missing
// required fields survive here and are dropped later by the compiler.
func specFromAny(v any) metaquery.Spec {
	switch m := v.(type) {
	case nil:
		return metaquery.Spec{}
	case metaquery.Spec:
		m.Relation = metaquery.NormalizeRelation(string(m.Relation))
		return m
	case map[string]any:
		if raw, ok := m["clauses"]; ok {
			return metaquery.Spec{
				Relation: metaquery.NormalizeRelation(stringField(m, "relation")),
				Clauses:  clausesFromList(raw),
			}
		}
		spec := metaquery.Spec{Relation: metaquery.RelationAnd}
		if c, ok := clauseFromMap(m); ok {
			spec.Clauses = append(spec.Clauses, c)
		}
		return spec
	case []any:
		return metaquery.Spec{
			Relation: metaquery.RelationAnd,
			Clauses:  clausesFromList(m),
		}
	default:
		return metaquery.Spec{}
	}
}

func clausesFromList(v any) []metaquery.Clause {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []metaquery.Clause
	for _, elem := range list {
		m, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		if c, ok := clauseFromMap(m); ok {
			out = append(out, c)
		}
	}
	return out
}

// clauseFromMap decodes one duck-typed clause map. The "type" key
// discriminates; without it the present value keys decide, including
// the {key, equals} shorthand. Unrecognized types are dropped.
func clauseFromMap(m map[string]any) (metaquery.Clause, bool) {
	key := stringField(m, "key")
	cast := stringField(m, "cast")

	typ := strings.ToLower(stringField(m, "type"))
	if typ == "" {
		switch {
		case hasField(m, "equals"):
			return metaquery.Equals{Key: key, Value: m["equals"], Cast: cast}, true
		case hasField(m, "values"):
			typ = "in"
		case hasField(m, "min") || hasField(m, "max"):
			typ = "range"
		case hasField(m, "value"):
			typ = "equals"
		default:
			return nil, false
		}
	}

	switch typ {
	case "equals", "=":
		return metaquery.Equals{Key: key, Value: m["value"], Cast: cast}, true
	case "gte", ">=":
		return metaquery.Gte{Key: key, Value: m["value"], Cast: cast}, true
	case "lte", "<=":
		return metaquery.Lte{Key: key, Value: m["value"], Cast: cast}, true
	case "in":
		return metaquery.In{Key: key, Values: listField(m, "values"), Cast: cast}, true
	case "like":
		return metaquery.Like{Key: key, Value: m["value"], Cast: cast}, true
	case "range", "between":
		return metaquery.Range{Key: key, Min: m["min"], Max: m["max"], Cast: cast}, true
	case "exists":
		return metaquery.Exists{Key: key}, true
	case "not_exists", "notexists":
		return metaquery.NotExists{Key: key}, true
	case "overlap_range", "overlap":
		return metaquery.OverlapRange{
			StartKey:    stringField(m, "startKey"),
			EndKey:      stringField(m, "endKey"),
			Start:       m["start"],
			End:         m["end"],
			Cast:        cast,
			EndOptional: boolField(m, "endOptional"),
		}, true
	case "contains_serialized", "serialized":
		return metaquery.ContainsSerialized{Key: key, Values: listField(m, "values")}, true
	case "regex":
		return metaquery.Regex{Key: key, Pattern: stringField(m, "pattern")}, true
	default:
		return nil, false
	}
}

// tagsFromAny normalizes any tag-filter shape into taxonomy → trimmed
// non-empty term strings, dropping taxonomies whose term list comes out
// empty.
func tagsFromAny(tags map[string]any) map[string][]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string][]string, len(tags))
	for taxonomy, raw := range tags {
		taxonomy = strings.TrimSpace(taxonomy)
		if taxonomy == "" {
			continue
		}
		var terms []string
		switch v := raw.(type) {
		case string:
			terms = []string{v}
		case []string:
			terms = v
		case []any:
			for _, elem := range v {
				terms = append(terms, fmt.Sprintf("%v", elem))
			}
		default:
			continue
		}
		var trimmed []string
		for _, t := range terms {
			if t = strings.TrimSpace(t); t != "" {
				trimmed = append(trimmed, t)
			}
		}
		if len(trimmed) > 0 {
			out[taxonomy] = trimmed
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func hasField(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func listField(m map[string]any, key string) []any {
	switch v := m[key].(type) {
	case []any:
		return v
	case nil:
		return nil
	default:
		return []any{v}
	}
}
