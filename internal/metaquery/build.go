package metaquery

import (
	"fmt"
	"time"

	"github.com/whx4/wxc/internal/dateutil"
)

// Build compiles a spec into a comparison tree. Invalid clauses (missing
// required fields, empty value sets, unknown kinds) are dropped silently;
// an all-invalid or empty spec yields an empty group.
func Build(spec Spec) Group {
	relation := spec.Relation
	if relation != RelationOr {
		relation = RelationAnd
	}

	var nodes []Node
	for _, clause := range spec.Clauses {
		node, ok := makeNode(clause)
		if !ok {
			continue
		}
		nodes = append(nodes, node)
	}

	if len(nodes) == 0 {
		return Group{}
	}
	return Group{Relation: relation, Nodes: nodes}
}

// makeNode routes one clause to its builder. The bool result is false for
// soft-invalid clauses.
func makeNode(clause Clause) (Node, bool) {
	switch c := clause.(type) {
	case Equals:
		return makeComparison(c.Key, CompareEquals, c.Value, c.Cast)
	case Gte:
		return makeComparison(c.Key, CompareGte, c.Value, c.Cast)
	case Lte:
		return makeComparison(c.Key, CompareLte, c.Value, c.Cast)
	case In:
		if c.Key == "" || len(c.Values) == 0 {
			return nil, false
		}
		cast := NormalizeCast(c.Cast)
		values := make([]any, len(c.Values))
		for i, v := range c.Values {
			values[i] = normalizeValue(v, cast)
		}
		return Condition{Key: c.Key, Compare: CompareIn, Value: values, Cast: cast}, true
	case Like:
		if c.Key == "" || c.Value == nil {
			return nil, false
		}
		cast := NormalizeCast(c.Cast)
		val := fmt.Sprintf("%v", normalizeValue(c.Value, cast))
		return Condition{Key: c.Key, Compare: CompareLike, Value: val, Cast: cast}, true
	case Range:
		if c.Key == "" || c.Min == nil || c.Max == nil {
			return nil, false
		}
		cast := NormalizeCast(c.Cast)
		bounds := []any{normalizeValue(c.Min, cast), normalizeValue(c.Max, cast)}
		return Condition{Key: c.Key, Compare: CompareBetween, Value: bounds, Cast: cast}, true
	case Exists:
		if c.Key == "" {
			return nil, false
		}
		return Condition{Key: c.Key, Compare: CompareExists}, true
	case NotExists:
		if c.Key == "" {
			return nil, false
		}
		return Condition{Key: c.Key, Compare: CompareNotExists}, true
	case OverlapRange:
		return makeOverlapGroup(c)
	case ContainsSerialized:
		if c.Key == "" || len(c.Values) == 0 {
			return nil, false
		}
		group := Group{Relation: RelationOr}
		for _, v := range c.Values {
			group.Nodes = append(group.Nodes, Condition{
				Key:     c.Key,
				Compare: CompareLike,
				Value:   fmt.Sprintf("%q", fmt.Sprintf("%v", v)),
			})
		}
		return group, true
	case Regex:
		if c.Key == "" || c.Pattern == "" {
			return nil, false
		}
		return Condition{Key: c.Key, Compare: CompareRegexp, Value: c.Pattern}, true
	case Raw:
		if c.Node == nil {
			return nil, false
		}
		return c.Node, true
	default:
		return nil, false
	}
}

// makeComparison builds a simple key {op} value condition.
func makeComparison(key string, op Compare, value any, castToken string) (Node, bool) {
	if key == "" || value == nil || value == "" {
		return nil, false
	}
	cast := NormalizeCast(castToken)
	return Condition{Key: key, Compare: op, Value: normalizeValue(value, cast), Cast: cast}, true
}

// makeOverlapGroup builds the overlap group:
//
//	AND[ start_key <= end, end_key >= start ]
//
// With EndOptional the second inequality becomes
// OR[ end_key >= start, end_key NOT EXISTS ] so that items lacking an end
// value are treated as open-ended.
func makeOverlapGroup(c OverlapRange) (Node, bool) {
	if c.StartKey == "" || c.EndKey == "" || c.Start == nil || c.End == nil {
		return nil, false
	}
	cast := NormalizeCast(c.Cast)

	group := Group{Relation: RelationAnd}
	group.Nodes = append(group.Nodes, Condition{
		Key:     c.StartKey,
		Compare: CompareLte,
		Value:   normalizeValue(c.End, cast),
		Cast:    cast,
	})

	endCond := Condition{
		Key:     c.EndKey,
		Compare: CompareGte,
		Value:   normalizeValue(c.Start, cast),
		Cast:    cast,
	}
	if c.EndOptional {
		group.Nodes = append(group.Nodes, Group{
			Relation: RelationOr,
			Nodes: []Node{
				endCond,
				Condition{Key: c.EndKey, Compare: CompareNotExists},
			},
		})
	} else {
		group.Nodes = append(group.Nodes, endCond)
	}

	return group, true
}

// normalizeValue reformats date-like values according to the cast:
// NUMERIC → compact YYYYMMDD, DATE → YYYY-MM-DD, anything else →
// YYYY-MM-DD HH:MM:SS. Non-date scalars pass through unchanged; slices are
// normalized element-wise.
func normalizeValue(value any, cast Cast) any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = normalizeValue(elem, cast)
		}
		return out
	case time.Time:
		return formatForCast(v.Format(dateutil.LayoutDateTime), cast)
	case string:
		if !dateutil.IsDateLike(v) {
			return v
		}
		return formatForCast(v, cast)
	default:
		return value
	}
}

func formatForCast(v string, cast Cast) string {
	switch cast {
	case CastNumeric:
		return dateutil.ToYmd(v)
	case CastDate:
		return dateutil.ToDate(v)
	default:
		return dateutil.ToDateTime(v)
	}
}
