// Package metaquery compiles typed field-comparison clause specs into
// storage-ready comparison trees.
//
// The compiler is stateless and forgiving: clauses missing required fields
// are dropped, never errored. Cast decisions are provided by callers; value
// normalization (inclusive ends etc.) is decided upstream by the scope
// resolver.
package metaquery

import "strings"

// Relation joins sibling clauses in a spec or compiled group.
type Relation string

const (
	RelationAnd Relation = "AND"
	RelationOr  Relation = "OR"
)

// NormalizeRelation maps loose input onto the closed relation enum.
// Anything that is not OR becomes AND.
func NormalizeRelation(relation string) Relation {
	if Relation(strings.ToUpper(strings.TrimSpace(relation))) == RelationOr {
		return RelationOr
	}
	return RelationAnd
}

// Cast is the value-type interpretation applied to a stored field for
// comparison purposes.
type Cast string

const (
	CastNumeric  Cast = "NUMERIC"
	CastChar     Cast = "CHAR"
	CastBinary   Cast = "BINARY"
	CastDate     Cast = "DATE"
	CastDateTime Cast = "DATETIME"
	CastDecimal  Cast = "DECIMAL"
	CastSigned   Cast = "SIGNED"
	CastUnsigned Cast = "UNSIGNED"
)

var castAliases = map[string]Cast{
	"INT":     CastNumeric,
	"INTEGER": CastNumeric,
	"NUMBER":  CastNumeric,
	"FLOAT":   CastDecimal,
	"DOUBLE":  CastDecimal,
	"STRING":  CastChar,
	"TEXT":    CastChar,
}

// NormalizeCast validates a cast token, mapping common aliases
// (int/integer/number → NUMERIC, float/double → DECIMAL, string/text → CHAR).
// Unrecognized or empty tokens return "" (no cast emitted).
func NormalizeCast(cast string) Cast {
	token := strings.ToUpper(strings.TrimSpace(cast))
	if token == "" {
		return ""
	}
	if mapped, ok := castAliases[token]; ok {
		return mapped
	}
	switch Cast(token) {
	case CastNumeric, CastChar, CastBinary, CastDate, CastDateTime,
		CastDecimal, CastSigned, CastUnsigned:
		return Cast(token)
	}
	return ""
}

// StorageShape describes how a repeated logical value (a set of years) is
// physically encoded for a field.
type StorageShape string

const (
	// ShapeSingle stores one scalar per item.
	ShapeSingle StorageShape = "single"
	// ShapeRows stores one row per value under the same key.
	ShapeRows StorageShape = "rows"
	// ShapeSerialized stores a serialized collection blob.
	ShapeSerialized StorageShape = "serialized"
)

// Clause is one atomic filter condition.
//
// This is a sealed interface - only types in this package implement it.
// The marker method keeps the compile switch exhaustive over a closed set
// of clause kinds.
type Clause interface {
	clauseNode()
}

// Equals compares key = value.
type Equals struct {
	Key   string
	Value any
	Cast  string
}

func (Equals) clauseNode() {}

// Gte compares key >= value.
type Gte struct {
	Key   string
	Value any
	Cast  string
}

func (Gte) clauseNode() {}

// Lte compares key <= value.
type Lte struct {
	Key   string
	Value any
	Cast  string
}

func (Lte) clauseNode() {}

// In compares key IN (values...).
type In struct {
	Key    string
	Values []any
	Cast   string
}

func (In) clauseNode() {}

// Like compares key LIKE %value%.
type Like struct {
	Key   string
	Value any
	Cast  string
}

func (Like) clauseNode() {}

// Range compares key BETWEEN min AND max, inclusive.
type Range struct {
	Key  string
	Min  any
	Max  any
	Cast string
}

func (Range) clauseNode() {}

// Exists requires the key to be present. Never carries a value or cast.
type Exists struct {
	Key string
}

func (Exists) clauseNode() {}

// NotExists requires the key to be absent. Never carries a value or cast.
type NotExists struct {
	Key string
}

func (NotExists) clauseNode() {}

// OverlapRange matches items whose [StartKey, EndKey] span overlaps
// [Start, End]. With EndOptional, items lacking the end key are treated as
// open-ended and included.
type OverlapRange struct {
	StartKey    string
	EndKey      string
	Start       any
	End         any
	Cast        string
	EndOptional bool
}

func (OverlapRange) clauseNode() {}

// ContainsSerialized matches any of the candidate values as quoted tokens
// inside a serialized collection blob.
type ContainsSerialized struct {
	Key    string
	Values []any
}

func (ContainsSerialized) clauseNode() {}

// Regex compares key REGEXP pattern with a literal pattern string.
type Regex struct {
	Key     string
	Pattern string
}

func (Regex) clauseNode() {}

// Raw passes a prebuilt node through unchanged.
type Raw struct {
	Node Node
}

func (Raw) clauseNode() {}

// Spec is a flat clause group under a single root relation.
type Spec struct {
	Relation Relation
	Clauses  []Clause
}

// Empty reports whether the spec holds no clauses.
func (s Spec) Empty() bool { return len(s.Clauses) == 0 }

// Compare is a storage comparison operator in the compiled tree.
type Compare string

const (
	CompareEquals    Compare = "="
	CompareGte       Compare = ">="
	CompareLte       Compare = "<="
	CompareIn        Compare = "IN"
	CompareLike      Compare = "LIKE"
	CompareBetween   Compare = "BETWEEN"
	CompareExists    Compare = "EXISTS"
	CompareNotExists Compare = "NOT EXISTS"
	CompareRegexp    Compare = "REGEXP"
)

// Node is one element of a compiled comparison tree: a Condition leaf or a
// nested Group.
//
// This is a sealed interface - only types in this package implement it.
type Node interface {
	compiledNode()
}

// Condition is a single field comparison.
// Value is nil for EXISTS / NOT EXISTS; Cast is empty when no cast applies.
type Condition struct {
	Key     string  `json:"key"`
	Compare Compare `json:"compare"`
	Value   any     `json:"value,omitempty"`
	Cast    Cast    `json:"cast,omitempty"`
}

func (Condition) compiledNode() {}

// Group is a relation-joined list of nodes.
type Group struct {
	Relation Relation `json:"relation"`
	Nodes    []Node   `json:"clauses"`
}

func (Group) compiledNode() {}

// Empty reports whether the group compiled to nothing.
func (g Group) Empty() bool { return len(g.Nodes) == 0 }
