package metaquery

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whx4/wxc/internal/dateutil"
)

func TestBuildSimpleComparisons(t *testing.T) {
	spec := Spec{
		Relation: RelationAnd,
		Clauses: []Clause{
			Equals{Key: "status", Value: "active"},
			Gte{Key: "price", Value: 10, Cast: "int"},
			Lte{Key: "price", Value: 99, Cast: "NUMERIC"},
		},
	}

	got := Build(spec)
	require.Len(t, got.Nodes, 3)
	assert.Equal(t, RelationAnd, got.Relation)
	assert.Equal(t, Condition{Key: "status", Compare: CompareEquals, Value: "active"}, got.Nodes[0])
	assert.Equal(t, Condition{Key: "price", Compare: CompareGte, Value: 10, Cast: CastNumeric}, got.Nodes[1])
	assert.Equal(t, Condition{Key: "price", Compare: CompareLte, Value: 99, Cast: CastNumeric}, got.Nodes[2])
}

func TestBuildDropsInvalidClauses(t *testing.T) {
	spec := Spec{
		Relation: RelationOr,
		Clauses: []Clause{
			Equals{Key: "x"},                  // no value
			Equals{Key: "", Value: "v"},       // no key
			In{Key: "k"},                      // empty values
			Range{Key: "k", Min: 1},           // no max
			Regex{Key: "k"},                   // no pattern
			Raw{},                             // no node
			Equals{Key: "kept", Value: "yes"}, // sibling survives
		},
	}

	got := Build(spec)
	require.Len(t, got.Nodes, 1)
	assert.Equal(t, Condition{Key: "kept", Compare: CompareEquals, Value: "yes"}, got.Nodes[0])
	assert.Equal(t, RelationOr, got.Relation)
}

func TestBuildEmptySpec(t *testing.T) {
	assert.True(t, Build(Spec{}).Empty())
	assert.True(t, Build(Spec{Relation: RelationAnd}).Empty())
}

func TestBuildInAndRange(t *testing.T) {
	got := Build(Spec{Clauses: []Clause{
		In{Key: "year", Values: []any{2020, 2021}},
		Range{Key: "event_date", Min: "2024-03-01", Max: "2024-03-31", Cast: "DATE"},
	}})
	require.Len(t, got.Nodes, 2)

	in := got.Nodes[0].(Condition)
	assert.Equal(t, CompareIn, in.Compare)
	assert.Equal(t, []any{2020, 2021}, in.Value)

	between := got.Nodes[1].(Condition)
	assert.Equal(t, CompareBetween, between.Compare)
	assert.Equal(t, []any{"2024-03-01", "2024-03-31"}, between.Value)
	assert.Equal(t, CastDate, between.Cast)
}

func TestBuildExists(t *testing.T) {
	got := Build(Spec{Clauses: []Clause{
		Exists{Key: "featured"},
		NotExists{Key: "hidden"},
	}})
	require.Len(t, got.Nodes, 2)

	// EXISTS / NOT EXISTS never carry a value or cast.
	exists := got.Nodes[0].(Condition)
	assert.Nil(t, exists.Value)
	assert.Empty(t, exists.Cast)
	assert.Equal(t, CompareExists, exists.Compare)
	assert.Equal(t, CompareNotExists, got.Nodes[1].(Condition).Compare)
}

func TestBuildOverlapRange(t *testing.T) {
	got := Build(Spec{Clauses: []Clause{
		OverlapRange{
			StartKey: "start_date",
			EndKey:   "end_date",
			Start:    "2024-03-01",
			End:      "2024-03-31",
			Cast:     "DATE",
		},
	}})
	require.Len(t, got.Nodes, 1)

	group := got.Nodes[0].(Group)
	assert.Equal(t, RelationAnd, group.Relation)
	require.Len(t, group.Nodes, 2)
	assert.Equal(t, Condition{Key: "start_date", Compare: CompareLte, Value: "2024-03-31", Cast: CastDate}, group.Nodes[0])
	assert.Equal(t, Condition{Key: "end_date", Compare: CompareGte, Value: "2024-03-01", Cast: CastDate}, group.Nodes[1])
}

func TestBuildOverlapRangeEndOptional(t *testing.T) {
	got := Build(Spec{Clauses: []Clause{
		OverlapRange{
			StartKey:    "start_date",
			EndKey:      "end_date",
			Start:       "2024-03-01",
			End:         "2024-03-31",
			EndOptional: true,
		},
	}})
	require.Len(t, got.Nodes, 1)

	group := got.Nodes[0].(Group)
	require.Len(t, group.Nodes, 2)

	// The end inequality is OR-combined with a NOT EXISTS branch so items
	// lacking an end value stay included.
	orGroup := group.Nodes[1].(Group)
	assert.Equal(t, RelationOr, orGroup.Relation)
	require.Len(t, orGroup.Nodes, 2)
	assert.Equal(t, CompareGte, orGroup.Nodes[0].(Condition).Compare)
	assert.Equal(t, Condition{Key: "end_date", Compare: CompareNotExists}, orGroup.Nodes[1])
}

func TestBuildContainsSerialized(t *testing.T) {
	got := Build(Spec{Clauses: []Clause{
		ContainsSerialized{Key: "tags", Values: []any{"red", 7}},
	}})
	require.Len(t, got.Nodes, 1)

	group := got.Nodes[0].(Group)
	assert.Equal(t, RelationOr, group.Relation)
	require.Len(t, group.Nodes, 2)
	assert.Equal(t, Condition{Key: "tags", Compare: CompareLike, Value: `"red"`}, group.Nodes[0])
	assert.Equal(t, Condition{Key: "tags", Compare: CompareLike, Value: `"7"`}, group.Nodes[1])
}

func TestBuildRaw(t *testing.T) {
	custom := Condition{Key: "anything", Compare: CompareEquals, Value: 1}
	got := Build(Spec{Clauses: []Clause{Raw{Node: custom}}})
	require.Len(t, got.Nodes, 1)
	assert.Equal(t, custom, got.Nodes[0])
}

func TestValueNormalizationByCast(t *testing.T) {
	ts := time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC)

	testCases := []struct {
		name  string
		cast  string
		value any
		want  any
	}{
		{"numeric compacts dates", "NUMERIC", "2024-03-15", "20240315"},
		{"date keeps date shape", "DATE", "2024-03-15 08:30:00", "2024-03-15"},
		{"default goes datetime", "", "2024-03-15", "2024-03-15 00:00:00"},
		{"datetime cast", "DATETIME", "2024-03-15", "2024-03-15 00:00:00"},
		{"time value numeric", "NUMERIC", ts, "20240315"},
		{"time value default", "", ts, "2024-03-15 08:30:00"},
		{"non-date scalar untouched", "NUMERIC", 42, 42},
		{"non-date string untouched", "DATE", "hello", "hello"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Build(Spec{Clauses: []Clause{Equals{Key: "k", Value: tc.value, Cast: tc.cast}}})
			require.Len(t, got.Nodes, 1)
			assert.Equal(t, tc.want, got.Nodes[0].(Condition).Value)
		})
	}
}

func TestNormalizeCast(t *testing.T) {
	testCases := []struct {
		in   string
		want Cast
	}{
		{"int", CastNumeric},
		{"Integer", CastNumeric},
		{"number", CastNumeric},
		{"float", CastDecimal},
		{"double", CastDecimal},
		{"string", CastChar},
		{"text", CastChar},
		{"DATE", CastDate},
		{" datetime ", CastDateTime},
		{"bogus", ""},
		{"", ""},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, NormalizeCast(tc.in), "input %q", tc.in)
	}
}

func TestFromYearsWindowSingle(t *testing.T) {
	win := dateutil.Window{Min: 2020, Max: 2022, Years: []int{2020, 2021, 2022}}
	spec := FromYearsWindow("years_active", ShapeSingle, win)
	require.Len(t, spec.Clauses, 1)
	assert.Equal(t, Range{Key: "years_active", Min: 2020, Max: 2022, Cast: "NUMERIC"}, spec.Clauses[0])
}

func TestFromYearsWindowRows(t *testing.T) {
	win := dateutil.Window{Min: 2020, Max: 2022, Years: []int{2020, 2021, 2022}}
	spec := FromYearsWindow("years_active", ShapeRows, win)
	require.Len(t, spec.Clauses, 1)
	assert.Equal(t, In{Key: "years_active", Values: []any{2020, 2021, 2022}}, spec.Clauses[0])

	// Unknown shape behaves like rows.
	fallback := FromYearsWindow("years_active", StorageShape("mystery"), win)
	assert.Equal(t, spec, fallback)
}

func TestFromYearsWindowSerialized(t *testing.T) {
	win := dateutil.Window{Min: 2020, Max: 2022, Years: []int{2020, 2021, 2022}}
	spec := FromYearsWindow("years_active", ShapeSerialized, win)
	require.Len(t, spec.Clauses, 1)

	rx := spec.Clauses[0].(Regex)
	re := regexp.MustCompile(rx.Pattern)
	assert.True(t, re.MatchString(`i:2021;`))
	assert.True(t, re.MatchString(`s:4:"2021";`))
	assert.False(t, re.MatchString(`s:5:"20210";`))
	assert.False(t, re.MatchString(`i:2019;`))
}

func TestFromYearsWindowEmpty(t *testing.T) {
	assert.True(t, FromYearsWindow("k", ShapeRows, dateutil.Window{}).Empty())
	assert.True(t, FromYearsWindow("", ShapeRows, dateutil.Window{Years: []int{2020}}).Empty())
}

func TestMergeSpecsFlattens(t *testing.T) {
	a := Spec{Relation: RelationAnd, Clauses: []Clause{
		Equals{Key: "a", Value: 1},
		Equals{Key: "b", Value: 2},
	}}
	b := Spec{Relation: RelationOr, Clauses: []Clause{
		Equals{Key: "c", Value: 3},
	}}

	merged := MergeSpecs([]Spec{a, b}, RelationAnd)
	// Clause count is preserved exactly; the child OR relation is not.
	assert.Len(t, merged.Clauses, len(a.Clauses)+len(b.Clauses))
	assert.Equal(t, RelationAnd, merged.Relation)

	merged = MergeSpecs([]Spec{a, {}}, "bogus")
	assert.Equal(t, RelationAnd, merged.Relation)
	assert.Len(t, merged.Clauses, 2)
}

func TestNormalizeRelation(t *testing.T) {
	assert.Equal(t, RelationOr, NormalizeRelation(" or "))
	assert.Equal(t, RelationAnd, NormalizeRelation("AND"))
	assert.Equal(t, RelationAnd, NormalizeRelation("whatever"))
}
