package taxquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNormalizesEnums(t *testing.T) {
	tree := Build(Spec{
		Relation: "or",
		Filters: []Filter{
			{Taxonomy: "category", Terms: []string{"news"}, MatchField: "ID", Operator: "not in"},
			{Taxonomy: "region", Terms: []string{"EMEA"}, MatchField: "bogus", Operator: "bogus"},
		},
	})

	require.Len(t, tree.Clauses, 2)
	assert.Equal(t, RelationOr, tree.Relation)

	assert.Equal(t, MatchTermID, tree.Clauses[0].MatchField)
	assert.Equal(t, OpNotIn, tree.Clauses[0].Operator)

	// Unrecognized enum input falls back rather than failing.
	assert.Equal(t, MatchSlug, tree.Clauses[1].MatchField)
	assert.Equal(t, OpIn, tree.Clauses[1].Operator)
}

func TestBuildSlugNormalizesTerms(t *testing.T) {
	tree := Build(Spec{Filters: []Filter{
		{Taxonomy: "category", Terms: []string{" Press-Releases ", "Café"}},
		{Taxonomy: "category", Terms: []string{"Breaking News"}, MatchField: "name"},
	}})

	require.Len(t, tree.Clauses, 2)
	// Slug-matched terms are slug-normalized; name matches keep their case.
	assert.Equal(t, []string{"press-releases", "café"}, tree.Clauses[0].Terms)
	assert.Equal(t, []string{"Breaking News"}, tree.Clauses[1].Terms)
}

func TestBuildDropsEmptyFilters(t *testing.T) {
	tree := Build(Spec{Filters: []Filter{
		{Taxonomy: "category", Terms: []string{"  ", ""}},
		{Taxonomy: "", Terms: []string{"news"}},
		{Taxonomy: "category", Terms: []string{" news "}},
	}})

	require.Len(t, tree.Clauses, 1)
	assert.Equal(t, []string{"news"}, tree.Clauses[0].Terms)
}

func TestBuildAllEmptyYieldsEmptyTree(t *testing.T) {
	tree := Build(Spec{Relation: "OR", Filters: []Filter{
		{Taxonomy: "category", Terms: nil},
	}})
	assert.True(t, tree.Empty())
	assert.Empty(t, tree.Relation)
}

func TestBuildDescendants(t *testing.T) {
	tree := Build(Spec{Filters: []Filter{
		{Taxonomy: "category", Terms: []string{"news"}},
		{Taxonomy: "category", Terms: []string{"press"}, ExcludeDescendants: true},
	}})

	require.Len(t, tree.Clauses, 2)
	assert.True(t, tree.Clauses[0].IncludeDescendants)
	assert.False(t, tree.Clauses[1].IncludeDescendants)
}

func TestFromMapExclusionShorthand(t *testing.T) {
	spec := FromMap(map[string][]string{
		"category": {"news", "-press"},
	})

	require.Len(t, spec.Filters, 2)
	assert.Equal(t, Filter{Taxonomy: "category", Terms: []string{"news"}}, spec.Filters[0])
	assert.Equal(t, Filter{Taxonomy: "category", Terms: []string{"press"}, Operator: "NOT IN"}, spec.Filters[1])

	// Exclusions keep descendant matching so "-press" removes the whole
	// press subtree.
	tree := Build(spec)
	require.Len(t, tree.Clauses, 2)
	assert.Equal(t, OpIn, tree.Clauses[0].Operator)
	assert.Equal(t, OpNotIn, tree.Clauses[1].Operator)
	assert.True(t, tree.Clauses[1].IncludeDescendants)
}

func TestFromMapDeterministicOrder(t *testing.T) {
	spec := FromMap(map[string][]string{
		"region":   {"emea"},
		"category": {"news"},
		"audience": {"staff"},
	})

	require.Len(t, spec.Filters, 3)
	assert.Equal(t, "audience", spec.Filters[0].Taxonomy)
	assert.Equal(t, "category", spec.Filters[1].Taxonomy)
	assert.Equal(t, "region", spec.Filters[2].Taxonomy)
}

func TestFromMapDropsEmpties(t *testing.T) {
	spec := FromMap(map[string][]string{
		"category": {"", "  ", "-", "- "},
		"region":   {},
	})
	assert.Empty(t, spec.Filters)
}

func TestNormalizeOperator(t *testing.T) {
	testCases := []struct {
		in   string
		want Operator
	}{
		{"in", OpIn},
		{" NOT IN ", OpNotIn},
		{"and", OpAnd},
		{"exists", OpExists},
		{"not exists", OpNotExists},
		{"union", OpIn},
		{"", OpIn},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, NormalizeOperator(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeMatchField(t *testing.T) {
	testCases := []struct {
		in   string
		want MatchField
	}{
		{"slug", MatchSlug},
		{"term_id", MatchTermID},
		{"id", MatchTermID},
		{"Name", MatchName},
		{"TERM_TAXONOMY_ID", MatchTermTaxonomyID},
		{"nonsense", MatchSlug},
		{"", MatchSlug},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, NormalizeMatchField(tc.in), "input %q", tc.in)
	}
}
