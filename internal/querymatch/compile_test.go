package querymatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/queryir"
	"github.com/roach88/txtag/internal/testutil"
)

func filterDocs(t *testing.T, f queryir.Filter, docs []ir.Document) []string {
	t.Helper()
	pred, err := f.Predicate()
	require.NoError(t, err)
	match, err := Compile(pred)
	require.NoError(t, err)

	ids := []string{}
	for _, d := range docs {
		if match(d) {
			ids = append(ids, d.UUID())
		}
	}
	return ids
}

func TestCompile_ComparatorTruthTable(t *testing.T) {
	docs := testutil.FixtureDocuments()

	for _, tc := range testutil.ConditionCases() {
		t.Run(tc.Name, func(t *testing.T) {
			got := filterDocs(t, tc.Filter, docs)
			assert.ElementsMatch(t, testutil.Pick(tc.Want), got)
		})
	}
}

func TestCompile_NilPredicateMatchesAll(t *testing.T) {
	match, err := Compile(nil)
	require.NoError(t, err)
	assert.True(t, match(ir.Document{}))
}

func TestCompile_PointerVariants(t *testing.T) {
	docs := testutil.FixtureDocuments()
	garten := queryir.Match{Condition: queryir.Where("text_tx", queryir.Like, "garten")}
	edeka := queryir.Match{Condition: queryir.Where("text_tx", queryir.Like, "edeka")}

	match, err := Compile(&queryir.Or{Predicates: []queryir.Predicate{&garten, &edeka}})
	require.NoError(t, err)

	count := 0
	for _, d := range docs {
		if match(d) {
			count++
		}
	}
	assert.Equal(t, 2, count)

	match, err = Compile(&queryir.And{Predicates: []queryir.Predicate{garten, edeka}})
	require.NoError(t, err)
	for _, d := range docs {
		assert.False(t, match(d))
	}
}

func TestCompile_EmptyCompositions(t *testing.T) {
	and, err := Compile(queryir.And{})
	require.NoError(t, err)
	assert.True(t, and(ir.Document{}), "empty AND is vacuously true")

	or, err := Compile(queryir.Or{})
	require.NoError(t, err)
	assert.False(t, or(ir.Document{}), "empty OR is false")
}

func TestCompile_RejectsInvalidConditions(t *testing.T) {
	tests := []struct {
		name string
		cond queryir.Condition
	}{
		{"unknown comparator", queryir.Where("amount", "~=", 1)},
		{"bad regex", queryir.Where("text_tx", queryir.Regex, "(unclosed")},
		{"like with number", queryir.Where("text_tx", queryir.Like, 12)},
		{"empty key", queryir.Where("", queryir.Eq, 1)},
		{"ordering with list", queryir.Where("amount", queryir.Lt, []int{1})},
		{"in with object", queryir.Where("tags", queryir.In, map[string]any{"a": 1})},
		{"in with null", queryir.Where("tags", queryir.In, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(queryir.Match{Condition: tt.cond})
			require.Error(t, err)
			assert.True(t, queryir.IsValidationError(err))
		})
	}
}

func TestCompile_SetOperandIsOrderIndependent(t *testing.T) {
	doc := ir.Document{"tags": []any{"b", "a", "c"}}

	for _, operand := range [][]string{{"a", "b"}, {"b", "a"}, {"c", "a", "b"}} {
		match, err := Compile(queryir.Match{Condition: queryir.Where("tags", queryir.All, operand)})
		require.NoError(t, err)
		assert.True(t, match(doc), "%v", operand)
	}
}

func TestCompile_SetKeepsTypesDistinct(t *testing.T) {
	doc := ir.Document{"refs": []any{"1", 2.0}}

	match, err := Compile(queryir.Match{Condition: queryir.Where("refs", queryir.In, []any{1})})
	require.NoError(t, err)
	assert.False(t, match(doc), "number 1 must not match string \"1\"")

	match, err = Compile(queryir.Match{Condition: queryir.Where("refs", queryir.In, []any{2})})
	require.NoError(t, err)
	assert.True(t, match(doc))
}

func TestCompile_EqualityNumericString(t *testing.T) {
	docs := []ir.Document{
		{"uuid": "n", "v": 4711.0},
		{"uuid": "s", "v": "4711"},
		{"uuid": "x", "v": "4711.0"},
	}

	assert.Equal(t, []string{"n", "s"}, filterDocs(t, queryir.AllOf(queryir.Where("v", queryir.Eq, "4711")), docs))
	assert.Equal(t, []string{"x"}, filterDocs(t, queryir.AllOf(queryir.Where("v", queryir.Ne, "4711")), docs))
	assert.Equal(t, []string{"n"}, filterDocs(t, queryir.AllOf(queryir.Where("v", queryir.Eq, 4711)), docs))
}

func TestCompile_OrderingSkipsMismatchedTypes(t *testing.T) {
	docs := []ir.Document{
		{"v": "abc"},
		{"v": 5.0},
		{"v": nil},
		{},
	}
	match, err := Compile(queryir.Match{Condition: queryir.Where("v", queryir.Gt, 1)})
	require.NoError(t, err)

	var hits []int
	for i, d := range docs {
		if match(d) {
			hits = append(hits, i)
		}
	}
	assert.Equal(t, []int{1}, hits)
}
