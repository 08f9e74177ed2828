package querysql

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/queryir"
)

func render(sql string, params []any) []byte {
	var b strings.Builder
	b.WriteString(sql)
	b.WriteString("\n-- params\n")
	for i, p := range params {
		fmt.Fprintf(&b, "%d: %v\n", i+1, p)
	}
	return []byte(b.String())
}

func mustPredicate(t *testing.T, f queryir.Filter) queryir.Predicate {
	t.Helper()
	p, err := f.Predicate()
	require.NoError(t, err)
	return p
}

func TestCompile_Golden(t *testing.T) {
	compiler := NewSQLCompiler()

	testCases := []struct {
		name  string
		query func(t *testing.T) queryir.Query
	}{
		{
			name: "select_gated_like",
			query: func(t *testing.T) queryir.Query {
				return queryir.Select{
					Collection: "transactions",
					Filter: mustPredicate(t, queryir.AnyOf(
						queryir.Where(ir.FieldTextTx, queryir.Like, "edeka"),
						queryir.Where(ir.FieldTextTx, queryir.Like, "frankfurt"),
						queryir.Where(ir.FieldPriority, queryir.Lt, 1),
					)),
				}
			},
		},
		{
			name: "update_categorize",
			query: func(t *testing.T) queryir.Query {
				return queryir.Update{
					Collection: "transactions",
					Filter:     queryir.Match{Condition: queryir.Where(ir.FieldUUID, queryir.In, []any{"uuid-a", "uuid-b"})},
					Set:        ir.Document{ir.FieldPriority: 1, ir.FieldCategory: "Supermarkets"},
				}
			},
		},
		{
			name: "delete_nested_not_null",
			query: func(t *testing.T) queryir.Query {
				return &queryir.Delete{
					Collection: "transactions",
					Filter:     &queryir.Match{Condition: queryir.WhereNested(ir.FieldParsed, "Mandatsreferenz", queryir.Ne, nil)},
				}
			},
		},
		{
			name: "select_tags_all",
			query: func(t *testing.T) queryir.Query {
				return queryir.Select{
					Collection: "transactions",
					Filter:     queryir.Match{Condition: queryir.Where(ir.FieldTags, queryir.All, []any{"TestTag1", "TestTag2"})},
				}
			},
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, params, err := compiler.Compile(tc.query(t))
			require.NoError(t, err)
			g.Assert(t, tc.name, render(sql, params))
		})
	}
}

func TestCompile_SelectWithoutFilter(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(&queryir.Select{Collection: "metadata"})
	require.NoError(t, err)

	assert.Equal(t, "SELECT doc FROM documents WHERE collection = ? ORDER BY seq ASC", sql)
	assert.Equal(t, []any{"metadata"}, params)
}

func TestCompile_OrderByMandatory(t *testing.T) {
	compiler := NewSQLCompiler()

	filters := map[string]queryir.Predicate{
		"no filter":  nil,
		"empty and":  queryir.And{},
		"empty or":   queryir.Or{},
		"single eq":  queryir.Match{Condition: queryir.Where(ir.FieldIBAN, queryir.Eq, "DE89370400440532013000")},
		"nested key": queryir.Match{Condition: queryir.WhereNested(ir.FieldParsed, "Gläubiger-ID", queryir.Regex, "^DE")},
	}

	for name, filter := range filters {
		t.Run(name, func(t *testing.T) {
			sql, _, err := compiler.Compile(queryir.Select{Collection: "transactions", Filter: filter})
			require.NoError(t, err)

			// CRITICAL: Every SELECT returns rows in insertion order
			assert.True(t, strings.HasSuffix(sql, "ORDER BY seq ASC"), "missing ORDER BY: %s", sql)
		})
	}
}

func TestCompile_NoStringInterpolation(t *testing.T) {
	compiler := NewSQLCompiler()

	// Use a value that would be dangerous if interpolated
	dangerousValue := "'; DROP TABLE documents; --"

	query := queryir.Select{
		Collection: "transactions",
		Filter:     queryir.Match{Condition: queryir.Where(ir.FieldTextTx, queryir.Eq, dangerousValue)},
	}

	sql, params, err := compiler.Compile(query)
	require.NoError(t, err)

	assert.NotContains(t, sql, dangerousValue,
		"Value MUST NOT be interpolated into SQL (SQL injection risk)")
	assert.Contains(t, params, dangerousValue,
		"Value MUST be in parameters array")
}

func TestCompile_KeysAreParameterized(t *testing.T) {
	compiler := NewSQLCompiler()

	query := queryir.Select{
		Collection: "transactions",
		Filter:     queryir.Match{Condition: queryir.WhereNested(ir.FieldParsed, "Gläubiger-ID", queryir.Eq, "DE7000100000077777")},
	}

	sql, params, err := compiler.Compile(query)
	require.NoError(t, err)

	assert.NotContains(t, sql, "Gläubiger-ID")
	assert.Contains(t, params, `$."parsed"."Gläubiger-ID"`)
}

func TestCompile_EmptyJunctions(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.CompilePredicate(queryir.And{})
	require.NoError(t, err)
	assert.Equal(t, "1", sql)
	assert.Empty(t, params)

	sql, params, err = compiler.CompilePredicate(&queryir.Or{})
	require.NoError(t, err)
	assert.Equal(t, "0", sql)
	assert.Empty(t, params)
}

func TestCompile_EqualsValueShapes(t *testing.T) {
	compiler := NewSQLCompiler()

	testCases := []struct {
		name       string
		value      any
		wantSQL    string
		wantParams []any
	}{
		{
			name:       "null",
			value:      nil,
			wantSQL:    "IFNULL((json_type(doc, ?) IS NULL OR json_type(doc, ?) = 'null'), 0)",
			wantParams: []any{`$."category"`, `$."category"`},
		},
		{
			name:       "bool",
			value:      true,
			wantSQL:    "IFNULL((json_type(doc, ?) = ?), 0)",
			wantParams: []any{`$."category"`, "true"},
		},
		{
			name:       "int becomes float",
			value:      7,
			wantSQL:    "IFNULL((json_type(doc, ?) IN ('integer', 'real') AND json_extract(doc, ?) = ?), 0)",
			wantParams: []any{`$."category"`, `$."category"`, 7.0},
		},
		{
			name:  "numeric string matches number or text",
			value: "4711",
			wantSQL: "IFNULL(((json_type(doc, ?) IN ('integer', 'real') AND json_extract(doc, ?) = ?) OR " +
				"(json_type(doc, ?) = 'text' AND json_extract(doc, ?) = ?)), 0)",
			wantParams: []any{`$."category"`, `$."category"`, 4711.0, `$."category"`, `$."category"`, "4711"},
		},
		{
			name:       "list compares canonical json",
			value:      []string{"b", "a"},
			wantSQL:    "IFNULL((json_type(doc, ?) = ? AND json_extract(doc, ?) = json(?)), 0)",
			wantParams: []any{`$."category"`, "array", `$."category"`, `["b","a"]`},
		},
		{
			name:       "object keys sorted",
			value:      map[string]any{"z": 1, "a": "x"},
			wantSQL:    "IFNULL((json_type(doc, ?) = ? AND json_extract(doc, ?) = json(?)), 0)",
			wantParams: []any{`$."category"`, "object", `$."category"`, `{"a":"x","z":1}`},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, params, err := compiler.CompilePredicate(queryir.Match{
				Condition: queryir.Where(ir.FieldCategory, queryir.Eq, tc.value),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.wantSQL, sql)
			assert.Equal(t, tc.wantParams, params)
		})
	}
}

func TestCompile_OrderingTypeGuard(t *testing.T) {
	compiler := NewSQLCompiler()

	// Numeric strings are coerced; other strings compare as text.
	sql, params, err := compiler.CompilePredicate(queryir.Match{Condition: queryir.Where(ir.FieldAmount, queryir.Ge, "-99.58")})
	require.NoError(t, err)
	assert.Contains(t, sql, "IN ('integer', 'real')")
	assert.Equal(t, -99.58, params[2])

	sql, params, err = compiler.CompilePredicate(queryir.Match{Condition: queryir.Where(ir.FieldTextTx, queryir.Lt, "M")})
	require.NoError(t, err)
	assert.Contains(t, sql, "= 'text'")
	assert.Contains(t, sql, "json_extract(doc, ?) < ?")
	assert.Equal(t, "M", params[2])
}

func TestCompile_NegationsWrapWholeAtom(t *testing.T) {
	compiler := NewSQLCompiler()

	for _, cmp := range []queryir.Compare{queryir.Ne, queryir.NotIn} {
		t.Run(string(cmp), func(t *testing.T) {
			sql, _, err := compiler.CompilePredicate(queryir.Match{Condition: queryir.Where(ir.FieldTags, cmp, "TestTag1")})
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(sql, "NOT IFNULL(("), sql)
		})
	}
}

func TestCompile_EmptySetOperands(t *testing.T) {
	compiler := NewSQLCompiler()

	testCases := map[queryir.Compare]string{
		queryir.In:    "IFNULL((0), 0)",
		queryir.NotIn: "NOT IFNULL((0), 0)",
		queryir.All:   "IFNULL((1), 0)",
	}

	for cmp, want := range testCases {
		t.Run(string(cmp), func(t *testing.T) {
			sql, params, err := compiler.CompilePredicate(queryir.Match{Condition: queryir.Where(ir.FieldTags, cmp, []any{})})
			require.NoError(t, err)
			assert.Equal(t, want, sql)
			assert.Empty(t, params)
		})
	}
}

func TestCompile_LikeFoldsNeedle(t *testing.T) {
	compiler := NewSQLCompiler()

	_, params, err := compiler.CompilePredicate(queryir.Match{Condition: queryir.Where(ir.FieldTextTx, queryir.Like, "EDEKA München")})
	require.NoError(t, err)
	assert.Equal(t, "edeka münchen", params[2])
}

func TestCompile_Errors(t *testing.T) {
	compiler := NewSQLCompiler()

	testCases := []struct {
		name  string
		query queryir.Query
		want  string
	}{
		{
			name:  "nil query",
			query: nil,
			want:  "nil query",
		},
		{
			name:  "missing collection",
			query: queryir.Select{},
			want:  "collection is required",
		},
		{
			name:  "empty set",
			query: queryir.Update{Collection: "transactions"},
			want:  "nothing to set",
		},
		{
			name:  "uuid is immutable",
			query: queryir.Update{Collection: "transactions", Set: ir.Document{ir.FieldUUID: "x"}},
			want:  "immutable",
		},
		{
			name: "invalid condition",
			query: queryir.Delete{
				Collection: "transactions",
				Filter:     queryir.Match{Condition: queryir.Where(ir.FieldTextTx, queryir.Regex, "(")},
			},
			want: "regex",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := compiler.Compile(tc.query)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestCompile_InvalidConditionIsValidationError(t *testing.T) {
	compiler := NewSQLCompiler()

	_, _, err := compiler.CompilePredicate(queryir.Match{Condition: queryir.Where(ir.FieldAmount, "between", 1)})
	require.Error(t, err)
	assert.True(t, queryir.IsValidationError(err))
}
