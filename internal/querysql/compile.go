package querysql

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/pattern"
	"github.com/roach88/txtag/internal/queryir"
)

// Table is the single table holding every collection's documents.
//
//	documents(seq INTEGER PRIMARY KEY, collection TEXT, uuid TEXT, doc TEXT)
//	UNIQUE(collection, uuid)
const Table = "documents"

// SQLCompiler compiles QueryIR to parameterized SQLite statements over the
// JSON document column.
//
// The generated SQL relies on two application-defined functions that the
// connection must register: regexp(pattern, value) and casefold(value).
//
// CRITICAL: Every SELECT orders by insertion sequence for deterministic results.
// CRITICAL: All values and JSON paths are parameterized, never interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a QueryIR statement to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Update:
		return c.compileUpdate(query)
	case *queryir.Update:
		return c.compileUpdate(*query)
	case queryir.Delete:
		return c.compileDelete(query)
	case *queryir.Delete:
		return c.compileDelete(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect compiles a queryir.Select.
func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	where, params, err := c.compileWhere(q.Collection, q.Filter)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT doc FROM %s WHERE %s ORDER BY seq ASC", Table, where)
	return sql, params, nil
}

// compileUpdate compiles a queryir.Update into a single UPDATE whose
// json_set call overwrites each named top-level field.
func (c *SQLCompiler) compileUpdate(q queryir.Update) (string, []any, error) {
	if len(q.Set) == 0 {
		return "", nil, fmt.Errorf("update: nothing to set")
	}

	// Sort keys for deterministic output (testing)
	keys := q.Set.Keys()

	var setArgs []string
	var params []any
	for _, key := range keys {
		if key == ir.FieldUUID {
			return "", nil, fmt.Errorf("update: %s is immutable", ir.FieldUUID)
		}
		raw, err := encodeJSON(q.Set[key])
		if err != nil {
			return "", nil, fmt.Errorf("update: field %q: %w", key, err)
		}
		setArgs = append(setArgs, "?, json(?)")
		params = append(params, jsonPath(queryir.FieldKey(key)), raw)
	}

	where, whereParams, err := c.compileWhere(q.Collection, q.Filter)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf("UPDATE %s SET doc = json_set(doc, %s) WHERE %s",
		Table, strings.Join(setArgs, ", "), where)
	return sql, append(params, whereParams...), nil
}

// compileDelete compiles a queryir.Delete.
func (c *SQLCompiler) compileDelete(q queryir.Delete) (string, []any, error) {
	where, params, err := c.compileWhere(q.Collection, q.Filter)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", Table, where), params, nil
}

// compileWhere scopes a predicate to one collection.
func (c *SQLCompiler) compileWhere(collection string, filter queryir.Predicate) (string, []any, error) {
	if collection == "" {
		return "", nil, fmt.Errorf("collection is required")
	}
	where := "collection = ?"
	params := []any{collection}
	if filter == nil {
		return where, params, nil
	}

	filterSQL, filterParams, err := c.CompilePredicate(filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return where + " AND " + filterSQL, append(params, filterParams...), nil
}

// CompilePredicate compiles a predicate to a WHERE clause fragment.
// A nil predicate compiles to the constant true.
//
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) CompilePredicate(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "1", nil, nil
	}

	switch pred := p.(type) {
	case queryir.Match:
		return c.compileMatch(pred.Condition)
	case *queryir.Match:
		return c.compileMatch(pred.Condition)
	case queryir.And:
		return c.compileJunction(pred.Predicates, "AND", "1")
	case *queryir.And:
		return c.compileJunction(pred.Predicates, "AND", "1")
	case queryir.Or:
		return c.compileJunction(pred.Predicates, "OR", "0")
	case *queryir.Or:
		return c.compileJunction(pred.Predicates, "OR", "0")
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileJunction joins sub-predicates with op. An empty junction compiles
// to its identity element.
func (c *SQLCompiler) compileJunction(preds []queryir.Predicate, op, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}

	var parts []string
	var params []any
	for i, p := range preds {
		sql, ps, err := c.CompilePredicate(p)
		if err != nil {
			return "", nil, fmt.Errorf("predicate %d: %w", i, err)
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")", params, nil
}

// compileMatch compiles one condition. Every atom is wrapped in IFNULL so it
// evaluates to exactly 0 or 1; NOT over a NULL atom would otherwise drop
// rows that a missing field should let through.
func (c *SQLCompiler) compileMatch(cond queryir.Condition) (string, []any, error) {
	cond, err := cond.Normalize()
	if err != nil {
		return "", nil, err
	}
	path := jsonPath(cond.Key)

	var sql string
	var params []any
	switch cond.Compare {
	case queryir.Eq:
		sql, params, err = equalsExpr(path, cond.Value)
	case queryir.Ne:
		sql, params, err = equalsExpr(path, cond.Value)
		if err == nil {
			return "NOT " + atom(sql), params, nil
		}
	case queryir.Lt, queryir.Le, queryir.Gt, queryir.Ge:
		sql, params = orderingExpr(path, cond.Compare, cond.Value)
	case queryir.Like:
		sql = "json_type(doc, ?) = 'text' AND instr(casefold(json_extract(doc, ?)), ?) > 0"
		params = []any{path, path, pattern.Fold(cond.Value.(string))}
	case queryir.Regex:
		sql = "json_type(doc, ?) = 'text' AND regexp(?, json_extract(doc, ?))"
		params = []any{path, cond.Value.(string), path}
	case queryir.In:
		sql, params = anyMemberExpr(path, cond.Value.([]any))
	case queryir.NotIn:
		sql, params = anyMemberExpr(path, cond.Value.([]any))
		return "NOT " + atom(sql), params, nil
	case queryir.All:
		sql, params = allMembersExpr(path, cond.Value.([]any))
	default:
		return "", nil, queryir.NewValidationError("compare", fmt.Sprintf("unknown comparator %q", cond.Compare))
	}
	if err != nil {
		return "", nil, err
	}
	return atom(sql), params, nil
}

func atom(sql string) string {
	return "IFNULL((" + sql + "), 0)"
}

// equalsExpr compiles structural equality. A missing field equals null.
func equalsExpr(path string, value any) (string, []any, error) {
	switch v := value.(type) {
	case nil:
		return "json_type(doc, ?) IS NULL OR json_type(doc, ?) = 'null'", []any{path, path}, nil
	case bool:
		return "json_type(doc, ?) = ?", []any{path, boolType(v)}, nil
	case float64:
		return "json_type(doc, ?) IN ('integer', 'real') AND json_extract(doc, ?) = ?", []any{path, path, v}, nil
	case string:
		if f, ok := ir.ParseNumber(v); ok {
			return "(json_type(doc, ?) IN ('integer', 'real') AND json_extract(doc, ?) = ?) OR " +
				"(json_type(doc, ?) = 'text' AND json_extract(doc, ?) = ?)", []any{path, path, f, path, path, v}, nil
		}
		return "json_type(doc, ?) = 'text' AND json_extract(doc, ?) = ?", []any{path, path, v}, nil
	case []any, map[string]any:
		raw, err := encodeJSON(v)
		if err != nil {
			return "", nil, err
		}
		kind := "array"
		if _, ok := v.(map[string]any); ok {
			kind = "object"
		}
		return "json_type(doc, ?) = ? AND json_extract(doc, ?) = json(?)", []any{path, kind, path, raw}, nil
	default:
		return "", nil, fmt.Errorf("unsupported value type %T", value)
	}
}

// orderingExpr compiles <, <=, >, >=. Values of a different JSON type than
// the operand never match, mirroring the in-memory matcher; SQLite would
// otherwise order every number before every string.
func orderingExpr(path string, cmp queryir.Compare, value any) (string, []any) {
	typeGuard := "json_type(doc, ?) = 'text'"
	if _, ok := value.(float64); ok {
		typeGuard = "json_type(doc, ?) IN ('integer', 'real')"
	}
	sql := fmt.Sprintf("%s AND json_extract(doc, ?) %s ?", typeGuard, cmp)
	return sql, []any{path, path, value}
}

// anyMemberExpr is true when any element of the sequence at path equals one
// of values. json_each yields a single row for a scalar and none for a
// missing field; objects are excluded explicitly.
func anyMemberExpr(path string, values []any) (string, []any) {
	if len(values) == 0 {
		return "0", nil
	}
	member, memberParams := memberClause(values)
	sql := "json_type(doc, ?) IS NOT 'object' AND EXISTS (SELECT 1 FROM json_each(doc, ?) AS e WHERE " + member + ")"
	return sql, append([]any{path, path}, memberParams...)
}

// allMembersExpr is true when every one of values occurs in the sequence.
func allMembersExpr(path string, values []any) (string, []any) {
	if len(values) == 0 {
		return "1", nil
	}
	parts := []string{"json_type(doc, ?) IS NOT 'object'"}
	params := []any{path}
	for _, v := range values {
		member, memberParams := memberClause([]any{v})
		parts = append(parts, "EXISTS (SELECT 1 FROM json_each(doc, ?) AS e WHERE "+member+")")
		params = append(params, path)
		params = append(params, memberParams...)
	}
	return strings.Join(parts, " AND "), params
}

// memberClause matches a json_each row against scalar values, comparing
// JSON types as well as values so the string "1" never equals the number 1.
func memberClause(values []any) (string, []any) {
	var parts []string
	var params []any
	for _, v := range values {
		switch val := v.(type) {
		case bool:
			parts = append(parts, "e.type = ?")
			params = append(params, boolType(val))
		case string:
			parts = append(parts, "(e.type = 'text' AND e.value = ?)")
			params = append(params, val)
		default:
			f, _ := ir.ToFloat(val)
			parts = append(parts, "(e.type IN ('integer', 'real') AND e.value = ?)")
			params = append(params, f)
		}
	}
	return "(" + strings.Join(parts, " OR ") + ")", params
}

func boolType(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// jsonPath renders a key as a quoted SQLite JSON path, e.g. $."parsed"."Gläubiger-ID".
func jsonPath(k queryir.Key) string {
	var b strings.Builder
	b.WriteString("$")
	for _, name := range k.Path() {
		b.WriteString(`."`)
		b.WriteString(name)
		b.WriteString(`"`)
	}
	return b.String()
}

func encodeJSON(v any) (string, error) {
	norm, err := ir.Normalize(v)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(norm)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
