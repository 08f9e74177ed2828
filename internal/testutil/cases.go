package testutil

import "github.com/roach88/txtag/internal/queryir"

// ConditionCase is one row of the comparator truth table over the fixture.
type ConditionCase struct {
	Name   string
	Filter queryir.Filter
	// Want holds the indices (into FixtureTransactions) of the matching records.
	Want []int
}

// ConditionCases returns the comparator truth table shared by the matcher
// tests and the backend parity tests.
func ConditionCases() []ConditionCase {
	w := queryir.Where
	kfn := `KFN\s[0-9]\s[A-Z]{2}\s[0-9]{3,4}`

	return []ConditionCase{
		{"no filter", queryir.Filter{}, []int{0, 1, 2, 3, 4}},
		{"lt", queryir.AllOf(w("amount", queryir.Lt, -100)), []int{1, 4}},
		{"le", queryir.AllOf(w("amount", queryir.Le, -71.35)), []int{1, 2, 3, 4}},
		{"gt", queryir.AllOf(w("amount", queryir.Gt, -100)), []int{0, 2, 3}},
		{"ge", queryir.AllOf(w("amount", queryir.Ge, -99.58)), []int{0, 2, 3}},
		{"lt numeric string", queryir.AllOf(w("amount", queryir.Lt, "-100")), []int{1, 4}},
		{"ge date string", queryir.AllOf(w("date_tx", queryir.Ge, "1672704000")), []int{2, 3, 4}},
		{"lt lexical", queryir.AllOf(w("currency", queryir.Lt, "F")), []int{0, 1, 2, 3, 4}},
		{"eq number", queryir.AllOf(w("amount", queryir.Eq, -99.58)), []int{2}},
		{"eq numeric string", queryir.AllOf(w("amount", queryir.Eq, "-99.58")), []int{2}},
		{"ne numeric string", queryir.AllOf(w("amount", queryir.Ne, "-99.58")), []int{0, 1, 3, 4}},
		{"eq numeric string on text", queryir.AllOf(queryir.WhereNested("parsed", "Mandatsreferenz", queryir.Eq, "1111111")), []int{}},
		{"eq string", queryir.AllOf(w("art", queryir.Eq, "Lastschrift")), []int{0, 1, 2, 3, 4}},
		{"default compare is eq", queryir.AllOf(queryir.Condition{Key: queryir.FieldKey("amount"), Value: -71.35}), []int{3}},
		{"ne", queryir.AllOf(w("valuta", queryir.Ne, ValutaDefault)), []int{0}},
		{"eq null", queryir.AllOf(w("category", queryir.Eq, nil)), []int{0, 1, 2, 3, 4}},
		{"ne null", queryir.AllOf(w("category", queryir.Ne, nil)), []int{}},
		{"eq empty list", queryir.AllOf(w("tags", queryir.Eq, []string{})), []int{0, 1, 3}},
		{"ne empty list", queryir.AllOf(w("tags", queryir.Ne, []string{})), []int{2, 4}},
		{"eq list in order", queryir.AllOf(w("tags", queryir.Eq, []string{"TestTag1", "TestTag2"})), []int{4}},
		{"like", queryir.AllOf(w("text_tx", queryir.Like, "Garten")), []int{1}},
		{"like folds case", queryir.AllOf(w("text_tx", queryir.Like, "MÜNCHEN")), []int{2}},
		{"regex", queryir.AllOf(w("text_tx", queryir.Regex, kfn)), []int{0, 1, 2, 3}},
		{"regex is case sensitive", queryir.AllOf(w("text_tx", queryir.Regex, "edeka")), []int{}},
		{"in list", queryir.AllOf(w("tags", queryir.In, []string{"TestTag1", "TestTag3"})), []int{2, 4}},
		{"in scalar", queryir.AllOf(w("tags", queryir.In, "TestTag3")), []int{2}},
		{"in scalar field", queryir.AllOf(w("art", queryir.In, []string{"Lastschrift", "Gutschrift"})), []int{0, 1, 2, 3, 4}},
		{"in missing field", queryir.AllOf(w("nothing", queryir.In, []string{"x"})), []int{}},
		{"notin", queryir.AllOf(w("tags", queryir.NotIn, []string{"TestTag1"})), []int{0, 1, 2, 3}},
		{"notin missing field", queryir.AllOf(w("nothing", queryir.NotIn, []string{"x"})), []int{0, 1, 2, 3, 4}},
		{"all", queryir.AllOf(w("tags", queryir.All, []string{"TestTag1", "TestTag2"})), []int{4}},
		{"all order independent", queryir.AllOf(w("tags", queryir.All, []string{"TestTag2", "TestTag1"})), []int{4}},
		{"all partial", queryir.AllOf(w("tags", queryir.All, []string{"TestTag1", "TestTag3"})), []int{}},
		{"nested eq", queryir.AllOf(queryir.WhereNested("parsed", "Mandatsreferenz", queryir.Eq, "M1111111")), []int{4}},
		{"nested regex", queryir.AllOf(queryir.WhereNested("parsed", "Mandatsreferenz", queryir.Regex, "^M1")), []int{4}},
		{"nested missing eq null", queryir.AllOf(queryir.WhereNested("parsed", "Gläubiger-ID", queryir.Eq, nil)), []int{0, 1, 2, 3, 4}},
		{"nested key is not top level", queryir.AllOf(w("Mandatsreferenz", queryir.Eq, "M1111111")), []int{}},
		{
			"and list",
			queryir.AllOf(
				w("text_tx", queryir.Like, "Kartenzahlung"),
				w("amount", queryir.Gt, -100),
				w("amount", queryir.Lt, -50),
			),
			[]int{2, 3},
		},
		{
			"or list",
			queryir.AnyOf(
				w("text_tx", queryir.Like, "München"),
				w("text_tx", queryir.Like, "Frankfurt"),
				w("text_tx", queryir.Like, "FooBar"),
			),
			[]int{2, 3},
		},
		{
			"priority gate with or",
			queryir.AnyOf(
				w("priority", queryir.Lt, 1),
				w("text_tx", queryir.Like, "EDEKA"),
				w("text_tx", queryir.Like, "Penny"),
			),
			[]int{2},
		},
		{
			"priority gate blocks",
			queryir.AnyOf(
				w("priority", queryir.Gt, 0),
				w("text_tx", queryir.Like, "EDEKA"),
			),
			[]int{},
		},
	}
}

// Pick returns the uuids of the fixture documents at the given indices.
func Pick(indices []int) []string {
	docs := FixtureDocuments()
	ids := make([]string, 0, len(indices))
	for _, i := range indices {
		ids = append(ids, docs[i].UUID())
	}
	return ids
}
