// Package harness runs end-to-end tagging scenarios against a real store.
//
// A scenario seeds a collection, runs a flow of store and tagger operations
// and then checks the trace and the final records. The same scenario runs on
// every backend; its golden snapshot is shared, so a difference between
// backends shows up as a golden mismatch.
//
// # Scenario Format
//
//	name: priority_gate
//	description: "Higher-priority categories are never overwritten"
//	fixture: true
//	records:
//	  - { date_tx: 9, amount: 2500, text_tx: "Gehalt" }
//	metadata:
//	  - { metatype: rule, name: Garden, category: Garten, prio: 2,
//	      filter: [{ key: text_tx, compare: like, value: garten }] }
//	flow:
//	  - op: categorize
//	    expect:
//	      result: { updated: 3 }
//	  - op: manual
//	    args: { record: 1, category: Garten }
//	  - op: tag_and_cat
//	    args: { tag_rule: Missing }
//	    expect: { error: rule_not_found }
//	assertions:
//	  - type: final_state
//	    record: 1
//	    expect: { category: Garten, priority: 99 }
//	  - type: count
//	    filter: [{ key: category, value: Garten }]
//	    count: 1
//
// Records are referred to by their seed position: fixture records first,
// then the scenario's own records, then records inserted by the flow.
//
// # Operations
//
// insert, update, delete, set_metadata and add_group drive the store.
// parse runs the stored parsers over the seeded records and writes the
// result back. tag, categorize, tag_and_cat, custom, manual, remove_tags,
// remove_cat and classify drive the tagger. The classifier is seeded, so
// classify is deterministic.
//
// # Assertion Types
//
//   - trace_contains: an operation of the given kind ran and succeeded
//   - trace_count: an operation ran exactly N times
//   - final_state: a record's fields match the expected subset
//   - count: a filter selects exactly N records
package harness
