// Package tagger applies tagging and categorization rules to the
// transaction records of one collection.
//
// Tags are merged: applying a rule adds its tags to whatever a record
// already carries. Categories are gated by priority: a rule running at
// priority p only touches records whose stored priority is below p, and
// writes its prio_set (default p) as the record's new priority. A category
// written at priority 99 by a manual override is therefore never replaced
// by a rule running at the default priority 1.
//
// The priority gate is always ANDed onto a rule's conditions, even when
// the rule combines its own conditions with OR.
//
// Every operation supports a dry run, which reports what would match
// without writing anything.
package tagger
