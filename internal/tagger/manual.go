package tagger

import (
	"context"
	"fmt"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/queryir"
)

// ManualRuleName labels manual overrides in a Result.
const ManualRuleName = "manual"

func byUUID(uuid string) queryir.Filter {
	return queryir.AllOf(queryir.Where(ir.FieldUUID, queryir.Eq, uuid))
}

// SetManualTagAndCat sets tags and/or the category of one record directly.
// Tags are merged unless overwrite is set. A category is written at the
// configured manual priority regardless of the record's current priority.
func (t *Tagger) SetManualTagAndCat(ctx context.Context, iban, uuid string, tags []string, category *string, overwrite bool) (Result, error) {
	if uuid == "" {
		return Result{}, queryir.NewValidationError(ir.FieldUUID, "uuid is required")
	}
	if len(tags) == 0 && category == nil {
		return Result{}, queryir.NewValidationError("manual", "nothing to set: give tags or a category")
	}
	if err := t.writable(ctx, iban); err != nil {
		return Result{}, err
	}

	c := newCollector()
	updated := 0
	if len(tags) > 0 {
		res, err := t.store.Update(ctx, iban, ir.Document{ir.FieldTags: stringsToAny(tags)}, byUUID(uuid), !overwrite)
		if err != nil {
			return c.result(), fmt.Errorf("manual tags %s: %w", uuid, err)
		}
		updated = max(updated, res.Updated)
	}
	if category != nil {
		prios, err := t.store.Priorities(ctx)
		if err != nil {
			return c.result(), err
		}
		res, err := t.store.Update(ctx, iban, ir.Document{
			ir.FieldCategory: *category,
			ir.FieldPriority: prios.Manual,
		}, byUUID(uuid), false)
		if err != nil {
			return c.result(), fmt.Errorf("manual category %s: %w", uuid, err)
		}
		updated = max(updated, res.Updated)
	}

	t.record(c, uuid, updated)
	t.logger.Info("manual override", "uuid", uuid, "tags", tags, "category", category, "overwrite", overwrite)
	return c.result(), nil
}

// RemoveTags clears the tags of one record.
func (t *Tagger) RemoveTags(ctx context.Context, iban, uuid string) (Result, error) {
	return t.reset(ctx, iban, uuid, ir.Document{ir.FieldTags: []any{}})
}

// RemoveCat clears the category of one record and resets its priority, so
// any rule may categorize it again.
func (t *Tagger) RemoveCat(ctx context.Context, iban, uuid string) (Result, error) {
	return t.reset(ctx, iban, uuid, ir.Document{ir.FieldCategory: nil, ir.FieldPriority: 0})
}

func (t *Tagger) reset(ctx context.Context, iban, uuid string, data ir.Document) (Result, error) {
	if uuid == "" {
		return Result{}, queryir.NewValidationError(ir.FieldUUID, "uuid is required")
	}
	if err := t.writable(ctx, iban); err != nil {
		return Result{}, err
	}
	c := newCollector()
	res, err := t.store.Update(ctx, iban, data, byUUID(uuid), false)
	if err != nil {
		return c.result(), fmt.Errorf("reset %s: %w", uuid, err)
	}
	t.record(c, uuid, res.Updated)
	return c.result(), nil
}

// record counts a single-record write as one match of the manual rule.
func (t *Tagger) record(c *collector, uuid string, updated int) {
	c.rule(ManualRuleName)
	if updated > 0 {
		c.matched(ManualRuleName, []string{uuid})
	}
	c.updated(updated)
}
