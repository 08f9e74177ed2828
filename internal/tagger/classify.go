package tagger

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/metadata"
	"github.com/roach88/txtag/internal/queryir"
)

// ClassifierRuleName labels classifier runs in a Result.
const ClassifierRuleName = "classifier"

// Classify asks the classifier for a category for every uncategorized
// record below the priority gate. RuleName in opts is ignored.
func (t *Tagger) Classify(ctx context.Context, iban string, opts CategorizeOptions) (Result, error) {
	if t.classifier == nil {
		return Result{}, errors.New("classify: no classifier configured")
	}
	if !opts.DryRun {
		if err := t.writable(ctx, iban); err != nil {
			return Result{}, err
		}
	}
	defaults, err := t.store.Priorities(ctx)
	if err != nil {
		return Result{}, err
	}
	prio, prioSet := priorities(metadata.Rule{}, opts.Prio, opts.PrioSet, defaults)

	candidates, err := t.store.Select(ctx, iban, queryir.AllOf(
		queryir.Where(ir.FieldCategory, queryir.Eq, nil),
		queryir.Where(ir.FieldPriority, queryir.Lt, prio),
	))
	if err != nil {
		return Result{}, fmt.Errorf("classify: %w", err)
	}

	c := newCollector()
	c.rule(ClassifierRuleName)
	for _, doc := range candidates {
		category, ok, err := t.classifier.Classify(ctx, doc)
		if err != nil {
			return c.result(), fmt.Errorf("classify %s: %w", doc.UUID(), err)
		}
		if !ok {
			continue
		}
		c.matched(ClassifierRuleName, []string{doc.UUID()})
		if opts.DryRun {
			continue
		}
		res, err := t.store.Update(ctx, iban, ir.Document{
			ir.FieldCategory: category,
			ir.FieldPriority: prioSet,
		}, byUUID(doc.UUID()), false)
		if err != nil {
			return c.result(), fmt.Errorf("classify %s: %w", doc.UUID(), err)
		}
		c.updated(res.Updated)
	}
	t.logger.Info("classified", "iban", iban, "candidates", len(candidates), "updated", c.res.Updated, "dry_run", opts.DryRun)
	return c.result(), nil
}
