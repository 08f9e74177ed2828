// Package classify assigns categories to transaction records that no rule
// has categorized.
package classify

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/roach88/txtag/internal/ir"
)

// Classifier proposes a category for a record. ok is false when the
// classifier has no opinion; the record is then left untouched.
type Classifier interface {
	Classify(ctx context.Context, doc ir.Document) (category string, ok bool, err error)
}

// Random picks a category uniformly from a fixed list. It satisfies the
// Classifier contract and nothing more.
type Random struct {
	mu         sync.Mutex
	categories []string
	rng        *rand.Rand
}

// RandomOption configures a Random classifier.
type RandomOption func(*Random)

// WithSource makes the classifier draw from src, e.g. a seeded PCG in tests.
func WithSource(src rand.Source) RandomOption {
	return func(r *Random) {
		r.rng = rand.New(src)
	}
}

// NewRandom returns a classifier choosing among categories.
func NewRandom(categories []string, opts ...RandomOption) *Random {
	r := &Random{
		categories: append([]string(nil), categories...),
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Classify returns a random category, or ok=false when none are configured.
func (r *Random) Classify(ctx context.Context, _ ir.Document) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if len(r.categories) == 0 {
		return "", false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.categories[r.rng.IntN(len(r.categories))], true, nil
}

// Categories returns the categories the classifier chooses from.
func (r *Random) Categories() []string {
	return append([]string(nil), r.categories...)
}
