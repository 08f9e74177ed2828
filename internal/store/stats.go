package store

import (
	"context"
	"fmt"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/queryir"
)

// Stats returns the minimum, maximum and count of the numeric values of
// field over the records of collection (or group) matching filter.
// Records where field is missing or not a number are not counted.
func (s *Store) Stats(ctx context.Context, collection, field string, filter queryir.Filter) (Stats, error) {
	if field == "" {
		return Stats{}, queryir.NewValidationError("field", "field is required")
	}
	docs, err := s.Select(ctx, collection, filter)
	if err != nil {
		return Stats{}, fmt.Errorf("stats %s: %w", collection, err)
	}

	st := Stats{Field: field}
	for _, doc := range docs {
		v, ok := ir.ToFloat(doc[field])
		if !ok {
			continue
		}
		if st.Count == 0 {
			lo, hi := v, v
			st.Min, st.Max = &lo, &hi
		}
		*st.Min = min(*st.Min, v)
		*st.Max = max(*st.Max, v)
		st.Count++
	}
	return st, nil
}
