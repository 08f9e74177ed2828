package tagger

import "errors"

// ErrRuleNotFound is returned when a named rule does not exist or does not
// do what the operation needs (tags for Tag, a category for Categorize).
var ErrRuleNotFound = errors.New("rule not found")

// IsRuleNotFound returns true if err is or wraps ErrRuleNotFound.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}
