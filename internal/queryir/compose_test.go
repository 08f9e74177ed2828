package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose_EmptyIsNil(t *testing.T) {
	pred, err := Compose(nil, MultiAnd)
	require.NoError(t, err)
	assert.Nil(t, pred)

	pred, err = Filter{}.Predicate()
	require.NoError(t, err)
	assert.Nil(t, pred)
}

func TestCompose_SingleConditionIsBareMatch(t *testing.T) {
	pred, err := Compose([]Condition{Where("amount", Lt, -100)}, MultiOr)
	require.NoError(t, err)

	m, ok := pred.(Match)
	require.True(t, ok, "got %T", pred)
	assert.Equal(t, Lt, m.Condition.Compare)
	assert.Equal(t, -100.0, m.Condition.Value)
}

func TestCompose_CombinesWithMulti(t *testing.T) {
	conds := []Condition{
		Where("text_tx", Like, "EDEKA"),
		Where("text_tx", Like, "Penny"),
	}

	pred, err := Compose(conds, MultiAnd)
	require.NoError(t, err)
	and, ok := pred.(And)
	require.True(t, ok)
	assert.Len(t, and.Predicates, 2)

	pred, err = Compose(conds, MultiOr)
	require.NoError(t, err)
	or, ok := pred.(Or)
	require.True(t, ok)
	assert.Len(t, or.Predicates, 2)
}

// The priority condition is always ANDed onto the rest, whatever the
// requested logical mode. This pins the current behavior.
func TestCompose_PriorityIsAlwaysAnded(t *testing.T) {
	conds := []Condition{
		Where("priority", Lt, 1),
		Where("text_tx", Like, "EDEKA"),
		Where("text_tx", Like, "Penny"),
	}

	pred, err := Compose(conds, MultiOr)
	require.NoError(t, err)

	outer, ok := pred.(And)
	require.True(t, ok, "outer node must be AND, got %T", pred)
	require.Len(t, outer.Predicates, 2)

	inner, ok := outer.Predicates[0].(Or)
	require.True(t, ok, "remaining conditions keep the OR mode, got %T", outer.Predicates[0])
	assert.Len(t, inner.Predicates, 2)

	gate, ok := outer.Predicates[1].(Match)
	require.True(t, ok)
	assert.True(t, gate.Condition.Key.IsPriority())
}

func TestCompose_OnlyPriority(t *testing.T) {
	pred, err := Compose([]Condition{Where("priority", Lt, 5)}, MultiOr)
	require.NoError(t, err)
	_, ok := pred.(Match)
	assert.True(t, ok)

	pred, err = Compose([]Condition{Where("priority", Gt, 0), Where("priority", Lt, 5)}, MultiOr)
	require.NoError(t, err)
	and, ok := pred.(And)
	require.True(t, ok, "several priority gates are ANDed together")
	assert.Len(t, and.Predicates, 2)
}

func TestCompose_NestedPriorityIsNotAGate(t *testing.T) {
	pred, err := Compose([]Condition{
		WhereNested("parsed", "priority", Eq, "x"),
		Where("text_tx", Like, "y"),
	}, MultiOr)
	require.NoError(t, err)

	_, ok := pred.(Or)
	assert.True(t, ok, "parsed.priority is an ordinary field")
}

func TestCompose_Errors(t *testing.T) {
	_, err := Compose([]Condition{Where("amount", "between", 1)}, MultiAnd)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "unknown comparator")

	_, err = Compose([]Condition{Where("amount", Lt, 1)}, "XOR")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestUUIDIn(t *testing.T) {
	f := UUIDIn("a", "b", "c")
	assert.Equal(t, MultiOr, f.Multi)
	require.Len(t, f.Conditions, 3)
	assert.Equal(t, "uuid", f.Conditions[0].Key.Field)
	assert.Equal(t, Eq, f.Conditions[2].Compare)
	assert.Equal(t, "c", f.Conditions[2].Value)
}

func TestParseMulti(t *testing.T) {
	for in, want := range map[string]Multi{"": MultiAnd, "and": MultiAnd, "Or": MultiOr, " OR ": MultiOr} {
		got, err := ParseMulti(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
