package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	got, err := Normalize(map[string]any{
		"n":    3,
		"tags": []string{"a", "b"},
		"sub":  map[string]string{"k": "v"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"n":    float64(3),
		"tags": []any{"a", "b"},
		"sub":  map[string]any{"k": "v"},
	}, got)

	_, err = Normalize(math.NaN())
	assert.Error(t, err)

	got, err = Normalize(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{-100, -100, true},
		{"-71.35", -71.35, true},
		{" 12 ", 12, true},
		{"M1111111", 0, false},
		{"NaN", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(1, float64(1)))
	assert.True(t, Equal(nil, nil))
	assert.True(t, Equal([]any{"a", 1.0}, []any{"a", 1}))
	assert.True(t, Equal(map[string]any{"a": 1.0}, Document{"a": 1}))
	assert.False(t, Equal([]any{"a", "b"}, []any{"b", "a"}))
	assert.False(t, Equal("1", 1))
	assert.False(t, Equal(nil, false))
	assert.False(t, Equal(map[string]any{"a": 1.0}, map[string]any{"b": 1.0}))
}

func TestTransactionDocumentRoundTrip(t *testing.T) {
	tx := Transaction{
		DateTx: 1672531200,
		TextTx: "EDEKA",
		Amount: -99.58,
		Tags:   []string{"TestTag3"},
		Parsed: map[string]string{"Mandatsreferenz": "M1"},
	}
	doc := tx.MustDocument()

	assert.Equal(t, float64(1672531200), doc[FieldDateTx])
	assert.Nil(t, doc[FieldCategory])
	_, hasUUID := doc[FieldUUID]
	assert.False(t, hasUUID)

	back, err := DecodeTransaction(doc)
	require.NoError(t, err)
	assert.Equal(t, tx, back)
}
