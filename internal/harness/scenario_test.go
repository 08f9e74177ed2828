package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)
			assert.NotEmpty(t, s.Name)
			assert.NotEmpty(t, s.Flow)
			assert.NotEmpty(t, s.Assertions)
		})
	}
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Decodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: decode
description: "decoding"
collection: DE02120300000000202051
records:
  - { date_tx: 1, amount: -5, text_tx: Miete }
flow:
  - op: manual
    args: { record: 0, tags: [Wohnung] }
assertions:
  - type: count
    filter: [{ key: { parsed: Mandatsreferenz }, compare: regex, value: "^M" }]
    multi: or
    count: 0
`), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "DE02120300000000202051", s.Collection)
	require.Len(t, s.Records, 1)
	assert.Equal(t, "Miete", s.Records[0]["text_tx"])
	require.Len(t, s.Assertions, 1)
	require.Len(t, s.Assertions[0].Filter, 1)
	assert.Equal(t, "parsed", s.Assertions[0].Filter[0].Key.Parent)
	assert.Equal(t, "Mandatsreferenz", s.Assertions[0].Filter[0].Key.Field)
	require.NotNil(t, s.Assertions[0].Count)
	assert.Equal(t, 0, *s.Assertions[0].Count)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: x\ndescription: d\nflows: []\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing name",
			yaml: "description: d\nflow: [{op: tag}]\nassertions: [{type: trace_contains, op: tag}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: x\nflow: [{op: tag}]\nassertions: [{type: trace_contains, op: tag}]\n",
			want: "description is required",
		},
		{
			name: "empty flow",
			yaml: "name: x\ndescription: d\nflow: []\nassertions: [{type: trace_contains, op: tag}]\n",
			want: "flow list is required",
		},
		{
			name: "no assertions",
			yaml: "name: x\ndescription: d\nflow: [{op: tag}]\n",
			want: "assertions list is required",
		},
		{
			name: "unknown op",
			yaml: "name: x\ndescription: d\nflow: [{op: retag}]\nassertions: [{type: trace_contains, op: tag}]\n",
			want: `unknown op "retag"`,
		},
		{
			name: "unknown error class",
			yaml: "name: x\ndescription: d\nflow: [{op: tag, expect: {error: boom}}]\nassertions: [{type: trace_contains, op: tag}]\n",
			want: `unknown error class "boom"`,
		},
		{
			name: "trace_count without count",
			yaml: "name: x\ndescription: d\nflow: [{op: tag}]\nassertions: [{type: trace_count, op: tag}]\n",
			want: "trace_count requires op and count",
		},
		{
			name: "final_state without record",
			yaml: "name: x\ndescription: d\nflow: [{op: tag}]\nassertions: [{type: final_state, expect: {category: A}}]\n",
			want: "final_state requires record and expect",
		},
		{
			name: "count with bad multi",
			yaml: "name: x\ndescription: d\nflow: [{op: tag}]\nassertions: [{type: count, count: 1, multi: XOR}]\n",
			want: "unknown logical mode",
		},
		{
			name: "unknown assertion type",
			yaml: "name: x\ndescription: d\nflow: [{op: tag}]\nassertions: [{type: trace_order}]\n",
			want: `unknown type "trace_order"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
