package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txtag/internal/metadata"
	"github.com/roach88/txtag/internal/queryir"
	"github.com/roach88/txtag/internal/tagger"
)

const testIBAN = "DE89370400440532013000"

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "txtag", cmd.Use)
	assert.Contains(t, cmd.Long, "priority")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"import"}, {"select"}, {"update"}, {"delete"}, {"truncate"}, {"stats"}, {"ibans"},
		{"meta", "list"}, {"meta", "get"}, {"meta", "set"}, {"meta", "import"},
		{"group", "add"}, {"group", "show"}, {"group", "list"},
		{"tag"}, {"cat"}, {"tag-and-cat"}, {"custom"}, {"manual"},
		{"remove-tags"}, {"remove-cat"}, {"classify"}, {"scenario"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	for _, name := range []string{"iban", "backend", "db"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Empty(t, flag.DefValue, name)
	}
}

func TestFilterFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"select", "update", "delete", "custom"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			where := sub.Flags().Lookup("where")
			require.NotNil(t, where)
			assert.Equal(t, "w", where.Shorthand)

			multi := sub.Flags().Lookup("multi")
			require.NotNil(t, multi)
			assert.Equal(t, "AND", multi.DefValue)

			require.NotNil(t, sub.Flags().Lookup("filter"))
		})
	}
}

func TestTaggerCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"tag", "cat", "tag-and-cat", "custom", "classify"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			dryRun := sub.Flags().Lookup("dry-run")
			require.NotNil(t, dryRun)
			assert.Equal(t, "n", dryRun.Shorthand)
			assert.Equal(t, "false", dryRun.DefValue)
		})
	}

	for _, name := range []string{"cat", "custom", "classify"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.NotNil(t, sub.Flags().Lookup("prio"), name)
		assert.NotNil(t, sub.Flags().Lookup("prio-set"), name)
	}
}

func TestScenarioCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	scenarioCmd, _, err := cmd.Find([]string{"scenario"})
	require.NoError(t, err)

	updateFlag := scenarioCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	require.NotNil(t, scenarioCmd.Flags().Lookup("filter"))
	require.NotNil(t, scenarioCmd.Flags().Lookup("golden"))

	backends := scenarioCmd.Flags().Lookup("backends")
	require.NotNil(t, backends)
	assert.Equal(t, "[bolt,sqlite]", backends.DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "ibans"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCommandError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", queryir.NewValidationError("compare", "unknown"), ExitFailure},
		{"rule_not_found", fmt.Errorf("tag: %w", tagger.ErrRuleNotFound), ExitFailure},
		{"schema", wrapSchema(t), ExitFailure},
		{"runtime", errors.New("disk full"), ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := commandError("op", tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.want, GetExitCode(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, commandError("op", nil))
}

// wrapSchema returns a real schema error from the metadata decoder.
func wrapSchema(t *testing.T) error {
	t.Helper()
	_, err := metadata.Decode([]byte("- metatype: nope\n  name: x\n"))
	require.Error(t, err)
	require.True(t, metadata.IsSchemaError(err))
	return err
}

// run executes the CLI against the store at db and returns the exit code,
// stdout and stderr.
func run(t *testing.T, db string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--db", db, "--iban", testIBAN}, args...)
	code := Execute(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

const importRecords = `[
  {"date_tx": 1672531200, "amount": -11.63, "text_tx": "Wucherpfennig sagt Danke 88//HANNOVER Kartenzahlung"},
  {"date_tx": 1672617600, "amount": -118.94, "text_tx": "MEIN GARTENCENTER//Berlin Kartenzahlung"},
  {"date_tx": 1672704000, "amount": -99.58, "text_tx": "EDEKA, München//München/ Kartenzahlung"}
]`

func TestCLI_ImportTagSelect(t *testing.T) {
	for _, backend := range []string{"bolt", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			t.Setenv("TXTAG_CONFIG", "")
			dir := t.TempDir()
			db := filepath.Join(dir, "txtag.db")
			input := filepath.Join(dir, "records.json")
			require.NoError(t, os.WriteFile(input, []byte(importRecords), 0o644))

			code, out, errOut := run(t, db, "--backend", backend, "--format", "json", "import", input)
			require.Equal(t, ExitSuccess, code, errOut)
			var inserted struct {
				Inserted int `json:"inserted"`
			}
			decodeData(t, out, &inserted)
			assert.Equal(t, 3, inserted.Inserted)

			// A second import of the same export inserts nothing.
			code, out, _ = run(t, db, "--backend", backend, "--format", "json", "import", input)
			require.Equal(t, ExitSuccess, code)
			decodeData(t, out, &inserted)
			assert.Equal(t, 0, inserted.Inserted)

			code, out, errOut = run(t, db, "--backend", backend, "--format", "json", "cat", "--rule", "Supermarkets")
			require.Equal(t, ExitSuccess, code, errOut)
			var res struct {
				Updated int            `json:"updated"`
				Matched int            `json:"matched"`
				Rules   map[string]int `json:"rules"`
				DryRun  bool           `json:"dry_run"`
			}
			decodeData(t, out, &res)
			assert.Equal(t, 2, res.Updated)
			assert.Equal(t, map[string]int{"Supermarkets": 2}, res.Rules)
			assert.False(t, res.DryRun)

			code, out, errOut = run(t, db, "--backend", backend, "--format", "json",
				"select", "--where", "category == Lebensmittel")
			require.Equal(t, ExitSuccess, code, errOut)
			var docs []map[string]any
			decodeData(t, out, &docs)
			require.Len(t, docs, 2)
			for _, d := range docs {
				assert.Equal(t, "Lebensmittel", d["category"])
				assert.EqualValues(t, 1, d["priority"])
			}

			code, out, _ = run(t, db, "--backend", backend, "select", "--where", "amount < -100")
			require.Equal(t, ExitSuccess, code)
			assert.Contains(t, out, "GARTENCENTER")
			assert.Contains(t, out, "1 record(s)")
		})
	}
}

func TestCLI_Errors(t *testing.T) {
	t.Setenv("TXTAG_CONFIG", "")
	db := filepath.Join(t.TempDir(), "txtag.db")

	tests := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"unknown rule", []string{"tag", "--rule", "Missing"}, ExitFailure, "Missing"},
		{"bad comparator", []string{"select", "--where", "amount ~ 3"}, ExitFailure, "compare"},
		{"bad multi", []string{"select", "--multi", "XOR"}, ExitFailure, "XOR"},
		{"delete without filter", []string{"delete"}, ExitFailure, "filter"},
		{"truncate without yes", []string{"truncate"}, ExitFailure, "--yes"},
		{"missing input", []string{"import", filepath.Join(t.TempDir(), "nope.json")}, ExitFailure, "read input"},
		{"bad backend", []string{"--backend", "mongo", "ibans"}, ExitFailure, "backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := run(t, db, tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, errOut, tt.msg)
		})
	}
}

func TestCLI_ErrorJSON(t *testing.T) {
	t.Setenv("TXTAG_CONFIG", "")
	db := filepath.Join(t.TempDir(), "txtag.db")

	code, out, errOut := run(t, db, "--format", "json", "tag", "--rule", "Missing")
	assert.Equal(t, ExitFailure, code)
	assert.Empty(t, out)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(errOut), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeRuleNotFound, resp.Error.Code)
}

func TestCLI_MetaAndGroups(t *testing.T) {
	t.Setenv("TXTAG_CONFIG", "")
	dir := t.TempDir()
	db := filepath.Join(dir, "txtag.db")

	rules := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte(`- metatype: rule
  name: Garten
  category: Garten
  prio: 3
  filter:
    - {key: text_tx, compare: like, value: garten}
`), 0o644))

	code, _, errOut := run(t, db, "meta", "import", rules)
	require.Equal(t, ExitSuccess, code, errOut)

	code, out, _ := run(t, db, "--format", "json", "meta", "list", "--type", "rule")
	require.Equal(t, ExitSuccess, code)
	var docs []map[string]any
	decodeData(t, out, &docs)
	var names []string
	for _, d := range docs {
		names = append(names, d["name"].(string))
	}
	assert.Contains(t, names, "Garten")
	assert.Contains(t, names, "Supermarkets")

	// The derived uuid is stable, so a second import keeps the stored record.
	code, out, _ = run(t, db, "meta", "import", rules)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "inserted 0")

	code, _, errOut = run(t, db, "group", "add", "household", testIBAN, "DE02120300000000202051")
	require.Equal(t, ExitSuccess, code, errOut)

	code, out, _ = run(t, db, "--format", "json", "group", "show", "household")
	require.Equal(t, ExitSuccess, code)
	var ibans []string
	decodeData(t, out, &ibans)
	assert.ElementsMatch(t, []string{testIBAN, "DE02120300000000202051"}, ibans)

	code, out, _ = run(t, db, "group", "list")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "household")
}

func TestCLI_ManualOverridesRules(t *testing.T) {
	t.Setenv("TXTAG_CONFIG", "")
	dir := t.TempDir()
	db := filepath.Join(dir, "txtag.db")
	input := filepath.Join(dir, "records.json")
	require.NoError(t, os.WriteFile(input, []byte(importRecords), 0o644))

	code, _, errOut := run(t, db, "import", input)
	require.Equal(t, ExitSuccess, code, errOut)

	code, out, _ := run(t, db, "--format", "json", "select", "--where", "text_tx like EDEKA")
	require.Equal(t, ExitSuccess, code)
	var docs []map[string]any
	decodeData(t, out, &docs)
	require.Len(t, docs, 1)
	uuid := docs[0]["uuid"].(string)

	code, _, errOut = run(t, db, "manual", uuid, "--category", "Party", "--tag", "Feier")
	require.Equal(t, ExitSuccess, code, errOut)

	code, _, _ = run(t, db, "cat")
	require.Equal(t, ExitSuccess, code)

	code, out, _ = run(t, db, "--format", "json", "select", "--where", "text_tx like EDEKA")
	require.Equal(t, ExitSuccess, code)
	decodeData(t, out, &docs)
	require.Len(t, docs, 1)
	assert.Equal(t, "Party", docs[0]["category"])
	assert.EqualValues(t, 99, docs[0]["priority"])
	assert.Equal(t, []any{"Feier"}, docs[0]["tags"])

	code, _, _ = run(t, db, "remove-cat", uuid)
	require.Equal(t, ExitSuccess, code)

	code, out, _ = run(t, db, "--format", "json", "select", "--where", "category == null")
	require.Equal(t, ExitSuccess, code)
	decodeData(t, out, &docs)
	// The Wucherpfennig booking keeps the Supermarkets category.
	assert.Len(t, docs, 2)
}
