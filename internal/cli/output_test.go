package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txtag/internal/boltstore"
	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/queryir"
	"github.com/roach88/txtag/internal/store"
	"github.com/roach88/txtag/internal/tagger"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(updatedView{Updated: 3})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"updated": float64(3)}, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(CodeValidation, "unknown comparator", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeValidation, resp.Error.Code)
	assert.Equal(t, "unknown comparator", resp.Error.Message)
	assert.Nil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			err := formatter.Error("E_RUNTIME", "open store", map[string]string{"path": "txtag.db"})
			require.NoError(t, err)
			assert.Contains(t, buf.String(), "Error [E_RUNTIME]: open store")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details:")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_TextViews(t *testing.T) {
	lo, hi := -221.98, 2500.0

	tests := []struct {
		name string
		data any
		want []string
	}{
		{"plain", "done", []string{"done"}},
		{"inserted", insertedView{Inserted: 2}, []string{"inserted 2"}},
		{"deleted", deletedView{Deleted: 1}, []string{"deleted 1"}},
		{"stats", statsView{Field: "amount", Count: 6, Min: &lo, Max: &hi}, []string{"amount: count 6, min -221.98, max 2500"}},
		{"empty stats", statsView{Field: "amount"}, []string{"amount: no numeric values"}},
		{"list", listView{"DE1", "DE2"}, []string{"DE1\nDE2"}},
		{"empty list", listView{}, []string{"(none)"}},
		{"records", recordsView{ir.Document{"uuid": "a", "amount": -1.5}}, []string{`"uuid":"a"`, "1 record(s)"}},
		{
			"result",
			resultView{Result: tagger.Result{Updated: 2, Matched: 3, Rules: map[string]int{"Supermarkets": 2, "Abgaben": 1}}},
			[]string{"matched 3, updated 2", "Abgaben", "Supermarkets"},
		},
		{"dry run", resultView{Result: tagger.Result{Matched: 1}, DryRun: true}, []string{"dry run: matched 1, updated 0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf}

			require.NoError(t, formatter.Success(tt.data))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestResultView_JSONFlattensResult(t *testing.T) {
	v := resultView{
		Result: tagger.Result{Updated: 1, Matched: 1, Entries: []string{"u1"}, Rules: map[string]int{"r": 1}},
		DryRun: true,
	}
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"updated":1,"matched":1,"entries":["u1"],"rules":{"r":1},"dry_run":true}`, string(data))

	data, err = json.Marshal(statsView(store.Stats{Field: "amount"}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"field":"amount"`)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			errOut := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: errOut,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("kept stored record %s", "abc")

			assert.Empty(t, out.String())
			if tt.wantLog {
				assert.Contains(t, errOut.String(), "kept stored record abc")
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", commandError("select", queryir.NewValidationError("compare", "unknown")), CodeValidation},
		{"rule", commandError("tag", fmt.Errorf("%w: %q", tagger.ErrRuleNotFound, "x")), CodeRuleNotFound},
		{"locked", WrapExitError(ExitCommandError, "open store", &boltstore.LockTimeoutError{Path: "txtag.db", Timeout: time.Second}), CodeLocked},
		{"runtime", WrapExitError(ExitCommandError, "open store", errors.New("disk full")), CodeRuntime},
		{"usage", NewExitError(ExitFailure, "truncate removes every record; pass --yes to confirm"), CodeUsage},
		{"foreign", errors.New("unknown flag"), CodeUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestExitError(t *testing.T) {
	cause := errors.New("database is locked")

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"plain", NewExitError(ExitFailure, "bad input"), ExitFailure, "bad input"},
		{"wrapped", WrapExitError(ExitCommandError, "open store", cause), ExitCommandError, "open store: database is locked"},
		{"nested", fmt.Errorf("run: %w", NewExitError(ExitCommandError, "boom")), ExitCommandError, "run: boom"},
		{"foreign", errors.New("other"), ExitFailure, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, GetExitCode(tt.err))
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}

	assert.ErrorIs(t, WrapExitError(ExitCommandError, "open store", cause), cause)
}
