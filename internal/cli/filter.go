package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/queryir"
)

// filterFlags are the record-selection flags shared by several commands.
type filterFlags struct {
	Where  []string
	Filter string
	Multi  string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.Where, "where", "w", nil, `condition "key compare value", repeatable (e.g. "amount < -100")`)
	cmd.Flags().StringVar(&f.Filter, "filter", "", "conditions as a JSON or YAML list")
	cmd.Flags().StringVar(&f.Multi, "multi", "AND", "combine conditions with AND or OR")
}

// build returns the --filter conditions followed by the --where conditions.
func (f *filterFlags) build() (queryir.Filter, error) {
	var conds []queryir.Condition
	if f.Filter != "" {
		raw, err := decodeValue([]byte(f.Filter))
		if err != nil {
			return queryir.Filter{}, queryir.NewValidationError("filter", err.Error())
		}
		parsed, err := queryir.ParseConditions(raw, false)
		if err != nil {
			return queryir.Filter{}, err
		}
		conds = append(conds, parsed...)
	}
	for _, expr := range f.Where {
		c, err := queryir.ParseExpr(expr)
		if err != nil {
			return queryir.Filter{}, err
		}
		conds = append(conds, c)
	}
	multi, err := queryir.ParseMulti(f.Multi)
	if err != nil {
		return queryir.Filter{}, err
	}
	return queryir.Filter{Conditions: conds, Multi: multi}, nil
}

// decodeValue parses YAML (and therefore JSON) into the JSON data model.
func decodeValue(data []byte) (any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return ir.Normalize(raw)
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "read input", err)
	}
	return data, nil
}

// decodeDocuments parses a single record or a list of records.
func decodeDocuments(data []byte) ([]ir.Document, error) {
	raw, err := decodeValue(data)
	if err != nil {
		return nil, queryir.NewValidationError("records", err.Error())
	}
	var items []any
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	default:
		return nil, queryir.NewValidationError("records", fmt.Sprintf("expected a record or a list of records, got %T", raw))
	}

	docs := make([]ir.Document, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, queryir.NewValidationError("records", fmt.Sprintf("record %d: expected an object, got %T", i, item))
		}
		docs = append(docs, ir.Document(m))
	}
	return docs, nil
}
