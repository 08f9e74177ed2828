package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/store"
	"github.com/roach88/txtag/internal/tagger"
)

// recordsView prints one compact JSON document per line in text mode.
type recordsView []ir.Document

func (v recordsView) renderText(w io.Writer) error {
	for _, d := range v {
		line, err := d.MarshalCompact()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(line))
	}
	fmt.Fprintf(w, "%d record(s)\n", len(v))
	return nil
}

// resultView prints a tagger result with its per-rule breakdown.
type resultView struct {
	tagger.Result
	DryRun bool `json:"dry_run"`
}

func (v resultView) renderText(w io.Writer) error {
	prefix := ""
	if v.DryRun {
		prefix = "dry run: "
	}
	fmt.Fprintf(w, "%smatched %d, updated %d\n", prefix, v.Matched, v.Updated)

	names := make([]string, 0, len(v.Rules))
	for name := range v.Rules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-24s %d\n", name, v.Rules[name])
	}
	return nil
}

type insertedView store.Inserted

func (v insertedView) renderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "inserted %d\n", v.Inserted)
	return err
}

type updatedView store.Updated

func (v updatedView) renderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "updated %d\n", v.Updated)
	return err
}

type deletedView store.Deleted

func (v deletedView) renderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "deleted %d\n", v.Deleted)
	return err
}

type statsView store.Stats

func (v statsView) renderText(w io.Writer) error {
	if v.Count == 0 {
		_, err := fmt.Fprintf(w, "%s: no numeric values\n", v.Field)
		return err
	}
	_, err := fmt.Fprintf(w, "%s: count %d, min %s, max %s\n", v.Field, v.Count,
		ir.FormatNumber(*v.Min), ir.FormatNumber(*v.Max))
	return err
}

// listView prints one string per line.
type listView []string

func (v listView) renderText(w io.Writer) error {
	if len(v) == 0 {
		_, err := fmt.Fprintln(w, "(none)")
		return err
	}
	_, err := fmt.Fprintln(w, strings.Join(v, "\n"))
	return err
}
