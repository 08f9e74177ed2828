package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/roach88/txtag/internal/classify"
	"github.com/roach88/txtag/internal/config"
	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/metadata"
	"github.com/roach88/txtag/internal/queryir"
	"github.com/roach88/txtag/internal/store"
	"github.com/roach88/txtag/internal/tagger"
	"github.com/roach88/txtag/internal/testutil"
)

// Backends lists every backend a scenario can run on.
var Backends = []string{config.BackendBolt, config.BackendSQLite}

// The classifier is seeded so classify steps are reproducible.
const classifierSeed = 7

var classifierCategories = []string{"Leisure", "Taxes"}

// Option configures a scenario run.
type Option func(*runner)

// WithLogger sets the logger handed to the store and the tagger.
// Runs are silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(r *runner) {
		r.logger = logger
	}
}

// WithDir places the database file in dir instead of a fresh temporary
// directory. The file is left in place after the run.
func WithDir(dir string) Option {
	return func(r *runner) {
		r.dir = dir
	}
}

// scenarioError marks a broken scenario, as opposed to a failing step.
type scenarioError struct {
	step int
	msg  string
}

func (e *scenarioError) Error() string {
	return fmt.Sprintf("flow[%d]: %s", e.step, e.msg)
}

type runner struct {
	scenario   *Scenario
	collection string
	dir        string
	logger     *slog.Logger

	store  *store.Store
	tagger *tagger.Tagger

	// labels maps record uuids to seed labels; order lists labeled uuids.
	labels map[string]string
	order  []string

	result *Result
}

// Run executes a scenario on one backend and returns the result.
//
// Every run starts from an empty store holding only the packaged metadata.
// The returned error is non-nil only when the scenario itself is broken
// (the store cannot be opened, seeding fails, arguments are malformed);
// failed expectations and assertions are reported in the Result.
func Run(ctx context.Context, scenario *Scenario, backend string, opts ...Option) (*Result, error) {
	r := &runner{
		scenario:   scenario,
		collection: scenario.Collection,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		labels:     map[string]string{},
		result:     NewResult(backend),
	}
	if r.collection == "" {
		r.collection = testutil.FixtureIBAN
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.dir == "" {
		dir, err := os.MkdirTemp("", "txtag-scenario-*")
		if err != nil {
			return nil, fmt.Errorf("create scenario dir: %w", err)
		}
		defer os.RemoveAll(dir)
		r.dir = dir
	}

	st, err := store.Open(ctx, config.StoreConfig{
		Backend:     backend,
		Path:        filepath.Join(r.dir, scenario.Name+"."+backend+".db"),
		LockTimeout: time.Second,
	}, store.WithLogger(r.logger))
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}
	defer st.Close()

	r.store = st
	r.tagger = tagger.New(st,
		tagger.WithLogger(r.logger),
		tagger.WithClassifier(classify.NewRandom(classifierCategories,
			classify.WithSource(rand.NewPCG(classifierSeed, classifierSeed)))),
	)

	if err := r.setup(ctx); err != nil {
		return nil, err
	}
	for i, step := range scenario.Flow {
		if err := r.executeStep(ctx, i, step); err != nil {
			return nil, err
		}
	}

	docs, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	r.checkAssertions(ctx, docs)
	return r.result, nil
}

// setup saves the scenario metadata and seeds the records.
func (r *runner) setup(ctx context.Context) error {
	for i, m := range r.scenario.Metadata {
		if _, err := r.store.SetMetadata(ctx, ir.Document(m), true); err != nil {
			return fmt.Errorf("setup metadata[%d]: %w", i, err)
		}
	}

	var docs []ir.Document
	if r.scenario.Fixture {
		for _, tx := range testutil.FixtureTransactions() {
			docs = append(docs, tx.MustDocument())
		}
	}
	for _, m := range r.scenario.Records {
		docs = append(docs, ir.Document(m))
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := r.insert(ctx, r.collection, docs); err != nil {
		return fmt.Errorf("setup records: %w", err)
	}
	return r.refresh(ctx)
}

func (r *runner) insert(ctx context.Context, collection string, docs []ir.Document) (store.Inserted, error) {
	parsed, err := r.tagger.Parse(ctx, docs)
	if err != nil {
		return store.Inserted{}, err
	}
	return r.store.Insert(ctx, collection, parsed...)
}

// refresh labels records of the scenario collection that have none yet,
// in storage order.
func (r *runner) refresh(ctx context.Context) error {
	docs, err := r.store.Select(ctx, r.collection, queryir.Filter{})
	if err != nil {
		return fmt.Errorf("label records: %w", err)
	}
	for _, d := range docs {
		id := d.UUID()
		if _, ok := r.labels[id]; ok {
			continue
		}
		r.labels[id] = "#" + strconv.Itoa(len(r.order))
		r.order = append(r.order, id)
	}
	return nil
}

func (r *runner) executeStep(ctx context.Context, i int, step FlowStep) error {
	args, err := decodeArgs(step.Args)
	if err != nil {
		return &scenarioError{step: i, msg: err.Error()}
	}

	res, err := r.execute(ctx, i, step.Op, args)
	var broken *scenarioError
	if errors.As(err, &broken) {
		return broken
	}

	ev := TraceEvent{Step: i + 1, Op: step.Op, Args: step.Args}
	if err != nil {
		ev.Error = errorClass(err)
	} else {
		norm, nerr := ir.Normalize(res)
		if nerr != nil {
			return &scenarioError{step: i, msg: nerr.Error()}
		}
		if m, ok := r.relabel(norm).(map[string]any); ok {
			ev.Result = m
		}
	}
	r.result.addTrace(ev)
	r.checkExpect(i, step, ev, err)

	if err := r.refresh(ctx); err != nil {
		return err
	}
	return nil
}

// stepArgs holds every argument a flow step may carry.
type stepArgs struct {
	Collection string `json:"collection"`

	Rule    string `json:"rule"`
	TagRule string `json:"tag_rule"`
	CatRule string `json:"cat_rule"`
	Prio    *int   `json:"prio"`
	PrioSet *int   `json:"prio_set"`
	DryRun  bool   `json:"dry_run"`

	Tags       []string `json:"tags"`
	Category   *string  `json:"category"`
	Filter     any      `json:"filter"`
	Multi      string   `json:"multi"`
	ParsedKeys []string `json:"parsed_keys"`
	ParsedVals []string `json:"parsed_vals"`

	Record    *int   `json:"record"`
	UUID      string `json:"uuid"`
	Overwrite bool   `json:"overwrite"`

	Merge   bool             `json:"merge"`
	Data    map[string]any   `json:"data"`
	Records []map[string]any `json:"records"`
	Entry   map[string]any   `json:"entry"`

	Name  string   `json:"name"`
	IBANs []string `json:"ibans"`
}

// decodeArgs maps YAML args onto stepArgs, rejecting unknown keys.
func decodeArgs(raw map[string]any) (stepArgs, error) {
	var args stepArgs
	if len(raw) == 0 {
		return args, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return args, fmt.Errorf("encode args: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		return args, fmt.Errorf("decode args: %w", err)
	}
	return args, nil
}

func (a stepArgs) filter() (queryir.Filter, error) {
	conds, err := queryir.ParseConditions(a.Filter, false)
	if err != nil {
		return queryir.Filter{}, err
	}
	multi, err := queryir.ParseMulti(a.Multi)
	if err != nil {
		return queryir.Filter{}, err
	}
	return queryir.Filter{Conditions: conds, Multi: multi}, nil
}

// uuid resolves the record a step addresses, by uuid or by seed label index.
func (r *runner) uuid(i int, a stepArgs) (string, error) {
	if a.UUID != "" || a.Record == nil {
		return a.UUID, nil
	}
	if *a.Record < 0 || *a.Record >= len(r.order) {
		return "", &scenarioError{step: i, msg: fmt.Sprintf("record %d does not exist, %d records seeded", *a.Record, len(r.order))}
	}
	return r.order[*a.Record], nil
}

func (r *runner) execute(ctx context.Context, i int, op string, a stepArgs) (any, error) {
	collection := a.Collection
	if collection == "" {
		collection = r.collection
	}

	switch op {
	case OpInsert:
		docs := make([]ir.Document, 0, len(a.Records))
		for _, m := range a.Records {
			docs = append(docs, ir.Document(m))
		}
		return r.insert(ctx, collection, docs)

	case OpUpdate:
		filter, err := a.filter()
		if err != nil {
			return nil, err
		}
		return r.store.Update(ctx, collection, ir.Document(a.Data), filter, a.Merge)

	case OpDelete:
		filter, err := a.filter()
		if err != nil {
			return nil, err
		}
		return r.store.Delete(ctx, collection, filter)

	case OpSetMetadata:
		return r.store.SetMetadata(ctx, ir.Document(a.Entry), a.Overwrite)

	case OpAddGroup:
		return r.store.AddIBANGroup(ctx, a.Name, a.IBANs)

	case OpParse:
		filter, err := a.filter()
		if err != nil {
			return nil, err
		}
		return r.reparse(ctx, collection, filter)

	case OpTag:
		return r.tagger.Tag(ctx, collection, a.Rule, a.DryRun)

	case OpCategorize:
		return r.tagger.Categorize(ctx, collection, tagger.CategorizeOptions{
			RuleName: a.Rule,
			Prio:     a.Prio,
			PrioSet:  a.PrioSet,
			DryRun:   a.DryRun,
		})

	case OpTagAndCat:
		return r.tagger.TagAndCat(ctx, collection, a.TagRule, a.CatRule, a.DryRun)

	case OpCustom:
		conds, err := queryir.ParseConditions(a.Filter, false)
		if err != nil {
			return nil, err
		}
		return r.tagger.TagOrCatCustom(ctx, collection, tagger.CustomRule{
			Category:   a.Category,
			Tags:       a.Tags,
			Filters:    conds,
			ParsedKeys: a.ParsedKeys,
			ParsedVals: a.ParsedVals,
			Multi:      queryir.Multi(a.Multi),
			Prio:       a.Prio,
			PrioSet:    a.PrioSet,
			DryRun:     a.DryRun,
		})

	case OpManual, OpRemoveTags, OpRemoveCat:
		id, err := r.uuid(i, a)
		if err != nil {
			return nil, err
		}
		switch op {
		case OpRemoveTags:
			return r.tagger.RemoveTags(ctx, collection, id)
		case OpRemoveCat:
			return r.tagger.RemoveCat(ctx, collection, id)
		}
		return r.tagger.SetManualTagAndCat(ctx, collection, id, a.Tags, a.Category, a.Overwrite)

	case OpClassify:
		return r.tagger.Classify(ctx, collection, tagger.CategorizeOptions{
			Prio:    a.Prio,
			PrioSet: a.PrioSet,
			DryRun:  a.DryRun,
		})
	}
	return nil, &scenarioError{step: i, msg: fmt.Sprintf("unknown op %q", op)}
}

// reparse runs the stored parsers over stored records and writes back the
// parsed values that changed.
func (r *runner) reparse(ctx context.Context, collection string, filter queryir.Filter) (store.Updated, error) {
	docs, err := r.store.Select(ctx, collection, filter)
	if err != nil {
		return store.Updated{}, err
	}
	parsed, err := r.tagger.Parse(ctx, docs)
	if err != nil {
		return store.Updated{}, err
	}

	total := store.Updated{}
	for i, doc := range parsed {
		if ir.Equal(docs[i][ir.FieldParsed], doc[ir.FieldParsed]) {
			continue
		}
		res, err := r.store.Update(ctx, collection,
			ir.Document{ir.FieldParsed: doc[ir.FieldParsed]},
			queryir.AllOf(queryir.Where(ir.FieldUUID, queryir.Eq, doc.UUID())), false)
		if err != nil {
			return total, err
		}
		total.Updated += res.Updated
	}
	return total, nil
}

// relabel replaces known record uuids in v by their seed labels.
func (r *runner) relabel(v any) any {
	switch t := v.(type) {
	case string:
		if label, ok := r.labels[t]; ok {
			return label
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = r.relabel(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = r.relabel(e)
		}
		return out
	default:
		return v
	}
}

// errorClass maps an operation error onto a stable class name. Messages
// differ between backends; classes do not.
func errorClass(err error) string {
	switch {
	case tagger.IsRuleNotFound(err):
		return ErrClassRuleNotFound
	case metadata.IsSchemaError(err):
		return ErrClassSchema
	case queryir.IsValidationError(err):
		return ErrClassValidation
	case store.IsLockTimeout(err):
		return ErrClassLockTimeout
	default:
		return ErrClassOther
	}
}

// checkExpect validates a step outcome against its expect clause.
func (r *runner) checkExpect(i int, step FlowStep, ev TraceEvent, err error) {
	want := ""
	if step.Expect != nil {
		want = step.Expect.Error
	}
	switch {
	case err != nil && want == "":
		r.result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error: %v", i, step.Op, err))
		return
	case err == nil && want != "":
		r.result.AddError(fmt.Sprintf("flow[%d] %s: expected %s error, got success", i, step.Op, want))
		return
	case err != nil && ev.Error != want:
		r.result.AddError(fmt.Sprintf("flow[%d] %s: expected %s error, got %s: %v", i, step.Op, want, ev.Error, err))
		return
	case err != nil:
		return
	}

	if step.Expect == nil {
		return
	}
	for key, expected := range step.Expect.Result {
		norm, nerr := ir.Normalize(expected)
		if nerr != nil {
			r.result.AddError(fmt.Sprintf("flow[%d] %s: expect.result.%s: %v", i, step.Op, key, nerr))
			continue
		}
		actual, ok := ev.Result[key]
		if !ok || !ir.Equal(norm, actual) {
			r.result.AddError(fmt.Sprintf("flow[%d] %s: result.%s = %v, want %v", i, step.Op, key, actual, norm))
		}
	}
}

// snapshot projects the final records of the scenario collection into
// Result.State and returns them by uuid.
func (r *runner) snapshot(ctx context.Context) (map[string]ir.Document, error) {
	if err := r.refresh(ctx); err != nil {
		return nil, err
	}
	docs, err := r.store.Select(ctx, r.collection, queryir.Filter{})
	if err != nil {
		return nil, fmt.Errorf("read final state: %w", err)
	}
	byUUID := make(map[string]ir.Document, len(docs))
	for _, d := range docs {
		byUUID[d.UUID()] = d
	}
	for _, id := range r.order {
		d, ok := byUUID[id]
		if !ok {
			continue
		}
		r.result.State = append(r.result.State, map[string]any{
			"record":         r.labels[id],
			ir.FieldCategory: d[ir.FieldCategory],
			ir.FieldPriority: d[ir.FieldPriority],
			ir.FieldTags:     d[ir.FieldTags],
			ir.FieldParsed:   d[ir.FieldParsed],
		})
	}
	return byUUID, nil
}
