package metadata

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/txtag/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// schema holds the compiled CUE definitions. A cue.Context is not safe for
// concurrent use, so validation is serialized.
type schema struct {
	mu   sync.Mutex
	ctx  *cue.Context
	defs map[string]cue.Value
}

var (
	schemaOnce sync.Once
	compiled   *schema
	schemaErr  error
)

func loadSchema() (*schema, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile metadata schema: %w", err)
			return
		}
		s := &schema{ctx: ctx, defs: map[string]cue.Value{}}
		for metatype, def := range map[string]string{
			ir.MetaRule:   "#Rule",
			ir.MetaParser: "#Parser",
			ir.MetaConfig: "#Config",
		} {
			d := v.LookupPath(cue.ParsePath(def))
			if !d.Exists() {
				schemaErr = fmt.Errorf("metadata schema: missing %s", def)
				return
			}
			s.defs[metatype] = d
		}
		s.defs[""] = v.LookupPath(cue.ParsePath("#Entry"))
		compiled = s
	})
	return compiled, schemaErr
}

// Validate checks a metadata record against the schema for its metatype.
// Records with an unknown or missing metatype are checked against the
// common entry definition and therefore rejected.
func Validate(doc ir.Document) error {
	s, err := loadSchema()
	if err != nil {
		return err
	}

	def, ok := s.defs[doc.String(ir.FieldMetatype)]
	if !ok {
		def = s.defs[""]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	value := s.ctx.Encode(map[string]any(doc))
	if err := value.Err(); err != nil {
		return fmt.Errorf("metadata %q: encode: %w", doc.String(ir.FieldName), err)
	}
	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return &SchemaError{Name: doc.String(ir.FieldName), Metatype: doc.String(ir.FieldMetatype), Err: err}
	}
	return nil
}
