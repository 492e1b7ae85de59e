package form

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/format"
)

// MsgRequired is the message attached to a missing required value.
const MsgRequired = "is required"

// Schema validates values and returns messages keyed by field name. An empty
// result means valid.
type Schema interface {
	Validate(values Values) map[string]string
}

// SchemaFunc adapts a function to Schema.
type SchemaFunc func(values Values) map[string]string

func (f SchemaFunc) Validate(values Values) map[string]string { return f(values) }

// Required reports MsgRequired for every named field whose value is empty.
func Required(fields ...string) Schema {
	return SchemaFunc(func(values Values) map[string]string {
		var errs map[string]string
		for _, f := range fields {
			if IsEmpty(values[f]) {
				if errs == nil {
					errs = make(map[string]string)
				}
				errs[f] = MsgRequired
			}
		}
		return errs
	})
}

// All runs every schema and keeps the first message per field.
func All(schemas ...Schema) Schema {
	return SchemaFunc(func(values Values) map[string]string {
		var errs map[string]string
		for _, s := range schemas {
			if s == nil {
				continue
			}
			for f, msg := range s.Validate(values) {
				if errs == nil {
					errs = make(map[string]string)
				}
				if _, ok := errs[f]; !ok {
					errs[f] = msg
				}
			}
		}
		return errs
	})
}

// Only restricts a schema's messages to the named fields.
func Only(s Schema, fields []string) Schema {
	keep := make(map[string]bool, len(fields))
	for _, f := range fields {
		keep[f] = true
	}
	return SchemaFunc(func(values Values) map[string]string {
		var errs map[string]string
		for f, msg := range s.Validate(values) {
			if !keep[f] {
				continue
			}
			if errs == nil {
				errs = make(map[string]string)
			}
			errs[f] = msg
		}
		return errs
	})
}

// CUESchema validates values by unifying them with a CUE struct and requiring
// the result to be concrete. Fields the struct declares without a default
// and without "?" are required.
type CUESchema struct {
	mu  sync.Mutex
	ctx *cue.Context
	v   cue.Value
}

// CompileSchema compiles src, a CUE struct such as
//
//	name:  string & != ""
//	age?:  int & >=18
//	email: =~"^[^@]+@[^@]+$"
func CompileSchema(src string) (*CUESchema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, fmt.Errorf("compiling schema: expected a struct, got %v", v.IncompleteKind())
	}
	return &CUESchema{ctx: ctx, v: v}, nil
}

// SchemaFromValue copies an already-built CUE struct value, as found inside
// an entity configuration, into a schema with its own context. The copy lets
// schemas of different entities validate concurrently.
func SchemaFromValue(v cue.Value) (*CUESchema, error) {
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("schema value: %w", err)
	}
	src, err := format.Node(v.Syntax(cue.Optional(true), cue.Definitions(true), cue.Docs(false)))
	if err != nil {
		return nil, fmt.Errorf("formatting schema: %w", err)
	}
	return CompileSchema(string(src))
}

// Validate implements Schema. Empty values are left out of the unification
// so that a missing required field is reported as MsgRequired rather than a
// type conflict with null.
func (s *CUESchema) Validate(values Values) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Fields a closed schema does not declare belong to other schemas.
	data := make(map[string]any, len(values))
	for k, x := range values {
		if IsEmpty(x) || !s.v.Allows(cue.Str(k)) {
			continue
		}
		data[k] = normalize(x)
	}

	u := s.v.Unify(s.ctx.Encode(data))
	err := u.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}
	errs := make(map[string]string)
	for _, e := range errors.Errors(err) {
		path := e.Path()
		if len(path) == 0 {
			errs[""] = e.Error()
			continue
		}
		field := path[0]
		if _, ok := errs[field]; ok {
			continue
		}
		if _, present := data[field]; !present {
			errs[field] = MsgRequired
			continue
		}
		format, args := e.Msg()
		errs[field] = strings.TrimSpace(fmt.Sprintf(format, args...))
	}
	return errs
}

// Fields lists the field names the schema declares, optional ones included.
func (s *CUESchema) Fields() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	it, err := s.v.Fields(cue.Optional(true))
	if err != nil {
		return nil
	}
	for it.Next() {
		out = append(out, strings.TrimSuffix(it.Selector().String(), "?"))
	}
	return out
}

// normalize turns whole floats (as decoded from JSON) into ints so they
// satisfy CUE's int constraint.
func normalize(x any) any {
	if f, ok := x.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return x
}
