package cs2

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// ScalarType selects the lexical form and, for integers, the width of a scalar.
type ScalarType struct {
	Kind ScalarKind
	Bits int
}

func (t ScalarType) bits() int {
	if t.Bits == 0 {
		return 64
	}
	return t.Bits
}

func (t ScalarType) String() string {
	switch t.Kind {
	case KindInt, KindUint:
		return fmt.Sprintf("%s%d", t.Kind, t.bits())
	default:
		return t.Kind.String()
	}
}

// FieldKind is the shape of a field value.
type FieldKind uint8

const (
	FieldScalar FieldKind = iota + 1
	FieldRecord
	FieldSequence
	FieldTuple
)

func (k FieldKind) String() string {
	switch k {
	case FieldScalar:
		return "scalar"
	case FieldRecord:
		return "record"
	case FieldSequence:
		return "sequence"
	case FieldTuple:
		return "tuple"
	default:
		return "invalid"
	}
}

// FieldSpec declares one field of a record. For FieldRecord and FieldSequence the
// key doubles as the nested record's header, so Record.Tag must equal Key.
type FieldSpec struct {
	Key      string
	Kind     FieldKind
	Scalar   ScalarType // scalar type, or element type of a tuple
	TupleLen int
	Record   *RecordSchema
	Optional bool
	// Default is filled in when the field is missing from decoded input.
	Default Value
}

// RecordSchema describes the expected shape of a record. The format is not
// self-describing, so decoding always starts from one of these.
type RecordSchema struct {
	// Name identifies the schema in a Registry. It defaults to Tag.
	Name   string
	Tag    string
	Root   bool
	Fields []FieldSpec

	once sync.Once
	err  error
}

// Field returns the descriptor for key, or nil.
func (s *RecordSchema) Field(key string) *FieldSpec {
	for i := range s.Fields {
		if s.Fields[i].Key == key {
			return &s.Fields[i]
		}
	}
	return nil
}

// RegistryName returns the name the schema is registered under.
func (s *RecordSchema) RegistryName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Tag
}

// Validate checks the schema and every nested schema once; later calls return
// the first result.
func (s *RecordSchema) Validate() error {
	s.once.Do(func() {
		s.err = s.validate(true, map[*RecordSchema]bool{})
		if s.err != nil {
			log.Debug().Err(s.err).Str("tag", s.Tag).Msg("cs2 schema rejected")
		}
	})
	return s.err
}

func (s *RecordSchema) validate(top bool, visiting map[*RecordSchema]bool) error {
	if visiting[s] {
		return nil
	}
	visiting[s] = true
	defer delete(visiting, s)

	if !checkKey(s.Tag) {
		return SchemaError{Tag: s.Tag, Reason: "invalid record tag"}
	}
	if s.Root && !top {
		return SchemaError{Tag: s.Tag, Reason: "root container must be the outermost record"}
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if !checkKey(f.Key) {
			return SchemaError{Tag: s.Tag, Key: f.Key, Reason: "invalid field key"}
		}
		if _, dup := seen[f.Key]; dup {
			return SchemaError{Tag: s.Tag, Key: f.Key, Reason: "duplicate field key"}
		}
		seen[f.Key] = struct{}{}
		if err := s.validateField(f, visiting); err != nil {
			return err
		}
	}
	return nil
}

func (s *RecordSchema) validateField(f *FieldSpec, visiting map[*RecordSchema]bool) error {
	switch f.Kind {
	case FieldScalar, FieldTuple:
		if !validScalarType(f.Scalar) {
			return SchemaError{Tag: s.Tag, Key: f.Key, Reason: "invalid scalar type " + f.Scalar.String()}
		}
		if f.Kind == FieldTuple && f.TupleLen < 1 {
			return SchemaError{Tag: s.Tag, Key: f.Key, Reason: "tuple length must be positive"}
		}
	case FieldRecord, FieldSequence:
		if f.Record == nil {
			return SchemaError{Tag: s.Tag, Key: f.Key, Reason: "nested record schema missing"}
		}
		if f.Record.Tag != f.Key {
			return SchemaError{
				Tag:    s.Tag,
				Key:    f.Key,
				Reason: fmt.Sprintf("nested record tag %q differs from field key", f.Record.Tag),
			}
		}
		if err := f.Record.validate(false, visiting); err != nil {
			return err
		}
	default:
		return SchemaError{Tag: s.Tag, Key: f.Key, Reason: "unknown field kind"}
	}
	if f.Default != nil && !defaultMatches(f, f.Default) {
		return SchemaError{Tag: s.Tag, Key: f.Key, Reason: "default does not match field kind"}
	}
	return nil
}

func validScalarType(t ScalarType) bool {
	switch t.Kind {
	case KindBool, KindString, KindBytes:
		return true
	case KindInt, KindUint:
		switch t.Bits {
		case 0, 8, 16, 32, 64:
			return true
		}
	}
	return false
}

func defaultMatches(f *FieldSpec, v Value) bool {
	switch f.Kind {
	case FieldScalar:
		s, ok := v.(Scalar)
		return ok && s.Kind == f.Scalar.Kind
	case FieldTuple:
		t, ok := v.(Tuple)
		return ok && len(t) == f.TupleLen
	case FieldRecord:
		r, ok := v.(*Record)
		return ok && r.Tag == f.Key
	case FieldSequence:
		_, ok := v.(Sequence)
		return ok
	}
	return false
}

// Registry holds validated schemas by name. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*RecordSchema
}

func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*RecordSchema)}
}

// Register validates s and stores it under its registry name.
func (r *Registry) Register(s *RecordSchema) error {
	if s == nil {
		return SchemaError{Reason: "nil schema"}
	}
	if err := s.Validate(); err != nil {
		return err
	}
	name := s.RegistryName()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[name]; exists {
		return SchemaError{Tag: s.Tag, Reason: fmt.Sprintf("schema %q already registered", name)}
	}
	r.schemas[name] = s
	log.Debug().Str("name", name).Str("tag", s.Tag).Int("fields", len(s.Fields)).Msg("cs2 schema registered")
	return nil
}

// Lookup returns the schema registered under name.
func (r *Registry) Lookup(name string) (*RecordSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	return s, ok
}

// Names returns the registered schema names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
