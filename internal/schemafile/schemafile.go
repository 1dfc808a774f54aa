// Package schemafile loads cs2 record schemas from TOML definitions.
//
// A file lists records; fields that nest a record name it by its schema name
// (which defaults to the tag). Records no other record nests are the file's
// top-level schemas and are the ones registered.
package schemafile

import (
	"embed"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danmuck/cs2kit/cs2"
	"github.com/danmuck/cs2kit/internal/hexfmt"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

//go:embed builtin/*.toml
var builtinFS embed.FS

// File is the on-disk layout of a schema file.
type File struct {
	Record []RecordDef `toml:"record" json:"records"`
}

type RecordDef struct {
	Name  string     `toml:"name,omitempty" json:"name,omitempty"`
	Tag   string     `toml:"tag" json:"tag"`
	Root  bool       `toml:"root,omitempty" json:"root,omitempty"`
	Field []FieldDef `toml:"field" json:"fields"`
}

type FieldDef struct {
	Key      string `toml:"key" json:"key"`
	Type     string `toml:"type" json:"type"`
	Record   string `toml:"record,omitempty" json:"record,omitempty"`
	Elem     string `toml:"elem,omitempty" json:"elem,omitempty"`
	Len      int    `toml:"len,omitempty" json:"len,omitempty"`
	Optional bool   `toml:"optional,omitempty" json:"optional,omitempty"`
	Default  any    `toml:"default,omitempty" json:"default,omitempty"`
}

func (r RecordDef) name() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Tag
}

// Parse decodes TOML schema definitions and returns the top-level schemas in
// file order.
func Parse(data []byte) ([]*cs2.RecordSchema, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("schemafile: parse: %w", err)
	}
	return Build(f)
}

// Build resolves record references in f and returns its top-level schemas.
func Build(f File) ([]*cs2.RecordSchema, error) {
	byName := make(map[string]*cs2.RecordSchema, len(f.Record))
	for _, def := range f.Record {
		name := def.name()
		if name == "" {
			return nil, fmt.Errorf("schemafile: record without tag")
		}
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("schemafile: record %q defined twice", name)
		}
		byName[name] = &cs2.RecordSchema{Name: name, Tag: def.Tag, Root: def.Root}
	}

	nested := make(map[string]bool)
	for _, def := range f.Record {
		s := byName[def.name()]
		for _, fd := range def.Field {
			spec, err := buildField(def, fd, byName)
			if err != nil {
				return nil, err
			}
			if spec.Record != nil {
				nested[spec.Record.Name] = true
			}
			s.Fields = append(s.Fields, spec)
		}
	}

	var top []*cs2.RecordSchema
	for _, def := range f.Record {
		if !nested[def.name()] {
			top = append(top, byName[def.name()])
		}
	}
	if len(top) == 0 && len(f.Record) > 0 {
		return nil, fmt.Errorf("schemafile: every record is nested, no top-level schema")
	}
	return top, nil
}

func buildField(def RecordDef, fd FieldDef, byName map[string]*cs2.RecordSchema) (cs2.FieldSpec, error) {
	fail := func(format string, args ...any) (cs2.FieldSpec, error) {
		return cs2.FieldSpec{}, fmt.Errorf("schemafile: record %q field %q: %s", def.name(), fd.Key, fmt.Sprintf(format, args...))
	}
	spec := cs2.FieldSpec{Key: fd.Key, Optional: fd.Optional}
	switch fd.Type {
	case "record", "sequence":
		ref, ok := byName[fd.Record]
		if !ok {
			return fail("unknown record %q", fd.Record)
		}
		spec.Kind = cs2.FieldRecord
		if fd.Type == "sequence" {
			spec.Kind = cs2.FieldSequence
		}
		spec.Record = ref
		if fd.Default != nil {
			return fail("defaults are only supported for scalars and tuples")
		}
		return spec, nil
	case "tuple":
		st, ok := ParseScalarType(fd.Elem)
		if !ok {
			return fail("unknown tuple element type %q", fd.Elem)
		}
		spec.Kind = cs2.FieldTuple
		spec.Scalar = st
		spec.TupleLen = fd.Len
	default:
		st, ok := ParseScalarType(fd.Type)
		if !ok {
			return fail("unknown type %q", fd.Type)
		}
		spec.Kind = cs2.FieldScalar
		spec.Scalar = st
	}
	if fd.Default != nil {
		v, err := defaultValue(spec, fd.Default)
		if err != nil {
			return fail("default: %v", err)
		}
		spec.Default = v
	}
	return spec, nil
}

// ParseScalarType maps a type name such as "uint16" or "bytes" to a ScalarType.
func ParseScalarType(name string) (cs2.ScalarType, bool) {
	switch name {
	case "bool":
		return cs2.ScalarType{Kind: cs2.KindBool}, true
	case "string":
		return cs2.ScalarType{Kind: cs2.KindString}, true
	case "bytes":
		return cs2.ScalarType{Kind: cs2.KindBytes}, true
	case "int":
		return cs2.ScalarType{Kind: cs2.KindInt, Bits: 64}, true
	case "uint":
		return cs2.ScalarType{Kind: cs2.KindUint, Bits: 64}, true
	}
	for _, bits := range []int{8, 16, 32, 64} {
		switch name {
		case fmt.Sprintf("int%d", bits):
			return cs2.ScalarType{Kind: cs2.KindInt, Bits: bits}, true
		case fmt.Sprintf("uint%d", bits):
			return cs2.ScalarType{Kind: cs2.KindUint, Bits: bits}, true
		}
	}
	return cs2.ScalarType{}, false
}

// TypeName is the inverse of ParseScalarType.
func TypeName(t cs2.ScalarType) string {
	bits := t.Bits
	if bits == 0 {
		bits = 64
	}
	switch t.Kind {
	case cs2.KindInt:
		return fmt.Sprintf("int%d", bits)
	case cs2.KindUint:
		return fmt.Sprintf("uint%d", bits)
	default:
		return t.Kind.String()
	}
}

func defaultValue(spec cs2.FieldSpec, raw any) (cs2.Value, error) {
	if spec.Kind == cs2.FieldTuple {
		items, ok := raw.([]any)
		if !ok || len(items) != spec.TupleLen {
			return nil, fmt.Errorf("want an array of %d values", spec.TupleLen)
		}
		t := make(cs2.Tuple, len(items))
		for i, item := range items {
			s, err := ScalarFrom(spec.Scalar, item)
			if err != nil {
				return nil, err
			}
			t[i] = s
		}
		return t, nil
	}
	return ScalarFrom(spec.Scalar, raw)
}

// ScalarFrom converts a decoded TOML, YAML or JSON value into a scalar of type t.
// Integers may arrive as any Go integer or as an integral float64.
func ScalarFrom(t cs2.ScalarType, raw any) (cs2.Scalar, error) {
	bits := t.Bits
	if bits == 0 {
		bits = 64
	}
	switch t.Kind {
	case cs2.KindBool:
		switch v := raw.(type) {
		case bool:
			return cs2.Bool(v), nil
		}
		if n, ok := asInt(raw); ok && (n == 0 || n == 1) {
			return cs2.Bool(n == 1), nil
		}
	case cs2.KindInt:
		if n, ok := asInt(raw); ok {
			limit := int64(1) << (bits - 1)
			if bits == 64 || (n >= -limit && n < limit) {
				return cs2.Int(n), nil
			}
			return cs2.Scalar{}, fmt.Errorf("%d overflows %s", n, TypeName(t))
		}
	case cs2.KindUint:
		if n, ok := asInt(raw); ok {
			if n < 0 || (bits < 64 && uint64(n) >= uint64(1)<<bits) {
				return cs2.Scalar{}, fmt.Errorf("%d overflows %s", n, TypeName(t))
			}
			return cs2.Uint(uint64(n)), nil
		}
		if u, ok := raw.(uint64); ok {
			if bits < 64 && u >= uint64(1)<<bits {
				return cs2.Scalar{}, fmt.Errorf("%d overflows %s", u, TypeName(t))
			}
			return cs2.Uint(u), nil
		}
	case cs2.KindString:
		if s, ok := raw.(string); ok {
			return cs2.String(s), nil
		}
	case cs2.KindBytes:
		if s, ok := raw.(string); ok {
			b, err := hexfmt.DecodeBytes(s)
			if err != nil {
				return cs2.Scalar{}, err
			}
			return cs2.Bytes(b), nil
		}
	}
	return cs2.Scalar{}, fmt.Errorf("%v (%T) is not a valid %s", raw, raw, TypeName(t))
}

func asInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	default:
		return 0, false
	}
}

// LoadFile parses one schema file.
func LoadFile(path string) ([]*cs2.RecordSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schemafile: load failed (%s): %w", path, err)
	}
	schemas, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return schemas, nil
}

// LoadDir parses every *.toml file in dir in lexical order.
func LoadDir(dir string) ([]*cs2.RecordSchema, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.toml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	var out []*cs2.RecordSchema
	for _, path := range paths {
		schemas, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, schemas...)
	}
	return out, nil
}

// Builtin returns the embedded lokomotive and lokstat schemas.
func Builtin() ([]*cs2.RecordSchema, error) {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil, err
	}
	var out []*cs2.RecordSchema
	for _, entry := range entries {
		data, err := builtinFS.ReadFile("builtin/" + entry.Name())
		if err != nil {
			return nil, err
		}
		schemas, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%w (builtin %s)", err, entry.Name())
		}
		out = append(out, schemas...)
	}
	return out, nil
}

// NewRegistry registers the built-in schemas and, when dir is set, every schema
// file found there.
func NewRegistry(dir string) (*cs2.Registry, error) {
	reg := cs2.NewRegistry()
	schemas, err := Builtin()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dir) != "" {
		extra, err := LoadDir(dir)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, extra...)
	}
	for _, s := range schemas {
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}
	log.Info().Int("schemas", len(reg.Names())).Str("dir", dir).Msg("schema registry ready")
	return reg, nil
}
