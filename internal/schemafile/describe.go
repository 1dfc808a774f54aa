package schemafile

import (
	"fmt"

	"github.com/danmuck/cs2kit/cs2"
	"github.com/pelletier/go-toml/v2"
)

// Describe flattens s and every record it nests into a File, outermost first.
func Describe(s *cs2.RecordSchema) File {
	var f File
	seen := make(map[*cs2.RecordSchema]bool)
	var walk func(*cs2.RecordSchema)
	walk = func(rs *cs2.RecordSchema) {
		if seen[rs] {
			return
		}
		seen[rs] = true
		def := RecordDef{Tag: rs.Tag, Root: rs.Root}
		if name := rs.RegistryName(); name != rs.Tag {
			def.Name = name
		}
		var children []*cs2.RecordSchema
		for _, spec := range rs.Fields {
			fd := FieldDef{Key: spec.Key, Optional: spec.Optional}
			switch spec.Kind {
			case cs2.FieldScalar:
				fd.Type = TypeName(spec.Scalar)
			case cs2.FieldTuple:
				fd.Type = "tuple"
				fd.Elem = TypeName(spec.Scalar)
				fd.Len = spec.TupleLen
			case cs2.FieldRecord, cs2.FieldSequence:
				fd.Type = spec.Kind.String()
				fd.Record = spec.Record.RegistryName()
				children = append(children, spec.Record)
			}
			if spec.Default != nil {
				fd.Default = plainValue(spec.Default)
			}
			def.Field = append(def.Field, fd)
		}
		f.Record = append(f.Record, def)
		for _, child := range children {
			walk(child)
		}
	}
	walk(s)
	return f
}

func plainValue(v cs2.Value) any {
	switch v := v.(type) {
	case cs2.Scalar:
		if v.Kind == cs2.KindBytes {
			return v.String()
		}
		return v.Interface()
	case cs2.Tuple:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = plainValue(s)
		}
		return out
	default:
		return fmt.Sprint(v)
	}
}

// Format renders s as a schema file that Parse reads back.
func Format(s *cs2.RecordSchema) ([]byte, error) {
	return toml.Marshal(Describe(s))
}
