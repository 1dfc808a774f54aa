// Package bridge converts cs2 records to and from YAML and JSON documents.
// Mappings keep the record's field order in both directions.
package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/cs2kit/cs2"
	"github.com/danmuck/cs2kit/internal/hexfmt"
	"github.com/danmuck/cs2kit/internal/schemafile"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

var ErrEmptyDocument = errors.New("bridge: empty document")

func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "yaml", "yml":
		return YAML, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("bridge: unknown format %q (expected yaml or json)", raw)
	}
}

// Encode renders rec in format f.
func Encode(f Format, rec *cs2.Record) ([]byte, error) {
	switch f {
	case JSON:
		return EncodeJSON(rec)
	case YAML:
		return EncodeYAML(rec)
	default:
		return nil, fmt.Errorf("bridge: unknown format %q", f)
	}
}

// Decode parses data in format f as a record described by schema.
func Decode(f Format, schema *cs2.RecordSchema, data []byte) (*cs2.Record, error) {
	switch f {
	case JSON:
		return DecodeJSON(schema, data)
	case YAML:
		return DecodeYAML(schema, data)
	default:
		return nil, fmt.Errorf("bridge: unknown format %q", f)
	}
}

func EncodeYAML(rec *cs2.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(ToNode(rec)); err != nil {
		return nil, fmt.Errorf("bridge: yaml encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("bridge: yaml encode: %w", err)
	}
	return buf.Bytes(), nil
}

func DecodeYAML(schema *cs2.RecordSchema, data []byte) (*cs2.Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("bridge: yaml decode: %w", err)
	}
	if doc.Kind == 0 || (doc.Kind == yaml.DocumentNode && len(doc.Content) == 0) {
		return nil, ErrEmptyDocument
	}
	return FromNode(schema, &doc)
}

// DecodeJSON parses a JSON object. JSON is read through the YAML decoder, which
// keeps object member order; it is re-indented first so every member separator
// is followed by a space.
func DecodeJSON(schema *cs2.RecordSchema, data []byte) (*cs2.Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}
	var normalized bytes.Buffer
	if err := json.Indent(&normalized, data, "", "  "); err != nil {
		return nil, fmt.Errorf("bridge: json decode: invalid JSON: %w", err)
	}
	return DecodeYAML(schema, normalized.Bytes())
}

// ToNode renders rec as a YAML mapping node.
func ToNode(rec *cs2.Record) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range rec.Fields {
		v := valueNode(f.Value)
		if v == nil {
			continue
		}
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key}, v)
	}
	return m
}

func valueNode(v cs2.Value) *yaml.Node {
	switch v := v.(type) {
	case cs2.Scalar:
		return scalarNode(v)
	case cs2.Tuple:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for _, s := range v {
			n.Content = append(n.Content, scalarNode(s))
		}
		return n
	case *cs2.Record:
		if v == nil {
			return nil
		}
		return ToNode(v)
	case cs2.Sequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, r := range v {
			n.Content = append(n.Content, ToNode(r))
		}
		return n
	default:
		return nil
	}
}

func scalarNode(s cs2.Scalar) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode}
	switch s.Kind {
	case cs2.KindBool:
		n.Tag, n.Value = "!!bool", strconv.FormatBool(s.Bool)
	case cs2.KindInt:
		n.Tag, n.Value = "!!int", strconv.FormatInt(s.Int, 10)
	case cs2.KindUint:
		n.Tag, n.Value = "!!int", strconv.FormatUint(s.Uint, 10)
	case cs2.KindBytes:
		n.Tag, n.Value = "!!str", hexfmt.EncodeBytes(s.Bytes)
	default:
		n.Tag, n.Value = "!!str", s.Str
	}
	return n
}

// FromNode converts a YAML mapping into a record described by schema. Fields
// keep the document's order. Null values count as absent.
func FromNode(schema *cs2.RecordSchema, node *yaml.Node) (*cs2.Record, error) {
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil, ErrEmptyDocument
		}
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("bridge: record %q (line %d): expected a mapping", schema.Tag, node.Line)
	}
	rec := &cs2.Record{Tag: schema.Tag, Root: schema.Root}
	seen := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		spec := schema.Field(k.Value)
		if spec == nil {
			return nil, fmt.Errorf("%w: %q in record %q (line %d)", cs2.ErrUnknownField, k.Value, schema.Tag, k.Line)
		}
		if seen[k.Value] {
			return nil, fmt.Errorf("%w: %q in record %q (line %d)", cs2.ErrDuplicateField, k.Value, schema.Tag, k.Line)
		}
		seen[k.Value] = true
		if v.Kind == yaml.ScalarNode && v.Tag == "!!null" {
			continue
		}
		val, err := valueFrom(spec, v)
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, cs2.Field{Key: spec.Key, Value: val})
	}
	for _, spec := range schema.Fields {
		if hasField(rec, spec.Key) {
			continue
		}
		if !spec.Optional && spec.Kind != cs2.FieldSequence && spec.Default == nil {
			return nil, cs2.MissingFieldError{Tag: schema.Tag, Key: spec.Key}
		}
	}
	return rec, nil
}

func hasField(rec *cs2.Record, key string) bool {
	_, ok := rec.Get(key)
	return ok
}

func valueFrom(spec *cs2.FieldSpec, n *yaml.Node) (cs2.Value, error) {
	switch spec.Kind {
	case cs2.FieldScalar:
		return scalarFrom(spec, spec.Scalar, n)
	case cs2.FieldTuple:
		if n.Kind != yaml.SequenceNode || len(n.Content) != spec.TupleLen {
			return nil, fmt.Errorf("bridge: field %q (line %d): expected a list of %d values", spec.Key, n.Line, spec.TupleLen)
		}
		t := make(cs2.Tuple, len(n.Content))
		for i, item := range n.Content {
			s, err := scalarFrom(spec, spec.Scalar, item)
			if err != nil {
				return nil, err
			}
			t[i] = s
		}
		return t, nil
	case cs2.FieldRecord:
		return FromNode(spec.Record, n)
	case cs2.FieldSequence:
		if n.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("bridge: field %q (line %d): expected a list of records", spec.Key, n.Line)
		}
		seq := make(cs2.Sequence, 0, len(n.Content))
		for _, item := range n.Content {
			r, err := FromNode(spec.Record, item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, r)
		}
		return seq, nil
	default:
		return nil, fmt.Errorf("bridge: field %q: unsupported kind %s", spec.Key, spec.Kind)
	}
}

func scalarFrom(spec *cs2.FieldSpec, t cs2.ScalarType, n *yaml.Node) (cs2.Scalar, error) {
	if n.Kind != yaml.ScalarNode {
		return cs2.Scalar{}, fmt.Errorf("bridge: field %q (line %d): expected a scalar", spec.Key, n.Line)
	}
	switch t.Kind {
	case cs2.KindString:
		return cs2.String(n.Value), nil
	case cs2.KindBytes:
		b, err := hexfmt.DecodeBytes(n.Value)
		if err != nil {
			return cs2.Scalar{}, fmt.Errorf("bridge: field %q (line %d): %w", spec.Key, n.Line, err)
		}
		return cs2.Bytes(b), nil
	}
	var raw any
	if err := n.Decode(&raw); err != nil {
		return cs2.Scalar{}, fmt.Errorf("bridge: field %q (line %d): %w", spec.Key, n.Line, err)
	}
	s, err := schemafile.ScalarFrom(t, raw)
	if err != nil {
		return cs2.Scalar{}, fmt.Errorf("bridge: field %q (line %d): %w", spec.Key, n.Line, err)
	}
	return s, nil
}
