package cs2

import (
	"bytes"
	"fmt"
)

// ScalarKind is the lexical class of a scalar value.
type ScalarKind uint8

const (
	KindInvalid ScalarKind = iota
	KindBool
	KindInt
	KindUint
	KindString
	KindBytes
)

func (k ScalarKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	default:
		return "invalid"
	}
}

// Scalar is a single leaf value. Only the member selected by Kind is meaningful.
type Scalar struct {
	Kind  ScalarKind
	Bool  bool
	Int   int64
	Uint  uint64
	Str   string
	Bytes []byte
}

func Bool(v bool) Scalar     { return Scalar{Kind: KindBool, Bool: v} }
func Int(v int64) Scalar     { return Scalar{Kind: KindInt, Int: v} }
func Uint(v uint64) Scalar   { return Scalar{Kind: KindUint, Uint: v} }
func String(v string) Scalar { return Scalar{Kind: KindString, Str: v} }

// Bytes returns a byte sequence scalar holding a copy of v.
func Bytes(v []byte) Scalar {
	buf := make([]byte, len(v))
	copy(buf, v)
	return Scalar{Kind: KindBytes, Bytes: buf}
}

// Equal reports whether s and o hold the same kind and value.
func (s Scalar) Equal(o Scalar) bool {
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case KindBool:
		return s.Bool == o.Bool
	case KindInt:
		return s.Int == o.Int
	case KindUint:
		return s.Uint == o.Uint
	case KindString:
		return s.Str == o.Str
	case KindBytes:
		return bytes.Equal(s.Bytes, o.Bytes)
	default:
		return true
	}
}

// Interface returns the scalar as a plain Go value (bool, int64, uint64, string or []byte).
func (s Scalar) Interface() any {
	switch s.Kind {
	case KindBool:
		return s.Bool
	case KindInt:
		return s.Int
	case KindUint:
		return s.Uint
	case KindString:
		return s.Str
	case KindBytes:
		return s.Bytes
	default:
		return nil
	}
}

func (s Scalar) String() string {
	return string(appendScalar(nil, s))
}

// Value is the sum type held by a Field: Scalar, Tuple, *Record or Sequence.
type Value interface {
	isValue()
}

// Tuple is a fixed-length run of scalars rendered on one line.
type Tuple []Scalar

// Sequence is an ordered run of structurally identical records sharing one tag.
type Sequence []*Record

func (Scalar) isValue()   {}
func (Tuple) isValue()    {}
func (Sequence) isValue() {}
func (*Record) isValue()  {}

// Field is one key/value pair of a record.
type Field struct {
	Key   string
	Value Value
}

// Record is a tagged, ordered list of fields. A Root record is rendered with a
// bracketed header and does not add a depth level for its fields.
type Record struct {
	Tag    string
	Root   bool
	Fields []Field
}

// NewRecord returns an empty record with the given tag.
func NewRecord(tag string) *Record {
	return &Record{Tag: tag}
}

// Set appends a field, or replaces the value of an existing field with the same key.
func (r *Record) Set(key string, v Value) *Record {
	for i := range r.Fields {
		if r.Fields[i].Key == key {
			r.Fields[i].Value = v
			return r
		}
	}
	r.Fields = append(r.Fields, Field{Key: key, Value: v})
	return r
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Scalar returns the scalar stored under key.
func (r *Record) Scalar(key string) (Scalar, bool) {
	v, ok := r.Get(key)
	if !ok {
		return Scalar{}, false
	}
	s, ok := v.(Scalar)
	return s, ok
}

// Record returns the nested record stored under key.
func (r *Record) Record(key string) (*Record, bool) {
	v, ok := r.Get(key)
	if !ok {
		return nil, false
	}
	rec, ok := v.(*Record)
	return rec, ok
}

// Sequence returns the sequence stored under key. A missing key yields an empty sequence.
func (r *Record) Sequence(key string) Sequence {
	v, ok := r.Get(key)
	if !ok {
		return nil
	}
	seq, _ := v.(Sequence)
	return seq
}

// Equal reports deep equality, including field order.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.Tag != o.Tag || r.Root != o.Root || len(r.Fields) != len(o.Fields) {
		return false
	}
	for i := range r.Fields {
		if r.Fields[i].Key != o.Fields[i].Key {
			return false
		}
		if !valueEqual(r.Fields[i].Value, o.Fields[i].Value) {
			return false
		}
	}
	return true
}

func valueEqual(a, b Value) bool {
	switch av := a.(type) {
	case Scalar:
		bv, ok := b.(Scalar)
		return ok && av.Equal(bv)
	case Tuple:
		bv, ok := b.(Tuple)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !av[i].Equal(bv[i]) {
				return false
			}
		}
		return true
	case *Record:
		bv, ok := b.(*Record)
		return ok && av.Equal(bv)
	case Sequence:
		bv, ok := b.(Sequence)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !av[i].Equal(bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}

func (r *Record) String() string {
	return fmt.Sprintf("Record(%s, %d fields)", r.Tag, len(r.Fields))
}
