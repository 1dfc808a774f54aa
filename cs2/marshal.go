package cs2

import (
	"fmt"
	"reflect"

	"github.com/danmuck/cs2kit/internal/hexfmt"
)

// Marshal renders the struct v (or *v) as a CS2 document. The struct's field
// tags describe the record:
//
//	`cs2:"key"`           field key, defaults to the lower-cased field name
//	`cs2:"key,omitempty"` omit the field when it holds its zero value
//	`cs2:"key,default"`   always write; a missing field decodes as zero
//	`cs2:"key,hex"`       unsigned integer written as compact 0x hex
//	`cs2:"key,hexfull"`   unsigned integer written as zero-padded 0x hex
//	`cs2:"-"`             ignored
//
// Pointer fields are optional and omitted when nil. Slices of structs are
// sequences, arrays are tuples.
func Marshal(v any, opts ...EncodeOption) ([]byte, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil %s", ErrUnrepresentable, rv.Type())
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T is not a struct", ErrUnsupportedKind, v)
	}
	info, err := typeInfoFor(rv.Type())
	if err != nil {
		return nil, err
	}
	enc := NewEncoder(opts...)
	if err := info.encode(enc, rv); err != nil {
		return nil, err
	}
	return enc.Bytes()
}

func (info *typeInfo) encode(enc *Encoder, rv reflect.Value) error {
	if err := enc.BeginRecord(info.schema.Tag, info.schema.Root); err != nil {
		return err
	}
	for i := range info.fields {
		if err := info.fields[i].encode(enc, rv.FieldByIndex(info.fields[i].index)); err != nil {
			return err
		}
	}
	return enc.EndRecord()
}

func (fi *fieldInfo) encode(enc *Encoder, fv reflect.Value) error {
	if fi.ptr {
		if fv.IsNil() {
			return nil
		}
		fv = fv.Elem()
	} else if fi.omitEmpty && fv.IsZero() {
		return nil
	}

	switch fi.mapping {
	case mapScalar:
		return enc.WriteScalar(fi.key, scalarOf(fv, fi.scalar.Kind))
	case mapHex:
		return enc.WriteScalar(fi.key, String(hexfmt.FormatUint(fv.Uint(), fi.hexBits, fi.hexFull)))
	case mapTuple:
		t := make(Tuple, fv.Len())
		for i := range t {
			t[i] = scalarOf(fv.Index(i), fi.scalar.Kind)
		}
		return enc.WriteTuple(fi.key, t)
	case mapRecord:
		if err := enc.BeginNested(fi.key); err != nil {
			return err
		}
		return fi.record.encode(enc, fv)
	case mapSequence:
		for i := 0; i < fv.Len(); i++ {
			ev := fv.Index(i)
			if fi.elemPtr {
				if ev.IsNil() {
					return enc.fail(fmt.Errorf("%w: nil element in sequence %q", ErrUnrepresentable, fi.key))
				}
				ev = ev.Elem()
			}
			if err := enc.BeginNested(fi.key); err != nil {
				return err
			}
			if err := fi.record.encode(enc, ev); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.fail(fmt.Errorf("%w: field %s", ErrUnsupportedKind, fi.name))
	}
}

func scalarOf(fv reflect.Value, kind ScalarKind) Scalar {
	switch kind {
	case KindBool:
		return Bool(fv.Bool())
	case KindInt:
		return Int(fv.Int())
	case KindUint:
		return Uint(fv.Uint())
	case KindString:
		return String(fv.String())
	case KindBytes:
		return Scalar{Kind: KindBytes, Bytes: fv.Bytes()}
	default:
		return Scalar{}
	}
}
