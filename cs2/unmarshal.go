package cs2

import (
	"fmt"
	"reflect"

	"github.com/danmuck/cs2kit/internal/hexfmt"
)

// Unmarshal decodes data into the struct pointed to by v, using the schema
// derived from its type. Fields absent from the document are left untouched. On
// error v is not modified.
func Unmarshal(data []byte, v any, opts ...DecodeOption) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: Unmarshal needs a non-nil struct pointer, got %T", ErrInvalidTarget, v)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: Unmarshal needs a non-nil struct pointer, got %T", ErrInvalidTarget, v)
	}
	info, err := typeInfoFor(rv.Type())
	if err != nil {
		return err
	}
	hex := info.hexFields()
	if len(hex) > 0 {
		opts = append(opts[:len(opts):len(opts)], withScalarCheck(func(spec *FieldSpec, s Scalar) error {
			fi, ok := hex[spec]
			if !ok {
				return nil
			}
			if _, err := hexfmt.ParseUint(s.Str, fi.hexBits); err != nil {
				return fmt.Errorf("%w: %q is not a %d-bit 0x value", ErrExpectedInteger, s.Str, fi.hexBits)
			}
			return nil
		}))
	}
	rec, err := Decode(info.schema, data, opts...)
	if err != nil {
		return err
	}
	out := reflect.New(rv.Type()).Elem()
	out.Set(rv)
	if err := info.assign(rec, out); err != nil {
		return err
	}
	rv.Set(out)
	return nil
}

func (info *typeInfo) assign(rec *Record, rv reflect.Value) error {
	for i := range info.fields {
		fi := &info.fields[i]
		val, ok := rec.Get(fi.key)
		if !ok {
			continue
		}
		target := rv.FieldByIndex(fi.index)
		if fi.ptr {
			p := reflect.New(target.Type().Elem())
			target.Set(p)
			target = p.Elem()
		}
		if err := fi.assign(val, target); err != nil {
			return err
		}
	}
	return nil
}

func (fi *fieldInfo) assign(val Value, target reflect.Value) error {
	mismatch := func() error {
		return fmt.Errorf("%w: field %q holds %T", ErrDecoderState, fi.key, val)
	}
	switch fi.mapping {
	case mapScalar:
		s, ok := val.(Scalar)
		if !ok {
			return mismatch()
		}
		setScalar(target, s)
	case mapHex:
		s, ok := val.(Scalar)
		if !ok {
			return mismatch()
		}
		u, err := hexfmt.ParseUint(s.Str, fi.hexBits)
		if err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrExpectedInteger, fi.key, err)
		}
		target.SetUint(u)
	case mapTuple:
		t, ok := val.(Tuple)
		if !ok || len(t) != target.Len() {
			return mismatch()
		}
		for i, s := range t {
			setScalar(target.Index(i), s)
		}
	case mapRecord:
		r, ok := val.(*Record)
		if !ok {
			return mismatch()
		}
		return fi.record.assign(r, target)
	case mapSequence:
		seq, ok := val.(Sequence)
		if !ok {
			return mismatch()
		}
		out := reflect.MakeSlice(target.Type(), len(seq), len(seq))
		for i, r := range seq {
			ev := out.Index(i)
			if fi.elemPtr {
				p := reflect.New(ev.Type().Elem())
				ev.Set(p)
				ev = p.Elem()
			}
			if err := fi.record.assign(r, ev); err != nil {
				return err
			}
		}
		target.Set(out)
	default:
		return mismatch()
	}
	return nil
}

func setScalar(target reflect.Value, s Scalar) {
	switch s.Kind {
	case KindBool:
		target.SetBool(s.Bool)
	case KindInt:
		target.SetInt(s.Int)
	case KindUint:
		target.SetUint(s.Uint)
	case KindString:
		target.SetString(s.Str)
	case KindBytes:
		target.SetBytes(append([]byte(nil), s.Bytes...))
	}
}
