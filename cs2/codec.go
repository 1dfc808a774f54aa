package cs2

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Encode renders rec as a CS2 document. Fields are written in order; a nil field
// value or an empty sequence is absent and produces no line.
func Encode(rec *Record, opts ...EncodeOption) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", ErrEncoderState)
	}
	enc := NewEncoder(opts...)
	if err := encodeRecord(enc, rec); err != nil {
		log.Debug().Err(err).Str("tag", rec.Tag).Msg("cs2 encode failed")
		return nil, err
	}
	return enc.Bytes()
}

func encodeRecord(enc *Encoder, rec *Record) error {
	if err := enc.BeginRecord(rec.Tag, rec.Root); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(rec.Fields))
	for _, f := range rec.Fields {
		if _, dup := seen[f.Key]; dup {
			return enc.fail(fmt.Errorf("%w: duplicate key %q in record %q", ErrUnrepresentable, f.Key, rec.Tag))
		}
		seen[f.Key] = struct{}{}
		if err := encodeField(enc, f); err != nil {
			return err
		}
	}
	return enc.EndRecord()
}

func encodeField(enc *Encoder, f Field) error {
	switch v := f.Value.(type) {
	case nil:
		return nil
	case Scalar:
		return enc.WriteScalar(f.Key, v)
	case Tuple:
		return enc.WriteTuple(f.Key, v)
	case *Record:
		if v == nil {
			return nil
		}
		if err := enc.BeginNested(f.Key); err != nil {
			return err
		}
		return encodeRecord(enc, v)
	case Sequence:
		for _, elem := range v {
			if elem == nil {
				return enc.fail(fmt.Errorf("%w: nil element in sequence %q", ErrUnrepresentable, f.Key))
			}
			if err := enc.BeginNested(f.Key); err != nil {
				return err
			}
			if err := encodeRecord(enc, elem); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.fail(fmt.Errorf("%w: %T in field %q", ErrUnsupportedKind, f.Value, f.Key))
	}
}

// Decode parses text as a record described by schema. Fields of the result follow
// the schema's field order; missing fields take their default, optional fields
// without a default stay absent, and any other missing field is an error.
func Decode(schema *RecordSchema, text []byte, opts ...DecodeOption) (*Record, error) {
	if schema == nil {
		return nil, SchemaError{Reason: "nil schema"}
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	dec := NewDecoder(text, opts...)
	rec, err := decodeRecord(dec, schema)
	if err != nil {
		log.Debug().Err(err).Str("tag", schema.Tag).Msg("cs2 decode failed")
		return nil, err
	}
	return rec, nil
}

func decodeRecord(dec *Decoder, schema *RecordSchema) (*Record, error) {
	if err := dec.OpenRecord(schema.Tag, schema.Root); err != nil {
		return nil, err
	}
	values := make(map[string]Value, len(schema.Fields))
	for {
		key, hasValue, ok, err := dec.NextField()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		spec := schema.Field(key)
		if spec == nil {
			if dec.opts.disallowUnknown {
				return nil, dec.Fail(ErrUnknownField)
			}
			if err := dec.SkipValue(); err != nil {
				return nil, err
			}
			continue
		}
		if _, dup := values[key]; dup {
			return nil, dec.Fail(ErrDuplicateField)
		}
		v, err := decodeField(dec, spec, hasValue)
		if err != nil {
			return nil, err
		}
		values[key] = v
	}
	if err := dec.CloseRecord(); err != nil {
		return nil, err
	}

	rec := &Record{Tag: schema.Tag, Root: schema.Root, Fields: make([]Field, 0, len(values))}
	for i := range schema.Fields {
		spec := &schema.Fields[i]
		v, ok := values[spec.Key]
		if !ok {
			switch {
			case spec.Default != nil:
				v = spec.Default
			case spec.Optional || spec.Kind == FieldSequence:
				continue
			default:
				return nil, MissingFieldError{Tag: schema.Tag, Key: spec.Key}
			}
		}
		rec.Fields = append(rec.Fields, Field{Key: spec.Key, Value: v})
	}
	return rec, nil
}

func decodeField(dec *Decoder, spec *FieldSpec, hasValue bool) (Value, error) {
	switch spec.Kind {
	case FieldScalar:
		if !hasValue {
			return nil, dec.Fail(ErrExpectedFieldSeparator)
		}
		s, err := dec.ReadScalar(spec.Scalar)
		if err != nil {
			return nil, err
		}
		if check := dec.opts.checkScalar; check != nil {
			if err := check(spec, s); err != nil {
				return nil, dec.Fail(err)
			}
		}
		return s, nil
	case FieldTuple:
		if !hasValue {
			return nil, dec.Fail(ErrExpectedFieldSeparator)
		}
		return dec.ReadTuple(spec.TupleLen, spec.Scalar)
	case FieldRecord:
		if hasValue {
			return nil, dec.Fail(ErrTagMismatch)
		}
		return decodeRecord(dec, spec.Record)
	case FieldSequence:
		if hasValue {
			return nil, dec.Fail(ErrTagMismatch)
		}
		var seq Sequence
		for {
			elem, err := decodeRecord(dec, spec.Record)
			if err != nil {
				return nil, err
			}
			seq = append(seq, elem)
			more, err := dec.NextSequenceElement(spec.Key)
			if err != nil {
				return nil, err
			}
			if !more {
				return seq, nil
			}
		}
	default:
		return nil, dec.Fail(ErrDecoderState)
	}
}
