package bridge

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/danmuck/cs2kit/cs2"
	"github.com/danmuck/cs2kit/internal/hexfmt"
)

// EncodeJSON renders rec as an indented JSON object whose members follow the
// record's field order.
func EncodeJSON(rec *cs2.Record) ([]byte, error) {
	compact, err := appendRecordJSON(nil, rec)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func appendRecordJSON(dst []byte, rec *cs2.Record) ([]byte, error) {
	dst = append(dst, '{')
	first := true
	for _, f := range rec.Fields {
		if f.Value == nil {
			continue
		}
		if r, ok := f.Value.(*cs2.Record); ok && r == nil {
			continue
		}
		if !first {
			dst = append(dst, ',')
		}
		first = false
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		dst = append(dst, key...)
		dst = append(dst, ':')
		if dst, err = appendValueJSON(dst, f.Value); err != nil {
			return nil, err
		}
	}
	return append(dst, '}'), nil
}

func appendValueJSON(dst []byte, v cs2.Value) ([]byte, error) {
	var err error
	switch v := v.(type) {
	case cs2.Scalar:
		return appendScalarJSON(dst, v)
	case cs2.Tuple:
		dst = append(dst, '[')
		for i, s := range v {
			if i > 0 {
				dst = append(dst, ',')
			}
			if dst, err = appendScalarJSON(dst, s); err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil
	case *cs2.Record:
		return appendRecordJSON(dst, v)
	case cs2.Sequence:
		dst = append(dst, '[')
		for i, r := range v {
			if i > 0 {
				dst = append(dst, ',')
			}
			if dst, err = appendRecordJSON(dst, r); err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil
	default:
		return append(dst, "null"...), nil
	}
}

func appendScalarJSON(dst []byte, s cs2.Scalar) ([]byte, error) {
	switch s.Kind {
	case cs2.KindBool:
		return strconv.AppendBool(dst, s.Bool), nil
	case cs2.KindInt:
		return strconv.AppendInt(dst, s.Int, 10), nil
	case cs2.KindUint:
		return strconv.AppendUint(dst, s.Uint, 10), nil
	case cs2.KindBytes:
		return strconv.AppendQuote(dst, hexfmt.EncodeBytes(s.Bytes)), nil
	default:
		q, err := json.Marshal(s.Str)
		if err != nil {
			return nil, err
		}
		return append(dst, q...), nil
	}
}
