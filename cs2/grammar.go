package cs2

import (
	"strconv"
	"strings"

	"github.com/danmuck/cs2kit/internal/hexfmt"
)

// Line grammar:
//
//	header := tag | '[' tag ']'
//	field  := (' ' '.'{depth})? key ('=' value)?
//	value  := scalar | scalar (' ' scalar)*
//
// A field at depth 0 (directly inside a root container) carries neither the
// leading space nor any depth marker.
const (
	depthMarker   = '.'
	fieldSep      = '='
	tupleSep      = ' '
	lineEnd       = '\n'
	rootOpen      = '['
	rootClose     = ']'
	boolTrue      = '1'
	boolFalse     = '0'
	indentPadding = ' '
)

// appendHeader writes a record header line body (without the terminator).
func appendHeader(dst []byte, tag string, root bool) []byte {
	if root {
		dst = append(dst, rootOpen)
		dst = append(dst, tag...)
		return append(dst, rootClose)
	}
	return append(dst, tag...)
}

// appendFieldPrefix writes the indentation and key of a field line.
func appendFieldPrefix(dst []byte, depth int, key string) []byte {
	if depth > 0 {
		dst = append(dst, indentPadding)
		for i := 0; i < depth; i++ {
			dst = append(dst, depthMarker)
		}
	}
	return append(dst, key...)
}

func appendScalar(dst []byte, s Scalar) []byte {
	switch s.Kind {
	case KindBool:
		if s.Bool {
			return append(dst, boolTrue)
		}
		return append(dst, boolFalse)
	case KindInt:
		return strconv.AppendInt(dst, s.Int, 10)
	case KindUint:
		return strconv.AppendUint(dst, s.Uint, 10)
	case KindString:
		return append(dst, s.Str...)
	case KindBytes:
		return hexfmt.AppendBytes(dst, s.Bytes)
	default:
		return dst
	}
}

// checkKey rejects keys and tags the line grammar cannot carry.
func checkKey(key string) bool {
	if key == "" || key[0] == depthMarker || key[0] == rootOpen {
		return false
	}
	return !strings.ContainsAny(key, "=\n\r\t ")
}

// checkScalar rejects values that would break the line structure. Inside a tuple
// a string must additionally be non-empty and free of the tuple separator.
func checkScalar(s Scalar, inTuple bool) error {
	switch s.Kind {
	case KindBool, KindInt, KindUint, KindBytes:
		return nil
	case KindString:
		if strings.ContainsAny(s.Str, "\n\r") {
			return ErrUnrepresentable
		}
		if inTuple && (s.Str == "" || strings.ContainsRune(s.Str, tupleSep)) {
			return ErrUnrepresentable
		}
		return nil
	default:
		return ErrUnsupportedKind
	}
}

// lineView is a peeked, not yet consumed, non-blank input line.
type lineView struct {
	num  int    // 1-based line number
	next int    // offset of the line that follows
	dots int    // depth marker count
	body string // content after indentation and depth markers
}

// split separates a field body into key and value. hasValue reports whether the
// line carried a field separator.
func (v lineView) split() (key, value string, hasValue bool) {
	if i := strings.IndexByte(v.body, fieldSep); i >= 0 {
		return v.body[:i], v.body[i+1:], true
	}
	return strings.TrimRight(v.body, " \t"), "", false
}

// isHeader reports whether the line is exactly the header of the given record.
func (v lineView) isHeader(tag string, root bool) bool {
	if v.dots != 0 {
		return false
	}
	body := strings.TrimRight(v.body, " \t")
	if root {
		return len(body) == len(tag)+2 &&
			body[0] == rootOpen && body[len(body)-1] == rootClose &&
			body[1:len(body)-1] == tag
	}
	return body == tag
}

// scanLine finds the first non-blank line at or after offset pos. line is the
// number of the line that starts at pos.
func scanLine(input string, pos, line int) (lineView, bool) {
	for pos < len(input) {
		end := strings.IndexByte(input[pos:], lineEnd)
		next := len(input)
		if end >= 0 {
			end += pos
			next = end + 1
		} else {
			end = len(input)
		}
		content := strings.TrimRight(input[pos:end], "\r")
		content = strings.TrimLeft(content, " \t")
		if strings.TrimSpace(content) != "" {
			dots := 0
			for dots < len(content) && content[dots] == depthMarker {
				dots++
			}
			return lineView{num: line, next: next, dots: dots, body: content[dots:]}, true
		}
		pos = next
		line++
	}
	return lineView{}, false
}

// scanScalar parses one scalar of type t from the start of s. Inside a tuple the
// token ends at the next tuple separator, otherwise strings and byte sequences run
// to the end of the line. It returns the scalar and the number of bytes consumed.
func scanScalar(s string, t ScalarType, inTuple bool) (Scalar, int, error) {
	switch t.Kind {
	case KindBool:
		if s == "" {
			return Scalar{}, 0, ErrExpectedBoolean
		}
		switch s[0] {
		case boolTrue:
			return Bool(true), 1, nil
		case boolFalse:
			return Bool(false), 1, nil
		}
		return Scalar{}, 0, ErrExpectedBoolean
	case KindInt:
		n := 0
		if n < len(s) && s[n] == '-' {
			n++
		}
		digits := countDigits(s[n:])
		if digits == 0 {
			return Scalar{}, 0, ErrExpectedInteger
		}
		n += digits
		v, err := strconv.ParseInt(s[:n], 10, t.bits())
		if err != nil {
			return Scalar{}, 0, ErrExpectedInteger
		}
		return Int(v), n, nil
	case KindUint:
		n := countDigits(s)
		if n == 0 {
			return Scalar{}, 0, ErrExpectedInteger
		}
		v, err := strconv.ParseUint(s[:n], 10, t.bits())
		if err != nil {
			return Scalar{}, 0, ErrExpectedInteger
		}
		return Uint(v), n, nil
	case KindString:
		tok := token(s, inTuple)
		if inTuple && tok == "" {
			return Scalar{}, 0, ErrExpectedString
		}
		return String(tok), len(tok), nil
	case KindBytes:
		tok := token(s, inTuple)
		b, err := hexfmt.DecodeBytes(tok)
		if err != nil {
			return Scalar{}, 0, ErrExpectedBytes
		}
		return Scalar{Kind: KindBytes, Bytes: b}, len(tok), nil
	default:
		return Scalar{}, 0, ErrUnsupportedKind
	}
}

func token(s string, inTuple bool) string {
	if !inTuple {
		return s
	}
	if i := strings.IndexByte(s, tupleSep); i >= 0 {
		return s[:i]
	}
	return s
}

func countDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}
