package cs2

import (
	"errors"
	"fmt"
)

// Decoder errors.
var (
	ErrUnexpectedEOF          = errors.New("cs2: unexpected end of input")
	ErrExpectedBoolean        = errors.New("cs2: expected boolean (0 or 1)")
	ErrExpectedInteger        = errors.New("cs2: expected integer")
	ErrExpectedString         = errors.New("cs2: expected string")
	ErrExpectedBytes          = errors.New("cs2: expected hex byte sequence")
	ErrExpectedFieldSeparator = errors.New("cs2: expected field separator (=)")
	ErrExpectedTupleSeparator = errors.New("cs2: expected tuple separator (space)")
	ErrExpectedNewline        = errors.New("cs2: expected newline")
	ErrTagMismatch            = errors.New("cs2: record tag mismatch")
	ErrInconsistentDepth      = errors.New("cs2: inconsistent indentation depth")
	ErrTrailingInput          = errors.New("cs2: trailing input after outermost record")
	ErrDuplicateField         = errors.New("cs2: duplicate field")
	ErrUnknownField           = errors.New("cs2: unknown field")
	ErrDecoderState           = errors.New("cs2: decoder call out of order")
)

// Encoder errors.
var (
	ErrUnsupportedKind = errors.New("cs2: unsupported value kind")
	ErrUnrepresentable = errors.New("cs2: value cannot be represented")
	ErrEncoderState    = errors.New("cs2: encoder call out of order")
)

// ErrInvalidTarget is returned by Unmarshal for a target that is not a non-nil
// struct pointer.
var ErrInvalidTarget = errors.New("cs2: invalid unmarshal target")

// SyntaxError reports a decode failure together with the input line it was
// detected on. Err is, or wraps, one of the decoder sentinels above.
type SyntaxError struct {
	Line int
	Key  string
	Err  error
}

func (e *SyntaxError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%v (line %d)", e.Err, e.Line)
	}
	return fmt.Sprintf("%v (line %d, key %q)", e.Err, e.Line, e.Key)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// MissingFieldError indicates a required field was absent from a decoded record.
type MissingFieldError struct {
	Tag string
	Key string
}

func (e MissingFieldError) Error() string {
	return fmt.Sprintf("cs2: record %q: missing required field %q", e.Tag, e.Key)
}

// SchemaError reports a schema that cannot drive the codec. It is returned when a
// schema is registered or a Go type is compiled, never in the middle of encoding.
type SchemaError struct {
	Tag    string
	Key    string
	Reason string
}

func (e SchemaError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cs2: schema %q: %s", e.Tag, e.Reason)
	}
	return fmt.Sprintf("cs2: schema %q field %q: %s", e.Tag, e.Key, e.Reason)
}
