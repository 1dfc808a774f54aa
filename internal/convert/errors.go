package convert

import (
	"errors"

	"github.com/danmuck/cs2kit/cs2"
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{cs2.ErrUnexpectedEOF, "unexpected_eof"},
	{cs2.ErrExpectedBoolean, "expected_boolean"},
	{cs2.ErrExpectedInteger, "expected_integer"},
	{cs2.ErrExpectedString, "expected_string"},
	{cs2.ErrExpectedBytes, "expected_bytes"},
	{cs2.ErrExpectedFieldSeparator, "expected_field_separator"},
	{cs2.ErrExpectedTupleSeparator, "expected_tuple_separator"},
	{cs2.ErrExpectedNewline, "expected_newline"},
	{cs2.ErrTagMismatch, "tag_mismatch"},
	{cs2.ErrInconsistentDepth, "inconsistent_depth"},
	{cs2.ErrTrailingInput, "trailing_input"},
	{cs2.ErrDuplicateField, "duplicate_field"},
	{cs2.ErrUnknownField, "unknown_field"},
	{cs2.ErrUnsupportedKind, "unsupported_kind"},
	{cs2.ErrUnrepresentable, "unrepresentable"},
	{ErrUnknownSchema, "unknown_schema"},
}

// ErrorInfo summarizes a conversion failure for API and CLI output.
type ErrorInfo struct {
	Error string `json:"error"`
	Line  int    `json:"line,omitempty"`
	Key   string `json:"key,omitempty"`
	Kind  string `json:"kind"`
}

func Describe(err error) ErrorInfo {
	info := ErrorInfo{Error: err.Error(), Kind: "invalid"}
	var syn *cs2.SyntaxError
	if errors.As(err, &syn) {
		info.Line = syn.Line
		info.Key = syn.Key
	}
	var missing cs2.MissingFieldError
	if errors.As(err, &missing) {
		info.Kind = "missing_field"
		info.Key = missing.Key
		return info
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			info.Kind = k.kind
			break
		}
	}
	return info
}
