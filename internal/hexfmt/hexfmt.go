// Package hexfmt renders and parses the 0x-prefixed hexadecimal forms used by
// CS2 files for identifiers, addresses and raw byte strings.
package hexfmt

import (
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
)

const Prefix = "0x"

var ErrSyntax = errors.New("hexfmt: invalid hexadecimal value")

// FormatUint renders v as 0x-prefixed lowercase hex. With full set the digits are
// zero padded to the width of a bits-sized integer (0x0005 for a uint16), otherwise
// leading zeros are dropped (0x5).
func FormatUint(v uint64, bits int, full bool) string {
	digits := strconv.FormatUint(v, 16)
	if full {
		width := bits / 4
		if pad := width - len(digits); pad > 0 {
			digits = strings.Repeat("0", pad) + digits
		}
	}
	return Prefix + digits
}

// ParseUint parses a 0x-prefixed hex integer that fits in bits. Bare digits are
// rejected since the format writes those as decimal.
func ParseUint(s string, bits int) (uint64, error) {
	if !HasPrefix(s) {
		return 0, ErrSyntax
	}
	digits := s[2:]
	if digits == "" {
		return 0, ErrSyntax
	}
	v, err := strconv.ParseUint(digits, 16, bits)
	if err != nil {
		return 0, ErrSyntax
	}
	return v, nil
}

// EncodeBytes renders b as 0x followed by two lowercase hex digits per byte.
func EncodeBytes(b []byte) string {
	return Prefix + hex.EncodeToString(b)
}

// AppendBytes is the append form of EncodeBytes.
func AppendBytes(dst []byte, b []byte) []byte {
	dst = append(dst, Prefix...)
	return append(dst, hex.EncodeToString(b)...)
}

// DecodeBytes parses an optionally 0x-prefixed even-length run of hex digits.
func DecodeBytes(s string) ([]byte, error) {
	out, err := hex.DecodeString(trimPrefix(s))
	if err != nil {
		return nil, ErrSyntax
	}
	return out, nil
}

// HasPrefix reports whether s starts with a 0x or 0X prefix.
func HasPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func trimPrefix(s string) string {
	if HasPrefix(s) {
		return s[2:]
	}
	return s
}
