package hexfmt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatUint(t *testing.T) {
	require.Equal(t, "0x4001", FormatUint(0x4001, 16, true))
	require.Equal(t, "0x0005", FormatUint(5, 16, true))
	require.Equal(t, "0x5", FormatUint(5, 16, false))
	require.Equal(t, "0xffcd995d", FormatUint(0xffcd995d, 32, true))
	require.Equal(t, "0x0", FormatUint(0, 8, false))
}

func TestParseUint(t *testing.T) {
	v, err := ParseUint("0x4001", 16)
	require.NoError(t, err)
	require.Equal(t, uint64(0x4001), v)

	v, err = ParseUint("0Xff", 8)
	require.NoError(t, err)
	require.Equal(t, uint64(0xff), v)

	for _, bad := range []string{"", "0x", "0x1ff", "zz", "-1", "ff", "10", "0x-1"} {
		_, err := ParseUint(bad, 8)
		require.ErrorIs(t, err, ErrSyntax, bad)
	}
}

func TestBytes(t *testing.T) {
	require.Equal(t, "0xdead01", EncodeBytes([]byte{0xde, 0xad, 0x01}))
	require.Equal(t, "x=0x00", string(AppendBytes([]byte("x="), []byte{0})))

	b, err := DecodeBytes("0XBEEF")
	require.NoError(t, err)
	require.Equal(t, []byte{0xbe, 0xef}, b)

	_, err = DecodeBytes("0xabc")
	require.ErrorIs(t, err, ErrSyntax)
}
