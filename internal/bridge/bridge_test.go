package bridge

import (
	"errors"
	"testing"

	"github.com/danmuck/cs2kit/cs2"
	"github.com/danmuck/cs2kit/internal/schemafile"
	"github.com/danmuck/cs2kit/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

const lokomotiveText = `lokomotive
 .name=Lok
 .uid=0x4001
 .adresse=0x5
 .funktionen
 ..nr=1
 ..typ=1
 ..dauer=-1
 ..wert=0
 .blocks=0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 1
`

func lokomotiveSchema(t *testing.T) *cs2.RecordSchema {
	t.Helper()
	reg, err := schemafile.NewRegistry("")
	require.NoError(t, err)
	s, ok := reg.Lookup("lokomotive")
	require.True(t, ok)
	return s
}

func TestYAMLRoundTrip(t *testing.T) {
	testlog.Start(t)
	schema := lokomotiveSchema(t)
	rec, err := cs2.Decode(schema, []byte(lokomotiveText))
	require.NoError(t, err)

	out, err := EncodeYAML(rec)
	require.NoError(t, err)
	require.Equal(t, `name: Lok
uid: "0x4001"
adresse: "0x5"
funktionen:
  - nr: 1
    typ: 1
    dauer: -1
    wert: 0
blocks: [0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1]
`, string(out))

	back, err := DecodeYAML(schema, out)
	require.NoError(t, err)
	require.True(t, rec.Equal(back))

	text, err := cs2.Encode(back)
	require.NoError(t, err)
	require.Equal(t, lokomotiveText, string(text))
}

func TestJSONRoundTrip(t *testing.T) {
	testlog.Start(t)
	schema := lokomotiveSchema(t)
	rec, err := cs2.Decode(schema, []byte(lokomotiveText))
	require.NoError(t, err)

	out, err := EncodeJSON(rec)
	require.NoError(t, err)
	require.Contains(t, string(out), `"uid": "0x4001"`)
	require.Less(t, indexOf(out, `"name"`), indexOf(out, `"funktionen"`))

	back, err := DecodeJSON(schema, out)
	require.NoError(t, err)
	require.True(t, rec.Equal(back))
}

func TestDecodeKeepsDocumentOrder(t *testing.T) {
	testlog.Start(t)
	schema := lokomotiveSchema(t)
	rec, err := DecodeJSON(schema, []byte(`{"adresse":"0x3","uid":"0x1","name":"Z"}`))
	require.NoError(t, err)
	text, err := cs2.Encode(rec)
	require.NoError(t, err)
	require.Equal(t, "lokomotive\n .adresse=0x3\n .uid=0x1\n .name=Z\n", string(text))
}

func TestDecodeErrors(t *testing.T) {
	testlog.Start(t)
	schema := lokomotiveSchema(t)

	_, err := DecodeYAML(schema, []byte("name: Lok\nuid: '0x1'\nadresse: '0x1'\nspeed: 3\n"))
	require.ErrorIs(t, err, cs2.ErrUnknownField)

	_, err = DecodeYAML(schema, []byte("name: Lok\nuid: '0x1'\n"))
	var missing cs2.MissingFieldError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "adresse", missing.Key)

	_, err = DecodeYAML(schema, []byte("name: Lok\nuid: '0x1'\nadresse: '0x1'\nfunktionen: [{nr: 300, typ: 1, dauer: 0, wert: 0}]\n"))
	require.ErrorContains(t, err, "overflows uint8")

	_, err = DecodeYAML(schema, []byte("name: Lok\nuid: '0x1'\nadresse: '0x1'\nblocks: [1, 2]\n"))
	require.ErrorContains(t, err, "list of 16")

	_, err = DecodeJSON(schema, []byte(`{"name":`))
	require.ErrorContains(t, err, "invalid JSON")

	_, err = DecodeYAML(schema, nil)
	require.ErrorIs(t, err, ErrEmptyDocument)

	_, err = DecodeYAML(schema, []byte("- 1\n"))
	require.ErrorContains(t, err, "expected a mapping")
}

func TestNullMeansAbsent(t *testing.T) {
	testlog.Start(t)
	schema := lokomotiveSchema(t)
	rec, err := DecodeYAML(schema, []byte("name: Lok\nvorname: null\nuid: '0x1'\nadresse: '0x1'\n"))
	require.NoError(t, err)
	_, ok := rec.Get("vorname")
	require.False(t, ok)

	_, err = DecodeYAML(schema, []byte("name: ~\nuid: '0x1'\nadresse: '0x1'\n"))
	require.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, JSON, f)
	f, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, YAML, f)
	_, err = ParseFormat("xml")
	require.Error(t, err)
}

func indexOf(b []byte, sub string) int {
	for i := 0; i+len(sub) <= len(b); i++ {
		if string(b[i:i+len(sub)]) == sub {
			return i
		}
	}
	return -1
}
