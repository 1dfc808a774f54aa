package cs2

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/cs2kit/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

var (
	u8  = ScalarType{Kind: KindUint, Bits: 8}
	u16 = ScalarType{Kind: KindUint, Bits: 16}
	i8  = ScalarType{Kind: KindInt, Bits: 8}
	str = ScalarType{Kind: KindString}
)

func funktionSchema() *RecordSchema {
	return &RecordSchema{Tag: "funktionen", Fields: []FieldSpec{
		{Key: "nr", Kind: FieldScalar, Scalar: u8},
		{Key: "typ", Kind: FieldScalar, Scalar: u16, Optional: true},
		{Key: "dauer", Kind: FieldScalar, Scalar: i8, Optional: true},
	}}
}

func lokSchema() *RecordSchema {
	return &RecordSchema{Tag: "lokomotive", Fields: []FieldSpec{
		{Key: "name", Kind: FieldScalar, Scalar: str},
		{Key: "aktiv", Kind: FieldScalar, Scalar: ScalarType{Kind: KindBool}, Optional: true},
		{Key: "daten", Kind: FieldScalar, Scalar: ScalarType{Kind: KindBytes}, Optional: true},
		{Key: "funktionen", Kind: FieldSequence, Record: funktionSchema()},
		{Key: "blocks", Kind: FieldTuple, Scalar: u8, TupleLen: 16, Optional: true},
		{Key: "gruppe", Kind: FieldScalar, Scalar: str, Default: String("keine")},
	}}
}

func funktion(nr uint64, typ uint64) *Record {
	return NewRecord("funktionen").Set("nr", Uint(nr)).Set("typ", Uint(typ))
}

func TestEncodeFunktionenScenario(t *testing.T) {
	testlog.Start(t)
	rec := NewRecord("lokomotive").
		Set("name", String("Lok")).
		Set("funktionen", Sequence{funktion(1, 1), funktion(2, 2)})

	out, err := Encode(rec)
	require.NoError(t, err)
	want := "lokomotive\n .name=Lok\n .funktionen\n ..nr=1\n ..typ=1\n .funktionen\n ..nr=2\n ..typ=2\n"
	require.Equal(t, want, string(out))

	got, err := Decode(lokSchema(), out)
	require.NoError(t, err)
	require.Len(t, got.Sequence("funktionen"), 2)
	require.True(t, got.Sequence("funktionen")[1].Equal(funktion(2, 2)))
}

func TestRoundTripPreservesOrderAndValues(t *testing.T) {
	testlog.Start(t)
	blocks := make(Tuple, 16)
	for i := range blocks {
		blocks[i] = Uint(uint64(i))
	}
	rec := NewRecord("lokomotive").
		Set("name", String("BR 01 = Dampf")).
		Set("aktiv", Bool(true)).
		Set("daten", Bytes([]byte{0x00, 0xff})).
		Set("funktionen", Sequence{
			NewRecord("funktionen").Set("nr", Uint(0)).Set("dauer", Int(-128)),
			funktion(1, 65535),
		}).
		Set("blocks", blocks).
		Set("gruppe", String(""))

	out, err := Encode(rec)
	require.NoError(t, err)
	got, err := Decode(lokSchema(), out)
	require.NoError(t, err)
	require.True(t, rec.Equal(got), "encoded:\n%s", out)

	noNL, err := Encode(rec, WithTrailingNewline(false))
	require.NoError(t, err)
	require.Equal(t, strings.TrimSuffix(string(out), "\n"), string(noNL))
	got, err = Decode(lokSchema(), noNL)
	require.NoError(t, err)
	require.True(t, rec.Equal(got))
}

func TestDepthMarkersMatchNesting(t *testing.T) {
	testlog.Start(t)
	inner := &RecordSchema{Tag: "c", Fields: []FieldSpec{{Key: "v", Kind: FieldScalar, Scalar: u8}}}
	middle := &RecordSchema{Tag: "b", Fields: []FieldSpec{
		{Key: "v", Kind: FieldScalar, Scalar: u8},
		{Key: "c", Kind: FieldRecord, Record: inner},
	}}
	outer := &RecordSchema{Tag: "a", Fields: []FieldSpec{
		{Key: "b", Kind: FieldRecord, Record: middle},
		{Key: "v", Kind: FieldScalar, Scalar: u8},
	}}

	rec := NewRecord("a").
		Set("b", NewRecord("b").Set("v", Uint(2)).Set("c", NewRecord("c").Set("v", Uint(3)))).
		Set("v", Uint(1))
	out, err := Encode(rec)
	require.NoError(t, err)
	require.Equal(t, "a\n .b\n ..v=2\n ..c\n ...v=3\n .v=1\n", string(out))

	got, err := Decode(outer, out)
	require.NoError(t, err)
	require.True(t, rec.Equal(got))

	root := &RecordSchema{Tag: "a", Root: true, Fields: outer.Fields}
	rec.Root = true
	out, err = Encode(rec)
	require.NoError(t, err)
	require.Equal(t, "[a]\nb\n .v=2\n .c\n ..v=3\nv=1\n", string(out))
	got, err = Decode(root, out)
	require.NoError(t, err)
	require.True(t, rec.Equal(got))
}

func TestOptionalFieldsAreOmitted(t *testing.T) {
	testlog.Start(t)
	rec := NewRecord("lokomotive").Set("name", String("Lok")).Set("aktiv", nil)
	out, err := Encode(rec)
	require.NoError(t, err)
	require.Equal(t, "lokomotive\n .name=Lok\n", string(out))

	got, err := Decode(lokSchema(), out)
	require.NoError(t, err)
	_, ok := got.Get("aktiv")
	require.False(t, ok)
	require.Nil(t, got.Sequence("funktionen"))
	gruppe, ok := got.Scalar("gruppe")
	require.True(t, ok)
	require.Equal(t, "keine", gruppe.Str)
}

func TestTupleLengthIsFixed(t *testing.T) {
	testlog.Start(t)
	zeros := func(n int) string {
		return strings.TrimSpace(strings.Repeat("0 ", n))
	}
	_, err := Decode(lokSchema(), []byte("lokomotive\n .name=x\n .blocks="+zeros(16)+"\n"))
	require.NoError(t, err)

	_, err = Decode(lokSchema(), []byte("lokomotive\n .name=x\n .blocks="+zeros(15)+"\n"))
	require.ErrorIs(t, err, ErrExpectedTupleSeparator)

	_, err = Decode(lokSchema(), []byte("lokomotive\n .name=x\n .blocks="+zeros(17)+"\n"))
	require.ErrorIs(t, err, ErrExpectedNewline)

	_, err = Decode(lokSchema(), []byte("lokomotive\n .name=x\n .blocks="+zeros(15)+"  0\n"))
	require.ErrorIs(t, err, ErrExpectedInteger)
}

func TestSequenceGroupingNeedsAdjacency(t *testing.T) {
	testlog.Start(t)
	split := "lokomotive\n .funktionen\n ..nr=1\n .name=x\n .funktionen\n ..nr=2\n"
	_, err := Decode(lokSchema(), []byte(split))
	require.ErrorIs(t, err, ErrDuplicateField)

	adjacent := "lokomotive\n .name=x\n .funktionen\n ..nr=1\n\n .funktionen\n ..nr=2\n"
	got, err := Decode(lokSchema(), []byte(adjacent))
	require.NoError(t, err)
	require.Len(t, got.Sequence("funktionen"), 2)
}

func TestDecodeErrors(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		in   string
		want error
		line int
	}{
		{"empty", "\n  \n", ErrUnexpectedEOF, 0},
		{"wrong tag", "lok\n .name=x\n", ErrTagMismatch, 1},
		{"bracketed non-root", "[lokomotive]\nname=x\n", ErrTagMismatch, 1},
		{"indented header", " .lokomotive\n", ErrInconsistentDepth, 1},
		{"too deep", "lokomotive\n ..name=x\n", ErrInconsistentDepth, 2},
		{"bool", "lokomotive\n .name=x\n .aktiv=2\n", ErrExpectedBoolean, 3},
		{"int", "lokomotive\n .name=x\n .funktionen\n ..nr=abc\n", ErrExpectedInteger, 4},
		{"int range", "lokomotive\n .name=x\n .funktionen\n ..nr=256\n", ErrExpectedInteger, 4},
		{"signed range", "lokomotive\n .name=x\n .funktionen\n ..nr=1\n ..dauer=-129\n", ErrExpectedInteger, 5},
		{"bytes", "lokomotive\n .name=x\n .daten=0xzz\n", ErrExpectedBytes, 3},
		{"missing separator", "lokomotive\n .name\n", ErrExpectedFieldSeparator, 2},
		{"value on record key", "lokomotive\n .name=x\n .funktionen=1\n", ErrTagMismatch, 3},
		{"junk after integer", "lokomotive\n .name=x\n .funktionen\n ..nr=1x\n", ErrExpectedNewline, 4},
		{"trailing input", "lokomotive\n .name=x\nlokomotive\n", ErrTrailingInput, 3},
		{"duplicate scalar", "lokomotive\n .name=x\n .name=y\n", ErrDuplicateField, 3},
		{"empty key", "lokomotive\n .=x\n", ErrExpectedString, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := Decode(lokSchema(), []byte(tc.in))
			require.Nil(t, rec)
			require.ErrorIs(t, err, tc.want)
			var syn *SyntaxError
			require.True(t, errors.As(err, &syn))
			require.Equal(t, tc.line, syn.Line)
		})
	}
}

func TestDecodeUnknownFields(t *testing.T) {
	testlog.Start(t)
	in := "lokomotive\n .extra\n ..a=1\n ..b\n ...c=2\n .name=x\n .icon=bild\n"
	got, err := Decode(lokSchema(), []byte(in))
	require.NoError(t, err)
	name, _ := got.Scalar("name")
	require.Equal(t, "x", name.Str)
	_, ok := got.Get("extra")
	require.False(t, ok)

	_, err = Decode(lokSchema(), []byte(in), DisallowUnknownFields())
	require.ErrorIs(t, err, ErrUnknownField)
	var syn *SyntaxError
	require.True(t, errors.As(err, &syn))
	require.Equal(t, "extra", syn.Key)
}

func TestDecodeMissingRequiredField(t *testing.T) {
	testlog.Start(t)
	_, err := Decode(lokSchema(), []byte("lokomotive\n .funktionen\n ..typ=1\n"))
	require.Equal(t, MissingFieldError{Tag: "funktionen", Key: "nr"}, err)
}

type bogusValue struct{}

func (bogusValue) isValue() {}

func TestEncodeErrors(t *testing.T) {
	testlog.Start(t)
	_, err := Encode(nil)
	require.ErrorIs(t, err, ErrEncoderState)

	_, err = Encode(NewRecord("a").Set("x", bogusValue{}))
	require.ErrorIs(t, err, ErrUnsupportedKind)

	dup := NewRecord("a")
	dup.Fields = []Field{{Key: "x", Value: Uint(1)}, {Key: "x", Value: Uint(2)}}
	_, err = Encode(dup)
	require.ErrorIs(t, err, ErrUnrepresentable)

	_, err = Encode(NewRecord("a").Set("child", NewRecord("other")))
	require.ErrorIs(t, err, ErrTagMismatch)

	_, err = Encode(NewRecord("a").Set("seq", Sequence{NewRecord("seq"), nil}))
	require.ErrorIs(t, err, ErrUnrepresentable)

	_, err = Encode(NewRecord("a").Set("bad key", Uint(1)))
	require.ErrorIs(t, err, ErrUnrepresentable)

	_, err = Encode(NewRecord("a").Set("x", Scalar{}))
	require.ErrorIs(t, err, ErrUnsupportedKind)

	_, err = Encode(NewRecord("a").Set("t", Tuple{String("")}))
	require.ErrorIs(t, err, ErrUnrepresentable)

	out, err := Encode(NewRecord("a").Set("s", String("")).Set("child", (*Record)(nil)))
	require.NoError(t, err)
	require.Equal(t, "a\n .s=\n", string(out))
}

func TestEncoderMisuse(t *testing.T) {
	testlog.Start(t)
	enc := NewEncoder()
	require.ErrorIs(t, enc.WriteScalar("x", Uint(1)), ErrEncoderState)
	// Sticky: later calls report the first failure.
	require.ErrorIs(t, enc.BeginRecord("a", false), ErrEncoderState)

	enc = NewEncoder()
	require.NoError(t, enc.BeginRecord("a", false))
	require.ErrorIs(t, enc.BeginRecord("b", false), ErrEncoderState)

	enc = NewEncoder()
	require.NoError(t, enc.BeginRecord("a", false))
	require.NoError(t, enc.BeginNested("b"))
	require.ErrorIs(t, enc.BeginRecord("b", true), ErrEncoderState)

	enc = NewEncoder()
	require.NoError(t, enc.BeginRecord("a", false))
	require.Equal(t, 1, enc.Depth())
	_, err := enc.Bytes()
	require.ErrorIs(t, err, ErrEncoderState)
	require.NoError(t, enc.EndRecord())
	require.Equal(t, -1, enc.Depth())
	require.ErrorIs(t, enc.BeginRecord("again", false), ErrEncoderState)

	enc = NewEncoder()
	require.ErrorIs(t, enc.BeginRecord("a=b", false), ErrUnrepresentable)
}

func TestDecoderStateMachine(t *testing.T) {
	testlog.Start(t)
	dec := NewDecoder([]byte("a\n .x=1\n .b\n ..y=2 3\n"))
	require.Equal(t, AtRecordStart, dec.State())
	require.Equal(t, -1, dec.Depth())

	require.NoError(t, dec.OpenRecord("a", false))
	require.Equal(t, 1, dec.Depth())

	key, hasValue, ok, err := dec.NextField()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, hasValue)
	require.Equal(t, "x", key)
	require.Equal(t, AtFieldValue, dec.State())
	v, err := dec.ReadScalar(u8)
	require.NoError(t, err)
	require.Equal(t, Uint(1), v)

	key, hasValue, ok, err = dec.NextField()
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, hasValue)
	require.Equal(t, "b", key)
	require.Equal(t, AtRecordStart, dec.State())
	require.NoError(t, dec.OpenRecord("b", false))
	require.Equal(t, 2, dec.Depth())

	_, _, _, err = dec.NextField()
	require.NoError(t, err)
	tup, err := dec.ReadTuple(2, u8)
	require.NoError(t, err)
	require.Equal(t, Tuple{Uint(2), Uint(3)}, tup)

	_, _, ok, err = dec.NextField()
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, dec.CloseRecord())
	require.Equal(t, AtSequenceBoundary, dec.State())
	more, err := dec.NextSequenceElement("b")
	require.NoError(t, err)
	require.False(t, more)

	_, _, ok, err = dec.NextField()
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, dec.CloseRecord())
	require.Equal(t, Done, dec.State())

	_, err = dec.ReadScalar(u8)
	require.ErrorIs(t, err, ErrDecoderState)
	// Sticky.
	require.ErrorIs(t, dec.CloseRecord(), ErrDecoderState)
}

func TestRegistry(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(lokSchema()))
	stat := &RecordSchema{Name: "lokstat", Tag: "lokomotive", Root: true}
	require.NoError(t, reg.Register(stat))
	require.Equal(t, []string{"lokomotive", "lokstat"}, reg.Names())

	got, ok := reg.Lookup("lokstat")
	require.True(t, ok)
	require.Same(t, stat, got)
	_, ok = reg.Lookup("nope")
	require.False(t, ok)

	var schemaErr SchemaError
	require.True(t, errors.As(reg.Register(lokSchema()), &schemaErr))
	require.Error(t, reg.Register(nil))
}

func TestSchemaValidation(t *testing.T) {
	testlog.Start(t)
	nested := &RecordSchema{Tag: "n"}
	cases := map[string]*RecordSchema{
		"bad tag":        {Tag: "a b"},
		"dup key":        {Tag: "a", Fields: []FieldSpec{{Key: "x", Kind: FieldScalar, Scalar: u8}, {Key: "x", Kind: FieldScalar, Scalar: u8}}},
		"bad bits":       {Tag: "a", Fields: []FieldSpec{{Key: "x", Kind: FieldScalar, Scalar: ScalarType{Kind: KindUint, Bits: 12}}}},
		"empty tuple":    {Tag: "a", Fields: []FieldSpec{{Key: "x", Kind: FieldTuple, Scalar: u8}}},
		"no nested":      {Tag: "a", Fields: []FieldSpec{{Key: "x", Kind: FieldRecord}}},
		"tag elision":    {Tag: "a", Fields: []FieldSpec{{Key: "x", Kind: FieldRecord, Record: nested}}},
		"nested root":    {Tag: "a", Fields: []FieldSpec{{Key: "r", Kind: FieldRecord, Record: &RecordSchema{Tag: "r", Root: true}}}},
		"bad default":    {Tag: "a", Fields: []FieldSpec{{Key: "x", Kind: FieldScalar, Scalar: u8, Default: String("1")}}},
		"no kind":        {Tag: "a", Fields: []FieldSpec{{Key: "x"}}},
		"dotted key":     {Tag: "a", Fields: []FieldSpec{{Key: ".x", Kind: FieldScalar, Scalar: u8}}},
		"invalid scalar": {Tag: "a", Fields: []FieldSpec{{Key: "x", Kind: FieldScalar}}},
	}
	for name, s := range cases {
		var schemaErr SchemaError
		require.True(t, errors.As(s.Validate(), &schemaErr), name)
		// Validation runs once; the result is remembered.
		require.Equal(t, schemaErr, s.Validate(), name)
	}

	_, err := Decode(cases["bad tag"], []byte("a\n"))
	require.Error(t, err)

	self := &RecordSchema{Tag: "node"}
	self.Fields = []FieldSpec{
		{Key: "v", Kind: FieldScalar, Scalar: u8},
		{Key: "node", Kind: FieldSequence, Record: self},
	}
	require.NoError(t, self.Validate())
	rec, err := Decode(self, []byte("node\n .v=1\n .node\n ..v=2\n ..node\n ...v=3\n"))
	require.NoError(t, err)
	require.Len(t, rec.Sequence("node")[0].Sequence("node"), 1)
}
