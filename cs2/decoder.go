package cs2

import "fmt"

// DecodeOption configures a Decoder.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	disallowUnknown bool
	// checkScalar vets scalar field values beyond their lexical form.
	checkScalar func(spec *FieldSpec, s Scalar) error
}

// DisallowUnknownFields makes Decode fail on keys the schema does not declare
// instead of skipping them.
func DisallowUnknownFields() DecodeOption {
	return func(o *decodeOptions) { o.disallowUnknown = true }
}

func withScalarCheck(check func(spec *FieldSpec, s Scalar) error) DecodeOption {
	return func(o *decodeOptions) { o.checkScalar = check }
}

// State is the position of a Decoder within the document.
type State uint8

const (
	AtRecordStart State = iota
	AtFieldKey
	AtFieldValue
	AtSequenceBoundary
	AtTupleElement
	Done
)

func (s State) String() string {
	switch s {
	case AtRecordStart:
		return "record-start"
	case AtFieldKey:
		return "field-key"
	case AtFieldValue:
		return "field-value"
	case AtSequenceBoundary:
		return "sequence-boundary"
	case AtTupleElement:
		return "tuple-element"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

type decFrame struct {
	tag   string
	depth int // depth marker count expected on this record's field lines
}

// Decoder reads one document. It never rewinds: lookahead is done by peeking the
// next non-blank line and consuming it only once it is known to belong to the
// caller's current position.
type Decoder struct {
	input   string
	pos     int // offset of the next unconsumed line
	posLine int // number of the line starting at pos
	lineNo  int // number of the last consumed line
	rest    string
	inLine  bool

	frames     []decFrame
	pending    string
	hasPending bool
	key        string

	state State
	err   error
	opts  decodeOptions
}

func NewDecoder(text []byte, opts ...DecodeOption) *Decoder {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Decoder{input: string(text), posLine: 1, state: AtRecordStart, opts: o}
}

// State returns the current decoder state.
func (d *Decoder) State() State { return d.state }

// Depth returns the depth marker count expected on the current record's fields,
// or -1 outside any record.
func (d *Decoder) Depth() int {
	if len(d.frames) == 0 {
		return -1
	}
	return d.top().depth
}

// OpenRecord enters a record with the given tag. At the top level the next
// non-blank line must be its header; a nested record takes over the key line
// returned by NextField or NextSequenceElement, which must equal tag.
func (d *Decoder) OpenRecord(tag string, root bool) error {
	if err := d.expect(AtRecordStart); err != nil {
		return err
	}
	if d.hasPending {
		if d.pending != tag {
			return d.fail(ErrTagMismatch)
		}
		d.hasPending = false
		d.frames = append(d.frames, decFrame{tag: tag, depth: d.top().depth + 1})
		d.state = AtFieldKey
		return nil
	}
	if len(d.frames) != 0 {
		return d.fail(ErrDecoderState)
	}
	v, ok := d.peek()
	if !ok {
		return d.fail(ErrUnexpectedEOF)
	}
	d.lineNo = v.num
	if v.dots != 0 {
		return d.fail(ErrInconsistentDepth)
	}
	if !v.isHeader(tag, root) {
		return d.fail(ErrTagMismatch)
	}
	d.consume(v)
	depth := 1
	if root {
		depth = 0
	}
	d.frames = append(d.frames, decFrame{tag: tag, depth: depth})
	d.state = AtFieldKey
	return nil
}

// NextField advances to the next field of the current record. ok is false when
// the next line is shallower than the record or the input is exhausted; nothing
// is consumed in that case. hasValue reports a key=value line; otherwise the key
// opens a nested record that the caller enters with OpenRecord(key, false).
func (d *Decoder) NextField() (key string, hasValue bool, ok bool, err error) {
	if d.state == AtSequenceBoundary {
		d.state = AtFieldKey
	}
	if err := d.expect(AtFieldKey); err != nil {
		return "", false, false, err
	}
	if err := d.finishLine(); err != nil {
		return "", false, false, err
	}
	v, found := d.peek()
	if !found {
		return "", false, false, nil
	}
	depth := d.top().depth
	if v.dots < depth {
		return "", false, false, nil
	}
	if v.dots > depth {
		d.lineNo = v.num
		return "", false, false, d.fail(ErrInconsistentDepth)
	}
	k, value, has := v.split()
	d.consume(v)
	d.key = k
	if k == "" {
		if has {
			return "", false, false, d.fail(ErrExpectedString)
		}
		return "", false, false, d.fail(ErrExpectedFieldSeparator)
	}
	if has {
		d.rest = value
		d.inLine = true
		d.state = AtFieldValue
		return k, true, true, nil
	}
	d.pending = k
	d.hasPending = true
	d.state = AtRecordStart
	return k, false, true, nil
}

// ReadScalar reads the value of the current key=value line.
func (d *Decoder) ReadScalar(t ScalarType) (Scalar, error) {
	if err := d.expect(AtFieldValue); err != nil {
		return Scalar{}, err
	}
	s, n, err := scanScalar(d.rest, t, false)
	if err != nil {
		return Scalar{}, d.fail(err)
	}
	d.rest = d.rest[n:]
	d.state = AtFieldKey
	return s, nil
}

// ReadTuple reads exactly n space separated scalars from the current line.
func (d *Decoder) ReadTuple(n int, t ScalarType) (Tuple, error) {
	if err := d.expect(AtFieldValue); err != nil {
		return nil, err
	}
	d.state = AtTupleElement
	out := make(Tuple, 0, n)
	for i := 0; i < n; i++ {
		if i > 0 {
			if d.rest == "" || d.rest[0] != tupleSep {
				return nil, d.fail(ErrExpectedTupleSeparator)
			}
			d.rest = d.rest[1:]
		}
		s, used, err := scanScalar(d.rest, t, true)
		if err != nil {
			return nil, d.fail(err)
		}
		d.rest = d.rest[used:]
		out = append(out, s)
	}
	if d.rest != "" {
		return nil, d.fail(ErrExpectedNewline)
	}
	d.state = AtFieldKey
	return out, nil
}

// NextSequenceElement reports whether the next block is another element of the
// sequence stored under key: a key line with no value at the current record's
// depth. The line is consumed only when it matches; the caller then enters the
// element with OpenRecord(key, false).
func (d *Decoder) NextSequenceElement(key string) (bool, error) {
	if err := d.expect(AtSequenceBoundary); err != nil {
		return false, err
	}
	if err := d.finishLine(); err != nil {
		return false, err
	}
	v, found := d.peek()
	if !found || v.dots != d.top().depth {
		d.state = AtFieldKey
		return false, nil
	}
	k, _, has := v.split()
	if has || k != key {
		d.state = AtFieldKey
		return false, nil
	}
	d.consume(v)
	d.key = k
	d.pending = k
	d.hasPending = true
	d.state = AtRecordStart
	return true, nil
}

// SkipValue discards the value of the current field: the rest of a key=value
// line, or every line of a nested block.
func (d *Decoder) SkipValue() error {
	if d.err != nil {
		return d.err
	}
	switch {
	case d.state == AtFieldValue:
		d.rest = ""
		d.state = AtFieldKey
		return nil
	case d.state == AtRecordStart && d.hasPending:
		depth := d.top().depth
		for {
			v, found := d.peek()
			if !found || v.dots <= depth {
				break
			}
			d.consume(v)
		}
		d.hasPending = false
		d.state = AtFieldKey
		return nil
	default:
		return d.fail(ErrDecoderState)
	}
}

// CloseRecord leaves the current record. Closing the outermost record requires
// the remaining input to be blank.
func (d *Decoder) CloseRecord() error {
	if d.state == AtSequenceBoundary {
		d.state = AtFieldKey
	}
	if err := d.expect(AtFieldKey); err != nil {
		return err
	}
	if err := d.finishLine(); err != nil {
		return err
	}
	d.frames = d.frames[:len(d.frames)-1]
	if len(d.frames) > 0 {
		d.state = AtSequenceBoundary
		return nil
	}
	if v, found := d.peek(); found {
		d.lineNo = v.num
		return d.fail(ErrTrailingInput)
	}
	d.state = Done
	return nil
}

// Fail aborts decoding with err, annotated with the current line and key. It lets
// a driver report schema-level violations the same way as syntax errors.
func (d *Decoder) Fail(err error) error {
	if d.err != nil {
		return d.err
	}
	return d.fail(err)
}

func (d *Decoder) expect(want State) error {
	if d.err != nil {
		return d.err
	}
	if d.state != want {
		return d.fail(fmt.Errorf("%w: in state %s, want %s", ErrDecoderState, d.state, want))
	}
	return nil
}

// finishLine requires the rest of a value line to be empty.
func (d *Decoder) finishLine() error {
	if !d.inLine {
		return nil
	}
	if d.rest != "" {
		return d.fail(ErrExpectedNewline)
	}
	d.inLine = false
	return nil
}

func (d *Decoder) peek() (lineView, bool) {
	return scanLine(d.input, d.pos, d.posLine)
}

func (d *Decoder) consume(v lineView) {
	d.pos = v.next
	d.posLine = v.num + 1
	d.lineNo = v.num
	d.inLine = false
	d.rest = ""
}

func (d *Decoder) top() *decFrame {
	return &d.frames[len(d.frames)-1]
}

func (d *Decoder) fail(err error) error {
	d.err = &SyntaxError{Line: d.lineNo, Key: d.key, Err: err}
	return d.err
}
