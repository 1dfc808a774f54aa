package cs2

import "fmt"

// EncodeOption configures an Encoder.
type EncodeOption func(*encodeOptions)

type encodeOptions struct {
	trailingNewline bool
}

func defaultEncodeOptions() encodeOptions {
	return encodeOptions{trailingNewline: true}
}

// WithTrailingNewline controls whether the last line of the document is newline
// terminated. It is by default.
func WithTrailingNewline(on bool) EncodeOption {
	return func(o *encodeOptions) { o.trailingNewline = on }
}

type encFrame struct {
	tag   string
	depth int // depth marker count of this record's field lines
}

// Encoder writes one document. Calls mirror a depth-first walk of the value:
//
//	BeginRecord(tag, root)
//	  WriteScalar / WriteTuple
//	  BeginNested(key) BeginRecord(key, false) ... EndRecord()   // once per element
//	EndRecord()
//
// The first error is sticky; every later call returns it.
type Encoder struct {
	buf        []byte
	frames     []encFrame
	pending    string
	hasPending bool
	done       bool
	err        error
	opts       encodeOptions
}

func NewEncoder(opts ...EncodeOption) *Encoder {
	o := defaultEncodeOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Encoder{buf: make([]byte, 0, 256), opts: o}
}

// BeginRecord opens a record. At the top level it writes the header line; a
// nested record reuses the key line written by BeginNested, which must carry
// exactly this tag.
func (e *Encoder) BeginRecord(tag string, root bool) error {
	if e.err != nil {
		return e.err
	}
	if len(e.frames) == 0 {
		if e.done || e.hasPending {
			return e.fail(fmt.Errorf("%w: document already has an outermost record", ErrEncoderState))
		}
		if !checkKey(tag) {
			return e.fail(fmt.Errorf("%w: record tag %q", ErrUnrepresentable, tag))
		}
		e.buf = appendHeader(e.buf, tag, root)
		e.buf = append(e.buf, lineEnd)
		depth := 1
		if root {
			depth = 0
		}
		e.frames = append(e.frames, encFrame{tag: tag, depth: depth})
		return nil
	}
	if root {
		return e.fail(fmt.Errorf("%w: root container %q must be outermost", ErrEncoderState, tag))
	}
	if !e.hasPending {
		return e.fail(fmt.Errorf("%w: nested record %q without a key line", ErrEncoderState, tag))
	}
	if e.pending != tag {
		return e.fail(fmt.Errorf("%w: key %q hosts record %q", ErrTagMismatch, e.pending, tag))
	}
	e.hasPending = false
	e.frames = append(e.frames, encFrame{tag: tag, depth: e.top().depth + 1})
	return nil
}

// WriteScalar writes key=value at the current depth.
func (e *Encoder) WriteScalar(key string, v Scalar) error {
	if err := e.beginField(key); err != nil {
		return err
	}
	if err := checkScalar(v, false); err != nil {
		return e.fail(fmt.Errorf("%w: field %q", err, key))
	}
	e.buf = appendFieldPrefix(e.buf, e.top().depth, key)
	e.buf = append(e.buf, fieldSep)
	e.buf = appendScalar(e.buf, v)
	e.buf = append(e.buf, lineEnd)
	return nil
}

// WriteTuple writes key=a b c at the current depth.
func (e *Encoder) WriteTuple(key string, t Tuple) error {
	if err := e.beginField(key); err != nil {
		return err
	}
	for _, s := range t {
		if err := checkScalar(s, true); err != nil {
			return e.fail(fmt.Errorf("%w: tuple field %q", err, key))
		}
	}
	e.buf = appendFieldPrefix(e.buf, e.top().depth, key)
	e.buf = append(e.buf, fieldSep)
	for i, s := range t {
		if i > 0 {
			e.buf = append(e.buf, tupleSep)
		}
		e.buf = appendScalar(e.buf, s)
	}
	e.buf = append(e.buf, lineEnd)
	return nil
}

// BeginNested writes the key line of a nested record or of one sequence element.
// The following BeginRecord must use key as its tag.
func (e *Encoder) BeginNested(key string) error {
	if err := e.beginField(key); err != nil {
		return err
	}
	e.buf = appendFieldPrefix(e.buf, e.top().depth, key)
	e.buf = append(e.buf, lineEnd)
	e.pending = key
	e.hasPending = true
	return nil
}

// EndRecord closes the innermost open record.
func (e *Encoder) EndRecord() error {
	if e.err != nil {
		return e.err
	}
	if len(e.frames) == 0 || e.hasPending {
		return e.fail(fmt.Errorf("%w: EndRecord without open record", ErrEncoderState))
	}
	e.frames = e.frames[:len(e.frames)-1]
	if len(e.frames) == 0 {
		e.done = true
	}
	return nil
}

// Depth reports the depth marker count of fields written next, or -1 outside a record.
func (e *Encoder) Depth() int {
	if len(e.frames) == 0 {
		return -1
	}
	return e.top().depth
}

// Bytes returns the finished document. It fails while any record is still open.
func (e *Encoder) Bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	if !e.done {
		return nil, fmt.Errorf("%w: document not closed", ErrEncoderState)
	}
	out := e.buf
	if !e.opts.trailingNewline && len(out) > 0 && out[len(out)-1] == lineEnd {
		out = out[:len(out)-1]
	}
	return append([]byte(nil), out...), nil
}

func (e *Encoder) beginField(key string) error {
	if e.err != nil {
		return e.err
	}
	if len(e.frames) == 0 || e.hasPending {
		return e.fail(fmt.Errorf("%w: field %q outside an open record", ErrEncoderState, key))
	}
	if !checkKey(key) {
		return e.fail(fmt.Errorf("%w: field key %q", ErrUnrepresentable, key))
	}
	return nil
}

func (e *Encoder) top() *encFrame {
	return &e.frames[len(e.frames)-1]
}

func (e *Encoder) fail(err error) error {
	e.err = err
	return err
}
