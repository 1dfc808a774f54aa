// Package cs2 encodes and decodes the line-oriented record format of Märklin
// Central Station 2 configuration files (lokomotive.cs2, lokstat.cs2, ...).
//
// A document is one record: a header line holding its tag, followed by one line
// per field. Field lines are indented with a space and one '.' per enclosing
// record, so nesting is carried by the depth markers alone:
//
//	lokomotive
//	 .name=Lok
//	 .uid=0x4001
//	 .funktionen
//	 ..nr=1
//	 ..typ=1
//	 .funktionen
//	 ..nr=2
//	 .blocks=0 0 0 0
//
// A nested record is introduced by a key line without a value; the key is also
// the nested record's tag. Adjacent blocks with the same key at the same depth
// form a sequence. A root container ([lokomotive]) is written with a bracketed
// header and its fields carry no depth markers.
//
// The format is not self-describing. Decode needs a RecordSchema, and Unmarshal
// derives one from the target struct type.
//
// Ownership boundary:
//   - grammar.go: lexical forms and line peeking
//   - encoder.go / decoder.go: streaming codec state machines
//   - codec.go: schema-driven Encode/Decode over Record values
//   - marshal.go / unmarshal.go / typeinfo.go: struct tag traversal
package cs2
