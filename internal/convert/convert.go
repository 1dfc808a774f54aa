// Package convert runs schema-selected conversions between CS2 text and
// YAML/JSON documents and records codec metrics for each one.
package convert

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/cs2kit/cs2"
	"github.com/danmuck/cs2kit/internal/bridge"
	"github.com/danmuck/cs2kit/internal/observability"
	"github.com/rs/zerolog/log"
)

var ErrUnknownSchema = errors.New("convert: unknown schema")

type Options struct {
	TrailingNewline bool
	DisallowUnknown bool
}

func DefaultOptions() Options {
	return Options{TrailingNewline: true}
}

type Converter struct {
	Registry *cs2.Registry
	Options  Options
}

func New(registry *cs2.Registry, opts Options) *Converter {
	return &Converter{Registry: registry, Options: opts}
}

// Schema returns the schema registered under name.
func (c *Converter) Schema(name string) (*cs2.RecordSchema, error) {
	s, ok := c.Registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}
	return s, nil
}

// Decode parses CS2 text with the named schema.
func (c *Converter) Decode(name string, text []byte) (*cs2.Record, error) {
	schema, err := c.Schema(name)
	if err != nil {
		return nil, err
	}
	var opts []cs2.DecodeOption
	if c.Options.DisallowUnknown {
		opts = append(opts, cs2.DisallowUnknownFields())
	}
	start := time.Now()
	rec, err := cs2.Decode(schema, text, opts...)
	observability.RecordCodecOp("decode", name, len(text), time.Since(start), err == nil)
	if err != nil {
		log.Debug().Err(err).Str("schema", name).Msg("decode rejected")
		return nil, err
	}
	return rec, nil
}

// Encode renders rec as CS2 text.
func (c *Converter) Encode(name string, rec *cs2.Record) ([]byte, error) {
	start := time.Now()
	out, err := cs2.Encode(rec, cs2.WithTrailingNewline(c.Options.TrailingNewline))
	observability.RecordCodecOp("encode", name, len(out), time.Since(start), err == nil)
	if err != nil {
		log.Debug().Err(err).Str("schema", name).Msg("encode rejected")
		return nil, err
	}
	return out, nil
}

// ToDocument converts CS2 text into a YAML or JSON document.
func (c *Converter) ToDocument(name string, f bridge.Format, text []byte) ([]byte, error) {
	rec, err := c.Decode(name, text)
	if err != nil {
		return nil, err
	}
	return bridge.Encode(f, rec)
}

// FromDocument converts a YAML or JSON document into CS2 text.
func (c *Converter) FromDocument(name string, f bridge.Format, doc []byte) ([]byte, error) {
	schema, err := c.Schema(name)
	if err != nil {
		return nil, err
	}
	rec, err := bridge.Decode(f, schema, doc)
	if err != nil {
		return nil, err
	}
	return c.Encode(name, rec)
}
