// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

package cirstream

import (
	"io"
	"sync"

	"github.com/CirJSON/cirstream/names"
	"github.com/CirJSON/cirstream/pool"
)

// A Factory constructs parsers and generators that share pooled scratch
// buffers, a canonical name table, and processing limits. The zero value is
// ready to use and selects the defaults noted on each field. Fields must not
// be modified after the first constructor call.
//
// Instances created by the same factory may be used concurrently with each
// other; an individual parser or generator is not safe for concurrent use.
type Factory struct {
	// Pool supplies scratch buffers. If nil, a transient pool is used.
	Pool pool.Pool

	// Names is the canonical property-name table shared by parsers from this
	// factory. If nil, a fresh table is created.
	Names *names.Root

	// Limits bounds resource use. Zero fields take the built-in defaults.
	Limits Limits

	// Base64 selects the rendering of binary values. The zero value selects
	// Base64Basic.
	Base64 Base64Variant

	once sync.Once
}

func (f *Factory) setup() {
	f.once.Do(func() {
		if f.Pool == nil {
			f.Pool = pool.NewTransientPool()
		}
		if f.Names == nil {
			f.Names = names.NewRoot()
		}
		f.Limits = f.Limits.withDefaults()
		if f.Base64.Encoding == nil {
			f.Base64 = Base64Basic
		}
	})
}

// NewParser constructs an incremental parser fed explicitly via Feed and
// EndInput.
func (f *Factory) NewParser() *Parser {
	f.setup()
	return newParser(f)
}

// NewReaderParser constructs a parser that pulls its input from r.
func (f *Factory) NewReaderParser(r io.Reader) *ReaderParser {
	f.setup()
	return &ReaderParser{Parser: newParser(f), r: r}
}

// NewGenerator constructs a generator writing to w.
func (f *Factory) NewGenerator(w io.Writer) *Generator {
	f.setup()
	return newGenerator(f, w)
}

var defaultFactory = sync.OnceValue(func() *Factory { return new(Factory) })

// NewParser constructs an incremental parser using the default factory.
func NewParser() *Parser { return defaultFactory().NewParser() }

// NewReaderParser constructs a parser reading from r using the default
// factory.
func NewReaderParser(r io.Reader) *ReaderParser { return defaultFactory().NewReaderParser(r) }

// NewGenerator constructs a generator writing to w using the default
// factory.
func NewGenerator(w io.Writer) *Generator { return defaultFactory().NewGenerator(w) }
