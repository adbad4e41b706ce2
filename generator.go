// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

package cirstream

import (
	"io"
	"math"
	"math/big"
	"slices"
	"strconv"

	"github.com/CirJSON/cirstream/internal/escape"
	"github.com/CirJSON/cirstream/internal/schubfach"
	"github.com/CirJSON/cirstream/pool"
)

// flushSize is the buffered output size beyond which the generator writes
// through to the underlying writer.
const flushSize = 8 << 10

// A Generator writes a CirJSON document to an io.Writer one token at a time.
// It enforces the document grammar: the first write inside every object must
// be WriteObjectID and inside every array WriteArrayID, object values must
// follow a WriteName, and nesting must balance. Errors are sticky; once a
// write fails every later call reports the same error.
//
// Configuration methods (SetIndent, SetEscapeHTML, and so on) must be called
// before the first write. A Generator is not safe for concurrent use.
type Generator struct {
	f   *Factory
	w   io.Writer
	rec *pool.Recycler
	buf []byte

	ctx     *Context
	tab     escape.Table
	maxRune rune
	indent  string

	numStrings  bool // render numeric values as strings
	nonFinite   bool // permit NaN and infinities as bare literals
	noAutoClose bool // Close fails instead of completing open levels

	flushed int64 // bytes handed to w, not counting len(buf)
	closed  bool
	err     error
}

func newGenerator(f *Factory, w io.Writer) *Generator {
	rec := f.Pool.Acquire()
	return &Generator{
		f:   f,
		w:   w,
		rec: rec,
		buf: rec.Alloc(pool.WriteBuf, 0),
		ctx: newRootContext(),
		tab: escape.Standard(),
	}
}

// Context returns the context of the current (innermost) document level.
func (g *Generator) Context() *Context { return g.ctx }

// Offset returns the number of bytes of output produced so far, including
// output still buffered.
func (g *Generator) Offset() int64 { return g.flushed + int64(len(g.buf)) }

// SetIndent enables multi-line output, indenting each nesting level by one
// copy of indent. An empty indent restores compact output.
func (g *Generator) SetIndent(indent string) { g.indent = indent }

// SetEscapeHTML configures escaping of the characters "<", ">", "&" and "/"
// so output can be embedded in HTML.
func (g *Generator) SetEscapeHTML(on bool) {
	var act byte
	if on {
		act = 'u'
	}
	g.tab.Set('<', act)
	g.tab.Set('>', act)
	g.tab.Set('&', act)
	if on {
		g.tab = g.tab.WithSlash()
	} else {
		g.tab.Set('/', 0)
	}
}

// SetHighestNonEscaped causes every rune above max to be written as a \u
// escape, for 7-bit clean output (e.g. max = 127). Zero, the default,
// escapes only what the grammar requires.
func (g *Generator) SetHighestNonEscaped(max rune) { g.maxRune = max }

// SetNumbersAsStrings causes numeric writes to render their value inside a
// string, for consumers that cannot represent the full numeric range.
func (g *Generator) SetNumbersAsStrings(on bool) { g.numStrings = on }

// AllowNonFinite permits WriteFloat32 and WriteFloat64 to render NaN and
// infinities as the bare literals NaN, Infinity and -Infinity. Without it
// non-finite values are write errors.
func (g *Generator) AllowNonFinite(on bool) { g.nonFinite = on }

// SetAutoClose controls whether Close completes open objects and arrays
// (the default) or fails when the document is incomplete.
func (g *Generator) SetAutoClose(on bool) { g.noAutoClose = !on }

func (g *Generator) fail(err error) error { g.err = err; return err }

func (g *Generator) writeErr(op, msg string) error {
	return g.fail(&WriteError{Op: op, Message: msg})
}

// ready reports the sticky error, if any, and rejects writes after Close.
func (g *Generator) ready(op string) error {
	if g.err != nil {
		return g.err
	}
	if g.closed {
		return g.fail(&WriteError{Op: op, Message: ErrClosed.Error()})
	}
	return nil
}

func (g *Generator) flushBuf() error {
	if len(g.buf) == 0 {
		return nil
	}
	n, err := g.w.Write(g.buf)
	g.flushed += int64(n)
	g.buf = g.buf[:0]
	if err != nil {
		return g.fail(err)
	}
	return nil
}

func (g *Generator) maybeFlush() error {
	if len(g.buf) >= flushSize {
		return g.flushBuf()
	}
	return nil
}

// nl writes a line break and indentation for the given depth when multi-line
// output is enabled.
func (g *Generator) nl(depth int) {
	if g.indent == "" {
		return
	}
	g.buf = append(g.buf, '\n')
	for range depth {
		g.buf = append(g.buf, g.indent...)
	}
}

// beforeValue checks that a value is legal at the current position and
// writes any separator it needs.
func (g *Generator) beforeValue(op string) error {
	switch g.ctx.kind {
	case 'o':
		if g.ctx.awaitingID {
			return g.writeErr(op, "object identity not yet written")
		}
		if !g.ctx.gotName {
			return g.writeErr(op, "no property name for value")
		}
	case 'a':
		if g.ctx.awaitingID {
			return g.writeErr(op, "array identity not yet written")
		}
		g.buf = append(g.buf, ',')
		g.nl(g.ctx.depth)
	default: // root
		if g.ctx.index > 0 {
			if g.indent != "" {
				g.buf = append(g.buf, '\n')
			} else {
				g.buf = append(g.buf, ' ')
			}
		}
	}
	return nil
}

func (g *Generator) afterValue() {
	g.ctx.gotName = false
	g.ctx.index++
}

// WriteName writes a property name. The name becomes current until its value
// is written.
func (g *Generator) WriteName(name string) error {
	const op = "WriteName"
	if err := g.ready(op); err != nil {
		return err
	}
	if g.ctx.kind != 'o' {
		return g.writeErr(op, "not in an object")
	}
	if g.ctx.awaitingID {
		return g.writeErr(op, "object identity not yet written")
	}
	if g.ctx.gotName {
		return g.writeErr(op, "property name already written")
	}
	g.buf = append(g.buf, ',')
	g.nl(g.ctx.depth)
	g.buf = append(g.buf, '"')
	g.buf = escape.Append(g.buf, name, &g.tab, g.maxRune)
	g.buf = append(g.buf, '"', ':')
	if g.indent != "" {
		g.buf = append(g.buf, ' ')
	}
	g.ctx.gotName = true
	g.ctx.name = name
	return g.maybeFlush()
}

// WriteObjectID writes the identity entry of the enclosing object. It must
// be the first write after WriteStartObject.
func (g *Generator) WriteObjectID(id string) error {
	const op = "WriteObjectID"
	if err := g.ready(op); err != nil {
		return err
	}
	if g.ctx.kind != 'o' {
		return g.writeErr(op, "not in an object")
	}
	if !g.ctx.awaitingID {
		return g.writeErr(op, "object identity already written")
	}
	g.nl(g.ctx.depth)
	g.buf = append(g.buf, '"')
	g.buf = append(g.buf, IDProperty...)
	g.buf = append(g.buf, '"', ':')
	if g.indent != "" {
		g.buf = append(g.buf, ' ')
	}
	return g.finishID(id)
}

// WriteArrayID writes the identity element of the enclosing array. It must
// be the first write after WriteStartArray.
func (g *Generator) WriteArrayID(id string) error {
	const op = "WriteArrayID"
	if err := g.ready(op); err != nil {
		return err
	}
	if g.ctx.kind != 'a' {
		return g.writeErr(op, "not in an array")
	}
	if !g.ctx.awaitingID {
		return g.writeErr(op, "array identity already written")
	}
	g.nl(g.ctx.depth)
	return g.finishID(id)
}

func (g *Generator) finishID(id string) error {
	g.buf = append(g.buf, '"')
	g.buf = escape.Append(g.buf, id, &g.tab, g.maxRune)
	g.buf = append(g.buf, '"')
	g.ctx.awaitingID = false
	g.ctx.index = 1
	return g.maybeFlush()
}

func (g *Generator) start(op string, open byte, kind byte) error {
	if err := g.ready(op); err != nil {
		return err
	}
	if d := g.ctx.depth + 1; d > g.f.Limits.MaxDepth {
		return g.fail(&LimitError{What: "nesting depth", Value: int64(d), Max: int64(g.f.Limits.MaxDepth)})
	}
	if err := g.beforeValue(op); err != nil {
		return err
	}
	g.buf = append(g.buf, open)
	g.afterValue()
	g.ctx = g.ctx.pushChild(kind)
	return g.maybeFlush()
}

// WriteStartObject opens an object. The next write must be WriteObjectID.
func (g *Generator) WriteStartObject() error { return g.start("WriteStartObject", '{', 'o') }

// WriteStartArray opens an array. The next write must be WriteArrayID.
func (g *Generator) WriteStartArray() error { return g.start("WriteStartArray", '[', 'a') }

func (g *Generator) end(op string, closer byte, kind byte) error {
	if err := g.ready(op); err != nil {
		return err
	}
	if g.ctx.kind != kind {
		return g.writeErr(op, "no matching open")
	}
	if g.ctx.awaitingID {
		return g.writeErr(op, "identity not yet written")
	}
	if g.ctx.gotName {
		return g.writeErr(op, "property name without value")
	}
	g.ctx = g.ctx.parent
	g.nl(g.ctx.depth)
	g.buf = append(g.buf, closer)
	return g.maybeFlush()
}

// WriteEndObject closes the innermost object.
func (g *Generator) WriteEndObject() error { return g.end("WriteEndObject", '}', 'o') }

// WriteEndArray closes the innermost array.
func (g *Generator) WriteEndArray() error { return g.end("WriteEndArray", ']', 'a') }

func (g *Generator) scalar(op string, emit func()) error {
	if err := g.ready(op); err != nil {
		return err
	}
	if err := g.beforeValue(op); err != nil {
		return err
	}
	emit()
	g.afterValue()
	return g.maybeFlush()
}

// number emits a rendered numeric literal, quoting it when the generator is
// configured to write numbers as strings.
func (g *Generator) number(op string, render func([]byte) []byte) error {
	return g.scalar(op, func() {
		if g.numStrings {
			g.buf = append(g.buf, '"')
			g.buf = render(g.buf)
			g.buf = append(g.buf, '"')
			return
		}
		g.buf = render(g.buf)
	})
}

// WriteString writes a string value.
func (g *Generator) WriteString(s string) error {
	return g.scalar("WriteString", func() {
		g.buf = append(g.buf, '"')
		g.buf = escape.Append(g.buf, s, &g.tab, g.maxRune)
		g.buf = append(g.buf, '"')
	})
}

// WriteInt writes an integer value.
func (g *Generator) WriteInt(v int64) error {
	return g.number("WriteInt", func(dst []byte) []byte { return strconv.AppendInt(dst, v, 10) })
}

// WriteUint writes an unsigned integer value.
func (g *Generator) WriteUint(v uint64) error {
	return g.number("WriteUint", func(dst []byte) []byte { return strconv.AppendUint(dst, v, 10) })
}

// WriteBigInt writes an arbitrary-precision integer value. A nil value is
// written as null.
func (g *Generator) WriteBigInt(v *big.Int) error {
	if v == nil {
		return g.WriteNull()
	}
	return g.number("WriteBigInt", func(dst []byte) []byte { return v.Append(dst, 10) })
}

// WriteBigFloat writes an arbitrary-precision floating-point value in
// scientific notation. A nil value is written as null.
func (g *Generator) WriteBigFloat(v *big.Float) error {
	if v == nil {
		return g.WriteNull()
	}
	return g.number("WriteBigFloat", func(dst []byte) []byte {
		return v.Append(dst, 'g', -1)
	})
}

// WriteFloat64 writes a floating-point value using the shortest decimal
// representation that round-trips. Non-finite values are errors unless
// AllowNonFinite is set, in which case they render as the bare literals NaN,
// Infinity and -Infinity.
func (g *Generator) WriteFloat64(v float64) error {
	const op = "WriteFloat64"
	if (math.IsNaN(v) || math.IsInf(v, 0)) && !g.nonFinite {
		if g.err != nil {
			return g.err
		}
		return g.writeErr(op, "non-finite value "+schubfach.StringFloat64(v))
	}
	return g.number(op, func(dst []byte) []byte { return schubfach.AppendFloat64(dst, v) })
}

// WriteFloat32 is WriteFloat64 for single precision.
func (g *Generator) WriteFloat32(v float32) error {
	const op = "WriteFloat32"
	if (v != v || math.IsInf(float64(v), 0)) && !g.nonFinite {
		if g.err != nil {
			return g.err
		}
		return g.writeErr(op, "non-finite value "+schubfach.StringFloat32(v))
	}
	return g.number(op, func(dst []byte) []byte { return schubfach.AppendFloat32(dst, v) })
}

// WriteNumberString writes a pre-rendered number literal verbatim. The text
// must satisfy the number grammar.
func (g *Generator) WriteNumberString(text string) error {
	const op = "WriteNumberString"
	if !isNumberText(text) {
		if g.err != nil {
			return g.err
		}
		return g.writeErr(op, "invalid number literal "+strconv.Quote(text))
	}
	return g.number(op, func(dst []byte) []byte { return append(dst, text...) })
}

// WriteBool writes a boolean value.
func (g *Generator) WriteBool(v bool) error {
	return g.scalar("WriteBool", func() {
		if v {
			g.buf = append(g.buf, "true"...)
		} else {
			g.buf = append(g.buf, "false"...)
		}
	})
}

// WriteNull writes a null value.
func (g *Generator) WriteNull() error {
	return g.scalar("WriteNull", func() { g.buf = append(g.buf, "null"...) })
}

// WriteBinary writes data as a string value encoded with the factory's
// base64 variant.
func (g *Generator) WriteBinary(data []byte) error {
	return g.scalar("WriteBinary", func() {
		// Grow once up front so the per-line appends do not reallocate.
		g.buf = slices.Grow(g.buf, g.f.Base64.maxEncodedLen(len(data))+2)
		g.buf = append(g.buf, '"')
		g.buf = g.f.Base64.appendEncoded(g.buf, data)
		g.buf = append(g.buf, '"')
	})
}

// WriteRawValue writes pre-encoded text as a complete value. The text is not
// escaped or validated, but it is accounted for structurally like any other
// value.
func (g *Generator) WriteRawValue(text string) error {
	return g.scalar("WriteRawValue", func() { g.buf = append(g.buf, text...) })
}

// WriteRaw appends text to the output verbatim with no structural
// accounting. It is intended for interposing whitespace and similar framing;
// misuse can produce documents that do not parse.
func (g *Generator) WriteRaw(text string) error {
	if err := g.ready("WriteRaw"); err != nil {
		return err
	}
	g.buf = append(g.buf, text...)
	return g.maybeFlush()
}

// Flush writes all buffered output to the underlying writer.
func (g *Generator) Flush() error {
	if g.err != nil {
		return g.err
	}
	return g.flushBuf()
}

// Close completes the document and releases the generator's buffers. Open
// objects and arrays are closed (unless SetAutoClose(false) was set, in
// which case an incomplete document is an error); a property name still
// awaiting its value receives null. Close fails if an object or array has
// not written its identity, since the output cannot be completed. Closing a
// closed generator is a no-op.
func (g *Generator) Close() error {
	if g.closed {
		return g.err
	}
	if g.err == nil && g.noAutoClose && g.ctx.kind != 'r' {
		g.writeErr("Close", "document incomplete")
	}
	if g.err == nil {
		for g.ctx.kind != 'r' {
			if g.ctx.awaitingID {
				g.writeErr("Close", "identity not yet written")
				break
			}
			if g.ctx.gotName {
				if err := g.WriteNull(); err != nil {
					break
				}
			}
			var err error
			if g.ctx.kind == 'o' {
				err = g.WriteEndObject()
			} else {
				err = g.WriteEndArray()
			}
			if err != nil {
				break
			}
		}
	}
	if g.err == nil {
		g.flushBuf()
	}
	g.closed = true
	g.rec.Release(pool.WriteBuf, g.buf)
	g.buf = nil
	g.f.Pool.Release(g.rec)
	return g.err
}

// isNumberText reports whether s satisfies the number grammar: an optional
// minus sign, an integer part without extra leading zeroes, and optional
// fraction and exponent parts.
func isNumberText(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	switch {
	case i < len(s) && s[i] == '0':
		i++
	case i < len(s) && s[i] >= '1' && s[i] <= '9':
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	default:
		return false
	}
	if i < len(s) && s[i] == '.' {
		i++
		if i >= len(s) || !isDigit(s[i]) {
			return false
		}
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		if i >= len(s) || !isDigit(s[i]) {
			return false
		}
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	return i == len(s)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
