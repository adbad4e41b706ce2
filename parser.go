// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

package cirstream

import (
	"fmt"
	"io"
	"math/big"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/CirJSON/cirstream/names"
	"github.com/CirJSON/cirstream/pool"
)

// Major states: the category of token the grammar expects next.
const (
	mValue      uint8 = iota // a value: root position, after ":" or after an array ","
	mObjFirst                // after "{": the identity property name
	mObjIDColon              // after the identity name: ":"
	mObjIDValue              // after the identity colon: the id string
	mObjNext                 // after a member value: "," or "}"
	mObjName                 // after an object ",": a property name
	mObjColon                // after a property name: ":"
	mArrFirst                // after "[": the id string
	mArrNext                 // after an element: "," or "]"
)

// Minor states: the suspension point inside a token or comment, so parsing
// resumes correctly at any chunk boundary. sNone means between tokens.
const (
	sNone uint8 = iota
	sBOM1       // seen 0xEF at document start
	sBOM2       // seen 0xEF 0xBB

	sStr     // inside a string
	sStrEsc  // after a backslash
	sStrU    // inside \uXXXX (uDigits read so far)
	sStrCont // awaiting UTF-8 continuation bytes

	sNumSign    // after a leading sign
	sNumZero    // after a leading zero
	sNumInt     // in integer digits
	sNumDot     // after the decimal point
	sNumFrac    // in fraction digits
	sNumExp     // after e/E
	sNumExpSign // after the exponent sign
	sNumExpDig  // in exponent digits

	sKeyword // matching a literal constant
	sKwEnd   // constant matched, awaiting a delimiter
	sUName   // in an unquoted property name

	sCommentStart // after "/"
	sLineComment
	sBlockComment
	sHashComment
)

// A Parser is an incremental CirJSON tokenizer. Input arrives in chunks via
// Feed; Next consumes the staged chunk and reports the next token, NeedMore
// when the chunk is exhausted mid-document, or io.EOF at the clean end of
// the input after EndInput. The parser retains a reference to the fed chunk
// until it is fully consumed; the caller must not modify it before then.
//
// Structural validation, including the identity protocol (the reserved
// first property of objects and first element of arrays), happens during
// tokenization: documents violating it fail with a *SyntaxError.
//
// A Parser is not safe for concurrent use.
type Parser struct {
	f     *Factory
	rec   *pool.Recycler
	names *names.Table

	in     []byte // staged unconsumed input
	fed    int64  // total bytes accepted by Feed
	ended  bool
	closed bool
	err    error

	// Extensions, all off by default.
	comments       bool
	hashComments   bool
	singleQuotes   bool
	unquotedNames  bool
	trailingCommas bool
	nonFinite      bool
	leadingPlus    bool

	// Position of the next unconsumed byte.
	offset    int64
	line      int   // 1-based
	lineStart int64 // offset of the first byte of the current line

	ctx *Context
	maj uint8
	min uint8

	tok    Token
	text   []byte // decoded text of the current token
	name   string // canonical name for Name and IDName tokens
	tokOff int64  // start of the current token
	tokLC  LineCol

	// In-token scratch for resumption.
	quote   byte   // string opening quote
	u       uint32 // pending \uXXXX value
	uDigits int
	hiSurr  rune // pending high surrogate, 0 if none
	cont    int  // pending UTF-8 continuation bytes
	contLo  byte // allowed range of the next continuation byte
	contHi  byte
	kw      string
	kwPos   int
	kwTok   Token
	star    bool // block comment: previous byte was '*'
}

func newParser(f *Factory) *Parser {
	rec := f.Pool.Acquire()
	return &Parser{
		f:     f,
		rec:   rec,
		names: f.Names.Child(),
		text:  rec.Alloc(pool.TextBuf, 0),
		ctx:   newRootContext(),
		line:  1,
	}
}

// AllowComments configures the parser to skip (true) or reject (false)
// comments between tokens. Comments are a non-standard extension of the
// grammar. If enabled, C++ style block comments (/* ... */) and line
// comments (// ...) are recognized and discarded.
func (p *Parser) AllowComments(ok bool) { p.comments = ok }

// AllowHashComments configures the parser to skip comments from "#" to end
// of line, a non-standard extension.
func (p *Parser) AllowHashComments(ok bool) { p.hashComments = ok }

// AllowSingleQuotes configures the parser to accept strings delimited by
// single quotation marks, a non-standard extension.
func (p *Parser) AllowSingleQuotes(ok bool) { p.singleQuotes = ok }

// AllowUnquotedNames configures the parser to accept property names without
// quotation marks, a non-standard extension.
func (p *Parser) AllowUnquotedNames(ok bool) { p.unquotedNames = ok }

// AllowTrailingCommas configures the parser to accept a comma before a
// closing "}" or "]", a non-standard extension.
func (p *Parser) AllowTrailingCommas(ok bool) { p.trailingCommas = ok }

// AllowNonFinite configures the parser to accept NaN, Infinity and
// -Infinity as number values, a non-standard extension.
func (p *Parser) AllowNonFinite(ok bool) { p.nonFinite = ok }

// AllowLeadingPlus configures the parser to accept a leading "+" on
// numbers, a non-standard extension. The sign is dropped from the token
// text.
func (p *Parser) AllowLeadingPlus(ok bool) { p.leadingPlus = ok }

// Feed stages the next chunk of input. It reports ErrFeedPending if the
// previous chunk has not been fully consumed, and ErrClosed after EndInput
// or Close. Feed does not copy data; the caller must not modify it until
// the chunk is consumed.
func (p *Parser) Feed(data []byte) error {
	if p.closed || p.ended {
		return ErrClosed
	}
	if p.err != nil {
		return p.err
	}
	if len(p.in) != 0 {
		return ErrFeedPending
	}
	p.fed += int64(len(data))
	if max := p.f.Limits.MaxDocumentLength; max > 0 && p.fed > max {
		return p.fail(&LimitError{What: "document length", Value: p.fed, Max: max})
	}
	p.in = data
	return nil
}

// EndInput marks the end of the document. After EndInput, Next drains any
// staged input and then reports io.EOF instead of NeedMore.
func (p *Parser) EndInput() { p.ended = true }

// Close releases the parser's buffers and merges its name table back into
// the factory's shared table. Close is idempotent and legal at any time.
func (p *Parser) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.names.Release()
	p.rec.Release(pool.TextBuf, p.text)
	p.text = nil
	p.in = nil
	p.f.Pool.Release(p.rec)
	return nil
}

// Next advances to the next token of the document. It returns NeedMore with
// a nil error when the staged input is exhausted mid-document, and Invalid
// with io.EOF at the clean end of the input.
func (p *Parser) Next() (Token, error) {
	if p.closed {
		return Invalid, ErrClosed
	}
	if p.err != nil {
		return Invalid, p.err
	}
	for {
		if p.min != sNone {
			tok, err := p.resume()
			if err != nil {
				return Invalid, err
			}
			if tok == NeedMore {
				if p.ended {
					return p.finishEnded()
				}
				p.tok = NeedMore
				return NeedMore, nil
			}
			if tok != Invalid {
				p.tok = tok
				return tok, nil
			}
			continue // a comment or BOM completed; keep scanning
		}
		if !p.skipSpace() {
			if p.min != sNone {
				continue // a comment or BOM began
			}
			if p.ended {
				return p.finishEnded()
			}
			p.tok = NeedMore
			return NeedMore, nil
		}
		tok, err := p.startToken()
		if err != nil {
			return Invalid, err
		}
		if tok == NeedMore {
			if p.ended {
				return p.finishEnded()
			}
			p.tok = NeedMore
			return NeedMore, nil
		}
		if tok != Invalid {
			p.tok = tok
			return tok, nil
		}
		// Punctuation was consumed with no token to report; keep scanning.
	}
}

// Token returns the type of the current token.
func (p *Parser) Token() Token { return p.tok }

// Text returns the decoded text of the current token: the unescaped
// contents of a string, the literal text of a number, the canonical name
// for a name token. Structural tokens have no text.
func (p *Parser) Text() string {
	switch p.tok {
	case Name, IDName:
		return p.name
	case String, Integer, Number, True, False, Null:
		return string(p.text)
	}
	return ""
}

// Name returns the canonical interned name for a Name or IDName token, or
// "" otherwise. Equal names parsed by any parser of the same factory are
// the same string instance.
func (p *Parser) Name() string {
	if p.tok == Name || p.tok == IDName {
		return p.name
	}
	return ""
}

// Context returns the context of the current (innermost) document level.
func (p *Parser) Context() *Context { return p.ctx }

// Depth returns the current nesting depth. The root is depth 0.
func (p *Parser) Depth() int { return p.ctx.depth }

// Span returns the byte range of the current token.
func (p *Parser) Span() Span { return Span{Pos: p.tokOff, End: p.offset} }

// Location returns the complete location of the current token.
func (p *Parser) Location() Location {
	return Location{Span: p.Span(), First: p.tokLC, Last: p.here()}
}

// Int64 converts the current Integer token.
func (p *Parser) Int64() (int64, error) {
	if err := p.wantValue(Integer); err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(p.text), 10, 64)
}

// Uint64 converts the current Integer token.
func (p *Parser) Uint64() (uint64, error) {
	if err := p.wantValue(Integer); err != nil {
		return 0, err
	}
	return strconv.ParseUint(string(p.text), 10, 64)
}

// Float64 converts the current Integer or Number token. The non-standard
// literals NaN, Infinity and -Infinity convert to the corresponding IEEE
// values.
func (p *Parser) Float64() (float64, error) {
	if p.tok != Integer && p.tok != Number {
		return 0, p.valueErr()
	}
	return strconv.ParseFloat(string(p.text), 64)
}

// BigInt converts the current Integer token at arbitrary precision.
func (p *Parser) BigInt() (*big.Int, error) {
	if err := p.wantValue(Integer); err != nil {
		return nil, err
	}
	z, ok := new(big.Int).SetString(string(p.text), 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", p.text)
	}
	return z, nil
}

// Bool reports the value of the current True or False token.
func (p *Parser) Bool() (bool, error) {
	switch p.tok {
	case True:
		return true, nil
	case False:
		return false, nil
	}
	return false, p.valueErr()
}

// Binary decodes the current String token as binary data in the factory's
// base64 variant. Embedded whitespace and line breaks are ignored.
func (p *Parser) Binary() ([]byte, error) {
	if err := p.wantValue(String); err != nil {
		return nil, err
	}
	clean := p.rec.Alloc(pool.Base64Buf, len(p.text))
	defer func() { p.rec.Release(pool.Base64Buf, clean) }()
	for _, b := range p.text {
		switch b {
		case ' ', '\t', '\r', '\n':
		default:
			clean = append(clean, b)
		}
	}
	enc := p.f.Base64.Encoding
	out := make([]byte, enc.DecodedLen(len(clean)))
	n, err := enc.Decode(out, clean)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

func (p *Parser) wantValue(t Token) error {
	if p.tok != t {
		return p.valueErr()
	}
	return nil
}

func (p *Parser) valueErr() error {
	if p.tok == NeedMore {
		return ErrMoreInput
	}
	return fmt.Errorf("current token is %s", p.tok)
}

// here reports the line/column of the next unconsumed byte.
func (p *Parser) here() LineCol {
	return LineCol{Line: p.line, Column: int(p.offset - p.lineStart)}
}

func (p *Parser) consume(n int) {
	p.in = p.in[n:]
	p.offset += int64(n)
}

func (p *Parser) newline() {
	p.line++
	p.lineStart = p.offset
}

func (p *Parser) fail(err error) error {
	p.err = err
	p.tok = Invalid
	return err
}

func (p *Parser) failf(msg string, args ...any) (Token, error) {
	var excerpt []byte
	if p.min != sNone { // only the text of the token in flight
		excerpt = p.text
		if len(excerpt) > 40 {
			excerpt = excerpt[:40]
		}
	}
	return Invalid, p.fail(&SyntaxError{
		Location: p.here(),
		Offset:   p.offset,
		Message:  fmt.Sprintf(msg, args...),
		Excerpt:  string(excerpt),
	})
}

// skipSpace consumes whitespace between tokens. It reports true when a
// token-start byte is available, false when the input is exhausted or a
// comment or BOM began (leaving a minor state for the caller to resume).
func (p *Parser) skipSpace() bool {
	for len(p.in) > 0 {
		switch b := p.in[0]; {
		case b == ' ' || b == '\t' || b == '\r':
			p.consume(1)
		case b == '\n':
			p.consume(1)
			p.newline()
		case b == '/' && p.comments:
			p.consume(1)
			p.min = sCommentStart
			return false
		case b == '#' && p.hashComments:
			p.consume(1)
			p.min = sHashComment
			return false
		case b == 0xEF && p.offset == 0:
			p.consume(1)
			p.min = sBOM1
			return false
		default:
			return true
		}
	}
	return false
}

// resume continues the token or comment suspended in p.min. It returns a
// completed token, NeedMore if the input ran out again, or Invalid with a
// nil error when a non-token (comment, BOM) completed.
func (p *Parser) resume() (Token, error) {
	switch p.min {
	case sBOM1, sBOM2:
		return p.contBOM()
	case sStr, sStrEsc, sStrU, sStrCont:
		return p.contString()
	case sNumSign, sNumZero, sNumInt, sNumDot, sNumFrac, sNumExp, sNumExpSign, sNumExpDig:
		return p.contNumber()
	case sKeyword, sKwEnd:
		return p.contKeyword()
	case sUName:
		return p.contUName()
	default:
		return p.contComment()
	}
}

// finishEnded resolves the parser state once the input is exhausted after
// EndInput: tokens that may end at EOF are completed, anything else is an
// error, and a structurally complete document yields io.EOF.
func (p *Parser) finishEnded() (Token, error) {
	switch p.min {
	case sNone:
	case sLineComment, sHashComment:
		p.min = sNone
	case sNumZero, sNumInt, sNumFrac, sNumExpDig:
		t, err := p.finishNumber()
		if err != nil {
			return Invalid, err
		}
		p.tok = t
		return t, nil
	case sKwEnd:
		p.min = sNone
		t, err := p.finishKeyword()
		if err != nil {
			return Invalid, err
		}
		p.tok = t
		return t, nil
	default:
		return p.failf("unexpected end of input")
	}
	if p.ctx.kind != 'r' || p.maj != mValue {
		return p.failf("unexpected end of input")
	}
	p.tok = Invalid
	p.err = io.EOF
	return Invalid, io.EOF
}

// markToken records the start position of a new token and clears the token
// scratch state.
func (p *Parser) markToken() {
	p.tokOff = p.offset
	p.tokLC = p.here()
	p.text = p.text[:0]
	p.hiSurr = 0
	p.cont = 0
	p.u = 0
	p.uDigits = 0
}

// startToken dispatches on the first byte of a token according to the major
// state. It returns Invalid with nil error when only punctuation was
// consumed.
func (p *Parser) startToken() (Token, error) {
	b := p.in[0]
	switch p.maj {
	case mObjFirst, mObjName:
		switch {
		case b == '"' || (b == '\'' && p.singleQuotes):
			return p.startString(b)
		case p.unquotedNames && isUNameStart(b):
			p.markToken()
			p.min = sUName
			return p.contUName()
		case b == '}' && p.maj == mObjFirst:
			return p.failf("missing object identity")
		case b == '}' && p.trailingCommas:
			return p.endStructure('o')
		default:
			return p.failf("unexpected %q, want property name", rune(b))
		}

	case mObjIDColon, mObjColon:
		if b != ':' {
			return p.failf("unexpected %q after property name", rune(b))
		}
		p.consume(1)
		if p.maj == mObjIDColon {
			p.maj = mObjIDValue
		} else {
			p.maj = mValue
		}
		return Invalid, nil

	case mObjNext:
		switch b {
		case ',':
			p.consume(1)
			p.maj = mObjName
			return Invalid, nil
		case '}':
			return p.endStructure('o')
		default:
			return p.failf("unexpected %q in object", rune(b))
		}

	case mArrNext:
		switch b {
		case ',':
			p.consume(1)
			p.maj = mValue
			return Invalid, nil
		case ']':
			return p.endStructure('a')
		default:
			return p.failf("unexpected %q in array", rune(b))
		}

	case mObjIDValue:
		if b == '"' || (b == '\'' && p.singleQuotes) {
			return p.startString(b)
		}
		return p.failf("object identity must be a string")

	case mArrFirst:
		if b == '"' || (b == '\'' && p.singleQuotes) {
			return p.startString(b)
		}
		if b == ']' {
			return p.failf("missing array identity")
		}
		return p.failf("array identity must be a string")
	}

	// mValue: a value is expected.
	switch {
	case b == '{':
		return p.beginStructure('o')
	case b == '[':
		return p.beginStructure('a')
	case b == '"' || (b == '\'' && p.singleQuotes):
		return p.startString(b)
	case b == '-' || isDigit(b) || (b == '+' && p.leadingPlus):
		return p.startNumber(b)
	case b == 't':
		return p.startKeyword("true", True)
	case b == 'f':
		return p.startKeyword("false", False)
	case b == 'n':
		return p.startKeyword("null", Null)
	case b == 'N' && p.nonFinite:
		return p.startKeyword("NaN", Number)
	case b == 'I' && p.nonFinite:
		return p.startKeyword("Infinity", Number)
	case b == ']' && p.ctx.kind == 'a' && p.trailingCommas:
		return p.endStructure('a')
	default:
		return p.failf("unexpected %q", rune(b))
	}
}

func (p *Parser) beginStructure(kind byte) (Token, error) {
	if d := p.ctx.depth + 1; d > p.f.Limits.MaxDepth {
		return Invalid, p.fail(&LimitError{
			What: "nesting depth", Value: int64(d), Max: int64(p.f.Limits.MaxDepth),
		})
	}
	p.markToken()
	p.consume(1)
	p.ctx = p.ctx.pushChild(kind)
	if kind == 'o' {
		p.maj = mObjFirst
		return BeginObject, nil
	}
	p.maj = mArrFirst
	return BeginArray, nil
}

func (p *Parser) endStructure(kind byte) (Token, error) {
	p.markToken()
	p.consume(1)
	p.ctx = p.ctx.parent
	p.valueDone()
	if kind == 'o' {
		return EndObject, nil
	}
	return EndArray, nil
}

// valueDone records a completed value in the enclosing context and sets the
// major state for what may follow it.
func (p *Parser) valueDone() {
	switch p.ctx.kind {
	case 'o':
		p.ctx.gotName = false
		p.ctx.index++
		p.maj = mObjNext
	case 'a':
		p.ctx.index++
		p.maj = mArrNext
	default:
		p.ctx.index++
		p.maj = mValue
	}
}

// completeScalar finishes a scalar value token, handling the identity
// positions of objects and arrays.
func (p *Parser) completeScalar(t Token) (Token, error) {
	switch p.maj {
	case mObjIDValue:
		p.ctx.awaitingID = false
		p.ctx.index = 1
		p.ctx.gotName = false
		p.maj = mObjNext
	case mArrFirst:
		p.ctx.awaitingID = false
		p.ctx.index = 1
		p.maj = mArrNext
	default:
		p.valueDone()
	}
	return t, nil
}

func (p *Parser) startString(quote byte) (Token, error) {
	p.markToken()
	p.quote = quote
	p.consume(1)
	p.min = sStr
	return p.contString()
}

// textLimit reports the applicable limit for the string being decoded.
func (p *Parser) textLimit() (int, string) {
	if p.maj == mObjFirst || p.maj == mObjName {
		return p.f.Limits.MaxNameLength, "name length"
	}
	return p.f.Limits.MaxStringLength, "string length"
}

func (p *Parser) contString() (Token, error) {
	limit, what := p.textLimit()
	for len(p.in) > 0 {
		switch p.min {
		case sStr:
			if p.hiSurr != 0 && p.in[0] != '\\' {
				return p.failf(`unpaired surrogate \u%04x`, p.hiSurr)
			}
			i := 0
			for i < len(p.in) {
				b := p.in[i]
				if b == p.quote || b == '\\' || b < 0x20 || b >= utf8.RuneSelf {
					break
				}
				i++
			}
			p.text = append(p.text, p.in[:i]...)
			p.consume(i)
			if len(p.in) == 0 {
				break
			}
			switch b := p.in[0]; {
			case b == p.quote:
				p.consume(1)
				p.min = sNone
				return p.finishString()
			case b == '\\':
				p.consume(1)
				p.min = sStrEsc
			case b < 0x20:
				return p.failf("unescaped control %q", rune(b))
			default:
				n, lo, hi, ok := contBytes(b)
				if !ok {
					return p.failf("invalid UTF-8 lead byte %#02x", b)
				}
				p.text = append(p.text, b)
				p.consume(1)
				p.cont, p.contLo, p.contHi = n, lo, hi
				p.min = sStrCont
			}

		case sStrCont:
			for p.cont > 0 && len(p.in) > 0 {
				b := p.in[0]
				if b < p.contLo || b > p.contHi {
					return p.failf("invalid UTF-8 continuation byte %#02x", b)
				}
				p.text = append(p.text, b)
				p.consume(1)
				p.cont--
				p.contLo, p.contHi = 0x80, 0xBF
			}
			if p.cont == 0 {
				p.min = sStr
			}

		case sStrEsc:
			b := p.in[0]
			if p.hiSurr != 0 && b != 'u' {
				return p.failf(`unpaired surrogate \u%04x`, p.hiSurr)
			}
			p.consume(1)
			switch b {
			case '"', '\\', '/':
				p.text = append(p.text, b)
			case '\'':
				if !p.singleQuotes {
					return p.failf("invalid %q after escape", rune(b))
				}
				p.text = append(p.text, b)
			case 'b':
				p.text = append(p.text, '\b')
			case 'f':
				p.text = append(p.text, '\f')
			case 'n':
				p.text = append(p.text, '\n')
			case 'r':
				p.text = append(p.text, '\r')
			case 't':
				p.text = append(p.text, '\t')
			case 'u':
				p.u, p.uDigits = 0, 0
				p.min = sStrU
				continue
			default:
				return p.failf("invalid %q after escape", rune(b))
			}
			p.min = sStr

		case sStrU:
			for p.uDigits < 4 && len(p.in) > 0 {
				v, ok := hexVal(p.in[0])
				if !ok {
					return p.failf("invalid Unicode escape: not a hex digit: %q", rune(p.in[0]))
				}
				p.u = p.u<<4 | uint32(v)
				p.uDigits++
				p.consume(1)
			}
			if p.uDigits < 4 {
				break
			}
			r := rune(p.u)
			switch {
			case p.hiSurr != 0:
				if !utf16.IsSurrogate(r) || r < 0xDC00 {
					return p.failf(`unpaired surrogate \u%04x`, p.hiSurr)
				}
				p.text = utf8.AppendRune(p.text, utf16.DecodeRune(p.hiSurr, r))
				p.hiSurr = 0
			case utf16.IsSurrogate(r) && r < 0xDC00:
				p.hiSurr = r
			case utf16.IsSurrogate(r):
				return p.failf(`unpaired surrogate \u%04x`, r)
			default:
				p.text = utf8.AppendRune(p.text, r)
			}
			p.min = sStr
		}

		if len(p.text) > limit {
			return Invalid, p.fail(&LimitError{
				What: what, Value: int64(len(p.text)), Max: int64(limit),
			})
		}
	}
	return NeedMore, nil
}

// finishString routes a completed string to its grammatical role.
func (p *Parser) finishString() (Token, error) {
	switch p.maj {
	case mObjFirst:
		if string(p.text) != IDProperty {
			return p.failf("first object property must be %q, got %q", IDProperty, p.text)
		}
		p.name = IDProperty
		p.ctx.gotName = true
		p.ctx.name = IDProperty
		p.maj = mObjIDColon
		return IDName, nil

	case mObjName:
		if string(p.text) == IDProperty {
			return p.failf("reserved property %q reused", IDProperty)
		}
		for _, b := range p.text {
			if b == 0 {
				return p.failf("invalid NUL in property name")
			}
		}
		if len(p.text) == 0 {
			p.name = ""
		} else {
			p.name = p.names.Intern(p.text)
		}
		p.ctx.gotName = true
		p.ctx.name = p.name
		p.maj = mObjColon
		return Name, nil

	default:
		return p.completeScalar(String)
	}
}

func (p *Parser) contUName() (Token, error) {
	limit := p.f.Limits.MaxNameLength
	for len(p.in) > 0 {
		b := p.in[0]
		if !isUNameByte(b) {
			p.min = sNone
			return p.finishString()
		}
		p.text = append(p.text, b)
		p.consume(1)
		if len(p.text) > limit {
			return Invalid, p.fail(&LimitError{
				What: "name length", Value: int64(len(p.text)), Max: int64(limit),
			})
		}
	}
	return NeedMore, nil
}

func (p *Parser) startNumber(b byte) (Token, error) {
	p.markToken()
	switch {
	case b == '-':
		p.text = append(p.text, b)
		p.min = sNumSign
	case b == '+':
		p.min = sNumSign // sign dropped from the text
	case b == '0':
		p.text = append(p.text, b)
		p.min = sNumZero
	default:
		p.text = append(p.text, b)
		p.min = sNumInt
	}
	p.consume(1)
	return p.contNumber()
}

func (p *Parser) contNumber() (Token, error) {
	limit := p.f.Limits.MaxNumberLength
	for len(p.in) > 0 {
		b := p.in[0]
		switch p.min {
		case sNumSign:
			switch {
			case b == '0':
				p.min = sNumZero
			case isDigit(b):
				p.min = sNumInt
			case b == 'I' && p.nonFinite && len(p.text) == 1 && p.text[0] == '-':
				p.kw, p.kwPos, p.kwTok = "-Infinity", 1, Number
				p.min = sKeyword
				return p.contKeyword()
			default:
				return p.failf("got %q, want digit", rune(b))
			}
		case sNumZero:
			switch {
			case b == '.':
				p.min = sNumDot
			case b == 'e' || b == 'E':
				p.min = sNumExp
			case isDigit(b):
				return p.failf("extra leading zeroes")
			default:
				return p.finishNumber()
			}
		case sNumInt:
			switch {
			case isDigit(b):
			case b == '.':
				p.min = sNumDot
			case b == 'e' || b == 'E':
				p.min = sNumExp
			default:
				return p.finishNumber()
			}
		case sNumDot:
			if !isDigit(b) {
				return p.failf("no digits after decimal point")
			}
			p.min = sNumFrac
		case sNumFrac:
			switch {
			case isDigit(b):
			case b == 'e' || b == 'E':
				p.min = sNumExp
			default:
				return p.finishNumber()
			}
		case sNumExp:
			switch {
			case b == '+':
				// The sign is dropped from the text.
				p.consume(1)
				p.min = sNumExpSign
				continue
			case b == '-':
				p.min = sNumExpSign
			case isDigit(b):
				p.min = sNumExpDig
			default:
				return p.failf("missing exponent digits")
			}
		case sNumExpSign:
			if !isDigit(b) {
				return p.failf("missing exponent digits")
			}
			p.min = sNumExpDig
		case sNumExpDig:
			if !isDigit(b) {
				return p.finishNumber()
			}
		}
		p.text = append(p.text, b)
		p.consume(1)
		if len(p.text) > limit {
			return Invalid, p.fail(&LimitError{
				What: "number length", Value: int64(len(p.text)), Max: int64(limit),
			})
		}
	}
	return NeedMore, nil
}

func (p *Parser) finishNumber() (Token, error) {
	t := Integer
	if p.min == sNumFrac || p.min == sNumExpDig {
		t = Number
	}
	p.min = sNone
	return p.completeScalar(t)
}

func (p *Parser) startKeyword(kw string, t Token) (Token, error) {
	p.markToken()
	p.kw, p.kwPos, p.kwTok = kw, 1, t
	p.consume(1)
	p.min = sKeyword
	return p.contKeyword()
}

func (p *Parser) contKeyword() (Token, error) {
	if p.min == sKeyword {
		for p.kwPos < len(p.kw) && len(p.in) > 0 {
			if p.in[0] != p.kw[p.kwPos] {
				return p.failf("unknown constant %q", p.kw[:p.kwPos]+string(rune(p.in[0])))
			}
			p.consume(1)
			p.kwPos++
		}
		if p.kwPos < len(p.kw) {
			return NeedMore, nil
		}
		p.min = sKwEnd
	}
	if len(p.in) == 0 {
		return NeedMore, nil
	}
	if isUNameByte(p.in[0]) {
		return p.failf("unknown constant %q", p.kw+string(rune(p.in[0])))
	}
	p.min = sNone
	return p.finishKeyword()
}

func (p *Parser) finishKeyword() (Token, error) {
	p.text = append(p.text[:0], p.kw...)
	return p.completeScalar(p.kwTok)
}

func (p *Parser) contBOM() (Token, error) {
	for len(p.in) > 0 {
		b := p.in[0]
		switch {
		case p.min == sBOM1 && b == 0xBB:
			p.consume(1)
			p.min = sBOM2
		case p.min == sBOM2 && b == 0xBF:
			p.consume(1)
			p.min = sNone
			return Invalid, nil
		default:
			return p.failf("invalid byte order mark")
		}
	}
	return NeedMore, nil
}

func (p *Parser) contComment() (Token, error) {
	switch p.min {
	case sCommentStart:
		if len(p.in) == 0 {
			return NeedMore, nil
		}
		switch p.in[0] {
		case '/':
			p.consume(1)
			p.min = sLineComment
		case '*':
			p.consume(1)
			p.star = false
			p.min = sBlockComment
		default:
			return p.failf("invalid %q in comment", rune(p.in[0]))
		}
		return p.contComment()

	case sLineComment, sHashComment:
		for len(p.in) > 0 {
			b := p.in[0]
			p.consume(1)
			if b == '\n' {
				p.newline()
				p.min = sNone
				return Invalid, nil
			}
		}
		return NeedMore, nil

	default: // sBlockComment
		for len(p.in) > 0 {
			b := p.in[0]
			p.consume(1)
			if b == '\n' {
				p.newline()
			}
			if p.star && b == '/' {
				p.min = sNone
				return Invalid, nil
			}
			p.star = b == '*'
		}
		return NeedMore, nil
	}
}

// contBytes reports the number of continuation bytes implied by a UTF-8 lead
// byte and the allowed range of the byte that follows it. The narrowed ranges
// on E0, ED, F0 and F4 reject overlong encodings, encoded surrogates, and
// code points beyond U+10FFFF.
func contBytes(b byte) (n int, lo, hi byte, ok bool) {
	lo, hi = 0x80, 0xBF
	switch {
	case b >= 0xC2 && b <= 0xDF:
		return 1, lo, hi, true
	case b >= 0xE0 && b <= 0xEF:
		if b == 0xE0 {
			lo = 0xA0
		} else if b == 0xED {
			hi = 0x9F
		}
		return 2, lo, hi, true
	case b >= 0xF0 && b <= 0xF4:
		if b == 0xF0 {
			lo = 0x90
		} else if b == 0xF4 {
			hi = 0x8F
		}
		return 3, lo, hi, true
	}
	return 0, 0, 0, false
}

func hexVal(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}

func isUNameStart(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isUNameByte(b byte) bool { return isUNameStart(b) || isDigit(b) }
