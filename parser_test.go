// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

package cirstream_test

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"
	"testing/iotest"
	"unsafe"

	"github.com/google/go-cmp/cmp"

	"github.com/CirJSON/cirstream"
)

// tokenize feeds input to p in chunks of the given size and collects the
// token stream as "<token> <text>" strings.
func tokenize(p *cirstream.Parser, input string, chunk int) ([]string, error) {
	data := []byte(input)
	var out []string
	for {
		tok, err := p.Next()
		if err == io.EOF {
			return out, nil
		} else if err != nil {
			return out, err
		}
		if tok == cirstream.NeedMore {
			if len(data) == 0 {
				p.EndInput()
				continue
			}
			n := min(chunk, len(data))
			if err := p.Feed(data[:n]); err != nil {
				return out, err
			}
			data = data[n:]
			continue
		}
		if text := p.Text(); text != "" {
			out = append(out, tok.String()+" "+text)
		} else {
			out = append(out, tok.String())
		}
	}
}

func TestParserTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"object", `{"__cirJsonId__":"root","a":123,"b":"foobar"}`, []string{
			`"{"`,
			`identity property name __cirJsonId__`,
			`string root`,
			`property name a`,
			`integer 123`,
			`property name b`,
			`string foobar`,
			`"}"`,
		}},
		{"escaped-backslash-name", `{"__cirJsonId__":"1","a\\u0000b":1}`, []string{
			`"{"`,
			`identity property name __cirJsonId__`, `string 1`,
			`property name a\u0000b`,
			`integer 1`,
			`"}"`,
		}},
		{"array", `["1", 1, 2.5, true, false, null]`, []string{
			`"["`, `string 1`, `integer 1`, `number 2.5`,
			`true true`, `false false`, `null null`, `"]"`,
		}},
		{"nested", `{"__cirJsonId__":"1","kids":["2",{"__cirJsonId__":"3"}]}`, []string{
			`"{"`,
			`identity property name __cirJsonId__`, `string 1`,
			`property name kids`,
			`"["`, `string 2`,
			`"{"`, `identity property name __cirJsonId__`, `string 3`, `"}"`,
			`"]"`,
			`"}"`,
		}},
		{"escapes", `["1","a\tbA\"\\"]`, []string{
			`"["`, `string 1`, "string a\tbA\"\\", `"]"`,
		}},
		{"surrogate-pair", `["1","\ud83d\ude00"]`, []string{
			`"["`, `string 1`, "string \U0001F600", `"]"`,
		}},
		{"numbers", `["1",-0.5e3,1e+5,0,-0,10.25]`, []string{
			`"["`, `string 1`, `number -0.5e3`, `number 1e5`,
			`integer 0`, `integer -0`, `number 10.25`, `"]"`,
		}},
		{"multi-root", `1 "two" {"__cirJsonId__":"3"}`, []string{
			`integer 1`, `string two`,
			`"{"`, `identity property name __cirJsonId__`, `string 3`, `"}"`,
		}},
		{"empty-name", `{"__cirJsonId__":"1","":0}`, []string{
			`"{"`, `identity property name __cirJsonId__`, `string 1`,
			`property name`, `integer 0`, `"}"`,
		}},
		{"bom", "\ufeff42", []string{`integer 42`}},
		{"empty-input", "", nil},
		{"raw-utf8", `["1","héllo"]`, []string{
			`"["`, `string 1`, `string héllo`, `"]"`,
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := cirstream.NewParser()
			defer p.Close()
			got, err := tokenize(p, tc.input, len(tc.input)+1)
			if err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Tokens (-want, +got):\n%s", diff)
			}
		})
	}
}

// The token stream must not depend on where the chunk boundaries fall.
func TestChunkBoundaries(t *testing.T) {
	const input = "\ufeff" + `
{
  // a comment that crosses nothing
  "__cirJsonId__": "root",
  "text": "line\nfeed 😀 ok",
  "nums": ["2", -12.5e-3, 0, 98765],
  "flags": [/*inline*/"3", true, false, null]
}`

	newParser := func() *cirstream.Parser {
		p := cirstream.NewParser()
		p.AllowComments(true)
		return p
	}
	ref := newParser()
	defer ref.Close()
	want, err := tokenize(ref, input, len(input)+1)
	if err != nil {
		t.Fatalf("Reference parse failed: %v", err)
	}

	for _, chunk := range []int{1, 2, 3, 7} {
		t.Run(fmt.Sprintf("chunk=%d", chunk), func(t *testing.T) {
			p := newParser()
			defer p.Close()
			got, err := tokenize(p, input, chunk)
			if err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Tokens (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		etext string
	}{
		{"no-object-id", `{"a":1}`, `first object property must be "__cirJsonId__"`},
		{"empty-object", `{}`, "missing object identity"},
		{"empty-array", `[]`, "missing array identity"},
		{"object-id-not-string", `{"__cirJsonId__":1}`, "object identity must be a string"},
		{"array-id-not-string", `[1,2]`, "array identity must be a string"},
		{"id-reused", `{"__cirJsonId__":"1","__cirJsonId__":"2"}`, "reserved property"},
		{"nul-in-name", `{"__cirJsonId__":"1","a\u0000b":1}`, "invalid NUL in property name"},
		{"leading-zeroes", `01`, "extra leading zeroes"},
		{"bare-dot", `1.x`, "no digits after decimal point"},
		{"bare-exp", `1ex`, "missing exponent digits"},
		{"exp-sign-only", `1e-x`, "missing exponent digits"},
		{"bad-constant", `trux`, `unknown constant "trux"`},
		{"constant-overrun", `nullx`, `unknown constant "nullx"`},
		{"control-in-string", "[\"1\",\"a\x01b\"]", "unescaped control"},
		{"bad-escape", `["1","\q"]`, `invalid 'q' after escape`},
		{"bad-hex", `["1","\u12G4"]`, "not a hex digit"},
		{"lone-high-surrogate", `["1","\ud800?"]`, `unpaired surrogate \ud800`},
		{"lone-low-surrogate", `["1","\ude00"]`, `unpaired surrogate \ude00`},
		{"bad-utf8-lead", "[\"1\",\"a\xffb\"]", "invalid UTF-8 lead byte"},
		{"bad-utf8-cont", "[\"1\",\"\xc3(\"]", "invalid UTF-8 continuation byte"},
		{"overlong-utf8", "[\"1\",\"\xe0\x80\x80\"]", "invalid UTF-8 continuation byte"},
		{"encoded-surrogate", "[\"1\",\"\xed\xa0\x80\"]", "invalid UTF-8 continuation byte"},
		{"utf8-beyond-max", "[\"1\",\"\xf4\x90\x80\x80\"]", "invalid UTF-8 continuation byte"},
		{"unclosed-string", `["1","abc`, "unexpected end of input"},
		{"unclosed-array", `["1",1`, "unexpected end of input"},
		{"missing-colon", `{"__cirJsonId__" "1"}`, "after property name"},
		{"comma-missing", `["1" 2]`, `unexpected '2' in array`},
		{"trailing-comma", `["1",2,]`, `unexpected ']'`},
		{"comment-off", `[/*x*/"1"]`, `unexpected '/'`},
		{"plus-off", `+5`, `unexpected '+'`},
		{"single-quote-off", `'x'`, `unexpected '\''`},
		{"array-id-single-quote-off", `['1']`, "array identity must be a string"},
		{"garbage", `@`, `unexpected '@'`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := cirstream.NewParser()
			defer p.Close()
			_, err := tokenize(p, tc.input, len(tc.input)+1)
			if err == nil {
				t.Fatal("Parse did not fail")
			}
			var serr *cirstream.SyntaxError
			if !errors.As(err, &serr) {
				t.Fatalf("Error is %T, not *SyntaxError: %v", err, err)
			}
			if !strings.Contains(err.Error(), tc.etext) {
				t.Errorf("Error %q does not mention %q", err, tc.etext)
			}
		})
	}
}

func TestParserLimits(t *testing.T) {
	t.Run("depth", func(t *testing.T) {
		f := &cirstream.Factory{Limits: cirstream.Limits{MaxDepth: 1}}
		p := f.NewParser()
		defer p.Close()
		_, err := tokenize(p, `["1",["2"]]`, 100)
		var lerr *cirstream.LimitError
		if !errors.As(err, &lerr) {
			t.Fatalf("Error is %T, not *LimitError: %v", err, err)
		}
		const want = "nesting depth 2 exceeds maximum 1"
		if got := err.Error(); got != want {
			t.Errorf("Error: got %q, want %q", got, want)
		}
	})
	t.Run("name", func(t *testing.T) {
		f := &cirstream.Factory{Limits: cirstream.Limits{MaxNameLength: 4}}
		p := f.NewParser()
		defer p.Close()
		_, err := tokenize(p, `{"__cirJsonId__":"1"}`, 100)
		var lerr *cirstream.LimitError
		if !errors.As(err, &lerr) {
			t.Fatalf("Error is %T, not *LimitError: %v", err, err)
		}
		if lerr.What != "name length" {
			t.Errorf("Limit: got %q, want %q", lerr.What, "name length")
		}
	})
	t.Run("string", func(t *testing.T) {
		f := &cirstream.Factory{Limits: cirstream.Limits{MaxStringLength: 3}}
		p := f.NewParser()
		defer p.Close()
		_, err := tokenize(p, `"abcdef"`, 100)
		var lerr *cirstream.LimitError
		if !errors.As(err, &lerr) {
			t.Fatalf("Error is %T, not *LimitError: %v", err, err)
		}
	})
	t.Run("number", func(t *testing.T) {
		f := &cirstream.Factory{Limits: cirstream.Limits{MaxNumberLength: 5}}
		p := f.NewParser()
		defer p.Close()
		_, err := tokenize(p, `1234567890`, 100)
		var lerr *cirstream.LimitError
		if !errors.As(err, &lerr) {
			t.Fatalf("Error is %T, not *LimitError: %v", err, err)
		}
	})
	t.Run("document", func(t *testing.T) {
		f := &cirstream.Factory{Limits: cirstream.Limits{MaxDocumentLength: 4}}
		p := f.NewParser()
		defer p.Close()
		_, err := tokenize(p, `"abcdef"`, 100)
		var lerr *cirstream.LimitError
		if !errors.As(err, &lerr) {
			t.Fatalf("Error is %T, not *LimitError: %v", err, err)
		}
		if lerr.What != "document length" {
			t.Errorf("Limit: got %q, want %q", lerr.What, "document length")
		}
	})
}

func TestParserExtensions(t *testing.T) {
	tests := []struct {
		name   string
		config func(*cirstream.Parser)
		input  string
		want   []string
	}{
		{"comments", func(p *cirstream.Parser) { p.AllowComments(true) },
			"// lead\n[/* mid */\"1\", 2] // tail", []string{
				`"["`, `string 1`, `integer 2`, `"]"`,
			}},
		{"hash-comments", func(p *cirstream.Parser) { p.AllowHashComments(true) },
			"# lead\n1 # tail", []string{`integer 1`}},
		{"single-quotes", func(p *cirstream.Parser) { p.AllowSingleQuotes(true) },
			`{'__cirJsonId__':'1','a':'x\'y'}`, []string{
				`"{"`, `identity property name __cirJsonId__`, `string 1`,
				`property name a`, `string x'y`, `"}"`,
			}},
		{"unquoted-names", func(p *cirstream.Parser) { p.AllowUnquotedNames(true) },
			`{__cirJsonId__:"1",a_b:2}`, []string{
				`"{"`, `identity property name __cirJsonId__`, `string 1`,
				`property name a_b`, `integer 2`, `"}"`,
			}},
		{"trailing-commas", func(p *cirstream.Parser) { p.AllowTrailingCommas(true) },
			`{"__cirJsonId__":"1","a":["2",3,],}`, []string{
				`"{"`, `identity property name __cirJsonId__`, `string 1`,
				`property name a`, `"["`, `string 2`, `integer 3`, `"]"`, `"}"`,
			}},
		{"non-finite", func(p *cirstream.Parser) { p.AllowNonFinite(true) },
			`["1",NaN,Infinity,-Infinity]`, []string{
				`"["`, `string 1`, `number NaN`, `number Infinity`,
				`number -Infinity`, `"]"`,
			}},
		{"leading-plus", func(p *cirstream.Parser) { p.AllowLeadingPlus(true) },
			`+5`, []string{`integer 5`}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := cirstream.NewParser()
			defer p.Close()
			tc.config(p)
			got, err := tokenize(p, tc.input, len(tc.input)+1)
			if err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Tokens (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestParserValues(t *testing.T) {
	p := cirstream.NewParser()
	defer p.Close()
	p.AllowNonFinite(true)
	if err := p.Feed([]byte(`["1",42,-7,2.5,true,Infinity,"aGVsbG8="]`)); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	p.EndInput()

	advance := func(want cirstream.Token) {
		t.Helper()
		tok, err := p.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if tok != want {
			t.Fatalf("Next: got %v, want %v", tok, want)
		}
	}
	advance(cirstream.BeginArray)
	advance(cirstream.String) // the array id
	if p.Context().Index() != 1 {
		t.Errorf("Index after id: got %d, want 1", p.Context().Index())
	}

	advance(cirstream.Integer)
	if v, err := p.Int64(); err != nil || v != 42 {
		t.Errorf("Int64: got %d, %v; want 42", v, err)
	}
	if v, err := p.Uint64(); err != nil || v != 42 {
		t.Errorf("Uint64: got %d, %v; want 42", v, err)
	}
	if z, err := p.BigInt(); err != nil || z.Int64() != 42 {
		t.Errorf("BigInt: got %v, %v; want 42", z, err)
	}

	advance(cirstream.Integer)
	if v, err := p.Int64(); err != nil || v != -7 {
		t.Errorf("Int64: got %d, %v; want -7", v, err)
	}
	if _, err := p.Uint64(); err == nil {
		t.Error("Uint64 of -7 did not fail")
	}

	advance(cirstream.Number)
	if v, err := p.Float64(); err != nil || v != 2.5 {
		t.Errorf("Float64: got %v, %v; want 2.5", v, err)
	}
	if _, err := p.Int64(); err == nil {
		t.Error("Int64 of a Number token did not fail")
	}

	advance(cirstream.True)
	if v, err := p.Bool(); err != nil || !v {
		t.Errorf("Bool: got %v, %v; want true", v, err)
	}

	advance(cirstream.Number)
	if v, err := p.Float64(); err != nil || !math.IsInf(v, 1) {
		t.Errorf("Float64: got %v, %v; want +Inf", v, err)
	}

	advance(cirstream.String)
	bin, err := p.Binary()
	if err != nil {
		t.Fatalf("Binary failed: %v", err)
	}
	if got := string(bin); got != "hello" {
		t.Errorf("Binary: got %q, want %q", got, "hello")
	}

	advance(cirstream.EndArray)
	if _, err := p.Next(); err != io.EOF {
		t.Errorf("Next at end: got %v, want io.EOF", err)
	}
}

func TestLocations(t *testing.T) {
	p := cirstream.NewParser()
	defer p.Close()
	got, err := tokenize(p, "1\n \"ab\"", 100)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	want := []string{`integer 1`, `string ab`}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Tokens (-want, +got):\n%s", diff)
	}
	// The parser is now positioned after the string token on line 2.
	loc := p.Location()
	if loc.First.Line != 2 || loc.First.Column != 1 {
		t.Errorf("First: got %v, want 2:1", loc.First)
	}
	if loc.Span.Pos != 3 || loc.Span.End != 7 {
		t.Errorf("Span: got %+v, want {3 7}", loc.Span)
	}
	if ls := loc.String(); ls != "2:1-5" {
		t.Errorf("Location: got %q, want %q", ls, "2:1-5")
	}
}

func TestErrorLocation(t *testing.T) {
	p := cirstream.NewParser()
	defer p.Close()
	_, err := tokenize(p, "{\n  \"a\": 1\n}", 100)
	var serr *cirstream.SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("Error is %T, not *SyntaxError: %v", err, err)
	}
	if serr.Location.Line != 2 {
		t.Errorf("Line: got %d, want 2", serr.Location.Line)
	}
	if serr.Offset != 7 { // just past the offending property name
		t.Errorf("Offset: got %d, want 7", serr.Offset)
	}
}

func TestFeedProtocol(t *testing.T) {
	p := cirstream.NewParser()
	if err := p.Feed([]byte(`["1", 2,`)); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if err := p.Feed([]byte(` 3]`)); err != cirstream.ErrFeedPending {
		t.Errorf("Feed with pending input: got %v, want ErrFeedPending", err)
	}
	for { // drain the staged chunk
		tok, err := p.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if tok == cirstream.NeedMore {
			break
		}
	}
	if err := p.Feed([]byte(` 3]`)); err != nil {
		t.Errorf("Feed after drain failed: %v", err)
	}
	p.EndInput()
	if err := p.Feed([]byte(`x`)); err != cirstream.ErrClosed {
		t.Errorf("Feed after EndInput: got %v, want ErrClosed", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
	if _, err := p.Next(); err != cirstream.ErrClosed {
		t.Errorf("Next after Close: got %v, want ErrClosed", err)
	}
}

// Equal names must come back as the same string instance, within one parser
// and across parsers of the same factory.
func TestNameInterning(t *testing.T) {
	sameInstance := func(a, b string) bool {
		return len(a) == len(b) && unsafe.StringData(a) == unsafe.StringData(b)
	}
	f := new(cirstream.Factory)

	parseNames := func(input string) []string {
		t.Helper()
		p := f.NewParser()
		defer p.Close()
		var names []string
		if err := p.Feed([]byte(input)); err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
		p.EndInput()
		for {
			tok, err := p.Next()
			if err == io.EOF {
				return names
			} else if err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			if tok == cirstream.Name {
				names = append(names, p.Name())
			}
		}
	}

	const doc = `{"__cirJsonId__":"1","alpha":{"__cirJsonId__":"2","alpha":1}}`
	first := parseNames(doc)
	if len(first) != 2 || first[0] != "alpha" {
		t.Fatalf("Names: got %q, want two of %q", first, "alpha")
	}
	if !sameInstance(first[0], first[1]) {
		t.Error("Same name in one parser is not one instance")
	}
	second := parseNames(doc)
	if !sameInstance(first[0], second[0]) {
		t.Error("Same name across parsers is not one instance")
	}
}

func TestReaderParser(t *testing.T) {
	const input = `{"__cirJsonId__":"root","a":[ "2", 1, 2 ],"b":"c"}`
	rp := cirstream.NewReaderParser(iotest.OneByteReader(strings.NewReader(input)))
	defer rp.Close()
	var got []string
	for {
		tok, err := rp.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		got = append(got, tok.String())
	}
	want := []string{
		`"{"`, "identity property name", "string",
		"property name", `"["`, "string", "integer", "integer", `"]"`,
		"property name", "string", `"}"`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tokens (-want, +got):\n%s", diff)
	}
}
