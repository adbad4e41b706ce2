// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

package cirstream_test

import (
	"errors"
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/CirJSON/cirstream"
)

// gen runs build against a fresh generator and returns the output.
func gen(t *testing.T, f *cirstream.Factory, build func(g *cirstream.Generator)) string {
	t.Helper()
	if f == nil {
		f = new(cirstream.Factory)
	}
	var sb strings.Builder
	g := f.NewGenerator(&sb)
	build(g)
	if err := g.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return sb.String()
}

func TestGeneratorBasic(t *testing.T) {
	got := gen(t, nil, func(g *cirstream.Generator) {
		g.WriteStartObject()
		g.WriteObjectID("root")
		g.WriteName("a")
		g.WriteInt(123)
		g.WriteName("b")
		g.WriteString("foobar")
		g.WriteName("list")
		g.WriteStartArray()
		g.WriteArrayID("1")
		g.WriteBool(true)
		g.WriteNull()
		g.WriteFloat64(2.5)
		g.WriteEndArray()
		g.WriteEndObject()
	})
	const want = `{"__cirJsonId__":"root","a":123,"b":"foobar","list":["1",true,null,2.5]}`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Output (-want, +got):\n%s", diff)
	}
}

func TestGeneratorNumbers(t *testing.T) {
	got := gen(t, nil, func(g *cirstream.Generator) {
		g.WriteStartArray()
		g.WriteArrayID("1")
		g.WriteInt(-42)
		g.WriteUint(math.MaxUint64)
		g.WriteFloat64(1e21)
		g.WriteFloat64(100)
		g.WriteFloat32(0.25)
		g.WriteBigInt(new(big.Int).Lsh(big.NewInt(1), 80))
		g.WriteNumberString("0.125e-9")
		g.WriteEndArray()
	})
	want := `["1",-42,18446744073709551615,1.0E21,100.0,0.25,` +
		`1208925819614629174706176,0.125e-9]`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Output (-want, +got):\n%s", diff)
	}
}

func TestGeneratorNumbersAsStrings(t *testing.T) {
	got := gen(t, nil, func(g *cirstream.Generator) {
		g.SetNumbersAsStrings(true)
		g.WriteStartArray()
		g.WriteArrayID("1")
		g.WriteInt(7)
		g.WriteFloat64(0.5)
		g.WriteEndArray()
	})
	const want = `["1","7","0.5"]`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Output (-want, +got):\n%s", diff)
	}
}

func TestGeneratorNonFinite(t *testing.T) {
	var sb strings.Builder
	g := cirstream.NewGenerator(&sb)
	g.WriteStartArray()
	g.WriteArrayID("1")
	err := g.WriteFloat64(math.NaN())
	var werr *cirstream.WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("Error is %T, not *WriteError: %v", err, err)
	}

	got := gen(t, nil, func(g *cirstream.Generator) {
		g.AllowNonFinite(true)
		g.WriteStartArray()
		g.WriteArrayID("1")
		g.WriteFloat64(math.NaN())
		g.WriteFloat64(math.Inf(1))
		g.WriteFloat32(float32(math.Inf(-1)))
		g.WriteEndArray()
	})
	const want = `["1",NaN,Infinity,-Infinity]`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Output (-want, +got):\n%s", diff)
	}
}

func TestGeneratorIndent(t *testing.T) {
	got := gen(t, nil, func(g *cirstream.Generator) {
		g.SetIndent("  ")
		g.WriteStartObject()
		g.WriteObjectID("1")
		g.WriteName("a")
		g.WriteStartArray()
		g.WriteArrayID("2")
		g.WriteInt(3)
		g.WriteEndArray()
		g.WriteEndObject()
	})
	const want = `{
  "__cirJsonId__": "1",
  "a": [
    "2",
    3
  ]
}`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Output (-want, +got):\n%s", diff)
	}
}

func TestGeneratorEscapes(t *testing.T) {
	t.Run("standard", func(t *testing.T) {
		got := gen(t, nil, func(g *cirstream.Generator) {
			g.WriteString("a\"b\\c\nd\x02e\u2028f😀")
		})
		const want = `"a\"b\\c\nd\u0002e\u2028f😀"`
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Output (-want, +got):\n%s", diff)
		}
	})
	t.Run("html", func(t *testing.T) {
		got := gen(t, nil, func(g *cirstream.Generator) {
			g.SetEscapeHTML(true)
			g.WriteString("<a href=/>&</a>")
		})
		const want = `"<a href=\/>&<\/a>"`
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Output (-want, +got):\n%s", diff)
		}
	})
	t.Run("ascii-only", func(t *testing.T) {
		got := gen(t, nil, func(g *cirstream.Generator) {
			g.SetHighestNonEscaped(127)
			g.WriteString("héllo😀")
		})
		const want = `"h\u00e9llo\ud83d\ude00"`
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Output (-want, +got):\n%s", diff)
		}
	})
}

func TestGeneratorBinary(t *testing.T) {
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	t.Run("basic", func(t *testing.T) {
		got := gen(t, nil, func(g *cirstream.Generator) {
			g.WriteBinary([]byte("hello"))
		})
		const want = `"aGVsbG8="`
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Output (-want, +got):\n%s", diff)
		}
	})
	t.Run("mime-lines", func(t *testing.T) {
		f := &cirstream.Factory{Base64: cirstream.Base64MIME}
		got := gen(t, f, func(g *cirstream.Generator) {
			g.WriteBinary(data)
		})
		if !strings.Contains(got, `\n`) {
			t.Errorf("Output %q has no escaped line breaks", got)
		}
		for _, line := range strings.Split(strings.Trim(got, `"`), `\n`) {
			if len(line) > 76 {
				t.Errorf("Line %q is longer than 76 characters", line)
			}
		}
	})
	t.Run("url", func(t *testing.T) {
		f := &cirstream.Factory{Base64: cirstream.Base64URL}
		got := gen(t, f, func(g *cirstream.Generator) {
			g.WriteBinary([]byte{0xfb, 0xff})
		})
		const want = `"-_8"`
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Output (-want, +got):\n%s", diff)
		}
	})
}

func TestGeneratorErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(g *cirstream.Generator) error
		etext string
	}{
		{"value-before-id", func(g *cirstream.Generator) error {
			g.WriteStartObject()
			return g.WriteName("a")
		}, "object identity not yet written"},
		{"array-value-before-id", func(g *cirstream.Generator) error {
			g.WriteStartArray()
			return g.WriteInt(1)
		}, "array identity not yet written"},
		{"id-twice", func(g *cirstream.Generator) error {
			g.WriteStartObject()
			g.WriteObjectID("1")
			return g.WriteObjectID("2")
		}, "object identity already written"},
		{"id-at-root", func(g *cirstream.Generator) error {
			return g.WriteObjectID("1")
		}, "not in an object"},
		{"array-id-in-object", func(g *cirstream.Generator) error {
			g.WriteStartObject()
			return g.WriteArrayID("1")
		}, "not in an array"},
		{"value-without-name", func(g *cirstream.Generator) error {
			g.WriteStartObject()
			g.WriteObjectID("1")
			return g.WriteInt(1)
		}, "no property name for value"},
		{"name-in-array", func(g *cirstream.Generator) error {
			g.WriteStartArray()
			g.WriteArrayID("1")
			return g.WriteName("a")
		}, "not in an object"},
		{"name-twice", func(g *cirstream.Generator) error {
			g.WriteStartObject()
			g.WriteObjectID("1")
			g.WriteName("a")
			return g.WriteName("b")
		}, "property name already written"},
		{"end-mismatch", func(g *cirstream.Generator) error {
			g.WriteStartArray()
			g.WriteArrayID("1")
			return g.WriteEndObject()
		}, "no matching open"},
		{"end-with-name", func(g *cirstream.Generator) error {
			g.WriteStartObject()
			g.WriteObjectID("1")
			g.WriteName("a")
			return g.WriteEndObject()
		}, "property name without value"},
		{"bad-number-string", func(g *cirstream.Generator) error {
			return g.WriteNumberString("1.2.3")
		}, "invalid number literal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := cirstream.NewGenerator(new(strings.Builder))
			err := tc.build(g)
			var werr *cirstream.WriteError
			if !errors.As(err, &werr) {
				t.Fatalf("Error is %T, not *WriteError: %v", err, err)
			}
			if !strings.Contains(err.Error(), tc.etext) {
				t.Errorf("Error %q does not mention %q", err, tc.etext)
			}
			// The error must be sticky.
			if err2 := g.WriteNull(); err2 != err {
				t.Errorf("Next write: got %v, want the original error", err2)
			}
		})
	}
}

func TestGeneratorDepthLimit(t *testing.T) {
	f := &cirstream.Factory{Limits: cirstream.Limits{MaxDepth: 2}}
	g := f.NewGenerator(new(strings.Builder))
	g.WriteStartArray()
	g.WriteArrayID("1")
	g.WriteStartArray()
	g.WriteArrayID("2")
	err := g.WriteStartArray()
	var lerr *cirstream.LimitError
	if !errors.As(err, &lerr) {
		t.Fatalf("Error is %T, not *LimitError: %v", err, err)
	}
	const want = "nesting depth 3 exceeds maximum 2"
	if got := err.Error(); got != want {
		t.Errorf("Error: got %q, want %q", got, want)
	}
}

func TestGeneratorClose(t *testing.T) {
	t.Run("auto-close", func(t *testing.T) {
		var sb strings.Builder
		g := cirstream.NewGenerator(&sb)
		g.WriteStartObject()
		g.WriteObjectID("1")
		g.WriteName("a")
		g.WriteStartArray()
		g.WriteArrayID("2")
		if err := g.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		const want = `{"__cirJsonId__":"1","a":["2"]}`
		if diff := cmp.Diff(want, sb.String()); diff != "" {
			t.Errorf("Output (-want, +got):\n%s", diff)
		}
	})
	t.Run("dangling-name", func(t *testing.T) {
		var sb strings.Builder
		g := cirstream.NewGenerator(&sb)
		g.WriteStartObject()
		g.WriteObjectID("1")
		g.WriteName("a")
		if err := g.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		const want = `{"__cirJsonId__":"1","a":null}`
		if diff := cmp.Diff(want, sb.String()); diff != "" {
			t.Errorf("Output (-want, +got):\n%s", diff)
		}
	})
	t.Run("missing-id", func(t *testing.T) {
		g := cirstream.NewGenerator(new(strings.Builder))
		g.WriteStartObject()
		if err := g.Close(); err == nil {
			t.Error("Close with missing identity did not fail")
		}
	})
	t.Run("no-auto-close", func(t *testing.T) {
		g := cirstream.NewGenerator(new(strings.Builder))
		g.SetAutoClose(false)
		g.WriteStartObject()
		g.WriteObjectID("1")
		if err := g.Close(); err == nil {
			t.Error("Close with open context did not fail")
		}
	})
	t.Run("idempotent", func(t *testing.T) {
		g := cirstream.NewGenerator(new(strings.Builder))
		g.WriteInt(1)
		if err := g.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if err := g.Close(); err != nil {
			t.Errorf("Second Close failed: %v", err)
		}
		if err := g.WriteInt(2); err == nil {
			t.Error("Write after Close did not fail")
		}
	})
}

func TestGeneratorContext(t *testing.T) {
	g := cirstream.NewGenerator(new(strings.Builder))
	defer g.Close()
	if !g.Context().InRoot() {
		t.Error("Initial context is not root")
	}
	g.WriteStartObject()
	g.WriteObjectID("1")
	g.WriteName("kids")
	g.WriteStartArray()
	g.WriteArrayID("2")
	g.WriteInt(1)
	g.WriteInt(2)

	ctx := g.Context()
	if !ctx.InArray() || ctx.Depth() != 2 {
		t.Errorf("Context: kind %q depth %d, want array depth 2", ctx.Kind(), ctx.Depth())
	}
	if ctx.Index() != 3 { // the id plus two elements
		t.Errorf("Index: got %d, want 3", ctx.Index())
	}
	if got := ctx.String(); got != "/kids/1" {
		t.Errorf("Path: got %q, want %q", got, "/kids/1")
	}
	if got := ctx.Parent().Name(); got != "kids" {
		t.Errorf("Parent name: got %q, want %q", got, "kids")
	}

	ctx.SetOwner("marker")
	if got := ctx.Owner(); got != "marker" {
		t.Errorf("Owner: got %v, want marker", got)
	}
}

func TestQuoteUnquote(t *testing.T) {
	tests := []struct {
		plain, quoted string
	}{
		{"", `""`},
		{"abc", `"abc"`},
		{"a\"b", `"a\"b"`},
		{"tab\there", `"tab\there"`},
		{"control\x01", `"control\u0001"`},
		{"😀", `"😀"`},
	}
	for _, tc := range tests {
		if got := cirstream.Quote(tc.plain); got != tc.quoted {
			t.Errorf("Quote %q: got %q, want %q", tc.plain, got, tc.quoted)
		}
		dec, err := cirstream.Unquote(tc.quoted)
		if err != nil {
			t.Errorf("Unquote %q failed: %v", tc.quoted, err)
		} else if string(dec) != tc.plain {
			t.Errorf("Unquote %q: got %q, want %q", tc.quoted, dec, tc.plain)
		}
	}

	// Surrogate pairs combine into one rune.
	dec, err := cirstream.Unquote(`"\ud83d\ude00"`)
	if err != nil || string(dec) != "😀" {
		t.Errorf(`Unquote surrogate pair: got %q, %v; want "😀"`, dec, err)
	}
	if _, err := cirstream.Unquote(`"\x"`); err == nil {
		t.Error("Unquote of invalid escape did not fail")
	}
	if _, err := cirstream.Unquote(`no quotes`); err == nil {
		t.Error("Unquote of unquoted text did not fail")
	}
}
