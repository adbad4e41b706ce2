// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

// Package escape handles quoting and unquoting of CirJSON strings.
package escape

import (
	"unicode/utf16"
	"unicode/utf8"
)

var hexDigit = []byte("0123456789abcdef")

// A Table maps each ASCII code point to its escape action: 0 writes the
// byte verbatim, 'u' forces a six-character \u escape, and any other value
// is the second byte of a two-character escape such as \n.
type Table [128]byte

// Standard returns the table escaping the characters the grammar requires:
// the double quote, the backslash, and all control characters.
func Standard() Table {
	var t Table
	for i := range 0x20 {
		t[i] = 'u'
	}
	t['\b'] = 'b'
	t['\f'] = 'f'
	t['\n'] = 'n'
	t['\r'] = 'r'
	t['\t'] = 't'
	t['"'] = '"'
	t['\\'] = '\\'
	return t
}

// WithSlash returns a copy of t that also escapes the forward slash, for
// output embedded in contexts where "</" is significant.
func (t Table) WithSlash() Table {
	t['/'] = '/'
	return t
}

// Set overrides the action for one ASCII character. Overrides below 0x20 or
// for the quote and backslash are ignored; those escapes are mandatory.
func (t *Table) Set(ch byte, action byte) {
	if ch < 0x20 || ch >= 0x80 || ch == '"' || ch == '\\' {
		return
	}
	t[ch] = action
}

// appendU appends the \uXXXX escape of r, using a surrogate pair for
// supplementary planes.
func appendU(dst []byte, r rune) []byte {
	if r > 0xFFFF {
		hi, lo := utf16.EncodeRune(r)
		dst = appendU(dst, hi)
		return appendU(dst, lo)
	}
	return append(dst, '\\', 'u',
		hexDigit[r>>12&0xF], hexDigit[r>>8&0xF], hexDigit[r>>4&0xF], hexDigit[r&0xF])
}

// Append appends src escaped per t, without surrounding quotes. If maxRune
// is nonzero, every rune above it is written as a \u escape as well; the
// line and paragraph separators (U+2028, U+2029) are always escaped since
// they are unsafe to embed in scripting contexts.
func Append(dst []byte, src string, t *Table, maxRune rune) []byte {
	for i := 0; i < len(src); {
		b := src[i]
		if b < utf8.RuneSelf {
			switch act := t[b]; act {
			case 0:
				dst = append(dst, b)
			case 'u':
				dst = append(dst, '\\', 'u', '0', '0', hexDigit[b>>4], hexDigit[b&15])
			default:
				dst = append(dst, '\\', act)
			}
			i++
			continue
		}
		r, n := utf8.DecodeRuneInString(src[i:])
		switch {
		case r == utf8.RuneError && n == 1:
			dst = appendU(dst, utf8.RuneError)
		case r == '\u2028' || r == '\u2029':
			dst = appendU(dst, r)
		case maxRune != 0 && r > maxRune:
			dst = appendU(dst, r)
		default:
			dst = append(dst, src[i:i+n]...)
		}
		i += n
	}
	return dst
}

// Quote appends src escaped with the standard table and surrounded by
// double quotation marks.
func Quote(dst []byte, src string) []byte {
	t := Standard()
	dst = append(dst, '"')
	dst = Append(dst, src, &t, 0)
	return append(dst, '"')
}
