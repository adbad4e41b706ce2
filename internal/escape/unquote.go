// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

package escape

import (
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"go4.org/mem"
)

// Unquote decodes a byte slice containing the encoding of a string. The
// input must have the enclosing quotation marks already removed.
//
// Escape sequences are replaced with their unescaped equivalents. Surrogate
// pairs of \u escapes combine into a single rune; an unpaired surrogate is
// replaced by the Unicode replacement rune. Unquote reports an error for an
// incomplete or unknown escape sequence.
func Unquote(src mem.RO) ([]byte, error) {
	dec := make([]byte, 0, src.Len())
	i := mem.IndexByte(src, '\\')
	if i < 0 {
		return mem.Append(dec, src), nil
	}

	putRune := func(r rune) { dec = utf8.AppendRune(dec, r) }
	for src.Len() != 0 {
		dec = mem.Append(dec, src.SliceTo(i))

		src = src.SliceFrom(i + 1)
		if src.Len() == 0 {
			return nil, errors.New("incomplete escape sequence")
		}
		ch := src.At(0)
		src = src.SliceFrom(1)
		switch ch {
		case '"', '\\', '/', '\'':
			dec = append(dec, ch)
		case 'b':
			dec = append(dec, '\b')
		case 'f':
			dec = append(dec, '\f')
		case 'n':
			dec = append(dec, '\n')
		case 'r':
			dec = append(dec, '\r')
		case 't':
			dec = append(dec, '\t')
		case 'u':
			r, rest, err := decodeU(src)
			if err != nil {
				return nil, err
			}
			putRune(r)
			src = rest
		default:
			return nil, fmt.Errorf("invalid %q after escape", rune(ch))
		}

		i = mem.IndexByte(src, '\\')
		if i < 0 {
			dec = mem.Append(dec, src)
			break
		}
	}
	return dec, nil
}

// decodeU decodes the four hex digits of a \u escape at the front of src,
// combining a high surrogate with a following \uXXXX low surrogate when one
// is present.
func decodeU(src mem.RO) (rune, mem.RO, error) {
	v, err := parseHex4(src)
	if err != nil {
		return 0, src, err
	}
	src = src.SliceFrom(4)
	if !utf16.IsSurrogate(v) {
		return v, src, nil
	}
	if v >= 0xDC00 {
		return utf8.RuneError, src, nil // unpaired low surrogate
	}
	// A high surrogate pairs only with an immediately following \u escape.
	if src.Len() < 2 || src.At(0) != '\\' || src.At(1) != 'u' {
		return utf8.RuneError, src, nil
	}
	lo, err := parseHex4(src.SliceFrom(2))
	if err != nil {
		return 0, src, err
	}
	if lo < 0xDC00 || lo > 0xDFFF {
		return utf8.RuneError, src, nil // leave the non-pairing escape in place
	}
	return utf16.DecodeRune(v, lo), src.SliceFrom(6), nil
}

func parseHex4(data mem.RO) (rune, error) {
	if data.Len() < 4 {
		return 0, errors.New("incomplete Unicode escape")
	}
	var v rune
	for i := range 4 {
		b := data.At(i)
		v <<= 4
		switch {
		case b >= '0' && b <= '9':
			v += rune(b - '0')
		case b >= 'a' && b <= 'f':
			v += rune(b - 'a' + 10)
		case b >= 'A' && b <= 'F':
			v += rune(b - 'A' + 10)
		default:
			return 0, fmt.Errorf("invalid hex digit %q", rune(b))
		}
	}
	return v, nil
}
