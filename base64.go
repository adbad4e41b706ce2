// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

package cirstream

import "encoding/base64"

// A Base64Variant describes how binary values are rendered as strings: the
// alphabet and padding, plus the maximum output line length before a line
// break is inserted (0 means no line breaks). Line breaks are written inside
// the string as the two-character escape \n.
type Base64Variant struct {
	Name     string
	Encoding *base64.Encoding
	LineLen  int
}

// The built-in encoding variants for binary values.
var (
	// Base64Basic is the default variant: the standard alphabet with
	// padding and no line breaks.
	Base64Basic = Base64Variant{Name: "basic", Encoding: base64.StdEncoding}

	// Base64MIME uses the standard alphabet with padding and breaks output
	// into lines of at most 76 characters.
	Base64MIME = Base64Variant{Name: "mime", Encoding: base64.StdEncoding, LineLen: 76}

	// Base64PEM is like Base64MIME but with 64-character lines.
	Base64PEM = Base64Variant{Name: "pem", Encoding: base64.StdEncoding, LineLen: 64}

	// Base64URL uses the URL-safe alphabet without padding or line breaks.
	Base64URL = Base64Variant{Name: "url", Encoding: base64.RawURLEncoding}
)

// appendEncoded appends the encoding of data to dst, inserting escaped line
// breaks per the variant. It does not add surrounding quotes.
func (v Base64Variant) appendEncoded(dst, data []byte) []byte {
	enc := v.Encoding
	if enc == nil {
		enc = base64.StdEncoding
	}
	if v.LineLen <= 0 {
		n := len(dst)
		dst = append(dst, make([]byte, enc.EncodedLen(len(data)))...)
		enc.Encode(dst[n:], data)
		return dst
	}
	// Chunk the input so each encoded line is at most LineLen characters.
	// LineLen is rounded down to a multiple of 4 so chunks stay unpadded.
	perLine := (v.LineLen / 4) * 3
	if perLine < 3 {
		perLine = 3
	}
	for len(data) > 0 {
		chunk := data
		if len(chunk) > perLine {
			chunk = chunk[:perLine]
		}
		n := len(dst)
		dst = append(dst, make([]byte, enc.EncodedLen(len(chunk)))...)
		enc.Encode(dst[n:], chunk)
		data = data[len(chunk):]
		if len(data) > 0 {
			dst = append(dst, '\\', 'n')
		}
	}
	return dst
}

// maxEncodedLen reports an upper bound on the output size for n input bytes,
// including line-break escapes.
func (v Base64Variant) maxEncodedLen(n int) int {
	enc := v.Encoding
	if enc == nil {
		enc = base64.StdEncoding
	}
	total := enc.EncodedLen(n)
	if v.LineLen > 0 {
		total += 2 * (total/v.LineLen + 1)
	}
	return total
}
