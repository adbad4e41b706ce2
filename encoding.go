// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

package cirstream

import (
	"errors"
	"strings"

	"github.com/CirJSON/cirstream/internal/escape"

	"go4.org/mem"
)

// Quote encodes src as a string value. The contents are escaped and double
// quotation marks are added.
func Quote(src string) string { return string(escape.Quote(nil, src)) }

// Unquote decodes a string value. Double quotation marks are removed, and
// escape sequences are replaced with their unescaped equivalents; surrogate
// pairs of \u escapes combine into one rune. Unquote reports an error for
// an incomplete or unknown escape sequence.
func Unquote(src string) ([]byte, error) {
	if len(src) < 2 || !strings.HasPrefix(src, `"`) || !strings.HasSuffix(src, `"`) {
		return nil, errors.New("missing quotations")
	}
	return escape.Unquote(mem.S(src[1 : len(src)-1]))
}
