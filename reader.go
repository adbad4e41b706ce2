// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

package cirstream

import (
	"io"

	"github.com/CirJSON/cirstream/pool"
)

// A ReaderParser is a Parser fed from an io.Reader. Its Next blocks reading
// input as needed instead of reporting NeedMore. The Feed and EndInput
// methods of the embedded Parser must not be called directly.
type ReaderParser struct {
	*Parser
	r   io.Reader
	buf []byte
}

// Next advances to the next token, reading more input as needed. At the end
// of the input it returns io.EOF.
func (rp *ReaderParser) Next() (Token, error) {
	for {
		tok, err := rp.Parser.Next()
		if err != nil || tok != NeedMore {
			return tok, err
		}
		if rp.buf == nil {
			rp.buf = rp.rec.Alloc(pool.ReadBuf, 0)
			rp.buf = rp.buf[:cap(rp.buf)]
		}
		n, err := rp.r.Read(rp.buf)
		if n > 0 {
			if ferr := rp.Parser.Feed(rp.buf[:n]); ferr != nil {
				return Invalid, ferr
			}
		}
		if err == io.EOF {
			rp.Parser.EndInput()
		} else if err != nil {
			rp.Parser.fail(err)
			return Invalid, err
		}
	}
}

// Close releases the parser's buffers.
func (rp *ReaderParser) Close() error {
	if rp.buf != nil && !rp.Parser.closed {
		rp.rec.Release(pool.ReadBuf, rp.buf)
		rp.buf = nil
	}
	return rp.Parser.Close()
}
