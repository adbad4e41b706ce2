// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

package cirstream

import (
	"errors"
	"fmt"
)

// Caller-misuse conditions. These indicate a bug in the calling code rather
// than a problem with the document.
var (
	// ErrClosed is reported by operations on a closed parser or generator.
	ErrClosed = errors.New("instance is closed")

	// ErrFeedPending is reported by Feed when the previously supplied chunk
	// has not been fully consumed.
	ErrFeedPending = errors.New("previous input chunk not fully consumed")

	// ErrMoreInput is reported by operations that need a complete token or
	// value while the parser is suspended awaiting input.
	ErrMoreInput = errors.New("more input required")
)

// SyntaxError is the concrete type of lexical and structural errors
// reported by the parser. The instance that reported it is unusable
// afterward.
type SyntaxError struct {
	Location LineCol // position of the fault
	Offset   int64   // byte offset in the document
	Message  string
	Excerpt  string // offending token text, if any

	err error
}

// Error satisfies the error interface.
func (s *SyntaxError) Error() string {
	if s.Excerpt != "" {
		return fmt.Sprintf("at %s (offset %d): %s in %q", s.Location, s.Offset, s.Message, s.Excerpt)
	}
	return fmt.Sprintf("at %s (offset %d): %s", s.Location, s.Offset, s.Message)
}

// Unwrap supports error wrapping.
func (s *SyntaxError) Unwrap() error { return s.err }

// WriteError reports a generator call that is not legal in the current
// document state, such as a value written where a property name is required
// or an identity entry out of order.
type WriteError struct {
	Op      string // the operation that failed, e.g. "WriteString"
	Message string
}

// Error satisfies the error interface.
func (w *WriteError) Error() string { return w.Op + ": " + w.Message }

// A LimitError reports that a configured processing limit was exceeded.
// The named limit and its configured value are preserved for inspection.
type LimitError struct {
	What  string // the limit that was exceeded, e.g. "nesting depth"
	Value int64  // the offending size
	Max   int64  // the configured maximum
}

// Error satisfies the error interface.
func (l *LimitError) Error() string {
	return fmt.Sprintf("%s %d exceeds maximum %d", l.What, l.Value, l.Max)
}
