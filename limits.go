// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

package cirstream

// Limits bounds the resources a single parser or generator may consume.
// A zero field selects the built-in default for that limit, except
// MaxDocumentLength where zero means unlimited (the default).
type Limits struct {
	MaxDepth          int   // maximum nesting depth of objects and arrays
	MaxDocumentLength int64 // maximum total input size in bytes; 0 = unlimited
	MaxNameLength     int   // maximum decoded property name size in bytes
	MaxNumberLength   int   // maximum number literal size in bytes
	MaxStringLength   int   // maximum decoded string value size in bytes
}

// DefaultLimits returns the built-in default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:        1000,
		MaxNameLength:   50000,
		MaxNumberLength: 1000,
		MaxStringLength: 20 << 20,
	}
}

// withDefaults fills zero fields from the built-in defaults.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxDepth == 0 {
		l.MaxDepth = d.MaxDepth
	}
	if l.MaxNameLength == 0 {
		l.MaxNameLength = d.MaxNameLength
	}
	if l.MaxNumberLength == 0 {
		l.MaxNumberLength = d.MaxNumberLength
	}
	if l.MaxStringLength == 0 {
		l.MaxStringLength = d.MaxStringLength
	}
	return l
}
