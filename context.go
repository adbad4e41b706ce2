// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

package cirstream

import "strconv"

// Constants identifying the kind of a Context.
const (
	KindRoot   = "root"
	KindObject = "object"
	KindArray  = "array"
)

// A Context describes one level of the document structure surrounding the
// current position of a parser or generator. Contexts form a chain from the
// current level to the root; a level's child context is retained and reused
// when the same nesting depth is re-entered, so steady-state traversal does
// not allocate.
type Context struct {
	parent *Context
	child  *Context

	kind  byte // 'r', 'o' or 'a'
	depth int  // root is 0

	// index counts the entries seen or written at this level, including the
	// identity entry. gotName tracks whether an object level has a property
	// name pending a value.
	index   int
	gotName bool
	name    string

	// awaitingID is true from entering an object or array until its
	// identity entry is complete.
	awaitingID bool

	// owner optionally carries a caller value assigned via SetOwner, for
	// correlating document structure with application state.
	owner any
}

func newRootContext() *Context { return &Context{kind: 'r'} }

// pushChild returns the child context of c reset for the given kind,
// creating it on first use.
func (c *Context) pushChild(kind byte) *Context {
	sub := c.child
	if sub == nil {
		sub = &Context{parent: c, depth: c.depth + 1}
		c.child = sub
	}
	sub.kind = kind
	sub.index = 0
	sub.gotName = false
	sub.name = ""
	sub.awaitingID = true
	sub.owner = nil
	return sub
}

// Parent returns the context enclosing c, or nil for the root context.
func (c *Context) Parent() *Context { return c.parent }

// Kind returns one of KindRoot, KindObject or KindArray.
func (c *Context) Kind() string {
	switch c.kind {
	case 'o':
		return KindObject
	case 'a':
		return KindArray
	default:
		return KindRoot
	}
}

// InRoot reports whether c is the root context.
func (c *Context) InRoot() bool { return c.kind == 'r' }

// InObject reports whether c is an object context.
func (c *Context) InObject() bool { return c.kind == 'o' }

// InArray reports whether c is an array context.
func (c *Context) InArray() bool { return c.kind == 'a' }

// Depth returns the nesting depth of c. The root context has depth 0.
func (c *Context) Depth() int { return c.depth }

// Index returns the number of entries seen or written at this level so far,
// including the identity entry of an object or array.
func (c *Context) Index() int { return c.index }

// HasIndex reports whether at least one entry has been seen at this level.
func (c *Context) HasIndex() bool { return c.index > 0 }

// Name returns the property name most recently seen or written at an object
// level, or "" if none.
func (c *Context) Name() string { return c.name }

// HasName reports whether an object level has a current property name.
func (c *Context) HasName() bool { return c.gotName || c.name != "" }

// SetOwner associates an arbitrary caller value with this level. The value
// is cleared when the level is re-entered.
func (c *Context) SetOwner(v any) { c.owner = v }

// Owner returns the value set by SetOwner, or nil.
func (c *Context) Owner() any { return c.owner }

// String renders the context as a path expression, e.g. `/a/4/name`, for use
// in diagnostics. Entry indexes do not count identity entries.
func (c *Context) String() string {
	if c.kind == 'r' {
		return "/"
	}
	var path []byte
	for ; c != nil && c.kind != 'r'; c = c.parent {
		var seg []byte
		if c.kind == 'o' {
			if c.name != "" {
				seg = append(seg, c.name...)
			} else {
				seg = append(seg, '?')
			}
		} else {
			// The ordinal of the most recent element, not counting the
			// identity element.
			i := c.index - 2
			if i < 0 {
				i = 0
			}
			seg = strconv.AppendInt(seg, int64(i), 10)
		}
		path = append(append([]byte{'/'}, seg...), path...)
	}
	return string(path)
}
