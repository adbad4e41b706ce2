// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

package cirstream

import "fmt"

// CopyEvent replays the parser's current token on g. An IDName token is
// consumed together with its id string by advancing p, so the pair becomes
// a single WriteObjectID; the id element of an array is recognized from the
// parser's context and becomes WriteArrayID.
func CopyEvent(p *Parser, g *Generator) error {
	switch t := p.Token(); t {
	case BeginObject:
		return g.WriteStartObject()
	case EndObject:
		return g.WriteEndObject()
	case BeginArray:
		return g.WriteStartArray()
	case EndArray:
		return g.WriteEndArray()
	case IDName:
		next, err := p.Next()
		if err != nil {
			return err
		}
		if next == NeedMore {
			// Starved mid-pair. The caller feeds more input and retries;
			// the id string then arrives as a plain String event, which
			// the String case below routes to WriteObjectID.
			return ErrMoreInput
		}
		if next != String {
			return fmt.Errorf("object identity is %s, not a string", next)
		}
		return g.WriteObjectID(p.Text())
	case Name:
		return g.WriteName(p.Name())
	case String:
		if p.Context().Index() == 1 && !p.Context().awaitingID && g.ctx.awaitingID {
			// The identity entry of an object or array.
			if g.ctx.kind == 'o' && p.Context().InObject() {
				return g.WriteObjectID(p.Text())
			}
			if g.ctx.kind == 'a' && p.Context().InArray() {
				return g.WriteArrayID(p.Text())
			}
		}
		return g.WriteString(p.Text())
	case Integer, Number:
		if text := p.Text(); isNumberText(text) {
			return g.WriteNumberString(text)
		}
		// NaN or an infinity; the generator decides whether it is allowed.
		v, err := p.Float64()
		if err != nil {
			return err
		}
		return g.WriteFloat64(v)
	case True:
		return g.WriteBool(true)
	case False:
		return g.WriteBool(false)
	case Null:
		return g.WriteNull()
	case NeedMore:
		return ErrMoreInput
	default:
		return fmt.Errorf("no current token")
	}
}

// CopyStructure replays the parser's current value on g, including all its
// children when the current token opens an object or array. The parser is
// left positioned on the last token of the value.
func CopyStructure(p *Parser, g *Generator) error {
	if t := p.Token(); t != BeginObject && t != BeginArray {
		return CopyEvent(p, g)
	}
	open := p.Depth() // the depth of the structure being copied
	if err := CopyEvent(p, g); err != nil {
		return err
	}
	for p.Depth() >= open {
		if _, err := p.Next(); err != nil {
			return err
		}
		if err := CopyEvent(p, g); err != nil {
			return err
		}
	}
	return nil
}
