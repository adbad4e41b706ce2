// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

// Package cirstream implements a streaming parser and generator for
// CirJSON, a JSON dialect in which every object and array carries a
// reference id as its first entry so that cyclic object graphs can be
// serialized.
//
// # Grammar
//
// A CirJSON document is a JSON document with one additional rule: the first
// property of every object must be the reserved name "__cirJsonId__" with a
// string value, and the first element of every array must be a string id.
// An object or array without its id entry is a syntax error, even when it
// is otherwise empty.
//
// # Parsing
//
// The Parser type is an incremental tokenizer: input arrives in chunks via
// Feed, and Next reports one token at a time without blocking. When a chunk
// runs out mid-document, Next returns the NeedMore pseudo-token; parsing
// resumes exactly where it stopped once the next chunk is fed, even when
// the boundary falls inside a token. Call EndInput when no more input will
// arrive; Next then returns io.EOF after the last token.
//
//	p := cirstream.NewParser()
//	for chunk := range chunks {
//	   p.Feed(chunk)
//	   for {
//	      tok, err := p.Next()
//	      if err != nil || tok == cirstream.NeedMore {
//	         break
//	      }
//	      log.Printf("Next token: %v", tok)
//	   }
//	}
//
// For input already behind an io.Reader, a ReaderParser does the feeding:
//
//	rp := cirstream.NewReaderParser(input)
//	for {
//	   tok, err := rp.Next()
//	   if err == io.EOF {
//	      break
//	   } else if err != nil {
//	      log.Fatalf("Parse failed: %v", err)
//	   }
//	   _ = tok
//	}
//
// Lexical and structural errors have concrete type *SyntaxError and carry
// the line, column and byte offset of the fault. Identity tokens appear in
// the stream: the sequence for {"__cirJsonId__":"root","a":123} is
// BeginObject, IDName, String("root"), Name("a"), Integer(123), EndObject.
//
// # Generating
//
// The Generator type writes a document to an io.Writer one token at a
// time, enforcing the same grammar the parser checks, including the id
// entries (WriteObjectID, WriteArrayID):
//
//	g := cirstream.NewGenerator(w)
//	g.WriteStartObject()
//	g.WriteObjectID("1")
//	g.WriteName("a")
//	g.WriteInt(123)
//	if err := g.Close(); err != nil {
//	   log.Fatalf("Write failed: %v", err)
//	}
//
// # Sharing
//
// A Factory carries the pieces that are worth sharing between instances:
// the scratch-buffer pool, the canonical property-name table, processing
// limits, and the base64 variant for binary values. The package-level
// constructors use a default factory.
package cirstream
