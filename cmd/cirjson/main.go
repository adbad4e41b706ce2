// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

// Program cirjson converts a JSON document to CirJSON, synthesizing the
// reference ids depth-first. Input may be JWCC (JSON with commas and
// comments), and may be gzip- or zstd-compressed (recognized by the .gz and
// .zst extensions).
//
// Usage:
//
//	cirjson [-jwcc] [-indent S] [-o output] [input]
//
// With no input path, or with "-", input is read from stdin.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CirJSON/cirstream"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/tailscale/hujson"
)

var (
	doJWCC  = flag.Bool("jwcc", false, "Treat the input as JWCC regardless of extension")
	indent  = flag.String("indent", "", "Indent output by this string per nesting level")
	outPath = flag.String("o", "", "Write output to this file instead of stdout")
)

func main() {
	flag.Parse()
	if flag.NArg() > 1 {
		log.Fatal("Extra arguments after input path")
	}
	inPath := "-"
	if flag.NArg() == 1 {
		inPath = flag.Arg(0)
	}

	data, err := readInput(inPath)
	if err != nil {
		log.Fatalf("Reading input: %v", err)
	}
	if *doJWCC || isJWCCPath(inPath) {
		data, err = hujson.Standardize(data)
		if err != nil {
			log.Fatalf("Standardizing JWCC: %v", err)
		}
	}

	out := os.Stdout
	if *outPath != "" {
		out, err = os.Create(*outPath)
		if err != nil {
			log.Fatalf("Creating output: %v", err)
		}
	}

	g := cirstream.NewGenerator(out)
	g.SetIndent(*indent)
	if err := convert(data, g); err != nil {
		log.Fatalf("Converting: %v", err)
	}
	if err := g.Close(); err != nil {
		log.Fatalf("Closing output: %v", err)
	}
	if *outPath != "" {
		if err := out.Close(); err != nil {
			log.Fatalf("Closing output: %v", err)
		}
	} else {
		fmt.Println()
	}
}

// readInput loads the input document, transparently decompressing gzip and
// zstd by extension.
func readInput(path string) ([]byte, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr.IOReadCloser()
	}
	return io.ReadAll(r)
}

// isJWCCPath reports whether the path names a JWCC document, looking past a
// compression extension.
func isJWCCPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".zst":
		path = strings.TrimSuffix(path, filepath.Ext(path))
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jwcc", ".hujson":
		return true
	}
	return false
}

// convert replays the JSON document in data on g, assigning each object and
// array the next id in depth-first order.
func convert(data []byte, g *cirstream.Generator) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var nextID int
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		if err := copyValue(dec, g, tok, &nextID); err != nil {
			return err
		}
	}
}

func copyValue(dec *json.Decoder, g *cirstream.Generator, tok json.Token, nextID *int) error {
	switch t := tok.(type) {
	case json.Delim:
		*nextID++
		id := strconv.Itoa(*nextID)
		if t == '{' {
			if err := g.WriteStartObject(); err != nil {
				return err
			}
			if err := g.WriteObjectID(id); err != nil {
				return err
			}
			for dec.More() {
				key, err := dec.Token()
				if err != nil {
					return err
				}
				if err := g.WriteName(key.(string)); err != nil {
					return err
				}
				val, err := dec.Token()
				if err != nil {
					return err
				}
				if err := copyValue(dec, g, val, nextID); err != nil {
					return err
				}
			}
			if _, err := dec.Token(); err != nil { // the closing "}"
				return err
			}
			return g.WriteEndObject()
		}
		if err := g.WriteStartArray(); err != nil {
			return err
		}
		if err := g.WriteArrayID(id); err != nil {
			return err
		}
		for dec.More() {
			val, err := dec.Token()
			if err != nil {
				return err
			}
			if err := copyValue(dec, g, val, nextID); err != nil {
				return err
			}
		}
		if _, err := dec.Token(); err != nil { // the closing "]"
			return err
		}
		return g.WriteEndArray()

	case string:
		return g.WriteString(t)
	case json.Number:
		return g.WriteNumberString(t.String())
	case bool:
		return g.WriteBool(t)
	case nil:
		return g.WriteNull()
	default:
		return fmt.Errorf("unexpected token %v", tok)
	}
}
