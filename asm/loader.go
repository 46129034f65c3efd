// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const maxIncludeDepth = 16

var errIncludeDepth = errors.New("includes nested too deeply")

// A LoadError is returned when a source file or one of its includes
// cannot be read.
type LoadError struct {
	Line *Line // the .include line, or nil for the top-level file
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Line == nil {
		return fmt.Sprintf("cannot load %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s:%d: cannot include %s: %v: %s",
		e.Line.File, e.Line.Number, e.Path, e.Err, strings.TrimSpace(e.Line.Original))
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadFile reads an assembly source file and returns its lines with
// every .include directive expanded in place.
func LoadFile(path string) ([]*Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()
	return loadLines(f, path, filepath.Dir(path), 0)
}

// LoadLines reads assembly source from r. The name labels the lines
// for error reporting, and includes are resolved relative to dir.
func LoadLines(r io.Reader, name, dir string) ([]*Line, error) {
	return loadLines(r, name, dir, 0)
}

func loadLines(r io.Reader, name, dir string, depth int) ([]*Line, error) {
	var lines []*Line
	scanner := bufio.NewScanner(r)
	for row := 1; scanner.Scan(); row++ {
		line := &Line{
			File:     name,
			Number:   row,
			Original: strings.TrimRight(scanner.Text(), "\r"),
		}

		rel, ok := includePath(line.Original)
		if !ok {
			lines = append(lines, line)
			continue
		}

		path := rel
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, rel)
		}
		if depth+1 >= maxIncludeDepth {
			return nil, &LoadError{Line: line, Path: path, Err: errIncludeDepth}
		}

		f, err := os.Open(path)
		if err != nil {
			return nil, &LoadError{Line: line, Path: path, Err: err}
		}
		included, err := loadLines(f, path, filepath.Dir(path), depth+1)
		f.Close()
		if err != nil {
			return nil, err
		}
		lines = append(lines, included...)
	}
	if err := scanner.Err(); err != nil {
		return nil, &LoadError{Path: name, Err: err}
	}
	return lines, nil
}

// includePath returns the path named by an .include directive.
func includePath(s string) (string, bool) {
	text := newFstring(s).consumeWhitespace().stripTrailingComment()
	keyword, rest := text.consumeWhile(wordChar)
	if !strings.EqualFold(keyword.str, ".include") {
		return "", false
	}
	path := strings.Trim(rest.consumeWhitespace().str, "\"")
	return path, path != ""
}
