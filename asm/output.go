// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
)

const (
	gapFill      = 0xff
	toolRowBytes = 32
)

// Origin returns the address of the first line that produced data.
func (a *Assembly) Origin() int {
	for _, l := range a.Lines {
		if l.HasData && len(l.Data) > 0 {
			return l.Address
		}
	}
	return 0
}

// Binary returns the machine code of every line in source order. Gaps
// between lines are filled with $FF. A line whose address is below the
// end of the data before it causes an ErrOriginOverlap error.
func (a *Assembly) Binary() ([]byte, error) {
	var buf bytes.Buffer
	cursor := -1
	for _, l := range a.Lines {
		if !l.HasData || len(l.Data) == 0 {
			continue
		}
		if cursor < 0 {
			cursor = l.Address
		}
		if l.Address < cursor {
			return nil, &Error{
				Kind:   ErrOriginOverlap,
				Line:   l,
				Detail: fmt.Sprintf("$%04X is below $%04X", l.Address, cursor),
			}
		}
		buf.Write(bytes.Repeat([]byte{gapFill}, l.Address-cursor))
		buf.Write(l.Data)
		cursor = l.Address + len(l.Data)
	}
	return buf.Bytes(), nil
}

// WriteBinary writes the assembled machine code to w. Nothing is written
// if the code cannot be laid out.
func (a *Assembly) WriteBinary(w io.Writer) error {
	b, err := a.Binary()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// WriteListing writes a listing of the symbol tables followed by every
// source line with its address and data.
func (a *Assembly) WriteListing(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "#### Labels")
	for _, name := range sortedNames(a.Labels) {
		if !a.isLocal(name) {
			fmt.Fprintf(bw, "%s = 0x%04X\n", name, a.Labels[name])
		}
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "#### Defines")
	for _, name := range sortedNames(a.Defines) {
		fmt.Fprintf(bw, "%s = %s\n", name, a.Defines[name])
	}
	fmt.Fprintln(bw)

	for _, l := range a.Lines {
		switch {
		case !l.HasAddress:
			fmt.Fprintf(bw, "%22s%s\n", "", l.Original)

		case l.Kind == KindTool:
			fmt.Fprintf(bw, "%04X: %16s%s\n", l.Address, "", l.Original)
			for i := 0; i < len(l.Data); i += toolRowBytes {
				j := min(i+toolRowBytes, len(l.Data))
				fmt.Fprintf(bw, "%04X: %s\n", l.Address+i, spacedHex(l.Data[i:j]))
			}

		default:
			var data []byte
			if l.HasData {
				data = l.Data
			}
			fmt.Fprintf(bw, "%04X: %-16s%s\n", l.Address, spacedHex(data), l.Original)
		}
	}
	return bw.Flush()
}

// WriteLabels writes every non-local label as a define directive that
// other sources can include.
func (a *Assembly) WriteLabels(w io.Writer) error {
	bw := bufio.NewWriter(w)
	src := ""
	if len(a.Lines) > 0 {
		src = " from " + filepath.Base(a.Lines[0].File)
	}
	fmt.Fprintf(bw, "; DO NOT EDIT THIS FILE. It was generated by the assembler%s.\n", src)
	for _, name := range sortedNames(a.Labels) {
		if !a.isLocal(name) {
			fmt.Fprintf(bw, ".%s = 0x%04X\n", name, a.Labels[name])
		}
	}
	return bw.Flush()
}

// Exports returns the non-local labels in address order.
func (a *Assembly) Exports() []Export {
	var exports []Export
	for _, name := range sortedNames(a.Labels) {
		if !a.isLocal(name) {
			exports = append(exports, Export{Label: name, Address: a.Labels[name]})
		}
	}
	sort.SliceStable(exports, func(i, j int) bool {
		return exports[i].Address < exports[j].Address
	})
	return exports
}

// Lookup returns the value of a label or numeric define.
func (a *Assembly) Lookup(name string) (int, error) {
	if v, ok := a.Labels[name]; ok {
		return v, nil
	}
	if v, ok := a.Defines[name]; ok && !v.IsString {
		return v.Int, nil
	}
	return 0, fmt.Errorf("%w '%s'", errUndefined, name)
}

// isLocal returns true if the label was defined with a leading
// underscore inside a scope.
func (a *Assembly) isLocal(name string) bool {
	return a.locals[name]
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
