// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/beevik/opcodetools/asm"
	"github.com/beevik/opcodetools/cpu"
	"github.com/beevik/opcodetools/disasm"
	"github.com/beevik/opcodetools/tools"
	"golang.org/x/sync/errgroup"
)

var (
	errNoFiles    = errors.New("no input files")
	errAssembly   = errors.New("assembly failed")
	errDifferent  = errors.New("files differ")
	errNoListCode = errors.New("listing contains no code")
)

// assembleFiles assembles every source file concurrently. Each file's
// verbose log and errors are reported in command-line order once all
// files are done.
func assembleFiles(reg *cpu.Registry, files []string, opts *options, stderr io.Writer) error {
	if len(files) == 0 {
		return errNoFiles
	}

	logs := make([]bytes.Buffer, len(files))
	errs := make([]error, len(files))
	toolReg := tools.Default()

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, path := range files {
		g.Go(func() error {
			errs[i] = assembleFile(reg, toolReg, path, opts, &logs[i])
			return errs[i]
		})
	}
	err := g.Wait()

	for i, path := range files {
		stderr.Write(logs[i].Bytes())
		if errs[i] != nil {
			fmt.Fprintf(stderr, "## %s\n## %v\n", path, errs[i])
		}
	}
	if err != nil {
		return errAssembly
	}
	return nil
}

func assembleFile(reg *cpu.Registry, toolReg asm.ToolRegistry, path string, opts *options, log io.Writer) error {
	aopts := []asm.Option{asm.WithTools(toolReg)}
	if *opts.verbose {
		aopts = append(aopts, asm.Verbose(log))
	}
	assembly, err := asm.New(reg, aopts...).AssembleFile(path)
	if err != nil {
		return err
	}

	type output struct {
		ext   string
		write func(w io.Writer) error
	}
	outputs := []output{{".bin", assembly.WriteBinary}}
	if *opts.listing {
		outputs = append(outputs, output{".lst", assembly.WriteListing})
	}
	if *opts.labels {
		outputs = append(outputs, output{".lab.asm", assembly.WriteLabels})
	}
	if *opts.sourceMap {
		outputs = append(outputs, output{".map", func(w io.Writer) error {
			_, err := assembly.SourceMap.WriteTo(w)
			return err
		}})
	}

	// Render every output before writing any, so a failure leaves no
	// partial files behind.
	prefix := strings.TrimSuffix(path, filepath.Ext(path))
	contents := make([][]byte, len(outputs))
	for i, o := range outputs {
		var buf bytes.Buffer
		if err := o.write(&buf); err != nil {
			return err
		}
		contents[i] = buf.Bytes()
	}
	for i, o := range outputs {
		if err := os.WriteFile(prefix+o.ext, contents[i], 0644); err != nil {
			return err
		}
	}
	return nil
}

// disassembleFiles disassembles each argument, which names one or more
// binary files joined with '+'. The files are concatenated and loaded at
// the origin.
func disassembleFiles(reg *cpu.Registry, args []string, opts *options, stdout io.Writer) error {
	if len(args) == 0 {
		return errNoFiles
	}
	c, err := reg.Get(*opts.cpu)
	if err != nil {
		return err
	}
	origin, err := parseOrigin(*opts.origin)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(stdout)
	defer w.Flush()

	d := disasm.New(c, disasm.Exact(*opts.exact))
	for _, names := range args {
		var data []byte
		for _, name := range strings.Split(names, "+") {
			b, err := os.ReadFile(name)
			if err != nil {
				return err
			}
			data = append(data, b...)
		}

		fmt.Fprintln(w, "; CPU:", c.Name)
		fmt.Fprintf(w, "; ORIGIN: %#x\n", origin)
		fmt.Fprintln(w, "; FILES:", names)
		fmt.Fprintln(w)

		lines, err := d.Disassemble(data, origin)
		for i, l := range lines {
			if *opts.count > 0 && i >= *opts.count {
				break
			}
			fmt.Fprintln(w, l.Text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// diffFiles reports every offset at which two binaries differ.
func diffFiles(path1, path2 string, stdout io.Writer) error {
	d1, err := os.ReadFile(path1)
	if err != nil {
		return err
	}
	d2, err := os.ReadFile(path2)
	if err != nil {
		return err
	}

	if len(d1) != len(d2) {
		fmt.Fprintln(stdout, "Different lengths")
		return errDifferent
	}
	same := true
	for i := range d1 {
		if d1[i] != d2[i] {
			fmt.Fprintf(stdout, "Different at %#x\n", i)
			same = false
		}
	}
	if !same {
		return errDifferent
	}
	return nil
}

// rebuildFiles converts disassembly listings back into binaries.
func rebuildFiles(files []string, stdout io.Writer) error {
	if len(files) == 0 {
		return errNoFiles
	}
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		lines, err := disasm.LoadCodeLines(f)
		f.Close()
		if err != nil {
			return err
		}

		origin, data, err := disasm.Rebuild(lines)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if len(data) == 0 {
			return fmt.Errorf("%s: %w", path, errNoListCode)
		}

		out := strings.TrimSuffix(path, filepath.Ext(path)) + ".bin"
		if err := os.WriteFile(out, data, 0644); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Rebuilt '%s' to '%s' at $%04X..$%04X.\n",
			filepath.Base(path), filepath.Base(out), origin, origin+len(data)-1)
	}
	return nil
}
