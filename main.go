// Copyright 2018-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command opcodetools assembles and disassembles code for the CPUs in the
// cpu package. With no mode flag it runs the interactive host, first
// executing any script files named on the command line.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/opcodetools/cpu"
	"github.com/beevik/opcodetools/host"
	"github.com/beevik/opcodetools/tools"
	"github.com/beevik/term"
	"github.com/pborman/getopt"
)

type options struct {
	assemble    *bool
	disassemble *bool
	diff        *bool
	rebuild     *bool
	cpu         *string
	origin      *string
	count       *int
	exact       *int
	listing     *bool
	labels      *bool
	sourceMap   *bool
	verbose     *bool
	help        *bool
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	set := getopt.New()
	set.SetProgram("opcodetools")
	set.SetParameters("[file ...]")
	opts := options{
		assemble:    set.BoolLong("assemble", 'a', "assemble the source files"),
		disassemble: set.BoolLong("disassemble", 'd', "disassemble binaries; join files with '+'"),
		diff:        set.BoolLong("diff", 'D', "compare two binary files"),
		rebuild:     set.BoolLong("rebuild", 'r', "rebuild binaries from disassembly listings"),
		cpu:         set.StringLong("cpu", 'c', "6502", "cpu used to disassemble", "NAME"),
		origin:      set.StringLong("origin", 'o', "0", "load address of disassembled code (hex)", "ADDR"),
		count:       set.IntLong("count", 'n', 0, "maximum number of lines to disassemble", "N"),
		exact:       set.IntLong("exact", 'x', 0, "only match opcodes of exactly N bytes", "N"),
		listing:     set.BoolLong("listing", 'l', "write a listing file (.lst)"),
		labels:      set.BoolLong("labels", 'L', "write a label file (.lab.asm)"),
		sourceMap:   set.BoolLong("map", 'm', "write a source map file (.map)"),
		verbose:     set.BoolLong("verbose", 'v', "log assembler passes"),
		help:        set.BoolLong("help", 'h', "display this help"),
	}
	if err := set.Getopt(args, nil); err != nil {
		fmt.Fprintln(stderr, err)
		set.PrintUsage(stderr)
		return 2
	}
	if *opts.help {
		set.PrintUsage(stdout)
		return 0
	}

	reg := cpu.NewRegistry()
	files := set.Args()

	var err error
	switch {
	case *opts.assemble:
		err = assembleFiles(reg, files, &opts, stderr)
	case *opts.disassemble:
		err = disassembleFiles(reg, files, &opts, stdout)
	case *opts.diff:
		if len(files) != 2 {
			set.PrintUsage(stderr)
			return 2
		}
		err = diffFiles(files[0], files[1], stdout)
	case *opts.rebuild:
		err = rebuildFiles(files, stdout)
	default:
		err = runHost(reg, files, stdout)
	}

	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	return 0
}

func runHost(reg *cpu.Registry, scripts []string, stdout io.Writer) error {
	h := host.New(reg, tools.Default())

	// Run commands contained in command-line files.
	for _, filename := range scripts {
		file, err := os.Open(filename)
		if err != nil {
			return err
		}
		h.RunCommands(file, stdout, false)
		file.Close()
	}

	// Run commands interactively.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		if err := h.RunTerminal(os.Stdin, stdout); err != nil {
			h.RunCommands(os.Stdin, stdout, true)
		}
	} else if len(scripts) == 0 {
		h.RunCommands(os.Stdin, stdout, false)
	}
	return nil
}

// parseOrigin parses a hexadecimal address, with or without a $ or 0x
// prefix.
func parseOrigin(s string) (int, error) {
	t := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "$"), "0x")
	v, err := strconv.ParseUint(t, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid origin '%s'", s)
	}
	return int(v), nil
}
