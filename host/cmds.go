// Copyright 2018-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import "github.com/beevik/cmd"

// A command is the data stored with each entry of the command tree.
type command struct {
	name        string // full command name, including any subtree
	brief       string
	usage       string
	description string
	run         func(h *Host, c cmd.Selection) error
}

var (
	cmds     *cmd.Tree
	commands []*command // every command, in the order added
)

func addCommand(t *cmd.Tree, prefix string, d cmd.CommandDescriptor, run func(*Host, cmd.Selection) error) {
	c := &command{
		name:        prefix + d.Name,
		brief:       d.Brief,
		usage:       d.Usage,
		description: d.Description,
		run:         run,
	}
	d.Data = c
	t.AddCommand(d)
	commands = append(commands, c)
}

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "opcodetools"})
	addCommand(root, "", cmd.CommandDescriptor{
		Name:        "help",
		Brief:       "Display help",
		Description: "Display a list of commands, or help for one command.",
		Usage:       "help [<command>]",
	}, (*Host).cmdHelp)
	addCommand(root, "", cmd.CommandDescriptor{
		Name:  "assemble",
		Brief: "Assemble a file and save the binary",
		Description: "Run the assembler on the specified file, producing a" +
			" binary file and a source map file if successful. The binary" +
			" is also loaded into memory. If you want verbose output," +
			" specify true as a second parameter.",
		Usage: "assemble <filename> [<verbose>]",
	}, (*Host).cmdAssemble)

	// CPU commands
	cp := root.AddSubtree(cmd.TreeDescriptor{Name: "cpu", Brief: "CPU commands"})
	addCommand(cp, "cpu ", cmd.CommandDescriptor{
		Name:        "list",
		Brief:       "List the known CPUs",
		Description: "List every CPU the assembler and disassembler support.",
		Usage:       "cpu list",
	}, (*Host).cmdCPUList)
	addCommand(cp, "cpu ", cmd.CommandDescriptor{
		Name:  "opcodes",
		Brief: "List a CPU's opcodes",
		Description: "List the mnemonic pattern and binary template of every" +
			" opcode of the current CPU. If a filter is given, only" +
			" mnemonics starting with the filter are shown.",
		Usage: "cpu opcodes [<filter>]",
	}, (*Host).cmdCPUOpcodes)

	addCommand(root, "", cmd.CommandDescriptor{
		Name:  "disassemble",
		Brief: "Disassemble code",
		Description: "Disassemble machine code starting at the requested" +
			" address, using the current CPU. The number of instruction" +
			" lines to disassemble may be specified as an option. If no" +
			" address is specified, the disassembly continues from where" +
			" the last disassembly left off.",
		Usage: "disassemble [<address>] [<lines>]",
	}, (*Host).cmdDisassemble)
	addCommand(root, "", cmd.CommandDescriptor{
		Name:        "evaluate",
		Brief:       "Evaluate an expression",
		Description: "Evaluate a mathematical expression. Labels of the last assembly may be used.",
		Usage:       "evaluate <expression>",
	}, (*Host).cmdEvaluate)
	addCommand(root, "", cmd.CommandDescriptor{
		Name:  "execute",
		Brief: "Execute a script file",
		Description: "Load a script file from disk and execute the" +
			" commands it contains.",
		Usage: "execute <filename>",
	}, (*Host).cmdExecute)
	addCommand(root, "", cmd.CommandDescriptor{
		Name:  "labels",
		Brief: "List exported labels",
		Description: "Display the labels exported by the last assembly or" +
			" by the source map of the last loaded binary.",
		Usage: "labels",
	}, (*Host).cmdLabels)
	addCommand(root, "", cmd.CommandDescriptor{
		Name:  "list",
		Brief: "List source code lines",
		Description: "List the source code corresponding to the machine code" +
			" at the specified address. A source map containing the address must" +
			" have been previously loaded.",
		Usage: "list <address> [<lines>]",
	}, (*Host).cmdList)
	addCommand(root, "", cmd.CommandDescriptor{
		Name:  "load",
		Brief: "Load a binary file",
		Description: "Load the contents of a binary file into memory. If the" +
			" file has an associated source map, it will be loaded too, and" +
			" the binary is loaded at the first address it maps. Otherwise" +
			" the binary is loaded at the given address, or at the Origin" +
			" setting.",
		Usage: "load <filename> [<address>]",
	}, (*Host).cmdLoad)
	addCommand(root, "", cmd.CommandDescriptor{
		Name:  "match",
		Brief: "Match an instruction",
		Description: "Find the opcode of the current CPU matching a line of" +
			" assembly text and display its encoding at the next" +
			" disassembly address.",
		Usage: "match <instruction>",
	}, (*Host).cmdMatch)

	// Memory commands
	me := root.AddSubtree(cmd.TreeDescriptor{Name: "memory", Brief: "Memory commands"})
	addCommand(me, "memory ", cmd.CommandDescriptor{
		Name:  "dump",
		Brief: "Dump memory at address",
		Description: "Dump the contents of memory starting from the" +
			" specified address. The number of bytes to dump may be" +
			" specified as an option. If no address is specified, the" +
			" memory dump continues from where the last dump left off.",
		Usage: "memory dump [<address>] [<bytes>]",
	}, (*Host).cmdMemoryDump)
	addCommand(me, "memory ", cmd.CommandDescriptor{
		Name:  "set",
		Brief: "Set memory at address",
		Description: "Set the contents of memory starting from the specified" +
			" address. The values to assign should be a series of" +
			" space-separated byte values. You may use an expression for each" +
			" byte value.",
		Usage: "memory set <address> <byte> [<byte> ...]",
	}, (*Host).cmdMemorySet)

	addCommand(root, "", cmd.CommandDescriptor{
		Name:        "quit",
		Brief:       "Quit the program",
		Description: "Quit the program.",
		Usage:       "quit",
	}, (*Host).cmdQuit)
	addCommand(root, "", cmd.CommandDescriptor{
		Name:  "set",
		Brief: "Set a configuration variable",
		Description: "Set the value of a configuration variable. To see the" +
			" current values of all configuration variables, type set" +
			" without any arguments.",
		Usage: "set [<var> <value>]",
	}, (*Host).cmdSet)

	// Add command shortcuts.
	root.AddShortcut("a", "assemble")
	root.AddShortcut("cl", "cpu list")
	root.AddShortcut("co", "cpu opcodes")
	root.AddShortcut("d", "disassemble")
	root.AddShortcut("e", "evaluate")
	root.AddShortcut("l", "list")
	root.AddShortcut("m", "memory dump")
	root.AddShortcut("ms", "memory set")
	root.AddShortcut("?", "help")

	cmds = root
}
