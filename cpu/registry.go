// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/beevik/prefixtree/v2"
)

// ErrUnknownCPU is returned when a CPU name matches no registry entry.
var ErrUnknownCPU = errors.New("unknown cpu")

type builder func() (*CPU, error)

type entry struct {
	name  string
	desc  string
	build builder
	once  sync.Once
	cpu   *CPU
	err   error
}

// A Registry holds one lazily built instance of each known CPU. A
// Registry may be shared by concurrent assembler and disassembler runs.
type Registry struct {
	entries map[string]*entry
	aliases map[string]string
	names   *prefixtree.Tree[string]
}

// Info describes a registered CPU.
type Info struct {
	Name        string
	Description string
}

// NewRegistry creates a registry holding every built-in CPU.
func NewRegistry() *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		aliases: make(map[string]string),
		names:   prefixtree.New[string](),
	}
	r.add("6502", "MOS 6502", new6502)
	r.add("65C02", "WDC 65C02", new65C02)
	r.add("6803", "Motorola 6803", new6803)
	r.add("6809", "Motorola 6809", new6809)
	r.add("8052", "Intel 8051/8052", new8052)
	r.add("Z80", "Zilog Z80", newZ80)
	r.add("Z80GB", "Sharp LR35902 (Game Boy)", newZ80GB)
	r.add("DVG", "Atari digital vector generator", newDVG)
	r.alias("8051", "8052")
	return r
}

func (r *Registry) add(name, desc string, b builder) {
	r.entries[name] = &entry{name: name, desc: desc, build: b}
	r.names.Add(name, name)
}

func (r *Registry) alias(alias, name string) {
	r.aliases[alias] = name
	r.names.Add(alias, name)
}

// Get returns the CPU with the given name, building it on first use.
// Names are matched exactly, and then as a unique prefix.
func (r *Registry) Get(name string) (*CPU, error) {
	canon, ok := r.canonical(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCPU, name)
	}
	e := r.entries[canon]
	e.once.Do(func() {
		e.cpu, e.err = e.build()
	})
	return e.cpu, e.err
}

func (r *Registry) canonical(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if _, ok := r.entries[name]; ok {
		return name, true
	}
	if canon, ok := r.aliases[name]; ok {
		return canon, true
	}
	canon, err := r.names.FindValue(name)
	if err != nil {
		return "", false
	}
	return canon, true
}

// Names returns the sorted names of all registered CPUs.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// List returns a description of every registered CPU, sorted by name.
func (r *Registry) List() []Info {
	var list []Info
	for _, n := range r.Names() {
		list = append(list, Info{Name: n, Description: r.entries[n].desc})
	}
	return list
}
