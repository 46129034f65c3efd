// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// A Row is one entry of an opcode table: a mnemonic pattern, a code
// template and the field qualifiers, written the same way as the tables
// of the built-in CPUs.
type Row struct {
	Mnemonic string
	Code     string
	Use      string
}

// NewCustom builds a CPU from an opcode table supplied by the caller.
func NewCustom(name, desc string, littleEndian bool, rows []Row, hooks Hooks) (*CPU, error) {
	table := make([]opcodeData, len(rows))
	for i, r := range rows {
		table[i] = opcodeData{r.Mnemonic, r.Code, r.Use}
	}
	return newCPU(name, desc, littleEndian, table, hooks)
}

// Register adds a CPU to the registry. The CPU is built by calling build
// the first time it is requested. Register must not be called once the
// registry is shared.
func (r *Registry) Register(name, desc string, build func() (*CPU, error)) {
	r.add(name, desc, build)
}
