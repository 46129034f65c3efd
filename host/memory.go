// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import "errors"

var errAddressSpace = errors.New("memory address space exceeded")

const memorySize = 0x10000

// memory represents the host's 16-bit address space.
type memory struct {
	data []byte
}

func newMemory() *memory {
	return &memory{data: make([]byte, memorySize)}
}

// CopyBytes copies binary data into memory at address addr.
func (m *memory) CopyBytes(addr int, data []byte) error {
	if addr < 0 || addr+len(data) > len(m.data) {
		return errAddressSpace
	}
	copy(m.data[addr:], data)
	return nil
}

// LoadByte reads a byte from memory at address addr.
func (m *memory) LoadByte(addr uint16) byte {
	return m.data[addr]
}

// StoreByte stores a byte to memory at address addr.
func (m *memory) StoreByte(addr uint16, v byte) {
	m.data[addr] = v
}

// Window returns up to n bytes of memory starting at address addr. The
// window stops at the end of the address space.
func (m *memory) Window(addr uint16, n int) []byte {
	end := min(int(addr)+n, len(m.data))
	return m.data[addr:end]
}
