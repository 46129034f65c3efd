// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tools provides the data generators that assembly source can
// invoke with the .tool directive.
package tools

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/beevik/opcodetools/asm"
)

// A Registry maps tool module and function names to tools. Modules that
// are not registered are looked up as Lua scripts named after the module
// in the directory of the source file.
type Registry struct {
	modules map[string]map[string]asm.Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]map[string]asm.Tool)}
}

// Default returns a registry holding the built-in tools.
func Default() *Registry {
	r := NewRegistry()
	r.Register("gbtile", asm.DefaultToolFunction, gbTiles)
	r.Register("gbtile", "unique_and_map", gbUniqueAndMap)
	r.Register("gbtile", "map", gbMap)
	r.Register("nestile", asm.DefaultToolFunction, nesTile)
	r.Register("image", asm.DefaultToolFunction, imageTiles)
	return r
}

// Register adds a tool to the registry.
func (r *Registry) Register(module, function string, t asm.Tool) {
	fns, ok := r.modules[module]
	if !ok {
		fns = make(map[string]asm.Tool)
		r.modules[module] = fns
	}
	fns[function] = t
}

// Lookup finds the tool for a .tool directive on the line.
//
// The "lua" module runs the Lua script named on the first line of the
// block. Any other unregistered module X runs the function in X.lua.
func (r *Registry) Lookup(module, function string, line *asm.Line) (asm.Tool, error) {
	if fns, ok := r.modules[module]; ok {
		if t, ok := fns[function]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("%w: %s.%s", asm.ErrUnknownTool, module, function)
	}

	if module == "lua" {
		return luaBlockTool(function), nil
	}

	path := filepath.Join(filepath.Dir(line.File), module+".lua")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", asm.ErrUnknownTool, module)
	}
	return luaTool(path, function), nil
}

// relativePath resolves a path named in the block of a .tool line.
func relativePath(line *asm.Line, path string) string {
	if filepath.IsAbs(path) || line.File == "" {
		return path
	}
	return filepath.Join(filepath.Dir(line.File), path)
}
