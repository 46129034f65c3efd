// Copyright 2018-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/beevik/prefixtree/v2"
)

var errSettingType = errors.New("invalid type")

type settings struct {
	CPU             string `doc:"cpu used to disassemble and match"`
	HexMode         bool   `doc:"hexadecimal input mode"`
	Origin          uint16 `doc:"load address of raw binaries"`
	DisasmLines     int    `doc:"default number of lines to disassemble"`
	MemDumpBytes    int    `doc:"default number of memory bytes to dump"`
	SourceLines     int    `doc:"default number of source lines to display"`
	ExactWindow     int    `doc:"required opcode length when disassembling"`
	NextDisasmAddr  uint16 `doc:"address of next disassembly"`
	NextMemDumpAddr uint16 `doc:"address of next memory dump"`
}

func newSettings() *settings {
	return &settings{
		CPU:          "6502",
		MemDumpBytes: 64,
		DisasmLines:  10,
		SourceLines:  10,
	}
}

type settingsField struct {
	name  string
	index int
	kind  reflect.Kind
	typ   reflect.Type
	doc   string
}

var (
	settingsTree   = prefixtree.New[*settingsField]()
	settingsFields []settingsField
)

func init() {
	settingsType := reflect.TypeOf(settings{})
	settingsFields = make([]settingsField, settingsType.NumField())
	for i := range settingsFields {
		f := settingsType.Field(i)
		doc, _ := f.Tag.Lookup("doc")
		settingsFields[i] = settingsField{
			name:  f.Name,
			index: i,
			kind:  f.Type.Kind(),
			typ:   f.Type,
			doc:   doc,
		}
		settingsTree.Add(strings.ToLower(f.Name), &settingsFields[i])
	}
}

// Display writes every setting and its description.
func (s *settings) Display(w io.Writer) {
	value := reflect.ValueOf(s).Elem()
	for i, f := range settingsFields {
		v := value.Field(i)
		var s string
		switch f.kind {
		case reflect.String:
			s = fmt.Sprintf("    %-16s \"%s\"", f.name, v.String())
		case reflect.Uint16:
			s = fmt.Sprintf("    %-16s $%04X", f.name, uint16(v.Uint()))
		default:
			s = fmt.Sprintf("    %-16s %v", f.name, v)
		}
		fmt.Fprintf(w, "%-28s (%s)\n", s, f.doc)
	}
}

func (s *settings) find(key string) (*settingsField, error) {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return nil, fmt.Errorf("setting '%s': %w", key, err)
	}
	return f, nil
}

// Kind returns the kind of a setting's value, or reflect.Invalid if the
// key does not identify exactly one setting.
func (s *settings) Kind(key string) reflect.Kind {
	f, err := s.find(key)
	if err != nil {
		return reflect.Invalid
	}
	return f.kind
}

// Set assigns a value to the setting matching key, which may be any
// unique prefix of the setting's name.
func (s *settings) Set(key string, value any) error {
	f, err := s.find(key)
	if err != nil {
		return err
	}

	vIn := reflect.ValueOf(value)
	if (f.kind == reflect.String) != (vIn.Kind() == reflect.String) ||
		!vIn.Type().ConvertibleTo(f.typ) {
		return errSettingType
	}
	reflect.ValueOf(s).Elem().Field(f.index).Set(vIn.Convert(f.typ))
	return nil
}
