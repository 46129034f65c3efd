// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tools

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/opcodetools/asm"
	"github.com/beevik/opcodetools/cpu"
	"golang.org/x/image/bmp"
)

type testContext struct {
	addr   int
	values map[string]any
}

func newTestContext(addr int) *testContext {
	return &testContext{addr: addr, values: make(map[string]any)}
}

func (c *testContext) Address() int               { return c.addr }
func (c *testContext) CPU() *cpu.CPU              { return nil }
func (c *testContext) Value(key string) any       { return c.values[key] }
func (c *testContext) SetValue(key string, v any) { c.values[key] = v }

func (c *testContext) Eval(text string) (int, error) {
	if text == "label*2" {
		return 0x42, nil
	}
	return 0, fmt.Errorf("undefined: %s", text)
}

func hexString(b []byte) string {
	return fmt.Sprintf("%X", b)
}

func runTool(t *testing.T, tool asm.Tool, ctx asm.ToolContext, line *asm.Line, pass int, block []string) string {
	t.Helper()
	if err := tool(ctx, line, pass, block); err != nil {
		t.Fatal(err)
	}
	return hexString(line.Data)
}

var gbArtBlock = []string{
	"{ R=1 G=2",
	"1111 1111",
	"22222222",
	"33333333",
	"........",
	"RRRRGGGG",
	"........",
	"........",
	"........",
}

const gbArtData = "FF0000FFFFFF0000F00F000000000000"

func TestGameBoyTiles(t *testing.T) {
	ctx := newTestContext(0)
	line := &asm.Line{}
	if got := runTool(t, gbTiles, ctx, line, 0, gbArtBlock); got != gbArtData {
		t.Errorf("got %s, want %s", got, gbArtData)
	}

	// Data from the first pass is kept.
	if got := runTool(t, gbTiles, ctx, line, 1, nil); got != gbArtData {
		t.Errorf("second pass changed data: %s", got)
	}

	_, err := gbArt([]string{"{", "1111111"})
	if !errors.Is(err, errTileSize) {
		t.Errorf("expected size error, got %v", err)
	}
	_, err = gbArt([]string{"{", "x......."})
	if !errors.Is(err, errTileChar) {
		t.Errorf("expected pixel error, got %v", err)
	}
}

func TestGameBoyTileMap(t *testing.T) {
	block := []string{"{"}
	for i := 0; i < 8; i++ {
		row := "........ 33333333 ........"
		if i == 0 {
			row = "1....... 33333333 1......."
		}
		block = append(block, row)
	}

	ctx := newTestContext(0)
	line := &asm.Line{}
	got := runTool(t, gbUniqueAndMap, ctx, line, 0, block)
	want := "8000" + strings.Repeat("0000", 7) + strings.Repeat("FFFF", 8)
	if got != want {
		t.Errorf("unique tiles: got %s, want %s", got, want)
	}

	if got := runTool(t, gbMap, ctx, &asm.Line{}, 0, nil); got != "000100" {
		t.Errorf("map: got %s", got)
	}
}

func TestGameBoyMapMissing(t *testing.T) {
	err := gbMap(newTestContext(0), &asm.Line{}, 0, nil)
	if !errors.Is(err, errNoTileMap) {
		t.Errorf("expected missing map error, got %v", err)
	}
}

func TestNESTile(t *testing.T) {
	block := []string{
		"{",
		"3.......",
		"1.......",
		"2.......",
		"........",
		"........",
		"........",
		"........",
		"........",
	}
	ctx := newTestContext(0)
	line := &asm.Line{}
	if got := runTool(t, nesTile, ctx, line, 0, block); got != strings.Repeat("00", 16) {
		t.Errorf("first pass: got %s", got)
	}
	want := "8080000000000000" + "8000800000000000"
	if got := runTool(t, nesTile, ctx, line, 1, block); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func writeTestImage(t *testing.T, dir, name string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.Black)
		}
	}
	img.Set(7, 0, color.White)

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if strings.HasSuffix(name, ".bmp") {
		err = bmp.Encode(f, img)
	} else {
		err = png.Encode(f, img)
	}
	if err != nil {
		t.Fatal(err)
	}
}

func TestImageTool(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, dir, "tile.png")
	writeTestImage(t, dir, "tile.bmp")
	line := &asm.Line{File: filepath.Join(dir, "main.asm")}

	tests := []struct {
		args string
		want string
	}{
		{"tile.png", "0100" + strings.Repeat("0000", 7)},
		{"tile.bmp", "0100" + strings.Repeat("0000", 7)},
		{"tile.png gb FFFFFF,000000", "FE00" + strings.Repeat("FF00", 7)},
		{"tile.png nes", "01" + strings.Repeat("00", 15)},
	}
	for _, tt := range tests {
		got := runTool(t, imageTiles, newTestContext(0), line, 0, []string{tt.args})
		if got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.args, got, tt.want)
		}
	}

	err := imageTiles(newTestContext(0), line, 0, []string{"tile.png gb FF0000"})
	if !errors.Is(err, errImageColor) {
		t.Errorf("expected palette error, got %v", err)
	}
	err = imageTiles(newTestContext(0), line, 0, []string{"tile.gif"})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected missing file, got %v", err)
	}
}

const testScript = `
function doAsmTool(pass, block)
  local t = {}
  for i, line in ipairs(block) do
    t[#t+1] = tonumber(line)
  end
  t[#t+1] = address % 256
  return t
end

function twice(pass, block)
  return { eval("label*2") }
end

function bad(pass, block)
  return { 300 }
end

function none(pass, block)
  return nil
end
`

func TestLuaTool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gen.lua")
	if err := os.WriteFile(path, []byte(testScript), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := newTestContext(0x1234)

	got := runTool(t, luaTool(path, asm.DefaultToolFunction), ctx, &asm.Line{}, 1, []string{"1", "2"})
	if got != "010234" {
		t.Errorf("doAsmTool: got %s", got)
	}
	if got := runTool(t, luaTool(path, "twice"), ctx, &asm.Line{}, 1, nil); got != "42" {
		t.Errorf("twice: got %s", got)
	}
	line := &asm.Line{Data: []byte{7}}
	if got := runTool(t, luaTool(path, "none"), ctx, line, 1, nil); got != "07" {
		t.Errorf("none: got %s", got)
	}

	err := luaTool(path, "bad")(ctx, &asm.Line{}, 1, nil)
	if !errors.Is(err, errLuaResult) {
		t.Errorf("expected result error, got %v", err)
	}
	err = luaTool(path, "missing")(ctx, &asm.Line{}, 1, nil)
	if !errors.Is(err, errLuaFunction) {
		t.Errorf("expected function error, got %v", err)
	}

	main := &asm.Line{File: filepath.Join(dir, "main.asm")}
	tool, err := Default().Lookup("gen", "twice", main)
	if err != nil {
		t.Fatal(err)
	}
	if got := runTool(t, tool, ctx, main, 1, nil); got != "42" {
		t.Errorf("module fallback: got %s", got)
	}

	tool, err = Default().Lookup("lua", asm.DefaultToolFunction, main)
	if err != nil {
		t.Fatal(err)
	}
	if got := runTool(t, tool, ctx, &asm.Line{File: main.File}, 1, []string{"gen.lua", "9"}); got != "0934" {
		t.Errorf("lua module: got %s", got)
	}
}

func TestLookup(t *testing.T) {
	line := &asm.Line{File: filepath.Join(t.TempDir(), "main.asm")}
	for _, name := range [][2]string{{"nosuch", "doAsmTool"}, {"gbtile", "nosuch"}} {
		_, err := Default().Lookup(name[0], name[1], line)
		if !errors.Is(err, asm.ErrUnknownTool) {
			t.Errorf("%s.%s: expected unknown tool, got %v", name[0], name[1], err)
		}
	}
}

func TestAssembleWithTools(t *testing.T) {
	src := `	.CPU Z80GB
$0000:
	.tool gbtile {
{ R=1 G=2
1111 1111
22222222
33333333
........
RRRRGGGG
........
........
........
}
	NOP
`
	lines, err := asm.LoadLines(strings.NewReader(src), "test", ".")
	if err != nil {
		t.Fatal(err)
	}
	assembly, err := asm.New(cpu.NewRegistry(), asm.WithTools(Default())).Assemble(lines)
	if err != nil {
		t.Fatal(err)
	}
	code, err := assembly.Binary()
	if err != nil {
		t.Fatal(err)
	}
	if got := hexString(code); got != gbArtData+"00" {
		t.Errorf("got %s", got)
	}
}
