// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/opcodetools/asm"
)

var (
	errTileSize  = errors.New("tile art must be a multiple of 8 pixels wide and high")
	errTileChar  = errors.New("invalid tile pixel")
	errNoTileMap = errors.New("no tile map has been generated")
	errPalette   = errors.New("invalid palette entry")
)

// A tile holds the 2-bit color indices of an 8x8 block of pixels, row by
// row.
type tile [64]byte

// gameBoy encodes a tile as 8 rows of two bytes. The first byte of each
// row holds the low bit of each pixel, most significant pixel first.
func (t *tile) gameBoy() []byte {
	b := make([]byte, 0, 16)
	for y := 0; y < 8; y++ {
		lo, hi := t.planes(y)
		b = append(b, lo, hi)
	}
	return b
}

// nes encodes a tile as an 8-byte plane of low bits followed by an 8-byte
// plane of high bits.
func (t *tile) nes() []byte {
	b := make([]byte, 16)
	for y := 0; y < 8; y++ {
		b[y], b[y+8] = t.planes(y)
	}
	return b
}

func (t *tile) planes(y int) (lo, hi byte) {
	for x := 0; x < 8; x++ {
		c := t[y*8+x]
		lo = lo<<1 | c&1
		hi = hi<<1 | c>>1&1
	}
	return lo, hi
}

// parseArt converts rows of pixel characters into tiles, ordered left to
// right and then top to bottom. Spaces within rows are ignored. The
// palette maps extra characters to the digits 0 through 3.
func parseArt(rows []string, palette map[rune]rune) ([]tile, error) {
	var pixels [][]byte
	for _, r := range rows {
		r = strings.ReplaceAll(strings.TrimSpace(r), " ", "")
		if r == "" {
			continue
		}
		row := make([]byte, 0, len(r))
		for _, c := range r {
			if p, ok := palette[c]; ok {
				c = p
			}
			switch c {
			case '.', '0':
				row = append(row, 0)
			case '1', '2', '3':
				row = append(row, byte(c-'0'))
			default:
				return nil, fmt.Errorf("%w '%c'", errTileChar, c)
			}
		}
		pixels = append(pixels, row)
	}

	if len(pixels)%8 != 0 {
		return nil, errTileSize
	}
	var tiles []tile
	for y := 0; y < len(pixels); y += 8 {
		width := len(pixels[y])
		if width%8 != 0 {
			return nil, errTileSize
		}
		for x := 0; x < width; x += 8 {
			var t tile
			for row := 0; row < 8; row++ {
				if len(pixels[y+row]) != width {
					return nil, errTileSize
				}
				copy(t[row*8:], pixels[y+row][x:x+8])
			}
			tiles = append(tiles, t)
		}
	}
	return tiles, nil
}

// parsePalette reads a header line of the form "{ R=1 G=2 B=3".
func parsePalette(header string) (map[rune]rune, error) {
	header = strings.TrimSpace(header)
	if header != "" {
		header = header[1:]
	}
	palette := make(map[rune]rune)
	for _, f := range strings.Fields(header) {
		k, v, ok := strings.Cut(f, "=")
		if !ok || len(k) != 1 || len(v) != 1 {
			return nil, fmt.Errorf("%w: %s", errPalette, f)
		}
		palette[rune(k[0])] = rune(v[0])
	}
	return palette, nil
}

// gbArt parses a gbtile block: a palette header followed by pixel rows.
func gbArt(block []string) ([]tile, error) {
	if len(block) == 0 {
		return nil, errTileSize
	}
	palette, err := parsePalette(block[0])
	if err != nil {
		return nil, err
	}
	return parseArt(block[1:], palette)
}

// gbTiles emits every tile in Game Boy format. Tile data is generated
// during the first pass only.
func gbTiles(ctx asm.ToolContext, line *asm.Line, pass int, block []string) error {
	if pass > 0 {
		return nil
	}
	tiles, err := gbArt(block)
	if err != nil {
		return err
	}
	for i := range tiles {
		line.Data = append(line.Data, tiles[i].gameBoy()...)
	}
	return nil
}

const tileMapKey = "gbtile.map"

// gbUniqueAndMap emits each distinct tile once and remembers the index of
// every tile for a later gbtile map directive.
func gbUniqueAndMap(ctx asm.ToolContext, line *asm.Line, pass int, block []string) error {
	if pass > 0 {
		return nil
	}
	tiles, err := gbArt(block)
	if err != nil {
		return err
	}

	index := make(map[tile]byte)
	var tileMap []byte
	for _, t := range tiles {
		i, ok := index[t]
		if !ok {
			if len(index) == 256 {
				return fmt.Errorf("more than 256 unique tiles")
			}
			i = byte(len(index))
			index[t] = i
			line.Data = append(line.Data, t.gameBoy()...)
		}
		tileMap = append(tileMap, i)
	}
	ctx.SetValue(tileMapKey, tileMap)
	return nil
}

// gbMap emits the tile map produced by the most recent unique_and_map.
func gbMap(ctx asm.ToolContext, line *asm.Line, pass int, block []string) error {
	if pass > 0 {
		return nil
	}
	m, ok := ctx.Value(tileMapKey).([]byte)
	if !ok {
		return errNoTileMap
	}
	line.Data = append(line.Data, m...)
	return nil
}

// nesTile emits a single NES pattern table tile. The first pass reserves
// its 16 bytes.
func nesTile(ctx asm.ToolContext, line *asm.Line, pass int, block []string) error {
	if pass == 0 {
		line.Data = make([]byte, 16)
		return nil
	}
	if len(block) > 0 && strings.TrimSpace(block[0]) == "{" {
		block = block[1:]
	}
	tiles, err := parseArt(block, nil)
	if err != nil {
		return err
	}
	if len(tiles) != 1 {
		return errTileSize
	}
	line.Data = tiles[0].nes()
	return nil
}
