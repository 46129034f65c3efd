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
	"strconv"
	"strings"

	"github.com/beevik/opcodetools/asm"
	"golang.org/x/image/bmp"
)

var (
	errImageArgs   = errors.New("image tool expects: path [gb|nes] [palette]")
	errImageColors = errors.New("image has more than 4 colors")
	errImageFormat = errors.New("unsupported image format")
	errImageColor  = errors.New("image color is not in the palette")
)

// imageTiles converts a PNG or BMP image into 2-bit tiles. The first line
// of the block names the image, optionally followed by the tile layout
// (gb or nes, default gb) and a palette of comma-separated RRGGBB colors
// giving the order of color indices. Without a palette, colors are indexed
// in order of first appearance.
func imageTiles(ctx asm.ToolContext, line *asm.Line, pass int, block []string) error {
	if len(block) == 0 {
		return errImageArgs
	}
	args := strings.Fields(block[0])
	if len(args) == 0 || len(args) > 3 {
		return errImageArgs
	}

	layout := "gb"
	var palette []color.RGBA
	for _, a := range args[1:] {
		switch strings.ToLower(a) {
		case "gb", "nes":
			layout = strings.ToLower(a)
		default:
			p, err := parseColors(a)
			if err != nil {
				return err
			}
			palette = p
		}
	}

	img, err := readImage(relativePath(line, args[0]))
	if err != nil {
		return err
	}
	tiles, err := imageToTiles(img, palette)
	if err != nil {
		return err
	}

	line.Data = line.Data[:0]
	for i := range tiles {
		if layout == "nes" {
			line.Data = append(line.Data, tiles[i].nes()...)
		} else {
			line.Data = append(line.Data, tiles[i].gameBoy()...)
		}
	}
	return nil
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return png.Decode(f)
	case ".bmp":
		return bmp.Decode(f)
	default:
		return nil, fmt.Errorf("%w: %s", errImageFormat, path)
	}
}

func parseColors(s string) ([]color.RGBA, error) {
	var colors []color.RGBA
	for _, c := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimPrefix(c, "#"), 16, 32)
		if err != nil || v > 0xffffff {
			return nil, fmt.Errorf("%w: %s", errPalette, c)
		}
		colors = append(colors, color.RGBA{R: byte(v >> 16), G: byte(v >> 8), B: byte(v), A: 0xff})
	}
	if len(colors) > 4 {
		return nil, errImageColors
	}
	return colors, nil
}

func imageToTiles(img image.Image, palette []color.RGBA) ([]tile, error) {
	b := img.Bounds()
	if b.Dx()%8 != 0 || b.Dy()%8 != 0 {
		return nil, errTileSize
	}

	index := make(map[color.RGBA]byte)
	for i, c := range palette {
		index[c] = byte(i)
	}
	colorIndex := func(x, y int) (byte, error) {
		r, g, bl, _ := img.At(x, y).RGBA()
		c := color.RGBA{R: byte(r >> 8), G: byte(g >> 8), B: byte(bl >> 8), A: 0xff}
		if i, ok := index[c]; ok {
			return i, nil
		}
		if palette != nil {
			return 0, fmt.Errorf("%w: %02X%02X%02X", errImageColor, c.R, c.G, c.B)
		}
		if len(index) == 4 {
			return 0, errImageColors
		}
		i := byte(len(index))
		index[c] = i
		return i, nil
	}

	var tiles []tile
	for ty := b.Min.Y; ty < b.Max.Y; ty += 8 {
		for tx := b.Min.X; tx < b.Max.X; tx += 8 {
			var t tile
			for y := 0; y < 8; y++ {
				for x := 0; x < 8; x++ {
					c, err := colorIndex(tx+x, ty+y)
					if err != nil {
						return nil, err
					}
					t[y*8+x] = c
				}
			}
			tiles = append(tiles, t)
		}
	}
	return tiles, nil
}
