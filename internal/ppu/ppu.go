// Package ppu synthesizes the background, window, and sprite pixmaps from
// VRAM/OAM and the LCD control register, and composes them onto a
// 160×144 viewport. It never mutates memory; the driver decides when to
// invoke composition and which planes need regenerating.
package ppu

import (
	"fmt"

	"duskboy-core/internal/memory"
)

// Screen dimensions.
const (
	ViewportWidth  = 160
	ViewportHeight = 144
	PlaneSize      = 256
	TileSize       = 8
)

// LCDC bit masks, per the control-register layout the driver and PPU both
// key off of.
const (
	LCDCEnable        uint8 = 1 << 7
	LCDCWindowTileMap uint8 = 1 << 6
	LCDCWindowEnable  uint8 = 1 << 5
	LCDCTileDataBase  uint8 = 1 << 4
	LCDCBGTileMap     uint8 = 1 << 3
	LCDCSpriteSize    uint8 = 1 << 2
	LCDCSpriteEnable  uint8 = 1 << 1
	LCDCBGEnable      uint8 = 1 << 0
)

// MemoryInterface is the PPU's read-only view of addressable storage.
type MemoryInterface interface {
	Read8(addr uint16) uint8
}

// LoggerInterface decouples the PPU from any concrete logging backend.
type LoggerInterface interface {
	LogPPU(message string)
}

// Plane is a 256×256 grid of raw (pre-palette) tile pixel values in
// {0,1,2,3}.
type Plane [PlaneSize][PlaneSize]uint8

// Sprite is one decoded OAM entry. X and Y hold its screen position,
// already offset by (-8, -16) from the OAM X/Y bytes.
type Sprite struct {
	X, Y    int
	Pixels  [16][TileSize]uint8 // up to 16 rows for 8×16 sprites
	Height  int
	Palette uint8 // the OBP0/OBP1 byte to shade through
}

// PPU holds the persistent background/window planes, the decoded sprite
// list, and the three redraw flags the driver raises on write detection.
type PPU struct {
	Mem MemoryInterface
	Log LoggerInterface

	Background Plane
	Window     Plane
	Sprites    []Sprite

	Viewport [ViewportHeight][ViewportWidth]uint8

	// Redraw flags, consumed and cleared once per composed frame. Exported
	// so the driver, the one component that observes memory writes, can
	// raise them directly without the PPU knowing anything about write
	// detection.
	RedrawBackground bool
	RedrawWindow     bool
	RedrawSprites    bool

	// BackgroundChanged reports whether the most recent background
	// regeneration altered any pixel, for callers that want to skip a
	// blit when nothing moved.
	BackgroundChanged bool
}

// New creates a PPU reading from mem, optionally logging through log.
func New(mem MemoryInterface, log LoggerInterface) *PPU {
	return &PPU{Mem: mem, Log: log}
}

// trace forwards a formatted message to Log, if one was supplied.
func (p *PPU) trace(format string, args ...interface{}) {
	if p.Log != nil {
		p.Log.LogPPU(fmt.Sprintf(format, args...))
	}
}

// tileDataBase returns the base address and index signedness selected by
// LCDC bit 4.
func tileDataBase(lcdc uint8) (base uint16, signed bool) {
	if lcdc&LCDCTileDataBase != 0 {
		return memory.VRAMUnsignedBase, false
	}
	return 0x9000, true
}

// tileAddress resolves a tile index (as stored in a tile map byte) to the
// address of its first byte, honoring the base's signedness.
func tileAddress(base uint16, signed bool, index uint8) uint16 {
	if !signed {
		return base + uint16(index)*16
	}
	signedIndex := int16(int8(index))
	return uint16(int32(base) + int32(signedIndex)*16)
}

// decodeTileRows decodes rows rows of an 8-pixel-wide tile starting at
// addr, each row's pixel j (0 = leftmost) taking the value
// 2*bit_j(byte1) + bit_j(byte0) with bit_j selecting weight 2^(7-j).
func decodeTileRows(mem MemoryInterface, addr uint16, rows int) [16][TileSize]uint8 {
	var out [16][TileSize]uint8
	for i := 0; i < rows; i++ {
		b0 := mem.Read8(addr + uint16(2*i))
		b1 := mem.Read8(addr + uint16(2*i) + 1)
		for j := 0; j < TileSize; j++ {
			shift := uint(7 - j)
			bit0 := (b0 >> shift) & 1
			bit1 := (b1 >> shift) & 1
			out[i][j] = 2*bit1 + bit0
		}
	}
	return out
}

// paletteShade looks up the 2-bit shade assigned to colorIndex within a
// packed palette register (BGP/OBP0/OBP1): the low two bits map color 0,
// the next two map color 1, and so on.
func paletteShade(reg uint8, colorIndex uint8) uint8 {
	return (reg >> (colorIndex * 2)) & 0x3
}

// regenerateBackground rebuilds the background plane from the currently
// selected tile map and tile data base, tracking whether any pixel
// differs from the previous contents.
func (p *PPU) regenerateBackground(lcdc uint8) {
	tilemap := uint16(memory.TileMap1)
	if lcdc&LCDCBGTileMap != 0 {
		tilemap = memory.TileMap2
	}
	base, signed := tileDataBase(lcdc)

	p.BackgroundChanged = false
	for r := 0; r < 32; r++ {
		for c := 0; c < 32; c++ {
			index := p.Mem.Read8(tilemap + uint16(32*r+c))
			addr := tileAddress(base, signed, index)
			rows := decodeTileRows(p.Mem, addr, TileSize)
			for y := 0; y < TileSize; y++ {
				for x := 0; x < TileSize; x++ {
					py, px := 8*r+y, 8*c+x
					if p.Background[py][px] != rows[y][x] {
						p.BackgroundChanged = true
					}
					p.Background[py][px] = rows[y][x]
				}
			}
		}
	}
	p.trace("background regenerated, changed=%v", p.BackgroundChanged)
}

// regenerateWindow rebuilds the window plane from the currently selected
// window tile map and tile data base.
func (p *PPU) regenerateWindow(lcdc uint8) {
	tilemap := uint16(memory.TileMap1)
	if lcdc&LCDCWindowTileMap != 0 {
		tilemap = memory.TileMap2
	}
	base, signed := tileDataBase(lcdc)

	for r := 0; r < 32; r++ {
		for c := 0; c < 32; c++ {
			index := p.Mem.Read8(tilemap + uint16(32*r+c))
			addr := tileAddress(base, signed, index)
			rows := decodeTileRows(p.Mem, addr, TileSize)
			for y := 0; y < TileSize; y++ {
				for x := 0; x < TileSize; x++ {
					p.Window[8*r+y][8*c+x] = rows[y][x]
				}
			}
		}
	}
	p.trace("window regenerated")
}

// regenerateSprites re-reads all 40 OAM entries and decodes each one's
// tile pixels, honoring LCDC bit 2 for 8×16 mode.
func (p *PPU) regenerateSprites(lcdc uint8) {
	base, signed := tileDataBase(lcdc)
	doubleHeight := lcdc&LCDCSpriteSize != 0
	height := 8
	if doubleHeight {
		height = 16
	}

	sprites := make([]Sprite, 0, 40)
	for i := 0; i < 40; i++ {
		entry := memory.OAMStart + uint16(i*4)
		y := int(p.Mem.Read8(entry))
		x := int(p.Mem.Read8(entry + 1))
		tileID := p.Mem.Read8(entry + 2)
		flags := p.Mem.Read8(entry + 3)

		var rows [16][TileSize]uint8
		if doubleHeight {
			addr0 := tileAddress(base, signed, tileID)
			addr1 := tileAddress(base, signed, tileID+1)
			top := decodeTileRows(p.Mem, addr0, TileSize)
			bottom := decodeTileRows(p.Mem, addr1, TileSize)
			copy(rows[0:8], top[0:8])
			copy(rows[8:16], bottom[0:8])
		} else {
			addr := tileAddress(base, signed, tileID)
			rows = decodeTileRows(p.Mem, addr, TileSize)
		}

		palette := p.Mem.Read8(memory.RegOBP0)
		if flags&(1<<4) != 0 {
			palette = p.Mem.Read8(memory.RegOBP1)
		}

		sprites = append(sprites, Sprite{
			X: x - 8, Y: y - 16,
			Pixels: rows, Height: height,
			Palette: palette,
		})
	}
	p.Sprites = sprites
	p.trace("sprites regenerated, count=%d", len(sprites))
}

// ComposeFrame regenerates whichever planes have a pending redraw flag,
// then extracts the 160×144 viewport. When the LCD is off (LCDC bit 7
// clear) the viewport is blanked and no plane regeneration occurs.
func (p *PPU) ComposeFrame() {
	lcdc := p.Mem.Read8(memory.RegLCDC)
	if lcdc&LCDCEnable == 0 {
		for y := range p.Viewport {
			for x := range p.Viewport[y] {
				p.Viewport[y][x] = 0
			}
		}
		p.trace("LCD off, viewport blanked")
		return
	}

	if p.RedrawBackground {
		p.regenerateBackground(lcdc)
		p.RedrawBackground = false
	}
	if p.RedrawWindow {
		p.regenerateWindow(lcdc)
		p.RedrawWindow = false
	}
	if p.RedrawSprites {
		p.regenerateSprites(lcdc)
		p.RedrawSprites = false
	}

	bgp := p.Mem.Read8(memory.RegBGP)
	scy := int(p.Mem.Read8(memory.RegSCY))
	scx := int(p.Mem.Read8(memory.RegSCX))

	bgEnabled := lcdc&LCDCBGEnable != 0
	for y := 0; y < ViewportHeight; y++ {
		for x := 0; x < ViewportWidth; x++ {
			if !bgEnabled {
				p.Viewport[y][x] = paletteShade(bgp, 0)
				continue
			}
			py := (scy + y) % PlaneSize
			px := (scx + x) % PlaneSize
			p.Viewport[y][x] = paletteShade(bgp, p.Background[py][px])
		}
	}

	if lcdc&LCDCWindowEnable != 0 {
		wy := int(p.Mem.Read8(memory.RegWY))
		wx := int(p.Mem.Read8(memory.RegWX)) - 7
		for y := 0; y < PlaneSize; y++ {
			sy := wy + y
			if sy < 0 || sy >= ViewportHeight {
				continue
			}
			for x := 0; x < PlaneSize; x++ {
				sx := wx + x
				if sx < 0 || sx >= ViewportWidth {
					continue
				}
				p.Viewport[sy][sx] = paletteShade(bgp, p.Window[y][x])
			}
		}
	}

	if lcdc&LCDCSpriteEnable != 0 {
		for _, s := range p.Sprites {
			for row := 0; row < s.Height; row++ {
				sy := s.Y + row
				if sy < 0 || sy >= ViewportHeight {
					continue
				}
				for col := 0; col < TileSize; col++ {
					sx := s.X + col
					if sx < 0 || sx >= ViewportWidth {
						continue
					}
					raw := s.Pixels[row][col]
					if raw == 0 {
						continue // color 0 is transparent for sprites
					}
					p.Viewport[sy][sx] = paletteShade(s.Palette, raw)
				}
			}
		}
	}
}
