// Package memory implements the flat 64 KiB byte-addressable space shared
// by the CPU and PPU.
package memory

import "fmt"

// Region boundaries and memory-mapped register addresses, per the address
// map consumed by the CPU, PPU, and joypad.
const (
	ROMStart = 0x0000
	ROMEnd   = 0x8000 // exclusive

	VRAMUnsignedBase = 0x8000
	VRAMSignedBase   = 0x8800
	VRAMEnd          = 0x9800 // exclusive (tile data region)

	TileMap1   = 0x9800
	TileMap2   = 0x9C00
	TileMapEnd = 0xA000 // exclusive

	OAMStart = 0xFE00
	OAMEnd   = 0xFEA0 // exclusive

	RegJOYP = 0xFF00
	RegLCDC = 0xFF40
	RegSCY  = 0xFF42
	RegSCX  = 0xFF43
	RegLY   = 0xFF44
	RegBGP  = 0xFF47
	RegOBP0 = 0xFF48
	RegOBP1 = 0xFF49
	RegWY   = 0xFF4A
	RegWX   = 0xFF4B
	RegIE   = 0xFFFF

	// MaxROMSize is the largest ROM file this core will accept.
	MaxROMSize = 0x8000
)

// WriteObserver is notified after every byte written through Write8, with
// the address and the new value. The driver uses this to detect writes
// into VRAM/OAM/LCDC without the CPU package knowing anything about redraw
// flags.
type WriteObserver func(addr uint16, value uint8)

// Memory is the flat 64 KiB address space. ROM occupies [0, 0x8000) and is
// filled by LoadROM; Write8 does not protect it, so every address, ROM
// included, is plain read/write storage alongside VRAM, OAM, and the I/O
// register block; this core has no memory-bank controller and no distinct
// MMIO path.
type Memory struct {
	data      [0x10000]uint8
	observers []WriteObserver
}

// New creates a zeroed memory space.
func New() *Memory {
	return &Memory{}
}

// Observe registers a callback invoked after every Write8 and Write16.
func (m *Memory) Observe(fn WriteObserver) {
	m.observers = append(m.observers, fn)
}

// LoadROM copies rom into [0, 0x8000), zero-padding anything shorter than
// 0x8000 bytes. ROMs larger than MaxROMSize are rejected.
func (m *Memory) LoadROM(rom []uint8) error {
	if len(rom) > MaxROMSize {
		return fmt.Errorf("ROM too large: %d bytes (max %d)", len(rom), MaxROMSize)
	}
	for i := 0; i < MaxROMSize; i++ {
		if i < len(rom) {
			m.data[i] = rom[i]
		} else {
			m.data[i] = 0
		}
	}
	return nil
}

// Read8 reads a single byte. Addresses are always taken modulo 0x10000.
func (m *Memory) Read8(addr uint16) uint8 {
	return m.data[addr]
}

// Write8 stores a single byte and notifies any registered observers.
func (m *Memory) Write8(addr uint16, value uint8) {
	m.data[addr] = value
	for _, obs := range m.observers {
		obs(addr, value)
	}
}

// Read16 reads a little-endian 16-bit value.
func (m *Memory) Read16(addr uint16) uint16 {
	low := m.Read8(addr)
	high := m.Read8(addr + 1)
	return uint16(low) | (uint16(high) << 8)
}

// Write16 stores a little-endian 16-bit value: low byte first, then high
// byte, each routed through Write8 (and so through the observers) in order.
func (m *Memory) Write16(addr uint16, value uint16) {
	m.Write8(addr, uint8(value&0xFF))
	m.Write8(addr+1, uint8(value>>8))
}
