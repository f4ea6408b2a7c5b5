// Package rom loads a flat ROM binary from disk into the emulator's
// memory space. This is the one leaf component the core treats purely as
// an external collaborator: everything past "read the bytes" belongs to
// memory.Memory.LoadROM.
package rom

import (
	"fmt"
	"os"

	"duskboy-core/internal/memory"
)

// LoadFile reads path and copies its contents into mem starting at address
// 0, rejecting anything larger than memory.MaxROMSize. Shorter files are
// zero-padded by Memory.LoadROM itself.
func LoadFile(path string, mem *memory.Memory) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading ROM file %q: %w", path, err)
	}
	if err := mem.LoadROM(data); err != nil {
		return fmt.Errorf("loading ROM %q: %w", path, err)
	}
	return nil
}
