package ppu

import "duskboy-core/internal/debug"

// PPULoggerAdapter bridges the PPU's LoggerInterface to the shared
// debug.Logger.
type PPULoggerAdapter struct {
	logger *debug.Logger
}

// NewPPULoggerAdapter creates an adapter that forwards every PPU trace line
// to logger at debug.LogLevelDebug.
func NewPPULoggerAdapter(logger *debug.Logger) *PPULoggerAdapter {
	return &PPULoggerAdapter{logger: logger}
}

// LogPPU implements ppu.LoggerInterface.
func (a *PPULoggerAdapter) LogPPU(message string) {
	if a.logger == nil {
		return
	}
	a.logger.LogPPU(debug.LogLevelDebug, message, nil)
}
