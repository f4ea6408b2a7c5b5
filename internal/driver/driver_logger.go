package driver

import "duskboy-core/internal/debug"

// DriverLoggerAdapter bridges the driver's LoggerInterface to the shared
// debug.Logger.
type DriverLoggerAdapter struct {
	logger *debug.Logger
}

// NewDriverLoggerAdapter creates an adapter that forwards every driver
// trace line to logger at debug.LogLevelDebug.
func NewDriverLoggerAdapter(logger *debug.Logger) *DriverLoggerAdapter {
	return &DriverLoggerAdapter{logger: logger}
}

// LogDriver implements driver.LoggerInterface.
func (a *DriverLoggerAdapter) LogDriver(message string) {
	if a.logger == nil {
		return
	}
	a.logger.LogDriver(debug.LogLevelDebug, message, nil)
}
