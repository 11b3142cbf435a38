// Package logger builds the zap loggers used across BondCortex.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger for interactive use: colored levels on stderr.
func New(debug bool) *zap.Logger {
	return build(debug, zapcore.CapitalColorLevelEncoder, os.Stderr)
}

// NewWithWriters returns a plain console logger writing to every writer.
func NewWithWriters(debug bool, writers ...io.Writer) *zap.Logger {
	return build(debug, zapcore.CapitalLevelEncoder, writers...)
}

func build(debug bool, levelEncoder zapcore.LevelEncoder, writers ...io.Writer) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = levelEncoder

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	if len(writers) == 0 {
		writers = []io.Writer{os.Stdout}
	}
	syncers := make([]zapcore.WriteSyncer, 0, len(writers))
	for _, writer := range writers {
		syncers = append(syncers, zapcore.AddSync(writer))
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(syncers...),
		level,
	)
	return zap.New(core, zap.AddCaller())
}
