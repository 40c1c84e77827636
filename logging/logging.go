// Package logging builds the zap logger used for wrapkit diagnostics.
// Human-facing progress lines are printed by the CLI itself; the logger
// carries warnings and debug detail.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger flavour.
type Options struct {
	// Verbose enables debug output.
	Verbose bool
	// JSON switches to structured JSON lines for machine consumption.
	JSON bool
	// Output defaults to stderr.
	Output io.Writer
}

// Level returns the minimum level for opts: debug when verbose, info for
// JSON output, warn otherwise.
func (o Options) Level() zapcore.Level {
	switch {
	case o.Verbose:
		return zap.DebugLevel
	case o.JSON:
		return zap.InfoLevel
	default:
		return zap.WarnLevel
	}
}

// New returns a logger for opts.
func New(opts Options) *zap.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var enc zapcore.Encoder
	if opts.JSON {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		enc = zapcore.NewConsoleEncoder(consoleEncoderConfig())
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), opts.Level())
	return zap.New(core)
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalColorLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}
}
