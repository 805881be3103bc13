package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log = zap.NewNop()

func Init(debug bool) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true

	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.DisableCaller = false
	} else {
		cfg.DisableCaller = true
	}

	l, err := cfg.Build()
	if err != nil {
		return
	}

	Log = l
}

// InitLevel is like Init but takes a textual level ("debug", "warn", ...).
func InitLevel(level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return err
	}

	Init(lvl == zapcore.DebugLevel)
	if lvl != zapcore.DebugLevel && lvl != zapcore.InfoLevel {
		Log = Log.WithOptions(zap.IncreaseLevel(lvl))
	}

	return nil
}

func Sync() {
	_ = Log.Sync()
}
