package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

const defaultZapLevel = zapcore.InfoLevel

func toZapLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return defaultZapLevel
	}
}

// newConsoleCore builds a console-encoded core writing to w.
func newConsoleCore(w io.Writer, level zapcore.Level) zapcore.Core {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	encoder := zapcore.NewConsoleEncoder(cfg)
	return zapcore.NewCore(encoder, zapcore.AddSync(w), zap.NewAtomicLevelAt(level))
}

func newZapLogger(levelStr string) *Logger {
	return New(os.Stdout, levelStr)
}

// New builds a logger writing to w; used directly by tests that inspect output.
func New(w io.Writer, levelStr string) *Logger {
	core := newConsoleCore(zapcore.Lock(zapcore.AddSync(w)), toZapLevel(levelStr))
	return &Logger{
		SugaredLogger: zap.New(core).Sugar(),
	}
}
