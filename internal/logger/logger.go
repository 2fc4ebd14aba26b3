package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options задаёт уровень, вывод в консоль и необязательный файл с ротацией.
type Options struct {
	Level   string
	File    string
	Console bool
}

// ParseLevel переводит строку в уровень zap, пустая или неизвестная строка даёт info.
func ParseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// New собирает логгер: консольный вывод в stderr в стиле zap.NewDevelopment
// и JSON в файл через lumberjack, если задан File.
// Без консоли и файла возвращается zap.NewNop.
func New(opts Options) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevelAt(ParseLevel(opts.Level))

	var cores []zapcore.Core
	if opts.Console {
		enc := zap.NewDevelopmentEncoderConfig()
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), lvl))
	}
	if f := strings.TrimSpace(opts.File); f != "" {
		if err := os.MkdirAll(filepath.Dir(f), 0o755); err != nil {
			return nil, fmt.Errorf("log dir: %w", err)
		}
		w := &lumberjack.Logger{Filename: f, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), lvl))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
