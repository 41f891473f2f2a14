package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/ruminaider/profilepop/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Option for building a logger
type (
	Option struct {
		Level       zapcore.Level
		MultiWriter []io.Writer
	}

	// OptionFunc func
	OptionFunc func(*Option)
)

// OptionAddWriter adds a writer next to the existing ones.
func OptionAddWriter(w io.Writer) OptionFunc {
	return func(o *Option) {
		o.MultiWriter = append(o.MultiWriter, w)
	}
}

// OptionSetWriter overrides all log writers.
func OptionSetWriter(w ...io.Writer) OptionFunc {
	return func(o *Option) {
		o.MultiWriter = w
	}
}

// OptionLevel sets the minimum enabled level.
func OptionLevel(level zapcore.Level) OptionFunc {
	return func(o *Option) {
		o.Level = level
	}
}

// New builds a JSON zap logger writing to stderr unless writers are overridden.
func New(opts ...OptionFunc) *zap.Logger {
	opt := Option{
		Level:       zapcore.InfoLevel,
		MultiWriter: []io.Writer{os.Stderr},
	}
	for _, o := range opts {
		o(&opt)
	}

	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		MessageKey:   "message",
		LevelKey:     "level",
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		TimeKey:      "time",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		CallerKey:    "caller",
		EncodeCaller: zapcore.ShortCallerEncoder,
		NameKey:      "logger",
	})

	cores := make([]zapcore.Core, 0, len(opt.MultiWriter))
	for _, w := range opt.MultiWriter {
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(w), opt.Level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// FromConfig builds the process logger. When cfg.File is set, entries go to a
// rotating file instead of stderr so that stdio-based transports stay clean.
func FromConfig(cfg config.Log) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	opts := []OptionFunc{OptionLevel(level)}
	if cfg.File != "" {
		opts = append(opts, OptionSetWriter(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}))
	}
	return New(opts...), nil
}
