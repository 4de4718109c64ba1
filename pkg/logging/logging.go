// Package logging provides a standardized zap setup shared by the buffer
// pool and lock manager, following the same Config-driven construction
// this corpus uses for its database services.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the construction-time logging options.
type Config struct {
	// Level is the minimum level logged ("debug", "info", "warn", "error").
	Level string
	// Format is "json" or "console".
	Format string
	// OutputFile is a path, or "stdout"/"stderr". Empty defaults to stdout.
	OutputFile string
}

// New builds a *zap.Logger from Config, tagged with a "component" field.
func New(component string, cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	writer, err := writeSyncer(cfg.OutputFile)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, writer, level)
	return zap.New(core).With(zap.String("component", component)), nil
}

func writeSyncer(outputFile string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(outputFile) {
	case "", "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	default:
		f, err := os.OpenFile(outputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("logging: open %s: %w", outputFile, err)
		}
		return zapcore.AddSync(f), nil
	}
}

// Nop returns a logger that discards everything, used as the zero-value
// default for components that accept a *zap.Logger but were not given one.
func Nop() *zap.Logger {
	return zap.NewNop()
}
