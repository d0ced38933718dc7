// Package logger builds the zap logger used by the web frontend.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects verbosity, encoding and the fields stamped on every entry
type Config struct {
	Level       string
	Format      string // json or console
	Development bool
	OutputPaths []string
	Service     string
	Version     string
	Environment string
}

// ParseLevel accepts zap level names in any case and falls back to info
func ParseLevel(s string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// New returns a logger for cfg. Production loggers sample repeated entries;
// development loggers print stack traces from warn upwards.
func New(cfg Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}

	zc.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	zc.Encoding = "json"
	if cfg.Format == "console" {
		zc.Encoding = "console"
	}
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder

	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}

	zc.InitialFields = map[string]interface{}{}
	for key, value := range map[string]string{
		"service": cfg.Service,
		"version": cfg.Version,
		"env":     cfg.Environment,
	} {
		if value != "" {
			zc.InitialFields[key] = value
		}
	}

	log, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}
