// Package obs builds the service's zap logger.
package obs

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig selects the level and encoding. Pretty switches to the
// development console encoder.
type LogConfig struct {
	Level   string
	Pretty  bool
	App     string
	Env     string
	Version string
}

// NewLogger builds a logger tagged with service, env and version. An unknown
// level falls back to info.
func NewLogger(c LogConfig, opts ...zap.Option) (*zap.Logger, error) {
	var cfg zap.Config
	if c.Pretty {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	level := new(zapcore.Level)
	if err := level.Set(c.Level); err != nil {
		*level = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(*level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	opts = append(opts, zap.Fields(
		zap.String("service", c.App),
		zap.String("env", c.Env),
		zap.String("version", c.Version),
	))
	return cfg.Build(opts...)
}
