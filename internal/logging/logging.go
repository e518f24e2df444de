// Package logging constructs the process-wide zap logger and the small set
// of child-logger conventions the rest of the gateway uses (one child per
// session, tagged with its session_id).
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	// Development enables human-readable console output and DEBUG level;
	// production mode emits JSON at INFO level.
	Development bool
}

// New builds the base *zap.Logger for the process.
func New(cfg Config) (*zap.Logger, error) {
	if cfg.Development {
		zcfg := zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zcfg.Build()
	}
	return zap.NewProduction()
}

// WithSession returns a child logger tagged with the owning session's id.
// Every session-scoped component (pool, sampler, AI context) derives its
// logger this way so log lines can be correlated back to a session.
func WithSession(base *zap.Logger, sessionID string) *zap.Logger {
	return base.With(zap.String("session_id", sessionID))
}
