// Package rlog provides the runtime's structured logger: a thin wrapper
// around zap.SugaredLogger with the Named convention and key/value
// fields the rest of the tree uses to tag log lines by component
// (device id, bus handle, client id).
package rlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface every component in this module takes
// instead of depending on *zap.Logger directly.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Named(name string) Logger
	Sync() error
}

type sugared struct {
	*zap.SugaredLogger
}

func (s sugared) Named(name string) Logger {
	return sugared{s.SugaredLogger.Named(name)}
}

// NewDevelopment returns a console-encoded, debug-level logger suitable
// for cmd/devmuxd and tests.
func NewDevelopment(name string) Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	l := zap.Must(cfg.Build())
	return sugared{l.Sugar().Named(name)}
}

// NewProduction returns a JSON-encoded, info-level logger.
func NewProduction(name string) Logger {
	l := zap.Must(zap.NewProduction())
	return sugared{l.Sugar().Named(name)}
}

// NewNop returns a logger that discards everything, for tests that don't
// care about log output.
func NewNop() Logger {
	return sugared{zap.NewNop().Sugar()}
}
