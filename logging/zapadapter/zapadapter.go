// Package zapadapter adapts a go.uber.org/zap logger to the logging.Logger
// interface used across this module.
package zapadapter

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-session-template/logging"
)

// Adapter wraps a zap.Logger. The zero value is not usable; set L.
type Adapter struct{ L *zap.Logger }

// New returns an Adapter around the given zap logger.
func New(l *zap.Logger) Adapter { return Adapter{L: l} }

func (a Adapter) Debug(msg string, f logging.Fields) { a.L.Debug(msg, zf(f)...) }
func (a Adapter) Info(msg string, f logging.Fields) { a.L.Info(msg, zf(f)...) }
func (a Adapter) Warn(msg string, f logging.Fields) { a.L.Warn(msg, zf(f)...) }
func (a Adapter) Error(msg string, f logging.Fields) { a.L.Error(msg, zf(f)...) }

func zf(f logging.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}
