// Package observers provides ready-made requesthook observers for
// structured logging, Prometheus metrics, and OpenTelemetry tracing.
package observers

import (
	"go.uber.org/zap"

	"github.com/vyrodovalexey/requesthook"
)

// Logging is an observer that logs request starts and ends through zap.
type Logging struct {
	logger *zap.Logger
}

// NewLogging creates a logging observer. A nil logger is replaced with a
// nop logger.
func NewLogging(logger *zap.Logger) *Logging {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logging{logger: logger}
}

// OnRequestStarted logs the inbound request.
func (o *Logging) OnRequestStarted(data requesthook.RequestStartData) {
	o.logger.Info("request started",
		zap.String("request_id", data.RequestID.String()),
		zap.String("method", data.Method),
		zap.String("uri", data.URI),
		zap.Int("body_size", len(data.Body)),
	)
}

// OnRequestEnded logs the completed request with a level derived from the
// final status code.
func (o *Logging) OnRequestEnded(data requesthook.RequestEndData) {
	fields := []zap.Field{
		zap.String("request_id", data.RequestID.String()),
		zap.String("method", data.Method),
		zap.String("uri", data.URI),
		zap.Int("status", data.Status),
		zap.Duration("elapsed", data.Elapsed),
	}

	switch {
	case data.Status >= 500:
		o.logger.Error("request ended", fields...)
	case data.Status >= 400:
		o.logger.Warn("request ended", fields...)
	default:
		o.logger.Info("request ended", fields...)
	}
}
