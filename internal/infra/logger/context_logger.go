package logger

import (
	"context"
	"log/slog"
)

type ContextKey string

const (
	// Request-scoped keys propagated through the pipeline for observability.
	RequestIDKey     ContextKey = "chatqna.request.id"
	PipelineStageKey ContextKey = "chatqna.pipeline.stage"
)

// WithRequestID tags the context with the inbound request identifier.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithPipelineStage tags the context with the stage currently executing.
func WithPipelineStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, PipelineStageKey, stage)
}

// FromContext returns base enriched with whatever request-scoped fields the
// context carries. Safe on a bare context; it just returns base.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	var fields []any
	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		fields = append(fields, string(RequestIDKey), requestID)
	}
	if stage := ctx.Value(PipelineStageKey); stage != nil {
		fields = append(fields, string(PipelineStageKey), stage)
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
