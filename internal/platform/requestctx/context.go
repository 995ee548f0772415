// Package requestctx carries request-scoped values (logger, trace metadata) through context.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type scopeKey struct{}

// scope is stored once per derivation; With* copies it so parents stay untouched.
type scope struct {
	logger   *zap.Logger
	trace    TraceInfo
	hasTrace bool
}

// TraceInfo is the trace metadata attached to a request.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

func current(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	if s, ok := ctx.Value(scopeKey{}).(scope); ok {
		return s
	}
	return scope{}
}

func with(ctx context.Context, update func(*scope)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	s := current(ctx)
	update(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithLogger stores logger on ctx. A nil logger clears it.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return with(ctx, func(s *scope) { s.logger = logger })
}

// Logger returns the logger stored on ctx or a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if logger := current(ctx).logger; logger != nil {
		return logger
	}
	return zap.NewNop()
}

// HasLogger reports whether a logger was stored on ctx.
func HasLogger(ctx context.Context) bool {
	return current(ctx).logger != nil
}

// WithTrace stores trace metadata on ctx.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	return with(ctx, func(s *scope) {
		s.trace = info
		s.hasTrace = true
	})
}

// Trace returns the trace metadata stored on ctx.
func Trace(ctx context.Context) (TraceInfo, bool) {
	s := current(ctx)
	return s.trace, s.hasTrace
}

// TraceID returns the trace identifier stored on ctx, if any.
func TraceID(ctx context.Context) string {
	return current(ctx).trace.TraceID
}
