// Package log provides context aware logging helpers on top of the root logger.
package log

import (
	"context"

	"go.uber.org/zap"

	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/ctxval"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger"
)

const (
	// RequestIDKey is the context key the HTTP layer stores the request id under.
	RequestIDKey = "x-request-id"
	// UserIDKey is set through ctxval once the caller is authenticated.
	UserIDKey = "user_id"
)

var std = logger.MustNamed("app").Unwrap().Desugar().WithOptions(zap.AddCallerSkip(1)).Sugar()

func with(ctx context.Context, kv []any) []any {
	if ctx == nil {
		return kv
	}
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		kv = append(kv, "request_id", id)
	}
	if uid, ok := ctxval.Get[string, string](ctx, UserIDKey); ok && uid != "" {
		kv = append(kv, "user_id", uid)
	}
	return kv
}

func Debugw(ctx context.Context, msg string, kv ...any) { std.Debugw(msg, with(ctx, kv)...) }
func Infow(ctx context.Context, msg string, kv ...any)  { std.Infow(msg, with(ctx, kv)...) }
func Warnw(ctx context.Context, msg string, kv ...any)  { std.Warnw(msg, with(ctx, kv)...) }
func Errorw(ctx context.Context, msg string, kv ...any) { std.Errorw(msg, with(ctx, kv)...) }

func Infof(ctx context.Context, template string, args ...any) {
	std.With(with(ctx, nil)...).Infof(template, args...)
}

func Warnf(ctx context.Context, template string, args ...any) {
	std.With(with(ctx, nil)...).Warnf(template, args...)
}

func Fatal(args ...any) {
	std.Fatal(args...)
}
