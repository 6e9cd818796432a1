package logging

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger はリクエスト単位のロガーをctxに入れる。
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext はctxのロガーを返す。無ければzap.L()。
func FromContext(ctx context.Context) *zap.Logger {
	return FromContextOr(ctx, zap.L())
}

// FromContextOr はctxにロガーが無ければfallbackを返す。
func FromContextOr(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if ctx == nil {
		return fallback
	}
	if logger, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return fallback
}
