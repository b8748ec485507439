// Package ctxkeys 定义跨包传递的 context 键。
package ctxkeys

import (
	"context"

	"go.uber.org/zap"
)

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	runIDKey   contextKey = "run_id"
	itemIDKey  contextKey = "item_id"
)

// WithTraceID 设置 TraceID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID 获取 TraceID
func TraceID(ctx context.Context) (string, bool) {
	return get(ctx, traceIDKey)
}

// WithRunID 设置批量运行 ID
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID 获取批量运行 ID
func RunID(ctx context.Context) (string, bool) {
	return get(ctx, runIDKey)
}

// WithItemID 设置当前样本 ID
func WithItemID(ctx context.Context, itemID string) context.Context {
	return context.WithValue(ctx, itemIDKey, itemID)
}

// ItemID 获取当前样本 ID
func ItemID(ctx context.Context) (string, bool) {
	return get(ctx, itemIDKey)
}

// Fields 返回 context 中已设置的 ID，用作日志字段
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if v, ok := RunID(ctx); ok {
		fields = append(fields, zap.String("run_id", v))
	}
	if v, ok := ItemID(ctx); ok {
		fields = append(fields, zap.String("item_id", v))
	}
	if v, ok := TraceID(ctx); ok {
		fields = append(fields, zap.String("trace_id", v))
	}
	return fields
}

func get(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
