package logger

import (
	"context"
	"log/slog"
)

type valueKey string

// WithValue stores a string attribute in ctx. Loggers built with
// ValueExtractor(name) add it to every record logged with that context.
func WithValue(ctx context.Context, name, value string) context.Context {
	return context.WithValue(ctx, valueKey(name), value)
}

// Value returns the attribute stored by WithValue, or "".
func Value(ctx context.Context, name string) string {
	v, _ := ctx.Value(valueKey(name)).(string)
	return v
}

// ValueExtractor returns a ContextExtractor for the attribute stored under name.
func ValueExtractor(name string) ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if v := Value(ctx, name); v != "" {
			return slog.String(name, v), true
		}
		return slog.Attr{}, false
	}
}
