package job

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"maps"
	"slices"
)

// handler runs one task with its raw JSON payload.
type handler func(ctx context.Context, payload json.RawMessage) error

// tasks maps task names to handlers. Options fill it before the client is
// created; it is read-only afterwards.
type tasks map[string]handler

func (t tasks) names() []string {
	return slices.Sorted(maps.Keys(t))
}

// typedHandler decodes the payload into P before calling handle. A payload
// that does not decode is cancelled since no retry can fix it.
func typedHandler[P any](handle func(context.Context, P) error) handler {
	return func(ctx context.Context, raw json.RawMessage) error {
		var p P
		if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
			if err := json.Unmarshal(raw, &p); err != nil {
				return Cancel(errors.Join(ErrInvalidPayload, err))
			}
		}
		return handle(ctx, p)
	}
}

// periodicHandler ignores the payload; periodic jobs never carry one.
func periodicHandler(handle func(context.Context) error) handler {
	return func(ctx context.Context, _ json.RawMessage) error {
		return handle(ctx)
	}
}
