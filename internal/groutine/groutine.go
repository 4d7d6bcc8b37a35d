// Package groutine starts named goroutines. The name shows up as a pprof
// label, which makes the bridge's long-lived tasks (BLE session, keyboard
// passthrough, pad actuator) identifiable in goroutine dumps.
package groutine

import (
	"context"
	"runtime/pprof"
)

type ctxKey string

const nameKey ctxKey = "goroutine_name"

// Go starts a goroutine labelled with name. A nil parent context falls back
// to context.Background().
func Go(parentCtx context.Context, name string, fn func(ctx context.Context)) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	labels := pprof.Labels("goroutine_name", name)

	go pprof.Do(parentCtx, labels, func(ctx context.Context) {
		ctx = context.WithValue(ctx, nameKey, name)
		fn(ctx)
	})
}

// Name retrieves the goroutine name stored by Go, or "" if absent.
func Name(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(nameKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
