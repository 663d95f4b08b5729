package service

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// viewGuard hands out generation tickets for asynchronous loads. A result
// may only be applied while its ticket is the latest one and the caller's
// context is still live. Callers check under their own state lock so the
// check and the write happen together.
type viewGuard struct {
	name   string
	gen    atomic.Uint64
	logger *slog.Logger
}

func newViewGuard(name string, logger *slog.Logger) *viewGuard {
	return &viewGuard{name: name, logger: logger}
}

// begin starts a load and returns its ticket. Any earlier ticket becomes
// stale.
func (g *viewGuard) begin() uint64 {
	return g.gen.Add(1)
}

// invalidate makes every outstanding ticket stale.
func (g *viewGuard) invalidate() {
	g.gen.Add(1)
}

// current reports whether the result for ticket may be applied. A stale
// result is logged and counted.
func (g *viewGuard) current(ctx context.Context, ticket uint64) bool {
	if err := ctx.Err(); err != nil {
		g.drop(ctx, ticket, "context done")
		return false
	}
	if latest := g.gen.Load(); latest != ticket {
		g.drop(ctx, ticket, "superseded")
		return false
	}
	return true
}

func (g *viewGuard) drop(ctx context.Context, ticket uint64, reason string) {
	staleLoadsDropped.WithLabelValues(g.name).Inc()
	g.logger.DebugContext(ctx, "dropping stale load result",
		slog.String("view", g.name),
		slog.Uint64("ticket", ticket),
		slog.String("reason", reason),
	)
}
