package session

import "context"

type holderContextKey struct{}

// WithHolder binds the holder to the context so that template executions in
// the same call tree reuse its session instead of opening a new one.
func WithHolder(ctx context.Context, h *Holder) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if h == nil {
		return ctx
	}
	return context.WithValue(ctx, holderContextKey{}, h)
}

// HolderFromContext returns the holder bound to the context, if any.
func HolderFromContext(ctx context.Context) (*Holder, bool) {
	if ctx == nil {
		return nil, false
	}
	h, ok := ctx.Value(holderContextKey{}).(*Holder)
	return h, ok
}
