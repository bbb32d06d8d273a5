package session

import "context"

type contextKey struct{}

// WithContext returns a copy of ctx carrying the given session context
func WithContext(ctx context.Context, ses *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ses)
}

// FromContext extracts the session context injected by the guard
func FromContext(ctx context.Context) (*Context, bool) {
	ses, ok := ctx.Value(contextKey{}).(*Context)
	return ses, ok && ses != nil
}
