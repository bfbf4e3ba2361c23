package admission

import "context"

type contextKey struct{ name string }

var userIDKey = contextKey{"user_id"}

// WithUserID stores the authenticated user id in the context. The auth
// middleware calls this so authenticated clients are limited per user rather
// than per source address.
func WithUserID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, id)
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
