package middleware

import "context"

type contextKeyType string

const userIDKey contextKeyType = "user_id"

// WithUserID stores the authenticated user's ID in the request context so
// RequestLogger can enrich log entries with it. Called by whatever auth or
// session middleware resolves the caller's identity.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}
