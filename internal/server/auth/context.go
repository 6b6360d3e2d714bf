package auth

import "context"

type contextKey string

// Context keys for authenticated user data
const (
	UserIDKey   contextKey = "user_id"
	UsernameKey contextKey = "username"
)

// UserIDFromContext extracts the authenticated user id from the request context
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// UsernameFromContext extracts the authenticated username from the request context
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}
