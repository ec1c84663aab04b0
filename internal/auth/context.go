// ABOUTME: Context plumbing for the resolved caller identity.
// ABOUTME: Carries the local user id through tool and REST request handling.

package auth

import "context"

type contextKey string

const userIDKey contextKey = "auth.userID"

// WithUserID returns a context carrying the resolved local user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFrom extracts the resolved user id from the context, if any.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
