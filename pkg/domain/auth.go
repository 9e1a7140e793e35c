package domain

import "context"

// Authenticator resolves the user id of the caller. The second result is
// false when no principal is attached.
type Authenticator interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

type principalKey struct{}

// WithPrincipal attaches an authenticated user id to the context.
func WithPrincipal(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, principalKey{}, userID)
}

// PrincipalFromContext extracts the user id attached by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(principalKey{}).(string)
	return id, ok && id != ""
}

// ContextAuthenticator reads the principal from the request context. It is
// the server-side Authenticator; tests and the memory store use
// StaticAuthenticator or the store's login simulation instead.
type ContextAuthenticator struct{}

func (ContextAuthenticator) CurrentUserID(ctx context.Context) (string, bool) {
	return PrincipalFromContext(ctx)
}

// StaticAuthenticator always reports the configured user id, or nobody when
// the id is empty.
type StaticAuthenticator struct {
	UserID string
}

func (a StaticAuthenticator) CurrentUserID(context.Context) (string, bool) {
	return a.UserID, a.UserID != ""
}

var (
	_ Authenticator = ContextAuthenticator{}
	_ Authenticator = StaticAuthenticator{}
)
