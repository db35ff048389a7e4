package pardot

import "context"

// AuthStrategy owns one set of credentials and the session token they
// produce. LegacyAuth and OAuthAuth are the two implementations.
type AuthStrategy interface {
	// Login authenticates against the vendor and stores the token.
	// A failed attempt returns false and leaves the token unset.
	Login(ctx context.Context) bool

	// AuthHeader returns the headers that authorize an API call, or
	// ErrNotLoggedIn when no token is held.
	AuthHeader() (map[string]string, error)

	// HasToken reports whether a session token is currently held.
	HasToken() bool

	// Invalidate drops the token but keeps the credentials.
	Invalidate()

	// TokenExpired reports whether err is this scheme's expiry error.
	TokenExpired(err *APIError) bool
}

// Doer executes API requests. *Session is the production implementation.
type Doer interface {
	Do(ctx context.Context, req Request) (*Result, error)
}
