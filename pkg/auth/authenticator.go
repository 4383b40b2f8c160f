package auth

import "strings"

const (
	// AnonymousUser is the identity assigned when no credential resolves to
	// a known user, including when security is disabled.
	AnonymousUser = "unknown"

	// bearerPrefix is the expected Authorization header scheme.
	bearerPrefix = "Bearer "
)

// Authenticator validates bearer credentials of the form "user:key" against
// an immutable credential table.
type Authenticator struct {
	enabled bool
	users   map[string]string
}

// NewAuthenticator creates an authenticator over the given user -> key table.
// When enabled is false every request is authorized as AnonymousUser.
func NewAuthenticator(users map[string]string, enabled bool) *Authenticator {
	if users == nil {
		users = make(map[string]string)
	}
	return &Authenticator{enabled: enabled, users: users}
}

// Enabled reports whether credential checking is active.
func (a *Authenticator) Enabled() bool {
	return a.enabled
}

// Authenticate resolves the Authorization header to a user identity.
//
// On success identity is the matched user name and ok is true. On failure ok
// is false and identity is the best-effort identity for audit purposes: the
// raw bearer token when one was presented, AnonymousUser otherwise. The
// request must still be rejected; the identity is reported, not trusted.
func (a *Authenticator) Authenticate(authHeader string) (identity string, ok bool) {
	if !a.enabled {
		return AnonymousUser, true
	}

	token, found := strings.CutPrefix(authHeader, bearerPrefix)
	if !found || token == "" {
		return AnonymousUser, false
	}

	user, key, found := strings.Cut(token, ":")
	if !found {
		return token, false
	}

	if stored, known := a.users[user]; known && stored == key {
		return user, true
	}
	return token, false
}
