package airport

import (
	"context"

	"github.com/hugr-lab/airport-solr/auth"
)

// Authenticator validates bearer tokens and returns user identity.
// This is re-exported from the auth package for convenience.
type Authenticator = auth.Authenticator

// BearerAuth creates an Authenticator from a validation function.
// This is the simplest way to add authentication to your Flight server.
//
// Example:
//
//	auth := airport.BearerAuth(func(token string) (string, error) {
//	    user, err := validateWithMyBackend(token)
//	    if err != nil {
//	        return "", airport.ErrUnauthorized
//	    }
//	    return user.ID, nil
//	})
//
//	config := airport.ServerConfig{
//	    Catalog:  cat,
//	    Registry: reg,
//	    Auth:     auth,
//	}
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return auth.BearerAuth(validateFunc)
}

// StaticTokens creates an Authenticator from a fixed token -> identity map,
// such as the tokens of the server's configuration file.
func StaticTokens(tokens map[string]string) Authenticator {
	return auth.StaticTokens(tokens)
}

// ReadOnly wraps an Authenticator so that the listed identities may scan
// tables but not write to or drop them.
//
// Example:
//
//	auth := airport.ReadOnly(airport.StaticTokens(tokens), "analyst")
func ReadOnly(a Authenticator, identities ...string) Authenticator {
	return auth.ReadOnly(a, identities...)
}

// NoAuth returns an Authenticator that allows all requests without validation.
// Useful for development and testing. DO NOT use in production.
func NoAuth() Authenticator {
	return auth.NoAuth()
}

// IdentityFromContext retrieves the authenticated user identity from context.
// Returns empty string if no identity is set (unauthenticated request).
// Custom interceptors or catalogs can use it to check who is making the
// request.
func IdentityFromContext(ctx context.Context) string {
	return auth.IdentityFromContext(ctx)
}
