// Package auth authenticates Flight requests by bearer token and decides
// which identities may change tables.
package auth

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidAuthHeader is returned when the authorization header is
	// missing or does not use the Bearer scheme.
	ErrInvalidAuthHeader = errors.New("authorization header must use Bearer scheme")

	// ErrTokenIsEmpty is returned when the bearer token is missing.
	ErrTokenIsEmpty = errors.New("authorization token is empty")

	// ErrUnauthenticated is returned when an Authenticator rejects a token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrReadOnly is returned when an identity may not write to a table.
	ErrReadOnly = errors.New("identity is read-only")
)

// Anonymous is the identity of requests served by NoAuth.
const Anonymous = "anonymous"

// Authenticator maps a bearer token to the identity it belongs to.
// It is called concurrently by every request.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (identity string, err error)
}

type allowAll struct{}

// NoAuth returns an Authenticator accepting any token as Anonymous.
func NoAuth() Authenticator { return allowAll{} }

func (allowAll) Authenticate(context.Context, string) (string, error) {
	return Anonymous, nil
}

type identityKey struct{}

// WithIdentity returns ctx carrying the authenticated identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity stored by WithIdentity, or ""
// for unauthenticated requests.
func IdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(identityKey{}).(string)
	return identity
}

// ValidateToken authenticates token and returns ctx carrying its identity.
// A rejected token is reported as ErrUnauthenticated.
func ValidateToken(ctx context.Context, token string, authenticator Authenticator) (context.Context, error) {
	if token == "" {
		return ctx, ErrTokenIsEmpty
	}
	identity, err := authenticator.Authenticate(ctx, token)
	if err != nil {
		return ctx, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return WithIdentity(ctx, identity), nil
}
