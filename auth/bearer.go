package auth

import (
	"context"
	"crypto/subtle"
	"maps"
)

type bearerFunc func(token string) (string, error)

func (f bearerFunc) Authenticate(_ context.Context, token string) (string, error) {
	return f(token)
}

// BearerAuth creates an Authenticator from a validation function returning
// the identity of a token.
//
// Example:
//
//	auth := BearerAuth(func(token string) (string, error) {
//	    user, err := lookupToken(token)
//	    if err != nil {
//	        return "", err
//	    }
//	    return user.Name, nil
//	})
func BearerAuth(validate func(token string) (identity string, err error)) Authenticator {
	return bearerFunc(validate)
}

// StaticTokens returns an Authenticator accepting a fixed set of tokens,
// mapped to the identity each one authenticates as. The map is copied.
func StaticTokens(tokens map[string]string) Authenticator {
	known := maps.Clone(tokens)
	return bearerFunc(func(token string) (string, error) {
		for candidate, identity := range known {
			if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
				return identity, nil
			}
		}
		return "", ErrUnauthenticated
	})
}
