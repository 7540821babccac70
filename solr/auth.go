package solr

import (
	"errors"
	"net/http"
)

// Authenticator applies credentials to every outgoing request.
type Authenticator interface {
	Apply(req *http.Request) error
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(req *http.Request) error

func (f AuthenticatorFunc) Apply(req *http.Request) error { return f(req) }

// BasicAuth authenticates with HTTP basic credentials.
func BasicAuth(username, password string) Authenticator {
	return AuthenticatorFunc(func(req *http.Request) error {
		if username == "" {
			return errors.New("basic auth: empty username")
		}
		req.SetBasicAuth(username, password)
		return nil
	})
}

// BearerToken authenticates with a static bearer token.
func BearerToken(token string) Authenticator {
	return AuthenticatorFunc(func(req *http.Request) error {
		if token == "" {
			return errors.New("bearer auth: empty token")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	})
}

// NoAuth leaves requests untouched.
func NoAuth() Authenticator {
	return AuthenticatorFunc(func(*http.Request) error { return nil })
}
