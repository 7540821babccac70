package auth

import (
	"context"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// WriteAuthorizer is an optional interface of an Authenticator restricting
// which identities may change a table. Writes cover DoPut, DoExchange
// inserts and the drop action. Authenticators that do not implement it let
// every authenticated identity write.
type WriteAuthorizer interface {
	AuthorizeWrite(ctx context.Context, identity, table string) error
}

type readOnly struct {
	Authenticator
	identities map[string]struct{}
}

// ReadOnly wraps an Authenticator so that the listed identities can read
// every table but write none. Other identities are passed on to the
// wrapped Authenticator's WriteAuthorizer, if any.
func ReadOnly(a Authenticator, identities ...string) Authenticator {
	set := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		set[id] = struct{}{}
	}
	return &readOnly{Authenticator: a, identities: set}
}

func (r *readOnly) AuthorizeWrite(ctx context.Context, identity, table string) error {
	if _, ok := r.identities[identity]; ok {
		return fmt.Errorf("%w: %q may not write to %s", ErrReadOnly, identity, table)
	}
	if wa, ok := r.Authenticator.(WriteAuthorizer); ok {
		return wa.AuthorizeWrite(ctx, identity, table)
	}
	return nil
}

// AuthorizeWrite checks that the identity of ctx may write to table.
// A refusal is a PermissionDenied status error. A nil Authenticator allows
// every write.
func AuthorizeWrite(ctx context.Context, a Authenticator, table string) error {
	wa, ok := a.(WriteAuthorizer)
	if !ok {
		return nil
	}
	if err := wa.AuthorizeWrite(ctx, IdentityFromContext(ctx), table); err != nil {
		return status.Error(codes.PermissionDenied, err.Error())
	}
	return nil
}
