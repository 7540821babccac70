package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// HeaderAuthorization is the gRPC metadata header carrying the bearer token.
const HeaderAuthorization = "authorization"

const bearerScheme = "Bearer "

// TokenFromAuthorizationHeader extracts the token of a "Bearer <token>" header.
func TokenFromAuthorizationHeader(header string) (string, error) {
	token, ok := strings.CutPrefix(header, bearerScheme)
	if !ok {
		return "", ErrInvalidAuthHeader
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", ErrTokenIsEmpty
	}
	return token, nil
}

func authenticate(ctx context.Context, a Authenticator) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get(HeaderAuthorization)
	if len(values) == 0 {
		return ctx, status.Error(codes.Unauthenticated, ErrInvalidAuthHeader.Error())
	}
	token, err := TokenFromAuthorizationHeader(values[0])
	if err == nil {
		ctx, err = ValidateToken(ctx, token, a)
	}
	if err != nil {
		return ctx, status.Error(codes.Unauthenticated, err.Error())
	}
	return ctx, nil
}

// UnaryServerInterceptor authenticates unary calls and stores the identity
// in their context. A nil Authenticator lets every call through.
func UnaryServerInterceptor(a Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if a == nil {
			return handler(ctx, req)
		}
		ctx, err := authenticate(ctx, a)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor authenticates streaming calls and stores the
// identity in the stream context. A nil Authenticator lets every call
// through.
func StreamServerInterceptor(a Authenticator) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if a == nil {
			return handler(srv, ss)
		}
		ctx, err := authenticate(ss.Context(), a)
		if err != nil {
			return err
		}
		return handler(srv, &identityStream{ServerStream: ss, ctx: ctx})
	}
}

type identityStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identityStream) Context() context.Context { return s.ctx }
