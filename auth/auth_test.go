package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestNoAuth(t *testing.T) {
	identity, err := NoAuth().Authenticate(context.Background(), "")
	if err != nil {
		t.Errorf("NoAuth should never return error, got: %v", err)
	}
	if identity != "anonymous" {
		t.Errorf("expected identity 'anonymous', got '%s'", identity)
	}
}

func TestBearerAuth(t *testing.T) {
	auth := BearerAuth(func(token string) (string, error) {
		if token == "valid-token" {
			return "user123", nil
		}
		return "", errors.New("invalid token")
	})

	identity, err := auth.Authenticate(context.Background(), "valid-token")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if identity != "user123" {
		t.Errorf("expected identity 'user123', got '%s'", identity)
	}
	if _, err := auth.Authenticate(context.Background(), "other"); err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestStaticTokens(t *testing.T) {
	tokens := map[string]string{"t1": "alice", "t2": "bob"}
	auth := StaticTokens(tokens)
	// Later changes to the map are not seen.
	tokens["t3"] = "eve"

	tests := []struct {
		token string
		want  string
		fail  bool
	}{
		{"t1", "alice", false},
		{"t2", "bob", false},
		{"t3", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			identity, err := auth.Authenticate(context.Background(), tt.token)
			if tt.fail {
				if err == nil {
					t.Errorf("expected error, got identity '%s'", identity)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if identity != tt.want {
				t.Errorf("expected '%s', got '%s'", tt.want, identity)
			}
		})
	}
}

func TestTokenFromAuthorizationHeader(t *testing.T) {
	tests := []struct {
		header string
		want   string
		err    error
	}{
		{"Bearer abc", "abc", nil},
		{"Bearer ", "", ErrTokenIsEmpty},
		{"Basic abc", "", ErrInvalidAuthHeader},
		{"", "", ErrInvalidAuthHeader},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			token, err := TokenFromAuthorizationHeader(tt.header)
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected error %v, got %v", tt.err, err)
			}
			if token != tt.want {
				t.Errorf("expected '%s', got '%s'", tt.want, token)
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	auth := StaticTokens(map[string]string{"secret": "svc"})

	ctx, err := ValidateToken(context.Background(), "secret", auth)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if id := IdentityFromContext(ctx); id != "svc" {
		t.Errorf("expected identity 'svc', got '%s'", id)
	}

	if _, err := ValidateToken(context.Background(), "wrong", auth); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := ValidateToken(context.Background(), "", auth); !errors.Is(err, ErrTokenIsEmpty) {
		t.Errorf("expected ErrTokenIsEmpty, got %v", err)
	}
}

func TestUnaryServerInterceptor(t *testing.T) {
	interceptor := UnaryServerInterceptor(StaticTokens(map[string]string{"secret": "svc"}))
	handler := func(ctx context.Context, req any) (any, error) {
		return IdentityFromContext(ctx), nil
	}

	tests := []struct {
		name   string
		header string
		want   string
		code   codes.Code
	}{
		{"valid token", "Bearer secret", "svc", codes.OK},
		{"wrong token", "Bearer nope", "", codes.Unauthenticated},
		{"missing header", "", "", codes.Unauthenticated},
		{"wrong scheme", "Basic secret", "", codes.Unauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.header != "" {
				ctx = metadata.NewIncomingContext(ctx, metadata.Pairs(HeaderAuthorization, tt.header))
			}
			resp, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{}, handler)
			if code := status.Code(err); code != tt.code {
				t.Fatalf("expected code %s, got %s (%v)", tt.code, code, err)
			}
			if err == nil && resp != tt.want {
				t.Errorf("expected identity '%s', got '%v'", tt.want, resp)
			}
		})
	}
}

func TestUnaryServerInterceptorWithoutAuth(t *testing.T) {
	interceptor := UnaryServerInterceptor(nil)
	called := false
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{},
		func(ctx context.Context, req any) (any, error) {
			called = true
			return nil, nil
		})
	if err != nil || !called {
		t.Errorf("expected pass-through, got called=%v err=%v", called, err)
	}
}

type testStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *testStream) Context() context.Context { return s.ctx }

func TestStreamServerInterceptor(t *testing.T) {
	interceptor := StreamServerInterceptor(StaticTokens(map[string]string{"secret": "svc"}))
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(HeaderAuthorization, "Bearer secret"))

	var identity string
	err := interceptor(nil, &testStream{ctx: ctx}, &grpc.StreamServerInfo{},
		func(srv any, ss grpc.ServerStream) error {
			identity = IdentityFromContext(ss.Context())
			return nil
		})
	if err != nil {
		t.Fatalf("interceptor failed: %v", err)
	}
	if identity != "svc" {
		t.Errorf("expected identity 'svc', got '%s'", identity)
	}

	err = interceptor(nil, &testStream{ctx: context.Background()}, &grpc.StreamServerInfo{},
		func(srv any, ss grpc.ServerStream) error { return nil })
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
}

func TestStaticTokensConcurrency(t *testing.T) {
	auth := StaticTokens(map[string]string{"a": "alice"})
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if id, err := auth.Authenticate(context.Background(), "a"); err != nil || id != "alice" {
				t.Errorf("unexpected result %q, %v", id, err)
			}
		}()
	}
	wg.Wait()
}

type tableWriters map[string]string

func (w tableWriters) Authenticate(ctx context.Context, token string) (string, error) {
	return token, nil
}

func (w tableWriters) AuthorizeWrite(ctx context.Context, identity, table string) error {
	if w[table] != identity {
		return errors.New("not the owner")
	}
	return nil
}

func TestReadOnly(t *testing.T) {
	a := ReadOnly(StaticTokens(map[string]string{"r": "reader", "w": "writer"}), "reader")

	if identity, err := a.Authenticate(context.Background(), "r"); err != nil || identity != "reader" {
		t.Fatalf("expected reader to authenticate, got %q, %v", identity, err)
	}

	tests := []struct {
		identity string
		code     codes.Code
	}{
		{"reader", codes.PermissionDenied},
		{"writer", codes.OK},
		{"", codes.OK},
	}
	for _, tt := range tests {
		t.Run(tt.identity, func(t *testing.T) {
			ctx := WithIdentity(context.Background(), tt.identity)
			err := AuthorizeWrite(ctx, a, "books")
			if code := status.Code(err); code != tt.code {
				t.Errorf("expected %s, got %s (%v)", tt.code, code, err)
			}
		})
	}
}

func TestReadOnlyDelegates(t *testing.T) {
	a := ReadOnly(tableWriters{"books": "alice"}, "bob")

	tests := []struct {
		identity string
		table    string
		allowed  bool
	}{
		{"alice", "books", true},
		{"alice", "shelves", false},
		{"bob", "books", false},
	}
	for _, tt := range tests {
		err := AuthorizeWrite(WithIdentity(context.Background(), tt.identity), a, tt.table)
		if (err == nil) != tt.allowed {
			t.Errorf("%s on %s: expected allowed=%v, got %v", tt.identity, tt.table, tt.allowed, err)
		}
	}
}

func TestAuthorizeWriteWithoutAuthorizer(t *testing.T) {
	if err := AuthorizeWrite(context.Background(), nil, "books"); err != nil {
		t.Errorf("expected nil authenticator to allow writes, got %v", err)
	}
	if err := AuthorizeWrite(context.Background(), NoAuth(), "books"); err != nil {
		t.Errorf("expected NoAuth to allow writes, got %v", err)
	}
}
