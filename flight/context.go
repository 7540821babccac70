package flight

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/hugr-lab/airport-solr/auth"
	"github.com/hugr-lab/airport-solr/catalog"
)

// Metadata headers sent by the Airport extension.
const (
	HeaderTraceID   = "airport-trace-id"
	HeaderSessionID = "airport-client-session-id"

	// TransactionIDHeader names the transaction a write belongs to.
	TransactionIDHeader = "airport-transaction-id"
)

// requestMeta describes the client behind a request.
type requestMeta struct {
	traceID   string
	sessionID string
	txID      string
	identity  string
}

type requestMetaKey struct{}

func firstValue(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

// withRequestMeta reads the Airport headers of the incoming metadata once
// per request. The transaction id is also stored with
// catalog.WithTransactionID so handles and actions can enlist.
func withRequestMeta(ctx context.Context) context.Context {
	if _, ok := ctx.Value(requestMetaKey{}).(*requestMeta); ok {
		return ctx
	}
	md, _ := metadata.FromIncomingContext(ctx)
	meta := &requestMeta{
		traceID:   firstValue(md, HeaderTraceID),
		sessionID: firstValue(md, HeaderSessionID),
		txID:      firstValue(md, TransactionIDHeader),
		identity:  auth.IdentityFromContext(ctx),
	}
	if _, ok := catalog.TransactionIDFromContext(ctx); !ok && meta.txID != "" {
		ctx = catalog.WithTransactionID(ctx, meta.txID)
	}
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// logAttrs returns the request attributes logged with every message.
func logAttrs(ctx context.Context) []any {
	meta, ok := ctx.Value(requestMetaKey{}).(*requestMeta)
	if !ok {
		return nil
	}
	var attrs []any
	for _, kv := range [...][2]string{
		{"trace_id", meta.traceID},
		{"session_id", meta.sessionID},
		{"tx_id", meta.txID},
		{"identity", meta.identity},
	} {
		if kv[1] != "" {
			attrs = append(attrs, kv[0], kv[1])
		}
	}
	return attrs
}
