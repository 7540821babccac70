package flight

import (
	"context"
	"slices"
	"testing"

	"google.golang.org/grpc/metadata"

	"github.com/hugr-lab/airport-solr/auth"
	"github.com/hugr-lab/airport-solr/catalog"
)

func TestWithRequestMeta(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		wantTx    string
		wantAttrs []any
	}{
		{
			name:      "no metadata",
			ctx:       context.Background(),
			wantAttrs: nil,
		},
		{
			name: "all headers",
			ctx: auth.WithIdentity(metadata.NewIncomingContext(context.Background(), metadata.Pairs(
				HeaderTraceID, "trace-1",
				HeaderSessionID, "session-1",
				TransactionIDHeader, "tx-1",
			)), "etl"),
			wantTx: "tx-1",
			wantAttrs: []any{
				"trace_id", "trace-1",
				"session_id", "session-1",
				"tx_id", "tx-1",
				"identity", "etl",
			},
		},
		{
			name: "stored transaction wins",
			ctx: catalog.WithTransactionID(metadata.NewIncomingContext(context.Background(),
				metadata.Pairs(TransactionIDHeader, "tx-2")), "tx-0"),
			wantTx:    "tx-0",
			wantAttrs: []any{"tx_id", "tx-2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := withRequestMeta(tt.ctx)
			txID, _ := catalog.TransactionIDFromContext(ctx)
			if txID != tt.wantTx {
				t.Errorf("expected transaction '%s', got '%s'", tt.wantTx, txID)
			}
			if attrs := logAttrs(ctx); !slices.Equal(attrs, tt.wantAttrs) {
				t.Errorf("expected attrs %v, got %v", tt.wantAttrs, attrs)
			}
			if again := withRequestMeta(ctx); again != ctx {
				t.Error("expected an enriched context to be returned unchanged")
			}
		})
	}
}

func TestLogAttrsWithoutMeta(t *testing.T) {
	if attrs := logAttrs(context.Background()); attrs != nil {
		t.Errorf("expected no attrs, got %v", attrs)
	}
}
