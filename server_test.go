package airport

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"google.golang.org/grpc"

	"github.com/hugr-lab/airport-solr/internal/solrtest"
	"github.com/hugr-lab/airport-solr/registry"
	"github.com/hugr-lab/airport-solr/solr"
)

func testRegistry() *registry.Registry {
	return registry.New(func(ctx context.Context, locator, collection string) (solr.Client, error) {
		return solrtest.New(collection), nil
	})
}

func TestNewServerValidation(t *testing.T) {
	cat, err := NewCatalogBuilder().Table("movies", builderConfig("movies")).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	tests := []struct {
		name    string
		config  ServerConfig
		wantErr bool
	}{
		{"valid", ServerConfig{Catalog: cat, Registry: testRegistry()}, false},
		{"missing catalog", ServerConfig{Registry: testRegistry()}, true},
		{"missing registry", ServerConfig{Catalog: cat}, true},
		{"negative message size", ServerConfig{Catalog: cat, Registry: testRegistry(), MaxMessageSize: -1}, true},
		{"negative split size", ServerConfig{Catalog: cat, Registry: testRegistry(), SplitSize: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewServer(grpc.NewServer(), tt.config)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestServerOptions(t *testing.T) {
	tests := []struct {
		name   string
		config ServerConfig
		want   int
	}{
		{"none", ServerConfig{}, 0},
		{"auth", ServerConfig{Auth: NoAuth()}, 2},
		{"message size", ServerConfig{MaxMessageSize: 16 << 20}, 2},
		{"both", ServerConfig{Auth: NoAuth(), MaxMessageSize: 16 << 20}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(ServerOptions(tt.config)); got != tt.want {
				t.Errorf("Expected %d options, got %d", tt.want, got)
			}
		})
	}
}

func TestServerLogger(t *testing.T) {
	custom := slog.New(slog.DiscardHandler)
	level := slog.LevelDebug

	if got := serverLogger(ServerConfig{Logger: custom, LogLevel: &level}); got != custom {
		t.Error("Expected configured logger to win over level")
	}
	leveled := serverLogger(ServerConfig{LogLevel: &level})
	if !leveled.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug level to be enabled")
	}
	if got := serverLogger(ServerConfig{}); got != slog.Default() {
		t.Error("Expected default logger")
	}
}
