// Command airport-solr serves document store collections to DuckDB over
// the Airport extension's Arrow Flight protocol.
//
// Usage:
//
//	airport-solr -config airport-solr.toml [-listen :50051] [-log-level debug]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	airport "github.com/hugr-lab/airport-solr"
	"github.com/hugr-lab/airport-solr/catalog"
	"github.com/hugr-lab/airport-solr/registry"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "airport-solr:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("airport-solr", flag.ContinueOnError)
	configPath := fs.String("config", "airport-solr.toml", "path to the TOML configuration file")
	listen := fs.String("listen", "", "gRPC listen address (overrides config)")
	metricsAddr := fs.String("metrics", "", "metrics listen address (overrides config)")
	logLevel := fs.String("log-level", "", "debug, info, warn or error (overrides config)")
	logFormat := fs.String("log-format", "", "text or json (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *metricsAddr != "" {
		cfg.Metrics = *metricsAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}

	logger, err := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

func serve(ctx context.Context, cfg Config, logger *slog.Logger) error {
	solrCfg, err := cfg.solrConfig(logger)
	if err != nil {
		return err
	}
	reg := registry.New(registry.SolrDialer(solrCfg), registry.WithLogger(logger))

	defs, targets, err := cfg.tableDefs()
	if err != nil {
		return err
	}
	cat, err := catalog.NewStatic(defs...)
	if err != nil {
		return err
	}
	if cfg.Warmup {
		if err := reg.Warmup(ctx, targets); err != nil {
			return fmt.Errorf("warmup: %w", err)
		}
		logger.Info("Connections ready", "collections", reg.Collections())
	}

	serverConfig := airport.ServerConfig{
		Catalog:        cat,
		Registry:       reg,
		Logger:         logger,
		MaxMessageSize: cfg.MaxMessageSize,
		Address:        cfg.Address,
		SchemaName:     cfg.Schema,
		SplitSize:      cfg.SplitSize,
	}
	if cfg.Transactions {
		serverConfig.TransactionManager = catalog.NewTransactionManager(logger)
	}
	serverConfig.Auth = cfg.authenticator()

	grpcServer := grpc.NewServer(airport.ServerOptions(serverConfig)...)
	if err := airport.NewServer(grpcServer, serverConfig); err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	var metricsServer *http.Server
	if cfg.Metrics != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.Metrics,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Serving Flight", "address", lis.Addr().String(), "tables", len(defs))
		return grpcServer.Serve(lis)
	})
	if metricsServer != nil {
		g.Go(func() error {
			logger.Info("Serving metrics", "address", cfg.Metrics)
			if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		grpcServer.GracefulStop()
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		}
		return nil
	})
	return g.Wait()
}
