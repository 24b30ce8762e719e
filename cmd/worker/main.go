package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/modgraph/internal/analysis"
	"github.com/efebarandurmaz/modgraph/internal/config"
	"github.com/efebarandurmaz/modgraph/internal/extract"
	graphneo4j "github.com/efebarandurmaz/modgraph/internal/graph/neo4j"
	"github.com/efebarandurmaz/modgraph/internal/observability"
	temporalmod "github.com/efebarandurmaz/modgraph/internal/temporal"
	"github.com/efebarandurmaz/modgraph/internal/vector/qdrant"
)

func main() {
	var (
		configPath  string
		metricsAddr string
		withVectors bool
	)
	cmd := &cobra.Command{
		Use:          "modgraph-worker",
		Short:        "Temporal worker running modgraph analysis workflows",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, metricsAddr, withVectors)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Config file path")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Address for the Prometheus /metrics endpoint (empty disables it)")
	cmd.Flags().BoolVar(&withVectors, "vectors", false, "Connect to Qdrant so workflows can index coupling profiles")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath, metricsAddr string, withVectors bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName + "-worker",
		ServiceVersion: "0.1.0",
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(sctx)
	}()

	opts := analysis.OptionsFromConfig(cfg.Analysis)
	opts.Logger = logger
	deps := &temporalmod.Dependencies{
		Registry: extract.Default(),
		Analysis: opts,
	}

	if cfg.Graph.URI != "" {
		repo, err := graphneo4j.NewNeo4j(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password)
		if err != nil {
			return err
		}
		defer repo.Close(context.Background())
		deps.Graph = repo
		logger.Info("graph repository connected", "uri", cfg.Graph.URI)
	}
	if withVectors {
		repo, err := qdrant.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection)
		if err != nil {
			return err
		}
		defer repo.Close()
		deps.Vectors = repo
		logger.Info("vector repository connected", "host", cfg.Vector.Host, "collection", cfg.Vector.Collection)
	}
	temporalmod.SetDependencies(deps)

	c, err := temporalmod.Dial(cfg.Temporal, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		return err
	}
	defer w.Stop()
	logger.Info("worker started", "task_queue", cfg.Temporal.TaskQueue, "namespace", cfg.Temporal.Namespace)

	var srv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Metrics().Handler())
		srv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "error", err)
			}
		}()
		logger.Info("metrics endpoint listening", "addr", metricsAddr)
	}

	<-ctx.Done()
	logger.Info("worker stopping")
	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}
	return nil
}
