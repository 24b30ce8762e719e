package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/modgraph/internal/analysis"
	"github.com/efebarandurmaz/modgraph/internal/config"
	"github.com/efebarandurmaz/modgraph/internal/observability"
	"github.com/efebarandurmaz/modgraph/internal/scan"
)

// errGatesFailed makes `check` exit non-zero.
var errGatesFailed = errors.New("quality gates failed")

type app struct {
	configPath string
	logLevel   string
	inputPath  string

	cfg    *config.Config
	logger *slog.Logger
	tp     *observability.TracerProvider
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:          "modgraph",
		Short:        "Module dependency graph analysis: cycles, coupling and architecture metrics",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file path (defaults plus MODGRAPH_* env when empty)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level override: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&a.inputPath, "input", "", "Read file analyses from a JSON document instead of scanning")

	rootCmd.AddCommand(
		a.analyzeCmd(),
		a.cyclesCmd(),
		a.exportCmd(),
		a.checkCmd(),
		a.storeCmd(),
		a.dependentsCmd(),
		a.similarCmd(),
		a.submitCmd(),
		a.languagesCmd(),
	)

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.logger = observability.NewLogger(level, cfg.Log.Format, cmd.ErrOrStderr())
	slog.SetDefault(a.logger)

	tp, err := observability.InitTracing(cmd.Context(), &observability.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: "0.1.0",
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	a.tp = tp
	return nil
}

func (a *app) teardown() error {
	if a.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.tp.Shutdown(ctx)
}

func (a *app) analysisOptions() analysis.Options {
	opts := analysis.OptionsFromConfig(a.cfg.Analysis)
	opts.Logger = a.logger
	return opts
}

// run analyzes either the --input document or the directory in args
// (default ".").
func (a *app) run(ctx context.Context, args []string) (*analysis.Result, error) {
	opts := a.analysisOptions()
	if a.inputPath != "" {
		f, err := os.Open(a.inputPath)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		res, err := analysis.RunDocument(ctx, f, opts)
		if err != nil {
			return nil, fmt.Errorf("analyze %s: %w", a.inputPath, err)
		}
		return res, nil
	}

	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	return analysis.RunDir(ctx, root, scan.Options{
		Languages: a.cfg.Analysis.ParsedLanguages(),
		Exclude:   a.cfg.Analysis.Exclude,
		Logger:    a.logger,
	}, opts)
}
