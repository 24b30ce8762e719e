// Package analysis runs the full dependency analysis: graph construction
// followed by the read-only cycle and coupling passes.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/modgraph/internal/config"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
	"github.com/efebarandurmaz/modgraph/internal/extract"
	"github.com/efebarandurmaz/modgraph/internal/metrics"
	"github.com/efebarandurmaz/modgraph/internal/observability"
	"github.com/efebarandurmaz/modgraph/internal/scan"
)

// Options configures a run.
type Options struct {
	Builder  depgraph.BuilderOptions
	Analyzer depgraph.AnalyzerOptions
	// Registry extracts dependencies from file content; extract.Default() when nil.
	Registry *extract.Registry
	Logger   *slog.Logger
	// Metrics receives per-stage timings; a fresh collector is used when nil.
	Metrics *metrics.RunMetrics
}

// OptionsFromConfig maps the analysis section of the configuration.
func OptionsFromConfig(cfg config.AnalysisConfig) Options {
	return Options{
		Builder: depgraph.BuilderOptions{CoreModuleCount: cfg.CoreModuleCount},
		Analyzer: depgraph.AnalyzerOptions{
			HighCouplingThreshold: cfg.HighCouplingThreshold,
			UnstableThreshold:     cfg.UnstableThreshold,
			CycleDedup:            depgraph.CycleDedup(cfg.CycleDedup),
		},
	}
}

// Result is the outcome of one run.
type Result struct {
	Graph       *depgraph.Graph
	Cycles      []depgraph.Cycle
	Coupling    depgraph.CouplingReport
	GeneratedAt time.Time
	Metrics     *metrics.RunMetrics
}

// Report converts the result for export.
func (r *Result) Report() *depgraph.Report {
	return &depgraph.Report{
		Graph:       r.Graph,
		Cycles:      r.Cycles,
		Coupling:    r.Coupling,
		GeneratedAt: r.GeneratedAt,
	}
}

// CriticalCycles returns the cycles graded critical.
func (r *Result) CriticalCycles() []depgraph.Cycle {
	var out []depgraph.Cycle
	for _, c := range r.Cycles {
		if c.Severity == depgraph.SeverityCritical {
			out = append(out, c)
		}
	}
	return out
}

// Run builds the graph from files and analyzes it.
func Run(ctx context.Context, files []depgraph.FileAnalysis, opts Options) (*Result, error) {
	m := opts.Metrics
	owned := m == nil
	if owned {
		m = metrics.New()
		m.CollectInput(files, 0)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	_, span := observability.StartStageSpan(ctx, observability.StageBuild, attribute.Int("files", len(files)))
	g := depgraph.BuildGraph(files, opts.Builder)
	observability.RecordGraphSize(span, g.Metadata.TotalNodes, g.Metadata.TotalEdges)
	span.End()
	m.AddStage(observability.StageBuild, time.Since(start), nil)

	res, err := analyze(ctx, g, opts, m)
	if err != nil {
		return nil, err
	}
	if owned {
		m.Finish()
	}
	return res, nil
}

// Analyze runs the cycle and coupling passes over an already built graph,
// such as one reloaded from a graph repository.
func Analyze(ctx context.Context, g *depgraph.Graph, opts Options) (*Result, error) {
	m := opts.Metrics
	owned := m == nil
	if owned {
		m = metrics.New()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := analyze(ctx, g, opts, m)
	if err != nil {
		return nil, err
	}
	if owned {
		m.Finish()
	}
	return res, nil
}

// analyze runs cycle detection and coupling analysis concurrently. The graph
// is read-only once built.
func analyze(ctx context.Context, g *depgraph.Graph, opts Options, m *metrics.RunMetrics) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m.CollectGraph(g)
	logger.Debug("graph built", "modules", g.Metadata.TotalNodes, "edges", g.Metadata.TotalEdges)

	var (
		cycles   []depgraph.Cycle
		coupling depgraph.CouplingReport
	)
	analyzer := depgraph.NewCouplingAnalyzer(g, opts.Analyzer)

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		start := time.Now()
		_, span := observability.StartStageSpan(egctx, observability.StageCycles)
		defer span.End()

		cycles = depgraph.NewCycleDetector(g, opts.Analyzer.CycleDedup).Detect()
		critical := 0
		for _, c := range cycles {
			if c.Severity == depgraph.SeverityCritical {
				critical++
			}
		}
		observability.RecordCycles(span, len(cycles), critical)
		m.AddStage(observability.StageCycles, time.Since(start), nil)
		return egctx.Err()
	})
	eg.Go(func() error {
		start := time.Now()
		_, span := observability.StartStageSpan(egctx, observability.StageCoupling)
		defer span.End()

		coupling = analyzer.AnalyzeWithCycles(nil)
		observability.RecordCoupling(span, len(coupling.HighCoupling), len(coupling.Violations))
		m.AddStage(observability.StageCoupling, time.Since(start), nil)
		return egctx.Err()
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("analyze graph: %w", err)
	}

	coupling.Violations = append(depgraph.CycleViolations(cycles), coupling.Violations...)
	m.CollectCycles(cycles)
	m.CollectCoupling(coupling)

	logger.Info("analysis complete",
		"modules", g.Metadata.TotalNodes,
		"edges", g.Metadata.TotalEdges,
		"cycles", len(cycles),
		"high_coupling", len(coupling.HighCoupling),
		"violations", len(coupling.Violations),
	)

	return &Result{
		Graph:       g,
		Cycles:      cycles,
		Coupling:    coupling,
		GeneratedAt: time.Now().UTC(),
		Metrics:     m,
	}, nil
}

// GraphFromRecords rebuilds a graph from stored dependency records.
func GraphFromRecords(recs []depgraph.DependencyRecord, opts depgraph.BuilderOptions) *depgraph.Graph {
	b := depgraph.NewGraphBuilder(opts)
	for _, r := range recs {
		b.AddDependency(r)
	}
	return b.Build()
}

// RunDir scans root and analyzes the files found.
func RunDir(ctx context.Context, root string, scanOpts scan.Options, opts Options) (*Result, error) {
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
		opts.Metrics = m
	}
	if scanOpts.Logger == nil {
		scanOpts.Logger = opts.Logger
	}
	if scanOpts.Registry == nil {
		scanOpts.Registry = opts.Registry
	}

	start := time.Now()
	sctx, span := observability.StartStageSpan(ctx, observability.StageScan, attribute.String("root", root))
	scanned, err := scan.Walk(sctx, root, scanOpts)
	if err != nil {
		observability.RecordError(span, err)
		span.End()
		m.AddStage(observability.StageScan, time.Since(start), err)
		observability.Metrics().RecordRun(observability.RunStats{Duration: time.Since(start)}, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("files", len(scanned.Files)), attribute.Int("skipped", scanned.Skipped))
	span.End()
	m.AddStage(observability.StageScan, time.Since(start), nil)
	m.CollectInput(scanned.Files, scanned.Skipped)

	res, err := Run(ctx, scanned.Files, opts)
	if err != nil {
		observability.Metrics().RecordRun(observability.RunStats{Duration: time.Since(start)}, err)
		return nil, err
	}
	m.Finish()
	observability.Metrics().RecordRun(observability.RunStats{
		Duration:   m.Duration,
		Files:      len(scanned.Files),
		Modules:    res.Graph.Metadata.TotalNodes,
		Edges:      res.Graph.Metadata.TotalEdges,
		Cycles:     len(res.Cycles),
		Violations: len(res.Coupling.Violations),
	}, nil)
	return res, nil
}
