package temporal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"go.temporal.io/sdk/temporal"

	"github.com/efebarandurmaz/modgraph/internal/analysis"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
	"github.com/efebarandurmaz/modgraph/internal/extract"
	"github.com/efebarandurmaz/modgraph/internal/graph"
	"github.com/efebarandurmaz/modgraph/internal/scan"
	"github.com/efebarandurmaz/modgraph/internal/vector"
)

const errTypeInvalidInput = "InvalidInput"

// ScanResult is the serializable output of ScanActivity.
type ScanResult struct {
	FilesJSON string
	Files     int
	Skipped   int
}

// AnalyzeResult is the serializable output of AnalyzeActivity.
type AnalyzeResult struct {
	Modules        int
	Edges          int
	Cycles         int
	CriticalCycles int
	Violations     int
	ReportJSON     string
}

// StoreResult is the serializable output of StoreActivity.
type StoreResult struct {
	Stored  bool
	Indexed int
}

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Registry *extract.Registry
	Analysis analysis.Options
	// Graph and Vectors may be nil when the worker runs without storage.
	Graph   graph.Repository
	Vectors vector.Repository
}

var deps = &Dependencies{}

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

func ScanActivity(ctx context.Context, input AnalysisInput) (ScanResult, error) {
	if input.Root == "" {
		return ScanResult{}, invalidInput(errors.New("root is required"))
	}
	var langs []extract.Language
	for _, l := range input.Languages {
		lang, err := extract.ParseLanguage(l)
		if err != nil {
			return ScanResult{}, invalidInput(err)
		}
		langs = append(langs, lang)
	}

	res, err := scan.Walk(ctx, input.Root, scan.Options{
		Languages: langs,
		Exclude:   input.Exclude,
		Registry:  deps.Registry,
		Logger:    deps.Analysis.Logger,
	})
	if err != nil {
		return ScanResult{}, err
	}

	filesJSON, err := json.Marshal(res.Files)
	if err != nil {
		return ScanResult{}, fmt.Errorf("marshal files: %w", err)
	}
	return ScanResult{FilesJSON: string(filesJSON), Files: len(res.Files), Skipped: res.Skipped}, nil
}

func AnalyzeActivity(ctx context.Context, filesJSON string) (AnalyzeResult, error) {
	res, err := runAnalysis(ctx, filesJSON)
	if err != nil {
		return AnalyzeResult{}, err
	}

	report, err := depgraph.ExportJSON(res.Report())
	if err != nil {
		return AnalyzeResult{}, fmt.Errorf("marshal report: %w", err)
	}
	return AnalyzeResult{
		Modules:        res.Graph.Metadata.TotalNodes,
		Edges:          res.Graph.Metadata.TotalEdges,
		Cycles:         len(res.Cycles),
		CriticalCycles: len(res.CriticalCycles()),
		Violations:     len(res.Coupling.Violations),
		ReportJSON:     string(report),
	}, nil
}

// StoreActivity rebuilds the graph from the scanned files and writes it to
// the configured repositories. Building is deterministic, so the stored
// graph matches the one AnalyzeActivity reported on.
func StoreActivity(ctx context.Context, input AnalysisInput, filesJSON string) (StoreResult, error) {
	if input.Store && deps.Graph == nil {
		return StoreResult{}, invalidInput(errors.New("no graph repository configured"))
	}
	if input.Index && deps.Vectors == nil {
		return StoreResult{}, invalidInput(errors.New("no vector repository configured"))
	}

	res, err := runAnalysis(ctx, filesJSON)
	if err != nil {
		return StoreResult{}, err
	}

	project := projectName(input)
	var out StoreResult
	if input.Store {
		if err := deps.Graph.SaveGraph(ctx, project, res.Graph); err != nil {
			return StoreResult{}, err
		}
		out.Stored = true
	}
	if input.Index {
		n, err := vector.NewIndexer(deps.Vectors).Index(ctx, project, res.Graph, res.Cycles)
		if err != nil {
			return out, err
		}
		out.Indexed = n
	}
	return out, nil
}

func runAnalysis(ctx context.Context, filesJSON string) (*analysis.Result, error) {
	var files []depgraph.FileAnalysis
	if err := json.Unmarshal([]byte(filesJSON), &files); err != nil {
		return nil, invalidInput(fmt.Errorf("decode files: %w", err))
	}
	opts := deps.Analysis
	opts.Metrics = nil
	return analysis.Run(ctx, files, opts)
}

func projectName(input AnalysisInput) string {
	if input.Project != "" {
		return input.Project
	}
	return filepath.Base(filepath.Clean(input.Root))
}

func invalidInput(err error) error {
	return temporal.NewNonRetryableApplicationError(err.Error(), errTypeInvalidInput, err)
}
