package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/modgraph/internal/config"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
	"github.com/efebarandurmaz/modgraph/internal/observability"
	"github.com/efebarandurmaz/modgraph/internal/scan"
)

func file(rel string, targets ...string) depgraph.FileAnalysis {
	fa := depgraph.FileAnalysis{RelativePath: rel}
	for _, t := range targets {
		fa.Dependencies = append(fa.Dependencies, depgraph.DependencyRecord{
			SourceModule: filepath.Dir(rel),
			TargetModule: t,
			Kind:         depgraph.KindImport,
		})
	}
	return fa
}

func TestRun(t *testing.T) {
	files := []depgraph.FileAnalysis{
		file("api/handlers.py", "store", "auth"),
		file("store/db.py", "api"),
		file("auth/tokens.py"),
	}
	res, err := Run(context.Background(), files, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Graph.Metadata.TotalNodes)
	assert.Equal(t, 3, res.Graph.Metadata.TotalEdges)
	require.Len(t, res.Cycles, 1)
	assert.Equal(t, []string{"api", "store", "api"}, res.Cycles[0].Modules)
	assert.Len(t, res.CriticalCycles(), 1)

	require.NotEmpty(t, res.Coupling.Violations)
	assert.Equal(t, depgraph.ViolationCyclicDependency, res.Coupling.Violations[0].Type)
	assert.Equal(t, 3, res.Coupling.Summary.TotalModules)
	assert.False(t, res.GeneratedAt.IsZero())

	require.NotNil(t, res.Metrics)
	assert.Equal(t, 3, res.Metrics.Input.Files)
	assert.Equal(t, 1, res.Metrics.Findings.Cycles)
	assert.Len(t, res.Metrics.Stages, 3)
}

func TestRun_MatchesSequentialAnalysis(t *testing.T) {
	files := []depgraph.FileAnalysis{
		file("a/x.py", "b", "c"),
		file("b/y.py", "c", "a"),
		file("c/z.py", "d"),
		file("d/w.py", "b"),
	}
	res, err := Run(context.Background(), files, Options{})
	require.NoError(t, err)

	g := depgraph.BuildGraph(files, depgraph.BuilderOptions{})
	want := depgraph.NewCouplingAnalyzer(g, depgraph.AnalyzerOptions{}).Analyze()
	assert.Equal(t, want, res.Coupling)
}

func TestRun_Empty(t *testing.T) {
	res, err := Run(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Graph.Metadata.TotalNodes)
	assert.Empty(t, res.Cycles)
	assert.Equal(t, depgraph.CouplingSummary{}, res.Coupling.Summary)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, []depgraph.FileAnalysis{file("a/x.py", "b")}, Options{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default().Analysis
	cfg.CycleDedup = "rotation"
	cfg.HighCouplingThreshold = 3
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, depgraph.DedupRotation, opts.Analyzer.CycleDedup)
	assert.Equal(t, 3, opts.Analyzer.HighCouplingThreshold)
	assert.Equal(t, 5, opts.Builder.CoreModuleCount)
}

func TestResult_Report(t *testing.T) {
	res, err := Run(context.Background(), []depgraph.FileAnalysis{file("a/x.py", "b")}, Options{})
	require.NoError(t, err)
	r := res.Report()
	assert.Same(t, res.Graph, r.Graph)
	assert.Equal(t, res.GeneratedAt, r.GeneratedAt)
}

func TestRunDir(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	write("orders/service.py", "import billing\n")
	write("billing/invoice.py", "import orders\n")

	res, err := RunDir(context.Background(), root, scan.Options{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Metrics.Input.Files)
	require.Len(t, res.Cycles, 1)
	assert.Equal(t, []string{"billing", "orders", "billing"}, res.Cycles[0].Modules)
	assert.Len(t, res.Metrics.Stages, 4)
}

func TestRunDir_MissingRoot(t *testing.T) {
	_, err := RunDir(context.Background(), filepath.Join(t.TempDir(), "nope"), scan.Options{}, Options{})
	assert.Error(t, err)
}

func TestAnalyze_StoredRecords(t *testing.T) {
	files := []depgraph.FileAnalysis{
		file("api/handlers.py", "store"),
		file("store/db.py", "api"),
	}
	direct, err := Run(context.Background(), files, Options{})
	require.NoError(t, err)

	g := GraphFromRecords(direct.Graph.Edges, depgraph.BuilderOptions{})
	res, err := Analyze(context.Background(), g, Options{})
	require.NoError(t, err)

	assert.Equal(t, direct.Cycles, res.Cycles)
	assert.Equal(t, direct.Coupling, res.Coupling)
	assert.Len(t, res.Metrics.Stages, 2)
	assert.False(t, res.Metrics.FinishedAt.IsZero())
}

func TestAnalyze_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Analyze(ctx, GraphFromRecords(nil, depgraph.BuilderOptions{}), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractContent(t *testing.T) {
	files := []depgraph.FileAnalysis{
		{RelativePath: "orders/service.py", Language: "python", Content: "import billing\nfrom db import conn\n"},
		// The declared language wins over the extension.
		{RelativePath: "jobs/run.txt", Language: "python", Content: "import orders\n"},
		{RelativePath: "web/app.js", Content: "import api from './api'\n"},
		file("billing/invoice.py", "orders"),
		{RelativePath: "docs/readme.md", Content: "# docs\n"},
	}
	files[3].Content = "import ignored\n"

	skipped := ExtractContent(nil, files, nil)
	assert.Equal(t, 1, skipped)

	targets := func(fa depgraph.FileAnalysis) []string {
		var out []string
		for _, d := range fa.Dependencies {
			out = append(out, d.TargetModule)
		}
		return out
	}
	assert.Equal(t, []string{"billing", "db"}, targets(files[0]))
	assert.Equal(t, "orders", files[0].Dependencies[0].SourceModule)
	assert.Equal(t, []string{"orders"}, targets(files[1]))
	assert.Len(t, files[2].Dependencies, 1)
	assert.Equal(t, "javascript", files[2].Language)
	assert.Equal(t, []string{"orders"}, targets(files[3]), "existing records are kept")
	assert.Empty(t, files[4].Dependencies)
}

func TestRunDocument(t *testing.T) {
	doc := `{"file_analysis": [
		{"file_info": {"relative_path": "orders/service.py", "language": "python"}, "content": "import billing\nfrom db import conn\n"},
		{"file_info": {"relative_path": "billing/invoice.py", "language": "python"}, "content": "import orders\n"}
	]}`
	res, err := RunDocument(context.Background(), strings.NewReader(doc), Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Graph.Metadata.TotalNodes)
	assert.Equal(t, 3, res.Graph.Metadata.TotalEdges)
	require.Len(t, res.Cycles, 1)
	assert.Equal(t, []string{"billing", "orders", "billing"}, res.Cycles[0].Modules)

	assert.Equal(t, 2, res.Metrics.Input.Files)
	assert.Equal(t, 3, res.Metrics.Input.Records)
	assert.Equal(t, observability.StageExtract, res.Metrics.Stages[0].Name)
	assert.False(t, res.Metrics.FinishedAt.IsZero())
}

func TestRunDocument_Invalid(t *testing.T) {
	_, err := RunDocument(context.Background(), strings.NewReader("{not json"), Options{})
	assert.ErrorContains(t, err, "decode analyses")
}
