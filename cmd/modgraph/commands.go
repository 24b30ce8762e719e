package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/modgraph/internal/analysis"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
	"github.com/efebarandurmaz/modgraph/internal/extract"
	"github.com/efebarandurmaz/modgraph/internal/graph"
	graphneo4j "github.com/efebarandurmaz/modgraph/internal/graph/neo4j"
	"github.com/efebarandurmaz/modgraph/internal/qualitygate"
	"github.com/efebarandurmaz/modgraph/internal/temporal"
	"github.com/efebarandurmaz/modgraph/internal/vector"
	"github.com/efebarandurmaz/modgraph/internal/vector/qdrant"
)

func (a *app) analyzeCmd() *cobra.Command {
	var (
		format      string
		outputPath  string
		fromStore   string
		showMetrics bool
		metricsJSON bool
	)
	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Analyze a source tree and print a report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				res *analysis.Result
				err error
			)
			if fromStore != "" {
				res, err = a.runStored(cmd, fromStore)
			} else {
				res, err = a.run(cmd.Context(), args)
			}
			if err != nil {
				return err
			}

			out, err := depgraph.Export(res.Report(), depgraph.Format(format))
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), outputPath, out); err != nil {
				return err
			}

			switch {
			case metricsJSON:
				data, err := res.Metrics.JSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), string(data))
			case showMetrics:
				res.Metrics.PrintSummary(cmd.ErrOrStderr())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(depgraph.FormatText), "Report format: text, markdown, html, json, yaml, dot, mermaid")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write the report to a file instead of stdout")
	cmd.Flags().StringVar(&fromStore, "from-store", "", "Analyze the graph stored in Neo4j under this project")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print run metrics to stderr")
	cmd.Flags().BoolVar(&metricsJSON, "metrics-json", false, "Print run metrics to stderr as JSON")
	return cmd
}

func (a *app) cyclesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cycles [path]",
		Short: "List circular dependencies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.run(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), depgraph.FormatCycles(res.Cycles))
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var (
		format     string
		outputPath string
	)
	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Export the dependency graph (dot, mermaid, json, yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch f := depgraph.Format(format); f {
			case depgraph.FormatDOT, depgraph.FormatMermaid, depgraph.FormatJSON, depgraph.FormatYAML:
			default:
				return fmt.Errorf("%w: %q", depgraph.ErrUnknownFormat, format)
			}
			res, err := a.run(cmd.Context(), args)
			if err != nil {
				return err
			}
			out, err := depgraph.Export(res.Report(), depgraph.Format(format))
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outputPath, out)
		},
	}
	cmd.Flags().StringVar(&format, "format", string(depgraph.FormatDOT), "Export format: dot, mermaid, json, yaml")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write to a file instead of stdout")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Evaluate architecture quality gates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.run(cmd.Context(), args)
			if err != nil {
				return err
			}
			pipeline := qualitygate.BuildPipeline(&a.cfg.Gates)
			result := pipeline.Run(qualitygate.NewEvalContext(res.Graph, res.Cycles, res.Coupling))

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), qualitygate.FormatReport(result))
			}
			if result.Failed() {
				return errGatesFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output gate results as JSON")
	return cmd
}

func (a *app) storeCmd() *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "store [path]",
		Short: "Analyze and persist the module graph to Neo4j",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.run(cmd.Context(), args)
			if err != nil {
				return err
			}
			repo, err := a.graphRepository(cmd)
			if err != nil {
				return err
			}
			defer repo.Close(cmd.Context())

			name := a.projectName(project, args)
			if err := repo.SaveGraph(cmd.Context(), name, res.Graph); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d modules and %d edges as project %q\n",
				res.Graph.Metadata.TotalNodes, res.Graph.Metadata.TotalEdges, name)
			return nil
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project name (defaults to the analyzed directory name)")
	return cmd
}

func (a *app) dependentsCmd() *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "dependents <module>",
		Short: "List stored modules that depend on a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if project == "" {
				return errors.New("--project is required")
			}
			repo, err := a.graphRepository(cmd)
			if err != nil {
				return err
			}
			defer repo.Close(cmd.Context())

			names, err := repo.QueryDependents(cmd.Context(), project, depgraph.Normalize(args[0]))
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Stored project name")
	return cmd
}

func (a *app) similarCmd() *cobra.Command {
	var (
		project string
		topK    int
	)
	cmd := &cobra.Command{
		Use:   "similar <module> [path]",
		Short: "Index coupling profiles in Qdrant and list structurally similar modules",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, rest := depgraph.Normalize(args[0]), args[1:]
			res, err := a.run(cmd.Context(), rest)
			if err != nil {
				return err
			}

			vc := a.cfg.Vector
			repo, err := qdrant.NewQdrant(cmd.Context(), vc.Host, vc.Port, vc.Collection)
			if err != nil {
				return err
			}
			defer repo.Close()

			return printSimilar(cmd, vector.NewIndexer(repo), a.projectName(project, rest), module, topK, res)
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project name (defaults to the analyzed directory name)")
	cmd.Flags().IntVar(&topK, "top", 5, "Number of similar modules to list")
	return cmd
}

func printSimilar(cmd *cobra.Command, ix *vector.Indexer, project, module string, topK int, res *analysis.Result) error {
	if _, err := ix.Index(cmd.Context(), project, res.Graph, res.Cycles); err != nil {
		return err
	}
	matches, err := ix.Similar(cmd.Context(), project, module, topK)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Modules similar to %s:\n", module)
	for _, m := range matches {
		fmt.Fprintf(w, "  %-30s %.3f  (I=%s)\n", m.Module, m.Score, m.Metadata["instability"])
	}
	return nil
}

func (a *app) submitCmd() *cobra.Command {
	var input temporal.AnalysisInput
	cmd := &cobra.Command{
		Use:   "submit [path]",
		Short: "Run the analysis as a Temporal workflow on a worker",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			abs, err := filepath.Abs(root)
			if err != nil {
				return err
			}
			input.Root = abs
			input.Languages = a.cfg.Analysis.Languages
			input.Exclude = a.cfg.Analysis.Exclude

			c, err := temporal.Dial(a.cfg.Temporal, a.logger)
			if err != nil {
				return err
			}
			defer c.Close()

			out, err := temporal.Submit(cmd.Context(), c, a.cfg.Temporal.TaskQueue, input)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Project %s: %d files, %d modules, %d edges\n", out.Project, out.Files, out.Modules, out.Edges)
			fmt.Fprintf(w, "Cycles: %d (%d critical), violations: %d\n", out.Cycles, out.CriticalCycles, out.Violations)
			if out.Stored {
				fmt.Fprintln(w, "Graph stored")
			}
			if out.Indexed > 0 {
				fmt.Fprintf(w, "Indexed %d coupling profiles\n", out.Indexed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Project, "project", "", "Project name (defaults to the directory name)")
	cmd.Flags().BoolVar(&input.Store, "store", false, "Persist the graph to Neo4j")
	cmd.Flags().BoolVar(&input.Index, "index", false, "Upsert coupling profiles to Qdrant")
	return cmd
}

func (a *app) languagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages and their file extensions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Supported languages:")
			for _, lang := range extract.AllLanguages {
				fmt.Fprintf(w, "  %-12s %s\n", lang, strings.Join(extract.Extensions(lang), " "))
			}
		},
	}
}

// runStored rebuilds a graph from Neo4j and analyzes it.
func (a *app) runStored(cmd *cobra.Command, project string) (*analysis.Result, error) {
	repo, err := a.graphRepository(cmd)
	if err != nil {
		return nil, err
	}
	defer repo.Close(cmd.Context())

	recs, err := repo.LoadRecords(cmd.Context(), project)
	if err != nil {
		return nil, err
	}
	opts := a.analysisOptions()
	return analysis.Analyze(cmd.Context(), analysis.GraphFromRecords(recs, opts.Builder), opts)
}

func (a *app) graphRepository(cmd *cobra.Command) (graph.Repository, error) {
	gc := a.cfg.Graph
	if gc.URI == "" {
		return nil, errors.New("graph.uri is not configured")
	}
	return graphneo4j.NewNeo4j(cmd.Context(), gc.URI, gc.Username, gc.Password)
}

// projectName picks the --project value, else the name of the analyzed
// directory or input document.
func (a *app) projectName(flag string, args []string) string {
	if flag != "" {
		return flag
	}
	if a.inputPath != "" {
		base := filepath.Base(a.inputPath)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return filepath.Base(root)
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		if err == nil && len(data) > 0 && data[len(data)-1] != '\n' {
			_, err = io.WriteString(stdout, "\n")
		}
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
