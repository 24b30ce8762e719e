package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// AnalysisInput holds the workflow parameters.
type AnalysisInput struct {
	Root string
	// Project scopes stored graphs and profiles; defaults to the root's base name.
	Project   string
	Languages []string
	Exclude   []string

	Store bool // persist the graph to the graph repository
	Index bool // upsert coupling profiles to the vector repository
}

// AnalysisOutput holds the workflow result.
type AnalysisOutput struct {
	Project        string
	Files          int
	Skipped        int
	Modules        int
	Edges          int
	Cycles         int
	CriticalCycles int
	Violations     int
	ReportJSON     string

	Stored  bool
	Indexed int
}

// AnalysisWorkflow scans a tree, analyzes it and optionally stores the result.
func AnalysisWorkflow(ctx workflow.Context, input AnalysisInput) (*AnalysisOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{errTypeInvalidInput},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	var scanned ScanResult
	if err := workflow.ExecuteActivity(ctx, ScanActivity, input).Get(ctx, &scanned); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	logger.Info("scan finished", "files", scanned.Files, "skipped", scanned.Skipped)

	var analyzed AnalyzeResult
	if err := workflow.ExecuteActivity(ctx, AnalyzeActivity, scanned.FilesJSON).Get(ctx, &analyzed); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	out := &AnalysisOutput{
		Project:        projectName(input),
		Files:          scanned.Files,
		Skipped:        scanned.Skipped,
		Modules:        analyzed.Modules,
		Edges:          analyzed.Edges,
		Cycles:         analyzed.Cycles,
		CriticalCycles: analyzed.CriticalCycles,
		Violations:     analyzed.Violations,
		ReportJSON:     analyzed.ReportJSON,
	}

	if input.Store || input.Index {
		var stored StoreResult
		if err := workflow.ExecuteActivity(ctx, StoreActivity, input, scanned.FilesJSON).Get(ctx, &stored); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		out.Stored = stored.Stored
		out.Indexed = stored.Indexed
	}
	return out, nil
}
