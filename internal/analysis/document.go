package analysis

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
	"github.com/efebarandurmaz/modgraph/internal/extract"
	"github.com/efebarandurmaz/modgraph/internal/metrics"
	"github.com/efebarandurmaz/modgraph/internal/observability"
)

// ExtractContent fills in the dependency records of files that carry source
// content but no records of their own. The declared language takes precedence
// over the file extension. Files that cannot be extracted keep no records and
// are counted in the returned skipped total.
func ExtractContent(reg *extract.Registry, files []depgraph.FileAnalysis, logger *slog.Logger) int {
	if reg == nil {
		reg = extract.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	skipped := 0
	for i := range files {
		fa := &files[i]
		if fa.Content == "" || len(fa.Dependencies) > 0 {
			continue
		}
		lang, err := extract.ParseLanguage(fa.Language)
		if err != nil {
			var ok bool
			if lang, ok = extract.LanguageForPath(fa.RelativePath); !ok {
				logger.Debug("no extractor for file", "path", fa.RelativePath, "language", fa.Language)
				skipped++
				continue
			}
		}

		extracted, err := reg.AnalyzeAs(lang, fa.RelativePath, fa.Path, []byte(fa.Content))
		if err != nil {
			logger.Warn("extraction failed", "path", fa.RelativePath, "error", err)
			skipped++
			continue
		}
		fa.Dependencies = extracted.Dependencies
		if fa.Language == "" {
			fa.Language = extracted.Language
		}
		if len(fa.Classes) == 0 {
			fa.Classes = extracted.Classes
		}
		if len(fa.Interfaces) == 0 {
			fa.Interfaces = extracted.Interfaces
		}
	}
	return skipped
}

// RunDocument analyzes a file-analysis document. Entries that only carry
// source content are run through the extractors first.
func RunDocument(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
		opts.Metrics = m
	}

	start := time.Now()
	_, span := observability.StartStageSpan(ctx, observability.StageExtract)
	files, err := depgraph.LoadFileAnalyses(r)
	if err != nil {
		observability.RecordError(span, err)
		span.End()
		m.AddStage(observability.StageExtract, time.Since(start), err)
		return nil, err
	}
	skipped := ExtractContent(opts.Registry, files, opts.Logger)
	span.End()
	m.AddStage(observability.StageExtract, time.Since(start), nil)
	m.CollectInput(files, skipped)

	res, err := Run(ctx, files, opts)
	if err != nil {
		return nil, err
	}
	m.Finish()
	return res, nil
}
