package extract

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// ErrUnknownLanguage is returned when no extractor handles a language.
var ErrUnknownLanguage = errors.New("unknown language")

// Extractor pulls dependency records out of one source file.
type Extractor interface {
	// Language returns the language this extractor handles.
	Language() Language
	// Extract returns the dependencies found in content. path is the file's
	// path relative to the project root.
	Extract(path string, content []byte) ([]depgraph.DependencyRecord, error)
}

// Registry stores extractors by language.
type Registry struct {
	mu         sync.RWMutex
	extractors map[Language]Extractor
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[Language]Extractor)}
}

// Default returns a registry holding every built-in extractor.
func Default() *Registry {
	r := NewRegistry()
	for _, lang := range []Language{Python, JavaScript, TypeScript, Java, Cpp, Go, Rust} {
		r.Register(NewPatternExtractor(lang))
	}
	r.Register(&TerraformExtractor{})
	return r
}

func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[e.Language()] = e
}

func (r *Registry) Get(lang Language) (Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[lang]
	if !ok {
		return nil, fmt.Errorf("%w: no extractor for %q", ErrUnknownLanguage, lang)
	}
	return e, nil
}

// Languages returns the registered languages in sorted order.
func (r *Registry) Languages() []Language {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Language, 0, len(r.extractors))
	for lang := range r.extractors {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AnalyzeFile runs the extractor for the file's language and collects its
// declarations. relPath is relative to the project root; absPath may be empty.
func (r *Registry) AnalyzeFile(relPath, absPath string, content []byte) (depgraph.FileAnalysis, error) {
	lang, ok := LanguageForPath(relPath)
	if !ok {
		return depgraph.FileAnalysis{}, fmt.Errorf("%w: %s", ErrUnknownLanguage, relPath)
	}
	return r.AnalyzeAs(lang, relPath, absPath, content)
}

// AnalyzeAs is AnalyzeFile with the language given instead of derived from
// the file extension.
func (r *Registry) AnalyzeAs(lang Language, relPath, absPath string, content []byte) (depgraph.FileAnalysis, error) {
	e, err := r.Get(lang)
	if err != nil {
		return depgraph.FileAnalysis{}, err
	}
	records, err := e.Extract(relPath, content)
	if err != nil {
		return depgraph.FileAnalysis{}, fmt.Errorf("extract %s: %w", relPath, err)
	}
	classes, interfaces := Declarations(lang, content)
	return depgraph.FileAnalysis{
		RelativePath: relPath,
		Path:         absPath,
		Language:     string(lang),
		Dependencies: records,
		Classes:      classes,
		Interfaces:   interfaces,
	}, nil
}
