package extract

import (
	"bytes"
	"path"
	"regexp"
	"strings"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// importPatterns holds the import statements recognized per language. Each
// pattern's last non-empty capture group is the imported module.
var importPatterns = map[Language][]*regexp.Regexp{
	Python: {
		regexp.MustCompile(`(?m)^[ \t]*import\s+(\w+(?:\.\w+)*)`),
		regexp.MustCompile(`(?m)^[ \t]*from\s+(\w+(?:\.\w+)*)\s+import`),
	},
	JavaScript: {
		regexp.MustCompile(`(?:require|import)\s*\(?\s*['"]([^'"]+)['"]`),
		regexp.MustCompile(`import\s+(?:\{[^}]+\}|\*(?:\s+as\s+\w+)?|\w+)\s+from\s+['"]([^'"]+)['"]`),
	},
	TypeScript: {
		regexp.MustCompile(`(?:require|import)\s*\(?\s*['"]([^'"]+)['"]`),
		regexp.MustCompile(`import\s+(?:type\s+)?(?:\{[^}]+\}|\*(?:\s+as\s+\w+)?|\w+)\s+from\s+['"]([^'"]+)['"]`),
	},
	Java: {
		regexp.MustCompile(`import\s+([\w.]+(?:\.\*)?)\s*;`),
		regexp.MustCompile(`import\s+static\s+([\w.]+)\s*;`),
	},
	Cpp: {
		regexp.MustCompile(`#include\s*[<"]([^>"]+)[>"]`),
	},
	Go: {
		regexp.MustCompile(`import\s*\(([^)]*)\)`),
		regexp.MustCompile(`import\s+(?:[\w.]+\s+)?"([^"]+)"`),
	},
	Rust: {
		regexp.MustCompile(`\buse\s+([^;]+?)\s*;`),
		regexp.MustCompile(`\bextern\s+crate\s+(\w+)`),
	},
}

var goBlockImport = regexp.MustCompile(`"([^"]+)"`)

// PatternExtractor recognizes import statements with regular expressions.
type PatternExtractor struct {
	lang     Language
	patterns []*regexp.Regexp
}

// NewPatternExtractor returns the regex extractor for lang. Languages without
// patterns yield an extractor that finds nothing.
func NewPatternExtractor(lang Language) *PatternExtractor {
	return &PatternExtractor{lang: lang, patterns: importPatterns[lang]}
}

func (e *PatternExtractor) Language() Language { return e.lang }

// Extract scans content with every pattern of the language. Records are
// attributed to the file's directory and deduplicated per (target, line).
func (e *PatternExtractor) Extract(filePath string, content []byte) ([]depgraph.DependencyRecord, error) {
	source := sourceModule(filePath)
	type key struct {
		target string
		line   int
	}
	seen := make(map[key]bool)
	var out []depgraph.DependencyRecord

	add := func(target string, offset int) {
		target = strings.TrimSpace(target)
		if target == "" {
			return
		}
		line := lineAt(content, offset)
		k := key{target, line}
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, depgraph.DependencyRecord{
			SourceModule: source,
			TargetModule: target,
			Kind:         depgraph.KindImport,
			Strength:     1.0,
			FilePath:     filePath,
			Line:         line,
			ElementName:  elementName(target),
		})
	}

	for i, re := range e.patterns {
		for _, m := range re.FindAllSubmatchIndex(content, -1) {
			start, end := lastGroup(m)
			if start < 0 {
				continue
			}
			group := string(content[start:end])
			switch {
			case e.lang == Go && i == 0:
				for _, imp := range goBlockImport.FindAllSubmatchIndex(content[start:end], -1) {
					add(string(content[start+imp[2]:start+imp[3]]), start+imp[0])
				}
			case e.lang == Rust:
				add(rustCrate(group), m[0])
			default:
				add(group, m[0])
			}
		}
	}
	return out, nil
}

// lastGroup returns the bounds of the last capture group that matched.
func lastGroup(m []int) (int, int) {
	for g := len(m)/2 - 1; g >= 1; g-- {
		if m[2*g] >= 0 {
			return m[2*g], m[2*g+1]
		}
	}
	return -1, -1
}

func rustCrate(use string) string {
	use = strings.TrimPrefix(strings.TrimSpace(use), "pub ")
	if i := strings.Index(use, "::"); i >= 0 {
		return strings.TrimSpace(use[:i])
	}
	return use
}

func sourceModule(filePath string) string {
	return path.Dir(strings.ReplaceAll(filePath, "\\", "/"))
}

func elementName(target string) string {
	if i := strings.LastIndex(target, "."); i >= 0 {
		return target[i+1:]
	}
	return target
}

func lineAt(content []byte, offset int) int {
	return bytes.Count(content[:offset], []byte("\n")) + 1
}
