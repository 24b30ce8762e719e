package extract

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Language identifies a source language the extractors understand.
type Language string

const (
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Java       Language = "java"
	Cpp        Language = "cpp"
	Go         Language = "go"
	Rust       Language = "rust"
	Terraform  Language = "terraform"
)

// AllLanguages lists every supported language.
var AllLanguages = []Language{Python, JavaScript, TypeScript, Java, Cpp, Go, Rust, Terraform}

var extensions = map[string]Language{
	".py":   Python,
	".js":   JavaScript,
	".jsx":  JavaScript,
	".mjs":  JavaScript,
	".cjs":  JavaScript,
	".ts":   TypeScript,
	".tsx":  TypeScript,
	".java": Java,
	".c":    Cpp,
	".cc":   Cpp,
	".cpp":  Cpp,
	".cxx":  Cpp,
	".h":    Cpp,
	".hh":   Cpp,
	".hpp":  Cpp,
	".go":   Go,
	".rs":   Rust,
	".tf":   Terraform,
}

// LanguageForPath maps a file name to its language by extension.
func LanguageForPath(path string) (Language, bool) {
	lang, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// ParseLanguage validates a language name. "js", "ts", "c++" and "tf" are accepted as aliases.
func ParseLanguage(s string) (Language, error) {
	switch l := strings.ToLower(strings.TrimSpace(s)); l {
	case "js":
		return JavaScript, nil
	case "ts":
		return TypeScript, nil
	case "c", "c++":
		return Cpp, nil
	case "golang":
		return Go, nil
	case "tf", "hcl":
		return Terraform, nil
	default:
		for _, known := range AllLanguages {
			if Language(l) == known {
				return known, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, s)
}

// Extensions returns the file extensions mapped to lang, sorted.
func Extensions(lang Language) []string {
	var out []string
	for ext, l := range extensions {
		if l == lang {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}
