package extract

import "regexp"

type declarationPatterns struct {
	classes    []*regexp.Regexp
	interfaces []*regexp.Regexp
}

var declarations = map[Language]declarationPatterns{
	Python: {
		classes: []*regexp.Regexp{regexp.MustCompile(`(?m)^[ \t]*class\s+(\w+)`)},
	},
	JavaScript: {
		classes: []*regexp.Regexp{regexp.MustCompile(`\bclass\s+(\w+)`)},
	},
	TypeScript: {
		classes:    []*regexp.Regexp{regexp.MustCompile(`\bclass\s+(\w+)`)},
		interfaces: []*regexp.Regexp{regexp.MustCompile(`\binterface\s+(\w+)`)},
	},
	Java: {
		classes:    []*regexp.Regexp{regexp.MustCompile(`\b(?:class|enum|record)\s+(\w+)`)},
		interfaces: []*regexp.Regexp{regexp.MustCompile(`\binterface\s+(\w+)`)},
	},
	Cpp: {
		classes: []*regexp.Regexp{regexp.MustCompile(`\b(?:class|struct)\s+(\w+)\s*(?:final\s*)?[:{]`)},
	},
	Go: {
		classes:    []*regexp.Regexp{regexp.MustCompile(`\btype\s+(\w+)\s+struct\b`)},
		interfaces: []*regexp.Regexp{regexp.MustCompile(`\btype\s+(\w+)\s+interface\b`)},
	},
	Rust: {
		classes:    []*regexp.Regexp{regexp.MustCompile(`\b(?:struct|enum)\s+(\w+)`)},
		interfaces: []*regexp.Regexp{regexp.MustCompile(`\btrait\s+(\w+)`)},
	},
}

// Declarations returns the class-like and interface names declared in content,
// in order of first appearance.
func Declarations(lang Language, content []byte) (classes, interfaces []string) {
	p, ok := declarations[lang]
	if !ok {
		return nil, nil
	}
	return matchNames(p.classes, content), matchNames(p.interfaces, content)
}

func matchNames(patterns []*regexp.Regexp, content []byte) []string {
	var out []string
	seen := make(map[string]bool)
	for _, re := range patterns {
		for _, m := range re.FindAllSubmatch(content, -1) {
			name := string(m[1])
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
