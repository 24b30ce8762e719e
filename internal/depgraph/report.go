package depgraph

import (
	"fmt"
	"strings"
)

// ExportMarkdown renders the report as a Markdown document ending with a
// Mermaid chart of the graph.
func ExportMarkdown(r *Report) string {
	var b strings.Builder
	md := Metadata{}
	if r.Graph != nil {
		md = r.Graph.Metadata
	}

	b.WriteString("# Module Dependency Report\n\n")

	b.WriteString("## 1. Summary\n\n")
	b.WriteString(fmt.Sprintf("- **Modules**: %d\n", md.TotalNodes))
	b.WriteString(fmt.Sprintf("- **Dependencies**: %d\n", md.TotalEdges))
	b.WriteString(fmt.Sprintf("- **Average coupling**: %.2f\n", md.AverageCoupling))
	maxModule := md.MaxCouplingModule
	if maxModule == "" {
		maxModule = "N/A"
	}
	b.WriteString(fmt.Sprintf("- **Most coupled module**: %s\n\n", maxModule))

	b.WriteString("## 2. Core Modules\n\n")
	b.WriteString("| Module | Score | Afferent | Efferent | Instability |\n")
	b.WriteString("|--------|-------|----------|----------|-------------|\n")
	for _, m := range md.CoreModules {
		b.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.2f |\n",
			m.Name, m.Score, m.Afferent, m.Efferent, m.Instability))
	}
	b.WriteString("\n")

	b.WriteString("## 3. Cyclic Dependencies\n\n")
	if len(r.Cycles) == 0 {
		b.WriteString("No cyclic dependencies detected.\n\n")
	}
	for _, c := range r.Cycles {
		b.WriteString(fmt.Sprintf("### Cycle %d\n\n", c.ID))
		b.WriteString(fmt.Sprintf("- **Severity**: %s\n", c.Severity))
		b.WriteString(fmt.Sprintf("- **Modules**: %s\n", strings.Join(c.Members(), " → ")))
		b.WriteString("- **Suggestions**:\n")
		for _, s := range c.Suggestions {
			b.WriteString(fmt.Sprintf("  - %s\n", s))
		}
		b.WriteString("\n")
	}

	s := r.Coupling.Summary
	b.WriteString("## 4. Coupling\n\n")
	b.WriteString("### 4.1 Summary\n\n")
	b.WriteString(fmt.Sprintf("- Average instability: %.3f\n", s.AverageInstability))
	b.WriteString(fmt.Sprintf("- Average abstraction: %.3f\n", s.AverageAbstraction))
	b.WriteString(fmt.Sprintf("- Stable modules: %d\n", s.InstabilityDistribution.Stable))
	b.WriteString(fmt.Sprintf("- Moderate modules: %d\n", s.InstabilityDistribution.Moderate))
	b.WriteString(fmt.Sprintf("- Unstable modules: %d\n\n", s.InstabilityDistribution.Unstable))

	b.WriteString("### 4.2 High Coupling\n\n")
	if len(r.Coupling.HighCoupling) == 0 {
		b.WriteString("No highly coupled modules.\n\n")
	} else {
		b.WriteString("| Module | Total | Afferent | Efferent | Risk |\n")
		b.WriteString("|--------|-------|----------|----------|------|\n")
		for _, h := range r.Coupling.HighCoupling {
			b.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %s |\n",
				h.Module, h.TotalCoupling, h.Afferent, h.Efferent, h.RiskLevel))
		}
		b.WriteString("\n")
	}

	b.WriteString("## 5. Architecture Violations\n\n")
	if len(r.Coupling.Violations) == 0 {
		b.WriteString("No architecture violations detected.\n\n")
	} else {
		for _, v := range r.Coupling.Violations {
			b.WriteString(fmt.Sprintf("- **%s** (%s)\n  - %s\n", v.Type, v.Severity, v.Description))
		}
		b.WriteString("\n")
	}

	b.WriteString("## 6. Recommendations\n\n")
	for _, rec := range r.Coupling.Recommendations {
		b.WriteString(fmt.Sprintf("### %s\n\n", rec.Category))
		b.WriteString(fmt.Sprintf("- **Priority**: %s\n", rec.Priority))
		if len(rec.Modules) > 0 {
			b.WriteString(fmt.Sprintf("- **Modules**: %s\n", strings.Join(rec.Modules, ", ")))
		}
		b.WriteString(fmt.Sprintf("- **Suggestion**: %s\n\n", rec.Suggestion))
	}

	b.WriteString("## 7. Dependency Graph\n\n")
	b.WriteString("```mermaid\n")
	b.WriteString(ExportMermaid(r.Graph))
	b.WriteString("```\n")

	return b.String()
}
