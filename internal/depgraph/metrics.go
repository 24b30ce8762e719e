package depgraph

import (
	"math"
	"strings"
)

// CalculateMetrics recomputes coupling, instability, abstraction and distance
// for every node in place. Nodes are independent of each other.
func CalculateMetrics(nodes map[string]*ModuleNode) {
	for _, n := range nodes {
		calculateNode(n)
	}
}

func calculateNode(n *ModuleNode) {
	refreshCoupling(n)

	n.Instability = instability(n.AfferentCoupling, n.EfferentCoupling)
	n.Abstraction = abstraction(n.CoreClasses, n.PublicInterfaces)
	n.Distance = math.Abs(n.Abstraction + n.Instability - 1)

	n.Metrics = NodeMetrics{
		AfferentCoupling: n.AfferentCoupling,
		EfferentCoupling: n.EfferentCoupling,
		Instability:      round(n.Instability, 3),
		Abstraction:      round(n.Abstraction, 3),
		Distance:         round(n.Distance, 3),
	}
}

// instability is I = Ce / (Ca + Ce), or 0 for an unconnected module.
func instability(ca, ce int) float64 {
	total := ca + ce
	if total == 0 {
		return 0
	}
	return float64(ce) / float64(total)
}

// abstraction is the share of a module's notable elements that are abstract.
// Only core classes are inspected by name; public interfaces count toward the
// denominator.
func abstraction(coreClasses, publicInterfaces []string) float64 {
	total := len(coreClasses) + len(publicInterfaces)
	if total == 0 {
		return 0
	}
	abstract := 0
	for _, cls := range coreClasses {
		lower := strings.ToLower(cls)
		if strings.Contains(lower, "interface") || strings.Contains(lower, "abstract") {
			abstract++
		}
	}
	return float64(abstract) / float64(total)
}
