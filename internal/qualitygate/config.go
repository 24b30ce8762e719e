package qualitygate

import (
	"fmt"
	"strings"
)

// GateConfig defines the configuration for quality gates. A negative limit
// disables the corresponding gate.
type GateConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	NoCriticalCycles       bool   `mapstructure:"no_critical_cycles" json:"no_critical_cycles"`
	CriticalCyclesSeverity string `mapstructure:"critical_cycles_severity" json:"critical_cycles_severity"`

	MaxCycles         int    `mapstructure:"max_cycles" json:"max_cycles"`
	MaxCyclesSeverity string `mapstructure:"max_cycles_severity" json:"max_cycles_severity"`

	MaxDistance      float64 `mapstructure:"max_distance" json:"max_distance"`
	DistanceSeverity string  `mapstructure:"distance_severity" json:"distance_severity"`

	MaxHighCoupling      int    `mapstructure:"max_high_coupling" json:"max_high_coupling"`
	HighCouplingSeverity string `mapstructure:"high_coupling_severity" json:"high_coupling_severity"`
}

// DefaultConfig returns the default gate configuration.
func DefaultConfig() *GateConfig {
	return &GateConfig{
		Enabled:                true,
		NoCriticalCycles:       true,
		CriticalCyclesSeverity: "critical",
		MaxCycles:              0,
		MaxCyclesSeverity:      "required",
		MaxDistance:            0.7,
		DistanceSeverity:       "advisory",
		MaxHighCoupling:        0,
		HighCouplingSeverity:   "advisory",
	}
}

// ParseSeverity converts a string to GateSeverity.
func ParseSeverity(s string) (GateSeverity, error) {
	switch strings.ToLower(s) {
	case "critical":
		return SeverityCritical, nil
	case "required", "":
		return SeverityRequired, nil
	case "advisory":
		return SeverityAdvisory, nil
	default:
		return SeverityRequired, fmt.Errorf("unknown gate severity %q", s)
	}
}

func severityOr(s string) GateSeverity {
	sev, _ := ParseSeverity(s)
	return sev
}

// Validate reports unknown severities.
func (c *GateConfig) Validate() []string {
	var warnings []string
	for _, s := range []string{c.CriticalCyclesSeverity, c.MaxCyclesSeverity, c.DistanceSeverity, c.HighCouplingSeverity} {
		if _, err := ParseSeverity(s); err != nil {
			warnings = append(warnings, fmt.Sprintf("gates: %v, using required", err))
		}
	}
	return warnings
}

// BuildPipeline constructs a gate pipeline from configuration.
func BuildPipeline(cfg *GateConfig) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	p := NewPipeline()
	if !cfg.Enabled {
		return p
	}

	if cfg.NoCriticalCycles {
		p.AddGate(NewNoCriticalCyclesGate(severityOr(cfg.CriticalCyclesSeverity)))
	}
	if cfg.MaxCycles >= 0 {
		p.AddGate(NewMaxCyclesGate(cfg.MaxCycles, severityOr(cfg.MaxCyclesSeverity)))
	}
	if cfg.MaxDistance > 0 {
		p.AddGate(NewMaxDistanceGate(cfg.MaxDistance, severityOr(cfg.DistanceSeverity)))
	}
	if cfg.MaxHighCoupling >= 0 {
		p.AddGate(NewHighCouplingGate(cfg.MaxHighCoupling, severityOr(cfg.HighCouplingSeverity)))
	}
	return p
}

// FormatReport returns a human-readable quality gate report.
func FormatReport(result *PipelineResult) string {
	var b strings.Builder
	b.WriteString("╔══════════════════════════════════════════╗\n")
	b.WriteString("║        Quality Gate Report               ║\n")
	b.WriteString("╠══════════════════════════════════════════╣\n")

	for _, gr := range result.Gates {
		icon := "✓"
		switch gr.Status {
		case GateFailed:
			icon = "✗"
		case GateSkipped:
			icon = "○"
		}
		fmt.Fprintf(&b, "║ %s %-20s %-10s %s\n", icon, gr.Name, "["+strings.ToUpper(string(gr.Severity))+"]", gr.Message)
		for _, d := range gr.Details {
			fmt.Fprintf(&b, "║   → %s\n", d)
		}
	}

	b.WriteString("╠══════════════════════════════════════════╣\n")
	status := "PASSED"
	if result.Failed() {
		status = "FAILED"
	}
	fmt.Fprintf(&b, "║ Result: %s (%s)\n", status, result.Summary)
	b.WriteString("╚══════════════════════════════════════════╝\n")
	return b.String()
}
