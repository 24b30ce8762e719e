package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
	"github.com/efebarandurmaz/modgraph/internal/extract"
	"github.com/efebarandurmaz/modgraph/internal/qualitygate"
)

// Config holds all application configuration.
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Graph    GraphConfig    `mapstructure:"graph"`
	Vector   VectorConfig   `mapstructure:"vector"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`

	Gates qualitygate.GateConfig `mapstructure:"gates"`
}

type AnalysisConfig struct {
	CoreModuleCount       int     `mapstructure:"core_module_count"`
	HighCouplingThreshold int     `mapstructure:"high_coupling_threshold"`
	UnstableThreshold     float64 `mapstructure:"unstable_threshold"`
	// CycleDedup is "members" or "rotation".
	CycleDedup string `mapstructure:"cycle_dedup"`
	// Languages restricts scanning; empty means all.
	Languages []string `mapstructure:"languages"`
	// Exclude holds doublestar globs relative to the scanned root.
	Exclude []string `mapstructure:"exclude"`
}

type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type VectorConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	// OTLPEndpoint enables OTLP/gRPC export when set.
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

var defaults = map[string]any{
	"analysis.core_module_count":       depgraph.DefaultCoreModuleCount,
	"analysis.high_coupling_threshold": depgraph.DefaultHighCouplingThreshold,
	"analysis.unstable_threshold":      depgraph.DefaultUnstableThreshold,
	"analysis.cycle_dedup":             string(depgraph.DedupMembers),
	"analysis.languages":               []string{},
	"analysis.exclude":                 []string{},
	"graph.uri":                        "",
	"graph.username":                   "",
	"graph.password":                   "",
	"vector.host":                      "localhost",
	"vector.port":                      6334,
	"vector.collection":                "modgraph_modules",
	"temporal.host":                    "localhost:7233",
	"temporal.namespace":               "default",
	"temporal.task_queue":              "modgraph",
	"log.level":                        "info",
	"log.format":                       "text",
	"tracing.otlp_endpoint":            "",
	"tracing.service_name":             "modgraph",
	"tracing.sample_rate":              1.0,
	"gates.enabled":                    true,
	"gates.no_critical_cycles":         true,
	"gates.critical_cycles_severity":   "critical",
	"gates.max_cycles":                 0,
	"gates.max_cycles_severity":        "required",
	"gates.max_distance":               0.7,
	"gates.distance_severity":          "advisory",
	"gates.max_high_coupling":          0,
	"gates.high_coupling_severity":     "advisory",
}

// Default returns the built-in configuration, ignoring the environment.
func Default() *Config {
	cfg, err := decode(newViper(false))
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Analysis.CoreModuleCount < 0 {
		warnings = append(warnings, fmt.Sprintf("analysis core_module_count %d is negative", c.Analysis.CoreModuleCount))
	}
	if c.Analysis.HighCouplingThreshold < 0 {
		warnings = append(warnings, fmt.Sprintf("analysis high_coupling_threshold %d is negative", c.Analysis.HighCouplingThreshold))
	}
	if c.Analysis.UnstableThreshold < 0 || c.Analysis.UnstableThreshold > 1 {
		warnings = append(warnings, fmt.Sprintf("analysis unstable_threshold %.2f is outside [0.0, 1.0]", c.Analysis.UnstableThreshold))
	}
	switch depgraph.CycleDedup(c.Analysis.CycleDedup) {
	case "", depgraph.DedupMembers, depgraph.DedupRotation:
	default:
		warnings = append(warnings, fmt.Sprintf("analysis cycle_dedup %q is unknown, using %q", c.Analysis.CycleDedup, depgraph.DedupMembers))
	}
	for _, l := range c.Analysis.Languages {
		if _, err := extract.ParseLanguage(l); err != nil {
			warnings = append(warnings, fmt.Sprintf("analysis language %q is not supported", l))
		}
	}

	if c.Graph.URI != "" && c.Graph.Username == "" {
		warnings = append(warnings, "graph uri is configured but username is empty")
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("log level %q is unknown", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		warnings = append(warnings, fmt.Sprintf("log format %q is unknown", c.Log.Format))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0.0, 1.0]", c.Tracing.SampleRate))
	}

	warnings = append(warnings, c.Gates.Validate()...)

	return warnings
}

// ParsedLanguages returns the configured languages, skipping unsupported names.
func (c AnalysisConfig) ParsedLanguages() []extract.Language {
	var out []extract.Language
	for _, l := range c.Languages {
		if lang, err := extract.ParseLanguage(l); err == nil {
			out = append(out, lang)
		}
	}
	return out
}

func newViper(env bool) *viper.Viper {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	if !env {
		return v
	}
	v.SetEnvPrefix("MODGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// Load reads configuration from file and environment. An empty path yields
// the defaults overlaid with MODGRAPH_* environment variables.
func Load(path string) (*Config, error) {
	v := newViper(true)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return cfg, nil
}
