package cmd

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// DeploymentSettings are the non-simulation knobs of a run, read from the
// environment and overridable by flags. Scenario parameters always take
// precedence for simulation concerns (seed, horizon, initial conditions,
// policy set); these settings win only for operational concerns.
type DeploymentSettings struct {
	LogLevel    string `env:"CITYSIM_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"CITYSIM_LOG_FORMAT" envDefault:"text"` // text or json
	LogPath     string `env:"CITYSIM_LOG_PATH"`
	Strict      bool   `env:"CITYSIM_STRICT"`
	Parallel    bool   `env:"CITYSIM_PARALLEL"`
	MetricsAddr string `env:"CITYSIM_METRICS_ADDR"`
	TracePath   string `env:"CITYSIM_TRACE_PATH"`
	ScenarioDir string `env:"CITYSIM_SCENARIO_DIR" envDefault:"scenarios"`
}

// LoadSettings reads deployment settings from the environment.
func LoadSettings() (DeploymentSettings, error) {
	var s DeploymentSettings
	if err := env.Parse(&s); err != nil {
		return s, fmt.Errorf("parsing environment settings: %w", err)
	}
	if s.LogFormat != "text" && s.LogFormat != "json" {
		return s, fmt.Errorf("invalid log format %q (want text or json)", s.LogFormat)
	}
	return s, nil
}
