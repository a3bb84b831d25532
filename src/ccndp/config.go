package ccndp

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"stochastic_network_design/src/logging"
	"stochastic_network_design/src/mip"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config gathers the parameters of a decomposition run.
type Config struct {
	// Alpha is the fraction of scenarios that may be left infeasible.
	Alpha       float64     `yaml:"alpha"`
	Formulation Formulation `yaml:"formulation"`

	// Cut families evaluated on every incumbent, in addition to the
	// feasibility cut.
	MetricCuts         bool `yaml:"metric_cuts"`
	CombinatorialCuts  bool `yaml:"combinatorial_cuts"`
	CutsetInequalities bool `yaml:"cutset_inequalities"`

	// ValidInequalities adds the origin and destination capacity rows to the
	// master before the search starts.
	ValidInequalities bool `yaml:"valid_inequalities"`

	FeasibilityTol float64        `yaml:"feasibility_tol"`
	Solver         mip.Options    `yaml:"solver"`
	Log            logging.Config `yaml:"log"`
}

func DefaultConfig() Config {
	return Config{
		Alpha:              0,
		Formulation:        FormulationBB,
		MetricCuts:         true,
		CombinatorialCuts:  false,
		CutsetInequalities: true,
		ValidInequalities:  true,
		FeasibilityTol:     defaultFeasibilityTol,
		Solver: mip.Options{
			Backend: mip.BackendHighs,
		},
		Log: logging.Config{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Keys absent from the
// file keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (cfg Config) Validate() error {
	if cfg.Alpha < 0 || cfg.Alpha > 1 {
		return fmt.Errorf("%w: alpha %v not in [0, 1]", ErrInvalidConfig, cfg.Alpha)
	}
	if _, err := ParseFormulation(string(cfg.Formulation)); err != nil {
		return err
	}
	if cfg.FeasibilityTol < 0 {
		return fmt.Errorf("%w: negative feasibility tolerance", ErrInvalidConfig)
	}
	switch cfg.Solver.Backend {
	case "", mip.BackendHighs, mip.BackendLpSolve:
	default:
		return fmt.Errorf("%w: unknown solver backend %q", ErrInvalidConfig, cfg.Solver.Backend)
	}
	return nil
}

func logger(log *slog.Logger) *slog.Logger {
	if log == nil {
		return logging.Discard()
	}
	return log
}
