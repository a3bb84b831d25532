package ccndp

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stochastic_network_design/src/mip"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_MergesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
alpha: 0.1
formulation: FlowMIS
combinatorial_cuts: true
solver:
  backend: lpsolve
  time_limit: 90s
log:
  level: debug
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	want := DefaultConfig()
	want.Alpha = 0.1
	want.Formulation = FormulationFlowMIS
	want.CombinatorialCuts = true
	want.Solver.Backend = mip.BackendLpSolve
	want.Solver.TimeLimit = 90 * time.Second
	want.Log.Level = "debug"
	require.Equal(t, want, cfg)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfig(writeFile(t, "bad.yaml", "alpha: [1"))
	require.Error(t, err)

	_, err = LoadConfig(writeFile(t, "alpha.yaml", "alpha: 1.5"))
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfig(writeFile(t, "formulation.yaml", "formulation: LP"))
	require.ErrorIs(t, err, ErrUnknownFormulation)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.FeasibilityTol = -1
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Solver.Backend = "gurobi"
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}
