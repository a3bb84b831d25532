package mip

import (
	"context"
	"fmt"
	"time"
)

const (
	eps = 1e-8

	defaultGapTol         = 1e-4
	defaultIntegralityTol = 1e-6
)

type Backend string

const (
	BackendHighs   Backend = "highs"
	BackendLpSolve Backend = "lpsolve"
)

// Options controls the search. Zero values select the defaults.
type Options struct {
	Backend        Backend       `yaml:"backend"`
	TimeLimit      time.Duration `yaml:"time_limit"`
	GapTol         float64       `yaml:"gap_tol"`
	IntegralityTol float64       `yaml:"integrality_tol"`
	NodeLimit      int           `yaml:"node_limit"`
}

func (o Options) withDefaults() Options {
	if o.Backend == "" {
		o.Backend = BackendHighs
	}
	if o.GapTol <= 0 {
		o.GapTol = defaultGapTol
	}
	if o.IntegralityTol <= 0 {
		o.IntegralityTol = defaultIntegralityTol
	}
	return o
}

// Solve optimises the model with its integrality restrictions, invoking the
// registered incumbent callback for every integer feasible candidate.
func (m *Model) Solve(ctx context.Context) (*Result, error) {
	switch m.opts.Backend {
	case BackendHighs:
		return m.branchAndBound(ctx)
	case BackendLpSolve:
		if m.onIncumbent != nil {
			return nil, fmt.Errorf("%v: %w", m.opts.Backend, ErrCallbacksUnsupported)
		}
		return m.solveLpSolve(true)
	default:
		return nil, fmt.Errorf("unknown backend %q", m.opts.Backend)
	}
}

// SolveRelaxation optimises the continuous relaxation of the model, lazy rows
// included.
func (m *Model) SolveRelaxation(ctx context.Context) (*Result, error) {
	switch m.opts.Backend {
	case BackendHighs:
		t := time.Now()
		res, err := m.solveLp(m.Lower, m.Upper)
		if err != nil {
			return nil, err
		}
		res.Runtime = time.Since(t)
		return res, nil
	case BackendLpSolve:
		return m.solveLpSolve(false)
	default:
		return nil, fmt.Errorf("unknown backend %q", m.opts.Backend)
	}
}
