package ccndp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"stochastic_network_design/src/mip"
)

var (
	ErrNotSolved            = errors.New("subproblem has not been solved to optimality")
	ErrSubproblemNotOptimal = errors.New("subproblem solve did not terminate optimal")
)

// Subproblem answers whether a scenario admits a feasible flow under a fixed
// first-stage decision, and exposes the duals and flows cuts are derived
// from.
type Subproblem interface {
	Scenario() int
	System() *System

	// UpdateDecision sets the right hand side to h - T y.
	UpdateDecision(y []float64)

	Solve(ctx context.Context) error

	// Objective is the total slack of the last optimal solve.
	Objective() (float64, error)

	// IsFeasible reports whether the last optimal solve used no slack. It is
	// false when there is no such solve.
	IsFeasible() bool

	// Duals holds one value per row of System, from the last optimal solve.
	Duals() ([]float64, error)

	// Flows holds the flow values of the last optimal solve, indexed like the
	// flow columns of System.
	Flows() ([]float64, error)

	// Decision is the first-stage decision the right hand side was last
	// computed for.
	Decision() []float64
}

type scenarioSubproblem struct {
	formulation    Formulation
	sys            *System
	model          *mip.Model
	y              []float64
	feasibilityTol float64
	result         *mip.Result
}

// NewSubproblem builds the subproblem of scenario s with the given slack
// formulation. The right hand side starts at y = 0.
func NewSubproblem(net *Network, s int, f Formulation, cfg Config, log *slog.Logger) (Subproblem, error) {
	sys, err := newSystem(net, s)
	if err != nil {
		return nil, err
	}
	slacks, err := f.slackColumns(sys)
	if err != nil {
		return nil, err
	}

	numFlows := sys.NumFlows()
	numCols := numFlows + len(slacks)
	costs := make([]float64, numCols)
	upper := make([]float64, numCols)
	copy(upper, sys.FlowUpper)
	for j := numFlows; j < numCols; j++ {
		costs[j] = 1
		upper[j] = math.Inf(1)
	}

	// Duals are needed from every solve, so the subproblem always runs on
	// HiGHS whatever backend the master uses.
	opts := cfg.Solver
	opts.Backend = mip.BackendHighs
	model := mip.NewModel(costs, nil, upper, nil, opts)

	for i := range sys.NumRows() {
		terms := slices.Clone(sys.W[i])
		for c, col := range slacks {
			if col[i] != 0 {
				terms = append(terms, mip.Term{Col: numFlows + c, Val: col[i]})
			}
		}
		lo, hi := sys.Senses[i].bounds(sys.H.AtVec(i))
		model.AddConstraint(mip.Constraint{Terms: terms, Lower: lo, Upper: hi})
	}

	tol := cfg.FeasibilityTol
	if tol <= 0 {
		tol = defaultFeasibilityTol
	}
	sub := &scenarioSubproblem{
		formulation:    f,
		sys:            sys,
		model:          model,
		y:              make([]float64, net.NumArcs()),
		feasibilityTol: tol,
	}
	sub.UpdateDecision(sub.y)

	logger(log).Debug("created subproblem",
		slog.String("formulation", string(f)),
		slog.Int("scenario", s),
		slog.Int("rows", sys.NumRows()),
		slog.Int("cols", numCols))
	return sub, nil
}

// NewSubproblems builds one subproblem per scenario of net.
func NewSubproblems(net *Network, f Formulation, cfg Config, log *slog.Logger) ([]Subproblem, error) {
	subs := make([]Subproblem, net.NumScenarios())
	for s := range subs {
		sub, err := NewSubproblem(net, s, f, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("scenario %d: %w", s, err)
		}
		subs[s] = sub
	}
	return subs, nil
}

func (sub *scenarioSubproblem) Scenario() int {
	return sub.sys.Scenario
}

func (sub *scenarioSubproblem) System() *System {
	return sub.sys
}

func (sub *scenarioSubproblem) Decision() []float64 {
	return sub.y
}

func (sub *scenarioSubproblem) UpdateDecision(y []float64) {
	sub.y = slices.Clone(y)
	sub.result = nil

	rhs := sub.sys.RHS(sub.y)
	for i := range sub.model.Rows {
		sub.model.Rows[i].Lower, sub.model.Rows[i].Upper = sub.sys.Senses[i].bounds(rhs.AtVec(i))
	}
}

func (sub *scenarioSubproblem) Solve(ctx context.Context) error {
	sub.result = nil
	res, err := sub.model.SolveRelaxation(ctx)
	if err != nil {
		return fmt.Errorf("%v subproblem, scenario %d: %w: %w", sub.formulation, sub.Scenario(), ErrSubproblemNotOptimal, err)
	}
	sub.result = res
	return nil
}

func (sub *scenarioSubproblem) Objective() (float64, error) {
	if sub.result == nil {
		return 0, ErrNotSolved
	}
	return sub.result.Objective, nil
}

func (sub *scenarioSubproblem) IsFeasible() bool {
	obj, err := sub.Objective()
	return err == nil && obj < sub.feasibilityTol
}

func (sub *scenarioSubproblem) Duals() ([]float64, error) {
	if sub.result == nil {
		return nil, ErrNotSolved
	}
	return sub.result.RowDuals, nil
}

func (sub *scenarioSubproblem) Flows() ([]float64, error) {
	if sub.result == nil {
		return nil, ErrNotSolved
	}
	return sub.result.Values[:sub.sys.NumFlows()], nil
}
