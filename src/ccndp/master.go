package ccndp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"stochastic_network_design/src/mip"
)

var ErrNoIncumbent = errors.New("lazy cuts can only be added while an incumbent is evaluated")

// MasterSearch owns the first-stage columns y (one per arc) and the scenario
// waivers z (one per scenario) and drives the decomposition.
type MasterSearch struct {
	net   *Network
	cfg   Config
	log   *slog.Logger
	model *mip.Model
	cuts  []Cut

	// current is the incumbent under evaluation, set only inside the
	// incumbent callback.
	current *mip.Incumbent
}

// newMasterModel builds
//
//	min  c y
//	s.t. sum(z) <= alpha S,
//	     y, z binary,
//
// plus the capacity valid inequalities when enabled.
func newMasterModel(net *Network, cfg Config) *mip.Model {
	numArcs, numScenarios := net.NumArcs(), net.NumScenarios()
	numCols := numArcs + numScenarios

	costs := make([]float64, numCols)
	copy(costs, net.Costs())
	types := make([]mip.VarType, numCols)
	for j := range types {
		types[j] = mip.Binary
	}
	model := mip.NewModel(costs, nil, nil, types, cfg.Solver)

	budget := make([]mip.Term, numScenarios)
	for s := range budget {
		budget[s] = mip.Term{Col: numArcs + s, Val: 1}
	}
	model.AddConstraint(mip.LessEqual(budget, cfg.Alpha*float64(numScenarios)))

	if cfg.ValidInequalities {
		for _, row := range validInequalities(net) {
			model.AddConstraint(row)
		}
	}
	return model
}

// capacityRequirement asks the arcs in arcs to offer the demand of the
// commodities in ks, for every scenario that is not waived.
func capacityRequirement(net *Network, arcs []int, ks []int) []mip.Constraint {
	if len(arcs) == 0 || len(ks) == 0 {
		return nil
	}
	numArcs := net.NumArcs()
	var rows []mip.Constraint
	for s := range net.NumScenarios() {
		demands := net.Demands(s)
		demand := 0.0
		for _, k := range ks {
			demand += demands[k]
		}
		if demand <= 0 {
			continue
		}
		terms := make([]mip.Term, 0, len(arcs)+1)
		for _, a := range arcs {
			terms = append(terms, mip.Term{Col: a, Val: net.Arcs[a].Capacity})
		}
		terms = append(terms, mip.Term{Col: numArcs + s, Val: demand})
		rows = append(rows, mip.GreaterEqual(terms, demand))
	}
	return rows
}

// validInequalities requires, per scenario, enough capacity out of every
// origin, into every destination, and across the boundary of the origin and
// destination sets.
func validInequalities(net *Network) []mip.Constraint {
	var rows []mip.Constraint
	for _, o := range net.Origins() {
		var ks []int
		for k, c := range net.Commodities {
			if c.Origin == o {
				ks = append(ks, k)
			}
		}
		rows = append(rows, capacityRequirement(net, net.ArcsFrom(o), ks)...)
	}
	for _, d := range net.Destinations() {
		var ks []int
		for k, c := range net.Commodities {
			if c.Destination == d {
				ks = append(ks, k)
			}
		}
		rows = append(rows, capacityRequirement(net, net.ArcsTo(d), ks)...)
	}

	origins := make([]bool, net.NumNodes)
	for _, o := range net.Origins() {
		origins[o] = true
	}
	destinations := make([]bool, net.NumNodes)
	for _, d := range net.Destinations() {
		destinations[d] = true
	}

	var outArcs, inArcs, outKs, inKs []int
	for a, arc := range net.Arcs {
		if origins[arc.From] && !origins[arc.To] {
			outArcs = append(outArcs, a)
		}
		if destinations[arc.To] && !destinations[arc.From] {
			inArcs = append(inArcs, a)
		}
	}
	for k, c := range net.Commodities {
		if !origins[c.Destination] {
			outKs = append(outKs, k)
		}
		if !destinations[c.Origin] {
			inKs = append(inKs, k)
		}
	}
	// With a single origin or destination these repeat the rows above.
	if len(net.Origins()) > 1 {
		rows = append(rows, capacityRequirement(net, outArcs, outKs)...)
	}
	if len(net.Destinations()) > 1 {
		rows = append(rows, capacityRequirement(net, inArcs, inKs)...)
	}
	return rows
}

func NewMasterSearch(net *Network, cfg Config, log *slog.Logger) (*MasterSearch, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ms := &MasterSearch{
		net:   net,
		cfg:   cfg,
		log:   logger(log),
		model: newMasterModel(net, cfg),
	}
	ms.log.Debug("created master",
		slog.Int("arcs", net.NumArcs()),
		slog.Int("scenarios", net.NumScenarios()),
		slog.Int("rows", len(ms.model.Rows)))
	return ms, nil
}

// AddCut adds the cut to the master. A lazy cut is handed to the search and
// can only be added while an incumbent is evaluated; otherwise the cut
// becomes a regular row for every later solve.
func (ms *MasterSearch) AddCut(cut Cut, lazy bool) error {
	if cut.Scenario < 0 || cut.Scenario >= ms.net.NumScenarios() {
		return fmt.Errorf("cut scenario %d out of range [0, %d)", cut.Scenario, ms.net.NumScenarios())
	}
	if len(cut.Beta) != ms.net.NumArcs() {
		return fmt.Errorf("cut has %d coefficients, want %d", len(cut.Beta), ms.net.NumArcs())
	}

	row := cut.Constraint(ms.net.NumArcs())
	if lazy {
		if ms.current == nil {
			return ErrNoIncumbent
		}
		ms.current.AddLazy(row)
	} else {
		ms.model.AddConstraint(row)
	}
	ms.cuts = append(ms.cuts, cut)
	ms.log.Debug("added cut", slog.String("cut", cut.String()), slog.Bool("lazy", lazy))
	return nil
}

// Cuts returns every cut added so far, in order.
func (ms *MasterSearch) Cuts() []Cut {
	return ms.cuts
}

// ComputeRootRelaxation solves the continuous relaxation of the master and
// the master itself once each, without decomposition.
func (ms *MasterSearch) ComputeRootRelaxation(ctx context.Context) (*RootResult, error) {
	model := ms.model.Clone()

	lp, err := model.SolveRelaxation(ctx)
	if err != nil {
		return nil, fmt.Errorf("root relaxation: %w", err)
	}
	ms.log.Info("solved root relaxation", slog.Float64("obj", lp.Objective))

	ip, err := model.Solve(ctx)
	if err != nil {
		return nil, fmt.Errorf("root integer problem: %w", err)
	}
	ms.log.Info("solved root integer problem", slog.Float64("obj", ip.Objective))

	return &RootResult{
		LPRuntime:    lp.Runtime.Seconds(),
		LPObjective:  lp.Objective,
		MIPRuntime:   ip.Runtime.Seconds(),
		MIPObjective: ip.Objective,
	}, nil
}

// SolveDecomposition runs the branch and bound of the master and, on every
// incumbent, solves the subproblems of the scenarios it does not waive. Each
// infeasible one yields a feasibility cut (a metric one when configured) and
// optionally its combinatorial cut and cutset inequalities, all added lazily.
func (ms *MasterSearch) SolveDecomposition(ctx context.Context, subs []Subproblem, withCombinatorialCut, withCutsetInequalities bool) (*Result, error) {
	numArcs, numScenarios := ms.net.NumArcs(), ms.net.NumScenarios()
	if len(subs) != numScenarios {
		return nil, fmt.Errorf("got %d subproblems for %d scenarios", len(subs), numScenarios)
	}
	tol := ms.cfg.FeasibilityTol
	if tol <= 0 {
		tol = defaultFeasibilityTol
	}

	result := newResult(ms.net)
	iter := 0
	var elapsed time.Duration
	ms.model.OnIncumbent(func(inc *mip.Incumbent) error {
		ms.current = inc
		defer func() { ms.current = nil }()
		iter++

		y, z := inc.Values[:numArcs], inc.Values[numArcs:]
		result.Bounds = append(result.Bounds, inc.Bound)
		result.Objectives = append(result.Objectives, inc.Objective)
		result.RunTimes = append(result.RunTimes, (inc.Runtime - elapsed).Seconds())
		elapsed = inc.Runtime
		ms.log.Info("incumbent",
			slog.Int("iter", iter),
			slog.Float64("obj", inc.Objective),
			slog.Float64("bound", inc.Bound))

		numCuts := len(ms.cuts)
		for s, sub := range subs {
			if isSet(z[s]) {
				continue
			}
			if err := ms.evaluate(ctx, sub, y, withCombinatorialCut, withCutsetInequalities, tol); err != nil {
				return fmt.Errorf("iteration %d: %w", iter, err)
			}
		}
		ms.log.Debug("evaluated incumbent", slog.Int("iter", iter), slog.Int("cuts", len(ms.cuts)-numCuts))
		return nil
	})
	defer ms.model.OnIncumbent(nil)

	start := time.Now()
	res, err := ms.model.Solve(ctx)
	if err != nil {
		return nil, fmt.Errorf("decomposition: %w", err)
	}

	result.Decisions = slices.Clone(res.Values[:numArcs])
	result.Waivers = slices.Clone(res.Values[numArcs:])
	result.Objective = res.Objective
	result.Bound = res.Bound
	result.IsOptimal = res.IsOptimal()
	result.Gap = res.Gap()
	result.NumCuts = len(ms.cuts)
	if !result.IsOptimal {
		ms.log.Warn("search stopped before optimality",
			slog.String("status", res.Status.String()),
			slog.Float64("gap", result.Gap))
	}
	ms.log.Info("solved decomposition",
		slog.Float64("obj", result.Objective),
		slog.Float64("bound", result.Bound),
		slog.Int("iters", iter),
		slog.Int("cuts", result.NumCuts),
		slog.Duration("runtime", time.Since(start)))
	return result, nil
}

// evaluate solves sub under y and adds the cuts of an infeasible outcome.
func (ms *MasterSearch) evaluate(ctx context.Context, sub Subproblem, y []float64, withCombinatorialCut, withCutsetInequalities bool, tol float64) error {
	sub.UpdateDecision(y)
	if err := sub.Solve(ctx); err != nil {
		return err
	}
	if sub.IsFeasible() {
		return nil
	}

	var cut Cut
	var err error
	if ms.cfg.MetricCuts {
		cut, err = MetricCut(sub, ms.net)
	} else {
		cut, err = FeasibilityCut(sub)
	}
	if err != nil {
		return err
	}
	if err := ms.AddCut(cut, true); err != nil {
		return err
	}

	if withCombinatorialCut {
		if err := ms.AddCut(CombinatorialCut(y, sub.Scenario()), true); err != nil {
			return err
		}
	}

	if withCutsetInequalities {
		cuts, err := CutsetInequalities(sub, ms.net, y, tol)
		if err != nil {
			return err
		}
		for _, c := range cuts {
			if err := ms.AddCut(c, true); err != nil {
				return err
			}
		}
	}
	return nil
}
