package ccndp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"stochastic_network_design/src/mip"
)

type CutKind int

const (
	FeasibilityCutKind CutKind = iota
	MetricCutKind
	CombinatorialCutKind
	CutsetKind
)

func (k CutKind) String() string {
	switch k {
	case FeasibilityCutKind:
		return "feasibility"
	case MetricCutKind:
		return "metric"
	case CombinatorialCutKind:
		return "combinatorial"
	case CutsetKind:
		return "cutset"
	default:
		return fmt.Sprintf("cut(%d)", int(k))
	}
}

// Cut is the inequality gamma z[Scenario] + beta y >= gamma: either the
// scenario is waived or the decision satisfies beta y >= gamma.
type Cut struct {
	Kind     CutKind
	Beta     []float64
	Gamma    float64
	Scenario int
}

// Constraint expresses the cut over the master columns, where the waiver of
// scenario s is column numArcs+s.
func (c Cut) Constraint(numArcs int) mip.Constraint {
	terms := make([]mip.Term, 0, len(c.Beta)+1)
	for a, b := range c.Beta {
		if b != 0 {
			terms = append(terms, mip.Term{Col: a, Val: b})
		}
	}
	terms = append(terms, mip.Term{Col: numArcs + c.Scenario, Val: c.Gamma})
	return mip.GreaterEqual(terms, c.Gamma)
}

// Lhs evaluates beta y.
func (c Cut) Lhs(y []float64) float64 {
	lhs := 0.0
	for a, b := range c.Beta {
		lhs += b * y[a]
	}
	return lhs
}

// IsViolated reports whether y, with the scenario not waived, violates the
// cut by more than tol.
func (c Cut) IsViolated(y []float64, tol float64) bool {
	return c.Lhs(y) < c.Gamma-tol
}

func (c Cut) String() string {
	return fmt.Sprintf("%v cut, scenario %d: %d arcs, gamma %g", c.Kind, c.Scenario, countNonzero(c.Beta), c.Gamma)
}

func countNonzero(v []float64) int {
	n := 0
	for _, x := range v {
		if x != 0 {
			n++
		}
	}
	return n
}

// FeasibilityCut derives beta = pi^T T and gamma = pi h from the duals pi of
// the last solve of sub.
func FeasibilityCut(sub Subproblem) (Cut, error) {
	duals, err := sub.Duals()
	if err != nil {
		return Cut{}, err
	}
	sys := sub.System()
	pi := mat.NewVecDense(len(duals), duals)

	beta := mat.NewVecDense(sys.numArcs, nil)
	beta.MulVec(sys.T.T(), pi)

	cut := Cut{
		Kind:     FeasibilityCutKind,
		Beta:     make([]float64, sys.numArcs),
		Gamma:    mat.Dot(pi, sys.H),
		Scenario: sys.Scenario,
	}
	for a := range cut.Beta {
		if b := beta.AtVec(a); math.Abs(b) >= roundingEps {
			cut.Beta[a] = b
		}
	}
	return cut, nil
}

// MetricCut strengthens the feasibility cut of sub into a metric inequality:
// with arc lengths w = max(0, -pi_cap), beta_a = w_a cap_a and gamma is the
// demand weighted sum of shortest origin-destination distances.
func MetricCut(sub Subproblem, net *Network) (Cut, error) {
	duals, err := sub.Duals()
	if err != nil {
		return Cut{}, err
	}
	sys := sub.System()

	weights := make([]float64, net.NumArcs())
	cut := Cut{
		Kind:     MetricCutKind,
		Beta:     make([]float64, net.NumArcs()),
		Scenario: sys.Scenario,
	}
	for a, arc := range net.Arcs {
		// Capacity rows come first in the system.
		weights[a] = clip(-duals[a])
		cut.Beta[a] = weights[a] * arc.Capacity
	}

	dists := make(map[int][]float64)
	for _, c := range net.Commodities {
		dist, ok := dists[c.Origin]
		if !ok {
			dist = shortestDistances(net, weights, c.Origin)
			dists[c.Origin] = dist
		}
		cut.Gamma += c.Demands[sys.Scenario] * dist[c.Destination]
	}
	return cut, nil
}

// CombinatorialCut requires at least one arc closed in y to be built unless
// scenario s is waived.
func CombinatorialCut(y []float64, s int) Cut {
	cut := Cut{
		Kind:     CombinatorialCutKind,
		Beta:     make([]float64, len(y)),
		Gamma:    1,
		Scenario: s,
	}
	for a, v := range y {
		if almostZero(v) {
			cut.Beta[a] = 1
		}
	}
	return cut
}

// CutsetInequalities yields, for every commodity whose origin outflow in the
// last solve of sub falls short of its demand, the inequality
//
//	sum_{a in delta+(S)} cap_a y_a >= d_k,
//
// where S is the source side of a minimum cut between the commodity's origin
// and destination in the network of residual capacities cap_a y_a - flow_a.
// Only inequalities violated by y are returned.
func CutsetInequalities(sub Subproblem, net *Network, y []float64, tol float64) ([]Cut, error) {
	flows, err := sub.Flows()
	if err != nil {
		return nil, err
	}
	sys := sub.System()
	s := sys.Scenario

	residual := make([]float64, net.NumArcs())
	for a, arc := range net.Arcs {
		residual[a] = arc.Capacity * y[a]
		for k := range net.Commodities {
			residual[a] -= flows[sys.flowIndex(a, k)]
		}
	}

	var cuts []Cut
	for k, c := range net.Commodities {
		demand := c.Demands[s]
		outflow := 0.0
		for _, a := range net.ArcsFrom(c.Origin) {
			outflow += flows[sys.flowIndex(a, k)]
		}
		if outflow >= demand-tol {
			continue
		}

		_, arcs := minCut(net, residual, c.Origin, c.Destination)
		cut := Cut{
			Kind:     CutsetKind,
			Beta:     make([]float64, net.NumArcs()),
			Gamma:    demand,
			Scenario: s,
		}
		for _, a := range arcs {
			cut.Beta[a] = net.Arcs[a].Capacity
		}
		if cut.IsViolated(y, tol) {
			cuts = append(cuts, cut)
		}
	}
	return cuts, nil
}
