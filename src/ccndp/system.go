package ccndp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"stochastic_network_design/src/mip"
)

type Sense byte

const (
	LessEqual    Sense = '<'
	GreaterEqual Sense = '>'
	Equal        Sense = '='
)

// sign is the coefficient a slack gets in a row of this sense, such that a
// positive slack relaxes the row.
func (s Sense) sign() float64 {
	switch s {
	case GreaterEqual:
		return 1
	case LessEqual:
		return -1
	default:
		return 0
	}
}

// bounds turns "row sense rhs" into row bounds.
func (s Sense) bounds(rhs float64) (float64, float64) {
	switch s {
	case GreaterEqual:
		return rhs, math.Inf(1)
	case LessEqual:
		return math.Inf(-1), rhs
	default:
		return rhs, rhs
	}
}

type RowKind int

const (
	CapacityRow RowKind = iota
	BalanceRow
	DemandRow
)

// System is the second-stage constraint system T y + W f (senses) h of one
// scenario. Row a < NumArcs is the capacity row of arc a; balance and demand
// rows follow per commodity.
type System struct {
	Scenario int
	T        *mat.Dense
	W        [][]mip.Term
	H        *mat.VecDense
	Senses   []Sense
	Kinds    []RowKind

	// FlowUpper fixes flows into a commodity's origin and out of its
	// destination at zero.
	FlowUpper []float64

	numArcs        int
	numCommodities int
}

// flowIndex is the column of the flow of commodity k on arc a.
func (sys *System) flowIndex(a, k int) int {
	return a*sys.numCommodities + k
}

func (sys *System) NumRows() int {
	return len(sys.Senses)
}

func (sys *System) NumFlows() int {
	return len(sys.FlowUpper)
}

// FirstStageTerms returns the nonzero entries of row i of T.
func (sys *System) FirstStageTerms(i int) []mip.Term {
	var terms []mip.Term
	for a, v := range sys.T.RawRowView(i) {
		if v != 0 {
			terms = append(terms, mip.Term{Col: a, Val: v})
		}
	}
	return terms
}

// RHS returns h - T y with entries below roundingEps clipped to zero. The
// difference is only ever negative through rounding in y.
func (sys *System) RHS(y []float64) *mat.VecDense {
	ty := mat.NewVecDense(sys.NumRows(), nil)
	ty.MulVec(sys.T, mat.NewVecDense(sys.numArcs, y))

	rhs := mat.NewVecDense(sys.NumRows(), nil)
	rhs.SubVec(sys.H, ty)
	for i := range sys.NumRows() {
		rhs.SetVec(i, clip(rhs.AtVec(i)))
	}
	return rhs
}

// newSystem builds the flow formulation of scenario s:
//
//	sum_k f[a,k] - cap_a y_a <= 0      for every arc a,
//	in_k(n) - out_k(n)        = 0      for every commodity k and node n other
//	                                   than its origin and destination,
//	in_k(dest_k)             >= d_k(s) for every commodity k.
func newSystem(net *Network, s int) (*System, error) {
	if s < 0 || s >= net.NumScenarios() {
		return nil, fmt.Errorf("scenario %d out of range [0, %d)", s, net.NumScenarios())
	}

	numArcs, numCommodities := net.NumArcs(), net.NumCommodities()
	sys := &System{
		Scenario:       s,
		FlowUpper:      make([]float64, numArcs*numCommodities),
		numArcs:        numArcs,
		numCommodities: numCommodities,
	}

	for a, arc := range net.Arcs {
		for k, c := range net.Commodities {
			if arc.To == c.Origin || arc.From == c.Destination {
				continue
			}
			sys.FlowUpper[sys.flowIndex(a, k)] = math.Inf(1)
		}
	}

	var tData, h []float64
	addRow := func(t []float64, w []mip.Term, sense Sense, rhs float64, kind RowKind) {
		tData = append(tData, t...)
		h = append(h, rhs)
		sys.W = append(sys.W, w)
		sys.Senses = append(sys.Senses, sense)
		sys.Kinds = append(sys.Kinds, kind)
	}

	for a, arc := range net.Arcs {
		t := make([]float64, numArcs)
		t[a] = -arc.Capacity
		w := make([]mip.Term, 0, numCommodities)
		for k := range numCommodities {
			if sys.FlowUpper[sys.flowIndex(a, k)] > 0 {
				w = append(w, mip.Term{Col: sys.flowIndex(a, k), Val: 1})
			}
		}
		addRow(t, w, LessEqual, 0, CapacityRow)
	}

	for k, c := range net.Commodities {
		for n := range net.NumNodes {
			if n == c.Origin {
				continue
			}

			var w []mip.Term
			for _, a := range net.ArcsTo(n) {
				if col := sys.flowIndex(a, k); sys.FlowUpper[col] > 0 {
					w = append(w, mip.Term{Col: col, Val: 1})
				}
			}
			if n == c.Destination {
				addRow(make([]float64, numArcs), w, GreaterEqual, c.Demands[s], DemandRow)
				continue
			}

			for _, a := range net.ArcsFrom(n) {
				if col := sys.flowIndex(a, k); sys.FlowUpper[col] > 0 {
					w = append(w, mip.Term{Col: col, Val: -1})
				}
			}
			if len(w) > 0 {
				addRow(make([]float64, numArcs), w, Equal, 0, BalanceRow)
			}
		}
	}

	sys.T = mat.NewDense(len(h), numArcs, tData)
	sys.H = mat.NewVecDense(len(h), h)
	return sys, nil
}
