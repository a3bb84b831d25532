package mip

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"gopkg.in/dnaeon/go-priorityqueue.v1"
)

const lazyViolationTol = 1e-6

type bbNode struct {
	lower []float64
	upper []float64
	bound float64
}

// branchingColumn returns the most fractional integer column, or -1 when x is
// integral.
func (m *Model) branchingColumn(x []float64) int {
	col, frac := -1, m.opts.IntegralityTol
	for j, t := range m.Types {
		if t == Continuous {
			continue
		}
		f := math.Abs(x[j] - math.Round(x[j]))
		if f > frac {
			col, frac = j, f
		}
	}
	return col
}

func (m *Model) roundIntegers(x []float64) []float64 {
	rounded := slices.Clone(x)
	for j, t := range m.Types {
		if t != Continuous {
			rounded[j] = math.Round(x[j])
		}
	}
	return rounded
}

func (m *Model) gapClosed(bound, incumbent float64) bool {
	if math.IsInf(incumbent, 1) {
		return false
	}
	return incumbent-bound <= m.opts.GapTol*math.Max(1, math.Abs(incumbent))
}

func anyViolated(rows []Constraint, x []float64) bool {
	for _, c := range rows {
		if c.Violation(x) > lazyViolationTol {
			return true
		}
	}
	return false
}

// branchAndBound runs a best-bound search over LP relaxations solved with
// HiGHS. Integer feasible LP solutions are passed to the incumbent callback;
// a candidate that violates a lazy row added by the callback is rejected and
// its node is solved again with the new rows.
func (m *Model) branchAndBound(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{
		Status:    StatusOptimal,
		Objective: math.Inf(1),
		Bound:     math.Inf(-1),
	}
	var best []float64

	open := make(map[int]*bbNode)
	pq := priorityqueue.New[int, float64](priorityqueue.MinHeap)
	nextID := 0
	push := func(n *bbNode) {
		open[nextID] = n
		pq.Put(nextID, n.bound)
		nextID++
	}
	push(&bbNode{
		lower: slices.Clone(m.Lower),
		upper: slices.Clone(m.Upper),
		bound: math.Inf(-1),
	})

	for pq.Len() > 0 {
		if ctx.Err() != nil {
			res.Status = StatusInterrupted
			break
		}
		if m.opts.TimeLimit > 0 && time.Since(start) > m.opts.TimeLimit {
			res.Status = StatusTimeLimit
			break
		}
		if m.opts.NodeLimit > 0 && res.Nodes >= m.opts.NodeLimit {
			res.Status = StatusNodeLimit
			break
		}

		item := pq.Get()
		n := open[item.Value]
		delete(open, item.Value)

		if m.gapClosed(n.bound, res.Objective) {
			open[item.Value] = n
			break
		}

		lp, err := m.solveLp(n.lower, n.upper)
		res.Nodes++
		if errors.Is(err, ErrInfeasible) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", res.Nodes, err)
		}
		if m.gapClosed(lp.Objective, res.Objective) {
			continue
		}

		if j := m.branchingColumn(lp.Values); j >= 0 {
			v := lp.Values[j]
			down := &bbNode{lower: slices.Clone(n.lower), upper: slices.Clone(n.upper), bound: lp.Objective}
			down.upper[j] = math.Floor(v)
			up := &bbNode{lower: slices.Clone(n.lower), upper: slices.Clone(n.upper), bound: lp.Objective}
			up.lower[j] = math.Ceil(v)
			push(down)
			push(up)
			continue
		}

		candidate := m.roundIntegers(lp.Values)
		obj := m.Objective(candidate)
		if m.onIncumbent != nil {
			bound := n.bound
			if pq.Len() == 0 || math.IsInf(bound, -1) {
				bound = lp.Objective
			}
			inc := &Incumbent{
				Values:    candidate,
				Objective: obj,
				Bound:     math.Min(bound, math.Min(obj, res.Objective)),
				Runtime:   time.Since(start),
			}
			if err := m.onIncumbent(inc); err != nil {
				return nil, err
			}
			if len(inc.lazy) > 0 {
				m.Lazy = append(m.Lazy, inc.lazy...)
				if anyViolated(inc.lazy, candidate) {
					n.bound = lp.Objective
					push(n)
					continue
				}
			}
		}

		if obj < res.Objective {
			res.Objective = obj
			best = candidate
		}
	}

	res.Runtime = time.Since(start)
	res.Bound = res.Objective
	for _, n := range open {
		res.Bound = math.Min(res.Bound, n.bound)
	}

	if best == nil {
		if res.Status == StatusOptimal {
			return nil, ErrInfeasible
		}
		return nil, fmt.Errorf("%v after %d nodes: %w", res.Status, res.Nodes, ErrNoSolution)
	}
	res.Values = best
	return res, nil
}
