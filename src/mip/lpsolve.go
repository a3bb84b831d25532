package mip

import (
	"fmt"
	"math"
	"time"

	"github.com/draffensperger/golp"
)

// defLpSolve loads m into an lp_solve problem. Ranged rows become a pair of
// one-sided rows.
func (m *Model) defLpSolve(integral bool) (*golp.LP, error) {
	lp := golp.NewLP(0, m.NumCols())
	lp.SetObjFn(m.Costs)

	for j := range m.NumCols() {
		lp.SetBounds(j, m.Lower[j], m.Upper[j])
		if integral && m.Types[j] != Continuous {
			lp.SetInt(j, true)
		}
	}

	rows := append(append([]Constraint{}, m.Rows...), m.Lazy...)
	for i, c := range rows {
		entries := make([]golp.Entry, len(c.Terms))
		for k, t := range c.Terms {
			entries[k] = golp.Entry{Col: t.Col, Val: t.Val}
		}

		var err error
		switch {
		case c.Lower == c.Upper:
			err = lp.AddConstraintSparse(entries, golp.EQ, c.Lower)
		default:
			if !math.IsInf(c.Lower, -1) {
				err = lp.AddConstraintSparse(entries, golp.GE, c.Lower)
			}
			if err == nil && !math.IsInf(c.Upper, 1) {
				err = lp.AddConstraintSparse(entries, golp.LE, c.Upper)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return lp, nil
}

// lpSolveTimeout converts a time limit to the whole seconds lp_solve takes,
// rounding up so a positive limit never disables the timeout.
func lpSolveTimeout(limit time.Duration) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(limit.Seconds()))
}

// lpSolveStatus maps an lp_solve outcome to a Status. SUBOPTIMAL means the
// timeout hit after an integer solution was found.
func lpSolveStatus(status golp.SolutionType) (Status, error) {
	switch status {
	case golp.OPTIMAL:
		return StatusOptimal, nil
	case golp.SUBOPTIMAL:
		return StatusTimeLimit, nil
	case golp.INFEASIBLE:
		return StatusInfeasible, ErrInfeasible
	case golp.TIMEOUT:
		return StatusTimeLimit, ErrNoSolution
	case golp.USERABORT:
		return StatusInterrupted, ErrNoSolution
	default:
		return 0, fmt.Errorf("status: %v: %w", status, ErrNotOptimal)
	}
}

// solveLpSolve solves m once with lp_solve, under the time limit of its
// options. The bound is only known when the solve terminates optimal.
func (m *Model) solveLpSolve(integral bool) (*Result, error) {
	t := time.Now()
	lp, err := m.defLpSolve(integral)
	if err != nil {
		return nil, err
	}
	lp.SetTimeout(lpSolveTimeout(m.opts.TimeLimit))

	status, err := lpSolveStatus(lp.Solve())
	if err != nil {
		return nil, err
	}

	res := &Result{
		Status:    status,
		Values:    lp.Variables(),
		Objective: lp.Objective(),
		Bound:     math.Inf(-1),
		Nodes:     1,
		Runtime:   time.Since(t),
	}
	if status == StatusOptimal {
		res.Bound = res.Objective
	}
	return res, nil
}
