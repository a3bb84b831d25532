package mip

import (
	"fmt"

	"github.com/lanl/highs"
)

// defLp builds the continuous HiGHS model of m under the given column bounds,
// lazy rows appended after the regular ones.
func (m *Model) defLp(lower, upper []float64) *highs.Model {
	lp := new(highs.Model)
	lp.ColCosts = m.Costs
	lp.ColLower = lower
	lp.ColUpper = upper

	numRows := len(m.Rows) + len(m.Lazy)
	lp.RowLower = make([]float64, 0, numRows)
	lp.RowUpper = make([]float64, 0, numRows)

	addRows := func(rows []Constraint, offset int) {
		for i, c := range rows {
			for _, t := range c.Terms {
				lp.ConstMatrix = append(lp.ConstMatrix, highs.Nonzero{Row: offset + i, Col: t.Col, Val: t.Val})
			}
			lp.RowLower = append(lp.RowLower, c.Lower)
			lp.RowUpper = append(lp.RowUpper, c.Upper)
		}
	}
	addRows(m.Rows, 0)
	addRows(m.Lazy, len(m.Rows))
	return lp
}

func (m *Model) solveLp(lower, upper []float64) (*Result, error) {
	return runHighsSolver(m.defLp(lower, upper))
}

func runHighsSolver(lp *highs.Model) (*Result, error) {
	solution, err := lp.Solve()
	if err != nil {
		return nil, err
	}
	switch solution.Status {
	case highs.Optimal:
	case highs.Infeasible, highs.UnboundedOrInfeasible:
		return nil, ErrInfeasible
	default:
		return nil, fmt.Errorf("status: %v: %w", solution.Status.String(), ErrNotOptimal)
	}

	return &Result{
		Status:      StatusOptimal,
		Values:      solution.ColumnPrimal,
		Objective:   solution.Objective,
		Bound:       solution.Objective,
		RowDuals:    solution.RowDual,
		ColumnDuals: solution.ColumnDual,
	}, nil
}
