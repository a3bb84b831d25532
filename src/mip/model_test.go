package mip

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/draffensperger/golp"
	"github.com/stretchr/testify/require"
)

// knapsack: max 5a + 4b + 3c s.t. 2a + 3b + c <= 5, binaries.
func knapsack() *Model {
	m := NewModel([]float64{-5, -4, -3}, nil, nil, []VarType{Binary, Binary, Binary}, Options{})
	m.AddConstraint(LessEqual([]Term{{0, 2}, {1, 3}, {2, 1}}, 5))
	return m
}

func TestConstraint_Violation(t *testing.T) {
	c := GreaterEqual([]Term{{0, 1}, {1, 2}}, 3)

	require.Equal(t, 0.0, c.Violation([]float64{1, 1}))
	require.InDelta(t, 2.0, c.Violation([]float64{1, 0}), 1e-12)
	require.Equal(t, 0.0, Equal([]Term{{0, 1}}, 2).Violation([]float64{2}))
}

func TestNewModel_DefaultBounds(t *testing.T) {
	m := NewModel([]float64{1, 1}, nil, nil, []VarType{Binary, Continuous}, Options{})

	require.Equal(t, []float64{0, 0}, m.Lower)
	require.Equal(t, 1.0, m.Upper[0])
	require.True(t, math.IsInf(m.Upper[1], 1))
	require.Equal(t, BackendHighs, m.Options().Backend)
}

func TestSolve_Knapsack(t *testing.T) {
	res, err := knapsack().Solve(context.Background())

	require.NoError(t, err)
	require.True(t, res.IsOptimal())
	require.InDelta(t, -9.0, res.Objective, 1e-6)
	require.InDeltaSlice(t, []float64{1, 1, 0}, res.Values, 1e-6)
}

func TestSolveRelaxation_Knapsack(t *testing.T) {
	res, err := knapsack().SolveRelaxation(context.Background())

	require.NoError(t, err)
	// a = 1, c = 1, b = 2/3
	require.InDelta(t, -5-3-4*2.0/3, res.Objective, 1e-6)
	require.Len(t, res.RowDuals, 1)
}

func TestSolve_Infeasible(t *testing.T) {
	m := NewModel([]float64{1}, nil, nil, []VarType{Binary}, Options{})
	m.AddConstraint(GreaterEqual([]Term{{0, 1}}, 2))

	_, err := m.Solve(context.Background())

	require.True(t, errors.Is(err, ErrInfeasible))
}

func TestSolve_LazyConstraintsRejectCandidates(t *testing.T) {
	m := knapsack()
	calls := 0
	m.OnIncumbent(func(inc *Incumbent) error {
		calls++
		// forbid selecting a and b together
		if inc.Values[0]+inc.Values[1] > 1.5 {
			inc.AddLazy(LessEqual([]Term{{0, 1}, {1, 1}}, 1))
		}
		return nil
	})

	res, err := m.Solve(context.Background())

	require.NoError(t, err)
	require.InDelta(t, -8.0, res.Objective, 1e-6)
	require.InDeltaSlice(t, []float64{1, 0, 1}, res.Values, 1e-6)
	require.GreaterOrEqual(t, calls, 2)
	require.Len(t, m.Lazy, 1)
}

func TestSolve_CallbackErrorAbortsSearch(t *testing.T) {
	m := knapsack()
	boom := errors.New("boom")
	m.OnIncumbent(func(*Incumbent) error { return boom })

	_, err := m.Solve(context.Background())

	require.ErrorIs(t, err, boom)
}

func TestSolve_CallbackBoundNeverExceedsObjective(t *testing.T) {
	m := knapsack()
	m.OnIncumbent(func(inc *Incumbent) error {
		require.LessOrEqual(t, inc.Bound, inc.Objective+1e-9)
		return nil
	})

	_, err := m.Solve(context.Background())
	require.NoError(t, err)
}

func TestSolve_LpSolveRejectsCallbacks(t *testing.T) {
	m := knapsack()
	m.SetOptions(Options{Backend: BackendLpSolve})
	m.OnIncumbent(func(*Incumbent) error { return nil })

	_, err := m.Solve(context.Background())

	require.ErrorIs(t, err, ErrCallbacksUnsupported)
}

func TestSolve_LpSolveKnapsack(t *testing.T) {
	m := knapsack()
	m.SetOptions(Options{Backend: BackendLpSolve})

	res, err := m.Solve(context.Background())

	require.NoError(t, err)
	require.InDelta(t, -9.0, res.Objective, 1e-6)
}

func TestSolve_LpSolveTimeLimit(t *testing.T) {
	m := knapsack()
	m.SetOptions(Options{Backend: BackendLpSolve, TimeLimit: time.Minute})

	res, err := m.Solve(context.Background())

	require.NoError(t, err)
	require.True(t, res.IsOptimal())
	require.InDelta(t, -9.0, res.Bound, 1e-6)
}

func TestLpSolveTimeout(t *testing.T) {
	require.Zero(t, lpSolveTimeout(0))
	require.Equal(t, 1, lpSolveTimeout(time.Millisecond))
	require.Equal(t, 90, lpSolveTimeout(90*time.Second))
}

func TestLpSolveStatus(t *testing.T) {
	testCases := []struct {
		status golp.SolutionType
		want   Status
		err    error
	}{
		{golp.OPTIMAL, StatusOptimal, nil},
		{golp.SUBOPTIMAL, StatusTimeLimit, nil},
		{golp.INFEASIBLE, StatusInfeasible, ErrInfeasible},
		{golp.TIMEOUT, StatusTimeLimit, ErrNoSolution},
		{golp.USERABORT, StatusInterrupted, ErrNoSolution},
		{golp.NUMFAILURE, 0, ErrNotOptimal},
	}
	for _, tc := range testCases {
		t.Run(tc.status.String(), func(t *testing.T) {
			got, err := lpSolveStatus(tc.status)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tc.want, got)
		})
	}
}

func TestResult_Gap(t *testing.T) {
	res := &Result{Objective: 10, Bound: 8}
	require.InDelta(t, 0.2, res.Gap(), 1e-12)

	res = &Result{Objective: math.Inf(1), Bound: 8}
	require.True(t, math.IsInf(res.Gap(), 1))
}
