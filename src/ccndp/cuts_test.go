package ccndp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stochastic_network_design/src/mip"
)

const cutTol = 1e-6

// feasibleDecisions lists, per scenario, the decisions under which the
// scenario admits a flow.
func feasibleDecisions(t *testing.T, net *Network) [][][]float64 {
	t.Helper()
	ctx := context.Background()
	subs, err := NewSubproblems(net, FormulationBB, testConfig(), nil)
	require.NoError(t, err)

	feasible := make([][][]float64, net.NumScenarios())
	for _, y := range decisions(net.NumArcs()) {
		for s, sub := range subs {
			sub.UpdateDecision(y)
			require.NoError(t, sub.Solve(ctx))
			if sub.IsFeasible() {
				feasible[s] = append(feasible[s], y)
			}
		}
	}
	return feasible
}

// requireValid checks that cut removes y and keeps every feasible decision
// of its scenario.
func requireValid(t *testing.T, cut Cut, y []float64, feasible [][]float64) {
	t.Helper()
	require.True(t, cut.IsViolated(y, cutTol), "%v does not cut off y = %v", cut, y)
	for _, yy := range feasible {
		require.False(t, cut.IsViolated(yy, cutTol), "%v cuts off feasible y = %v", cut, yy)
	}
}

func TestCuts_Validity(t *testing.T) {
	networks := map[string]*Network{
		"diamond":       diamondNetwork(t, 4, 9, 13),
		"two commodity": twoCommodityNetwork(t),
	}
	ctx := context.Background()

	for name, net := range networks {
		feasible := feasibleDecisions(t, net)
		for _, f := range Formulations {
			t.Run(name+"/"+string(f), func(t *testing.T) {
				subs, err := NewSubproblems(net, f, testConfig(), nil)
				require.NoError(t, err)

				for _, y := range decisions(net.NumArcs()) {
					for s, sub := range subs {
						sub.UpdateDecision(y)
						require.NoError(t, sub.Solve(ctx))
						if sub.IsFeasible() {
							continue
						}

						cut, err := FeasibilityCut(sub)
						require.NoError(t, err)
						require.Equal(t, FeasibilityCutKind, cut.Kind)
						require.Equal(t, s, cut.Scenario)
						requireValid(t, cut, y, feasible[s])
						require.False(t, cut.IsViolated(ones(net.NumArcs()), cutTol))

						metric, err := MetricCut(sub, net)
						require.NoError(t, err)
						requireValid(t, metric, y, feasible[s])
						require.GreaterOrEqual(t, metric.Gamma, cut.Gamma-cutTol)

						cutsets, err := CutsetInequalities(sub, net, y, cutTol)
						require.NoError(t, err)
						for _, c := range cutsets {
							requireValid(t, c, y, feasible[s])
						}
					}
				}
			})
		}
	}
}

func TestMetricCut_Chain(t *testing.T) {
	net := chainNetwork(t)
	sub, err := NewSubproblem(net, 1, FormulationFlowMIS, testConfig(), nil)
	require.NoError(t, err)

	sub.UpdateDecision([]float64{1, 1})
	require.NoError(t, sub.Solve(context.Background()))
	require.False(t, sub.IsFeasible())

	cut, err := MetricCut(sub, net)
	require.NoError(t, err)
	require.Equal(t, MetricCutKind, cut.Kind)
	require.Equal(t, 1, cut.Scenario)
	require.Greater(t, cut.Gamma, 0.0)
	require.True(t, cut.IsViolated([]float64{1, 1}, cutTol))
}

func TestCombinatorialCut(t *testing.T) {
	y := []float64{1, 0, 1, 1e-9, 0}
	cut := CombinatorialCut(y, 2)

	require.Equal(t, CombinatorialCutKind, cut.Kind)
	require.Equal(t, []float64{0, 1, 0, 1, 1}, cut.Beta)
	require.Equal(t, 1.0, cut.Gamma)
	require.Equal(t, 2, cut.Scenario)

	require.True(t, cut.IsViolated(y, cutTol))
	require.False(t, cut.IsViolated([]float64{1, 1, 1, 0, 0}, cutTol))

	row := cut.Constraint(len(y))
	require.Equal(t, mip.Term{Col: len(y) + 2, Val: 1}, row.Terms[len(row.Terms)-1])
	require.Equal(t, 1.0, row.Lower)
	// Waiving the scenario satisfies the cut.
	require.Zero(t, row.Violation([]float64{1, 0, 1, 0, 0, 0, 0, 1}))
	require.Positive(t, row.Violation([]float64{1, 0, 1, 0, 0, 0, 0, 0}))
}

func TestCutsetInequalities_Chain(t *testing.T) {
	net := chainNetwork(t)
	// Without slack on the capacity rows no flow leaves the origin.
	sub, err := NewSubproblem(net, 0, FormulationFlowMIS, testConfig(), nil)
	require.NoError(t, err)

	y := []float64{1, 0}
	sub.UpdateDecision(y)
	require.NoError(t, sub.Solve(context.Background()))
	require.False(t, sub.IsFeasible())

	cuts, err := CutsetInequalities(sub, net, y, cutTol)
	require.NoError(t, err)
	require.Len(t, cuts, 1)
	require.Equal(t, []float64{0, 50}, cuts[0].Beta)
	require.Equal(t, 10.0, cuts[0].Gamma)
	require.Equal(t, CutsetKind, cuts[0].Kind)
}

func TestCutsetInequalities_NoneWhenFeasible(t *testing.T) {
	net := chainNetwork(t)
	sub, err := NewSubproblem(net, 0, FormulationBB, testConfig(), nil)
	require.NoError(t, err)

	sub.UpdateDecision([]float64{1, 1})
	require.NoError(t, sub.Solve(context.Background()))
	cuts, err := CutsetInequalities(sub, net, []float64{1, 1}, cutTol)
	require.NoError(t, err)
	require.Empty(t, cuts)
}
