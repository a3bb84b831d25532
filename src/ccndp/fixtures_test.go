package ccndp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// chainNetwork is 0 -> 1 -> 2 with both arcs of capacity 50 and cost 1, and a
// single commodity 0 -> 2 with demands 10 and 100.
func chainNetwork(t *testing.T) *Network {
	t.Helper()
	net, err := NewNetwork(3,
		[]Arc{
			{From: 0, To: 1, Capacity: 50, FixedCost: 1},
			{From: 1, To: 2, Capacity: 50, FixedCost: 1},
		},
		[]Commodity{{Origin: 0, Destination: 2, Demands: []float64{10, 100}}},
		nil,
	)
	require.NoError(t, err)
	return net
}

// diamondNetwork has a single commodity 0 -> 3 over
//
//	0 -> 1 (10), 0 -> 2 (5), 1 -> 3 (8), 2 -> 3 (10), 1 -> 2 (3),
//
// capacities in brackets. Building every arc carries 15 units.
func diamondNetwork(t *testing.T, demands ...float64) *Network {
	t.Helper()
	net, err := NewNetwork(4,
		[]Arc{
			{From: 0, To: 1, Capacity: 10, FixedCost: 4},
			{From: 0, To: 2, Capacity: 5, FixedCost: 2},
			{From: 1, To: 3, Capacity: 8, FixedCost: 3},
			{From: 2, To: 3, Capacity: 10, FixedCost: 2},
			{From: 1, To: 2, Capacity: 3, FixedCost: 1},
		},
		[]Commodity{{Origin: 0, Destination: 3, Demands: demands}},
		nil,
	)
	require.NoError(t, err)
	return net
}

// twoCommodityNetwork routes 0 -> 3 and 1 -> 3 through a shared hub 2.
func twoCommodityNetwork(t *testing.T) *Network {
	t.Helper()
	net, err := NewNetwork(4,
		[]Arc{
			{From: 0, To: 2, Capacity: 6, FixedCost: 2},
			{From: 1, To: 2, Capacity: 6, FixedCost: 2},
			{From: 2, To: 3, Capacity: 8, FixedCost: 3},
			{From: 0, To: 3, Capacity: 4, FixedCost: 5},
			{From: 1, To: 3, Capacity: 4, FixedCost: 5},
		},
		[]Commodity{
			{Origin: 0, Destination: 3, Demands: []float64{3, 5, 8}},
			{Origin: 1, Destination: 3, Demands: []float64{2, 5, 6}},
		},
		nil,
	)
	require.NoError(t, err)
	return net
}

// decisions enumerates every binary vector of length n.
func decisions(n int) [][]float64 {
	all := make([][]float64, 0, 1<<n)
	for mask := range 1 << n {
		y := make([]float64, n)
		for a := range n {
			if mask&(1<<a) != 0 {
				y[a] = 1
			}
		}
		all = append(all, y)
	}
	return all
}

func ones(n int) []float64 {
	y := make([]float64, n)
	for a := range y {
		y[a] = 1
	}
	return y
}

// bruteForceMaxFlow is the value of the cheapest s-t cut over all node
// subsets containing s and not t, arc a having capacity cap_a y_a.
func bruteForceMaxFlow(net *Network, y []float64, s, t int) float64 {
	best := math.Inf(1)
	for mask := range 1 << net.NumNodes {
		if mask&(1<<s) == 0 || mask&(1<<t) != 0 {
			continue
		}
		value := 0.0
		for a, arc := range net.Arcs {
			if mask&(1<<arc.From) != 0 && mask&(1<<arc.To) == 0 {
				value += arc.Capacity * y[a]
			}
		}
		best = math.Min(best, value)
	}
	return best
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Log.Level = "error"
	return cfg
}
