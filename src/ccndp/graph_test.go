package ccndp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShortestDistances(t *testing.T) {
	net := diamondNetwork(t, 1)

	dist := shortestDistances(net, []float64{1, 4, 5, 1, 2}, 0)
	require.Equal(t, []float64{0, 1, 3, 4}, dist)

	// Nothing leaves node 3.
	dist = shortestDistances(net, []float64{1, 1, 1, 1, 1}, 3)
	require.Equal(t, 0.0, dist[3])
	require.True(t, math.IsInf(dist[0], 1))
}

func TestMinCut_MatchesBruteForce(t *testing.T) {
	net := diamondNetwork(t, 1)

	for _, y := range decisions(net.NumArcs()) {
		caps := make([]float64, net.NumArcs())
		for a, arc := range net.Arcs {
			caps[a] = arc.Capacity * y[a]
		}
		value, cut := minCut(net, caps, 0, 3)
		require.InDelta(t, bruteForceMaxFlow(net, y, 0, 3), value, 1e-9, "y = %v", y)

		cutValue := 0.0
		for _, a := range cut {
			cutValue += caps[a]
		}
		require.InDelta(t, value, cutValue, 1e-9, "y = %v", y)
	}
}

func TestMinCut_ClipsNegativeCapacities(t *testing.T) {
	net := chainNetwork(t)

	value, cut := minCut(net, []float64{-1e-12, 50}, 0, 2)
	require.Equal(t, 0.0, value)
	require.Equal(t, []int{0}, cut)
}
