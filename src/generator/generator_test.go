package main

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"stochastic_network_design/src/ccndp"
)

func TestGenerateInstance(t *testing.T) {
	l := layout{sources: 2, facilities: 3, sinks: 4}
	net, nodes, err := GenerateInstance(rand.New(rand.NewSource(7)), l, 5, 20, 4)
	require.NoError(t, err)

	require.Equal(t, 9, net.NumNodes)
	require.Len(t, nodes, 9)
	require.Equal(t, 3*(2+4), net.NumArcs())
	require.Equal(t, 4, net.NumCommodities())
	require.Equal(t, 5, net.NumScenarios())

	for _, c := range net.Commodities {
		require.Equal(t, ccndp.SourceNode, nodes[c.Origin].Kind)
		require.Equal(t, ccndp.SinkNode, nodes[c.Destination].Kind)
		for _, d := range c.Demands {
			require.GreaterOrEqual(t, d, 0.0)
		}
	}

	path := filepath.Join(t.TempDir(), "inst.json")
	require.NoError(t, ccndp.SaveInstance(path, net, nodes))
	loaded, err := ccndp.LoadInstance(path)
	require.NoError(t, err)
	require.Equal(t, net.Arcs, loaded.Arcs)
	require.Equal(t, net.Commodities, loaded.Commodities)
}
