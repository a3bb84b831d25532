package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"

	"stochastic_network_design/src/ccndp"
)

type layout struct {
	sources, facilities, sinks int
}

func (l layout) numNodes() int {
	return l.sources + l.facilities + l.sinks
}

// GenerateInstance lays out sources, facilities and sinks in the unit square
// and connects every source to every facility and every facility to every
// sink. Arc costs grow with their length; each sink is supplied by one random
// source with normally distributed demand.
func GenerateInstance(rng *rand.Rand, l layout, numScenarios int, meanDemand, stdDevDemand float64) (*ccndp.Network, []ccndp.Node, error) {
	nodes := make([]ccndp.Node, l.numNodes())
	for i := range nodes {
		kind := ccndp.FacilityNode
		switch {
		case i < l.sources:
			kind = ccndp.SourceNode
		case i >= l.sources+l.facilities:
			kind = ccndp.SinkNode
		}
		nodes[i] = ccndp.Node{Kind: kind, Loc: [2]float64{rng.Float64(), rng.Float64()}}
	}

	capacity := meanDemand * float64(l.sinks) / float64(l.facilities)
	var arcs []ccndp.Arc
	connect := func(from, to int) {
		dx := nodes[from].Loc[0] - nodes[to].Loc[0]
		dy := nodes[from].Loc[1] - nodes[to].Loc[1]
		arcs = append(arcs, ccndp.Arc{
			From:      from,
			To:        to,
			Capacity:  math.Round(capacity * (0.5 + rng.Float64())),
			FixedCost: math.Round(100*math.Hypot(dx, dy)) + 1,
		})
	}
	for f := l.sources; f < l.sources+l.facilities; f++ {
		for s := range l.sources {
			connect(s, f)
		}
		for t := l.sources + l.facilities; t < l.numNodes(); t++ {
			connect(f, t)
		}
	}

	commodities := make([]ccndp.Commodity, l.sinks)
	for k := range commodities {
		demands := make([]float64, numScenarios)
		for s := range demands {
			demands[s] = math.Round(math.Max(0, meanDemand+stdDevDemand*rng.NormFloat64()))
		}
		commodities[k] = ccndp.Commodity{
			Origin:      rng.Intn(l.sources),
			Destination: l.sources + l.facilities + k,
			Demands:     demands,
		}
	}

	net, err := ccndp.NewNetwork(l.numNodes(), arcs, commodities, nil)
	if err != nil {
		return nil, nil, err
	}
	return net, nodes, nil
}

func main() {
	var outPath string
	var l layout
	var numScenarios int
	var meanDemand, stdDevDemand float64
	var seed int64

	flag.StringVar(&outPath, "out", "out.json", "The output file")
	flag.IntVar(&l.sources, "sources", 0, "The number of source nodes")
	flag.IntVar(&l.facilities, "facilities", 0, "The number of facility nodes")
	flag.IntVar(&l.sinks, "sinks", 0, "The number of sink nodes, one commodity each")
	flag.IntVar(&numScenarios, "scenarios", 0, "The number of demand scenarios")
	flag.Float64Var(&meanDemand, "meand", 0, "The demand mean")
	flag.Float64Var(&stdDevDemand, "stddevd", 0, "The demand standard deviation")
	flag.Int64Var(&seed, "seed", 1, "The random seed")

	flag.Parse()

	err := false
	if l.sources == 0 {
		fmt.Fprintln(os.Stderr, "Must specify the number of sources")
		err = true
	}
	if l.facilities == 0 {
		fmt.Fprintln(os.Stderr, "Must specify the number of facilities")
		err = true
	}
	if l.sinks == 0 {
		fmt.Fprintln(os.Stderr, "Must specify the number of sinks")
		err = true
	}
	if numScenarios == 0 {
		fmt.Fprintln(os.Stderr, "Must specify the number of scenarios")
		err = true
	}
	if meanDemand == 0 {
		fmt.Fprintln(os.Stderr, "Must specify the demand mean")
		err = true
	}

	if err {
		os.Exit(1)
	}

	net, nodes, genErr := GenerateInstance(rand.New(rand.NewSource(seed)), l, numScenarios, meanDemand, stdDevDemand)
	if genErr != nil {
		fmt.Fprintln(os.Stderr, genErr)
		os.Exit(1)
	}
	if saveErr := ccndp.SaveInstance(outPath, net, nodes); saveErr != nil {
		fmt.Fprintln(os.Stderr, saveErr)
		os.Exit(1)
	}
}
