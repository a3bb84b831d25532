package ccndp

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

var (
	ErrInvalidNode        = errors.New("invalid node")
	ErrInvalidArc         = errors.New("invalid arc")
	ErrDuplicateCommodity = errors.New("duplicate origin-destination pair")
	ErrDemandLength       = errors.New("demands do not match the number of scenarios")
	ErrInvalidProbability = errors.New("scenario probability must be positive")
	ErrUnreachable        = errors.New("destination unreachable from origin")
)

// Arc is a candidate arc. Arcs are identified by their position in
// Network.Arcs.
type Arc struct {
	From      int     `json:"from"`
	To        int     `json:"to"`
	Capacity  float64 `json:"capacity"`
	FixedCost float64 `json:"fixed_cost"`
}

func (a Arc) String() string {
	return fmt.Sprintf("(%d, %d)", a.From, a.To)
}

// Commodity must be shipped from Origin to Destination, in the amount
// Demands[s] under scenario s.
type Commodity struct {
	Origin      int       `json:"origin"`
	Destination int       `json:"destination"`
	Demands     []float64 `json:"demands"`
}

// Network is the frozen problem data shared by every component.
type Network struct {
	NumNodes      int
	Arcs          []Arc
	Commodities   []Commodity
	Probabilities []float64

	arcsFrom     [][]int
	arcsTo       [][]int
	origins      []int
	destinations []int
}

// NewNetwork validates the data and builds the incidence lookups. Nil
// probabilities are taken to be uniform.
func NewNetwork(numNodes int, arcs []Arc, commodities []Commodity, probabilities []float64) (*Network, error) {
	if numNodes <= 0 {
		return nil, fmt.Errorf("%w: network needs at least one node", ErrInvalidNode)
	}
	if len(arcs) == 0 || len(commodities) == 0 {
		return nil, fmt.Errorf("%w: network needs at least one arc and one commodity", ErrInvalidArc)
	}

	net := &Network{
		NumNodes:    numNodes,
		Arcs:        slices.Clone(arcs),
		Commodities: slices.Clone(commodities),
		arcsFrom:    make([][]int, numNodes),
		arcsTo:      make([][]int, numNodes),
	}

	for idx, a := range net.Arcs {
		if a.From < 0 || a.From >= numNodes || a.To < 0 || a.To >= numNodes {
			return nil, fmt.Errorf("%w: arc %d %v out of range [0, %d)", ErrInvalidNode, idx, a, numNodes)
		}
		if a.From == a.To || a.Capacity < 0 || a.FixedCost < 0 {
			return nil, fmt.Errorf("%w: arc %d %v", ErrInvalidArc, idx, a)
		}
		net.arcsFrom[a.From] = append(net.arcsFrom[a.From], idx)
		net.arcsTo[a.To] = append(net.arcsTo[a.To], idx)
	}

	numScenarios := len(net.Commodities[0].Demands)
	if numScenarios == 0 {
		return nil, fmt.Errorf("%w: need at least one scenario", ErrDemandLength)
	}

	seen := make(map[[2]int]bool, len(net.Commodities))
	for k, c := range net.Commodities {
		if c.Origin < 0 || c.Origin >= numNodes || c.Destination < 0 || c.Destination >= numNodes || c.Origin == c.Destination {
			return nil, fmt.Errorf("%w: commodity %d (%d, %d)", ErrInvalidNode, k, c.Origin, c.Destination)
		}
		pair := [2]int{c.Origin, c.Destination}
		if seen[pair] {
			return nil, fmt.Errorf("%w: commodity %d (%d, %d)", ErrDuplicateCommodity, k, c.Origin, c.Destination)
		}
		seen[pair] = true

		if len(c.Demands) != numScenarios {
			return nil, fmt.Errorf("%w: commodity %d has %d demands, expected %d", ErrDemandLength, k, len(c.Demands), numScenarios)
		}
		net.Commodities[k].Demands = slices.Clone(c.Demands)

		if !slices.Contains(net.origins, c.Origin) {
			net.origins = append(net.origins, c.Origin)
		}
		if !slices.Contains(net.destinations, c.Destination) {
			net.destinations = append(net.destinations, c.Destination)
		}
	}
	slices.Sort(net.origins)
	slices.Sort(net.destinations)

	if probabilities == nil {
		net.Probabilities = make([]float64, numScenarios)
		for s := range net.Probabilities {
			net.Probabilities[s] = 1 / float64(numScenarios)
		}
	} else {
		if len(probabilities) != numScenarios {
			return nil, fmt.Errorf("%w: %d probabilities for %d scenarios", ErrDemandLength, len(probabilities), numScenarios)
		}
		for s, p := range probabilities {
			if p <= 0 {
				return nil, fmt.Errorf("%w: scenario %d has probability %v", ErrInvalidProbability, s, p)
			}
		}
		net.Probabilities = slices.Clone(probabilities)
	}

	if err := net.checkReachability(); err != nil {
		return nil, err
	}
	return net, nil
}

// checkReachability verifies that building every arc connects each
// commodity's origin to its destination.
func (net *Network) checkReachability() error {
	g := simple.NewDirectedGraph()
	for n := range net.NumNodes {
		g.AddNode(simple.Node(n))
	}
	for _, a := range net.Arcs {
		g.SetEdge(g.NewEdge(simple.Node(a.From), simple.Node(a.To)))
	}
	for k, c := range net.Commodities {
		if !topo.PathExistsIn(g, simple.Node(c.Origin), simple.Node(c.Destination)) {
			return fmt.Errorf("%w: commodity %d (%d, %d)", ErrUnreachable, k, c.Origin, c.Destination)
		}
	}
	return nil
}

func (net *Network) NumArcs() int {
	return len(net.Arcs)
}

func (net *Network) NumCommodities() int {
	return len(net.Commodities)
}

func (net *Network) NumScenarios() int {
	return len(net.Probabilities)
}

// ArcsFrom returns the indices of the arcs leaving node.
func (net *Network) ArcsFrom(node int) []int {
	return net.arcsFrom[node]
}

// ArcsTo returns the indices of the arcs entering node.
func (net *Network) ArcsTo(node int) []int {
	return net.arcsTo[node]
}

func (net *Network) Origins() []int {
	return net.origins
}

func (net *Network) Destinations() []int {
	return net.destinations
}

// Demands returns the demand of every commodity under scenario s.
func (net *Network) Demands(s int) []float64 {
	d := make([]float64, len(net.Commodities))
	for k, c := range net.Commodities {
		d[k] = c.Demands[s]
	}
	return d
}

func (net *Network) Costs() []float64 {
	costs := make([]float64, len(net.Arcs))
	for i, a := range net.Arcs {
		costs[i] = a.FixedCost
	}
	return costs
}

func (net *Network) ArcNames() []string {
	names := make([]string, len(net.Arcs))
	for i, a := range net.Arcs {
		names[i] = "y" + a.String()
	}
	return names
}

func (net *Network) String() string {
	s := new(strings.Builder)
	fmt.Fprintf(s, "N. nodes: %d\n", net.NumNodes)
	fmt.Fprintf(s, "N. arcs: %d\n", len(net.Arcs))
	fmt.Fprintf(s, "N. commodities: %d\n", len(net.Commodities))
	fmt.Fprintf(s, "N. scenarios: %d", net.NumScenarios())
	return s.String()
}
