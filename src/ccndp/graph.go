package ccndp

import (
	"math"

	"gopkg.in/dnaeon/go-priorityqueue.v1"
)

// shortestDistances computes the length of the shortest path from src to
// every node of net, arc a having length weights[a] >= 0. Unreachable nodes
// are at +Inf.
func shortestDistances(net *Network, weights []float64, src int) []float64 {
	dist := make([]float64, net.NumNodes)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	dist[src] = 0

	queued := make([]bool, net.NumNodes)
	settled := make([]bool, net.NumNodes)
	pq := priorityqueue.New[int, float64](priorityqueue.MinHeap)
	pq.Put(src, 0)
	queued[src] = true

	for pq.Len() > 0 {
		u := pq.Get().Value
		queued[u] = false
		settled[u] = true

		for _, a := range net.ArcsFrom(u) {
			v := net.Arcs[a].To
			if settled[v] {
				continue
			}
			// Path src -> u -> v is no better than the best known path.
			newDist := dist[u] + weights[a]
			if newDist >= dist[v] {
				continue
			}
			dist[v] = newDist
			if queued[v] {
				pq.Update(v, newDist)
			} else {
				pq.Put(v, newDist)
				queued[v] = true
			}
		}
	}
	return dist
}

type residualEdge struct {
	to  int
	cap float64
	rev int // index of the reverse edge in nexts[to]
}

// flowGraph is a residual graph for max-flow computations. Edges are stored
// per tail node together with their reverse edge.
type flowGraph struct {
	nexts [][]residualEdge
}

func newFlowGraph(numNodes int) *flowGraph {
	return &flowGraph{nexts: make([][]residualEdge, numNodes)}
}

func (g *flowGraph) addEdge(from, to int, capacity float64) {
	g.nexts[from] = append(g.nexts[from], residualEdge{to: to, cap: capacity, rev: len(g.nexts[to])})
	g.nexts[to] = append(g.nexts[to], residualEdge{to: from, cap: 0, rev: len(g.nexts[from]) - 1})
}

type pathStep struct {
	node int
	edge int
}

// augmentingPath finds a path with the fewest edges from s to t using only
// edges of residual capacity above roundingEps. It returns nil when t cannot
// be reached.
func (g *flowGraph) augmentingPath(s, t int) []pathStep {
	parent := make([]pathStep, len(g.nexts))
	visited := make([]bool, len(g.nexts))
	visited[s] = true

	queue := []int{s}
	for i := 0; i < len(queue); i++ {
		u := queue[i]
		for e, edge := range g.nexts[u] {
			if visited[edge.to] || edge.cap <= roundingEps {
				continue
			}
			visited[edge.to] = true
			parent[edge.to] = pathStep{node: u, edge: e}
			if edge.to == t {
				path := []pathStep{}
				for v := t; v != s; v = parent[v].node {
					path = append(path, parent[v])
				}
				return path
			}
			queue = append(queue, edge.to)
		}
	}
	return nil
}

// maxFlow pushes as much flow as possible from s to t with the
// Edmonds-Karp algorithm, leaving the residual capacities in g.
func (g *flowGraph) maxFlow(s, t int) float64 {
	total := 0.0
	for {
		path := g.augmentingPath(s, t)
		if path == nil {
			return total
		}

		bottleneck := math.Inf(1)
		for _, step := range path {
			bottleneck = math.Min(bottleneck, g.nexts[step.node][step.edge].cap)
		}
		for _, step := range path {
			edge := &g.nexts[step.node][step.edge]
			edge.cap -= bottleneck
			g.nexts[edge.to][edge.rev].cap += bottleneck
		}
		total += bottleneck
	}
}

// sourceSide returns the nodes reachable from s over edges with positive
// residual capacity. After maxFlow this is the source side of a minimum cut.
func (g *flowGraph) sourceSide(s int) []bool {
	reached := make([]bool, len(g.nexts))
	reached[s] = true
	stack := []int{s}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, edge := range g.nexts[u] {
			if !reached[edge.to] && edge.cap > roundingEps {
				reached[edge.to] = true
				stack = append(stack, edge.to)
			}
		}
	}
	return reached
}

// minCut computes a minimum s-t cut of net under the given arc capacities.
// It returns the cut value and the indices of the arcs leaving the source
// side.
func minCut(net *Network, capacities []float64, s, t int) (float64, []int) {
	g := newFlowGraph(net.NumNodes)
	for a, arc := range net.Arcs {
		g.addEdge(arc.From, arc.To, clip(capacities[a]))
	}
	value := g.maxFlow(s, t)
	side := g.sourceSide(s)

	var cut []int
	for a, arc := range net.Arcs {
		if side[arc.From] && !side[arc.To] {
			cut = append(cut, a)
		}
	}
	return value, cut
}
