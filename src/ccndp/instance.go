package ccndp

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

var (
	ErrInvalidNodeKind = errors.New("invalid node kind")
	ErrMalformedFile   = errors.New("malformed instance file")
)

type NodeKind string

const (
	SourceNode   NodeKind = "source"
	FacilityNode NodeKind = "facility"
	SinkNode     NodeKind = "sink"
)

// Node is the optional description of a node in an instance file.
type Node struct {
	Kind NodeKind   `json:"kind"`
	Loc  [2]float64 `json:"loc"`
}

// Instance is the JSON layout of a problem instance.
type Instance struct {
	NumNodes      int         `json:"num_nodes"`
	Nodes         []Node      `json:"nodes,omitempty"`
	Arcs          []Arc       `json:"arcs"`
	Commodities   []Commodity `json:"commodities"`
	Probabilities []float64   `json:"probabilities,omitempty"`
}

// Network validates the instance and builds its network.
func (inst *Instance) Network() (*Network, error) {
	if len(inst.Nodes) > 0 && len(inst.Nodes) != inst.NumNodes {
		return nil, fmt.Errorf("%w: %d node descriptions for %d nodes", ErrInvalidNode, len(inst.Nodes), inst.NumNodes)
	}
	for i, n := range inst.Nodes {
		switch n.Kind {
		case SourceNode, FacilityNode, SinkNode:
		default:
			return nil, fmt.Errorf("%w: node %d has kind %q", ErrInvalidNodeKind, i, n.Kind)
		}
	}
	return NewNetwork(inst.NumNodes, inst.Arcs, inst.Commodities, inst.Probabilities)
}

func ReadInstance(r io.Reader) (*Network, error) {
	inst := new(Instance)
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(inst); err != nil {
		return nil, err
	}
	return inst.Network()
}

func LoadInstance(path string) (*Network, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	net, err := ReadInstance(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return net, nil
}

// SaveInstance writes net in the JSON instance format.
func SaveInstance(path string, net *Network, nodes []Node) error {
	return saveJSON(path, &Instance{
		NumNodes:      net.NumNodes,
		Nodes:         nodes,
		Arcs:          net.Arcs,
		Commodities:   net.Commodities,
		Probabilities: net.Probabilities,
	})
}

// lineParser reads whitespace separated numeric records, skipping blank lines.
type lineParser struct {
	scanner *bufio.Scanner
	line    int
}

func newLineParser(r io.Reader) *lineParser {
	return &lineParser{scanner: bufio.NewScanner(r)}
}

func (p *lineParser) next() ([]string, error) {
	for p.scanner.Scan() {
		p.line++
		if fields := strings.Fields(p.scanner.Text()); len(fields) > 0 {
			return fields, nil
		}
	}
	if err := p.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.ErrUnexpectedEOF
}

// floats parses the next record, which must have at least n fields.
func (p *lineParser) floats(n int) ([]float64, error) {
	fields, err := p.next()
	if err != nil {
		return nil, err
	}
	if len(fields) < n {
		return nil, fmt.Errorf("line %d: got %d fields, want at least %d", p.line, len(fields), n)
	}
	vals := make([]float64, len(fields))
	for i, tok := range fields {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", p.line, err)
		}
		vals[i] = v
	}
	return vals, nil
}

func (p *lineParser) ints(n int) ([]int, error) {
	vals, err := p.floats(n)
	if err != nil {
		return nil, err
	}
	ints := make([]int, len(vals))
	for i, v := range vals {
		if ints[i], err = p.integer(v); err != nil {
			return nil, err
		}
	}
	return ints, nil
}

func (p *lineParser) integer(v float64) (int, error) {
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, fmt.Errorf("line %d: %v is not an integer", p.line, v)
	}
	return int(v), nil
}

// count checks a record count read on the current line.
func (p *lineParser) count(v, least int, what string) error {
	if v < least {
		return fmt.Errorf("line %d: %w: %d %s", p.line, ErrMalformedFile, v, what)
	}
	return nil
}

// dowBase is the deterministic part of a .dow file: nodes are numbered from
// one, arc records read "from to variable-cost capacity fixed-cost ...", and
// commodity records "origin destination demand".
type dowBase struct {
	numNodes    int
	arcs        []Arc
	commodities []Commodity
}

func parseDow(r io.Reader) (*dowBase, error) {
	p := newLineParser(r)

	// The first line holds the generator name.
	if _, err := p.next(); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	sizes, err := p.ints(3)
	if err != nil {
		return nil, fmt.Errorf("parsing sizes: %w", err)
	}
	for i, what := range []string{"nodes", "arcs", "commodities"} {
		if err := p.count(sizes[i], 0, what); err != nil {
			return nil, fmt.Errorf("parsing sizes: %w", err)
		}
	}

	// A count beyond the records in the file fails on the first missing one.
	base := &dowBase{numNodes: sizes[0]}
	for i := range sizes[1] {
		rec, err := p.floats(5)
		if err != nil {
			return nil, fmt.Errorf("parsing arc %d: %w", i, err)
		}
		from, err := p.integer(rec[0])
		if err != nil {
			return nil, fmt.Errorf("parsing arc %d: %w", i, err)
		}
		to, err := p.integer(rec[1])
		if err != nil {
			return nil, fmt.Errorf("parsing arc %d: %w", i, err)
		}
		base.arcs = append(base.arcs, Arc{
			From:      from - 1,
			To:        to - 1,
			Capacity:  rec[3],
			FixedCost: rec[4],
		})
	}
	for k := range sizes[2] {
		rec, err := p.ints(2)
		if err != nil {
			return nil, fmt.Errorf("parsing commodity %d: %w", k, err)
		}
		base.commodities = append(base.commodities, Commodity{Origin: rec[0] - 1, Destination: rec[1] - 1})
	}
	return base, nil
}

// parseScenarios reads a scenario file: the number of scenarios, then one
// record "probability d_1 ... d_K" per scenario.
func parseScenarios(r io.Reader, numCommodities int) ([]float64, [][]float64, error) {
	p := newLineParser(r)
	header, err := p.ints(1)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing number of scenarios: %w", err)
	}
	if err := p.count(header[0], 1, "scenarios"); err != nil {
		return nil, nil, fmt.Errorf("parsing number of scenarios: %w", err)
	}

	var probs []float64
	var demands [][]float64
	for s := range header[0] {
		rec, err := p.floats(numCommodities + 1)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing scenario %d: %w", s, err)
		}
		probs = append(probs, rec[0])
		demands = append(demands, rec[1:numCommodities+1])
	}
	return probs, demands, nil
}

// LoadDow builds a network from a .dow base file and a scenario file holding
// the demands of its commodities.
func LoadDow(basePath, scenarioPath string) (*Network, error) {
	baseFile, err := os.Open(basePath)
	if err != nil {
		return nil, err
	}
	defer baseFile.Close()
	base, err := parseDow(baseFile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", basePath, err)
	}

	scenFile, err := os.Open(scenarioPath)
	if err != nil {
		return nil, err
	}
	defer scenFile.Close()
	probs, demands, err := parseScenarios(scenFile, len(base.commodities))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", scenarioPath, err)
	}

	for k := range base.commodities {
		base.commodities[k].Demands = make([]float64, len(demands))
		for s := range demands {
			base.commodities[k].Demands[s] = demands[s][k]
		}
	}
	return NewNetwork(base.numNodes, base.arcs, base.commodities, probs)
}
