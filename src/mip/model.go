package mip

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

var (
	ErrInfeasible           = errors.New("model is infeasible")
	ErrNoSolution           = errors.New("no integer solution found")
	ErrNotOptimal           = errors.New("solve did not terminate optimal")
	ErrCallbacksUnsupported = errors.New("backend does not support incumbent callbacks")
)

type VarType int

const (
	Continuous VarType = iota
	Binary
	Integer
)

// Term is a single coefficient of a linear expression.
type Term struct {
	Col int
	Val float64
}

// Constraint is the linear inequality Lower <= sum(Terms) <= Upper. Use
// math.Inf for a missing side.
type Constraint struct {
	Terms []Term
	Lower float64
	Upper float64
}

// GreaterEqual returns the constraint sum(terms) >= rhs.
func GreaterEqual(terms []Term, rhs float64) Constraint {
	return Constraint{Terms: terms, Lower: rhs, Upper: math.Inf(1)}
}

// LessEqual returns the constraint sum(terms) <= rhs.
func LessEqual(terms []Term, rhs float64) Constraint {
	return Constraint{Terms: terms, Lower: math.Inf(-1), Upper: rhs}
}

// Equal returns the constraint sum(terms) == rhs.
func Equal(terms []Term, rhs float64) Constraint {
	return Constraint{Terms: terms, Lower: rhs, Upper: rhs}
}

// Activity evaluates the constraint's left hand side at x.
func (c Constraint) Activity(x []float64) float64 {
	lhs := 0.0
	for _, t := range c.Terms {
		lhs += t.Val * x[t.Col]
	}
	return lhs
}

// Violation returns by how much x violates the constraint, zero if satisfied.
func (c Constraint) Violation(x []float64) float64 {
	lhs := c.Activity(x)
	return math.Max(0, math.Max(c.Lower-lhs, lhs-c.Upper))
}

// Model is a minimisation problem over bounded columns. Rows added through
// AddConstraint hold for every iterate; rows added through Incumbent.AddLazy
// are only known to the search from the moment they are added.
type Model struct {
	Costs []float64
	Lower []float64
	Upper []float64
	Types []VarType
	Rows  []Constraint
	Lazy  []Constraint

	opts        Options
	onIncumbent IncumbentFunc
}

// NewModel creates a model with the given column data. Nil bounds default to
// [0, +inf) for continuous columns and [0, 1] for binaries.
func NewModel(costs, lower, upper []float64, types []VarType, opts Options) *Model {
	n := len(costs)
	m := &Model{
		Costs: slices.Clone(costs),
		Lower: make([]float64, n),
		Upper: make([]float64, n),
		Types: make([]VarType, n),
		opts:  opts.withDefaults(),
	}
	copy(m.Types, types)
	for j := range n {
		if lower != nil {
			m.Lower[j] = lower[j]
		}
		switch {
		case upper != nil:
			m.Upper[j] = upper[j]
		case m.Types[j] == Binary:
			m.Upper[j] = 1
		default:
			m.Upper[j] = math.Inf(1)
		}
	}
	return m
}

func (m *Model) NumCols() int {
	return len(m.Costs)
}

// AddConstraint adds a row valid for every iterate. It must not be called
// while a search is running.
func (m *Model) AddConstraint(c Constraint) {
	m.Rows = append(m.Rows, c)
}

// OnIncumbent registers the function invoked, synchronously and on the search
// goroutine, for every new integer feasible candidate.
func (m *Model) OnIncumbent(fn IncumbentFunc) {
	m.onIncumbent = fn
}

func (m *Model) Options() Options {
	return m.opts
}

func (m *Model) SetOptions(opts Options) {
	m.opts = opts.withDefaults()
}

// Clone returns a deep copy without the registered callback.
func (m *Model) Clone() *Model {
	return &Model{
		Costs: slices.Clone(m.Costs),
		Lower: slices.Clone(m.Lower),
		Upper: slices.Clone(m.Upper),
		Types: slices.Clone(m.Types),
		Rows:  slices.Clone(m.Rows),
		Lazy:  slices.Clone(m.Lazy),
		opts:  m.opts,
	}
}

// Objective evaluates the objective at x.
func (m *Model) Objective(x []float64) float64 {
	obj := 0.0
	for j, c := range m.Costs {
		obj += c * x[j]
	}
	return obj
}

// IncumbentFunc reacts to a candidate solution. Returning an error aborts the
// search.
type IncumbentFunc func(inc *Incumbent) error

// Incumbent is the candidate handed to an IncumbentFunc.
type Incumbent struct {
	Values    []float64
	Objective float64
	Bound     float64
	Runtime   time.Duration

	lazy []Constraint
}

// AddLazy registers a lazy constraint. Only valid inside the callback.
func (inc *Incumbent) AddLazy(c Constraint) {
	inc.lazy = append(inc.lazy, c)
}

type Status int

const (
	StatusOptimal Status = iota
	StatusTimeLimit
	StatusNodeLimit
	StatusInfeasible
	StatusInterrupted
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusTimeLimit:
		return "time limit"
	case StatusNodeLimit:
		return "node limit"
	case StatusInfeasible:
		return "infeasible"
	case StatusInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result holds the outcome of a solve. RowDuals and ColumnDuals are only set
// for continuous solves that terminated optimal.
type Result struct {
	Status      Status
	Values      []float64
	Objective   float64
	Bound       float64
	RowDuals    []float64
	ColumnDuals []float64
	Nodes       int
	Runtime     time.Duration
}

func (r *Result) IsOptimal() bool {
	return r.Status == StatusOptimal
}

// Gap is the relative optimality gap between objective and bound.
func (r *Result) Gap() float64 {
	if math.IsInf(r.Objective, 0) || math.IsInf(r.Bound, 0) {
		return math.Inf(1)
	}
	if math.Abs(r.Objective) < eps {
		return math.Abs(r.Objective - r.Bound)
	}
	return math.Abs(r.Objective-r.Bound) / math.Abs(r.Objective)
}

func (r *Result) String() string {
	s := new(strings.Builder)
	fmt.Fprintf(s, "Status: %v\n", r.Status)
	fmt.Fprintf(s, "Objective: %f\n", r.Objective)
	fmt.Fprintf(s, "Bound: %f\n", r.Bound)
	fmt.Fprintf(s, "Nodes: %d, run-time: %v", r.Nodes, r.Runtime)
	return s.String()
}
