package ccndp

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Result is the outcome of a decomposition or deterministic equivalent
// solve. Bounds, Objectives and RunTimes hold one entry per incumbent
// evaluation; each run time is the seconds spent since the previous one.
type Result struct {
	Decisions     []float64 `json:"decisions"`
	DecisionNames []string  `json:"decision_names"`
	Costs         []float64 `json:"costs"`
	Waivers       []float64 `json:"waivers"`

	Bounds     []float64 `json:"bounds"`
	Objectives []float64 `json:"objectives"`
	RunTimes   []float64 `json:"run_times"`

	Bound     float64 `json:"bound"`
	Objective float64 `json:"objective"`
	IsOptimal bool    `json:"is_optimal"`
	Gap       float64 `json:"gap"`
	NumCuts   int     `json:"num_cuts"`
}

func newResult(net *Network) *Result {
	return &Result{
		DecisionNames: net.ArcNames(),
		Costs:         net.Costs(),
	}
}

// LowerBound is the final bound on the optimal cost.
func (r *Result) LowerBound() float64 {
	return r.Bound
}

// NumIters is the number of incumbents evaluated.
func (r *Result) NumIters() int {
	return len(r.Objectives)
}

// RunTime is the time from the start of the search to the last recorded
// incumbent evaluation.
func (r *Result) RunTime() float64 {
	return floats.Sum(r.RunTimes)
}

// Built returns the indices of the arcs the decision builds.
func (r *Result) Built() []int {
	var built []int
	for a, y := range r.Decisions {
		if isSet(y) {
			built = append(built, a)
		}
	}
	return built
}

// Waived returns the indices of the scenarios left infeasible.
func (r *Result) Waived() []int {
	var waived []int
	for s, z := range r.Waivers {
		if isSet(z) {
			waived = append(waived, s)
		}
	}
	return waived
}

func (r *Result) String() string {
	s := new(strings.Builder)
	fmt.Fprintf(s, "Objective: %f\n", r.Objective)
	fmt.Fprintf(s, "Bound: %f\n", r.Bound)
	fmt.Fprintf(s, "Optimal: %v, gap: %.4f\n", r.IsOptimal, r.Gap)
	fmt.Fprintf(s, "Iterations: %d, cuts: %d, run-time: %.2fs\n", r.NumIters(), r.NumCuts, r.RunTime())
	for _, a := range r.Built() {
		fmt.Fprintf(s, "%s = %.0f (cost %g)\n", r.DecisionNames[a], r.Decisions[a], r.Costs[a])
	}
	fmt.Fprintf(s, "Waived scenarios: %v", r.Waived())
	return s.String()
}

// finite replaces infinities, which JSON cannot represent, with the largest
// float of the same sign.
func finite(x float64) float64 {
	switch {
	case math.IsInf(x, 1):
		return math.MaxFloat64
	case math.IsInf(x, -1):
		return -math.MaxFloat64
	default:
		return x
	}
}

func (r *Result) Save(path string) error {
	out := *r
	out.Bound, out.Objective, out.Gap = finite(r.Bound), finite(r.Objective), finite(r.Gap)
	out.Bounds = slices.Clone(r.Bounds)
	for i, b := range out.Bounds {
		out.Bounds[i] = finite(b)
	}
	return saveJSON(path, &out)
}

func LoadResult(path string) (*Result, error) {
	r := new(Result)
	if err := loadJSON(path, r); err != nil {
		return nil, err
	}
	return r, nil
}

// RootResult reports the root diagnostics of the master, run times in
// seconds.
type RootResult struct {
	LPRuntime    float64 `json:"lp_runtime"`
	LPObjective  float64 `json:"lp_objective"`
	MIPRuntime   float64 `json:"mip_runtime"`
	MIPObjective float64 `json:"mip_objective"`
}

func (r *RootResult) String() string {
	return fmt.Sprintf("LP: %f (%.2fs)\nMIP: %f (%.2fs)", r.LPObjective, r.LPRuntime, r.MIPObjective, r.MIPRuntime)
}

func (r *RootResult) Save(path string) error {
	return saveJSON(path, r)
}

func LoadRootResult(path string) (*RootResult, error) {
	r := new(RootResult)
	if err := loadJSON(path, r); err != nil {
		return nil, err
	}
	return r, nil
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
