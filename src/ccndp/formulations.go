package ccndp

import (
	"errors"
	"fmt"
)

var ErrUnknownFormulation = errors.New("unknown subproblem formulation")

// Formulation selects where slack enters a scenario subproblem. The slack
// placement decides how dense and how strong the resulting cuts are.
type Formulation string

const (
	// FormulationBB is the basic Benders subproblem
	//
	//	min  sum(s)
	//	s.t. W f + D s (senses) h - T y,  f, s >= 0,
	//
	// with one slack per inequality row and D diagonal holding the row signs.
	FormulationBB Formulation = "BB"

	// FormulationSNC is the standard normalisation condition of Balas (1997):
	// a single scalar slack enters every row with the row's sign.
	FormulationSNC Formulation = "SNC"

	// FormulationFlowMIS places the scalar slack in the demand rows only.
	FormulationFlowMIS Formulation = "FlowMIS"

	// FormulationMIS is the minimal infeasible subsystem formulation of
	// Fischetti et al. (2010): the scalar slack enters the rows that have a
	// nonzero first-stage coefficient.
	FormulationMIS Formulation = "MIS"
)

var Formulations = []Formulation{FormulationBB, FormulationSNC, FormulationFlowMIS, FormulationMIS}

func ParseFormulation(name string) (Formulation, error) {
	for _, f := range Formulations {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormulation, name)
}

// slackColumns returns the slack columns of the formulation, each as a dense
// vector of row coefficients.
func (f Formulation) slackColumns(sys *System) ([][]float64, error) {
	numRows := sys.NumRows()

	switch f {
	case FormulationBB:
		var cols [][]float64
		for i, sense := range sys.Senses {
			if sense == Equal {
				continue
			}
			col := make([]float64, numRows)
			col[i] = sense.sign()
			cols = append(cols, col)
		}
		return cols, nil

	case FormulationSNC:
		col := make([]float64, numRows)
		for i, sense := range sys.Senses {
			col[i] = sense.sign()
		}
		return [][]float64{col}, nil

	case FormulationFlowMIS:
		col := make([]float64, numRows)
		for i, kind := range sys.Kinds {
			if kind == DemandRow {
				col[i] = 1
			}
		}
		return [][]float64{col}, nil

	case FormulationMIS:
		col := make([]float64, numRows)
		for i, sense := range sys.Senses {
			if len(sys.FirstStageTerms(i)) > 0 {
				col[i] = sense.sign()
			}
		}
		return [][]float64{col}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormulation, f)
	}
}
