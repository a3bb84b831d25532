package ccndp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"stochastic_network_design/src/mip"
)

// DeterministicEquivalent is the monolithic model holding the master columns
// together with the flow columns and rows of every scenario. A demand row of
// scenario s is relaxed to in + d z_s >= d, so a waived scenario needs no
// flow.
type DeterministicEquivalent struct {
	net   *Network
	log   *slog.Logger
	model *mip.Model
}

func NewDeterministicEquivalent(net *Network, cfg Config, log *slog.Logger) (*DeterministicEquivalent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model := newMasterModel(net, cfg)
	numArcs := net.NumArcs()

	for s := range net.NumScenarios() {
		sys, err := newSystem(net, s)
		if err != nil {
			return nil, err
		}
		offset := model.NumCols()
		for _, u := range sys.FlowUpper {
			model.Costs = append(model.Costs, 0)
			model.Lower = append(model.Lower, 0)
			model.Upper = append(model.Upper, u)
			model.Types = append(model.Types, mip.Continuous)
		}

		for i := range sys.NumRows() {
			terms := sys.FirstStageTerms(i)
			for _, t := range sys.W[i] {
				terms = append(terms, mip.Term{Col: offset + t.Col, Val: t.Val})
			}
			h := sys.H.AtVec(i)
			if sys.Senses[i] == GreaterEqual && h > 0 {
				terms = append(terms, mip.Term{Col: numArcs + s, Val: h})
			}
			lo, hi := sys.Senses[i].bounds(h)
			model.AddConstraint(mip.Constraint{Terms: terms, Lower: lo, Upper: hi})
		}
	}

	deq := &DeterministicEquivalent{net: net, log: logger(log), model: model}
	deq.log.Debug("created deterministic equivalent",
		slog.Int("cols", model.NumCols()),
		slog.Int("rows", len(model.Rows)))
	return deq, nil
}

// Solve runs a single solve of the model, stopping after timeLimit when it is
// positive.
func (deq *DeterministicEquivalent) Solve(ctx context.Context, timeLimit time.Duration) (*Result, error) {
	opts := deq.model.Options()
	opts.TimeLimit = timeLimit
	deq.model.SetOptions(opts)

	res, err := deq.model.Solve(ctx)
	if err != nil {
		return nil, fmt.Errorf("deterministic equivalent: %w", err)
	}
	if !res.IsOptimal() {
		deq.log.Warn("deterministic equivalent not solved to optimality",
			slog.String("status", res.Status.String()),
			slog.Float64("gap", res.Gap()))
	}

	numArcs, numScenarios := deq.net.NumArcs(), deq.net.NumScenarios()
	result := newResult(deq.net)
	result.Decisions = slices.Clone(res.Values[:numArcs])
	result.Waivers = slices.Clone(res.Values[numArcs : numArcs+numScenarios])
	result.Bounds = []float64{res.Bound}
	result.Objectives = []float64{res.Objective}
	result.RunTimes = []float64{res.Runtime.Seconds()}
	result.Bound = res.Bound
	result.Objective = res.Objective
	result.IsOptimal = res.IsOptimal()
	result.Gap = res.Gap()
	return result, nil
}
