package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"stochastic_network_design/src/ccndp"
	"stochastic_network_design/src/logging"
	"stochastic_network_design/src/mip"
)

const (
	modeDecomp = "decomp"
	modeRoot   = "root"
	modeDeq    = "deq"
)

func main() {
	var mode, configPath, scenarioPath, outPath, formulation, backend string
	var alpha float64
	var timeLimit time.Duration
	var paths []string

	flag.Func("inst", "a list of instance file paths, separated by a whitespace", func(s string) error {
		paths = strings.Fields(s)
		return nil
	})
	flag.StringVar(&mode, "mode", modeDecomp, "What to solve: decomp, root or deq")
	flag.StringVar(&configPath, "config", "", "YAML configuration file")
	flag.StringVar(&scenarioPath, "scen", "", "Scenario file, reads the instances as .dow base files when set")
	flag.StringVar(&outPath, "out", "", "Write the result of the last instance as JSON to this file")
	flag.StringVar(&formulation, "formulation", "", "Subproblem formulation: BB, SNC, FlowMIS or MIS")
	flag.StringVar(&backend, "backend", "", "Solver backend: highs or lpsolve")
	flag.Float64Var(&alpha, "alpha", -1, "Fraction of scenarios that may be infeasible")
	flag.DurationVar(&timeLimit, "time-limit", 0, "Solver time limit, e.g. 10m")

	flag.Parse()

	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "Must specify at least a path")
		os.Exit(1)
	}

	cfg := ccndp.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = ccndp.LoadConfig(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
	}
	if alpha >= 0 {
		cfg.Alpha = alpha
	}
	if formulation != "" {
		cfg.Formulation = ccndp.Formulation(formulation)
	}
	if backend != "" {
		cfg.Solver.Backend = mip.Backend(backend)
	}
	if timeLimit > 0 {
		cfg.Solver.TimeLimit = timeLimit
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log, os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for _, p := range paths {
		net, err := loadNetwork(p, scenarioPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error for instance \"%v\": %v. Skipping...\n", p, err)
			continue
		}

		fmt.Printf("Solving %v...\n", p)
		res, err := solve(ctx, mode, net, cfg, log.With(slog.String("instance", p)))
		if err != nil {
			fmt.Fprintf(os.Stderr, "An error occured while solving instance \"%v\": %v\n", p, err)
			continue
		}
		fmt.Printf("Instance %v:\n%v\n\n", p, res)

		if outPath != "" {
			if err := res.Save(outPath); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing %v: %v\n", outPath, err)
			}
		}
	}
}

type savable interface {
	fmt.Stringer
	Save(path string) error
}

func loadNetwork(path, scenarioPath string) (*ccndp.Network, error) {
	if scenarioPath != "" {
		return ccndp.LoadDow(path, scenarioPath)
	}
	return ccndp.LoadInstance(path)
}

func solve(ctx context.Context, mode string, net *ccndp.Network, cfg ccndp.Config, log *slog.Logger) (savable, error) {
	switch mode {
	case modeDecomp:
		master, err := ccndp.NewMasterSearch(net, cfg, log)
		if err != nil {
			return nil, err
		}
		subs, err := ccndp.NewSubproblems(net, cfg.Formulation, cfg, log)
		if err != nil {
			return nil, err
		}
		return master.SolveDecomposition(ctx, subs, cfg.CombinatorialCuts, cfg.CutsetInequalities)

	case modeRoot:
		master, err := ccndp.NewMasterSearch(net, cfg, log)
		if err != nil {
			return nil, err
		}
		return master.ComputeRootRelaxation(ctx)

	case modeDeq:
		deq, err := ccndp.NewDeterministicEquivalent(net, cfg, log)
		if err != nil {
			return nil, err
		}
		return deq.Solve(ctx, cfg.Solver.TimeLimit)

	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}
