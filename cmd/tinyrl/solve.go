package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"tabular-rl-go/internal/engine"
)

const (
	algoValueIteration  = "value-iteration"
	algoPolicyIteration = "policy-iteration"
)

type solver interface {
	engine.Policy
	Values() []float64
	Policy() []int
}

func runSolve(args []string) error {
	fs := flag.NewFlagSet("solve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	common := registerCommon(fs)
	algo := fs.String("algo", envString("algo", algoValueIteration), "planner: value-iteration or policy-iteration")
	iterations := fs.Int("iterations", envInt("iterations", 100), "value iteration sweeps")
	tolerance := fs.Float64("tolerance", envFloat("tolerance", 0), "stop value iteration early below this change (0 disables)")
	epsilon := fs.Float64("epsilon", envFloat("epsilon", engine.DefaultPolicyEpsilon), "policy evaluation threshold")
	maxSweeps := fs.Int("max-eval-sweeps", envInt("max-eval-sweeps", 100000), "policy evaluation sweep cap")
	tests := fs.Int("tests", envInt("tests", 100), "greedy test episodes after solving")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := common.validate(); err != nil {
		return err
	}
	if *iterations < 0 {
		return fmt.Errorf("iterations must not be negative (got %d)", *iterations)
	}
	if *tests < 0 {
		return fmt.Errorf("tests must not be negative (got %d)", *tests)
	}

	runID := newRunID()
	logger, err := common.logger(runID)
	if err != nil {
		return err
	}
	env, err := common.gridworld()
	if err != nil {
		return err
	}
	model := env.TransitionModel()
	opts := []engine.Option{engine.WithLogger(logger), engine.WithSeed(*common.seed)}

	log := logger.WithFields(logrus.Fields{"algo": *algo, "states": env.States(), "gamma": *common.gamma})
	var s solver
	switch *algo {
	case algoValueIteration:
		vi, err := engine.NewValueIteration(env.States(), env.Actions(), model, *common.gamma, append(opts, engine.WithTolerance(*tolerance))...)
		if err != nil {
			return err
		}
		sweeps, err := vi.Solve(*iterations)
		if err != nil {
			return err
		}
		log.WithField("sweeps", sweeps).Info("solved")
		s = vi
	case algoPolicyIteration:
		pi, err := engine.NewPolicyIteration(env.States(), env.Actions(), model, *common.gamma, *epsilon, append(opts, engine.WithMaxEvaluationSweeps(*maxSweeps))...)
		if err != nil {
			return err
		}
		passes, err := pi.Solve()
		if err != nil {
			return err
		}
		log.WithField("passes", passes).Info("solved")
		s = pi
	default:
		return fmt.Errorf("unknown algo %q", *algo)
	}

	r := newRenderer(os.Stdout, !*common.noColor)
	fmt.Println(env.String())
	r.printValues(env, s.Values())
	r.printPolicy(env, s.Policy())

	if *tests > 0 {
		avg, err := engine.EvaluatePolicy(env, s, *tests)
		if err != nil {
			return err
		}
		fmt.Printf("summary: run=%s tests=%d avg_reward=%.3f\n", runID, *tests, avg)
	}
	return nil
}
