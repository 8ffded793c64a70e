package engine

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

type ExperimentConfig struct {
	Base          Config
	Runs          int
	PlanningSteps []int
	Workers       int
}

// ExperimentResult holds steps per episode for every planning setting and
// run, plus the per-episode mean over runs.
type ExperimentResult struct {
	RunID           string      `json:"runId"`
	Algorithm       string      `json:"algorithm"`
	Episodes        int         `json:"episodes"`
	Runs            int         `json:"runs"`
	PlanningSteps   []int       `json:"planningSteps"`
	StepsPerEpisode [][][]int   `json:"stepsPerEpisode"`
	MeanSteps       [][]float64 `json:"meanSteps"`
}

// RunExperiment trains one independent agent per (planning steps, run) pair.
// Run j is seeded with Base.Seed+j so every planning setting sees the same
// seeds, and results do not depend on worker scheduling.
func RunExperiment(ctx context.Context, cfg ExperimentConfig) (ExperimentResult, error) {
	if cfg.Runs <= 0 {
		return ExperimentResult{}, invalidf("runs must be positive (got %d)", cfg.Runs)
	}
	if len(cfg.PlanningSteps) == 0 {
		return ExperimentResult{}, invalidf("at least one planning step setting is required")
	}
	for _, n := range cfg.PlanningSteps {
		if n < 0 {
			return ExperimentResult{}, invalidf("planning steps must not be negative (got %d)", n)
		}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	base := cfg.Base
	base.Seed = NormalizeSeed(base.Seed)
	if base.Episodes <= 0 {
		base.Episodes = 1
	}
	if base.Algorithm == "" {
		base.Algorithm = AlgorithmDynaQ
	}
	logger := base.Logger
	if logger == nil {
		logger = discardLogger()
	}

	result := ExperimentResult{
		RunID:           base.RunID,
		Algorithm:       base.Algorithm,
		Episodes:        base.Episodes,
		Runs:            cfg.Runs,
		PlanningSteps:   append([]int(nil), cfg.PlanningSteps...),
		StepsPerEpisode: make([][][]int, len(cfg.PlanningSteps)),
	}
	for i := range result.StepsPerEpisode {
		result.StepsPerEpisode[i] = make([][]int, cfg.Runs)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, planning := range cfg.PlanningSteps {
		i, planning := i, planning
		for j := 0; j < cfg.Runs; j++ {
			j := j
			runCfg := base
			runCfg.PlanningSteps = planning
			runCfg.Seed = base.Seed + int64(j)
			runCfg.StepDelayMs = 0
			runCfg.Logger = logger.WithFields(logrus.Fields{"planning": planning, "replicate": j})
			g.Go(func() error {
				trainer, err := NewTrainer(runCfg)
				if err != nil {
					return err
				}
				if err := trainer.Train(gctx); err != nil {
					return fmt.Errorf("planning %d run %d: %w", planning, j, err)
				}
				result.StepsPerEpisode[i][j] = trainer.StepsPerEpisode()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return ExperimentResult{}, err
	}

	result.MeanSteps = make([][]float64, len(cfg.PlanningSteps))
	for i, runs := range result.StepsPerEpisode {
		mean := make([]float64, base.Episodes)
		for _, steps := range runs {
			floats.Add(mean, toFloats(steps))
		}
		floats.Scale(1/float64(cfg.Runs), mean)
		result.MeanSteps[i] = mean
	}
	return result, nil
}

func toFloats(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
