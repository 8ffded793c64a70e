package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func experimentBase() Config {
	return Config{
		Episodes:    6,
		Seed:        17,
		Algorithm:   AlgorithmDynaQ,
		Rows:        4,
		Cols:        5,
		StepPenalty: 0.02,
		Alpha:       0.5,
	}
}

func TestRunExperimentShapesAndMeans(t *testing.T) {
	result, err := RunExperiment(context.Background(), ExperimentConfig{
		Base:          experimentBase(),
		Runs:          3,
		PlanningSteps: []int{0, 10},
		Workers:       2,
	})
	require.NoError(t, err)

	require.Len(t, result.StepsPerEpisode, 2)
	require.Len(t, result.MeanSteps, 2)
	for i := range result.PlanningSteps {
		require.Len(t, result.StepsPerEpisode[i], 3)
		require.Len(t, result.MeanSteps[i], 6)
		for ep := 0; ep < 6; ep++ {
			sum := 0
			for _, run := range result.StepsPerEpisode[i] {
				sum += run[ep]
			}
			assert.InDelta(t, float64(sum)/3, result.MeanSteps[i][ep], 1e-9)
		}
	}
}

func TestRunExperimentIgnoresScheduling(t *testing.T) {
	cfg := ExperimentConfig{Base: experimentBase(), Runs: 4, PlanningSteps: []int{5, 25}}

	cfg.Workers = 1
	serial, err := RunExperiment(context.Background(), cfg)
	require.NoError(t, err)
	cfg.Workers = 8
	parallel, err := RunExperiment(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, serial.StepsPerEpisode, parallel.StepsPerEpisode)
	assert.Equal(t, serial.MeanSteps, parallel.MeanSteps)
}

func TestRunExperimentMatchesSingleTrainer(t *testing.T) {
	base := experimentBase()
	result, err := RunExperiment(context.Background(), ExperimentConfig{Base: base, Runs: 2, PlanningSteps: []int{10}})
	require.NoError(t, err)

	single := base
	single.PlanningSteps = 10
	single.Seed = base.Seed + 1
	trainer, err := NewTrainer(single)
	require.NoError(t, err)
	require.NoError(t, trainer.Train(context.Background()))
	assert.Equal(t, trainer.StepsPerEpisode(), result.StepsPerEpisode[0][1])
}

func TestRunExperimentReportsDefaultAlgorithm(t *testing.T) {
	base := experimentBase()
	base.Algorithm = ""
	result, err := RunExperiment(context.Background(), ExperimentConfig{Base: base, Runs: 1, PlanningSteps: []int{0}})
	require.NoError(t, err)
	assert.Equal(t, AlgorithmDynaQ, result.Algorithm)
}

func TestRunExperimentRejectsBadConfig(t *testing.T) {
	_, err := RunExperiment(context.Background(), ExperimentConfig{Base: experimentBase(), Runs: 0, PlanningSteps: []int{1}})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = RunExperiment(context.Background(), ExperimentConfig{Base: experimentBase(), Runs: 1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = RunExperiment(context.Background(), ExperimentConfig{Base: experimentBase(), Runs: 1, PlanningSteps: []int{-2}})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	bad := experimentBase()
	bad.Algorithm = "td-lambda"
	_, err = RunExperiment(context.Background(), ExperimentConfig{Base: bad, Runs: 2, PlanningSteps: []int{1}})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
