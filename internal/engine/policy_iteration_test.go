package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyIterationTwoStateOptimum(t *testing.T) {
	pi, err := NewPolicyIteration(2, 2, loopOrExit(), 0.9, DefaultPolicyEpsilon)
	require.NoError(t, err)

	passes, err := pi.Solve()
	require.NoError(t, err)
	assert.Equal(t, 1, passes, "the zero policy already loops")
	assert.Equal(t, []int{0, 0}, pi.Policy())
	assert.InDelta(t, 5.0, pi.Values()[0], 1e-8)

	q, err := pi.Q(0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, q, 1e-12)
}

func TestPolicyIterationImprovesBadStartingPolicy(t *testing.T) {
	// Action 0 loops with nothing; action 1 reaches the reward.
	model := TransitionModel{
		{
			{{Probability: 1, NextState: 0}},
			{{Probability: 1, NextState: 1, Reward: 1, Terminal: true}},
		},
		{
			{{Probability: 1, NextState: 1, Terminal: true}},
			{{Probability: 1, NextState: 1, Terminal: true}},
		},
	}
	pi, err := NewPolicyIteration(2, 2, model, 0.9, DefaultPolicyEpsilon)
	require.NoError(t, err)

	passes, err := pi.Solve()
	require.NoError(t, err)
	assert.Equal(t, 2, passes)
	assert.Equal(t, []int{1, 0}, pi.Policy())
	assert.InDelta(t, 1.0, pi.Values()[0], 1e-9)
}

func randomDeterministicMDP(rng *rand.Rand, states, actions int) TransitionModel {
	model := make(TransitionModel, states)
	for s := range model {
		model[s] = make([][]Outcome, actions)
		for a := range model[s] {
			model[s][a] = []Outcome{{
				Probability: 1,
				NextState:   rng.Intn(states),
				Reward:      rng.Float64()*4 - 2,
			}}
		}
	}
	return model
}

func TestPolicyIterationTerminatesWithinStatesTimesActions(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 25; trial++ {
		states := 2 + rng.Intn(6)
		actions := 2 + rng.Intn(3)
		model := randomDeterministicMDP(rng, states, actions)

		pi, err := NewPolicyIteration(states, actions, model, 0.9, 1e-9)
		require.NoError(t, err)
		passes, err := pi.Solve()
		require.NoError(t, err)
		assert.LessOrEqual(t, passes, states*actions, "trial %d", trial)

		vi, err := NewValueIteration(states, actions, model, 0.9)
		require.NoError(t, err)
		_, err = vi.Solve(600)
		require.NoError(t, err)
		assert.InDeltaSlice(t, vi.Values(), pi.Values(), 1e-6, "trial %d", trial)
	}
}

func TestPolicyIterationNonConvergence(t *testing.T) {
	model := TransitionModel{{{{Probability: 1, NextState: 0, Reward: 1}}}}
	pi, err := NewPolicyIteration(1, 1, model, 1, DefaultPolicyEpsilon, WithMaxEvaluationSweeps(50))
	require.NoError(t, err)

	_, err = pi.Solve()
	assert.ErrorIs(t, err, ErrNonConvergence)
}

func TestPolicyIterationRejectsBadInput(t *testing.T) {
	_, err := NewPolicyIteration(2, 2, loopOrExit(), 0.9, 1.5)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewPolicyIteration(2, 2, loopOrExit(), 0.9, DefaultPolicyEpsilon, WithMaxEvaluationSweeps(0))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewPolicyIteration(-1, 2, loopOrExit(), 0.9, DefaultPolicyEpsilon)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	pi, err := NewPolicyIteration(2, 2, loopOrExit(), 0.9, DefaultPolicyEpsilon)
	require.NoError(t, err)
	_, err = pi.Q(0, 2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = pi.GetAction(-1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPolicyIterationResetClearsTables(t *testing.T) {
	model := TransitionModel{
		{
			{{Probability: 1, NextState: 0}},
			{{Probability: 1, NextState: 1, Reward: 1, Terminal: true}},
		},
		{
			{{Probability: 1, NextState: 1, Terminal: true}},
			{{Probability: 1, NextState: 1, Terminal: true}},
		},
	}
	pi, err := NewPolicyIteration(2, 2, model, 0.9, DefaultPolicyEpsilon)
	require.NoError(t, err)
	_, err = pi.Solve()
	require.NoError(t, err)
	require.Equal(t, 1, pi.Policy()[0])

	pi.Reset()
	assert.Equal(t, []int{0, 0}, pi.Policy())
	assert.Equal(t, []float64{0, 0}, pi.Values())
}
