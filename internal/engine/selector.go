package engine

import (
	"fmt"
	"math/rand"
)

type SelectionMode string

const (
	ModeRandom        SelectionMode = "random"
	ModeGreedy        SelectionMode = "greedy"
	ModeEpsilonGreedy SelectionMode = "epsilon-greedy"
)

func ParseSelectionMode(s string) (SelectionMode, error) {
	switch mode := SelectionMode(s); mode {
	case ModeRandom, ModeGreedy, ModeEpsilonGreedy:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
}

// SelectAction picks an action from one row of action values.
func SelectAction(rng *rand.Rand, values []float64, mode SelectionMode, epsilon float64) (int, error) {
	if len(values) == 0 {
		return 0, invalidf("cannot select from an empty value row")
	}
	switch mode {
	case ModeRandom:
		return rng.Intn(len(values)), nil
	case ModeGreedy:
		return argmax(values), nil
	case ModeEpsilonGreedy:
		if rng.Float64() < epsilon {
			return rng.Intn(len(values)), nil
		}
		return argmax(values), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedMode, string(mode))
	}
}

// argmax returns the first index holding the maximum.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
