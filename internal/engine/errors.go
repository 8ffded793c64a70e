package engine

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnsupportedMode = errors.New("unsupported selection mode")
	ErrEmptyModel      = errors.New("empty model: no real transition observed")
	ErrNonConvergence  = errors.New("policy evaluation did not converge")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func checkIndex(name string, value, limit int) error {
	if value < 0 || value >= limit {
		return invalidf("%s %d out of range [0, %d)", name, value, limit)
	}
	return nil
}

func checkSizes(states, actions int) error {
	if states <= 0 {
		return invalidf("states must be positive (got %d)", states)
	}
	if actions <= 0 {
		return invalidf("actions must be positive (got %d)", actions)
	}
	return nil
}

func checkUnit(name string, value float64) error {
	if value < 0 || value > 1 || math.IsNaN(value) {
		return invalidf("%s must be between 0 and 1 (got %.4f)", name, value)
	}
	return nil
}
