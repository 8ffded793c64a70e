package engine

import (
	"io"
	"math/rand"

	"github.com/sirupsen/logrus"
)

const defaultMaxEvaluationSweeps = 100000

type options struct {
	seed                int64
	logger              logrus.FieldLogger
	tolerance           float64
	maxEvaluationSweeps int
}

// Option configures planners and agents at construction time.
type Option func(*options)

// WithSeed fixes the random source. Zero is treated as 1.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTolerance lets value iteration stop before its sweep budget once the
// largest value change of a sweep drops below tolerance. Zero keeps the fixed horizon.
func WithTolerance(tolerance float64) Option {
	return func(o *options) { o.tolerance = tolerance }
}

// WithMaxEvaluationSweeps caps the policy evaluation loop of policy iteration.
func WithMaxEvaluationSweeps(n int) Option {
	return func(o *options) { o.maxEvaluationSweeps = n }
}

func buildOptions(opts []Option) (options, error) {
	o := options{seed: 1, maxEvaluationSweeps: defaultMaxEvaluationSweeps}
	for _, opt := range opts {
		opt(&o)
	}
	o.seed = NormalizeSeed(o.seed)
	if o.logger == nil {
		o.logger = discardLogger()
	}
	if o.tolerance < 0 {
		return o, invalidf("tolerance must not be negative (got %g)", o.tolerance)
	}
	if o.maxEvaluationSweeps <= 0 {
		return o, invalidf("max evaluation sweeps must be positive (got %d)", o.maxEvaluationSweeps)
	}
	return o, nil
}

func (o options) newRand() *rand.Rand {
	return rand.New(rand.NewSource(o.seed))
}

func NormalizeSeed(seed int64) int64 {
	if seed == 0 {
		return 1
	}
	return seed
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
