package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"tabular-rl-go/internal/engine"
)

// Flag defaults can be overridden through TINYRL_<NAME> variables, with
// dashes in the flag name written as underscores.
func envKey(name string) string {
	return "TINYRL_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func envString(name, fallback string) string {
	if v, ok := os.LookupEnv(envKey(name)); ok {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	if v, ok := os.LookupEnv(envKey(name)); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(name string, fallback int64) int64 {
	if v, ok := os.LookupEnv(envKey(name)); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(name string, fallback float64) float64 {
	if v, ok := os.LookupEnv(envKey(name)); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	if v, ok := os.LookupEnv(envKey(name)); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// commonFlags are shared by every subcommand that builds a gridworld.
type commonFlags struct {
	rows        *int
	cols        *int
	layout      *string
	slip        *float64
	stepPenalty *float64
	maxSteps    *int
	gamma       *float64
	seed        *int64
	logLevel    *string
	logFormat   *string
	noColor     *bool
}

func registerCommon(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		rows:        fs.Int("rows", envInt("rows", 4), "grid rows when no layout is given"),
		cols:        fs.Int("cols", envInt("cols", 4), "grid columns when no layout is given"),
		layout:      fs.String("layout", envString("layout", ""), "path to a text map ('.', '#', 'S', 'G', '~')"),
		slip:        fs.Float64("slip", envFloat("slip", 0.2), "slip probability of '~' tiles (0-1)"),
		stepPenalty: fs.Float64("step-penalty", envFloat("step-penalty", 0.02), "per-step penalty before grid scaling"),
		maxSteps:    fs.Int("max-steps", envInt("max-steps", 0), "episode step limit (0 derives it from the grid)"),
		gamma:       fs.Float64("gamma", envFloat("gamma", 0.95), "discount factor (0-1)"),
		seed:        fs.Int64("seed", envInt64("seed", 0), "deterministic seed (0 for default)"),
		logLevel:    fs.String("log-level", envString("log-level", "info"), "log level (debug, info, warn, error)"),
		logFormat:   fs.String("log-format", envString("log-format", "text"), "log format (text, json)"),
		noColor:     fs.Bool("no-color", envBool("no-color", false), "disable coloured output"),
	}
}

func (c commonFlags) validate() error {
	if *c.gamma < 0 || *c.gamma > 1 {
		return fmt.Errorf("gamma must be between 0 and 1 (got %.2f)", *c.gamma)
	}
	if *c.slip < 0 || *c.slip > 1 {
		return fmt.Errorf("slip must be between 0 and 1 (got %.2f)", *c.slip)
	}
	if *c.stepPenalty < 0 {
		return fmt.Errorf("step-penalty must not be negative (got %.2f)", *c.stepPenalty)
	}
	return nil
}

func (c commonFlags) logger(runID string) (logrus.FieldLogger, error) {
	logger, err := newLogger(*c.logLevel, *c.logFormat)
	if err != nil {
		return nil, err
	}
	return logger.WithField("run", runID), nil
}

func (c commonFlags) readLayout() (string, error) {
	if *c.layout == "" {
		return "", nil
	}
	data, err := os.ReadFile(*c.layout)
	if err != nil {
		return "", fmt.Errorf("read layout: %w", err)
	}
	return string(data), nil
}

// gridworld builds the board used by the planners.
func (c commonFlags) gridworld() (*engine.Gridworld, error) {
	layout, err := c.readLayout()
	if err != nil {
		return nil, err
	}
	var cfg engine.GridworldConfig
	if layout != "" {
		cfg, err = engine.ParseLayout(layout, 1, *c.slip)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = engine.GridworldConfig{
			Rows:  *c.rows,
			Cols:  *c.cols,
			Start: engine.Position{Row: *c.rows - 1, Col: 0},
			Goals: []engine.Goal{{Row: 0, Col: *c.cols - 1, Reward: 1}},
		}
	}
	cfg.StepPenalty = engine.ScaledStepPenalty(cfg.Rows, cfg.Cols, *c.stepPenalty)
	cfg.MaxSteps = *c.maxSteps
	cfg.Seed = *c.seed
	return engine.NewGridworld(cfg)
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid list entry %q: %w", field, err)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty list %q", s)
	}
	return out, nil
}
