package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabular-rl-go/internal/engine"
)

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "TINYRL_STEP_PENALTY", envKey("step-penalty"))
	assert.Equal(t, "TINYRL_SEED", envKey("seed"))
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("TINYRL_EPISODES", "42")
	t.Setenv("TINYRL_GAMMA", "not-a-number")
	assert.Equal(t, 42, envInt("episodes", 7))
	assert.Equal(t, 0.9, envFloat("gamma", 0.9))
	assert.Equal(t, "fallback", envString("unset-key", "fallback"))
}

func TestParseIntList(t *testing.T) {
	got, err := parseIntList(" 0, 5 ,50,")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5, 50}, got)

	_, err = parseIntList("1,x")
	assert.Error(t, err)
	_, err = parseIntList(" , ")
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tinyrl.env")
	require.NoError(t, os.WriteFile(path, []byte("TINYRL_ENVFILE_PROBE=17\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TINYRL_ENVFILE_PROBE") })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, 17, envInt("envfile-probe", 0))

	assert.Error(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	assert.NoError(t, loadEnvFile(""))
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("debug", "json")
	assert.NoError(t, err)
	_, err = newLogger("loud", "text")
	assert.Error(t, err)
	_, err = newLogger("info", "xml")
	assert.Error(t, err)
}

func TestRunSubcommands(t *testing.T) {
	assert.Error(t, run(nil))
	assert.Error(t, run([]string{"fly"}))

	dir := t.TempDir()
	assert.NoError(t, run([]string{"solve", "-rows", "3", "-cols", "3", "-tests", "5", "-no-color", "-log-level", "error"}))
	assert.NoError(t, run([]string{"solve", "-algo", "policy-iteration", "-rows", "3", "-cols", "3", "-no-color", "-log-level", "error"}))
	assert.Error(t, run([]string{"solve", "-algo", "q-learning"}))

	snapshot := filepath.Join(dir, "agent.json")
	require.NoError(t, run([]string{"train", "-episodes", "5", "-planning", "3", "-no-color", "-log-level", "error", "-snapshot", snapshot}))
	assert.FileExists(t, snapshot)
	assert.Error(t, run([]string{"train", "-alpha", "0"}))

	chart := filepath.Join(dir, "steps.html")
	require.NoError(t, run([]string{"experiment", "-algo", "dyna-q+", "-episodes", "3", "-runs", "2", "-planning-list", "0,5", "-chart", chart, "-log-level", "error"}))
	assert.FileExists(t, chart)
}

func TestTrainConfigPassesExplicitZeros(t *testing.T) {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	flags := registerTrain(fs)
	require.NoError(t, fs.Parse([]string{"-epsilon", "0", "-gamma", "0", "-kappa", "0", "-algo", "dyna-q+"}))
	require.NoError(t, flags.validate())

	cfg, err := flags.config("run-1")
	require.NoError(t, err)
	trainer, err := engine.NewTrainer(cfg)
	require.NoError(t, err)
	got := trainer.Config()
	assert.Equal(t, 0.0, *got.Epsilon)
	assert.Equal(t, 0.0, *got.Gamma)
	assert.Equal(t, 0.0, *got.Kappa)
	assert.Equal(t, "run-1", got.RunID)
}
