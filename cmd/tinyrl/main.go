package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tinyrl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := loadEnvFile(os.Getenv("TINYRL_ENV_FILE")); err != nil {
		return err
	}
	if len(args) < 1 {
		return errors.New("missing subcommand; try 'solve', 'train' or 'experiment'")
	}

	subcommand := args[0]
	switch subcommand {
	case "solve":
		return runSolve(args[1:])
	case "train":
		return runTrain(args[1:])
	case "experiment":
		return runExperiment(args[1:])
	default:
		return fmt.Errorf("unknown subcommand %q", subcommand)
	}
}

// loadEnvFile seeds TINYRL_* defaults from a dotenv file. A missing default
// .env is fine; a missing explicitly named file is not.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

func newLogger(level, format string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)
	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return logger, nil
}

func newRunID() string {
	return uuid.NewString()
}
