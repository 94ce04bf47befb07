// Command train runs one automated tabular training experiment: it loads (or
// synthesizes) the product-review dataset, trains the model-family ensemble
// under a time budget, and records metrics and artifacts against an MLflow
// tracking run. Exit code is 0 on success, 1 on any unrecovered error.
package main

import (
	"flag"
	"os"

	"autotab/experiment"
	"autotab/pkg/errors"
	"autotab/pkg/log"
)

func main() {
	timeLimit := flag.Int("time_limit", 0, "training time budget in seconds (overrides config)")
	label := flag.String("label", "", "target column name (overrides config)")
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	logLevel := flag.String("log_level", "info", "log level (debug|info|warn|error)")
	flag.Parse()

	log.Setup(*logLevel)
	errors.SetZerologWarnFunc(func(warning error) {
		l := log.L()
		l.Warn().Err(warning).Msg("warning")
	})
	logger := log.With("main")

	cfg := experiment.LoadConfig(*configPath)
	if *timeLimit > 0 {
		cfg.TimeLimit = *timeLimit
	}
	if *label != "" {
		cfg.Label = *label
	}

	opts := experiment.DefaultOptions()
	for _, dir := range []string{opts.ArtifactsDir, opts.PlotsDir, opts.ModelDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error().Err(err).Str("dir", dir).Msg("could not create directory")
			os.Exit(1)
		}
	}

	logger.Info().Str("label", cfg.Label).Int("time_limit", cfg.TimeLimit).Msg("starting experiment")
	if err := experiment.Run(cfg, opts); err != nil {
		logger.Error().Err(err).Msg("experiment failed")
		os.Exit(1)
	}
}
