// Package cmd defines the framegrade command line interface.
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/framegrade/framegrade/cmd/directory"
	"github.com/framegrade/framegrade/cmd/file"
	"github.com/framegrade/framegrade/cmd/history"
	"github.com/framegrade/framegrade/cmd/probe"
	"github.com/framegrade/framegrade/internal/buildinfo"
	"github.com/framegrade/framegrade/internal/conf"
	"github.com/framegrade/framegrade/internal/logger"
	"github.com/framegrade/framegrade/internal/telemetry"
)

const sentryFlushTimeout = 2 * time.Second

// RootCommand creates and returns the root command. Subcommands share
// settings, which is filled in before any of them runs.
func RootCommand(build *buildinfo.Context) *cobra.Command {
	settings := &conf.Settings{}
	var configFile string
	var reporter *telemetry.SentryReporter

	rootCmd := &cobra.Command{
		Use:          "framegrade",
		Short:        "Video frame quality evaluation",
		Long:         "Classify every frame of a video and report the share of each quality class.",
		Version:      build.String(),
		SilenceUsage: true,
	}

	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		file.Command(settings),
		directory.Command(settings),
		probe.Command(settings),
		history.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := conf.Load(configFile)
		if err != nil {
			return err
		}
		*settings = *loaded

		if err := initLogging(settings); err != nil {
			return err
		}

		reporter, err = telemetry.InitSentry(settings, build.GetVersion())
		return err
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if reporter != nil {
			reporter.Flush(sentryFlushTimeout)
		}
		_ = logger.Global().Flush()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
// and binds them to their configuration keys
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config.yaml")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("model", "", "Path to the .tflite classification model")
	flags.StringSlice("classes", nil, "Ordered class names matching the model output")
	flags.IntP("batchsize", "b", 0, "Frames per classifier batch")
	flags.IntP("workers", "w", 0, "Videos evaluated in parallel, 0 selects from CPU count")
	flags.Float64("framerate", 0, "Sample frames at this rate, 0 evaluates every frame")
	flags.StringP("format", "f", "", "Output format: table, csv, json, yaml")
	flags.StringP("output", "o", "", "Write the report to this file instead of stdout")

	bindings := map[string]string{
		"debug":                "debug",
		"model.path":           "model",
		"model.classes":        "classes",
		"evaluation.batchsize": "batchsize",
		"evaluation.workers":   "workers",
		"evaluation.framerate": "framerate",
		"output.format":        "format",
		"output.path":          "output",
	}
	for key, name := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}

// initLogging replaces the global logger with one built from settings
func initLogging(settings *conf.Settings) error {
	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}
	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(cl)
	return nil
}
