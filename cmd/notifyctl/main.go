package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wolfman30/voicemail-notifier/cmd/mainconfig"
	appconfig "github.com/wolfman30/voicemail-notifier/internal/config"
	"github.com/wolfman30/voicemail-notifier/pkg/logging"
)

var envFiles []string

func main() {
	if err := newRootCmd(loadPipeline).Execute(); err != nil {
		os.Exit(1)
	}
}

// pipelineLoader builds the pipeline from the process configuration.
type pipelineLoader func() (*mainconfig.Pipeline, error)

func newRootCmd(load pipelineLoader) *cobra.Command {
	root := &cobra.Command{
		Use:           "notifyctl",
		Short:         "Inspect and exercise the voicemail notification pipeline",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading the environment")

	root.AddCommand(transportsCmd(load))
	root.AddCommand(sendCmd(load))
	return root
}

func loadPipeline() (*mainconfig.Pipeline, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, err
		}
	}
	cfg, err := appconfig.Load()
	if err != nil {
		return nil, err
	}
	// logs go to stderr so stdout stays machine-readable
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel)
	return mainconfig.Build(cfg, logger)
}
