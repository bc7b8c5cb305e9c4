package main

import (
	"errors"
	"log/slog"
	"os"

	"orcid/internal/config"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "orcidctl",
		Short:         "Operate ORCID profile requests from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_PATH"), "path to config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	cmd.AddCommand(
		newSubmitCmd(opts),
		newSandboxCodeCmd(opts),
	)

	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	if o.configPath == "" {
		return nil, errors.New("config path is empty: pass --config or set CONFIG_PATH")
	}
	return config.Load(o.configPath)
}

func (o *rootOptions) logger() *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
