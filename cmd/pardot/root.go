package main

import (
	"fmt"
	"io"

	"github.com/natserract/pardot/pkg/config"
	"github.com/natserract/pardot/pkg/pardot"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries the state shared by all subcommands.
type app struct {
	out    io.Writer
	logger *zap.Logger
	cfg    *config.Config
	client *pardot.Client

	jq    string
	debug bool
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pardot",
		Short:         "Command-line client for the Pardot API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "objects" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVar(&a.jq, "jq", "", "Filter JSON output with a jq expression")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable development logging")

	cmd.AddCommand(
		newLoginCmd(a),
		newObjectsCmd(a),
		newQueryCmd(a),
		newReadCmd(a),
		newCallCmd(a),
	)
	return cmd
}

func (a *app) setup() error {
	if a.logger == nil {
		var (
			logger *zap.Logger
			err    error
		)
		if a.debug {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.logger = logger
	}

	cfg, err := config.Load()
	if err != nil {
		a.logger.Error("Failed to load config", zap.Error(err))
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	client, err := pardot.NewWithLogger(cfg, a.logger)
	if err != nil {
		a.logger.Error("Failed to create Pardot client", zap.Error(err))
		return err
	}
	a.client = client
	return nil
}

func (a *app) object(name string) (*pardot.Object, error) {
	o, ok := a.client.Object(name)
	if !ok {
		return nil, fmt.Errorf("unknown object %q, run \"pardot objects\" for the list", name)
	}
	return o, nil
}
