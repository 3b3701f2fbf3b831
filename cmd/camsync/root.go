package main

import (
	"fmt"
	"os"

	"camsync"
	"camsync/pkg/log"
	"camsync/pkg/storage"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type commandContext struct {
	configPath string
	logLevel   string
}

// withApp runs fn with an app built from the config file. Logs are
// printed to stderr and saved to the log database if saveLogs is set.
func (c *commandContext) withApp(saveLogs bool, fn func(*camsync.App) error) error {
	env, err := storage.LoadConfigEnv(c.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	maxLevel, err := log.ParseLevel(c.logLevel)
	if err != nil {
		return err
	}

	logger := log.NewLogger(uuid.NewString())
	logger.AddSink(log.NewPrinter(os.Stderr, maxLevel))

	if saveLogs && env.LogDB != storage.Disabled {
		logDB := log.NewDB(env.LogDB)
		if err := logDB.Init(); err != nil {
			return fmt.Errorf("log database: %w", err)
		}
		defer logDB.Close()
		logger.AddSink(logDB.Sink())
	}

	return fn(camsync.NewApp(env, logger))
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "camsync",
		Short:         "Synchronize recordings from multiple cameras using HiLight tags",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "camsync.yaml", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "info", "Print logs up to this level")

	rootCmd.AddCommand(newAssembleCommand(ctx))
	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))

	return rootCmd
}
