package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"camsync"
	"camsync/pkg/log"
	"camsync/pkg/render"

	"github.com/spf13/cobra"
)

func newAssembleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assemble [cameraDir...]",
		Short: "Match recordings and save the sessions",
		Long: "Match recordings across cameras and save the sessions.\n" +
			"Camera directories given as arguments replace the configured cameras.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(true, func(app *camsync.App) error {
				if len(args) != 0 {
					dirs, err := absPaths(args)
					if err != nil {
						return err
					}
					app.Env.Cameras = dirs
				}
				sessions, err := app.Assemble(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d sessions\n", len(sessions))
				return nil
			})
		},
	}
}

func absPaths(paths []string) ([]string, error) {
	abs := make([]string, 0, len(paths))
	for _, path := range paths {
		p, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		abs = append(abs, p)
	}
	return abs, nil
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var index int
	var length int
	var layout string
	var out string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the MLT document of a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(true, func(app *camsync.App) error {
				opts := render.Options{Length: length}
				if layout != "" {
					l, err := render.ParseLayout(layout)
					if err != nil {
						return err
					}
					opts.Layout = l
				}

				if out == "" {
					out = fmt.Sprintf("session-%d.mlt", index)
				}
				// Nothing is written unless the document is complete.
				var b bytes.Buffer
				if err := app.Render(cmd.Context(), index, opts, &b); err != nil {
					return err
				}
				return os.WriteFile(out, b.Bytes(), 0o600)
			})
		},
	}

	cmd.Flags().IntVarP(&index, "index", "i", 0, "Session index")
	cmd.Flags().IntVar(&length, "length", 0, "Maximum length in frames, 0 is unlimited")
	cmd.Flags().StringVar(&layout, "layout", "", "Camera order, for example front:inside:back")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default session-<index>.mlt)")
	_ = cmd.MarkFlagRequired("index")

	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var index int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(false, func(app *camsync.App) error {
				return app.Show(index, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().IntVarP(&index, "index", "i", 0, "Session index")
	_ = cmd.MarkFlagRequired("index")

	return cmd
}

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var level string
	var sources []string
	var cameras []string
	var runs []string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Query the log database",
		RunE: func(cmd *cobra.Command, args []string) error {
			levels, err := levelsUpTo(level)
			if err != nil {
				return err
			}
			return ctx.withApp(false, func(app *camsync.App) error {
				logs, err := app.Logs(log.Query{
					Levels:  levels,
					Sources: nilIfEmpty(sources),
					Cameras: nilIfEmpty(cameras),
					Runs:    nilIfEmpty(runs),
					Limit:   limit,
				})
				if err != nil {
					return err
				}

				// Oldest first.
				w := cmd.OutOrStdout()
				for i := len(logs) - 1; i >= 0; i-- {
					l := logs[i]
					t := time.UnixMilli(int64(l.Time)).Format("2006-01-02 15:04:05")
					fmt.Fprintf(w, "%v %v\n", t, log.Format(l))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of logs")
	cmd.Flags().StringVar(&level, "level", "debug", "Show logs up to this level")
	cmd.Flags().StringSliceVar(&sources, "source", nil, "Only show logs from these sources")
	cmd.Flags().StringSliceVar(&cameras, "camera", nil, "Only show logs from these cameras")
	cmd.Flags().StringSliceVar(&runs, "run", nil, "Only show logs from these runs")

	return cmd
}

func levelsUpTo(s string) ([]log.Level, error) {
	max, err := log.ParseLevel(s)
	if err != nil {
		return nil, err
	}
	var levels []log.Level
	for _, l := range []log.Level{log.LevelError, log.LevelWarning, log.LevelInfo, log.LevelDebug} {
		if l <= max {
			levels = append(levels, l)
		}
	}
	return levels, nil
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
