package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/koreanssam/docmark/internal/common"
)

type app struct {
	cfg    *common.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "docmark",
		Short:         "Transcribe PDFs and images to Markdown with a vision model",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			a.cfg = common.LoadConfig()
			a.logger = newTextLogger(a.cfg.SlogLevel())
			slog.SetDefault(a.logger)
			return nil
		},
	}
	root.AddCommand(newServeCmd(a), newExtractCmd(a), newWatchCmd(a), newJobsCmd(a))
	return root
}

// newTextLogger logs messages with variables but no time/level, for interactive use.
func newTextLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func newJSONLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
