package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"skyreel/internal/history"
	"skyreel/internal/services"
	"skyreel/internal/workflow"
)

func newPostCommand(ctx *commandContext) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post one reel immediately; exits non-zero when nothing was posted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			switch source {
			case "":
			case "apod", "news":
				cfg.Content.PreferredSource = source
			default:
				return fmt.Errorf("--source must be \"apod\" or \"news\", got %q", source)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			runner := workflow.NewRunner(cfg, logger)
			if err := runner.Initialize(runCtx); err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = runner.Shutdown(shutdownCtx)
			}()

			started := time.Now()
			result, err := runner.PostDailyReel(runCtx, history.TriggerManual)
			printPostResult(cmd.OutOrStdout(), result, err, time.Since(started))
			if err != nil {
				return fmt.Errorf("post failed at %s stage: %w", result.Stage, err)
			}
			if !result.Posted {
				return errors.New("post failed: reel was not uploaded")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Preferred caption source: apod or news (default from config)")
	return cmd
}

func printPostResult(out io.Writer, result workflow.Result, err error, elapsed time.Duration) {
	if result.Posted {
		fmt.Fprintf(out, "Reel posted: %s\n", result.Title)
		fmt.Fprintf(out, "  Media ID: %s\n", result.MediaID)
		fmt.Fprintf(out, "  Source:   %s\n", result.ContentType)
		fmt.Fprintf(out, "  Video:    %s\n", result.VideoPath)
		if result.ArchivePath != "" {
			fmt.Fprintf(out, "  Archive:  %s\n", result.ArchivePath)
		}
		fmt.Fprintf(out, "  Elapsed:  %s\n", elapsed.Round(time.Second))
		return
	}
	fmt.Fprintln(out, "Reel not posted")
	if result.Stage != "" {
		fmt.Fprintf(out, "  Stage: %s\n", result.Stage)
	}
	if err != nil {
		if hint := services.FailureHint(err); hint != "" {
			fmt.Fprintf(out, "  Hint:  %s\n", hint)
		}
	}
	if result.RunID != "" {
		fmt.Fprintf(out, "  Run:   %s\n", result.RunID)
	}
}
