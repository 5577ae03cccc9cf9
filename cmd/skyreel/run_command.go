package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"skyreel/internal/daemon"
	"skyreel/internal/logging"
	"skyreel/internal/workflow"
)

const shutdownTimeout = 15 * time.Second

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the posting scheduler in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduler(cmd.Context(), ctx)
		},
	}
}

func runScheduler(cmdCtx context.Context, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	// Held before Initialize so a second instance never logs in.
	lock, err := daemon.AcquireLock(cfg.LockPath())
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release scheduler lock", logging.Error(err))
		}
	}()

	runner := workflow.NewRunner(cfg, logger)
	if err := runner.Initialize(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "initialization failed", "init_failed",
			logging.Error(err),
			logging.Hint("run 'skyreel config validate' and 'skyreel status'"),
		)
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := runner.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown incomplete", logging.Error(err))
		}
	}()

	scheduler, err := daemon.New(cfg, runner, runner.History(), logger,
		daemon.WithNotifier(runner.Notifier()),
		daemon.WithHeldLock(lock),
	)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}
	return scheduler.Run(signalCtx)
}
