package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"skyreel/internal/config"
	"skyreel/internal/daemon"
	"skyreel/internal/history"
	"skyreel/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkEndpoints bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, dependency and posting status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			writeLines(out, renderSectionHeader("Scheduler", colorize))
			writeLines(out, schedulerLines(cfg, ctx.configPath, colorize))

			writeLines(out, renderSectionHeader("Readiness", colorize))
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				fmt.Fprintln(out, checkLine(result, false, colorize))
			}
			fmt.Fprintln(out, checkLine(preflight.CheckSession(cfg), true, colorize))
			if cfg.Reel.UseLogo {
				fmt.Fprintln(out, checkLine(preflight.CheckFile("Logo", cfg.Reel.LogoPath), true, colorize))
			} else {
				fmt.Fprintln(out, checkLine(preflight.CheckFile("Profile picture", cfg.Reel.ProfilePicPath), true, colorize))
			}
			fmt.Fprintln(out, checkLine(preflight.CheckNotifications(cfg), true, colorize))
			if checkEndpoints {
				fmt.Fprintln(out, checkLine(preflight.CheckEndpoint(cmd.Context(), "APOD endpoint", cfg.Content.APODURL), true, colorize))
				fmt.Fprintln(out, checkLine(preflight.CheckEndpoint(cmd.Context(), "News feed", cfg.Content.NewsFeedURL), true, colorize))
			}

			writeLines(out, renderSectionHeader("Dependencies", colorize))
			writeLines(out, dependencyLines(preflight.CheckSystemDeps(cfg), colorize))

			writeLines(out, renderSectionHeader("Last post", colorize))
			writeLines(out, lastPostLines(cmd, cfg, colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkEndpoints, "check-endpoints", false, "Also probe the APOD and news endpoints")
	return cmd
}

func schedulerLines(cfg *config.Config, configPath string, colorize bool) []string {
	lines := []string{renderStatusLine("Config", statusInfo, configPath, colorize)}

	locked, err := daemon.Locked(cfg)
	switch {
	case err != nil:
		lines = append(lines, renderStatusLine("Scheduler", statusWarn, fmt.Sprintf("lock check failed: %v", err), colorize))
	case locked:
		lines = append(lines, renderStatusLine("Scheduler", statusOK, "Running", colorize))
	default:
		lines = append(lines, renderStatusLine("Scheduler", statusInfo, "Not running", colorize))
	}

	schedule, expr, err := daemon.ParseSchedule(cfg)
	if err != nil {
		return append(lines, renderStatusLine("Schedule", statusError, err.Error(), colorize))
	}
	loc := cfg.Location()
	next := schedule.Next(time.Now().In(loc))
	lines = append(lines,
		renderStatusLine("Schedule", statusInfo, fmt.Sprintf("%s (%s)", expr, loc), colorize),
		renderStatusLine("Next post", statusInfo, next.Format("Mon 2006-01-02 15:04 MST"), colorize),
		renderStatusLine("Skip if posted today", statusInfo, yesNo(cfg.Schedule.SkipIfPostedToday), colorize),
	)
	return lines
}

func lastPostLines(cmd *cobra.Command, cfg *config.Config, colorize bool) []string {
	store, err := history.Open(cfg)
	if err != nil {
		return []string{renderStatusLine("History", statusWarn, err.Error(), colorize)}
	}
	defer store.Close()

	var lines []string
	last, err := store.LastPosted(cmd.Context())
	switch {
	case err != nil:
		lines = append(lines, renderStatusLine("Last posted", statusWarn, err.Error(), colorize))
	case last == nil:
		lines = append(lines, renderStatusLine("Last posted", statusInfo, "never", colorize))
	default:
		lines = append(lines, renderStatusLine("Last posted", statusOK,
			fmt.Sprintf("%s %q (media %s)", last.FinishedAt.In(cfg.Location()).Format(historyTimeLayout), last.Title, last.MediaID), colorize))
	}

	recent, err := store.Recent(cmd.Context(), 1)
	if err == nil && len(recent) == 1 && recent[0].Status == history.StatusFailed {
		run := recent[0]
		lines = append(lines, renderStatusLine("Last attempt", statusError,
			fmt.Sprintf("%s failed (%s)", run.StartedAt.In(cfg.Location()).Format(historyTimeLayout), run.ErrorKind), colorize))
	}
	return lines
}

func writeLines(out io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}
