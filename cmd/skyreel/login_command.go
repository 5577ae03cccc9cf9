package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skyreel/internal/platform"
	"skyreel/internal/platform/instagram"
	"skyreel/internal/services"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var refreshPicture bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to Instagram and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateCredentials(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			account := platform.NewAccount(instagram.New(), platform.Credentials{
				Username: cfg.Instagram.Username,
				Password: cfg.Instagram.Password,
			}, platform.Options{
				SessionFile: cfg.Instagram.SessionFile,
				MaxUploadMB: cfg.Instagram.MaxUploadMB,
				Logger:      logger,
			})
			out := cmd.OutOrStdout()
			if err := account.Login(cmd.Context()); err != nil {
				if hint := services.FailureHint(err); hint != "" {
					fmt.Fprintf(out, "Hint: %s\n", hint)
				}
				return err
			}
			fmt.Fprintf(out, "Logged in as @%s\n", account.Username())
			fmt.Fprintf(out, "Session saved to %s\n", cfg.Instagram.SessionFile)

			_, statErr := os.Stat(cfg.Reel.ProfilePicPath)
			if refreshPicture || os.IsNotExist(statErr) {
				if err := account.DownloadProfilePicture(cmd.Context(), cfg.Reel.ProfilePicPath); err != nil {
					fmt.Fprintf(out, "Profile picture not downloaded: %v\n", err)
				} else {
					fmt.Fprintf(out, "Profile picture saved to %s\n", cfg.Reel.ProfilePicPath)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refreshPicture, "refresh-picture", false, "Download the profile picture even if one exists")
	return cmd
}
