package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"skyreel/internal/content"
	"skyreel/internal/fileutil"
	"skyreel/internal/render"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var output string
	var frameOnly bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render today's reel locally without posting",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			if !cfg.Reel.UseLogo {
				if _, err := os.Stat(cfg.Reel.ProfilePicPath); os.IsNotExist(err) {
					if err := render.PlaceholderProfile(cfg.Reel.ProfilePicPath); err != nil {
						return fmt.Errorf("write placeholder profile: %w", err)
					}
				}
			}

			client := content.NewClient(content.ConfigFromApp(cfg), content.WithLogger(logger))
			reel := client.ContentForReel(cmd.Context())

			opts := render.OptionsFromConfig(cfg)
			opts.Logger = logger
			composer := render.NewComposer(opts)
			out := cmd.OutOrStdout()

			if frameOnly {
				frame, err := composer.Frame(cmd.Context(), reel)
				if err != nil {
					return err
				}
				target := strings.TrimSpace(output)
				if target == "" {
					target = filepath.Join(cfg.Paths.OutputDir, "preview_frame.jpg")
				}
				if err := imaging.Save(frame, target, imaging.JPEGQuality(95)); err != nil {
					return fmt.Errorf("save frame: %w", err)
				}
				fmt.Fprintf(out, "Frame written to %s (%s: %s)\n", target, reel.Type, reel.Title)
				return nil
			}

			videoPath, err := composer.Generate(cmd.Context(), reel)
			if err != nil {
				return err
			}
			if target := strings.TrimSpace(output); target != "" {
				if err := fileutil.CopyFile(videoPath, target); err != nil {
					return fmt.Errorf("copy video: %w", err)
				}
				videoPath = target
			}
			fmt.Fprintf(out, "Reel written to %s (%.2f MB)\n", videoPath, fileutil.SizeMB(videoPath))
			fmt.Fprintf(out, "  Source: %s\n", reel.Type)
			fmt.Fprintf(out, "  Title:  %s\n", reel.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Copy the result to this path")
	cmd.Flags().BoolVar(&frameOnly, "frame-only", false, "Write only the still frame as JPEG")
	return cmd
}
