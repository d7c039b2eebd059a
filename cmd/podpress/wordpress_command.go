package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podpress/internal/article"
	"podpress/internal/publish"
)

func newWordPressCommand(ctx *commandContext) *cobra.Command {
	wpCmd := &cobra.Command{
		Use:   "wordpress",
		Short: "WordPress connection utilities",
	}
	wpCmd.AddCommand(newWordPressVerifyCommand(ctx))
	wpCmd.AddCommand(newWordPressTestPostCommand(ctx))
	return wpCmd
}

func wordPressSettings(ctx *commandContext) (publish.Settings, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return publish.Settings{}, err
	}
	settings := publish.SettingsFromConfig(cfg)
	if !settings.Complete() {
		return publish.Settings{}, errors.New("wordpress url, username and password are required (config [wordpress] or WORDPRESS_* env)")
	}
	return settings, nil
}

func newWordPressVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Log in to WordPress without creating a post",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := wordPressSettings(ctx)
			if err != nil {
				return err
			}
			client := publish.NewClient(publish.WithLogger(ctx.log()))
			if err := client.VerifyLogin(cmd.Context(), settings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s\n", publish.NormalizeSiteURL(settings.SiteURL), settings.Username)
			return nil
		},
	}
}

func newWordPressTestPostCommand(ctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "test-post",
		Short: "Create a test post with the configured status",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := wordPressSettings(ctx)
			if err != nil {
				return err
			}
			client := publish.NewClient(publish.WithLogger(ctx.log()))
			result, err := client.Submit(cmd.Context(), article.Article{
				Title:   strings.TrimSpace(title),
				Content: "<p>This post was created by the podpress WordPress connection test.</p>",
				Tags:    []string{"podpress"},
			}, settings)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "State: %s\n", result.State)
			if err != nil {
				return err
			}
			if result.PostID != "" {
				fmt.Fprintf(out, "Post ID: %s\n", result.PostID)
			}
			if result.FinalURL != "" {
				fmt.Fprintf(out, "URL: %s\n", result.FinalURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "[podpress] WordPress connection test", "Title of the test post")
	return cmd
}
