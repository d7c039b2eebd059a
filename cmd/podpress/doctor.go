package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podpress/internal/deps"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external binaries and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			statuses := deps.CheckBinaries(deps.Pipeline())
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				detail := status.Detail
				if status.Available {
					if version, err := deps.Version(cmd.Context(), status.Command, versionFlag(status.Command)); err == nil {
						detail = version
					}
				}
				required := "required"
				if status.Optional {
					required = "optional"
				}
				rows = append(rows, []string{status.Name, required, yesNo(status.Available), detail})
			}
			fmt.Fprint(out, renderTable(out, []string{"Binary", "Need", "Found", "Detail"}, rows, nil))
			fmt.Fprintln(out)

			fmt.Fprintln(out)
			fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
			fmt.Fprintf(out, "Generation: %s (%s), api key set: %s\n", cfg.Generation.Provider, cfg.Generation.Model, yesNo(cfg.Generation.APIKey != ""))
			fmt.Fprintf(out, "WordPress configured: %s\n", yesNo(cfg.WordPressConfigured()))
			fmt.Fprintf(out, "Quota: %d per day (%s), %s store\n", cfg.Limits.DailyLimit, cfg.Limits.Timezone, cfg.Limits.Store)
			fmt.Fprintf(out, "Notifications: %s\n", yesNo(strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required binaries: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func versionFlag(command string) string {
	switch command {
	case "ffmpeg":
		return "-version"
	default:
		return "--version"
	}
}
