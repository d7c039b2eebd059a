package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"podpress/internal/pipeline"
	"podpress/internal/quota"
	"podpress/internal/tasks"
)

const processPollInterval = 500 * time.Millisecond

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		episodeURL   string
		settingsPath string
		client       string
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "process <audio-url>",
		Short: "Run one job in the foreground and print the article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			overrides, err := loadSettingsFile(settingsPath)
			if err != nil {
				return err
			}
			logger := ctx.log()

			ledger, err := quota.Open(cfg, logger)
			if err != nil {
				return fmt.Errorf("open quota ledger: %w", err)
			}
			defer ledger.Close()

			manager, err := pipeline.NewManager(cfg, tasks.NewRegistry(), ledger,
				pipeline.DefaultStages(logger),
				pipeline.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			defer manager.Stop()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			id, err := manager.Submit(runCtx, pipeline.Request{
				AudioURL:   args[0],
				EpisodeURL: episodeURL,
				Overrides:  overrides,
				Client:     client,
			})
			if err != nil {
				var exceeded *pipeline.QuotaExceeded
				if errors.As(err, &exceeded) {
					return fmt.Errorf("daily limit of %d runs reached; next reset %s",
						exceeded.Limit, exceeded.Reset.Format("2006-01-02 15:04:05 MST"))
				}
				return err
			}

			var progress io.Writer = cmd.ErrOrStderr()
			if jsonOutput {
				progress = io.Discard
			}
			task, err := waitForTask(runCtx, manager, id, progress)
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := writeJSON(cmd, task); err != nil {
					return err
				}
			} else {
				printTaskResult(cmd.OutOrStdout(), task)
			}
			if task.Failed() {
				return fmt.Errorf("task %s failed: %s", task.ID, task.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&episodeURL, "episode", "", "Episode page URL used for the embed player")
	cmd.Flags().StringVar(&settingsPath, "settings", "", "YAML or JSON file with per-job setting overrides")
	cmd.Flags().StringVar(&client, "client", "cli", "Client identifier charged against the quota")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the finished task as JSON")
	return cmd
}

// loadSettingsFile reads per-job overrides shaped like the TOML sections,
// e.g. {"article": {"min_characters": 3000}}.
func loadSettingsFile(path string) (map[string]any, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	var overrides map[string]any
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse settings file %s: %w", path, err)
	}
	return overrides, nil
}

type taskSource interface {
	Task(id string) (tasks.Task, bool)
}

// waitForTask polls until the task is finished, echoing each new stage.
func waitForTask(ctx context.Context, source taskSource, id string, progress io.Writer) (tasks.Task, error) {
	ticker := time.NewTicker(processPollInterval)
	defer ticker.Stop()

	lastStep, lastStatus := 0, ""
	for {
		task, ok := source.Task(id)
		if !ok {
			return tasks.Task{}, fmt.Errorf("task %s disappeared", id)
		}
		if task.Step != lastStep || task.Status != lastStatus {
			fmt.Fprintf(progress, "[%d/%d] %s: %s\n", task.Step, task.TotalSteps, task.StepName, task.Status)
			lastStep, lastStatus = task.Step, task.Status
		}
		if task.Done() {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return tasks.Task{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func printTaskResult(w io.Writer, task tasks.Task) {
	fmt.Fprintf(w, "Task: %s\n", task.ID)
	if task.Failed() {
		fmt.Fprintf(w, "Failed at %s: %s\n", task.StepName, task.Error)
	} else {
		fmt.Fprintf(w, "Status: %s\n", task.Status)
	}
	if task.Result == nil {
		return
	}
	fmt.Fprintf(w, "\nTitle: %s\n", task.Result.Title)
	if task.Result.Summary != "" {
		fmt.Fprintf(w, "Summary: %s\n", task.Result.Summary)
	}
	if len(task.Result.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(task.Result.Tags, ", "))
	}
	fmt.Fprintf(w, "\n%s\n", task.Result.Content)
}
