package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"podpress/internal/api"
	"podpress/internal/deps"
	"podpress/internal/logging"
	"podpress/internal/pipeline"
	"podpress/internal/quota"
	"podpress/internal/tasks"
)

const pruneInterval = time.Hour

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and job workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.log()

			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire server lock: %w", err)
			}
			if !locked {
				return errors.New("another podpress server is already running")
			}
			defer func() {
				_ = lock.Unlock()
			}()

			if missing := deps.MissingRequired(deps.CheckBinaries(deps.Pipeline())); len(missing) > 0 {
				logger.Warn("required binaries missing; jobs will fail at acquisition or transcription",
					logging.String(logging.FieldEventType, "dependencies_missing"),
					logging.String("missing", strings.Join(missing, ", ")),
					logging.String(logging.FieldErrorHint, "run podpress doctor"),
				)
			}

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
			go pruneTasks(runCtx, manager)

			addr := cfg.Paths.APIBind
			if strings.TrimSpace(bind) != "" {
				addr = strings.TrimSpace(bind)
			}
			server := api.NewServer(cfg, manager, api.WithLogger(logger))
			logger.Info("podpress server starting",
				logging.String(logging.FieldEventType, "server_start"),
				logging.String("bind", addr),
				logging.Int("workers", cfg.Workflow.Workers),
				logging.Int("daily_limit", cfg.Limits.DailyLimit),
			)
			if err := server.Run(runCtx, addr); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("podpress server stopping; waiting for running jobs",
				logging.String(logging.FieldEventType, "server_stop"),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides paths.api_bind)")
	return cmd
}

func pruneTasks(ctx context.Context, manager *pipeline.Manager) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.PruneTasks()
		}
	}
}
