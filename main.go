// Package main implements a Cloud Run service that watches the WoWProgress
// looking-for-guild roster and announces new players to a Discord webhook.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kibsywow/recruit-bot/config"
	"github.com/kibsywow/recruit-bot/schedule"
	"github.com/kibsywow/recruit-bot/server"
)

var rootCmd = &cobra.Command{
	Use:           "recruit-bot",
	Short:         "Announces new WoWProgress LFG listings to Discord.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Performs a single run and exits.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger := newLogger(cfg, os.Stderr)

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RunTimeout)
		defer cancel()

		a, err := build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		report, runErr := a.monitor.Run(ctx)
		if report != nil {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				logger.Warn("Failed to write report", "error", err)
			}
		}
		return runErr
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves /pollz and /health, optionally running on a cron schedule.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger := newLogger(cfg, os.Stderr)
		ctx := cmd.Context()

		a, err := build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		runner := schedule.NewRunner(a.monitor, logger)
		if cfg.Schedule != "" {
			sched := schedule.New(cfg.Schedule, runner, cfg.RunTimeout, logger)
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()
		} else {
			logger.Info("No SCHEDULE set, runs are triggered via POST /pollz only")
		}

		srv := server.New(&server.Config{
			Poller: runner,
			Logger: logger,
		})
		return srv.ListenAndServe(ctx, cfg.Port)
	},
}

func main() {
	rootCmd.AddCommand(runCmd, serveCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
