// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the recording reconciler: it polls the recording provider
// for scheduled bots, materializes the meetings they recorded and backfills
// their transcripts, and serves the materialized meetings over NATS.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// commandContext carries the state shared by the subcommands.
type commandContext struct {
	configPath string
	debug      bool
	env        environment
}

func newRootCommand() *cobra.Command {
	cc := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "recording-reconciler",
		Short:         "Reconcile recorded meetings against the recording provider",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logOptions := logging.OptionsFromEnv(os.Getenv)
			if cc.debug {
				logOptions.Level = slog.LevelDebug
			}
			logging.Setup(os.Stdout, logOptions)

			env, err := loadConfig(cc.configPath, os.Getenv)
			if err != nil {
				return err
			}
			cc.env = env
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cc.configPath, "config", "c", "", "TOML configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&cc.debug, "debug", "d", false, "enable debug logging")

	rootCmd.AddCommand(newServeCommand(cc))
	rootCmd.AddCommand(newReconcileCommand(cc))
	rootCmd.AddCommand(newBackfillCommand(cc))

	return rootCmd
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newServeCommand(cc *commandContext) *cobra.Command {
	var port, bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reconciliation driver, the NATS handlers and the health probes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				cc.env.Port = port
			}
			if bind != "" {
				cc.env.Bind = bind
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			app, err := newApplication(ctx, cc.env)
			if err != nil {
				slog.ErrorContext(ctx, "error initializing reconciler", logging.ErrKey, err)
				return err
			}
			defer app.Close(context.Background())

			if _, err := createNatsSubscriptions(ctx, app.natsConn, app.handler); err != nil {
				slog.ErrorContext(ctx, "error creating NATS subscriptions", logging.ErrKey, err)
				return err
			}

			driver, err := app.newDriver()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancelCause(ctx)
			defer cancel(nil)

			httpServer, httpErrs := setupHTTPServer(ctx, cc.env.listenAddr(), app.healthHandler())
			defer shutdownHTTPServer(httpServer)
			go func() {
				if err, ok := <-httpErrs; ok {
					cancel(err)
				}
			}()

			// This blocks until SIGINT or SIGTERM is received or the probe listener fails.
			if err := driver.Run(ctx); err != nil {
				slog.ErrorContext(ctx, "reconciliation driver stopped", logging.ErrKey, err)
				return err
			}
			if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
				return cause
			}
			slog.InfoContext(ctx, "shutting down")
			return nil
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "health probe listen port (overrides PORT)")
	cmd.Flags().StringVar(&bind, "bind", "", "interface to bind on, * for all (overrides BIND)")
	return cmd
}

func newReconcileCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one status pass and one retry pass, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			app, err := newApplication(ctx, cc.env)
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			status, err := app.reconciler.ReconcileStatuses(ctx)
			if err != nil {
				return fmt.Errorf("status pass: %w", err)
			}
			retry, err := app.reconciler.RetryMissingMeetings(ctx, status.Handled)
			if err != nil {
				return fmt.Errorf("retry pass: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"bots visited: %d, status changes: %d, polling errors: %d, meetings materialized: %d, failures: %d\n",
				status.Visited+retry.Visited,
				status.StatusChanged,
				status.PollingErrors+retry.PollingErrors,
				status.Materialized+retry.Materialized,
				status.Failed+retry.Failed,
			)
			return nil
		},
	}
}

func newBackfillCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Run one transcript backfill pass, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			app, err := newApplication(ctx, cc.env)
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			report, err := app.backfiller.Backfill(ctx)
			if err != nil {
				return fmt.Errorf("backfill pass: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"candidates: %d, populated: %d, pending: %d, given up: %d, failures: %d\n",
				report.Candidates,
				report.Populated,
				report.Pending,
				report.GivenUp,
				report.Failed,
			)
			return nil
		},
	}
}
