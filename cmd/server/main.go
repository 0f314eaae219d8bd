package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	defaultConfigPath = "./configs/config.yaml"
	defaultEnvFile    = ".env"
	shutdownTimeout   = 10 * time.Second
)

type rootFlags struct {
	configPath string
	envFile    string
	logLevel   string
	addr       string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "uplink-monitor",
		Short: "Reports which uplink each site is routing through",
		Args:  cobra.NoArgs,
		// Errors are printed by main.
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", defaultConfigPath, "path to the YAML configuration")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", defaultEnvFile, "optional file with credentials (KEY=value)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "overrides log.level from the configuration")

	cmd.AddCommand(
		newServeCmd(flags),
		newQueryCmd(flags),
		newGroupsCmd(flags),
	)
	return cmd
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Refresh in the background and serve the dashboard, metrics and API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&flags.addr, "addr", "", "overrides server.addr from the configuration")
	return cmd
}

func newQueryCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "query",
		Short: "Run one refresh cycle and print the snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()

			snap, err := a.engine.RunCycle(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), snap)
		},
	}
}

func newGroupsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List the host groups visible to the configured account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()

			groups, err := a.engine.Groups(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), groups)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	stopScheduler := a.scheduler.Start(ctx)
	defer stopScheduler()

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
