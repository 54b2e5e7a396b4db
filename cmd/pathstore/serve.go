package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pathstore-dev/pathstore/pkg/inspect"
	"github.com/pathstore-dev/pathstore/pkg/observe"
	"github.com/pathstore-dev/pathstore/pkg/pathstore"
	"github.com/pathstore-dev/pathstore/pkg/statefile"
)

func serveCmd() *cobra.Command {
	var (
		addr      string
		statePath string
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the store inspector",
		Long: `Load a state tree from a file and serve the inspector over HTTP.

The loaded tree is both the current state and the reset target.

Examples:
  pathstore serve --state app.yaml
  pathstore serve --state app.json --addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, statePath, verbose)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8475", "Address to listen on")
	cmd.Flags().StringVarP(&statePath, "state", "s", "", "State file (.json, .yaml, .yml)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	return cmd
}

func runServe(addr, statePath string, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	initial := pathstore.Tree{}
	if statePath != "" {
		tree, err := statefile.Load(statePath)
		if err != nil {
			return err
		}
		initial = tree
		logger.Info("state loaded", "file", statePath, "keys", len(tree))
	}

	store := pathstore.New(initial, nil)
	observe.Instrument(store)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", inspect.New(store, inspect.WithLogger(logger)).Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	fmt.Printf("%s inspector listening on %s\n", color.GreenString("✓"), addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
