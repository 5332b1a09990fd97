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

	countermcp "github.com/wagiedev/counter-mcp-go"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the root command with fresh flag state.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counter-mcp",
		Short: "MCP counter server over stdio",
		Long: "counter-mcp serves the increment, decrement and get_counter tools to one MCP client " +
			"over stdin/stdout.\n\nLogs are written to stderr. --verbose only raises the stderr " +
			"log level to debug; it does not change server behavior.",
		Args: cobra.NoArgs,
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
		RunE:         runServer,
	}

	cmd.Flags().Bool("verbose", false, "Enable debug logging on stderr")

	cmd.Version = version
	cmd.SetVersionTemplate(fmt.Sprintf("counter-mcp version %s\n", version))

	return cmd
}

func runServer(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// stdout carries the protocol.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := countermcp.New(
		countermcp.WithLogger(logger),
		countermcp.WithServerInfo("counter-mcp", version),
	)
	if err != nil {
		logger.Error("Failed to start server", "error", err)

		return err
	}

	logger.Info("Serving counter tools on stdio", "version", version)

	err = srv.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped", "error", err)

		return err
	}

	logger.Info("Server stopped", "counter", srv.Counter())

	return nil
}
