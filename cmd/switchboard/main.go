// Package main provides the CLI entry point for Switchboard, a Telegram
// support-routing bot that connects anonymous users to a fixed pool of
// named operators.
//
// # Basic Usage
//
// Start the bot:
//
//	switchboard serve --config switchboard.yaml
//
// Check a configuration file:
//
//	switchboard validate --config switchboard.yaml
//
// # Environment Variables
//
// Configuration values may reference environment variables, e.g.:
//
//	telegram:
//	  token: ${TELEGRAM_BOT_TOKEN}
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/switchboard/internal/config"
	"github.com/haasonsaas/switchboard/internal/directory"
	"github.com/haasonsaas/switchboard/internal/relay/telegram"
	"github.com/haasonsaas/switchboard/internal/router"
	"github.com/haasonsaas/switchboard/internal/store"
	"github.com/haasonsaas/switchboard/internal/sweeper"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Structured logging with JSON output; serve replaces this with a
	// logger at the configured level.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "switchboard",
		Short:   "Route Telegram conversations between users and operators",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
	}

	rootCmd.AddCommand(buildServeCmd())
	rootCmd.AddCommand(buildValidateCmd())

	return rootCmd
}

func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to configuration file")

	return cmd
}

func buildValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration file and operator directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			dir, err := directory.Load(cfg.Operators, slog.Default())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration ok: %d operator(s), storage %s\n",
				dir.Len(), cfg.Storage.Path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to configuration file")

	return cmd
}

func defaultConfigPath() string {
	if p := os.Getenv("SWITCHBOARD_CONFIG"); p != "" {
		return p
	}
	return "switchboard.yaml"
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel()),
	}))
	slog.SetDefault(logger)

	dir, err := directory.Load(cfg.Operators, logger)
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer st.Shutdown()

	adapter, err := telegram.NewAdapter(telegram.Config{
		Token:     cfg.Telegram.Token,
		RateLimit: cfg.Telegram.RateLimit,
		RateBurst: cfg.Telegram.RateBurst,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	r := router.New(dir, st, adapter, router.Options{
		IdleTimeout:    cfg.Session.IdleTimeout.Std(),
		ReplyPrefixLen: cfg.Session.ReplyPrefixLen,
		Logger:         logger,
	})

	sw := sweeper.New(r, cfg.Session.SweepInterval.Std(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := adapter.Start(ctx, r); err != nil {
		return err
	}
	if err := sw.Start(ctx); err != nil {
		return err
	}

	logger.Info("switchboard started",
		"operators", dir.Len(),
		"storage", cfg.Storage.Path,
		"idle_timeout", cfg.Session.IdleTimeout.Std().String())

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sw.Stop()
	if err := adapter.Stop(shutdownCtx); err != nil {
		logger.Error("adapter shutdown failed", "error", err)
	}

	return nil
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
