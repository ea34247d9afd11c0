package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sglre6355/jockey/internal/bot"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and run the bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("starting jockey", "version", version)

			// Load configuration
			cfg, err := bot.LoadConfig()
			if err != nil {
				return err
			}

			// Create and configure bot
			b := bot.NewBot(cfg)
			if err := b.LoadModules(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := b.Start(ctx); err != nil {
				return err
			}

			// Wait for shutdown signal
			<-ctx.Done()

			slog.Info("received termination signal, shutting down")
			if err := b.Stop(); err != nil {
				slog.Error("failed to shutdown", "error", err)
			}

			slog.Info("completed bot shutdown")
			return nil
		},
	}
}
