package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/sglre6355/jockey/internal/bot"
	"github.com/sglre6355/jockey/internal/modules/player"
	"github.com/sglre6355/jockey/internal/modules/player/application/usecases"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
	"github.com/sglre6355/jockey/internal/modules/player/infrastructure"
	"github.com/spf13/cobra"
)

func newResolveCommand() *cobra.Command {
	var find bool

	cmd := &cobra.Command{
		Use:   "resolve <query>",
		Short: "Resolve a URL or search query into queue items",
		Long: "Resolve runs the query through the same pipeline as /play and prints the items " +
			"it would enqueue. With --find, each item is also matched to a playable handle.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := player.LoadConfig()
			if err != nil {
				return err
			}
			botID, err := bot.UserIDFromToken(os.Getenv("DISCORD_TOKEN"))
			if err != nil {
				return fmt.Errorf("DISCORD_TOKEN is needed to identify to Lavalink: %w", err)
			}

			adapter, err := infrastructure.NewLavalinkAdapter(ctx, nil, botID, infrastructure.LavalinkConfig{
				NodeName:      cfg.LavalinkNodeName,
				Address:       cfg.LavalinkAddress,
				Password:      cfg.LavalinkPassword,
				Secure:        cfg.LavalinkSecure,
				SearchTimeout: cfg.ProviderTimeout,
			})
			if err != nil {
				return err
			}
			defer adapter.Close()

			stack, err := player.NewStack(ctx, cfg, adapter)
			if err != nil {
				return err
			}
			defer func() {
				if err := stack.Close(); err != nil {
					slog.Warn("failed to close stack", "error", err)
				}
			}()

			output, err := stack.Resolver.Resolve(ctx, usecases.ResolveQueryInput{Query: args[0]})
			if err != nil {
				return fmt.Errorf("failed to resolve %q: %s", args[0], usecases.UserMessage(err))
			}

			if find {
				for _, item := range output.Items {
					if _, err := stack.Finder.FindPlayable(ctx, item, usecases.FindOptions{}); err != nil {
						slog.Warn("no playable match", "title", item.Title, "error", err)
					}
				}
			}

			if output.ListName != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", output.Kind, output.ListName)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderItems(output.Items, find))
			return nil
		},
	}

	cmd.Flags().BoolVar(&find, "find", false, "Also find a playable handle for every item")

	return cmd
}

func renderItems(items []*domain.QueueItem, withHandles bool) string {
	headers := []string{"#", "Title", "Artist", "Duration", "ISRC"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft}
	if withHandles {
		headers = append(headers, "Source", "Identifier", "Match")
		aligns = append(aligns, alignLeft, alignLeft, alignLeft)
	}

	rows := make([][]string, 0, len(items))
	for i, item := range items {
		title, artist := item.Details()
		row := []string{
			strconv.Itoa(i + 1),
			title,
			artist,
			infrastructure.FormatDuration(item.Duration),
			item.ISRC,
		}
		if withHandles {
			row = append(row, handleColumns(item)...)
		}
		rows = append(rows, row)
	}

	return renderTable(headers, rows, aligns)
}

func handleColumns(item *domain.QueueItem) []string {
	if !item.IsResolved() {
		return []string{"-", "-", "none"}
	}
	match := "exact"
	if item.IsImperfectMatch {
		match = "imperfect"
	}
	return []string{item.Handle.SourceName, item.Handle.Identifier, match}
}
