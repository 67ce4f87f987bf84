package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cheerlights/cheertweet/internal/config"
	"github.com/cheerlights/cheertweet/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently sent tweets",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of tweets to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForHistory(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	store, err := history.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	tweets, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}

	if len(tweets) == 0 {
		fmt.Println("No tweets recorded yet.")
		return nil
	}

	for _, t := range tweets {
		marker := ""
		if t.Destroyed {
			marker = " (destroyed)"
		}
		fmt.Printf("%s  %-8s %-3s %-20s %s%s\n",
			t.CreatedAt.Format(time.RFC3339), t.Colour, t.APIVersion, t.RemoteID, t.Payload, marker)
	}
	return nil
}
