package main

import (
	"fmt"

	gotwitter "github.com/dghubble/go-twitter/twitter"
	"github.com/spf13/cobra"

	"github.com/cheerlights/cheertweet/internal/config"
	"github.com/cheerlights/cheertweet/internal/creds"
	"github.com/cheerlights/cheertweet/internal/twitter"
)

var (
	timelineCount   int
	timelineSinceID string
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show recent tweets from the account's remote timeline",
	Long: `Fetch the authenticated account's most recent tweets from the v1.1
timeline endpoint, as a remote cross-check of the local history log.

Examples:
  cheertweet timeline
  cheertweet timeline --count 10
  cheertweet timeline --since-id 1234567890`,
	RunE: runTimeline,
}

func init() {
	timelineCmd.Flags().IntVar(&timelineCount, "count", 5, "Maximum number of tweets to fetch")
	timelineCmd.Flags().StringVar(&timelineSinceID, "since-id", "",
		"Only tweets newer than this tweet id")
	rootCmd.AddCommand(timelineCmd)
}

func runTimeline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	credentials, err := creds.Resolve(cfg.KeyPath)
	if err != nil {
		return err
	}

	// The timeline endpoint only exists on v1.1.
	session := twitter.NewSession(twitter.Config{
		Credentials: *credentials,
		Version:     twitter.V1,
	})

	return session.Do(ctx, func(s *twitter.Session) error {
		var tweets []gotwitter.Tweet
		if timelineSinceID != "" {
			tweets, err = s.TweetsSince(ctx, timelineSinceID, timelineCount)
		} else {
			tweets, err = s.LastTweets(ctx, timelineCount)
		}
		if err != nil {
			return err
		}

		if len(tweets) == 0 {
			fmt.Println("No tweets found.")
			return nil
		}
		for _, t := range tweets {
			fmt.Printf("%-20s %s\n", t.IDStr, t.Text)
		}
		return nil
	})
}
