package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cheerlights/cheertweet/internal/config"
	"github.com/cheerlights/cheertweet/internal/creds"
	"github.com/cheerlights/cheertweet/internal/history"
	"github.com/cheerlights/cheertweet/internal/render"
	"github.com/cheerlights/cheertweet/internal/tweeter"
	"github.com/cheerlights/cheertweet/internal/twitter"
)

// destroyDelay gives the remote API time to settle before the tweet
// sent with --destroy is deleted again.
const destroyDelay = 10 * time.Second

var (
	tweetSuppressTweeting   bool
	tweetSuppressConnection bool
	tweetAPIVersion         string
	tweetTemplateDir        string
	tweetContext            []string
	tweetDestroy            bool
)

var tweetCmd = &cobra.Command{
	Use:   "tweet <colour>",
	Short: "Tweet a colour update",
	Long: `Render and send a CheerLights status update for a palette colour.

Examples:
  cheertweet tweet red
  cheertweet tweet orange --context user=Bob --template-dir ./templates
  cheertweet tweet blue --suppress-tweeting   # connect but do not post`,
	Args: cobra.ExactArgs(1),
	RunE: runTweet,
}

func init() {
	tweetCmd.Flags().BoolVar(&tweetSuppressTweeting, "suppress-tweeting", false,
		"Connect to the API but skip the status update, useful for testing")
	tweetCmd.Flags().BoolVar(&tweetSuppressConnection, "suppress-connection", false,
		"Do not connect to the API at all, useful for testing")
	tweetCmd.Flags().StringVar(&tweetAPIVersion, "api-version", "",
		"Posting API version, v1 or v2 (default from TWITTER_API_VERSION)")
	tweetCmd.Flags().StringVar(&tweetTemplateDir, "template-dir", "",
		"Directory holding a "+render.TemplateName+" that overrides the bundled template")
	tweetCmd.Flags().StringArrayVar(&tweetContext, "context", nil,
		"Extra template variable as key=value, repeatable")
	tweetCmd.Flags().BoolVar(&tweetDestroy, "destroy", false,
		"Delete the tweet again 10s after sending it, useful for testing")
	rootCmd.AddCommand(tweetCmd)
}

func runTweet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	versionName := cfg.APIVersion
	if tweetAPIVersion != "" {
		versionName = tweetAPIVersion
	}
	version, err := twitter.ParseAPIVersion(versionName)
	if err != nil {
		return err
	}

	callCtx, err := parseContextFlags(tweetContext)
	if err != nil {
		return err
	}

	templateDir := cfg.TemplateDir
	if tweetTemplateDir != "" {
		templateDir = tweetTemplateDir
	}

	var credentials creds.Credentials
	if !tweetSuppressConnection {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
		resolved, err := creds.Resolve(cfg.KeyPath)
		if err != nil {
			return err
		}
		credentials = *resolved
	}

	store := openHistory(ctx, cfg)
	if store != nil {
		defer store.Close()
	}

	tw, err := tweeter.New(tweeter.Config{
		Credentials:        credentials,
		Version:            version,
		SuppressTweeting:   tweetSuppressTweeting,
		SuppressConnection: tweetSuppressConnection,
		TemplateDir:        templateDir,
		Store:              store,
	})
	if err != nil {
		return err
	}

	return tw.Do(ctx, func(tw *tweeter.Tweeter) error {
		res, err := tw.Tweet(ctx, args[0], callCtx)
		if err != nil {
			return err
		}

		if res.Suppressed {
			fmt.Println("Tweet suppressed, nothing was sent.")
			return nil
		}
		fmt.Printf("Tweeted %s (id %s)\n", args[0], res.ID)

		if tweetDestroy {
			slog.Info("waiting before destroying tweet", "id", res.ID, "delay", destroyDelay)
			select {
			case <-time.After(destroyDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := tw.Destroy(ctx, res.ID); err != nil {
				return err
			}
			fmt.Printf("Destroyed tweet %s\n", res.ID)
		}
		return nil
	})
}

// parseContextFlags turns repeated key=value flags into a call-level
// template context.
func parseContextFlags(kvs []string) (render.Context, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	callCtx := render.Context{}
	for _, kv := range kvs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --context value %q, want key=value", kv)
		}
		callCtx[key] = value
	}
	return callCtx, nil
}

// openHistory opens the tweet log, or returns nil with a warning so a
// broken local database never blocks a tweet.
func openHistory(ctx context.Context, cfg *config.Config) *history.Store {
	if err := cfg.ValidateForHistory(); err != nil {
		slog.Warn("tweet history disabled", "error", err)
		return nil
	}
	store, err := history.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		slog.Warn("failed to open tweet history, continuing without it", "error", err)
		return nil
	}
	return store
}
