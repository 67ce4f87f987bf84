package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cheerlights/cheertweet/internal/config"
	"github.com/cheerlights/cheertweet/internal/creds"
	"github.com/cheerlights/cheertweet/internal/tweeter"
	"github.com/cheerlights/cheertweet/internal/twitter"
	"github.com/cheerlights/cheertweet/internal/watch"
)

var (
	watchSuppressTweeting bool
	watchTemplateDir      string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tweet colour updates from an MQTT feed",
	Long: `Subscribe to an MQTT topic and tweet every colour message received.

Runs until interrupted. Message payloads must be palette colour names;
anything else is logged and skipped.

Examples:
  cheertweet watch
  cheertweet watch --suppress-tweeting   # exercise the feed without posting`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchSuppressTweeting, "suppress-tweeting", false,
		"Connect to the API but skip the status updates, useful for testing")
	watchCmd.Flags().StringVar(&watchTemplateDir, "template-dir", "",
		"Directory holding a template that overrides the bundled one")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForWatch(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	version, err := twitter.ParseAPIVersion(cfg.APIVersion)
	if err != nil {
		return err
	}

	credentials, err := creds.Resolve(cfg.KeyPath)
	if err != nil {
		return err
	}

	templateDir := cfg.TemplateDir
	if watchTemplateDir != "" {
		templateDir = watchTemplateDir
	}

	store := openHistory(ctx, cfg)
	if store != nil {
		defer store.Close()
	}

	tw, err := tweeter.New(tweeter.Config{
		Credentials:      *credentials,
		Version:          version,
		SuppressTweeting: watchSuppressTweeting,
		TemplateDir:      templateDir,
		Store:            store,
	})
	if err != nil {
		return err
	}

	if err := tw.Connect(ctx); err != nil {
		return err
	}
	defer tw.Disconnect()

	watcher := watch.New(watch.Config{
		Broker: cfg.MQTTBroker,
		Topic:  cfg.MQTTTopic,
		Sender: tw,
	})
	return watcher.Run(ctx)
}
