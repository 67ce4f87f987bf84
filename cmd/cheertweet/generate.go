package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cheerlights/cheertweet/internal/config"
	"github.com/cheerlights/cheertweet/internal/creds"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate user access credentials",
	Long: `Run the interactive OAuth flow that turns the consumer key pair into a
user access token.

The flow prints an authorization URL, waits for the PIN shown after
approving the app in a browser, then exchanges it for an access pair
and offers to save it next to the consumer key file. It requires the
consumer key file; access token generation is not supported with
environment variable credentials.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	consumer, err := creds.ResolveConsumer(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("access token generation needs the consumer key file: %w", err)
	}

	authorizer := &creds.Authorizer{
		ConsumerKey:    consumer.ConsumerKey,
		ConsumerSecret: consumer.ConsumerSecret,
		AccessPath:     filepath.Join(cfg.KeyPath, creds.AccessFile),
	}

	if _, err := authorizer.Run(); err != nil {
		return err
	}

	fmt.Println("Access credentials generated.")
	return nil
}
