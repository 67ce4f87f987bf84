// Package creds resolves Twitter API credentials from key files or the
// environment, and can run the interactive flow that generates the
// user-level access pair.
package creds

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Credential file names looked up under the key path.
const (
	ConsumerFile = "consumer_twitter_credentials.json"
	AccessFile   = "access_twitter_credentials.json"

	// LegacyFile is the old single-file format holding all four keys.
	LegacyFile = "twitter_credentials.json"
)

// Environment variables used when no key files are present.
// All four must be set together.
const (
	EnvConsumerKey    = "TWITTER_API_KEY"
	EnvConsumerSecret = "TWITTER_API_SECRET"
	EnvAccessToken    = "TWITTER_ACCESS_TOKEN"
	EnvAccessSecret   = "TWITTER_ACCESS_SECRET"
)

// Credentials holds both key pairs needed to act on behalf of an account.
// Once resolved the value is never mutated.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

// CredentialError reports missing or malformed credentials.
type CredentialError struct {
	Reason string
	Err    error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credentials: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("credentials: %s", e.Reason)
}

func (e *CredentialError) Unwrap() error { return e.Err }

type consumerDoc struct {
	ConsumerKey    *string `json:"CONSUMER_KEY"`
	ConsumerSecret *string `json:"CONSUMER_SECRET"`
}

type accessDoc struct {
	AccessToken  *string `json:"ACCESS_TOKEN"`
	AccessSecret *string `json:"ACCESS_SECRET"`
}

type legacyDoc struct {
	consumerDoc
	accessDoc
}

// Resolve locates credentials, preferring key files under dir over the
// TWITTER_* environment variables. A key file that exists but is missing
// required fields is a hard CredentialError, not a fallback to the
// environment, so an operator typo cannot silently change where the keys
// come from.
func Resolve(dir string) (*Credentials, error) {
	consumerPath := filepath.Join(dir, ConsumerFile)
	if fileExists(consumerPath) {
		slog.Info("resolving twitter credentials from key files", "path", dir)
		return resolveFromFiles(dir)
	}

	legacyPath := filepath.Join(dir, LegacyFile)
	if fileExists(legacyPath) {
		slog.Info("resolving twitter credentials from legacy key file", "path", legacyPath)
		return resolveFromLegacyFile(legacyPath)
	}

	slog.Info("resolving twitter credentials from environment variables")
	return resolveFromEnv()
}

// ResolveConsumer returns only the consumer pair from the consumer key
// file under dir. The authorization flow uses this before an access pair
// exists.
func ResolveConsumer(dir string) (*Credentials, error) {
	path := filepath.Join(dir, ConsumerFile)
	if !fileExists(path) {
		return nil, &CredentialError{Reason: fmt.Sprintf("consumer key file %s not found", path)}
	}

	var doc consumerDoc
	if err := readJSONFile(path, &doc); err != nil {
		return nil, err
	}
	if doc.ConsumerKey == nil || doc.ConsumerSecret == nil {
		return nil, &CredentialError{Reason: fmt.Sprintf("%s is missing CONSUMER_KEY or CONSUMER_SECRET", path)}
	}

	return &Credentials{
		ConsumerKey:    *doc.ConsumerKey,
		ConsumerSecret: *doc.ConsumerSecret,
	}, nil
}

func resolveFromFiles(dir string) (*Credentials, error) {
	consumer, err := ResolveConsumer(dir)
	if err != nil {
		return nil, err
	}

	accessPath := filepath.Join(dir, AccessFile)
	var doc accessDoc
	if err := readJSONFile(accessPath, &doc); err != nil {
		return nil, err
	}
	if doc.AccessToken == nil || doc.AccessSecret == nil {
		return nil, &CredentialError{Reason: fmt.Sprintf("%s is missing ACCESS_TOKEN or ACCESS_SECRET", accessPath)}
	}

	return &Credentials{
		ConsumerKey:    consumer.ConsumerKey,
		ConsumerSecret: consumer.ConsumerSecret,
		AccessToken:    *doc.AccessToken,
		AccessSecret:   *doc.AccessSecret,
	}, nil
}

func resolveFromLegacyFile(path string) (*Credentials, error) {
	var doc legacyDoc
	if err := readJSONFile(path, &doc); err != nil {
		return nil, err
	}
	if doc.ConsumerKey == nil || doc.ConsumerSecret == nil || doc.AccessToken == nil || doc.AccessSecret == nil {
		return nil, &CredentialError{Reason: fmt.Sprintf("%s is missing one of CONSUMER_KEY, CONSUMER_SECRET, ACCESS_TOKEN, ACCESS_SECRET", path)}
	}

	return &Credentials{
		ConsumerKey:    *doc.ConsumerKey,
		ConsumerSecret: *doc.ConsumerSecret,
		AccessToken:    *doc.AccessToken,
		AccessSecret:   *doc.AccessSecret,
	}, nil
}

func resolveFromEnv() (*Credentials, error) {
	for _, key := range []string{EnvConsumerKey, EnvConsumerSecret, EnvAccessToken, EnvAccessSecret} {
		if os.Getenv(key) == "" {
			return nil, &CredentialError{Reason: fmt.Sprintf("no key files found and environment variable %s is not set", key)}
		}
	}

	return &Credentials{
		ConsumerKey:    os.Getenv(EnvConsumerKey),
		ConsumerSecret: os.Getenv(EnvConsumerSecret),
		AccessToken:    os.Getenv(EnvAccessToken),
		AccessSecret:   os.Getenv(EnvAccessSecret),
	}, nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &CredentialError{Reason: fmt.Sprintf("read %s", path), Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &CredentialError{Reason: fmt.Sprintf("parse %s", path), Err: err}
	}
	return nil
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
