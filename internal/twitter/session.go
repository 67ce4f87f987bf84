// Package twitter manages the authenticated session with the X/Twitter
// API and dispatches status updates through either the v1.1 or v2
// endpoints.
package twitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	gotwitter "github.com/dghubble/go-twitter/twitter"
	"github.com/dghubble/oauth1"

	"github.com/cheerlights/cheertweet/internal/creds"
)

// APIVersion selects which version of the posting API a session targets.
// It is fixed for the lifetime of the session.
type APIVersion int

const (
	V1 APIVersion = iota + 1
	V2
)

func (v APIVersion) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	default:
		return fmt.Sprintf("APIVersion(%d)", int(v))
	}
}

// ParseAPIVersion parses "v1" or "v2".
func ParseAPIVersion(s string) (APIVersion, error) {
	switch s {
	case "v1":
		return V1, nil
	case "v2":
		return V2, nil
	default:
		return 0, fmt.Errorf("unknown api version %q (want v1 or v2)", s)
	}
}

// ErrNotConnected is returned when an operation needing an active
// session runs against a disconnected one.
var ErrNotConnected = errors.New("not connected to the twitter api")

// ConnectionError reports a failure to establish the session.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to twitter: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DispatchError reports a rejected or failed remote submission. The
// caller decides whether to retry; the session never does.
type DispatchError struct {
	Op  string
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Result is the outcome of a send. Suppressed results carry no ID and
// mean no network I/O took place.
type Result struct {
	ID         string
	Suppressed bool
}

// Config holds session configuration.
type Config struct {
	Credentials creds.Credentials
	Version     APIVersion

	// SuppressConnection makes Connect and Disconnect no-ops and
	// short-circuits Send; nothing touches the network.
	SuppressConnection bool

	// SuppressTweeting connects and verifies as normal but skips the
	// actual status update, returning a suppressed Result.
	SuppressTweeting bool

	// HTTPClient replaces the oauth1-signed client when set; tests use
	// this to point the session at a local server.
	HTTPClient *http.Client
}

// Session is a connect/disconnect lifecycle around an authenticated
// client. The zero state is disconnected. Sessions are not safe for
// concurrent use; the pipeline is strictly sequential.
type Session struct {
	cfg        Config
	httpClient *http.Client
	v1         *gotwitter.Client
	connected  bool
	account    string
}

// NewSession creates a disconnected session bound to the credentials and
// API version in cfg. The version defaults to v1.
func NewSession(cfg Config) *Session {
	if cfg.Version == 0 {
		cfg.Version = V1
	}
	return &Session{cfg: cfg}
}

// Connect builds the authenticated client and verifies the credentials
// against the remote API. Calling Connect on an already connected
// session is a no-op. With SuppressConnection set it does nothing.
func (s *Session) Connect(ctx context.Context) error {
	if s.cfg.SuppressConnection {
		slog.Warn("twitter connection suppressed")
		return nil
	}
	if s.connected {
		return nil
	}

	httpClient := s.cfg.HTTPClient
	if httpClient == nil {
		config := oauth1.NewConfig(s.cfg.Credentials.ConsumerKey, s.cfg.Credentials.ConsumerSecret)
		token := oauth1.NewToken(s.cfg.Credentials.AccessToken, s.cfg.Credentials.AccessSecret)
		httpClient = config.Client(ctx, token)
	}

	account, err := verifyCredentials(ctx, httpClient, s.cfg.Version)
	if err != nil {
		return &ConnectionError{Err: err}
	}

	s.httpClient = httpClient
	s.v1 = gotwitter.NewClient(httpClient)
	s.connected = true
	s.account = account

	slog.Info("twitter api access confirmed", "account", account, "version", s.cfg.Version.String())
	return nil
}

// Disconnect releases the client. It is idempotent; disconnecting a
// disconnected session is a no-op.
func (s *Session) Disconnect() {
	if s.cfg.SuppressConnection {
		return
	}
	if !s.connected {
		return
	}
	s.httpClient = nil
	s.v1 = nil
	s.connected = false
	s.account = ""
	slog.Info("disconnected from twitter")
}

// Connected reports whether the session is live.
func (s *Session) Connected() bool {
	return s.connected
}

// Account returns the screen name confirmed at connect time.
func (s *Session) Account() string {
	return s.account
}

// Do connects, runs fn and disconnects on every exit path, the scoped
// form of the session lifecycle.
func (s *Session) Do(ctx context.Context, fn func(*Session) error) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	defer s.Disconnect()
	return fn(s)
}

// Send submits a rendered payload and returns the remote tweet ID. With
// SuppressTweeting or SuppressConnection set it performs no network I/O
// and returns a suppressed Result. Remote rejection is a DispatchError;
// the caller decides on retry.
func (s *Session) Send(ctx context.Context, payload string) (*Result, error) {
	if s.cfg.SuppressConnection {
		slog.Warn("tweet suppressed, connection is disabled", "payload", payload)
		return &Result{Suppressed: true}, nil
	}
	if !s.connected {
		return nil, ErrNotConnected
	}
	if s.cfg.SuppressTweeting {
		slog.Warn("tweet suppressed and not sent", "payload", payload)
		return &Result{Suppressed: true}, nil
	}

	switch s.cfg.Version {
	case V2:
		id, err := createTweetV2(ctx, s.httpClient, payload)
		if err != nil {
			return nil, err
		}
		slog.Info("tweet sent", "id", id, "version", "v2")
		return &Result{ID: id}, nil
	default:
		tweet, _, err := s.v1.Statuses.Update(payload, nil)
		if err != nil {
			return nil, &DispatchError{Op: "POST statuses/update", Err: err}
		}
		id := tweet.IDStr
		if id == "" {
			id = strconv.FormatInt(tweet.ID, 10)
		}
		slog.Info("tweet sent", "id", id, "version", "v1")
		return &Result{ID: id}, nil
	}
}

// Destroy deletes a previously sent tweet. Useful for round-trip tests
// against the live API.
func (s *Session) Destroy(ctx context.Context, id string) error {
	if s.cfg.SuppressConnection {
		slog.Warn("tweet destroy suppressed, connection is disabled", "id", id)
		return nil
	}
	if !s.connected {
		return ErrNotConnected
	}

	switch s.cfg.Version {
	case V2:
		if err := deleteTweetV2(ctx, s.httpClient, id); err != nil {
			return err
		}
	default:
		id64, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return &DispatchError{Op: "POST statuses/destroy", Err: fmt.Errorf("bad tweet id %q: %w", id, err)}
		}
		if _, _, err := s.v1.Statuses.Destroy(id64, nil); err != nil {
			return &DispatchError{Op: "POST statuses/destroy", Err: err}
		}
	}

	slog.Info("tweet destroyed", "id", id)
	return nil
}

// LastTweets returns the most recent tweets on the authenticated user's
// timeline, newest first. v1.1 only; round-trip test aid.
func (s *Session) LastTweets(ctx context.Context, count int) ([]gotwitter.Tweet, error) {
	if s.cfg.SuppressConnection {
		return nil, nil
	}
	if !s.connected {
		return nil, ErrNotConnected
	}

	tweets, _, err := s.v1.Timelines.UserTimeline(&gotwitter.UserTimelineParams{Count: count})
	if err != nil {
		return nil, &DispatchError{Op: "GET statuses/user_timeline", Err: err}
	}
	return tweets, nil
}

// TweetsSince returns up to count tweets on the authenticated user's
// timeline newer than sinceID, newest first. v1.1 only.
func (s *Session) TweetsSince(ctx context.Context, sinceID string, count int) ([]gotwitter.Tweet, error) {
	if s.cfg.SuppressConnection {
		return nil, nil
	}
	if !s.connected {
		return nil, ErrNotConnected
	}

	since64, err := strconv.ParseInt(sinceID, 10, 64)
	if err != nil {
		return nil, &DispatchError{Op: "GET statuses/user_timeline", Err: fmt.Errorf("bad since id %q: %w", sinceID, err)}
	}

	tweets, _, err := s.v1.Timelines.UserTimeline(&gotwitter.UserTimelineParams{SinceID: since64, Count: count})
	if err != nil {
		return nil, &DispatchError{Op: "GET statuses/user_timeline", Err: err}
	}
	return tweets, nil
}
