// Package tweeter composes the renderer, the session and the history
// log into the CheerLights tweeting pipeline.
package tweeter

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cheerlights/cheertweet/internal/creds"
	"github.com/cheerlights/cheertweet/internal/history"
	"github.com/cheerlights/cheertweet/internal/render"
	"github.com/cheerlights/cheertweet/internal/twitter"
)

// Config holds everything needed to build a Tweeter.
type Config struct {
	Credentials creds.Credentials
	Version     twitter.APIVersion

	SuppressTweeting   bool
	SuppressConnection bool

	// TemplateDir optionally overrides the bundled tweet template.
	TemplateDir string

	// Context supplies instance-level template variables.
	Context render.Context

	// Store, when set, records every successful send.
	Store *history.Store

	// HTTPClient overrides the oauth1-signed client; tests use this.
	HTTPClient *http.Client
}

// Tweeter renders colour updates and sends them through a session.
type Tweeter struct {
	renderer *render.Renderer
	session  *twitter.Session
	store    *history.Store
	version  twitter.APIVersion
}

// New builds the pipeline. The template is loaded eagerly so a broken
// override fails here rather than mid-tweet.
func New(cfg Config) (*Tweeter, error) {
	renderer, err := render.New(render.Config{
		TemplateDir: cfg.TemplateDir,
		Context:     cfg.Context,
	})
	if err != nil {
		return nil, err
	}

	version := cfg.Version
	if version == 0 {
		version = twitter.V1
	}

	session := twitter.NewSession(twitter.Config{
		Credentials:        cfg.Credentials,
		Version:            version,
		SuppressConnection: cfg.SuppressConnection,
		SuppressTweeting:   cfg.SuppressTweeting,
		HTTPClient:         cfg.HTTPClient,
	})

	return &Tweeter{
		renderer: renderer,
		session:  session,
		store:    cfg.Store,
		version:  version,
	}, nil
}

// Connect opens the underlying session.
func (t *Tweeter) Connect(ctx context.Context) error {
	return t.session.Connect(ctx)
}

// Disconnect closes the underlying session. Idempotent.
func (t *Tweeter) Disconnect() {
	t.session.Disconnect()
}

// Payload renders the tweet text for a colour without sending anything.
func (t *Tweeter) Payload(colourName string, callCtx render.Context) (string, error) {
	return t.renderer.Render(colourName, callCtx)
}

// Tweet validates the colour, renders the payload and sends it. Colour
// and template failures happen before any network I/O. Successful sends
// are recorded in the history store when one is configured.
func (t *Tweeter) Tweet(ctx context.Context, colourName string, callCtx render.Context) (*twitter.Result, error) {
	payload, err := t.renderer.Render(colourName, callCtx)
	if err != nil {
		return nil, err
	}

	slog.Info("tweet prepared", "colour", colourName, "payload", payload)

	res, err := t.session.Send(ctx, payload)
	if err != nil {
		return nil, err
	}

	if t.store != nil && !res.Suppressed {
		if _, err := t.store.Record(ctx, colourName, payload, res.ID, t.version.String()); err != nil {
			slog.Warn("failed to record tweet in history", "error", err)
		}
	}

	return res, nil
}

// Destroy deletes a sent tweet and marks it in the history log.
func (t *Tweeter) Destroy(ctx context.Context, id string) error {
	if err := t.session.Destroy(ctx, id); err != nil {
		return err
	}
	if t.store != nil {
		if err := t.store.MarkDestroyed(ctx, id); err != nil {
			slog.Warn("failed to mark tweet destroyed in history", "error", err)
		}
	}
	return nil
}

// Do runs fn inside a connect/disconnect scope.
func (t *Tweeter) Do(ctx context.Context, fn func(*Tweeter) error) error {
	return t.session.Do(ctx, func(*twitter.Session) error {
		return fn(t)
	})
}
