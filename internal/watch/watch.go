// Package watch bridges an MQTT colour feed to the tweeting pipeline.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/cheerlights/cheertweet/internal/colour"
	"github.com/cheerlights/cheertweet/internal/render"
	"github.com/cheerlights/cheertweet/internal/twitter"
)

// Sender sends one colour update; the tweeter satisfies it.
type Sender interface {
	Tweet(ctx context.Context, colourName string, callCtx render.Context) (*twitter.Result, error)
}

// Config holds watcher configuration.
type Config struct {
	// Broker is the MQTT broker URL, e.g. tcp://mqtt.cheerlights.com:1883.
	Broker string

	// Topic carries colour names as message payloads.
	Topic string

	Sender Sender
}

// Watcher subscribes to a broker topic and tweets every valid colour
// message it receives. Messages that do not parse as a palette colour
// are logged and skipped, not fatal.
type Watcher struct {
	cfg Config
}

// New creates a watcher.
func New(cfg Config) *Watcher {
	return &Watcher{cfg: cfg}
}

// Run connects to the broker and subscribes, then blocks until ctx ends.
// The subscription handler funnels every message through handle.
func (w *Watcher) Run(ctx context.Context) error {
	clientID := uuid.NewString() + "_cheertweet"
	opts := mqtt.NewClientOptions().
		AddBroker(w.cfg.Broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to mqtt broker %s: %w", w.cfg.Broker, token.Error())
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, m mqtt.Message) {
		w.handle(ctx, m.Payload())
	}
	if token := client.Subscribe(w.cfg.Topic, 0, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", w.cfg.Topic, token.Error())
	}

	slog.Info("watching for colour updates", "broker", w.cfg.Broker, "topic", w.cfg.Topic)

	<-ctx.Done()
	slog.Info("watcher shutting down")
	return nil
}

// handle processes one message payload.
func (w *Watcher) handle(ctx context.Context, payload []byte) {
	name := strings.TrimSpace(string(payload))
	if _, err := colour.Parse(name); err != nil {
		slog.Warn("ignoring message with unknown colour", "payload", name)
		return
	}

	res, err := w.cfg.Sender.Tweet(ctx, name, nil)
	if err != nil {
		slog.Error("failed to tweet colour update", "colour", name, "error", err)
		return
	}
	if res.Suppressed {
		slog.Info("colour update suppressed", "colour", name)
		return
	}
	slog.Info("colour update tweeted", "colour", name, "id", res.ID)
}
