package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/daniacca/fluidnet/internal/fluid"
)

// Subscription is an open websocket stream of tick events.
type Subscription struct {
	conn   *websocket.Conn
	events chan fluid.TickEvent
	errs   chan error
}

// Events returns the channel tick events are delivered on. The channel is
// closed when the subscription ends.
func (s *Subscription) Events() <-chan fluid.TickEvent {
	return s.events
}

// Err returns the channel the terminal read error is delivered on.
func (s *Subscription) Err() <-chan error {
	return s.errs
}

// Close closes the underlying websocket connection.
func (s *Subscription) Close() error {
	return s.conn.Close()
}

// Subscribe opens a websocket connection to the server's /ws endpoint and
// streams tick events until the context is cancelled or the connection
// closes. Events of every running network on the server are delivered.
func Subscribe(ctx context.Context, baseURL string) (*Subscription, error) {
	wsURL, err := websocketURL(baseURL)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}

	sub := &Subscription{
		conn:   conn,
		events: make(chan fluid.TickEvent, 64),
		errs:   make(chan error, 1),
	}

	// Close the connection when the context is cancelled so the read
	// loop unblocks
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	go func() {
		defer close(sub.events)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				sub.errs <- err
				return
			}

			var ev fluid.TickEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				// Skip malformed frames
				continue
			}

			select {
			case sub.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}

// websocketURL converts an http(s) base URL into the ws(s) URL of the
// server's /ws endpoint.
func websocketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	switch {
	case u.Scheme == "http":
		u.Scheme = "ws"
	case u.Scheme == "https":
		u.Scheme = "wss"
	case strings.HasPrefix(u.Scheme, "ws"):
		// Already a websocket URL
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}
