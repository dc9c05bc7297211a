package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/your-org/sentinel/internal/observability"
	"github.com/your-org/sentinel/pkg/dto"
)

// TokenSource supplies the bearer token sent on the WebSocket handshake.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// invalidator is implemented by token sources that can drop a rejected token.
type invalidator interface {
	Invalidate()
}

// WebSocketTransport reads {"type", "data"} frames from the backend push
// endpoint.
type WebSocketTransport struct {
	url    string
	tokens TokenSource
	wait   time.Duration
	dialer *websocket.Dialer
}

func NewWebSocketTransport(url string, tokens TokenSource, reconnectWait time.Duration) *WebSocketTransport {
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	return &WebSocketTransport{
		url:    url,
		tokens: tokens,
		wait:   reconnectWait,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

func (t *WebSocketTransport) Name() string { return "websocket" }

func (t *WebSocketTransport) Run(ctx context.Context, l Link) error {
	for {
		err := t.session(ctx, l)
		if ctx.Err() != nil {
			return nil
		}
		l.Down(err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(t.wait):
		}
	}
}

// session runs one connection until it fails or ctx ends.
func (t *WebSocketTransport) session(ctx context.Context, l Link) error {
	header := http.Header{}
	if t.tokens != nil {
		tok, err := t.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("push token: %w", err)
		}
		header.Set("Authorization", "Bearer "+tok)
	}

	conn, resp, err := t.dialer.DialContext(ctx, t.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			if inv, ok := t.tokens.(invalidator); ok {
				inv.Invalidate()
			}
		}
		return fmt.Errorf("dial push endpoint: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	l.Up(ctx)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read push frame: %w", err)
		}

		var frame dto.PushFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Type == "" {
			observability.PushEvents.WithLabelValues("other", "malformed").Inc()
			slog.Warn("dropping malformed push frame", "error", err, "size", len(raw))
			continue
		}
		l.Deliver(ctx, Message{Topic: frame.Type, Data: frame.Data})
	}
}
