package push

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// WebsocketSource streams push payloads over a websocket connection to the
// platform, authenticated with the driver's bearer token.
type WebsocketSource struct {
	url    string
	tokens interface{ AuthToken() string }
	logger *slog.Logger
}

// NewWebsocketSource creates a source dialing url.
func NewWebsocketSource(url string, tokens interface{ AuthToken() string }, logger *slog.Logger) *WebsocketSource {
	return &WebsocketSource{url: url, tokens: tokens, logger: logger}
}

// Run dials the platform and reads messages until ctx is cancelled or the
// connection drops.
func (s *WebsocketSource) Run(ctx context.Context, handle func([]byte)) error {
	header := http.Header{}
	if token := s.tokens.AuthToken(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
	if err != nil {
		return fmt.Errorf("connecting to push websocket: %w", err)
	}
	defer conn.Close()
	s.logger.Info("push websocket connected", "url", s.url)

	// Unblock ReadMessage when the context ends.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading push message: %w", err)
		}
		handle(data)
	}
}
