package relay

import (
	"context"

	"github.com/gorilla/websocket"
)

// Conn is the subset of the websocket connection the manager uses. Tests
// substitute an in-memory pipe.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a relay connection. The default wraps gorilla/websocket.
type Dialer func(ctx context.Context, url string) (Conn, error)

func wsDial(ctx context.Context, url string) (Conn, error) {
	c, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	return c, nil
}
