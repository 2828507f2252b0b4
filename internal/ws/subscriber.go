package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// Subscription is the player side of the status stream.
type Subscription struct {
	conn *websocket.Conn
}

// Subscribe dials baseURL (http or ws scheme) and waits for the ready frame.
func Subscribe(ctx context.Context, baseURL, token string) (*Subscription, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/ws")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial status stream: %w", err)
	}

	var ready struct {
		Type string `json:"type"`
	}
	if err := conn.ReadJSON(&ready); err != nil || ready.Type != MsgReady {
		_ = conn.Close()
		return nil, fmt.Errorf("status stream handshake failed: %v", err)
	}
	return &Subscription{conn: conn}, nil
}

// Next blocks until the next status frame.
func (s *Subscription) Next() (StatusMessage, error) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return StatusMessage{}, err
		}
		var msg StatusMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == MsgStatus {
			return msg, nil
		}
	}
}

// Listen calls fn for every status frame until ctx is done or the stream
// fails.
func (s *Subscription) Listen(ctx context.Context, fn func(StatusMessage)) error {
	go func() {
		<-ctx.Done()
		_ = s.conn.Close()
	}()
	for {
		msg, err := s.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		fn(msg)
	}
}

func (s *Subscription) Close() error {
	return s.conn.Close()
}
