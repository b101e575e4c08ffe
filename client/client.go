// Package client is a small WebSocket client for the relay, used by the peek
// CLI and the end-to-end suite.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pair-relay/domain"
	"pair-relay/domain/event"

	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	URL    string `envconfig:"RELAY_URL" default:"ws://localhost:3001/ws"`
	Secret string `envconfig:"RELAY_SECRET"`
	// RELAY_COLOURS enables colorized output
	Colours bool          `envconfig:"RELAY_COLOURS" default:"true"`
	Timeout time.Duration `envconfig:"RELAY_TIMEOUT" default:"5s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}

type Client struct {
	conn    *websocket.Conn
	timeout time.Duration
}

// Dial opens a connection to the relay endpoint.
func Dial(ctx context.Context, url string, timeout time.Duration) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn, timeout: timeout}, nil
}

func (c *Client) Close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// Send writes one event frame.
func (c *Client) Send(t event.Type, payload any) error {
	raw, err := event.Encode(event.Event{Type: t, Payload: payload})
	if err != nil {
		return err
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

// Next reads the next frame, whatever its type.
func (c *Client) Next() (event.Frame, error) {
	var frame event.Frame
	_ = c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return frame, err
	}
	err = json.Unmarshal(raw, &frame)
	return frame, err
}

// Expect skips frames until one of type t arrives and decodes its payload into out.
// An error frame received meanwhile aborts the wait.
func (c *Client) Expect(t event.Type, out any) error {
	for {
		frame, err := c.Next()
		if err != nil {
			return err
		}
		switch frame.Type {
		case t:
			if out == nil {
				return nil
			}
			return json.Unmarshal(frame.Payload, out)
		case event.ErrorType, event.LoginErrorType:
			var payload event.ErrorPayload
			_ = json.Unmarshal(frame.Payload, &payload)
			return fmt.Errorf("%s: %s (%s)", frame.Type, payload.Error, payload.Code)
		}
	}
}

// Login authenticates with a shared secret.
func (c *Client) Login(secret string) (event.LoginSuccess, error) {
	var success event.LoginSuccess
	if err := c.Send(event.LoginType, event.LoginRequest{Secret: secret}); err != nil {
		return success, err
	}
	err := c.Expect(event.LoginSuccessType, &success)
	return success, err
}

// Join enters the room and returns the ledger snapshot and who is online.
func (c *Client) Join() ([]domain.Message, []domain.Identity, error) {
	if err := c.Send(event.JoinType, event.JoinRequest{}); err != nil {
		return nil, nil, err
	}
	var history []domain.Message
	if err := c.Expect(event.MessagesHistoryType, &history); err != nil {
		return nil, nil, err
	}
	var online event.UsersOnline
	if err := c.Expect(event.UsersOnlineType, &online); err != nil {
		return history, nil, err
	}
	return history, online.Identities, nil
}
