package transport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	nc "github.com/nats-io/nats.go"
)

// Subjects the kernel publishes snapshots and world events on.
const (
	SubjectSnapshotFull  = "simkernel.snapshot.full"
	SubjectSnapshotTick  = "simkernel.snapshot.tick"
	SubjectSnapshotDelta = "simkernel.snapshot.delta"
	SubjectEvents        = "simkernel.events"
)

// Client is a thin wrapper over a broker connection used both by the
// runner (to publish) and by observers (to subscribe).
type Client struct {
	conn *nc.Conn
}

// Dial connects to the broker at url with indefinite reconnect.
func Dial(url string) (*Client, error) {
	opts := []nc.Option{
		nc.ReconnectWait(1 * time.Second),
		nc.MaxReconnects(-1),
		nc.DisconnectErrHandler(func(_ *nc.Conn, err error) {
			if err != nil {
				slog.Warn("transport: disconnected", "error", err)
			}
		}),
		nc.ReconnectHandler(func(c *nc.Conn) {
			slog.Info("transport: reconnected", "url", c.ConnectedUrl())
		}),
	}

	conn, err := nc.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial transport broker: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// PublishJSON marshals v and publishes it to subject.
func (c *Client) PublishJSON(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal transport payload: %w", err)
	}
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers an async handler for subject; the returned
// unsubscribe func is idempotent.
func (c *Client) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	sub, err := c.conn.Subscribe(subject, func(m *nc.Msg) {
		handler(m.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}
