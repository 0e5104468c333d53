package messagebroker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrNotConnected is returned by Publish when the connection is not usable.
// Callers treat it as the broker being unavailable.
var ErrNotConnected = errors.New("nats connection is not established")

// NatsClient wraps a NATS connection.
type NatsClient struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNatsClient connects to NATS.
// natsURL example: "nats://localhost:4222"
func NewNatsClient(natsURL string, appName string, logger *slog.Logger) (*NatsClient, error) {
	log := logger.With("component", "nats_client")
	nc, err := nats.Connect(natsURL,
		nats.Name(appName),
		nats.Timeout(5*time.Second),
		nats.PingInterval(20*time.Second),
		nats.MaxPingsOutstanding(3),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(c *nats.Conn) {
			log.Info("NATS connection closed", "error", c.LastError())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NatsClient{conn: nc, logger: log}, nil
}

// Publish sends data on subject. It refuses to buffer while disconnected.
func (c *NatsClient) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.conn == nil || c.conn.Status() != nats.CONNECTED {
		return ErrNotConnected
	}
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers handler on subject within queueGroup.
// The subscription is drained when ctx is cancelled.
func (c *NatsClient) Subscribe(ctx context.Context, subject, queueGroup string, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := c.conn.QueueSubscribe(subject, queueGroup, handler)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			c.logger.Warn("Failed to drain NATS subscription", "subject", subject, "error", err)
		}
	}()
	c.logger.InfoContext(ctx, "Subscribed to NATS subject", "subject", subject, "queue_group", queueGroup)
	return sub, nil
}

// Close drains pending messages and closes the connection.
func (c *NatsClient) Close() {
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Drain(); err != nil {
			c.conn.Close()
		}
	}
}
