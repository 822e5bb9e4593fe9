// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package natsbus

import (
	"fmt"
	"sync"
	"time"

	"github.com/hiltest/hilcore/pkg/log"
	"github.com/nats-io/nats.go"
)

// DeliveryPolicy selects where a new durable consumer starts reading
// from: all retained messages, only the last one, or only new ones.
type DeliveryPolicy int

const (
	DeliverAll DeliveryPolicy = iota
	DeliverLast
	DeliverNew
)

func (p DeliveryPolicy) jetstreamOption() nats.SubOpt {
	switch p {
	case DeliverLast:
		return nats.DeliverLast()
	case DeliverNew:
		return nats.DeliverNew()
	default:
		return nats.DeliverAll()
	}
}

// MessageHandler processes one delivered message; the subject is passed
// separately since callers often dispatch on it before touching data.
type MessageHandler func(subject string, data []byte)

// Client wraps a NATS connection plus its JetStream context, tracking
// subscriptions created through it so Close can tear them all down. A
// Client owns its connection unless constructed via NewClientFromConn,
// in which case the caller retains ownership: a client never closes a
// connection it didn't open.
type Client struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	ownsConn      bool
	mu            sync.Mutex
	subscriptions []*nats.Subscription
}

// Connect dials the broker described by cfg and opens a JetStream
// context on the resulting connection.
func Connect(cfg Config) (*Client, error) {
	var opts []nats.Option

	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.CredsFilePath != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFilePath))
	}

	opts = append(opts, nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
		if err != nil {
			log.Warnf("natsbus: disconnected: %v", err)
		}
	}))
	opts = append(opts, nats.ReconnectHandler(func(nc *nats.Conn) {
		log.Infof("natsbus: reconnected to %s", nc.ConnectedUrl())
	}))
	opts = append(opts, nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
		log.Errorf("natsbus: async error: %v", err)
	}))

	nc, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("natsbus: connect to %s: %w", cfg.Address, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natsbus: open jetstream context: %w", err)
	}

	log.Infof("natsbus: connected to %s", cfg.Address)
	return &Client{conn: nc, js: js, ownsConn: true}, nil
}

// NewClientFromConn wraps an already-open connection without taking
// ownership of it; Close will not close nc.
func NewClientFromConn(nc *nats.Conn) (*Client, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("natsbus: open jetstream context: %w", err)
	}
	return &Client{conn: nc, js: js, ownsConn: false}, nil
}

// EnsureStream creates the JetStream stream backing subjects if it does
// not already exist, idempotently.
func (c *Client) EnsureStream(name string, subjects []string) error {
	if _, err := c.js.StreamInfo(name); err == nil {
		return nil
	}
	_, err := c.js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: subjects,
	})
	if err != nil {
		return fmt.Errorf("natsbus: ensure stream %q: %w", name, err)
	}
	log.Infof("natsbus: stream %q ensured for subjects %v", name, subjects)
	return nil
}

// Publish sends data on subject through the JetStream context, so the
// publish is acknowledged by the stream before this call returns.
func (c *Client) Publish(subject string, data []byte) error {
	if _, err := c.js.Publish(subject, data); err != nil {
		return fmt.Errorf("natsbus: publish to %q: %w", subject, err)
	}
	return nil
}

// SubscribeDurable creates (or rejoins) a durable push consumer on
// subject, starting from policy. Messages are delivered with manual ack
// enabled so the caller can delay acknowledgement for backpressure.
func (c *Client) SubscribeDurable(subject, durable string, policy DeliveryPolicy, handler func(*nats.Msg)) (*nats.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.js.Subscribe(subject, handler,
		nats.Durable(durable),
		nats.ManualAck(),
		nats.AckExplicit(),
		policy.jetstreamOption(),
	)
	if err != nil {
		return nil, fmt.Errorf("natsbus: subscribe to %q (durable %q): %w", subject, durable, err)
	}
	c.subscriptions = append(c.subscriptions, sub)
	log.Infof("natsbus: subscribed to %q as durable %q", subject, durable)
	return sub, nil
}

// SubscribeEphemeral subscribes without a durable name; the
// subscription is discarded on Close/Unsubscribe and does not survive a
// process restart. Used by control-plane subscriptions (state bus) that
// do not need replay.
func (c *Client) SubscribeEphemeral(subject string, handler func(*nats.Msg)) (*nats.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.conn.Subscribe(subject, handler)
	if err != nil {
		return nil, fmt.Errorf("natsbus: ephemeral subscribe to %q: %w", subject, err)
	}
	c.subscriptions = append(c.subscriptions, sub)
	return sub, nil
}

// Unsubscribe tears down one subscription created through this client.
func (c *Client) Unsubscribe(sub *nats.Subscription) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, s := range c.subscriptions {
		if s == sub {
			c.subscriptions = append(c.subscriptions[:i], c.subscriptions[i+1:]...)
			break
		}
	}
	return sub.Unsubscribe()
}

// Flush blocks until all buffered publishes reach the server.
func (c *Client) Flush() error {
	return c.conn.Flush()
}

// FlushTimeout is Flush with a deadline, used by stop() paths that must
// not hang indefinitely on a stalled broker.
func (c *Client) FlushTimeout(d time.Duration) error {
	return c.conn.FlushTimeout(d)
}

// IsConnected reports whether the underlying connection is currently up.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Connection exposes the underlying *nats.Conn for callers that need
// lower-level access (e.g. a shared-connection consumer).
func (c *Client) Connection() *nats.Conn {
	return c.conn
}

// JetStream exposes the underlying JetStream context.
func (c *Client) JetStream() nats.JetStreamContext {
	return c.js
}

// Close unsubscribes everything created through this client and, if the
// client owns its connection, closes it. A client constructed via
// NewClientFromConn never closes the connection it was given.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sub := range c.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			log.Warnf("natsbus: unsubscribe failed: %v", err)
		}
	}
	c.subscriptions = nil

	if c.ownsConn && c.conn != nil {
		c.conn.Close()
		log.Info("natsbus: connection closed")
	}
}
