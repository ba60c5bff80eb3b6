// Package client assembles a connected bidriver session: one protocol
// connection plus the inspector variants and node finder bound to it.
package client

import (
	"context"
	"errors"

	"github.com/odvcencio/bidriver/pkg/config"
	"github.com/odvcencio/bidriver/pkg/inspector"
	"github.com/odvcencio/bidriver/pkg/locate"
	"github.com/odvcencio/bidriver/pkg/protocol"
)

// Client owns a protocol connection and the subsystems built on it.
type Client struct {
	cfg  config.Config
	conn *protocol.Conn

	Log             *inspector.LogInspector
	BrowsingContext *inspector.BrowsingContextInspector
	Finder          *locate.Finder
}

// Connect dials the configured endpoint and wires up the subsystems.
func Connect(ctx context.Context, cfg config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout())
	defer cancel()

	conn, err := protocol.Dial(dialCtx, cfg.Endpoint,
		protocol.WithWriteTimeout(cfg.WriteTimeout()),
	)
	if err != nil {
		return nil, err
	}
	return newClient(cfg, conn), nil
}

// New wraps an already-established connection. The caller hands over
// ownership of conn.
func New(cfg config.Config, conn *protocol.Conn) *Client {
	return newClient(cfg, conn)
}

func newClient(cfg config.Config, conn *protocol.Conn) *Client {
	return &Client{
		cfg:             cfg,
		conn:            conn,
		Log:             inspector.NewLogInspector(conn),
		BrowsingContext: inspector.NewBrowsingContextInspector(conn),
		Finder:          locate.NewFinder(conn),
	}
}

// Channel exposes the underlying protocol channel for commands the
// subsystems do not cover.
func (c *Client) Channel() protocol.Channel {
	return c.conn
}

// Close tears down the inspectors' wire subscriptions and then the
// connection. Teardown keeps going past individual failures; everything
// that went wrong comes back aggregated. Safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout())
	defer cancel()

	errs := []error{
		c.Log.Close(ctx),
		c.BrowsingContext.Close(ctx),
		c.conn.Close(),
	}
	return errors.Join(errs...)
}
