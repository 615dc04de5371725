// Package qdrant opens the Qdrant gRPC client.
package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kart-io/graphrag/pkg/component/storage"
	qdrantopts "github.com/kart-io/graphrag/pkg/options/qdrant"
)

// Client wraps *qdrant.Client with the storage.Client contract.
type Client struct {
	*qdrant.Client
	opts *qdrantopts.Options
}

var _ storage.Client = (*Client)(nil)

// New dials Qdrant. The gRPC connection is lazy, callers probe with Ping.
func New(opts *qdrantopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("qdrant options is nil")
	}

	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   opts.Host,
		Port:   opts.Port,
		APIKey: opts.APIKey,
		UseTLS: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &Client{Client: c, opts: opts}, nil
}

// Name returns the storage type identifier.
func (c *Client) Name() string {
	return "qdrant"
}

// Ping calls the Qdrant health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	_, err := c.HealthCheck(ctx)
	return err
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.Client.Close()
}

// Options returns the options the client was created with.
func (c *Client) Options() *qdrantopts.Options {
	return c.opts
}
