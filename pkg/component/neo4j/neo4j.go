// Package neo4j opens the Neo4j driver and runs read queries.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"

	"github.com/kart-io/graphrag/pkg/component/storage"
	neo4jopts "github.com/kart-io/graphrag/pkg/options/neo4j"
)

// Client wraps neo4j.DriverWithContext.
type Client struct {
	driver neo4j.DriverWithContext
	opts   *neo4jopts.Options
}

var _ storage.Client = (*Client)(nil)

// New creates the driver and verifies connectivity.
func New(ctx context.Context, opts *neo4jopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("neo4j options is nil")
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI,
		neo4j.BasicAuth(opts.Username, opts.Password, ""),
		func(c *config.Config) {
			if opts.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = opts.MaxConnectionPoolSize
			}
			if opts.ConnectTimeout > 0 {
				c.SocketConnectTimeout = opts.ConnectTimeout
			}
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", opts.URI, err)
	}

	return &Client{driver: driver, opts: opts}, nil
}

// Name returns the storage type identifier.
func (c *Client) Name() string {
	return "neo4j"
}

// Ping verifies connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

// Close closes the driver.
func (c *Client) Close() error {
	return c.driver.Close(context.Background())
}

// Query runs a read query against the configured database and returns every
// record as a key→value map.
func (c *Client) Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	result, err := neo4j.ExecuteQuery(ctx, c.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(c.opts.Database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, len(result.Records))
	for i, rec := range result.Records {
		rows[i] = rec.AsMap()
	}
	return rows, nil
}
