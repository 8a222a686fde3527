package taos

import (
	"context"
	"fmt"

	slogctx "github.com/veqryn/slog-context"
)

// Submitter sends one finished SQL statement to a TDengine server and returns
// the raw tabular response. Implementations must be safe for concurrent use.
type Submitter interface {
	Submit(ctx context.Context, stmt string) (*RawResponse, error)
}

// Client is the execution client shared by every operation. Every statement
// passes through the guard before it is submitted, and every raw response is
// normalized into the canonical ResultSet shape. The client holds no mutable
// state after construction, so one instance serves all concurrent callers.
type Client struct {
	sub      Submitter
	database string
}

// NewClient validates the config, connects to the REST endpoint and verifies
// it answers. A failure here is fatal to the caller; there is no reconnect
// loop.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid taos config: %w", err)
	}

	var client = &Client{
		sub:      newRESTSubmitter(cfg),
		database: cfg.Database,
	}

	if _, err := client.Execute(ctx, "SELECT SERVER_VERSION();"); err != nil {
		return nil, fmt.Errorf("failed to connect to taos db at %s: %w", cfg.URL, err)
	}

	slogctx.FromCtx(ctx).Info("initialized taos client", "url", cfg.URL, "database", cfg.Database)
	return client, nil
}

// NewClientWithSubmitter wires an arbitrary Submitter, bypassing the REST
// layer and the connection check. Used by tests.
func NewClientWithSubmitter(sub Submitter, database string) *Client {
	return &Client{sub: sub, database: database}
}

// Database returns the configured default database.
func (c *Client) Database() string {
	return c.database
}

// ResolveDatabase substitutes the configured default for an absent or empty
// database parameter.
func (c *Client) ResolveDatabase(db string) string {
	if db == "" {
		return c.database
	}

	return db
}

// Execute runs the guard, submits the statement and normalizes the response.
// Denied statements never reach the server.
func (c *Client) Execute(ctx context.Context, stmt string) (*ResultSet, error) {
	var logger = slogctx.FromCtx(ctx)

	if err := ValidateStatement(stmt); err != nil {
		logger.Warn("denied non-read-only statement", "sql", stmt)
		return nil, err
	}

	logger.Debug("submitting statement", "sql", stmt)

	raw, err := c.sub.Submit(ctx, stmt)

	if err != nil {
		return nil, &ExecutionError{Statement: stmt, Err: err}
	}

	return normalizeResponse(raw), nil
}
