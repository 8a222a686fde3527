package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	slogctx "github.com/veqryn/slog-context"

	"github.com/GHOST-LOVE-YOU/tdengine-mcp/internal/catalog"
)

func registerResources(s *server.MCPServer, cat *catalog.Catalog) {
	s.AddResource(
		mcp.NewResource(
			"taos://database",
			"Databases",
			mcp.WithResourceDescription("All databases visible to the configured connection."),
			mcp.WithMIMEType("text/plain"),
		),
		func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			rs, err := cat.GetAllDatabases(ctx)

			if err != nil {
				return nil, err
			}

			var b strings.Builder

			for _, row := range rs.Data {
				if len(row) > 0 {
					fmt.Fprintln(&b, row[0])
				}
			}

			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      req.Params.URI,
					MIMEType: "text/plain",
					Text:     b.String(),
				},
			}, nil
		},
	)

	s.AddResource(
		mcp.NewResource(
			"taos://schemas",
			"Schemas",
			mcp.WithResourceDescription("Column schema of every stable in the configured database."),
			mcp.WithMIMEType("application/json"),
		),
		func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			var logger = slogctx.FromCtx(ctx)

			stables, err := cat.GetAllStables(ctx, "")

			if err != nil {
				return nil, err
			}

			var schemas = make(map[string][]map[string]any)

			for _, row := range stables.Data {
				if len(row) == 0 {
					continue
				}

				var name = fmt.Sprint(row[0])

				describe, err := cat.GetFieldInfos(ctx, "", name)

				if err != nil {
					logger.Warn("failed to describe stable", "stable", name, "error", err)
					continue
				}

				var (
					labels  = describe.ColumnNames()
					columns = make([]map[string]any, 0, len(describe.Data))
				)

				for _, field := range describe.Data {
					var m = make(map[string]any, len(labels))

					for i, label := range labels {
						if i < len(field) {
							m[label] = field[i]
						}
					}

					columns = append(columns, m)
				}

				schemas[name] = columns
			}

			b, err := json.Marshal(schemas)

			if err != nil {
				return nil, err
			}

			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      req.Params.URI,
					MIMEType: "application/json",
					Text:     string(b),
				},
			}, nil
		},
	)
}
