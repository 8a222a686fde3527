package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const taosQueryPrompt = `You are connected to a TDengine time-series database through this server's tools.

Guidelines:
- Start with get_all_dbs and get_all_stables to discover what exists, then
  get_field_infos / get_tag_infos before querying a stable.
- Only read-only statements are accepted; write verbs are rejected.
- Data columns hold measurements; tag columns identify the table family and
  are the right axis for PARTITION BY grouping.
- Prefer aggregate_query with an interval over fetching raw rows when the
  question is about trends.`

func registerPrompts(s *server.MCPServer) {
	s.AddPrompt(
		mcp.NewPrompt("taos_query",
			mcp.WithPromptDescription("Query a TDengine database."),
		),
		func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			return mcp.NewGetPromptResult(
				"Query a TDengine database",
				[]mcp.PromptMessage{
					mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(taosQueryPrompt)),
				},
			), nil
		},
	)

	s.AddPrompt(
		mcp.NewPrompt("describe_query_prompt",
			mcp.WithPromptDescription("Generate a prompt asking an LLM to explain a SQL query."),
			mcp.WithArgument("query",
				mcp.RequiredArgument(),
				mcp.ArgumentDescription("The SQL query string"),
			),
		),
		func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			var query = req.Params.Arguments["query"]

			if query == "" {
				return nil, fmt.Errorf("query argument is required")
			}

			var text = fmt.Sprintf(
				"Explain the following SQL query:\n\n%s\n\nDescribe what data it retrieves and suggest any potential improvements.",
				query,
			)

			return mcp.NewGetPromptResult(
				"Explain a SQL query",
				[]mcp.PromptMessage{
					mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
				},
			), nil
		},
	)
}
