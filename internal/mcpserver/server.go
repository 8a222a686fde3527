// Package mcpserver maps the operation catalog onto MCP tools, resources and
// prompts. The tool set is a closed lookup table: every operation the gateway
// supports is enumerated in toolDefs, nothing is registered dynamically.
package mcpserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	slogctx "github.com/veqryn/slog-context"

	"github.com/GHOST-LOVE-YOU/tdengine-mcp/internal/catalog"
)

const (
	serverName    = "tdengine-mcp"
	serverVersion = "1.0.0"
)

type toolDef struct {
	tool    mcp.Tool
	handler server.ToolHandlerFunc
}

// New assembles the MCP server over the given catalog.
func New(cat *catalog.Catalog) *server.MCPServer {
	var s = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	for _, def := range toolDefs(cat) {
		s.AddTool(def.tool, withInvocationLog(def.tool.Name, def.handler))
	}

	registerResources(s, cat)
	registerPrompts(s)
	return s
}

// withInvocationLog tags every tool call with a fresh invocation id so the
// statements it triggers can be correlated in the logs.
func withInvocationLog(name string, next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var (
			logger = slogctx.FromCtx(ctx).With("tool", name, "invocation_id", uuid.NewString())
			t0     = time.Now()
		)

		ctx = slogctx.NewCtx(ctx, logger)
		logger.Debug("tool invoked")

		res, err := next(ctx, req)

		logger.Debug("tool finished", "duration", time.Since(t0))
		return res, err
	}
}

// toolResult marshals an operation outcome into a tool result. Operation
// errors become error results rather than protocol failures so the caller
// always receives a readable message.
func toolResult(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	b, err := json.Marshal(v)

	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(string(b)), nil
}

func dbNameOption() mcp.PropertyOption {
	return mcp.Description("The name of the database. Empty means the configured database.")
}

func toolDefs(cat *catalog.Catalog) []toolDef {
	return []toolDef{
		{
			tool: mcp.NewTool("test_table_exists",
				mcp.WithDescription("Check if the stable exists in the current TDengine database."),
				mcp.WithString("stable_name", mcp.Required(), mcp.Description("The name of the stable")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				stable, err := req.RequireString("stable_name")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				return toolResult(cat.TestTableExists(ctx, stable))
			},
		},
		{
			tool: mcp.NewTool("get_all_dbs",
				mcp.WithDescription("Get all databases."),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return toolResult(cat.GetAllDatabases(ctx))
			},
		},
		{
			tool: mcp.NewTool("get_all_stables",
				mcp.WithDescription("Get all stables in a database."),
				mcp.WithString("db_name", dbNameOption()),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return toolResult(cat.GetAllStables(ctx, req.GetString("db_name", "")))
			},
		},
		{
			tool: mcp.NewTool("switch_db",
				mcp.WithDescription("Switch to the specified database."),
				mcp.WithString("db_name", mcp.Required(), mcp.Description("The name of the database to switch to")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				db, err := req.RequireString("db_name")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				return toolResult(cat.SwitchDatabase(ctx, db))
			},
		},
		{
			tool: mcp.NewTool("get_field_infos",
				mcp.WithDescription("Get the field information of the specified stable."),
				mcp.WithString("db_name", dbNameOption()),
				mcp.WithString("stable_name", mcp.Required(), mcp.Description("The name of the stable")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				stable, err := req.RequireString("stable_name")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				return toolResult(cat.GetFieldInfos(ctx, req.GetString("db_name", ""), stable))
			},
		},
		{
			tool: mcp.NewTool("get_tag_infos",
				mcp.WithDescription("Get tag information of the specified stable."),
				mcp.WithString("db_name", dbNameOption()),
				mcp.WithString("stable_name", mcp.Required(), mcp.Description("The name of the stable")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				stable, err := req.RequireString("stable_name")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				return toolResult(cat.GetTagInfos(ctx, req.GetString("db_name", ""), stable))
			},
		},
		{
			tool: mcp.NewTool("get_all_tables",
				mcp.WithDescription("Get all child tables in the database, optionally narrowed to one stable."),
				mcp.WithString("db_name", dbNameOption()),
				mcp.WithString("stable_name", mcp.Description("Only list tables created under this stable")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return toolResult(cat.GetAllTables(ctx, req.GetString("db_name", ""), req.GetString("stable_name", "")))
			},
		},
		{
			tool: mcp.NewTool("query_taos_db_data",
				mcp.WithDescription("Run a read-only SQL query against the TDengine database."),
				mcp.WithString("sql_stmt", mcp.Required(), mcp.Description("The SQL statement to execute")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				stmt, err := req.RequireString("sql_stmt")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				return toolResult(cat.QueryData(ctx, stmt))
			},
		},
		{
			tool: mcp.NewTool("get_table_stats",
				mcp.WithDescription("Get row-count statistics for a table, a stable, or every stable in the database."),
				mcp.WithString("db_name", dbNameOption()),
				mcp.WithString("stable_name", mcp.Description("The name of the stable")),
				mcp.WithString("table_name", mcp.Description("The name of the table")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return toolResult(cat.GetTableStats(ctx,
					req.GetString("db_name", ""),
					req.GetString("stable_name", ""),
					req.GetString("table_name", ""),
				))
			},
		},
		{
			tool: mcp.NewTool("get_db_info",
				mcp.WithDescription("Get configuration and statistics of a database."),
				mcp.WithString("db_name", dbNameOption()),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return toolResult(cat.GetDatabaseInfo(ctx, req.GetString("db_name", "")))
			},
		},
		{
			tool: mcp.NewTool("get_latest_data",
				mcp.WithDescription("Get the latest rows of a table or stable ordered by timestamp descending."),
				mcp.WithString("db_name", dbNameOption()),
				mcp.WithString("stable_name", mcp.Description("The name of the stable")),
				mcp.WithString("table_name", mcp.Description("The name of the table")),
				mcp.WithNumber("limit", mcp.DefaultNumber(catalog.DefaultLatestLimit), mcp.Description("Number of latest records to retrieve")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return toolResult(cat.GetLatestData(ctx, catalog.LatestDataParams{
					Database: req.GetString("db_name", ""),
					Stable:   req.GetString("stable_name", ""),
					Table:    req.GetString("table_name", ""),
					Limit:    req.GetInt("limit", catalog.DefaultLatestLimit),
				}))
			},
		},
		{
			tool: mcp.NewTool("get_data_by_time_range",
				mcp.WithDescription("Get rows within [start_time, end_time] ordered by timestamp ascending."),
				mcp.WithString("db_name", dbNameOption()),
				mcp.WithString("stable_name", mcp.Description("The name of the stable")),
				mcp.WithString("table_name", mcp.Description("The name of the table")),
				mcp.WithString("start_time", mcp.Required(), mcp.Description("Start time, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'")),
				mcp.WithString("end_time", mcp.Required(), mcp.Description("End time, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'")),
				mcp.WithNumber("limit", mcp.Description("Maximum number of records; zero means no limit")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				start, err := req.RequireString("start_time")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				end, err := req.RequireString("end_time")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				return toolResult(cat.GetDataByTimeRange(ctx, catalog.TimeRangeParams{
					Database:  req.GetString("db_name", ""),
					Stable:    req.GetString("stable_name", ""),
					Table:     req.GetString("table_name", ""),
					StartTime: start,
					EndTime:   end,
					Limit:     req.GetInt("limit", 0),
				}))
			},
		},
		{
			tool: mcp.NewTool("get_data_by_filter",
				mcp.WithDescription("Get rows matching an arbitrary filter expression, with optional time bounds."),
				mcp.WithString("db_name", dbNameOption()),
				mcp.WithString("stable_name", mcp.Description("The name of the stable")),
				mcp.WithString("table_name", mcp.Description("The name of the table")),
				mcp.WithString("filter", mcp.Description("SQL predicate, e.g. \"voltage > 220\"")),
				mcp.WithString("start_time", mcp.Description("Optional start time bound")),
				mcp.WithString("end_time", mcp.Description("Optional end time bound")),
				mcp.WithNumber("limit", mcp.Description("Maximum number of records; zero means no limit")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return toolResult(cat.GetDataByFilter(ctx, catalog.FilterParams{
					Database:  req.GetString("db_name", ""),
					Stable:    req.GetString("stable_name", ""),
					Table:     req.GetString("table_name", ""),
					Filter:    req.GetString("filter", ""),
					StartTime: req.GetString("start_time", ""),
					EndTime:   req.GetString("end_time", ""),
					Limit:     req.GetInt("limit", 0),
				}))
			},
		},
		{
			tool: mcp.NewTool("aggregate_query",
				mcp.WithDescription("Perform an aggregation query on time series data, optionally windowed and grouped by tags."),
				mcp.WithString("db_name", dbNameOption()),
				mcp.WithString("stable_name", mcp.Description("The name of the stable")),
				mcp.WithString("table_name", mcp.Description("The name of the table")),
				mcp.WithString("agg_function", mcp.Required(), mcp.Description("Aggregation function: avg, sum, count, max, min, first, last, ...")),
				mcp.WithString("column_name", mcp.Required(), mcp.Description("The column to aggregate")),
				mcp.WithString("interval", mcp.Description("Window size, e.g. '1h', '10m', '1d'")),
				mcp.WithArray("group_by_tags", mcp.Description("Tag names to partition by"), mcp.Items(map[string]any{"type": "string"})),
				mcp.WithString("start_time", mcp.Description("Optional start time bound")),
				mcp.WithString("end_time", mcp.Description("Optional end time bound")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				fn, err := req.RequireString("agg_function")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				column, err := req.RequireString("column_name")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				return toolResult(cat.AggregateQuery(ctx, catalog.AggregateParams{
					Database:    req.GetString("db_name", ""),
					Stable:      req.GetString("stable_name", ""),
					Table:       req.GetString("table_name", ""),
					AggFunction: fn,
					Column:      column,
					Interval:    req.GetString("interval", ""),
					GroupByTags: req.GetStringSlice("group_by_tags", nil),
					StartTime:   req.GetString("start_time", ""),
					EndTime:     req.GetString("end_time", ""),
				}))
			},
		},
		{
			tool: mcp.NewTool("get_tag_values",
				mcp.WithDescription("Get distinct values of a tag in a stable."),
				mcp.WithString("db_name", dbNameOption()),
				mcp.WithString("stable_name", mcp.Required(), mcp.Description("The name of the stable")),
				mcp.WithString("tag_name", mcp.Required(), mcp.Description("The name of the tag")),
				mcp.WithNumber("limit", mcp.DefaultNumber(catalog.DefaultTagValuesLimit), mcp.Description("Maximum number of unique tag values")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				stable, err := req.RequireString("stable_name")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				tag, err := req.RequireString("tag_name")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				return toolResult(cat.GetTagValues(ctx,
					req.GetString("db_name", ""),
					stable,
					tag,
					req.GetInt("limit", catalog.DefaultTagValuesLimit),
				))
			},
		},
		{
			tool: mcp.NewTool("column_stats",
				mcp.WithDescription("Compute a column statistic: distinct values, non-null count, or a per-value histogram."),
				mcp.WithString("db_name", dbNameOption()),
				mcp.WithString("stable_name", mcp.Description("The name of the stable")),
				mcp.WithString("table_name", mcp.Description("The name of the table")),
				mcp.WithString("column_name", mcp.Required(), mcp.Description("The column to analyze")),
				mcp.WithString("stat_kind", mcp.Required(), mcp.Description("One of: distinct, count, histogram"), mcp.Enum("distinct", "count", "histogram")),
				mcp.WithNumber("limit", mcp.Description("Maximum number of result rows; zero means no limit")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				column, err := req.RequireString("column_name")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				kind, err := req.RequireString("stat_kind")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				return toolResult(cat.GetColumnStats(ctx, catalog.ColumnStatsParams{
					Database: req.GetString("db_name", ""),
					Stable:   req.GetString("stable_name", ""),
					Table:    req.GetString("table_name", ""),
					Column:   column,
					Kind:     kind,
					Limit:    req.GetInt("limit", 0),
				}))
			},
		},
		{
			tool: mcp.NewTool("coordinate_distance",
				mcp.WithDescription("Compute the flat-plane distance between two lat/lon column pairs per row, with an optional threshold filter."),
				mcp.WithString("db_name", dbNameOption()),
				mcp.WithString("stable_name", mcp.Description("The name of the stable")),
				mcp.WithString("table_name", mcp.Description("The name of the table")),
				mcp.WithString("lat1", mcp.Required(), mcp.Description("First latitude column")),
				mcp.WithString("lon1", mcp.Required(), mcp.Description("First longitude column")),
				mcp.WithString("lat2", mcp.Required(), mcp.Description("Second latitude column")),
				mcp.WithString("lon2", mcp.Required(), mcp.Description("Second longitude column")),
				mcp.WithNumber("threshold", mcp.Description("Only return rows whose distance exceeds this value")),
				mcp.WithString("start_time", mcp.Description("Optional start time bound")),
				mcp.WithString("end_time", mcp.Description("Optional end time bound")),
				mcp.WithNumber("limit", mcp.Description("Maximum number of records; zero means no limit")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var p = catalog.DistanceParams{
					Database:  req.GetString("db_name", ""),
					Stable:    req.GetString("stable_name", ""),
					Table:     req.GetString("table_name", ""),
					Threshold: req.GetFloat("threshold", 0),
					StartTime: req.GetString("start_time", ""),
					EndTime:   req.GetString("end_time", ""),
					Limit:     req.GetInt("limit", 0),
				}

				var err error

				if p.Lat1, err = req.RequireString("lat1"); err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				if p.Lon1, err = req.RequireString("lon1"); err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				if p.Lat2, err = req.RequireString("lat2"); err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				if p.Lon2, err = req.RequireString("lon2"); err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				return toolResult(cat.GetCoordinateDistance(ctx, p))
			},
		},
		{
			tool: mcp.NewTool("check_data_integrity",
				mcp.WithDescription("Check data integrity of a stable: NULL counts per column and duplicate timestamps."),
				mcp.WithString("db_name", dbNameOption()),
				mcp.WithString("stable_name", mcp.Required(), mcp.Description("The name of the stable")),
				mcp.WithBoolean("check_nulls", mcp.DefaultBool(true), mcp.Description("Whether to check for NULL values")),
				mcp.WithBoolean("check_duplicates", mcp.DefaultBool(false), mcp.Description("Whether to check for duplicate timestamps")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				stable, err := req.RequireString("stable_name")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				return toolResult(cat.CheckDataIntegrity(ctx, catalog.IntegrityParams{
					Database:        req.GetString("db_name", ""),
					Stable:          stable,
					CheckNulls:      req.GetBool("check_nulls", true),
					CheckDuplicates: req.GetBool("check_duplicates", false),
				}))
			},
		},
		{
			tool: mcp.NewTool("analyze_performance",
				mcp.WithDescription("Analyze data distribution of a stable, or summarize every stable in the database."),
				mcp.WithString("db_name", dbNameOption()),
				mcp.WithString("stable_name", mcp.Description("The stable to analyze; empty analyzes all stables")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return toolResult(cat.AnalyzePerformance(ctx,
					req.GetString("db_name", ""),
					req.GetString("stable_name", ""),
				))
			},
		},
		{
			tool: mcp.NewTool("comprehensive_stable_analysis",
				mcp.WithDescription("Run schema, tag, performance, integrity, sampling and tag-distribution analysis of a stable in one report."),
				mcp.WithString("db_name", dbNameOption()),
				mcp.WithString("stable_name", mcp.Required(), mcp.Description("The stable to analyze")),
				mcp.WithBoolean("include_sample_data", mcp.DefaultBool(true), mcp.Description("Whether to include sample rows")),
				mcp.WithNumber("days_back", mcp.DefaultNumber(7), mcp.Description("Days back for the recent-activity window")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				stable, err := req.RequireString("stable_name")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				return toolResult(cat.ComprehensiveStableAnalysis(ctx, catalog.StableAnalysisParams{
					Database:          req.GetString("db_name", ""),
					Stable:            stable,
					IncludeSampleData: req.GetBool("include_sample_data", true),
					DaysBack:          req.GetInt("days_back", 7),
				}))
			},
		},
		{
			tool: mcp.NewTool("time_series_dashboard_data",
				mcp.WithDescription("Generate dashboard-ready time series data: windowed avg/max/min, overall statistics, latest value and tag distribution."),
				mcp.WithString("db_name", dbNameOption()),
				mcp.WithString("stable_name", mcp.Required(), mcp.Description("The name of the stable")),
				mcp.WithString("metric_column", mcp.Required(), mcp.Description("The main metric column")),
				mcp.WithNumber("time_range_hours", mcp.DefaultNumber(24), mcp.Description("Hours back to analyze")),
				mcp.WithNumber("interval_minutes", mcp.DefaultNumber(60), mcp.Description("Aggregation interval in minutes")),
				mcp.WithString("group_by_tag", mcp.Description("Tag column to group results by")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				stable, err := req.RequireString("stable_name")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				metric, err := req.RequireString("metric_column")

				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				return toolResult(cat.TimeSeriesDashboardData(ctx, catalog.DashboardParams{
					Database:        req.GetString("db_name", ""),
					Stable:          stable,
					MetricColumn:    metric,
					TimeRangeHours:  req.GetInt("time_range_hours", 24),
					IntervalMinutes: req.GetInt("interval_minutes", 60),
					GroupByTag:      req.GetString("group_by_tag", ""),
				}))
			},
		},
	}
}
