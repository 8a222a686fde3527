// Package catalog implements the fixed set of named operations the gateway
// exposes. Each operation validates its parameters, resolves defaults, builds
// one statement through the query package and executes it through the shared
// client. Operations are stateless and independent of each other; only the
// composites in analysis.go chain them.
package catalog

import (
	"context"

	"github.com/GHOST-LOVE-YOU/tdengine-mcp/internal/query"
	"github.com/GHOST-LOVE-YOU/tdengine-mcp/internal/taos"
)

// Default limits applied when the caller leaves them unset.
const (
	DefaultLatestLimit    = 10
	DefaultTagValuesLimit = 100
)

// Catalog holds the shared execution client. One instance serves all
// concurrent invocations.
type Catalog struct {
	client *taos.Client
}

func New(client *taos.Client) *Catalog {
	return &Catalog{client: client}
}

// Client exposes the underlying execution client for raw statements.
func (c *Catalog) Client() *taos.Client {
	return c.client
}

func (c *Catalog) target(db string, stable string, table string) query.Target {
	return query.Target{
		Database: c.client.ResolveDatabase(db),
		Stable:   stable,
		Table:    table,
	}
}

// TestTableExists reports whether a stable exists, keyed by its name. The
// value is derived from the row count of a SHOW STABLES LIKE match.
func (c *Catalog) TestTableExists(ctx context.Context, stable string) (map[string]bool, error) {
	rs, err := c.client.Execute(ctx, query.StableExists(stable))

	if err != nil {
		return nil, err
	}

	return map[string]bool{stable: rs.Rows > 0 || len(rs.Data) > 0}, nil
}

func (c *Catalog) GetAllDatabases(ctx context.Context) (*taos.ResultSet, error) {
	return c.client.Execute(ctx, query.ShowDatabases())
}

func (c *Catalog) GetAllStables(ctx context.Context, db string) (*taos.ResultSet, error) {
	return c.client.Execute(ctx, query.ShowStables(c.client.ResolveDatabase(db)))
}

func (c *Catalog) SwitchDatabase(ctx context.Context, db string) (*taos.ResultSet, error) {
	return c.client.Execute(ctx, query.UseDatabase(db))
}

func (c *Catalog) GetFieldInfos(ctx context.Context, db string, stable string) (*taos.ResultSet, error) {
	return c.client.Execute(ctx, query.DescribeStable(c.client.ResolveDatabase(db), stable))
}

func (c *Catalog) GetTagInfos(ctx context.Context, db string, stable string) (*taos.ResultSet, error) {
	return c.client.Execute(ctx, query.ShowTags(c.client.ResolveDatabase(db), stable))
}

func (c *Catalog) GetAllTables(ctx context.Context, db string, stable string) (*taos.ResultSet, error) {
	return c.client.Execute(ctx, query.ShowTables(c.client.ResolveDatabase(db), stable))
}

// QueryData forwards a caller-supplied statement. The guard inside the client
// is the only check applied.
func (c *Catalog) QueryData(ctx context.Context, stmt string) (*taos.ResultSet, error) {
	return c.client.Execute(ctx, stmt)
}

func (c *Catalog) GetTableStats(ctx context.Context, db string, stable string, table string) (*taos.ResultSet, error) {
	return c.client.Execute(ctx, query.TableStats(c.target(db, stable, table)))
}

func (c *Catalog) GetDatabaseInfo(ctx context.Context, db string) (*taos.ResultSet, error) {
	return c.client.Execute(ctx, query.DatabaseInfo(c.client.ResolveDatabase(db)))
}

// LatestDataParams parameterizes a latest-N-rows lookup.
type LatestDataParams struct {
	Database string
	Stable   string
	Table    string
	Limit    int
}

func (c *Catalog) GetLatestData(ctx context.Context, p LatestDataParams) (*taos.ResultSet, error) {
	if p.Limit <= 0 {
		p.Limit = DefaultLatestLimit
	}

	stmt, err := query.LatestRows(c.target(p.Database, p.Stable, p.Table), p.Limit)

	if err != nil {
		return nil, err
	}

	return c.client.Execute(ctx, stmt)
}

// TimeRangeParams parameterizes a bounded range scan.
type TimeRangeParams struct {
	Database  string
	Stable    string
	Table     string
	StartTime string
	EndTime   string
	Limit     int
}

func (c *Catalog) GetDataByTimeRange(ctx context.Context, p TimeRangeParams) (*taos.ResultSet, error) {
	stmt, err := query.TimeRange(c.target(p.Database, p.Stable, p.Table), p.StartTime, p.EndTime, p.Limit)

	if err != nil {
		return nil, err
	}

	return c.client.Execute(ctx, stmt)
}

// FilterParams parameterizes an arbitrary-predicate scan.
type FilterParams struct {
	Database  string
	Stable    string
	Table     string
	Filter    string
	StartTime string
	EndTime   string
	Limit     int
}

func (c *Catalog) GetDataByFilter(ctx context.Context, p FilterParams) (*taos.ResultSet, error) {
	stmt, err := query.Filter(c.target(p.Database, p.Stable, p.Table), p.Filter, p.StartTime, p.EndTime, p.Limit)

	if err != nil {
		return nil, err
	}

	return c.client.Execute(ctx, stmt)
}

// AggregateParams parameterizes one aggregate query.
type AggregateParams struct {
	Database    string
	Stable      string
	Table       string
	AggFunction string
	Column      string
	Interval    string
	GroupByTags []string
	StartTime   string
	EndTime     string
}

func (c *Catalog) AggregateQuery(ctx context.Context, p AggregateParams) (*taos.ResultSet, error) {
	stmt, err := query.Aggregate(query.AggregateParams{
		Target:      c.target(p.Database, p.Stable, p.Table),
		AggFunction: p.AggFunction,
		Column:      p.Column,
		Interval:    p.Interval,
		GroupByTags: p.GroupByTags,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
	})

	if err != nil {
		return nil, err
	}

	return c.client.Execute(ctx, stmt)
}

func (c *Catalog) GetTagValues(ctx context.Context, db string, stable string, tag string, limit int) (*taos.ResultSet, error) {
	return c.client.Execute(ctx, query.TagValues(c.client.ResolveDatabase(db), stable, tag, limit))
}

// ColumnStatsParams parameterizes a column statistic lookup.
type ColumnStatsParams struct {
	Database string
	Stable   string
	Table    string
	Column   string
	Kind     string
	Limit    int
}

func (c *Catalog) GetColumnStats(ctx context.Context, p ColumnStatsParams) (*taos.ResultSet, error) {
	stmt, err := query.ColumnStats(c.target(p.Database, p.Stable, p.Table), p.Column, p.Kind, p.Limit)

	if err != nil {
		return nil, err
	}

	return c.client.Execute(ctx, stmt)
}

// DistanceParams parameterizes a coordinate-distance scan.
type DistanceParams struct {
	Database  string
	Stable    string
	Table     string
	Lat1      string
	Lon1      string
	Lat2      string
	Lon2      string
	Threshold float64
	StartTime string
	EndTime   string
	Limit     int
}

func (c *Catalog) GetCoordinateDistance(ctx context.Context, p DistanceParams) (*taos.ResultSet, error) {
	stmt, err := query.CoordinateDistance(query.DistanceParams{
		Target:    c.target(p.Database, p.Stable, p.Table),
		Lat1:      p.Lat1,
		Lon1:      p.Lon1,
		Lat2:      p.Lat2,
		Lon2:      p.Lon2,
		Threshold: p.Threshold,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		Limit:     p.Limit,
	})

	if err != nil {
		return nil, err
	}

	return c.client.Execute(ctx, stmt)
}
