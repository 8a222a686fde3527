package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"
	slogctx "github.com/veqryn/slog-context"

	"github.com/GHOST-LOVE-YOU/tdengine-mcp/internal/query"
	"github.com/GHOST-LOVE-YOU/tdengine-mcp/internal/taos"
)

const timeLayout = "2006-01-02 15:04:05"

// overridable in tests
var timeNow = time.Now

// Section is one named slot of a composite report: either a value or a
// failure message, never both. It marshals as the value itself, or as
// {"error": message} when failed, preserving the report shape agents consume.
type Section struct {
	Value any
	Err   string
}

func okSection(v any) *Section {
	return &Section{Value: v}
}

func failedSectionf(format string, args ...any) *Section {
	return &Section{Err: fmt.Sprintf(format, args...)}
}

func (s *Section) Failed() bool {
	return s.Err != ""
}

func (s *Section) MarshalJSON() ([]byte, error) {
	if s.Err != "" {
		return json.Marshal(map[string]string{"error": s.Err})
	}

	return json.Marshal(s.Value)
}

// IntegrityParams parameterizes a data integrity check.
type IntegrityParams struct {
	Database        string
	Stable          string
	CheckNulls      bool
	CheckDuplicates bool
}

// IntegrityReport summarizes row count, per-column null counts and duplicate
// timestamps. NullCounts values are integers, or the string "Unable to check"
// for columns whose probe failed.
type IntegrityReport struct {
	TotalRows           any            `json:"total_rows"`
	NullCounts          map[string]any `json:"null_counts,omitempty"`
	DuplicateTimestamps any            `json:"duplicate_timestamps,omitempty"`
}

// CheckDataIntegrity probes a stable for missing values and duplicate
// timestamps. Per-column probe failures degrade to markers instead of
// failing the whole check.
func (c *Catalog) CheckDataIntegrity(ctx context.Context, p IntegrityParams) (*IntegrityReport, error) {
	var (
		db     = c.client.ResolveDatabase(p.Database)
		report IntegrityReport
	)

	total, err := c.client.Execute(ctx, query.RecordCount(db, p.Stable))

	if err != nil {
		return nil, err
	}

	report.TotalRows = firstValueOrZero(total)

	if p.CheckNulls {
		describe, err := c.client.Execute(ctx, query.DescribeStable(db, p.Stable))

		if err != nil {
			return nil, err
		}

		var columns = lo.FilterMap(describe.Data, func(row []any, _ int) (string, bool) {
			name := columnName(row)
			return name, name != "" && name != "ts"
		})

		report.NullCounts = make(map[string]any, len(columns))

		for _, col := range columns {
			rs, err := c.client.Execute(ctx, query.NullCount(db, p.Stable, col))

			if err != nil {
				report.NullCounts[col] = "Unable to check"
				continue
			}

			report.NullCounts[col] = firstValueOrZero(rs)
		}
	}

	if p.CheckDuplicates {
		rs, err := c.client.Execute(ctx, query.DuplicateTimestamps(db, p.Stable))

		if err != nil {
			report.DuplicateTimestamps = fmt.Sprintf("Error checking duplicates: %v", err)
		} else {
			report.DuplicateTimestamps = rs.Data
		}
	}

	return &report, nil
}

// PerformanceReport summarizes data distribution for one stable, or per-stable
// child table counts for a whole database.
type PerformanceReport struct {
	TimeRange      []any   `json:"time_range,omitempty"`
	TotalRecords   any     `json:"total_records,omitempty"`
	TableCount     any     `json:"table_count,omitempty"`
	StablesSummary [][]any `json:"stables_summary,omitempty"`
}

// AnalyzePerformance reports the time span, record count and child-table
// count of one stable, or summarizes every stable when none is named.
func (c *Catalog) AnalyzePerformance(ctx context.Context, database string, stable string) (*PerformanceReport, error) {
	var (
		db     = c.client.ResolveDatabase(database)
		report PerformanceReport
	)

	if stable == "" {
		rs, err := c.client.Execute(ctx, query.StableSummary(db))

		if err != nil {
			return nil, err
		}

		report.StablesSummary = rs.Data
		return &report, nil
	}

	span, err := c.client.Execute(ctx, query.TimeSpan(db, stable))

	if err != nil {
		return nil, err
	}

	if len(span.Data) > 0 {
		report.TimeRange = span.Data[0]
	} else {
		report.TimeRange = []any{nil, nil}
	}

	count, err := c.client.Execute(ctx, query.RecordCount(db, stable))

	if err != nil {
		return nil, err
	}

	report.TotalRecords = firstValueOrZero(count)

	tables, err := c.client.Execute(ctx, query.ChildTableCount(db, stable))

	if err != nil {
		return nil, err
	}

	report.TableCount = firstValueOrZero(tables)
	return &report, nil
}

// StableAnalysisParams parameterizes a comprehensive stable analysis.
type StableAnalysisParams struct {
	Database          string
	Stable            string
	IncludeSampleData bool
	DaysBack          int
}

// SchemaSummary is the schema section of a comprehensive analysis.
type SchemaSummary struct {
	Columns     [][]any `json:"columns"`
	ColumnCount int     `json:"column_count"`
}

// TagSummary is the tags section of a comprehensive analysis.
type TagSummary struct {
	TagColumns [][]any `json:"tag_columns"`
	TagCount   int     `json:"tag_count"`
}

// SampleSummary is the sample-data section of a comprehensive analysis.
type SampleSummary struct {
	LatestRecords [][]any `json:"latest_records"`
	SampleCount   int     `json:"sample_count"`
}

// RecentActivity is the recent-window section of a comprehensive analysis.
type RecentActivity struct {
	DaysAnalyzed      int    `json:"days_analyzed"`
	TimeRange         string `json:"time_range"`
	RecentRecordCount any    `json:"recent_record_count"`
}

// TagDistribution is the tag-distribution section of a comprehensive
// analysis.
type TagDistribution struct {
	TagName      string  `json:"tag_name"`
	UniqueValues [][]any `json:"unique_values"`
	UniqueCount  int     `json:"unique_count"`
}

// StableAnalysis is the full report of a comprehensive stable analysis.
// Section order is fixed; later steps read earlier sections (the tag
// distribution uses the first tag found by the tags step).
type StableAnalysis struct {
	StableName        string   `json:"stable_name"`
	DatabaseName      string   `json:"database_name"`
	AnalysisTimestamp string   `json:"analysis_timestamp"`
	Schema            *Section `json:"schema,omitempty"`
	Tags              *Section `json:"tags,omitempty"`
	Performance       *Section `json:"performance,omitempty"`
	Statistics        *Section `json:"statistics,omitempty"`
	DataIntegrity     *Section `json:"data_integrity,omitempty"`
	SampleData        *Section `json:"sample_data,omitempty"`
	RecentActivity    *Section `json:"recent_activity,omitempty"`
	TagDistribution   *Section `json:"tag_distribution,omitempty"`
	AnalysisStatus    string   `json:"analysis_status"`
	Error             string   `json:"error,omitempty"`
}

// ComprehensiveStableAnalysis chains schema, tags, performance, statistics,
// integrity, sampling and tag-distribution steps into one report. Every step
// after the schema describe is isolated: its failure is recorded in its own
// section and the sequence continues. Only a schema failure marks the whole
// analysis failed, and even then the partial report is returned.
func (c *Catalog) ComprehensiveStableAnalysis(ctx context.Context, p StableAnalysisParams) (*StableAnalysis, error) {
	var (
		logger = slogctx.FromCtx(ctx)
		db     = c.client.ResolveDatabase(p.Database)
		report = StableAnalysis{
			StableName:        p.Stable,
			DatabaseName:      db,
			AnalysisTimestamp: timeNow().Format(timeLayout),
		}
	)

	schema, err := c.GetFieldInfos(ctx, db, p.Stable)

	if err != nil {
		report.AnalysisStatus = "failed"
		report.Error = err.Error()
		return &report, nil
	}

	report.Schema = okSection(SchemaSummary{
		Columns:     schema.Data,
		ColumnCount: len(schema.Data),
	})

	var firstTag string

	if tags, err := c.GetTagInfos(ctx, db, p.Stable); err != nil {
		report.Tags = failedSectionf("Could not retrieve tag info: %v", err)
	} else {
		report.Tags = okSection(TagSummary{
			TagColumns: tags.Data,
			TagCount:   len(tags.Data),
		})
		firstTag = columnName(firstRow(tags.Data))
	}

	if perf, err := c.AnalyzePerformance(ctx, db, p.Stable); err != nil {
		report.Performance = failedSectionf("Could not analyze performance: %v", err)
	} else {
		report.Performance = okSection(perf)
	}

	if stats, err := c.GetTableStats(ctx, db, p.Stable, ""); err != nil {
		report.Statistics = failedSectionf("Could not retrieve table stats: %v", err)
	} else {
		report.Statistics = okSection(stats)
	}

	if integrity, err := c.CheckDataIntegrity(ctx, IntegrityParams{Database: db, Stable: p.Stable, CheckNulls: true}); err != nil {
		report.DataIntegrity = failedSectionf("Could not check data integrity: %v", err)
	} else {
		report.DataIntegrity = okSection(integrity)
	}

	if p.IncludeSampleData {
		if sample, err := c.GetLatestData(ctx, LatestDataParams{Database: db, Stable: p.Stable, Limit: 5}); err != nil {
			report.SampleData = failedSectionf("Could not retrieve sample data: %v", err)
		} else {
			report.SampleData = okSection(SampleSummary{
				LatestRecords: sample.Data,
				SampleCount:   len(sample.Data),
			})
		}
	}

	if p.DaysBack > 0 {
		var (
			end   = timeNow()
			start = end.AddDate(0, 0, -p.DaysBack)
		)

		if rs, err := c.client.Execute(ctx, query.RecentCount(db, p.Stable, start.Format(timeLayout), end.Format(timeLayout))); err != nil {
			report.RecentActivity = failedSectionf("Could not analyze recent activity: %v", err)
		} else {
			report.RecentActivity = okSection(RecentActivity{
				DaysAnalyzed:      p.DaysBack,
				TimeRange:         fmt.Sprintf("%s to %s", start.Format(timeLayout), end.Format(timeLayout)),
				RecentRecordCount: firstValueOrZero(rs),
			})
		}
	}

	if firstTag != "" {
		if values, err := c.GetTagValues(ctx, db, p.Stable, firstTag, 20); err != nil {
			report.TagDistribution = failedSectionf("Could not analyze tag distribution: %v", err)
		} else {
			report.TagDistribution = okSection(TagDistribution{
				TagName:      firstTag,
				UniqueValues: values.Data,
				UniqueCount:  len(values.Data),
			})
		}
	}

	report.AnalysisStatus = "completed"
	logger.Debug("comprehensive analysis finished", "stable", p.Stable, "database", db)
	return &report, nil
}

// DashboardParams parameterizes a dashboard data composite.
type DashboardParams struct {
	Database        string
	Stable          string
	MetricColumn    string
	TimeRangeHours  int
	IntervalMinutes int
	GroupByTag      string
}

// DashboardStatistics holds the whole-window aggregates of a dashboard
// report.
type DashboardStatistics struct {
	Average *taos.ResultSet `json:"average,omitempty"`
	Count   *taos.ResultSet `json:"count,omitempty"`
}

// DashboardData is the assembled dashboard report. Unlike the comprehensive
// analysis, a single failing sub-query degrades the whole report: status
// flips to "error" and the sequence stops, with everything gathered so far
// still attached. The asymmetry between the two composites is intentional.
type DashboardData struct {
	StableName        string               `json:"stable_name"`
	MetricColumn      string               `json:"metric_column"`
	TimeRange         string               `json:"time_range"`
	Interval          string               `json:"interval"`
	GroupByTag        string               `json:"group_by_tag,omitempty"`
	AvgTimeSeries     *taos.ResultSet      `json:"avg_time_series,omitempty"`
	MaxTimeSeries     *taos.ResultSet      `json:"max_time_series,omitempty"`
	MinTimeSeries     *taos.ResultSet      `json:"min_time_series,omitempty"`
	OverallStatistics *DashboardStatistics `json:"overall_statistics,omitempty"`
	LatestValue       *taos.ResultSet      `json:"latest_value,omitempty"`
	TagDistribution   *taos.ResultSet      `json:"tag_distribution,omitempty"`
	Status            string               `json:"status"`
	Error             string               `json:"error,omitempty"`
}

// TimeSeriesDashboardData issues avg/max/min windowed aggregates, two
// whole-window aggregates, a latest-value lookup and an optional
// tag-distribution lookup over the trailing time window, strictly in that
// order.
func (c *Catalog) TimeSeriesDashboardData(ctx context.Context, p DashboardParams) (*DashboardData, error) {
	if p.TimeRangeHours <= 0 {
		p.TimeRangeHours = 24
	}

	if p.IntervalMinutes <= 0 {
		p.IntervalMinutes = 60
	}

	var (
		db       = c.client.ResolveDatabase(p.Database)
		end      = timeNow()
		start    = end.Add(-time.Duration(p.TimeRangeHours) * time.Hour)
		startStr = start.Format(timeLayout)
		endStr   = end.Format(timeLayout)
		interval = fmt.Sprintf("%dm", p.IntervalMinutes)
		report   = DashboardData{
			StableName:   p.Stable,
			MetricColumn: p.MetricColumn,
			TimeRange:    fmt.Sprintf("%s to %s", startStr, endStr),
			Interval:     interval,
			GroupByTag:   p.GroupByTag,
		}
	)

	var groupByTags []string

	if p.GroupByTag != "" {
		groupByTags = []string{p.GroupByTag}
	}

	var fail = func(err error) (*DashboardData, error) {
		report.Status = "error"
		report.Error = err.Error()
		return &report, nil
	}

	var aggregate = func(fn string, itv string) (*taos.ResultSet, error) {
		return c.AggregateQuery(ctx, AggregateParams{
			Database:    db,
			Stable:      p.Stable,
			AggFunction: fn,
			Column:      p.MetricColumn,
			Interval:    itv,
			GroupByTags: groupByTags,
			StartTime:   startStr,
			EndTime:     endStr,
		})
	}

	avg, err := aggregate("avg", interval)

	if err != nil {
		return fail(err)
	}

	report.AvgTimeSeries = avg

	max, err := aggregate("max", interval)

	if err != nil {
		return fail(err)
	}

	report.MaxTimeSeries = max

	min, err := aggregate("min", interval)

	if err != nil {
		return fail(err)
	}

	report.MinTimeSeries = min

	overallAvg, err := aggregate("avg", "")

	if err != nil {
		return fail(err)
	}

	overallCount, err := aggregate("count", "")

	if err != nil {
		return fail(err)
	}

	report.OverallStatistics = &DashboardStatistics{Average: overallAvg, Count: overallCount}

	latest, err := c.GetLatestData(ctx, LatestDataParams{Database: db, Stable: p.Stable, Limit: 1})

	if err != nil {
		return fail(err)
	}

	report.LatestValue = latest

	if p.GroupByTag != "" {
		values, err := c.GetTagValues(ctx, db, p.Stable, p.GroupByTag, 50)

		if err != nil {
			return fail(err)
		}

		report.TagDistribution = values
	}

	report.Status = "success"
	return &report, nil
}

func firstRow(data [][]any) []any {
	if len(data) == 0 {
		return nil
	}

	return data[0]
}

// columnName extracts the leading name cell of a DESCRIBE / SHOW TAGS row.
func columnName(row []any) string {
	if len(row) == 0 {
		return ""
	}

	if s, ok := row[0].(string); ok {
		return s
	}

	return fmt.Sprint(row[0])
}

func firstValueOrZero(rs *taos.ResultSet) any {
	if v := rs.FirstValue(); v != nil {
		return v
	}

	return 0
}
