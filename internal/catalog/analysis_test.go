package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/GHOST-LOVE-YOU/tdengine-mcp/internal/taos"
)

func TestCheckDataIntegrity(t *testing.T) {
	mem := taos.NewMemorySubmitter()
	mem.ScriptOn("COUNT(*) as total_records", taos.RowsResponse([]string{"total_records"}, [][]any{{float64(1000)}}))
	mem.ScriptOn("DESCRIBE", taos.RowsResponse(
		[]string{"field", "type", "length", "note"},
		[][]any{
			{"ts", "TIMESTAMP", float64(8), ""},
			{"voltage", "INT", float64(4), ""},
			{"current", "FLOAT", float64(4), ""},
		},
	))
	mem.ScriptOn("voltage IS NULL", taos.RowsResponse([]string{"null_count"}, [][]any{{float64(3)}}))
	mem.FailOn("current IS NULL", errors.New("probe failed"))
	cat := newTestCatalog(mem)

	report, err := cat.CheckDataIntegrity(context.Background(), IntegrityParams{Stable: "meters", CheckNulls: true})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if report.TotalRows != float64(1000) {
		t.Errorf("expected total rows 1000, got %v", report.TotalRows)
	}

	if report.NullCounts["voltage"] != float64(3) {
		t.Errorf("expected voltage null count 3, got %v", report.NullCounts["voltage"])
	}

	if report.NullCounts["current"] != "Unable to check" {
		t.Errorf("expected failed probe marker, got %v", report.NullCounts["current"])
	}

	if _, ok := report.NullCounts["ts"]; ok {
		t.Error("timestamp column must be skipped")
	}
}

func TestCheckDataIntegrity_Duplicates(t *testing.T) {
	mem := taos.NewMemorySubmitter()
	mem.FailOn("HAVING COUNT(*) > 1", errors.New("not supported"))
	cat := newTestCatalog(mem)

	report, err := cat.CheckDataIntegrity(context.Background(), IntegrityParams{Stable: "meters", CheckDuplicates: true})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	msg, ok := report.DuplicateTimestamps.(string)
	if !ok || !strings.Contains(msg, "Error checking duplicates") {
		t.Errorf("expected duplicate-check failure marker, got %v", report.DuplicateTimestamps)
	}
}

func TestAnalyzePerformance_WholeDatabase(t *testing.T) {
	mem := taos.NewMemorySubmitter()
	mem.ScriptOn("GROUP BY stable_name", taos.RowsResponse(
		[]string{"stable_name", "table_count"},
		[][]any{{"meters", float64(12)}},
	))
	cat := newTestCatalog(mem)

	report, err := cat.AnalyzePerformance(context.Background(), "", "")

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(report.StablesSummary) != 1 {
		t.Fatalf("expected one summary row, got %v", report.StablesSummary)
	}
}

func TestComprehensiveStableAnalysis_IsolatesTagFailure(t *testing.T) {
	mem := taos.NewMemorySubmitter()
	mem.ScriptOn("DESCRIBE", taos.RowsResponse(
		[]string{"field", "type", "length", "note"},
		[][]any{{"ts", "TIMESTAMP", float64(8), ""}, {"voltage", "INT", float64(4), ""}},
	))
	mem.FailOn("SHOW TAGS", errors.New("tags unavailable"))
	cat := newTestCatalog(mem)

	report, err := cat.ComprehensiveStableAnalysis(context.Background(), StableAnalysisParams{
		Stable:            "meters",
		IncludeSampleData: true,
		DaysBack:          7,
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if report.AnalysisStatus != "completed" {
		t.Fatalf("expected completed status, got %q", report.AnalysisStatus)
	}

	if report.Schema == nil || report.Schema.Failed() {
		t.Fatalf("expected populated schema section, got %+v", report.Schema)
	}

	schema, ok := report.Schema.Value.(SchemaSummary)
	if !ok || schema.ColumnCount != 2 {
		t.Errorf("unexpected schema summary: %+v", report.Schema.Value)
	}

	if report.Tags == nil || !report.Tags.Failed() {
		t.Fatalf("expected failed tags section, got %+v", report.Tags)
	}

	if !strings.Contains(report.Tags.Err, "tags unavailable") {
		t.Errorf("expected underlying message in tags section, got %q", report.Tags.Err)
	}

	b, err := json.Marshal(report.Tags)

	if err != nil {
		t.Fatalf("expected tags section to marshal, got %v", err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(b, &decoded); err != nil || decoded["error"] == "" {
		t.Errorf("expected {\"error\": ...} shape, got %s", b)
	}

	// No tags were found, so no tag-distribution step must run.
	if report.TagDistribution != nil {
		t.Errorf("expected no tag distribution section, got %+v", report.TagDistribution)
	}
}

func TestComprehensiveStableAnalysis_SchemaFailureFailsAnalysis(t *testing.T) {
	mem := taos.NewMemorySubmitter()
	mem.FailOn("DESCRIBE", errors.New("no such stable"))
	cat := newTestCatalog(mem)

	report, err := cat.ComprehensiveStableAnalysis(context.Background(), StableAnalysisParams{Stable: "ghost"})

	if err != nil {
		t.Fatalf("composite must return its report, got error %v", err)
	}

	if report.AnalysisStatus != "failed" {
		t.Fatalf("expected failed status, got %q", report.AnalysisStatus)
	}

	if !strings.Contains(report.Error, "no such stable") {
		t.Errorf("expected underlying message, got %q", report.Error)
	}

	if report.StableName != "ghost" || report.DatabaseName != "demo" {
		t.Errorf("expected identifying fields to survive: %+v", report)
	}
}

func TestComprehensiveStableAnalysis_TagDistribution(t *testing.T) {
	mem := taos.NewMemorySubmitter()
	mem.ScriptOn("DESCRIBE", taos.RowsResponse(
		[]string{"field", "type", "length", "note"},
		[][]any{{"ts", "TIMESTAMP", float64(8), ""}},
	))
	mem.ScriptOn("SHOW TAGS", taos.RowsResponse(
		[]string{"tag_name", "tag_type"},
		[][]any{{"location", "VARCHAR"}, {"group_id", "INT"}},
	))
	mem.ScriptOn("SELECT DISTINCT location", taos.RowsResponse(
		[]string{"location"},
		[][]any{{"beijing"}, {"shanghai"}},
	))
	cat := newTestCatalog(mem)

	report, err := cat.ComprehensiveStableAnalysis(context.Background(), StableAnalysisParams{Stable: "meters"})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if report.TagDistribution == nil || report.TagDistribution.Failed() {
		t.Fatalf("expected tag distribution section, got %+v", report.TagDistribution)
	}

	dist, ok := report.TagDistribution.Value.(TagDistribution)
	if !ok {
		t.Fatalf("unexpected section value type %T", report.TagDistribution.Value)
	}

	if dist.TagName != "location" || dist.UniqueCount != 2 {
		t.Errorf("unexpected distribution: %+v", dist)
	}

	var found bool

	for _, stmt := range mem.Calls() {
		if strings.Contains(stmt, "SELECT DISTINCT location") && strings.Contains(stmt, "LIMIT 20") {
			found = true
		}
	}

	if !found {
		t.Errorf("expected a DISTINCT query on the first tag with LIMIT 20, got %v", mem.Calls())
	}
}

func TestTimeSeriesDashboardData_Success(t *testing.T) {
	mem := taos.NewMemorySubmitter()
	cat := newTestCatalog(mem)

	report, err := cat.TimeSeriesDashboardData(context.Background(), DashboardParams{
		Stable:       "sensors",
		MetricColumn: "temp",
		GroupByTag:   "device",
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if report.Status != "success" {
		t.Fatalf("expected success status, got %q", report.Status)
	}

	if report.AvgTimeSeries == nil || report.MaxTimeSeries == nil || report.MinTimeSeries == nil {
		t.Error("expected all three windowed series")
	}

	if report.OverallStatistics == nil || report.OverallStatistics.Average == nil || report.OverallStatistics.Count == nil {
		t.Error("expected overall statistics")
	}

	if report.LatestValue == nil || report.TagDistribution == nil {
		t.Error("expected latest value and tag distribution")
	}

	calls := mem.Calls()
	if len(calls) != 7 {
		t.Fatalf("expected 7 statements, got %d: %v", len(calls), calls)
	}

	if !strings.Contains(calls[0], "AVG(temp)") || !strings.Contains(calls[0], "PARTITION BY device") || !strings.Contains(calls[0], "INTERVAL(60m)") {
		t.Errorf("unexpected first statement: %q", calls[0])
	}

	if !strings.Contains(calls[6], "SELECT DISTINCT device") || !strings.Contains(calls[6], "LIMIT 50") {
		t.Errorf("unexpected last statement: %q", calls[6])
	}
}

func TestTimeSeriesDashboardData_AbortsOnFirstFailure(t *testing.T) {
	mem := taos.NewMemorySubmitter()
	mem.FailOn("MAX(temp)", errors.New("window too large"))
	cat := newTestCatalog(mem)

	report, err := cat.TimeSeriesDashboardData(context.Background(), DashboardParams{
		Stable:       "sensors",
		MetricColumn: "temp",
	})

	if err != nil {
		t.Fatalf("composite must return its report, got error %v", err)
	}

	if report.Status != "error" {
		t.Fatalf("expected error status, got %q", report.Status)
	}

	if !strings.Contains(report.Error, "window too large") {
		t.Errorf("expected underlying message, got %q", report.Error)
	}

	// The step that succeeded stays attached; nothing after the failure runs.
	if report.AvgTimeSeries == nil {
		t.Error("expected partial avg series to be kept")
	}

	if report.MaxTimeSeries != nil || report.MinTimeSeries != nil || report.LatestValue != nil {
		t.Error("expected no sections past the failing step")
	}

	for _, stmt := range mem.Calls() {
		if strings.Contains(stmt, "MIN(temp)") {
			t.Errorf("no statement after the failing step may be issued, got %q", stmt)
		}
	}
}
