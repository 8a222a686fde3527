// Package query builds the SQL statements behind every catalog operation.
//
// Identifiers and string literals are interpolated verbatim, with no quoting
// or escaping. This is a deliberate trust boundary inherited from the
// gateway's contract: callers are expected to feed back identifiers the
// gateway itself returned (e.g. from a schema listing), not arbitrary text.
// The statement guard blocks write verbs; it does not prevent injection
// through identifiers or literals.
package query

import (
	"fmt"
	"strings"

	"github.com/GHOST-LOVE-YOU/tdengine-mcp/internal/taos"
)

// Target names the object a statement reads from. Database must already be
// resolved (never empty); exactly the table takes precedence over the stable
// when both are set, matching the source-of-truth behavior.
type Target struct {
	Database string
	Stable   string
	Table    string
}

// Ref returns the fully qualified object reference, or ErrMissingTarget when
// neither a table nor a stable was given.
func (t Target) Ref() (string, error) {
	switch {
	case t.Table != "":
		return t.Database + "." + t.Table, nil
	case t.Stable != "":
		return t.Database + "." + t.Stable, nil
	default:
		return "", taos.ErrMissingTarget
	}
}

func ShowDatabases() string {
	return "SHOW DATABASES;"
}

func ShowStables(db string) string {
	return fmt.Sprintf("SHOW %s.STABLES;", db)
}

// ShowTables lists child tables, optionally narrowed to those created under
// one stable via the conventional <stable>_% naming.
func ShowTables(db string, stable string) string {
	if stable != "" {
		return fmt.Sprintf("SHOW %s.TABLES LIKE '%s_%%';", db, stable)
	}

	return fmt.Sprintf("SHOW %s.TABLES;", db)
}

func UseDatabase(db string) string {
	return fmt.Sprintf("USE %s;", db)
}

func DescribeStable(db string, stable string) string {
	return fmt.Sprintf("DESCRIBE %s.%s;", db, stable)
}

func ShowTags(db string, stable string) string {
	return fmt.Sprintf("SHOW TAGS FROM %s.%s;", db, stable)
}

func StableExists(stable string) string {
	return fmt.Sprintf("SHOW STABLES LIKE '%s'", stable)
}

func DatabaseInfo(db string) string {
	return fmt.Sprintf("SELECT * FROM information_schema.ins_databases WHERE name='%s';", db)
}

// TableStats counts rows for the given target, or summarizes every stable in
// the database when no target is named.
func TableStats(t Target) string {
	if ref, err := t.Ref(); err == nil {
		return fmt.Sprintf("SELECT COUNT(*) as row_count FROM %s;", ref)
	}

	return fmt.Sprintf("SELECT stable_name, COUNT(*) as row_count FROM information_schema.ins_stables WHERE db_name='%s' GROUP BY stable_name;", t.Database)
}

func LatestRows(t Target, limit int) (string, error) {
	ref, err := t.Ref()

	if err != nil {
		return "", err
	}

	return fmt.Sprintf("SELECT * FROM %s ORDER BY ts DESC LIMIT %d;", ref, limit), nil
}

// TimeRange selects rows within [start, end] ordered ascending. Time literals
// pass through unmodified; format validation is the caller's problem.
func TimeRange(t Target, start string, end string, limit int) (string, error) {
	ref, err := t.Ref()

	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %s WHERE ts >= '%s' AND ts <= '%s' ORDER BY ts", ref, start, end)
	appendLimit(&b, limit)
	b.WriteString(";")
	return b.String(), nil
}

// Filter selects rows matching an arbitrary caller-supplied predicate, with
// optional time bounds joined by AND.
func Filter(t Target, filter string, start string, end string, limit int) (string, error) {
	ref, err := t.Ref()

	if err != nil {
		return "", err
	}

	var conditions []string

	if filter != "" {
		conditions = append(conditions, filter)
	}

	conditions = append(conditions, timeConditions(start, end)...)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %s", ref)

	if len(conditions) > 0 {
		b.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	b.WriteString(" ORDER BY ts")
	appendLimit(&b, limit)
	b.WriteString(";")
	return b.String(), nil
}

// AggregateParams parameterizes one aggregation statement.
type AggregateParams struct {
	Target      Target
	AggFunction string
	Column      string
	Interval    string
	GroupByTags []string
	StartTime   string
	EndTime     string
}

// Aggregate builds `SELECT AGG(col) FROM target ...`. With an interval the
// select list is prefixed with the window-start pseudo column and an
// INTERVAL clause is appended; with group-by tags a PARTITION BY clause is
// prepended. The partition clause always precedes the interval clause.
func Aggregate(p AggregateParams) (string, error) {
	ref, err := p.Target.Ref()

	if err != nil {
		return "", err
	}

	var selectClause = fmt.Sprintf("%s(%s)", strings.ToUpper(p.AggFunction), p.Column)

	if p.Interval != "" {
		selectClause = "_wstart, " + selectClause
	}

	var whereClause string

	if conditions := timeConditions(p.StartTime, p.EndTime); len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var groupClause string

	if p.Interval != "" {
		groupClause = fmt.Sprintf(" INTERVAL(%s)", p.Interval)
	}

	if len(p.GroupByTags) > 0 {
		groupClause = fmt.Sprintf(" PARTITION BY %s", strings.Join(p.GroupByTags, ", ")) + groupClause
	}

	return fmt.Sprintf("SELECT %s FROM %s%s%s;", selectClause, ref, whereClause, groupClause), nil
}

func TagValues(db string, stable string, tag string, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT DISTINCT %s FROM %s.%s", tag, db, stable)
	appendLimit(&b, limit)
	b.WriteString(";")
	return b.String()
}

// Column statistic kinds accepted by ColumnStats.
const (
	StatDistinct  = "distinct"
	StatCount     = "count"
	StatHistogram = "histogram"
)

// ColumnStats builds the statement for one column statistic: the distinct
// values, the non-null row count, or a per-value frequency histogram.
func ColumnStats(t Target, column string, kind string, limit int) (string, error) {
	ref, err := t.Ref()

	if err != nil {
		return "", err
	}

	var b strings.Builder

	switch kind {
	case StatDistinct:
		fmt.Fprintf(&b, "SELECT DISTINCT %s FROM %s", column, ref)
	case StatCount:
		fmt.Fprintf(&b, "SELECT COUNT(*) as value_count FROM %s WHERE %s IS NOT NULL", ref, column)
	case StatHistogram:
		fmt.Fprintf(&b, "SELECT %s, COUNT(*) as value_count FROM %s GROUP BY %s ORDER BY value_count DESC", column, ref, column)
	default:
		return "", &taos.InvalidParameterError{Name: "stat_kind", Value: kind}
	}

	appendLimit(&b, limit)
	b.WriteString(";")
	return b.String(), nil
}

// DistanceParams parameterizes a flat-plane coordinate distance computation
// between two lat/lon column pairs.
type DistanceParams struct {
	Target    Target
	Lat1      string
	Lon1      string
	Lat2      string
	Lon2      string
	Threshold float64
	StartTime string
	EndTime   string
	Limit     int
}

// CoordinateDistance selects the euclidean difference between two coordinate
// pairs per row. A positive threshold filters to rows whose distance exceeds
// it. This is a coordinate-difference, not a geodesic distance.
func CoordinateDistance(p DistanceParams) (string, error) {
	ref, err := p.Target.Ref()

	if err != nil {
		return "", err
	}

	var (
		expr       = fmt.Sprintf("SQRT(POW(%s - %s, 2) + POW(%s - %s, 2))", p.Lat1, p.Lat2, p.Lon1, p.Lon2)
		conditions = timeConditions(p.StartTime, p.EndTime)
	)

	if p.Threshold > 0 {
		conditions = append(conditions, fmt.Sprintf("%s > %v", expr, p.Threshold))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT ts, %s as distance FROM %s", expr, ref)

	if len(conditions) > 0 {
		b.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	b.WriteString(" ORDER BY ts")
	appendLimit(&b, p.Limit)
	b.WriteString(";")
	return b.String(), nil
}

func NullCount(db string, stable string, column string) string {
	return fmt.Sprintf("SELECT COUNT(*) as null_count FROM %s.%s WHERE %s IS NULL;", db, stable, column)
}

func DuplicateTimestamps(db string, stable string) string {
	return fmt.Sprintf("SELECT ts, COUNT(*) as dup_count FROM %s.%s GROUP BY ts HAVING COUNT(*) > 1 LIMIT 10;", db, stable)
}

func TimeSpan(db string, stable string) string {
	return fmt.Sprintf("SELECT MIN(ts) as min_time, MAX(ts) as max_time FROM %s.%s;", db, stable)
}

func RecordCount(db string, stable string) string {
	return fmt.Sprintf("SELECT COUNT(*) as total_records FROM %s.%s;", db, stable)
}

func ChildTableCount(db string, stable string) string {
	return fmt.Sprintf("SELECT COUNT(*) as table_count FROM information_schema.ins_tables WHERE stable_name='%s' AND db_name='%s';", stable, db)
}

func StableSummary(db string) string {
	return fmt.Sprintf("SELECT stable_name, COUNT(*) as table_count FROM information_schema.ins_tables WHERE db_name='%s' GROUP BY stable_name;", db)
}

func RecentCount(db string, stable string, start string, end string) string {
	return fmt.Sprintf("SELECT COUNT(*) as recent_count FROM %s.%s WHERE ts >= '%s' AND ts <= '%s';", db, stable, start, end)
}

func timeConditions(start string, end string) []string {
	var conditions []string

	if start != "" {
		conditions = append(conditions, fmt.Sprintf("ts >= '%s'", start))
	}

	if end != "" {
		conditions = append(conditions, fmt.Sprintf("ts <= '%s'", end))
	}

	return conditions
}

// appendLimit appends a LIMIT clause only for a truthy limit; zero means "no
// limit", matching the source operations.
func appendLimit(b *strings.Builder, limit int) {
	if limit > 0 {
		fmt.Fprintf(b, " LIMIT %d", limit)
	}
}
