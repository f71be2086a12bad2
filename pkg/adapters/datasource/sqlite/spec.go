package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
	sqlparse "github.com/ekaya-inc/ekaya-dialects/pkg/sql"
)

// Engine is the registry key.
const Engine = "sqlite"

var grains = datasource.GrainExpressions{
	"":     "{col}",
	"PT1S": "DATETIME(STRFTIME('%Y-%m-%dT%H:%M:%S', {col}))",
	"PT1M": "DATETIME(STRFTIME('%Y-%m-%dT%H:%M:00', {col}))",
	"PT1H": "DATETIME(STRFTIME('%Y-%m-%dT%H:00:00', {col}))",
	"P1D":  "DATE({col})",
	"P1W":  "DATE({col}, -strftime('%W', {col}) || ' days')",
	"P1M":  "DATE({col}, -strftime('%d', {col}) || ' days', '+1 day')",
	"P0.25Y": "DATETIME(STRFTIME('%Y-', {col}) || " +
		"SUBSTR('00' || " +
		"((CAST(STRFTIME('%m', {col}) AS INTEGER)) - " +
		"(((CAST(STRFTIME('%m', {col}) AS INTEGER)) - 1) % 3)), " +
		"-2) || " +
		"'-01T00:00:00')",
	"P1Y":                      "DATETIME(STRFTIME('%Y-01-01T00:00:00', {col}))",
	"P1W/1970-01-03T00:00:00Z": "DATE({col}, 'weekday 6')",
	"1969-12-28T00:00:00Z/P1W": "DATE({col}, 'weekday 0', '-7 days')",
}

var inspectorQueries = buildInspectorQueries()

// buildInspectorQueries renders the sqlite_master lookups. SQLite has no
// information_schema and a file holds a single schema, so the queries take
// no schema argument.
func buildInspectorQueries() datasource.InspectorQueries {
	dialect := goqu.Dialect("sqlite3")
	objects := func(objectType string) string {
		query, _, err := dialect.From("sqlite_master").
			Select("name").
			Where(
				goqu.C("type").Eq(objectType),
				goqu.C("name").NotLike("sqlite_%"),
			).
			Order(goqu.C("name").Asc()).
			ToSQL()
		if err != nil {
			panic(fmt.Sprintf("sqlite: failed to build %s catalog query: %v", objectType, err))
		}
		return query
	}
	schemas, _, err := dialect.From("pragma_database_list").
		Select("name").
		Order(goqu.C("seq").Asc()).
		ToSQL()
	if err != nil {
		panic(fmt.Sprintf("sqlite: failed to build schema catalog query: %v", err))
	}
	return datasource.InspectorQueries{
		Schemas: schemas,
		Tables:  objects("table"),
		Views:   objects("view"),
	}
}

// Spec is the SQLite engine.
type Spec struct {
	datasource.Base
}

// New returns the SQLite engine. It has no connection parameters.
func New(datasource.Settings) *Spec {
	return &Spec{
		Base: datasource.Base{
			Name:        Engine,
			DisplayName: "SQLite",
			SQLDialect:  sqlparse.DialectSQLite,
			Grains:      datasource.CopyGrains(grains),
			Epoch:       "datetime({col}, 'unixepoch')",
		},
	}
}

func (s *Spec) ConvertTemporal(targetType string, t time.Time) (string, bool) {
	switch datasource.NormalizeTemporalType(targetType) {
	case datasource.TemporalText, datasource.TemporalDatetime:
		return "'" + datasource.ISOMicros(t, " ") + "'", true
	}
	return "", false
}

// GetTableNames ignores schema; a SQLite file has one namespace of tables.
func (s *Spec) GetTableNames(ctx context.Context, inspector datasource.Inspector, _ string) ([]string, error) {
	tables, err := inspector.TableNames(ctx, "")
	if err != nil {
		return nil, err
	}
	out := append([]string(nil), tables...)
	sort.Strings(out)
	return out, nil
}

// GetAllDatasourceNames lists only the first attached schema ("main").
func (s *Spec) GetAllDatasourceNames(ctx context.Context, inspector datasource.Inspector, datasourceType string) ([]datasource.DatasourceName, error) {
	schemas, err := inspector.SchemaNames(ctx)
	if err != nil {
		return nil, err
	}
	if len(schemas) == 0 {
		return nil, fmt.Errorf("sqlite database reports no schemas")
	}
	return datasource.DatasourceNamesIn(ctx, inspector, schemas[:1], datasourceType)
}

func (s *Spec) Driver() string { return "sqlite" }

// DataSourceName maps sqlite:///relative.db and sqlite:////abs/path.db to a
// file path. A bare sqlite:// opens an in-memory database.
func (s *Spec) DataSourceName(uri string) (string, error) {
	switch {
	case uri == "sqlite://" || uri == "sqlite:///":
		return ":memory:", nil
	case strings.HasPrefix(uri, "sqlite:///"):
		return strings.TrimPrefix(uri, "sqlite:///"), nil
	case strings.HasPrefix(uri, "file:"), !strings.Contains(uri, "://"):
		return uri, nil
	}
	return "", fmt.Errorf("unsupported sqlite uri %q", uri)
}

func (s *Spec) InspectorQueries() datasource.InspectorQueries { return inspectorQueries }

var (
	_ datasource.EngineSpec     = (*Spec)(nil)
	_ datasource.Introspectable = (*Spec)(nil)
)
