package presto

import (
	"time"

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dialects/pkg/dberrors"
	sqlparse "github.com/ekaya-inc/ekaya-dialects/pkg/sql"
)

// Engine is the registry key.
const Engine = "presto"

var grains = datasource.GrainExpressions{
	"":                         "{col}",
	"PT1S":                     "date_trunc('second', CAST({col} AS TIMESTAMP))",
	"PT1M":                     "date_trunc('minute', CAST({col} AS TIMESTAMP))",
	"PT1H":                     "date_trunc('hour', CAST({col} AS TIMESTAMP))",
	"P1D":                      "date_trunc('day', CAST({col} AS TIMESTAMP))",
	"P1W":                      "date_trunc('week', CAST({col} AS TIMESTAMP))",
	"P1M":                      "date_trunc('month', CAST({col} AS TIMESTAMP))",
	"P0.25Y":                   "date_trunc('quarter', CAST({col} AS TIMESTAMP))",
	"P1Y":                      "date_trunc('year', CAST({col} AS TIMESTAMP))",
	"P1W/1970-01-03T00:00:00Z": "date_add('day', 5, date_trunc('week', date_add('day', 1, CAST({col} AS TIMESTAMP))))",
	"1969-12-28T00:00:00Z/P1W": "date_add('day', -1, date_trunc('week', date_add('day', 1, CAST({col} AS TIMESTAMP))))",
}

// ErrorMappings are the coordinator messages, shared with Hive.
var ErrorMappings = dberrors.Mappings{
	{
		Pattern: dberrors.MustCompile(`line (?P<location>.+?): .*Column '(?P<column_name>.+?)' cannot be resolved`),
		Message: `We can't seem to resolve the column "{column_name}" at line {location}.`,
		Kind:    dberrors.KindColumnDoesNotExist,
	},
	{
		Pattern: dberrors.MustCompile(`.*Table (?P<table_name>.+?) does not exist`),
		Message: `The table "{table_name}" does not exist. A valid table must be used to run this query.`,
		Kind:    dberrors.KindTableDoesNotExist,
	},
	{
		Pattern: dberrors.MustCompile(`line (?P<location>.+?): .*Schema '(?P<schema_name>.+?)' does not exist`),
		Message: `The schema "{schema_name}" does not exist. A valid schema must be used to run this query.`,
		Kind:    dberrors.KindSchemaDoesNotExist,
	},
	{
		Pattern: dberrors.MustCompile(`Access Denied: Invalid credentials`),
		Message: `Either the username "{username}" or the password is incorrect.`,
		Kind:    dberrors.KindConnectionAccessDenied,
		Invalid: []string{"username", "password"},
	},
	{
		Pattern: dberrors.MustCompile(`line (?P<location>.+?): Catalog '(?P<catalog_name>.+?)' does not exist`),
		Message: `Unable to connect to catalog named "{catalog_name}".`,
		Kind:    dberrors.KindConnectionUnknownDatabase,
		Invalid: []string{"database"},
	},
}

// Spec is the Presto engine.
type Spec struct {
	datasource.Base
}

// New returns the Presto engine.
func New(datasource.Settings) *Spec {
	return &Spec{
		Base: datasource.Base{
			Name:        Engine,
			DisplayName: "Presto",
			SQLDialect:  sqlparse.DialectPresto,
			Grains:      datasource.CopyGrains(grains),
			Epoch:       "from_unixtime({col})",
			Errors:      ErrorMappings,
		},
	}
}

func (s *Spec) ConvertTemporal(targetType string, t time.Time) (string, bool) {
	switch datasource.NormalizeTemporalType(targetType) {
	case datasource.TemporalDate:
		return "from_iso8601_date('" + datasource.ISODate(t) + "')", true
	case datasource.TemporalTimestamp:
		return "from_iso8601_timestamp('" + datasource.ISOMicros(t, "T") + "')", true
	}
	return "", false
}

var _ datasource.EngineSpec = (*Spec)(nil)
