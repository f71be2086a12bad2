package hive

import (
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/presto"
	"github.com/ekaya-inc/ekaya-dialects/pkg/dberrors"
	sqlparse "github.com/ekaya-inc/ekaya-dialects/pkg/sql"
)

// Engine is the registry key.
const Engine = "hive"

var grains = datasource.GrainExpressions{
	"":                         "{col}",
	"PT1S":                     "from_unixtime(unix_timestamp({col}), 'yyyy-MM-dd HH:mm:ss')",
	"PT1M":                     "from_unixtime(unix_timestamp({col}), 'yyyy-MM-dd HH:mm:00')",
	"PT1H":                     "from_unixtime(unix_timestamp({col}), 'yyyy-MM-dd HH:00:00')",
	"P1D":                      "from_unixtime(unix_timestamp({col}), 'yyyy-MM-dd 00:00:00')",
	"P1W":                      "date_format(date_sub({col}, CAST(7-from_unixtime(unix_timestamp({col}),'u') as int)), 'yyyy-MM-dd 00:00:00')",
	"P1M":                      "from_unixtime(unix_timestamp({col}), 'yyyy-MM-01 00:00:00')",
	"P0.25Y":                   "date_format(add_months(trunc({col}, 'MM'), -(month({col})-1)%3), 'yyyy-MM-dd 00:00:00')",
	"P1Y":                      "from_unixtime(unix_timestamp({col}), 'yyyy-01-01 00:00:00')",
	"P1W/1970-01-03T00:00:00Z": "date_format(date_add({col}, INT(6-from_unixtime(unix_timestamp({col}), 'u'))), 'yyyy-MM-dd 00:00:00')",
	"1969-12-28T00:00:00Z/P1W": "date_format(date_add({col}, -from_unixtime(unix_timestamp({col}), 'u')), 'yyyy-MM-dd 00:00:00')",
}

var semanticErrors = dberrors.Mappings{
	{
		Pattern: dberrors.MustCompile(`SemanticException \[Error 10001\]: Line (?P<location>\d+:\d+) Table not found '(?P<table_name>.+?)'`),
		Message: `The table "{table_name}" does not exist. A valid table must be used to run this query.`,
		Kind:    dberrors.KindTableDoesNotExist,
	},
	{
		Pattern: dberrors.MustCompile(`SemanticException \[Error 10004\]: Line (?P<location>\d+:\d+) Invalid table alias or column reference '(?P<column_name>.+?)'`),
		Message: `We can't seem to resolve the column "{column_name}" at line {location}.`,
		Kind:    dberrors.KindColumnDoesNotExist,
	},
	{
		Pattern: dberrors.MustCompile(`SemanticException \[Error 10072\]: Database does not exist: (?P<schema_name>\S+)`),
		Message: `The schema "{schema_name}" does not exist. A valid schema must be used to run this query.`,
		Kind:    dberrors.KindSchemaDoesNotExist,
	},
	{
		Pattern: dberrors.MustCompile(`ParseException line (?P<location>\d+:\d+) cannot recognize input near '(?P<syntax_error>.*?)'`),
		Message: `Please check your query for syntax errors at or near "{syntax_error}" at line {location}. Then, try running your query again.`,
		Kind:    dberrors.KindSyntax,
	},
}

// Spec is the Apache Hive engine. It shares Presto's coordinator messages
// and adds HiveServer2 semantic errors ahead of them.
type Spec struct {
	datasource.Base
}

// New returns the Hive engine.
func New(datasource.Settings) *Spec {
	errs := append(dberrors.Mappings{}, semanticErrors...)
	errs = append(errs, presto.ErrorMappings...)
	return &Spec{
		Base: datasource.Base{
			Name:            Engine,
			DisplayName:     "Apache Hive",
			SQLDialect:      sqlparse.DialectHive,
			MaxColumnLength: 767,
			Grains:          datasource.CopyGrains(grains),
			Epoch:           "from_unixtime({col})",
			Errors:          errs,
		},
	}
}

func (s *Spec) ConvertTemporal(targetType string, t time.Time) (string, bool) {
	switch datasource.NormalizeTemporalType(targetType) {
	case datasource.TemporalDate:
		return "CAST('" + datasource.ISODate(t) + "' AS DATE)", true
	case datasource.TemporalDatetime, datasource.TemporalTimestamp:
		return "CAST('" + datasource.ISOMicros(t, " ") + "' AS TIMESTAMP)", true
	}
	return "", false
}

// QuoteIdentifier uses backticks.
func (s *Spec) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

var _ datasource.EngineSpec = (*Spec)(nil)
