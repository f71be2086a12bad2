package postgres

import (
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dialects/pkg/dberrors"
	sqlparse "github.com/ekaya-inc/ekaya-dialects/pkg/sql"
)

// Engine is the registry key.
const Engine = "postgresql"

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// Grains is the DATE_TRUNC grain set shared with engines that speak the
// PostgreSQL dialect. Callers must copy it before modifying.
var Grains = datasource.GrainExpressions{
	"":       "{col}",
	"PT1S":   "DATE_TRUNC('second', {col})",
	"PT1M":   "DATE_TRUNC('minute', {col})",
	"PT1H":   "DATE_TRUNC('hour', {col})",
	"P1D":    "DATE_TRUNC('day', {col})",
	"P1W":    "DATE_TRUNC('week', {col})",
	"P1M":    "DATE_TRUNC('month', {col})",
	"P0.25Y": "DATE_TRUNC('quarter', {col})",
	"P1Y":    "DATE_TRUNC('year', {col})",
}

// Epoch converts epoch seconds to a timestamp.
const Epoch = "(timestamp 'epoch' + {col} * interval '1 second')"

// ConnectionErrors are the libpq-style connection messages shared with
// Redshift.
var ConnectionErrors = dberrors.Mappings{
	{
		Pattern: dberrors.MustCompile(`password authentication failed for user "(?P<username>.*?)"`),
		Message: `Either the username "{username}" or the password is incorrect.`,
		Kind:    dberrors.KindConnectionAccessDenied,
		Invalid: []string{"username", "password"},
	},
	{
		Pattern: dberrors.MustCompile(`could not translate host name "(?P<hostname>.*?)" to address: nodename nor servname provided, or not known`),
		Message: `The hostname "{hostname}" cannot be resolved.`,
		Kind:    dberrors.KindConnectionInvalidHostname,
		Invalid: []string{"host"},
	},
	{
		Pattern: dberrors.MustCompile(`could not connect to server: Connection refused Is the server running on host "(?P<hostname>.*?)" (\(.*?\) )?and accepting TCP/IP connections on port (?P<port>.*?)\?`),
		Message: `Port {port} on hostname "{hostname}" refused the connection.`,
		Kind:    dberrors.KindConnectionPortClosed,
		Invalid: []string{"host", "port"},
	},
	{
		Pattern: dberrors.MustCompile(`could not connect to server: (?P<reason>.*?) Is the server running on host "(?P<hostname>.*?)" (\(.*?\) )?and accepting TCP/IP connections on port (?P<port>.*?)\?`),
		Message: `The host "{hostname}" might be down, and can't be reached on port {port}.`,
		Kind:    dberrors.KindConnectionHostDown,
		Invalid: []string{"host", "port"},
	},
	{
		Pattern: dberrors.MustCompile(`database "(?P<database>.*?)" does not exist`),
		Message: `We were unable to connect to your database named "{database}". Please verify your database name and try again.`,
		Kind:    dberrors.KindConnectionUnknownDatabase,
		Invalid: []string{"database"},
	},
}

var queryErrors = dberrors.Mappings{
	{
		Pattern: dberrors.MustCompile(`permission denied for (table|relation|schema) (?P<object>.+?)( \(|$)`),
		Message: `The user does not have permission to access "{object}".`,
		Kind:    dberrors.KindConnectionDBPermissions,
	},
	{
		Pattern: dberrors.MustCompile(`relation "(?P<table_name>.+?)" does not exist`),
		Message: `The table "{table_name}" does not exist. A valid table must be used to run this query.`,
		Kind:    dberrors.KindTableDoesNotExist,
	},
	{
		Pattern: dberrors.MustCompile(`column "(?P<column_name>.+?)" does not exist LINE (?P<location>\d+?):`),
		Message: `We can't seem to resolve the column "{column_name}" at line {location}.`,
		Kind:    dberrors.KindColumnDoesNotExist,
	},
	{
		Pattern: dberrors.MustCompile(`column "(?P<column_name>.+?)" does not exist`),
		Message: `We can't seem to resolve the column "{column_name}".`,
		Kind:    dberrors.KindColumnDoesNotExist,
	},
	{
		Pattern: dberrors.MustCompile(`syntax error at or near "(?P<syntax_error>.*?)"`),
		Message: `Please check your query for syntax errors at or near "{syntax_error}". Then, try running your query again.`,
		Kind:    dberrors.KindSyntax,
	},
}

// InspectorQueries read the catalog through information_schema. Foreign
// tables are listed with ordinary tables.
var InspectorQueries = datasource.InspectorQueries{
	Schemas: `SELECT schema_name FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
		  AND schema_name NOT LIKE 'pg_toast%'
		  AND schema_name NOT LIKE 'pg_temp%'
		ORDER BY schema_name`,
	Tables: `SELECT table_name FROM information_schema.tables
		WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema())
		  AND table_type IN ('BASE TABLE', 'FOREIGN')
		ORDER BY table_name`,
	Views: `SELECT table_name FROM information_schema.views
		WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema())
		ORDER BY table_name`,
	SchemaBound: true,
}

// Spec is the PostgreSQL engine.
type Spec struct {
	datasource.Base
	datasource.BasicParameters
}

// New returns the PostgreSQL engine configured with settings.
func New(settings datasource.Settings) *Spec {
	return &Spec{
		Base: datasource.Base{
			Name:            Engine,
			DisplayName:     "PostgreSQL",
			SQLDialect:      sqlparse.DialectPostgres,
			MaxColumnLength: 63,
			Grains:          datasource.CopyGrains(Grains),
			Epoch:           Epoch,
			Errors:          append(append(dberrors.Mappings{}, ConnectionErrors...), queryErrors...),
		},
		BasicParameters: datasource.BasicParameters{
			Scheme:               "postgresql",
			EncryptionParameters: map[string]string{"sslmode": "require"},
			ResolveHost:          settings.ResolveHost,
		},
	}
}

// ConvertTemporal renders TO_DATE / TO_TIMESTAMP literals.
func (s *Spec) ConvertTemporal(targetType string, t time.Time) (string, bool) {
	return ConvertTemporal(targetType, t)
}

// ConvertTemporal is shared with Redshift.
func ConvertTemporal(targetType string, t time.Time) (string, bool) {
	tt := datasource.NormalizeTemporalType(targetType)
	switch {
	case tt == datasource.TemporalDate:
		return "TO_DATE('" + datasource.ISODate(t) + "', 'YYYY-MM-DD')", true
	case strings.Contains(tt, datasource.TemporalTimestamp), strings.Contains(tt, datasource.TemporalDatetime):
		return "TO_TIMESTAMP('" + datasource.ISOMicros(t, " ") + "', 'YYYY-MM-DD HH24:MI:SS.US')", true
	}
	return "", false
}

// GetDatatype resolves a type OID or name to an upper-case type name.
func (s *Spec) GetDatatype(typeCode string) string {
	return typeName(typeCode)
}

func (s *Spec) Driver() string { return "pgx" }

// DataSourceName returns uri unchanged; pgx accepts postgresql:// URLs.
func (s *Spec) DataSourceName(uri string) (string, error) { return uri, nil }

func (s *Spec) InspectorQueries() datasource.InspectorQueries { return InspectorQueries }

var (
	_ datasource.EngineSpec             = (*Spec)(nil)
	_ datasource.ParametersConfigurable = (*Spec)(nil)
	_ datasource.Introspectable         = (*Spec)(nil)
)
