package mssql

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	mssqldb "github.com/microsoft/go-mssqldb"

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dialects/pkg/dberrors"
	sqlparse "github.com/ekaya-inc/ekaya-dialects/pkg/sql"
)

// Engine is the registry key.
const Engine = "mssql"

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// WrapTemplate limits through an outer TOP because SQL Server has no LIMIT.
const WrapTemplate = "SELECT TOP ({limit}) * FROM ({sql}) AS inner_qry"

var grains = datasource.GrainExpressions{
	"":                         "{col}",
	"PT1S":                     "DATEADD(SECOND, DATEDIFF(SECOND, '2000-01-01', {col}), '2000-01-01')",
	"PT1M":                     "DATEADD(MINUTE, DATEDIFF(MINUTE, 0, {col}), 0)",
	"PT5M":                     "DATEADD(MINUTE, DATEDIFF(MINUTE, 0, {col}) / 5 * 5, 0)",
	"PT10M":                    "DATEADD(MINUTE, DATEDIFF(MINUTE, 0, {col}) / 10 * 10, 0)",
	"PT15M":                    "DATEADD(MINUTE, DATEDIFF(MINUTE, 0, {col}) / 15 * 15, 0)",
	"PT0.5H":                   "DATEADD(MINUTE, DATEDIFF(MINUTE, 0, {col}) / 30 * 30, 0)",
	"PT1H":                     "DATEADD(HOUR, DATEDIFF(HOUR, 0, {col}), 0)",
	"P1D":                      "DATEADD(DAY, DATEDIFF(DAY, 0, {col}), 0)",
	"P1W":                      "DATEADD(DAY, 1 - DATEPART(WEEKDAY, {col}), DATEADD(DAY, DATEDIFF(DAY, 0, {col}), 0))",
	"P1M":                      "DATEADD(MONTH, DATEDIFF(MONTH, 0, {col}), 0)",
	"P0.25Y":                   "DATEADD(QUARTER, DATEDIFF(QUARTER, 0, {col}), 0)",
	"P1Y":                      "DATEADD(YEAR, DATEDIFF(YEAR, 0, {col}), 0)",
	"1969-12-28T00:00:00Z/P1W": "DATEADD(DAY, -1, DATEADD(WEEK, DATEDIFF(WEEK, 0, {col}), 0))",
	"1969-12-29T00:00:00Z/P1W": "DATEADD(WEEK, DATEDIFF(WEEK, 0, DATEADD(DAY, -1, {col})), 0)",
}

var errorMappings = dberrors.Mappings{
	{
		Pattern: dberrors.MustCompile(`Login failed for user '(?P<username>.*?)'`),
		Message: `Either the username "{username}" or the password is incorrect.`,
		Kind:    dberrors.KindConnectionAccessDenied,
		Invalid: []string{"username", "password"},
	},
	{
		Pattern: dberrors.MustCompile(`Cannot open database "(?P<database>.*?)" requested by the login`),
		Message: `We were unable to connect to your database named "{database}". Please verify your database name and try again.`,
		Kind:    dberrors.KindConnectionUnknownDatabase,
		Invalid: []string{"database"},
	},
	{
		Pattern: dberrors.MustCompile(`Invalid object name '(?P<table_name>.+?)'`),
		Message: `The table "{table_name}" does not exist. A valid table must be used to run this query.`,
		Kind:    dberrors.KindTableDoesNotExist,
	},
	{
		Pattern: dberrors.MustCompile(`Invalid column name '(?P<column_name>.+?)'`),
		Message: `We can't seem to resolve the column "{column_name}".`,
		Kind:    dberrors.KindColumnDoesNotExist,
	},
	{
		Pattern: dberrors.MustCompile(`Incorrect syntax near '(?P<syntax_error>.*?)'`),
		Message: `Please check your query for syntax errors at or near "{syntax_error}". Then, try running your query again.`,
		Kind:    dberrors.KindSyntax,
	},
}

var numberKinds = map[int32]dberrors.ErrorKind{
	18456: dberrors.KindConnectionAccessDenied,
	4060:  dberrors.KindConnectionUnknownDatabase,
	208:   dberrors.KindTableDoesNotExist,
	207:   dberrors.KindColumnDoesNotExist,
	102:   dberrors.KindSyntax,
}

var inspectorQueries = datasource.InspectorQueries{
	Schemas: `SELECT name FROM sys.schemas
		WHERE schema_id < 16384 AND name NOT IN ('sys', 'INFORMATION_SCHEMA', 'guest')
		ORDER BY name`,
	Tables: `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = COALESCE(NULLIF(@p1, ''), SCHEMA_NAME())
		  AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`,
	Views: `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.VIEWS
		WHERE TABLE_SCHEMA = COALESCE(NULLIF(@p1, ''), SCHEMA_NAME())
		ORDER BY TABLE_NAME`,
	SchemaBound: true,
}

// Spec is the Microsoft SQL Server engine.
type Spec struct {
	datasource.Base
	datasource.BasicParameters
}

// New returns the SQL Server engine configured with settings.
func New(settings datasource.Settings) *Spec {
	return &Spec{
		Base: datasource.Base{
			Name:            Engine,
			DisplayName:     "Microsoft SQL Server",
			SQLDialect:      sqlparse.DialectMSSQL,
			MaxColumnLength: 128,
			Limit:           datasource.LimitWrap,
			WrapTemplate:    WrapTemplate,
			Grains:          datasource.CopyGrains(grains),
			Epoch:           "dateadd(S, {col}, '1970-01-01')",
			Errors:          errorMappings,
		},
		BasicParameters: datasource.BasicParameters{
			Scheme:               "sqlserver",
			EncryptionParameters: map[string]string{"encrypt": "true"},
			ResolveHost:          settings.ResolveHost,
		},
	}
}

func (s *Spec) ConvertTemporal(targetType string, t time.Time) (string, bool) {
	switch datasource.NormalizeTemporalType(targetType) {
	case datasource.TemporalDate:
		return "CONVERT(DATE, '" + datasource.ISODate(t) + "', 23)", true
	case datasource.TemporalDatetime:
		return "CONVERT(DATETIME, '" + datasource.ISOMillis(t, "T") + "', 126)", true
	case datasource.TemporalSmallDatetime:
		return "CONVERT(SMALLDATETIME, '" + datasource.ISOSeconds(t, " ") + "', 20)", true
	}
	return "", false
}

// ExtractErrors falls back to the server error number when the message
// text matches no mapping.
func (s *Spec) ExtractErrors(err error, ctx map[string]string) []dberrors.EngineError {
	errs := s.Base.ExtractErrors(err, ctx)
	if len(errs) != 1 || errs[0].Kind != dberrors.KindGenericBackend {
		return errs
	}
	var sqlErr mssqldb.Error
	if !errors.As(err, &sqlErr) {
		return errs
	}
	if kind, ok := numberKinds[sqlErr.Number]; ok {
		errs[0].Kind = kind
		errs[0].IssueCodes = dberrors.IssueCodesFor(kind)
	}
	return errs
}

func (s *Spec) QuoteIdentifier(name string) string { return quoteName(name) }

func (s *Spec) GetDatatype(typeCode string) string { return mapSQLServerType(typeCode) }

func (s *Spec) Driver() string { return "sqlserver" }

// DataSourceName moves the database from the URI path into the "database"
// query parameter; go-mssqldb reads the path as an instance name.
func (s *Spec) DataSourceName(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse connection uri: %w", err)
	}
	if u.Scheme != "sqlserver" {
		return "", fmt.Errorf("unexpected scheme %q", u.Scheme)
	}
	database := strings.TrimPrefix(u.Path, "/")
	if database == "" {
		return uri, nil
	}
	query := u.Query()
	query.Set("database", database)
	u.Path = ""
	u.RawPath = ""
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func (s *Spec) InspectorQueries() datasource.InspectorQueries { return inspectorQueries }

var (
	_ datasource.EngineSpec             = (*Spec)(nil)
	_ datasource.ParametersConfigurable = (*Spec)(nil)
	_ datasource.Introspectable         = (*Spec)(nil)
)
