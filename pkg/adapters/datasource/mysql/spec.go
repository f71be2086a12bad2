package mysql

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dialects/pkg/dberrors"
	sqlparse "github.com/ekaya-inc/ekaya-dialects/pkg/sql"
)

// Engine is the registry key.
const Engine = "mysql"

// DefaultPort returns the default MySQL port.
func DefaultPort() int {
	return 3306
}

var grains = datasource.GrainExpressions{
	"":                         "{col}",
	"PT1S":                     "DATE_ADD(DATE({col}), INTERVAL (HOUR({col})*60*60 + MINUTE({col})*60 + SECOND({col})) SECOND)",
	"PT1M":                     "DATE_ADD(DATE({col}), INTERVAL (HOUR({col})*60 + MINUTE({col})) MINUTE)",
	"PT1H":                     "DATE_ADD(DATE({col}), INTERVAL HOUR({col}) HOUR)",
	"P1D":                      "DATE({col})",
	"P1W":                      "DATE(DATE_SUB({col}, INTERVAL DAYOFWEEK({col}) - 1 DAY))",
	"P1M":                      "DATE(DATE_SUB({col}, INTERVAL DAYOFMONTH({col}) - 1 DAY))",
	"P0.25Y":                   "MAKEDATE(YEAR({col}), 1) + INTERVAL QUARTER({col}) QUARTER - INTERVAL 1 QUARTER",
	"P1Y":                      "DATE(DATE_SUB({col}, INTERVAL DAYOFYEAR({col}) - 1 DAY))",
	"1969-12-29T00:00:00Z/P1W": "DATE(DATE_SUB({col}, INTERVAL DAYOFWEEK(DATE_SUB({col}, INTERVAL 1 DAY)) - 1 DAY))",
}

// The 1044 pattern must precede the plain access-denied one.
var errorMappings = dberrors.Mappings{
	{
		Pattern: dberrors.MustCompile(`Access denied for user '(?P<username>.*?)'@'(?P<hostname>.*?)' to database '(?P<database>.*?)'`),
		Message: `The user "{username}" does not have access to the database "{database}".`,
		Kind:    dberrors.KindConnectionDBPermissions,
		Invalid: []string{"username", "database"},
	},
	{
		Pattern: dberrors.MustCompile(`Access denied for user '(?P<username>.*?)'@'(?P<hostname>.*?)'`),
		Message: `Either the username "{username}" or the password is incorrect.`,
		Kind:    dberrors.KindConnectionAccessDenied,
		Invalid: []string{"username", "password"},
	},
	{
		Pattern: dberrors.MustCompile(`Unknown MySQL server host '(?P<hostname>.*?)'`),
		Message: `Unknown MySQL server host "{hostname}".`,
		Kind:    dberrors.KindConnectionInvalidHostname,
		Invalid: []string{"host"},
	},
	{
		Pattern: dberrors.MustCompile(`Can't connect to MySQL server on '(?P<hostname>.*?)'`),
		Message: `The host "{hostname}" might be down and can't be reached.`,
		Kind:    dberrors.KindConnectionHostDown,
		Invalid: []string{"host", "port"},
	},
	{
		Pattern: dberrors.MustCompile(`Unknown database '(?P<database>.*?)'`),
		Message: `Unable to connect to database "{database}".`,
		Kind:    dberrors.KindConnectionUnknownDatabase,
		Invalid: []string{"database"},
	},
	{
		Pattern: dberrors.MustCompile(`Table '(?P<table_name>.+?)' doesn't exist`),
		Message: `The table "{table_name}" does not exist. A valid table must be used to run this query.`,
		Kind:    dberrors.KindTableDoesNotExist,
	},
	{
		Pattern: dberrors.MustCompile(`Unknown column '(?P<column_name>.+?)' in '(?P<clause>.+?)'`),
		Message: `We can't seem to resolve the column "{column_name}" in {clause}.`,
		Kind:    dberrors.KindColumnDoesNotExist,
	},
	{
		Pattern: dberrors.MustCompile(`You have an error in your SQL syntax; .*? near '(?P<syntax_error>.*?)' at line (?P<location>\d+)`),
		Message: `Please check your query for syntax errors near "{syntax_error}" at line {location}. Then, try running your query again.`,
		Kind:    dberrors.KindSyntax,
	},
}

// Server and client error numbers that identify a connection problem even
// when the message text matches no mapping.
var numberKinds = map[uint16]dberrors.ErrorKind{
	1044: dberrors.KindConnectionDBPermissions,
	1045: dberrors.KindConnectionAccessDenied,
	1049: dberrors.KindConnectionUnknownDatabase,
	2003: dberrors.KindConnectionHostDown,
	2005: dberrors.KindConnectionInvalidHostname,
}

var inspectorQueries = datasource.InspectorQueries{
	Schemas: `SELECT schema_name FROM information_schema.schemata
		WHERE schema_name NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')
		ORDER BY schema_name`,
	Tables: `SELECT table_name FROM information_schema.tables
		WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`,
	Views: `SELECT table_name FROM information_schema.views
		WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		ORDER BY table_name`,
	SchemaBound: true,
}

// Spec is the MySQL engine.
type Spec struct {
	datasource.Base
	datasource.BasicParameters
}

// New returns the MySQL engine configured with settings.
func New(settings datasource.Settings) *Spec {
	return &Spec{
		Base: datasource.Base{
			Name:            Engine,
			DisplayName:     "MySQL",
			SQLDialect:      sqlparse.DialectMySQL,
			MaxColumnLength: 64,
			Grains:          datasource.CopyGrains(grains),
			Epoch:           "from_unixtime({col})",
			Errors:          errorMappings,
		},
		BasicParameters: datasource.BasicParameters{
			Scheme:               "mysql",
			EncryptionParameters: map[string]string{"ssl": "1"},
			ResolveHost:          settings.ResolveHost,
		},
	}
}

func (s *Spec) ConvertTemporal(targetType string, t time.Time) (string, bool) {
	switch datasource.NormalizeTemporalType(targetType) {
	case datasource.TemporalDate:
		return "STR_TO_DATE('" + datasource.ISODate(t) + "', '%Y-%m-%d')", true
	case datasource.TemporalDatetime:
		return "STR_TO_DATE('" + datasource.ISOMicros(t, " ") + "', '%Y-%m-%d %H:%i:%s.%f')", true
	}
	return "", false
}

// ExtractErrors matches the message text first. A driver error whose text
// is unrecognised still gets a kind from its error number.
func (s *Spec) ExtractErrors(err error, ctx map[string]string) []dberrors.EngineError {
	errs := s.Base.ExtractErrors(err, ctx)
	if len(errs) != 1 || errs[0].Kind != dberrors.KindGenericBackend {
		return errs
	}
	var myErr *gomysql.MySQLError
	if !errors.As(err, &myErr) {
		return errs
	}
	if kind, ok := numberKinds[myErr.Number]; ok {
		errs[0].Kind = kind
		errs[0].IssueCodes = dberrors.IssueCodesFor(kind)
	}
	return errs
}

// QuoteIdentifier uses backticks.
func (s *Spec) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (s *Spec) Driver() string { return "mysql" }

// DataSourceName converts a mysql:// URI into the driver's DSN format.
func (s *Spec) DataSourceName(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse connection uri: %w", err)
	}
	if u.Scheme != "mysql" {
		return "", fmt.Errorf("unexpected scheme %q", u.Scheme)
	}

	cfg := gomysql.NewConfig()
	cfg.Net = "tcp"
	port := u.Port()
	if port == "" {
		port = strconv.Itoa(DefaultPort())
	}
	cfg.Addr = net.JoinHostPort(u.Hostname(), port)
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true

	for key, values := range u.Query() {
		if len(values) == 0 {
			continue
		}
		value := values[len(values)-1]
		switch key {
		case "ssl":
			if value == "1" || strings.EqualFold(value, "true") {
				cfg.TLSConfig = "true"
			}
		case "tls":
			cfg.TLSConfig = value
		default:
			if cfg.Params == nil {
				cfg.Params = map[string]string{}
			}
			cfg.Params[key] = value
		}
	}
	return cfg.FormatDSN(), nil
}

func (s *Spec) InspectorQueries() datasource.InspectorQueries { return inspectorQueries }

var (
	_ datasource.EngineSpec             = (*Spec)(nil)
	_ datasource.ParametersConfigurable = (*Spec)(nil)
	_ datasource.Introspectable         = (*Spec)(nil)
)
