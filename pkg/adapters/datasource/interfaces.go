package datasource

import (
	"context"
	"time"

	"github.com/ekaya-inc/ekaya-dialects/pkg/dberrors"
	sqlparse "github.com/ekaya-inc/ekaya-dialects/pkg/sql"
)

// LimitMethod selects how a row limit is enforced for an engine.
type LimitMethod string

const (
	// LimitForce rewrites or appends a LIMIT clause in the SQL text.
	LimitForce LimitMethod = "force_limit"
	// LimitWrap wraps the statement in an outer select that carries the limit.
	LimitWrap LimitMethod = "wrap_sql"
	// LimitFetchMany leaves the SQL alone; the caller stops fetching at the limit.
	LimitFetchMany LimitMethod = "fetch_many"
)

// Features are the static capability flags of an engine.
type Features struct {
	AllowsJoins          bool `json:"allows_joins"`
	AllowsSubqueries     bool `json:"allows_subqueries"`
	AllowsAliasInSelect  bool `json:"allows_alias_in_select"`
	AllowsAliasInOrderBy bool `json:"allows_alias_in_orderby"`
	AllowsSQLComments    bool `json:"allows_sql_comments"`
}

// DefaultFeatures is what an engine supports unless it says otherwise.
func DefaultFeatures() Features {
	return Features{
		AllowsJoins:          true,
		AllowsSubqueries:     true,
		AllowsAliasInSelect:  true,
		AllowsAliasInOrderBy: true,
		AllowsSQLComments:    true,
	}
}

// DatasourceName identifies a table or view inside a schema.
type DatasourceName struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

// EngineSpec is the surface the rest of the application calls regardless
// of which database family is behind a connection.
type EngineSpec interface {
	// Engine is the registry key, e.g. "postgresql".
	Engine() string
	// EngineName is the human readable name, e.g. "PostgreSQL".
	EngineName() string
	Features() Features
	Dialect() sqlparse.Dialect
	MaxColumnNameLength() int
	LimitMethod() LimitMethod

	// TimeGrainExpressions returns the engine's own grain templates before
	// configuration addons and denials are applied.
	TimeGrainExpressions() GrainExpressions
	// TimestampExpression renders col truncated to grain. pdf is the
	// column's python date format ("epoch_s", "epoch_ms" or a strftime
	// pattern) and grains is the resolved grain map for this engine.
	TimestampExpression(col, pdf, grain string, grains GrainExpressions) (string, error)
	// ConvertTemporal renders t as a literal for a column of targetType.
	// It returns false when the type cannot take a literal and the caller
	// must bind a parameter instead.
	ConvertTemporal(targetType string, t time.Time) (string, bool)
	EpochToTimestamp() (string, bool)
	EpochMsToTimestamp() (string, bool)

	ApplyLimit(sql string, limit int, force bool) string
	GetLimitFromSQL(sql string) (int, bool)
	IsReadOnlyQuery(stmt *sqlparse.Statement) bool
	ParseSQL(sql string) ([]*sqlparse.Statement, error)

	ErrorMappings() dberrors.Mappings
	ExtractErrors(err error, ctx map[string]string) []dberrors.EngineError

	MutateLabel(label string) string
	QuoteIdentifier(name string) string
	GetDatatype(typeCode string) string

	GetTableNames(ctx context.Context, inspector Inspector, schema string) ([]string, error)
	GetViewNames(ctx context.Context, inspector Inspector, schema string) ([]string, error)
	GetAllDatasourceNames(ctx context.Context, inspector Inspector, datasourceType string) ([]DatasourceName, error)

	// ExtraParams decodes the connection's extra JSON and adds anything the
	// engine needs to connect, such as a server certificate path.
	ExtraParams(extraJSON, serverCert string) (map[string]any, error)
}

// ParametersConfigurable is implemented by engines that can be configured
// from discrete connection fields instead of a raw URI.
type ParametersConfigurable interface {
	BuildConnectionURI(params ConnectionParameters) (string, error)
	ValidateParameters(ctx context.Context, params ConnectionParameters, prober Prober) dberrors.Errors
	ParametersFromURI(uri string) (ConnectionParameters, error)
}

// Introspectable is implemented by engines whose database/sql driver is
// compiled in.
type Introspectable interface {
	// Driver is the database/sql driver name.
	Driver() string
	// DataSourceName converts a connection URI into the driver's DSN.
	DataSourceName(uri string) (string, error)
	InspectorQueries() InspectorQueries
}
