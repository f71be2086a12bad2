package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-dialects/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dialects/pkg/dberrors"
	sqlparse "github.com/ekaya-inc/ekaya-dialects/pkg/sql"
)

// DefaultWrapTemplate is used by wrap-style engines that set no template.
const DefaultWrapTemplate = "SELECT * FROM ({sql}) AS inner_qry LIMIT {limit}"

// Base holds the data every engine declares and implements the default
// behaviour of EngineSpec on top of it. Adapters embed Base and override
// individual methods where their dialect differs.
type Base struct {
	Name        string
	DisplayName string
	SQLDialect  sqlparse.Dialect
	// Caps defaults to DefaultFeatures when nil.
	Caps            *Features
	MaxColumnLength int
	// Limit defaults to LimitForce.
	Limit        LimitMethod
	WrapTemplate string
	Grains       GrainExpressions
	// Epoch converts a numeric seconds column. EpochMs defaults to Epoch
	// applied to the column divided by 1000.
	Epoch   string
	EpochMs string
	Errors  dberrors.Mappings
	// ReplaceBaseErrors drops the shared network mappings.
	ReplaceBaseErrors bool
	// KeepSchemaPrefix stops GetTableNames from stripping "schema." from
	// names returned by the inspector.
	KeepSchemaPrefix bool
}

var _ EngineSpec = Base{}

func (b Base) Engine() string     { return b.Name }
func (b Base) EngineName() string { return b.DisplayName }

func (b Base) Features() Features {
	if b.Caps == nil {
		return DefaultFeatures()
	}
	return *b.Caps
}

func (b Base) Dialect() sqlparse.Dialect {
	if b.SQLDialect == "" {
		return sqlparse.DialectANSI
	}
	return b.SQLDialect
}

func (b Base) MaxColumnNameLength() int { return b.MaxColumnLength }

func (b Base) LimitMethod() LimitMethod {
	if b.Limit == "" {
		return LimitForce
	}
	return b.Limit
}

func (b Base) TimeGrainExpressions() GrainExpressions {
	return CopyGrains(b.Grains)
}

func (b Base) TimestampExpression(col, pdf, grain string, grains GrainExpressions) (string, error) {
	if grains == nil {
		grains = b.TimeGrainExpressions()
	}
	return BuildTimestampExpression(b, col, pdf, grain, grains)
}

// BuildTimestampExpression is the default grain rendering. The epoch
// conversion of spec is applied first when pdf names an epoch format, then
// the grain template wraps the result.
func BuildTimestampExpression(spec EngineSpec, col, pdf, grain string, grains GrainExpressions) (string, error) {
	template := "{col}"
	if grain != "" {
		expr, ok := grains[grain]
		if !ok || expr == "" {
			return "", &apperrors.UnsupportedGrainError{Engine: spec.Engine(), Grain: grain}
		}
		template = expr
	}

	inner := col
	switch pdf {
	case "epoch_s":
		epoch, ok := spec.EpochToTimestamp()
		if !ok {
			return "", fmt.Errorf("engine %q cannot convert epoch seconds", spec.Engine())
		}
		inner = strings.ReplaceAll(epoch, "{col}", col)
	case "epoch_ms":
		epoch, ok := spec.EpochMsToTimestamp()
		if !ok {
			return "", fmt.Errorf("engine %q cannot convert epoch milliseconds", spec.Engine())
		}
		inner = strings.ReplaceAll(epoch, "{col}", col)
	}
	return strings.ReplaceAll(template, "{col}", inner), nil
}

func (b Base) ConvertTemporal(string, time.Time) (string, bool) {
	return "", false
}

func (b Base) EpochToTimestamp() (string, bool) {
	return b.Epoch, b.Epoch != ""
}

func (b Base) EpochMsToTimestamp() (string, bool) {
	if b.EpochMs != "" {
		return b.EpochMs, true
	}
	if b.Epoch == "" {
		return "", false
	}
	return strings.ReplaceAll(b.Epoch, "{col}", "({col}/1000)"), true
}

func (b Base) ApplyLimit(sql string, limit int, force bool) string {
	switch b.LimitMethod() {
	case LimitWrap:
		template := b.WrapTemplate
		if template == "" {
			template = DefaultWrapTemplate
		}
		return sqlparse.WrapLimit(b.Dialect(), sql, limit, template)
	case LimitFetchMany:
		return sql
	default:
		return sqlparse.ApplyLimit(b.Dialect(), sql, limit, force)
	}
}

func (b Base) GetLimitFromSQL(sql string) (int, bool) {
	return sqlparse.ExtractLimit(b.Dialect(), sql)
}

func (b Base) IsReadOnlyQuery(stmt *sqlparse.Statement) bool {
	return sqlparse.IsReadOnly(stmt)
}

func (b Base) ParseSQL(sql string) ([]*sqlparse.Statement, error) {
	return sqlparse.Parse(b.Dialect(), sql)
}

func (b Base) ErrorMappings() dberrors.Mappings {
	return dberrors.Compose(dberrors.Base, b.Errors, b.ReplaceBaseErrors)
}

func (b Base) ExtractErrors(err error, ctx map[string]string) []dberrors.EngineError {
	if err == nil {
		return nil
	}
	var structured dberrors.EngineError
	if errors.As(err, &structured) {
		return []dberrors.EngineError{structured}
	}
	return []dberrors.EngineError{b.ErrorMappings().Extract(b.DisplayName, err.Error(), ctx)}
}

func (b Base) MutateLabel(label string) string { return label }

// QuoteIdentifier double-quotes name, doubling embedded quotes.
func (b Base) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (b Base) GetDatatype(typeCode string) string {
	return strings.ToUpper(typeCode)
}

func (b Base) GetTableNames(ctx context.Context, inspector Inspector, schema string) ([]string, error) {
	tables, err := inspector.TableNames(ctx, schema)
	if err != nil {
		return nil, err
	}
	return b.stripSchema(tables, schema), nil
}

func (b Base) GetViewNames(ctx context.Context, inspector Inspector, schema string) ([]string, error) {
	views, err := inspector.ViewNames(ctx, schema)
	if err != nil {
		return nil, err
	}
	return b.stripSchema(views, schema), nil
}

func (b Base) stripSchema(names []string, schema string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		if schema != "" && !b.KeepSchemaPrefix {
			name = strings.TrimPrefix(name, schema+".")
		}
		out[i] = name
	}
	sort.Strings(out)
	return out
}

func (b Base) GetAllDatasourceNames(ctx context.Context, inspector Inspector, datasourceType string) ([]DatasourceName, error) {
	schemas, err := inspector.SchemaNames(ctx)
	if err != nil {
		return nil, err
	}
	return DatasourceNamesIn(ctx, inspector, schemas, datasourceType)
}

// DatasourceNamesIn lists the tables or views of each schema in order.
func DatasourceNamesIn(ctx context.Context, inspector Inspector, schemas []string, datasourceType string) ([]DatasourceName, error) {
	var list func(context.Context, string) ([]string, error)
	switch datasourceType {
	case "table":
		list = inspector.TableNames
	case "view":
		list = inspector.ViewNames
	default:
		return nil, fmt.Errorf("unsupported datasource type %q", datasourceType)
	}

	var out []DatasourceName
	for _, schema := range schemas {
		names, err := list(ctx, schema)
		if err != nil {
			return nil, fmt.Errorf("failed to list %ss in schema %q: %w", datasourceType, schema, err)
		}
		for _, name := range names {
			out = append(out, DatasourceName{Schema: schema, Table: name})
		}
	}
	return out, nil
}

func (b Base) ExtraParams(extraJSON, serverCert string) (map[string]any, error) {
	return DecodeExtra(extraJSON)
}

// DecodeExtra parses a connection's extra JSON. Empty input is an empty map.
func DecodeExtra(extraJSON string) (map[string]any, error) {
	extra := map[string]any{}
	if strings.TrimSpace(extraJSON) == "" {
		return extra, nil
	}
	if err := json.Unmarshal([]byte(extraJSON), &extra); err != nil {
		return nil, fmt.Errorf("unable to parse database extras: %w", err)
	}
	return extra, nil
}
