package datasource

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ekaya-inc/ekaya-dialects/pkg/apperrors"
)

// Inspector reads catalog metadata from a live connection.
type Inspector interface {
	SchemaNames(ctx context.Context) ([]string, error)
	TableNames(ctx context.Context, schema string) ([]string, error)
	ViewNames(ctx context.Context, schema string) ([]string, error)
}

// InspectorQueries are the catalog queries an engine runs through
// SQLInspector. When SchemaBound is set, Tables and Views take the schema
// as their single bind parameter; an empty schema means the connection's
// default.
type InspectorQueries struct {
	Schemas     string
	Tables      string
	Views       string
	SchemaBound bool
}

// SQLInspector runs InspectorQueries against a database/sql pool.
type SQLInspector struct {
	db      *sql.DB
	queries InspectorQueries
}

// NewSQLInspector wraps an open pool.
func NewSQLInspector(db *sql.DB, queries InspectorQueries) *SQLInspector {
	return &SQLInspector{db: db, queries: queries}
}

func (i *SQLInspector) SchemaNames(ctx context.Context) ([]string, error) {
	return i.strings(ctx, i.queries.Schemas)
}

func (i *SQLInspector) TableNames(ctx context.Context, schema string) ([]string, error) {
	if i.queries.SchemaBound {
		return i.strings(ctx, i.queries.Tables, schema)
	}
	return i.strings(ctx, i.queries.Tables)
}

func (i *SQLInspector) ViewNames(ctx context.Context, schema string) ([]string, error) {
	if i.queries.SchemaBound {
		return i.strings(ctx, i.queries.Views, schema)
	}
	return i.strings(ctx, i.queries.Views)
}

func (i *SQLInspector) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog query failed: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog rows: %w", err)
	}
	return out, nil
}

// Inspect opens a pool for uri with the engine's driver, verifies it with a
// ping, hands fn an inspector and closes the pool before returning.
func Inspect(ctx context.Context, spec EngineSpec, uri string, fn func(Inspector) error) error {
	intro, ok := spec.(Introspectable)
	if !ok {
		return fmt.Errorf("%s: %w", spec.Engine(), apperrors.ErrIntrospectionUnsupported)
	}
	db, err := Open(intro, uri)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	return fn(NewSQLInspector(db, intro.InspectorQueries()))
}

// Open returns a database/sql pool for uri. Nothing is dialled until the
// pool is used.
func Open(intro Introspectable, uri string) (*sql.DB, error) {
	dsn, err := intro.DataSourceName(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to build data source name: %w", err)
	}
	db, err := sql.Open(intro.Driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", intro.Driver(), err)
	}
	return db, nil
}
