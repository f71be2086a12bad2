package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dialects/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dialects/pkg/dberrors"
)

// newSQLiteDatabase creates a file database and returns its URI.
func newSQLiteDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warehouse.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{
		`CREATE TABLE shipments (id INTEGER PRIMARY KEY, shipped_at TEXT)`,
		`CREATE TABLE carriers (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE VIEW late_shipments AS SELECT * FROM shipments WHERE shipped_at IS NULL`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return "sqlite:///" + path
}

func TestMetadataBrowser_SQLite(t *testing.T) {
	for _, pooled := range []bool{false, true} {
		t.Run(fmt.Sprintf("pooled=%v", pooled), func(t *testing.T) {
			var pools *datasource.PoolCache
			if pooled {
				pools = datasource.NewPoolCache(datasource.PoolCacheConfig{}, zaptest.NewLogger(t))
				t.Cleanup(func() { _ = pools.Close() })
			}
			browseSQLite(t, NewMetadataBrowser(newTestRegistry(t, datasource.Settings{}), pools, nil, zaptest.NewLogger(t)))
			if pooled {
				assert.Equal(t, 1, pools.Len(), "one pool reused across calls")
			}
		})
	}
}

func browseSQLite(t *testing.T, b *MetadataBrowser) {
	t.Helper()
	uri := newSQLiteDatabase(t)
	ctx := context.Background()

	tables, err := b.TableNames(ctx, "sqlite", uri, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"carriers", "shipments"}, tables)

	views, err := b.ViewNames(ctx, "sqlite", uri, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"late_shipments"}, views)

	names, err := b.DatasourceNames(ctx, "sqlite", uri, "view")
	require.NoError(t, err)
	assert.Equal(t, []datasource.DatasourceName{{Schema: "main", Table: "late_shipments"}}, names)
}

func TestMetadataBrowser_Errors(t *testing.T) {
	b := NewMetadataBrowser(newTestRegistry(t, datasource.Settings{}), nil, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	t.Run("unknown engine", func(t *testing.T) {
		_, err := b.TableNames(ctx, "oracle", "oracle://db/x", "")
		var unknown *apperrors.UnknownEngineError
		assert.True(t, errors.As(err, &unknown))
	})

	t.Run("engine without driver", func(t *testing.T) {
		_, err := b.TableNames(ctx, "druid", "druid://broker:8082/druid/v2/sql", "")
		assert.ErrorIs(t, err, apperrors.ErrIntrospectionUnsupported)
	})

	t.Run("driver error is normalized", func(t *testing.T) {
		uri := "sqlite:///" + filepath.Join(t.TempDir(), "missing", "dir", "x.db")
		_, err := b.TableNames(ctx, "sqlite", uri, "")
		require.Error(t, err)

		var errs dberrors.Errors
		require.True(t, errors.As(err, &errs), "expected dberrors.Errors, got %T", err)
		require.Len(t, errs, 1)
		assert.Equal(t, []string{"SQLite"}, errs[0].Extra["engine_name"])
	})

	t.Run("bad uri", func(t *testing.T) {
		_, err := b.ViewNames(ctx, "sqlite", "mysql://elsewhere/db", "")
		require.Error(t, err)
	})
}

func TestURIContext(t *testing.T) {
	assert.Equal(t, map[string]string{
		"hostname": "db.example.com",
		"port":     "5432",
		"username": "admin",
		"password": "pw",
		"database": "sales",
	}, uriContext("postgresql://admin:pw@db.example.com:5432/sales"))

	assert.Equal(t, map[string]string{"hostname": "localhost"}, uriContext("presto://localhost"))
	assert.Empty(t, uriContext("::not a uri"))
}
