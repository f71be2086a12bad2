package all

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
)

func TestAllAdaptersRegistered(t *testing.T) {
	r, err := datasource.NewRegistry(datasource.Settings{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"druid", "hive", "mssql", "mysql", "pinot", "postgresql", "presto", "redshift", "sqlite",
	}, r.Engines())
	assert.Equal(t, []string{"mssql", "mysql", "postgresql", "redshift"}, r.ParametersEngines())
}

func TestAllAdapters_Contract(t *testing.T) {
	r, err := datasource.NewRegistry(datasource.Settings{}, nil)
	require.NoError(t, err)

	for _, name := range r.Engines() {
		t.Run(name, func(t *testing.T) {
			spec, err := r.Get(name)
			require.NoError(t, err)
			assert.Equal(t, name, spec.Engine())
			assert.NotEmpty(t, spec.EngineName())

			stmts, err := spec.ParseSQL("SELECT 1; SELECT 2")
			require.NoError(t, err)
			assert.Len(t, stmts, 2)
			for _, stmt := range stmts {
				assert.True(t, spec.IsReadOnlyQuery(stmt))
			}

			limited := spec.ApplyLimit("SELECT a FROM t", 10, false)
			assert.Contains(t, limited, "10")

			grains, err := r.TimeGrains(name)
			require.NoError(t, err)
			assert.NotEmpty(t, grains)
			for _, g := range grains {
				assert.NotEmpty(t, g.Label, g.Duration)
			}
		})
	}
}

func TestRegisteredAdapters(t *testing.T) {
	var types []string
	for _, info := range datasource.RegisteredAdapters() {
		types = append(types, info.Type)
		assert.NotEmpty(t, info.DisplayName)
		assert.NotEmpty(t, info.Icon)
	}
	assert.Subset(t, types, []string{"postgresql", "mysql", "sqlite", "mssql"})
}
