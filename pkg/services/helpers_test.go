package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/druid"
	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/mssql"
	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/mysql"
	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/postgres"
	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/sqlite"
)

func newTestRegistry(t *testing.T, settings datasource.Settings) *datasource.Registry {
	t.Helper()
	reg, err := datasource.NewRegistryWith(settings, zaptest.NewLogger(t),
		druid.New(settings),
		mssql.New(settings),
		mysql.New(settings),
		postgres.New(settings),
		sqlite.New(settings),
	)
	require.NoError(t, err)
	return reg
}

// fakeProber answers every reachability question the same way.
type fakeProber struct {
	resolves bool
	open     bool
}

func (p fakeProber) HostResolves(context.Context, string) bool   { return p.resolves }
func (p fakeProber) PortOpen(context.Context, string, int) bool { return p.open }
