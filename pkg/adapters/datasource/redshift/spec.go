package redshift

import (
	"strings"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/postgres"
	"github.com/ekaya-inc/ekaya-dialects/pkg/dberrors"
	sqlparse "github.com/ekaya-inc/ekaya-dialects/pkg/sql"
)

// Engine is the registry key.
const Engine = "redshift"

// DefaultPort returns the default Redshift cluster port.
func DefaultPort() int {
	return 5439
}

// Spec is the Amazon Redshift engine. It speaks the PostgreSQL dialect and
// reports the same libpq connection messages.
type Spec struct {
	datasource.Base
	datasource.BasicParameters
}

// New returns the Redshift engine configured with settings.
func New(settings datasource.Settings) *Spec {
	return &Spec{
		Base: datasource.Base{
			Name:            Engine,
			DisplayName:     "Amazon Redshift",
			SQLDialect:      sqlparse.DialectPostgres,
			MaxColumnLength: 127,
			Grains:          datasource.CopyGrains(postgres.Grains),
			Epoch:           postgres.Epoch,
			Errors:          append(dberrors.Mappings{}, postgres.ConnectionErrors...),
		},
		BasicParameters: datasource.BasicParameters{
			Scheme:               "redshift",
			EncryptionParameters: map[string]string{"sslmode": "verify-ca"},
			ResolveHost:          settings.ResolveHost,
		},
	}
}

// MutateLabel lower-cases labels; Redshift folds column aliases.
func (s *Spec) MutateLabel(label string) string {
	return strings.ToLower(label)
}

func (s *Spec) ConvertTemporal(targetType string, t time.Time) (string, bool) {
	return postgres.ConvertTemporal(targetType, t)
}

func (s *Spec) Driver() string { return "postgres" }

// DataSourceName rewrites the redshift:// scheme to one lib/pq accepts.
func (s *Spec) DataSourceName(uri string) (string, error) {
	if rest, ok := strings.CutPrefix(uri, "redshift://"); ok {
		return "postgres://" + rest, nil
	}
	return uri, nil
}

// InspectorQueries uses information_schema. lib/pq binds with $n like pgx.
func (s *Spec) InspectorQueries() datasource.InspectorQueries { return postgres.InspectorQueries }

var (
	_ datasource.EngineSpec             = (*Spec)(nil)
	_ datasource.ParametersConfigurable = (*Spec)(nil)
	_ datasource.Introspectable         = (*Spec)(nil)
)
