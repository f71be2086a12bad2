package services

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dialects/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dialects/pkg/dberrors"
	"github.com/ekaya-inc/ekaya-dialects/pkg/logging"
	"github.com/ekaya-inc/ekaya-dialects/pkg/metrics"
)

// MetadataBrowser lists catalog objects of a live database. Driver failures
// come back as dberrors.Errors normalized by the engine.
type MetadataBrowser struct {
	registry *datasource.Registry
	pools    *datasource.PoolCache
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewMetadataBrowser creates a browser over the engines in registry. With a
// nil pools every call opens and closes its own connection.
func NewMetadataBrowser(
	registry *datasource.Registry,
	pools *datasource.PoolCache,
	collector *metrics.Collector,
	logger *zap.Logger,
) *MetadataBrowser {
	return &MetadataBrowser{
		registry: registry,
		pools:    pools,
		metrics:  collector,
		logger:   logging.OrNop(logger).Named("metadata_browser"),
	}
}

// TableNames lists the tables of schema.
func (b *MetadataBrowser) TableNames(ctx context.Context, engine, uri, schema string) ([]string, error) {
	var names []string
	err := b.inspect(ctx, engine, uri, func(spec datasource.EngineSpec, in datasource.Inspector) error {
		var err error
		names, err = spec.GetTableNames(ctx, in, schema)
		return err
	})
	return names, err
}

// ViewNames lists the views of schema.
func (b *MetadataBrowser) ViewNames(ctx context.Context, engine, uri, schema string) ([]string, error) {
	var names []string
	err := b.inspect(ctx, engine, uri, func(spec datasource.EngineSpec, in datasource.Inspector) error {
		var err error
		names, err = spec.GetViewNames(ctx, in, schema)
		return err
	})
	return names, err
}

// DatasourceNames lists every table or view (datasourceType "table" or
// "view") across the schemas the engine exposes.
func (b *MetadataBrowser) DatasourceNames(ctx context.Context, engine, uri, datasourceType string) ([]datasource.DatasourceName, error) {
	var names []datasource.DatasourceName
	err := b.inspect(ctx, engine, uri, func(spec datasource.EngineSpec, in datasource.Inspector) error {
		var err error
		names, err = spec.GetAllDatasourceNames(ctx, in, datasourceType)
		return err
	})
	return names, err
}

func (b *MetadataBrowser) inspect(
	ctx context.Context,
	engine, uri string,
	fn func(datasource.EngineSpec, datasource.Inspector) error,
) error {
	spec, err := b.registry.Get(engine)
	if err != nil {
		return err
	}

	inspect := datasource.Inspect
	if b.pools != nil {
		inspect = b.pools.Inspect
	}
	err = inspect(ctx, spec, uri, func(in datasource.Inspector) error {
		return fn(spec, in)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, apperrors.ErrIntrospectionUnsupported) || errors.Is(err, context.Canceled) {
		return err
	}

	errs := spec.ExtractErrors(err, uriContext(uri))
	b.metrics.ErrorsNormalized(spec.Engine(), errs)
	b.logger.Warn("Catalog inspection failed",
		zap.String("engine", engine),
		zap.String("uri", logging.SanitizeConnectionString(uri)),
		zap.String("error", logging.SanitizeError(err)))
	return dberrors.Errors(errs)
}

// uriContext pulls the interpolation context for error messages out of a
// connection URI. Unparseable URIs give an empty context.
func uriContext(uri string) map[string]string {
	ctx := map[string]string{}
	u, err := url.Parse(uri)
	if err != nil {
		return ctx
	}
	if host := u.Hostname(); host != "" {
		ctx["hostname"] = host
	}
	if port := u.Port(); port != "" {
		ctx["port"] = port
	}
	if u.User != nil {
		ctx["username"] = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			ctx["password"] = pw
		}
	}
	if db := strings.TrimLeft(u.Path, "/"); db != "" {
		ctx["database"] = db
	}
	return ctx
}

