package services

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dialects/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dialects/pkg/logging"
	"github.com/ekaya-inc/ekaya-dialects/pkg/metrics"
	sqlparse "github.com/ekaya-inc/ekaya-dialects/pkg/sql"
)

// ErrEmptyQuery is returned when the submitted text holds no statement.
var ErrEmptyQuery = errors.New("query contains no statements")

// DefaultParseCacheSize is used when the preparer is given no cache size.
const DefaultParseCacheSize = 512

// Limit actions beyond those sqlparse.ClassifyLimit reports.
const (
	LimitActionWrapped   = "wrapped"
	LimitActionFetchMany = "fetch_many"
	LimitActionSkipped   = "skipped"
)

// PreparedQuery is SQL ready to hand to a driver.
type PreparedQuery struct {
	Engine string
	// SQL is the full text with the row limit applied.
	SQL string
	// Statements is SQL split into individually executable statements.
	Statements []string
	// Tables is the union of tables referenced by every statement.
	Tables []sqlparse.TableReference
	// Limit is the effective row ceiling. With LimitActionFetchMany the
	// caller must stop fetching at this many rows.
	Limit       int
	LimitAction string
}

type parseKey struct {
	engine string
	sql    string
}

// QueryPreparer parses user SQL, enforces read-only access and applies the
// engine's row limit. Parsed statements are cached per engine.
type QueryPreparer struct {
	registry *datasource.Registry
	ceiling  int
	cache    *lru.Cache[parseKey, []*sqlparse.Statement]
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewQueryPreparer creates a preparer. ceiling is the global row limit;
// cacheSize bounds the number of cached parses.
func NewQueryPreparer(
	registry *datasource.Registry,
	ceiling int,
	cacheSize int,
	collector *metrics.Collector,
	logger *zap.Logger,
) (*QueryPreparer, error) {
	if ceiling <= 0 {
		return nil, fmt.Errorf("row limit ceiling must be positive, got %d", ceiling)
	}
	if cacheSize <= 0 {
		cacheSize = DefaultParseCacheSize
	}
	cache, err := lru.New[parseKey, []*sqlparse.Statement](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create parse cache: %w", err)
	}
	return &QueryPreparer{
		registry: registry,
		ceiling:  ceiling,
		cache:    cache,
		metrics:  collector,
		logger:   logging.OrNop(logger).Named("query_preparer"),
	}, nil
}

// Prepare readies sql for engine. requestedLimit is capped by the ceiling;
// a non-positive request means the ceiling. force rewrites an existing
// smaller limit. With requireReadOnly any mutating statement is rejected
// with apperrors.ErrNotReadOnly.
func (p *QueryPreparer) Prepare(engine, sql string, requestedLimit int, force, requireReadOnly bool) (*PreparedQuery, error) {
	spec, err := p.registry.Get(engine)
	if err != nil {
		return nil, err
	}

	statements, err := p.parse(spec, sql)
	if err != nil {
		return nil, err
	}
	if len(statements) == 0 {
		return nil, ErrEmptyQuery
	}

	if requireReadOnly {
		for i, stmt := range statements {
			if !spec.IsReadOnlyQuery(stmt) {
				p.logger.Info("Rejected mutating statement",
					zap.String("engine", engine),
					zap.Int("statement", i+1),
					zap.String("kind", string(stmt.Kind)),
					zap.String("sql", logging.SanitizeQuery(stmt.Raw)))
				return nil, fmt.Errorf("statement %d (%s): %w", i+1, stmt.Kind, apperrors.ErrNotReadOnly)
			}
		}
	}

	limit := p.effectiveLimit(requestedLimit)
	last := statements[len(statements)-1]

	prepared := &PreparedQuery{
		Engine: engine,
		Tables: unionTables(statements),
		Limit:  limit,
	}

	switch {
	case last.Kind != sqlparse.KindRead:
		prepared.SQL = sql
		prepared.LimitAction = LimitActionSkipped
	case spec.LimitMethod() == datasource.LimitWrap:
		prepared.SQL = spec.ApplyLimit(sql, limit, force)
		prepared.LimitAction = LimitActionWrapped
	case spec.LimitMethod() == datasource.LimitFetchMany:
		prepared.SQL = spec.ApplyLimit(sql, limit, force)
		prepared.LimitAction = LimitActionFetchMany
	default:
		prepared.LimitAction = string(sqlparse.ClassifyLimit(spec.Dialect(), sql, limit, force))
		prepared.SQL = spec.ApplyLimit(sql, limit, force)
	}
	p.metrics.LimitApplied(engine, prepared.LimitAction)

	final, err := p.parse(spec, prepared.SQL)
	if err != nil {
		return nil, fmt.Errorf("limited query no longer parses: %w", err)
	}
	prepared.Statements = make([]string, len(final))
	for i, stmt := range final {
		prepared.Statements[i] = stmt.Raw
	}

	p.logger.Debug("Prepared query",
		zap.String("engine", engine),
		zap.Int("statements", len(prepared.Statements)),
		zap.Int("limit", limit),
		zap.String("limit_action", prepared.LimitAction))
	return prepared, nil
}

// PrepareSingle is Prepare for callers that accept exactly one statement.
// The statement loses its terminator before limiting; scripts fail with
// sqlparse.ErrMultipleStatements.
func (p *QueryPreparer) PrepareSingle(engine, sql string, requestedLimit int, force, requireReadOnly bool) (*PreparedQuery, error) {
	spec, err := p.registry.Get(engine)
	if err != nil {
		return nil, err
	}
	result := sqlparse.ValidateAndNormalize(spec.Dialect(), sql)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.NormalizedSQL == "" {
		return nil, ErrEmptyQuery
	}
	return p.Prepare(engine, result.NormalizedSQL, requestedLimit, force, requireReadOnly)
}

func (p *QueryPreparer) effectiveLimit(requested int) int {
	if requested <= 0 || requested > p.ceiling {
		return p.ceiling
	}
	return requested
}

func (p *QueryPreparer) parse(spec datasource.EngineSpec, sql string) ([]*sqlparse.Statement, error) {
	key := parseKey{engine: spec.Engine(), sql: sql}
	if statements, ok := p.cache.Get(key); ok {
		return statements, nil
	}
	statements, err := spec.ParseSQL(sql)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, statements)
	return statements, nil
}

func unionTables(statements []*sqlparse.Statement) []sqlparse.TableReference {
	seen := make(map[sqlparse.TableReference]bool)
	var out []sqlparse.TableReference
	for _, stmt := range statements {
		for _, t := range stmt.Tables() {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}
