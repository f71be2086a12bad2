package datasource

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dialects/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dialects/pkg/dberrors"
)

// AdapterInfo describes a registered adapter for UI discovery.
type AdapterInfo struct {
	Type        string `json:"type"`         // "postgresql", "mssql", "druid"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Settings are passed to every adapter factory when a Registry is built.
type Settings struct {
	Grains GrainSettings
	// CertDir is where server certificates are written. Empty means the
	// OS temp directory.
	CertDir      string
	ProbeTimeout time.Duration
	// ResolveHost rewrites hosts placed in connection URIs.
	ResolveHost func(string) string
}

// AdapterRegistration contains info plus the factory for an engine.
type AdapterRegistration struct {
	Info    AdapterInfo
	Factory func(Settings) EngineSpec
}

var (
	catalogMu sync.RWMutex
	catalog   = make(map[string]AdapterRegistration)
)

// RegisterAdapter is called by each adapter's init() function. Registering
// the same type twice panics.
func RegisterAdapter(reg AdapterRegistration) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	if _, exists := catalog[reg.Info.Type]; exists {
		panic(&apperrors.DuplicateEngineError{Engine: reg.Info.Type})
	}
	catalog[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	catalogMu.RLock()
	defer catalogMu.RUnlock()

	result := make([]AdapterInfo, 0, len(catalog))
	for _, reg := range catalog {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// IsRegistered checks if an adapter type is compiled in.
func IsRegistered(engine string) bool {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	_, ok := catalog[engine]
	return ok
}

// Registry is an immutable name to EngineSpec lookup built once at startup.
// It is safe for concurrent use.
type Registry struct {
	specs    map[string]EngineSpec
	names    []string
	settings Settings
	logger   *zap.Logger
}

// NewRegistry instantiates every adapter in the catalog.
func NewRegistry(settings Settings, logger *zap.Logger) (*Registry, error) {
	catalogMu.RLock()
	specs := make([]EngineSpec, 0, len(catalog))
	for _, reg := range catalog {
		specs = append(specs, reg.Factory(settings))
	}
	catalogMu.RUnlock()

	return NewRegistryWith(settings, logger, specs...)
}

// NewRegistryWith builds a registry from explicit specs.
func NewRegistryWith(settings Settings, logger *zap.Logger, specs ...EngineSpec) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		specs:    make(map[string]EngineSpec, len(specs)),
		settings: settings,
		logger:   logger.Named("engines"),
	}
	for _, spec := range specs {
		name := spec.Engine()
		if _, exists := r.specs[name]; exists {
			return nil, &apperrors.DuplicateEngineError{Engine: name}
		}
		r.specs[name] = spec
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)

	r.logger.Info("Engine registry ready", zap.Strings("engines", r.names))
	return r, nil
}

// Settings returns the settings the registry was built with.
func (r *Registry) Settings() Settings {
	return r.settings
}

// Get returns the EngineSpec registered under engine.
func (r *Registry) Get(engine string) (EngineSpec, error) {
	spec, ok := r.specs[engine]
	if !ok {
		return nil, &apperrors.UnknownEngineError{Engine: engine, Registered: r.Engines()}
	}
	return spec, nil
}

// Engines returns the registered names, sorted.
func (r *Registry) Engines() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// ParametersEngines returns the names of engines configurable through
// discrete connection parameters, sorted.
func (r *Registry) ParametersEngines() []string {
	var out []string
	for _, name := range r.names {
		if _, ok := r.specs[name].(ParametersConfigurable); ok {
			out = append(out, name)
		}
	}
	return out
}

// TimeGrainExpressions returns the engine's grains after configuration
// addons and denials, in canonical order.
func (r *Registry) TimeGrainExpressions(engine string) ([]GrainExpression, error) {
	spec, err := r.Get(engine)
	if err != nil {
		return nil, err
	}
	return ResolveGrains(spec, r.settings.Grains).Ordered(), nil
}

// TimeGrains returns the labelled grains an engine offers.
func (r *Registry) TimeGrains(engine string) ([]TimeGrain, error) {
	spec, err := r.Get(engine)
	if err != nil {
		return nil, err
	}
	return TimeGrainsFor(ResolveGrains(spec, r.settings.Grains), r.settings.Grains), nil
}

// TimestampExpression renders col at grain for engine using the resolved
// grain map.
func (r *Registry) TimestampExpression(engine, col, pdf, grain string) (string, error) {
	spec, err := r.Get(engine)
	if err != nil {
		return "", err
	}
	expr, err := spec.TimestampExpression(col, pdf, grain, ResolveGrains(spec, r.settings.Grains))
	if err != nil {
		var grainErr *apperrors.UnsupportedGrainError
		if errors.As(err, &grainErr) {
			structured := dberrors.Errors{dberrors.TimeGrainNotSupported(spec.EngineName(), grainErr.Grain)}
			return "", fmt.Errorf("%w: %w", structured, err)
		}
		return "", fmt.Errorf("failed to build timestamp expression: %w", err)
	}
	return expr, nil
}

// TimestampColumn is TimestampExpression followed by an alias that the
// engine accepts.
func (r *Registry) TimestampColumn(engine, col, pdf, grain, label string) (string, error) {
	expr, err := r.TimestampExpression(engine, col, pdf, grain)
	if err != nil {
		return "", err
	}
	spec, _ := r.Get(engine)
	return expr + " AS " + spec.QuoteIdentifier(MakeLabelCompatible(spec, label)), nil
}
