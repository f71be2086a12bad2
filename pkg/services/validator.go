package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dialects/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dialects/pkg/dberrors"
	"github.com/ekaya-inc/ekaya-dialects/pkg/logging"
	"github.com/ekaya-inc/ekaya-dialects/pkg/metrics"
)

// ValidationStage names the step at which validation stopped.
type ValidationStage string

const (
	StageEngine     ValidationStage = "engine"
	StageParameters ValidationStage = "parameters"
	StageConnection ValidationStage = "connection"
)

// ValidationError carries the structured errors of a failed validation.
type ValidationError struct {
	Stage         ValidationStage
	CorrelationID string
	Errors        dberrors.Errors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("database validation failed at %s stage: %s", e.Stage, e.Errors.Error())
}

func (e *ValidationError) Unwrap() error {
	return e.Errors
}

// ValidateRequest holds the discrete connection fields a user submitted.
type ValidateRequest struct {
	Parameters datasource.ConnectionParameters `json:"parameters"`
	// Extra is the connection's extra JSON.
	Extra      string `json:"extra,omitempty"`
	ServerCert string `json:"server_cert,omitempty"`
}

// connectFunc opens a connection to uri and pings it.
type connectFunc func(ctx context.Context, spec datasource.EngineSpec, uri string) error

// DatabaseValidator checks connection parameters before a database is saved:
// the engine must exist and accept parameters, the fields must pass the
// engine's checks and a ping must succeed.
type DatabaseValidator struct {
	registry *datasource.Registry
	prober   datasource.Prober
	metrics  *metrics.Collector
	logger   *zap.Logger
	connect  connectFunc
}

// NewDatabaseValidator creates a validator. A nil prober uses the network
// with the registry's probe timeout.
func NewDatabaseValidator(
	registry *datasource.Registry,
	prober datasource.Prober,
	collector *metrics.Collector,
	logger *zap.Logger,
) *DatabaseValidator {
	if prober == nil {
		prober = datasource.NewNetProber(registry.Settings().ProbeTimeout)
	}
	return &DatabaseValidator{
		registry: registry,
		prober:   prober,
		metrics:  collector,
		logger:   logging.OrNop(logger).Named("validator"),
		connect:  ping,
	}
}

// Validate returns nil when the parameters produce a working connection.
// Failures are returned as *ValidationError.
func (v *DatabaseValidator) Validate(ctx context.Context, engine string, req ValidateRequest) error {
	start := time.Now()
	correlationID := uuid.NewString()
	logger := v.logger.With(
		zap.String("correlation_id", correlationID),
		zap.String("engine", engine),
	)

	outcome, err := v.validate(ctx, engine, req, correlationID, logger)
	v.metrics.Validation(engine, outcome, time.Since(start))

	if err != nil {
		logger.Info("Database validation failed",
			zap.String("outcome", outcome),
			zap.String("error", logging.SanitizeText(err.Error())),
			zap.Duration("elapsed", time.Since(start)))
		return err
	}
	logger.Info("Database validation succeeded", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (v *DatabaseValidator) validate(
	ctx context.Context,
	engine string,
	req ValidateRequest,
	correlationID string,
	logger *zap.Logger,
) (string, error) {
	fail := func(stage ValidationStage, errs dberrors.Errors) *ValidationError {
		return &ValidationError{Stage: stage, CorrelationID: correlationID, Errors: errs}
	}

	spec, err := v.registry.Get(engine)
	if err != nil {
		var unknown *apperrors.UnknownEngineError
		if !errors.As(err, &unknown) {
			return metrics.OutcomeUnknownEngine, err
		}
		return metrics.OutcomeUnknownEngine, fail(StageEngine, dberrors.Errors{{
			Message: fmt.Sprintf("Engine %q is not a valid engine.", engine),
			Kind:    dberrors.KindGenericDBEngine,
			Level:   dberrors.LevelError,
			Extra: map[string][]string{
				"allowed":  v.registry.Engines(),
				"provided": {engine},
			},
		}})
	}

	configurable, ok := spec.(datasource.ParametersConfigurable)
	if !ok {
		return metrics.OutcomeNotConfigurable, fail(StageEngine, dberrors.Errors{{
			Message: fmt.Sprintf("Engine %q cannot be configured through parameters.", engine),
			Kind:    dberrors.KindGenericDBEngine,
			Level:   dberrors.LevelError,
			Extra: map[string][]string{
				"allowed":  v.registry.ParametersEngines(),
				"provided": {engine},
			},
		}})
	}

	if errs := configurable.ValidateParameters(ctx, req.Parameters, v.prober); len(errs) > 0 {
		logger.Debug("Parameter checks failed", zap.Strings("kinds", kindStrings(errs)))
		return metrics.OutcomeInvalid, fail(StageParameters, errs)
	}

	if _, err := spec.ExtraParams(req.Extra, req.ServerCert); err != nil {
		return metrics.OutcomeInvalid, fail(StageParameters, dberrors.Errors{{
			Message: "The connection extra parameters are invalid.",
			Kind:    dberrors.KindConnectionInvalidParameter,
			Level:   dberrors.LevelError,
			Extra:   map[string][]string{"invalid": {"extra"}},
		}})
	}

	uri, err := configurable.BuildConnectionURI(req.Parameters)
	if err != nil {
		return metrics.OutcomeInvalid, fmt.Errorf("failed to build connection uri: %w", err)
	}
	logger.Debug("Connecting", zap.String("uri", logging.SanitizeConnectionString(uri)))

	if timeout := v.registry.Settings().ProbeTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := v.connect(ctx, spec, uri); err != nil {
		if errors.Is(err, apperrors.ErrIntrospectionUnsupported) {
			logger.Debug("No driver compiled in, skipping ping")
			return metrics.OutcomeOK, nil
		}
		errs := spec.ExtractErrors(err, connectionContext(req.Parameters))
		v.metrics.ErrorsNormalized(spec.Engine(), errs)
		return metrics.OutcomeConnectFailed, fail(StageConnection, errs)
	}
	return metrics.OutcomeOK, nil
}

// ping opens a pool for uri, pings it once and closes it.
func ping(ctx context.Context, spec datasource.EngineSpec, uri string) error {
	intro, ok := spec.(datasource.Introspectable)
	if !ok {
		return fmt.Errorf("%s: %w", spec.Engine(), apperrors.ErrIntrospectionUnsupported)
	}
	db, err := datasource.Open(intro, uri)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.PingContext(ctx)
}

// connectionContext is the interpolation context for driver error messages.
func connectionContext(params datasource.ConnectionParameters) map[string]string {
	ctx := map[string]string{
		"hostname": params.Host,
		"username": params.Username,
		"password": params.Password,
		"database": params.Database,
	}
	if params.Port != 0 {
		ctx["port"] = strconv.Itoa(params.Port)
	}
	return ctx
}

func kindStrings(errs dberrors.Errors) []string {
	kinds := errs.Kinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
