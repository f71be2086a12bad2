package druid

import (
	"time"

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
	sqlparse "github.com/ekaya-inc/ekaya-dialects/pkg/sql"
)

// Engine is the registry key.
const Engine = "druid"

// TimeColumn is the primary timestamp column of every Druid datasource.
const TimeColumn = "__time"

var grains = datasource.GrainExpressions{
	"":       "{col}",
	"PT1S":   "FLOOR({col} TO SECOND)",
	"PT1M":   "FLOOR({col} TO MINUTE)",
	"PT5M":   "TIME_FLOOR({col}, 'PT5M')",
	"PT10M":  "TIME_FLOOR({col}, 'PT10M')",
	"PT15M":  "TIME_FLOOR({col}, 'PT15M')",
	"PT0.5H": "TIME_FLOOR({col}, 'PT30M')",
	"PT1H":   "FLOOR({col} TO HOUR)",
	"P1D":    "FLOOR({col} TO DAY)",
	"P1W":    "FLOOR({col} TO WEEK)",
	"P1M":    "FLOOR({col} TO MONTH)",
	"P0.25Y": "FLOOR({col} TO QUARTER)",
	"P1Y":    "FLOOR({col} TO YEAR)",
}

// Spec is the Apache Druid engine.
type Spec struct {
	datasource.Base
	certDir string
}

// New returns the Druid engine. Server certificates passed to ExtraParams
// are written under settings.CertDir.
func New(settings datasource.Settings) *Spec {
	caps := datasource.DefaultFeatures()
	caps.AllowsJoins = false
	return &Spec{
		Base: datasource.Base{
			Name:        Engine,
			DisplayName: "Apache Druid",
			SQLDialect:  sqlparse.DialectDruid,
			Caps:        &caps,
			Grains:      datasource.CopyGrains(grains),
			Epoch:       "MILLIS_TO_TIMESTAMP({col} * 1000)",
			EpochMs:     "MILLIS_TO_TIMESTAMP({col})",
		},
		certDir: settings.CertDir,
	}
}

// IsTemporalColumn reports whether name is Druid's implicit time column.
func IsTemporalColumn(name string) bool {
	return name == TimeColumn
}

// TimestampExpression ignores pdf for __time, which Druid always stores as a
// timestamp whatever the source column format was.
func (s *Spec) TimestampExpression(col, pdf, grain string, grains datasource.GrainExpressions) (string, error) {
	if IsTemporalColumn(col) {
		pdf = ""
	}
	return s.Base.TimestampExpression(col, pdf, grain, grains)
}

func (s *Spec) ConvertTemporal(targetType string, t time.Time) (string, bool) {
	switch datasource.NormalizeTemporalType(targetType) {
	case datasource.TemporalDate:
		return "CAST(TIME_PARSE('" + datasource.ISODate(t) + "') AS DATE)", true
	case datasource.TemporalDatetime, datasource.TemporalTimestamp:
		return "TIME_PARSE('" + datasource.ISOSeconds(t, "T") + "')", true
	}
	return "", false
}

// ExtraParams places the path of the server certificate into
// engine_params.connect_args and switches the broker scheme to https.
func (s *Spec) ExtraParams(extraJSON, serverCert string) (map[string]any, error) {
	extra, err := datasource.DecodeExtra(extraJSON)
	if err != nil {
		return nil, err
	}
	if serverCert == "" {
		return extra, nil
	}

	path, err := datasource.CreateSSLCertFile(s.certDir, serverCert)
	if err != nil {
		return nil, err
	}
	engineParams, _ := extra["engine_params"].(map[string]any)
	if engineParams == nil {
		engineParams = map[string]any{}
	}
	connectArgs, _ := engineParams["connect_args"].(map[string]any)
	if connectArgs == nil {
		connectArgs = map[string]any{}
	}
	connectArgs["scheme"] = "https"
	connectArgs["ssl_verify_cert"] = path
	engineParams["connect_args"] = connectArgs
	extra["engine_params"] = engineParams
	return extra, nil
}

var _ datasource.EngineSpec = (*Spec)(nil)
