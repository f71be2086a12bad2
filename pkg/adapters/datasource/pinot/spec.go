package pinot

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dialects/pkg/apperrors"
)

// Engine is the registry key.
const Engine = "pinot"

// Grain values are DATETIMECONVERT granularities for sub-week grains and
// DATETRUNC units otherwise.
var grains = datasource.GrainExpressions{
	"PT1S":   "1:SECONDS",
	"PT1M":   "1:MINUTES",
	"PT1H":   "1:HOURS",
	"P1D":    "1:DAYS",
	"P1W":    "week",
	"P1M":    "month",
	"P0.25Y": "quarter",
	"P1Y":    "year",
}

var useDateTrunc = map[string]bool{
	"P1W":    true,
	"P1M":    true,
	"P0.25Y": true,
	"P1Y":    true,
}

// strftime directives and their java.text.SimpleDateFormat equivalents.
var javaPatterns = strings.NewReplacer(
	"%Y", "yyyy",
	"%m", "MM",
	"%d", "dd",
	"%H", "HH",
	"%M", "mm",
	"%S", "ss",
)

// Spec is the Apache Pinot engine.
type Spec struct {
	datasource.Base
}

// New returns the Pinot engine.
func New(datasource.Settings) *Spec {
	caps := datasource.DefaultFeatures()
	caps.AllowsJoins = false
	caps.AllowsSubqueries = false
	return &Spec{
		Base: datasource.Base{
			Name:        Engine,
			DisplayName: "Apache Pinot",
			Caps:        &caps,
			Grains:      datasource.CopyGrains(grains),
		},
	}
}

// TimestampExpression renders Pinot's time conversion functions. Every
// column needs a format: epoch_s, epoch_ms or a strftime pattern.
func (s *Spec) TimestampExpression(col, pdf, grain string, grains datasource.GrainExpressions) (string, error) {
	if pdf == "" {
		return "", fmt.Errorf("empty date format for %q", col)
	}
	if grains == nil {
		grains = s.TimeGrainExpressions()
	}

	var unit, format, javaFormat string
	isEpoch := pdf == "epoch_s" || pdf == "epoch_ms"
	if isEpoch {
		unit = "SECONDS"
		if pdf == "epoch_ms" {
			unit = "MILLISECONDS"
		}
		format = "1:" + unit + ":EPOCH"
	} else {
		javaFormat = javaPatterns.Replace(pdf)
		format = "1:SECONDS:SIMPLE_DATE_FORMAT:" + javaFormat
	}

	if grain == "" {
		return col, nil
	}
	granularity, ok := grains[grain]
	if !ok || granularity == "" {
		return "", &apperrors.UnsupportedGrainError{Engine: Engine, Grain: grain}
	}

	if !useDateTrunc[grain] {
		return fmt.Sprintf("DATETIMECONVERT(%s, '%s', '%s', '%s')", col, format, format, granularity), nil
	}
	if isEpoch {
		return fmt.Sprintf("DATETRUNC('%s', %s, '%s')", granularity, col, unit), nil
	}
	return fmt.Sprintf("ToDateTime(DATETRUNC('%s', FromDateTime(%s, '%s'), 'MILLISECONDS'), '%s')",
		granularity, col, javaFormat, javaFormat), nil
}

var _ datasource.EngineSpec = (*Spec)(nil)
