package datasource

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/gobwas/glob"
)

// GrainExpressions maps a duration token to an SQL template in which
// {col} stands for the column expression. The empty token means no grain.
type GrainExpressions map[string]string

// TimeGrain is a resolved grain ready for display.
type TimeGrain struct {
	Duration string `json:"duration"`
	Label    string `json:"label"`
	Function string `json:"function"`
}

// GrainExpression is one entry of an ordered grain listing.
type GrainExpression struct {
	Duration   string `json:"duration"`
	Expression string `json:"expression"`
}

// GrainSettings carries the process-wide grain configuration.
type GrainSettings struct {
	// Denylist tokens are removed after every other source is merged.
	// Entries may be glob patterns such as "PT*M".
	Denylist []string
	// Addons labels extra tokens, e.g. "PT2H": "2 hours".
	Addons map[string]string
	// AddonExpressions adds or replaces templates per engine.
	AddonExpressions map[string]map[string]string
}

type builtinGrain struct {
	duration string
	label    string
}

var builtinGrains = []builtinGrain{
	{"", "Original value"},
	{"PT1S", "Second"},
	{"PT1M", "Minute"},
	{"PT5M", "5 minute"},
	{"PT10M", "10 minute"},
	{"PT15M", "15 minute"},
	{"PT0.5H", "Half hour"},
	{"PT1H", "Hour"},
	{"P1D", "Day"},
	{"P1W", "Week"},
	{"P1M", "Month"},
	{"P0.25Y", "Quarter"},
	{"P1Y", "Year"},
	{"1969-12-28T00:00:00Z/P1W", "Week starting Sunday"},
	{"1969-12-29T00:00:00Z/P1W", "Week starting Monday"},
	{"P1W/1970-01-03T00:00:00Z", "Week ending Saturday"},
	{"P1W/1970-01-04T00:00:00Z", "Week ending Sunday"},
}

// BuiltinGrainLabels returns the label of every builtin token.
func BuiltinGrainLabels() map[string]string {
	out := make(map[string]string, len(builtinGrains))
	for _, g := range builtinGrains {
		out[g.duration] = g.label
	}
	return out
}

func builtinIndex(token string) int {
	for i, g := range builtinGrains {
		if g.duration == token {
			return i
		}
	}
	return -1
}

// CopyGrains returns an independent copy, used by engines that start from
// another engine's grain set.
func CopyGrains(src GrainExpressions) GrainExpressions {
	out := make(GrainExpressions, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

var durationPattern = regexp.MustCompile(`^(P|PT)([0-9]+(?:\.[0-9]+)?)([SMHDWY])$`)

var unitSeconds = map[string]float64{
	"PTS": 1,
	"PTM": 60,
	"PTH": 3600,
	"PD":  86400,
	"PW":  7 * 86400,
	"PM":  30 * 86400,
	"PY":  365 * 86400,
}

// grainRank orders tokens: no grain first, then plain durations by length,
// then anchored forms in builtin order, then anything unrecognised.
func grainRank(token string) (class int, weight float64) {
	if token == "" {
		return 0, 0
	}
	if m := durationPattern.FindStringSubmatch(token); m != nil {
		if unit, ok := unitSeconds[m[1]+m[3]]; ok {
			n, err := strconv.ParseFloat(m[2], 64)
			if err == nil {
				return 1, n * unit
			}
		}
	}
	if idx := builtinIndex(token); idx >= 0 {
		return 2, float64(idx)
	}
	return 3, 0
}

// Keys returns the tokens in canonical order.
func (g GrainExpressions) Keys() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		ci, wi := grainRank(keys[i])
		cj, wj := grainRank(keys[j])
		if ci != cj {
			return ci < cj
		}
		if wi != wj {
			return wi < wj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Ordered returns the entries in canonical order.
func (g GrainExpressions) Ordered() []GrainExpression {
	keys := g.Keys()
	out := make([]GrainExpression, len(keys))
	for i, k := range keys {
		out[i] = GrainExpression{Duration: k, Expression: g[k]}
	}
	return out
}

// ResolveGrains merges the engine's grains with configuration addons for
// that engine, then removes denylisted tokens.
func ResolveGrains(spec EngineSpec, settings GrainSettings) GrainExpressions {
	out := CopyGrains(spec.TimeGrainExpressions())
	for token, expr := range settings.AddonExpressions[spec.Engine()] {
		out[token] = expr
	}
	for _, pattern := range settings.Denylist {
		delete(out, pattern)
		g, err := glob.Compile(pattern)
		if err != nil {
			continue
		}
		for token := range out {
			if g.Match(token) {
				delete(out, token)
			}
		}
	}
	return out
}

// TimeGrainsFor labels resolved grains. Tokens with no builtin or addon
// label are left out.
func TimeGrainsFor(grains GrainExpressions, settings GrainSettings) []TimeGrain {
	labels := BuiltinGrainLabels()
	for token, label := range settings.Addons {
		labels[token] = label
	}
	var out []TimeGrain
	for _, entry := range grains.Ordered() {
		label, ok := labels[entry.Duration]
		if !ok {
			continue
		}
		out = append(out, TimeGrain{Duration: entry.Duration, Label: label, Function: entry.Expression})
	}
	return out
}
