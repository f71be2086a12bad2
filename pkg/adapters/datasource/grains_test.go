package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mysqlLikeSpec() Base {
	return Base{
		Name:        "mysql",
		DisplayName: "MySQL",
		Grains: GrainExpressions{
			"":                         "{col}",
			"PT1S":                     "s({col})",
			"PT1M":                     "m({col})",
			"PT1H":                     "h({col})",
			"P1D":                      "d({col})",
			"P1W":                      "w({col})",
			"P1M":                      "mo({col})",
			"P0.25Y":                   "q({col})",
			"P1Y":                      "y({col})",
			"1969-12-29T00:00:00Z/P1W": "wm({col})",
		},
	}
}

func TestGrainExpressions_Keys(t *testing.T) {
	assert.Equal(t, []string{
		"", "PT1S", "PT1M", "PT1H", "P1D", "P1W", "P1M", "P0.25Y", "P1Y", "1969-12-29T00:00:00Z/P1W",
	}, mysqlLikeSpec().TimeGrainExpressions().Keys())
}

func TestGrainExpressions_KeysBuiltinOrder(t *testing.T) {
	grains := GrainExpressions{}
	for _, g := range builtinGrains {
		grains[g.duration] = "{col}"
	}
	want := make([]string, len(builtinGrains))
	for i, g := range builtinGrains {
		want[i] = g.duration
	}
	assert.Equal(t, want, grains.Keys())
}

func TestResolveGrains_AddonsSortedChronologically(t *testing.T) {
	settings := GrainSettings{AddonExpressions: map[string]map[string]string{
		"mysql": {"PT2H": "foo", "PT4H": "foo", "PT6H": "foo", "PT8H": "foo", "PT10H": "foo", "PT12H": "foo", "PT1S": "foo"},
	}}

	grains := ResolveGrains(mysqlLikeSpec(), settings)

	assert.Equal(t, []string{
		"", "PT1S", "PT1M", "PT1H", "PT2H", "PT4H", "PT6H", "PT8H", "PT10H", "PT12H",
		"P1D", "P1W", "P1M", "P0.25Y", "P1Y", "1969-12-29T00:00:00Z/P1W",
	}, grains.Keys())
	assert.Equal(t, "foo", grains["PT1S"], "addon replaces engine expression")
}

func TestResolveGrains_UnknownTokensLast(t *testing.T) {
	settings := GrainSettings{AddonExpressions: map[string]map[string]string{
		"mysql": {"PT2H": "foo", "weird": "foo", "PT12H": "foo"},
	}}
	keys := ResolveGrains(mysqlLikeSpec(), settings).Keys()
	assert.Equal(t, "weird", keys[len(keys)-1])
}

func TestResolveGrains_Denylist(t *testing.T) {
	grains := ResolveGrains(mysqlLikeSpec(), GrainSettings{Denylist: []string{"PT1M"}})
	assert.NotContains(t, grains, "PT1M")
	assert.Contains(t, grains, "PT1S")
}

func TestResolveGrains_DenylistGlob(t *testing.T) {
	grains := ResolveGrains(mysqlLikeSpec(), GrainSettings{Denylist: []string{"PT1*"}})
	assert.NotContains(t, grains, "PT1S")
	assert.NotContains(t, grains, "PT1M")
	assert.NotContains(t, grains, "PT1H")
	assert.Contains(t, grains, "P1D")
	assert.Contains(t, grains, "")
}

func TestResolveGrains_DenylistAppliedAfterAddons(t *testing.T) {
	settings := GrainSettings{
		Denylist:         []string{"PT2H"},
		AddonExpressions: map[string]map[string]string{"mysql": {"PT2H": "foo"}},
	}
	assert.NotContains(t, ResolveGrains(mysqlLikeSpec(), settings), "PT2H")
}

func TestResolveGrains_OtherEngineAddonsIgnored(t *testing.T) {
	settings := GrainSettings{AddonExpressions: map[string]map[string]string{"sqlite": {"PTXM": "x"}}}
	assert.NotContains(t, ResolveGrains(mysqlLikeSpec(), settings), "PTXM")
}

func TestResolveGrains_DoesNotMutateEngine(t *testing.T) {
	spec := mysqlLikeSpec()
	_ = ResolveGrains(spec, GrainSettings{Denylist: []string{"P1D"}})
	assert.Contains(t, spec.Grains, "P1D")
}

func TestTimeGrainsFor_AddonLabel(t *testing.T) {
	settings := GrainSettings{
		Addons:           map[string]string{"PTXM": "x seconds"},
		AddonExpressions: map[string]map[string]string{"mysql": {"PTXM": "ABC({col})"}},
	}
	grains := TimeGrainsFor(ResolveGrains(mysqlLikeSpec(), settings), settings)
	require.NotEmpty(t, grains)

	last := grains[len(grains)-1]
	assert.Equal(t, "PTXM", last.Duration)
	assert.Equal(t, "x seconds", last.Label)
	assert.Equal(t, "ABC({col})", last.Function)

	assert.Equal(t, "", grains[0].Duration)
	assert.Equal(t, "Original value", grains[0].Label)
}

func TestTimeGrainsFor_UnlabelledDropped(t *testing.T) {
	settings := GrainSettings{AddonExpressions: map[string]map[string]string{"mysql": {"weird": "foo"}}}
	for _, g := range TimeGrainsFor(ResolveGrains(mysqlLikeSpec(), settings), settings) {
		assert.NotEqual(t, "weird", g.Duration)
	}
}

func TestCopyGrains_Independent(t *testing.T) {
	src := GrainExpressions{"P1D": "d({col})"}
	dst := CopyGrains(src)
	dst["P1D"] = "changed"
	assert.Equal(t, "d({col})", src["P1D"])
}
