package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

func chainWith(resolved map[string]rtbtypes.ConfigValue) *rtbtypes.InheritanceChain {
	if resolved == nil {
		resolved = map[string]rtbtypes.ConfigValue{}
	}
	return &rtbtypes.InheritanceChain{TemplateName: "t", Resolved: resolved}
}

func TestProcessStaticPassThrough(t *testing.T) {
	p := New()
	chain := chainWith(map[string]rtbtypes.ConfigValue{
		"txPower": rtbtypes.Int(40),
	})
	out, warnings, err := p.Process(context.Background(), chain, rtbtypes.ResolutionContext{})
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.True(t, out["txPower"].Equal(rtbtypes.Int(40)))
	// The output must not alias the chain's map.
	chain.Resolved["txPower"] = rtbtypes.Int(0)
	require.False(t, out["txPower"].Equal(rtbtypes.Int(0)))
}

func TestProcessConditionals(t *testing.T) {
	p := New()
	els := rtbtypes.Int(10)
	chain := chainWith(nil)
	chain.Conditions = map[string]rtbtypes.Conditional{
		"thenBranch": {If: "env == 'prod'", Then: rtbtypes.Int(1)},
		"elseBranch": {If: "env == 'lab'", Then: rtbtypes.Int(2), Else: &els},
		"omitted":    {If: "env == 'lab'", Then: rtbtypes.Int(3)},
	}
	rctx := rtbtypes.ResolutionContext{Params: map[string]rtbtypes.ConfigValue{
		"env": rtbtypes.String("prod"),
	}}

	out, warnings, err := p.Process(context.Background(), chain, rctx)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.True(t, out["thenBranch"].Equal(rtbtypes.Int(1)))
	require.True(t, out["elseBranch"].Equal(rtbtypes.Int(10)))
	_, present := out["omitted"]
	require.False(t, present, "false condition without else must omit the field")
}

func TestProcessConditionOverwritesStatic(t *testing.T) {
	p := New()
	chain := chainWith(map[string]rtbtypes.ConfigValue{
		"mode": rtbtypes.String("normal"),
	})
	chain.Conditions = map[string]rtbtypes.Conditional{
		"mode": {If: "load > 80", Then: rtbtypes.String("congested")},
	}
	rctx := rtbtypes.ResolutionContext{Params: map[string]rtbtypes.ConfigValue{
		"load": rtbtypes.Number(95),
	}}
	out, _, err := p.Process(context.Background(), chain, rctx)
	require.NoError(t, err)
	require.True(t, out["mode"].Equal(rtbtypes.String("congested")))
}

func TestProcessBadConditionWarns(t *testing.T) {
	p := New()
	chain := chainWith(nil)
	chain.Conditions = map[string]rtbtypes.Conditional{
		"broken": {If: "", Then: rtbtypes.Int(1)},
	}
	out, warnings, err := p.Process(context.Background(), chain, rtbtypes.ResolutionContext{})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	_, present := out["broken"]
	require.False(t, present)
}

func TestProcessBuiltinEvaluation(t *testing.T) {
	p := New()
	chain := chainWith(map[string]rtbtypes.ConfigValue{
		"qci": rtbtypes.Int(1),
	})
	chain.Evaluations = map[string]rtbtypes.Evaluation{
		"schedulingPriority": {Function: "qci_to_priority", Args: []string{"qci"}},
		"margin":             {Function: "handover_margin", Args: []string{"2", "1.5"}},
	}

	out, warnings, err := p.Process(context.Background(), chain, rtbtypes.ResolutionContext{})
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.True(t, out["schedulingPriority"].Equal(rtbtypes.Int(2)))
	require.True(t, out["margin"].Equal(rtbtypes.Number(3.5)))
}

func TestProcessUnknownFunctionWarns(t *testing.T) {
	p := New()
	chain := chainWith(nil)
	chain.Evaluations = map[string]rtbtypes.Evaluation{
		"x": {Function: "does_not_exist"},
	}
	out, warnings, err := p.Process(context.Background(), chain, rtbtypes.ResolutionContext{})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	_, present := out["x"]
	require.False(t, present)
}

func TestProcessCustomFunction(t *testing.T) {
	p := New(WithFunctionTimeout(10 * time.Second))
	chain := chainWith(nil)
	chain.Functions = []rtbtypes.CustomFunction{{
		Name: "calculate_total",
		Args: []string{"base", "delta"},
		Body: []string{"return base + delta"},
	}}
	chain.Evaluations = map[string]rtbtypes.Evaluation{
		"total": {Function: "calculate_total", Args: []string{"10.5", "2"}},
	}

	out, warnings, err := p.Process(context.Background(), chain, rtbtypes.ResolutionContext{})
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.True(t, out["total"].Equal(rtbtypes.Number(12.5)), "got %v", out["total"])
}

func TestProcessPrunesEmptyValues(t *testing.T) {
	p := New()
	chain := chainWith(map[string]rtbtypes.ConfigValue{
		"keep":        rtbtypes.Int(1),
		"nullValue":   rtbtypes.Null(),
		"emptyArray":  rtbtypes.Array(),
		"emptyObject": rtbtypes.Object(map[string]rtbtypes.ConfigValue{}),
	})
	out, _, err := p.Process(context.Background(), chain, rtbtypes.ResolutionContext{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Contains(t, out, "keep")
}

func TestProcessMetrics(t *testing.T) {
	p := New()
	chain := chainWith(nil)
	chain.Conditions = map[string]rtbtypes.Conditional{
		"a": {If: "true", Then: rtbtypes.Int(1)},
	}
	chain.Evaluations = map[string]rtbtypes.Evaluation{
		"b": {Function: "handover_margin", Args: []string{"1", "1"}},
	}
	_, _, err := p.Process(context.Background(), chain, rtbtypes.ResolutionContext{})
	require.NoError(t, err)
	_, _, err = p.Process(context.Background(), chain, rtbtypes.ResolutionContext{})
	require.NoError(t, err)

	m := p.Metrics()
	require.Equal(t, uint64(2), m.TemplatesProcessed)
	require.Equal(t, uint64(2), m.ConditionsEvaluated)
	require.Equal(t, uint64(2), m.EvaluationsRun)
	require.Equal(t, uint64(2), m.FunctionCalls)
}

func TestResolveArg(t *testing.T) {
	lookup := testLookup(map[string]rtbtypes.ConfigValue{
		"known": rtbtypes.Int(7),
	})
	tests := []struct {
		raw  string
		want rtbtypes.ConfigValue
	}{
		{"known", rtbtypes.Int(7)},
		{"42", rtbtypes.Number(42)},
		{"'literal'", rtbtypes.String("literal")},
		{"true", rtbtypes.Bool(true)},
		{"plain", rtbtypes.String("plain")},
	}
	for _, tt := range tests {
		if got := resolveArg(tt.raw, lookup); !got.Equal(tt.want) {
			t.Errorf("resolveArg(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestBuiltinsListed(t *testing.T) {
	p := New()
	names := p.Builtins()
	require.Contains(t, names, "qci_to_priority")
	require.Contains(t, names, "calculate_power_control")
	require.True(t, sortedStrings(names), "Builtins must return sorted names")
}

func sortedStrings(ss []string) bool {
	for i := 1; i < len(ss); i++ {
		if ss[i-1] > ss[i] {
			return false
		}
	}
	return true
}
