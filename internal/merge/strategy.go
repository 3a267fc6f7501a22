package merge

import (
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

// Strategy names how conflicting values for one parameter are combined.
type Strategy string

const (
	HighestPriority Strategy = "highest_priority"
	LowestPriority  Strategy = "lowest_priority"
	MergeAll        Strategy = "merge_all"
	Concatenate     Strategy = "concatenate"
	Average         Strategy = "average"
	Sum             Strategy = "sum"
	Custom          Strategy = "custom"
)

// Value is one contribution to a contested parameter: the value itself
// plus the priority level and template it came from. Lower Priority wins.
type Value struct {
	Priority int
	Source   string
	V        rtbtypes.ConfigValue
}

// CustomResolver combines contributions under the Custom strategy.
type CustomResolver func(parameter string, values []Value) rtbtypes.ConfigValue

// Engine resolves parameter overrides through an ordered rule list.
// Zero value is usable: with no rules every parameter falls through to
// highest-priority-wins.
type Engine struct {
	rules   []Rule
	customs map[string]CustomResolver
}

// NewEngine returns an empty rule engine.
func NewEngine() *Engine {
	return &Engine{customs: make(map[string]CustomResolver)}
}

// AddRule registers an override rule and re-sorts by specificity.
func (e *Engine) AddRule(m Matcher, s Strategy) {
	e.rules = append(e.rules, Rule{Matcher: m, Strategy: s})
	SortRules(e.rules)
}

// RegisterCustom registers a resolver consulted by the Custom strategy for
// the exact parameter name.
func (e *Engine) RegisterCustom(parameter string, fn CustomResolver) {
	e.customs[parameter] = fn
}

// StrategyFor returns the strategy selected for a parameter: the most
// specific matching rule, or HighestPriority when nothing matches.
func (e *Engine) StrategyFor(parameter string) Strategy {
	for _, r := range e.rules {
		if r.Matcher.Match(parameter) {
			return r.Strategy
		}
	}
	return HighestPriority
}

// Resolve combines the contributions for parameter under the selected
// strategy and returns the winning value plus the strategy used.
func (e *Engine) Resolve(parameter string, values []Value) (rtbtypes.ConfigValue, Strategy) {
	strategy := e.StrategyFor(parameter)
	return e.Apply(strategy, parameter, values), strategy
}

// Apply runs one strategy over the contributions. Values must be
// non-empty; callers guarantee that because a conflict needs two or more
// contributions.
func (e *Engine) Apply(strategy Strategy, parameter string, values []Value) rtbtypes.ConfigValue {
	if len(values) == 0 {
		return rtbtypes.Null()
	}
	switch strategy {
	case HighestPriority:
		return pickByPriority(values, true).V
	case LowestPriority:
		return pickByPriority(values, false).V
	case MergeAll:
		return mergeAll(values)
	case Concatenate:
		return concatenate(values)
	case Average:
		return numericFold(values, true)
	case Sum:
		return numericFold(values, false)
	case Custom:
		if fn, ok := e.customs[parameter]; ok {
			return fn(parameter, values)
		}
		// No resolver registered: fall back to the last contribution.
		return values[len(values)-1].V
	}
	return pickByPriority(values, true).V
}

// pickByPriority selects the numerically smallest (highest=true) or
// largest priority contribution. The first of equal priorities wins.
func pickByPriority(values []Value, highest bool) Value {
	best := values[0]
	for _, v := range values[1:] {
		if highest && v.Priority < best.Priority {
			best = v
		} else if !highest && v.Priority > best.Priority {
			best = v
		}
	}
	return best
}

// mergeAll is type-aware: identical values collapse, arrays flatten and
// dedupe, objects shallow-merge left-to-right, strings join with " | ",
// anything mixed falls back to the highest-priority contribution.
func mergeAll(values []Value) rtbtypes.ConfigValue {
	allEqual := true
	for _, v := range values[1:] {
		if !cmp.Equal(v.V, values[0].V) {
			allEqual = false
			break
		}
	}
	if allEqual {
		return values[0].V
	}

	if allKind(values, rtbtypes.KindArray) {
		return flattenDedupe(values)
	}
	if allKind(values, rtbtypes.KindObject) {
		merged := map[string]rtbtypes.ConfigValue{}
		for _, v := range values {
			for k, item := range v.V.ObjectVal() {
				merged[k] = item
			}
		}
		return rtbtypes.Object(merged)
	}
	if allKind(values, rtbtypes.KindString) {
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = v.V.StringVal()
		}
		return rtbtypes.String(strings.Join(parts, " | "))
	}
	return pickByPriority(values, true).V
}

// concatenate flattens arrays, joins strings with no separator, and
// otherwise returns the raw list of contributions.
func concatenate(values []Value) rtbtypes.ConfigValue {
	if allKind(values, rtbtypes.KindArray) {
		var out []rtbtypes.ConfigValue
		for _, v := range values {
			out = append(out, v.V.ArrayVal()...)
		}
		return rtbtypes.Array(out...)
	}
	if allKind(values, rtbtypes.KindString) {
		var b strings.Builder
		for _, v := range values {
			b.WriteString(v.V.StringVal())
		}
		return rtbtypes.String(b.String())
	}
	raw := make([]rtbtypes.ConfigValue, len(values))
	for i, v := range values {
		raw[i] = v.V
	}
	return rtbtypes.Array(raw...)
}

// numericFold averages or sums the numeric contributions. Non-numeric
// contributions are skipped; with none left the last contribution wins
// (contributions arrive priority-ordered).
func numericFold(values []Value, average bool) rtbtypes.ConfigValue {
	var sum float64
	count := 0
	for _, v := range values {
		if v.V.Kind() == rtbtypes.KindNumber {
			sum += v.V.NumberVal()
			count++
		}
	}
	if count == 0 {
		return values[len(values)-1].V
	}
	if average {
		return rtbtypes.Number(sum / float64(count))
	}
	return rtbtypes.Number(sum)
}

func allKind(values []Value, k rtbtypes.Kind) bool {
	for _, v := range values {
		if v.V.Kind() != k {
			return false
		}
	}
	return true
}

// flattenDedupe concatenates array contributions and removes duplicates by
// canonical-form equality, preserving first-seen order.
func flattenDedupe(values []Value) rtbtypes.ConfigValue {
	seen := make(map[string]struct{})
	var out []rtbtypes.ConfigValue
	for _, v := range values {
		for _, item := range v.V.ArrayVal() {
			key := item.Canonical()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, item)
		}
	}
	return rtbtypes.Array(out...)
}
