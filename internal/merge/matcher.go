// Package merge implements conflict resolution for parameter collisions:
// pattern-matched override rules, the merge strategies they select, and
// structural conflict detection.
package merge

import (
	"regexp"
	"sort"
	"strings"
)

// Matcher decides whether an override rule applies to a parameter name.
// Explicit matcher variants replace the original design's regex source
// introspection: each variant knows its own specificity.
type Matcher interface {
	// Match reports whether the parameter name is covered by this matcher.
	Match(parameter string) bool
	// Specificity orders rules: higher values are consulted first.
	Specificity() int
	// Pattern returns the source pattern for diagnostics.
	Pattern() string
}

// ExactMatcher matches one parameter name verbatim. Exact matches are the
// most specific rule form.
type ExactMatcher struct {
	Name string
}

func (m ExactMatcher) Match(parameter string) bool { return parameter == m.Name }

func (m ExactMatcher) Specificity() int {
	// Anchored on both ends by construction.
	return anchoredBonus + len(m.Name)*lengthWeight
}

func (m ExactMatcher) Pattern() string { return m.Name }

// PrefixMatcher matches parameter names beginning with a fixed prefix.
type PrefixMatcher struct {
	Prefix string
}

func (m PrefixMatcher) Match(parameter string) bool {
	return strings.HasPrefix(parameter, m.Prefix)
}

func (m PrefixMatcher) Specificity() int {
	return len(m.Prefix) * lengthWeight
}

func (m PrefixMatcher) Pattern() string { return m.Prefix + "*" }

// RegexpMatcher matches parameter names against a compiled regular
// expression. Specificity follows the original heuristic: anchoring
// dominates, then pattern length, then character-class count, then
// quantifier count.
type RegexpMatcher struct {
	re     *regexp.Regexp
	source string
}

// NewRegexpMatcher compiles pattern into a matcher.
func NewRegexpMatcher(pattern string) (RegexpMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return RegexpMatcher{}, err
	}
	return RegexpMatcher{re: re, source: pattern}, nil
}

func (m RegexpMatcher) Match(parameter string) bool {
	return m.re.MatchString(parameter)
}

func (m RegexpMatcher) Specificity() int {
	score := len(m.source) * lengthWeight
	if strings.HasPrefix(m.source, "^") && strings.HasSuffix(m.source, "$") {
		score += anchoredBonus
	}
	score += strings.Count(m.source, "[") * classWeight
	for _, q := range []string{"*", "+", "?", "{"} {
		score += strings.Count(m.source, q) * quantifierWeight
	}
	return score
}

func (m RegexpMatcher) Pattern() string { return m.source }

// Specificity weights. Anchoring dominates everything; length breaks ties
// between anchored patterns; class and quantifier counts break length ties.
const (
	anchoredBonus    = 1 << 20
	lengthWeight     = 1 << 8
	classWeight      = 1 << 4
	quantifierWeight = 1
)

// Rule binds a matcher to the strategy applied when it fires.
type Rule struct {
	Matcher  Matcher
	Strategy Strategy
}

// SortRules orders rules most-specific first. Stable so same-specificity
// rules keep registration order.
func SortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Matcher.Specificity() > rules[j].Matcher.Specificity()
	})
}
