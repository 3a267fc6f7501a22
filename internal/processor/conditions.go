package processor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

// lookupFunc resolves a variable name to a value during condition
// evaluation. Processing consults context params first, then the resolved
// configuration.
type lookupFunc func(name string) (rtbtypes.ConfigValue, bool)

// evalCondition evaluates a small boolean expression of the form
//
//	term (and|or term)*
//	term := var op literal | var
//
// with ops ==, !=, >=, <=, >, <, contains. "and" binds tighter than "or".
// Quoted strings may contain the keywords; the splitter is quote-aware.
func evalCondition(expr string, lookup lookupFunc) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false, fmt.Errorf("empty condition")
	}
	for _, clause := range splitKeyword(expr, "or") {
		all := true
		for _, term := range splitKeyword(clause, "and") {
			ok, err := evalTerm(term, lookup)
			if err != nil {
				return false, err
			}
			if !ok {
				all = false
				break
			}
		}
		if all {
			return true, nil
		}
	}
	return false, nil
}

var comparators = []string{"==", "!=", ">=", "<=", ">", "<", " contains "}

func evalTerm(term string, lookup lookupFunc) (bool, error) {
	term = strings.TrimSpace(term)
	for _, op := range comparators {
		idx := indexOutsideQuotes(term, op)
		if idx < 0 {
			continue
		}
		lhs := strings.TrimSpace(term[:idx])
		rhs := strings.TrimSpace(term[idx+len(op):])
		left, err := operand(lhs, lookup)
		if err != nil {
			return false, err
		}
		right, err := operand(rhs, lookup)
		if err != nil {
			return false, err
		}
		return compare(strings.TrimSpace(op), left, right)
	}

	// Bare variable: truthiness test.
	if neg := strings.HasPrefix(term, "!"); neg {
		v, err := operand(strings.TrimSpace(term[1:]), lookup)
		if err != nil {
			return false, err
		}
		return !truthy(v), nil
	}
	v, err := operand(term, lookup)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

// operand parses a literal (quoted string, number, true/false/null) or
// falls back to a variable lookup. An unknown variable resolves to null so
// conditions over optional params stay evaluable.
func operand(tok string, lookup lookupFunc) (rtbtypes.ConfigValue, error) {
	if tok == "" {
		return rtbtypes.Null(), fmt.Errorf("empty operand")
	}
	if len(tok) >= 2 {
		if (tok[0] == '\'' && tok[len(tok)-1] == '\'') || (tok[0] == '"' && tok[len(tok)-1] == '"') {
			return rtbtypes.String(tok[1 : len(tok)-1]), nil
		}
	}
	switch tok {
	case "true":
		return rtbtypes.Bool(true), nil
	case "false":
		return rtbtypes.Bool(false), nil
	case "null":
		return rtbtypes.Null(), nil
	}
	if n, err := strconv.ParseFloat(tok, 64); err == nil {
		return rtbtypes.Number(n), nil
	}
	if v, ok := lookup(tok); ok {
		return v, nil
	}
	return rtbtypes.Null(), nil
}

func compare(op string, a, b rtbtypes.ConfigValue) (bool, error) {
	switch op {
	case "==":
		return a.Equal(b), nil
	case "!=":
		return !a.Equal(b), nil
	case "contains":
		switch a.Kind() {
		case rtbtypes.KindString:
			if b.Kind() != rtbtypes.KindString {
				return false, fmt.Errorf("contains on string needs string operand")
			}
			return strings.Contains(a.StringVal(), b.StringVal()), nil
		case rtbtypes.KindArray:
			for _, item := range a.ArrayVal() {
				if item.Equal(b) {
					return true, nil
				}
			}
			return false, nil
		}
		return false, fmt.Errorf("contains needs a string or array left operand, got %s", a.Kind())
	}

	// Ordering comparisons: numeric when both are numbers, lexical for
	// strings, error otherwise.
	if a.Kind() == rtbtypes.KindNumber && b.Kind() == rtbtypes.KindNumber {
		return ordered(op, a.NumberVal(), b.NumberVal())
	}
	if a.Kind() == rtbtypes.KindString && b.Kind() == rtbtypes.KindString {
		return ordered(op, a.StringVal(), b.StringVal())
	}
	return false, fmt.Errorf("cannot order %s against %s", a.Kind(), b.Kind())
}

func ordered[T float64 | string](op string, a, b T) (bool, error) {
	switch op {
	case ">":
		return a > b, nil
	case ">=":
		return a >= b, nil
	case "<":
		return a < b, nil
	case "<=":
		return a <= b, nil
	}
	return false, fmt.Errorf("unknown comparator %q", op)
}

func truthy(v rtbtypes.ConfigValue) bool {
	switch v.Kind() {
	case rtbtypes.KindNull:
		return false
	case rtbtypes.KindBool:
		return v.BoolVal()
	case rtbtypes.KindNumber:
		return v.NumberVal() != 0
	case rtbtypes.KindString:
		return v.StringVal() != ""
	case rtbtypes.KindArray:
		return len(v.ArrayVal()) > 0
	case rtbtypes.KindObject:
		return len(v.ObjectVal()) > 0
	}
	return false
}

// splitKeyword splits expr on the standalone keyword (surrounded by
// spaces) outside quoted regions.
func splitKeyword(expr, keyword string) []string {
	needle := " " + keyword + " "
	var parts []string
	rest := expr
	for {
		idx := indexOutsideQuotes(rest, needle)
		if idx < 0 {
			parts = append(parts, rest)
			return parts
		}
		parts = append(parts, rest[:idx])
		rest = rest[idx+len(needle):]
	}
}

// indexOutsideQuotes returns the first index of needle in s that is not
// inside a single- or double-quoted region, or -1.
func indexOutsideQuotes(s, needle string) int {
	var quote byte
	for i := 0; i+len(needle) <= len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			continue
		}
		if s[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
