// Package schema performs post-resolution validation of merged
// configurations against externally supplied parameter schemas and the MO
// class hierarchy. Both collaborators are consumed through narrow
// interfaces; the engine never owns their data.
package schema

import (
	"fmt"
	"regexp"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

// ParameterType names the expected value shape for a parameter.
type ParameterType string

const (
	TypeNumber  ParameterType = "number"
	TypeString  ParameterType = "string"
	TypeBoolean ParameterType = "boolean"
	TypeArray   ParameterType = "array"
	TypeObject  ParameterType = "object"
)

// Severity grades a constraint violation.
type Severity string

const (
	SeverityError   Severity = "error"   // invalidates the result
	SeverityWarning Severity = "warning" // non-blocking
)

// Constraint bounds a parameter value. Unset fields do not apply.
type Constraint struct {
	Severity Severity `json:"severity"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Enum     []string `json:"enum,omitempty"`
	Pattern  string   `json:"pattern,omitempty"`
}

// ParameterSchema describes one known parameter.
type ParameterSchema struct {
	Name        string        `json:"name"`
	Type        ParameterType `json:"type"`
	Constraints []Constraint  `json:"constraints,omitempty"`
}

// Provider supplies parameter schemas. Parameters the provider does not
// know are skipped by type checking (the hierarchy validator flags them
// separately).
type Provider interface {
	Schema(parameter string) (ParameterSchema, bool)
}

// HierarchyValidator answers whether a resolved configuration key
// corresponds to a known managed-object attribute. Unknown keys produce
// warnings, never errors.
type HierarchyValidator interface {
	KnownAttribute(parameter string) bool
}

// Result is the outcome of validating one resolved configuration.
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []rtbtypes.Warning
}

// Validate checks every resolved parameter. A type mismatch or an
// error-severity constraint violation invalidates the result; everything
// else degrades to warnings. Either collaborator may be nil.
func Validate(chain *rtbtypes.InheritanceChain, provider Provider, hierarchy HierarchyValidator) Result {
	res := Result{Valid: true}

	for param, value := range chain.Resolved {
		if hierarchy != nil && !hierarchy.KnownAttribute(param) {
			res.Warnings = append(res.Warnings, rtbtypes.Warning{
				Code:     rtbtypes.WarnUnknownParameter,
				Template: chain.TemplateName,
				Message:  fmt.Sprintf("parameter %q is not a known attribute in the MO hierarchy", param),
			})
		}

		if provider == nil {
			continue
		}
		ps, known := provider.Schema(param)
		if !known {
			continue
		}

		if !typeMatches(ps.Type, value) {
			res.Valid = false
			res.Errors = append(res.Errors, fmt.Sprintf(
				"parameter %q: expected %s, got %s", param, ps.Type, value.Kind()))
			continue
		}

		for _, c := range ps.Constraints {
			violation := checkConstraint(param, c, value)
			if violation == "" {
				continue
			}
			if c.Severity == SeverityError {
				res.Valid = false
				res.Errors = append(res.Errors, violation)
			} else {
				res.Warnings = append(res.Warnings, rtbtypes.Warning{
					Code:     rtbtypes.WarnConstraint,
					Template: chain.TemplateName,
					Message:  violation,
				})
			}
		}
	}
	return res
}

func typeMatches(t ParameterType, v rtbtypes.ConfigValue) bool {
	switch t {
	case TypeNumber:
		return v.Kind() == rtbtypes.KindNumber
	case TypeString:
		return v.Kind() == rtbtypes.KindString
	case TypeBoolean:
		return v.Kind() == rtbtypes.KindBool
	case TypeArray:
		return v.Kind() == rtbtypes.KindArray
	case TypeObject:
		return v.Kind() == rtbtypes.KindObject
	}
	// Unknown schema type: treat as match, the schema is external data.
	return true
}

func checkConstraint(param string, c Constraint, v rtbtypes.ConfigValue) string {
	if c.Min != nil && v.Kind() == rtbtypes.KindNumber && v.NumberVal() < *c.Min {
		return fmt.Sprintf("parameter %q: value %g below minimum %g", param, v.NumberVal(), *c.Min)
	}
	if c.Max != nil && v.Kind() == rtbtypes.KindNumber && v.NumberVal() > *c.Max {
		return fmt.Sprintf("parameter %q: value %g above maximum %g", param, v.NumberVal(), *c.Max)
	}
	if len(c.Enum) > 0 && v.Kind() == rtbtypes.KindString {
		for _, allowed := range c.Enum {
			if v.StringVal() == allowed {
				return ""
			}
		}
		return fmt.Sprintf("parameter %q: value %q not in %v", param, v.StringVal(), c.Enum)
	}
	if c.Pattern != "" && v.Kind() == rtbtypes.KindString {
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return fmt.Sprintf("parameter %q: invalid constraint pattern %q", param, c.Pattern)
		}
		if !re.MatchString(v.StringVal()) {
			return fmt.Sprintf("parameter %q: value %q does not match %q", param, v.StringVal(), c.Pattern)
		}
	}
	return ""
}

// StaticProvider is a map-backed Provider for configuration loaded from
// files or tests.
type StaticProvider struct {
	Schemas map[string]ParameterSchema
}

// Schema implements Provider.
func (p StaticProvider) Schema(parameter string) (ParameterSchema, bool) {
	s, ok := p.Schemas[parameter]
	return s, ok
}

// MOHierarchy is a map-backed HierarchyValidator over the external
// {classes, relationships} structure.
type MOHierarchy struct {
	// Classes maps MO class name to its attribute names.
	Classes map[string][]string `json:"classes"`
	// Relationships maps parent class to child classes. Kept for
	// completeness of the external structure; attribute lookup does not
	// consult it.
	Relationships map[string][]string `json:"relationships"`

	attrs map[string]bool
}

// KnownAttribute implements HierarchyValidator.
func (h *MOHierarchy) KnownAttribute(parameter string) bool {
	if h.attrs == nil {
		h.attrs = make(map[string]bool)
		for _, attrs := range h.Classes {
			for _, a := range attrs {
				h.attrs[a] = true
			}
		}
	}
	return h.attrs[parameter]
}
