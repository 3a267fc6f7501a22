package rtbtypes

import (
	"time"
)

// Meta carries free-form template metadata. Everything here is optional;
// the index layer facets on Tags, Author, and Environment when present.
type Meta struct {
	Version     string   `json:"version,omitempty" yaml:"version,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Author      []string `json:"author,omitempty" yaml:"author,omitempty"`
	Environment string   `json:"environment,omitempty" yaml:"environment,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Source      string   `json:"source,omitempty" yaml:"source,omitempty"`
	Active      *bool    `json:"active,omitempty" yaml:"active,omitempty"`
}

// IsActive defaults to true when the flag is unset.
func (m Meta) IsActive() bool {
	return m.Active == nil || *m.Active
}

// CustomFunction is a template-defined Go function executed by the
// processor's interpreter. Body lines are joined verbatim; the function
// must be callable as name(args...).
type CustomFunction struct {
	Name        string   `json:"name" yaml:"name"`
	Args        []string `json:"args" yaml:"args"`
	Body        []string `json:"body" yaml:"body"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Conditional is a $cond entry: when If evaluates true against the
// processing context the field takes Then, otherwise Else. A nil Else
// means the field is omitted on a false condition.
type Conditional struct {
	If   string       `json:"if" yaml:"if"`
	Then ConfigValue  `json:"then" yaml:"then"`
	Else *ConfigValue `json:"else,omitempty" yaml:"else,omitempty"`
}

// Evaluation is an $eval entry: the named custom function is invoked with
// Args (context variable names or literals) and its result becomes the
// field value.
type Evaluation struct {
	Function string   `json:"function" yaml:"function"`
	Args     []string `json:"args,omitempty" yaml:"args,omitempty"`
}

// Template is a named configuration document. Identity is the unique name
// within a store; re-registration fully replaces the prior document.
type Template struct {
	Name            string                 `json:"name" yaml:"name"`
	Configuration   map[string]ConfigValue `json:"configuration" yaml:"configuration"`
	Conditions      map[string]Conditional `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Evaluations     map[string]Evaluation  `json:"evaluations,omitempty" yaml:"evaluations,omitempty"`
	CustomFunctions []CustomFunction       `json:"custom_functions,omitempty" yaml:"custom_functions,omitempty"`
	Meta            Meta                   `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Clone deep-copies the template so store-owned documents never alias
// caller maps.
func (t Template) Clone() Template {
	out := t
	out.Configuration = cloneConfig(t.Configuration)
	if t.Conditions != nil {
		out.Conditions = make(map[string]Conditional, len(t.Conditions))
		for k, c := range t.Conditions {
			cc := c
			cc.Then = c.Then.Clone()
			if c.Else != nil {
				e := c.Else.Clone()
				cc.Else = &e
			}
			out.Conditions[k] = cc
		}
	}
	if t.Evaluations != nil {
		out.Evaluations = make(map[string]Evaluation, len(t.Evaluations))
		for k, e := range t.Evaluations {
			ee := e
			ee.Args = append([]string(nil), e.Args...)
			out.Evaluations[k] = ee
		}
	}
	if t.CustomFunctions != nil {
		out.CustomFunctions = make([]CustomFunction, len(t.CustomFunctions))
		for i, f := range t.CustomFunctions {
			ff := f
			ff.Args = append([]string(nil), f.Args...)
			ff.Body = append([]string(nil), f.Body...)
			out.CustomFunctions[i] = ff
		}
	}
	return out
}

func cloneConfig(cfg map[string]ConfigValue) map[string]ConfigValue {
	if cfg == nil {
		return nil
	}
	out := make(map[string]ConfigValue, len(cfg))
	for k, v := range cfg {
		out[k] = v.Clone()
	}
	return out
}

// PriorityInfo attaches inheritance precedence to a template. Lower Level
// wins: 0 is absolute override authority, 80 is a pure default.
type PriorityInfo struct {
	TemplateName string    `json:"template_name"`
	Level        int       `json:"level"`
	Category     string    `json:"category,omitempty"`
	InheritsFrom []string  `json:"inherits_from,omitempty"`
	Source       string    `json:"source,omitempty"`
	Author       string    `json:"author,omitempty"`
	ResolvedAt   time.Time `json:"resolved_at,omitempty"`
}

// Warning is a non-fatal irregularity observed during resolution:
// circular dependency, missing parent, priority inversion, unknown
// parameter. Resolution proceeds best-effort and surfaces these in the
// result.
type Warning struct {
	Code     string `json:"code"`
	Template string `json:"template,omitempty"`
	Message  string `json:"message"`
}

// Warning codes.
const (
	WarnCircularDependency = "circular_dependency"
	WarnMissingParent      = "missing_parent"
	WarnPriorityInversion  = "priority_inversion"
	WarnUnknownParameter   = "unknown_parameter"
	WarnConstraint         = "constraint"
)

// ConflictRecord documents a parameter defined by two or more templates in
// a chain with differing values, and how the collision was resolved. Pure
// diagnostics; never fed back into resolution.
type ConflictRecord struct {
	ID            string        `json:"id"`
	Parameter     string        `json:"parameter"`
	Sources       []string      `json:"sources"`
	Values        []ConfigValue `json:"values"`
	ResolvedValue ConfigValue   `json:"resolved_value"`
	Strategy      string        `json:"strategy"`
	Reason        string        `json:"reason"`
}

// InheritanceChain is the resolved view of a template: the ordered
// ancestor priorities (ascending by level, so highest-precedence entries
// first), the fully merged configuration, and the conflicts and warnings
// collected along the way. Ephemeral; recomputed on demand and memoized by
// the cache layer.
type InheritanceChain struct {
	TemplateName string                 `json:"template_name"`
	Chain        []PriorityInfo         `json:"chain"`
	Resolved     map[string]ConfigValue `json:"resolved"`
	Conditions   map[string]Conditional `json:"conditions,omitempty"`
	Evaluations  map[string]Evaluation  `json:"evaluations,omitempty"`
	Functions    []CustomFunction       `json:"functions,omitempty"`
	Conflicts    []ConflictRecord       `json:"conflicts"`
	Warnings     []Warning              `json:"warnings"`
}

// ResolutionContext parameterizes a resolution run. Params feed condition
// and evaluation processing and participate in the cache key; an empty
// MergeStrategy means "override".
type ResolutionContext struct {
	MergeStrategy string                 `json:"merge_strategy,omitempty"`
	Params        map[string]ConfigValue `json:"params,omitempty"`
}

// CanonicalKey renders the context deterministically for cache keying.
func (rc ResolutionContext) CanonicalKey() string {
	strategy := rc.MergeStrategy
	if strategy == "" {
		strategy = "override"
	}
	return strategy + "|" + CanonicalConfig(rc.Params)
}
