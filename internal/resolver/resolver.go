// Package resolver walks template inheritance chains and produces merged
// configurations. Graph irregularities (cycles, missing parents, priority
// inversions) never fail a resolution; they degrade to warnings on the
// result. Only an unregistered root template is an error.
package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/cache"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/logging"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/merge"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/store"
)

// Merge strategy names accepted in a ResolutionContext.
const (
	StrategyOverride = "override"
	StrategyMerge    = "merge"
	StrategyAppend   = "append"
)

// Resolver resolves inheritance chains against one template store.
type Resolver struct {
	store  *store.TemplateStore
	engine *merge.Engine
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMergeEngine installs a pre-configured override rule engine.
func WithMergeEngine(e *merge.Engine) Option {
	return func(r *Resolver) { r.engine = e }
}

// New creates a resolver over the given store.
func New(st *store.TemplateStore, opts ...Option) *Resolver {
	r := &Resolver{store: st, engine: merge.NewEngine()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Engine exposes the override rule engine for rule registration.
func (r *Resolver) Engine() *merge.Engine {
	return r.engine
}

// resolveState accumulates the working result during the DFS walk.
type resolveState struct {
	working     map[string]rtbtypes.ConfigValue
	owner       map[string]string // parameter -> template currently holding it
	ownerLevel  map[string]int
	contrib     map[string][]merge.Value // collision contributions, child first
	conflictOrd []string                 // parameter order of first collision
	conditions  map[string]rtbtypes.Conditional
	evaluations map[string]rtbtypes.Evaluation
	functions   []rtbtypes.CustomFunction
	funcSeen    map[string]bool
	chain       []rtbtypes.PriorityInfo
	chainSeen   map[string]bool
	warnings    []rtbtypes.Warning
}

// ResolveInheritanceChain resolves the named template with the given
// context. Results are memoized: the same (name, context) pair resolves
// to an identical chain until the template or an ancestor is
// re-registered.
func (r *Resolver) ResolveInheritanceChain(ctx context.Context, name string, rctx rtbtypes.ResolutionContext) (*rtbtypes.InheritanceChain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timer := logging.StartTimer(logging.CategoryResolver, "resolve "+name)
	defer timer.Stop()

	key := cache.Key(name, rctx)
	if cached, ok := r.store.Cache().Get(key); ok {
		logging.ResolverDebug("cache hit for %s", key)
		return cached, nil
	}

	tmpl, ok := r.store.Get(name)
	if !ok {
		return nil, &rtbtypes.NotFoundError{Name: name}
	}
	prio, _ := r.store.Priority(name)

	st := &resolveState{
		working:     make(map[string]rtbtypes.ConfigValue, len(tmpl.Configuration)),
		owner:       make(map[string]string),
		ownerLevel:  make(map[string]int),
		contrib:     make(map[string][]merge.Value),
		conditions:  make(map[string]rtbtypes.Conditional),
		evaluations: make(map[string]rtbtypes.Evaluation),
		funcSeen:    make(map[string]bool),
		chainSeen:   make(map[string]bool),
	}

	// Seed with the root template's own definitions. Everything merged
	// later yields to these: children always override ancestors.
	for k, v := range tmpl.Configuration {
		st.working[k] = v.Clone()
		st.owner[k] = name
		st.ownerLevel[k] = prio.Level
	}
	for k, c := range tmpl.Conditions {
		st.conditions[k] = c
	}
	for k, e := range tmpl.Evaluations {
		st.evaluations[k] = e
	}
	for _, fn := range tmpl.CustomFunctions {
		if !st.funcSeen[fn.Name] {
			st.functions = append(st.functions, fn)
			st.funcSeen[fn.Name] = true
		}
	}
	st.chain = append(st.chain, prio)
	st.chainSeen[name] = true

	visited := map[string]bool{name: true}
	r.walkParents(st, name, prio, visited)

	strategy := rctx.MergeStrategy
	if strategy == "" {
		strategy = StrategyOverride
	}
	conflicts := r.applyStrategy(st, strategy)

	// Ascending by level: highest-precedence entries (lowest numbers)
	// come first.
	sort.SliceStable(st.chain, func(i, j int) bool {
		return st.chain[i].Level < st.chain[j].Level
	})

	result := &rtbtypes.InheritanceChain{
		TemplateName: name,
		Chain:        st.chain,
		Resolved:     st.working,
		Conditions:   st.conditions,
		Evaluations:  st.evaluations,
		Functions:    st.functions,
		Conflicts:    conflicts,
		Warnings:     st.warnings,
	}

	r.store.Cache().Set(key, result)
	logging.Resolver("resolved %q: %d chain entries, %d parameters, %d conflicts, %d warnings",
		name, len(result.Chain), len(result.Resolved), len(result.Conflicts), len(result.Warnings))
	return result, nil
}

// walkParents merges each declared parent depth-first. visited tracks the
// current path only: a parent is released on the way back up so diamond
// inheritance through different paths stays legal while cycles within one
// path are cut.
func (r *Resolver) walkParents(st *resolveState, childName string, childPrio rtbtypes.PriorityInfo, visited map[string]bool) {
	for _, parentName := range childPrio.InheritsFrom {
		if visited[parentName] {
			st.warn(rtbtypes.WarnCircularDependency, parentName,
				fmt.Sprintf("circular dependency: %q already on the inheritance path of %q", parentName, childName))
			continue
		}

		parent, ok := r.store.Get(parentName)
		if !ok {
			st.warn(rtbtypes.WarnMissingParent, parentName,
				fmt.Sprintf("parent template %q of %q is not registered", parentName, childName))
			continue
		}
		parentPrio, _ := r.store.Priority(parentName)

		// A parent must sit at a numerically higher (lower-precedence)
		// level than its child. A parent claiming equal-or-higher
		// precedence is suspicious but not fatal; the merge proceeds.
		if parentPrio.Level <= childPrio.Level {
			st.warn(rtbtypes.WarnPriorityInversion, parentName,
				fmt.Sprintf("parent %q (level %d) claims equal-or-higher precedence than child %q (level %d)",
					parentName, parentPrio.Level, childName, childPrio.Level))
		}

		r.mergeParent(st, parentName, parentPrio, parent)

		if !st.chainSeen[parentName] {
			st.chain = append(st.chain, parentPrio)
			st.chainSeen[parentName] = true
		}

		visited[parentName] = true
		r.walkParents(st, parentName, parentPrio, visited)
		delete(visited, parentName)
	}
}

// mergeParent folds one ancestor's definitions into the working state.
// Keys already present keep their value (the more specific level was
// processed first); a differing ancestor value becomes a conflict
// contribution instead.
func (r *Resolver) mergeParent(st *resolveState, parentName string, parentPrio rtbtypes.PriorityInfo, parent rtbtypes.Template) {
	for k, v := range parent.Configuration {
		existing, present := st.working[k]
		if !present {
			st.working[k] = v.Clone()
			st.owner[k] = parentName
			st.ownerLevel[k] = parentPrio.Level
			continue
		}
		if existing.Equal(v) {
			continue
		}
		if len(st.contrib[k]) == 0 {
			st.contrib[k] = append(st.contrib[k], merge.Value{
				Priority: st.ownerLevel[k],
				Source:   st.owner[k],
				V:        existing,
			})
			st.conflictOrd = append(st.conflictOrd, k)
		}
		st.contrib[k] = append(st.contrib[k], merge.Value{
			Priority: parentPrio.Level,
			Source:   parentName,
			V:        v.Clone(),
		})
	}

	// Conditions and evaluations follow object-spread semantics: parent
	// keys absent from the child are added, present ones are kept.
	for k, c := range parent.Conditions {
		if _, present := st.conditions[k]; !present {
			st.conditions[k] = c
		}
	}
	for k, e := range parent.Evaluations {
		if _, present := st.evaluations[k]; !present {
			st.evaluations[k] = e
		}
	}

	// Custom functions merge by name; first definition wins.
	for _, fn := range parent.CustomFunctions {
		if !st.funcSeen[fn.Name] {
			st.functions = append(st.functions, fn)
			st.funcSeen[fn.Name] = true
		}
	}
}

// applyStrategy converts the collected contributions into conflict
// records. The step-4 child-wins value stands under "override"; "merge"
// and "append" recombine the contributions and the combined value
// replaces the parameter in the resolved configuration.
func (r *Resolver) applyStrategy(st *resolveState, strategy string) []rtbtypes.ConflictRecord {
	conflicts := make([]rtbtypes.ConflictRecord, 0, len(st.conflictOrd))
	for _, param := range st.conflictOrd {
		values := st.contrib[param]
		resolved := st.working[param]
		applied := merge.Strategy(StrategyOverride)

		switch strategy {
		case StrategyMerge:
			resolved = r.engine.Apply(merge.MergeAll, param, values)
			st.working[param] = resolved
			applied = merge.MergeAll
		case StrategyAppend:
			if combined, ok := appendCombine(values, st.working[param]); ok {
				resolved = combined
				st.working[param] = resolved
				applied = merge.Concatenate
			}
		}

		logging.Get(logging.CategoryMerge).Debug("conflict on %q resolved via %s (%d contributions)",
			param, applied, len(values))
		conflicts = append(conflicts, merge.NewConflictRecord(param, values, resolved, applied))
	}
	return conflicts
}

// appendCombine implements the "append" context strategy: array-valued
// conflicts flatten every contribution and append the child-wins value.
// Non-array conflicts are left to the override result.
func appendCombine(values []merge.Value, childWins rtbtypes.ConfigValue) (rtbtypes.ConfigValue, bool) {
	for _, v := range values {
		if v.V.Kind() != rtbtypes.KindArray {
			return rtbtypes.Null(), false
		}
	}
	var out []rtbtypes.ConfigValue
	for _, v := range values {
		out = append(out, v.V.ArrayVal()...)
	}
	out = append(out, childWins)
	return rtbtypes.Array(out...), true
}

func (st *resolveState) warn(code, template, message string) {
	st.warnings = append(st.warnings, rtbtypes.Warning{
		Code:     code,
		Template: template,
		Message:  message,
	})
}
