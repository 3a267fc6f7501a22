// Package processor applies dynamic template directives to a resolved
// configuration: $cond conditionals, $eval function evaluations, and
// template-defined custom functions run through a sandboxed interpreter.
package processor

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/logging"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

// Metrics counts processing activity. Snapshot via Processor.Metrics.
type Metrics struct {
	TemplatesProcessed  uint64
	ConditionsEvaluated uint64
	EvaluationsRun      uint64
	FunctionCalls       uint64
	FunctionCacheHits   uint64
	Errors              uint64
	TotalDuration       time.Duration
}

// Processor evaluates a resolved chain's dynamic sections. Safe for
// concurrent use.
type Processor struct {
	exec        *FuncExecutor
	funcTimeout time.Duration

	mu      sync.Mutex
	native  map[string]NativeFunc
	metrics Metrics
}

// Option configures a Processor.
type Option func(*Processor)

// WithFunctionTimeout bounds each interpreted function call.
func WithFunctionTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.funcTimeout = d
		}
	}
}

// New creates a Processor with the predefined RAN helper functions
// registered.
func New(opts ...Option) *Processor {
	p := &Processor{
		exec:        NewFuncExecutor(),
		funcTimeout: 5 * time.Second,
		native:      builtinFunctions(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// RegisterNative installs a built-in function, replacing any prior
// registration under the same name.
func (p *Processor) RegisterNative(name string, fn NativeFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.native[name] = fn
}

// Builtins lists the registered native function names, sorted.
func (p *Processor) Builtins() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.native))
	for n := range p.native {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Metrics returns a snapshot of the processing counters.
func (p *Processor) Metrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.metrics
	m.FunctionCacheHits = p.exec.CacheHits()
	return m
}

// Process applies the chain's conditionals and evaluations to its
// resolved configuration and returns the final parameter map. Null and
// empty composite values are pruned from the output. Directive failures
// degrade to warnings; only context cancellation is fatal.
func (p *Processor) Process(ctx context.Context, chain *rtbtypes.InheritanceChain, rctx rtbtypes.ResolutionContext) (map[string]rtbtypes.ConfigValue, []rtbtypes.Warning, error) {
	start := time.Now()
	out := make(map[string]rtbtypes.ConfigValue, len(chain.Resolved))
	for k, v := range chain.Resolved {
		out[k] = v.Clone()
	}
	var warnings []rtbtypes.Warning

	lookup := func(name string) (rtbtypes.ConfigValue, bool) {
		if v, ok := rctx.Params[name]; ok {
			return v, true
		}
		v, ok := out[name]
		return v, ok
	}

	custom := make(map[string]rtbtypes.CustomFunction, len(chain.Functions))
	for _, fn := range chain.Functions {
		custom[fn.Name] = fn
	}

	var conds, evals uint64

	// Conditionals in deterministic key order.
	for _, key := range sortedKeys(chain.Conditions) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		cond := chain.Conditions[key]
		conds++
		ok, err := evalCondition(cond.If, lookup)
		if err != nil {
			p.countError()
			warnings = append(warnings, rtbtypes.Warning{
				Code:     rtbtypes.WarnConstraint,
				Template: chain.TemplateName,
				Message:  fmt.Sprintf("condition for %q failed: %v", key, err),
			})
			continue
		}
		if ok {
			out[key] = cond.Then.Clone()
		} else if cond.Else != nil {
			out[key] = cond.Else.Clone()
		} else {
			delete(out, key)
		}
	}

	// Evaluations, same ordering discipline.
	for _, key := range sortedKeys(chain.Evaluations) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		ev := chain.Evaluations[key]
		evals++
		args := make([]rtbtypes.ConfigValue, len(ev.Args))
		for i, raw := range ev.Args {
			args[i] = resolveArg(raw, lookup)
		}
		v, err := p.call(ctx, ev.Function, args, custom)
		if err != nil {
			p.countError()
			warnings = append(warnings, rtbtypes.Warning{
				Code:     rtbtypes.WarnConstraint,
				Template: chain.TemplateName,
				Message:  fmt.Sprintf("evaluation for %q failed: %v", key, err),
			})
			continue
		}
		out[key] = v
	}

	prune(out)

	p.mu.Lock()
	p.metrics.TemplatesProcessed++
	p.metrics.ConditionsEvaluated += conds
	p.metrics.EvaluationsRun += evals
	p.metrics.TotalDuration += time.Since(start)
	p.mu.Unlock()
	logging.ProcessorDebug("processed %s: %d conditions, %d evaluations, %d warnings",
		chain.TemplateName, conds, evals, len(warnings))
	return out, warnings, nil
}

// call dispatches to a native function first, then to a template-defined
// custom function via the interpreter.
func (p *Processor) call(ctx context.Context, name string, args []rtbtypes.ConfigValue, custom map[string]rtbtypes.CustomFunction) (rtbtypes.ConfigValue, error) {
	p.mu.Lock()
	nat, isNative := p.native[name]
	p.metrics.FunctionCalls++
	p.mu.Unlock()

	if isNative {
		return nat(args)
	}
	fn, ok := custom[name]
	if !ok {
		return rtbtypes.Null(), fmt.Errorf("function %q is neither built in nor defined by the chain", name)
	}
	cctx, cancel := context.WithTimeout(ctx, p.funcTimeout)
	defer cancel()
	return p.exec.Call(cctx, fn, args)
}

func (p *Processor) countError() {
	p.mu.Lock()
	p.metrics.Errors++
	p.mu.Unlock()
}

// resolveArg interprets an evaluation argument: variable reference first,
// then literal (quoted string, number, bool), else the raw string.
func resolveArg(raw string, lookup lookupFunc) rtbtypes.ConfigValue {
	if v, ok := lookup(raw); ok {
		return v
	}
	if len(raw) >= 2 {
		if (raw[0] == '\'' && raw[len(raw)-1] == '\'') || (raw[0] == '"' && raw[len(raw)-1] == '"') {
			return rtbtypes.String(raw[1 : len(raw)-1])
		}
	}
	switch raw {
	case "true":
		return rtbtypes.Bool(true)
	case "false":
		return rtbtypes.Bool(false)
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return rtbtypes.Number(n)
	}
	return rtbtypes.String(raw)
}

// prune drops null values and empty composites from the final output.
func prune(m map[string]rtbtypes.ConfigValue) {
	for k, v := range m {
		switch v.Kind() {
		case rtbtypes.KindNull:
			delete(m, k)
		case rtbtypes.KindArray:
			if len(v.ArrayVal()) == 0 {
				delete(m, k)
			}
		case rtbtypes.KindObject:
			if len(v.ObjectVal()) == 0 {
				delete(m, k)
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
